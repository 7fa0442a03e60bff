package admin

import (
	"strings"

	"github.com/forum-next/internal/constants"
	handlershared "github.com/forum-next/internal/http/handlers/shared"
	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
)

func getContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, key, invalidKey, typeInvalidKey)
}

// getOperator 构建管理操作人（用于审计日志）
func getOperator(c *gin.Context) (service.Operator, bool) {
	userID, ok := getContextUintWithKeys(c, constants.ContextKeyUserID, "error.unauthorized", "error.internal")
	if !ok {
		return service.Operator{}, false
	}
	requestID, _ := c.Get("request_id")
	id, _ := requestID.(string)
	return service.Operator{
		UserID:    userID,
		UID:       c.GetString(constants.ContextKeyUserUID),
		RequestID: id,
	}, true
}

func pathUID(c *gin.Context) (string, bool) {
	uid := strings.TrimSpace(c.Param("uid"))
	if uid == "" {
		respondError(c, response.CodeBadRequest, "error.uid_invalid", nil)
		return "", false
	}
	return uid, true
}

func pathPid(c *gin.Context) (string, bool) {
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		respondError(c, response.CodeBadRequest, "error.pid_invalid", nil)
		return "", false
	}
	return pid, true
}
