package public

import (
	"strconv"

	"github.com/forum-next/internal/constants"
	handlershared "github.com/forum-next/internal/http/handlers/shared"
	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func requestLog(c *gin.Context) *zap.SugaredLogger {
	return handlershared.RequestLog(c)
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func respondServiceError(c *gin.Context, err error) {
	handlershared.RespondServiceError(c, err)
}

func normalizePagination(page, pageSize int) (int, int) {
	return handlershared.NormalizePagination(page, pageSize)
}

func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return normalizePagination(page, pageSize)
}

func getContextUintWithKeys(c *gin.Context, key, invalidKey, typeInvalidKey string) (uint, bool) {
	return handlershared.GetContextUintWithKeys(c, key, invalidKey, typeInvalidKey)
}

func getUserID(c *gin.Context) (uint, bool) {
	return getContextUintWithKeys(c, constants.ContextKeyUserID, "error.unauthorized", "error.internal")
}

// getUserUID 返回登录用户的对外标识，未登录时写入 401 响应
func getUserUID(c *gin.Context) (string, bool) {
	if _, ok := getUserID(c); !ok {
		return "", false
	}
	uid := c.GetString(constants.ContextKeyUserUID)
	if uid == "" {
		respondError(c, response.CodeUnauthorized, "error.unauthorized", nil)
		return "", false
	}
	return uid, true
}

// resolveViewer 解析访问者（可选登录），未登录为匿名访问者
func (h *Handler) resolveViewer(c *gin.Context) (service.Viewer, bool) {
	uid := c.GetString(constants.ContextKeyUserUID)
	viewer, err := h.AccessService.ResolveViewer(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return service.Viewer{}, false
	}
	return viewer, true
}
