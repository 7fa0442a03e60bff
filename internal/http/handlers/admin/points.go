package admin

import (
	"strings"

	"github.com/forum-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// AdjustPointsRequest 手动调整积分请求（delta 非零，可为负）
type AdjustPointsRequest struct {
	Delta  int64  `json:"delta" binding:"required"`
	Remark string `json:"remark"`
}

// AdjustUserPoints 管理员调整用户积分
func (h *Handler) AdjustUserPoints(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	var req AdjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.invalid_amount", nil)
		return
	}
	entry, err := h.ModerationService.AdjustPoints(c.Request.Context(), op, uid, req.Delta, strings.TrimSpace(req.Remark))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, entry)
}

// ReconcileUserPoints 按流水重算用户余额
func (h *Handler) ReconcileUserPoints(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	result, err := h.ModerationService.Reconcile(c.Request.Context(), op, uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// GetPointsSettings 获取积分配置
func (h *Handler) GetPointsSettings(c *gin.Context) {
	setting, err := h.ModerationService.PointsConfig()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}

// UpdatePointsSettings 更新积分配置（未提供的字段保持原值）
func (h *Handler) UpdatePointsSettings(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	var req map[string]interface{}
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	setting, err := h.ModerationService.UpdatePointsConfig(op, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, setting)
}
