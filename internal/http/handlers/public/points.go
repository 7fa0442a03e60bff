package public

import (
	"strconv"
	"strings"

	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/models"

	"github.com/gin-gonic/gin"
)

// GetMyPoints 当前用户积分概览
func (h *Handler) GetMyPoints(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	summary, err := h.PointService.Summary(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, summary)
}

// GetMyPointHistory 当前用户积分流水（游标分页）
func (h *Handler) GetMyPointHistory(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	_, pageSize = normalizePagination(1, pageSize)
	history, err := h.PointHistoryService.History(c.Request.Context(), uid, strings.TrimSpace(c.Query("cursor")), pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, history)
}

// SignIn 每日签到
func (h *Handler) SignIn(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	result, err := h.PointService.SignIn(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if result.AlreadySigned {
		requestLog(c).Debugw("sign_in_repeat", "uid", uid, "day_key", result.DayKey)
	}
	response.Success(c, result)
}

// GetPointsConfig 公开的积分规则及各原因的单次数额
func (h *Handler) GetPointsConfig(c *gin.Context) {
	policy, err := h.PolicyProvider.Current()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	reasons := make([]gin.H, 0, len(models.AllPointReasons()))
	for _, reason := range models.AllPointReasons() {
		reasons = append(reasons, gin.H{
			"reason":    reason,
			"amount":    policy.AmountFor(reason),
			"daily_cap": policy.DailyCapFor(reason),
		})
	}
	response.Success(c, gin.H{
		"config":  policy.ToSetting(),
		"reasons": reasons,
	})
}
