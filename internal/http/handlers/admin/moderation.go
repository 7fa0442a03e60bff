package admin

import (
	"strconv"
	"strings"
	"time"

	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/repository"

	"github.com/gin-gonic/gin"
)

// HidePostRequest 隐藏帖子请求
type HidePostRequest struct {
	Hide        bool   `json:"hide"`
	HideContent string `json:"hide_content"`
}

// PinPostRequest 置顶帖子请求
type PinPostRequest struct {
	Pinned bool `json:"pinned"`
}

// BanUserRequest 封禁请求，banned=false 为解封，banned_end 为空表示永久
type BanUserRequest struct {
	Banned    bool       `json:"banned"`
	BannedEnd *time.Time `json:"banned_end"`
	Reason    string     `json:"reason"`
}

// SetRoleRequest 角色变更请求
type SetRoleRequest struct {
	Role string `json:"role" binding:"required"`
}

// HidePost 隐藏/取消隐藏帖子
func (h *Handler) HidePost(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	pid, ok := pathPid(c)
	if !ok {
		return
	}
	var req HidePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	post, err := h.ModerationService.HidePost(c.Request.Context(), op, pid, req.Hide, strings.TrimSpace(req.HideContent))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// PinPost 置顶/取消置顶帖子
func (h *Handler) PinPost(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	pid, ok := pathPid(c)
	if !ok {
		return
	}
	var req PinPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	post, err := h.ModerationService.PinPost(c.Request.Context(), op, pid, req.Pinned)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, post)
}

// BanUser 封禁/解封用户
func (h *Handler) BanUser(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	var req BanUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	if !req.Banned {
		user, err := h.ModerationService.Unban(c.Request.Context(), op, uid)
		if err != nil {
			respondServiceError(c, err)
			return
		}
		response.Success(c, user)
		return
	}
	user, err := h.ModerationService.Ban(c.Request.Context(), op, uid, req.BannedEnd, strings.TrimSpace(req.Reason))
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// SetUserRole 变更用户角色
func (h *Handler) SetUserRole(c *gin.Context) {
	op, ok := getOperator(c)
	if !ok {
		return
	}
	uid, ok := pathUID(c)
	if !ok {
		return
	}
	var req SetRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	user, err := h.ModerationService.SetRole(c.Request.Context(), op, uid, req.Role)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, user)
}

// ListModerationLogs 管理审计日志
func (h *Handler) ListModerationLogs(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	page, pageSize = normalizePagination(page, pageSize)
	operatorID, _ := strconv.ParseUint(c.Query("operator_id"), 10, 64)

	filter := repository.ModerationLogListFilter{
		Page:       page,
		PageSize:   pageSize,
		OperatorID: uint(operatorID),
		TargetType: strings.TrimSpace(c.Query("target_type")),
		TargetID:   strings.TrimSpace(c.Query("target_id")),
		Action:     strings.TrimSpace(c.Query("action")),
	}
	if from, err := time.Parse(time.RFC3339, c.Query("created_from")); err == nil {
		filter.CreatedFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("created_to")); err == nil {
		filter.CreatedTo = &to
	}
	logs, total, err := h.ModerationService.ListLogs(filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, logs, response.BuildPagination(page, pageSize, total))
}
