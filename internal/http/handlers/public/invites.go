package public

import (
	"github.com/forum-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// RedeemInviteRequest 使用邀请码请求
type RedeemInviteRequest struct {
	Code string `json:"code" binding:"required"`
}

// IssueInvite 按站点配置的发行价消耗积分发行邀请码，请求体中的价格字段被忽略
func (h *Handler) IssueInvite(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	invite, err := h.InviteService.Issue(c.Request.Context(), uid, 0)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, invite)
}

// ListMyInvites 我发行的邀请码
func (h *Handler) ListMyInvites(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	invites, total, err := h.InviteService.ListMine(c.Request.Context(), uid, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, invites, response.BuildPagination(page, pageSize, total))
}

// RedeemInvite 使用邀请码
func (h *Handler) RedeemInvite(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	var req RedeemInviteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	invite, err := h.InviteService.Redeem(c.Request.Context(), req.Code, uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, invite)
}
