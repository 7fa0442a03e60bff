package public

import (
	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
)

// ReactRequest 点赞/点踩请求
type ReactRequest struct {
	TargetType string `json:"target_type" binding:"required"`
	TargetRef  string `json:"target_ref" binding:"required"`
	Kind       string `json:"kind" binding:"required"`
}

// React 对帖子或评论点赞/点踩
func (h *Handler) React(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	var req ReactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.ReactionService.React(c.Request.Context(), uid, service.ReactInput{
		TargetType: req.TargetType,
		TargetRef:  req.TargetRef,
		Kind:       req.Kind,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
