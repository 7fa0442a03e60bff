package public

import (
	"strings"

	"github.com/forum-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// CreateCommentRequest 评论请求
type CreateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ListComments 帖子评论列表（按楼层）
func (h *Handler) ListComments(c *gin.Context) {
	viewer, ok := h.resolveViewer(c)
	if !ok {
		return
	}
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		respondError(c, response.CodeBadRequest, "error.pid_invalid", nil)
		return
	}
	page, pageSize := parsePagination(c)
	comments, total, err := h.CommentService.ListByPost(c.Request.Context(), viewer, pid, page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, comments, response.BuildPagination(page, pageSize, total))
}

// CreateComment 发表评论
func (h *Handler) CreateComment(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		respondError(c, response.CodeBadRequest, "error.pid_invalid", nil)
		return
	}
	var req CreateCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.CommentService.Create(c.Request.Context(), uid, pid, req.Content)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
