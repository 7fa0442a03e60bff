package public

import (
	"strconv"

	"github.com/forum-next/internal/http/response"

	"github.com/gin-gonic/gin"
)

// ListMessages 站内消息列表（附未读数）
func (h *Handler) ListMessages(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	result, err := h.MessageService.List(c.Request.Context(), uid, c.Query("unread") == "true", page, pageSize)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, gin.H{
		"messages": result.Messages,
		"unread":   result.Unread,
	}, response.BuildPagination(page, pageSize, result.Total))
}

// MarkMessageRead 标记单条消息已读
func (h *Handler) MarkMessageRead(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		respondError(c, response.CodeBadRequest, "error.message_id_invalid", nil)
		return
	}
	if err := h.MessageService.MarkRead(c.Request.Context(), uid, uint(id)); err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, nil)
}

// MarkAllMessagesRead 全部标记已读
func (h *Handler) MarkAllMessagesRead(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	count, err := h.MessageService.MarkAllRead(c.Request.Context(), uid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, gin.H{"updated": count})
}
