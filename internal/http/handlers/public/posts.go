package public

import (
	"strconv"
	"strings"

	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/repository"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
)

// CreatePostRequest 发帖请求
type CreatePostRequest struct {
	Title    string `json:"title" binding:"required"`
	Content  string `json:"content" binding:"required"`
	TagID    *uint  `json:"tag_id"`
	ReadRole string `json:"read_role"`
	MinLevel int    `json:"min_level"`
	PayPoint int64  `json:"pay_point"`
}

// ListPosts 帖子列表（置顶优先）
func (h *Handler) ListPosts(c *gin.Context) {
	viewer, ok := h.resolveViewer(c)
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)
	tagID, _ := strconv.ParseUint(c.Query("tag_id"), 10, 64)
	items, total, err := h.PostService.List(c.Request.Context(), viewer, repository.PostListFilter{
		Page:        page,
		PageSize:    pageSize,
		TagID:       uint(tagID),
		Search:      strings.TrimSpace(c.Query("q")),
		IncludeHide: c.Query("include_hide") == "true",
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.SuccessWithPage(c, items, response.BuildPagination(page, pageSize, total))
}

// ListTags 标签列表
func (h *Handler) ListTags(c *gin.Context) {
	tags, err := h.PostService.ListTags()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, tags)
}

// GetPost 帖子详情（按访问者身份裁剪内容）
func (h *Handler) GetPost(c *gin.Context) {
	viewer, ok := h.resolveViewer(c)
	if !ok {
		return
	}
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		respondError(c, response.CodeBadRequest, "error.pid_invalid", nil)
		return
	}
	view, err := h.AccessService.ViewPost(c.Request.Context(), viewer, pid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, view)
}

// CreatePost 发帖
func (h *Handler) CreatePost(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	var req CreatePostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, response.CodeBadRequest, "error.bad_request", nil)
		return
	}
	result, err := h.PostService.Create(c.Request.Context(), uid, service.CreatePostInput{
		Title:    req.Title,
		Content:  req.Content,
		TagID:    req.TagID,
		ReadRole: req.ReadRole,
		MinLevel: req.MinLevel,
		PayPoint: req.PayPoint,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}

// UnlockPost 积分解锁付费帖（重复解锁幂等返回，strict=true 时返回冲突）
func (h *Handler) UnlockPost(c *gin.Context) {
	uid, ok := getUserUID(c)
	if !ok {
		return
	}
	pid := strings.TrimSpace(c.Param("pid"))
	if pid == "" {
		respondError(c, response.CodeBadRequest, "error.pid_invalid", nil)
		return
	}
	unlock := h.UnlockService.Unlock
	if c.Query("strict") == "true" {
		unlock = h.UnlockService.UnlockStrict
	}
	result, err := unlock(c.Request.Context(), uid, pid)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	response.Success(c, result)
}
