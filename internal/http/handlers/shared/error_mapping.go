package shared

import (
	"errors"

	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/i18n"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
)

// MappedHandlerError 定义业务错误到接口错误响应的映射关系。
type MappedHandlerError struct {
	Target error
	Code   int
	Key    string
}

// 子错误需排在父错误之前（邀请码子错误包装 ErrInvalidInviteCode）。
var forumErrorRules = []MappedHandlerError{
	{Target: service.ErrInvalidEntry, Code: response.CodeBadRequest, Key: "error.invalid_entry"},
	{Target: service.ErrInsufficientBalance, Code: response.CodeBadRequest, Key: "error.insufficient_balance"},
	{Target: service.ErrAlreadyUnlocked, Code: response.CodeConflict, Key: "error.already_unlocked"},
	{Target: service.ErrInviteNotFound, Code: response.CodeBadRequest, Key: "error.invite_not_found"},
	{Target: service.ErrInviteExpired, Code: response.CodeBadRequest, Key: "error.invite_expired"},
	{Target: service.ErrInviteRedeemed, Code: response.CodeConflict, Key: "error.invite_redeemed"},
	{Target: service.ErrInviteSelfRedeem, Code: response.CodeBadRequest, Key: "error.invite_self"},
	{Target: service.ErrInvalidInviteCode, Code: response.CodeBadRequest, Key: "error.invite_invalid"},
	{Target: service.ErrUserNotFound, Code: response.CodeNotFound, Key: "error.user_not_found"},
	{Target: service.ErrUserBanned, Code: response.CodeForbidden, Key: "error.user_banned"},
	{Target: service.ErrPostNotFound, Code: response.CodeNotFound, Key: "error.post_not_found"},
	{Target: service.ErrPostInvalid, Code: response.CodeBadRequest, Key: "error.post_invalid"},
	{Target: service.ErrTagNotFound, Code: response.CodeBadRequest, Key: "error.tag_not_found"},
	{Target: service.ErrCommentNotFound, Code: response.CodeNotFound, Key: "error.comment_not_found"},
	{Target: service.ErrCommentInvalid, Code: response.CodeBadRequest, Key: "error.comment_invalid"},
	{Target: service.ErrUnlockNotRequired, Code: response.CodeBadRequest, Key: "error.unlock_not_required"},
	{Target: service.ErrReactionInvalid, Code: response.CodeBadRequest, Key: "error.reaction_invalid"},
	{Target: service.ErrAlreadyReacted, Code: response.CodeConflict, Key: "error.already_reacted"},
	{Target: service.ErrReactOwnContent, Code: response.CodeBadRequest, Key: "error.react_own"},
	{Target: service.ErrInvalidCursor, Code: response.CodeBadRequest, Key: "error.invalid_cursor"},
	{Target: service.ErrInvalidAmount, Code: response.CodeBadRequest, Key: "error.invalid_amount"},
	{Target: service.ErrInvalidRole, Code: response.CodeBadRequest, Key: "error.invalid_role"},
	{Target: service.ErrMessageNotFound, Code: response.CodeNotFound, Key: "error.message_not_found"},
	{Target: service.ErrPointsConfigInvalid, Code: response.CodeBadRequest, Key: "error.points_config_invalid"},
	{Target: service.ErrForbidden, Code: response.CodeForbidden, Key: "error.forbidden"},
	{Target: service.ErrInvalidInput, Code: response.CodeBadRequest, Key: "error.invalid_input"},
}

// RespondWithMappedError 按映射表返回业务错误，未命中时使用兜底码并记录原始错误。
func RespondWithMappedError(c *gin.Context, err error, rules []MappedHandlerError, fallbackCode int, fallbackKey string) {
	for _, rule := range rules {
		if errors.Is(err, rule.Target) {
			RespondError(c, rule.Code, rule.Key, nil)
			return
		}
	}
	RespondError(c, fallbackCode, fallbackKey, err)
}

// RespondServiceError 统一处理服务层错误：
// 业务错误返回 4xx 且不记 error 日志，并发冲突与存储超时返回 503 并记 warn 日志。
func RespondServiceError(c *gin.Context, err error) {
	if service.IsTransient(err) {
		key := "error.busy"
		if errors.Is(err, service.ErrStorageTimeout) {
			key = "error.storage_timeout"
		}
		RequestLog(c).Warnw("handler_transient_error", "path", c.FullPath(), "error", err)
		response.Error(c, response.CodeUnavailable, i18n.T(i18n.ResolveLocale(c), key))
		return
	}
	RespondWithMappedError(c, err, forumErrorRules, response.CodeInternal, "error.internal")
}
