package service

import (
	"errors"
	"fmt"
)

// 积分核心错误
var (
	ErrInvalidEntry        = errors.New("invalid ledger entry")
	ErrInsufficientBalance = errors.New("insufficient point balance")
	ErrAlreadyUnlocked     = errors.New("post already unlocked")
	ErrInvalidInviteCode   = errors.New("invalid invite code")
	ErrInviteNotFound      = fmt.Errorf("%w: not found", ErrInvalidInviteCode)
	ErrInviteExpired       = fmt.Errorf("%w: expired", ErrInvalidInviteCode)
	ErrInviteRedeemed      = fmt.Errorf("%w: already redeemed", ErrInvalidInviteCode)
	ErrInviteSelfRedeem    = fmt.Errorf("%w: cannot redeem own invite", ErrInvalidInviteCode)
	ErrContention          = errors.New("too much contention, retry later")
	ErrStorageTimeout      = errors.New("storage timeout")
)

// 论坛业务错误
var (
	ErrUserNotFound        = errors.New("user not found")
	ErrUserBanned          = errors.New("user is banned")
	ErrPostNotFound        = errors.New("post not found")
	ErrPostInvalid         = errors.New("post title or content invalid")
	ErrTagNotFound         = errors.New("tag not found")
	ErrCommentNotFound     = errors.New("comment not found")
	ErrCommentInvalid      = errors.New("comment content invalid")
	ErrUnlockNotRequired   = errors.New("post does not require unlock")
	ErrReactionInvalid     = errors.New("reaction target or kind invalid")
	ErrAlreadyReacted      = errors.New("already reacted")
	ErrReactOwnContent     = errors.New("cannot react to own content")
	ErrInvalidCursor       = errors.New("invalid history cursor")
	ErrInvalidAmount       = errors.New("invalid point amount")
	ErrInvalidRole         = errors.New("invalid user role")
	ErrMessageNotFound     = errors.New("message not found")
	ErrPointsConfigInvalid = errors.New("points config invalid")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidInput        = errors.New("invalid input")
)

// errVersionConflict 乐观锁冲突（内部重试信号，耗尽后转换为 ErrContention）
var errVersionConflict = errors.New("version conflict")

// IsTransient 是否为可重试的临时错误
func IsTransient(err error) bool {
	return errors.Is(err, ErrContention) || errors.Is(err, ErrStorageTimeout)
}
