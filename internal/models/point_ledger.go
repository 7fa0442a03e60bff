package models

import "time"

// PointReason 积分变动原因（封闭枚举）
type PointReason string

const (
	PointReasonPostCreate       PointReason = "post_create"
	PointReasonCommentCreate    PointReason = "comment_create"
	PointReasonLikeReceived     PointReason = "like_received"
	PointReasonDislikeReceived  PointReason = "dislike_received"
	PointReasonDailySignIn      PointReason = "daily_sign_in"
	PointReasonInviteCreate     PointReason = "invite_create"
	PointReasonPostUnlock       PointReason = "post_unlock"
	PointReasonPostUnlockIncome PointReason = "post_unlock_income"
	PointReasonAdminAdjust      PointReason = "admin_adjust"
)

// AllPointReasons 全部积分原因
func AllPointReasons() []PointReason {
	return []PointReason{
		PointReasonPostCreate,
		PointReasonCommentCreate,
		PointReasonLikeReceived,
		PointReasonDislikeReceived,
		PointReasonDailySignIn,
		PointReasonInviteCreate,
		PointReasonPostUnlock,
		PointReasonPostUnlockIncome,
		PointReasonAdminAdjust,
	}
}

// Valid 是否为已知原因
func (r PointReason) Valid() bool {
	switch r {
	case PointReasonPostCreate,
		PointReasonCommentCreate,
		PointReasonLikeReceived,
		PointReasonDislikeReceived,
		PointReasonDailySignIn,
		PointReasonInviteCreate,
		PointReasonPostUnlock,
		PointReasonPostUnlockIncome,
		PointReasonAdminAdjust:
		return true
	default:
		return false
	}
}

// DailyCapped 是否受每日上限约束
func (r PointReason) DailyCapped() bool {
	switch r {
	case PointReasonPostCreate, PointReasonCommentCreate, PointReasonDailySignIn:
		return true
	case PointReasonLikeReceived,
		PointReasonDislikeReceived,
		PointReasonInviteCreate,
		PointReasonPostUnlock,
		PointReasonPostUnlockIncome,
		PointReasonAdminAdjust:
		return false
	default:
		return false
	}
}

// AllowsZeroDelta 是否允许记录零变动流水（达到每日上限的奖励动作）
func (r PointReason) AllowsZeroDelta() bool {
	return r.DailyCapped()
}

// Sign 变动方向约束：1 只能入账，-1 只能扣减，0 不限
func (r PointReason) Sign() int {
	switch r {
	case PointReasonPostCreate,
		PointReasonCommentCreate,
		PointReasonLikeReceived,
		PointReasonDailySignIn,
		PointReasonPostUnlockIncome:
		return 1
	case PointReasonDislikeReceived,
		PointReasonInviteCreate,
		PointReasonPostUnlock:
		return -1
	case PointReasonAdminAdjust:
		return 0
	default:
		return 0
	}
}

// PointLedgerEntry 积分流水（只追加，不修改）
type PointLedgerEntry struct {
	ID             uint        `gorm:"primarykey" json:"-"`                                                         // 自增序号（游标排序）
	EntryID        string      `gorm:"uniqueIndex;size:64;not null" json:"entry_id"`                                // 对外流水标识
	UserID         uint        `gorm:"not null;index:idx_ledger_user_reason_day,priority:1" json:"-"`               // 用户ID
	Delta          int64       `gorm:"not null" json:"delta"`                                                       // 积分变动（有符号）
	Reason         PointReason `gorm:"size:32;not null;index:idx_ledger_user_reason_day,priority:2" json:"reason"`  // 变动原因
	RefType        string      `gorm:"size:32" json:"ref_type"`                                                     // 关联对象类型
	RefID          string      `gorm:"size:64;index" json:"ref_id"`                                                 // 关联对象标识
	IdempotencyKey string      `gorm:"uniqueIndex;size:191;not null" json:"-"`                                      // 幂等键
	DayKey         string      `gorm:"size:10;not null;index:idx_ledger_user_reason_day,priority:3" json:"day_key"` // 自然日（配置时区）
	BalanceAfter   int64       `gorm:"not null" json:"balance_after"`                                               // 变动后余额
	Remark         string      `gorm:"size:255" json:"remark"`                                                      // 备注
	CreatedAt      time.Time   `gorm:"index" json:"created_at"`                                                     // 创建时间
}

// TableName 指定表名
func (PointLedgerEntry) TableName() string {
	return "point_ledger_entries"
}
