package models

import "time"

// InviteCode 邀请码
type InviteCode struct {
	ID         uint       `gorm:"primarykey" json:"id"`                     // 主键
	Code       string     `gorm:"uniqueIndex;size:64;not null" json:"code"` // 邀请码内容
	FromUserID uint       `gorm:"not null;index" json:"-"`                  // 发行人
	ToUserID   *uint      `gorm:"index" json:"-"`                           // 使用人（未使用时为空）
	Cost       int64      `gorm:"not null;default:0" json:"cost"`           // 发行消耗积分
	EndAt      time.Time  `gorm:"not null;index" json:"end_at"`             // 过期时间
	RedeemedAt *time.Time `json:"redeemed_at"`                              // 使用时间
	Version    int64      `gorm:"not null;default:0" json:"-"`              // 乐观锁版本号
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`                  // 创建时间

	ToUser *User `gorm:"foreignKey:ToUserID" json:"to_user,omitempty"` // 使用人
}

// TableName 指定表名
func (InviteCode) TableName() string {
	return "invite_codes"
}

// IsRedeemed 是否已被使用
func (c *InviteCode) IsRedeemed() bool {
	return c != nil && c.ToUserID != nil
}

// IsExpired 判断在指定时间是否已过期
func (c *InviteCode) IsExpired(now time.Time) bool {
	return c != nil && !now.Before(c.EndAt)
}
