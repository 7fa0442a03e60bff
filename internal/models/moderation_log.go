package models

import "time"

// ModerationLog 管理操作审计日志
// 说明：记录封禁、角色调整、积分调整、隐藏置顶与积分配置变更，支持按操作人、目标与动作检索。
type ModerationLog struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	OperatorID  uint      `gorm:"index;not null" json:"-"`
	OperatorUID string    `gorm:"type:varchar(64);index;not null;default:''" json:"operator_uid"`
	TargetType  string    `gorm:"type:varchar(32);index;not null;default:''" json:"target_type"`
	TargetID    string    `gorm:"type:varchar(64);index;not null;default:''" json:"target_id"`
	Action      string    `gorm:"type:varchar(64);index;not null" json:"action"`
	RequestID   string    `gorm:"type:varchar(64);index;not null;default:''" json:"request_id"`
	DetailJSON  JSON      `gorm:"type:json" json:"detail"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName 指定表名
func (ModerationLog) TableName() string {
	return "moderation_logs"
}
