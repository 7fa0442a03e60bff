package models

import "time"

// Message 站内消息（通知投影）
type Message struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                         // 主键
	FromUserID uint      `gorm:"not null;default:0" json:"from_user_id"`                       // 发送人（0 为系统）
	ToUserID   uint      `gorm:"not null;index:idx_message_to_read" json:"-"`                  // 接收人
	Kind       string    `gorm:"size:32;not null" json:"kind"`                                 // 消息类型
	Content    string    `gorm:"type:text;not null" json:"content"`                            // 内容
	Read       bool      `gorm:"not null;default:false;index:idx_message_to_read" json:"read"` // 是否已读
	DedupeKey  string    `gorm:"uniqueIndex;size:191" json:"-"`                                // 去重键（任务重试）
	CreatedAt  time.Time `gorm:"index" json:"created_at"`                                      // 创建时间
}

// TableName 指定表名
func (Message) TableName() string {
	return "messages"
}
