package models

import "time"

// Tag 帖子标签
type Tag struct {
	ID        uint      `gorm:"primarykey" json:"id"`                     // 主键
	Name      string    `gorm:"uniqueIndex;size:64;not null" json:"name"` // 名称
	EnName    string    `gorm:"size:64" json:"en_name"`                   // 英文名称
	Desc      string    `gorm:"size:255" json:"desc"`                     // 描述
	CreatedAt time.Time `json:"created_at"`                               // 创建时间
}

// TableName 指定表名
func (Tag) TableName() string {
	return "tags"
}
