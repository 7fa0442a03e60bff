package models

import (
	"time"

	"gorm.io/gorm"
)

// Comment 评论表
type Comment struct {
	ID           uint           `gorm:"primarykey" json:"-"`                                      // 主键
	Cid          string         `gorm:"uniqueIndex;size:64;not null" json:"cid"`                  // 对外评论标识
	PostID       uint           `gorm:"not null;uniqueIndex:idx_comment_post_floor" json:"-"`     // 帖子ID
	AuthorID     uint           `gorm:"not null;index" json:"-"`                                  // 作者ID
	Content      string         `gorm:"type:text;not null" json:"content"`                        // 内容（Markdown）
	Floor        int            `gorm:"not null;uniqueIndex:idx_comment_post_floor" json:"floor"` // 楼层（帖子内从 1 开始）
	LikeCount    int64          `gorm:"not null;default:0" json:"like_count"`                     // 点赞数
	DislikeCount int64          `gorm:"not null;default:0" json:"dislike_count"`                  // 点踩数
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`                                  // 创建时间
	UpdatedAt    time.Time      `json:"updated_at"`                                               // 更新时间
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`                                           // 软删除时间

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"` // 作者
	Post   *Post `gorm:"foreignKey:PostID" json:"post,omitempty"`     // 所属帖子
}

// TableName 指定表名
func (Comment) TableName() string {
	return "comments"
}

// Reaction 点赞/点踩记录（同一用户对同一对象仅一次）
type Reaction struct {
	ID         uint      `gorm:"primarykey" json:"id"`                                                     // 主键
	UserID     uint      `gorm:"not null;uniqueIndex:idx_reaction_user_target" json:"-"`                   // 用户ID
	TargetType string    `gorm:"size:16;not null;uniqueIndex:idx_reaction_user_target" json:"target_type"` // 对象类型 post/comment
	TargetID   uint      `gorm:"not null;uniqueIndex:idx_reaction_user_target" json:"-"`                   // 对象ID
	Kind       string    `gorm:"size:16;not null" json:"kind"`                                             // like/dislike
	CreatedAt  time.Time `json:"created_at"`                                                               // 创建时间
}

// TableName 指定表名
func (Reaction) TableName() string {
	return "reactions"
}
