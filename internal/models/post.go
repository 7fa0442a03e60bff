package models

import (
	"time"

	"gorm.io/gorm"
)

// Post 帖子表
type Post struct {
	ID            uint           `gorm:"primarykey" json:"-"`                          // 主键
	Pid           string         `gorm:"uniqueIndex;size:64;not null" json:"pid"`      // 对外帖子标识
	AuthorID      uint           `gorm:"not null;index" json:"-"`                      // 作者ID
	Title         string         `gorm:"size:255;not null" json:"title"`               // 标题
	Content       string         `gorm:"type:text;not null" json:"-"`                  // 正文（Markdown）
	TagID         *uint          `gorm:"index" json:"tag_id"`                          // 标签ID
	ReadRole      UserRole       `gorm:"size:32;not null;default:''" json:"read_role"` // 最低阅读角色（空为公开）
	MinLevel      int            `gorm:"not null;default:0" json:"min_level"`          // 最低阅读等级
	PayPoint      int64          `gorm:"not null;default:0" json:"pay_point"`          // 付费积分（0 为免费）
	Hide          bool           `gorm:"not null;default:false" json:"hide"`           // 是否被版主隐藏
	HideContent   string         `gorm:"type:text" json:"-"`                           // 隐藏后展示的替代内容
	Pinned        bool           `gorm:"not null;default:false;index" json:"pinned"`   // 是否置顶
	Point         int64          `gorm:"not null;default:0" json:"point"`              // 帖子累计获得积分
	ViewCount     int64          `gorm:"not null;default:0" json:"view_count"`         // 浏览数
	ReplyCount    int64          `gorm:"not null;default:0" json:"reply_count"`        // 评论数
	LikeCount     int64          `gorm:"not null;default:0" json:"like_count"`         // 点赞数
	DislikeCount  int64          `gorm:"not null;default:0" json:"dislike_count"`      // 点踩数
	LastCommentAt *time.Time     `gorm:"index" json:"last_comment_at"`                 // 最后评论时间
	CreatedAt     time.Time      `gorm:"index" json:"created_at"`                      // 创建时间
	UpdatedAt     time.Time      `json:"updated_at"`                                   // 更新时间
	DeletedAt     gorm.DeletedAt `gorm:"index" json:"-"`                               // 软删除时间

	Author *User `gorm:"foreignKey:AuthorID" json:"author,omitempty"` // 作者
	Tag    *Tag  `gorm:"foreignKey:TagID" json:"tag,omitempty"`       // 标签
}

// TableName 指定表名
func (Post) TableName() string {
	return "posts"
}

// PostUnlock 帖子付费解锁记录（payUser 集合，只增不减）
type PostUnlock struct {
	ID            uint      `gorm:"primarykey" json:"id"`                                                // 主键
	PostID        uint      `gorm:"not null;uniqueIndex:idx_post_unlock_post_user" json:"post_id"`       // 帖子ID
	UserID        uint      `gorm:"not null;uniqueIndex:idx_post_unlock_post_user;index" json:"user_id"` // 解锁用户ID
	Price         int64     `gorm:"not null" json:"price"`                                               // 解锁价格
	LedgerEntryID uint      `gorm:"not null" json:"ledger_entry_id"`                                     // 扣减流水ID
	CreatedAt     time.Time `json:"created_at"`                                                          // 解锁时间
}

// TableName 指定表名
func (PostUnlock) TableName() string {
	return "post_unlocks"
}
