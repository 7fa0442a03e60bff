package repository

import "time"

// UserListFilter 查询用户列表的过滤条件
type UserListFilter struct {
	Page     int
	PageSize int
	Keyword  string
	Role     string
	Status   string
}

// PostListFilter 查询帖子列表的过滤条件
type PostListFilter struct {
	Page        int
	PageSize    int
	TagID       uint
	AuthorID    uint
	Search      string
	IncludeHide bool
}

// CommentListFilter 查询评论列表的过滤条件
type CommentListFilter struct {
	Page     int
	PageSize int
	PostID   uint
}

// InviteListFilter 查询邀请码列表的过滤条件
type InviteListFilter struct {
	Page       int
	PageSize   int
	FromUserID uint
}

// MessageListFilter 查询站内消息的过滤条件
type MessageListFilter struct {
	Page       int
	PageSize   int
	ToUserID   uint
	OnlyUnread bool
}

// ModerationLogListFilter 查询管理审计日志的过滤条件
type ModerationLogListFilter struct {
	Page        int
	PageSize    int
	OperatorID  uint
	TargetType  string
	TargetID    string
	Action      string
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}
