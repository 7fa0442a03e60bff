package queue

import (
	"encoding/json"

	"github.com/forum-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskBalanceChanged 积分变动通知任务
	TaskBalanceChanged = constants.TaskBalanceChanged
	// TaskPostUnlocked 帖子解锁通知任务
	TaskPostUnlocked = constants.TaskPostUnlocked
	// TaskInviteRedeemed 邀请码使用通知任务
	TaskInviteRedeemed = constants.TaskInviteRedeemed
	// TaskCommentCreated 评论回复通知任务
	TaskCommentCreated = constants.TaskCommentCreated
)

// BalanceChangedPayload 积分变动任务载荷
type BalanceChangedPayload struct {
	UserID       uint   `json:"user_id"`
	EntryID      string `json:"entry_id"`
	Delta        int64  `json:"delta"`
	BalanceAfter int64  `json:"balance_after"`
	Reason       string `json:"reason"`
	RefType      string `json:"ref_type"`
	RefID        string `json:"ref_id"`
}

// PostUnlockedPayload 帖子解锁任务载荷
type PostUnlockedPayload struct {
	PostID   uint   `json:"post_id"`
	Pid      string `json:"pid"`
	Title    string `json:"title"`
	ViewerID uint   `json:"viewer_id"`
	AuthorID uint   `json:"author_id"`
	Price    int64  `json:"price"`
}

// InviteRedeemedPayload 邀请码使用任务载荷
type InviteRedeemedPayload struct {
	InviteID   uint   `json:"invite_id"`
	Code       string `json:"code"`
	FromUserID uint   `json:"from_user_id"`
	ToUserID   uint   `json:"to_user_id"`
}

// CommentCreatedPayload 评论创建任务载荷
type CommentCreatedPayload struct {
	CommentID    uint   `json:"comment_id"`
	Cid          string `json:"cid"`
	PostID       uint   `json:"post_id"`
	Pid          string `json:"pid"`
	Title        string `json:"title"`
	AuthorID     uint   `json:"author_id"`
	PostAuthorID uint   `json:"post_author_id"`
	Floor        int    `json:"floor"`
}

func newJSONTask(taskType string, payload interface{}) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}

// NewBalanceChangedTask 创建积分变动任务
func NewBalanceChangedTask(payload BalanceChangedPayload) (*asynq.Task, error) {
	return newJSONTask(TaskBalanceChanged, payload)
}

// NewPostUnlockedTask 创建帖子解锁任务
func NewPostUnlockedTask(payload PostUnlockedPayload) (*asynq.Task, error) {
	return newJSONTask(TaskPostUnlocked, payload)
}

// NewInviteRedeemedTask 创建邀请码使用任务
func NewInviteRedeemedTask(payload InviteRedeemedPayload) (*asynq.Task, error) {
	return newJSONTask(TaskInviteRedeemed, payload)
}

// NewCommentCreatedTask 创建评论通知任务
func NewCommentCreatedTask(payload CommentCreatedPayload) (*asynq.Task, error) {
	return newJSONTask(TaskCommentCreated, payload)
}
