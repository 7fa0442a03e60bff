package worker

import (
	"context"
	"encoding/json"

	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/provider"
	"github.com/forum-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者，将积分事件投影为站内消息
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(queue.TaskBalanceChanged, c.handleBalanceChanged)
	mux.HandleFunc(queue.TaskPostUnlocked, c.handlePostUnlocked)
	mux.HandleFunc(queue.TaskInviteRedeemed, c.handleInviteRedeemed)
	mux.HandleFunc(queue.TaskCommentCreated, c.handleCommentCreated)
}

func (c *Consumer) ready(event string, task *asynq.Task) bool {
	if c == nil || task == nil {
		logger.Debugw(event+"_skip_nil", "consumer_nil", c == nil, "task_nil", task == nil)
		return false
	}
	if c.Container == nil || c.MessageService == nil {
		logger.Warnw(event+"_skip_message_service_nil", "task_type", task.Type())
		return false
	}
	return true
}

func (c *Consumer) handleBalanceChanged(_ context.Context, task *asynq.Task) error {
	if !c.ready("worker_balance_changed", task) {
		return nil
	}
	var payload queue.BalanceChangedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_balance_changed_unmarshal_failed", "error", err)
		return err
	}
	if payload.UserID == 0 || payload.EntryID == "" {
		logger.Debugw("worker_balance_changed_skip_invalid_payload", "user_id", payload.UserID, "entry_id", payload.EntryID)
		return nil
	}
	if err := c.MessageService.ProjectBalanceChanged(payload); err != nil {
		logger.Warnw("worker_balance_changed_project_failed", "user_id", payload.UserID, "entry_id", payload.EntryID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handlePostUnlocked(_ context.Context, task *asynq.Task) error {
	if !c.ready("worker_post_unlocked", task) {
		return nil
	}
	var payload queue.PostUnlockedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_post_unlocked_unmarshal_failed", "error", err)
		return err
	}
	if payload.PostID == 0 || payload.ViewerID == 0 {
		logger.Debugw("worker_post_unlocked_skip_invalid_payload", "post_id", payload.PostID, "viewer_id", payload.ViewerID)
		return nil
	}
	if err := c.MessageService.ProjectPostUnlocked(payload); err != nil {
		logger.Warnw("worker_post_unlocked_project_failed", "pid", payload.Pid, "viewer_id", payload.ViewerID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleInviteRedeemed(_ context.Context, task *asynq.Task) error {
	if !c.ready("worker_invite_redeemed", task) {
		return nil
	}
	var payload queue.InviteRedeemedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_invite_redeemed_unmarshal_failed", "error", err)
		return err
	}
	if payload.InviteID == 0 {
		logger.Debugw("worker_invite_redeemed_skip_invalid_payload", "invite_id", payload.InviteID)
		return nil
	}
	if err := c.MessageService.ProjectInviteRedeemed(payload); err != nil {
		logger.Warnw("worker_invite_redeemed_project_failed", "invite_id", payload.InviteID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleCommentCreated(_ context.Context, task *asynq.Task) error {
	if !c.ready("worker_comment_created", task) {
		return nil
	}
	var payload queue.CommentCreatedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_comment_created_unmarshal_failed", "error", err)
		return err
	}
	if payload.CommentID == 0 {
		logger.Debugw("worker_comment_created_skip_invalid_payload", "comment_id", payload.CommentID)
		return nil
	}
	if err := c.MessageService.ProjectCommentCreated(payload); err != nil {
		logger.Warnw("worker_comment_created_project_failed", "cid", payload.Cid, "error", err)
		return err
	}
	return nil
}
