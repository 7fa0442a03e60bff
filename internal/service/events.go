package service

import (
	"context"

	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/queue"
)

// EventPublisher 积分事件发布接口（事务提交后调用）
type EventPublisher interface {
	BalanceChanged(ctx context.Context, entry *models.PointLedgerEntry)
	PostUnlocked(ctx context.Context, post *models.Post, viewerID uint, price int64)
	InviteRedeemed(ctx context.Context, invite *models.InviteCode, toUserID uint)
	CommentCreated(ctx context.Context, post *models.Post, comment *models.Comment)
}

// QueueEventPublisher 基于 asynq 的事件发布实现
type QueueEventPublisher struct {
	client *queue.Client
}

// NewQueueEventPublisher 创建事件发布器
func NewQueueEventPublisher(client *queue.Client) *QueueEventPublisher {
	return &QueueEventPublisher{client: client}
}

// BalanceChanged 发布积分变动事件，零变动流水不发布
func (p *QueueEventPublisher) BalanceChanged(_ context.Context, entry *models.PointLedgerEntry) {
	if p == nil || entry == nil || entry.Delta == 0 {
		return
	}
	err := p.client.EnqueueBalanceChanged(queue.BalanceChangedPayload{
		UserID:       entry.UserID,
		EntryID:      entry.EntryID,
		Delta:        entry.Delta,
		BalanceAfter: entry.BalanceAfter,
		Reason:       string(entry.Reason),
		RefType:      entry.RefType,
		RefID:        entry.RefID,
	})
	if err != nil {
		logger.Warnw("balance_changed_event_enqueue_failed", "user_id", entry.UserID, "entry_id", entry.EntryID, "error", err)
	}
}

// PostUnlocked 发布帖子解锁事件
func (p *QueueEventPublisher) PostUnlocked(_ context.Context, post *models.Post, viewerID uint, price int64) {
	if p == nil || post == nil {
		return
	}
	err := p.client.EnqueuePostUnlocked(queue.PostUnlockedPayload{
		PostID:   post.ID,
		Pid:      post.Pid,
		Title:    post.Title,
		ViewerID: viewerID,
		AuthorID: post.AuthorID,
		Price:    price,
	})
	if err != nil {
		logger.Warnw("unlock_event_enqueue_failed", "pid", post.Pid, "viewer_id", viewerID, "error", err)
	}
}

// InviteRedeemed 发布邀请码使用事件
func (p *QueueEventPublisher) InviteRedeemed(_ context.Context, invite *models.InviteCode, toUserID uint) {
	if p == nil || invite == nil {
		return
	}
	err := p.client.EnqueueInviteRedeemed(queue.InviteRedeemedPayload{
		InviteID:   invite.ID,
		Code:       invite.Code,
		FromUserID: invite.FromUserID,
		ToUserID:   toUserID,
	})
	if err != nil {
		logger.Warnw("invite_event_enqueue_failed", "invite_id", invite.ID, "error", err)
	}
}

// CommentCreated 发布评论通知事件
func (p *QueueEventPublisher) CommentCreated(_ context.Context, post *models.Post, comment *models.Comment) {
	if p == nil || post == nil || comment == nil {
		return
	}
	err := p.client.EnqueueCommentCreated(queue.CommentCreatedPayload{
		CommentID:    comment.ID,
		Cid:          comment.Cid,
		PostID:       post.ID,
		Pid:          post.Pid,
		Title:        post.Title,
		AuthorID:     comment.AuthorID,
		PostAuthorID: post.AuthorID,
		Floor:        comment.Floor,
	})
	if err != nil {
		logger.Warnw("comment_event_enqueue_failed", "cid", comment.Cid, "error", err)
	}
}

type noopEventPublisher struct{}

func (noopEventPublisher) BalanceChanged(context.Context, *models.PointLedgerEntry)      {}
func (noopEventPublisher) PostUnlocked(context.Context, *models.Post, uint, int64)       {}
func (noopEventPublisher) InviteRedeemed(context.Context, *models.InviteCode, uint)      {}
func (noopEventPublisher) CommentCreated(context.Context, *models.Post, *models.Comment) {}

func publisherOrNoop(p EventPublisher) EventPublisher {
	if p == nil {
		return noopEventPublisher{}
	}
	return p
}
