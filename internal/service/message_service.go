package service

import (
	"context"
	"fmt"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/i18n"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/queue"
	"github.com/forum-next/internal/repository"

	"gorm.io/gorm"
)

// MessagePage 消息分页结果
type MessagePage struct {
	Messages []models.Message `json:"messages"`
	Total    int64            `json:"total"`
	Unread   int64            `json:"unread"`
}

// MessageService 站内消息服务（事件通知的投影）
type MessageService struct {
	runner      txRunner
	userRepo    repository.UserRepository
	messageRepo repository.MessageRepository
	locale      string
	now         func() time.Time
}

// NewMessageService 创建站内消息服务
func NewMessageService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, messageRepo repository.MessageRepository) *MessageService {
	return &MessageService{
		runner:      newTxRunner(db, retry),
		userRepo:    userRepo,
		messageRepo: messageRepo,
		locale:      i18n.DefaultLocale,
		now:         time.Now,
	}
}

func (s *MessageService) resolveUser(ctx context.Context, uid string) (*models.User, error) {
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	user, err := s.userRepo.WithTx(db).GetByUID(uid)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// List 分页列出消息并附带未读数
func (s *MessageService) List(ctx context.Context, uid string, onlyUnread bool, page, pageSize int) (*MessagePage, error) {
	user, err := s.resolveUser(ctx, uid)
	if err != nil {
		return nil, err
	}
	messages, total, err := s.messageRepo.List(repository.MessageListFilter{
		Page:       page,
		PageSize:   pageSize,
		ToUserID:   user.ID,
		OnlyUnread: onlyUnread,
	})
	if err != nil {
		return nil, mapStorageError(ctx, err)
	}
	unread, err := s.messageRepo.CountUnread(user.ID)
	if err != nil {
		return nil, mapStorageError(ctx, err)
	}
	if messages == nil {
		messages = []models.Message{}
	}
	return &MessagePage{Messages: messages, Total: total, Unread: unread}, nil
}

// MarkRead 标记单条消息已读
func (s *MessageService) MarkRead(ctx context.Context, uid string, id uint) error {
	user, err := s.resolveUser(ctx, uid)
	if err != nil {
		return err
	}
	updated, err := s.messageRepo.MarkRead(id, user.ID)
	if err != nil {
		return mapStorageError(ctx, err)
	}
	if !updated {
		return ErrMessageNotFound
	}
	return nil
}

// MarkAllRead 标记全部消息已读
func (s *MessageService) MarkAllRead(ctx context.Context, uid string) (int64, error) {
	user, err := s.resolveUser(ctx, uid)
	if err != nil {
		return 0, err
	}
	count, err := s.messageRepo.MarkAllRead(user.ID)
	if err != nil {
		return 0, mapStorageError(ctx, err)
	}
	return count, nil
}

// deliver 按去重键写入消息，任务重试时不会重复投递
func (s *MessageService) deliver(msg *models.Message) error {
	existing, err := s.messageRepo.GetByDedupeKey(msg.DedupeKey)
	if err != nil {
		return err
	}
	if existing != nil {
		logger.Debugw("message_deliver_duplicate", "dedupe_key", msg.DedupeKey)
		return nil
	}
	msg.CreatedAt = s.now()
	if err := s.messageRepo.Create(msg); err != nil {
		again, lookupErr := s.messageRepo.GetByDedupeKey(msg.DedupeKey)
		if lookupErr == nil && again != nil {
			return nil
		}
		return err
	}
	return nil
}

// ProjectBalanceChanged 积分变动通知
func (s *MessageService) ProjectBalanceChanged(payload queue.BalanceChangedPayload) error {
	if payload.UserID == 0 || payload.Delta == 0 {
		return nil
	}
	reason := i18n.T(s.locale, "reason."+payload.Reason)
	return s.deliver(&models.Message{
		ToUserID:  payload.UserID,
		Kind:      constants.MessageKindBalanceChanged,
		Content:   i18n.Sprintf(s.locale, "message.balance_changed", payload.Delta, reason, payload.BalanceAfter),
		DedupeKey: fmt.Sprintf("%s:%s", constants.MessageKindBalanceChanged, payload.EntryID),
	})
}

// ProjectPostUnlocked 帖子被解锁通知作者
func (s *MessageService) ProjectPostUnlocked(payload queue.PostUnlockedPayload) error {
	if payload.AuthorID == 0 {
		return nil
	}
	return s.deliver(&models.Message{
		FromUserID: payload.ViewerID,
		ToUserID:   payload.AuthorID,
		Kind:       constants.MessageKindPostUnlocked,
		Content:    i18n.Sprintf(s.locale, "message.post_unlocked", payload.Title, payload.Price),
		DedupeKey:  fmt.Sprintf("%s:%d:%d", constants.MessageKindPostUnlocked, payload.PostID, payload.ViewerID),
	})
}

// ProjectInviteRedeemed 邀请码被使用通知发行人
func (s *MessageService) ProjectInviteRedeemed(payload queue.InviteRedeemedPayload) error {
	if payload.FromUserID == 0 {
		return nil
	}
	return s.deliver(&models.Message{
		FromUserID: payload.ToUserID,
		ToUserID:   payload.FromUserID,
		Kind:       constants.MessageKindInviteRedeemed,
		Content:    i18n.Sprintf(s.locale, "message.invite_redeemed", payload.Code),
		DedupeKey:  fmt.Sprintf("%s:%d", constants.MessageKindInviteRedeemed, payload.InviteID),
	})
}

// ProjectCommentCreated 新回复通知帖子作者
func (s *MessageService) ProjectCommentCreated(payload queue.CommentCreatedPayload) error {
	if payload.PostAuthorID == 0 || payload.PostAuthorID == payload.AuthorID {
		return nil
	}
	return s.deliver(&models.Message{
		FromUserID: payload.AuthorID,
		ToUserID:   payload.PostAuthorID,
		Kind:       constants.MessageKindCommentReply,
		Content:    i18n.Sprintf(s.locale, "message.comment_reply", payload.Title, payload.Floor),
		DedupeKey:  fmt.Sprintf("%s:%d", constants.MessageKindCommentReply, payload.CommentID),
	})
}
