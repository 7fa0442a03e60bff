package service

import (
	"context"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"gorm.io/gorm"
)

// UnlockResult 帖子解锁结果
type UnlockResult struct {
	Pid             string                   `json:"pid"`
	Price           int64                    `json:"price"`
	AlreadyUnlocked bool                     `json:"already_unlocked"`
	Balance         int64                    `json:"balance"`
	Entry           *models.PointLedgerEntry `json:"entry,omitempty"`
}

// UnlockService 付费帖子解锁服务
type UnlockService struct {
	runner   txRunner
	ledger   *LedgerService
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	policy   *PointPolicyProvider
	events   EventPublisher
	now      func() time.Time
}

// NewUnlockService 创建解锁服务
func NewUnlockService(db *gorm.DB, retry RetryPolicy, ledger *LedgerService, userRepo repository.UserRepository, postRepo repository.PostRepository, policy *PointPolicyProvider, events EventPublisher) *UnlockService {
	return &UnlockService{
		runner:   newTxRunner(db, retry),
		ledger:   ledger,
		userRepo: userRepo,
		postRepo: postRepo,
		policy:   policy,
		events:   publisherOrNoop(events),
		now:      time.Now,
	}
}

// Unlock 解锁付费帖子：扣减访问者、记录解锁、作者入账、累加帖子积分，同一事务内完成
// 重复解锁视为成功且不再扣费
func (s *UnlockService) Unlock(ctx context.Context, viewerUID, pid string) (*UnlockResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	var (
		result *UnlockResult
		post   *models.Post
		viewer *models.User
		debit  *appendOutcome
		credit *appendOutcome
	)
	err = s.runner.run(ctx, "post_unlock", func(tx *gorm.DB) error {
		result, debit, credit = nil, nil, nil
		userRepo := s.userRepo.WithTx(tx)
		postRepo := s.postRepo.WithTx(tx)

		u, err := userRepo.GetByUID(viewerUID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		if u.IsBanned(s.now()) {
			return ErrUserBanned
		}
		p, err := postRepo.GetByPid(pid)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPostNotFound
		}
		if p.PayPoint <= 0 || p.AuthorID == u.ID {
			return ErrUnlockNotRequired
		}
		viewer, post = u, p

		existing, err := postRepo.GetUnlock(p.ID, u.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			result = &UnlockResult{Pid: p.Pid, Price: existing.Price, AlreadyUnlocked: true, Balance: u.Point}
			return nil
		}
		if Evaluate(ViewerFromUser(u, policy), AccessViewOf(p, policy, false)) == AccessTeaser {
			return ErrForbidden
		}

		price := p.PayPoint
		debit, err = s.ledger.appendInTx(tx, LedgerAppendInput{
			UserID:  u.ID,
			Delta:   -price,
			Reason:  models.PointReasonPostUnlock,
			RefType: constants.LedgerRefTypePost,
			RefID:   p.Pid,
		}, policy)
		if err != nil {
			return err
		}
		if err := postRepo.CreateUnlock(&models.PostUnlock{
			PostID:        p.ID,
			UserID:        u.ID,
			Price:         price,
			LedgerEntryID: debit.Entry.ID,
			CreatedAt:     s.now(),
		}); err != nil {
			logger.Debugw("post_unlock_create_conflict", "pid", p.Pid, "viewer_uid", u.UID, "error", err)
			return errVersionConflict
		}
		credit, err = s.ledger.appendInTx(tx, LedgerAppendInput{
			UserID:  p.AuthorID,
			Delta:   price,
			Reason:  models.PointReasonPostUnlockIncome,
			RefType: constants.LedgerRefTypePost,
			RefID:   p.Pid + "#" + u.UID,
		}, policy)
		if err != nil {
			return err
		}
		if err := postRepo.IncrementColumns(p.ID, map[string]int64{"point": price}); err != nil {
			return err
		}
		result = &UnlockResult{Pid: p.Pid, Price: price, Balance: debit.Entry.BalanceAfter, Entry: debit.Entry}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.AlreadyUnlocked {
		return result, nil
	}
	s.ledger.afterCommit(ctx, debit, credit)
	s.events.PostUnlocked(ctx, post, viewer.ID, result.Price)
	logger.Infow("post_unlocked", "pid", post.Pid, "viewer_uid", viewer.UID, "price", result.Price)
	return result, nil
}

// UnlockStrict 解锁帖子，已解锁时返回 ErrAlreadyUnlocked
func (s *UnlockService) UnlockStrict(ctx context.Context, viewerUID, pid string) (*UnlockResult, error) {
	result, err := s.Unlock(ctx, viewerUID, pid)
	if err != nil {
		return nil, err
	}
	if result.AlreadyUnlocked {
		return nil, ErrAlreadyUnlocked
	}
	return result, nil
}
