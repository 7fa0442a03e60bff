package service

import (
	"context"
	"strings"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// InviteService 邀请码服务
type InviteService struct {
	runner     txRunner
	ledger     *LedgerService
	userRepo   repository.UserRepository
	inviteRepo repository.InviteRepository
	policy     *PointPolicyProvider
	events     EventPublisher
	now        func() time.Time
	newCode    func() string
}

// NewInviteService 创建邀请码服务
func NewInviteService(db *gorm.DB, retry RetryPolicy, ledger *LedgerService, userRepo repository.UserRepository, inviteRepo repository.InviteRepository, policy *PointPolicyProvider, events EventPublisher) *InviteService {
	return &InviteService{
		runner:     newTxRunner(db, retry),
		ledger:     ledger,
		userRepo:   userRepo,
		inviteRepo: inviteRepo,
		policy:     policy,
		events:     publisherOrNoop(events),
		now:        time.Now,
		newCode:    generateInviteCode,
	}
}

func generateInviteCode() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Issue 发行邀请码，扣减发行人积分；cost 为 0 时使用配置的发行价，低于发行价的 cost 被拒绝
func (s *InviteService) Issue(ctx context.Context, fromUID string, cost int64) (*models.InviteCode, error) {
	if cost < 0 {
		return nil, ErrInvalidAmount
	}
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	if cost == 0 {
		cost = policy.InviteCreateCost
	}
	if cost < policy.InviteCreateCost {
		return nil, ErrInvalidAmount
	}
	var (
		invite  *models.InviteCode
		outcome *appendOutcome
	)
	err = s.runner.run(ctx, "invite_issue", func(tx *gorm.DB) error {
		invite, outcome = nil, nil
		user, err := s.userRepo.WithTx(tx).GetByUID(fromUID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		now := s.now()
		if user.IsBanned(now) {
			return ErrUserBanned
		}
		code := s.newCode()
		if cost > 0 {
			outcome, err = s.ledger.appendInTx(tx, LedgerAppendInput{
				UserID:  user.ID,
				Delta:   -cost,
				Reason:  models.PointReasonInviteCreate,
				RefType: constants.LedgerRefTypeInvite,
				RefID:   code,
			}, policy)
			if err != nil {
				return err
			}
		}
		created := &models.InviteCode{
			Code:       code,
			FromUserID: user.ID,
			Cost:       cost,
			EndAt:      now.Add(policy.InviteTTL),
			CreatedAt:  now,
		}
		if err := s.inviteRepo.WithTx(tx).Create(created); err != nil {
			return err
		}
		invite = created
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.ledger.afterCommit(ctx, outcome)
	logger.Infow("invite_issued", "from_uid", fromUID, "code", invite.Code, "cost", cost)
	return invite, nil
}

// Redeem 使用邀请码（比较并设置，只有一个使用者能成功）
func (s *InviteService) Redeem(ctx context.Context, code, toUID string) (*models.InviteCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInviteNotFound
	}
	var (
		invite *models.InviteCode
		toUser *models.User
	)
	err := s.runner.run(ctx, "invite_redeem", func(tx *gorm.DB) error {
		inviteRepo := s.inviteRepo.WithTx(tx)
		found, err := inviteRepo.GetByCode(code)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrInviteNotFound
		}
		if found.IsRedeemed() {
			return ErrInviteRedeemed
		}
		now := s.now()
		if found.IsExpired(now) {
			return ErrInviteExpired
		}
		user, err := s.userRepo.WithTx(tx).GetByUID(toUID)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		if user.ID == found.FromUserID {
			return ErrInviteSelfRedeem
		}
		updated, err := inviteRepo.MarkRedeemed(found.ID, found.Version, user.ID, now)
		if err != nil {
			return err
		}
		if !updated {
			// 并发使用时重读，已被使用则直接失败
			return errVersionConflict
		}
		found.ToUserID = &user.ID
		found.RedeemedAt = &now
		found.Version++
		invite, toUser = found, user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.InviteRedeemed(ctx, invite, toUser.ID)
	logger.Infow("invite_redeemed", "code", invite.Code, "to_uid", toUser.UID)
	return invite, nil
}

// ListMine 分页列出用户发行的邀请码
func (s *InviteService) ListMine(ctx context.Context, uid string, page, pageSize int) ([]models.InviteCode, int64, error) {
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	user, err := s.userRepo.WithTx(db).GetByUID(uid)
	if err != nil {
		return nil, 0, mapStorageError(db.Statement.Context, err)
	}
	if user == nil {
		return nil, 0, ErrUserNotFound
	}
	invites, total, err := s.inviteRepo.WithTx(db).ListByFromUser(repository.InviteListFilter{
		Page:       page,
		PageSize:   pageSize,
		FromUserID: user.ID,
	})
	if err != nil {
		return nil, 0, mapStorageError(db.Statement.Context, err)
	}
	return invites, total, nil
}
