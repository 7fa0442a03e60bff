package service

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"gorm.io/gorm"
)

// CreditInput 奖励入账输入
type CreditInput struct {
	UserID  uint
	UID     string
	Reason  models.PointReason
	Amount  int64
	DayKey  string
	RefType string
	RefID   string
	Remark  string
}

// CreditResult 奖励入账结果
type CreditResult struct {
	Entry     *models.PointLedgerEntry `json:"entry"`
	Delta     int64                    `json:"delta"`
	Capped    bool                     `json:"capped"`
	Duplicate bool                     `json:"duplicate"`
}

// SignInResult 每日签到结果
type SignInResult struct {
	DayKey        string                   `json:"day_key"`
	Reward        int64                    `json:"reward"`
	AlreadySigned bool                     `json:"already_signed"`
	Entry         *models.PointLedgerEntry `json:"entry"`
}

// PointSummary 用户积分概览
type PointSummary struct {
	UID         string `json:"uid"`
	Point       int64  `json:"point"`
	Level       int    `json:"level"`
	NextLevelAt *int64 `json:"next_level_at"`
	SignedToday bool   `json:"signed_today"`
}

// PointService 积分累计服务：按规则计算奖励数额与每日上限
type PointService struct {
	runner     txRunner
	ledger     *LedgerService
	ledgerRepo repository.LedgerRepository
	policy     *PointPolicyProvider
	now        func() time.Time
	randInt63n func(n int64) int64
}

// NewPointService 创建积分累计服务
func NewPointService(db *gorm.DB, retry RetryPolicy, ledger *LedgerService, ledgerRepo repository.LedgerRepository, policy *PointPolicyProvider) *PointService {
	return &PointService{
		runner:     newTxRunner(db, retry),
		ledger:     ledger,
		ledgerRepo: ledgerRepo,
		policy:     policy,
		now:        time.Now,
		randInt63n: rand.Int63n,
	}
}

// Policy 当前积分规则
func (s *PointService) Policy() (PointPolicy, error) {
	return s.policy.Current()
}

// LevelOf 按当前规则计算等级
func (s *PointService) LevelOf(balance int64) int {
	policy, err := s.policy.Current()
	if err != nil {
		logger.Warnw("points_policy_load_failed", "error", err)
		policy = DefaultPointPolicy()
	}
	return policy.LevelOf(balance)
}

// Credit 按每日上限计算实际奖励并追加流水
// 达到上限时仍记录零变动流水（仅限按日封顶的原因），对 (uid, reason, refID) 幂等
func (s *PointService) Credit(ctx context.Context, input CreditInput) (*CreditResult, error) {
	if input.Amount < 0 {
		return nil, ErrInvalidAmount
	}
	if !input.Reason.Valid() {
		return nil, fmt.Errorf("%w: unknown reason %q", ErrInvalidEntry, input.Reason)
	}
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	var result *CreditResult
	var outcome *appendOutcome
	err = s.runner.run(ctx, "points_credit", func(tx *gorm.DB) error {
		r, o, txErr := s.creditInTx(tx, input, policy)
		if txErr != nil {
			return txErr
		}
		result, outcome = r, o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if outcome != nil {
		s.ledger.afterCommit(ctx, outcome)
	}
	return result, nil
}

func (s *PointService) creditInTx(tx *gorm.DB, input CreditInput, policy PointPolicy) (*CreditResult, *appendOutcome, error) {
	user, err := s.ledger.resolveUser(s.ledger.userRepo.WithTx(tx), input.UserID, input.UID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil {
		return nil, nil, fmt.Errorf("%w: subject user not found", ErrInvalidEntry)
	}
	ledgerRepo := s.ledgerRepo.WithTx(tx)
	key := BuildIdempotencyKey(input.Reason, input.RefType, input.RefID, user.UID)
	existing, err := ledgerRepo.GetByIdempotencyKey(key)
	if err != nil {
		return nil, nil, err
	}
	if existing != nil {
		return &CreditResult{Entry: existing, Delta: existing.Delta, Duplicate: true}, nil, nil
	}

	dayKey := strings.TrimSpace(input.DayKey)
	if dayKey == "" {
		dayKey = policy.DayKey(s.now())
	}
	delta, capped, err := s.effectiveDelta(ledgerRepo, user, input, policy, dayKey)
	if err != nil {
		return nil, nil, err
	}
	result := &CreditResult{Delta: delta, Capped: capped}
	if delta == 0 && !input.Reason.AllowsZeroDelta() {
		return result, nil, nil
	}

	outcome, err := s.ledger.appendInTx(tx, LedgerAppendInput{
		UserID:         user.ID,
		Delta:          delta,
		Reason:         input.Reason,
		RefType:        input.RefType,
		RefID:          input.RefID,
		IdempotencyKey: key,
		DayKey:         dayKey,
		Remark:         input.Remark,
	}, policy)
	if err != nil {
		return nil, nil, err
	}
	result.Entry = outcome.Entry
	result.Duplicate = outcome.Duplicate
	return result, outcome, nil
}

// effectiveDelta 计算实际变动：封顶原因按当日已得积分截断，点踩扣减不超过当前余额
func (s *PointService) effectiveDelta(repo *repository.GormLedgerRepository, user *models.User, input CreditInput, policy PointPolicy, dayKey string) (int64, bool, error) {
	switch input.Reason.Sign() {
	case -1:
		if input.Reason != models.PointReasonDislikeReceived {
			return 0, false, fmt.Errorf("%w: %s is not a reward", ErrInvalidEntry, input.Reason)
		}
		penalty := input.Amount
		if penalty > user.Point {
			penalty = user.Point
		}
		return -penalty, penalty < input.Amount, nil
	case 0:
		return 0, false, fmt.Errorf("%w: %s is not a reward", ErrInvalidEntry, input.Reason)
	}

	if !input.Reason.DailyCapped() {
		return input.Amount, false, nil
	}
	dailyCap := policy.DailyCapFor(input.Reason)
	if dailyCap <= 0 {
		return input.Amount, false, nil
	}
	earned, err := repo.SumEarnedByDay(user.ID, input.Reason, dayKey)
	if err != nil {
		return 0, false, err
	}
	effective := clampInt64(dailyCap-earned, 0, input.Amount)
	return effective, effective < input.Amount, nil
}

func clampInt64(v, lo, hi int64) int64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// OnPostCreated 发帖奖励
func (s *PointService) OnPostCreated(ctx context.Context, author *models.User, post *models.Post) (*CreditResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	return s.Credit(ctx, CreditInput{
		UserID:  author.ID,
		Reason:  models.PointReasonPostCreate,
		Amount:  policy.AmountFor(models.PointReasonPostCreate),
		RefType: constants.LedgerRefTypePost,
		RefID:   post.Pid,
	})
}

// OnCommentCreated 评论奖励
func (s *PointService) OnCommentCreated(ctx context.Context, author *models.User, comment *models.Comment) (*CreditResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	return s.Credit(ctx, CreditInput{
		UserID:  author.ID,
		Reason:  models.PointReasonCommentCreate,
		Amount:  policy.AmountFor(models.PointReasonCommentCreate),
		RefType: constants.LedgerRefTypeComment,
		RefID:   comment.Cid,
	})
}

// OnReactionReceived 被点赞奖励 / 被点踩扣减（扣减不超过余额）
func (s *PointService) OnReactionReceived(ctx context.Context, targetAuthorID uint, kind, targetType, targetRef, reactorUID string) (*CreditResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	reason := models.PointReasonLikeReceived
	if kind == constants.ReactionKindDislike {
		reason = models.PointReasonDislikeReceived
	}
	return s.Credit(ctx, CreditInput{
		UserID:  targetAuthorID,
		Reason:  reason,
		Amount:  policy.AmountFor(reason),
		RefType: targetType,
		RefID:   targetRef + "#" + reactorUID,
	})
}

// SignIn 每日签到：区间内随机奖励，每个自然日仅一次
func (s *PointService) SignIn(ctx context.Context, uid string) (*SignInResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	dayKey := policy.DayKey(s.now())
	reward := policy.SignInMin
	if span := policy.SignInMax - policy.SignInMin; span > 0 {
		reward += s.randInt63n(span + 1)
	}
	result, err := s.Credit(ctx, CreditInput{
		UID:     uid,
		Reason:  models.PointReasonDailySignIn,
		Amount:  reward,
		DayKey:  dayKey,
		RefType: constants.LedgerRefTypeSignIn,
		RefID:   dayKey,
	})
	if err != nil {
		return nil, err
	}
	return &SignInResult{
		DayKey:        dayKey,
		Reward:        result.Delta,
		AlreadySigned: result.Duplicate,
		Entry:         result.Entry,
	}, nil
}

// Summary 用户积分概览
func (s *PointService) Summary(ctx context.Context, uid string) (*PointSummary, error) {
	snapshot, err := s.ledger.Snapshot(ctx, uid)
	if err != nil {
		return nil, err
	}
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	summary := &PointSummary{
		UID:   snapshot.UID,
		Point: snapshot.Point,
		Level: policy.LevelOf(snapshot.Point),
	}
	for _, threshold := range policy.LevelThresholds {
		if threshold > snapshot.Point {
			next := threshold
			summary.NextLevelAt = &next
			break
		}
	}
	dayKey := policy.DayKey(s.now())
	key := BuildIdempotencyKey(models.PointReasonDailySignIn, constants.LedgerRefTypeSignIn, dayKey, snapshot.UID)
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	entry, err := s.ledgerRepo.WithTx(db).GetByIdempotencyKey(key)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	summary.SignedToday = entry != nil
	return summary, nil
}
