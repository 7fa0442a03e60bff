package service

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/forum-next/internal/cache"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"go.jetify.com/typeid/v2"
	"gorm.io/gorm"
)

const (
	ledgerEntryIDPrefix     = "pl"
	ledgerDefaultPageSize   = 20
	ledgerMaxPageSize       = 100
	ledgerDriftAuditBatch   = 100
	ledgerCacheWriteTimeout = time.Second
)

// LedgerAppendInput 流水追加输入（UserID 与 UID 二选一）
type LedgerAppendInput struct {
	UserID         uint
	UID            string
	Delta          int64
	Reason         models.PointReason
	RefType        string
	RefID          string
	IdempotencyKey string
	DayKey         string
	Remark         string
}

// LedgerPage 流水分页结果
type LedgerPage struct {
	Entries    []models.PointLedgerEntry `json:"entries"`
	NextCursor string                    `json:"next_cursor"`
	HasMore    bool                      `json:"has_more"`
}

// ReconcileResult 余额重算结果
type ReconcileResult struct {
	UID    string `json:"uid"`
	Before int64  `json:"before"`
	After  int64  `json:"after"`
	Level  int    `json:"level"`
	Fixed  bool   `json:"fixed"`
}

// appendOutcome 事务内追加结果
type appendOutcome struct {
	Entry     *models.PointLedgerEntry
	User      *models.User
	Duplicate bool
}

// LedgerService 积分流水服务：唯一的余额写入口
type LedgerService struct {
	runner      txRunner
	userRepo    repository.UserRepository
	ledgerRepo  repository.LedgerRepository
	policy      *PointPolicyProvider
	events      EventPublisher
	snapshotTTL time.Duration
	now         func() time.Time
}

// NewLedgerService 创建积分流水服务
func NewLedgerService(
	db *gorm.DB,
	retry RetryPolicy,
	userRepo repository.UserRepository,
	ledgerRepo repository.LedgerRepository,
	policy *PointPolicyProvider,
	events EventPublisher,
	snapshotTTL time.Duration,
) *LedgerService {
	return &LedgerService{
		runner:      newTxRunner(db, retry),
		userRepo:    userRepo,
		ledgerRepo:  ledgerRepo,
		policy:      policy,
		events:      publisherOrNoop(events),
		snapshotTTL: snapshotTTL,
		now:         time.Now,
	}
}

// ValidateEntry 校验流水：原因合法、零变动仅限允许的原因、方向符合原因约束
func ValidateEntry(reason models.PointReason, delta int64) error {
	if !reason.Valid() {
		return fmt.Errorf("%w: unknown reason %q", ErrInvalidEntry, reason)
	}
	if delta == 0 {
		if reason.AllowsZeroDelta() {
			return nil
		}
		return fmt.Errorf("%w: zero delta not permitted for %s", ErrInvalidEntry, reason)
	}
	switch reason.Sign() {
	case 1:
		if delta < 0 {
			return fmt.Errorf("%w: %s must credit", ErrInvalidEntry, reason)
		}
	case -1:
		if delta > 0 {
			return fmt.Errorf("%w: %s must debit", ErrInvalidEntry, reason)
		}
	}
	return nil
}

// BuildIdempotencyKey 构建流水幂等键 reason:refType:refID:uid
func BuildIdempotencyKey(reason models.PointReason, refType, refID, uid string) string {
	return fmt.Sprintf("%s:%s:%s:%s", reason, strings.TrimSpace(refType), strings.TrimSpace(refID), strings.TrimSpace(uid))
}

// Append 追加一条流水并同步更新余额缓存；相同幂等键重复调用返回已有流水
func (s *LedgerService) Append(ctx context.Context, input LedgerAppendInput) (*models.PointLedgerEntry, error) {
	if err := ValidateEntry(input.Reason, input.Delta); err != nil {
		return nil, err
	}
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	var outcome *appendOutcome
	err = s.runner.run(ctx, "ledger_append", func(tx *gorm.DB) error {
		result, txErr := s.appendInTx(tx, input, policy)
		if txErr != nil {
			return txErr
		}
		outcome = result
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.afterCommit(ctx, outcome)
	return outcome.Entry, nil
}

// appendInTx 事务内追加流水：幂等检查、余额校验、版本号更新余额与等级、写入流水
func (s *LedgerService) appendInTx(tx *gorm.DB, input LedgerAppendInput, policy PointPolicy) (*appendOutcome, error) {
	if err := ValidateEntry(input.Reason, input.Delta); err != nil {
		return nil, err
	}
	userRepo := s.userRepo.WithTx(tx)
	ledgerRepo := s.ledgerRepo.WithTx(tx)

	user, err := s.resolveUser(userRepo, input.UserID, input.UID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("%w: subject user not found", ErrInvalidEntry)
	}

	key := strings.TrimSpace(input.IdempotencyKey)
	if key == "" {
		key = BuildIdempotencyKey(input.Reason, input.RefType, input.RefID, user.UID)
	}
	existing, err := ledgerRepo.GetByIdempotencyKey(key)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return &appendOutcome{Entry: existing, User: user, Duplicate: true}, nil
	}

	balance := user.Point + input.Delta
	if balance < 0 {
		return nil, ErrInsufficientBalance
	}
	level := policy.LevelOf(balance)
	updated, err := userRepo.UpdateBalance(user.ID, user.Version, balance, level)
	if err != nil {
		return nil, err
	}
	if !updated {
		return nil, errVersionConflict
	}

	entryID, err := typeid.Generate(ledgerEntryIDPrefix)
	if err != nil {
		return nil, err
	}
	now := s.now()
	dayKey := strings.TrimSpace(input.DayKey)
	if dayKey == "" {
		dayKey = policy.DayKey(now)
	}
	entry := &models.PointLedgerEntry{
		EntryID:        entryID.String(),
		UserID:         user.ID,
		Delta:          input.Delta,
		Reason:         input.Reason,
		RefType:        strings.TrimSpace(input.RefType),
		RefID:          strings.TrimSpace(input.RefID),
		IdempotencyKey: key,
		DayKey:         dayKey,
		BalanceAfter:   balance,
		Remark:         strings.TrimSpace(input.Remark),
		CreatedAt:      now,
	}
	if err := ledgerRepo.Create(entry); err != nil {
		// 并发写入同一幂等键时唯一索引冲突，交由重试读取已有流水
		logger.Debugw("ledger_append_create_conflict", "idempotency_key", key, "error", err)
		return nil, errVersionConflict
	}
	user.Point = balance
	user.Level = level
	user.Version++
	return &appendOutcome{Entry: entry, User: user}, nil
}

func (s *LedgerService) resolveUser(repo *repository.GormUserRepository, userID uint, uid string) (*models.User, error) {
	if userID != 0 {
		return repo.GetByID(userID)
	}
	return repo.GetByUID(uid)
}

// afterCommit 提交后写入新版本余额快照并发布事件
func (s *LedgerService) afterCommit(ctx context.Context, outcomes ...*appendOutcome) {
	for _, outcome := range outcomes {
		if outcome == nil || outcome.Duplicate || outcome.User == nil {
			continue
		}
		s.storeSnapshot(ctx, outcome.User)
	}
	for _, outcome := range outcomes {
		if outcome == nil || outcome.Duplicate {
			continue
		}
		s.events.BalanceChanged(ctx, outcome.Entry)
	}
}

// BalanceOf 获取用户当前余额（Redis 快照优先，未命中读用户行缓存）
func (s *LedgerService) BalanceOf(ctx context.Context, uid string) (int64, error) {
	snapshot, err := s.Snapshot(ctx, uid)
	if err != nil {
		return 0, err
	}
	return snapshot.Point, nil
}

// Snapshot 获取余额与等级快照
func (s *LedgerService) Snapshot(ctx context.Context, uid string) (*cache.PointSnapshot, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return nil, ErrUserNotFound
	}
	if snapshot, hit, err := cache.GetPointSnapshot(ctx, uid); err != nil {
		logger.Warnw("ledger_snapshot_read_failed", "uid", uid, "error", err)
	} else if hit {
		return snapshot, nil
	}

	db, cancel := s.runner.reader(ctx)
	defer cancel()
	user, err := s.userRepo.WithTx(db).GetByUID(uid)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	snapshot := &cache.PointSnapshot{
		UID:     user.UID,
		UserID:  user.ID,
		Point:   user.Point,
		Level:   user.Level,
		Version: user.Version,
	}
	if _, err := cache.SetPointSnapshot(ctx, snapshot, s.snapshotTTL); err != nil {
		logger.Warnw("ledger_snapshot_write_failed", "uid", uid, "error", err)
	}
	return snapshot, nil
}

// storeSnapshot 提交后写入用户最新快照；写入失败时删除旧快照
func (s *LedgerService) storeSnapshot(ctx context.Context, user *models.User) {
	cacheCtx, cancel := context.WithTimeout(detachContext(ctx), ledgerCacheWriteTimeout)
	defer cancel()
	snapshot := &cache.PointSnapshot{
		UID:     user.UID,
		UserID:  user.ID,
		Point:   user.Point,
		Level:   user.Level,
		Version: user.Version,
	}
	if _, err := cache.SetPointSnapshot(cacheCtx, snapshot, s.snapshotTTL); err != nil {
		logger.Warnw("ledger_snapshot_store_failed", "uid", user.UID, "version", user.Version, "error", err)
		if err := cache.DelPointSnapshots(cacheCtx, user.UID); err != nil {
			logger.Warnw("ledger_snapshot_invalidate_failed", "uid", user.UID, "error", err)
		}
	}
}

// HistoryOf 倒序分页读取流水，游标为上一页最后一条的序号
func (s *LedgerService) HistoryOf(ctx context.Context, uid string, cursor string, pageSize int) (*LedgerPage, error) {
	beforeID, err := DecodeLedgerCursor(cursor)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		pageSize = ledgerDefaultPageSize
	}
	if pageSize > ledgerMaxPageSize {
		pageSize = ledgerMaxPageSize
	}

	db, cancel := s.runner.reader(ctx)
	defer cancel()
	user, err := s.userRepo.WithTx(db).GetByUID(uid)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	entries, err := s.ledgerRepo.WithTx(db).ListByUserBefore(user.ID, beforeID, pageSize+1)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	page := &LedgerPage{Entries: entries}
	if len(entries) > pageSize {
		page.Entries = entries[:pageSize]
		page.HasMore = true
		page.NextCursor = EncodeLedgerCursor(page.Entries[pageSize-1].ID)
	}
	if page.Entries == nil {
		page.Entries = []models.PointLedgerEntry{}
	}
	return page, nil
}

// EncodeLedgerCursor 编码流水游标
func EncodeLedgerCursor(id uint) string {
	if id == 0 {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.FormatUint(uint64(id), 10)))
}

// DecodeLedgerCursor 解码流水游标，空游标表示从最新开始
func DecodeLedgerCursor(cursor string) (uint, error) {
	cursor = strings.TrimSpace(cursor)
	if cursor == "" {
		return 0, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return 0, ErrInvalidCursor
	}
	id, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidCursor
	}
	return uint(id), nil
}

// Reconcile 以流水汇总重算用户余额与等级
func (s *LedgerService) Reconcile(ctx context.Context, uid string) (*ReconcileResult, error) {
	return s.reconcile(ctx, 0, uid)
}

func (s *LedgerService) reconcile(ctx context.Context, userID uint, uid string) (*ReconcileResult, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	var (
		result *ReconcileResult
		fixed  *models.User
	)
	err = s.runner.run(ctx, "ledger_reconcile", func(tx *gorm.DB) error {
		fixed = nil
		userRepo := s.userRepo.WithTx(tx)
		user, err := s.resolveUser(userRepo, userID, uid)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		sum, err := s.ledgerRepo.WithTx(tx).SumDeltaByUser(user.ID)
		if err != nil {
			return err
		}
		level := policy.LevelOf(sum)
		result = &ReconcileResult{UID: user.UID, Before: user.Point, After: sum, Level: level}
		if user.Point == sum && user.Level == level {
			return nil
		}
		updated, err := userRepo.UpdateBalance(user.ID, user.Version, sum, level)
		if err != nil {
			return err
		}
		if !updated {
			return errVersionConflict
		}
		result.Fixed = true
		user.Point = sum
		user.Level = level
		user.Version++
		fixed = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	if result.Fixed {
		logger.Warnw("ledger_balance_reconciled", "uid", result.UID, "before", result.Before, "after", result.After)
		s.storeSnapshot(ctx, fixed)
	}
	return result, nil
}

// AuditDrift 扫描并修复余额与流水不一致的用户，返回修复数量
func (s *LedgerService) AuditDrift(ctx context.Context) (int, error) {
	db, cancel := s.runner.reader(ctx)
	ids, err := s.ledgerRepo.WithTx(db).ListDriftedUserIDs(ledgerDriftAuditBatch)
	cancel()
	if err != nil {
		return 0, mapStorageError(ctx, err)
	}
	fixed := 0
	for _, id := range ids {
		result, err := s.reconcile(ctx, id, "")
		if err != nil {
			logger.Warnw("ledger_drift_reconcile_failed", "user_id", id, "error", err)
			continue
		}
		if result.Fixed {
			fixed++
		}
	}
	return fixed, nil
}

// detachContext 事务提交后的副作用不随请求取消
func detachContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return context.WithoutCancel(ctx)
}
