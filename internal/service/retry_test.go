package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

func newTestTxRunner(f *forumFixture, attempts int) txRunner {
	return newTxRunner(f.db, RetryPolicy{Attempts: attempts, BaseDelay: time.Millisecond, Timeout: time.Second})
}

func TestTxRunnerExhaustsToContention(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	runner := newTestTxRunner(f, 3)

	calls := 0
	err := runner.run(context.Background(), "always_conflict", func(tx *gorm.DB) error {
		calls++
		return errVersionConflict
	})
	if !errors.Is(err, ErrContention) {
		t.Fatalf("want ErrContention got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("contention must be transient")
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts got %d", calls)
	}
}

func TestTxRunnerRecoversAfterConflicts(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	runner := newTestTxRunner(f, 5)

	calls := 0
	err := runner.run(context.Background(), "conflict_then_ok", func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return errVersionConflict
		}
		return nil
	})
	if err != nil {
		t.Fatalf("want success got %v", err)
	}
	if calls != 3 {
		t.Fatalf("want 3 attempts got %d", calls)
	}
}

func TestTxRunnerDoesNotRetryBusinessErrors(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	runner := newTestTxRunner(f, 5)

	calls := 0
	err := runner.run(context.Background(), "business", func(tx *gorm.DB) error {
		calls++
		return ErrInsufficientBalance
	})
	if err != ErrInsufficientBalance {
		t.Fatalf("business error must be returned unwrapped, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("business error must not retry, got %d attempts", calls)
	}
}

func TestTxRunnerExpiredContextIsStorageTimeout(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	runner := newTestTxRunner(f, 3)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	err := runner.run(ctx, "expired", func(tx *gorm.DB) error {
		return nil
	})
	if !errors.Is(err, ErrStorageTimeout) {
		t.Fatalf("want ErrStorageTimeout got %v", err)
	}
	if !IsTransient(err) {
		t.Fatalf("storage timeout must be transient")
	}
}

func TestTxRunnerStatementTimeoutExhausts(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	runner := newTxRunner(f.db, RetryPolicy{Attempts: 2, BaseDelay: time.Millisecond, Timeout: 20 * time.Millisecond})

	calls := 0
	err := runner.run(context.Background(), "slow", func(tx *gorm.DB) error {
		calls++
		<-tx.Statement.Context.Done()
		return tx.Statement.Context.Err()
	})
	if !errors.Is(err, ErrStorageTimeout) {
		t.Fatalf("want ErrStorageTimeout got %v", err)
	}
	if calls != 2 {
		t.Fatalf("want 2 attempts got %d", calls)
	}
}

// bumpUserVersionBeforeUpdate 在余额更新语句执行前于同一事务内抬高版本号，模拟并发写入
func bumpUserVersionBeforeUpdate(t *testing.T, f *forumFixture, userID uint, times int32) *atomic.Int32 {
	t.Helper()
	var (
		remaining atomic.Int32
		updates   atomic.Int32
	)
	remaining.Store(times)
	err := f.db.Callback().Update().Before("gorm:update").Register("forum_test:bump_version", func(tx *gorm.DB) {
		if tx.Statement.Table != "users" {
			return
		}
		updates.Add(1)
		if remaining.Add(-1) < 0 {
			return
		}
		if err := tx.Session(&gorm.Session{NewDB: true}).Exec("UPDATE users SET version = version + 1 WHERE id = ?", userID).Error; err != nil {
			t.Errorf("bump version failed: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("register callback failed: %v", err)
	}
	return &updates
}

func TestLedgerAppendRetriesRealVersionConflict(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "alice", models.RoleMember)
	fundUser(t, f, user, 20)
	updates := bumpUserVersionBeforeUpdate(t, f, user.ID, 1)

	_, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   5,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   "after-conflict",
	})
	if err != nil {
		t.Fatalf("append should succeed after retry: %v", err)
	}
	if got := updates.Load(); got != 2 {
		t.Fatalf("want one conflicting and one winning update, got %d", got)
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 25 {
		t.Fatalf("balance want 25 got %d", got)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonAdminAdjust); got != 2 {
		t.Fatalf("want 2 ledger entries got %d", got)
	}
}

func TestLedgerAppendContentionLeavesNoPartialWrite(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "alice", models.RoleMember)
	fundUser(t, f, user, 20)
	bumpUserVersionBeforeUpdate(t, f, user.ID, 1000)

	_, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   -5,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   "never-lands",
	})
	if !errors.Is(err, ErrContention) {
		t.Fatalf("want ErrContention got %v", err)
	}
	reloaded := reloadUser(t, f.db, user.ID)
	if reloaded.Point != 20 {
		t.Fatalf("balance must stay 20, got %d", reloaded.Point)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonAdminAdjust); got != 1 {
		t.Fatalf("failed append must not write an entry, got %d", got)
	}
}
