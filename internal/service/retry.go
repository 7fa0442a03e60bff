package service

import (
	"context"
	"errors"
	"time"

	"github.com/forum-next/internal/logger"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"
)

// RetryPolicy 乐观并发重试策略
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	Timeout   time.Duration
}

// DefaultRetryPolicy 默认重试策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, BaseDelay: 10 * time.Millisecond, Timeout: 3 * time.Second}
}

func (p RetryPolicy) normalized() RetryPolicy {
	defaults := DefaultRetryPolicy()
	if p.Attempts <= 0 {
		p.Attempts = defaults.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = defaults.BaseDelay
	}
	if p.Timeout <= 0 {
		p.Timeout = defaults.Timeout
	}
	return p
}

// txRunner 带超时与冲突重试的事务执行器
type txRunner struct {
	db     *gorm.DB
	policy RetryPolicy
}

func newTxRunner(db *gorm.DB, policy RetryPolicy) txRunner {
	return txRunner{db: db, policy: policy.normalized()}
}

// reader 返回绑定超时的只读会话
func (r txRunner) reader(ctx context.Context) (*gorm.DB, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	timeoutCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	return r.db.WithContext(timeoutCtx), cancel
}

// run 执行事务；版本冲突与存储超时按指数退避重试，耗尽后返回 ErrContention / ErrStorageTimeout
// 其余错误视为业务结果，不重试直接返回
func (r txRunner) run(ctx context.Context, op string, fn func(tx *gorm.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := r.runOnce(ctx, fn)
		if err == nil || isRetryableTxError(err) {
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(r.newBackOff()),
		backoff.WithMaxTries(uint(r.policy.Attempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			logger.Debugw("storage_tx_retry", "op", op, "next", next, "error", err)
		}),
	)
	if err == nil {
		return nil
	}
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		return permanent.Unwrap()
	}
	if errors.Is(err, errVersionConflict) {
		logger.Warnw("storage_tx_contention_exhausted", "op", op, "attempts", r.policy.Attempts)
		return ErrContention
	}
	if errors.Is(err, ErrStorageTimeout) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		logger.Warnw("storage_tx_timeout_exhausted", "op", op, "attempts", r.policy.Attempts)
		return ErrStorageTimeout
	}
	return err
}

func (r txRunner) newBackOff() *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.policy.BaseDelay
	b.RandomizationFactor = 0.5
	b.Multiplier = 2
	b.MaxInterval = r.policy.Timeout
	return b
}

func isRetryableTxError(err error) bool {
	return errors.Is(err, errVersionConflict) || errors.Is(err, ErrStorageTimeout)
}

func (r txRunner) runOnce(ctx context.Context, fn func(tx *gorm.DB) error) error {
	timeoutCtx, cancel := context.WithTimeout(ctx, r.policy.Timeout)
	defer cancel()
	err := r.db.WithContext(timeoutCtx).Transaction(fn)
	return mapStorageError(timeoutCtx, err)
}

// mapStorageError 将上下文超时转换为 ErrStorageTimeout
func mapStorageError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrStorageTimeout
	}
	if ctx != nil && ctx.Err() != nil {
		return ErrStorageTimeout
	}
	return err
}
