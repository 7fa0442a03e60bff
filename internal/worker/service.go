package worker

import (
	"context"
	"errors"
	"time"

	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/queue"

	"github.com/hibiken/asynq"
)

const (
	driftAuditInterval = 10 * time.Minute
)

// Service 异步队列服务
type Service struct {
	name     string
	server   *asynq.Server
	mux      *asynq.ServeMux
	consumer *Consumer
	interval time.Duration
}

// NewService 创建异步队列服务
func NewService(cfg *config.QueueConfig, consumer *Consumer) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:     "worker",
		server:   server,
		mux:      mux,
		consumer: consumer,
		interval: driftAuditInterval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动服务
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if s.consumer != nil && s.consumer.Container != nil && s.consumer.LedgerService != nil {
		go s.runDriftAuditLoop(ctx)
	}
	return s.server.Run(s.mux)
}

// Stop 停止服务
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	_ = ctx
	s.server.Shutdown()
	return nil
}

// runDriftAuditLoop 定期核对用户余额缓存与流水合计
func (s *Service) runDriftAuditLoop(ctx context.Context) {
	if s == nil || s.consumer == nil || s.consumer.Container == nil || s.consumer.LedgerService == nil {
		return
	}
	runOnce := func() {
		fixed, err := s.consumer.LedgerService.AuditDrift(ctx)
		if err != nil {
			logger.Warnw("worker_ledger_drift_audit_failed", "error", err)
			return
		}
		if fixed > 0 {
			logger.Infow("worker_ledger_drift_repaired", "fixed", fixed)
		}
	}
	runOnce()

	interval := s.interval
	if interval <= 0 {
		interval = driftAuditInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}
