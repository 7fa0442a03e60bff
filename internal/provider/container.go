package provider

import (
	"time"

	"github.com/forum-next/internal/authz"
	"github.com/forum-next/internal/cache"
	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/queue"
	"github.com/forum-next/internal/repository"
	"github.com/forum-next/internal/service"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client

	// Repositories
	UserRepo          repository.UserRepository
	LedgerRepo        repository.LedgerRepository
	PostRepo          repository.PostRepository
	CommentRepo       repository.CommentRepository
	ReactionRepo      repository.ReactionRepository
	InviteRepo        repository.InviteRepository
	MessageRepo       repository.MessageRepository
	TagRepo           repository.TagRepository
	SettingRepo       repository.SettingRepository
	ModerationLogRepo repository.ModerationLogRepository

	// Services
	AuthzService        *authz.Service
	AccountService      *service.AccountService
	SettingService      *service.SettingService
	PolicyProvider      *service.PointPolicyProvider
	LedgerService       *service.LedgerService
	PointService        *service.PointService
	AccessService       *service.AccessService
	UnlockService       *service.UnlockService
	InviteService       *service.InviteService
	PostService         *service.PostService
	CommentService      *service.CommentService
	ReactionService     *service.ReactionService
	MessageService      *service.MessageService
	PointHistoryService *service.PointHistoryService
	ModerationService   *service.ModerationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}

	c := &Container{
		Config:      cfg,
		QueueClient: queueClient,
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.UserRepo = repository.NewUserRepository(db)
	c.LedgerRepo = repository.NewLedgerRepository(db)
	c.PostRepo = repository.NewPostRepository(db)
	c.CommentRepo = repository.NewCommentRepository(db)
	c.ReactionRepo = repository.NewReactionRepository(db)
	c.InviteRepo = repository.NewInviteRepository(db)
	c.MessageRepo = repository.NewMessageRepository(db)
	c.TagRepo = repository.NewTagRepository(db)
	c.SettingRepo = repository.NewSettingRepository(db)
	c.ModerationLogRepo = repository.NewModerationLogRepository(db)
}

func (c *Container) initServices() {
	db := models.DB
	authzService, err := authz.NewService(db)
	if err != nil {
		logger.Errorw("provider_init_authz_failed", "error", err)
		panic(err)
	}
	c.AuthzService = authzService
	if err := c.AuthzService.BootstrapBuiltinRoles(); err != nil {
		logger.Errorw("provider_bootstrap_builtin_roles_failed", "error", err)
		panic(err)
	}

	c.AccountService = service.NewAccountService(c.Config.UserJWT, c.UserRepo)
	if err := c.AccountService.EnsureDefaultAdmin(c.Config.Admin); err != nil {
		logger.Warnw("provider_ensure_default_admin_failed", "error", err)
	}

	pointsCfg := c.Config.Points
	retry := service.RetryPolicy{
		Attempts:  pointsCfg.RetryAttempts,
		BaseDelay: pointsCfg.RetryBaseDelay(),
		Timeout:   pointsCfg.StorageTimeout(),
	}
	policyTTL := time.Duration(pointsCfg.PolicyCacheTTLSeconds) * time.Second
	snapshotTTL := time.Duration(pointsCfg.SnapshotTTLSeconds) * time.Second

	var events service.EventPublisher
	if c.QueueClient != nil {
		events = service.NewQueueEventPublisher(c.QueueClient)
	}

	c.SettingService = service.NewSettingService(c.SettingRepo)
	c.PolicyProvider = service.NewPointPolicyProvider(c.SettingService, service.PointPolicyFromConfig(pointsCfg), policyTTL)
	c.LedgerService = service.NewLedgerService(db, retry, c.UserRepo, c.LedgerRepo, c.PolicyProvider, events, snapshotTTL)
	c.PointService = service.NewPointService(db, retry, c.LedgerService, c.LedgerRepo, c.PolicyProvider)
	c.AccessService = service.NewAccessService(db, retry, c.UserRepo, c.PostRepo, c.PolicyProvider)
	c.UnlockService = service.NewUnlockService(db, retry, c.LedgerService, c.UserRepo, c.PostRepo, c.PolicyProvider, events)
	c.InviteService = service.NewInviteService(db, retry, c.LedgerService, c.UserRepo, c.InviteRepo, c.PolicyProvider, events)
	c.PostService = service.NewPostService(db, retry, c.UserRepo, c.PostRepo, c.TagRepo, c.PointService)
	c.CommentService = service.NewCommentService(db, retry, c.UserRepo, c.PostRepo, c.CommentRepo, c.PointService, c.PolicyProvider, events)
	c.ReactionService = service.NewReactionService(db, retry, c.UserRepo, c.PostRepo, c.CommentRepo, c.ReactionRepo, c.PointService)
	c.MessageService = service.NewMessageService(db, retry, c.UserRepo, c.MessageRepo)
	c.PointHistoryService = service.NewPointHistoryService(c.LedgerService, c.PostRepo, c.CommentRepo)
	c.ModerationService = service.NewModerationService(db, retry, c.UserRepo, c.ModerationLogRepo, c.LedgerService, c.PostService, c.PolicyProvider)
}
