package queue

import (
	"errors"
	"fmt"
	"strings"

	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// DefaultQueue 默认队列名称
	DefaultQueue = constants.QueueDefault
	// CriticalQueue 高优先级队列名称
	CriticalQueue = constants.QueueCritical

	defaultMaxRetry = 5
)

// Client 队列客户端封装
type Client struct {
	client       *asynq.Client
	enabled      bool
	defaultQueue string
}

// NewClient 创建队列客户端
func NewClient(cfg *config.QueueConfig) (*Client, error) {
	if cfg == nil || !cfg.Enabled {
		return &Client{enabled: false, defaultQueue: DefaultQueue}, nil
	}
	return &Client{
		client:       asynq.NewClient(buildRedisOpt(cfg)),
		enabled:      true,
		defaultQueue: DefaultQueue,
	}, nil
}

// Enabled 判断是否启用
func (c *Client) Enabled() bool {
	return c != nil && c.enabled && c.client != nil
}

// Close 关闭客户端
func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// EnqueueBalanceChanged 推送积分变动任务（按流水去重）
func (c *Client) EnqueueBalanceChanged(payload BalanceChangedPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewBalanceChangedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, DefaultQueue, "balance:"+payload.EntryID)
}

// EnqueuePostUnlocked 推送帖子解锁任务
func (c *Client) EnqueuePostUnlocked(payload PostUnlockedPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewPostUnlockedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, CriticalQueue, fmt.Sprintf("unlock:%d:%d", payload.PostID, payload.ViewerID))
}

// EnqueueInviteRedeemed 推送邀请码使用任务
func (c *Client) EnqueueInviteRedeemed(payload InviteRedeemedPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewInviteRedeemedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, DefaultQueue, fmt.Sprintf("invite:%d", payload.InviteID))
}

// EnqueueCommentCreated 推送评论通知任务
func (c *Client) EnqueueCommentCreated(payload CommentCreatedPayload) error {
	if !c.Enabled() {
		return nil
	}
	task, err := NewCommentCreatedTask(payload)
	if err != nil {
		return err
	}
	return c.enqueue(task, DefaultQueue, fmt.Sprintf("comment:%d", payload.CommentID))
}

func (c *Client) enqueue(task *asynq.Task, queueName string, taskID string) error {
	if strings.TrimSpace(queueName) == "" {
		queueName = c.defaultQueue
	}
	options := []asynq.Option{asynq.Queue(queueName), asynq.MaxRetry(defaultMaxRetry)}
	if strings.TrimSpace(taskID) != "" {
		options = append(options, asynq.TaskID(taskID))
	}
	_, err := c.client.Enqueue(task, options...)
	if errors.Is(err, asynq.ErrTaskIDConflict) {
		return nil
	}
	return err
}

// BuildServerConfig 生成队列服务配置
func BuildServerConfig(cfg *config.QueueConfig) (asynq.RedisClientOpt, asynq.Config) {
	opt := buildRedisOpt(cfg)
	concurrency := 10
	if cfg != nil && cfg.Concurrency > 0 {
		concurrency = cfg.Concurrency
	}
	queues := map[string]int{DefaultQueue: 1, CriticalQueue: 2}
	if cfg != nil && len(cfg.Queues) > 0 {
		queues = cfg.Queues
	}
	return opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      queues,
	}
}

func buildRedisOpt(cfg *config.QueueConfig) asynq.RedisClientOpt {
	host := "127.0.0.1"
	port := 6379
	password := ""
	db := 0
	if cfg != nil {
		if strings.TrimSpace(cfg.Host) != "" {
			host = strings.TrimSpace(cfg.Host)
		}
		if cfg.Port > 0 {
			port = cfg.Port
		}
		password = cfg.Password
		db = cfg.DB
	}
	return asynq.RedisClientOpt{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	}
}
