package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/forum-next/internal/logger"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Security SecurityConfig `mapstructure:"security"`
	Points   PointsConfig   `mapstructure:"points"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Level:      c.Level,
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver  string             `mapstructure:"driver"`   // 数据库驱动（sqlite/postgres）
	DSN     string             `mapstructure:"dsn"`      // 数据库连接串
	LogMode string             `mapstructure:"log_mode"` // debug / warn / silent
	Pool    DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// AdminConfig 默认管理员配置
type AdminConfig struct {
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	SignInRateLimit RateLimitConfig `mapstructure:"sign_in_rate_limit"`
	UnlockRateLimit RateLimitConfig `mapstructure:"unlock_rate_limit"`
	InviteRateLimit RateLimitConfig `mapstructure:"invite_rate_limit"`
}

// RateLimitConfig 接口限流配置
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
	BlockSeconds  int `mapstructure:"block_seconds"`
}

// PointsConfig 积分默认配置（可被 settings 表 points_config 覆盖）
type PointsConfig struct {
	PostCreate            int64          `mapstructure:"post_create"`
	PostCreateByDay       int64          `mapstructure:"post_create_by_day"`
	CommentCreate         int64          `mapstructure:"comment_create"`
	CommentCreateByDay    int64          `mapstructure:"comment_create_by_day"`
	LikeOrDislike         int64          `mapstructure:"like_or_dislike"`
	SignInMin             int64          `mapstructure:"sign_in_min"`
	SignInMax             int64          `mapstructure:"sign_in_max"`
	InviteCreateCost      int64          `mapstructure:"invite_create_cost"`
	InviteTTLHours        int            `mapstructure:"invite_ttl_hours"`
	LevelThresholds       []int64        `mapstructure:"level_thresholds"`
	RoleRanks             map[string]int `mapstructure:"role_ranks"`
	Timezone              string         `mapstructure:"timezone"`
	RetryAttempts         int            `mapstructure:"retry_attempts"`
	RetryBaseDelayMS      int            `mapstructure:"retry_base_delay_ms"`
	StorageTimeoutMS      int            `mapstructure:"storage_timeout_ms"`
	PolicyCacheTTLSeconds int            `mapstructure:"policy_cache_ttl_seconds"`
	SnapshotTTLSeconds    int            `mapstructure:"snapshot_ttl_seconds"`
}

// StorageTimeout 存储操作超时
func (c PointsConfig) StorageTimeout() time.Duration {
	if c.StorageTimeoutMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(c.StorageTimeoutMS) * time.Millisecond
}

// RetryBaseDelay 冲突重试基础退避
func (c PointsConfig) RetryBaseDelay() time.Duration {
	if c.RetryBaseDelayMS <= 0 {
		return 10 * time.Millisecond
	}
	return time.Duration(c.RetryBaseDelayMS) * time.Millisecond
}

// Load 从 .env 与 config.yml 加载配置
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logger.Infow("dotenv_loaded", "file", ".env")
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")     // 从当前目录查找
	viper.AddConfigPath("./")    // 备用路径
	viper.AddConfigPath("../")   // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc") // etc 文件夹

	setDefaults()

	// 环境变量支持
	viper.AutomaticEnv()                                   // 自动读取环境变量
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // 将 . 替换为 _ (例如 server.port -> SERVER_PORT)

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}
	return &cfg
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "app.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/forum.db")
	viper.SetDefault("database.log_mode", "warn")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("user_jwt.secret", "user-change-me-in-production")
	viper.SetDefault("user_jwt.expire_hours", 24)
	viper.SetDefault("admin.username", "admin")
	viper.SetDefault("admin.password", "")
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "forum")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	viper.SetDefault("cors.allowed_headers", []string{
		"Content-Type",
		"Content-Length",
		"Accept-Encoding",
		"Accept-Language",
		"Authorization",
		"Cache-Control",
		"X-Requested-With",
	})
	viper.SetDefault("cors.allow_credentials", true)
	viper.SetDefault("cors.max_age", 600)
	viper.SetDefault("security.sign_in_rate_limit.window_seconds", 60)
	viper.SetDefault("security.sign_in_rate_limit.max_requests", 5)
	viper.SetDefault("security.sign_in_rate_limit.block_seconds", 300)
	viper.SetDefault("security.unlock_rate_limit.window_seconds", 60)
	viper.SetDefault("security.unlock_rate_limit.max_requests", 30)
	viper.SetDefault("security.unlock_rate_limit.block_seconds", 120)
	viper.SetDefault("security.invite_rate_limit.window_seconds", 300)
	viper.SetDefault("security.invite_rate_limit.max_requests", 10)
	viper.SetDefault("security.invite_rate_limit.block_seconds", 600)
	viper.SetDefault("points.post_create", 5)
	viper.SetDefault("points.post_create_by_day", 50)
	viper.SetDefault("points.comment_create", 2)
	viper.SetDefault("points.comment_create_by_day", 20)
	viper.SetDefault("points.like_or_dislike", 1)
	viper.SetDefault("points.sign_in_min", 1)
	viper.SetDefault("points.sign_in_max", 10)
	viper.SetDefault("points.invite_create_cost", 100)
	viper.SetDefault("points.invite_ttl_hours", 168)
	viper.SetDefault("points.level_thresholds", []int64{0, 11, 51, 201, 1000})
	viper.SetDefault("points.role_ranks", map[string]int{
		"member":    1,
		"moderator": 2,
		"admin":     3,
	})
	viper.SetDefault("points.timezone", "Asia/Shanghai")
	viper.SetDefault("points.retry_attempts", 5)
	viper.SetDefault("points.retry_base_delay_ms", 10)
	viper.SetDefault("points.storage_timeout_ms", 3000)
	viper.SetDefault("points.policy_cache_ttl_seconds", 60)
	viper.SetDefault("points.snapshot_ttl_seconds", 300)
}
