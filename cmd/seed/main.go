package main

import (
	"context"
	"fmt"

	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/provider"
	"github.com/forum-next/internal/service"
)

const demoPassword = "forum123"

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}, cfg.Database.LogMode); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}

	c := provider.NewContainer(cfg)
	ctx := context.Background()

	// 默认积分设置
	stored, err := c.SettingService.GetByKey(constants.SettingKeyPointsConfig)
	if err != nil {
		stdLog.Fatalf("Failed to load points settings: %v", err)
	}
	if len(stored) == 0 {
		policy := service.PointPolicyFromConfig(cfg.Points)
		if _, err := c.PolicyProvider.Update(policy.ToSetting()); err != nil {
			stdLog.Fatalf("Failed to save points settings: %v", err)
		}
		fmt.Println("✓ points settings initialized")
	}

	// 标签
	tags := []models.Tag{
		{Name: "公告", EnName: "Announcements", Desc: "站务公告"},
		{Name: "技术", EnName: "Tech", Desc: "技术讨论"},
		{Name: "资源", EnName: "Resources", Desc: "付费资源分享"},
	}
	tagIDs := make(map[string]uint, len(tags))
	for i := range tags {
		existing, err := c.TagRepo.GetByName(tags[i].Name)
		if err != nil {
			stdLog.Fatalf("Failed to load tag %s: %v", tags[i].Name, err)
		}
		if existing == nil {
			if err := c.TagRepo.Create(&tags[i]); err != nil {
				stdLog.Fatalf("Failed to create tag %s: %v", tags[i].Name, err)
			}
			existing = &tags[i]
		}
		tagIDs[existing.EnName] = existing.ID
	}

	// 账号
	accounts := []service.EnsureUserInput{
		{Username: "admin", Email: "admin@example.com", Password: demoPassword, Role: models.RoleAdmin},
		{Username: "moderator", Email: "moderator@example.com", Password: demoPassword, Role: models.RoleModerator},
		{Username: "alice", Email: "alice@example.com", Password: demoPassword, Role: models.RoleMember},
		{Username: "bob", Email: "bob@example.com", Password: demoPassword, Role: models.RoleMember},
	}
	users := make(map[string]*models.User, len(accounts))
	created := make(map[string]bool, len(accounts))
	for _, input := range accounts {
		user, isNew, err := c.AccountService.EnsureUser(input)
		if err != nil {
			stdLog.Fatalf("Failed to ensure user %s: %v", input.Username, err)
		}
		users[input.Username] = user
		created[input.Username] = isNew
	}

	// 示例帖子只在作者首次创建时写入
	if created["alice"] {
		techID := tagIDs["Tech"]
		resourceID := tagIDs["Resources"]
		posts := []service.CreatePostInput{
			{Title: "欢迎来到论坛", Content: "这是一篇公开帖子。", TagID: &techID},
			{Title: "付费资源合集", Content: "解锁后可见的资源列表。", TagID: &resourceID, PayPoint: 10},
			{Title: "版主可见的讨论", Content: "仅版主及以上可读。", TagID: &techID, ReadRole: string(models.RoleModerator)},
			{Title: "三级用户专区", Content: "需要达到三级才能阅读。", TagID: &techID, MinLevel: 3},
		}
		for _, input := range posts {
			result, err := c.PostService.Create(ctx, users["alice"].UID, input)
			if err != nil {
				stdLog.Fatalf("Failed to create post %s: %v", input.Title, err)
			}
			fmt.Printf("✓ post %s (%s)\n", result.Post.Pid, result.Post.Title)
		}
	}

	// bob 今日签到，便于查看积分流水
	if signIn, err := c.PointService.SignIn(ctx, users["bob"].UID); err != nil {
		stdLog.Printf("bob sign in failed: %v", err)
	} else if !signIn.AlreadySigned {
		fmt.Printf("✓ bob signed in for %s, reward %d\n", signIn.DayKey, signIn.Reward)
	}

	fmt.Println("\n开发令牌（Authorization: Bearer <token>）：")
	for _, input := range accounts {
		user := users[input.Username]
		token, expiresAt, err := c.AccountService.IssueToken(user)
		if err != nil {
			stdLog.Fatalf("Failed to issue token for %s: %v", user.Username, err)
		}
		fmt.Printf("  %-10s %-10s uid=%s expires=%s\n    %s\n", user.Username, user.Role, user.UID, expiresAt.Format("2006-01-02 15:04"), token)
	}
	fmt.Printf("\n✓ seed completed, demo password: %s\n", demoPassword)
}
