package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/forum-next/internal/authz"
	"github.com/forum-next/internal/cache"
	"github.com/forum-next/internal/config"
	adminhandlers "github.com/forum-next/internal/http/handlers/admin"
	publichandlers "github.com/forum-next/internal/http/handlers/public"
	"github.com/forum-next/internal/http/response"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "forum"
	}
	redisClient := cache.Client()
	signInRule := RateLimitRuleFromConfig(fmt.Sprintf("%s:rate:sign_in", redisPrefix), cfg.Security.SignInRateLimit)
	unlockRule := RateLimitRuleFromConfig(fmt.Sprintf("%s:rate:unlock", redisPrefix), cfg.Security.UnlockRateLimit)
	inviteRule := RateLimitRuleFromConfig(fmt.Sprintf("%s:rate:invite", redisPrefix), cfg.Security.InviteRateLimit)
	redeemRule := RateLimitRuleFromConfig(fmt.Sprintf("%s:rate:invite_redeem", redisPrefix), cfg.Security.InviteRateLimit)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（携带令牌时按登录用户判定可见性）
		public := apiV1.Group("")
		public.Use(OptionalUserJWTMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			public.GET("/posts", publicHandler.ListPosts)
			public.GET("/posts/:pid", publicHandler.GetPost)
			public.GET("/posts/:pid/comments", publicHandler.ListComments)
			public.GET("/tags", publicHandler.ListTags)
			public.GET("/config/points", publicHandler.GetPointsConfig)
		}

		// 用户接口（需鉴权）
		user := apiV1.Group("")
		user.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo))
		{
			// 积分
			user.GET("/me/points", publicHandler.GetMyPoints)
			user.GET("/me/points/history", publicHandler.GetMyPointHistory)
			user.POST("/me/sign-in", RateLimitMiddleware(redisClient, signInRule, KeyByUser), publicHandler.SignIn)

			// 帖子与互动
			user.POST("/posts", publicHandler.CreatePost)
			user.POST("/posts/:pid/unlock", RateLimitMiddleware(redisClient, unlockRule, KeyByUser), publicHandler.UnlockPost)
			user.POST("/posts/:pid/comments", publicHandler.CreateComment)
			user.POST("/reactions", publicHandler.React)

			// 邀请码
			user.POST("/invites", RateLimitMiddleware(redisClient, inviteRule, KeyByUser), publicHandler.IssueInvite)
			user.GET("/invites", publicHandler.ListMyInvites)
			user.POST("/invites/redeem", RateLimitMiddleware(redisClient, redeemRule, KeyByIPAndJSONField("code")), publicHandler.RedeemInvite)

			// 站内消息
			user.GET("/messages", publicHandler.ListMessages)
			user.POST("/messages/:id/read", publicHandler.MarkMessageRead)
			user.POST("/messages/read-all", publicHandler.MarkAllMessagesRead)
		}

		// 管理接口
		admin := apiV1.Group("/admin")
		authorized := admin.Use(UserJWTAuthMiddleware(cfg.UserJWT.SecretKey, c.UserRepo), AdminRBACMiddleware(c.AuthzService))
		{
			// 内容管理
			authorized.PUT("/posts/:pid/hide", adminHandler.HidePost)
			authorized.PUT("/posts/:pid/pin", adminHandler.PinPost)

			// 用户管理
			authorized.PUT("/users/:uid/ban", adminHandler.BanUser)
			authorized.PUT("/users/:uid/role", adminHandler.SetUserRole)
			authorized.POST("/users/:uid/points", adminHandler.AdjustUserPoints)
			authorized.POST("/users/:uid/points/reconcile", adminHandler.ReconcileUserPoints)

			// 积分设置
			authorized.GET("/settings/points", adminHandler.GetPointsSettings)
			authorized.PUT("/settings/points", adminHandler.UpdatePointsSettings)

			// 操作日志
			authorized.GET("/logs", adminHandler.ListModerationLogs)

			// 权限管理
			authorized.GET("/authz/me", adminHandler.GetAuthzMe)
			authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
			authorized.POST("/authz/roles", adminHandler.CreateAuthzRole)
			authorized.DELETE("/authz/roles/:role", adminHandler.DeleteAuthzRole)
			authorized.GET("/authz/roles/:role/policies", adminHandler.GetAuthzRolePolicies)
			authorized.POST("/authz/policies", adminHandler.GrantAuthzPolicy)
			authorized.DELETE("/authz/policies", adminHandler.RevokeAuthzPolicy)
			authorized.GET("/authz/permissions/catalog", func(ctx *gin.Context) {
				response.Success(ctx, buildAdminPermissionCatalog(r))
			})
			authorized.GET("/users/:uid/permissions", adminHandler.GetUserPermissions)
			authorized.PUT("/users/:uid/authz-roles", adminHandler.SetUserAuthzRoles)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

// buildAdminPermissionCatalog 按已注册的管理路由生成可授权的权限清单
func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

// deriveAdminPermissionModule 取管理路径的首段作为模块名
func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 || segments[0] != "admin" {
		return segments[0]
	}
	switch segments[1] {
	case "users":
		if len(segments) >= 4 && segments[3] == "points" {
			return "points"
		}
		return "users"
	case "settings":
		return "points"
	}
	return segments[1]
}
