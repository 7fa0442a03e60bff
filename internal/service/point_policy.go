package service

import (
	"sort"
	"strings"
	"time"

	"github.com/forum-next/internal/cache"
	"github.com/forum-next/internal/config"
	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
)

const (
	defaultPolicyTimezone = "Asia/Shanghai"
	dayKeyLayout          = "2006-01-02"
	pointPolicyCacheKey   = "points_policy"
)

// PointPolicy 积分规则（数额、每日上限、等级阈值、角色排序、日期时区）
type PointPolicy struct {
	PostCreate         int64
	PostCreateByDay    int64
	CommentCreate      int64
	CommentCreateByDay int64
	LikeOrDislike      int64
	SignInMin          int64
	SignInMax          int64
	InviteCreateCost   int64
	InviteTTL          time.Duration
	LevelThresholds    []int64
	RoleRanks          map[models.UserRole]int
	Location           *time.Location
}

// PointPolicyFromConfig 由配置文件构建默认积分规则
func PointPolicyFromConfig(cfg config.PointsConfig) PointPolicy {
	policy := PointPolicy{
		PostCreate:         cfg.PostCreate,
		PostCreateByDay:    cfg.PostCreateByDay,
		CommentCreate:      cfg.CommentCreate,
		CommentCreateByDay: cfg.CommentCreateByDay,
		LikeOrDislike:      cfg.LikeOrDislike,
		SignInMin:          cfg.SignInMin,
		SignInMax:          cfg.SignInMax,
		InviteCreateCost:   cfg.InviteCreateCost,
		InviteTTL:          time.Duration(cfg.InviteTTLHours) * time.Hour,
		LevelThresholds:    append([]int64(nil), cfg.LevelThresholds...),
		RoleRanks:          make(map[models.UserRole]int, len(cfg.RoleRanks)),
		Location:           loadLocation(cfg.Timezone),
	}
	for role, rank := range cfg.RoleRanks {
		if parsed, ok := models.ParseUserRole(role); ok {
			policy.RoleRanks[parsed] = rank
		}
	}
	return policy.normalized()
}

// DefaultPointPolicy 内置默认积分规则
func DefaultPointPolicy() PointPolicy {
	return PointPolicy{
		PostCreate:         5,
		PostCreateByDay:    50,
		CommentCreate:      2,
		CommentCreateByDay: 20,
		LikeOrDislike:      1,
		SignInMin:          1,
		SignInMax:          10,
		InviteCreateCost:   100,
		InviteTTL:          7 * 24 * time.Hour,
		LevelThresholds:    []int64{0, 11, 51, 201, 1000},
		RoleRanks: map[models.UserRole]int{
			models.RoleMember:    1,
			models.RoleModerator: 2,
			models.RoleAdmin:     3,
		},
		Location: loadLocation(defaultPolicyTimezone),
	}
}

func loadLocation(name string) *time.Location {
	name = strings.TrimSpace(name)
	if name == "" {
		name = defaultPolicyTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnw("points_timezone_invalid", "timezone", name, "error", err)
		return time.FixedZone("UTC+8", 8*3600)
	}
	return loc
}

// normalized 修正非法值：负数归零、阈值升序去重、签到区间有序
func (p PointPolicy) normalized() PointPolicy {
	defaults := DefaultPointPolicy()
	p.PostCreate = nonNegative(p.PostCreate)
	p.PostCreateByDay = nonNegative(p.PostCreateByDay)
	p.CommentCreate = nonNegative(p.CommentCreate)
	p.CommentCreateByDay = nonNegative(p.CommentCreateByDay)
	p.LikeOrDislike = nonNegative(p.LikeOrDislike)
	p.SignInMin = nonNegative(p.SignInMin)
	p.SignInMax = nonNegative(p.SignInMax)
	if p.SignInMax < p.SignInMin {
		p.SignInMin, p.SignInMax = p.SignInMax, p.SignInMin
	}
	p.InviteCreateCost = nonNegative(p.InviteCreateCost)
	if p.InviteTTL <= 0 {
		p.InviteTTL = defaults.InviteTTL
	}
	p.LevelThresholds = normalizeThresholds(p.LevelThresholds)
	if len(p.LevelThresholds) == 0 {
		p.LevelThresholds = defaults.LevelThresholds
	}
	if len(p.RoleRanks) == 0 {
		p.RoleRanks = defaults.RoleRanks
	}
	if p.Location == nil {
		p.Location = defaults.Location
	}
	return p
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}

func normalizeThresholds(raw []int64) []int64 {
	if len(raw) == 0 {
		return nil
	}
	sorted := append([]int64(nil), raw...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	result := sorted[:0]
	for idx, v := range sorted {
		if idx > 0 && v == sorted[idx-1] {
			continue
		}
		result = append(result, v)
	}
	return result
}

// AmountFor 获取奖励类原因的单次数额
func (p PointPolicy) AmountFor(reason models.PointReason) int64 {
	switch reason {
	case models.PointReasonPostCreate:
		return p.PostCreate
	case models.PointReasonCommentCreate:
		return p.CommentCreate
	case models.PointReasonLikeReceived, models.PointReasonDislikeReceived:
		return p.LikeOrDislike
	case models.PointReasonDailySignIn:
		return p.SignInMax
	case models.PointReasonInviteCreate:
		return p.InviteCreateCost
	case models.PointReasonPostUnlock, models.PointReasonPostUnlockIncome, models.PointReasonAdminAdjust:
		return 0
	default:
		return 0
	}
}

// DailyCapFor 获取原因的每日积分上限，<=0 表示不限
func (p PointPolicy) DailyCapFor(reason models.PointReason) int64 {
	switch reason {
	case models.PointReasonPostCreate:
		return p.PostCreateByDay
	case models.PointReasonCommentCreate:
		return p.CommentCreateByDay
	case models.PointReasonDailySignIn:
		return p.SignInMax
	case models.PointReasonLikeReceived,
		models.PointReasonDislikeReceived,
		models.PointReasonInviteCreate,
		models.PointReasonPostUnlock,
		models.PointReasonPostUnlockIncome,
		models.PointReasonAdminAdjust:
		return 0
	default:
		return 0
	}
}

// LevelOf 按阈值计算等级：余额等于阈值时进入该级，低于首个阈值为 0 级
func (p PointPolicy) LevelOf(balance int64) int {
	return sort.Search(len(p.LevelThresholds), func(i int) bool {
		return p.LevelThresholds[i] > balance
	})
}

// RoleRank 角色排序值，未知角色与匿名为 0
func (p PointPolicy) RoleRank(role models.UserRole) int {
	if !role.Valid() {
		return 0
	}
	return p.RoleRanks[role]
}

// CanModerate 角色在配置的排序中是否不低于版主
func (p PointPolicy) CanModerate(role models.UserRole) bool {
	rank := p.RoleRank(role)
	return rank > 0 && rank >= p.RoleRank(models.RoleModerator)
}

// DayKey 计算时间在规则时区下的自然日
func (p PointPolicy) DayKey(t time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(dayKeyLayout)
}

// ToSetting 转为 settings 表存储结构
func (p PointPolicy) ToSetting() models.JSON {
	ranks := make(map[string]interface{}, len(p.RoleRanks))
	for role, rank := range p.RoleRanks {
		ranks[string(role)] = rank
	}
	thresholds := make([]interface{}, 0, len(p.LevelThresholds))
	for _, v := range p.LevelThresholds {
		thresholds = append(thresholds, v)
	}
	return models.JSON{
		constants.SettingFieldPointPerPost:          p.PostCreate,
		constants.SettingFieldPointPerPostByDay:     p.PostCreateByDay,
		constants.SettingFieldPointPerComment:       p.CommentCreate,
		constants.SettingFieldPointPerCommentByDay:  p.CommentCreateByDay,
		constants.SettingFieldPointPerLikeOrDislike: p.LikeOrDislike,
		constants.SettingFieldPointPerDaySignInMin:  p.SignInMin,
		constants.SettingFieldPointPerDaySignInMax:  p.SignInMax,
		constants.SettingFieldCreateInviteCodePoint: p.InviteCreateCost,
		constants.SettingFieldInviteTTLHours:        int64(p.InviteTTL / time.Hour),
		constants.SettingFieldLevelThresholds:       thresholds,
		constants.SettingFieldRoleRanks:             ranks,
	}
}

// mergeSetting 用 settings 表中的值覆盖规则
func (p PointPolicy) mergeSetting(value models.JSON) PointPolicy {
	if len(value) == 0 {
		return p
	}
	setInt64 := func(field string, target *int64) {
		if raw, ok := value[field]; ok {
			if parsed, err := parseSettingInt64(raw); err == nil {
				*target = parsed
			}
		}
	}
	setInt64(constants.SettingFieldPointPerPost, &p.PostCreate)
	setInt64(constants.SettingFieldPointPerPostByDay, &p.PostCreateByDay)
	setInt64(constants.SettingFieldPointPerComment, &p.CommentCreate)
	setInt64(constants.SettingFieldPointPerCommentByDay, &p.CommentCreateByDay)
	setInt64(constants.SettingFieldPointPerLikeOrDislike, &p.LikeOrDislike)
	setInt64(constants.SettingFieldPointPerDaySignInMin, &p.SignInMin)
	setInt64(constants.SettingFieldPointPerDaySignInMax, &p.SignInMax)
	setInt64(constants.SettingFieldCreateInviteCodePoint, &p.InviteCreateCost)

	var ttlHours int64
	setInt64(constants.SettingFieldInviteTTLHours, &ttlHours)
	if ttlHours > 0 {
		p.InviteTTL = time.Duration(ttlHours) * time.Hour
	}
	if raw, ok := value[constants.SettingFieldLevelThresholds].([]interface{}); ok {
		thresholds := make([]int64, 0, len(raw))
		for _, item := range raw {
			if parsed, err := parseSettingInt64(item); err == nil {
				thresholds = append(thresholds, parsed)
			}
		}
		if len(thresholds) > 0 {
			p.LevelThresholds = thresholds
		}
	}
	if raw, ok := value[constants.SettingFieldRoleRanks].(map[string]interface{}); ok {
		ranks := make(map[models.UserRole]int, len(raw))
		for key, item := range raw {
			role, valid := models.ParseUserRole(key)
			if !valid {
				continue
			}
			if parsed, err := parseSettingInt(item); err == nil {
				ranks[role] = parsed
			}
		}
		if len(ranks) > 0 {
			p.RoleRanks = ranks
		}
	}
	return p.normalized()
}

// PointPolicyProvider 积分规则提供者：配置文件默认值 + settings 覆盖，带进程内缓存
type PointPolicyProvider struct {
	settings *SettingService
	defaults PointPolicy
	cache    *cache.Local[PointPolicy]
}

// NewPointPolicyProvider 创建积分规则提供者
func NewPointPolicyProvider(settings *SettingService, defaults PointPolicy, ttl time.Duration) *PointPolicyProvider {
	local, err := cache.NewLocal[PointPolicy](4, ttl)
	if err != nil {
		logger.Warnw("points_policy_cache_init_failed", "error", err)
	}
	return &PointPolicyProvider{
		settings: settings,
		defaults: defaults.normalized(),
		cache:    local,
	}
}

// Current 获取当前生效的积分规则
func (p *PointPolicyProvider) Current() (PointPolicy, error) {
	if p == nil {
		return DefaultPointPolicy(), nil
	}
	if cached, ok := p.cache.Get(pointPolicyCacheKey); ok {
		return cached, nil
	}
	policy := p.defaults
	if p.settings != nil {
		value, err := p.settings.GetByKey(constants.SettingKeyPointsConfig)
		if err != nil {
			return policy, err
		}
		policy = policy.mergeSetting(value)
	}
	p.cache.Set(pointPolicyCacheKey, policy)
	return policy, nil
}

// Update 更新积分规则并失效缓存
func (p *PointPolicyProvider) Update(value map[string]interface{}) (PointPolicy, error) {
	if p == nil || p.settings == nil {
		return PointPolicy{}, ErrPointsConfigInvalid
	}
	current, err := p.Current()
	if err != nil {
		return PointPolicy{}, err
	}
	merged := current.mergeSetting(models.JSON(value))
	if _, err := p.settings.Update(constants.SettingKeyPointsConfig, merged.ToSetting()); err != nil {
		return PointPolicy{}, err
	}
	p.Invalidate()
	return merged, nil
}

// Invalidate 失效缓存
func (p *PointPolicyProvider) Invalidate() {
	if p == nil {
		return
	}
	p.cache.Delete(pointPolicyCacheKey)
}
