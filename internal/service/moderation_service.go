package service

import (
	"context"
	"strings"
	"time"

	"github.com/forum-next/internal/cache"
	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 管理操作动作
const (
	ModerationActionBan          = "user_ban"
	ModerationActionUnban        = "user_unban"
	ModerationActionRole         = "user_role"
	ModerationActionAdjustPoints = "points_adjust"
	ModerationActionReconcile    = "points_reconcile"
	ModerationActionHidePost     = "post_hide"
	ModerationActionPinPost      = "post_pin"
	ModerationActionPointsConfig = "points_config_update"
	ModerationActionRoleCreate   = "authz_role_create"
	ModerationActionRoleDelete   = "authz_role_delete"
	ModerationActionPolicyGrant  = "authz_policy_grant"
	ModerationActionPolicyRevoke = "authz_policy_revoke"
	ModerationActionUserGrant    = "authz_user_roles"
)

// Operator 管理操作人
type Operator struct {
	UserID    uint
	UID       string
	RequestID string
}

// ModerationService 管理服务：封禁、角色、积分调整与配置，所有操作记录审计日志
type ModerationService struct {
	runner   txRunner
	userRepo repository.UserRepository
	logRepo  repository.ModerationLogRepository
	ledger   *LedgerService
	posts    *PostService
	policy   *PointPolicyProvider
	now      func() time.Time
}

// NewModerationService 创建管理服务
func NewModerationService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, logRepo repository.ModerationLogRepository, ledger *LedgerService, posts *PostService, policy *PointPolicyProvider) *ModerationService {
	return &ModerationService{
		runner:   newTxRunner(db, retry),
		userRepo: userRepo,
		logRepo:  logRepo,
		ledger:   ledger,
		posts:    posts,
		policy:   policy,
		now:      time.Now,
	}
}

// record 写入审计日志，失败仅记录告警
// RecordAuthz 记录权限变更审计日志
func (s *ModerationService) RecordAuthz(op Operator, targetID, action string, detail models.JSON) {
	s.record(op, "authz", targetID, action, detail)
}

func (s *ModerationService) record(op Operator, targetType, targetID, action string, detail models.JSON) {
	if op.UserID == 0 {
		return
	}
	item := &models.ModerationLog{
		OperatorID:  op.UserID,
		OperatorUID: strings.TrimSpace(op.UID),
		TargetType:  targetType,
		TargetID:    targetID,
		Action:      action,
		RequestID:   strings.TrimSpace(op.RequestID),
		DetailJSON:  detail,
		CreatedAt:   s.now(),
	}
	if err := s.logRepo.Create(item); err != nil {
		logger.Warnw("moderation_log_write_failed", "action", action, "target_id", targetID, "error", err)
	}
}

func (s *ModerationService) updateUser(ctx context.Context, uid string, fields map[string]interface{}) (*models.User, error) {
	var user *models.User
	err := s.runner.run(ctx, "moderation_user_update", func(tx *gorm.DB) error {
		userRepo := s.userRepo.WithTx(tx)
		found, err := userRepo.GetByUID(uid)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrUserNotFound
		}
		if err := userRepo.UpdateFields(found.ID, fields); err != nil {
			return err
		}
		user, err = userRepo.GetByID(found.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	if err := cache.DelUserState(ctx, user.ID); err != nil {
		logger.Warnw("user_state_invalidate_failed", "uid", user.UID, "error", err)
	}
	return user, nil
}

// Ban 封禁用户，bannedEnd 为空表示永久
func (s *ModerationService) Ban(ctx context.Context, op Operator, uid string, bannedEnd *time.Time, reason string) (*models.User, error) {
	if bannedEnd != nil && !bannedEnd.After(s.now()) {
		return nil, ErrInvalidInput
	}
	user, err := s.updateUser(ctx, uid, map[string]interface{}{
		"status":     constants.UserStatusBanned,
		"banned_end": bannedEnd,
	})
	if err != nil {
		return nil, err
	}
	detail := models.JSON{"reason": strings.TrimSpace(reason)}
	if bannedEnd != nil {
		detail["banned_end"] = bannedEnd.Format(time.RFC3339)
	}
	s.record(op, "user", user.UID, ModerationActionBan, detail)
	return user, nil
}

// Unban 解除封禁
func (s *ModerationService) Unban(ctx context.Context, op Operator, uid string) (*models.User, error) {
	user, err := s.updateUser(ctx, uid, map[string]interface{}{
		"status":     constants.UserStatusActive,
		"banned_end": nil,
	})
	if err != nil {
		return nil, err
	}
	s.record(op, "user", user.UID, ModerationActionUnban, nil)
	return user, nil
}

// SetRole 调整用户角色
func (s *ModerationService) SetRole(ctx context.Context, op Operator, uid, role string) (*models.User, error) {
	parsed, ok := models.ParseUserRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}
	user, err := s.updateUser(ctx, uid, map[string]interface{}{"role": parsed})
	if err != nil {
		return nil, err
	}
	s.record(op, "user", user.UID, ModerationActionRole, models.JSON{"role": string(parsed)})
	return user, nil
}

// AdjustPoints 管理员调整积分（非零，可为负，不得使余额为负）
func (s *ModerationService) AdjustPoints(ctx context.Context, op Operator, uid string, delta int64, remark string) (*models.PointLedgerEntry, error) {
	if delta == 0 {
		return nil, ErrInvalidAmount
	}
	refID := strings.TrimSpace(op.RequestID)
	if refID == "" {
		refID = uuid.NewString()
	}
	entry, err := s.ledger.Append(ctx, LedgerAppendInput{
		UID:     uid,
		Delta:   delta,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   refID,
		Remark:  remark,
	})
	if err != nil {
		return nil, err
	}
	s.record(op, "user", uid, ModerationActionAdjustPoints, models.JSON{
		"delta":    delta,
		"entry_id": entry.EntryID,
		"remark":   strings.TrimSpace(remark),
	})
	return entry, nil
}

// Reconcile 重算用户余额
func (s *ModerationService) Reconcile(ctx context.Context, op Operator, uid string) (*ReconcileResult, error) {
	result, err := s.ledger.Reconcile(ctx, uid)
	if err != nil {
		return nil, err
	}
	s.record(op, "user", result.UID, ModerationActionReconcile, models.JSON{
		"before": result.Before,
		"after":  result.After,
		"fixed":  result.Fixed,
	})
	return result, nil
}

// HidePost 隐藏/取消隐藏帖子
func (s *ModerationService) HidePost(ctx context.Context, op Operator, pid string, hide bool, hideContent string) (*models.Post, error) {
	post, err := s.posts.SetHide(ctx, pid, hide, hideContent)
	if err != nil {
		return nil, err
	}
	s.record(op, "post", post.Pid, ModerationActionHidePost, models.JSON{"hide": hide})
	return post, nil
}

// PinPost 置顶/取消置顶帖子
func (s *ModerationService) PinPost(ctx context.Context, op Operator, pid string, pinned bool) (*models.Post, error) {
	post, err := s.posts.SetPinned(ctx, pid, pinned)
	if err != nil {
		return nil, err
	}
	s.record(op, "post", post.Pid, ModerationActionPinPost, models.JSON{"pinned": pinned})
	return post, nil
}

// PointsConfig 当前积分配置
func (s *ModerationService) PointsConfig() (models.JSON, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	return policy.ToSetting(), nil
}

// UpdatePointsConfig 更新积分配置
func (s *ModerationService) UpdatePointsConfig(op Operator, value map[string]interface{}) (models.JSON, error) {
	if len(value) == 0 {
		return nil, ErrPointsConfigInvalid
	}
	policy, err := s.policy.Update(value)
	if err != nil {
		return nil, err
	}
	setting := policy.ToSetting()
	s.record(op, "setting", constants.SettingKeyPointsConfig, ModerationActionPointsConfig, setting)
	return setting, nil
}

// ListLogs 查询审计日志
func (s *ModerationService) ListLogs(filter repository.ModerationLogListFilter) ([]models.ModerationLog, int64, error) {
	return s.logRepo.ListAdmin(filter)
}
