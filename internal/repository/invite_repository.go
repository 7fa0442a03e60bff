package repository

import (
	"errors"
	"strings"
	"time"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// InviteRepository 邀请码数据访问接口
type InviteRepository interface {
	Create(invite *models.InviteCode) error
	GetByCode(code string) (*models.InviteCode, error)
	MarkRedeemed(id uint, version int64, toUserID uint, redeemedAt time.Time) (bool, error)
	ListByFromUser(filter InviteListFilter) ([]models.InviteCode, int64, error)
	WithTx(tx *gorm.DB) *GormInviteRepository
}

// GormInviteRepository GORM 实现
type GormInviteRepository struct {
	db *gorm.DB
}

// NewInviteRepository 创建邀请码仓库
func NewInviteRepository(db *gorm.DB) *GormInviteRepository {
	return &GormInviteRepository{db: db}
}

// WithTx 绑定事务
func (r *GormInviteRepository) WithTx(tx *gorm.DB) *GormInviteRepository {
	if tx == nil {
		return r
	}
	return &GormInviteRepository{db: tx}
}

// Create 创建邀请码
func (r *GormInviteRepository) Create(invite *models.InviteCode) error {
	return r.db.Create(invite).Error
}

// GetByCode 根据邀请码内容获取
func (r *GormInviteRepository) GetByCode(code string) (*models.InviteCode, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, nil
	}
	var invite models.InviteCode
	if err := r.db.Where("code = ?", code).First(&invite).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invite, nil
}

// MarkRedeemed 比较并设置使用人，返回是否抢占成功
func (r *GormInviteRepository) MarkRedeemed(id uint, version int64, toUserID uint, redeemedAt time.Time) (bool, error) {
	result := r.db.Model(&models.InviteCode{}).
		Where("id = ? AND to_user_id IS NULL AND version = ?", id, version).
		Updates(map[string]interface{}{
			"to_user_id":  toUserID,
			"redeemed_at": redeemedAt,
			"version":     gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// ListByFromUser 查询用户发行的邀请码
func (r *GormInviteRepository) ListByFromUser(filter InviteListFilter) ([]models.InviteCode, int64, error) {
	query := r.db.Model(&models.InviteCode{}).Where("from_user_id = ?", filter.FromUserID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var invites []models.InviteCode
	if err := query.Preload("ToUser").Order("id desc").Find(&invites).Error; err != nil {
		return nil, 0, err
	}
	return invites, total, nil
}
