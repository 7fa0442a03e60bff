package repository

import (
	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// ModerationLogRepository 管理审计日志数据访问接口
type ModerationLogRepository interface {
	Create(log *models.ModerationLog) error
	ListAdmin(filter ModerationLogListFilter) ([]models.ModerationLog, int64, error)
	WithTx(tx *gorm.DB) *GormModerationLogRepository
}

// GormModerationLogRepository GORM 实现
type GormModerationLogRepository struct {
	db *gorm.DB
}

// NewModerationLogRepository 创建管理审计日志仓库
func NewModerationLogRepository(db *gorm.DB) *GormModerationLogRepository {
	return &GormModerationLogRepository{db: db}
}

// WithTx 绑定事务
func (r *GormModerationLogRepository) WithTx(tx *gorm.DB) *GormModerationLogRepository {
	if tx == nil {
		return r
	}
	return &GormModerationLogRepository{db: tx}
}

// Create 创建审计日志
func (r *GormModerationLogRepository) Create(log *models.ModerationLog) error {
	if log == nil {
		return nil
	}
	return r.db.Create(log).Error
}

// ListAdmin 管理端查询审计日志
func (r *GormModerationLogRepository) ListAdmin(filter ModerationLogListFilter) ([]models.ModerationLog, int64, error) {
	query := r.db.Model(&models.ModerationLog{})
	if filter.OperatorID != 0 {
		query = query.Where("operator_id = ?", filter.OperatorID)
	}
	if filter.TargetType != "" {
		query = query.Where("target_type = ?", filter.TargetType)
	}
	if filter.TargetID != "" {
		query = query.Where("target_id = ?", filter.TargetID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at <= ?", *filter.CreatedTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var logs []models.ModerationLog
	if err := query.Order("id desc").Find(&logs).Error; err != nil {
		return nil, 0, err
	}
	return logs, total, nil
}
