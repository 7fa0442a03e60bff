package repository

import (
	"errors"
	"strings"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// LedgerRepository 积分流水数据访问接口（只追加）
type LedgerRepository interface {
	Create(entry *models.PointLedgerEntry) error
	GetByIdempotencyKey(key string) (*models.PointLedgerEntry, error)
	SumEarnedByDay(userID uint, reason models.PointReason, dayKey string) (int64, error)
	SumDeltaByUser(userID uint) (int64, error)
	ListByUserBefore(userID uint, beforeID uint, limit int) ([]models.PointLedgerEntry, error)
	ListDriftedUserIDs(limit int) ([]uint, error)
	WithTx(tx *gorm.DB) *GormLedgerRepository
}

// GormLedgerRepository GORM 积分流水仓储实现
type GormLedgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository 创建积分流水仓储
func NewLedgerRepository(db *gorm.DB) *GormLedgerRepository {
	return &GormLedgerRepository{db: db}
}

// WithTx 绑定事务
func (r *GormLedgerRepository) WithTx(tx *gorm.DB) *GormLedgerRepository {
	if tx == nil {
		return r
	}
	return &GormLedgerRepository{db: tx}
}

// Create 写入积分流水
func (r *GormLedgerRepository) Create(entry *models.PointLedgerEntry) error {
	return r.db.Create(entry).Error
}

// GetByIdempotencyKey 按幂等键获取流水
func (r *GormLedgerRepository) GetByIdempotencyKey(key string) (*models.PointLedgerEntry, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var entry models.PointLedgerEntry
	if err := r.db.Where("idempotency_key = ?", key).First(&entry).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &entry, nil
}

// SumEarnedByDay 统计用户某原因在某日已获得的积分
func (r *GormLedgerRepository) SumEarnedByDay(userID uint, reason models.PointReason, dayKey string) (int64, error) {
	var total int64
	err := r.db.Model(&models.PointLedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id = ? AND reason = ? AND day_key = ? AND delta > 0", userID, reason, dayKey).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// SumDeltaByUser 汇总用户全部流水
func (r *GormLedgerRepository) SumDeltaByUser(userID uint) (int64, error) {
	var total int64
	err := r.db.Model(&models.PointLedgerEntry{}).
		Select("COALESCE(SUM(delta), 0)").
		Where("user_id = ?", userID).
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}

// ListByUserBefore 按序号倒序读取流水，beforeID 为 0 时从最新开始
func (r *GormLedgerRepository) ListByUserBefore(userID uint, beforeID uint, limit int) ([]models.PointLedgerEntry, error) {
	query := r.db.Model(&models.PointLedgerEntry{}).Where("user_id = ?", userID)
	if beforeID > 0 {
		query = query.Where("id < ?", beforeID)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	var entries []models.PointLedgerEntry
	if err := query.Order("id desc").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// ListDriftedUserIDs 查找缓存余额与流水汇总不一致的用户
func (r *GormLedgerRepository) ListDriftedUserIDs(limit int) ([]uint, error) {
	if limit <= 0 {
		limit = 100
	}
	sums := r.db.Model(&models.PointLedgerEntry{}).
		Select("user_id, SUM(delta) AS total").
		Group("user_id")
	var ids []uint
	err := r.db.Table("users AS u").
		Joins("LEFT JOIN (?) AS l ON l.user_id = u.id", sums).
		Where("u.deleted_at IS NULL").
		Where("u.point <> COALESCE(l.total, 0)").
		Order("u.id asc").
		Limit(limit).
		Pluck("u.id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
