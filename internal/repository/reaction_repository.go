package repository

import (
	"errors"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// ReactionRepository 点赞/点踩数据访问接口
type ReactionRepository interface {
	Get(userID uint, targetType string, targetID uint) (*models.Reaction, error)
	Create(reaction *models.Reaction) error
	WithTx(tx *gorm.DB) *GormReactionRepository
}

// GormReactionRepository GORM 实现
type GormReactionRepository struct {
	db *gorm.DB
}

// NewReactionRepository 创建互动仓库
func NewReactionRepository(db *gorm.DB) *GormReactionRepository {
	return &GormReactionRepository{db: db}
}

// WithTx 绑定事务
func (r *GormReactionRepository) WithTx(tx *gorm.DB) *GormReactionRepository {
	if tx == nil {
		return r
	}
	return &GormReactionRepository{db: tx}
}

// Get 查询用户对某对象的互动
func (r *GormReactionRepository) Get(userID uint, targetType string, targetID uint) (*models.Reaction, error) {
	var reaction models.Reaction
	err := r.db.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, targetType, targetID).
		First(&reaction).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &reaction, nil
}

// Create 创建互动记录
func (r *GormReactionRepository) Create(reaction *models.Reaction) error {
	return r.db.Create(reaction).Error
}
