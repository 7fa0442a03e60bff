package repository

import (
	"errors"
	"strings"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// MessageRepository 站内消息数据访问接口
type MessageRepository interface {
	Create(message *models.Message) error
	GetByDedupeKey(key string) (*models.Message, error)
	List(filter MessageListFilter) ([]models.Message, int64, error)
	CountUnread(toUserID uint) (int64, error)
	MarkRead(id, toUserID uint) (bool, error)
	MarkAllRead(toUserID uint) (int64, error)
}

// GormMessageRepository GORM 实现
type GormMessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 创建站内消息仓库
func NewMessageRepository(db *gorm.DB) *GormMessageRepository {
	return &GormMessageRepository{db: db}
}

// Create 创建消息
func (r *GormMessageRepository) Create(message *models.Message) error {
	return r.db.Create(message).Error
}

// GetByDedupeKey 按去重键查询消息
func (r *GormMessageRepository) GetByDedupeKey(key string) (*models.Message, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, nil
	}
	var message models.Message
	if err := r.db.Where("dedupe_key = ?", key).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &message, nil
}

// List 查询用户消息
func (r *GormMessageRepository) List(filter MessageListFilter) ([]models.Message, int64, error) {
	query := r.db.Model(&models.Message{}).Where("to_user_id = ?", filter.ToUserID)
	if filter.OnlyUnread {
		query = query.Where("read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var messages []models.Message
	if err := query.Order("id desc").Find(&messages).Error; err != nil {
		return nil, 0, err
	}
	return messages, total, nil
}

// CountUnread 统计未读消息数
func (r *GormMessageRepository) CountUnread(toUserID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Message{}).
		Where("to_user_id = ? AND read = ?", toUserID, false).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead 标记单条消息已读
func (r *GormMessageRepository) MarkRead(id, toUserID uint) (bool, error) {
	result := r.db.Model(&models.Message{}).
		Where("id = ? AND to_user_id = ?", id, toUserID).
		Update("read", true)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkAllRead 标记全部消息已读
func (r *GormMessageRepository) MarkAllRead(toUserID uint) (int64, error) {
	result := r.db.Model(&models.Message{}).
		Where("to_user_id = ? AND read = ?", toUserID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}
