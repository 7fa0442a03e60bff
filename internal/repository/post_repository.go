package repository

import (
	"errors"
	"strings"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// PostRepository 帖子数据访问接口
type PostRepository interface {
	List(filter PostListFilter) ([]models.Post, int64, error)
	GetByPid(pid string) (*models.Post, error)
	GetByID(id uint) (*models.Post, error)
	ListByPids(pids []string) ([]models.Post, error)
	Create(post *models.Post) error
	UpdateFields(id uint, fields map[string]interface{}) error
	IncrementColumns(id uint, deltas map[string]int64) error
	GetUnlock(postID, userID uint) (*models.PostUnlock, error)
	CreateUnlock(unlock *models.PostUnlock) error
	CountUnlocks(postID uint) (int64, error)
	WithTx(tx *gorm.DB) *GormPostRepository
}

// GormPostRepository GORM 实现
type GormPostRepository struct {
	db *gorm.DB
}

// NewPostRepository 创建帖子仓库
func NewPostRepository(db *gorm.DB) *GormPostRepository {
	return &GormPostRepository{db: db}
}

// WithTx 绑定事务
func (r *GormPostRepository) WithTx(tx *gorm.DB) *GormPostRepository {
	if tx == nil {
		return r
	}
	return &GormPostRepository{db: tx}
}

// List 帖子列表，置顶优先
func (r *GormPostRepository) List(filter PostListFilter) ([]models.Post, int64, error) {
	query := r.db.Model(&models.Post{})
	if !filter.IncludeHide {
		query = query.Where("hide = ?", false)
	}
	if filter.TagID != 0 {
		query = query.Where("tag_id = ?", filter.TagID)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		condition, argCount := buildLikeCondition(r.db, []string{"title"})
		query = query.Where(condition, repeatLikeArgs("%"+search+"%", argCount)...)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var posts []models.Post
	if err := query.Preload("Author").Preload("Tag").
		Order("pinned desc").Order("id desc").
		Find(&posts).Error; err != nil {
		return nil, 0, err
	}
	return posts, total, nil
}

// GetByPid 根据对外标识获取帖子
func (r *GormPostRepository) GetByPid(pid string) (*models.Post, error) {
	pid = strings.TrimSpace(pid)
	if pid == "" {
		return nil, nil
	}
	var post models.Post
	if err := r.db.Preload("Author").Preload("Tag").Where("pid = ?", pid).First(&post).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// GetByID 根据 ID 获取帖子
func (r *GormPostRepository) GetByID(id uint) (*models.Post, error) {
	if id == 0 {
		return nil, nil
	}
	var post models.Post
	if err := r.db.First(&post, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &post, nil
}

// ListByPids 批量查询帖子（含已删除，供流水展示）
func (r *GormPostRepository) ListByPids(pids []string) ([]models.Post, error) {
	if len(pids) == 0 {
		return []models.Post{}, nil
	}
	var posts []models.Post
	if err := r.db.Unscoped().Select("id", "pid", "title").Where("pid IN ?", pids).Find(&posts).Error; err != nil {
		return nil, err
	}
	return posts, nil
}

// Create 创建帖子
func (r *GormPostRepository) Create(post *models.Post) error {
	return r.db.Create(post).Error
}

// UpdateFields 更新帖子字段
func (r *GormPostRepository) UpdateFields(id uint, fields map[string]interface{}) error {
	if id == 0 || len(fields) == 0 {
		return nil
	}
	return r.db.Model(&models.Post{}).Where("id = ?", id).Updates(fields).Error
}

// IncrementColumns 原子累加计数列
func (r *GormPostRepository) IncrementColumns(id uint, deltas map[string]int64) error {
	if id == 0 || len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(deltas))
	for column, delta := range deltas {
		updates[column] = gorm.Expr(column+" + ?", delta)
	}
	return r.db.Model(&models.Post{}).Where("id = ?", id).UpdateColumns(updates).Error
}

// GetUnlock 查询解锁记录
func (r *GormPostRepository) GetUnlock(postID, userID uint) (*models.PostUnlock, error) {
	if postID == 0 || userID == 0 {
		return nil, nil
	}
	var unlock models.PostUnlock
	if err := r.db.Where("post_id = ? AND user_id = ?", postID, userID).First(&unlock).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &unlock, nil
}

// CreateUnlock 写入解锁记录
func (r *GormPostRepository) CreateUnlock(unlock *models.PostUnlock) error {
	return r.db.Create(unlock).Error
}

// CountUnlocks 统计帖子解锁人数
func (r *GormPostRepository) CountUnlocks(postID uint) (int64, error) {
	var count int64
	if err := r.db.Model(&models.PostUnlock{}).Where("post_id = ?", postID).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
