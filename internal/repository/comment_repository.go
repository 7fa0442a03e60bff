package repository

import (
	"errors"
	"strings"

	"github.com/forum-next/internal/models"

	"gorm.io/gorm"
)

// CommentRepository 评论数据访问接口
type CommentRepository interface {
	Create(comment *models.Comment) error
	GetByCid(cid string) (*models.Comment, error)
	GetByID(id uint) (*models.Comment, error)
	ListByCids(cids []string) ([]models.Comment, error)
	MaxFloor(postID uint) (int, error)
	ListByPost(filter CommentListFilter) ([]models.Comment, int64, error)
	IncrementColumns(id uint, deltas map[string]int64) error
	WithTx(tx *gorm.DB) *GormCommentRepository
}

// GormCommentRepository GORM 实现
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository 创建评论仓库
func NewCommentRepository(db *gorm.DB) *GormCommentRepository {
	return &GormCommentRepository{db: db}
}

// WithTx 绑定事务
func (r *GormCommentRepository) WithTx(tx *gorm.DB) *GormCommentRepository {
	if tx == nil {
		return r
	}
	return &GormCommentRepository{db: tx}
}

// Create 创建评论
func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

// GetByCid 根据对外标识获取评论
func (r *GormCommentRepository) GetByCid(cid string) (*models.Comment, error) {
	cid = strings.TrimSpace(cid)
	if cid == "" {
		return nil, nil
	}
	var comment models.Comment
	if err := r.db.Where("cid = ?", cid).First(&comment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// GetByID 根据 ID 获取评论
func (r *GormCommentRepository) GetByID(id uint) (*models.Comment, error) {
	if id == 0 {
		return nil, nil
	}
	var comment models.Comment
	if err := r.db.First(&comment, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &comment, nil
}

// ListByCids 批量查询评论（含已删除，预加载所属帖子标题）
func (r *GormCommentRepository) ListByCids(cids []string) ([]models.Comment, error) {
	if len(cids) == 0 {
		return []models.Comment{}, nil
	}
	var comments []models.Comment
	err := r.db.Unscoped().
		Preload("Post", func(db *gorm.DB) *gorm.DB { return db.Unscoped().Select("id", "pid", "title") }).
		Where("cid IN ?", cids).
		Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}

// MaxFloor 获取帖子当前最大楼层（含软删除）
func (r *GormCommentRepository) MaxFloor(postID uint) (int, error) {
	var floor int
	err := r.db.Unscoped().Model(&models.Comment{}).
		Select("COALESCE(MAX(floor), 0)").
		Where("post_id = ?", postID).
		Scan(&floor).Error
	if err != nil {
		return 0, err
	}
	return floor, nil
}

// ListByPost 按楼层顺序列出评论
func (r *GormCommentRepository) ListByPost(filter CommentListFilter) ([]models.Comment, int64, error) {
	query := r.db.Model(&models.Comment{}).Where("post_id = ?", filter.PostID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query, filter.Page, filter.PageSize)

	var comments []models.Comment
	if err := query.Preload("Author").Order("floor asc").Find(&comments).Error; err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// IncrementColumns 原子累加计数列
func (r *GormCommentRepository) IncrementColumns(id uint, deltas map[string]int64) error {
	if id == 0 || len(deltas) == 0 {
		return nil
	}
	updates := make(map[string]interface{}, len(deltas))
	for column, delta := range deltas {
		updates[column] = gorm.Expr(column+" + ?", delta)
	}
	return r.db.Model(&models.Comment{}).Where("id = ?", id).UpdateColumns(updates).Error
}
