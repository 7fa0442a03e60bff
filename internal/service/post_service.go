package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	postTitleMaxRunes   = 120
	postContentMaxRunes = 50000
)

// PostService 帖子业务服务
type PostService struct {
	runner   txRunner
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	tagRepo  repository.TagRepository
	points   *PointService
	now      func() time.Time
}

// NewPostService 创建帖子服务
func NewPostService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, postRepo repository.PostRepository, tagRepo repository.TagRepository, points *PointService) *PostService {
	return &PostService{
		runner:   newTxRunner(db, retry),
		userRepo: userRepo,
		postRepo: postRepo,
		tagRepo:  tagRepo,
		points:   points,
		now:      time.Now,
	}
}

// CreatePostInput 发帖输入
type CreatePostInput struct {
	Title    string
	Content  string
	TagID    *uint
	ReadRole string
	MinLevel int
	PayPoint int64
}

// CreatePostResult 发帖结果
type CreatePostResult struct {
	Post   *models.Post  `json:"post"`
	Credit *CreditResult `json:"credit,omitempty"`
}

// PostListItem 帖子列表项（不含正文）
type PostListItem struct {
	Post     *models.Post `json:"post"`
	Paid     bool         `json:"paid"`
	Locked   bool         `json:"locked"`
	IsAuthor bool         `json:"is_author"`
}

// Create 发帖并发放发帖奖励；奖励失败不影响发帖结果
func (s *PostService) Create(ctx context.Context, authorUID string, input CreatePostInput) (*CreatePostResult, error) {
	title := strings.TrimSpace(input.Title)
	content := strings.TrimSpace(input.Content)
	if title == "" || content == "" ||
		utf8.RuneCountInString(title) > postTitleMaxRunes ||
		utf8.RuneCountInString(content) > postContentMaxRunes ||
		input.MinLevel < 0 || input.PayPoint < 0 {
		return nil, ErrPostInvalid
	}
	var readRole models.UserRole
	if raw := strings.TrimSpace(input.ReadRole); raw != "" {
		parsed, ok := models.ParseUserRole(raw)
		if !ok {
			return nil, ErrInvalidRole
		}
		readRole = parsed
	}

	db, cancel := s.runner.reader(ctx)
	defer cancel()
	author, err := s.userRepo.WithTx(db).GetByUID(authorUID)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	if author == nil {
		return nil, ErrUserNotFound
	}
	now := s.now()
	if author.IsBanned(now) {
		return nil, ErrUserBanned
	}
	if input.TagID != nil && *input.TagID != 0 {
		tag, err := s.tagRepo.GetByID(*input.TagID)
		if err != nil {
			return nil, mapStorageError(db.Statement.Context, err)
		}
		if tag == nil {
			return nil, ErrTagNotFound
		}
	} else {
		input.TagID = nil
	}

	post := &models.Post{
		Pid:       uuid.NewString(),
		AuthorID:  author.ID,
		Title:     title,
		Content:   content,
		TagID:     input.TagID,
		ReadRole:  readRole,
		MinLevel:  input.MinLevel,
		PayPoint:  input.PayPoint,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.postRepo.WithTx(db).Create(post); err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	post.Author = author

	result := &CreatePostResult{Post: post}
	credit, err := s.points.OnPostCreated(ctx, author, post)
	if err != nil {
		logger.Warnw("post_create_credit_failed", "pid", post.Pid, "author_uid", author.UID, "error", err)
	} else {
		result.Credit = credit
	}
	return result, nil
}

// List 帖子列表（置顶优先），标注访问者对付费帖的解锁状态
func (s *PostService) List(ctx context.Context, viewer Viewer, filter repository.PostListFilter) ([]PostListItem, int64, error) {
	filter.IncludeHide = filter.IncludeHide && viewer.CanMod
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	postRepo := s.postRepo.WithTx(db)
	posts, total, err := postRepo.List(filter)
	if err != nil {
		return nil, 0, mapStorageError(db.Statement.Context, err)
	}
	items := make([]PostListItem, 0, len(posts))
	for i := range posts {
		post := &posts[i]
		item := PostListItem{Post: post}
		if !viewer.Anonymous() && post.AuthorID == viewer.UserID {
			item.IsAuthor = true
		}
		if post.PayPoint > 0 && !item.IsAuthor {
			if !viewer.Anonymous() {
				unlock, err := postRepo.GetUnlock(post.ID, viewer.UserID)
				if err != nil {
					return nil, 0, mapStorageError(db.Statement.Context, err)
				}
				item.Paid = unlock != nil
			}
			item.Locked = !item.Paid
		}
		items = append(items, item)
	}
	return items, total, nil
}

// ListTags 标签列表
func (s *PostService) ListTags() ([]models.Tag, error) {
	return s.tagRepo.List()
}

// SetHide 隐藏/取消隐藏帖子，hideContent 为隐藏后展示的替代内容
func (s *PostService) SetHide(ctx context.Context, pid string, hide bool, hideContent string) (*models.Post, error) {
	fields := map[string]interface{}{"hide": hide}
	if hide {
		fields["hide_content"] = strings.TrimSpace(hideContent)
	} else {
		fields["hide_content"] = ""
	}
	return s.updatePost(ctx, pid, fields)
}

// SetPinned 置顶/取消置顶帖子
func (s *PostService) SetPinned(ctx context.Context, pid string, pinned bool) (*models.Post, error) {
	return s.updatePost(ctx, pid, map[string]interface{}{"pinned": pinned})
}

func (s *PostService) updatePost(ctx context.Context, pid string, fields map[string]interface{}) (*models.Post, error) {
	var post *models.Post
	err := s.runner.run(ctx, "post_update", func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		found, err := postRepo.GetByPid(pid)
		if err != nil {
			return err
		}
		if found == nil {
			return ErrPostNotFound
		}
		fields["updated_at"] = s.now()
		if err := postRepo.UpdateFields(found.ID, fields); err != nil {
			return err
		}
		post, err = postRepo.GetByPid(pid)
		return err
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}
