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

const commentContentMaxRunes = 5000

// CommentView 评论视图
type CommentView struct {
	Comment     *models.Comment `json:"comment"`
	ContentHTML string          `json:"content_html"`
}

// CreateCommentResult 评论结果
type CreateCommentResult struct {
	Comment *models.Comment `json:"comment"`
	Credit  *CreditResult   `json:"credit,omitempty"`
}

// CommentService 评论服务
type CommentService struct {
	runner      txRunner
	userRepo    repository.UserRepository
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	points      *PointService
	policy      *PointPolicyProvider
	events      EventPublisher
	now         func() time.Time
}

// NewCommentService 创建评论服务
func NewCommentService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, postRepo repository.PostRepository, commentRepo repository.CommentRepository, points *PointService, policy *PointPolicyProvider, events EventPublisher) *CommentService {
	return &CommentService{
		runner:      newTxRunner(db, retry),
		userRepo:    userRepo,
		postRepo:    postRepo,
		commentRepo: commentRepo,
		points:      points,
		policy:      policy,
		events:      publisherOrNoop(events),
		now:         time.Now,
	}
}

// Create 发表评论：帖子内楼层从 1 递增，楼层冲突时重试
func (s *CommentService) Create(ctx context.Context, authorUID, pid, content string) (*CreateCommentResult, error) {
	content = strings.TrimSpace(content)
	if content == "" || utf8.RuneCountInString(content) > commentContentMaxRunes {
		return nil, ErrCommentInvalid
	}
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	var (
		comment *models.Comment
		post    *models.Post
		author  *models.User
	)
	err = s.runner.run(ctx, "comment_create", func(tx *gorm.DB) error {
		postRepo := s.postRepo.WithTx(tx)
		commentRepo := s.commentRepo.WithTx(tx)
		u, err := s.userRepo.WithTx(tx).GetByUID(authorUID)
		if err != nil {
			return err
		}
		if u == nil {
			return ErrUserNotFound
		}
		now := s.now()
		if u.IsBanned(now) {
			return ErrUserBanned
		}
		p, err := postRepo.GetByPid(pid)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPostNotFound
		}
		if Evaluate(ViewerFromUser(u, policy), AccessViewOf(p, policy, true)) == AccessTeaser {
			return ErrForbidden
		}
		floor, err := commentRepo.MaxFloor(p.ID)
		if err != nil {
			return err
		}
		created := &models.Comment{
			Cid:       uuid.NewString(),
			PostID:    p.ID,
			AuthorID:  u.ID,
			Content:   content,
			Floor:     floor + 1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := commentRepo.Create(created); err != nil {
			logger.Debugw("comment_floor_conflict", "pid", p.Pid, "floor", created.Floor, "error", err)
			return errVersionConflict
		}
		if err := postRepo.IncrementColumns(p.ID, map[string]int64{"reply_count": 1}); err != nil {
			return err
		}
		if err := postRepo.UpdateFields(p.ID, map[string]interface{}{"last_comment_at": now}); err != nil {
			return err
		}
		created.Author = u
		comment, post, author = created, p, u
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CreateCommentResult{Comment: comment}
	credit, err := s.points.OnCommentCreated(ctx, author, comment)
	if err != nil {
		logger.Warnw("comment_create_credit_failed", "cid", comment.Cid, "author_uid", author.UID, "error", err)
	} else {
		result.Credit = credit
	}
	if post.AuthorID != author.ID {
		s.events.CommentCreated(ctx, post, comment)
	}
	return result, nil
}

// ListByPost 按楼层列出帖子评论；帖子对访问者不可见时返回 ErrForbidden
func (s *CommentService) ListByPost(ctx context.Context, viewer Viewer, pid string, page, pageSize int) ([]CommentView, int64, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, 0, err
	}
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	post, err := s.postRepo.WithTx(db).GetByPid(pid)
	if err != nil {
		return nil, 0, mapStorageError(db.Statement.Context, err)
	}
	if post == nil {
		return nil, 0, ErrPostNotFound
	}
	if Evaluate(viewer, AccessViewOf(post, policy, true)) == AccessTeaser {
		return nil, 0, ErrForbidden
	}
	comments, total, err := s.commentRepo.WithTx(db).ListByPost(repository.CommentListFilter{
		Page:     page,
		PageSize: pageSize,
		PostID:   post.ID,
	})
	if err != nil {
		return nil, 0, mapStorageError(db.Statement.Context, err)
	}
	views := make([]CommentView, 0, len(comments))
	for i := range comments {
		views = append(views, CommentView{Comment: &comments[i], ContentHTML: RenderMarkdown(comments[i].Content)})
	}
	return views, total, nil
}
