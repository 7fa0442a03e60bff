package service

import (
	"context"
	"strings"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"gorm.io/gorm"
)

// ReactInput 点赞/点踩输入
type ReactInput struct {
	TargetType string
	TargetRef  string
	Kind       string
}

// ReactResult 点赞/点踩结果
type ReactResult struct {
	Reaction *models.Reaction `json:"reaction"`
	Credit   *CreditResult    `json:"credit,omitempty"`
}

// ReactionService 点赞/点踩服务
type ReactionService struct {
	runner       txRunner
	userRepo     repository.UserRepository
	postRepo     repository.PostRepository
	commentRepo  repository.CommentRepository
	reactionRepo repository.ReactionRepository
	points       *PointService
	now          func() time.Time
}

// NewReactionService 创建点赞/点踩服务
func NewReactionService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, postRepo repository.PostRepository, commentRepo repository.CommentRepository, reactionRepo repository.ReactionRepository, points *PointService) *ReactionService {
	return &ReactionService{
		runner:       newTxRunner(db, retry),
		userRepo:     userRepo,
		postRepo:     postRepo,
		commentRepo:  commentRepo,
		reactionRepo: reactionRepo,
		points:       points,
		now:          time.Now,
	}
}

type reactionTarget struct {
	id       uint
	authorID uint
}

// React 对帖子或评论表态（每人每对象一次），随后给对象作者入账或扣减
func (s *ReactionService) React(ctx context.Context, uid string, input ReactInput) (*ReactResult, error) {
	targetType := strings.TrimSpace(input.TargetType)
	kind := strings.TrimSpace(input.Kind)
	targetRef := strings.TrimSpace(input.TargetRef)
	if targetRef == "" ||
		(targetType != constants.ReactionTargetPost && targetType != constants.ReactionTargetComment) ||
		(kind != constants.ReactionKindLike && kind != constants.ReactionKindDislike) {
		return nil, ErrReactionInvalid
	}
	var (
		reaction *models.Reaction
		target   reactionTarget
	)
	err := s.runner.run(ctx, "reaction_create", func(tx *gorm.DB) error {
		user, err := s.userRepo.WithTx(tx).GetByUID(uid)
		if err != nil {
			return err
		}
		if user == nil {
			return ErrUserNotFound
		}
		now := s.now()
		if user.IsBanned(now) {
			return ErrUserBanned
		}
		t, err := s.resolveTarget(tx, targetType, targetRef)
		if err != nil {
			return err
		}
		if t.authorID == user.ID {
			return ErrReactOwnContent
		}
		reactionRepo := s.reactionRepo.WithTx(tx)
		existing, err := reactionRepo.Get(user.ID, targetType, t.id)
		if err != nil {
			return err
		}
		if existing != nil {
			return ErrAlreadyReacted
		}
		created := &models.Reaction{
			UserID:     user.ID,
			TargetType: targetType,
			TargetID:   t.id,
			Kind:       kind,
			CreatedAt:  now,
		}
		if err := reactionRepo.Create(created); err != nil {
			logger.Debugw("reaction_create_conflict", "uid", uid, "target", targetRef, "error", err)
			return errVersionConflict
		}
		column := "like_count"
		if kind == constants.ReactionKindDislike {
			column = "dislike_count"
		}
		deltas := map[string]int64{column: 1}
		if targetType == constants.ReactionTargetPost {
			err = s.postRepo.WithTx(tx).IncrementColumns(t.id, deltas)
		} else {
			err = s.commentRepo.WithTx(tx).IncrementColumns(t.id, deltas)
		}
		if err != nil {
			return err
		}
		reaction, target = created, t
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ReactResult{Reaction: reaction}
	credit, err := s.points.OnReactionReceived(ctx, target.authorID, kind, targetType, targetRef, uid)
	if err != nil {
		logger.Warnw("reaction_credit_failed", "target_type", targetType, "target", targetRef, "kind", kind, "error", err)
	} else {
		result.Credit = credit
	}
	return result, nil
}

func (s *ReactionService) resolveTarget(tx *gorm.DB, targetType, ref string) (reactionTarget, error) {
	if targetType == constants.ReactionTargetPost {
		post, err := s.postRepo.WithTx(tx).GetByPid(ref)
		if err != nil {
			return reactionTarget{}, err
		}
		if post == nil {
			return reactionTarget{}, ErrPostNotFound
		}
		return reactionTarget{id: post.ID, authorID: post.AuthorID}, nil
	}
	comment, err := s.commentRepo.WithTx(tx).GetByCid(ref)
	if err != nil {
		return reactionTarget{}, err
	}
	if comment == nil {
		return reactionTarget{}, ErrCommentNotFound
	}
	return reactionTarget{id: comment.ID, authorID: comment.AuthorID}, nil
}
