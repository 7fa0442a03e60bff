package service

import (
	"context"
	"strings"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"
)

// PointHistoryItem 积分流水展示项（附带关联帖子/评论标题）
type PointHistoryItem struct {
	EntryID      string             `json:"entry_id"`
	Delta        int64              `json:"delta"`
	Reason       models.PointReason `json:"reason"`
	RefType      string             `json:"ref_type"`
	RefID        string             `json:"ref_id"`
	DayKey       string             `json:"day_key"`
	BalanceAfter int64              `json:"balance_after"`
	Remark       string             `json:"remark"`
	PostPid      string             `json:"post_pid,omitempty"`
	PostTitle    string             `json:"post_title,omitempty"`
	CommentCid   string             `json:"comment_cid,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// PointHistoryDTO 积分流水分页展示
type PointHistoryDTO struct {
	Items      []PointHistoryItem `json:"items"`
	NextCursor string             `json:"next_cursor"`
	HasMore    bool               `json:"has_more"`
}

// PointHistoryService 积分流水展示服务
type PointHistoryService struct {
	ledger      *LedgerService
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
}

// NewPointHistoryService 创建积分流水展示服务
func NewPointHistoryService(ledger *LedgerService, postRepo repository.PostRepository, commentRepo repository.CommentRepository) *PointHistoryService {
	return &PointHistoryService{ledger: ledger, postRepo: postRepo, commentRepo: commentRepo}
}

// refObjectID 去掉关联标识中的附加部分（pid#uid）
func refObjectID(refID string) string {
	if idx := strings.IndexByte(refID, '#'); idx >= 0 {
		return refID[:idx]
	}
	return refID
}

// History 分页读取流水并补全关联标题
func (s *PointHistoryService) History(ctx context.Context, uid, cursor string, pageSize int) (*PointHistoryDTO, error) {
	page, err := s.ledger.HistoryOf(ctx, uid, cursor, pageSize)
	if err != nil {
		return nil, err
	}
	pidSet := make(map[string]struct{})
	cidSet := make(map[string]struct{})
	for _, entry := range page.Entries {
		ref := refObjectID(entry.RefID)
		switch entry.RefType {
		case constants.LedgerRefTypePost:
			pidSet[ref] = struct{}{}
		case constants.LedgerRefTypeComment:
			cidSet[ref] = struct{}{}
		}
	}

	db, cancel := s.ledger.runner.reader(ctx)
	defer cancel()
	titles := make(map[string]string, len(pidSet))
	if len(pidSet) > 0 {
		posts, err := s.postRepo.WithTx(db).ListByPids(setKeys(pidSet))
		if err != nil {
			return nil, mapStorageError(db.Statement.Context, err)
		}
		for _, post := range posts {
			titles[post.Pid] = post.Title
		}
	}
	commentPosts := make(map[string]*models.Post, len(cidSet))
	if len(cidSet) > 0 {
		comments, err := s.commentRepo.WithTx(db).ListByCids(setKeys(cidSet))
		if err != nil {
			return nil, mapStorageError(db.Statement.Context, err)
		}
		for i := range comments {
			commentPosts[comments[i].Cid] = comments[i].Post
		}
	}

	dto := &PointHistoryDTO{
		Items:      make([]PointHistoryItem, 0, len(page.Entries)),
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
	}
	for _, entry := range page.Entries {
		item := PointHistoryItem{
			EntryID:      entry.EntryID,
			Delta:        entry.Delta,
			Reason:       entry.Reason,
			RefType:      entry.RefType,
			RefID:        entry.RefID,
			DayKey:       entry.DayKey,
			BalanceAfter: entry.BalanceAfter,
			Remark:       entry.Remark,
			CreatedAt:    entry.CreatedAt,
		}
		ref := refObjectID(entry.RefID)
		switch entry.RefType {
		case constants.LedgerRefTypePost:
			item.PostPid = ref
			item.PostTitle = titles[ref]
		case constants.LedgerRefTypeComment:
			item.CommentCid = ref
			if post := commentPosts[ref]; post != nil {
				item.PostPid = post.Pid
				item.PostTitle = post.Title
			}
		}
		dto.Items = append(dto.Items, item)
	}
	return dto, nil
}

func setKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	return keys
}
