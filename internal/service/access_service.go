package service

import (
	"context"
	"strings"
	"time"

	"github.com/forum-next/internal/logger"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"gorm.io/gorm"
)

// AccessDecision 帖子可见性判定结果
type AccessDecision string

const (
	AccessFullContent AccessDecision = "full_content"
	AccessTeaser      AccessDecision = "teaser"
	AccessPayWall     AccessDecision = "pay_wall"
)

// Viewer 访问者（匿名访问者 UID 为空，角色与等级均为 0）
type Viewer struct {
	UserID   uint
	UID      string
	RoleRank int
	Level    int
	CanMod   bool
}

// Anonymous 是否为匿名访问者
func (v Viewer) Anonymous() bool {
	return strings.TrimSpace(v.UID) == ""
}

// PostAccessView 判定所需的帖子属性
type PostAccessView struct {
	AuthorUID    string
	Hide         bool
	HideContent  string
	ReadRoleRank int
	MinLevel     int
	PayPoint     int64
	ViewerPaid   bool
}

// Evaluate 判定访问者对帖子的可见性（纯函数，按规则顺序短路）
func Evaluate(viewer Viewer, post PostAccessView) AccessDecision {
	if post.Hide && !viewer.CanMod {
		return AccessTeaser
	}
	if viewer.RoleRank < post.ReadRoleRank {
		return AccessTeaser
	}
	if viewer.Level < post.MinLevel {
		return AccessTeaser
	}
	isAuthor := !viewer.Anonymous() && viewer.UID == post.AuthorUID
	if post.PayPoint > 0 && !post.ViewerPaid && !isAuthor {
		return AccessPayWall
	}
	return AccessFullContent
}

// PostView 帖子详情视图
type PostView struct {
	Post        *models.Post   `json:"post"`
	Decision    AccessDecision `json:"decision"`
	ContentHTML string         `json:"content_html,omitempty"`
	Price       int64          `json:"price,omitempty"`
	Unlocked    bool           `json:"unlocked"`
}

// AccessService 帖子访问服务
type AccessService struct {
	runner   txRunner
	userRepo repository.UserRepository
	postRepo repository.PostRepository
	policy   *PointPolicyProvider
	now      func() time.Time
}

// NewAccessService 创建帖子访问服务
func NewAccessService(db *gorm.DB, retry RetryPolicy, userRepo repository.UserRepository, postRepo repository.PostRepository, policy *PointPolicyProvider) *AccessService {
	return &AccessService{
		runner:   newTxRunner(db, retry),
		userRepo: userRepo,
		postRepo: postRepo,
		policy:   policy,
		now:      time.Now,
	}
}

// ResolveViewer 根据用户标识构建访问者，空标识或用户不存在返回匿名访问者
// 封禁中的用户按匿名访问者对待
func (s *AccessService) ResolveViewer(ctx context.Context, uid string) (Viewer, error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return Viewer{}, nil
	}
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	user, err := s.userRepo.WithTx(db).GetByUID(uid)
	if err != nil {
		return Viewer{}, mapStorageError(db.Statement.Context, err)
	}
	if user == nil || user.IsBanned(s.now()) {
		return Viewer{}, nil
	}
	policy, err := s.policy.Current()
	if err != nil {
		return Viewer{}, err
	}
	return ViewerFromUser(user, policy), nil
}

// ViewerFromUser 由用户构建访问者，等级由当前余额推导
func ViewerFromUser(user *models.User, policy PointPolicy) Viewer {
	if user == nil {
		return Viewer{}
	}
	return Viewer{
		UserID:   user.ID,
		UID:      user.UID,
		RoleRank: policy.RoleRank(user.Role),
		Level:    policy.LevelOf(user.Point),
		CanMod:   policy.CanModerate(user.Role),
	}
}

// AccessViewOf 构建帖子的判定视图
func AccessViewOf(post *models.Post, policy PointPolicy, viewerPaid bool) PostAccessView {
	view := PostAccessView{
		Hide:         post.Hide,
		HideContent:  post.HideContent,
		ReadRoleRank: policy.RoleRank(post.ReadRole),
		MinLevel:     post.MinLevel,
		PayPoint:     post.PayPoint,
		ViewerPaid:   viewerPaid,
	}
	if post.Author != nil {
		view.AuthorUID = post.Author.UID
	}
	return view
}

// ViewPost 读取帖子并按访问者身份裁剪内容
func (s *AccessService) ViewPost(ctx context.Context, viewer Viewer, pid string) (*PostView, error) {
	policy, err := s.policy.Current()
	if err != nil {
		return nil, err
	}
	db, cancel := s.runner.reader(ctx)
	defer cancel()
	postRepo := s.postRepo.WithTx(db)
	post, err := postRepo.GetByPid(pid)
	if err != nil {
		return nil, mapStorageError(db.Statement.Context, err)
	}
	if post == nil {
		return nil, ErrPostNotFound
	}
	paid := false
	if !viewer.Anonymous() && viewer.UserID != 0 && post.PayPoint > 0 {
		unlock, err := postRepo.GetUnlock(post.ID, viewer.UserID)
		if err != nil {
			return nil, mapStorageError(db.Statement.Context, err)
		}
		paid = unlock != nil
	}

	decision := Evaluate(viewer, AccessViewOf(post, policy, paid))
	view := &PostView{Post: post, Decision: decision, Unlocked: paid}
	switch decision {
	case AccessFullContent:
		view.ContentHTML = RenderMarkdown(post.Content)
	case AccessPayWall:
		view.Price = post.PayPoint
	case AccessTeaser:
		if post.Hide && !viewer.CanMod {
			view.ContentHTML = RenderMarkdown(post.HideContent)
		}
	}

	if err := postRepo.IncrementColumns(post.ID, map[string]int64{"view_count": 1}); err != nil {
		logger.Warnw("post_view_count_increment_failed", "pid", post.Pid, "error", err)
	}
	return view, nil
}
