package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/repository"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type recordedEvents struct {
	mu             sync.Mutex
	balanceChanged []*models.PointLedgerEntry
	postUnlocked   []string
	inviteRedeemed []string
	commentCreated []string
}

func (r *recordedEvents) BalanceChanged(_ context.Context, entry *models.PointLedgerEntry) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.balanceChanged = append(r.balanceChanged, entry)
}

func (r *recordedEvents) PostUnlocked(_ context.Context, post *models.Post, _ uint, _ int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.postUnlocked = append(r.postUnlocked, post.Pid)
}

func (r *recordedEvents) InviteRedeemed(_ context.Context, invite *models.InviteCode, _ uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inviteRedeemed = append(r.inviteRedeemed, invite.Code)
}

func (r *recordedEvents) CommentCreated(_ context.Context, _ *models.Post, comment *models.Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commentCreated = append(r.commentCreated, comment.Cid)
}

func (r *recordedEvents) counts() (int, int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.balanceChanged), len(r.postUnlocked), len(r.inviteRedeemed), len(r.commentCreated)
}

type forumFixture struct {
	db         *gorm.DB
	events     *recordedEvents
	policy     *PointPolicyProvider
	ledger     *LedgerService
	points     *PointService
	access     *AccessService
	unlock     *UnlockService
	invites    *InviteService
	posts      *PostService
	comments   *CommentService
	reactions  *ReactionService
	messages   *MessageService
	history    *PointHistoryService
	moderation *ModerationService
}

func testPointPolicy() PointPolicy {
	policy := DefaultPointPolicy()
	policy.Location = time.UTC
	return policy
}

func setupForumTest(t *testing.T, policy PointPolicy) *forumFixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(models.AllModels()...); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	models.DB = db

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	messageRepo := repository.NewMessageRepository(db)
	tagRepo := repository.NewTagRepository(db)
	logRepo := repository.NewModerationLogRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	retry := RetryPolicy{Attempts: 8, BaseDelay: time.Millisecond, Timeout: 10 * time.Second}
	events := &recordedEvents{}
	provider := NewPointPolicyProvider(NewSettingService(settingRepo), policy, time.Minute)

	f := &forumFixture{db: db, events: events, policy: provider}
	f.ledger = NewLedgerService(db, retry, userRepo, ledgerRepo, provider, events, time.Minute)
	f.points = NewPointService(db, retry, f.ledger, ledgerRepo, provider)
	f.access = NewAccessService(db, retry, userRepo, postRepo, provider)
	f.unlock = NewUnlockService(db, retry, f.ledger, userRepo, postRepo, provider, events)
	f.invites = NewInviteService(db, retry, f.ledger, userRepo, inviteRepo, provider, events)
	f.posts = NewPostService(db, retry, userRepo, postRepo, tagRepo, f.points)
	f.comments = NewCommentService(db, retry, userRepo, postRepo, commentRepo, f.points, provider, events)
	f.reactions = NewReactionService(db, retry, userRepo, postRepo, commentRepo, reactionRepo, f.points)
	f.messages = NewMessageService(db, retry, userRepo, messageRepo)
	f.history = NewPointHistoryService(f.ledger, postRepo, commentRepo)
	f.moderation = NewModerationService(db, retry, userRepo, logRepo, f.ledger, f.posts, provider)
	return f
}

// setNow 固定所有服务的时钟
func (f *forumFixture) setNow(now time.Time) {
	clock := func() time.Time { return now }
	f.ledger.now = clock
	f.points.now = clock
	f.access.now = clock
	f.unlock.now = clock
	f.invites.now = clock
	f.posts.now = clock
	f.comments.now = clock
	f.reactions.now = clock
	f.messages.now = clock
	f.moderation.now = clock
}

func createForumUser(t *testing.T, db *gorm.DB, username string, role models.UserRole) *models.User {
	t.Helper()
	now := time.Now()
	user := &models.User{
		UID:          uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         role,
		Status:       constants.UserStatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

// fundUser 通过管理员调整为用户入账
func fundUser(t *testing.T, f *forumFixture, user *models.User, amount int64) {
	t.Helper()
	_, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   amount,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("fund user failed: %v", err)
	}
}

func createForumPost(t *testing.T, db *gorm.DB, author *models.User, mutate func(post *models.Post)) *models.Post {
	t.Helper()
	now := time.Now()
	post := &models.Post{
		Pid:       uuid.NewString(),
		AuthorID:  author.ID,
		Title:     "post by " + author.Username,
		Content:   "**hello** world",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if mutate != nil {
		mutate(post)
	}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	return post
}

func reloadUser(t *testing.T, db *gorm.DB, id uint) *models.User {
	t.Helper()
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		t.Fatalf("reload user failed: %v", err)
	}
	return &user
}

func countLedger(t *testing.T, db *gorm.DB, userID uint, reason models.PointReason) int64 {
	t.Helper()
	var count int64
	if err := db.Model(&models.PointLedgerEntry{}).Where("user_id = ? AND reason = ?", userID, reason).Count(&count).Error; err != nil {
		t.Fatalf("count ledger failed: %v", err)
	}
	return count
}
