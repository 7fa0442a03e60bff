package public

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/provider"
	"github.com/forum-next/internal/repository"
	"github.com/forum-next/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type publicTestResponse struct {
	StatusCode int             `json:"status_code"`
	Msg        string          `json:"msg"`
	Data       json.RawMessage `json:"data"`
}

func setupPublicHandlerTest(t *testing.T) (*Handler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:public_handler_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
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

	userRepo := repository.NewUserRepository(db)
	ledgerRepo := repository.NewLedgerRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	tagRepo := repository.NewTagRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	settingRepo := repository.NewSettingRepository(db)

	policy := service.DefaultPointPolicy()
	policy.Location = time.UTC
	retry := service.RetryPolicy{Attempts: 8, BaseDelay: time.Millisecond, Timeout: 10 * time.Second}
	policies := service.NewPointPolicyProvider(service.NewSettingService(settingRepo), policy, time.Minute)

	c := &provider.Container{
		UserRepo:       userRepo,
		PostRepo:       postRepo,
		PolicyProvider: policies,
	}
	c.LedgerService = service.NewLedgerService(db, retry, userRepo, ledgerRepo, policies, nil, time.Minute)
	c.PointService = service.NewPointService(db, retry, c.LedgerService, ledgerRepo, policies)
	c.AccessService = service.NewAccessService(db, retry, userRepo, postRepo, policies)
	c.UnlockService = service.NewUnlockService(db, retry, c.LedgerService, userRepo, postRepo, policies, nil)
	c.PostService = service.NewPostService(db, retry, userRepo, postRepo, tagRepo, c.PointService)
	c.PointHistoryService = service.NewPointHistoryService(c.LedgerService, postRepo, commentRepo)
	c.InviteService = service.NewInviteService(db, retry, c.LedgerService, userRepo, inviteRepo, policies, nil)
	return New(c), db
}

func createPublicTestUser(t *testing.T, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{
		UID:          uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "hash",
		Role:         models.RoleMember,
		Status:       constants.UserStatusActive,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("create user failed: %v", err)
	}
	return user
}

// withUser 模拟鉴权中间件写入的上下文
func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(constants.ContextKeyUserID, user.ID)
			c.Set(constants.ContextKeyUserUID, user.UID)
			c.Set(constants.ContextKeyUserRole, string(user.Role))
		}
		c.Next()
	}
}

func performPublicRequest(t *testing.T, user *models.User, method, path, route string, handler gin.HandlerFunc, body interface{}) publicTestResponse {
	t.Helper()
	r := gin.New()
	r.Handle(method, route, withUser(user), handler)

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body failed: %v", err)
		}
		payload = raw
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("http status want 200 got %d", w.Code)
	}
	var resp publicTestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal response failed: %v", err)
	}
	return resp
}

func TestUnlockPostHandlerFlow(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	author := createPublicTestUser(t, db, "author")
	reader := createPublicTestUser(t, db, "reader")
	if _, err := h.LedgerService.Append(context.Background(), service.LedgerAppendInput{
		UID:     reader.UID,
		Delta:   50,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   "fund",
	}); err != nil {
		t.Fatalf("fund reader failed: %v", err)
	}
	post := &models.Post{Pid: uuid.NewString(), AuthorID: author.ID, Title: "paid", Content: "secret body", PayPoint: 10}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post failed: %v", err)
	}

	resp := performPublicRequest(t, reader, http.MethodGet, "/posts/"+post.Pid, "/posts/:pid", h.GetPost, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("get post status want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var view service.PostView
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if view.Decision != service.AccessPayWall || view.Price != 10 {
		t.Fatalf("expected pay wall with price 10, got %s/%d", view.Decision, view.Price)
	}

	resp = performPublicRequest(t, reader, http.MethodPost, "/posts/"+post.Pid+"/unlock", "/posts/:pid/unlock", h.UnlockPost, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("unlock status want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var result service.UnlockResult
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode unlock failed: %v", err)
	}
	if result.AlreadyUnlocked || result.Price != 10 || result.Balance != 40 {
		t.Fatalf("unexpected unlock result: %+v", result)
	}

	resp = performPublicRequest(t, reader, http.MethodPost, "/posts/"+post.Pid+"/unlock", "/posts/:pid/unlock", h.UnlockPost, nil)
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		t.Fatalf("decode repeat unlock failed: %v", err)
	}
	if resp.StatusCode != 0 || !result.AlreadyUnlocked || result.Balance != 40 {
		t.Fatalf("repeat unlock should be idempotent, got %d %+v", resp.StatusCode, result)
	}

	resp = performPublicRequest(t, reader, http.MethodGet, "/posts/"+post.Pid, "/posts/:pid", h.GetPost, nil)
	if err := json.Unmarshal(resp.Data, &view); err != nil {
		t.Fatalf("decode view failed: %v", err)
	}
	if view.Decision != service.AccessFullContent || !view.Unlocked {
		t.Fatalf("expected full content after unlock, got %s unlocked=%v", view.Decision, view.Unlocked)
	}
}

func TestUnlockPostInsufficientBalance(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	author := createPublicTestUser(t, db, "author")
	reader := createPublicTestUser(t, db, "poor_reader")
	post := &models.Post{Pid: uuid.NewString(), AuthorID: author.ID, Title: "paid", Content: "body", PayPoint: 30}
	if err := db.Create(post).Error; err != nil {
		t.Fatalf("create post failed: %v", err)
	}

	resp := performPublicRequest(t, reader, http.MethodPost, "/posts/"+post.Pid+"/unlock", "/posts/:pid/unlock", h.UnlockPost, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("expected 400 for insufficient balance, got %d", resp.StatusCode)
	}
	var count int64
	if err := db.Model(&models.PostUnlock{}).Count(&count).Error; err != nil {
		t.Fatalf("count unlocks failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("no unlock should be recorded, got %d", count)
	}
}

func TestCreatePostRequiresLogin(t *testing.T) {
	h, _ := setupPublicHandlerTest(t)
	resp := performPublicRequest(t, nil, http.MethodPost, "/posts", "/posts", h.CreatePost, map[string]interface{}{
		"title":   "hello",
		"content": "world",
	})
	if resp.StatusCode != 401 {
		t.Fatalf("expected 401 without login, got %d", resp.StatusCode)
	}
}

func TestSignInHandlerIsDailyIdempotent(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	user := createPublicTestUser(t, db, "signer")

	var first service.SignInResult
	resp := performPublicRequest(t, user, http.MethodPost, "/me/sign-in", "/me/sign-in", h.SignIn, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("sign in status want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	if err := json.Unmarshal(resp.Data, &first); err != nil {
		t.Fatalf("decode sign in failed: %v", err)
	}
	if first.AlreadySigned || first.Reward <= 0 {
		t.Fatalf("unexpected first sign in: %+v", first)
	}

	var second service.SignInResult
	resp = performPublicRequest(t, user, http.MethodPost, "/me/sign-in", "/me/sign-in", h.SignIn, nil)
	if err := json.Unmarshal(resp.Data, &second); err != nil {
		t.Fatalf("decode repeat sign in failed: %v", err)
	}
	if !second.AlreadySigned {
		t.Fatalf("second sign in should be marked already signed")
	}

	resp = performPublicRequest(t, user, http.MethodGet, "/me/points/history", "/me/points/history", h.GetMyPointHistory, nil)
	if resp.StatusCode != 0 {
		t.Fatalf("history status want 0 got %d", resp.StatusCode)
	}
	var count int64
	if err := db.Model(&models.PointLedgerEntry{}).Where("user_id = ?", user.ID).Count(&count).Error; err != nil {
		t.Fatalf("count ledger failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one sign in entry, got %d", count)
	}
}

func TestIssueInviteChargesConfiguredCost(t *testing.T) {
	h, db := setupPublicHandlerTest(t)
	issuer := createPublicTestUser(t, db, "issuer")
	if _, err := h.LedgerService.Append(context.Background(), service.LedgerAppendInput{
		UID:     issuer.UID,
		Delta:   150,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   "fund",
	}); err != nil {
		t.Fatalf("fund issuer failed: %v", err)
	}

	resp := performPublicRequest(t, issuer, http.MethodPost, "/invites", "/invites", h.IssueInvite, map[string]interface{}{"cost": 1})
	if resp.StatusCode != 0 {
		t.Fatalf("issue status want 0 got %d (%s)", resp.StatusCode, resp.Msg)
	}
	var invite models.InviteCode
	if err := json.Unmarshal(resp.Data, &invite); err != nil {
		t.Fatalf("decode invite failed: %v", err)
	}
	if invite.Cost != 100 || invite.Code == "" {
		t.Fatalf("invite must cost the configured 100, got %+v", invite)
	}
	var user models.User
	if err := db.First(&user, issuer.ID).Error; err != nil {
		t.Fatalf("reload issuer failed: %v", err)
	}
	if user.Point != 50 {
		t.Fatalf("issuer balance want 50 got %d", user.Point)
	}

	resp = performPublicRequest(t, issuer, http.MethodPost, "/invites", "/invites", h.IssueInvite, nil)
	if resp.StatusCode != 400 {
		t.Fatalf("second issue should fail on balance, got %d", resp.StatusCode)
	}
}
