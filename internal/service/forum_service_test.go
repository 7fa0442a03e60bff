package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
	"github.com/forum-next/internal/queue"
	"github.com/forum-next/internal/repository"
)

func TestCreatePostCreditsAuthor(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	author := createForumUser(t, f.db, "poster", models.RoleMember)

	result, err := f.posts.Create(context.Background(), author.UID, CreatePostInput{
		Title:    "hello",
		Content:  "first post",
		PayPoint: 10,
	})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	if result.Post.Pid == "" || result.Credit == nil || result.Credit.Delta != 5 {
		t.Fatalf("unexpected create result: %+v", result)
	}
	if got := reloadUser(t, f.db, author.ID).Point; got != 5 {
		t.Fatalf("author balance want 5 got %d", got)
	}
	if _, err := f.posts.Create(context.Background(), author.UID, CreatePostInput{Title: " ", Content: "x"}); !errors.Is(err, ErrPostInvalid) {
		t.Fatalf("blank title want ErrPostInvalid got %v", err)
	}
	if _, err := f.posts.Create(context.Background(), author.UID, CreatePostInput{Title: "t", Content: "x", ReadRole: "root"}); !errors.Is(err, ErrInvalidRole) {
		t.Fatalf("unknown read role want ErrInvalidRole got %v", err)
	}

	other := createForumUser(t, f.db, "lurker", models.RoleMember)
	viewer := ViewerFromUser(other, testPointPolicy())
	items, total, err := f.posts.List(context.Background(), viewer, repository.PostListFilter{Page: 1, PageSize: 10})
	if err != nil || total != 1 || len(items) != 1 {
		t.Fatalf("list unexpected: total=%d err=%v", total, err)
	}
	if !items[0].Locked || items[0].Paid {
		t.Fatalf("paid post should be listed as locked: %+v", items[0])
	}
}

func TestCommentFloorsAndNotification(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	author := createForumUser(t, f.db, "poster", models.RoleMember)
	replier := createForumUser(t, f.db, "replier", models.RoleMember)
	post := createForumPost(t, f.db, author, nil)

	for i := 1; i <= 3; i++ {
		result, err := f.comments.Create(context.Background(), replier.UID, post.Pid, "reply")
		if err != nil {
			t.Fatalf("comment %d failed: %v", i, err)
		}
		if result.Comment.Floor != i {
			t.Fatalf("floor want %d got %d", i, result.Comment.Floor)
		}
	}
	if _, err := f.comments.Create(context.Background(), author.UID, post.Pid, "own reply"); err != nil {
		t.Fatalf("author comment failed: %v", err)
	}
	var reloaded models.Post
	f.db.First(&reloaded, post.ID)
	if reloaded.ReplyCount != 4 || reloaded.LastCommentAt == nil {
		t.Fatalf("unexpected post counters: %+v", reloaded)
	}
	if got := reloadUser(t, f.db, replier.ID).Point; got != 6 {
		t.Fatalf("replier balance want 6 got %d", got)
	}
	if _, _, _, commentEvents := f.events.counts(); commentEvents != 3 {
		t.Fatalf("author's own reply should not notify, events=%d", commentEvents)
	}

	views, total, err := f.comments.ListByPost(context.Background(), Viewer{}, post.Pid, 1, 10)
	if err != nil || total != 4 || views[0].Comment.Floor != 1 {
		t.Fatalf("list comments unexpected: total=%d err=%v", total, err)
	}
	if _, err := f.comments.Create(context.Background(), replier.UID, post.Pid, "   "); !errors.Is(err, ErrCommentInvalid) {
		t.Fatalf("blank comment want ErrCommentInvalid got %v", err)
	}
}

func TestReactionCreditsTargetAuthor(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	author := createForumUser(t, f.db, "poster", models.RoleMember)
	fan := createForumUser(t, f.db, "fan", models.RoleMember)
	post := createForumPost(t, f.db, author, nil)

	input := ReactInput{TargetType: constants.ReactionTargetPost, TargetRef: post.Pid, Kind: constants.ReactionKindLike}
	result, err := f.reactions.React(context.Background(), fan.UID, input)
	if err != nil {
		t.Fatalf("react failed: %v", err)
	}
	if result.Credit == nil || result.Credit.Delta != 1 {
		t.Fatalf("like should credit author: %+v", result.Credit)
	}
	if _, err := f.reactions.React(context.Background(), fan.UID, input); !errors.Is(err, ErrAlreadyReacted) {
		t.Fatalf("repeat reaction want ErrAlreadyReacted got %v", err)
	}
	if _, err := f.reactions.React(context.Background(), author.UID, input); !errors.Is(err, ErrReactOwnContent) {
		t.Fatalf("own content want ErrReactOwnContent got %v", err)
	}
	if _, err := f.reactions.React(context.Background(), fan.UID, ReactInput{TargetType: "user", TargetRef: "x", Kind: "like"}); !errors.Is(err, ErrReactionInvalid) {
		t.Fatalf("bad target want ErrReactionInvalid got %v", err)
	}
	var reloaded models.Post
	f.db.First(&reloaded, post.ID)
	if reloaded.LikeCount != 1 {
		t.Fatalf("like count want 1 got %d", reloaded.LikeCount)
	}
	if got := reloadUser(t, f.db, author.ID).Point; got != 1 {
		t.Fatalf("author balance want 1 got %d", got)
	}
}

func TestModerationBanAdjustAndLog(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	f.setNow(now)
	admin := createForumUser(t, f.db, "admin", models.RoleAdmin)
	member := createForumUser(t, f.db, "member", models.RoleMember)
	op := Operator{UserID: admin.ID, UID: admin.UID, RequestID: "req-1"}
	ctx := context.Background()

	end := now.Add(24 * time.Hour)
	if _, err := f.moderation.Ban(ctx, op, member.UID, &end, "spam"); err != nil {
		t.Fatalf("ban failed: %v", err)
	}
	if _, err := f.posts.Create(ctx, member.UID, CreatePostInput{Title: "t", Content: "c"}); !errors.Is(err, ErrUserBanned) {
		t.Fatalf("banned user post want ErrUserBanned got %v", err)
	}
	f.setNow(end)
	if _, err := f.posts.Create(ctx, member.UID, CreatePostInput{Title: "t", Content: "c"}); err != nil {
		t.Fatalf("ban should expire at bannedEnd: %v", err)
	}

	entry, err := f.moderation.AdjustPoints(ctx, op, member.UID, -3, "penalty")
	if err != nil {
		t.Fatalf("adjust failed: %v", err)
	}
	if entry.BalanceAfter != 2 || entry.Reason != models.PointReasonAdminAdjust {
		t.Fatalf("unexpected adjust entry: %+v", entry)
	}
	if _, err := f.moderation.AdjustPoints(ctx, op, member.UID, 0, ""); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero adjust want ErrInvalidAmount got %v", err)
	}
	if _, err := f.moderation.SetRole(ctx, op, member.UID, "moderator"); err != nil {
		t.Fatalf("set role failed: %v", err)
	}
	if got := reloadUser(t, f.db, member.ID).Role; got != models.RoleModerator {
		t.Fatalf("role want moderator got %s", got)
	}

	logs, total, err := f.moderation.ListLogs(repository.ModerationLogListFilter{Page: 1, PageSize: 20, TargetID: member.UID})
	if err != nil || total != 3 || len(logs) != 3 {
		t.Fatalf("moderation logs unexpected: total=%d err=%v", total, err)
	}
}

func TestUpdatePointsConfigOverridesDefaults(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	admin := createForumUser(t, f.db, "admin", models.RoleAdmin)
	op := Operator{UserID: admin.ID, UID: admin.UID}

	if _, err := f.moderation.UpdatePointsConfig(op, map[string]interface{}{
		constants.SettingFieldPointPerPost:    float64(9),
		constants.SettingFieldLevelThresholds: []interface{}{float64(100), float64(5)},
	}); err != nil {
		t.Fatalf("update config failed: %v", err)
	}
	policy, err := f.policy.Current()
	if err != nil {
		t.Fatalf("load policy failed: %v", err)
	}
	if policy.PostCreate != 9 || len(policy.LevelThresholds) != 2 || policy.LevelThresholds[0] != 5 {
		t.Fatalf("unexpected merged policy: %+v", policy)
	}
	if policy.CommentCreate != 2 {
		t.Fatalf("unspecified fields keep defaults, got %d", policy.CommentCreate)
	}
}

func TestPointHistoryJoinsPostTitles(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	author := createForumUser(t, f.db, "poster", models.RoleMember)
	result, err := f.posts.Create(context.Background(), author.UID, CreatePostInput{Title: "titled", Content: "body"})
	if err != nil {
		t.Fatalf("create post failed: %v", err)
	}
	if _, err := f.comments.Create(context.Background(), author.UID, result.Post.Pid, "self reply"); err != nil {
		t.Fatalf("comment failed: %v", err)
	}

	dto, err := f.history.History(context.Background(), author.UID, "", 10)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(dto.Items) != 2 {
		t.Fatalf("want 2 history items got %d", len(dto.Items))
	}
	for _, item := range dto.Items {
		if item.PostTitle != "titled" || item.PostPid != result.Post.Pid {
			t.Fatalf("history item missing post title: %+v", item)
		}
	}
	if dto.Items[0].CommentCid == "" {
		t.Fatalf("newest item should reference the comment")
	}
}

func TestMessageProjectionDedupes(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "reader", models.RoleMember)
	payload := queue.BalanceChangedPayload{
		UserID:       user.ID,
		EntryID:      "pl_test",
		Delta:        5,
		BalanceAfter: 5,
		Reason:       string(models.PointReasonPostCreate),
	}
	for i := 0; i < 2; i++ {
		if err := f.messages.ProjectBalanceChanged(payload); err != nil {
			t.Fatalf("project failed: %v", err)
		}
	}
	page, err := f.messages.List(context.Background(), user.UID, false, 1, 10)
	if err != nil {
		t.Fatalf("list messages failed: %v", err)
	}
	if page.Total != 1 || page.Unread != 1 {
		t.Fatalf("duplicate delivery should be dropped: %+v", page)
	}
	if err := f.messages.MarkRead(context.Background(), user.UID, page.Messages[0].ID); err != nil {
		t.Fatalf("mark read failed: %v", err)
	}
	if err := f.messages.MarkRead(context.Background(), user.UID, 9999); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("missing message want ErrMessageNotFound got %v", err)
	}
	page, _ = f.messages.List(context.Background(), user.UID, true, 1, 10)
	if page.Total != 0 || page.Unread != 0 {
		t.Fatalf("unread should be zero after mark read: %+v", page)
	}
}
