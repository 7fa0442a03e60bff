package service

import (
	"context"
	"strings"
	"testing"

	"github.com/forum-next/internal/models"
)

func TestEvaluateRules(t *testing.T) {
	author := Viewer{UserID: 1, UID: "author", RoleRank: 1, Level: 1}
	member := Viewer{UserID: 2, UID: "member", RoleRank: 1, Level: 3}
	moderator := Viewer{UserID: 3, UID: "mod", RoleRank: 2, Level: 0, CanMod: true}
	anonymous := Viewer{}

	cases := []struct {
		name   string
		viewer Viewer
		post   PostAccessView
		want   AccessDecision
	}{
		{"public free post for anonymous", anonymous, PostAccessView{AuthorUID: "author"}, AccessFullContent},
		{"member-only post for anonymous", anonymous, PostAccessView{AuthorUID: "author", ReadRoleRank: 1}, AccessTeaser},
		{"hidden post for member", member, PostAccessView{AuthorUID: "author", Hide: true}, AccessTeaser},
		{"hidden post for moderator", moderator, PostAccessView{AuthorUID: "author", Hide: true}, AccessFullContent},
		{"moderator-only post for high level member", member, PostAccessView{AuthorUID: "author", ReadRoleRank: 2, PayPoint: 10}, AccessTeaser},
		{"level below minimum", member, PostAccessView{AuthorUID: "author", MinLevel: 4}, AccessTeaser},
		{"level equal to minimum", member, PostAccessView{AuthorUID: "author", MinLevel: 3}, AccessFullContent},
		{"paid post not unlocked", member, PostAccessView{AuthorUID: "author", PayPoint: 10}, AccessPayWall},
		{"paid post unlocked", member, PostAccessView{AuthorUID: "author", PayPoint: 10, ViewerPaid: true}, AccessFullContent},
		{"paid post for author", author, PostAccessView{AuthorUID: "author", PayPoint: 10}, AccessFullContent},
		{"paid post for anonymous", anonymous, PostAccessView{AuthorUID: "author", PayPoint: 10}, AccessPayWall},
		{"level gate before pay wall", member, PostAccessView{AuthorUID: "author", MinLevel: 9, PayPoint: 10}, AccessTeaser},
	}
	for _, tc := range cases {
		if got := Evaluate(tc.viewer, tc.post); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.name, tc.want, got)
		}
	}
}

func TestViewerFromUserUsesConfiguredRanks(t *testing.T) {
	policy := testPointPolicy()
	policy.RoleRanks = map[models.UserRole]int{models.RoleMember: 5, models.RoleModerator: 1, models.RoleAdmin: 9}
	viewer := ViewerFromUser(&models.User{UID: "u", Role: models.RoleModerator, Point: 60}, policy)
	if viewer.RoleRank != 1 || viewer.Level != 3 || !viewer.CanMod {
		t.Fatalf("unexpected viewer: %+v", viewer)
	}
	view := AccessViewOf(&models.Post{ReadRole: models.RoleMember}, policy, false)
	if Evaluate(viewer, view) != AccessTeaser {
		t.Fatalf("rank ordering must follow configuration, not role identity")
	}
}

func TestHiddenPostExemptionFollowsConfiguredRanks(t *testing.T) {
	policy := testPointPolicy()
	policy.RoleRanks = map[models.UserRole]int{models.RoleMember: 1, models.RoleModerator: 4, models.RoleAdmin: 3}
	hidden := AccessViewOf(&models.Post{Hide: true, HideContent: "removed"}, policy, false)

	cases := []struct {
		role models.UserRole
		want AccessDecision
	}{
		{models.RoleMember, AccessTeaser},
		{models.RoleAdmin, AccessTeaser},
		{models.RoleModerator, AccessFullContent},
	}
	for _, tc := range cases {
		viewer := ViewerFromUser(&models.User{UID: "u-" + string(tc.role), Role: tc.role}, policy)
		if got := Evaluate(viewer, hidden); got != tc.want {
			t.Fatalf("%s: want %s got %s", tc.role, tc.want, got)
		}
	}

	policy.RoleRanks = DefaultPointPolicy().RoleRanks
	if !policy.CanModerate(models.RoleAdmin) || policy.CanModerate(models.RoleMember) {
		t.Fatalf("default ranks: admin moderates, member does not")
	}
}

func TestViewPostShapesContent(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	author := createForumUser(t, f.db, "writer", models.RoleMember)
	reader := createForumUser(t, f.db, "reader", models.RoleMember)
	free := createForumPost(t, f.db, author, func(post *models.Post) {
		post.Content = "**bold** <script>alert(1)</script>"
	})
	paid := createForumPost(t, f.db, author, func(post *models.Post) {
		post.PayPoint = 20
	})
	hidden := createForumPost(t, f.db, author, func(post *models.Post) {
		post.Hide = true
		post.HideContent = "removed by moderator"
	})

	ctx := context.Background()
	viewer, err := f.access.ResolveViewer(ctx, reader.UID)
	if err != nil {
		t.Fatalf("resolve viewer failed: %v", err)
	}

	view, err := f.access.ViewPost(ctx, viewer, free.Pid)
	if err != nil {
		t.Fatalf("view free post failed: %v", err)
	}
	if view.Decision != AccessFullContent || !strings.Contains(view.ContentHTML, "<strong>bold</strong>") || strings.Contains(view.ContentHTML, "<script>") {
		t.Fatalf("unexpected free view: %+v", view)
	}

	view, err = f.access.ViewPost(ctx, viewer, paid.Pid)
	if err != nil {
		t.Fatalf("view paid post failed: %v", err)
	}
	if view.Decision != AccessPayWall || view.Price != 20 || view.ContentHTML != "" {
		t.Fatalf("unexpected pay wall view: %+v", view)
	}

	view, err = f.access.ViewPost(ctx, viewer, hidden.Pid)
	if err != nil {
		t.Fatalf("view hidden post failed: %v", err)
	}
	if view.Decision != AccessTeaser || !strings.Contains(view.ContentHTML, "removed by moderator") {
		t.Fatalf("unexpected hidden view: %+v", view)
	}

	if _, err := f.access.ViewPost(ctx, viewer, "missing"); err != ErrPostNotFound {
		t.Fatalf("want ErrPostNotFound got %v", err)
	}
}

func TestResolveViewerTreatsBannedAsAnonymous(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "banned", models.RoleModerator)
	if err := f.db.Model(&models.User{}).Where("id = ?", user.ID).Update("status", "banned").Error; err != nil {
		t.Fatalf("ban failed: %v", err)
	}
	viewer, err := f.access.ResolveViewer(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("resolve viewer failed: %v", err)
	}
	if !viewer.Anonymous() || viewer.RoleRank != 0 {
		t.Fatalf("banned user should resolve as anonymous: %+v", viewer)
	}
}
