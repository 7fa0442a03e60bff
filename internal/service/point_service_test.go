package service

import (
	"context"
	"testing"
	"time"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
)

func TestLevelOfBoundaries(t *testing.T) {
	policy := testPointPolicy()
	policy.LevelThresholds = []int64{10, 20, 50}
	cases := map[int64]int{0: 0, 9: 0, 10: 1, 19: 1, 20: 2, 49: 2, 50: 3, 100000: 3}
	for balance, want := range cases {
		if got := policy.LevelOf(balance); got != want {
			t.Fatalf("balance %d: want level %d got %d", balance, want, got)
		}
	}
	prev := 0
	for balance := int64(0); balance < 80; balance++ {
		level := policy.LevelOf(balance)
		if level < prev {
			t.Fatalf("level must be monotonic: balance %d level %d prev %d", balance, level, prev)
		}
		prev = level
	}
}

func TestCreditClampsToDailyCap(t *testing.T) {
	policy := testPointPolicy()
	policy.PostCreate = 5
	policy.PostCreateByDay = 12
	f := setupForumTest(t, policy)
	f.setNow(time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	user := createForumUser(t, f.db, "ivan", models.RoleMember)

	wantDeltas := []int64{5, 5, 2, 0}
	for idx, want := range wantDeltas {
		result, err := f.points.Credit(context.Background(), CreditInput{
			UID:     user.UID,
			Reason:  models.PointReasonPostCreate,
			Amount:  policy.PostCreate,
			RefType: constants.LedgerRefTypePost,
			RefID:   string(rune('a' + idx)),
		})
		if err != nil {
			t.Fatalf("credit %d failed: %v", idx, err)
		}
		if result.Delta != want {
			t.Fatalf("credit %d: want delta %d got %d", idx, want, result.Delta)
		}
		if result.Capped != (want < policy.PostCreate) {
			t.Fatalf("credit %d: capped flag mismatch", idx)
		}
		if result.Entry == nil {
			t.Fatalf("credit %d: capped reason should still record an entry", idx)
		}
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 12 {
		t.Fatalf("balance want 12 got %d", got)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonPostCreate); got != 4 {
		t.Fatalf("ledger rows want 4 got %d", got)
	}

	f.setNow(time.Date(2026, 3, 2, 0, 0, 1, 0, time.UTC))
	result, err := f.points.Credit(context.Background(), CreditInput{
		UID:     user.UID,
		Reason:  models.PointReasonPostCreate,
		Amount:  policy.PostCreate,
		RefType: constants.LedgerRefTypePost,
		RefID:   "next-day",
	})
	if err != nil {
		t.Fatalf("next day credit failed: %v", err)
	}
	if result.Delta != 5 || result.Entry.DayKey != "2026-03-02" {
		t.Fatalf("cap should reset next day: %+v", result.Entry)
	}
}

func TestCreditIsIdempotentPerReference(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "judy", models.RoleMember)
	input := CreditInput{
		UID:     user.UID,
		Reason:  models.PointReasonCommentCreate,
		Amount:  2,
		RefType: constants.LedgerRefTypeComment,
		RefID:   "c1",
	}
	if _, err := f.points.Credit(context.Background(), input); err != nil {
		t.Fatalf("first credit failed: %v", err)
	}
	result, err := f.points.Credit(context.Background(), input)
	if err != nil {
		t.Fatalf("second credit failed: %v", err)
	}
	if !result.Duplicate {
		t.Fatalf("repeat credit should be reported as duplicate")
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 2 {
		t.Fatalf("balance want 2 got %d", got)
	}
}

func TestDislikePenaltyClampedToBalance(t *testing.T) {
	policy := testPointPolicy()
	policy.LikeOrDislike = 5
	f := setupForumTest(t, policy)
	broke := createForumUser(t, f.db, "broke", models.RoleMember)
	rich := createForumUser(t, f.db, "rich", models.RoleMember)
	fundUser(t, f, rich, 3)

	result, err := f.points.OnReactionReceived(context.Background(), broke.ID, constants.ReactionKindDislike, constants.ReactionTargetPost, "p1", "reactor")
	if err != nil {
		t.Fatalf("dislike on empty balance failed: %v", err)
	}
	if result.Delta != 0 || result.Entry != nil {
		t.Fatalf("penalty on empty balance should write nothing: %+v", result)
	}

	result, err = f.points.OnReactionReceived(context.Background(), rich.ID, constants.ReactionKindDislike, constants.ReactionTargetPost, "p1", "reactor")
	if err != nil {
		t.Fatalf("dislike failed: %v", err)
	}
	if result.Delta != -3 || !result.Capped {
		t.Fatalf("penalty should clamp to balance: %+v", result)
	}
	if got := reloadUser(t, f.db, rich.ID).Point; got != 0 {
		t.Fatalf("balance want 0 got %d", got)
	}
}

func TestSignInOncePerDay(t *testing.T) {
	policy := testPointPolicy()
	policy.SignInMin = 3
	policy.SignInMax = 8
	f := setupForumTest(t, policy)
	f.setNow(time.Date(2026, 5, 20, 23, 30, 0, 0, time.UTC))
	f.points.randInt63n = func(n int64) int64 {
		if n != 6 {
			t.Fatalf("random span want 6 got %d", n)
		}
		return 4
	}
	user := createForumUser(t, f.db, "kate", models.RoleMember)

	first, err := f.points.SignIn(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("sign in failed: %v", err)
	}
	if first.Reward != 7 || first.AlreadySigned || first.DayKey != "2026-05-20" {
		t.Fatalf("unexpected sign in result: %+v", first)
	}
	second, err := f.points.SignIn(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("repeat sign in failed: %v", err)
	}
	if !second.AlreadySigned || second.Reward != 7 {
		t.Fatalf("repeat sign in should be idempotent: %+v", second)
	}
	summary, err := f.points.Summary(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.Point != 7 || !summary.SignedToday || summary.Level != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.NextLevelAt == nil || *summary.NextLevelAt != 11 {
		t.Fatalf("next level threshold want 11 got %v", summary.NextLevelAt)
	}

	f.setNow(time.Date(2026, 5, 21, 0, 0, 0, 0, time.UTC))
	third, err := f.points.SignIn(context.Background(), user.UID)
	if err != nil || third.AlreadySigned {
		t.Fatalf("new day sign in should succeed: %+v err=%v", third, err)
	}
}

func TestCreditRejectsNonRewardReasons(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "leo", models.RoleMember)
	if _, err := f.points.Credit(context.Background(), CreditInput{UID: user.UID, Reason: models.PointReasonAdminAdjust, Amount: 1, RefID: "x"}); err == nil {
		t.Fatalf("admin adjust is not a reward")
	}
	if _, err := f.points.Credit(context.Background(), CreditInput{UID: user.UID, Reason: models.PointReasonPostCreate, Amount: -1, RefID: "x"}); err != ErrInvalidAmount {
		t.Fatalf("want ErrInvalidAmount got %v", err)
	}
}
