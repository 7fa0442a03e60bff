package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/forum-next/internal/constants"
	"github.com/forum-next/internal/models"
)

func TestLedgerAppendUpdatesBalanceAndLevel(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "alice", models.RoleMember)

	entry, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   11,
		Reason:  models.PointReasonAdminAdjust,
		RefType: constants.LedgerRefTypeAdmin,
		RefID:   "seed",
	})
	if err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if entry.BalanceAfter != 11 || entry.EntryID == "" {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	reloaded := reloadUser(t, f.db, user.ID)
	if reloaded.Point != 11 || reloaded.Level != 2 || reloaded.Version != 1 {
		t.Fatalf("unexpected user after append: point=%d level=%d version=%d", reloaded.Point, reloaded.Level, reloaded.Version)
	}
	balance, err := f.ledger.BalanceOf(context.Background(), user.UID)
	if err != nil || balance != 11 {
		t.Fatalf("balance want 11 got %d err=%v", balance, err)
	}
	if n, _, _, _ := f.events.counts(); n != 1 {
		t.Fatalf("balance_changed events want 1 got %d", n)
	}
}

func TestLedgerAppendIsIdempotent(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "bob", models.RoleMember)
	input := LedgerAppendInput{
		UID:     user.UID,
		Delta:   5,
		Reason:  models.PointReasonPostCreate,
		RefType: constants.LedgerRefTypePost,
		RefID:   "p1",
	}
	first, err := f.ledger.Append(context.Background(), input)
	if err != nil {
		t.Fatalf("first append failed: %v", err)
	}
	second, err := f.ledger.Append(context.Background(), input)
	if err != nil {
		t.Fatalf("second append failed: %v", err)
	}
	if first.EntryID != second.EntryID {
		t.Fatalf("repeat append should return existing entry")
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 5 {
		t.Fatalf("balance want 5 got %d", got)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonPostCreate); got != 1 {
		t.Fatalf("ledger rows want 1 got %d", got)
	}
}

func TestLedgerAppendRejectsNegativeBalance(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "carol", models.RoleMember)
	fundUser(t, f, user, 3)

	_, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   -4,
		Reason:  models.PointReasonPostUnlock,
		RefType: constants.LedgerRefTypePost,
		RefID:   "p1",
	})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("want ErrInsufficientBalance got %v", err)
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 3 {
		t.Fatalf("balance should stay 3, got %d", got)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonPostUnlock); got != 0 {
		t.Fatalf("no unlock entry expected, got %d", got)
	}
}

func TestLedgerAppendRejectsInvalidEntries(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "dave", models.RoleMember)
	cases := []LedgerAppendInput{
		{UID: user.UID, Delta: 0, Reason: models.PointReasonAdminAdjust, RefID: "zero"},
		{UID: user.UID, Delta: 0, Reason: models.PointReasonLikeReceived, RefID: "zero-like"},
		{UID: user.UID, Delta: 1, Reason: models.PointReason("bogus"), RefID: "bogus"},
		{UID: user.UID, Delta: -1, Reason: models.PointReasonPostCreate, RefID: "wrong-sign"},
		{UID: "missing-user", Delta: 1, Reason: models.PointReasonAdminAdjust, RefID: "missing"},
	}
	for idx, input := range cases {
		if _, err := f.ledger.Append(context.Background(), input); !errors.Is(err, ErrInvalidEntry) {
			t.Fatalf("case %d: want ErrInvalidEntry got %v", idx, err)
		}
	}
}

func TestLedgerZeroDeltaAllowedForCappedReason(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "erin", models.RoleMember)
	entry, err := f.ledger.Append(context.Background(), LedgerAppendInput{
		UID:     user.UID,
		Delta:   0,
		Reason:  models.PointReasonCommentCreate,
		RefType: constants.LedgerRefTypeComment,
		RefID:   "c1",
	})
	if err != nil {
		t.Fatalf("zero delta capped entry should be accepted: %v", err)
	}
	if entry.Delta != 0 || entry.BalanceAfter != 0 {
		t.Fatalf("unexpected zero entry: %+v", entry)
	}
	if n, _, _, _ := f.events.counts(); n != 1 {
		t.Fatalf("publisher receives entry, queue filters zero delta; got %d", n)
	}
}

func TestLedgerHistoryCursorIsStable(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "frank", models.RoleMember)
	for i := 0; i < 5; i++ {
		fundUser(t, f, user, int64(i+1))
	}

	ctx := context.Background()
	page, err := f.ledger.HistoryOf(ctx, user.UID, "", 2)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(page.Entries) != 2 || !page.HasMore || page.NextCursor == "" {
		t.Fatalf("unexpected first page: %+v", page)
	}
	if page.Entries[0].Delta != 5 || page.Entries[1].Delta != 4 {
		t.Fatalf("entries should be newest first: %d %d", page.Entries[0].Delta, page.Entries[1].Delta)
	}

	// 翻页期间写入的新流水不影响后续页
	fundUser(t, f, user, 100)

	seen := map[string]bool{page.Entries[0].EntryID: true, page.Entries[1].EntryID: true}
	cursor := page.NextCursor
	total := 2
	for cursor != "" {
		next, err := f.ledger.HistoryOf(ctx, user.UID, cursor, 2)
		if err != nil {
			t.Fatalf("history page failed: %v", err)
		}
		for _, entry := range next.Entries {
			if seen[entry.EntryID] {
				t.Fatalf("entry %s returned twice", entry.EntryID)
			}
			if entry.Delta == 100 {
				t.Fatalf("entry appended after first page leaked into older pages")
			}
			seen[entry.EntryID] = true
			total++
		}
		cursor = next.NextCursor
	}
	if total != 5 {
		t.Fatalf("want 5 entries across pages got %d", total)
	}
}

func TestDecodeLedgerCursor(t *testing.T) {
	id, err := DecodeLedgerCursor(EncodeLedgerCursor(42))
	if err != nil || id != 42 {
		t.Fatalf("roundtrip want 42 got %d err=%v", id, err)
	}
	if id, err := DecodeLedgerCursor(""); err != nil || id != 0 {
		t.Fatalf("empty cursor should start from newest")
	}
	for _, bad := range []string{"!!!", "bm90LWEtbnVtYmVy", "MA"} {
		if _, err := DecodeLedgerCursor(bad); !errors.Is(err, ErrInvalidCursor) {
			t.Fatalf("cursor %q: want ErrInvalidCursor got %v", bad, err)
		}
	}
}

func TestLedgerReconcileRepairsDrift(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "grace", models.RoleMember)
	fundUser(t, f, user, 60)
	if err := f.db.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{"point": 7, "level": 1}).Error; err != nil {
		t.Fatalf("corrupt balance failed: %v", err)
	}

	fixed, err := f.ledger.AuditDrift(context.Background())
	if err != nil || fixed != 1 {
		t.Fatalf("audit drift want 1 fixed got %d err=%v", fixed, err)
	}
	reloaded := reloadUser(t, f.db, user.ID)
	if reloaded.Point != 60 || reloaded.Level != 3 {
		t.Fatalf("unexpected repaired user: point=%d level=%d", reloaded.Point, reloaded.Level)
	}
	result, err := f.ledger.Reconcile(context.Background(), user.UID)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if result.Fixed {
		t.Fatalf("consistent balance should not be rewritten")
	}
}

func TestLedgerConcurrentAppends(t *testing.T) {
	f := setupForumTest(t, testPointPolicy())
	user := createForumUser(t, f.db, "heidi", models.RoleMember)

	var wg sync.WaitGroup
	errs := make(chan error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.ledger.Append(context.Background(), LedgerAppendInput{
				UID:     user.UID,
				Delta:   1,
				Reason:  models.PointReasonLikeReceived,
				RefType: constants.ReactionTargetPost,
				RefID:   string(rune('a' + i)),
			})
			errs <- err
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		if err != nil {
			t.Fatalf("concurrent append failed: %v", err)
		}
	}
	if got := reloadUser(t, f.db, user.ID).Point; got != 10 {
		t.Fatalf("balance want 10 got %d", got)
	}
	if got := countLedger(t, f.db, user.ID, models.PointReasonLikeReceived); got != 10 {
		t.Fatalf("ledger rows want 10 got %d", got)
	}
}
