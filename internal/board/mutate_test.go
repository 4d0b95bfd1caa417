package board

import (
	"errors"
	"testing"
	"time"
)

func testBoard(t *testing.T) *Board {
	t.Helper()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	b := New("b-1", "Launch plan", "", "user-1", "owner@example.com", "col-a", now)
	b.Columns[0].Title = "A"
	b.AddColumn(Column{ID: "col-b", Title: "B"})
	for _, id := range []string{"1", "2", "3"} {
		card := &Card{ID: id, Title: "card " + id, ColumnID: "col-a", CreatedAt: now, UpdatedAt: now}
		if err := b.AddCard(card); err != nil {
			t.Fatalf("add card %s: %v", id, err)
		}
	}
	return b
}

func assertInvariants(t *testing.T, b *Board) {
	t.Helper()
	if err := b.Validate(); err != nil {
		t.Fatalf("invariant violated: %v", err)
	}
}

func cardIDs(t *testing.T, b *Board, columnID string) []string {
	t.Helper()
	col, ok := b.Column(columnID)
	if !ok {
		t.Fatalf("column %s missing", columnID)
	}
	return col.CardIDs
}

func assertOrder(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, got)
		}
	}
}

func TestMoveCardAcrossColumns(t *testing.T) {
	b := testBoard(t)

	moved, err := b.MoveCard("2", "col-b", 0)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if !moved {
		t.Fatalf("expected move to happen")
	}

	assertOrder(t, cardIDs(t, b, "col-a"), []string{"1", "3"})
	assertOrder(t, cardIDs(t, b, "col-b"), []string{"2"})
	if b.Cards["2"].ColumnID != "col-b" {
		t.Fatalf("expected card 2 columnId col-b, got %s", b.Cards["2"].ColumnID)
	}
	assertInvariants(t, b)
}

func TestMoveCardWithinColumnIsSpliceNotSwap(t *testing.T) {
	b := testBoard(t)

	// Move head to the end: [1 2 3] -> [2 3 1].
	if _, err := b.MoveCard("1", "col-a", 2); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOrder(t, cardIDs(t, b, "col-a"), []string{"2", "3", "1"})
	assertInvariants(t, b)

	// And back to the front.
	if _, err := b.MoveCard("1", "col-a", 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOrder(t, cardIDs(t, b, "col-a"), []string{"1", "2", "3"})
	assertInvariants(t, b)
}

func TestMoveCardSamePositionIsNoOp(t *testing.T) {
	b := testBoard(t)

	moved, err := b.MoveCard("2", "col-a", 1)
	if err != nil {
		t.Fatalf("move: %v", err)
	}
	if moved {
		t.Fatalf("expected drop-in-place to be a no-op")
	}
	assertOrder(t, cardIDs(t, b, "col-a"), []string{"1", "2", "3"})
}

func TestMoveCardBeyondLengthAppends(t *testing.T) {
	b := testBoard(t)

	if _, err := b.MoveCard("1", "col-b", 99); err != nil {
		t.Fatalf("move: %v", err)
	}
	assertOrder(t, cardIDs(t, b, "col-b"), []string{"1"})
	assertInvariants(t, b)
}

func TestMoveCardUnknownTargets(t *testing.T) {
	b := testBoard(t)

	if _, err := b.MoveCard("nope", "col-b", 0); !errors.Is(err, ErrCardNotFound) {
		t.Fatalf("expected ErrCardNotFound, got %v", err)
	}
	if _, err := b.MoveCard("1", "nope", 0); !errors.Is(err, ErrColumnNotFound) {
		t.Fatalf("expected ErrColumnNotFound, got %v", err)
	}
}

func TestDeleteCard(t *testing.T) {
	b := testBoard(t)

	if err := b.DeleteCard("2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	assertOrder(t, cardIDs(t, b, "col-a"), []string{"1", "3"})
	if _, ok := b.Cards["2"]; ok {
		t.Fatalf("expected card 2 removed from map")
	}
	assertInvariants(t, b)
}

func TestDeleteColumnGuards(t *testing.T) {
	b := testBoard(t)

	if err := b.DeleteColumn("col-a"); !errors.Is(err, ErrColumnNotEmpty) {
		t.Fatalf("expected ErrColumnNotEmpty, got %v", err)
	}
	assertOrder(t, cardIDs(t, b, "col-a"), []string{"1", "2", "3"})

	if err := b.DeleteColumn("col-b"); err != nil {
		t.Fatalf("delete empty column: %v", err)
	}
	for _, id := range []string{"1", "2", "3"} {
		if err := b.DeleteCard(id); err != nil {
			t.Fatalf("delete card %s: %v", id, err)
		}
	}
	if err := b.DeleteColumn("col-a"); !errors.Is(err, ErrLastColumn) {
		t.Fatalf("expected ErrLastColumn, got %v", err)
	}
}

func TestSwapColumn(t *testing.T) {
	b := testBoard(t)
	b.AddColumn(Column{ID: "col-c", Title: "C"})

	swapped, err := b.SwapColumn("col-b", DirectionRight)
	if err != nil {
		t.Fatalf("swap: %v", err)
	}
	if !swapped {
		t.Fatalf("expected swap")
	}
	if b.Columns[1].ID != "col-c" || b.Columns[2].ID != "col-b" {
		t.Fatalf("unexpected order: %s, %s, %s", b.Columns[0].ID, b.Columns[1].ID, b.Columns[2].ID)
	}

	// Boundary swaps are silent no-ops.
	if swapped, err := b.SwapColumn("col-a", DirectionLeft); err != nil || swapped {
		t.Fatalf("expected boundary no-op, got swapped=%v err=%v", swapped, err)
	}
	if swapped, err := b.SwapColumn("col-b", DirectionRight); err != nil || swapped {
		t.Fatalf("expected boundary no-op, got swapped=%v err=%v", swapped, err)
	}
}

func TestAddMemberUpdatesExisting(t *testing.T) {
	b := testBoard(t)

	b.AddMember("Pat@Example.com", PrivilegeRead)
	if got := b.MemberPrivilege("pat@example.com"); got != PrivilegeRead {
		t.Fatalf("expected read, got %s", got)
	}

	b.AddMember("pat@example.com", PrivilegeWrite)
	if len(b.Members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(b.Members))
	}
	if got := b.MemberPrivilege("PAT@example.com"); got != PrivilegeWrite {
		t.Fatalf("expected write after upgrade, got %s", got)
	}
}

func TestRemoveMemberTransfersOwnership(t *testing.T) {
	b := testBoard(t)
	b.AddMember("reader@example.com", PrivilegeRead)
	b.AddMember("writer@example.com", PrivilegeWrite)

	resolve := func(email string) (string, bool) {
		if email == "writer@example.com" {
			return "user-9", true
		}
		return "", false
	}

	last, err := b.RemoveMember("owner@example.com", "owner@example.com", resolve)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if last {
		t.Fatalf("members remain, board must not be deleted")
	}
	if b.OwnerID != "user-9" {
		t.Fatalf("expected ownership to pass to the write member, got %s", b.OwnerID)
	}
	if got := b.MemberPrivilege("owner@example.com"); got != PrivilegeNone {
		t.Fatalf("expected removed owner to lose access, got %s", got)
	}
}

func TestRemoveLastMemberSignalsDeletion(t *testing.T) {
	b := testBoard(t)

	last, err := b.RemoveMember("owner@example.com", "owner@example.com", nil)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if !last {
		t.Fatalf("expected last-member signal")
	}
}

func TestRemoveUnknownMember(t *testing.T) {
	b := testBoard(t)
	if _, err := b.RemoveMember("ghost@example.com", "owner@example.com", nil); !errors.Is(err, ErrMemberNotFound) {
		t.Fatalf("expected ErrMemberNotFound, got %v", err)
	}
}

func TestAddLabelDedupesCaseInsensitive(t *testing.T) {
	b := testBoard(t)

	first, added := b.AddLabel(Label{ID: "lbl-1", Name: "Urgent", Color: "red"})
	if !added || first.ID != "lbl-1" {
		t.Fatalf("expected new label, got added=%v id=%s", added, first.ID)
	}

	dup, added := b.AddLabel(Label{ID: "lbl-2", Name: "URGENT", Color: "blue"})
	if added {
		t.Fatalf("expected dedupe by case-insensitive name")
	}
	if dup.ID != "lbl-1" || dup.Color != "red" {
		t.Fatalf("expected existing label back, got %+v", dup)
	}
	if len(b.Labels) != 1 {
		t.Fatalf("expected 1 label, got %d", len(b.Labels))
	}
}

func TestCloneIsDeep(t *testing.T) {
	b := testBoard(t)
	b.Cards["1"].Checklist = []ChecklistItem{{ID: "chk-1", Text: "write tests"}}

	snapshot := b.Clone()
	if _, err := b.MoveCard("2", "col-b", 0); err != nil {
		t.Fatalf("move: %v", err)
	}
	b.Cards["1"].Checklist[0].Done = true
	b.Cards["1"].Title = "changed"

	assertOrder(t, cardIDs(t, snapshot, "col-a"), []string{"1", "2", "3"})
	if snapshot.Cards["2"].ColumnID != "col-a" {
		t.Fatalf("snapshot card mutated")
	}
	if snapshot.Cards["1"].Checklist[0].Done {
		t.Fatalf("snapshot checklist mutated")
	}
	if snapshot.Cards["1"].Title != "card 1" {
		t.Fatalf("snapshot title mutated")
	}
}

func TestValidateCatchesDrift(t *testing.T) {
	b := testBoard(t)

	col, _ := b.Column("col-b")
	col.CardIDs = append(col.CardIDs, "1")
	if err := b.Validate(); err == nil {
		t.Fatalf("expected duplicate id to fail validation")
	}

	b = testBoard(t)
	b.Cards["orphan"] = &Card{ID: "orphan", ColumnID: "col-a"}
	if err := b.Validate(); err == nil {
		t.Fatalf("expected orphan card to fail validation")
	}

	b = testBoard(t)
	b.Cards["1"].ColumnID = "col-b"
	if err := b.Validate(); err == nil {
		t.Fatalf("expected columnId drift to fail validation")
	}
}
