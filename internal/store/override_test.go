package store

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/database"
	"github.com/wrenhall/chorebank/internal/model"
)

func setupOverrideTestDB(t *testing.T) (*OverrideStore, *ChoreStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOverrideStore(db), NewChoreStore(db)
}

func makeChore(t *testing.T, cs *ChoreStore, name string) *model.ChoreDefinition {
	t.Helper()
	chore, err := cs.Create(&model.ChoreDefinition{
		Name:         name,
		ScheduleType: model.ScheduleSpecificDays,
		ActiveDays:   0x7F,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return chore
}

func TestUpsertAddOverride(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Water plants")

	val := decimal.RequireFromString("0.75")
	member := int64(3)
	o, err := ovr.UpsertAdd(chore.ID, "2026-08-29", 1, &member, &val)
	if err != nil {
		t.Fatalf("upsert add: %v", err)
	}
	if o.Type != model.OverrideAdd {
		t.Errorf("type = %s, want add", o.Type)
	}
	if o.AssignedTo == nil || *o.AssignedTo != 3 {
		t.Errorf("assigned_to = %v, want 3", o.AssignedTo)
	}
	if o.Value == nil || !o.Value.Equal(val) {
		t.Errorf("value = %v, want 0.75", o.Value)
	}

	// Second write for the same pair replaces, never duplicates.
	o2, err := ovr.UpsertAdd(chore.ID, "2026-08-29", 1, nil, nil)
	if err != nil {
		t.Fatalf("upsert add again: %v", err)
	}
	if o2.ID != o.ID {
		t.Errorf("expected same row, got id %d then %d", o.ID, o2.ID)
	}
	if o2.AssignedTo != nil {
		t.Errorf("assigned_to should be cleared, got %v", *o2.AssignedTo)
	}

	all, err := ovr.ListForDate("2026-08-29")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 override, got %d", len(all))
	}
}

func TestUpsertAddUnknownChore(t *testing.T) {
	ovr, _ := setupOverrideTestDB(t)

	_, err := ovr.UpsertAdd(999, "2026-08-29", 1, nil, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRemoveUndoesAdd(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Sweep porch")

	if _, err := ovr.UpsertAdd(chore.ID, "2026-08-29", 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ovr.UpsertRemove(chore.ID, "2026-08-29", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	// The add is deleted outright, not layered with a remove row.
	o, err := ovr.GetByPair(chore.ID, "2026-08-29")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o != nil {
		t.Fatalf("expected no override row, got type %s", o.Type)
	}
}

func TestRemoveRecurringSlot(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Dishes")

	if err := ovr.UpsertRemove(chore.ID, "2026-08-29", 1); err != nil {
		t.Fatalf("remove: %v", err)
	}

	o, err := ovr.GetByPair(chore.ID, "2026-08-29")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if o == nil || o.Type != model.OverrideRemove {
		t.Fatalf("expected remove override, got %+v", o)
	}
}

func TestMoveWritesBothSides(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Vacuum")

	if err := ovr.Move(chore.ID, "2026-08-28", "2026-08-30", 1); err != nil {
		t.Fatalf("move: %v", err)
	}

	src, err := ovr.GetByPair(chore.ID, "2026-08-28")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if src == nil || src.Type != model.OverrideRemove {
		t.Fatalf("source should hold a remove, got %+v", src)
	}

	dst, err := ovr.GetByPair(chore.ID, "2026-08-30")
	if err != nil {
		t.Fatalf("get target: %v", err)
	}
	if dst == nil || dst.Type != model.OverrideMove {
		t.Fatalf("target should hold a move, got %+v", dst)
	}
}

func TestMoveOfAddDeletesSource(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Trash")

	if _, err := ovr.UpsertAdd(chore.ID, "2026-08-28", 1, nil, nil); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ovr.Move(chore.ID, "2026-08-28", "2026-08-30", 1); err != nil {
		t.Fatalf("move: %v", err)
	}

	src, err := ovr.GetByPair(chore.ID, "2026-08-28")
	if err != nil {
		t.Fatalf("get source: %v", err)
	}
	if src != nil {
		t.Fatalf("one-off source should be deleted, got %+v", src)
	}
}

func TestMoveSameDateRejected(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Laundry")

	err := ovr.Move(chore.ID, "2026-08-28", "2026-08-28", 1)
	if !IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	// No partial write.
	all, err := ovr.ListForRange("2026-08-01", "2026-08-31")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no overrides, got %d", len(all))
	}
}

func TestListForRange(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Mow lawn")

	for _, date := range []string{"2026-08-25", "2026-08-28", "2026-09-02"} {
		if _, err := ovr.UpsertAdd(chore.ID, date, 1, nil, nil); err != nil {
			t.Fatalf("add %s: %v", date, err)
		}
	}

	got, err := ovr.ListForRange("2026-08-24", "2026-08-31")
	if err != nil {
		t.Fatalf("list range: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 overrides in range, got %d", len(got))
	}
	if got[0].Date != "2026-08-25" || got[1].Date != "2026-08-28" {
		t.Errorf("dates = %s, %s", got[0].Date, got[1].Date)
	}
}

func TestDeleteOverride(t *testing.T) {
	ovr, cs := setupOverrideTestDB(t)
	chore := makeChore(t, cs, "Feed cat")

	o, err := ovr.UpsertAdd(chore.ID, "2026-08-29", 1, nil, nil)
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := ovr.Delete(o.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := ovr.Delete(o.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}
