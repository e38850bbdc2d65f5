package ledger

import (
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/database"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/store"
)

type engineFixture struct {
	engine       *Engine
	chores       *store.ChoreStore
	logs         *store.ChoreLogStore
	ledger       *store.LedgerStore
	members      *store.FamilyMemberStore
	achievements *store.AchievementStore
}

func setupEngine(t *testing.T) *engineFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &engineFixture{
		chores:       store.NewChoreStore(db),
		logs:         store.NewChoreLogStore(db),
		ledger:       store.NewLedgerStore(db),
		members:      store.NewFamilyMemberStore(db),
		achievements: store.NewAchievementStore(db),
	}
	clk := clock.Fixed{T: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), WeekStart: time.Monday}
	f.engine = NewEngine(f.chores, f.logs, f.ledger, f.achievements, clk, slog.Default())
	return f
}

func (f *engineFixture) chore(t *testing.T, name string, earn, penalty string, autoApprove bool) *model.ChoreDefinition {
	t.Helper()
	c, err := f.chores.Create(&model.ChoreDefinition{
		Name:         name,
		EarnValue:    decimal.RequireFromString(earn),
		PenaltyValue: decimal.RequireFromString(penalty),
		ScheduleType: model.ScheduleSpecificDays,
		ActiveDays:   0x7F,
		AutoApprove:  autoApprove,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func (f *engineFixture) member(t *testing.T, name string) *model.FamilyMember {
	t.Helper()
	m, err := f.members.Create(name, "#cc8844", "", model.RoleChild)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

func (f *engineFixture) log(t *testing.T, choreID int64, date string) *model.ChoreLog {
	t.Helper()
	l, err := f.logs.GetOrCreate(choreID, date)
	if err != nil {
		t.Fatalf("get or create log: %v", err)
	}
	return l
}

func TestApprovePaysOnce(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	guardian := f.member(t, "Sam")
	chore := f.chore(t, "Make bed", "0.25", "0.10", false)
	l := f.log(t, chore.ID, "2026-08-29")

	out, err := f.engine.RecordOutcome(l.ID, model.StatusCompleted, kid.ID, l.Version, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Transaction != nil {
		t.Fatalf("completion must not pay, got %+v", out.Transaction)
	}

	out, err = f.engine.RecordOutcome(l.ID, model.StatusApproved, guardian.ID, out.Log.Version, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	txn := out.Transaction
	if txn == nil {
		t.Fatal("approval should create an earning")
	}
	if txn.Type != model.TxnChoreEarning {
		t.Errorf("type = %s, want chore_earning", txn.Type)
	}
	if !txn.Amount.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("amount = %s, want 0.25", txn.Amount)
	}
	if txn.MemberID != kid.ID {
		t.Errorf("credited member = %d, want %d (who did the work)", txn.MemberID, kid.ID)
	}
	if txn.ChoreLogID == nil || *txn.ChoreLogID != l.ID {
		t.Errorf("chore_log_id = %v, want %d", txn.ChoreLogID, l.ID)
	}

	// A repeated approval attempt with the current version is a state
	// machine violation; even if it got through, the ledger would not
	// double-pay.
	_, err = f.engine.RecordOutcome(l.ID, model.StatusApproved, guardian.ID, out.Log.Version, "")
	if !store.IsValidation(err) {
		t.Fatalf("expected validation error on approve of approved, got %v", err)
	}

	account, _ := f.ledger.EnsureAccount(kid.ID)
	balance, _ := f.ledger.Balance(account.ID)
	if !balance.Equal(decimal.RequireFromString("0.25")) {
		t.Errorf("balance = %s, want exactly one 0.25 earning", balance)
	}
}

func TestStaleVersionRejected(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	chore := f.chore(t, "Dishes", "0.50", "0", false)
	l := f.log(t, chore.ID, "2026-08-29")

	if _, err := f.engine.RecordOutcome(l.ID, model.StatusCompleted, kid.ID, l.Version, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}

	// A device still holding version 1 tries to mark it missed.
	_, err := f.engine.RecordOutcome(l.ID, model.StatusMissed, kid.ID, l.Version, "")
	if !store.IsValidation(err) && !errors.Is(err, store.ErrConflict) {
		t.Fatalf("stale write must fail, got %v", err)
	}

	current, _ := f.logs.GetByID(l.ID)
	if current.Status != model.StatusCompleted {
		t.Errorf("status = %s, stale write must not land", current.Status)
	}
}

func TestAutoApproveCollapses(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	chore := f.chore(t, "Brush teeth", "0.10", "0", true)
	l := f.log(t, chore.ID, "2026-08-29")

	out, err := f.engine.RecordOutcome(l.ID, model.StatusCompleted, kid.ID, l.Version, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Log.Status != model.StatusApproved {
		t.Errorf("status = %s, want approved (auto-approve)", out.Log.Status)
	}
	if out.Log.ApprovedBy == nil || *out.Log.ApprovedBy != kid.ID {
		t.Errorf("approved_by = %v, want %d", out.Log.ApprovedBy, kid.ID)
	}
	if out.Transaction == nil || !out.Transaction.Amount.Equal(decimal.RequireFromString("0.10")) {
		t.Errorf("expected 0.10 earning, got %+v", out.Transaction)
	}
}

func TestMissedCreatesOneDeduction(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	chore, err := f.chores.Create(&model.ChoreDefinition{
		Name:         "Make bed",
		AssignedTo:   &kid.ID,
		EarnValue:    decimal.RequireFromString("0.25"),
		PenaltyValue: decimal.RequireFromString("0.10"),
		ScheduleType: model.ScheduleSpecificDays,
		ActiveDays:   0x7F,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	guardian := f.member(t, "Sam")
	l := f.log(t, chore.ID, "2026-08-29")

	out, err := f.engine.RecordOutcome(l.ID, model.StatusMissed, guardian.ID, l.Version, "")
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	txn := out.Transaction
	if txn == nil {
		t.Fatal("missed chore with penalty should create a deduction")
	}
	if txn.Type != model.TxnChoreDeduction {
		t.Errorf("type = %s, want chore_deduction", txn.Type)
	}
	if !txn.Amount.Equal(decimal.RequireFromString("-0.10")) {
		t.Errorf("amount = %s, want -0.10", txn.Amount)
	}
	if txn.MemberID != kid.ID {
		t.Errorf("deduction hit member %d, want assignee %d", txn.MemberID, kid.ID)
	}
}

func TestSkippedIsNeutral(t *testing.T) {
	f := setupEngine(t)
	guardian := f.member(t, "Sam")
	chore := f.chore(t, "Rake leaves", "0.50", "0.25", false)
	l := f.log(t, chore.ID, "2026-08-29")

	out, err := f.engine.RecordOutcome(l.ID, model.StatusSkipped, guardian.ID, l.Version, "sick day")
	if err != nil {
		t.Fatalf("skip: %v", err)
	}
	if out.Transaction != nil {
		t.Fatalf("skip must not move money, got %+v", out.Transaction)
	}
	if out.Log.Notes != "sick day" {
		t.Errorf("notes = %q", out.Log.Notes)
	}
}

func TestHelpFlow(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	guardian := f.member(t, "Sam")
	chore := f.chore(t, "Fold laundry", "0.30", "0", false)
	l := f.log(t, chore.ID, "2026-08-29")

	out, err := f.engine.RecordOutcome(l.ID, model.StatusHelp, kid.ID, l.Version, "can't reach the shelf")
	if err != nil {
		t.Fatalf("help: %v", err)
	}
	if out.Log.HelpNote != "can't reach the shelf" {
		t.Errorf("help_note = %q", out.Log.HelpNote)
	}

	out, err = f.engine.RecordOutcome(l.ID, model.StatusCompleted, guardian.ID, out.Log.Version, "")
	if err != nil {
		t.Fatalf("complete after help: %v", err)
	}
	if out.Log.Status != model.StatusCompleted {
		t.Errorf("status = %s, want completed", out.Log.Status)
	}
}

func TestInvalidTransitions(t *testing.T) {
	f := setupEngine(t)
	guardian := f.member(t, "Sam")
	chore := f.chore(t, "Water plants", "0.20", "0", false)

	cases := []struct {
		from, to model.LogStatus
	}{
		{model.StatusPending, model.StatusApproved},
		{model.StatusMissed, model.StatusCompleted},
		{model.StatusSkipped, model.StatusApproved},
		{model.StatusApproved, model.StatusPending},
	}
	for i, tc := range cases {
		date := time.Date(2026, 8, 1+i, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
		l := f.log(t, chore.ID, date)
		if tc.from != model.StatusPending {
			l.Status = tc.from
			var err error
			if l, err = f.logs.UpdateStatus(l, l.Version); err != nil {
				t.Fatalf("seed status %s: %v", tc.from, err)
			}
		}
		_, err := f.engine.RecordOutcome(l.ID, tc.to, guardian.ID, l.Version, "")
		if !store.IsValidation(err) {
			t.Errorf("%s -> %s: expected validation error, got %v", tc.from, tc.to, err)
		}
	}
}

func TestEarningMultiplierBonus(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	chore := f.chore(t, "Dishes", "1.00", "0", true)

	seedAchievement(t, f, kid.ID, model.BonusEarningMultiplier, "1.1", nil)

	l := f.log(t, chore.ID, "2026-08-29")
	out, err := f.engine.RecordOutcome(l.ID, model.StatusCompleted, kid.ID, l.Version, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if out.Transaction == nil || !out.Transaction.Amount.Equal(decimal.RequireFromString("1.10")) {
		t.Errorf("expected scaled earning 1.10, got %+v", out.Transaction)
	}
}

func TestPenaltyForgiveness(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	chore, err := f.chores.Create(&model.ChoreDefinition{
		Name:         "Make bed",
		AssignedTo:   &kid.ID,
		PenaltyValue: decimal.RequireFromString("0.10"),
		ScheduleType: model.ScheduleSpecificDays,
		ActiveDays:   0x7F,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	guardian := f.member(t, "Sam")

	uses := 1
	seedAchievement(t, f, kid.ID, model.BonusPenaltyForgive, "1", &uses)

	// First miss consumes the token; no deduction.
	l := f.log(t, chore.ID, "2026-08-28")
	out, err := f.engine.RecordOutcome(l.ID, model.StatusMissed, guardian.ID, l.Version, "")
	if err != nil {
		t.Fatalf("miss: %v", err)
	}
	if out.Transaction != nil {
		t.Fatalf("forgiven miss must not deduct, got %+v", out.Transaction)
	}

	// Second miss has no token left.
	l2 := f.log(t, chore.ID, "2026-08-29")
	out, err = f.engine.RecordOutcome(l2.ID, model.StatusMissed, guardian.ID, l2.Version, "")
	if err != nil {
		t.Fatalf("second miss: %v", err)
	}
	if out.Transaction == nil || !out.Transaction.Amount.Equal(decimal.RequireFromString("-0.10")) {
		t.Errorf("expected -0.10 deduction after token spent, got %+v", out.Transaction)
	}
}

// seedAchievement earns a synthetic achievement for the member and grants
// its bonus directly.
func seedAchievement(t *testing.T, f *engineFixture, memberID int64, typ model.BonusType, multiplier string, uses *int) {
	t.Helper()
	a, err := f.achievements.GetByCode("first_chore")
	if err != nil || a == nil {
		t.Fatalf("seed achievement lookup: %v", err)
	}
	if _, err := f.achievements.MarkEarned(memberID, a.ID); err != nil {
		t.Fatalf("mark earned: %v", err)
	}
	if _, err := f.achievements.GrantBonus(&model.MemberAchievementBonus{
		MemberID:      memberID,
		AchievementID: a.ID,
		BonusType:     typ,
		Multiplier:    decimal.RequireFromString(multiplier),
		RemainingUses: uses,
	}); err != nil {
		t.Fatalf("grant bonus: %v", err)
	}
}

func TestCreateManualSigns(t *testing.T) {
	f := setupEngine(t)
	kid := f.member(t, "Milo")
	account, err := f.ledger.EnsureAccount(kid.ID)
	if err != nil {
		t.Fatalf("account: %v", err)
	}

	cases := []struct {
		typ    model.TransactionType
		amount string
		want   string
	}{
		{model.TxnBonus, "2.00", "2.00"},
		{model.TxnPenalty, "0.50", "-0.50"},
		{model.TxnPayout, "1.00", "-1.00"},
		{model.TxnAdjustment, "-0.25", "-0.25"},
		{model.TxnAdjustment, "0.25", "0.25"},
	}
	for _, tc := range cases {
		txn, err := f.engine.CreateManual(account.ID, decimal.RequireFromString(tc.amount), tc.typ, "test", kid.ID)
		if err != nil {
			t.Fatalf("%s %s: %v", tc.typ, tc.amount, err)
		}
		if !txn.Amount.Equal(decimal.RequireFromString(tc.want)) {
			t.Errorf("%s %s: amount = %s, want %s", tc.typ, tc.amount, txn.Amount, tc.want)
		}
		if txn.TransactionDate != "2026-08-29" {
			t.Errorf("date = %s, want clock today", txn.TransactionDate)
		}
	}

	if _, err := f.engine.CreateManual(account.ID, decimal.Zero, model.TxnBonus, "", kid.ID); !store.IsValidation(err) {
		t.Errorf("zero amount: expected validation error, got %v", err)
	}
	if _, err := f.engine.CreateManual(account.ID, decimal.RequireFromString("1.00"), model.TxnChoreEarning, "", kid.ID); !store.IsValidation(err) {
		t.Errorf("earning type: expected validation error, got %v", err)
	}
	if _, err := f.engine.CreateManual(999, decimal.RequireFromString("1.00"), model.TxnBonus, "", kid.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing account: expected ErrNotFound, got %v", err)
	}
}

func TestEngineTransfer(t *testing.T) {
	f := setupEngine(t)
	alice := f.member(t, "Alice")
	ben := f.member(t, "Ben")
	from, _ := f.ledger.EnsureAccount(alice.ID)
	to, _ := f.ledger.EnsureAccount(ben.ID)

	legs, err := f.engine.Transfer(from.ID, to.ID, decimal.RequireFromString("0.75"), "trade")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if len(legs) != 2 {
		t.Fatalf("expected 2 legs, got %d", len(legs))
	}
	sum := legs[0].Amount.Add(legs[1].Amount)
	if !sum.IsZero() {
		t.Errorf("legs sum = %s, want 0", sum)
	}

	if _, err := f.engine.Transfer(from.ID, 999, decimal.RequireFromString("1.00"), ""); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing account: expected ErrNotFound, got %v", err)
	}
}
