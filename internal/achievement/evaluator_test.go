package achievement

import (
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/database"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/schedule"
	"github.com/wrenhall/chorebank/internal/store"
)

type evaluatorFixture struct {
	evaluator    *Evaluator
	achievements *store.AchievementStore
	chores       *store.ChoreStore
	logs         *store.ChoreLogStore
	ledger       *store.LedgerStore
	members      *store.FamilyMemberStore
	clk          clock.Fixed
}

func setupEvaluator(t *testing.T) *evaluatorFixture {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	f := &evaluatorFixture{
		achievements: store.NewAchievementStore(db),
		chores:       store.NewChoreStore(db),
		logs:         store.NewChoreLogStore(db),
		ledger:       store.NewLedgerStore(db),
		members:      store.NewFamilyMemberStore(db),
		clk:          clock.Fixed{T: time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC), WeekStart: time.Monday},
	}
	cache := schedule.NewDefinitionCache(f.chores, schedule.DefaultCacheTTL)
	overrides := store.NewOverrideStore(db)
	resolver := schedule.NewResolver(cache, overrides, f.logs, f.clk)
	f.evaluator = NewEvaluator(f.achievements, f.logs, f.ledger, resolver, f.clk, slog.Default())
	return f
}

func (f *evaluatorFixture) member(t *testing.T, name string) *model.FamilyMember {
	t.Helper()
	m, err := f.members.Create(name, "#44aa88", "", model.RoleChild)
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	return m
}

// approveOn creates an approved log for the chore on the date, credited to
// the member.
func (f *evaluatorFixture) approveOn(t *testing.T, choreID, memberID int64, date string) {
	t.Helper()
	l, err := f.logs.GetOrCreate(choreID, date)
	if err != nil {
		t.Fatalf("get or create log: %v", err)
	}
	l.Status = model.StatusApproved
	l.CompletedBy = &memberID
	if _, err := f.logs.UpdateStatus(l, l.Version); err != nil {
		t.Fatalf("approve log: %v", err)
	}
}

func (f *evaluatorFixture) dailyChore(t *testing.T, name string) *model.ChoreDefinition {
	t.Helper()
	c, err := f.chores.Create(&model.ChoreDefinition{
		Name:         name,
		EarnValue:    decimal.RequireFromString("0.25"),
		ScheduleType: model.ScheduleSpecificDays,
		ActiveDays:   0x7F,
		IsActive:     true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}
	return c
}

func unlockedCodes(unlocked []Unlocked) map[string]bool {
	codes := make(map[string]bool, len(unlocked))
	for _, u := range unlocked {
		codes[u.Achievement.Code] = true
	}
	return codes
}

func TestFirstChoreUnlocks(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c := f.dailyChore(t, "Make bed")
	f.approveOn(t, c.ID, kid.ID, "2026-08-29")

	unlocked, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	codes := unlockedCodes(unlocked)
	if !codes["first_chore"] {
		t.Errorf("first_chore not unlocked; got %v", codes)
	}
	if codes["ten_chores"] {
		t.Error("ten_chores unlocked after one approval")
	}

	earned, err := f.achievements.ListEarned(kid.ID)
	if err != nil {
		t.Fatalf("list earned: %v", err)
	}
	if len(earned) != len(unlocked) {
		t.Errorf("earned rows = %d, unlocked = %d", len(earned), len(unlocked))
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c := f.dailyChore(t, "Make bed")
	f.approveOn(t, c.ID, kid.ID, "2026-08-29")

	first, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("first evaluate: %v", err)
	}
	if !unlockedCodes(first)["first_chore"] {
		t.Fatal("first evaluation did not unlock first_chore")
	}

	second, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("second evaluate: %v", err)
	}
	if len(second) != 0 {
		t.Errorf("re-evaluation unlocked %v again", unlockedCodes(second))
	}
}

func TestProgressTracked(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c := f.dailyChore(t, "Make bed")
	f.approveOn(t, c.ID, kid.ID, "2026-08-28")
	f.approveOn(t, c.ID, kid.ID, "2026-08-29")

	if _, err := f.evaluator.Evaluate(kid.ID, "chore_outcome"); err != nil {
		t.Fatalf("evaluate: %v", err)
	}

	rows, err := f.achievements.ListProgress(kid.ID)
	if err != nil {
		t.Fatalf("list progress: %v", err)
	}
	found := false
	for _, r := range rows {
		if r.Current == 2 && r.Target == 10 {
			found = true
		}
	}
	if !found {
		t.Errorf("no 2/10 progress row for ten_chores; rows = %+v", rows)
	}
}

func TestTotalEarnedUnlocksAndPaysFlatReward(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	account, err := f.ledger.EnsureAccount(kid.ID)
	if err != nil {
		t.Fatalf("ensure account: %v", err)
	}
	_, err = f.ledger.CreateTransaction(&model.Transaction{
		AccountID:       account.ID,
		MemberID:        kid.ID,
		Amount:          decimal.RequireFromString("25.00"),
		Type:            model.TxnChoreEarning,
		Description:     "Summer of chores",
		TransactionDate: "2026-08-20",
	})
	if err != nil {
		t.Fatalf("create earning: %v", err)
	}

	unlocked, err := f.evaluator.Evaluate(kid.ID, "ledger_entry")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	codes := unlockedCodes(unlocked)
	if !codes["first_dollar"] || !codes["big_earner"] {
		t.Fatalf("unlocked = %v, want first_dollar and big_earner", codes)
	}

	// big_earner pays a 2.00 flat reward on top of the 25.00 earning.
	balance, err := f.ledger.Balance(account.ID)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if want := decimal.RequireFromString("27.00"); !balance.Equal(want) {
		t.Errorf("balance = %s, want %s", balance, want)
	}
}

func TestStreakDays(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c := f.dailyChore(t, "Make bed")

	// Six days ending yesterday: streak alive but one short of seven.
	for i := 1; i <= 6; i++ {
		f.approveOn(t, c.ID, kid.ID, f.clk.T.AddDate(0, 0, -i).Format("2006-01-02"))
	}
	unlocked, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if unlockedCodes(unlocked)["week_streak"] {
		t.Fatal("week_streak unlocked at six days")
	}

	f.approveOn(t, c.ID, kid.ID, "2026-08-29")
	unlocked, err = f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !unlockedCodes(unlocked)["week_streak"] {
		t.Fatal("week_streak not unlocked at seven days")
	}

	// week_streak grants a single-use penalty forgiveness token.
	bonuses, err := f.achievements.ListActiveBonuses(kid.ID, f.clk.Now())
	if err != nil {
		t.Fatalf("list bonuses: %v", err)
	}
	found := false
	for _, b := range bonuses {
		if b.BonusType == model.BonusPenaltyForgive {
			found = true
			if b.RemainingUses == nil || *b.RemainingUses != 1 {
				t.Errorf("remaining uses = %v, want 1", b.RemainingUses)
			}
		}
	}
	if !found {
		t.Error("no penalty forgiveness bonus granted")
	}
}

func TestBrokenStreakDoesNotUnlock(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c := f.dailyChore(t, "Make bed")

	// Seven approvals with a gap three days back.
	for i := 0; i <= 7; i++ {
		if i == 3 {
			continue
		}
		f.approveOn(t, c.ID, kid.ID, f.clk.T.AddDate(0, 0, -i).Format("2006-01-02"))
	}

	unlocked, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if unlockedCodes(unlocked)["week_streak"] {
		t.Error("week_streak unlocked across a gap")
	}
}

func TestBonusChoresOverage(t *testing.T) {
	f := setupEvaluator(t)
	kid := f.member(t, "Milo")
	c, err := f.chores.Create(&model.ChoreDefinition{
		Name:              "Practice piano",
		EarnValue:         decimal.RequireFromString("0.25"),
		ScheduleType:      model.ScheduleWeeklyFrequency,
		ActiveDays:        0x7F,
		WeeklyTargetCount: 2,
		AssignedTo:        &kid.ID,
		IsActive:          true,
	})
	if err != nil {
		t.Fatalf("create chore: %v", err)
	}

	// Five approvals against a target of two: three over, which is exactly
	// the overachiever threshold.
	for _, date := range []string{"2026-08-24", "2026-08-25", "2026-08-26", "2026-08-27", "2026-08-28"} {
		f.approveOn(t, c.ID, kid.ID, date)
	}

	unlocked, err := f.evaluator.Evaluate(kid.ID, "chore_outcome")
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !unlockedCodes(unlocked)["overachiever"] {
		t.Error("overachiever not unlocked at three over target")
	}
}
