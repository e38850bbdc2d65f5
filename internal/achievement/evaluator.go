// Package achievement evaluates data-driven unlock conditions against
// chore and ledger history. Each achievement row carries a condition type
// tag and a JSON parameter blob; the evaluator is a dispatch table keyed
// by the tag, so a new condition is a new entry, not a schema change.
package achievement

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"
	"github.com/wrenhall/chorebank/internal/calendar"
	"github.com/wrenhall/chorebank/internal/clock"
	"github.com/wrenhall/chorebank/internal/model"
	"github.com/wrenhall/chorebank/internal/schedule"
	"github.com/wrenhall/chorebank/internal/store"
)

// result is what a condition handler reports: whether the condition holds
// and the current/target pair for the progress bar.
type result struct {
	met     bool
	current int64
	target  int64
}

type conditionFunc func(e *Evaluator, memberID int64, a *model.Achievement) (result, error)

type Evaluator struct {
	achievements *store.AchievementStore
	logs         *store.ChoreLogStore
	ledger       *store.LedgerStore
	resolver     *schedule.Resolver
	clk          clock.Clock
	logger       *slog.Logger
	handlers     map[model.ConditionType]conditionFunc
}

func NewEvaluator(achievements *store.AchievementStore, logs *store.ChoreLogStore, ledger *store.LedgerStore, resolver *schedule.Resolver, clk clock.Clock, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		achievements: achievements,
		logs:         logs,
		ledger:       ledger,
		resolver:     resolver,
		clk:          clk,
		logger:       logger,
		handlers: map[model.ConditionType]conditionFunc{
			model.CondChoresCompleted:    evalChoresCompleted,
			model.CondStreakDays:         evalStreakDays,
			model.CondTotalEarned:        evalTotalEarned,
			model.CondWeeklyTargetStreak: evalWeeklyTargetStreak,
			model.CondBonusChores:        evalBonusChores,
		},
	}
}

// Unlocked pairs a newly earned achievement with the bonus it granted.
type Unlocked struct {
	Achievement model.Achievement             `json:"achievement"`
	Bonus       *model.MemberAchievementBonus `json:"bonus,omitempty"`
}

// Evaluate checks every active achievement the member hasn't earned yet,
// updates progress, and returns the ones that just unlocked. A failing
// handler is logged and skipped; evaluation of the rest continues, and the
// next trigger retries.
func (e *Evaluator) Evaluate(memberID int64, trigger string) ([]Unlocked, error) {
	achievements, err := e.achievements.ListActive()
	if err != nil {
		return nil, fmt.Errorf("list achievements: %w", err)
	}

	var unlocked []Unlocked
	for i := range achievements {
		a := &achievements[i]

		earned, err := e.achievements.HasEarned(memberID, a.ID)
		if err != nil {
			return nil, err
		}
		if earned {
			continue
		}

		handler, ok := e.handlers[a.ConditionType]
		if !ok {
			e.logger.Warn("unknown achievement condition type",
				"achievement", a.Code, "condition_type", a.ConditionType)
			continue
		}

		res, err := handler(e, memberID, a)
		if err != nil {
			e.logger.Error("evaluate achievement condition",
				"achievement", a.Code, "member_id", memberID, "trigger", trigger, "error", err)
			continue
		}

		if err := e.achievements.UpsertProgress(memberID, a.ID, res.current, res.target); err != nil {
			e.logger.Error("upsert achievement progress", "achievement", a.Code, "error", err)
		}

		if !res.met {
			continue
		}

		inserted, err := e.achievements.MarkEarned(memberID, a.ID)
		if err != nil {
			e.logger.Error("mark achievement earned", "achievement", a.Code, "error", err)
			continue
		}
		if !inserted {
			// A concurrent evaluation got there first.
			continue
		}

		u := Unlocked{Achievement: *a}
		if a.BonusType != nil {
			bonus, err := e.grantBonus(memberID, a)
			if err != nil {
				e.logger.Error("grant achievement bonus", "achievement", a.Code, "error", err)
			} else {
				u.Bonus = bonus
			}
		}
		unlocked = append(unlocked, u)
	}
	return unlocked, nil
}

// bonusParams is the shape of the bonus_params blob. Which fields matter
// depends on the bonus type.
type bonusParams struct {
	Multiplier  decimal.Decimal `json:"multiplier"`
	Amount      decimal.Decimal `json:"amount"`
	ExpiresDays int             `json:"expires_days"`
	Uses        *int            `json:"uses"`
}

func (e *Evaluator) grantBonus(memberID int64, a *model.Achievement) (*model.MemberAchievementBonus, error) {
	var p bonusParams
	if len(a.BonusParams) > 0 {
		if err := json.Unmarshal(a.BonusParams, &p); err != nil {
			return nil, fmt.Errorf("decode bonus params for %s: %w", a.Code, err)
		}
	}

	if *a.BonusType == model.BonusFlatReward {
		// A flat reward pays out immediately; nothing lingers.
		account, err := e.ledger.EnsureAccount(memberID)
		if err != nil {
			return nil, err
		}
		_, err = e.ledger.CreateTransaction(&model.Transaction{
			AccountID:       account.ID,
			MemberID:        memberID,
			Amount:          p.Amount,
			Type:            model.TxnBonus,
			Description:     fmt.Sprintf("Achievement: %s", a.Name),
			TransactionDate: e.clk.Today(),
		})
		if err != nil {
			return nil, err
		}
	}

	b := &model.MemberAchievementBonus{
		MemberID:      memberID,
		AchievementID: a.ID,
		BonusType:     *a.BonusType,
		Multiplier:    decimal.NewFromInt(1),
		RemainingUses: p.Uses,
	}
	if !p.Multiplier.IsZero() {
		b.Multiplier = p.Multiplier
	}
	if p.ExpiresDays > 0 {
		exp := e.clk.Now().AddDate(0, 0, p.ExpiresDays)
		b.ExpiresAt = &exp
	}
	return e.achievements.GrantBonus(b)
}

// --- Condition handlers ---

type choresCompletedParams struct {
	Count int64 `json:"count"`
}

func evalChoresCompleted(e *Evaluator, memberID int64, a *model.Achievement) (result, error) {
	var p choresCompletedParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return result{}, fmt.Errorf("decode params: %w", err)
	}

	n, err := e.logs.CountApproved(memberID)
	if err != nil {
		return result{}, err
	}
	return result{met: n >= p.Count, current: min(n, p.Count), target: p.Count}, nil
}

type streakDaysParams struct {
	Days int `json:"days"`
}

func evalStreakDays(e *Evaluator, memberID int64, a *model.Achievement) (result, error) {
	var p streakDaysParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return result{}, fmt.Errorf("decode params: %w", err)
	}
	if p.Days < 1 {
		return result{}, fmt.Errorf("streak_days needs days >= 1")
	}

	today, err := calendar.ParseDate(e.clk.Today())
	if err != nil {
		return result{}, err
	}

	// Only the window that could hold the streak is read.
	since := calendar.FormatDate(today.AddDate(0, 0, -p.Days))
	dates, err := e.logs.ApprovedDatesSince(memberID, since)
	if err != nil {
		return result{}, err
	}

	have := make(map[string]bool, len(dates))
	for _, d := range dates {
		have[d] = true
	}

	// Count back from today; a streak still alive through yesterday (today
	// not yet done) also counts from yesterday.
	anchor := today
	if !have[calendar.FormatDate(anchor)] {
		anchor = anchor.AddDate(0, 0, -1)
	}
	streak := 0
	for have[calendar.FormatDate(anchor)] {
		streak++
		anchor = anchor.AddDate(0, 0, -1)
	}

	target := int64(p.Days)
	return result{met: int64(streak) >= target, current: min(int64(streak), target), target: target}, nil
}

type totalEarnedParams struct {
	Amount decimal.Decimal `json:"amount"`
}

func evalTotalEarned(e *Evaluator, memberID int64, a *model.Achievement) (result, error) {
	var p totalEarnedParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return result{}, fmt.Errorf("decode params: %w", err)
	}

	total, err := e.ledger.TotalEarnedByMember(memberID)
	if err != nil {
		return result{}, err
	}

	// Progress in whole cents so the bar renders as an integer pair.
	current := total.Mul(decimal.NewFromInt(100)).IntPart()
	target := p.Amount.Mul(decimal.NewFromInt(100)).IntPart()
	return result{met: total.GreaterThanOrEqual(p.Amount), current: min(current, target), target: target}, nil
}

type weeklyTargetStreakParams struct {
	Weeks int `json:"weeks"`
}

func evalWeeklyTargetStreak(e *Evaluator, memberID int64, a *model.Achievement) (result, error) {
	var p weeklyTargetStreakParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return result{}, fmt.Errorf("decode params: %w", err)
	}
	if p.Weeks < 1 {
		return result{}, fmt.Errorf("weekly_target_streak needs weeks >= 1")
	}

	today, err := calendar.ParseDate(e.clk.Today())
	if err != nil {
		return result{}, err
	}

	// Walk completed weeks backwards, newest first, starting with last
	// week — the current week is still in flight.
	streak := 0
	for w := 1; w <= p.Weeks; w++ {
		weekDate := today.AddDate(0, 0, -7*w)
		progress, err := e.resolver.WeeklyProgress(memberID, weekDate)
		if err != nil {
			return result{}, err
		}
		if len(progress) == 0 {
			break
		}
		allMet := true
		for _, pr := range progress {
			if !pr.TargetMet {
				allMet = false
				break
			}
		}
		if !allMet {
			break
		}
		streak++
	}

	target := int64(p.Weeks)
	return result{met: int64(streak) >= target, current: int64(streak), target: target}, nil
}

type bonusChoresParams struct {
	Count int `json:"count"`
}

// evalBonusChores counts approvals beyond the weekly target in the current
// week. A fourth approval against a target of three doesn't change
// target-met state, but it counts here.
func evalBonusChores(e *Evaluator, memberID int64, a *model.Achievement) (result, error) {
	var p bonusChoresParams
	if err := json.Unmarshal(a.Params, &p); err != nil {
		return result{}, fmt.Errorf("decode params: %w", err)
	}

	today, err := calendar.ParseDate(e.clk.Today())
	if err != nil {
		return result{}, err
	}

	progress, err := e.resolver.WeeklyProgress(memberID, today)
	if err != nil {
		return result{}, err
	}

	var extra int64
	for _, pr := range progress {
		if over := pr.Approved - pr.Target; over > 0 {
			extra += int64(over)
		}
	}

	target := int64(p.Count)
	return result{met: extra >= target, current: min(extra, target), target: target}, nil
}
