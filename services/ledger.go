package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

// Ledger owns the per-user point counters. Rollover is lazy: there is no
// scheduler; a stale counter is corrected inside the CAS closure of the next
// access, and the corrected record is persisted so the following reader sees
// it pre-corrected.
type Ledger struct {
	kv store.Store
}

// NewLedger creates a ledger over the given store.
func NewLedger(kv store.Store) *Ledger {
	return &Ledger{kv: kv}
}

// Current loads the account, zeroing any period counter whose stored reset
// key no longer matches the current window. The write is skipped when every
// counter is already fresh.
func (l *Ledger) Current(ctx context.Context, userID string) (*models.UserAccount, error) {
	raw, err := l.kv.Update(ctx, accountKey(userID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
		}
		var acct models.UserAccount
		if err := json.Unmarshal(old, &acct); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", userID, err)
		}
		if !rollover(&acct, CurrentPeriods(time.Now())) {
			return nil, nil // fresh, no write
		}
		return json.Marshal(&acct)
	})
	if err != nil {
		return nil, err
	}
	return decodeAccount(raw)
}

// ApplyDelta rolls the account over, then adds delta to the lifetime total
// and to all four period counters at once; a check-in counts toward every
// active window. checkinDate, when non-empty, is stamped as the account's
// last check-in date. Delta may be negative (check-in edits).
func (l *Ledger) ApplyDelta(ctx context.Context, userID string, delta int, checkinDate string) (*models.UserAccount, error) {
	raw, err := l.kv.Update(ctx, accountKey(userID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
		}
		var acct models.UserAccount
		if err := json.Unmarshal(old, &acct); err != nil {
			return nil, fmt.Errorf("decode account %s: %w", userID, err)
		}
		rollover(&acct, CurrentPeriods(time.Now()))
		acct.TotalPoints += delta
		acct.DayPoints += delta
		acct.WeekPoints += delta
		acct.MonthPoints += delta
		acct.YearPoints += delta
		if checkinDate != "" {
			acct.LastCheckin = checkinDate
		}
		return json.Marshal(&acct)
	})
	if err != nil {
		return nil, err
	}
	return decodeAccount(raw)
}

// rollover zeroes every stale period counter and stamps the fresh window
// keys. Reports whether anything changed.
func rollover(a *models.UserAccount, now PeriodKeys) bool {
	changed := false
	if a.LastResetDay != now.Day {
		a.DayPoints = 0
		a.LastResetDay = now.Day
		changed = true
	}
	if a.LastResetWeek != now.Week {
		a.WeekPoints = 0
		a.LastResetWeek = now.Week
		changed = true
	}
	if a.LastResetMonth != now.Month {
		a.MonthPoints = 0
		a.LastResetMonth = now.Month
		changed = true
	}
	if a.LastResetYear != now.Year {
		a.YearPoints = 0
		a.LastResetYear = now.Year
		changed = true
	}
	return changed
}

func decodeAccount(raw []byte) (*models.UserAccount, error) {
	var acct models.UserAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &acct, nil
}
