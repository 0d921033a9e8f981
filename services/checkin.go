package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

// CheckIns manages the one-record-per-day reflection store. The duplicate
// gate is the store's create-if-absent primitive, not a read-then-write pair,
// so two concurrent submissions for the same day cannot both land.
type CheckIns struct {
	kv     store.Store
	ledger *Ledger
}

// NewCheckIns creates the check-in service.
func NewCheckIns(kv store.Store, ledger *Ledger) *CheckIns {
	return &CheckIns{kv: kv, ledger: ledger}
}

// CheckInResult pairs the stored record with the account totals after the
// point delta landed.
type CheckInResult struct {
	Record  *models.CheckInRecord `json:"checkin"`
	Account *models.UserAccount   `json:"user"`
}

// answerPoints counts the non-empty reflection answers; each is worth one
// point, 0-3 per day.
func answerPoints(help, learn, thank string) int {
	points := 0
	for _, answer := range []string{help, learn, thank} {
		if answer != "" {
			points++
		}
	}
	return points
}

// Submit stores the first check-in for (userID, date) and credits its points.
// A second submission for the same day fails with ErrConflict and leaves the
// ledger untouched.
func (c *CheckIns) Submit(ctx context.Context, userID, date, help, learn, thank string) (*CheckInResult, error) {
	record := models.CheckInRecord{
		UserID:    userID,
		Date:      date,
		Help:      utils.SanitizeText(help),
		Learn:     utils.SanitizeText(learn),
		Thank:     utils.SanitizeText(thank),
		CreatedAt: time.Now().UTC(),
	}
	record.Points = answerPoints(record.Help, record.Learn, record.Thank)

	raw, err := json.Marshal(&record)
	if err != nil {
		return nil, err
	}
	created, err := c.kv.CreateIfAbsent(ctx, checkinKey(userID, date), raw)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("check-in for %s already exists: %w", date, ErrConflict)
	}

	acct, err := c.ledger.ApplyDelta(ctx, userID, record.Points, date)
	if err != nil {
		return nil, err
	}
	return &CheckInResult{Record: &record, Account: acct}, nil
}

// Edit overwrites the three answers of an existing check-in in place and
// settles the point difference with the ledger; the difference may be
// negative. The record is never deleted, even when edited down to zero
// points.
func (c *CheckIns) Edit(ctx context.Context, userID, date, help, learn, thank string) (*CheckInResult, error) {
	var record models.CheckInRecord
	var delta int

	_, err := c.kv.Update(ctx, checkinKey(userID, date), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("no check-in for %s: %w", date, ErrNotFound)
		}
		if err := json.Unmarshal(old, &record); err != nil {
			return nil, fmt.Errorf("decode check-in: %w", err)
		}
		record.Help = utils.SanitizeText(help)
		record.Learn = utils.SanitizeText(learn)
		record.Thank = utils.SanitizeText(thank)
		newPoints := answerPoints(record.Help, record.Learn, record.Thank)
		delta = newPoints - record.Points
		record.Points = newPoints
		now := time.Now().UTC()
		record.UpdatedAt = &now
		return json.Marshal(&record)
	})
	if err != nil {
		return nil, err
	}

	var acct *models.UserAccount
	if delta != 0 {
		acct, err = c.ledger.ApplyDelta(ctx, userID, delta, "")
	} else {
		acct, err = c.ledger.Current(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return &CheckInResult{Record: &record, Account: acct}, nil
}

// Status reports whether the user checked in on the given date. Absence is a
// valid state, not an error: the record pointer is nil.
func (c *CheckIns) Status(ctx context.Context, userID, date string) (*models.CheckInRecord, error) {
	raw, err := c.kv.Get(ctx, checkinKey(userID, date))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record models.CheckInRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("decode check-in: %w", err)
	}
	return &record, nil
}

// Stats aggregates the user's full check-in history for the profile screen.
// Reading the account goes through the ledger so stale counters are corrected
// on the way out.
func (c *CheckIns) Stats(ctx context.Context, userID string) (*models.UserAccount, *models.CheckInStats, error) {
	acct, err := c.ledger.Current(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	pairs, err := c.kv.ScanByPrefix(ctx, userCheckinPrefix(userID))
	if err != nil {
		return nil, nil, err
	}

	stats := models.CheckInStats{
		TotalPoints: acct.TotalPoints,
		LastCheckin: acct.LastCheckin,
	}
	for _, raw := range pairs {
		var record models.CheckInRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue // skip undecodable rows rather than failing the profile
		}
		stats.TotalCheckins++
		if record.Help != "" {
			stats.TotalHelps++
		}
		if record.Learn != "" {
			stats.TotalLearns++
		}
		if record.Thank != "" {
			stats.TotalThanks++
		}
	}
	return acct, &stats, nil
}
