package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

// Leaderboards ranks accounts on one of the four period counters. Building a
// board corrects stale accounts through the ledger on the way, so reads keep
// the stored data pre-corrected for the next reader.
type Leaderboards struct {
	kv     store.Store
	ledger *Ledger
}

// NewLeaderboards creates the leaderboard builder.
func NewLeaderboards(kv store.Store, ledger *Ledger) *Leaderboards {
	return &Leaderboards{kv: kv, ledger: ledger}
}

// Build ranks either every account (memberFilter nil) or only the given user
// ids. Entries are sorted descending by period points with username as the
// deterministic tie order; rank is the 1-based position, so ties still get
// distinct consecutive ranks.
func (b *Leaderboards) Build(ctx context.Context, period Period, memberFilter []string) ([]models.LeaderboardEntry, error) {
	var accounts []*models.UserAccount

	if memberFilter != nil {
		for _, userID := range memberFilter {
			acct, err := b.ledger.Current(ctx, userID)
			if errors.Is(err, ErrNotFound) {
				continue // roster can reference an administratively removed account
			}
			if err != nil {
				return nil, err
			}
			accounts = append(accounts, acct)
		}
	} else {
		pairs, err := b.kv.ScanByPrefix(ctx, accountPrefix)
		if err != nil {
			return nil, err
		}
		for _, raw := range pairs {
			var acct models.UserAccount
			if err := json.Unmarshal(raw, &acct); err != nil || acct.ID == "" {
				continue
			}
			if rollover(&acct, CurrentPeriods(time.Now())) {
				// Stale: correct through the ledger's CAS so the fix persists.
				corrected, err := b.ledger.Current(ctx, acct.ID)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					return nil, err
				}
				acct = *corrected
			}
			accounts = append(accounts, &acct)
		}
	}

	sort.SliceStable(accounts, func(i, j int) bool {
		pi, pj := period.PointsOf(accounts[i]), period.PointsOf(accounts[j])
		if pi != pj {
			return pi > pj
		}
		return accounts[i].Username < accounts[j].Username
	})

	entries := make([]models.LeaderboardEntry, 0, len(accounts))
	for i, acct := range accounts {
		entries = append(entries, models.LeaderboardEntry{
			UserID:   acct.ID,
			Username: acct.Username,
			Points:   period.PointsOf(acct),
			Rank:     i + 1,
		})
	}
	return entries, nil
}

// BuildForGroup ranks a group's members. Only members may view the board.
func (b *Leaderboards) BuildForGroup(ctx context.Context, principalID, groupID string, period Period) ([]models.LeaderboardEntry, error) {
	raw, err := b.kv.Get(ctx, groupKey(groupID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var group models.Group
	if err := json.Unmarshal(raw, &group); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	if !group.IsMember(principalID) {
		return nil, fmt.Errorf("not a member of group %s: %w", groupID, ErrForbidden)
	}
	return b.Build(ctx, period, group.Members)
}
