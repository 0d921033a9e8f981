package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hltapp/hlt-server/store"
)

func seedScored(t *testing.T, kv store.Store, id, username string, points int) {
	t.Helper()
	acct := freshAccount(id, username)
	acct.TotalPoints = points
	acct.DayPoints = points
	acct.WeekPoints = points
	acct.MonthPoints = points
	acct.YearPoints = points
	seedAccount(t, kv, acct)
}

func TestLeaderboardRanksArePositions(t *testing.T) {
	kv := store.NewMemoryStore()
	boards := NewLeaderboards(kv, NewLedger(kv))

	seedScored(t, kv, "a", "alice", 5)
	seedScored(t, kv, "b", "bob", 5)
	seedScored(t, kv, "c", "carol", 3)

	entries, err := boards.Build(context.Background(), PeriodDaily, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("len = %d, want 3", len(entries))
	}
	// Tied scores still get distinct consecutive ranks, ordered by username.
	want := []struct {
		username string
		points   int
		rank     int
	}{
		{"alice", 5, 1},
		{"bob", 5, 2},
		{"carol", 3, 3},
	}
	for i, w := range want {
		if entries[i].Username != w.username || entries[i].Points != w.points || entries[i].Rank != w.rank {
			t.Errorf("entry[%d] = %+v, want %+v", i, entries[i], w)
		}
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].Points > entries[i-1].Points {
			t.Errorf("points not non-increasing at %d", i)
		}
	}
}

func TestLeaderboardCorrectsStaleCounters(t *testing.T) {
	kv := store.NewMemoryStore()
	boards := NewLeaderboards(kv, NewLedger(kv))

	stale := freshAccount("a", "alice")
	stale.TotalPoints = 10
	stale.DayPoints = 10
	stale.LastResetDay = "2000-01-01"
	seedAccount(t, kv, stale)
	seedScored(t, kv, "b", "bob", 1)

	entries, err := boards.Build(context.Background(), PeriodDaily, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if entries[0].Username != "bob" || entries[0].Points != 1 {
		t.Errorf("top entry = %+v, want bob with 1 (alice's stale day counter zeroed)", entries[0])
	}
	if entries[1].Username != "alice" || entries[1].Points != 0 {
		t.Errorf("second entry = %+v, want alice with 0", entries[1])
	}
}

func TestGroupLeaderboardMembersOnly(t *testing.T) {
	kv := store.NewMemoryStore()
	ledger := NewLedger(kv)
	boards := NewLeaderboards(kv, ledger)
	groups := NewGroups(kv)

	seedScored(t, kv, "owner", "alice", 5)
	seedScored(t, kv, "outsider", "mallory", 9)

	group, err := groups.Create(context.Background(), "owner", "Morning Crew", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	entries, err := boards.BuildForGroup(context.Background(), "owner", group.ID, PeriodDaily)
	if err != nil {
		t.Fatalf("BuildForGroup: %v", err)
	}
	if len(entries) != 1 || entries[0].UserID != "owner" {
		t.Errorf("entries = %+v, want only the member roster ranked", entries)
	}

	if _, err := boards.BuildForGroup(context.Background(), "outsider", group.ID, PeriodDaily); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider view = %v, want ErrForbidden", err)
	}
}

func TestLeaderboardPeriodSelection(t *testing.T) {
	kv := store.NewMemoryStore()
	boards := NewLeaderboards(kv, NewLedger(kv))

	acct := freshAccount("a", "alice")
	acct.DayPoints = 1
	acct.WeekPoints = 4
	acct.MonthPoints = 9
	acct.YearPoints = 20
	acct.TotalPoints = 20
	seedAccount(t, kv, acct)

	cases := map[Period]int{
		PeriodDaily:   1,
		PeriodWeekly:  4,
		PeriodMonthly: 9,
		PeriodYearly:  20,
	}
	for period, want := range cases {
		entries, err := boards.Build(context.Background(), period, nil)
		if err != nil {
			t.Fatalf("Build(%s): %v", period, err)
		}
		if entries[0].Points != want {
			t.Errorf("Build(%s) points = %d, want %d", period, entries[0].Points, want)
		}
	}
}
