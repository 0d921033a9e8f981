package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

type adminEnv struct {
	kv       store.Store
	accounts *Accounts
	groups   *Groups
	checkins *CheckIns
	admin    *Admin
	root     string // superadmin id
	alice    string
	bob      string
}

func newAdminEnv(t *testing.T) *adminEnv {
	t.Helper()
	kv := store.NewMemoryStore()
	ledger := NewLedger(kv)
	accounts := NewAccounts(kv)
	env := &adminEnv{
		kv:       kv,
		accounts: accounts,
		groups:   NewGroups(kv),
		checkins: NewCheckIns(kv, ledger),
		admin:    NewAdmin(kv, accounts, ledger),
	}
	ctx := context.Background()
	for _, name := range []string{"root", "alice", "bob"} {
		if _, err := accounts.Register(ctx, name, "secret123"); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	env.root = env.id(t, "root")
	env.alice = env.id(t, "alice")
	env.bob = env.id(t, "bob")
	if _, err := accounts.GrantRole(ctx, env.root, models.RoleSuperAdmin); err != nil {
		t.Fatalf("grant superadmin: %v", err)
	}
	return env
}

func (e *adminEnv) id(t *testing.T, username string) string {
	t.Helper()
	cred, err := CredentialByUsername(context.Background(), e.kv, username)
	if err != nil {
		t.Fatalf("lookup %s: %v", username, err)
	}
	return cred.UserID
}

func TestAdminOperationsRequireSuperadminRole(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	if _, err := env.admin.ListUsers(ctx, env.alice); !errors.Is(err, ErrForbidden) {
		t.Errorf("ListUsers as user = %v, want ErrForbidden", err)
	}
	if _, err := env.admin.GrantRole(ctx, env.alice, env.bob, models.RoleSuperAdmin); !errors.Is(err, ErrForbidden) {
		t.Errorf("GrantRole as user = %v, want ErrForbidden", err)
	}
	if err := env.admin.DeleteUser(ctx, env.alice, env.bob); !errors.Is(err, ErrForbidden) {
		t.Errorf("DeleteUser as user = %v, want ErrForbidden", err)
	}

	users, err := env.admin.ListUsers(ctx, env.root)
	if err != nil {
		t.Fatalf("ListUsers as superadmin: %v", err)
	}
	if len(users) != 3 {
		t.Errorf("users = %d, want 3", len(users))
	}
}

func TestAdminCannotRevokeOwnSuperadmin(t *testing.T) {
	env := newAdminEnv(t)
	_, err := env.admin.RevokeRole(context.Background(), env.root, env.root, models.RoleSuperAdmin)
	if !errors.Is(err, ErrConflict) {
		t.Errorf("self-revoke = %v, want ErrConflict", err)
	}
}

func TestAdminDeleteUserCleansFootprint(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	group, err := env.groups.Create(ctx, env.alice, "Crew", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	invite, err := env.groups.Invite(ctx, env.alice, group.ID, "bob")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if _, err := env.groups.Respond(ctx, env.bob, invite.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := env.checkins.Submit(ctx, env.bob, "2024-03-10", "a", "b", "c"); err != nil {
		t.Fatalf("checkin: %v", err)
	}

	if err := env.admin.DeleteUser(ctx, env.root, env.bob); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}

	// Account and credential are gone; the username is reusable.
	if _, err := env.accounts.ByID(ctx, env.bob); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted account lookup = %v, want ErrNotFound", err)
	}
	if _, err := env.accounts.Register(ctx, "bob", "secret123"); err != nil {
		t.Errorf("re-register freed username: %v", err)
	}

	// Roster no longer lists bob.
	updated, err := env.groups.Load(ctx, group.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if updated.IsMember(env.bob) {
		t.Error("deleted user still on roster")
	}

	// Historical check-ins are retained for the review screen.
	checkins, err := env.admin.ListCheckIns(ctx, env.root)
	if err != nil {
		t.Fatalf("ListCheckIns: %v", err)
	}
	if len(checkins) != 1 {
		t.Errorf("checkins = %d, want the historical record kept", len(checkins))
	}
}

func TestAdminDeleteUserSuperadminProtected(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()
	if _, err := env.accounts.GrantRole(ctx, env.alice, models.RoleSuperAdmin); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := env.admin.DeleteUser(ctx, env.root, env.alice); !errors.Is(err, ErrForbidden) {
		t.Errorf("delete superadmin = %v, want ErrForbidden", err)
	}
}

func TestAdminDeleteGroupCleansInvitesAndMemberships(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	group, err := env.groups.Create(ctx, env.alice, "Crew", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := env.groups.Invite(ctx, env.alice, group.ID, "bob"); err != nil {
		t.Fatalf("invite: %v", err)
	}

	if err := env.admin.DeleteGroup(ctx, env.root, group.ID); err != nil {
		t.Fatalf("DeleteGroup: %v", err)
	}

	if _, err := env.groups.Load(ctx, group.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted group lookup = %v, want ErrNotFound", err)
	}
	mine, err := env.groups.ListMine(ctx, env.alice)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("creator still lists %d groups", len(mine))
	}
	pending, err := env.groups.PendingInvites(ctx, env.bob)
	if err != nil {
		t.Fatalf("PendingInvites: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("invites survived group deletion: %+v", pending)
	}
}

func TestAdminUnifiedLeaderboard(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	group, err := env.groups.Create(ctx, env.alice, "Crew", "")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	if _, err := env.checkins.Submit(ctx, env.alice, "2024-03-10", "a", "b", "c"); err != nil {
		t.Fatalf("checkin: %v", err)
	}

	entries, err := env.admin.Unified(ctx, env.root)
	if err != nil {
		t.Fatalf("Unified: %v", err)
	}
	// One row per (user, group) pairing; users without groups appear once.
	if len(entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(entries))
	}
	if entries[0].Username != "alice" || entries[0].GroupName != group.Name || entries[0].Points != 3 {
		t.Errorf("top entry = %+v, want alice in %s with 3 points", entries[0], group.Name)
	}
}

func TestAdminUpdateUserPointCorrection(t *testing.T) {
	env := newAdminEnv(t)
	ctx := context.Background()

	total, day := 100, 7
	updated, err := env.admin.UpdateUser(ctx, env.root, env.alice, AccountUpdate{TotalPoints: &total, DayPoints: &day})
	if err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	if updated.TotalPoints != 100 || updated.DayPoints != 7 {
		t.Errorf("updated = %+v, want total=100 day=7", updated)
	}
	if updated.WeekPoints != 0 {
		t.Errorf("untouched field changed: week=%d", updated.WeekPoints)
	}
}
