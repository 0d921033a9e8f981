package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

type groupEnv struct {
	kv       store.Store
	groups   *Groups
	accounts *Accounts
}

// newGroupEnv registers alice (group creator), bob and carol.
func newGroupEnv(t *testing.T) *groupEnv {
	t.Helper()
	kv := store.NewMemoryStore()
	env := &groupEnv{kv: kv, groups: NewGroups(kv), accounts: NewAccounts(kv)}
	for _, name := range []string{"alice", "bob", "carol"} {
		if _, err := env.accounts.Register(context.Background(), name, "secret123"); err != nil {
			t.Fatalf("register %s: %v", name, err)
		}
	}
	return env
}

func (e *groupEnv) userID(t *testing.T, username string) string {
	t.Helper()
	cred, err := CredentialByUsername(context.Background(), e.kv, username)
	if err != nil {
		t.Fatalf("lookup %s: %v", username, err)
	}
	return cred.UserID
}

func (e *groupEnv) createGroup(t *testing.T, ownerID string) *models.Group {
	t.Helper()
	group, err := e.groups.Create(context.Background(), ownerID, "Morning Crew", "daily reflections")
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	return group
}

// invite sends bob a pending invite from alice and returns it.
func (e *groupEnv) inviteBob(t *testing.T, groupID, aliceID string) *models.Invite {
	t.Helper()
	invite, err := e.groups.Invite(context.Background(), aliceID, groupID, "bob")
	if err != nil {
		t.Fatalf("invite bob: %v", err)
	}
	return invite
}

func TestCreateGroupMakesOwnerAdminAndMember(t *testing.T) {
	env := newGroupEnv(t)
	alice := env.userID(t, "alice")

	group := env.createGroup(t, alice)
	if !group.IsAdmin(alice) || !group.IsMember(alice) {
		t.Errorf("creator is not admin+member: %+v", group)
	}

	mine, err := env.groups.ListMine(context.Background(), alice)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != group.ID {
		t.Errorf("ListMine = %+v, want the created group", mine)
	}
}

func TestCreateGroupRequiresName(t *testing.T) {
	env := newGroupEnv(t)
	alice := env.userID(t, "alice")
	if _, err := env.groups.Create(context.Background(), alice, "   ", ""); !errors.Is(err, ErrValidation) {
		t.Errorf("blank name = %v, want ErrValidation", err)
	}
}

func TestInviteLifecycleAccept(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	invite := env.inviteBob(t, group.ID, alice)
	if invite.Status != models.InviteStatusPending {
		t.Fatalf("status = %s, want pending", invite.Status)
	}

	pending, err := env.groups.PendingInvites(ctx, bob)
	if err != nil {
		t.Fatalf("PendingInvites: %v", err)
	}
	if len(pending) != 1 || pending[0].ID != invite.ID {
		t.Fatalf("pending = %+v, want the new invite", pending)
	}

	resolved, err := env.groups.Respond(ctx, bob, invite.ID, true)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resolved.Status != models.InviteStatusAccepted || resolved.RespondedAt == nil {
		t.Errorf("resolved = %+v, want accepted with timestamp", resolved)
	}

	updated, err := env.groups.Load(ctx, group.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !updated.IsMember(bob) {
		t.Error("bob not on roster after accepting")
	}

	// Status is monotonic: a second respond conflicts and changes nothing.
	if _, err := env.groups.Respond(ctx, bob, invite.ID, false); !errors.Is(err, ErrConflict) {
		t.Errorf("second respond = %v, want ErrConflict", err)
	}
}

func TestInviteDeclineDoesNotJoin(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)
	invite := env.inviteBob(t, group.ID, alice)

	resolved, err := env.groups.Respond(ctx, bob, invite.ID, false)
	if err != nil {
		t.Fatalf("Respond: %v", err)
	}
	if resolved.Status != models.InviteStatusDeclined {
		t.Errorf("status = %s, want declined", resolved.Status)
	}
	updated, _ := env.groups.Load(ctx, group.ID)
	if updated.IsMember(bob) {
		t.Error("decline must not add bob to the roster")
	}

	// A declined invite no longer blocks a fresh one.
	if _, err := env.groups.Invite(ctx, alice, group.ID, "bob"); err != nil {
		t.Errorf("re-invite after decline: %v", err)
	}
}

func TestInviteGuards(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	// Only admins may invite.
	if _, err := env.groups.Invite(ctx, bob, group.ID, "carol"); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin invite = %v, want ErrForbidden", err)
	}
	// Unknown invitee.
	if _, err := env.groups.Invite(ctx, alice, group.ID, "nosuchuser"); !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown invitee = %v, want ErrNotFound", err)
	}
	// Pending invite is unique per (group, invitee).
	env.inviteBob(t, group.ID, alice)
	if _, err := env.groups.Invite(ctx, alice, group.ID, "bob"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate pending invite = %v, want ErrConflict", err)
	}
	// Existing members cannot be invited.
	if _, err := env.groups.Invite(ctx, alice, group.ID, "alice"); !errors.Is(err, ErrConflict) {
		t.Errorf("invite a member = %v, want ErrConflict", err)
	}
	// Only the invitee may respond.
	pending, _ := env.groups.PendingInvites(ctx, bob)
	if _, err := env.groups.Respond(ctx, env.userID(t, "carol"), pending[0].ID, true); !errors.Is(err, ErrNotFound) {
		// carol's inbox has no such invite, so it is simply not found for her
		t.Errorf("foreign respond = %v, want ErrNotFound", err)
	}
}

func TestCreatorIsProtected(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice := env.userID(t, "alice")
	group := env.createGroup(t, alice)

	if err := env.groups.RemoveMember(ctx, alice, group.ID, alice); !errors.Is(err, ErrConflict) {
		t.Errorf("remove creator = %v, want ErrConflict", err)
	}
	if err := env.groups.BanMember(ctx, alice, group.ID, alice); !errors.Is(err, ErrConflict) {
		t.Errorf("ban creator = %v, want ErrConflict", err)
	}
}

func TestBanBlocksInvitesAndUnbanDoesNotRestore(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	invite := env.inviteBob(t, group.ID, alice)
	if _, err := env.groups.Respond(ctx, bob, invite.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}

	if err := env.groups.BanMember(ctx, alice, group.ID, bob); err != nil {
		t.Fatalf("ban: %v", err)
	}
	updated, _ := env.groups.Load(ctx, group.ID)
	if updated.IsMember(bob) || !updated.IsBanned(bob) {
		t.Errorf("after ban: member=%v banned=%v, want false/true", updated.IsMember(bob), updated.IsBanned(bob))
	}

	// Banned users cannot be invited back.
	if _, err := env.groups.Invite(ctx, alice, group.ID, "bob"); !errors.Is(err, ErrConflict) {
		t.Errorf("invite banned user = %v, want ErrConflict", err)
	}

	if err := env.groups.UnbanMember(ctx, alice, group.ID, bob); err != nil {
		t.Fatalf("unban: %v", err)
	}
	updated, _ = env.groups.Load(ctx, group.ID)
	if updated.IsBanned(bob) {
		t.Error("still banned after unban")
	}
	if updated.IsMember(bob) {
		t.Error("unban must not silently restore membership")
	}

	// Rejoining takes a fresh invite.
	if _, err := env.groups.Invite(ctx, alice, group.ID, "bob"); err != nil {
		t.Errorf("invite after unban: %v", err)
	}
}

func TestRemoveMemberDropsMembershipIndex(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	invite := env.inviteBob(t, group.ID, alice)
	if _, err := env.groups.Respond(ctx, bob, invite.ID, true); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := env.groups.RemoveMember(ctx, alice, group.ID, bob); err != nil {
		t.Fatalf("remove: %v", err)
	}

	mine, err := env.groups.ListMine(ctx, bob)
	if err != nil {
		t.Fatalf("ListMine: %v", err)
	}
	if len(mine) != 0 {
		t.Errorf("bob still lists %d groups after removal", len(mine))
	}
}

func TestUpdateGroupAdminOnlyPartial(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	name := "Evening Crew"
	updated, err := env.groups.Update(ctx, alice, group.ID, &name, nil)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.Name != "Evening Crew" || updated.Description != "daily reflections" {
		t.Errorf("partial update wrong: %+v", updated)
	}

	if _, err := env.groups.Update(ctx, bob, group.ID, &name, nil); !errors.Is(err, ErrForbidden) {
		t.Errorf("non-admin update = %v, want ErrForbidden", err)
	}

	empty := ""
	if _, err := env.groups.Update(ctx, alice, group.ID, &empty, nil); !errors.Is(err, ErrValidation) {
		t.Errorf("rename to empty = %v, want ErrValidation", err)
	}
}

func TestGroupDetailMembersOnly(t *testing.T) {
	env := newGroupEnv(t)
	ctx := context.Background()
	alice, bob := env.userID(t, "alice"), env.userID(t, "bob")
	group := env.createGroup(t, alice)

	_, members, err := env.groups.Detail(ctx, alice, group.ID)
	if err != nil {
		t.Fatalf("Detail: %v", err)
	}
	if len(members) != 1 || members[0].Username != "alice" {
		t.Errorf("members = %+v, want alice only", members)
	}

	if _, _, err := env.groups.Detail(ctx, bob, group.ID); !errors.Is(err, ErrForbidden) {
		t.Errorf("outsider detail = %v, want ErrForbidden", err)
	}
}
