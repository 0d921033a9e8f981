package services

import (
	"context"
	"errors"
	"testing"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

func TestRegisterAndAuthenticate(t *testing.T) {
	kv := store.NewMemoryStore()
	accounts := NewAccounts(kv)
	ctx := context.Background()

	acct, err := accounts.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if acct.TotalPoints != 0 || acct.DayPoints != 0 {
		t.Errorf("new account has non-zero counters: %+v", acct)
	}
	if !acct.HasRole(models.RoleUser) || acct.IsSuperAdmin() {
		t.Errorf("new account roles = %v, want [user]", acct.Roles)
	}
	if acct.LastResetDay == "" || acct.LastResetWeek == "" {
		t.Error("period keys not stamped at registration")
	}

	got, err := accounts.Authenticate(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.ID != acct.ID {
		t.Errorf("authenticated id = %s, want %s", got.ID, acct.ID)
	}
}

func TestRegisterValidation(t *testing.T) {
	kv := store.NewMemoryStore()
	accounts := NewAccounts(kv)
	ctx := context.Background()

	cases := []struct{ username, password string }{
		{"ab", "secret123"},        // too short
		{"has space", "secret123"}, // illegal character
		{"has:colon", "secret123"}, // would break the key scheme
		{"alice", "short"},         // password too short
	}
	for _, c := range cases {
		if _, err := accounts.Register(ctx, c.username, c.password); !errors.Is(err, ErrValidation) {
			t.Errorf("Register(%q, %q) = %v, want ErrValidation", c.username, c.password, err)
		}
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	kv := store.NewMemoryStore()
	accounts := NewAccounts(kv)
	ctx := context.Background()

	if _, err := accounts.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := accounts.Register(ctx, "alice", "different1"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate Register = %v, want ErrConflict", err)
	}
}

func TestAuthenticateFailsIdentically(t *testing.T) {
	kv := store.NewMemoryStore()
	accounts := NewAccounts(kv)
	ctx := context.Background()

	if _, err := accounts.Register(ctx, "alice", "secret123"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, unknownErr := accounts.Authenticate(ctx, "nobody", "secret123")
	_, wrongErr := accounts.Authenticate(ctx, "alice", "wrongpass")
	if !errors.Is(unknownErr, ErrUnauthorized) || !errors.Is(wrongErr, ErrUnauthorized) {
		t.Fatalf("errors = %v / %v, want ErrUnauthorized for both", unknownErr, wrongErr)
	}
	// Unknown user and wrong password must be indistinguishable.
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("messages differ: %q vs %q", unknownErr, wrongErr)
	}
}

func TestGrantAndRevokeRole(t *testing.T) {
	kv := store.NewMemoryStore()
	accounts := NewAccounts(kv)
	ctx := context.Background()

	acct, err := accounts.Register(ctx, "alice", "secret123")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	updated, err := accounts.GrantRole(ctx, acct.ID, models.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("GrantRole: %v", err)
	}
	if !updated.IsSuperAdmin() {
		t.Errorf("roles = %v, want superadmin granted", updated.Roles)
	}

	// Granting again is a no-op, not a duplicate entry.
	updated, err = accounts.GrantRole(ctx, acct.ID, models.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("GrantRole twice: %v", err)
	}
	if len(updated.Roles) != 2 {
		t.Errorf("roles = %v, want exactly [user superadmin]", updated.Roles)
	}

	updated, err = accounts.RevokeRole(ctx, acct.ID, models.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("RevokeRole: %v", err)
	}
	if updated.IsSuperAdmin() {
		t.Errorf("roles = %v, want superadmin revoked", updated.Roles)
	}

	if _, err := accounts.RevokeRole(ctx, acct.ID, models.RoleUser); !errors.Is(err, ErrValidation) {
		t.Errorf("revoke base role = %v, want ErrValidation", err)
	}
	if _, err := accounts.GrantRole(ctx, acct.ID, "owner"); !errors.Is(err, ErrValidation) {
		t.Errorf("grant unknown role = %v, want ErrValidation", err)
	}
}
