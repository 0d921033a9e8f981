package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

// usernamePattern also keeps usernames safe for the key scheme: no colon,
// no whitespace.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,32}$`)

// Accounts handles signup, credential checks, and role administration.
// Username uniqueness is enforced by an atomic create-if-absent on the
// credential key, never by a lookup-then-write pair.
type Accounts struct {
	kv store.Store
}

// NewAccounts creates the account service.
func NewAccounts(kv store.Store) *Accounts {
	return &Accounts{kv: kv}
}

// Register creates a credential and a zeroed ledger account. A taken
// username fails with ErrConflict.
func (a *Accounts) Register(ctx context.Context, username, password string) (*models.UserAccount, error) {
	if !usernamePattern.MatchString(username) {
		return nil, fmt.Errorf("username must be 3-32 characters of letters, digits, '_', '.' or '-': %w", ErrValidation)
	}
	if len(password) < 6 {
		return nil, fmt.Errorf("password must be at least 6 characters: %w", ErrValidation)
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	cred := models.Credential{
		UserID:       uuid.NewString(),
		PasswordHash: hash,
		CreatedAt:    now,
	}
	rawCred, err := json.Marshal(&cred)
	if err != nil {
		return nil, err
	}
	created, err := a.kv.CreateIfAbsent(ctx, usernameKey(username), rawCred)
	if err != nil {
		return nil, err
	}
	if !created {
		return nil, fmt.Errorf("username %s already exists: %w", username, ErrConflict)
	}

	periods := CurrentPeriods(now)
	acct := models.UserAccount{
		ID:             cred.UserID,
		Username:       username,
		Roles:          []string{models.RoleUser},
		CreatedAt:      now,
		LastResetDay:   periods.Day,
		LastResetWeek:  periods.Week,
		LastResetMonth: periods.Month,
		LastResetYear:  periods.Year,
	}
	rawAcct, err := json.Marshal(&acct)
	if err != nil {
		return nil, err
	}
	if err := a.kv.Set(ctx, accountKey(acct.ID), rawAcct); err != nil {
		return nil, err
	}
	return &acct, nil
}

// Authenticate verifies a username/password pair. Unknown users and wrong
// passwords fail identically with ErrUnauthorized.
func (a *Accounts) Authenticate(ctx context.Context, username, password string) (*models.UserAccount, error) {
	raw, err := a.kv.Get(ctx, usernameKey(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	if err != nil {
		return nil, err
	}
	var cred models.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	if !utils.CheckPassword(cred.PasswordHash, password) {
		return nil, fmt.Errorf("invalid credentials: %w", ErrUnauthorized)
	}
	return a.ByID(ctx, cred.UserID)
}

// CredentialByUsername resolves a username to its stored credential.
func CredentialByUsername(ctx context.Context, kv store.Store, username string) (*models.Credential, error) {
	raw, err := kv.Get(ctx, usernameKey(username))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("user %s: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var cred models.Credential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}
	return &cred, nil
}

// ByID loads an account without ledger correction.
func (a *Accounts) ByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	raw, err := a.kv.Get(ctx, accountKey(userID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	var acct models.UserAccount
	if err := json.Unmarshal(raw, &acct); err != nil {
		return nil, fmt.Errorf("decode account: %w", err)
	}
	return &acct, nil
}

// GrantRole adds a role to the account. Roles live on the account entity;
// there is no hardcoded privileged identity list anywhere.
func (a *Accounts) GrantRole(ctx context.Context, userID, role string) (*models.UserAccount, error) {
	if role != models.RoleUser && role != models.RoleSuperAdmin {
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrValidation)
	}
	return a.mutateRoles(ctx, userID, func(acct *models.UserAccount) error {
		if !acct.HasRole(role) {
			acct.Roles = append(acct.Roles, role)
		}
		return nil
	})
}

// RevokeRole removes a role. The base user role is not revocable.
func (a *Accounts) RevokeRole(ctx context.Context, userID, role string) (*models.UserAccount, error) {
	if role == models.RoleUser {
		return nil, fmt.Errorf("the %s role cannot be revoked: %w", models.RoleUser, ErrValidation)
	}
	return a.mutateRoles(ctx, userID, func(acct *models.UserAccount) error {
		kept := acct.Roles[:0]
		for _, r := range acct.Roles {
			if r != role {
				kept = append(kept, r)
			}
		}
		acct.Roles = kept
		return nil
	})
}

func (a *Accounts) mutateRoles(ctx context.Context, userID string, mutate func(*models.UserAccount) error) (*models.UserAccount, error) {
	var acct models.UserAccount
	_, err := a.kv.Update(ctx, accountKey(userID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
		}
		if err := json.Unmarshal(old, &acct); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		if err := mutate(&acct); err != nil {
			return nil, err
		}
		return json.Marshal(&acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}
