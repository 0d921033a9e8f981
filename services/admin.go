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

// Admin bundles the superadmin-only operations. Authorization is checked
// against the roles stored on the actor's account record, not against the
// token, so a revoked role takes effect immediately.
type Admin struct {
	kv       store.Store
	accounts *Accounts
	ledger   *Ledger
}

// NewAdmin creates the superadmin service.
func NewAdmin(kv store.Store, accounts *Accounts, ledger *Ledger) *Admin {
	return &Admin{kv: kv, accounts: accounts, ledger: ledger}
}

func (ad *Admin) requireSuperAdmin(ctx context.Context, actorID string) error {
	acct, err := ad.accounts.ByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !acct.IsSuperAdmin() {
		return fmt.Errorf("superadmin role required: %w", ErrForbidden)
	}
	return nil
}

// ListUsers returns every account, oldest first.
func (ad *Admin) ListUsers(ctx context.Context, actorID string) ([]models.UserAccount, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	pairs, err := ad.kv.ScanByPrefix(ctx, accountPrefix)
	if err != nil {
		return nil, err
	}
	users := make([]models.UserAccount, 0, len(pairs))
	for _, raw := range pairs {
		var acct models.UserAccount
		if err := json.Unmarshal(raw, &acct); err != nil || acct.ID == "" {
			continue
		}
		users = append(users, acct)
	}
	sortAccounts(users)
	return users, nil
}

// ListGroups returns every group, oldest first.
func (ad *Admin) ListGroups(ctx context.Context, actorID string) ([]models.Group, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	pairs, err := ad.kv.ScanByPrefix(ctx, groupPrefix)
	if err != nil {
		return nil, err
	}
	groups := make([]models.Group, 0, len(pairs))
	for _, raw := range pairs {
		var group models.Group
		if err := json.Unmarshal(raw, &group); err != nil || group.ID == "" {
			continue
		}
		groups = append(groups, group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.Before(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// AdminCheckIn is a check-in joined with its author's username for the
// service-wide review screen.
type AdminCheckIn struct {
	models.CheckInRecord
	Username string `json:"username"`
}

// ListCheckIns returns every check-in across all users, newest date first.
func (ad *Admin) ListCheckIns(ctx context.Context, actorID string) ([]AdminCheckIn, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	pairs, err := ad.kv.ScanByPrefix(ctx, checkinPrefix)
	if err != nil {
		return nil, err
	}

	usernames := map[string]string{}
	out := make([]AdminCheckIn, 0, len(pairs))
	for _, raw := range pairs {
		var record models.CheckInRecord
		if err := json.Unmarshal(raw, &record); err != nil {
			continue
		}
		name, ok := usernames[record.UserID]
		if !ok {
			if acct, err := ad.accounts.ByID(ctx, record.UserID); err == nil {
				name = acct.Username
			}
			usernames[record.UserID] = name
		}
		out = append(out, AdminCheckIn{CheckInRecord: record, Username: name})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// Unified builds the service-wide leaderboard: one row per (user, group)
// pairing, users without groups appearing once, sorted by lifetime points.
func (ad *Admin) Unified(ctx context.Context, actorID string) ([]models.UnifiedEntry, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	pairs, err := ad.kv.ScanByPrefix(ctx, accountPrefix)
	if err != nil {
		return nil, err
	}

	var entries []models.UnifiedEntry
	for _, raw := range pairs {
		var acct models.UserAccount
		if err := json.Unmarshal(raw, &acct); err != nil || acct.ID == "" {
			continue
		}
		if rollover(&acct, CurrentPeriods(time.Now())) {
			corrected, err := ad.ledger.Current(ctx, acct.ID)
			if err != nil {
				continue
			}
			acct = *corrected
		}

		groupNames, err := ad.groupNamesOf(ctx, acct.ID)
		if err != nil {
			return nil, err
		}
		if len(groupNames) == 0 {
			groupNames = []string{""}
		}
		for _, name := range groupNames {
			entries = append(entries, models.UnifiedEntry{
				Username:    acct.Username,
				GroupName:   name,
				Points:      acct.TotalPoints,
				DayPoints:   acct.DayPoints,
				WeekPoints:  acct.WeekPoints,
				MonthPoints: acct.MonthPoints,
				YearPoints:  acct.YearPoints,
			})
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Points != entries[j].Points {
			return entries[i].Points > entries[j].Points
		}
		return entries[i].Username < entries[j].Username
	})
	return entries, nil
}

// groupNamesOf resolves the names of every group the user belongs to via the
// membership index. Stale index entries pointing at deleted groups are
// skipped.
func (ad *Admin) groupNamesOf(ctx context.Context, userID string) ([]string, error) {
	pairs, err := ad.kv.ScanByPrefix(ctx, userMembershipPrefix(userID))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, raw := range pairs {
		var groupID string
		if err := json.Unmarshal(raw, &groupID); err != nil {
			continue
		}
		rawGroup, err := ad.kv.Get(ctx, groupKey(groupID))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		var group models.Group
		if err := json.Unmarshal(rawGroup, &group); err != nil {
			continue
		}
		names = append(names, group.Name)
	}
	sort.Strings(names)
	return names, nil
}

// AccountUpdate is a superadmin point correction. Identity fields (id,
// username, roles) are deliberately not updatable here; roles go through
// GrantRole/RevokeRole.
type AccountUpdate struct {
	TotalPoints *int `json:"totalPoints"`
	DayPoints   *int `json:"dayPoints"`
	WeekPoints  *int `json:"weekPoints"`
	MonthPoints *int `json:"monthPoints"`
	YearPoints  *int `json:"yearPoints"`
}

// UpdateUser applies a point correction to an account.
func (ad *Admin) UpdateUser(ctx context.Context, actorID, userID string, update AccountUpdate) (*models.UserAccount, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	var acct models.UserAccount
	_, err := ad.kv.Update(ctx, accountKey(userID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("account %s: %w", userID, ErrNotFound)
		}
		if err := json.Unmarshal(old, &acct); err != nil {
			return nil, fmt.Errorf("decode account: %w", err)
		}
		if update.TotalPoints != nil {
			acct.TotalPoints = *update.TotalPoints
		}
		if update.DayPoints != nil {
			acct.DayPoints = *update.DayPoints
		}
		if update.WeekPoints != nil {
			acct.WeekPoints = *update.WeekPoints
		}
		if update.MonthPoints != nil {
			acct.MonthPoints = *update.MonthPoints
		}
		if update.YearPoints != nil {
			acct.YearPoints = *update.YearPoints
		}
		return json.Marshal(&acct)
	})
	if err != nil {
		return nil, err
	}
	return &acct, nil
}

// GrantRole adds a role to the target account. Superadmin only.
func (ad *Admin) GrantRole(ctx context.Context, actorID, userID, role string) (*models.UserAccount, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	return ad.accounts.GrantRole(ctx, userID, role)
}

// RevokeRole removes a role from the target account. Superadmin only; actors
// cannot revoke their own superadmin role, so the service always keeps at
// least the acting superadmin.
func (ad *Admin) RevokeRole(ctx context.Context, actorID, userID, role string) (*models.UserAccount, error) {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return nil, err
	}
	if actorID == userID && role == models.RoleSuperAdmin {
		return nil, fmt.Errorf("cannot revoke your own superadmin role: %w", ErrConflict)
	}
	return ad.accounts.RevokeRole(ctx, userID, role)
}

// DeleteUser removes an account, its credential, its memberships and its
// inbox. Superadmin accounts are not deletable. Historical check-ins are
// retained. Cleanup order is fixed: group rosters first, then indexes, then
// the authoritative records, so a retry after partial failure converges.
func (ad *Admin) DeleteUser(ctx context.Context, actorID, userID string) error {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}
	target, err := ad.accounts.ByID(ctx, userID)
	if err != nil {
		return err
	}
	if target.IsSuperAdmin() {
		return fmt.Errorf("superadmin accounts cannot be deleted: %w", ErrForbidden)
	}

	memberships, err := ad.kv.ScanByPrefix(ctx, userMembershipPrefix(userID))
	if err != nil {
		return err
	}
	for key, raw := range memberships {
		var groupID string
		if err := json.Unmarshal(raw, &groupID); err != nil {
			continue
		}
		_, err := ad.kv.Update(ctx, groupKey(groupID), func(old []byte) ([]byte, error) {
			if old == nil {
				return nil, nil // group already gone
			}
			var group models.Group
			if err := json.Unmarshal(old, &group); err != nil {
				return nil, nil
			}
			group.RemoveUser(userID)
			return json.Marshal(&group)
		})
		if err != nil {
			return err
		}
		if err := ad.kv.Delete(ctx, key); err != nil {
			return err
		}
	}

	inbox, err := ad.kv.ScanByPrefix(ctx, userInboxPrefix(userID))
	if err != nil {
		return err
	}
	for key := range inbox {
		if err := ad.kv.Delete(ctx, key); err != nil {
			return err
		}
	}

	if err := ad.kv.Delete(ctx, usernameKey(target.Username)); err != nil {
		return err
	}
	return ad.kv.Delete(ctx, accountKey(userID))
}

// DeleteGroup removes a group, its membership index entries, and every
// invite it issued.
func (ad *Admin) DeleteGroup(ctx context.Context, actorID, groupID string) error {
	if err := ad.requireSuperAdmin(ctx, actorID); err != nil {
		return err
	}
	raw, err := ad.kv.Get(ctx, groupKey(groupID))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		return err
	}
	var group models.Group
	if err := json.Unmarshal(raw, &group); err != nil {
		return fmt.Errorf("decode group: %w", err)
	}

	for _, memberID := range group.Members {
		if err := ad.kv.Delete(ctx, membershipKey(memberID, groupID)); err != nil {
			return err
		}
	}

	invites, err := ad.kv.ScanByPrefix(ctx, groupInvitePrefix(groupID))
	if err != nil {
		return err
	}
	for key, rawInvite := range invites {
		var invite models.Invite
		if err := json.Unmarshal(rawInvite, &invite); err == nil && invite.InvitedUserID != "" {
			if err := ad.kv.Delete(ctx, inboxKey(invite.InvitedUserID, invite.ID)); err != nil {
				return err
			}
		}
		if err := ad.kv.Delete(ctx, key); err != nil {
			return err
		}
	}

	return ad.kv.Delete(ctx, groupKey(groupID))
}

func sortAccounts(users []models.UserAccount) {
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.Before(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
}
