package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
	"github.com/hltapp/hlt-server/utils"
)

// Groups owns the group membership and invitation state machine. Single-key
// invariants (rosters, invite status) are enforced inside CAS closures;
// cross-key writes (group document plus membership index) happen in a fixed
// order, authoritative record first, and are idempotent so a retry after a
// partial failure converges.
type Groups struct {
	kv store.Store
}

// NewGroups creates the group manager.
func NewGroups(kv store.Store) *Groups {
	return &Groups{kv: kv}
}

// Create allocates a group owned by ownerID. The creator is the first admin
// and member and can never be removed or banned.
func (g *Groups) Create(ctx context.Context, ownerID, name, description string) (*models.Group, error) {
	name = strings.TrimSpace(utils.SanitizeText(name))
	if name == "" {
		return nil, fmt.Errorf("group name is required: %w", ErrValidation)
	}

	group := models.Group{
		ID:          uuid.NewString(),
		Name:        name,
		Description: utils.SanitizeText(description),
		CreatedBy:   ownerID,
		CreatedAt:   time.Now().UTC(),
		Admins:      []string{ownerID},
		Members:     []string{ownerID},
		BannedUsers: []string{},
	}
	raw, err := json.Marshal(&group)
	if err != nil {
		return nil, err
	}
	if err := g.kv.Set(ctx, groupKey(group.ID), raw); err != nil {
		return nil, err
	}
	if err := g.setMembershipIndex(ctx, ownerID, group.ID); err != nil {
		return nil, err
	}
	return &group, nil
}

// Load fetches a group document without authorization checks.
func (g *Groups) Load(ctx context.Context, groupID string) (*models.Group, error) {
	raw, err := g.kv.Get(ctx, groupKey(groupID))
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
	return &group, nil
}

// Detail returns the group with its member roster resolved to usernames and
// lifetime points. Only members may see the detail view.
func (g *Groups) Detail(ctx context.Context, principalID, groupID string) (*models.Group, []models.GroupMember, error) {
	group, err := g.Load(ctx, groupID)
	if err != nil {
		return nil, nil, err
	}
	if !group.IsMember(principalID) {
		return nil, nil, fmt.Errorf("not a member of group %s: %w", groupID, ErrForbidden)
	}

	members := make([]models.GroupMember, 0, len(group.Members))
	for _, memberID := range group.Members {
		raw, err := g.kv.Get(ctx, accountKey(memberID))
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, nil, err
		}
		var acct models.UserAccount
		if err := json.Unmarshal(raw, &acct); err != nil {
			continue
		}
		members = append(members, models.GroupMember{
			ID:          acct.ID,
			Username:    acct.Username,
			TotalPoints: acct.TotalPoints,
		})
	}
	return group, members, nil
}

// ListMine returns every group the user belongs to, oldest first.
func (g *Groups) ListMine(ctx context.Context, userID string) ([]models.Group, error) {
	pairs, err := g.kv.ScanByPrefix(ctx, userMembershipPrefix(userID))
	if err != nil {
		return nil, err
	}

	groups := make([]models.Group, 0, len(pairs))
	for _, raw := range pairs {
		var groupID string
		if err := json.Unmarshal(raw, &groupID); err != nil {
			continue
		}
		group, err := g.Load(ctx, groupID)
		if errors.Is(err, ErrNotFound) {
			continue // index can outlive a deleted group
		}
		if err != nil {
			return nil, err
		}
		groups = append(groups, *group)
	}
	sort.Slice(groups, func(i, j int) bool {
		if !groups[i].CreatedAt.Equal(groups[j].CreatedAt) {
			return groups[i].CreatedAt.Before(groups[j].CreatedAt)
		}
		return groups[i].ID < groups[j].ID
	})
	return groups, nil
}

// Update applies a partial metadata update; nil fields stay unchanged.
// Admin only; a group cannot be renamed to an empty string.
func (g *Groups) Update(ctx context.Context, actorID, groupID string, name, description *string) (*models.Group, error) {
	var group models.Group
	_, err := g.kv.Update(ctx, groupKey(groupID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		if err := json.Unmarshal(old, &group); err != nil {
			return nil, fmt.Errorf("decode group: %w", err)
		}
		if !group.IsAdmin(actorID) {
			return nil, fmt.Errorf("only admins can edit the group: %w", ErrForbidden)
		}
		if name != nil {
			trimmed := strings.TrimSpace(utils.SanitizeText(*name))
			if trimmed == "" {
				return nil, fmt.Errorf("group name is required: %w", ErrValidation)
			}
			group.Name = trimmed
		}
		if description != nil {
			group.Description = utils.SanitizeText(*description)
		}
		return json.Marshal(&group)
	})
	if err != nil {
		return nil, err
	}
	return &group, nil
}

// RemoveMember strips the target from the member and admin rosters. The
// creator is permanently protected.
func (g *Groups) RemoveMember(ctx context.Context, actorID, groupID, targetID string) error {
	_, err := g.kv.Update(ctx, groupKey(groupID), func(old []byte) ([]byte, error) {
		group, err := g.authorizeRosterChange(old, actorID, groupID, targetID)
		if err != nil {
			return nil, err
		}
		group.RemoveUser(targetID)
		return json.Marshal(group)
	})
	if err != nil {
		return err
	}
	return g.kv.Delete(ctx, membershipKey(targetID, groupID))
}

// BanMember removes the target like RemoveMember and additionally records
// the ban, making the user ineligible for future invites to this group.
func (g *Groups) BanMember(ctx context.Context, actorID, groupID, targetID string) error {
	_, err := g.kv.Update(ctx, groupKey(groupID), func(old []byte) ([]byte, error) {
		group, err := g.authorizeRosterChange(old, actorID, groupID, targetID)
		if err != nil {
			return nil, err
		}
		group.Ban(targetID)
		return json.Marshal(group)
	})
	if err != nil {
		return err
	}
	return g.kv.Delete(ctx, membershipKey(targetID, groupID))
}

// UnbanMember clears the ban only; the user does not rejoin the group.
func (g *Groups) UnbanMember(ctx context.Context, actorID, groupID, targetID string) error {
	_, err := g.kv.Update(ctx, groupKey(groupID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
		}
		var group models.Group
		if err := json.Unmarshal(old, &group); err != nil {
			return nil, fmt.Errorf("decode group: %w", err)
		}
		if !group.IsAdmin(actorID) {
			return nil, fmt.Errorf("only admins can unban users: %w", ErrForbidden)
		}
		group.Unban(targetID)
		return json.Marshal(&group)
	})
	return err
}

// authorizeRosterChange validates the common preconditions for removing or
// banning a member inside a group CAS closure.
func (g *Groups) authorizeRosterChange(old []byte, actorID, groupID, targetID string) (*models.Group, error) {
	if old == nil {
		return nil, fmt.Errorf("group %s: %w", groupID, ErrNotFound)
	}
	var group models.Group
	if err := json.Unmarshal(old, &group); err != nil {
		return nil, fmt.Errorf("decode group: %w", err)
	}
	if !group.IsAdmin(actorID) {
		return nil, fmt.Errorf("only admins can change the roster: %w", ErrForbidden)
	}
	if targetID == group.CreatedBy {
		return nil, fmt.Errorf("group creator is protected: %w", ErrConflict)
	}
	return &group, nil
}

// setMembershipIndex records the user→group edge. Values are the group id so
// a prefix scan over the user lists their groups. Idempotent.
func (g *Groups) setMembershipIndex(ctx context.Context, userID, groupID string) error {
	raw, err := json.Marshal(groupID)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, membershipKey(userID, groupID), raw)
}
