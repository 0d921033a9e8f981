package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/hltapp/hlt-server/models"
	"github.com/hltapp/hlt-server/store"
)

// Invite sends a pending invite from a group admin to a user, addressed by
// username. The one-pending-invite-per-(group,invitee) invariant is enforced
// atomically on the invite key: an existing pending invite aborts the CAS.
func (g *Groups) Invite(ctx context.Context, actorID, groupID, inviteeUsername string) (*models.Invite, error) {
	group, err := g.Load(ctx, groupID)
	if err != nil {
		return nil, err
	}
	if !group.IsAdmin(actorID) {
		return nil, fmt.Errorf("only admins can invite users: %w", ErrForbidden)
	}

	cred, err := CredentialByUsername(ctx, g.kv, inviteeUsername)
	if err != nil {
		return nil, err
	}
	inviteeID := cred.UserID

	if group.IsMember(inviteeID) {
		return nil, fmt.Errorf("user %s is already a member: %w", inviteeUsername, ErrConflict)
	}
	if group.IsBanned(inviteeID) {
		return nil, fmt.Errorf("user %s is banned from this group: %w", inviteeUsername, ErrConflict)
	}

	inviter, err := g.accountByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	invite := models.Invite{
		ID:                uuid.NewString(),
		GroupID:           groupID,
		GroupName:         group.Name,
		InvitedBy:         actorID,
		InvitedByUsername: inviter.Username,
		InvitedUserID:     inviteeID,
		InvitedUsername:   inviteeUsername,
		Status:            models.InviteStatusPending,
		CreatedAt:         time.Now().UTC(),
	}

	_, err = g.kv.Update(ctx, inviteKey(groupID, inviteeID), func(old []byte) ([]byte, error) {
		if old != nil {
			var prev models.Invite
			if err := json.Unmarshal(old, &prev); err == nil && prev.Pending() {
				return nil, fmt.Errorf("invite already sent: %w", ErrConflict)
			}
			// A resolved invite may be superseded by a fresh one.
		}
		return json.Marshal(&invite)
	})
	if err != nil {
		return nil, err
	}

	// Inbox index after the authoritative record; idempotent on retry.
	if err := g.writeInbox(ctx, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}

// PendingInvites lists the user's unanswered invites, oldest first.
func (g *Groups) PendingInvites(ctx context.Context, userID string) ([]models.Invite, error) {
	pairs, err := g.kv.ScanByPrefix(ctx, userInboxPrefix(userID))
	if err != nil {
		return nil, err
	}
	invites := make([]models.Invite, 0, len(pairs))
	for _, raw := range pairs {
		var invite models.Invite
		if err := json.Unmarshal(raw, &invite); err != nil {
			continue
		}
		if invite.Pending() {
			invites = append(invites, invite)
		}
	}
	sort.Slice(invites, func(i, j int) bool {
		if !invites[i].CreatedAt.Equal(invites[j].CreatedAt) {
			return invites[i].CreatedAt.Before(invites[j].CreatedAt)
		}
		return invites[i].ID < invites[j].ID
	})
	return invites, nil
}

// Respond settles a pending invite. Only the invitee may respond; status is
// monotonic, so a second respond fails with ErrConflict and changes nothing.
// Accepting joins the group unless a ban landed after the invite was sent.
func (g *Groups) Respond(ctx context.Context, principalID, inviteID string, accept bool) (*models.Invite, error) {
	var invite models.Invite
	_, err := g.kv.Update(ctx, inboxKey(principalID, inviteID), func(old []byte) ([]byte, error) {
		if old == nil {
			return nil, fmt.Errorf("invite %s: %w", inviteID, ErrNotFound)
		}
		if err := json.Unmarshal(old, &invite); err != nil {
			return nil, fmt.Errorf("decode invite: %w", err)
		}
		if invite.InvitedUserID != principalID {
			return nil, fmt.Errorf("invite belongs to another user: %w", ErrForbidden)
		}
		if !invite.Pending() {
			return nil, fmt.Errorf("invite already responded to: %w", ErrConflict)
		}
		if accept {
			invite.Status = models.InviteStatusAccepted
		} else {
			invite.Status = models.InviteStatusDeclined
		}
		now := time.Now().UTC()
		invite.RespondedAt = &now
		return json.Marshal(&invite)
	})
	if err != nil {
		return nil, err
	}

	if accept {
		_, err = g.kv.Update(ctx, groupKey(invite.GroupID), func(old []byte) ([]byte, error) {
			if old == nil {
				return nil, fmt.Errorf("group %s: %w", invite.GroupID, ErrNotFound)
			}
			var group models.Group
			if err := json.Unmarshal(old, &group); err != nil {
				return nil, fmt.Errorf("decode group: %w", err)
			}
			if group.IsBanned(principalID) {
				return nil, fmt.Errorf("banned from this group: %w", ErrConflict)
			}
			group.AddMember(principalID)
			return json.Marshal(&group)
		})
		if err != nil {
			return nil, err
		}
		if err := g.setMembershipIndex(ctx, principalID, invite.GroupID); err != nil {
			return nil, err
		}
	}

	// Mirror the resolved status onto the per-pair invite key so a fresh
	// invite may be issued later.
	raw, err := json.Marshal(&invite)
	if err != nil {
		return nil, err
	}
	if err := g.kv.Set(ctx, inviteKey(invite.GroupID, principalID), raw); err != nil {
		return nil, err
	}
	return &invite, nil
}

func (g *Groups) accountByID(ctx context.Context, userID string) (*models.UserAccount, error) {
	raw, err := g.kv.Get(ctx, accountKey(userID))
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

// writeInbox records the invite under the invitee's inbox key. Idempotent.
func (g *Groups) writeInbox(ctx context.Context, invite *models.Invite) error {
	raw, err := json.Marshal(invite)
	if err != nil {
		return err
	}
	return g.kv.Set(ctx, inboxKey(invite.InvitedUserID, invite.ID), raw)
}
