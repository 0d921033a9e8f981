package models

import "time"

// Invite status values. Status is monotonic: once an invite leaves pending it
// never transitions again.
const (
	InviteStatusPending  = "pending"
	InviteStatusAccepted = "accepted"
	InviteStatusDeclined = "declined"
)

// Invite records one invitation of a user into a group. At most one pending
// invite may exist per (group, invitee) pair.
type Invite struct {
	ID                string     `json:"id"`
	GroupID           string     `json:"groupId"`
	GroupName         string     `json:"groupName"`
	InvitedBy         string     `json:"invitedBy"`
	InvitedByUsername string     `json:"invitedByUsername"`
	InvitedUserID     string     `json:"invitedUserId"`
	InvitedUsername   string     `json:"invitedUsername"`
	Status            string     `json:"status"`
	CreatedAt         time.Time  `json:"createdAt"`
	RespondedAt       *time.Time `json:"respondedAt,omitempty"`
}

// Pending reports whether the invite can still be responded to.
func (i *Invite) Pending() bool {
	return i.Status == InviteStatusPending
}
