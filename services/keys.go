package services

// Key scheme for the KV store. No prefix is a prefix of another, so prefix
// scans never pick up records of a different kind.
const (
	accountPrefix    = "account:"
	usernamePrefix   = "username:"
	checkinPrefix    = "checkin:"
	groupPrefix      = "group:"
	membershipPrefix = "membership:"
	invitePrefix     = "invite:"
	inboxPrefix      = "inbox:"
)

func accountKey(userID string) string { return accountPrefix + userID }

func usernameKey(username string) string { return usernamePrefix + username }

func checkinKey(userID, date string) string { return checkinPrefix + userID + ":" + date }

func userCheckinPrefix(userID string) string { return checkinPrefix + userID + ":" }

func groupKey(groupID string) string { return groupPrefix + groupID }

// membershipKey indexes which groups a user belongs to; the value is the
// group id. The group document stays authoritative for the roster.
func membershipKey(userID, groupID string) string {
	return membershipPrefix + userID + ":" + groupID
}

func userMembershipPrefix(userID string) string { return membershipPrefix + userID + ":" }

// inviteKey holds the latest invite per (group, invitee) pair and is the
// atomic gate for the one-pending-invite invariant.
func inviteKey(groupID, inviteeID string) string {
	return invitePrefix + groupID + ":" + inviteeID
}

func groupInvitePrefix(groupID string) string { return invitePrefix + groupID + ":" }

// inboxKey lists invites per invitee for the pending-invites screen.
func inboxKey(inviteeID, inviteID string) string {
	return inboxPrefix + inviteeID + ":" + inviteID
}

func userInboxPrefix(userID string) string { return inboxPrefix + userID + ":" }
