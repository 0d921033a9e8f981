package models

import "time"

// Group is the membership record for a user-created group. Invariants held at
// every write: CreatedBy is always an admin, every admin is a member, and a
// banned user is never a member.
type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedBy   string    `json:"createdBy"`
	CreatedAt   time.Time `json:"createdAt"`
	Admins      []string  `json:"admins"`
	Members     []string  `json:"members"`
	BannedUsers []string  `json:"bannedUsers"`
}

// IsAdmin reports whether the user administers the group.
func (g *Group) IsAdmin(userID string) bool {
	return containsID(g.Admins, userID)
}

// IsMember reports whether the user belongs to the group.
func (g *Group) IsMember(userID string) bool {
	return containsID(g.Members, userID)
}

// IsBanned reports whether the user is banned from the group.
func (g *Group) IsBanned(userID string) bool {
	return containsID(g.BannedUsers, userID)
}

// AddMember appends the user to the member roster if not already present.
func (g *Group) AddMember(userID string) {
	if !containsID(g.Members, userID) {
		g.Members = append(g.Members, userID)
	}
}

// RemoveUser strips the user from both the member and admin rosters.
func (g *Group) RemoveUser(userID string) {
	g.Members = removeID(g.Members, userID)
	g.Admins = removeID(g.Admins, userID)
}

// Ban removes the user from the rosters and records the ban.
func (g *Group) Ban(userID string) {
	g.RemoveUser(userID)
	if !containsID(g.BannedUsers, userID) {
		g.BannedUsers = append(g.BannedUsers, userID)
	}
}

// Unban clears the ban only; membership is not restored.
func (g *Group) Unban(userID string) {
	g.BannedUsers = removeID(g.BannedUsers, userID)
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func removeID(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// GroupMember is the roster row returned by the group detail endpoint.
type GroupMember struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	TotalPoints int    `json:"totalPoints"`
}
