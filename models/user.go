package models

import "time"

// Role names stored on an account. The superadmin role is granted through an
// explicit administrative operation, never inferred from a fixed identity list.
const (
	RoleUser       = "user"
	RoleSuperAdmin = "superadmin"
)

// UserAccount is the per-user point ledger. Each period counter is valid only
// while its matching LastReset* key equals the window key computed for the
// current time; a stale counter must be zeroed before it is read or added to.
type UserAccount struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"createdAt"`

	TotalPoints int `json:"totalPoints"`
	DayPoints   int `json:"dayPoints"`
	WeekPoints  int `json:"weekPoints"`
	MonthPoints int `json:"monthPoints"`
	YearPoints  int `json:"yearPoints"`

	LastResetDay   string `json:"lastResetDay"`
	LastResetWeek  string `json:"lastResetWeek"`
	LastResetMonth string `json:"lastResetMonth"`
	LastResetYear  string `json:"lastResetYear"`

	// LastCheckin is the calendar date (YYYY-MM-DD) of the most recent check-in.
	LastCheckin string `json:"lastCheckin,omitempty"`
}

// HasRole reports whether the account carries the given role.
func (u *UserAccount) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsSuperAdmin reports whether the account carries the superadmin role.
func (u *UserAccount) IsSuperAdmin() bool {
	return u.HasRole(RoleSuperAdmin)
}

// Credential is the login record stored under the username key. Username
// uniqueness is enforced by an atomic create-if-absent on that key. It is a
// storage-only entity and must never be returned in API responses.
type Credential struct {
	UserID       string    `json:"userId"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
