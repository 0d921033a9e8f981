package models

// LeaderboardEntry is a derived row; it is never persisted. Rank is the
// 1-based position after a stable descending sort by points, so tied point
// totals at adjacent positions still receive distinct ranks.
type LeaderboardEntry struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
	Points   int    `json:"points"`
	Rank     int    `json:"rank"`
}

// UnifiedEntry is one (user, group) pairing in the service-wide leaderboard
// available to superadmins. Users without a group appear once with an empty
// group name.
type UnifiedEntry struct {
	Username    string `json:"username"`
	GroupName   string `json:"groupName"`
	Points      int    `json:"points"`
	DayPoints   int    `json:"dayPoints"`
	WeekPoints  int    `json:"weekPoints"`
	MonthPoints int    `json:"monthPoints"`
	YearPoints  int    `json:"yearPoints"`
}
