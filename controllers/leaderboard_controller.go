package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

// LeaderboardController serves the global and per-group rankings.
type LeaderboardController struct {
	boards *services.Leaderboards
}

// NewLeaderboardController wires the leaderboard endpoints.
func NewLeaderboardController(boards *services.Leaderboards) *LeaderboardController {
	return &LeaderboardController{boards: boards}
}

// Global ranks every account on the requested period counter.
func (l *LeaderboardController) Global(ctx *gin.Context) {
	period, err := services.ParsePeriod(ctx.Query("period"))
	if err != nil {
		fail(ctx, err)
		return
	}

	entries, err := l.boards.Build(ctx.Request.Context(), period, nil)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"period": period, "leaderboard": entries})
}

// Group ranks the members of one group; member-only.
func (l *LeaderboardController) Group(ctx *gin.Context) {
	period, err := services.ParsePeriod(ctx.Query("period"))
	if err != nil {
		fail(ctx, err)
		return
	}

	entries, err := l.boards.BuildForGroup(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), period)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"period": period, "leaderboard": entries})
}
