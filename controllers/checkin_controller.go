package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

// CheckinController exposes the daily reflection endpoints.
type CheckinController struct {
	checkins *services.CheckIns
}

// NewCheckinController wires the check-in endpoints.
func NewCheckinController(checkins *services.CheckIns) *CheckinController {
	return &CheckinController{checkins: checkins}
}

type checkinRequest struct {
	Date  string `json:"date"`
	Help  string `json:"help"`
	Learn string `json:"learn"`
	Thank string `json:"thank"`
}

// Submit records the first check-in of the day.
func (c *CheckinController) Submit(ctx *gin.Context) {
	var req checkinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		fail(ctx, err)
		return
	}

	result, err := c.checkins.Submit(ctx.Request.Context(), principalID(ctx), date, req.Help, req.Learn, req.Thank)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", result)
}

// Edit replaces the answers of an existing check-in.
func (c *CheckinController) Edit(ctx *gin.Context) {
	var req checkinRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}
	date, err := normalizeDate(req.Date)
	if err != nil {
		fail(ctx, err)
		return
	}

	result, err := c.checkins.Edit(ctx.Request.Context(), principalID(ctx), date, req.Help, req.Learn, req.Thank)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, result)
}

// Status reports whether the caller has checked in on the given date.
func (c *CheckinController) Status(ctx *gin.Context) {
	date, err := normalizeDate(ctx.Query("date"))
	if err != nil {
		fail(ctx, err)
		return
	}

	record, err := c.checkins.Status(ctx.Request.Context(), principalID(ctx), date)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"checkedIn": record != nil, "checkin": record})
}

// Profile returns the caller's account and lifetime check-in statistics.
func (c *CheckinController) Profile(ctx *gin.Context) {
	acct, stats, err := c.checkins.Stats(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": acct, "stats": stats})
}
