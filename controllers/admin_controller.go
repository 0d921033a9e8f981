package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

// AdminController exposes the superadmin surface. Every handler delegates the
// role check to the service, which reads the stored account rather than the
// token.
type AdminController struct {
	admin *services.Admin
}

// NewAdminController wires the superadmin endpoints.
func NewAdminController(admin *services.Admin) *AdminController {
	return &AdminController{admin: admin}
}

// ListUsers returns every account.
func (a *AdminController) ListUsers(ctx *gin.Context) {
	users, err := a.admin.ListUsers(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"users": users})
}

// UpdateUser applies a point correction to an account.
func (a *AdminController) UpdateUser(ctx *gin.Context) {
	var req services.AccountUpdate
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	user, err := a.admin.UpdateUser(ctx.Request.Context(), principalID(ctx), ctx.Param("userId"), req)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// DeleteUser removes an account and its group footprint.
func (a *AdminController) DeleteUser(ctx *gin.Context) {
	if err := a.admin.DeleteUser(ctx.Request.Context(), principalID(ctx), ctx.Param("userId")); err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

// GrantRole adds a role to an account.
func (a *AdminController) GrantRole(ctx *gin.Context) {
	var req roleRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "role is required")
		return
	}

	user, err := a.admin.GrantRole(ctx.Request.Context(), principalID(ctx), ctx.Param("userId"), req.Role)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// RevokeRole removes a role from an account.
func (a *AdminController) RevokeRole(ctx *gin.Context) {
	user, err := a.admin.RevokeRole(ctx.Request.Context(), principalID(ctx), ctx.Param("userId"), ctx.Param("role"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": user})
}

// ListGroups returns every group.
func (a *AdminController) ListGroups(ctx *gin.Context) {
	groups, err := a.admin.ListGroups(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// DeleteGroup removes a group and its membership and invite footprint.
func (a *AdminController) DeleteGroup(ctx *gin.Context) {
	if err := a.admin.DeleteGroup(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId")); err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// ListCheckIns returns every check-in across all users.
func (a *AdminController) ListCheckIns(ctx *gin.Context) {
	checkins, err := a.admin.ListCheckIns(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"checkins": checkins})
}

// UnifiedLeaderboard returns one row per (user, group) pairing.
func (a *AdminController) UnifiedLeaderboard(ctx *gin.Context) {
	entries, err := a.admin.Unified(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"leaderboard": entries})
}
