package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

// GroupController exposes group management and the invite lifecycle.
type GroupController struct {
	groups *services.Groups
}

// NewGroupController wires the group endpoints.
func NewGroupController(groups *services.Groups) *GroupController {
	return &GroupController{groups: groups}
}

type createGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

// Create allocates a new group owned by the caller.
func (g *GroupController) Create(ctx *gin.Context) {
	var req createGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "group name is required")
		return
	}

	group, err := g.groups.Create(ctx.Request.Context(), principalID(ctx), req.Name, req.Description)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"group": group})
}

// ListMine returns the caller's groups.
func (g *GroupController) ListMine(ctx *gin.Context) {
	groups, err := g.groups.ListMine(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"groups": groups})
}

// Get returns the group detail with the member roster; member-only.
func (g *GroupController) Get(ctx *gin.Context) {
	group, members, err := g.groups.Detail(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"group": group, "members": members})
}

type updateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// Update applies a partial metadata change; admin-only.
func (g *GroupController) Update(ctx *gin.Context) {
	var req updateGroupRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request body")
		return
	}

	group, err := g.groups.Update(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), req.Name, req.Description)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"group": group})
}

type inviteRequest struct {
	Username string `json:"username" binding:"required"`
}

// Invite sends a pending invite to a user by username; admin-only.
func (g *GroupController) Invite(ctx *gin.Context) {
	var req inviteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "username is required")
		return
	}

	invite, err := g.groups.Invite(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), req.Username)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"invite": invite})
}

// RemoveMember strips a member from the roster; admin-only.
func (g *GroupController) RemoveMember(ctx *gin.Context) {
	err := g.groups.RemoveMember(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), ctx.Param("userId"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// Ban removes a member and blocks future invites; admin-only.
func (g *GroupController) Ban(ctx *gin.Context) {
	err := g.groups.BanMember(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), ctx.Param("userId"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// Unban clears a ban without restoring membership; admin-only.
func (g *GroupController) Unban(ctx *gin.Context) {
	err := g.groups.UnbanMember(ctx.Request.Context(), principalID(ctx), ctx.Param("groupId"), ctx.Param("userId"))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, nil)
}

// ListInvites returns the caller's pending invites.
func (g *GroupController) ListInvites(ctx *gin.Context) {
	invites, err := g.groups.PendingInvites(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"invites": invites})
}

type respondRequest struct {
	Accept *bool `json:"accept" binding:"required"`
}

// Respond settles a pending invite; accepting joins the group.
func (g *GroupController) Respond(ctx *gin.Context) {
	var req respondRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "accept is required")
		return
	}

	invite, err := g.groups.Respond(ctx.Request.Context(), principalID(ctx), ctx.Param("inviteId"), *req.Accept)
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"invite": invite})
}
