package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/config"
	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

// AuthController exposes signup, login, logout and the current-user view.
type AuthController struct {
	accounts *services.Accounts
	ledger   *services.Ledger
}

// NewAuthController wires the auth endpoints.
func NewAuthController(accounts *services.Accounts, ledger *services.Ledger) *AuthController {
	return &AuthController{accounts: accounts, ledger: ledger}
}

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates an account and returns a fresh token.
func (a *AuthController) Register(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "username and password are required")
		return
	}

	acct, err := a.accounts.Register(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(ctx, err)
		return
	}

	token, err := utils.GenerateToken(acct.ID, acct.Username, acct.Roles, tokenTTL())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Respond(ctx, http.StatusCreated, 0, "success", gin.H{"token": token, "user": acct})
}

// Login verifies credentials and returns a token.
func (a *AuthController) Login(ctx *gin.Context) {
	var req credentialsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "username and password are required")
		return
	}

	acct, err := a.accounts.Authenticate(ctx.Request.Context(), req.Username, req.Password)
	if err != nil {
		fail(ctx, err)
		return
	}

	token, err := utils.GenerateToken(acct.ID, acct.Username, acct.Roles, tokenTTL())
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"token": token, "user": acct})
}

// Logout revokes the presented token until its natural expiry.
func (a *AuthController) Logout(ctx *gin.Context) {
	authHeader := ctx.GetHeader("Authorization")
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 {
		utils.Error(ctx, http.StatusBadRequest, 40001, "missing bearer token")
		return
	}
	token := strings.TrimSpace(parts[1])

	expiresAt := time.Now().Add(tokenTTL())
	if claims, err := utils.ParseToken(token); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	utils.BlacklistToken(token, expiresAt)
	utils.Success(ctx, nil)
}

// Me returns the caller's account with rollover-corrected counters.
func (a *AuthController) Me(ctx *gin.Context) {
	acct, err := a.ledger.Current(ctx.Request.Context(), principalID(ctx))
	if err != nil {
		fail(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"user": acct})
}

func tokenTTL() time.Duration {
	return time.Duration(config.Get().TokenTTLHours) * time.Hour
}
