package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hltapp/hlt-server/middleware"
	"github.com/hltapp/hlt-server/services"
	"github.com/hltapp/hlt-server/utils"
)

const dateLayout = "2006-01-02"

// principalID reads the authenticated user id set by the auth middleware.
func principalID(ctx *gin.Context) string {
	return ctx.GetString(middleware.ContextUserIDKey)
}

// fail translates a service error into the uniform JSON envelope.
func fail(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrValidation):
		utils.Error(ctx, http.StatusBadRequest, 40001, err.Error())
	case errors.Is(err, services.ErrUnauthorized):
		utils.Error(ctx, http.StatusUnauthorized, 40100, err.Error())
	case errors.Is(err, services.ErrForbidden):
		utils.Error(ctx, http.StatusForbidden, 40300, err.Error())
	case errors.Is(err, services.ErrNotFound):
		utils.Error(ctx, http.StatusNotFound, 40400, err.Error())
	case errors.Is(err, services.ErrConflict):
		utils.Error(ctx, http.StatusConflict, 40900, err.Error())
	default:
		utils.Sugar.Errorf("internal error: %v", err)
		utils.Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	}
}

// normalizeDate defaults an empty date to today (UTC) and rejects anything
// that is not a YYYY-MM-DD calendar date.
func normalizeDate(date string) (string, error) {
	if date == "" {
		return services.Today(), nil
	}
	if _, err := time.Parse(dateLayout, date); err != nil {
		return "", fmt.Errorf("date must be YYYY-MM-DD: %w", services.ErrValidation)
	}
	return date, nil
}
