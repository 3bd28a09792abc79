package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"val8-concierge/internal/checkout"
	"val8-concierge/internal/desk"
	"val8-concierge/internal/engine"
	"val8-concierge/internal/ledger"
	"val8-concierge/internal/script"
	"val8-concierge/internal/theme"
)

func statusFor(err error) int {
	var invalid checkout.ValidationErrors
	switch {
	case errors.As(err, &invalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, engine.ErrEmptyInput):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrSessionNotFound),
		errors.Is(err, script.ErrUnknownScript),
		errors.Is(err, engine.ErrUnknownRecommendation),
		errors.Is(err, engine.ErrUnknownCategory),
		errors.Is(err, ledger.ErrNotBooked),
		errors.Is(err, ledger.ErrBadCategory),
		errors.Is(err, desk.ErrCallNotFound),
		errors.Is(err, desk.ErrUnknownRecommendation):
		return http.StatusNotFound
	case errors.Is(err, engine.ErrBusy),
		errors.Is(err, engine.ErrWrongMode),
		errors.Is(err, engine.ErrCheckoutUnavailable),
		errors.Is(err, engine.ErrUnreachableView),
		errors.Is(err, desk.ErrCallInProgress),
		errors.Is(err, desk.ErrNoActiveCall):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrNotEditable),
		errors.Is(err, ledger.ErrUnknownField),
		errors.Is(err, theme.ErrUnknownTheme):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

// fail writes err as a JSON error body with the status it maps to
func (s *Server) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
	}

	body := gin.H{"error": err.Error()}
	var invalid checkout.ValidationErrors
	if errors.As(err, &invalid) {
		body["fields"] = invalid
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
}
