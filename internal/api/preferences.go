package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"val8-concierge/internal/theme"
)

type themeRequest struct {
	ID string `json:"id" binding:"required"`
}

func (s *Server) getTheme(c *gin.Context) {
	current, err := s.deps.Themes.Current(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"current": current, "presets": theme.Presets})
}

func (s *Server) setTheme(c *gin.Context) {
	var req themeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	preset, err := s.deps.Themes.Set(c.Request.Context(), req.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("theme", preset.ID).Msg("Theme changed")
	c.JSON(http.StatusOK, gin.H{"current": preset, "presets": theme.Presets})
}
