package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type endCallRequest struct {
	SendQuote bool `json:"send_quote"`
}

type profileRequest struct {
	Open bool `json:"open"`
}

func (s *Server) getDesk(c *gin.Context) {
	c.JSON(http.StatusOK, s.deps.Desk.Snapshot())
}

func (s *Server) acceptCall(c *gin.Context) {
	s.deskAction(c, func() error { return s.deps.Desk.AcceptCall(c.Param("id")) })
}

func (s *Server) holdCall(c *gin.Context) {
	s.deskAction(c, s.deps.Desk.HoldCall)
}

func (s *Server) endCall(c *gin.Context) {
	var req endCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}
	s.deskAction(c, func() error { return s.deps.Desk.EndCall(req.SendQuote) })
}

func (s *Server) setProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	s.deskAction(c, func() error {
		s.deps.Desk.SetProfileOpen(req.Open)
		return nil
	})
}

func (s *Server) toggleDeskRecommendation(c *gin.Context) {
	s.deskAction(c, func() error { return s.deps.Desk.ToggleRecommendation(c.Param("id")) })
}

func (s *Server) startDeskDemo(c *gin.Context) {
	s.deskAction(c, func() error {
		s.deps.Desk.StartDemo()
		return nil
	})
}

func (s *Server) resetDeskDemo(c *gin.Context) {
	s.deskAction(c, func() error {
		s.deps.Desk.ResetDemo()
		return nil
	})
}

// deskAction runs f and answers with the resulting desk state
func (s *Server) deskAction(c *gin.Context, f func() error) {
	if err := f(); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, s.deps.Desk.Snapshot())
}
