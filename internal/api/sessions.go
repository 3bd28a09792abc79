package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"val8-concierge/internal/engine"
	"val8-concierge/internal/models"
	"val8-concierge/internal/script"
)

type scriptInfo struct {
	*script.Script
	Steps int `json:"steps"`
}

type createSessionRequest struct {
	Script string `json:"script"`
	Demo   *bool  `json:"demo"`
	Voice  *bool  `json:"voice"`
}

type messageRequest struct {
	Text string `json:"text"`
}

type scriptRequest struct {
	Script string `json:"script" binding:"required"`
}

type modeRequest struct {
	Demo  *bool `json:"demo"`
	Voice *bool `json:"voice"`
}

type editRequest struct {
	Fields map[string]string `json:"fields" binding:"required"`
}

type navigateRequest struct {
	View models.View `json:"view" binding:"required"`
}

func (s *Server) listScripts(c *gin.Context) {
	scripts := s.deps.Catalog.List()
	out := make([]scriptInfo, 0, len(scripts))
	for _, sc := range scripts {
		out = append(out, scriptInfo{Script: sc, Steps: sc.Len()})
	}
	c.JSON(http.StatusOK, gin.H{"default": script.DefaultID, "scripts": out})
}

// session resolves the :id parameter, writing a 404 when it is unknown
func (s *Server) session(c *gin.Context) (*engine.Session, bool) {
	session, err := s.deps.Registry.Get(c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return nil, false
	}
	return session, true
}

func (s *Server) createSession(c *gin.Context) {
	var req createSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	p := engine.Params{Script: req.Script, Demo: s.cfg.Demo, Voice: s.cfg.Voice}
	if req.Demo != nil {
		p.Demo = *req.Demo
	}
	if req.Voice != nil {
		p.Voice = *req.Voice
	}

	session, err := s.deps.Registry.Create(p)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.log.Info().Str("session", session.ID()).Str("script", req.Script).Bool("demo", p.Demo).Msg("Session created")
	c.JSON(http.StatusCreated, session.Snapshot())
}

func (s *Server) getSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) deleteSession(c *gin.Context) {
	if err := s.deps.Registry.Remove(c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) postMessage(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := session.Submit(req.Text); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, session.Snapshot())
}

func (s *Server) resetSession(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	session.Reset()
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) selectScript(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req scriptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := session.SelectScript(req.Script); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) setMode(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req modeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.Demo != nil && *req.Demo != session.Snapshot().Demo {
		session.SetMode(*req.Demo)
	}
	if req.Voice != nil {
		session.SetVoice(*req.Voice)
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) selectRecommendation(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	if err := session.SelectRecommendation(c.Param("rid")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, session.Snapshot())
}

func (s *Server) confirmCategory(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	if err := session.ConfirmCategory(models.Category(c.Param("category"))); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Snapshot())
}

func (s *Server) editBooking(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req editRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	category := models.Category(c.Param("category"))
	if err := session.EditBooking(category, req.Fields); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, session.Ledger()[category])
}

func (s *Server) getSummary(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.Summary())
}

func (s *Server) submitCheckout(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var info models.UserInfo
	if err := c.ShouldBindJSON(&info); err != nil {
		badRequest(c, err)
		return
	}
	if err := session.SubmitCheckout(info); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusAccepted, session.Snapshot())
}

func (s *Server) completeDemoCheckout(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	summary, err := session.CompleteDemoCheckout()
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) navigate(c *gin.Context) {
	session, ok := s.session(c)
	if !ok {
		return
	}
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := session.Navigate(req.View); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"view": session.View()})
}
