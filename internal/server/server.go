package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/agenthands/anima/internal/apperr"
	"github.com/agenthands/anima/internal/core"
	"github.com/agenthands/anima/internal/core/model"
	"github.com/agenthands/anima/internal/core/profile"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	Anima  *core.Anima
	logger *zap.Logger
}

func NewServer(a *core.Anima, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{Anima: a, logger: logger}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog())

	r.GET("/status", s.Status)

	api := r.Group("/api")
	api.POST("/agents", s.RegisterAgent)
	api.POST("/events", s.PostEvent)
	api.POST("/events/tick", s.Tick)
	api.GET("/sessions/:id/social-dynamics", s.SocialDynamics)
	api.GET("/sessions/:id/agents/:agent/perception", s.Perception)
	api.DELETE("/sessions/:id", s.ResetSession)

	return r
}

// Response is the envelope of every API reply.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) ok(c *gin.Context, status int, data any) {
	c.JSON(status, Response{Code: 0, Message: "success", Data: data})
}

// fail maps the error kind to an HTTP status. data, when non-nil, carries a
// partial result such as an aborted tick summary.
func (s *Server) fail(c *gin.Context, err error, data any) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, Response{Code: status, Message: err.Error(), Data: data})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, apperr.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, apperr.ErrTransientExternal):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		s.logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()))
	}
}

func (s *Server) Status(c *gin.Context) {
	s.ok(c, http.StatusOK, gin.H{"status": "ok"})
}

type RegisterAgentRequest struct {
	SessionID  string `json:"session_id"`
	AgentID    string `json:"agent_id"`
	EntityType string `json:"entity_type"`
	Name       string `json:"name"`
	Persona    string `json:"persona"`
}

func (s *Server) RegisterAgent(c *gin.Context) {
	var req RegisterAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation("server.register_agent", err), nil)
		return
	}

	created, err := s.Anima.RegisterAgent(c.Request.Context(), profile.Profile{
		SessionID:  req.SessionID,
		AgentID:    req.AgentID,
		EntityType: req.EntityType,
		Name:       req.Name,
		Persona:    req.Persona,
	})
	if err != nil {
		s.fail(c, err, nil)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	s.ok(c, status, gin.H{"session_id": req.SessionID, "agent_id": req.AgentID, "created": created})
}

// EventRequest is an event payload plus the agents asked to react to it.
type EventRequest struct {
	model.EventPayload
	TargetAgentIDs []string `json:"target_agent_ids"`
}

func (s *Server) PostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation("server.post_event", err), nil)
		return
	}
	ctx := c.Request.Context()

	if len(req.TargetAgentIDs) == 0 {
		eventID, err := s.Anima.IngestEvent(ctx, &req.EventPayload)
		if err != nil {
			s.fail(c, err, nil)
			return
		}
		s.ok(c, http.StatusOK, gin.H{"session_id": req.SessionID, "event_id": eventID})
		return
	}

	res, err := s.Anima.ProcessEvent(ctx, req.SessionID, &req.EventPayload, req.TargetAgentIDs)
	if err != nil {
		s.fail(c, err, res)
		return
	}
	s.ok(c, http.StatusOK, res)
}

type TickRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) Tick(c *gin.Context) {
	var req TickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.fail(c, apperr.Validation("server.tick", err), nil)
		return
	}

	summary, err := s.Anima.RunTick(c.Request.Context(), strings.TrimSpace(req.SessionID))
	if err != nil {
		s.fail(c, err, summary)
		return
	}
	s.ok(c, http.StatusOK, summary)
}

func (s *Server) SocialDynamics(c *gin.Context) {
	feed, err := s.Anima.SocialDynamics(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	s.ok(c, http.StatusOK, feed)
}

// Perception returns the digest; ?format=text returns the rendered prompt
// text instead.
func (s *Server) Perception(c *gin.Context) {
	digest, err := s.Anima.Perceive(c.Request.Context(), c.Param("id"), c.Param("agent"))
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	if c.Query("format") == "text" {
		c.String(http.StatusOK, digest.Render())
		return
	}
	s.ok(c, http.StatusOK, digest)
}

func (s *Server) ResetSession(c *gin.Context) {
	sessionID := c.Param("id")
	deleted, err := s.Anima.ResetSession(c.Request.Context(), sessionID)
	if err != nil {
		s.fail(c, err, nil)
		return
	}
	s.ok(c, http.StatusOK, gin.H{"session_id": sessionID, "deleted": deleted})
}
