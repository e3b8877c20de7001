package server

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/caffeineduck/tsplay/examples"
	"github.com/caffeineduck/tsplay/executor"
)

// Code is a pointer so that a missing field can be told apart from an
// empty snippet, which is valid.
type runRequest struct {
	Code    *string `json:"code"`
	Timeout string  `json:"timeout,omitempty"`
}

type checkRequest struct {
	Code *string `json:"code"`
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == nil {
		fail(c, CodeInvalidParams, "invalid request: code required")
		return
	}
	if s.tooLarge(*req.Code) {
		fail(c, CodeTooLarge, fmt.Sprintf("source exceeds %d bytes", s.cfg.MaxSourceBytes))
		return
	}

	var opts []executor.Option
	if req.Timeout != "" {
		d, err := time.ParseDuration(req.Timeout)
		if err != nil || d <= 0 || d > s.cfg.MaxRunTimeout {
			fail(c, CodeInvalidParams, fmt.Sprintf("timeout must be a duration between 0 and %v", s.cfg.MaxRunTimeout))
			return
		}
		opts = append(opts, executor.WithTimeout(d))
	}

	success(c, s.svc.CheckAndRun(c.Request.Context(), *req.Code, opts...))
}

func (s *Server) handleCheck(c *gin.Context) {
	var req checkRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Code == nil {
		fail(c, CodeInvalidParams, "invalid request: code required")
		return
	}
	if s.tooLarge(*req.Code) {
		fail(c, CodeTooLarge, fmt.Sprintf("source exceeds %d bytes", s.cfg.MaxSourceBytes))
		return
	}
	success(c, s.svc.Check(c.Request.Context(), *req.Code))
}

func (s *Server) handleExamples(c *gin.Context) {
	success(c, examples.All())
}

func (s *Server) handleExample(c *gin.Context) {
	snippet, ok := examples.Get(c.Param("name"))
	if !ok {
		fail(c, CodeNotFound, "example not found")
		return
	}
	success(c, snippet)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already replied with an HTTP error.
		s.log.Debug("websocket upgrade failed", zap.Error(err))
		return
	}
	newSession(s, conn).serve(c.Request.Context())
}

func (s *Server) tooLarge(source string) bool {
	return s.cfg.MaxSourceBytes > 0 && int64(len(source)) > s.cfg.MaxSourceBytes
}
