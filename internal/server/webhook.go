package server

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/service"
	"github.com/devricklin/inbox-autopilot/internal/webhook"
)

// handleVerify answers the subscription handshake
func (s *Server) handleVerify(c *gin.Context) {
	challenge, ok := webhook.Handshake(s.cfg.VerifyToken,
		c.Query("hub.mode"), c.Query("hub.verify_token"), c.Query("hub.challenge"))
	if !ok {
		s.log.Warn("webhook verification failed", zap.String("mode", c.Query("hub.mode")))
		c.String(http.StatusForbidden, "forbidden")
		return
	}
	s.log.Info("webhook verified")
	c.String(http.StatusOK, challenge)
}

// handleEvent verifies, parses and schedules a delivery, then acknowledges.
// Processing never happens on the request path.
func (s *Server) handleEvent(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes))
	if err != nil {
		c.String(http.StatusRequestEntityTooLarge, "body too large")
		return
	}

	if err := webhook.VerifySignature(s.cfg.AppSecret, body, c.GetHeader(webhook.SignatureHeader)); err != nil {
		status := http.StatusForbidden
		if webhook.IsAuthError(err) {
			status = http.StatusUnauthorized
		}
		s.log.Warn("webhook signature rejected", zap.Error(err), zap.Int("status", status))
		c.String(status, "invalid signature")
		return
	}

	d, err := webhook.Parse(body, s.now())
	if err != nil {
		s.log.Warn("webhook payload rejected", zap.Error(err))
		c.String(http.StatusBadRequest, "malformed payload")
		return
	}

	if err := s.ingest.Submit(d); err != nil {
		if errors.Is(err, service.ErrShuttingDown) {
			c.String(http.StatusServiceUnavailable, "shutting down")
			return
		}
		s.log.Error("failed to schedule delivery", zap.Error(err))
		c.String(http.StatusInternalServerError, "error")
		return
	}

	s.log.Debug("delivery accepted", zap.String("object", d.Object), zap.Int("events", len(d.Events)))
	c.String(http.StatusOK, "EVENT_RECEIVED")
}
