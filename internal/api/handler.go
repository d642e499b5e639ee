// Package api exposes the approval workflow over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/devricklin/inbox-autopilot/internal/biz/domain"
	"github.com/devricklin/inbox-autopilot/internal/biz/repo"
	"github.com/devricklin/inbox-autopilot/internal/biz/usecase"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Approver is the approval workflow served by the handler
type Approver interface {
	List(ctx context.Context, userID string, status domain.MessageStatus, limit int) ([]*domain.MessageWithResponse, error)
	Get(ctx context.Context, id string) (*domain.MessageWithResponse, error)
	Approve(ctx context.Context, id, finalText string) (*domain.MessageWithResponse, error)
	Reject(ctx context.Context, id string) (*domain.MessageWithResponse, error)
	Regenerate(ctx context.Context, id string) (*domain.MessageWithResponse, error)
}

// Handler serves the approval API
type Handler struct {
	approval Approver
	log      *zap.Logger
}

// NewHandler creates the approval API handler
func NewHandler(approval Approver, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{approval: approval, log: log.Named("api")}
}

// Register mounts the approval routes on r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/messages", h.list)
	r.GET("/messages/:id", h.get)
	r.POST("/messages/:id/approve", h.approve)
	r.POST("/messages/:id/reject", h.reject)
	r.POST("/messages/:id/regenerate", h.regenerate)
}

// BearerAuth rejects requests without the given bearer token. An empty token
// disables the check.
func BearerAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResult{Error: "unauthorized"})
			return
		}
		c.Next()
	}
}

func (h *Handler) list(c *gin.Context) {
	status := domain.StatusPending
	switch s := c.Query("status"); s {
	case "":
	case "all":
		status = ""
	default:
		status = domain.MessageStatus(s)
		if !status.Valid() {
			c.JSON(http.StatusBadRequest, ErrorResult{Error: "unknown status " + strconv.Quote(s)})
			return
		}
	}

	limit := defaultListLimit
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, ErrorResult{Error: "limit must be a positive integer"})
			return
		}
		limit = min(parsed, maxListLimit)
	}

	items, err := h.approval.List(c.Request.Context(), c.Query("user_id"), status, limit)
	if err != nil {
		h.writeError(c, err)
		return
	}

	result := ListResult{Messages: make([]Message, 0, len(items)), Count: len(items)}
	for _, item := range items {
		result.Messages = append(result.Messages, FromDomain(item))
	}
	c.JSON(http.StatusOK, result)
}

func (h *Handler) get(c *gin.Context) {
	item, err := h.approval.Get(c.Request.Context(), c.Param("id"))
	h.writeItem(c, item, err)
}

func (h *Handler) approve(c *gin.Context) {
	var req ApproveRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, ErrorResult{Error: err.Error()})
			return
		}
	}
	item, err := h.approval.Approve(c.Request.Context(), c.Param("id"), req.FinalResponse)
	h.writeItem(c, item, err)
}

func (h *Handler) reject(c *gin.Context) {
	item, err := h.approval.Reject(c.Request.Context(), c.Param("id"))
	h.writeItem(c, item, err)
}

func (h *Handler) regenerate(c *gin.Context) {
	item, err := h.approval.Regenerate(c.Request.Context(), c.Param("id"))
	h.writeItem(c, item, err)
}

func (h *Handler) writeItem(c *gin.Context, item *domain.MessageWithResponse, err error) {
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, FromDomain(item))
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, repo.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrNotPending):
		status = http.StatusConflict
	case errors.Is(err, usecase.ErrEmptyReply):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, ErrorResult{Error: err.Error()})
}
