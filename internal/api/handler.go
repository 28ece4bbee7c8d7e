// Package api exposes matching and indexing over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/composite"
	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/matching"
	"github.com/spigell/gigmatch/internal/schema"
)

const (
	maxLimit     = 100
	maxBodyBytes = 1 << 20
)

// Matcher ranks freelancers for jobs.
type Matcher interface {
	Match(ctx context.Context, q domain.JobQuery, limit int, threshold float64) ([]domain.MatchResult, error)
	MatchJob(ctx context.Context, jobID string, limit int, threshold float64) ([]domain.MatchResult, error)
}

// Indexer refreshes stored embeddings.
type Indexer interface {
	IndexFreelancer(ctx context.Context, id string) error
	IndexJob(ctx context.Context, id string) error
}

// Pinger reports store health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Defaults apply when a request omits limit or threshold.
type Defaults struct {
	Limit     int
	Threshold float64
}

type Handler struct {
	matcher  Matcher
	indexer  Indexer
	pinger   Pinger
	defaults Defaults
	logger   *zap.Logger
}

// NewHandler creates a Handler. indexer and pinger may be nil.
func NewHandler(matcher Matcher, indexer Indexer, pinger Pinger, defaults Defaults, log *zap.Logger) *Handler {
	return &Handler{
		matcher:  matcher,
		indexer:  indexer,
		pinger:   pinger,
		defaults: defaults,
		logger:   logger.WithFields(log, zap.String("component", "api")),
	}
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/healthz", h.Health)

	v1 := r.Group("/v1")
	{
		v1.POST("/matches", h.Match)
		v1.GET("/jobs/:id/matches", h.MatchJob)
		if h.indexer != nil {
			v1.POST("/freelancers/:id/embedding", h.IndexFreelancer)
			v1.POST("/jobs/:id/embedding", h.IndexJob)
		}
	}
}

type matchRequest struct {
	domain.JobQuery
	Limit     *int     `json:"limit,omitempty"`
	Threshold *float64 `json:"threshold,omitempty"`
}

// Match: POST /v1/matches
// Body: JobQuery plus optional limit and threshold.
func (h *Handler) Match(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read body: " + err.Error()})
		return
	}

	if err := schema.Validate(schema.JobQuery, body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var req matchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json: " + err.Error()})
		return
	}

	limit, threshold := h.defaults.Limit, h.defaults.Threshold
	if req.Limit != nil {
		limit = *req.Limit
	}
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	res, err := h.matcher.Match(c.Request.Context(), req.JobQuery, limit, threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"count":     len(res),
			"limit":     limit,
			"threshold": threshold,
		},
		"data": res,
	})
}

// MatchJob: GET /v1/jobs/:id/matches?limit=5&threshold=0.5
func (h *Handler) MatchJob(c *gin.Context) {
	id, ok := h.uuidParam(c)
	if !ok {
		return
	}

	limit, err := parseLimit(c.Query("limit"), h.defaults.Limit)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	threshold, err := parseThreshold(c.Query("threshold"), h.defaults.Threshold)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.matcher.MatchJob(c.Request.Context(), id, limit, threshold)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"meta": gin.H{
			"job_id":    id,
			"count":     len(res),
			"limit":     limit,
			"threshold": threshold,
		},
		"data": res,
	})
}

// IndexFreelancer: POST /v1/freelancers/:id/embedding
func (h *Handler) IndexFreelancer(c *gin.Context) {
	h.index(c, "freelancer", h.indexer.IndexFreelancer)
}

// IndexJob: POST /v1/jobs/:id/embedding
func (h *Handler) IndexJob(c *gin.Context) {
	h.index(c, "job", h.indexer.IndexJob)
}

func (h *Handler) index(c *gin.Context, kind string, index func(context.Context, string) error) {
	id, ok := h.uuidParam(c)
	if !ok {
		return
	}

	if err := index(c.Request.Context(), id); err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, domain.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, composite.ErrEmptyText), errors.Is(err, schema.ErrInvalid):
			status = http.StatusUnprocessableEntity
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
		}
		h.logger.Warn("indexing failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{"id": id, "kind": kind, "indexed": true},
	})
}

// Health: GET /healthz
func (h *Handler) Health(c *gin.Context) {
	if h.pinger != nil {
		if err := h.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) uuidParam(c *gin.Context) (string, bool) {
	raw := c.Param("id")
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a uuid: " + raw})
		return "", false
	}
	return id.String(), true
}

func (h *Handler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", zap.String("path", c.FullPath()), zap.Int("status", status), zap.Error(err))
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, matching.ErrValidation), errors.Is(err, schema.ErrInvalid):
		return http.StatusBadRequest
	case errors.Is(err, matching.ErrNotFound), errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, matching.ErrMissingEmbedding):
		return http.StatusConflict
	case errors.Is(err, matching.ErrTimeout):
		return http.StatusGatewayTimeout
	case errors.Is(err, matching.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// parseLimit accepts an empty value (default) or an integer in [1, maxLimit].
func parseLimit(s string, def int) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	l, err := strconv.Atoi(s)
	if err != nil || l <= 0 || l > maxLimit {
		return 0, errors.New("limit must be an integer between 1 and " + strconv.Itoa(maxLimit))
	}
	return l, nil
}

func parseThreshold(s string, def float64) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return def, nil
	}
	t, err := strconv.ParseFloat(s, 64)
	if err != nil || t < -1 || t > 1 {
		return 0, errors.New("threshold must be a number between -1 and 1")
	}
	return t, nil
}
