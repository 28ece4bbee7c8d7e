// Package matching ranks freelancers for a job: vector search over composite-text embeddings,
// exact-match boosts for availability and location, hard filtering, explanation fan-out and
// profile resolution.
package matching

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/gigmatch/internal/ai"
	"github.com/spigell/gigmatch/internal/composite"
	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/schema"
)

const (
	AvailabilityBoost = 0.2
	LocationBoost     = 0.1

	defaultLimit              = 5
	defaultOverfetchFactor    = 3
	defaultExplainConcurrency = 4
)

// Store is the read side the ranker needs from the record store.
type Store interface {
	SearchFreelancers(ctx context.Context, embedding []float32, threshold float64, count int) ([]domain.Candidate, error)
	FreelancerAttributes(ctx context.Context, ids []string) (map[string]domain.Attributes, error)
	Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error)
	Job(ctx context.Context, id string) (*domain.Job, error)
}

// Config tunes ranking. Zero values fall back to defaults.
type Config struct {
	DefaultLimit       int
	OverfetchFactor    int
	StrictFilters      bool
	ExplainConcurrency int

	EmbeddingTimeout   time.Duration
	StoreTimeout       time.Duration
	ExplanationTimeout time.Duration
}

// DefaultConfig returns strict filtering with 10s/10s/30s call timeouts.
func DefaultConfig() Config {
	return Config{
		DefaultLimit:       defaultLimit,
		OverfetchFactor:    defaultOverfetchFactor,
		StrictFilters:      true,
		ExplainConcurrency: defaultExplainConcurrency,
		EmbeddingTimeout:   10 * time.Second,
		StoreTimeout:       10 * time.Second,
		ExplanationTimeout: 30 * time.Second,
	}
}

// ScoredMatch is a candidate with its exact-match flags and relevance score.
type ScoredMatch struct {
	domain.Candidate
	AvailabilityMatch bool
	LocationMatch     bool
	Relevance         float64
}

// Score computes both match flags and the relevance of a candidate. A boost only applies
// when the query specifies the corresponding field, so fail-open matches on absent fields
// never change the order.
func Score(c domain.Candidate, q *domain.JobQuery) *ScoredMatch {
	m := &ScoredMatch{Candidate: c, Relevance: c.Similarity}

	var window *domain.TimeWindow
	var location *domain.JobLocation
	if q != nil {
		window, location = q.Window, q.Location
	}

	m.AvailabilityMatch = AvailabilityMatches(c.Availability, window)
	m.LocationMatch = LocationMatches(c.Location, location)

	if window != nil && m.AvailabilityMatch {
		m.Relevance += AvailabilityBoost
	}
	if location != nil && m.LocationMatch {
		m.Relevance += LocationBoost
	}

	return m
}

// Ranker matches jobs to freelancers.
type Ranker struct {
	store     Store
	embedder  ai.Embedder
	explainer ai.Explainer
	cfg       Config
	logger    *zap.Logger
}

// NewRanker creates a Ranker. A nil explainer leaves explanations empty.
func NewRanker(store Store, embedder ai.Embedder, explainer ai.Explainer, cfg Config, log *zap.Logger) *Ranker {
	def := DefaultConfig()
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = def.DefaultLimit
	}
	if cfg.OverfetchFactor <= 0 {
		cfg.OverfetchFactor = def.OverfetchFactor
	}
	if cfg.ExplainConcurrency <= 0 {
		cfg.ExplainConcurrency = def.ExplainConcurrency
	}

	return &Ranker{
		store:     store,
		embedder:  embedder,
		explainer: explainer,
		cfg:       cfg,
		logger:    logger.WithFields(log, zap.String("component", "ranker")),
	}
}

// Match ranks freelancers for an ad-hoc query. The query is embedded on the fly.
func (r *Ranker) Match(ctx context.Context, q domain.JobQuery, limit int, threshold float64) ([]domain.MatchResult, error) {
	limit, err := r.validate(limit, threshold)
	if err != nil {
		return nil, err
	}

	text, err := composite.Job(q)
	if err != nil {
		return nil, invalid("%v", err)
	}

	embedCtx, cancel := withTimeout(ctx, r.cfg.EmbeddingTimeout)
	defer cancel()

	embedding, err := r.embedder.Embed(embedCtx, text)
	if err != nil {
		return nil, upstream("embed query", err)
	}

	return r.rank(ctx, &q, embedding, limit, threshold)
}

// MatchJob ranks freelancers for a stored job using its stored embedding. No embedding call is made.
func (r *Ranker) MatchJob(ctx context.Context, jobID string, limit int, threshold float64) ([]domain.MatchResult, error) {
	limit, err := r.validate(limit, threshold)
	if err != nil {
		return nil, err
	}

	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, invalid("job id is required")
	}

	storeCtx, cancel := withTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	job, err := r.store.Job(storeCtx, jobID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, errors.Join(ErrNotFound, err)
	}
	if errors.Is(err, schema.ErrInvalid) {
		return nil, fmt.Errorf("%w: stored job: %w", ErrValidation, err)
	}
	if err != nil {
		return nil, upstream("load job", err)
	}
	if len(job.Embedding) == 0 {
		return nil, ErrMissingEmbedding
	}

	return r.rank(ctx, &job.Query, job.Embedding, limit, threshold)
}

// Filters returns the filter steps that a query would go through, for diagnostics.
func (r *Ranker) Filters(q *domain.JobQuery, threshold float64) []Filter {
	return Filters(q, threshold, r.cfg.StrictFilters)
}

func (r *Ranker) validate(limit int, threshold float64) (int, error) {
	if math.IsNaN(threshold) || threshold < -1 || threshold > 1 {
		return 0, invalid("threshold %v is outside [-1, 1]", threshold)
	}
	if limit <= 0 {
		limit = r.cfg.DefaultLimit
	}
	return limit, nil
}

func (r *Ranker) rank(ctx context.Context, q *domain.JobQuery, embedding []float32, limit int, threshold float64) ([]domain.MatchResult, error) {
	count := limit * r.cfg.OverfetchFactor

	searchCtx, cancel := withTimeout(ctx, r.cfg.StoreTimeout)
	candidates, err := r.store.SearchFreelancers(searchCtx, embedding, threshold, count)
	cancel()
	if err != nil {
		return nil, upstream("search freelancers", err)
	}

	r.logger.Debug("vector search completed",
		zap.Int("requested", count),
		zap.Int("returned", len(candidates)),
		zap.Float64("threshold", threshold),
	)

	if len(candidates) == 0 {
		return []domain.MatchResult{}, nil
	}

	ids := make([]string, 0, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.ID)
	}

	attrCtx, cancel := withTimeout(ctx, r.cfg.StoreTimeout)
	attrs, err := r.store.FreelancerAttributes(attrCtx, ids)
	cancel()
	if err != nil {
		return nil, upstream("fetch candidate attributes", err)
	}

	scored := make([]*ScoredMatch, 0, len(candidates))
	for _, c := range candidates {
		if a, ok := attrs[c.ID]; ok {
			c.Attributes = a
		}
		scored = append(scored, Score(c, q))
	}

	scored, err = runFilters(ctx, r.logger, Filters(q, threshold, r.cfg.StrictFilters), scored)
	if err != nil {
		return nil, err
	}

	sortByRelevance(scored)
	if len(scored) > limit {
		scored = scored[:limit]
	}

	explanations, err := r.explain(ctx, q.Description, scored)
	if err != nil {
		return nil, err
	}

	profiles, err := r.profiles(ctx, scored)
	if err != nil {
		return nil, err
	}

	results := make([]domain.MatchResult, 0, len(scored))
	for i, m := range scored {
		res := domain.MatchResult{
			FreelancerID:      m.ID,
			ProfileID:         m.ProfileID,
			Headline:          m.Headline,
			Skills:            m.Skills,
			Similarity:        m.Similarity,
			Relevance:         m.Relevance,
			Explanation:       explanations[i],
			AvailabilityMatch: m.AvailabilityMatch,
			LocationMatch:     m.LocationMatch,
		}
		if p, ok := profiles[m.ProfileID]; ok {
			res.FullName = p.FullName
			res.PhotoURL = p.PhotoURL
			res.Location = p.Location
		}
		results = append(results, res)
	}

	r.logger.Info("matching completed",
		zap.Int("candidates", len(candidates)),
		zap.Int("matches", len(results)),
		zap.Int("limit", limit),
	)

	return results, nil
}

// sortByRelevance orders by relevance descending with candidate id as tie-break.
func sortByRelevance(matches []*ScoredMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Relevance != matches[j].Relevance {
			return matches[i].Relevance > matches[j].Relevance
		}
		return matches[i].ID < matches[j].ID
	})
}

// explain fans out one explanation call per match. Results are index-aligned with matches and
// any failure or timeout fails the whole batch.
func (r *Ranker) explain(ctx context.Context, jobText string, matches []*ScoredMatch) ([]string, error) {
	out := make([]string, len(matches))
	if r.explainer == nil || len(matches) == 0 {
		return out, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.ExplainConcurrency)

	for i, m := range matches {
		candidateText := composite.Candidate(m.Candidate)
		if candidateText == "" {
			r.logger.Debug("nothing to explain", zap.String("freelancer_id", m.ID))
			continue
		}

		g.Go(func() error {
			callCtx, cancel := withTimeout(gctx, r.cfg.ExplanationTimeout)
			defer cancel()

			text, err := r.explainer.Explain(callCtx, jobText, candidateText, m.Skills)
			if err != nil {
				return upstream("explain match "+m.ID, err)
			}
			out[i] = text
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Ranker) profiles(ctx context.Context, matches []*ScoredMatch) (map[string]domain.Profile, error) {
	seen := make(map[string]struct{}, len(matches))
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		if m.ProfileID == "" {
			continue
		}
		if _, ok := seen[m.ProfileID]; ok {
			continue
		}
		seen[m.ProfileID] = struct{}{}
		ids = append(ids, m.ProfileID)
	}

	if len(ids) == 0 {
		return map[string]domain.Profile{}, nil
	}

	storeCtx, cancel := withTimeout(ctx, r.cfg.StoreTimeout)
	defer cancel()

	profiles, err := r.store.Profiles(storeCtx, ids)
	if err != nil {
		return nil, upstream("fetch profiles", err)
	}
	return profiles, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
