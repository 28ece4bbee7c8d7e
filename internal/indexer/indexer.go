// Package indexer keeps the stored embeddings of freelancers and jobs up to date.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/ai"
	"github.com/spigell/gigmatch/internal/composite"
	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/logger"
)

const defaultBatch = 50

// Store is the record store side the indexer reads from and writes to.
type Store interface {
	Freelancer(ctx context.Context, id string) (*domain.Freelancer, error)
	Job(ctx context.Context, id string) (*domain.Job, error)
	SaveFreelancerEmbedding(ctx context.Context, id string, embedding []float32) error
	SaveJobEmbedding(ctx context.Context, id string, embedding []float32) error
	PendingFreelancers(ctx context.Context, limit int) ([]string, error)
	PendingJobs(ctx context.Context, limit int) ([]string, error)
}

// Counts summarizes one kind of record in a pass.
type Counts struct {
	Indexed int `json:"indexed"`
	Failed  int `json:"failed"`
}

// Report summarizes an IndexPending pass.
type Report struct {
	Freelancers Counts `json:"freelancers"`
	Jobs        Counts `json:"jobs"`
}

// Indexer embeds composite texts of records. Freelancers are embedded as documents and jobs
// as queries, matching how they are compared at search time.
type Indexer struct {
	store     Store
	documents ai.Embedder
	queries   ai.Embedder
	timeout   time.Duration
	logger    *zap.Logger
}

// New creates an Indexer. A nil queries embedder reuses documents.
func New(store Store, documents, queries ai.Embedder, timeout time.Duration, log *zap.Logger) *Indexer {
	if queries == nil {
		queries = documents
	}
	return &Indexer{
		store:     store,
		documents: documents,
		queries:   queries,
		timeout:   timeout,
		logger:    logger.WithFields(log, zap.String("component", "indexer")),
	}
}

// IndexFreelancer embeds and stores the composite text of one freelancer.
func (i *Indexer) IndexFreelancer(ctx context.Context, id string) error {
	f, err := i.store.Freelancer(ctx, id)
	if err != nil {
		return fmt.Errorf("load freelancer: %w", err)
	}

	text, err := composite.Freelancer(*f)
	if err != nil {
		return fmt.Errorf("freelancer %s: %w", id, err)
	}

	embedding, err := i.embed(ctx, i.documents, text)
	if err != nil {
		return fmt.Errorf("embed freelancer %s: %w", id, err)
	}

	if err := i.store.SaveFreelancerEmbedding(ctx, id, embedding); err != nil {
		return fmt.Errorf("save freelancer embedding: %w", err)
	}

	i.logger.Debug("freelancer indexed", zap.String("freelancer_id", id), zap.Int("dimensions", len(embedding)))
	return nil
}

// IndexJob embeds and stores the composite text of one job request.
func (i *Indexer) IndexJob(ctx context.Context, id string) error {
	job, err := i.store.Job(ctx, id)
	if err != nil {
		return fmt.Errorf("load job: %w", err)
	}

	text, err := composite.Job(job.Query)
	if err != nil {
		return fmt.Errorf("job %s: %w", id, err)
	}

	embedding, err := i.embed(ctx, i.queries, text)
	if err != nil {
		return fmt.Errorf("embed job %s: %w", id, err)
	}

	if err := i.store.SaveJobEmbedding(ctx, id, embedding); err != nil {
		return fmt.Errorf("save job embedding: %w", err)
	}

	i.logger.Debug("job indexed", zap.String("job_id", id), zap.Int("dimensions", len(embedding)))
	return nil
}

// IndexPending embeds up to batch freelancers and batch jobs that have no embedding yet.
// Failures of single records are logged and counted. Only failing to list pending records is an error.
func (i *Indexer) IndexPending(ctx context.Context, batch int) (Report, error) {
	if batch <= 0 {
		batch = defaultBatch
	}

	var report Report

	freelancers, err := i.store.PendingFreelancers(ctx, batch)
	if err != nil {
		return report, fmt.Errorf("list pending freelancers: %w", err)
	}
	report.Freelancers = i.indexAll(ctx, "freelancer", freelancers, i.IndexFreelancer)

	jobs, err := i.store.PendingJobs(ctx, batch)
	if err != nil {
		return report, fmt.Errorf("list pending jobs: %w", err)
	}
	report.Jobs = i.indexAll(ctx, "job", jobs, i.IndexJob)

	i.logger.Info("index pass completed",
		zap.Int("freelancers_indexed", report.Freelancers.Indexed),
		zap.Int("freelancers_failed", report.Freelancers.Failed),
		zap.Int("jobs_indexed", report.Jobs.Indexed),
		zap.Int("jobs_failed", report.Jobs.Failed),
	)

	return report, nil
}

func (i *Indexer) indexAll(ctx context.Context, kind string, ids []string, index func(context.Context, string) error) Counts {
	var counts Counts
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if err := index(ctx, id); err != nil {
			counts.Failed++
			i.logger.Warn("indexing failed", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
			continue
		}
		counts.Indexed++
	}
	return counts
}

func (i *Indexer) embed(ctx context.Context, embedder ai.Embedder, text string) ([]float32, error) {
	if embedder == nil {
		return nil, errors.New("no embedder configured")
	}

	if i.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, i.timeout)
		defer cancel()
	}

	embedding, err := embedder.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if len(embedding) == 0 {
		return nil, errors.New("empty embedding")
	}
	return embedding, nil
}
