package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/schema"
)

// Job loads one job request with its stored embedding, if any.
func (s *Store) Job(ctx context.Context, id string) (*domain.Job, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("job %q: %w", id, domain.ErrNotFound)
	}

	var (
		job               domain.Job
		budget            *string
		windowRaw, locRaw []byte
		embedding         *pgvector.Vector
	)
	err = s.pool.QueryRow(ctx,
		`SELECT id::text, COALESCE(client_id::text, ''), status, description, skills, tasks, budget,
		        time_window, location, embedding, created_at
		 FROM job_requests WHERE id = $1::uuid`, key.String(),
	).Scan(&job.ID, &job.ClientID, &job.Status, &job.Query.Description, &job.Query.Skills, &job.Query.Tasks,
		&budget, &windowRaw, &locRaw, &embedding, &job.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("job query: %w", err)
	}

	if budget != nil {
		job.Query.Budget = *budget
	}
	if job.Query.Window, job.Query.Location, err = decodeJobFields(windowRaw, locRaw); err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	if embedding != nil {
		job.Embedding = embedding.Slice()
	}

	return &job, nil
}

// SaveJobEmbedding stores the embedding of a job request.
func (s *Store) SaveJobEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.saveEmbedding(ctx, "job_requests", id, embedding)
}

// PendingJobs returns ids of job requests without an embedding.
func (s *Store) PendingJobs(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "job_requests", "created_at", limit)
}

func (s *Store) saveEmbedding(ctx context.Context, table, id string, embedding []float32) error {
	key, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("%s %q: %w", table, id, domain.ErrNotFound)
	}

	// table is one of the package constants, never user input.
	tag, err := s.pool.Exec(ctx,
		fmt.Sprintf(`UPDATE %s SET embedding = $2 WHERE id = $1::uuid`, table),
		key.String(), pgvector.NewVector(embedding))
	if err != nil {
		return fmt.Errorf("save %s embedding: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %s: %w", table, id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) pending(ctx context.Context, table, orderBy string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		fmt.Sprintf(`SELECT id::text FROM %s WHERE embedding IS NULL ORDER BY %s LIMIT $1`, table, orderBy), limit)
	if err != nil {
		return nil, fmt.Errorf("pending %s query: %w", table, err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("pending %s scan: %w", table, err)
	}
	return ids, nil
}

// decodeJobFields validates the jsonb columns of a job request. Unlike freelancer attributes,
// a malformed column fails the whole record.
func decodeJobFields(windowRaw, locRaw []byte) (*domain.TimeWindow, *domain.JobLocation, error) {
	window, err := schema.DecodeTimeWindow(windowRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("time_window: %w", err)
	}
	loc, err := schema.DecodeJobLocation(locRaw)
	if err != nil {
		return nil, nil, fmt.Errorf("location: %w", err)
	}
	return window, loc, nil
}
