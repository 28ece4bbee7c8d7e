package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/schema"
)

// SearchFreelancers returns up to count embedded freelancers whose cosine similarity to embedding
// is at least threshold, most similar first.
func (s *Store) SearchFreelancers(ctx context.Context, embedding []float32, threshold float64, count int) ([]domain.Candidate, error) {
	const q = `
		SELECT id::text, COALESCE(profile_id::text, ''), 1 - (embedding <=> $1) AS similarity,
		       headline, description, skills
		FROM freelancer_profiles
		WHERE embedding IS NOT NULL AND 1 - (embedding <=> $1) >= $2
		ORDER BY embedding <=> $1, id
		LIMIT $3`

	rows, err := s.pool.Query(ctx, q, pgvector.NewVector(embedding), threshold, count)
	if err != nil {
		return nil, fmt.Errorf("searchFreelancers query: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Candidate, 0, count)
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(&c.ID, &c.ProfileID, &c.Similarity, &c.Headline, &c.Description, &c.Skills); err != nil {
			return nil, fmt.Errorf("searchFreelancers scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("searchFreelancers rows: %w", err)
	}
	return out, nil
}

// FreelancerAttributes loads availability and location of the given freelancers in one query.
// Rows with malformed attributes are logged and returned without them.
func (s *Store) FreelancerAttributes(ctx context.Context, ids []string) (map[string]domain.Attributes, error) {
	keys := uuidKeys(ids)
	out := make(map[string]domain.Attributes, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, availability, location FROM freelancer_profiles WHERE id = ANY($1::uuid[])`, keys)
	if err != nil {
		return nil, fmt.Errorf("freelancerAttributes query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id                   string
			availability, locRaw []byte
		)
		if err := rows.Scan(&id, &availability, &locRaw); err != nil {
			return nil, fmt.Errorf("freelancerAttributes scan: %w", err)
		}

		attrs, err := decodeAttributes(availability, locRaw)
		if err != nil {
			s.logger.Warn("ignoring malformed freelancer attributes", zap.String("freelancer_id", id), zap.Error(err))
		}
		out[id] = attrs
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("freelancerAttributes rows: %w", err)
	}
	return out, nil
}

// Profiles loads display fields keyed by profile id.
func (s *Store) Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	keys := uuidKeys(ids)
	out := make(map[string]domain.Profile, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT id::text, full_name, COALESCE(photo_url, ''), COALESCE(location, '') FROM profiles WHERE id = ANY($1::uuid[])`, keys)
	if err != nil {
		return nil, fmt.Errorf("profiles query: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.Profile
		if err := rows.Scan(&p.ID, &p.FullName, &p.PhotoURL, &p.Location); err != nil {
			return nil, fmt.Errorf("profiles scan: %w", err)
		}
		out[p.ID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("profiles rows: %w", err)
	}
	return out, nil
}

// Freelancer loads one freelancer record.
func (s *Store) Freelancer(ctx context.Context, id string) (*domain.Freelancer, error) {
	key, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("freelancer %q: %w", id, domain.ErrNotFound)
	}

	var (
		f                    domain.Freelancer
		availability, locRaw []byte
	)
	err = s.pool.QueryRow(ctx,
		`SELECT id::text, COALESCE(profile_id::text, ''), headline, description, skills, services,
		        availability, location, COALESCE(hourly_rate, 0)::float8
		 FROM freelancer_profiles WHERE id = $1::uuid`, key.String(),
	).Scan(&f.ID, &f.ProfileID, &f.Headline, &f.Description, &f.Skills, &f.Services, &availability, &locRaw, &f.HourlyRate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("freelancer %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("freelancer query: %w", err)
	}

	attrs, err := decodeAttributes(availability, locRaw)
	if err != nil {
		return nil, fmt.Errorf("freelancer %s: %w", id, err)
	}
	f.Availability = attrs.Availability
	f.Location = attrs.Location

	return &f, nil
}

// SaveFreelancerEmbedding stores the embedding of a freelancer.
func (s *Store) SaveFreelancerEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.saveEmbedding(ctx, "freelancer_profiles", id, embedding)
}

// PendingFreelancers returns ids of freelancers without an embedding.
func (s *Store) PendingFreelancers(ctx context.Context, limit int) ([]string, error) {
	return s.pending(ctx, "freelancer_profiles", "updated_at", limit)
}

func decodeAttributes(availability, location []byte) (domain.Attributes, error) {
	var attrs domain.Attributes

	av, errAv := schema.DecodeAvailability(availability)
	if errAv == nil {
		attrs.Availability = av
	}
	loc, errLoc := schema.DecodeLocation(location)
	if errLoc == nil {
		attrs.Location = loc
	}

	return attrs, errors.Join(errAv, errLoc)
}

// uuidKeys parses and deduplicates ids. Values that are not uuids cannot match any row and are dropped.
func uuidKeys(ids []string) []string {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		key, err := uuid.Parse(id)
		if err != nil {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key.String())
	}
	return out
}
