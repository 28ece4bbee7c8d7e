package rest

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
)

const (
	freelancerColumns = "id,profile_id,headline,description,skills,services,availability,location,hourly_rate"
	jobColumns        = "id,client_id,status,description,skills,tasks,budget,time_window,location,embedding,created_at"
)

type matchRequest struct {
	QueryEmbedding string  `json:"query_embedding"`
	MatchThreshold float64 `json:"match_threshold"`
	MatchCount     int     `json:"match_count"`
}

// SearchFreelancers calls the match_freelancers RPC.
func (c *Client) SearchFreelancers(ctx context.Context, embedding []float32, threshold float64, count int) ([]domain.Candidate, error) {
	var rows []row
	err := c.postJSON(ctx, matchFreelancersRPC, matchRequest{
		QueryEmbedding: formatVector(embedding),
		MatchThreshold: threshold,
		MatchCount:     count,
	}, &rows)
	if err != nil {
		return nil, fmt.Errorf("match_freelancers: %w", err)
	}

	var decoded []candidateRow
	if err := decodeRows(rows, &decoded); err != nil {
		return nil, err
	}

	out := make([]domain.Candidate, 0, len(decoded))
	for _, r := range decoded {
		out = append(out, domain.Candidate{
			ID:          r.ID,
			ProfileID:   r.ProfileID,
			Similarity:  r.Similarity,
			Headline:    r.Headline,
			Description: r.Description,
			Skills:      r.Skills,
		})
	}
	return out, nil
}

// FreelancerAttributes loads availability and location of the given freelancers in one request.
func (c *Client) FreelancerAttributes(ctx context.Context, ids []string) (map[string]domain.Attributes, error) {
	out := make(map[string]domain.Attributes, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var decoded []attributesRow
	if err := c.selectRows(ctx, freelancersPath, "id,availability,location", inFilter(ids), &decoded); err != nil {
		return nil, err
	}

	for _, r := range decoded {
		attrs, err := r.attributes()
		if err != nil {
			c.logger.Warn("ignoring malformed freelancer attributes", zap.String("freelancer_id", r.ID), zap.Error(err))
		}
		out[r.ID] = attrs
	}
	return out, nil
}

// Profiles loads display fields keyed by profile id.
func (c *Client) Profiles(ctx context.Context, ids []string) (map[string]domain.Profile, error) {
	out := make(map[string]domain.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var decoded []profileRow
	if err := c.selectRows(ctx, profilesPath, "id,full_name,photo_url,location", inFilter(ids), &decoded); err != nil {
		return nil, err
	}

	for _, r := range decoded {
		out[r.ID] = domain.Profile{ID: r.ID, FullName: r.FullName, PhotoURL: r.PhotoURL, Location: r.Location}
	}
	return out, nil
}

// Job loads one job request.
func (c *Client) Job(ctx context.Context, id string) (*domain.Job, error) {
	var decoded []jobRow
	if err := c.selectRows(ctx, jobsPath, jobColumns, "eq."+id, &decoded); err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("job %s: %w", id, domain.ErrNotFound)
	}

	job, err := decoded[0].job()
	if err != nil {
		return nil, fmt.Errorf("job %s: %w", id, err)
	}
	return job, nil
}

// Freelancer loads one freelancer record.
func (c *Client) Freelancer(ctx context.Context, id string) (*domain.Freelancer, error) {
	var decoded []freelancerRow
	if err := c.selectRows(ctx, freelancersPath, freelancerColumns, "eq."+id, &decoded); err != nil {
		return nil, err
	}
	if len(decoded) == 0 {
		return nil, fmt.Errorf("freelancer %s: %w", id, domain.ErrNotFound)
	}

	f, err := decoded[0].freelancer()
	if err != nil {
		return nil, fmt.Errorf("freelancer %s: %w", id, err)
	}
	return f, nil
}

// SaveFreelancerEmbedding stores the embedding of a freelancer.
func (c *Client) SaveFreelancerEmbedding(ctx context.Context, id string, embedding []float32) error {
	return c.saveEmbedding(ctx, freelancersPath, id, embedding)
}

// SaveJobEmbedding stores the embedding of a job request.
func (c *Client) SaveJobEmbedding(ctx context.Context, id string, embedding []float32) error {
	return c.saveEmbedding(ctx, jobsPath, id, embedding)
}

// PendingFreelancers returns ids of freelancers without an embedding.
func (c *Client) PendingFreelancers(ctx context.Context, limit int) ([]string, error) {
	return c.pending(ctx, freelancersPath, "updated_at", limit)
}

// PendingJobs returns ids of job requests without an embedding.
func (c *Client) PendingJobs(ctx context.Context, limit int) ([]string, error) {
	return c.pending(ctx, jobsPath, "created_at", limit)
}

func (c *Client) selectRows(ctx context.Context, path, columns, idFilter string, result any) error {
	q := url.Values{}
	q.Set("select", columns)
	q.Set("id", idFilter)

	var rows []row
	if err := c.getJSON(ctx, path, q, &rows); err != nil {
		return fmt.Errorf("select %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	return decodeRows(rows, result)
}

func (c *Client) saveEmbedding(ctx context.Context, path, id string, embedding []float32) error {
	q := url.Values{}
	q.Set("id", "eq."+id)
	q.Set("select", "id")

	var rows []row
	if err := c.patchJSON(ctx, path, q, map[string]string{"embedding": formatVector(embedding)}, &rows); err != nil {
		return fmt.Errorf("update %s: %w", strings.TrimPrefix(path, "/"), err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%s %s: %w", strings.TrimPrefix(path, "/"), id, domain.ErrNotFound)
	}
	return nil
}

func (c *Client) pending(ctx context.Context, path, orderBy string, limit int) ([]string, error) {
	q := url.Values{}
	q.Set("select", "id")
	q.Set("embedding", "is.null")
	q.Set("order", orderBy+".asc")
	q.Set("limit", strconv.Itoa(limit))

	var rows []row
	if err := c.getJSON(ctx, path, q, &rows); err != nil {
		return nil, fmt.Errorf("pending %s: %w", strings.TrimPrefix(path, "/"), err)
	}

	var decoded []struct {
		ID string `json:"id"`
	}
	if err := decodeRows(rows, &decoded); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(decoded))
	for _, r := range decoded {
		ids = append(ids, r.ID)
	}
	return ids, nil
}

// inFilter renders a PostgREST in.(...) filter. Values are quoted so that commas and
// parentheses inside ids cannot break the list.
func inFilter(ids []string) string {
	quoted := make([]string, 0, len(ids))
	for _, id := range ids {
		quoted = append(quoted, strconv.Quote(id))
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
