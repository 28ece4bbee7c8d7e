package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/schema"
)

type row map[string]any

type candidateRow struct {
	ID          string   `json:"id"`
	ProfileID   string   `json:"profile_id"`
	Similarity  float64  `json:"similarity"`
	Headline    string   `json:"headline"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
}

type attributesRow struct {
	ID           string `json:"id"`
	Availability any    `json:"availability"`
	Location     any    `json:"location"`
}

type profileRow struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	PhotoURL string `json:"photo_url"`
	Location string `json:"location"`
}

type freelancerRow struct {
	ID           string   `json:"id"`
	ProfileID    string   `json:"profile_id"`
	Headline     string   `json:"headline"`
	Description  string   `json:"description"`
	Skills       []string `json:"skills"`
	Services     []string `json:"services"`
	Availability any      `json:"availability"`
	Location     any      `json:"location"`
	HourlyRate   float64  `json:"hourly_rate"`
}

type jobRow struct {
	ID          string   `json:"id"`
	ClientID    string   `json:"client_id"`
	Status      string   `json:"status"`
	Description string   `json:"description"`
	Skills      []string `json:"skills"`
	Tasks       []string `json:"tasks"`
	Budget      string   `json:"budget"`
	TimeWindow  any      `json:"time_window"`
	Location    any      `json:"location"`
	Embedding   any      `json:"embedding"`
	CreatedAt   string   `json:"created_at"`
}

// decodeRows maps generic JSON rows onto typed rows. Numbers given as strings are accepted,
// since PostgREST renders numeric columns that way.
func decodeRows(rows []row, result any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           result,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}
	if err := decoder.Decode(rows); err != nil {
		return fmt.Errorf("decode rows: %w", err)
	}
	return nil
}

func (r attributesRow) attributes() (domain.Attributes, error) {
	return decodeAttributes(r.Availability, r.Location)
}

func (r freelancerRow) freelancer() (*domain.Freelancer, error) {
	attrs, err := decodeAttributes(r.Availability, r.Location)
	if err != nil {
		return nil, err
	}

	return &domain.Freelancer{
		ID:           r.ID,
		ProfileID:    r.ProfileID,
		Headline:     r.Headline,
		Description:  r.Description,
		Skills:       r.Skills,
		Services:     r.Services,
		Availability: attrs.Availability,
		Location:     attrs.Location,
		HourlyRate:   r.HourlyRate,
	}, nil
}

func (r jobRow) job() (*domain.Job, error) {
	job := &domain.Job{
		ID:       r.ID,
		ClientID: r.ClientID,
		Status:   r.Status,
		Query: domain.JobQuery{
			Description: r.Description,
			Skills:      r.Skills,
			Tasks:       r.Tasks,
			Budget:      r.Budget,
		},
	}

	windowRaw, err := rawJSON(r.TimeWindow)
	if err == nil {
		job.Query.Window, err = schema.DecodeTimeWindow(windowRaw)
	}
	if err != nil {
		return nil, fmt.Errorf("time_window: %w", err)
	}
	locRaw, err := rawJSON(r.Location)
	if err == nil {
		job.Query.Location, err = schema.DecodeJobLocation(locRaw)
	}
	if err != nil {
		return nil, fmt.Errorf("location: %w", err)
	}

	embedding, err := parseVector(r.Embedding)
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	job.Embedding = embedding

	if r.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339Nano, r.CreatedAt); err == nil {
			job.CreatedAt = ts
		}
	}

	return job, nil
}

func decodeAttributes(availability, location any) (domain.Attributes, error) {
	var attrs domain.Attributes

	avRaw, errAv := rawJSON(availability)
	if errAv == nil {
		attrs.Availability, errAv = schema.DecodeAvailability(avRaw)
	}
	locRaw, errLoc := rawJSON(location)
	if errLoc == nil {
		attrs.Location, errLoc = schema.DecodeLocation(locRaw)
	}

	return attrs, errors.Join(errAv, errLoc)
}

// rawJSON re-encodes a decoded JSON value. jsonb columns stored as strings are passed through.
func rawJSON(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(val), nil
	default:
		return json.Marshal(val)
	}
}

// parseVector accepts the pgvector text form "[1,2,3]" as well as a JSON array.
func parseVector(v any) ([]float32, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		val = strings.TrimSpace(val)
		if val == "" {
			return nil, nil
		}
		var out []float32
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil, err
		}
		return out, nil
	case []any:
		out := make([]float32, 0, len(val))
		for _, item := range val {
			f, ok := item.(float64)
			if !ok {
				return nil, fmt.Errorf("unexpected vector element %T", item)
			}
			out = append(out, float32(f))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unexpected vector type %T", v)
	}
}

// formatVector renders a vector in the pgvector text form.
func formatVector(v []float32) string {
	data, _ := json.Marshal(v)
	return string(data)
}
