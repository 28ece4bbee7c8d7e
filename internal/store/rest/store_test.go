package rest

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/domain"
	"github.com/spigell/gigmatch/internal/schema"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL+"/rest/v1/", "secret-key", zap.NewNop())
	require.NoError(t, err)
	return c
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func TestSearchFreelancers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rest/v1/rpc/match_freelancers", r.URL.Path)
		assert.Equal(t, "secret-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer secret-key", r.Header.Get("Authorization"))

		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "[0.5,0.25]", body["query_embedding"])
		assert.Equal(t, 0.4, body["match_threshold"])
		assert.Equal(t, float64(15), body["match_count"])

		writeJSON(w, []map[string]any{
			{"id": "f1", "profile_id": "p1", "similarity": 0.91, "headline": "Cleaner", "description": "Eco cleaning", "skills": []string{"cleaning"}},
			{"id": "f2", "profile_id": nil, "similarity": "0.72", "headline": "Painter", "skills": nil},
		})
	})

	got, err := c.SearchFreelancers(context.Background(), []float32{0.5, 0.25}, 0.4, 15)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, domain.Candidate{
		ID: "f1", ProfileID: "p1", Similarity: 0.91, Headline: "Cleaner", Description: "Eco cleaning", Skills: []string{"cleaning"},
	}, got[0])
	assert.Equal(t, "f2", got[1].ID)
	assert.Empty(t, got[1].ProfileID)
	assert.InDelta(t, 0.72, got[1].Similarity, 1e-9)
}

func TestFreelancerAttributesDecodesJSONColumns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/freelancer_profiles", r.URL.Path)
		assert.Equal(t, "id,availability,location", r.URL.Query().Get("select"))
		assert.Equal(t, `in.("f1","f2","f3")`, r.URL.Query().Get("id"))

		writeJSON(w, []map[string]any{
			{
				"id":           "f1",
				"availability": map[string]any{"days": map[string]any{"Mon": []string{"morning"}}},
				"location":     map[string]any{"postcode": "1312AB", "travel_radius": "nearby"},
			},
			{"id": "f2", "availability": nil, "location": nil},
			{"id": "f3", "availability": map[string]any{"days": map[string]any{"monday": []string{"noon"}}}, "location": nil},
		})
	})

	got, err := c.FreelancerAttributes(context.Background(), []string{"f1", "f2", "f3"})
	require.NoError(t, err)
	require.Len(t, got, 3)

	require.NotNil(t, got["f1"].Availability)
	assert.Equal(t, []domain.TimeOfDay{domain.Morning}, got["f1"].Availability.Days["monday"])
	assert.Equal(t, &domain.FreelancerLocation{Postcode: "1312AB", TravelRadius: domain.RadiusNearby}, got["f1"].Location)

	assert.Nil(t, got["f2"].Availability)
	assert.Nil(t, got["f2"].Location)
	assert.Nil(t, got["f3"].Availability, "malformed availability is dropped")
}

func TestFreelancerAttributesSkipsEmptyRequest(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatalf("unexpected request %s", r.URL)
	})

	got, err := c.FreelancerAttributes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestProfilesGzip(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/profiles", r.URL.Path)
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = io.WriteString(gz, `[{"id":"p1","full_name":"Bea Jansen","photo_url":null,"location":"Amsterdam"}]`)
		_ = gz.Close()

		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	})

	got, err := c.Profiles(context.Background(), []string{"p1"})
	require.NoError(t, err)
	assert.Equal(t, map[string]domain.Profile{"p1": {ID: "p1", FullName: "Bea Jansen", Location: "Amsterdam"}}, got)
}

func TestJob(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/rest/v1/job_requests", r.URL.Path)

		if r.URL.Query().Get("id") == "eq.missing" {
			writeJSON(w, []any{})
			return
		}

		writeJSON(w, []map[string]any{{
			"id":          "j1",
			"client_id":   "c1",
			"status":      "open",
			"description": "Move a piano",
			"skills":      []string{"moving"},
			"budget":      nil,
			"time_window": map[string]any{"date": "2025-03-03", "time_of_day": "morning"},
			"location":    map[string]any{"postcode": "1312XX"},
			"embedding":   "[0.1,0.2,0.3]",
			"created_at":  "2025-02-28T10:00:00.123456+00:00",
		}})
	})

	job, err := c.Job(context.Background(), "j1")
	require.NoError(t, err)
	assert.Equal(t, "Move a piano", job.Query.Description)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, job.Embedding)
	require.NotNil(t, job.Query.Window)
	assert.Equal(t, domain.Morning, job.Query.Window.TimeOfDay)
	require.NotNil(t, job.Query.Location)
	assert.Equal(t, "1312XX", job.Query.Location.Postcode)
	assert.False(t, job.CreatedAt.IsZero())

	_, err = c.Job(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestJobRejectsMalformedTimeWindow(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, []map[string]any{{
			"id":          "j1",
			"description": "Move a piano",
			"time_window": map[string]any{"date": "2025-03-03", "time_of_day": "noon"},
			"embedding":   "[0.1,0.2,0.3]",
		}})
	})

	_, err := c.Job(context.Background(), "j1")
	require.Error(t, err)
	assert.ErrorIs(t, err, schema.ErrInvalid)
	assert.Contains(t, err.Error(), "time_window")
}

func TestSaveEmbedding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "return=representation", r.Header.Get("Prefer"))

		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "[1,2]", body["embedding"])

		if r.URL.Query().Get("id") == "eq.gone" {
			writeJSON(w, []any{})
			return
		}
		writeJSON(w, []map[string]any{{"id": "f1"}})
	})

	require.NoError(t, c.SaveFreelancerEmbedding(context.Background(), "f1", []float32{1, 2}))
	assert.ErrorIs(t, c.SaveJobEmbedding(context.Background(), "gone", []float32{1, 2}), domain.ErrNotFound)
}

func TestPending(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "is.null", r.URL.Query().Get("embedding"))
		assert.Equal(t, "10", r.URL.Query().Get("limit"))
		assert.Equal(t, "updated_at.asc", r.URL.Query().Get("order"))
		writeJSON(w, []map[string]any{{"id": "f1"}, {"id": "f2"}})
	})

	ids, err := c.PendingFreelancers(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"f1", "f2"}, ids)
}

func TestBadStatus(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"permission denied"}`, http.StatusUnauthorized)
	})

	_, err := c.Profiles(context.Background(), []string{"p1"})
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.Contains(t, statusErr.Body, "permission denied")
}

func TestParseVector(t *testing.T) {
	v, err := parseVector([]any{0.5, 1.0})
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 1}, v)

	v, err = parseVector(nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	_, err = parseVector(map[string]any{})
	assert.Error(t, err)
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New("  ", "key", nil)
	assert.Error(t, err)
}
