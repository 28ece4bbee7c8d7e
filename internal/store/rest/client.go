// Package rest implements the record and vector search stores over a PostgREST endpoint.
package rest

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/logger"
)

const (
	userAgent      = "spigell/gigmatch"
	defaultTimeout = 10 * time.Second

	matchFreelancersRPC = "/rpc/match_freelancers"
	freelancersPath     = "/freelancer_profiles"
	profilesPath        = "/profiles"
	jobsPath            = "/job_requests"
)

// Client talks to a PostgREST API, e.g. https://<project>.supabase.co/rest/v1.
type Client struct {
	apiKey     string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// New creates a Client. The key is sent both as apikey and as bearer token.
func New(apiURL, apiKey string, log *zap.Logger) (*Client, error) {
	apiURL = strings.TrimRight(strings.TrimSpace(apiURL), "/")
	if apiURL == "" {
		return nil, errors.New("rest api url is required")
	}

	return &Client{
		apiKey: strings.TrimSpace(apiKey),
		APIURL: apiURL,
		HTTPClient: &http.Client{
			Timeout: defaultTimeout,
		},
		logger:    logger.WithFields(log, zap.String(logger.FieldStore, "rest")),
		UserAgent: userAgent,
	}, nil
}
