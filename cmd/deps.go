package cmd

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/gigmatch/internal/ai"
	"github.com/spigell/gigmatch/internal/ai/gemini"
	"github.com/spigell/gigmatch/internal/indexer"
	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/matching"
	"github.com/spigell/gigmatch/internal/secrets"
	"github.com/spigell/gigmatch/internal/store/postgres"
	"github.com/spigell/gigmatch/internal/store/rest"
)

// recordStore is what both the ranker and the indexer need from a store driver.
type recordStore interface {
	matching.Store
	indexer.Store
}

// components are the process-wide dependencies shared by the commands.
type components struct {
	store   recordStore
	ranker  *matching.Ranker
	indexer *indexer.Indexer
	close   func()
}

func buildComponents(ctx context.Context, config *Config, log *zap.Logger) (*components, error) {
	store, closeStore, err := openStore(ctx, config, log)
	if err != nil {
		return nil, err
	}

	documents, queries, explainer, err := newAI(ctx, config, log)
	if err != nil {
		closeStore()
		return nil, err
	}

	m := config.Matching
	ranker := matching.NewRanker(store, queries, explainer, matching.Config{
		DefaultLimit:       m.DefaultLimit,
		StrictFilters:      m.StrictFilters,
		ExplainConcurrency: m.ExplainConcurrency,
		EmbeddingTimeout:   m.Timeouts.Embedding,
		StoreTimeout:       m.Timeouts.Store,
		ExplanationTimeout: m.Timeouts.Explanation,
	}, log)

	return &components{
		store:   store,
		ranker:  ranker,
		indexer: indexer.New(store, documents, queries, config.Indexer.Timeout, log),
		close:   closeStore,
	}, nil
}

func openStore(ctx context.Context, config *Config, log *zap.Logger) (recordStore, func(), error) {
	cfg := config.Store
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))

	switch driver {
	case "", "postgres":
		url, err := secrets.Load(secrets.Source{
			Name:  "database url",
			File:  cfg.URLFile,
			Value: cfg.URL,
			Env:   "DATABASE_URL",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set store.url, store.url-file or DATABASE_URL)", err)
		}

		store, err := postgres.Open(ctx, postgres.Options{
			URL:        url,
			MaxConns:   cfg.MaxConns,
			Migrate:    cfg.Migrate,
			Dimensions: config.AI.Gemini.Dimensions,
		}, log)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil

	case "rest":
		key, err := secrets.Load(secrets.Source{
			Name:  "rest api key",
			File:  cfg.APIKeyFile,
			Value: cfg.APIKey,
			Env:   "SUPABASE_KEY",
		})
		if err != nil {
			return nil, nil, fmt.Errorf("%w (set store.api-key, store.api-key-file or SUPABASE_KEY)", err)
		}

		client, err := rest.New(cfg.URL, key, log)
		if err != nil {
			return nil, nil, err
		}
		return client, func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unsupported store driver: %s", cfg.Driver)
	}
}

// newAI returns the document and query embedders and, when enabled, the explainer.
func newAI(ctx context.Context, config *Config, log *zap.Logger) (ai.Embedder, ai.Embedder, ai.Explainer, error) {
	cfg := config.AI.Gemini

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		File:  cfg.APIKeyFile,
		Value: cfg.APIKey,
		Env:   "GEMINI_API_KEY",
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		return nil, nil, nil, err
	}

	opts := gemini.EmbedderOptions{
		Model:      cfg.EmbeddingModel,
		Dimensions: cfg.Dimensions,
		MaxLogLen:  cfg.MaxLogLength,
	}
	queries, err := gemini.NewEmbedder(client, opts, log)
	if err != nil {
		return nil, nil, nil, err
	}
	opts.Document = true
	documents, err := gemini.NewEmbedder(client, opts, log)
	if err != nil {
		return nil, nil, nil, err
	}

	if !config.Matching.Explain {
		log.Info("explanations are disabled")
		return documents, queries, nil, nil
	}

	generator, err := gemini.NewGenerator(client, cfg.Model, cfg.MaxRetries, log)
	if err != nil {
		return nil, nil, nil, err
	}

	explainer := gemini.NewExplainer(generator, logger.WithFields(log, zap.Int("ai_retry_attempts", cfg.MaxRetries)), cfg.MaxLogLength)
	explainer.SetPromptOverrides(cfg.Prompt)

	return documents, queries, explainer, nil
}
