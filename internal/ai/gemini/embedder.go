package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/gigmatch/internal/logger"
	"github.com/spigell/gigmatch/internal/utils"
)

const (
	defaultEmbeddingModel = "gemini-embedding-001"
	DefaultDimensions     = 768

	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
)

type contentEmbedder interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Embedder turns composite text into a vector with the Gemini embedding endpoint.
type Embedder struct {
	models     contentEmbedder
	model      string
	dimensions int32
	taskType   string
	logger     *zap.Logger
	maxLogLen  int
}

// EmbedderOptions configures an Embedder.
type EmbedderOptions struct {
	Model      string
	Dimensions int
	// Document selects the document task type used when indexing records. Queries use the
	// retrieval query task type.
	Document  bool
	MaxLogLen int
}

// NewEmbedder creates an Embedder over the models service of client.
func NewEmbedder(client *genai.Client, opts EmbedderOptions, log *zap.Logger) (*Embedder, error) {
	if client == nil {
		return nil, errors.New("genai client is required")
	}
	return newEmbedder(client.Models, opts, log), nil
}

func newEmbedder(models contentEmbedder, opts EmbedderOptions, log *zap.Logger) *Embedder {
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultEmbeddingModel
	}
	maxLogLen := opts.MaxLogLen
	if maxLogLen <= 0 {
		maxLogLen = defaultMaxLogLength
	}
	dims := opts.Dimensions
	if dims <= 0 {
		dims = DefaultDimensions
	}
	task := taskRetrievalQuery
	if opts.Document {
		task = taskRetrievalDocument
	}

	return &Embedder{
		models:     models,
		model:      model,
		dimensions: int32(dims),
		taskType:   task,
		logger:     logger.WithFields(log, append(logger.CommonFields("gemini", model), zap.String("component", "embedder"))...),
		maxLogLen:  maxLogLen,
	}
}

// Embed returns the embedding of text.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errors.New("text to embed must not be empty")
	}

	dims := e.dimensions
	cfg := &genai.EmbedContentConfig{
		TaskType:             e.taskType,
		OutputDimensionality: &dims,
	}

	e.logger.Debug("embedding request",
		zap.String("task", e.taskType),
		zap.String("text_preview", utils.TruncateForLog(text, e.maxLogLen)),
	)

	resp, err := e.models.EmbedContent(ctx, e.model, genai.Text(text), cfg)
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, errors.New("gemini api returned no embedding")
	}

	values := resp.Embeddings[0].Values
	if len(values) != int(e.dimensions) {
		return nil, fmt.Errorf("gemini api returned %d dimensions, want %d", len(values), e.dimensions)
	}

	return values, nil
}

// Dimensions reports the vector length produced by Embed.
func (e *Embedder) Dimensions() int {
	return int(e.dimensions)
}
