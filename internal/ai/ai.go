package ai

import "context"

// Embedder turns composite text into a fixed-length vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Explainer produces a short rationale for why a freelancer fits a job.
type Explainer interface {
	Explain(ctx context.Context, jobText, candidateText string, candidateSkills []string) (string, error)
}
