package postgres

import "fmt"

const defaultDimensions = 768

// schemaStatements is the bootstrap DDL for the tables the matcher reads. The wider marketplace
// schema is owned elsewhere; these statements are idempotent.
func schemaStatements(dimensions int) []string {
	if dimensions <= 0 {
		dimensions = defaultDimensions
	}

	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS profiles (
			id uuid PRIMARY KEY,
			full_name text NOT NULL DEFAULT '',
			photo_url text,
			location text
		)`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS freelancer_profiles (
			id uuid PRIMARY KEY,
			profile_id uuid REFERENCES profiles (id),
			headline text NOT NULL DEFAULT '',
			description text NOT NULL DEFAULT '',
			skills text[] NOT NULL DEFAULT '{}',
			services text[] NOT NULL DEFAULT '{}',
			availability jsonb,
			location jsonb,
			hourly_rate numeric(10, 2),
			embedding vector(%d),
			updated_at timestamptz NOT NULL DEFAULT now()
		)`, dimensions),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS job_requests (
			id uuid PRIMARY KEY,
			client_id uuid,
			status text NOT NULL DEFAULT 'open',
			description text NOT NULL,
			skills text[] NOT NULL DEFAULT '{}',
			tasks text[] NOT NULL DEFAULT '{}',
			budget text,
			time_window jsonb,
			location jsonb,
			embedding vector(%d),
			created_at timestamptz NOT NULL DEFAULT now()
		)`, dimensions),
		`CREATE INDEX IF NOT EXISTS freelancer_profiles_embedding_idx
			ON freelancer_profiles USING hnsw (embedding vector_cosine_ops)`,
	}
}
