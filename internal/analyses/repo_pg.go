package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

// Create inserts a new analysis.
func (r *PGRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	const query = `
INSERT INTO analyses (
	id, created_at, resume_filename, resume_text, job_description, match_score, result
)
VALUES ($1, $2, $3, $4, $5, $6, $7)`
	analysis = withDefaults(analysis)
	resultPayload, err := marshalJSONB(analysis.Result)
	if err != nil {
		return Analysis{}, fmt.Errorf("encode result: %w", err)
	}
	var score sql.NullInt64
	if analysis.MatchScore != nil {
		score = sql.NullInt64{Int64: int64(*analysis.MatchScore), Valid: true}
	}
	_, err = r.DB.ExecContext(ctx, query,
		analysis.ID,
		analysis.CreatedAt,
		analysis.ResumeFilename,
		analysis.ResumeText,
		analysis.JobDescription,
		score,
		resultPayload,
	)
	if err != nil {
		return Analysis{}, fmt.Errorf("insert analysis: %w", err)
	}
	return analysis, nil
}

// GetByID returns an analysis by ID.
func (r *PGRepo) GetByID(ctx context.Context, id uuid.UUID) (Analysis, error) {
	const query = `
SELECT id, created_at, resume_filename, resume_text, job_description, match_score, result
FROM analyses
WHERE id = $1
LIMIT 1`
	var a Analysis
	var filename sql.NullString
	var score sql.NullInt64
	var result []byte
	err := r.DB.QueryRowContext(ctx, query, id).Scan(
		&a.ID,
		&a.CreatedAt,
		&filename,
		&a.ResumeText,
		&a.JobDescription,
		&score,
		&result,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Analysis{}, ErrNotFound
		}
		return Analysis{}, fmt.Errorf("select analysis: %w", err)
	}
	a.ResumeFilename = filename.String
	if score.Valid {
		v := int(score.Int64)
		a.MatchScore = &v
	}
	a.Result, err = decodeResult(result)
	if err != nil {
		return Analysis{}, fmt.Errorf("decode result: %w", err)
	}
	return a, nil
}

func marshalJSONB(value map[string]any) ([]byte, error) {
	if value == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(value)
}
