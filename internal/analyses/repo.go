package analyses

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/google/uuid"
)

// Repo defines persistence operations for analyses.
type Repo interface {
	// Create assigns ID and CreatedAt when unset, persists the record and
	// returns the stored form.
	Create(ctx context.Context, analysis Analysis) (Analysis, error)
	// GetByID returns ErrNotFound when no record matches.
	GetByID(ctx context.Context, id uuid.UUID) (Analysis, error)
}

func withDefaults(a Analysis) Analysis {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = nowUTC()
	}
	if a.Result == nil {
		a.Result = map[string]any{}
	}
	return a
}

// decodeResult reads a stored result document. Numbers stay json.Number so
// that values outside float64 range or precision re-encode unchanged.
func decodeResult(payload []byte) (map[string]any, error) {
	result := map[string]any{}
	if len(bytes.TrimSpace(payload)) == 0 {
		return result, nil
	}
	dec := json.NewDecoder(bytes.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&result); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after result document")
	}
	if result == nil {
		result = map[string]any{}
	}
	return result, nil
}
