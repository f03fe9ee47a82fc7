package analyses

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// MemoryRepo stores analyses in memory and is safe for concurrent use.
type MemoryRepo struct {
	mu   sync.RWMutex
	byID map[uuid.UUID]Analysis
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{byID: make(map[uuid.UUID]Analysis)}
}

// Create stores a copy of the analysis.
func (r *MemoryRepo) Create(ctx context.Context, analysis Analysis) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	analysis = withDefaults(analysis)
	stored, err := cloneAnalysis(analysis)
	if err != nil {
		return Analysis{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[stored.ID] = stored
	return analysis, nil
}

// GetByID returns a copy of the stored analysis.
func (r *MemoryRepo) GetByID(ctx context.Context, id uuid.UUID) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}
	r.mu.RLock()
	analysis, ok := r.byID[id]
	r.mu.RUnlock()
	if !ok {
		return Analysis{}, ErrNotFound
	}
	return cloneAnalysis(analysis)
}

// cloneAnalysis round-trips the result document through JSON so that callers
// never share maps with the store, matching what a Postgres round-trip yields.
func cloneAnalysis(a Analysis) (Analysis, error) {
	if a.MatchScore != nil {
		score := *a.MatchScore
		a.MatchScore = &score
	}
	payload, err := json.Marshal(a.Result)
	if err != nil {
		return Analysis{}, err
	}
	result, err := decodeResult(payload)
	if err != nil {
		return Analysis{}, err
	}
	a.Result = result
	return a, nil
}
