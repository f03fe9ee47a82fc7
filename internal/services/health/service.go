package health

import (
	"context"
	"time"
)

const pingTimeout = 2 * time.Second

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Service encapsulates liveness and readiness checks.
type Service struct {
	DB Pinger
}

// NewService constructs a health service. db may be nil when records are kept
// in memory.
func NewService(db Pinger) *Service {
	return &Service{DB: db}
}

// Status returns the liveness payload.
func (s *Service) Status() map[string]bool {
	return map[string]bool{"ok": true}
}

// Ready reports whether dependencies can serve traffic.
func (s *Service) Ready(ctx context.Context) (map[string]any, bool) {
	if s.DB == nil {
		return map[string]any{"ok": true, "database": "memory"}, true
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := s.DB.PingContext(ctx); err != nil {
		return map[string]any{"ok": false, "database": "down", "error": err.Error()}, false
	}
	return map[string]any{"ok": true, "database": "up"}, true
}
