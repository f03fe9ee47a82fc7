package llm

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestProviderErrorMatchesKind(t *testing.T) {
	err := fmt.Errorf("analyze: %w", &ProviderError{
		Kind:       ErrProviderRateLimit,
		Provider:   ProviderGroq,
		StatusCode: 429,
		Message:    "quota exceeded",
	})

	if !errors.Is(err, ErrProviderRateLimit) {
		t.Fatalf("expected rate limit kind")
	}
	if errors.Is(err, ErrProviderAuth) {
		t.Fatalf("did not expect auth kind")
	}
	var pe *ProviderError
	if !errors.As(err, &pe) || pe.StatusCode != 429 {
		t.Fatalf("expected provider error with status, got %v", err)
	}
}

func TestProviderErrorUnwrapsCause(t *testing.T) {
	err := &ProviderError{Kind: ErrProviderTimeout, Provider: ProviderOpenAI, Err: context.DeadlineExceeded}

	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped cause")
	}
	if err.Error() != "llm request timed out: openai: context deadline exceeded" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestKindOf(t *testing.T) {
	cases := map[string]error{
		"":               nil,
		"configuration":  &ConfigurationError{Key: "OPENAI_API_KEY"},
		"llm_auth":       &ProviderError{Kind: ErrProviderAuth},
		"llm_rate_limit": &ProviderError{Kind: ErrProviderRateLimit},
		"llm_timeout":    &ProviderError{Kind: ErrProviderTimeout},
		"llm_connection": &ProviderError{Kind: ErrProviderConnection},
		"llm_upstream":   &ProviderError{Kind: ErrProviderUpstream},
		"unexpected":     errors.New("boom"),
	}
	for want, err := range cases {
		if got := KindOf(err); got != want {
			t.Fatalf("KindOf(%v) = %q, want %q", err, got, want)
		}
	}
}
