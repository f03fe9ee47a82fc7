package llm

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration      = errors.New("llm configuration error")
	ErrProviderAuth       = errors.New("llm authentication failed")
	ErrProviderRateLimit  = errors.New("llm rate limit exceeded")
	ErrProviderConnection = errors.New("llm connection failed")
	ErrProviderUpstream   = errors.New("llm upstream error")
	ErrProviderTimeout    = errors.New("llm request timed out")
)

// ConfigurationError reports a missing or invalid provider setting. It is
// raised before any request is sent.
type ConfigurationError struct {
	Key    string
	Reason string
}

func (e *ConfigurationError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "is not set"
	}
	return e.Key + " " + reason
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// ProviderError describes a failed provider call. Kind is one of the
// ErrProvider* sentinels; StatusCode is zero for transport failures.
type ProviderError struct {
	Kind       error
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Kind, e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s: %s: %s", e.Kind, e.Provider, msg)
}

func (e *ProviderError) Unwrap() []error {
	errs := []error{e.Kind}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// KindOf names the error category for logs and metrics.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrProviderAuth):
		return "llm_auth"
	case errors.Is(err, ErrProviderRateLimit):
		return "llm_rate_limit"
	case errors.Is(err, ErrProviderTimeout):
		return "llm_timeout"
	case errors.Is(err, ErrProviderConnection):
		return "llm_connection"
	case errors.Is(err, ErrProviderUpstream):
		return "llm_upstream"
	default:
		return "unexpected"
	}
}
