// Package openai implements llm.Client against any OpenAI-compatible
// chat-completions endpoint (OpenAI, Groq, OpenRouter).
package openai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/tidwall/gjson"

	"jobjeeves/internal/llm"
	"jobjeeves/internal/shared/metrics"
	"jobjeeves/internal/shared/telemetry"
)

const maxErrorBody = 512

// Client implements llm.Client. The provider is resolved on every call so a
// missing credential surfaces as a configuration error rather than a crash.
type Client struct {
	settings llm.Settings
	http     *resty.Client
}

// New constructs a client. No request is made and no credential is checked.
func New(settings llm.Settings) *Client {
	return &Client{
		settings: settings,
		http:     resty.New().SetRetryCount(0),
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []llm.Message  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type responseFormat struct {
	Type string `json:"type"`
}

// AnalyzeResume sends one completion request and normalizes its content.
func (c *Client) AnalyzeResume(ctx context.Context, input llm.AnalyzeInput) (llm.Result, error) {
	ep, err := llm.ResolveProvider(c.settings)
	if err != nil {
		return llm.Result{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, ep.Timeout)
	defer cancel()

	start := time.Now()
	resp, err := c.http.R().
		SetContext(ctx).
		SetAuthToken(ep.APIKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetBody(chatRequest{
			Model:          ep.Model,
			Messages:       llm.BuildMessages(input),
			Temperature:    llm.Temperature,
			ResponseFormat: responseFormat{Type: "json_object"},
		}).
		Post(ep.BaseURL + "/chat/completions")
	elapsed := time.Since(start)
	metrics.ObserveLLMDurationMs(float64(elapsed.Milliseconds()))

	fields := map[string]any{
		"provider":    ep.Provider,
		"model":       ep.Model,
		"duration_ms": elapsed.Milliseconds(),
	}
	if err != nil {
		perr := transportError(ctx, ep.Provider, err)
		fields["error"] = perr.Error()
		telemetry.Warn("llm.request", fields)
		return llm.Result{}, perr
	}
	fields["status"] = resp.StatusCode()
	telemetry.Info("llm.request", fields)

	body := resp.String()
	if resp.IsError() {
		return llm.Result{}, statusError(ep.Provider, resp.StatusCode(), body)
	}

	logUsage(ep, body)

	choice := gjson.Get(body, "choices.0")
	if !choice.Exists() {
		return llm.Result{}, &llm.ProviderError{
			Kind:       llm.ErrProviderUpstream,
			Provider:   ep.Provider,
			StatusCode: resp.StatusCode(),
			Message:    "response has no choices",
		}
	}
	return llm.NormalizeJSON(choice.Get("message.content").String()), nil
}

func transportError(ctx context.Context, provider string, err error) *llm.ProviderError {
	kind := llm.ErrProviderConnection
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		kind = llm.ErrProviderTimeout
	}
	return &llm.ProviderError{Kind: kind, Provider: provider, Err: err}
}

func statusError(provider string, status int, body string) *llm.ProviderError {
	kind := llm.ErrProviderUpstream
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = llm.ErrProviderAuth
	case status == http.StatusTooManyRequests:
		kind = llm.ErrProviderRateLimit
	}
	return &llm.ProviderError{
		Kind:       kind,
		Provider:   provider,
		StatusCode: status,
		Message:    errorMessage(status, body),
	}
}

func errorMessage(status int, body string) string {
	if msg := strings.TrimSpace(gjson.Get(body, "error.message").String()); msg != "" {
		return msg
	}
	if msg := strings.TrimSpace(gjson.Get(body, "error").String()); msg != "" && !strings.HasPrefix(msg, "{") {
		return msg
	}
	if trimmed := strings.TrimSpace(body); trimmed != "" {
		if len(trimmed) > maxErrorBody {
			trimmed = trimmed[:maxErrorBody]
		}
		return trimmed
	}
	return http.StatusText(status)
}

func logUsage(ep llm.Endpoint, body string) {
	usage := gjson.Get(body, "usage")
	if !usage.Exists() {
		return
	}
	telemetry.Info("llm.usage", map[string]any{
		"provider":          ep.Provider,
		"model":             ep.Model,
		"prompt_tokens":     usage.Get("prompt_tokens").Int(),
		"completion_tokens": usage.Get("completion_tokens").Int(),
		"total_tokens":      usage.Get("total_tokens").Int(),
	})
}

var _ llm.Client = (*Client)(nil)
