package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"jobjeeves/internal/llm"
)

func testSettings(baseURL string) llm.Settings {
	return llm.Settings{
		Provider: llm.ProviderGroq,
		BaseURL:  baseURL,
		Timeout:  2 * time.Second,
		Credentials: map[string]llm.Credentials{
			llm.ProviderGroq: {APIKey: "gsk-test"},
		},
	}
}

func completion(content string) string {
	payload, _ := json.Marshal(map[string]any{
		"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}},
		"usage":   map[string]any{"prompt_tokens": 120, "completion_tokens": 40, "total_tokens": 160},
	})
	return string(payload)
}

func TestAnalyzeResumeSendsChatCompletion(t *testing.T) {
	var got map[string]any
	var auth, path string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion(`{"match_score": 88, "missing_keywords": ["Terraform"], "strengths": ["Go"], "improvement_suggestions": ["Quantify"], "short_summary": "Strong."}`)))
	}))
	defer server.Close()

	res, err := New(testSettings(server.URL+"/v1")).AnalyzeResume(context.Background(), llm.AnalyzeInput{
		ResumeText:     "Go developer",
		JobDescription: "Go and Terraform",
	})
	if err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}

	if path != "/v1/chat/completions" {
		t.Fatalf("unexpected path %q", path)
	}
	if auth != "Bearer gsk-test" {
		t.Fatalf("unexpected auth header %q", auth)
	}
	if got["model"] != "llama-3.1-8b-instant" {
		t.Fatalf("unexpected model %v", got["model"])
	}
	if got["temperature"] != 0.2 {
		t.Fatalf("unexpected temperature %v", got["temperature"])
	}
	if format, _ := got["response_format"].(map[string]any); format["type"] != "json_object" {
		t.Fatalf("unexpected response_format %v", got["response_format"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %v", got["messages"])
	}

	if res.MatchScore != 88 || res.ShortSummary != "Strong." {
		t.Fatalf("unexpected result %+v", res)
	}
	if len(res.MissingKeywords) != 1 || res.MissingKeywords[0] != "Terraform" {
		t.Fatalf("unexpected keywords %v", res.MissingKeywords)
	}
}

func TestAnalyzeResumeInvalidJSONFallsBack(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(completion("I think this candidate is great")))
	}))
	defer server.Close()

	res, err := New(testSettings(server.URL)).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if res.MatchScore != 0 {
		t.Fatalf("expected zero score, got %d", res.MatchScore)
	}
	if res.Extra[llm.KeyError] != llm.InvalidJSONMarker {
		t.Fatalf("expected invalid JSON marker, got %v", res.Extra)
	}
	if res.Extra[llm.KeyRawText] != "I think this candidate is great" {
		t.Fatalf("expected raw text, got %v", res.Extra[llm.KeyRawText])
	}
}

func TestAnalyzeResumeNullContentIsEmptyObject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":null}}]}`))
	}))
	defer server.Close()

	res, err := New(testSettings(server.URL)).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if err != nil {
		t.Fatalf("AnalyzeResume: %v", err)
	}
	if _, ok := res.Extra[llm.KeyError]; ok {
		t.Fatalf("null content should not be treated as invalid JSON")
	}
}

func TestAnalyzeResumeMapsStatusCodes(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		want    error
		message string
	}{
		{name: "unauthorized", status: 401, body: `{"error":{"message":"Invalid API Key"}}`, want: llm.ErrProviderAuth, message: "Invalid API Key"},
		{name: "forbidden", status: 403, body: `{"error":{"message":"forbidden"}}`, want: llm.ErrProviderAuth, message: "forbidden"},
		{name: "rate limited", status: 429, body: `{"error":{"message":"Rate limit reached"}}`, want: llm.ErrProviderRateLimit, message: "Rate limit reached"},
		{name: "server error", status: 500, body: `upstream exploded`, want: llm.ErrProviderUpstream, message: "upstream exploded"},
		{name: "bad request", status: 400, body: `{"error":"model not found"}`, want: llm.ErrProviderUpstream, message: "model not found"},
		{name: "empty body", status: 503, body: ``, want: llm.ErrProviderUpstream, message: "Service Unavailable"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			}))
			defer server.Close()

			_, err := New(testSettings(server.URL)).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var perr *llm.ProviderError
			if !errors.As(err, &perr) {
				t.Fatalf("expected provider error, got %T", err)
			}
			if perr.StatusCode != tc.status || perr.Message != tc.message {
				t.Fatalf("unexpected provider error %+v", perr)
			}
			if perr.Provider != llm.ProviderGroq {
				t.Fatalf("unexpected provider %q", perr.Provider)
			}
		})
	}
}

func TestAnalyzeResumeMissingChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := New(testSettings(server.URL)).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if !errors.Is(err, llm.ErrProviderUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestAnalyzeResumeTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	settings := testSettings(server.URL)
	settings.Timeout = 50 * time.Millisecond

	_, err := New(settings).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if !errors.Is(err, llm.ErrProviderTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}
}

func TestAnalyzeResumeConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := New(testSettings(url)).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if !errors.Is(err, llm.ErrProviderConnection) {
		t.Fatalf("expected connection error, got %v", err)
	}
}

func TestAnalyzeResumeMissingKeySkipsNetwork(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	settings := testSettings(server.URL)
	settings.Provider = llm.ProviderOpenAI

	_, err := New(settings).AnalyzeResume(context.Background(), llm.AnalyzeInput{})
	if !errors.Is(err, llm.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if err.Error() != "OPENAI_API_KEY is not set" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	if calls.Load() != 0 {
		t.Fatalf("expected no outbound request, got %d", calls.Load())
	}
}
