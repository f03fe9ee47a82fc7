package llm

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
)

func TestNormalizeMatchScore(t *testing.T) {
	cases := []struct {
		name string
		in   any
		want int
	}{
		{name: "absent", in: nil, want: 0},
		{name: "int", in: 72, want: 72},
		{name: "above range", in: 150, want: 100},
		{name: "below range", in: -5, want: 0},
		{name: "float truncates", in: 77.9, want: 77},
		{name: "negative float", in: -0.7, want: 0},
		{name: "nan", in: math.NaN(), want: 0},
		{name: "inf", in: math.Inf(1), want: 0},
		{name: "true", in: true, want: 1},
		{name: "false", in: false, want: 0},
		{name: "numeric string", in: " 85 ", want: 85},
		{name: "signed string", in: "+42", want: 42},
		{name: "decimal string", in: "85.5", want: 0},
		{name: "word", in: "high", want: 0},
		{name: "huge string", in: "99999999999999999999", want: 100},
		{name: "json number int", in: json.Number("64"), want: 64},
		{name: "json number float", in: json.Number("64.9"), want: 64},
		{name: "object", in: map[string]any{"v": 1}, want: 0},
		{name: "list", in: []any{90}, want: 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := map[string]any{}
			if tc.in != nil {
				raw[KeyMatchScore] = tc.in
			}
			if got := Normalize(raw).MatchScore; got != tc.want {
				t.Fatalf("expected %d, got %d", tc.want, got)
			}
		})
	}
}

func TestNormalizeLists(t *testing.T) {
	raw := map[string]any{
		KeyMissingKeywords:        []any{"Go", nil, 3, map[string]any{"x": 1}, true, []any{"nested"}},
		KeyStrengths:              nil,
		KeyImprovementSuggestions: "Quantify impact",
	}

	got := Normalize(raw)

	if !reflect.DeepEqual(got.MissingKeywords, []string{"Go", "3", "true"}) {
		t.Fatalf("unexpected missing keywords: %#v", got.MissingKeywords)
	}
	if got.Strengths == nil || len(got.Strengths) != 0 {
		t.Fatalf("expected empty strengths, got %#v", got.Strengths)
	}
	if !reflect.DeepEqual(got.ImprovementSuggestions, []string{"Quantify impact"}) {
		t.Fatalf("unexpected suggestions: %#v", got.ImprovementSuggestions)
	}
}

func TestNormalizeEmptyInputIsSchemaComplete(t *testing.T) {
	got := Normalize(nil).Map()

	want := map[string]any{
		KeyMatchScore:             0,
		KeyMissingKeywords:        []string{},
		KeyStrengths:              []string{},
		KeyImprovementSuggestions: []string{},
		KeyShortSummary:           "",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected map: %#v", got)
	}
}

func TestNormalizeShortSummary(t *testing.T) {
	if got := Normalize(map[string]any{KeyShortSummary: "Solid fit."}).ShortSummary; got != "Solid fit." {
		t.Fatalf("unexpected summary %q", got)
	}
	if got := Normalize(map[string]any{KeyShortSummary: []any{"a"}}).ShortSummary; got != "" {
		t.Fatalf("expected list summary to become empty, got %q", got)
	}
	if got := Normalize(map[string]any{KeyShortSummary: 12.5}).ShortSummary; got != "12.5" {
		t.Fatalf("expected numeric summary text, got %q", got)
	}
}

func TestNormalizePreservesExtraKeys(t *testing.T) {
	raw := map[string]any{KeyMatchScore: 50, "seniority": "senior", "notes": []any{"x"}}

	got := Normalize(raw).Map()

	if got["seniority"] != "senior" {
		t.Fatalf("expected extra key to survive, got %#v", got)
	}
	if !reflect.DeepEqual(got["notes"], []any{"x"}) {
		t.Fatalf("unexpected notes: %#v", got["notes"])
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	first := Normalize(map[string]any{
		KeyMatchScore:      "120",
		KeyMissingKeywords: []any{"Kubernetes", 7},
		KeyShortSummary:    "ok",
		"extra":            "kept",
	})

	second := Normalize(first.Map())

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("normalize not idempotent:\nfirst=%#v\nsecond=%#v", first, second)
	}
}

func TestNormalizeJSONValidObject(t *testing.T) {
	got := NormalizeJSON(`{"match_score": 81, "missing_keywords": ["Kafka"], "strengths": ["Go"], "improvement_suggestions": [], "short_summary": "Good.", "confidence": 0.9}`)

	if got.MatchScore != 81 {
		t.Fatalf("expected 81, got %d", got.MatchScore)
	}
	if !reflect.DeepEqual(got.MissingKeywords, []string{"Kafka"}) {
		t.Fatalf("unexpected keywords: %#v", got.MissingKeywords)
	}
	if got.Extra["confidence"] != json.Number("0.9") {
		t.Fatalf("expected extra confidence, got %#v", got.Extra["confidence"])
	}
	if _, ok := got.Extra[KeyError]; ok {
		t.Fatalf("did not expect error marker")
	}
}

func TestNormalizeJSONInvalidFallsBack(t *testing.T) {
	content := "Sure! Here is my analysis: great candidate."

	got := NormalizeJSON(content)

	if got.MatchScore != 0 {
		t.Fatalf("expected 0 score, got %d", got.MatchScore)
	}
	if got.Extra[KeyError] != InvalidJSONMarker {
		t.Fatalf("expected error marker, got %#v", got.Extra[KeyError])
	}
	if got.Extra[KeyRawText] != content {
		t.Fatalf("expected raw text, got %#v", got.Extra[KeyRawText])
	}
	if got.MissingKeywords == nil || got.Strengths == nil || got.ImprovementSuggestions == nil {
		t.Fatalf("expected non-nil lists")
	}
}

func TestNormalizeJSONRejectsNonObjects(t *testing.T) {
	for _, content := range []string{`[1,2]`, `null`, `"text"`, `{"match_score": 1} trailing`} {
		got := NormalizeJSON(content)
		if got.Extra[KeyError] != InvalidJSONMarker {
			t.Fatalf("expected fallback for %q, got %#v", content, got.Map())
		}
	}
}

func TestNormalizeJSONEmptyContent(t *testing.T) {
	got := NormalizeJSON("  ")

	if _, ok := got.Extra[KeyError]; ok {
		t.Fatalf("empty content should decode as empty object")
	}
	if got.MatchScore != 0 || got.ShortSummary != "" {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestNormalizeJSONStripsCodeFence(t *testing.T) {
	got := NormalizeJSON("```json\n{\"match_score\": 66, \"short_summary\": \"Fenced.\"}\n```")

	if got.MatchScore != 66 || got.ShortSummary != "Fenced." {
		t.Fatalf("unexpected result: %#v", got)
	}
}

func TestResultMarshalJSON(t *testing.T) {
	payload, err := json.Marshal(Result{MatchScore: 40, Extra: map[string]any{"model": "x"}})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(payload, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded["match_score"] != float64(40) || decoded["model"] != "x" {
		t.Fatalf("unexpected payload: %s", payload)
	}
	if list, ok := decoded["strengths"].([]any); !ok || len(list) != 0 {
		t.Fatalf("expected empty strengths array, got %s", payload)
	}
}
