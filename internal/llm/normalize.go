package llm

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"strconv"
	"strings"
)

// Keys of the normalized result document.
const (
	KeyMatchScore             = "match_score"
	KeyMissingKeywords        = "missing_keywords"
	KeyStrengths              = "strengths"
	KeyImprovementSuggestions = "improvement_suggestions"
	KeyShortSummary           = "short_summary"
	KeyError                  = "error"
	KeyRawText                = "raw_text"
)

// InvalidJSONMarker is stored under KeyError when the completion was not JSON.
const InvalidJSONMarker = "Invalid JSON from model"

const (
	minScore = 0
	maxScore = 100
)

// Result is a schema-complete analysis. Extra carries every other key the
// provider returned.
type Result struct {
	MatchScore             int
	MissingKeywords        []string
	Strengths              []string
	ImprovementSuggestions []string
	ShortSummary           string
	Extra                  map[string]any
}

// Map returns the open result document: Extra plus the five normalized keys.
func (r Result) Map() map[string]any {
	out := make(map[string]any, len(r.Extra)+5)
	for k, v := range r.Extra {
		out[k] = v
	}
	out[KeyMatchScore] = r.MatchScore
	out[KeyMissingKeywords] = nonNil(r.MissingKeywords)
	out[KeyStrengths] = nonNil(r.Strengths)
	out[KeyImprovementSuggestions] = nonNil(r.ImprovementSuggestions)
	out[KeyShortSummary] = r.ShortSummary
	return out
}

func (r Result) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Map())
}

// Normalize coerces an untrusted provider payload into a Result. It accepts
// any map, including nil, and never fails.
func Normalize(raw map[string]any) Result {
	res := Result{
		MatchScore:             coerceScore(raw[KeyMatchScore]),
		MissingKeywords:        coerceStrings(raw[KeyMissingKeywords]),
		Strengths:              coerceStrings(raw[KeyStrengths]),
		ImprovementSuggestions: coerceStrings(raw[KeyImprovementSuggestions]),
		ShortSummary:           coerceString(raw[KeyShortSummary]),
		Extra:                  make(map[string]any),
	}
	for k, v := range raw {
		switch k {
		case KeyMatchScore, KeyMissingKeywords, KeyStrengths, KeyImprovementSuggestions, KeyShortSummary:
			continue
		}
		res.Extra[k] = v
	}
	return res
}

// NormalizeJSON decodes completion text and normalizes it. Text that is not a
// single JSON object yields a zero-score result carrying InvalidJSONMarker and
// the original text.
func NormalizeJSON(content string) Result {
	raw, err := decodeObject(stripCodeFence(content))
	if err != nil {
		raw = map[string]any{
			KeyMatchScore:             0,
			KeyMissingKeywords:        []any{},
			KeyStrengths:              []any{},
			KeyImprovementSuggestions: []any{},
			KeyShortSummary:           "",
			KeyError:                  InvalidJSONMarker,
			KeyRawText:                content,
		}
	}
	return Normalize(raw)
}

var errNotObject = errors.New("completion is not a JSON object")

func decodeObject(text string) (map[string]any, error) {
	if strings.TrimSpace(text) == "" {
		text = "{}"
	}
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, errNotObject
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errNotObject
	}
	return raw, nil
}

// stripCodeFence removes a surrounding markdown code fence, which some
// OpenAI-compatible models emit even in JSON mode.
func stripCodeFence(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") || !strings.HasSuffix(s, "```") || len(s) < 6 {
		return content
	}
	s = strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 && !strings.ContainsAny(s[:nl], "{[") {
		s = s[nl+1:]
	}
	return s
}

func coerceScore(v any) int {
	switch n := v.(type) {
	case bool:
		if n {
			return clampScore(1)
		}
		return 0
	case int:
		return clampScore(float64(n))
	case int64:
		return clampScore(float64(n))
	case int32:
		return clampScore(float64(n))
	case float64:
		return clampScore(n)
	case float32:
		return clampScore(float64(n))
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return clampScore(float64(i))
		}
		f, err := n.Float64()
		if err != nil && !errors.Is(err, strconv.ErrRange) {
			return 0
		}
		return clampScore(f)
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			var numErr *strconv.NumError
			if errors.As(err, &numErr) && errors.Is(numErr.Err, strconv.ErrRange) {
				return clampScore(float64(i))
			}
			return 0
		}
		return clampScore(float64(i))
	default:
		return 0
	}
}

// clampScore truncates toward zero and bounds the result to [0, 100].
func clampScore(f float64) int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f < minScore {
		return minScore
	}
	if f > maxScore {
		return maxScore
	}
	return int(f)
}

func coerceStrings(v any) []string {
	switch list := v.(type) {
	case []string:
		return append([]string{}, list...)
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if strings.TrimSpace(list) == "" {
			return []string{}
		}
		return []string{list}
	default:
		return []string{}
	}
}

func coerceString(v any) string {
	s, _ := scalarString(v)
	return s
}

func scalarString(v any) (string, bool) {
	switch s := v.(type) {
	case string:
		return s, true
	case json.Number:
		return s.String(), true
	case bool:
		return strconv.FormatBool(s), true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	default:
		return "", false
	}
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
