package analyses

import (
	"time"

	"github.com/google/uuid"
)

// Analysis is one completed resume/job-description analysis. Records are
// written once and never updated.
type Analysis struct {
	ID             uuid.UUID      `json:"id"`
	CreatedAt      time.Time      `json:"created_at"`
	ResumeFilename string         `json:"resume_filename"`
	ResumeText     string         `json:"resume_text"`
	JobDescription string         `json:"job_description"`
	MatchScore     *int           `json:"match_score"`
	Result         map[string]any `json:"result"`
}

// Submission is one analysis request as received from a caller.
type Submission struct {
	MediaType      string
	Data           []byte
	JobDescription string
	FileName       string
}

// Response is the caller-facing projection of a completed analysis.
type Response struct {
	AnalysisID             uuid.UUID      `json:"analysis_id"`
	MatchScore             int            `json:"match_score"`
	MissingKeywords        []string       `json:"missing_keywords"`
	ImprovementSuggestions []string       `json:"improvement_suggestions"`
	Strengths              []string       `json:"strengths"`
	ShortSummary           string         `json:"short_summary"`
	Raw                    map[string]any `json:"raw"`
}
