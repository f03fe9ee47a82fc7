// Package llm defines the resume analysis contract shared by LLM providers,
// together with provider resolution, prompts and result normalization.
package llm

import "context"

// Client scores a resume against a job description.
type Client interface {
	AnalyzeResume(ctx context.Context, input AnalyzeInput) (Result, error)
}

// AnalyzeInput captures the inputs needed for resume analysis.
type AnalyzeInput struct {
	ResumeText     string
	JobDescription string
}

// Message is one chat-completion message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
