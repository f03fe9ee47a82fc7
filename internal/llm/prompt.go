package llm

import "fmt"

const systemPrompt = `You are an ATS-style resume evaluator.
Given a resume and a job description, produce a strict JSON object that follows the requested keys.
Be specific, avoid fluff, and focus on keywords/skills/tools that appear in the job description.
`

const userPromptTemplate = `
RESUME:
%s

JOB DESCRIPTION:
%s

Return JSON with exactly these keys:
- match_score: integer 0-100
- missing_keywords: array of strings (keywords in the job description that are missing/weak in the resume)
- strengths: array of strings (what the resume already matches well)
- improvement_suggestions: array of strings (concrete resume edits: add bullets, quantify, reorder, projects)
- short_summary: string (1-3 sentences)
`

// Temperature keeps completions close to deterministic.
const Temperature = 0.2

// BuildMessages returns the system and user messages for one analysis. The
// resume and job description are embedded verbatim.
func BuildMessages(input AnalyzeInput) []Message {
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, input.ResumeText, input.JobDescription)},
	}
}
