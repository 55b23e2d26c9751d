package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// maxPromptChars bounds the resume text sent to the model.
const maxPromptChars = 4000

// BuildSystemPrompt returns the system message for task.
func BuildSystemPrompt(task Task) string {
	parts := []string{}
	switch task {
	case TaskExtractProfile:
		parts = append(parts,
			"You are an expert HR assistant that extracts structured data from resumes.",
			"Return ONLY a JSON object that matches the provided JSON Schema.",
			"Put technical and professional skills in 'skills' as short names without duplicates.",
			"'experience_years' is the total years of professional experience as a number.",
			"Never output null. If a field is not present in the resume, omit it.",
		)
	case TaskScoreMatch:
		parts = append(parts,
			"You are an expert recruiter analyzing candidate-job fit.",
			"Return ONLY a JSON object that matches the provided JSON Schema.",
			"'match_score' is a number from 0 to 100 where 100 is a perfect fit.",
			"List concrete 'strengths' and 'weaknesses' relative to the vacancy requirements.",
			"'summary' is two or three sentences explaining the score.",
		)
	}
	schema, err := SchemaFor(task)
	if err == nil {
		parts = append(parts, "JSON Schema:\n"+mustJSON(schema))
	}
	return strings.Join(parts, " ")
}

// BuildUserPrompt packages the resume text and, for scoring, the vacancy.
func BuildUserPrompt(req Request) string {
	var b strings.Builder
	switch req.Task {
	case TaskScoreMatch:
		title, _ := req.Context["vacancy_title"].(string)
		reqs, _ := req.Context["requirements"].(string)
		b.WriteString("Vacancy: ")
		b.WriteString(strings.TrimSpace(title))
		b.WriteString("\nRequirements:\n")
		b.WriteString(strings.TrimSpace(reqs))
		if skills := contextStrings(req.Context["required_skills"]); len(skills) > 0 {
			b.WriteString("\nRequired skills: ")
			b.WriteString(strings.Join(skills, ", "))
		}
		b.WriteString("\n\nCandidate resume:\n")
	default:
		b.WriteString("Extract the candidate profile from this resume:\n")
	}
	b.WriteString(truncate(strings.TrimSpace(req.Text), maxPromptChars))
	return b.String()
}

func contextStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, x := range t {
			if s, ok := x.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "\n…(truncated)"
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal schema: %v", err))
	}
	return string(b)
}
