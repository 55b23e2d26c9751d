package llm

import "fmt"

// ProfileSchema returns the JSON-Schema for extract_profile responses.
// It is embedded in the prompt and used locally to validate.
func ProfileSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"full_name":        map[string]any{"type": "string"},
			"email":            map[string]any{"type": "string"},
			"phone":            map[string]any{"type": "string"},
			"location":         map[string]any{"type": "string"},
			"skills":           stringArray(),
			"experience_years": map[string]any{"type": "number", "minimum": 0, "maximum": 80},
			"education": map[string]any{
				"type": "array",
				"items": object([]string{"degree", "institution"}, map[string]any{
					"degree":      map[string]any{"type": "string"},
					"institution": map[string]any{"type": "string"},
					"year":        map[string]any{"type": "string"},
				}),
			},
			"work_experience": map[string]any{
				"type": "array",
				"items": object([]string{"company", "position"}, map[string]any{
					"company":          map[string]any{"type": "string"},
					"position":         map[string]any{"type": "string"},
					"duration":         map[string]any{"type": "string"},
					"responsibilities": map[string]any{"type": "string"},
				}),
			},
			"summary": map[string]any{"type": "string"},
		},
		"required": []string{"skills"},
	}
}

// ScoreSchema returns the JSON-Schema for score_match responses.
func ScoreSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties": map[string]any{
			"match_score": map[string]any{"type": "number", "minimum": 0, "maximum": 100},
			"summary":     map[string]any{"type": "string", "minLength": 1},
			"strengths":   stringArray(),
			"weaknesses":  stringArray(),
		},
		"required": []string{"match_score", "summary", "strengths", "weaknesses"},
	}
}

// SchemaFor returns the response schema of task.
func SchemaFor(task Task) (map[string]any, error) {
	switch task {
	case TaskExtractProfile:
		return ProfileSchema(), nil
	case TaskScoreMatch:
		return ScoreSchema(), nil
	default:
		return nil, fmt.Errorf("unknown inference task %q", task)
	}
}

func stringArray() map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
}

func object(required []string, props map[string]any) map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": props,
		"required":   required,
	}
}
