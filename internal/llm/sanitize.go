package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"math"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
)

// ExtractJSONObject strips markdown fences and surrounding prose from a
// model reply, returning the outermost {...} object.
func ExtractJSONObject(raw []byte) ([]byte, error) {
	s := bytes.TrimSpace(raw)
	if bytes.HasPrefix(s, []byte("```")) {
		s = bytes.TrimPrefix(s, []byte("```json"))
		s = bytes.TrimPrefix(s, []byte("```"))
		s = bytes.TrimSuffix(bytes.TrimSpace(s), []byte("```"))
	}
	start := bytes.IndexByte(s, '{')
	end := bytes.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("no JSON object in response")
	}
	return s[start : end+1], nil
}

// NormalizeAndSanitizeJSON
// - Drops null/empty optionals
// - Coerces numeric strings for numeric fields
// - Trims and de-duplicates string lists
// - Removes unknown keys (strict additionalProperties = false friendliness)
// Missing or wrongly typed lists are left as they are for the schema to reject.
func NormalizeAndSanitizeJSON(task Task, raw []byte, log *zap.Logger) ([]byte, []string, error) {
	log = logger.OrNop(log)

	obj, err := ExtractJSONObject(raw)
	if err != nil {
		return nil, nil, fmt.Errorf("sanitize: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(obj, &m); err != nil {
		return nil, nil, fmt.Errorf("sanitize: decode: %w", err)
	}

	dropped := make([]string, 0, 8)
	drop := func(k, why string) {
		delete(m, k)
		dropped = append(dropped, k+"("+why+")")
	}

	var allowed map[string]struct{}
	switch task {
	case TaskExtractProfile:
		allowed = set("full_name", "email", "phone", "location", "skills",
			"experience_years", "education", "work_experience", "summary")
		for _, k := range []string{"full_name", "email", "phone", "location", "summary"} {
			trimString(m, k, drop)
		}
		coerceNumber(m, "experience_years", drop)
		normalizeList(m, "skills")
		normalizeObjects(m, "education", set("degree", "institution", "year"), []string{"degree", "institution"})
		normalizeObjects(m, "work_experience", set("company", "position", "duration", "responsibilities"), []string{"company", "position"})
	case TaskScoreMatch:
		allowed = set("match_score", "summary", "strengths", "weaknesses")
		trimString(m, "summary", drop)
		coerceNumber(m, "match_score", drop)
		normalizeList(m, "strengths")
		normalizeList(m, "weaknesses")
	default:
		return nil, nil, fmt.Errorf("sanitize: unknown task %q", task)
	}

	for k := range maps.Clone(m) {
		if _, ok := allowed[k]; !ok {
			drop(k, "unknown")
		}
	}

	out, err := json.Marshal(m)
	if err != nil {
		return nil, dropped, fmt.Errorf("sanitize: encode: %w", err)
	}
	if len(dropped) > 0 {
		log.Warn("llm.normalize_sanitize", zap.String("task", string(task)), zap.Strings("dropped", dropped))
	}
	return out, dropped, nil
}

func set(keys ...string) map[string]struct{} {
	out := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

func trimString(m map[string]any, k string, drop func(string, string)) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case string:
		if s := strings.TrimSpace(t); s != "" {
			m[k] = s
		} else {
			drop(k, "empty")
		}
	case nil:
		drop(k, "null")
	case float64:
		m[k] = strconv.FormatFloat(t, 'f', -1, 64)
	default:
		drop(k, "type")
	}
}

func coerceNumber(m map[string]any, k string, drop func(string, string)) {
	v, ok := m[k]
	if !ok {
		return
	}
	switch t := v.(type) {
	case float64:
		if math.IsNaN(t) {
			drop(k, "nan")
		}
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(t), "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			drop(k, "type")
			return
		}
		m[k] = f
	case nil:
		drop(k, "null")
	default:
		drop(k, "type")
	}
}

// normalizeList cleans m[k] when it is a list or a comma-separated string.
func normalizeList(m map[string]any, k string) {
	switch v := m[k].(type) {
	case []any, string:
		m[k] = stringList(v)
	}
}

// normalizeObjects cleans the optional object list m[k], removing it once
// nothing usable is left.
func normalizeObjects(m map[string]any, k string, keys map[string]struct{}, required []string) {
	items, ok := m[k].([]any)
	if !ok {
		if m[k] == nil {
			delete(m, k)
		}
		return
	}
	if l := objectList(items, keys, required); len(l) > 0 {
		m[k] = l
	} else {
		delete(m, k)
	}
}

// stringList trims, drops empties and de-duplicates case-insensitively.
func stringList(v any) []string {
	out := []string{}
	var items []any
	switch t := v.(type) {
	case []any:
		items = t
	case string:
		for _, p := range strings.Split(t, ",") {
			items = append(items, p)
		}
	}
	seen := map[string]struct{}{}
	for _, it := range items {
		s, ok := it.(string)
		if !ok {
			continue
		}
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// objectList keeps object items, stringifies scalar values (e.g. a numeric
// year), drops unknown keys and items missing a required key.
func objectList(v any, keys map[string]struct{}, required []string) []any {
	items, _ := v.([]any)
	out := make([]any, 0, len(items))
	for _, it := range items {
		obj, ok := it.(map[string]any)
		if !ok {
			continue
		}
		clean := map[string]any{}
		for k, val := range obj {
			if _, ok := keys[k]; !ok {
				continue
			}
			switch t := val.(type) {
			case string:
				if s := strings.TrimSpace(t); s != "" {
					clean[k] = s
				}
			case float64:
				clean[k] = strconv.FormatFloat(t, 'f', -1, 64)
			}
		}
		complete := true
		for _, r := range required {
			if _, ok := clean[r]; !ok {
				complete = false
			}
		}
		if complete {
			out = append(out, clean)
		}
	}
	return out
}
