package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
)

func TestNewGenerator_RequiresKey(t *testing.T) {
	_, err := NewGenerator(context.Background(), Config{APIKey: "  "}, nil)
	require.Error(t, err)
}

func TestInfer_JoinsCandidateParts(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "models/gemini-2.5-flash:generateContent"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"role":"model","parts":[{"text":"{\"match_score\": 70,"},{"text":"\"summary\": \"ok\"}"}]}}]}`))
	}))
	defer srv.Close()

	g, err := NewGenerator(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)

	out, err := g.Infer(context.Background(), llm.Request{Task: llm.TaskScoreMatch, Text: "resume"})
	require.NoError(t, err)
	assert.Equal(t, "{\"match_score\": 70,\n\"summary\": \"ok\"}", string(out))

	gen, _ := body["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", gen["responseMimeType"])
}

func TestInfer_ServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`))
	}))
	defer srv.Close()

	g, err := NewGenerator(context.Background(), Config{APIKey: "k", BaseURL: srv.URL}, nil)
	require.NoError(t, err)
	_, err = g.Infer(context.Background(), llm.Request{Task: llm.TaskExtractProfile, Text: "resume"})
	require.Error(t, err)
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(err))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(classify(genai.APIError{Code: 429}, "x")))
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(classify(genai.APIError{Code: 500}, "x")))
	assert.Equal(t, constants.ErrKindInternal, common.KindOf(classify(genai.APIError{Code: 400}, "x")))
	assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(classify(errors.New("dial tcp: refused"), "x")))
}
