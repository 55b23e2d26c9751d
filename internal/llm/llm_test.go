package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
)

type fakeInference struct {
	reply   string
	err     error
	vec     []float32
	delay   time.Duration
	lastReq Request
	calls   int
}

func (f *fakeInference) Infer(ctx context.Context, req Request) ([]byte, error) {
	f.calls++
	f.lastReq = req
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.reply), nil
}

func (f *fakeInference) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

func (f *fakeInference) Model() string { return "fake" }

func TestExtractProfile_FencedReply(t *testing.T) {
	inf := &fakeInference{reply: "Here you go:\n```json\n" + `{
		"full_name": " Ada Lovelace ",
		"email": "ada@example.com",
		"phone": null,
		"skills": ["Go", "go", " SQL ", ""],
		"experience_years": "7",
		"education": [{"degree": "BSc", "institution": "UCL", "year": 2015}, {"degree": "only"}],
		"hobbies": ["chess"]
	}` + "\n```"}
	c := NewProfileClient(inf, ClientConfig{Timeout: time.Second}, nil)

	p, err := c.ExtractProfile(context.Background(), "resume text")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", p.FullName)
	assert.Equal(t, "ada@example.com", p.Email)
	assert.Empty(t, p.Phone)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	require.NotNil(t, p.ExperienceYears)
	assert.InDelta(t, 7, *p.ExperienceYears, 1e-9)
	require.Len(t, p.Education, 1)
	assert.Equal(t, Education{Degree: "BSc", Institution: "UCL", Year: "2015"}, p.Education[0])
	assert.Equal(t, TaskExtractProfile, inf.lastReq.Task)
}

func TestExtractProfile_CommaSeparatedSkills(t *testing.T) {
	c := NewProfileClient(&fakeInference{reply: `{"full_name":"X","skills":"Go, SQL,,go"}`}, ClientConfig{}, nil)
	p, err := c.ExtractProfile(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
}

func TestExtractProfile_Malformed(t *testing.T) {
	cases := map[string]string{
		"not json":          "I cannot help with that",
		"experience range":  `{"skills":[],"experience_years":200}`,
		"broken object":     `{"skills": [}`,
		"refusal object":    `{"error":"I cannot parse this resume"}`,
		"missing skills":    `{"full_name":"X"}`,
		"skills not a list": `{"skills": 42}`,
		"skills null":       `{"skills": null}`,
		"education string":  `{"skills": [], "education": "BSc"}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewProfileClient(&fakeInference{reply: reply}, ClientConfig{}, nil)
			_, err := c.ExtractProfile(context.Background(), "x")
			require.Error(t, err)
			assert.Equal(t, constants.ErrKindInferenceMalformedResponse, common.KindOf(err))
		})
	}
}

func TestScoreMatch_OK(t *testing.T) {
	inf := &fakeInference{reply: `{"match_score": "82.5", "summary": "Strong Go background.", "strengths": ["Go","Go"], "weaknesses": [], "reasoning": "x"}`}
	c := NewScoreClient(inf, ClientConfig{}, nil)

	res, err := c.ScoreMatch(context.Background(), "resume", VacancyContext{Title: "Backend", Requirements: "Go", RequiredSkills: []string{"Go"}})
	require.NoError(t, err)
	assert.InDelta(t, 82.5, res.MatchScore, 1e-9)
	assert.Equal(t, "Strong Go background.", res.Summary)
	assert.Equal(t, []string{"Go"}, res.Strengths)
	assert.Empty(t, res.Weaknesses)
	assert.Equal(t, "Backend", inf.lastReq.Context["vacancy_title"])
}

func TestScoreMatch_Malformed(t *testing.T) {
	cases := map[string]string{
		"out of range":  `{"match_score": 140, "summary": "s", "strengths": [], "weaknesses": []}`,
		"empty summary": `{"match_score": 40, "summary": "  ", "strengths": [], "weaknesses": []}`,
		"no score":      `{"summary": "s", "strengths": [], "weaknesses": []}`,
		"no lists":      `{"match_score": 80, "summary": "ok"}`,
		"no weaknesses": `{"match_score": 80, "summary": "ok", "strengths": ["Go"]}`,
		"strengths map": `{"match_score": 80, "summary": "ok", "strengths": {"a": 1}, "weaknesses": []}`,
	}
	for name, reply := range cases {
		t.Run(name, func(t *testing.T) {
			c := NewScoreClient(&fakeInference{reply: reply}, ClientConfig{}, nil)
			_, err := c.ScoreMatch(context.Background(), "x", VacancyContext{})
			require.Error(t, err)
			assert.Equal(t, constants.ErrKindInferenceMalformedResponse, common.KindOf(err))
		})
	}
}

func TestInfer_ErrorClassification(t *testing.T) {
	t.Run("unclassified transport error", func(t *testing.T) {
		c := NewScoreClient(&fakeInference{err: errors.New("connection reset")}, ClientConfig{}, nil)
		_, err := c.ScoreMatch(context.Background(), "x", VacancyContext{})
		assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(err))
	})
	t.Run("provider kind kept", func(t *testing.T) {
		perr := common.KindError(constants.ErrKindInternal, "bad request", nil)
		c := NewScoreClient(&fakeInference{err: perr}, ClientConfig{}, nil)
		_, err := c.ScoreMatch(context.Background(), "x", VacancyContext{})
		assert.Equal(t, constants.ErrKindInternal, common.KindOf(err))
	})
	t.Run("timeout", func(t *testing.T) {
		c := NewProfileClient(&fakeInference{reply: `{}`, delay: time.Second}, ClientConfig{Timeout: 20 * time.Millisecond}, nil)
		_, err := c.ExtractProfile(context.Background(), "x")
		assert.Equal(t, constants.ErrKindInferenceUnavailable, common.KindOf(err))
	})
}

func TestEmbed(t *testing.T) {
	c := NewScoreClient(&fakeInference{vec: []float32{1, 2}}, ClientConfig{}, nil)
	vec, err := c.Embed(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 2}, vec)

	c = NewScoreClient(&fakeInference{}, ClientConfig{}, nil)
	_, err = c.Embed(context.Background(), "x")
	assert.Equal(t, constants.ErrKindInferenceMalformedResponse, common.KindOf(err))
}

func TestRateLimiterPacesCalls(t *testing.T) {
	inf := &fakeInference{reply: `{"skills":[]}`}
	c := NewProfileClient(inf, ClientConfig{RequestsPerSecond: 20, Burst: 1}, nil)
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.ExtractProfile(context.Background(), "x")
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
	assert.Equal(t, 3, inf.calls)
}

func TestPrompts(t *testing.T) {
	sys := BuildSystemPrompt(TaskScoreMatch)
	assert.Contains(t, sys, "expert recruiter")
	assert.Contains(t, sys, `"match_score"`)

	user := BuildUserPrompt(Request{Task: TaskScoreMatch, Text: "resume body", Context: VacancyContext{Title: "SRE", Requirements: "k8s", RequiredSkills: []string{"Go", "k8s"}}.asMap()})
	assert.Contains(t, user, "Vacancy: SRE")
	assert.Contains(t, user, "Required skills: Go, k8s")
	assert.Contains(t, user, "resume body")

	long := make([]rune, maxPromptChars+10)
	for i := range long {
		long[i] = 'a'
	}
	assert.Contains(t, BuildUserPrompt(Request{Task: TaskExtractProfile, Text: string(long)}), "(truncated)")
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	require.NoError(t, ValidateJSONAgainstSchema(ScoreSchema(), []byte(`{"match_score":1,"summary":"s","strengths":[],"weaknesses":[]}`)))
	require.Error(t, ValidateJSONAgainstSchema(ScoreSchema(), []byte(`{"match_score":1}`)))
	_, err := SchemaFor("unknown")
	require.Error(t, err)
}
