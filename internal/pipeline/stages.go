package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/llm"
)

func (o *Orchestrator) start(ctx context.Context, job *entity.IngestionJob) error {
	return o.Jobs.Advance(ctx, job.ID, constants.JobStagePending, constants.JobStageDownloading, nil)
}

// download fetches the blob into the local cache. A cache write failure only
// costs a second fetch in the next stage.
func (o *Orchestrator) download(ctx context.Context, job *entity.IngestionJob) error {
	data, err := o.Store.Get(ctx, job.SourceBlobKey)
	if err != nil {
		return err
	}
	if err := o.Cache.Put(job.ID, job.SourceBlobKey, data); err != nil {
		o.log.Warn("pipeline.cache.write_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	return o.Jobs.Advance(ctx, job.ID, constants.JobStageDownloading, constants.JobStageExtractingText, nil)
}

func (o *Orchestrator) blob(ctx context.Context, job *entity.IngestionJob) ([]byte, error) {
	data, ok, err := o.Cache.Get(job.ID, job.SourceBlobKey)
	if err != nil {
		o.log.Warn("pipeline.cache.read_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	if ok {
		return data, nil
	}
	o.log.Debug("pipeline.cache.miss", zap.String("job_id", job.ID.String()))
	return o.Store.Get(ctx, job.SourceBlobKey)
}

// extractText stores the normalized text and advances in one statement.
func (o *Orchestrator) extractText(ctx context.Context, job *entity.IngestionJob) error {
	data, err := o.blob(ctx, job)
	if err != nil {
		return err
	}
	res, err := o.Extractor.Extract(data, job.MediaType)
	if err != nil {
		return err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return common.KindError(constants.ErrKindUnparsableDocument, "document contains no extractable text", nil)
	}
	o.log.Debug("pipeline.text.extracted",
		zap.String("job_id", job.ID.String()),
		zap.String("method", res.Method),
		zap.Int("pages", res.Pages),
		zap.Int("chars", len(text)))
	return o.Jobs.Advance(ctx, job.ID, constants.JobStageExtractingText, constants.JobStageExtractingProfile, &text)
}

func rawText(job *entity.IngestionJob) (string, error) {
	if job.RawText == nil || strings.TrimSpace(*job.RawText) == "" {
		return "", common.KindError(constants.ErrKindInternal, "job has no extracted text", nil)
	}
	return *job.RawText, nil
}

func (o *Orchestrator) extractProfile(ctx context.Context, job *entity.IngestionJob) error {
	text, err := rawText(job)
	if err != nil {
		return err
	}
	p, err := o.Profiles.ExtractProfile(ctx, text)
	if err != nil {
		return err
	}
	return o.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := o.Candidates.UpdateProfile(ctx, job.CandidateID, toProfileUpdate(p)); err != nil {
			return err
		}
		return o.Jobs.Advance(ctx, job.ID, constants.JobStageExtractingProfile, constants.JobStageScoring, nil)
	})
}

// score writes the match result, completes the job and assigns the initial
// stage in one transaction. The embedding is best-effort.
func (o *Orchestrator) score(ctx context.Context, job *entity.IngestionJob) error {
	text, err := rawText(job)
	if err != nil {
		return err
	}
	v, err := o.Vacancies.Get(ctx, job.VacancyID)
	if err != nil {
		return err
	}
	res, err := o.Scorer.ScoreMatch(ctx, text, llm.VacancyContext{
		Title:          v.Title,
		Requirements:   v.Requirements,
		RequiredSkills: v.RequiredSkills,
	})
	if err != nil {
		return err
	}

	var embedding []float32
	if o.Embedder != nil {
		embedding, err = o.Embedder.Embed(ctx, text)
		if err != nil {
			o.log.Warn("pipeline.embedding.degraded",
				zap.String("job_id", job.ID.String()),
				zap.String("error_kind", string(common.KindOf(err))),
				zap.Error(err))
			embedding = nil
		}
	}

	err = o.Tx.InTx(ctx, func(ctx context.Context) error {
		if err := o.Candidates.UpdateScore(ctx, job.CandidateID, entity.ScoreUpdate{
			MatchScore: res.MatchScore,
			Summary:    res.Summary,
			Strengths:  res.Strengths,
			Weaknesses: res.Weaknesses,
			Embedding:  embedding,
		}); err != nil {
			return err
		}
		if err := o.Jobs.Advance(ctx, job.ID, constants.JobStageScoring, constants.JobStageCompleted, nil); err != nil {
			return err
		}
		_, err := o.Tracker.AssignInitial(ctx, job.CandidateID)
		return err
	})
	if err != nil {
		return err
	}
	if err := o.Cache.Remove(job.ID, job.SourceBlobKey); err != nil {
		o.log.Debug("pipeline.cache.remove_failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	}
	return nil
}

func toProfileUpdate(p llm.ProfileFields) entity.ProfileUpdate {
	u := entity.ProfileUpdate{
		FullName:        p.FullName,
		Email:           p.Email,
		Phone:           p.Phone,
		Location:        p.Location,
		Skills:          p.Skills,
		ExperienceYears: p.ExperienceYears,
	}
	for _, e := range p.Education {
		u.Education = append(u.Education, entity.Education{Degree: e.Degree, Institution: e.Institution, Year: e.Year})
	}
	for _, w := range p.WorkExperience {
		u.WorkExperience = append(u.WorkExperience, entity.WorkExperience{
			Company:          w.Company,
			Position:         w.Position,
			Duration:         w.Duration,
			Responsibilities: w.Responsibilities,
		})
	}
	return u
}
