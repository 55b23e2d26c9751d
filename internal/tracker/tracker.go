// Package tracker is the single source of truth for which hiring stage each
// candidate is in.
package tracker

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/hiring-pipeline/constants"
	"github.com/joseph-ayodele/hiring-pipeline/internal/common"
	"github.com/joseph-ayodele/hiring-pipeline/internal/entity"
	"github.com/joseph-ayodele/hiring-pipeline/internal/logger"
	"github.com/joseph-ayodele/hiring-pipeline/internal/repository"
)

// ErrStageConfig reports a vacancy whose stage positions are not unique.
var ErrStageConfig = fmt.Errorf("%w: stage positions must be unique per vacancy", common.ErrValidation)

type Tracker struct {
	tx         repository.Transactor
	stages     repository.StageRepository
	candidates repository.CandidateRepository
	locks      *keyedMutex
	log        *zap.Logger
}

func New(tx repository.Transactor, stages repository.StageRepository, candidates repository.CandidateRepository, log *zap.Logger) *Tracker {
	return &Tracker{
		tx:         tx,
		stages:     stages,
		candidates: candidates,
		locks:      newKeyedMutex(),
		log:        logger.OrNop(log),
	}
}

// ListStages returns the vacancy's stages by ascending position.
func (t *Tracker) ListStages(ctx context.Context, vacancyID uuid.UUID) ([]entity.PipelineStageDef, error) {
	stages, err := t.stages.ListStages(ctx, vacancyID)
	if err != nil {
		return nil, err
	}
	for i := 1; i < len(stages); i++ {
		if stages[i].Order == stages[i-1].Order {
			t.log.Error("tracker.stages.duplicate_position",
				zap.String("vacancy_id", vacancyID.String()),
				zap.Int("position", stages[i].Order))
			return nil, fmt.Errorf("%w: vacancy %s position %d", ErrStageConfig, vacancyID, stages[i].Order)
		}
	}
	return stages, nil
}

// MoveCandidate points the candidate at toStageID and appends one StageMove,
// both in one transaction. Moves of the same candidate are serialized.
func (t *Tracker) MoveCandidate(ctx context.Context, candidateID, toStageID uuid.UUID, movedBy, note string) (entity.StageMove, error) {
	movedBy = strings.TrimSpace(movedBy)
	if movedBy == "" {
		return entity.StageMove{}, fmt.Errorf("%w: moved_by is required", common.ErrInvalidInput)
	}

	unlock := t.locks.Lock(candidateID)
	defer unlock()

	var move entity.StageMove
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		vacancyID, err := t.candidates.LockForUpdate(ctx, candidateID)
		if err != nil {
			return err
		}
		stage, err := t.stages.GetStage(ctx, toStageID)
		if err != nil {
			if common.IsNotFound(err) {
				return invalidStage(toStageID, vacancyID)
			}
			return err
		}
		if stage.VacancyID != vacancyID {
			return invalidStage(toStageID, vacancyID)
		}
		move, err = t.move(ctx, candidateID, stage.ID, movedBy, note)
		return err
	})
	if err != nil {
		t.log.Warn("tracker.move.failed",
			zap.String("candidate_id", candidateID.String()),
			zap.String("to_stage_id", toStageID.String()),
			zap.Error(err))
		return entity.StageMove{}, err
	}
	t.log.Info("tracker.move.ok",
		zap.String("candidate_id", candidateID.String()),
		zap.String("to_stage_id", toStageID.String()),
		zap.String("moved_by", movedBy),
		zap.Int("seq", move.Seq))
	return move, nil
}

// AssignInitial places a freshly scored candidate in the vacancy's first
// stage. It joins the caller's transaction when ctx carries one. It returns
// nil without writing when the candidate is already assigned or the vacancy
// has no stages. It relies on the candidate row lock alone: the caller's
// transaction may already hold that row, so taking the in-process mutex here
// could invert lock order with MoveCandidate.
func (t *Tracker) AssignInitial(ctx context.Context, candidateID uuid.UUID) (*entity.StageMove, error) {
	var out *entity.StageMove
	err := t.tx.InTx(ctx, func(ctx context.Context) error {
		vacancyID, err := t.candidates.LockForUpdate(ctx, candidateID)
		if err != nil {
			return err
		}
		cur, err := t.stages.GetAssignment(ctx, candidateID)
		if err != nil {
			return err
		}
		if cur != nil {
			t.log.Warn("tracker.initial.already_assigned",
				zap.String("candidate_id", candidateID.String()),
				zap.String("stage_id", cur.StageID.String()))
			return nil
		}
		stages, err := t.ListStages(ctx, vacancyID)
		if err != nil {
			return err
		}
		if len(stages) == 0 {
			t.log.Warn("tracker.initial.no_stages",
				zap.String("candidate_id", candidateID.String()),
				zap.String("vacancy_id", vacancyID.String()))
			return nil
		}
		move, err := t.move(ctx, candidateID, stages[0].ID, constants.SystemActor, "")
		if err != nil {
			return err
		}
		out = &move
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// move must run inside a transaction holding the candidate lock.
func (t *Tracker) move(ctx context.Context, candidateID, stageID uuid.UUID, movedBy, note string) (entity.StageMove, error) {
	cur, err := t.stages.GetAssignment(ctx, candidateID)
	if err != nil {
		return entity.StageMove{}, err
	}
	m := entity.StageMove{
		CandidateID: candidateID,
		ToStageID:   stageID,
		MovedBy:     movedBy,
		Note:        strings.TrimSpace(note),
	}
	if cur != nil {
		from := cur.StageID
		m.FromStageID = &from
	}
	if err := t.stages.UpsertAssignment(ctx, candidateID, stageID); err != nil {
		return entity.StageMove{}, err
	}
	if err := t.stages.AppendMove(ctx, &m); err != nil {
		return entity.StageMove{}, err
	}
	return m, nil
}

// GetCurrentStage returns nil when the candidate has no assignment.
func (t *Tracker) GetCurrentStage(ctx context.Context, candidateID uuid.UUID) (*entity.PipelineStageDef, error) {
	a, err := t.stages.GetAssignment(ctx, candidateID)
	if err != nil || a == nil {
		return nil, err
	}
	return t.stages.GetStage(ctx, a.StageID)
}

// GetMoveHistory returns the candidate's moves in the order they happened.
func (t *Tracker) GetMoveHistory(ctx context.Context, candidateID uuid.UUID) ([]entity.StageMove, error) {
	return t.stages.History(ctx, candidateID)
}

func invalidStage(stageID, vacancyID uuid.UUID) error {
	return common.KindError(constants.ErrKindInvalidStage,
		fmt.Sprintf("stage %s does not belong to vacancy %s", stageID, vacancyID), common.ErrInvalidInput)
}
