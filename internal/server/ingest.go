package server

import (
	"context"
	"time"

	"go.uber.org/zap"

	hiringv1 "github.com/joseph-ayodele/hiring-pipeline/api/hiring/v1"
	"github.com/joseph-ayodele/hiring-pipeline/internal/services/ingest"
	"github.com/joseph-ayodele/hiring-pipeline/internal/utils"
)

type IngestionServer struct {
	hiringv1.UnimplementedIngestionServiceServer
	svc    *ingest.Service
	logger *zap.Logger
}

func NewIngestionServer(svc *ingest.Service, logger *zap.Logger) *IngestionServer {
	return &IngestionServer{svc: svc, logger: logger}
}

// EnqueueJob records a job for a blob the caller already stored.
func (s *IngestionServer) EnqueueJob(ctx context.Context, req *hiringv1.EnqueueJobRequest) (*hiringv1.EnqueueJobResponse, error) {
	res, err := s.svc.EnqueueIngestionJob(ctx, ingest.EnqueueRequest{
		CandidateID: req.CandidateId,
		VacancyID:   req.VacancyId,
		BlobKey:     req.BlobKey,
		MediaType:   req.MediaType,
	})
	if err != nil {
		return nil, err
	}
	return &hiringv1.EnqueueJobResponse{JobId: res.JobID.String(), Deduplicated: res.Deduplicated}, nil
}

// UploadResume stores the bytes and enqueues; it returns before any stage runs.
func (s *IngestionServer) UploadResume(ctx context.Context, req *hiringv1.UploadResumeRequest) (*hiringv1.UploadResumeResponse, error) {
	res, err := s.svc.UploadResume(ctx, ingest.UploadRequest{
		CandidateID: req.CandidateId,
		VacancyID:   req.VacancyId,
		Filename:    req.Filename,
		MediaType:   req.MediaType,
		Data:        req.Content,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("server.upload.accepted",
		zap.String("job_id", res.JobID.String()),
		zap.String("candidate_id", res.CandidateID.String()),
		zap.Bool("deduplicated", res.Deduplicated))
	return &hiringv1.UploadResumeResponse{
		JobId:        res.JobID.String(),
		CandidateId:  res.CandidateID.String(),
		BlobKey:      res.BlobKey,
		MediaType:    res.MediaType,
		Deduplicated: res.Deduplicated,
	}, nil
}

func (s *IngestionServer) GetJobStatus(ctx context.Context, req *hiringv1.JobRequest) (*hiringv1.JobStatus, error) {
	id, err := utils.ParseUUID("job_id", req.JobId)
	if err != nil {
		return nil, err
	}
	st, err := s.svc.GetJobStatus(ctx, id)
	if err != nil {
		return nil, err
	}
	return utils.ToPBJobStatus(st), nil
}

func (s *IngestionServer) RerunJob(ctx context.Context, req *hiringv1.JobRequest) (*hiringv1.RerunJobResponse, error) {
	id, err := utils.ParseUUID("job_id", req.JobId)
	if err != nil {
		return nil, err
	}
	if err := s.svc.RerunJob(ctx, id); err != nil {
		return nil, err
	}
	return &hiringv1.RerunJobResponse{JobId: id.String()}, nil
}

func (s *IngestionServer) CancelJob(ctx context.Context, req *hiringv1.JobRequest) (*hiringv1.CancelJobResponse, error) {
	id, err := utils.ParseUUID("job_id", req.JobId)
	if err != nil {
		return nil, err
	}
	ok, err := s.svc.CancelJob(ctx, id)
	if err != nil {
		return nil, err
	}
	return &hiringv1.CancelJobResponse{Flagged: ok}, nil
}

func (s *IngestionServer) GetResumeURL(ctx context.Context, req *hiringv1.ResumeURLRequest) (*hiringv1.ResumeURLResponse, error) {
	id, err := utils.ParseUUID("job_id", req.JobId)
	if err != nil {
		return nil, err
	}
	url, err := s.svc.ResumeURL(ctx, id, time.Duration(req.TtlSeconds)*time.Second)
	if err != nil {
		return nil, err
	}
	return &hiringv1.ResumeURLResponse{Url: url}, nil
}
