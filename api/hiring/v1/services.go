package hiringv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	IngestionServiceName = "hiring.v1.IngestionService"
	StageServiceName     = "hiring.v1.StageService"
	CandidateServiceName = "hiring.v1.CandidateService"
)

// unary builds a method descriptor that decodes Req, runs the interceptor
// chain and dispatches to call.
func unary[S, Req, Resp any](service, method string, call func(S, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(S), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + service + "/" + method}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(S), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, service, method string, in any, opts ...grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := cc.Invoke(ctx, "/"+service+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// ---- IngestionService

type IngestionServiceServer interface {
	EnqueueJob(context.Context, *EnqueueJobRequest) (*EnqueueJobResponse, error)
	UploadResume(context.Context, *UploadResumeRequest) (*UploadResumeResponse, error)
	GetJobStatus(context.Context, *JobRequest) (*JobStatus, error)
	RerunJob(context.Context, *JobRequest) (*RerunJobResponse, error)
	CancelJob(context.Context, *JobRequest) (*CancelJobResponse, error)
	GetResumeURL(context.Context, *ResumeURLRequest) (*ResumeURLResponse, error)
}

// UnimplementedIngestionServiceServer can be embedded for forward compatibility.
type UnimplementedIngestionServiceServer struct{}

func (UnimplementedIngestionServiceServer) EnqueueJob(context.Context, *EnqueueJobRequest) (*EnqueueJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method EnqueueJob not implemented")
}
func (UnimplementedIngestionServiceServer) UploadResume(context.Context, *UploadResumeRequest) (*UploadResumeResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method UploadResume not implemented")
}
func (UnimplementedIngestionServiceServer) GetJobStatus(context.Context, *JobRequest) (*JobStatus, error) {
	return nil, status.Error(codes.Unimplemented, "method GetJobStatus not implemented")
}
func (UnimplementedIngestionServiceServer) RerunJob(context.Context, *JobRequest) (*RerunJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method RerunJob not implemented")
}
func (UnimplementedIngestionServiceServer) CancelJob(context.Context, *JobRequest) (*CancelJobResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CancelJob not implemented")
}
func (UnimplementedIngestionServiceServer) GetResumeURL(context.Context, *ResumeURLRequest) (*ResumeURLResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetResumeURL not implemented")
}

var IngestionService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: IngestionServiceName,
	HandlerType: (*IngestionServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(IngestionServiceName, "EnqueueJob", IngestionServiceServer.EnqueueJob),
		unary(IngestionServiceName, "UploadResume", IngestionServiceServer.UploadResume),
		unary(IngestionServiceName, "GetJobStatus", IngestionServiceServer.GetJobStatus),
		unary(IngestionServiceName, "RerunJob", IngestionServiceServer.RerunJob),
		unary(IngestionServiceName, "CancelJob", IngestionServiceServer.CancelJob),
		unary(IngestionServiceName, "GetResumeURL", IngestionServiceServer.GetResumeURL),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hiring/v1/ingestion",
}

func RegisterIngestionServiceServer(s grpc.ServiceRegistrar, srv IngestionServiceServer) {
	s.RegisterService(&IngestionService_ServiceDesc, srv)
}

type IngestionServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewIngestionServiceClient(cc grpc.ClientConnInterface) *IngestionServiceClient {
	return &IngestionServiceClient{cc: cc}
}

func (c *IngestionServiceClient) EnqueueJob(ctx context.Context, in *EnqueueJobRequest, opts ...grpc.CallOption) (*EnqueueJobResponse, error) {
	return invoke[EnqueueJobResponse](ctx, c.cc, IngestionServiceName, "EnqueueJob", in, opts...)
}

func (c *IngestionServiceClient) UploadResume(ctx context.Context, in *UploadResumeRequest, opts ...grpc.CallOption) (*UploadResumeResponse, error) {
	return invoke[UploadResumeResponse](ctx, c.cc, IngestionServiceName, "UploadResume", in, opts...)
}

func (c *IngestionServiceClient) GetJobStatus(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*JobStatus, error) {
	return invoke[JobStatus](ctx, c.cc, IngestionServiceName, "GetJobStatus", in, opts...)
}

func (c *IngestionServiceClient) RerunJob(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*RerunJobResponse, error) {
	return invoke[RerunJobResponse](ctx, c.cc, IngestionServiceName, "RerunJob", in, opts...)
}

func (c *IngestionServiceClient) CancelJob(ctx context.Context, in *JobRequest, opts ...grpc.CallOption) (*CancelJobResponse, error) {
	return invoke[CancelJobResponse](ctx, c.cc, IngestionServiceName, "CancelJob", in, opts...)
}

func (c *IngestionServiceClient) GetResumeURL(ctx context.Context, in *ResumeURLRequest, opts ...grpc.CallOption) (*ResumeURLResponse, error) {
	return invoke[ResumeURLResponse](ctx, c.cc, IngestionServiceName, "GetResumeURL", in, opts...)
}

// ---- StageService

type StageServiceServer interface {
	ListStages(context.Context, *VacancyRequest) (*ListStagesResponse, error)
	MoveCandidate(context.Context, *MoveCandidateRequest) (*MoveCandidateResponse, error)
	GetCurrentStage(context.Context, *CandidateRequest) (*CurrentStageResponse, error)
	GetMoveHistory(context.Context, *CandidateRequest) (*MoveHistoryResponse, error)
}

var StageService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: StageServiceName,
	HandlerType: (*StageServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(StageServiceName, "ListStages", StageServiceServer.ListStages),
		unary(StageServiceName, "MoveCandidate", StageServiceServer.MoveCandidate),
		unary(StageServiceName, "GetCurrentStage", StageServiceServer.GetCurrentStage),
		unary(StageServiceName, "GetMoveHistory", StageServiceServer.GetMoveHistory),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hiring/v1/stage",
}

func RegisterStageServiceServer(s grpc.ServiceRegistrar, srv StageServiceServer) {
	s.RegisterService(&StageService_ServiceDesc, srv)
}

type StageServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStageServiceClient(cc grpc.ClientConnInterface) *StageServiceClient {
	return &StageServiceClient{cc: cc}
}

func (c *StageServiceClient) ListStages(ctx context.Context, in *VacancyRequest, opts ...grpc.CallOption) (*ListStagesResponse, error) {
	return invoke[ListStagesResponse](ctx, c.cc, StageServiceName, "ListStages", in, opts...)
}

func (c *StageServiceClient) MoveCandidate(ctx context.Context, in *MoveCandidateRequest, opts ...grpc.CallOption) (*MoveCandidateResponse, error) {
	return invoke[MoveCandidateResponse](ctx, c.cc, StageServiceName, "MoveCandidate", in, opts...)
}

func (c *StageServiceClient) GetCurrentStage(ctx context.Context, in *CandidateRequest, opts ...grpc.CallOption) (*CurrentStageResponse, error) {
	return invoke[CurrentStageResponse](ctx, c.cc, StageServiceName, "GetCurrentStage", in, opts...)
}

func (c *StageServiceClient) GetMoveHistory(ctx context.Context, in *CandidateRequest, opts ...grpc.CallOption) (*MoveHistoryResponse, error) {
	return invoke[MoveHistoryResponse](ctx, c.cc, StageServiceName, "GetMoveHistory", in, opts...)
}

// ---- CandidateService

type CandidateServiceServer interface {
	GetCandidate(context.Context, *CandidateRequest) (*CandidateResponse, error)
	SimilarCandidates(context.Context, *SimilarCandidatesRequest) (*SimilarCandidatesResponse, error)
	ListMatches(context.Context, *ListMatchesRequest) (*ListMatchesResponse, error)
	ExportBoard(context.Context, *VacancyRequest) (*ExportBoardResponse, error)
}

var CandidateService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: CandidateServiceName,
	HandlerType: (*CandidateServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(CandidateServiceName, "GetCandidate", CandidateServiceServer.GetCandidate),
		unary(CandidateServiceName, "SimilarCandidates", CandidateServiceServer.SimilarCandidates),
		unary(CandidateServiceName, "ListMatches", CandidateServiceServer.ListMatches),
		unary(CandidateServiceName, "ExportBoard", CandidateServiceServer.ExportBoard),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "hiring/v1/candidate",
}

func RegisterCandidateServiceServer(s grpc.ServiceRegistrar, srv CandidateServiceServer) {
	s.RegisterService(&CandidateService_ServiceDesc, srv)
}

type CandidateServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewCandidateServiceClient(cc grpc.ClientConnInterface) *CandidateServiceClient {
	return &CandidateServiceClient{cc: cc}
}

func (c *CandidateServiceClient) GetCandidate(ctx context.Context, in *CandidateRequest, opts ...grpc.CallOption) (*CandidateResponse, error) {
	return invoke[CandidateResponse](ctx, c.cc, CandidateServiceName, "GetCandidate", in, opts...)
}

func (c *CandidateServiceClient) SimilarCandidates(ctx context.Context, in *SimilarCandidatesRequest, opts ...grpc.CallOption) (*SimilarCandidatesResponse, error) {
	return invoke[SimilarCandidatesResponse](ctx, c.cc, CandidateServiceName, "SimilarCandidates", in, opts...)
}

func (c *CandidateServiceClient) ListMatches(ctx context.Context, in *ListMatchesRequest, opts ...grpc.CallOption) (*ListMatchesResponse, error) {
	return invoke[ListMatchesResponse](ctx, c.cc, CandidateServiceName, "ListMatches", in, opts...)
}

func (c *CandidateServiceClient) ExportBoard(ctx context.Context, in *VacancyRequest, opts ...grpc.CallOption) (*ExportBoardResponse, error) {
	return invoke[ExportBoardResponse](ctx, c.cc, CandidateServiceName, "ExportBoard", in, opts...)
}
