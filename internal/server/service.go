package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/reflection"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/entity"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

// ExtractionService serves field extraction over gRPC.
type ExtractionService struct {
	proc   *pipeline.Processor
	docs   repository.DocumentRepository // nil disables GetDocument and persistence
	logger *slog.Logger
}

func NewExtractionService(proc *pipeline.Processor, docs repository.DocumentRepository, logger *slog.Logger) *ExtractionService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExtractionService{proc: proc, docs: docs, logger: logger}
}

func (s *ExtractionService) Extract(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	fields := req.GetFields()
	text := fields["text"].GetStringValue()
	if strings.TrimSpace(text) == "" {
		return nil, common.InvalidArgumentError("text is required")
	}
	fileName := fields["file_name"].GetStringValue()
	if fileName == "" {
		fileName = "input.txt"
	}

	res, err := s.proc.ProcessText(ctx, pipeline.TextInput{
		Text:     text,
		FileName: fileName,
		Persist:  fields["persist"].GetBoolValue() && s.docs != nil,
	})
	if err != nil {
		s.logger.Warn("extract failed", "file_name", fileName, "error", err)
		return nil, common.ToStatus(err)
	}

	env, err := pipeline.BuildEnvelope(res, fileName, int64(len(text)))
	if err != nil {
		return nil, common.InternalErrorf("build response: %v", err)
	}
	m, err := env.AsMap()
	if err != nil {
		return nil, common.InternalErrorf("build response: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("build response: %v", err)
	}
	return out, nil
}

func (s *ExtractionService) GetDocument(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if s.docs == nil {
		return nil, common.InternalError("document storage is not configured")
	}
	id, err := uuid.Parse(req.GetValue())
	if err != nil {
		return nil, common.InvalidArgumentErrorf("invalid document id %q", req.GetValue())
	}
	doc, err := s.docs.GetByID(ctx, id)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	m, err := documentMap(doc)
	if err != nil {
		return nil, common.InternalErrorf("encode document: %v", err)
	}
	out, err := structpb.NewStruct(m)
	if err != nil {
		return nil, common.InternalErrorf("encode document: %v", err)
	}
	return out, nil
}

func documentMap(doc *entity.Document) (map[string]any, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	m := map[string]any{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	data, err := pipeline.DocumentData(doc.Fields)
	if err != nil {
		return nil, err
	}
	m["fields"] = data
	return m, nil
}

// NewGRPCServer builds a server with the extraction and health services registered.
func NewGRPCServer(svc ExtractionServer, opts ...grpc.ServerOption) (*grpc.Server, *health.Server) {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(RequestIDInterceptor)}, opts...)
	gs := grpc.NewServer(opts...)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	RegisterExtractionServer(gs, svc)
	// Reflection for grpcurl
	reflection.Register(gs)
	return gs, hs
}

// requestIDKey is the incoming metadata key holding a caller's request ID.
const requestIDKey = "x-request-id"

// RequestIDInterceptor stores the caller's x-request-id, or a fresh UUID, on
// the handler context so pipeline logs can be correlated.
func RequestIDInterceptor(ctx context.Context, req any, _ *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	id := ""
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if v := md.Get(requestIDKey); len(v) > 0 {
			id = v[0]
		}
	}
	if id == "" {
		id = uuid.NewString()
	}
	return handler(common.WithRequestID(ctx, id), req)
}
