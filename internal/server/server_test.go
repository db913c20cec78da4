package server

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/invoice-extract/internal/common"
	"github.com/joseph-ayodele/invoice-extract/internal/extract"
	"github.com/joseph-ayodele/invoice-extract/internal/pipeline"
	"github.com/joseph-ayodele/invoice-extract/internal/repository"
)

const invoiceText = "Company Name: EQMS Consulting Limited\n" +
	"Invoice No: EQMS-2024-118\nDate: 2024-03-15\n" +
	"| 1 | Air Quality Monitoring | 4 | 5000 | 20000 |\n" +
	"Gross Grand Total | 20,000\n"

func startServer(t *testing.T, withRepo bool) *grpc.ClientConn {
	t.Helper()
	var docs repository.DocumentRepository
	if withRepo {
		db, err := repository.Open(context.Background(), repository.Config{DSN: ":memory:"}, nil)
		require.NoError(t, err)
		require.NoError(t, db.Migrate(context.Background()))
		t.Cleanup(db.Close)
		docs = repository.NewDocumentRepository(db, nil)
	}
	fields := extract.NewExtractor(extract.WithClock(func() time.Time {
		return time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	}))
	proc := pipeline.NewProcessor(nil, fields, docs, nil)
	gs, _ := NewGRPCServer(NewExtractionService(proc, docs, nil))

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func extractRequest(t *testing.T, text string, persist bool) *structpb.Struct {
	t.Helper()
	req, err := structpb.NewStruct(map[string]any{
		"text":      text,
		"file_name": "a.md",
		"persist":   persist,
	})
	require.NoError(t, err)
	return req
}

func TestExtract_ReturnsEnvelope(t *testing.T) {
	client := NewExtractionClient(startServer(t, false))

	out, err := client.Extract(context.Background(), extractRequest(t, invoiceText, false))
	require.NoError(t, err)

	m := out.AsMap()
	assert.Equal(t, true, m["success"])
	assert.Equal(t, "complete", m["stage"])
	data, ok := m["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EQMS-2024-118", data["invoice_number"])
	assert.Equal(t, "EQMS Consulting Limited", data["vendor"])
	assert.Equal(t, "20000", data["total"])
	assert.Equal(t, 20000.0, data["total_amount"])
	items, ok := data["items"].([]any)
	require.True(t, ok)
	assert.Len(t, items, 1)
}

func TestExtract_EmptyTextIsInvalidArgument(t *testing.T) {
	client := NewExtractionClient(startServer(t, false))

	_, err := client.Extract(context.Background(), extractRequest(t, " ", false))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestGetDocument_RoundTrip(t *testing.T) {
	ctx := context.Background()
	client := NewExtractionClient(startServer(t, true))

	out, err := client.Extract(ctx, extractRequest(t, invoiceText, true))
	require.NoError(t, err)
	meta, ok := out.AsMap()["metadata"].(map[string]any)
	require.True(t, ok)
	id, ok := meta["documentId"].(string)
	require.True(t, ok)

	doc, err := client.GetDocument(ctx, wrapperspb.String(id))
	require.NoError(t, err)
	m := doc.AsMap()
	assert.Equal(t, id, m["id"])
	assert.Equal(t, "EXTRACTED", m["status"])
	fields, ok := m["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "EQMS-2024-118", fields["invoiceNumber"])
}

func TestGetDocument_Errors(t *testing.T) {
	ctx := context.Background()
	client := NewExtractionClient(startServer(t, true))

	_, err := client.GetDocument(ctx, wrapperspb.String("not-a-uuid"))
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.GetDocument(ctx, wrapperspb.String(uuid.NewString()))
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestHealth(t *testing.T) {
	hc := healthpb.NewHealthClient(startServer(t, false))

	resp, err := hc.Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestRequestIDInterceptor(t *testing.T) {
	capture := func(ctx context.Context, _ any) (any, error) {
		return common.RequestIDFromContext(ctx), nil
	}

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("x-request-id", "abc-1"))
	got, err := RequestIDInterceptor(ctx, nil, &grpc.UnaryServerInfo{}, capture)
	require.NoError(t, err)
	assert.Equal(t, "abc-1", got)

	got, err = RequestIDInterceptor(context.Background(), nil, &grpc.UnaryServerInfo{}, capture)
	require.NoError(t, err)
	_, err = uuid.Parse(got.(string))
	assert.NoError(t, err)
}
