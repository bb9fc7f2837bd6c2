package server

import (
	"bytes"
	"context"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/GTD-web/ems-backend-sub024/internal/adapters/grpc/handler"
)

// stubAdminServer は StartPeriod のみ実装します。他のメソッドは呼ばれません。
type stubAdminServer struct {
	handler.EvaluationAdminServer
}

func (stubAdminServer) StartPeriod(_ context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	id := req.GetFields()["periodId"].GetStringValue()
	if id == "" {
		return nil, status.Error(codes.InvalidArgument, "periodId is required")
	}
	return structpb.NewStruct(map[string]any{"period": map[string]any{"id": id, "status": "in-progress"}})
}

func startBufconnServer(t *testing.T, logs *bytes.Buffer) *grpc.ClientConn {
	t.Helper()

	lis := bufconn.Listen(1 << 20)
	logger := slog.New(slog.NewTextHandler(logs, nil))
	srv := New("bufconn", stubAdminServer{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
		cancel()
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn
}

func TestServer_RoundTrip(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	conn := startBufconnServer(t, &logs)
	client := handler.NewEvaluationAdminClient(conn)

	req, err := structpb.NewStruct(map[string]any{"periodId": "period-1"})
	require.NoError(t, err)

	resp, err := client.Call(context.Background(), "StartPeriod", req)
	require.NoError(t, err)
	period := resp.GetFields()["period"].GetStructValue().GetFields()
	assert.Equal(t, "period-1", period["id"].GetStringValue())
	assert.Equal(t, "in-progress", period["status"].GetStringValue())

	_, err = client.Call(context.Background(), "StartPeriod", &structpb.Struct{})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.Call(context.Background(), "DeletePeriod", req)
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestServer_Health(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	conn := startBufconnServer(t, &logs)

	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: handler.EvaluationAdminServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
}

func TestLoggingUnaryInterceptor(t *testing.T) {
	t.Parallel()

	var logs bytes.Buffer
	interceptor := LoggingUnaryInterceptor(slog.New(slog.NewTextHandler(&logs, nil)))
	info := &grpc.UnaryServerInfo{FullMethod: "/" + handler.EvaluationAdminServiceName + "/ChangePhase"}

	_, err := interceptor(context.Background(), nil, info, func(context.Context, any) (any, error) {
		return nil, status.Error(codes.FailedPrecondition, "phase must move forward")
	})
	require.Error(t, err)

	out := logs.String()
	assert.Contains(t, out, "level=WARN")
	assert.Contains(t, out, "code=FailedPrecondition")
	assert.Contains(t, out, "ChangePhase")
}
