package presence

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	domain "github.com/jason790/lamplighter/internal/domain/presence"
	"github.com/jason790/lamplighter/internal/service/presence"
)

// fakeService returns a fixed snapshot.
type fakeService struct {
	snapshot presence.Snapshot
}

func (f *fakeService) Snapshot() presence.Snapshot { return f.snapshot }

func sampleSnapshot() presence.Snapshot {
	at := time.Date(2026, 5, 1, 7, 30, 0, 0, time.UTC)

	return presence.Snapshot{
		Mode: presence.ModeHeartbeat,
		Records: []*domain.Record{
			{Subject: "aaron", State: domain.StateHome, UpdatedAt: at},
			{Subject: "bella", State: domain.StateAway, UpdatedAt: at},
		},
		Combined:  domain.StateHome,
		Quiet:     true,
		Stats:     presence.Stats{StartedAt: at, Observations: 12, Transitions: 1},
		UpdatedAt: at,
	}
}

// TestServer_GetPresence checks the snapshot encoding.
func TestServer_GetPresence(t *testing.T) {
	t.Parallel()

	srv := NewServer(&fakeService{snapshot: sampleSnapshot()})

	resp, err := srv.GetPresence(t.Context(), &emptypb.Empty{})
	require.NoError(t, err)

	fields := resp.AsMap()
	require.Equal(t, "heartbeat", fields["mode"])
	require.Equal(t, "home", fields["combined"])
	require.Equal(t, true, fields["quiet"])
	require.Equal(t, "2026-05-01T07:30:00Z", fields["updated_at"])

	subjects, ok := fields["subjects"].([]any)
	require.True(t, ok)
	require.Len(t, subjects, 2)
	require.Equal(t, map[string]any{
		"subject":    "bella",
		"state":      "away",
		"updated_at": "2026-05-01T07:30:00Z",
	}, subjects[1])

	stats, ok := fields["stats"].(map[string]any)
	require.True(t, ok)
	require.InDelta(t, 12, stats["observations"], 0)
}

// TestServer_GetPresence_NotReady ensures an empty snapshot maps to Unavailable.
func TestServer_GetPresence_NotReady(t *testing.T) {
	t.Parallel()

	_, err := NewServer(&fakeService{}).GetPresence(t.Context(), &emptypb.Empty{})
	require.Equal(t, codes.Unavailable, status.Code(err))
}

// TestServiceDesc_OverTheWire serves the descriptor and calls it with Invoke.
func TestServiceDesc_OverTheWire(t *testing.T) {
	t.Parallel()

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	Register(server, NewServer(&fakeService{snapshot: sampleSnapshot()}))

	go func() {
		_ = server.Serve(lis)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	out := new(structpb.Struct)
	require.NoError(t, conn.Invoke(t.Context(), GetPresenceMethod, &emptypb.Empty{}, out))
	require.Equal(t, "home", out.GetFields()["combined"].GetStringValue())
}
