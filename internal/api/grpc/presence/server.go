package presence

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/jason790/lamplighter/internal/service/presence"
)

const (
	// ServiceName is the fully qualified gRPC service name.
	ServiceName = "lamplighter.v1.PresenceService"
	// GetPresenceMethod is the full method name of GetPresence.
	GetPresenceMethod = "/" + ServiceName + "/GetPresence"
)

// Service abstracts the monitor the transport reads from.
type Service interface {
	Snapshot() presence.Snapshot
}

// PresenceServer is the server API of the status service.
type PresenceServer interface {
	GetPresence(ctx context.Context, in *emptypb.Empty) (*structpb.Struct, error)
}

// Server implements PresenceServer on top of a Service.
type Server struct {
	// service provides the snapshots.
	service Service
}

// NewServer wires the provided service into a gRPC handler.
func NewServer(service Service) *Server {
	return &Server{
		service: service,
	}
}

// Register adds srv to the registrar.
func Register(r grpc.ServiceRegistrar, srv PresenceServer) {
	r.RegisterService(&ServiceDesc, srv)
}

// GetPresence returns the latest snapshot.
func (s *Server) GetPresence(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.service.Snapshot()
	if snap.UpdatedAt.IsZero() {
		return nil, status.Error(codes.Unavailable, "no observation has completed yet")
	}

	result, err := toProtoSnapshot(snap)
	if err != nil {
		return nil, status.Error(codes.Internal, "unable to encode snapshot")
	}

	return result, nil
}

// toProtoSnapshot converts a snapshot into a protobuf Struct.
func toProtoSnapshot(snap presence.Snapshot) (*structpb.Struct, error) {
	subjects := make([]any, 0, len(snap.Records))
	for _, rec := range snap.Records {
		if rec == nil {
			continue
		}

		subjects = append(subjects, map[string]any{
			"subject":    rec.Subject,
			"state":      rec.State.String(),
			"updated_at": rec.UpdatedAt.UTC().Format(time.RFC3339Nano),
		})
	}

	return structpb.NewStruct(map[string]any{
		"mode":       string(snap.Mode),
		"combined":   snap.Combined.String(),
		"quiet":      snap.Quiet,
		"updated_at": snap.UpdatedAt.UTC().Format(time.RFC3339Nano),
		"subjects":   subjects,
		"stats": map[string]any{
			"started_at":   snap.Stats.StartedAt.UTC().Format(time.RFC3339),
			"observations": snap.Stats.Observations,
			"inconclusive": snap.Stats.Inconclusive,
			"transitions":  snap.Stats.Transitions,
			"false_alarms": snap.Stats.FalseAlarms,
			"idle_cycles":  snap.Stats.IdleCycles,
		},
	})
}

// ServiceDesc describes the status service for grpc.Server.
//
//nolint:gochecknoglobals // Service descriptors are package-level by convention.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*PresenceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetPresence",
			Handler:    getPresenceHandler,
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "lamplighter/v1/presence.proto",
}

func getPresenceHandler(
	srv any,
	ctx context.Context,
	dec func(any) error,
	interceptor grpc.UnaryServerInterceptor,
) (any, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}

	if interceptor == nil {
		return srv.(PresenceServer).GetPresence(ctx, in)
	}

	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: GetPresenceMethod,
	}

	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(PresenceServer).GetPresence(ctx, req.(*emptypb.Empty))
	}

	return interceptor(ctx, in, info, handler)
}
