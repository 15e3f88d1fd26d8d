// Package adminsvc implements adminpb.AdminServiceServer: a read-only
// gRPC surface over a registry.Registry, compat.Checker, and the
// sagas an application chooses to expose, grounded on firelynx's
// cfgrpc.GRPCServer/DefaultStartGRPCServer pattern for server lifecycle
// and logging.
package adminsvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"google.golang.org/grpc"

	"github.com/quoriumlabs/grainfsm/adminpb"
	"github.com/quoriumlabs/grainfsm/compat"
	"github.com/quoriumlabs/grainfsm/fsmtype"
	"github.com/quoriumlabs/grainfsm/registry"
	"github.com/quoriumlabs/grainfsm/saga"
)

// SagaTracker is the narrow view of running sagas GetSagaStatus reads
// from. An application registers each saga it wants visible here as it
// starts it.
type SagaTracker struct {
	mu    sync.RWMutex
	sagas map[string]*saga.Saga
}

// NewSagaTracker constructs an empty SagaTracker.
func NewSagaTracker() *SagaTracker {
	return &SagaTracker{sagas: make(map[string]*saga.Saga)}
}

// Track makes s visible to GetSagaStatus under s.ID.
func (t *SagaTracker) Track(s *saga.Saga) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sagas[s.ID] = s
}

// Untrack removes a saga once it is no longer of operational interest.
func (t *SagaTracker) Untrack(sagaID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.sagas, sagaID)
}

func (t *SagaTracker) get(sagaID string) (*saga.Saga, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	s, ok := t.sagas[sagaID]
	return s, ok
}

// Server implements adminpb.AdminServiceServer.
type Server struct {
	reg     *registry.Registry
	checker *compat.Checker
	sagas   *SagaTracker
	logger  *slog.Logger
}

// New constructs a Server over reg/checker, optionally tracking sagas
// (nil is fine — GetSagaStatus then always reports not-found).
func New(reg *registry.Registry, checker *compat.Checker, sagas *SagaTracker, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if sagas == nil {
		sagas = NewSagaTracker()
	}
	return &Server{reg: reg, checker: checker, sagas: sagas, logger: logger.WithGroup("adminsvc")}
}

func toWireVersion(v fsmtype.Version) adminpb.Version {
	return adminpb.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, PreRelease: v.PreRelease}
}

func fromWireVersion(v adminpb.Version) fsmtype.Version {
	return fsmtype.Version{Major: v.Major, Minor: v.Minor, Patch: v.Patch, PreRelease: v.PreRelease}
}

// GetAvailableVersions lists every registered version of an entity
// type, newest first.
func (s *Server) GetAvailableVersions(ctx context.Context, req *adminpb.GetAvailableVersionsRequest) (*adminpb.GetAvailableVersionsResponse, error) {
	versions := s.reg.GetAvailableVersions(req.EntityType)
	resp := &adminpb.GetAvailableVersionsResponse{Versions: make([]adminpb.Version, len(versions))}
	for i, v := range versions {
		resp.Versions[i] = toWireVersion(v)
	}
	return resp, nil
}

// CheckCompatibility reports the compatibility level and any breaking
// changes between two registered versions.
func (s *Server) CheckCompatibility(ctx context.Context, req *adminpb.CheckCompatibilityRequest) (*adminpb.CheckCompatibilityResponse, error) {
	result, err := s.checker.CheckCompatibility(req.EntityType, fromWireVersion(req.From), fromWireVersion(req.To))
	if err != nil {
		return nil, fmt.Errorf("adminsvc: %w", err)
	}
	return &adminpb.CheckCompatibilityResponse{
		Level:                 string(result.Level),
		Compatible:            result.Compatible,
		BreakingChangeReasons: result.BreakingChanges,
	}, nil
}

// GetMigrationPath resolves the hop sequence between two versions, if
// one exists within the bounded search.
func (s *Server) GetMigrationPath(ctx context.Context, req *adminpb.GetMigrationPathRequest) (*adminpb.GetMigrationPathResponse, error) {
	path, found := s.checker.GetMigrationPath(req.EntityType, fromWireVersion(req.From), fromWireVersion(req.To))
	if !found {
		return &adminpb.GetMigrationPathResponse{Found: false}, nil
	}
	names := make([]string, len(path.Steps))
	for i, step := range path.Steps {
		names[i] = step.Name
	}
	return &adminpb.GetMigrationPathResponse{Found: true, StepNames: names, EstimatedDurationMs: path.EstimatedDurationMs}, nil
}

// GetSagaStatus reports a tracked saga's current status and step
// history.
func (s *Server) GetSagaStatus(ctx context.Context, req *adminpb.GetSagaStatusRequest) (*adminpb.GetSagaStatusResponse, error) {
	sg, ok := s.sagas.get(req.SagaID)
	if !ok {
		return nil, fmt.Errorf("adminsvc: saga %s not tracked", req.SagaID)
	}

	history := make([]adminpb.StepHistory, len(sg.History))
	for i, exec := range sg.History {
		history[i] = adminpb.StepHistory{
			StepName: exec.StepName,
			Attempt:  exec.Attempt,
			Result:   string(exec.Result),
			Error:    exec.Error,
		}
	}

	return &adminpb.GetSagaStatusResponse{
		SagaID:       sg.ID,
		BusinessTxID: sg.BusinessTxID,
		Status:       sg.Status.GetState(),
		CurrentIndex: sg.CurrentIndex,
		History:      history,
	}, nil
}

// GRPCServer is the subset of *grpc.Server a caller needs to shut the
// admin surface down gracefully.
type GRPCServer interface {
	GracefulStop()
}

// Start listens on listenAddr ("unix:/path" or a TCP "host:port") and
// serves srv until the process stops it, following the teacher's
// listen-address parsing and startup-error-detection window.
func Start(logger *slog.Logger, listenAddr string, srv adminpb.AdminServiceServer) (GRPCServer, error) {
	network, address, err := parseListenAddr(listenAddr)
	if err != nil {
		return nil, fmt.Errorf("adminsvc: parsing listen address %q: %w", listenAddr, err)
	}
	if network == "unix" {
		if err := cleanupUnixSocket(address, logger); err != nil {
			return nil, fmt.Errorf("adminsvc: pre-listen cleanup of unix socket %q: %w", address, err)
		}
	}

	lis, err := net.Listen(network, address)
	if err != nil {
		return nil, fmt.Errorf("adminsvc: listening on %s://%s: %w", network, address, err)
	}

	grpcServer := grpc.NewServer()
	adminpb.RegisterAdminServiceServer(grpcServer, srv)

	startupErr := make(chan error, 1)
	go func() {
		logger.Info("admin gRPC server starting", "address", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			startupErr <- fmt.Errorf("admin gRPC server error: %w", err)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	select {
	case err := <-startupErr:
		_ = lis.Close()
		return nil, err
	case <-ctx.Done():
	}

	return grpcServer, nil
}

func parseListenAddr(listenAddr string) (network, address string, err error) {
	if strings.HasPrefix(listenAddr, "unix:") {
		address = strings.TrimPrefix(listenAddr, "unix:")
		if address == "" {
			return "", "", fmt.Errorf("invalid unix socket address: path cannot be empty after 'unix:' prefix")
		}
		return "unix", address, nil
	}
	return "tcp", listenAddr, nil
}

func cleanupUnixSocket(socketPath string, logger *slog.Logger) error {
	if _, err := os.Lstat(socketPath); err == nil {
		logger.Warn("removing existing unix socket", "path", socketPath)
		return os.Remove(socketPath)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %q: %w", socketPath, err)
	}
	return nil
}
