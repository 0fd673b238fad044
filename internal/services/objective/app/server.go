package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	grpc_health_v1 "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/louisbranch/okr/internal/platform/i18n/catalog"
	grpcmeta "github.com/louisbranch/okr/internal/services/objective/api/grpc/metadata"
	"github.com/louisbranch/okr/internal/services/objective/api/grpc/objectives"
	"github.com/louisbranch/okr/internal/services/objective/domain/checkpoint"
	"github.com/louisbranch/okr/internal/services/objective/domain/command"
	"github.com/louisbranch/okr/internal/services/objective/domain/engine"
	"github.com/louisbranch/okr/internal/services/objective/domain/event"
	"github.com/louisbranch/okr/internal/services/objective/domain/objective"
	"github.com/louisbranch/okr/internal/services/objective/projection"
	storagesqlite "github.com/louisbranch/okr/internal/services/objective/storage/sqlite"
)

const defaultConflictRetries = 2

// Config controls server construction.
type Config struct {
	// Addr is the listen address. When empty, Port is used on all interfaces.
	Addr   string
	Port   int
	DBPath string
	// ConflictRetries overrides the engine's append race retries; zero keeps
	// the default and a negative value disables retries.
	ConflictRetries int
	// RebuildViews replays the journal into the view table before serving.
	RebuildViews bool
	// NoSnapshots replays every stream in full for each command.
	NoSnapshots bool
}

// Server hosts the objective service.
type Server struct {
	listener   net.Listener
	grpcServer *grpc.Server
	health     *health.Server
	store      *storagesqlite.Store
}

// New creates a configured objective server.
func New(ctx context.Context, cfg Config) (*Server, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = fmt.Sprintf(":%d", cfg.Port)
	}
	commands, events, err := buildRegistries()
	if err != nil {
		return nil, err
	}
	messages, err := catalog.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("load message catalog: %w", err)
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	store, err := openStore(cfg.DBPath, events)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}
	if err := prepareStore(ctx, store, cfg.RebuildViews); err != nil {
		_ = listener.Close()
		_ = store.Close()
		return nil, err
	}

	retries := cfg.ConflictRetries
	switch {
	case retries == 0:
		retries = defaultConflictRetries
	case retries < 0:
		retries = 0
	}
	var snapshots engine.SnapshotStore = checkpoint.NewMemory(objective.State.Clone)
	if cfg.NoSnapshots {
		snapshots = checkpoint.Noop[objective.State]{}
	}
	handler := engine.Handler{
		Commands:        commands,
		Events:          events,
		Journal:         store,
		Snapshots:       snapshots,
		Projector:       projection.Applier{Views: store, Events: store},
		ConflictRetries: retries,
	}

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(grpcmeta.UnaryServerInterceptor(nil)),
	)
	healthServer := health.NewServer()
	objectives.RegisterObjectiveServiceServer(grpcServer, objectives.NewService(handler, store, messages))
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", grpc_health_v1.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus(objectives.ServiceName, grpc_health_v1.HealthCheckResponse_SERVING)

	return &Server{
		listener:   listener,
		grpcServer: grpcServer,
		health:     healthServer,
		store:      store,
	}, nil
}

// Addr returns the listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves an objective server until the context ends.
func Run(ctx context.Context, cfg Config) error {
	srv, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return srv.Serve(ctx)
}

// Serve blocks until the server stops or the context ends.
func (s *Server) Serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.closeStore()

	log.Printf("objective server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.grpcServer.Serve(s.listener)
	}()

	handleErr := func(err error) error {
		if err == nil || errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return fmt.Errorf("serve gRPC: %w", err)
	}

	select {
	case <-ctx.Done():
		s.health.Shutdown()
		s.grpcServer.GracefulStop()
		return handleErr(<-serveErr)
	case err := <-serveErr:
		return handleErr(err)
	}
}

func buildRegistries() (*command.Registry, *event.Registry, error) {
	commands := command.NewRegistry()
	if err := objective.RegisterCommands(commands); err != nil {
		return nil, nil, fmt.Errorf("register commands: %w", err)
	}
	events := event.NewRegistry()
	if err := objective.RegisterEvents(events); err != nil {
		return nil, nil, fmt.Errorf("register events: %w", err)
	}
	return commands, events, nil
}

func openStore(path string, events *event.Registry) (*storagesqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "objectives.db")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := storagesqlite.Open(path, events)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	return store, nil
}

func prepareStore(ctx context.Context, store *storagesqlite.Store, rebuild bool) error {
	verified, err := store.VerifyEventIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("verify event integrity: %w", err)
	}
	log.Printf("verified %d journal events", verified)
	if !rebuild {
		return nil
	}
	stats, err := projection.Rebuild(ctx, store, store)
	if err != nil {
		return fmt.Errorf("rebuild views: %w", err)
	}
	log.Printf("rebuilt %d objective views from %d events", stats.Aggregates, stats.Events)
	return nil
}

func (s *Server) closeStore() {
	if s == nil || s.store == nil {
		return
	}
	if err := s.store.Close(); err != nil {
		log.Printf("close objective store: %v", err)
	}
}
