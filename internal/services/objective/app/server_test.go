package server

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	platformgrpc "github.com/louisbranch/okr/internal/platform/grpc"
	"github.com/louisbranch/okr/internal/services/objective/api/grpc/objectives"
)

func startServer(t *testing.T, cfg Config) (*Server, context.CancelFunc, <-chan error) {
	t.Helper()
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(t.TempDir(), "objectives.db")
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:0"
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv, err := New(ctx, cfg)
	if err != nil {
		cancel()
		t.Fatalf("new server: %v", err)
	}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()
	return srv, cancel, serveErr
}

func waitStopped(t *testing.T, serveErr <-chan error) {
	t.Helper()
	select {
	case err := <-serveErr:
		if err != nil {
			t.Fatalf("serve returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not stop in time")
	}
}

func TestServeHandlesCommandsAndStopsOnContext(t *testing.T) {
	srv, cancel, serveErr := startServer(t, Config{})
	defer cancel()

	conn, err := platformgrpc.Dial(context.Background(), srv.Addr(), objectives.ServiceName, 2*time.Second, t.Logf)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	client := objectives.NewClient(conn)
	request, err := structpb.NewStruct(map[string]any{
		"aggregateId": "obj-1",
		"type":        "createObjective",
		"payload":     map[string]any{"title": "Ship v2", "userId": "u-1"},
	})
	if err != nil {
		t.Fatalf("struct: %v", err)
	}
	callCtx, callCancel := context.WithTimeout(context.Background(), time.Second)
	defer callCancel()
	out, err := client.ExecuteCommand(callCtx, request)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := out.GetFields()["lastSeq"].GetNumberValue(); got != 1 {
		t.Fatalf("lastSeq = %v, want 1", got)
	}

	cancel()
	waitStopped(t, serveErr)
}

func TestRestartRebuildsViews(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "objectives.db")
	srv, cancel, serveErr := startServer(t, Config{DBPath: dbPath, NoSnapshots: true})
	conn, err := platformgrpc.Dial(context.Background(), srv.Addr(), objectives.ServiceName, 2*time.Second, nil)
	if err != nil {
		cancel()
		t.Fatalf("dial: %v", err)
	}
	request, _ := structpb.NewStruct(map[string]any{
		"aggregateId": "obj-1",
		"type":        "createObjective",
		"payload":     map[string]any{"title": "Ship v2", "orgUnitId": "team-a"},
	})
	if _, err := objectives.NewClient(conn).ExecuteCommand(context.Background(), request); err != nil {
		t.Fatalf("execute: %v", err)
	}
	_ = conn.Close()
	cancel()
	waitStopped(t, serveErr)

	srv, cancel, serveErr = startServer(t, Config{DBPath: dbPath, RebuildViews: true})
	defer cancel()
	conn, err = platformgrpc.Dial(context.Background(), srv.Addr(), objectives.ServiceName, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("dial after restart: %v", err)
	}
	defer conn.Close()
	get, _ := structpb.NewStruct(map[string]any{"id": "obj-1"})
	view, err := objectives.NewClient(conn).GetObjective(context.Background(), get)
	if err != nil {
		t.Fatalf("get objective: %v", err)
	}
	if got := view.GetFields()["orgUnitId"].GetStringValue(); got != "team-a" {
		t.Fatalf("orgUnitId = %q, want team-a", got)
	}
	cancel()
	waitStopped(t, serveErr)
}

func TestNewRejectsInvalidAddress(t *testing.T) {
	_, err := New(context.Background(), Config{Addr: "invalid::addr", DBPath: filepath.Join(t.TempDir(), "objectives.db")})
	if err == nil {
		t.Fatal("expected error for invalid address")
	}
}

func TestAddrNilServer(t *testing.T) {
	var srv *Server
	if got := srv.Addr(); got != "" {
		t.Fatalf("Addr() = %q, want empty", got)
	}
}
