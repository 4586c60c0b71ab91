package rpc

import (
	"net"
	"testing"
	"time"

	codechat "codechat.dev/server"
	"codechat.dev/server/internal/manager"
)

type stubRenderer struct{}

func (stubRenderer) RenderFile(text, filePath string, isDirty bool, onBuild func(string)) manager.RenderOutcome {
	return manager.RenderOutcome{WasPerformed: true, RenderedFilePath: filePath, HTML: "<p>" + text + "</p>", HasHTML: true}
}

func startTestServer(t *testing.T) (*Client, *Service, func()) {
	t.Helper()

	mgr := manager.New(stubRenderer{}, codechat.NewLogger())
	mgr.Start(2)

	cfg := codechat.DefaultServiceConfig()
	svc := NewService(mgr, cfg, codechat.NewLogger())

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	go Serve(lis, svc)

	client, err := Dial(lis.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	cleanup := func() {
		client.Close()
		lis.Close()
		mgr.Close()
	}
	return client, svc, cleanup
}

func TestGetClientURL(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	reply, err := client.GetClient(LocationURL)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if reply.URL == "" {
		t.Fatal("expected a non-empty URL")
	}
	if reply.ID < 0 {
		t.Fatalf("expected a non-negative server-allocated id, got %d", reply.ID)
	}
}

func TestGetClientHTML(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	reply, err := client.GetClient(LocationHTML)
	if err != nil {
		t.Fatalf("GetClient: %v", err)
	}
	if reply.HTML == "" {
		t.Fatal("expected non-empty HTML")
	}
}

func TestGetClientInvalidLocation(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	reply, err := client.GetClient(Location("3"))
	if err == nil {
		t.Fatal("expected an error for an out-of-range location")
	}
	if reply.ID != -1 {
		t.Fatalf("expected id -1, got %d", reply.ID)
	}
	if reply.HTML != "" {
		t.Fatalf("expected no html, got %q", reply.HTML)
	}
	if reply.Error != "Invalid location 3" {
		t.Fatalf("expected the canonical invalid-location message, got %q", reply.Error)
	}
}

func TestStartRenderUnknownPositiveID(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	err := client.StartRender(999, "text", "x.md", false)
	if err == nil {
		t.Fatal("expected an error for an unknown positive id")
	}
}

func TestStartRenderAutoCreatesNegativeID(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	if err := client.StartRender(-42, "text", "x.md", false); err != nil {
		t.Fatalf("expected a negative id to be auto-created, got %v", err)
	}
}

func TestStopClientUnknown(t *testing.T) {
	client, _, cleanup := startTestServer(t)
	defer cleanup()

	if err := client.StopClient(12345); err == nil {
		t.Fatal("expected an error for an unknown client")
	}
}

func TestPingReflectsDraining(t *testing.T) {
	client, svc, cleanup := startTestServer(t)
	defer cleanup()

	if err := client.Ping(); err != nil {
		t.Fatalf("expected ping to succeed while healthy: %v", err)
	}

	svc.MarkDraining()
	time.Sleep(10 * time.Millisecond)

	if err := client.Ping(); err == nil {
		t.Fatal("expected ping to report draining")
	}
}
