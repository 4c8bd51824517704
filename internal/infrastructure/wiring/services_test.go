package wiring_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/storage"
)

func env(values map[string]string) func(string) string {
	return func(k string) string { return values[k] }
}

func TestBuildAppServices_RequiresOpenAIKey(t *testing.T) {
	_, err := wiring.BuildAppServices(wiring.Options{
		Root:       t.TempDir(),
		Getenv:     env(nil),
		SkipDotEnv: true,
	})
	if !errors.Is(err, domain.ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
	if err.Error() != "OPENAI_API_KEY is required but not set." {
		t.Errorf("unexpected message: %q", err.Error())
	}
}

func TestBuildAppServices_Panel(t *testing.T) {
	services, err := wiring.BuildAppServices(wiring.Options{
		Root: t.TempDir(),
		Getenv: env(map[string]string{
			config.EnvOpenAIKey:    "sk-test-0123456789",
			config.EnvAnthropicKey: "sk-ant-0123456789",
		}),
		SkipDotEnv: true,
	})
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	var ids []string
	for _, p := range services.Panel {
		ids = append(ids, p.ID())
	}
	if strings.Join(ids, ",") != "openai:gpt-4o-mini,anthropic:claude-3-5-sonnet-latest" {
		t.Errorf("panel = %v", ids)
	}
	if services.Arbiter.ID() != "openai:gpt-4o" {
		t.Errorf("arbiter = %s", services.Arbiter.ID())
	}
}

func TestBuildAppServices_DryRunReview(t *testing.T) {
	root := t.TempDir()
	designs := filepath.Join(root, "designs")
	if err := os.Mkdir(designs, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(designs, "notes.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	services, err := wiring.BuildAppServices(wiring.Options{
		Root:       root,
		DryRun:     true,
		Getenv:     env(nil),
		SkipDotEnv: true,
	})
	if err != nil {
		t.Fatalf("BuildAppServices failed: %v", err)
	}

	session, err := services.Review.Review(context.Background(), designs)
	if err != nil {
		t.Fatalf("dry-run review failed: %v", err)
	}
	if session.Requirements != "\n[FILE] notes.txt" {
		t.Errorf("requirements = %q", session.Requirements)
	}
	if session.Phase1 != `{"dry_run":true}` {
		t.Errorf("phase1 = %q", session.Phase1)
	}
	if !strings.Contains(session.FinalReport, "dry run") {
		t.Errorf("report = %q", session.FinalReport)
	}

	sink, ok := services.Workspace.Sink.(*storage.FilesystemSink)
	if !ok {
		t.Fatalf("expected filesystem sink, got %T", services.Workspace.Sink)
	}
	names, _ := sink.List()
	if len(names) != 5 {
		t.Errorf("artifacts = %v", names)
	}

	if err := services.Workspace.Audit.Verify(); err != nil {
		t.Errorf("audit chain: %v", err)
	}
	events, _ := services.Workspace.Audit.Load()
	if len(events) != 4 {
		t.Errorf("expected 4 audit events, got %d", len(events))
	}
}

func TestBuildAppServices_NoArtifacts(t *testing.T) {
	services, err := wiring.BuildAppServices(wiring.Options{
		Root:        t.TempDir(),
		DryRun:      true,
		NoArtifacts: true,
		Getenv:      env(nil),
		SkipDotEnv:  true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := services.Workspace.Sink.(storage.NopSink); !ok {
		t.Errorf("expected NopSink, got %T", services.Workspace.Sink)
	}
}

func TestBuildParser_SkipsConverterWithoutKey(t *testing.T) {
	cfg := config.Default()
	cfg.ConverterModel = "anthropic:claude-3-5-sonnet-latest"

	p, err := wiring.BuildParser(&cfg, wiring.Options{})
	if err != nil || p == nil {
		t.Fatalf("BuildParser = %v, %v", p, err)
	}
}

func TestAppServices_NotifyCompleted(t *testing.T) {
	var got webhook.Payload
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	root := t.TempDir()
	designs := filepath.Join(root, "designs")
	if err := os.Mkdir(designs, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(designs, "notes.txt"), []byte("hello"), 0600); err != nil {
		t.Fatal(err)
	}

	services, err := wiring.BuildAppServices(wiring.Options{
		Root:       root,
		DryRun:     true,
		Getenv:     env(map[string]string{config.EnvNotifyURL: server.URL}),
		SkipDotEnv: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if services.Notifier == nil {
		t.Fatal("expected notifier")
	}

	session, err := services.Review.Review(context.Background(), designs)
	if err != nil {
		t.Fatal(err)
	}
	if err := services.NotifyCompleted(context.Background(), session); err != nil {
		t.Fatalf("notify failed: %v", err)
	}
	if got.Data.SessionID != session.ID || got.Data.ArtifactsDir != filepath.Join(root, ".sdra", "artifacts") {
		t.Errorf("payload = %+v", got)
	}
}

func TestAppServices_NotifyDisabled(t *testing.T) {
	services, err := wiring.BuildAppServices(wiring.Options{
		Root:       t.TempDir(),
		DryRun:     true,
		Getenv:     env(nil),
		SkipDotEnv: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if services.Notifier != nil {
		t.Error("notifier should be nil without notify_url")
	}
	if err := services.NotifyCompleted(context.Background(), nil); err != nil {
		t.Error(err)
	}
}
