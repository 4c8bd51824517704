package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/felixgeelhaar/sdra/internal/infrastructure/config"
	"github.com/felixgeelhaar/sdra/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/sdra/pkg/document"
)

func testServer(t *testing.T, env map[string]string) (*Server, string) {
	t.Helper()
	root := t.TempDir()
	designs := filepath.Join(root, "designs")
	if err := os.Mkdir(designs, 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(designs, "readme.md"), []byte("# design"), 0600); err != nil {
		t.Fatal(err)
	}
	s := NewServer(wiring.Options{
		Root:       root,
		Getenv:     func(k string) string { return env[k] },
		SkipDotEnv: true,
	})
	return s, root
}

func TestHandleParseFolder(t *testing.T) {
	s, _ := testServer(t, nil)

	res, err := s.handleParseFolder(context.Background(), ParseFolderArgs{Folder: "designs"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out := res.(map[string]any)
	if out["text"] != "\n[FILE] readme.md" {
		t.Errorf("text = %q", out["text"])
	}
	if out["truncated"] != false {
		t.Error("short text should not be truncated")
	}

	if _, err := s.handleParseFolder(context.Background(), ParseFolderArgs{Folder: "missing"}); err == nil || !strings.Contains(err.Error(), "Invalid folder") {
		t.Errorf("expected invalid folder error, got %v", err)
	}
	if _, err := s.handleParseFolder(context.Background(), ParseFolderArgs{}); err == nil {
		t.Error("expected error for empty folder")
	}
}

func TestHandleParseFolder_PreviewIsRuneSafe(t *testing.T) {
	s, root := testServer(t, nil)
	for i := 0; i < 60; i++ {
		name := filepath.Join(root, "designs", fmt.Sprintf("flow_%02d_–––••.txt", i))
		if err := os.WriteFile(name, []byte("x"), 0600); err != nil {
			t.Fatal(err)
		}
	}

	res, err := s.handleParseFolder(context.Background(), ParseFolderArgs{Folder: "designs"})
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out := res.(map[string]any)
	text := out["text"].(string)
	if out["truncated"] != true {
		t.Fatal("long text should be truncated")
	}
	if !utf8.ValidString(text) {
		t.Error("preview split a multi-byte character")
	}
	if n := utf8.RuneCountInString(text); n != document.PreviewLength {
		t.Errorf("preview has %d characters, want %d", n, document.PreviewLength)
	}
}

func TestHandleReviewFolder_DryRun(t *testing.T) {
	s, root := testServer(t, nil)

	res, err := s.handleReviewFolder(context.Background(), ReviewFolderArgs{Folder: "designs", DryRun: true, Rounds: 1})
	if err != nil {
		t.Fatalf("review failed: %v", err)
	}
	out := res.(map[string]any)
	if out["phase1"] != `{"dry_run":true}` {
		t.Errorf("phase1 = %v", out["phase1"])
	}
	if !strings.Contains(out["report"].(string), "dry run") {
		t.Errorf("report = %v", out["report"])
	}
	if _, err := os.Stat(filepath.Join(root, ".sdra", "events.jsonl")); err != nil {
		t.Errorf("audit log not written: %v", err)
	}
}

func TestHandleReviewFolder_MissingKey(t *testing.T) {
	s, _ := testServer(t, nil)

	_, err := s.handleReviewFolder(context.Background(), ReviewFolderArgs{Folder: "designs"})
	if err == nil || !strings.Contains(err.Error(), "OPENAI_API_KEY is required") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestHandleConfigSummary(t *testing.T) {
	s, _ := testServer(t, map[string]string{config.EnvOpenAIKey: "sk-secret-0123456789"})

	res, err := s.handleConfigSummary(context.Background(), struct{}{})
	if err != nil {
		t.Fatal(err)
	}
	out := res.(map[string]any)
	creds := out["credentials"].(map[string]string)
	if creds[config.EnvOpenAIKey] != "sk-sec..." {
		t.Errorf("masked key = %q", creds[config.EnvOpenAIKey])
	}
	if out["max_rounds"] != 2 {
		t.Errorf("max_rounds = %v", out["max_rounds"])
	}
}
