package prompts_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/felixgeelhaar/sdra/pkg/domain"
	"github.com/felixgeelhaar/sdra/pkg/prompts"
)

type phaseData struct {
	Requirements string
	Phase1       string
	Phase2       string
}

func TestDefault_HasEveryPhasePrompt(t *testing.T) {
	names, err := prompts.Default().Names(prompts.DefaultVersion)
	if err != nil {
		t.Fatalf("Names failed: %v", err)
	}
	want := []string{"phase1_system.md", "phase1_user.md", "phase2_system.md", "phase2_user.md", "report_system.md", "report_user.md"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Errorf("names = %v, want %v", names, want)
	}
}

func TestDefault_RenderSubstitutesInputs(t *testing.T) {
	s := prompts.Default()
	data := phaseData{Requirements: "REQ-TEXT {{not a template}}", Phase1: "PHASE1-JSON", Phase2: "PHASE2-JSON"}

	out, err := s.Render("phase1_user.md", "v1", data)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(out, "REQ-TEXT {{not a template}}") {
		t.Errorf("requirements not substituted verbatim: %s", out)
	}

	out, err = s.Render("report_user.md", "", data)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	for _, want := range []string{"REQ-TEXT", "PHASE1-JSON", "PHASE2-JSON"} {
		if !strings.Contains(out, want) {
			t.Errorf("report prompt missing %q", want)
		}
	}
}

func TestLoad_NotFound(t *testing.T) {
	s := prompts.NewStore(fstest.MapFS{})

	_, err := s.Load("phase1_system.md", "v1")
	var nf *domain.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if nf.Name != "v1/phase1_system.md" {
		t.Errorf("Name = %q", nf.Name)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Error("expected errors.Is ErrNotFound")
	}
}

func TestLoad_RejectsTraversal(t *testing.T) {
	s := prompts.NewStore(fstest.MapFS{"secret.md": {Data: []byte("x")}})

	if _, err := s.Load("../secret.md", "v1"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found for traversal, got %v", err)
	}
}

func TestLoad_ReadsFreshEachTime(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "v2"), 0700); err != nil {
		t.Fatal(err)
	}
	file := filepath.Join(dir, "v2", "phase1_system.md")
	if err := os.WriteFile(file, []byte("first"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := prompts.FromDir(dir)
	if err != nil {
		t.Fatalf("FromDir failed: %v", err)
	}
	got, _ := s.Load("phase1_system.md", "v2")
	if got != "first" {
		t.Fatalf("got %q", got)
	}

	if err := os.WriteFile(file, []byte("second"), 0600); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Load("phase1_system.md", "v2")
	if got != "second" {
		t.Errorf("expected fresh read, got %q", got)
	}
}

func TestFromDir_Invalid(t *testing.T) {
	_, err := prompts.FromDir(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, domain.ErrConfig) {
		t.Errorf("expected ConfigError, got %v", err)
	}
}

func TestRender_BadTemplate(t *testing.T) {
	s := prompts.NewStore(fstest.MapFS{
		"v1/broken.md":  {Data: []byte("{{.Requirements")},
		"v1/unknown.md": {Data: []byte("{{.Nope}}")},
	})

	if _, err := s.Render("broken.md", "v1", phaseData{}); err == nil {
		t.Error("expected parse error")
	}
	if _, err := s.Render("unknown.md", "v1", phaseData{}); err == nil {
		t.Error("expected execution error for unknown field")
	}
}
