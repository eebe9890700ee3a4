package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seiggy/apm/internal/hosts"
	"github.com/seiggy/apm/internal/refs"
)

func writeManifest(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, "apm.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing manifest: %v", err)
	}
	return path
}

func TestLoadValidManifest(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
name: my-agents
version: 0.1.0
description: project agent content
dependencies:
  apm:
    - octo/prompts
    - octo/prompts/review.prompt.md#v1.0.0
  mcp:
    - io.github.octo/search-server
`)

	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name != "my-agents" || m.Version != "0.1.0" {
		t.Errorf("got name=%q version=%q", m.Name, m.Version)
	}
	if len(m.Dependencies.APM) != 2 {
		t.Errorf("apm deps = %d, want 2", len(m.Dependencies.APM))
	}
	if len(m.Dependencies.MCP) != 1 {
		t.Errorf("mcp deps = %d, want 1", len(m.Dependencies.MCP))
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "apm.yml"), nil)
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
	if !strings.Contains(err.Error(), "reading manifest") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadMalformedYAML(t *testing.T) {
	path := writeManifest(t, t.TempDir(), "name: [unclosed")
	_, err := Load(path, nil)
	if err == nil {
		t.Fatal("expected error for malformed YAML")
	}
	if !strings.Contains(err.Error(), "parsing manifest") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidateRequiredFields(t *testing.T) {
	errs := Validate(&Manifest{}, nil)
	joined := strings.Join(errs, "\n")
	if !strings.Contains(joined, "'name' is required") {
		t.Errorf("missing name error, got: %v", errs)
	}
	if !strings.Contains(joined, "'version' is required") {
		t.Errorf("missing version error, got: %v", errs)
	}
}

func TestValidateBadDependency(t *testing.T) {
	m := &Manifest{
		Name:    "p",
		Version: "0.1.0",
		Dependencies: Dependencies{
			APM: []string{"just-one-segment"},
		},
	}

	errs := Validate(m, nil)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "dependencies.apm[0]") {
		t.Errorf("error should name the entry position: %v", errs[0])
	}
}

func TestValidateDuplicateUniqueKey(t *testing.T) {
	m := &Manifest{
		Name:    "p",
		Version: "0.1.0",
		Dependencies: Dependencies{
			// Same repository addressed twice through different spellings.
			APM: []string{"octo/prompts", "https://github.com/octo/prompts.git#main"},
		},
	}

	errs := Validate(m, nil)
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1: %v", len(errs), errs)
	}
	if !strings.Contains(errs[0], "duplicates") {
		t.Errorf("unexpected error: %v", errs[0])
	}
}

func TestValidateHonorsParserPolicy(t *testing.T) {
	m := &Manifest{
		Name:    "p",
		Version: "0.1.0",
		Dependencies: Dependencies{
			APM: []string{"git.corp.example/a/lib"},
		},
	}

	if errs := Validate(m, nil); len(errs) != 1 {
		t.Fatalf("default policy should reject the host, got %v", errs)
	}

	parser := &refs.Parser{Policy: hosts.NewPolicy("git.corp.example")}
	if errs := Validate(m, parser); len(errs) != 0 {
		t.Errorf("extra-host policy should accept the manifest, got %v", errs)
	}
}

func TestLoadPreservesDeclarationOrder(t *testing.T) {
	path := writeManifest(t, t.TempDir(), `
name: ordered
version: 1.0.0
dependencies:
  apm:
    - zeta/last
    - alpha/first
    - mid/dle
`)

	m, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{"zeta/last", "alpha/first", "mid/dle"}
	for i, w := range want {
		if m.Dependencies.APM[i] != w {
			t.Fatalf("order changed: got %v, want %v", m.Dependencies.APM, want)
		}
	}
}
