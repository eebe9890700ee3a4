package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"
)

func TestInitCreatesManifest(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "apm.yml")

	// Override the global manifestPath used by the init command.
	old := manifestPath
	manifestPath = outPath
	defer func() { manifestPath = old }()

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err != nil {
		t.Fatalf("init: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("manifest file is empty")
	}
	if !strings.Contains(string(data), "dependencies:") {
		t.Error("manifest should contain a dependencies section")
	}
}

func TestInitRefusesOverwrite(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "apm.yml")

	if err := os.WriteFile(outPath, []byte("existing"), 0644); err != nil {
		t.Fatal(err)
	}

	old := manifestPath
	manifestPath = outPath
	defer func() { manifestPath = old }()

	initForce = false
	err := initCmd.RunE(initCmd, nil)
	if err == nil {
		t.Fatal("expected error when file exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Errorf("error should mention 'already exists': %v", err)
	}
}

func TestInitForceOverwrites(t *testing.T) {
	dir := t.TempDir()
	outPath := filepath.Join(dir, "apm.yml")

	if err := os.WriteFile(outPath, []byte("old content"), 0644); err != nil {
		t.Fatal(err)
	}

	old := manifestPath
	manifestPath = outPath
	defer func() { manifestPath = old }()

	initForce = true
	err := initCmd.RunE(initCmd, nil)
	if err != nil {
		t.Fatalf("init --force: %v", err)
	}

	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) == "old content" {
		t.Error("file was not overwritten")
	}
}

func TestInitTemplateIsValidYAML(t *testing.T) {
	rendered := fmt.Sprintf(initTemplate, "sample")

	var out map[string]any
	if err := yaml.Unmarshal([]byte(rendered), &out); err != nil {
		t.Fatalf("template is not valid YAML: %v", err)
	}
	if out["name"] != "sample" {
		t.Errorf("template name = %v, want %q", out["name"], "sample")
	}
	if out["dependencies"] == nil {
		t.Error("template should contain 'dependencies'")
	}
}
