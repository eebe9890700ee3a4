package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seiggy/apm/internal/refs"
)

// Load reads and validates an apm.yml manifest file. The parser supplies
// the host policy for dependency validation; nil uses the default policy.
func Load(path string, parser *refs.Parser) (*Manifest, error) {
	m, err := Read(path)
	if err != nil {
		return nil, err
	}

	if errs := Validate(m, parser); len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	return m, nil
}

// Read reads an apm.yml manifest without validating it. Dependency
// resolution uses this for installed packages, where a single bad
// dependency string should skip that entry rather than reject the
// whole package.
func Read(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}

	return &m, nil
}

// ValidationError holds multiple validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifest validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Validate checks a Manifest for semantic correctness.
// Returns a list of validation error messages (empty if valid).
func Validate(m *Manifest, parser *refs.Parser) []string {
	if parser == nil {
		parser = &refs.Parser{}
	}

	var errs []string

	if m.Name == "" {
		errs = append(errs, "'name' is required")
	} else if strings.ContainsAny(m.Name, " \t") {
		errs = append(errs, fmt.Sprintf("name '%s' must not contain whitespace", m.Name))
	}

	if m.Version == "" {
		errs = append(errs, "'version' is required — add 'version: 0.1.0'")
	}

	seen := make(map[string]string)
	for i, raw := range m.Dependencies.APM {
		ref, err := parser.Parse(raw)
		if err != nil {
			errs = append(errs, fmt.Sprintf("dependencies.apm[%d]: %s", i, err))
			continue
		}
		key := ref.UniqueKey()
		if prev, dup := seen[key]; dup {
			errs = append(errs, fmt.Sprintf("dependencies.apm[%d]: '%s' duplicates '%s' (same package %s)", i, raw, prev, key))
			continue
		}
		seen[key] = raw
	}

	for i, entry := range m.Dependencies.MCP {
		if strings.TrimSpace(entry) == "" {
			errs = append(errs, fmt.Sprintf("dependencies.mcp[%d]: entry is empty", i))
		}
	}

	return errs
}
