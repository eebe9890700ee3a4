package config

// Manifest represents the apm.yml project manifest.
type Manifest struct {
	Name         string       `yaml:"name"`
	Version      string       `yaml:"version"`
	Description  string       `yaml:"description,omitempty"`
	Dependencies Dependencies `yaml:"dependencies,omitempty"`
}

// Dependencies holds the declared dependency lists. Order matters: the
// declaration order is the tie-break for first-wins install filtering, so
// both lists round-trip through load and save unreordered.
type Dependencies struct {
	// APM lists dependency reference strings resolved by apm itself.
	APM []string `yaml:"apm,omitempty"`

	// MCP lists MCP server identifiers. apm does not resolve these; they
	// pass through untouched for integrators.
	MCP []string `yaml:"mcp,omitempty"`
}

// HasDependencies reports whether the manifest declares anything to install.
func (m *Manifest) HasDependencies() bool {
	return len(m.Dependencies.APM) > 0
}
