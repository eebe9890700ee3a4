package config

import (
	"errors"
	"fmt"

	"github.com/seiggy/apm/internal/refs"
)

// ErrAlreadyDeclared reports an added reference whose unique key is already
// in the manifest.
var ErrAlreadyDeclared = errors.New("already declared")

// AddDependency appends a dependency reference to the manifest, keeping the
// existing declaration order. Adding a reference whose unique key is already
// declared is an error; the earlier declaration keeps its position and wins.
// The parser supplies the host policy; nil uses the default.
func AddDependency(m *Manifest, raw string, parser *refs.Parser) error {
	if parser == nil {
		parser = &refs.Parser{}
	}
	ref, err := parser.Parse(raw)
	if err != nil {
		return err
	}

	key := ref.UniqueKey()
	for _, existing := range m.Dependencies.APM {
		er, perr := parser.Parse(existing)
		if perr != nil {
			continue
		}
		if er.UniqueKey() == key {
			return fmt.Errorf("'%s' is %w as '%s'", raw, ErrAlreadyDeclared, existing)
		}
	}

	m.Dependencies.APM = append(m.Dependencies.APM, raw)
	return nil
}

// RemoveDependency removes the dependency matching needle, which may be the
// declared string, its alias, its display name, or its unique key. The
// remaining entries keep their relative order. Returns the declaration that
// was removed.
func RemoveDependency(m *Manifest, needle string, parser *refs.Parser) (string, error) {
	if parser == nil {
		parser = &refs.Parser{}
	}
	for i, existing := range m.Dependencies.APM {
		if existing == needle {
			m.Dependencies.APM = append(m.Dependencies.APM[:i], m.Dependencies.APM[i+1:]...)
			return existing, nil
		}
		er, perr := parser.Parse(existing)
		if perr != nil {
			continue
		}
		if er.UniqueKey() == needle || er.Alias == needle || er.DisplayName() == needle {
			m.Dependencies.APM = append(m.Dependencies.APM[:i], m.Dependencies.APM[i+1:]...)
			return existing, nil
		}
	}
	return "", fmt.Errorf("no dependency matches '%s'", needle)
}
