package download

import (
	"errors"
	"regexp"
	"strings"

	"github.com/seiggy/apm/internal/auth"
)

// Redacted replaces credential material in sanitized output. Secrets are
// replaced whole; truncation could still leak a usable prefix.
const Redacted = "***"

var (
	urlUserCredPattern = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/@\s]+:[^/@\s]+@`)
	urlCredPattern     = regexp.MustCompile(`(?i)\b([a-z][a-z0-9+.-]*://)[^/@\s]+@`)
	tokenPattern       = regexp.MustCompile(`\b(?:ghp|gho|ghu|ghs)_[A-Za-z0-9]{4,}\b|\bgithub_pat_[A-Za-z0-9_]{4,}\b`)
	envAssignPattern   = buildEnvAssignPattern()
)

func buildEnvAssignPattern() *regexp.Regexp {
	return regexp.MustCompile(`\b(` + strings.Join(auth.CredentialEnvVars(), "|") + `)=\S+`)
}

// SanitizeString strips embedded credentials from s: userinfo in URLs,
// recognized token prefixes, and VAR=value prints of credential variables.
func SanitizeString(s string) string {
	s = urlUserCredPattern.ReplaceAllString(s, "${1}"+Redacted+"@")
	s = urlCredPattern.ReplaceAllString(s, "${1}"+Redacted+"@")
	s = tokenPattern.ReplaceAllString(s, Redacted)
	s = envAssignPattern.ReplaceAllString(s, "${1}="+Redacted)
	return s
}

// SanitizeError strips embedded credentials from an error's message. When
// nothing needed redaction the original error is returned unchanged, so
// typed errors keep working with errors.As.
func SanitizeError(err error) error {
	if err == nil {
		return nil
	}
	msg := err.Error()
	clean := SanitizeString(msg)
	if clean == msg {
		return err
	}
	return errors.New(clean)
}
