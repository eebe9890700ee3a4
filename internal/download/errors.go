package download

import (
	"errors"
	"fmt"
)

// AuthError reports a rejected or missing credential for a host.
type AuthError struct {
	Host     string
	Guidance string
	Err      error
}

func (e *AuthError) Error() string {
	msg := fmt.Sprintf("authentication failed for %s", e.Host)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Guidance != "" {
		msg += " — " + e.Guidance
	}
	return msg
}

func (e *AuthError) Unwrap() error { return e.Err }

// NotFoundError reports content that does not exist at the requested ref.
type NotFoundError struct {
	Resource string
	Ref      string
}

func (e *NotFoundError) Error() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s was not found", e.Resource)
	}
	return fmt.Sprintf("%s was not found at ref '%s'", e.Resource, e.Ref)
}

// CloneError reports that every clone transport failed for a repository.
type CloneError struct {
	RepoURL  string
	Attempts []string
	Guidance string
	Err      error
}

func (e *CloneError) Error() string {
	msg := fmt.Sprintf("cloning %s failed", e.RepoURL)
	for _, attempt := range e.Attempts {
		msg += "\n  " + attempt
	}
	if e.Guidance != "" {
		msg += "\n" + e.Guidance
	}
	return msg
}

func (e *CloneError) Unwrap() error { return e.Err }

// isNotFound reports whether err is, or wraps, a NotFoundError.
func isNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
