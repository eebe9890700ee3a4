package refs

import "regexp"

// RefType classifies a git ref string.
type RefType string

const (
	RefBranch RefType = "branch"
	RefTag    RefType = "tag"
	RefCommit RefType = "commit"
)

// DefaultRef is the branch assumed when a reference names no git ref.
const DefaultRef = "main"

// tagPattern matches version-shaped refs: an optional leading v, then two or
// more dot-separated numeric components, with optional pre-release or build
// suffix.
var tagPattern = regexp.MustCompile(`^v?\d+(\.\d+)+(-[0-9A-Za-z.-]+)?(\+[0-9A-Za-z.-]+)?$`)

// DetectRefType classifies a ref heuristically: 7 to 40 hex characters is a
// commit SHA, a version-shaped string is a tag, anything else is a branch.
func DetectRefType(ref string) RefType {
	if isHex(ref) && len(ref) >= 7 && len(ref) <= 40 {
		return RefCommit
	}
	if tagPattern.MatchString(ref) {
		return RefTag
	}
	return RefBranch
}

func isHex(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		case c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
