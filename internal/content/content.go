// Package content defines the recognized kinds of AI-agent content and the
// well-known file names used across the project.
package content

import (
	"sort"
	"strings"
)

// Kind identifies a category of reusable AI-agent content.
type Kind string

const (
	KindPrompt      Kind = "prompt"
	KindInstruction Kind = "instruction"
	KindChatMode    Kind = "chatmode"
	KindAgent       Kind = "agent"
)

// Well-known file and directory names.
const (
	ManifestName   = "apm.yml"
	LockName       = "apm.lock"
	ModulesDirName = "apm_modules"

	// DefaultPromptSuffix is appended when retrying an extension-less
	// virtual path as a single prompt file.
	DefaultPromptSuffix = ".prompt.md"

	// CollectionSuffix marks a collection manifest next to a virtual path.
	CollectionSuffix = ".collection.yml"

	// SkillMarker identifies a directory that packages a standalone skill.
	SkillMarker = "SKILL.md"
)

// kindExtensions maps compound file extensions to content kinds.
var kindExtensions = map[string]Kind{
	".prompt.md":       KindPrompt,
	".instructions.md": KindInstruction,
	".chatmode.md":     KindChatMode,
	".agent.md":        KindAgent,
}

// DetectKind returns the content kind for a file path based on its compound
// extension, and whether the extension is recognized.
func DetectKind(path string) (Kind, bool) {
	for ext, kind := range kindExtensions {
		if strings.HasSuffix(path, ext) {
			return kind, true
		}
	}
	return "", false
}

// HasRecognizedExtension reports whether the path ends in one of the known
// content extensions.
func HasRecognizedExtension(path string) bool {
	_, ok := DetectKind(path)
	return ok
}

// HasAnyExtension reports whether the final path segment contains a file
// extension of any sort. A leading dot alone (".hidden") does not count.
func HasAnyExtension(path string) bool {
	segment := path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	return strings.LastIndex(segment, ".") > 0
}

// Stem returns the file name with its recognized compound extension removed:
// "prompts/review.prompt.md" becomes "review". Paths without a recognized
// extension return the bare file name.
func Stem(path string) string {
	segment := path
	if idx := strings.LastIndex(segment, "/"); idx >= 0 {
		segment = segment[idx+1:]
	}
	for ext := range kindExtensions {
		if strings.HasSuffix(segment, ext) {
			return strings.TrimSuffix(segment, ext)
		}
	}
	return segment
}

// KnownExtensions returns the recognized compound extensions in sorted order,
// for use in error messages.
func KnownExtensions() []string {
	exts := make([]string, 0, len(kindExtensions))
	for ext := range kindExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
