// Package sanitize normalizes user-provided strings into safe filesystem
// names. Every mode is idempotent: Sanitize(Sanitize(x)) == Sanitize(x).
package sanitize

import "strings"

const (
	// maxNameBytes is the truncation threshold for file/dir names: long
	// enough to leave room for a -NNN version suffix plus a .tmp extension.
	maxNameBytes = 240
	headKeep     = 236
	tailKeep     = 4

	maxDisplayName = 255
	maxDescription = 65535
)

// FileName normalizes a string into a safe file basename: truncate to
// maxNameBytes preserving a tail, fold spaces and hyphens to underscore,
// strip everything outside [A-Za-z0-9._], lowercase.
func FileName(s string) string {
	s = truncate(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = keep(s, isFileNameChar)
	return strings.ToLower(s)
}

// DirName normalizes a string into a safe directory basename, keeping only
// [A-Za-z0-9_] (no '.', no '-').
func DirName(s string) string {
	s = truncate(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = keep(s, isDirNameChar)
	return strings.ToLower(s)
}

// DirNamePermitIncrement is like DirName but also retains '-', so that a
// later "-NNN" version suffix applied by the versioned mover survives a
// re-sanitization pass.
func DirNamePermitIncrement(s string) string {
	s = truncate(s)
	s = strings.ReplaceAll(s, " ", "_")
	s = keep(s, isDirNameIncrementChar)
	return strings.ToLower(s)
}

// Name caps a human-readable display name (e.g. Project.Name) at
// maxDisplayName characters with no character filtering.
func Name(s string) string {
	return truncateRunes(s, maxDisplayName)
}

// Description caps a free-text description at maxDescription characters
// with no character filtering. No Unicode normalization is performed —
// left unspecified per the source behavior.
func Description(s string) string {
	return truncateRunes(s, maxDescription)
}

func truncate(s string) string {
	if len(s) <= maxNameBytes {
		return s
	}
	return s[:headKeep] + s[len(s)-tailKeep:]
}

func truncateRunes(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

func keep(s string, allowed func(rune) bool) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if allowed(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isFileNameChar(r rune) bool {
	return isAlnum(r) || r == '.' || r == '_'
}

func isDirNameChar(r rune) bool {
	return isAlnum(r) || r == '_'
}

func isDirNameIncrementChar(r rune) bool {
	return isAlnum(r) || r == '_' || r == '-'
}
