// Package security checks the names report artifacts are written under.
package security

import (
	"fmt"
	"path/filepath"
	"strings"
)

// ValidateArtifactName checks that name is a relative path that stays
// inside the output directory and whose every element is already a
// sanitized file name.
func ValidateArtifactName(name string) error {
	if name == "" {
		return fmt.Errorf("empty artifact name")
	}
	if !filepath.IsLocal(name) {
		return fmt.Errorf("artifact name %q escapes the output directory", name)
	}
	for _, elem := range strings.Split(filepath.ToSlash(name), "/") {
		if SanitizeFilename(elem) != elem {
			return fmt.Errorf("artifact name %q has unsafe element %q", name, elem)
		}
	}
	return nil
}

// SanitizeFilename makes a safe file name from an arbitrary string. Runs of
// characters other than ASCII letters, digits, dot, underscore or dash
// become one underscore, and the result is capped at 128 bytes.
func SanitizeFilename(s string) string {
	if s == "" {
		return "unknown"
	}
	const maxLen = 128
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		if b.Len() >= maxLen {
			break
		}
		switch {
		case (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'),
			r == '.' || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			b.WriteRune(r)
			lastUnderscore = true
		default:
			if !lastUnderscore {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "._")
	if out == "" {
		return "unknown"
	}
	return out
}
