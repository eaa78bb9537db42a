package knol

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// Normalize concatenates a note's fields after cleaning each part.
// It trims whitespace, lowercases, and normalizes line endings for each value
// and emits the fields in name order, so map iteration order never matters.
func Normalize(fields domain.Fields) string {
	normalizePart := func(part string) string {
		p := strings.ToLower(part)
		p = strings.ReplaceAll(p, "\r\n", "\n")
		p = strings.TrimSpace(p)
		return p
	}

	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+"\n"+normalizePart(fields[name]))
	}

	// Fields are separated by a blank line so "a"+"bc" and "ab"+"c" differ.
	return strings.Join(parts, "\n\n")
}

// Hash normalizes a note's fields and returns their SHA-256 hash as a hex string.
func Hash(fields domain.Fields) string {
	normalized := Normalize(fields)
	hashBytes := sha256.Sum256([]byte(normalized))
	return fmt.Sprintf("%x", hashBytes)
}
