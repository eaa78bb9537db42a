package parser

import (
	"bufio"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/conorfennell/knoldeck/internal/domain"
)

const fieldPrefix = "# "

// Field names with a fixed position when formatting; others follow sorted.
var leadingFields = []string{"Front", "Back"}

type state int

const (
	seeking state = iota
	readingField
)

// ParseFile reads a note file from the given path and extracts its fields.
func ParseFile(path string) (domain.Fields, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a note from an io.Reader. A line starting with "# " opens a
// field named by the rest of the line; everything up to the next heading is
// its body, trimmed of surrounding whitespace. Text before the first heading
// is ignored, and a repeated heading overwrites the earlier body.
func Parse(r io.Reader) (domain.Fields, error) {
	scanner := bufio.NewScanner(r)
	fields := domain.Fields{}
	var currentName string
	var currentBlock []string
	currentState := seeking

	finishField := func() {
		if currentState == readingField {
			fields[currentName] = strings.TrimSpace(strings.Join(currentBlock, "\n"))
		}
		currentBlock = nil
	}

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if strings.HasPrefix(line, fieldPrefix) {
			finishField()
			currentName = strings.TrimSpace(line[len(fieldPrefix):])
			currentState = readingField
			continue
		}

		if currentState == readingField {
			currentBlock = append(currentBlock, line)
		}
	}

	finishField() // Finish the last field in the file

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return fields, nil
}

// Format renders fields back into note markdown. Front and Back come first,
// the remaining fields follow in name order, so formatting is stable.
func Format(fields domain.Fields) string {
	var b strings.Builder
	for _, name := range FieldOrder(fields) {
		b.WriteString(fieldPrefix)
		b.WriteString(name)
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(fields[name]))
		b.WriteString("\n")
	}
	return b.String()
}

// FieldOrder returns the field names in the order Format writes them.
func FieldOrder(fields domain.Fields) []string {
	names := make([]string, 0, len(fields))
	for _, name := range leadingFields {
		if _, ok := fields[name]; ok {
			names = append(names, name)
		}
	}

	var rest []string
	for name := range fields {
		if !isLeading(name) {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(names, rest...)
}

func isLeading(name string) bool {
	for _, l := range leadingFields {
		if l == name {
			return true
		}
	}
	return false
}
