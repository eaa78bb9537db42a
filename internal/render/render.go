// Package render turns note fields into the HTML shown during review.
package render

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/conorfennell/knoldeck/internal/domain"
)

// ErrMissingField is returned when a note lacks a field its card displays.
var ErrMissingField = errors.New("missing field")

const (
	frontField = "Front"
	backField  = "Back"
	separator  = "\n\n---\n\n"
)

var md = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Front renders the question side of a card.
func Front(fields domain.Fields) (string, error) {
	front, err := field(fields, frontField)
	if err != nil {
		return "", err
	}
	return toHTML(front)
}

// Back renders the answer side: the front, a horizontal rule, then the back.
func Back(fields domain.Fields) (string, error) {
	front, err := field(fields, frontField)
	if err != nil {
		return "", err
	}
	back, err := field(fields, backField)
	if err != nil {
		return "", err
	}
	return toHTML(front + separator + back)
}

func field(fields domain.Fields, name string) (string, error) {
	v, ok := fields[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingField, name)
	}
	return v, nil
}

func toHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return buf.String(), nil
}
