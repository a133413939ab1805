package ocr

import (
	"image"
	"strings"
)

// TokenAnnotation is one OCR word with its bounding box in image coordinates.
type TokenAnnotation struct {
	Text string
	Box  image.Rectangle
}

// TextSource is the tagged input of every parsing entry point: either a
// whole raw text blob, or a list of annotated tokens when the OCR engine
// supplied word geometry. An empty source is valid input (a failed OCR call
// degrades to "no text", never to a transport error).
type TextSource struct {
	text      string
	tokens    []TokenAnnotation
	annotated bool
}

// WholeText wraps a raw OCR text blob.
func WholeText(s string) TextSource {
	return TextSource{text: s}
}

// AnnotatedTokens wraps per-word OCR annotations.
func AnnotatedTokens(tokens []TokenAnnotation) TextSource {
	return TextSource{tokens: tokens, annotated: true}
}

// Annotated reports whether per-token geometry is available.
func (s TextSource) Annotated() bool { return s.annotated }

// Tokens returns the annotations, nil for a whole-text source.
func (s TextSource) Tokens() []TokenAnnotation { return s.tokens }

// Text returns the raw blob, joining token texts for an annotated source so
// whole-text parsers always have something to work on.
func (s TextSource) Text() string {
	if !s.annotated {
		return s.text
	}
	parts := make([]string, 0, len(s.tokens))
	for _, t := range s.tokens {
		parts = append(parts, t.Text)
	}
	return strings.Join(parts, " ")
}

// Empty reports whether the source carries no text at all.
func (s TextSource) Empty() bool {
	if s.annotated {
		return len(s.tokens) == 0
	}
	return strings.TrimSpace(s.text) == ""
}
