package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLines      = regexp.MustCompile(`\n{3,}`)
)

// TextProcessor provides utilities for preparing ticket text for the
// classifier: HTML stripping, UTF-8 sanitizing and safe truncation
type TextProcessor struct {
	logger     *zap.Logger
	htmlPolicy *bluemonday.Policy
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	return &TextProcessor{
		logger:     logger,
		htmlPolicy: bluemonday.StrictPolicy(),
	}
}

// StripHTML removes all markup from a helpdesk body and normalizes the
// remaining whitespace. Plain-text input passes through unchanged apart
// from whitespace normalization.
func (tp *TextProcessor) StripHTML(text string) string {
	stripped := tp.htmlPolicy.Sanitize(text)
	// The sanitizer escapes text content; undo that for the classifier.
	stripped = html.UnescapeString(stripped)
	stripped = horizontalSpace.ReplaceAllString(stripped, " ")
	stripped = blankLines.ReplaceAllString(stripped, "\n\n")
	return strings.TrimSpace(stripped)
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	// If no limit or text is already within limits, return as is
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	// First truncate to the byte limit
	truncated := text[:maxSize]

	// Ensure the truncated text ends with a valid UTF-8 sequence
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		// Remove bytes until we have valid UTF-8
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 ensures the string contains only valid UTF-8 characters
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	// Replace invalid UTF-8 sequences with the Unicode replacement character
	result := make([]rune, 0, len(text))
	for i, r := range text {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(text[i:])
			if size == 1 {
				// Skip invalid UTF-8 sequences
				continue
			}
		}
		result = append(result, r)
	}

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(string(result))))

	return string(result)
}

// ProcessText strips markup, sanitizes and truncates text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	stripped := tp.StripHTML(text)

	sanitized := tp.SanitizeUTF8(stripped)

	return tp.TruncateText(sanitized, maxSize)
}
