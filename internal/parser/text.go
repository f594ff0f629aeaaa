package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"docchat/internal/models"
)

var (
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
	blankLine = regexp.MustCompile(`\n\s*\n`)
)

// extractText handles .txt and .md: one segment per blank-line separated paragraph.
func extractText(data []byte, _ string) ([]string, error) {
	text, err := decodeUTF8(data)
	if err != nil {
		return nil, err
	}
	return splitParagraphs(text), nil
}

func decodeUTF8(data []byte) (string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", ErrDecode)
	}
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n"), nil
}

func splitParagraphs(text string) []string {
	var paragraphs []string
	for _, p := range blankLine.Split(text, -1) {
		if p = strings.TrimSpace(p); p != "" {
			paragraphs = append(paragraphs, p)
		}
	}
	return paragraphs
}

// extractJSON validates the document and re-indents it, keeping key order.
func extractJSON(data []byte, _ string) ([]string, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !json.Valid(data) {
		return nil, fmt.Errorf("%w: %s: invalid syntax", ErrParse, models.FormatJSON)
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, data, "", "  "); err != nil {
		return nil, parseError(models.FormatJSON, err)
	}
	return []string{strings.TrimSpace(buf.String())}, nil
}

// extractImage never reads the pixels; the file is represented by a placeholder.
func extractImage(_ []byte, name string) ([]string, error) {
	return []string{fmt.Sprintf(models.ImagePlaceholderFormat, name)}, nil
}
