package export

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"docchat/internal/config"
	"docchat/internal/helper"
)

const timestampLayout = "20060102-150405"

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// FileName returns response_<YYYYmmdd-HHMMSS>.<ext> for the given time.
func FileName(now time.Time, format string) string {
	ext := config.FormatText
	if format == config.FormatHTML {
		ext = config.FormatHTML
	}
	return fmt.Sprintf("response_%s.%s", now.Format(timestampLayout), ext)
}

// SaveResponse writes one answer to dir. Plain text is written as is; the html
// format renders the answer's markdown into a standalone page.
func SaveResponse(dir, content, format string, now time.Time) (string, error) {
	if dir == "" {
		dir = "."
	}
	if err := helper.CreateFolder(dir); err != nil {
		return "", err
	}

	data := []byte(content)
	if format == config.FormatHTML {
		rendered, err := RenderHTML(content, now)
		if err != nil {
			return "", err
		}
		data = rendered
	}

	path := filepath.Join(dir, FileName(now, format))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write response: %w", err)
	}
	log.Info().Str("path", path).Msg("Saved response")
	return path, nil
}

// RenderHTML converts markdown to a minimal HTML document.
func RenderHTML(content string, now time.Time) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(content), &body); err != nil {
		return nil, fmt.Errorf("render markdown: %w", err)
	}

	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&page, "<title>%s</title>\n", html.EscapeString("Response "+now.Format(time.RFC3339)))
	page.WriteString("</head>\n<body>\n")
	page.Write(body.Bytes())
	page.WriteString("</body>\n</html>\n")
	return page.Bytes(), nil
}
