package models

import (
	"strings"
	"time"
)

// Format is the closed set of file types the extractors understand.
type Format int

const (
	FormatUnknown Format = iota
	FormatPDF
	FormatDOCX
	FormatTXT
	FormatCSV
	FormatJSON
	FormatMD
	FormatPPTX
	FormatXLSX
	FormatHTML
	FormatEPUB
	FormatJPG
	FormatPNG
)

var formatNames = map[Format]string{
	FormatPDF:  "pdf",
	FormatDOCX: "docx",
	FormatTXT:  "txt",
	FormatCSV:  "csv",
	FormatJSON: "json",
	FormatMD:   "md",
	FormatPPTX: "pptx",
	FormatXLSX: "xlsx",
	FormatHTML: "html",
	FormatEPUB: "epub",
	FormatJPG:  "jpg",
	FormatPNG:  "png",
}

// extension aliases, without the leading dot
var formatAliases = map[string]Format{
	"markdown": FormatMD,
	"htm":      FormatHTML,
	"xhtml":    FormatHTML,
	"jpeg":     FormatJPG,
	"text":     FormatTXT,
}

// SupportedFormats lists every known format in a stable order.
func SupportedFormats() []Format {
	return []Format{
		FormatPDF, FormatDOCX, FormatTXT, FormatCSV, FormatJSON, FormatMD,
		FormatPPTX, FormatXLSX, FormatHTML, FormatEPUB, FormatJPG, FormatPNG,
	}
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "unknown"
}

// ParseFormat maps an extension ("PDF", ".pdf", "jpeg") to a Format.
func ParseFormat(ext string) Format {
	ext = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(ext)), ".")
	if ext == "" {
		return FormatUnknown
	}
	for f, name := range formatNames {
		if name == ext {
			return f
		}
	}
	if f, ok := formatAliases[ext]; ok {
		return f
	}
	return FormatUnknown
}

// IsImage reports whether the format is handled by the placeholder policy.
func (f Format) IsImage() bool {
	return f == FormatJPG || f == FormatPNG
}

// UploadedFile is a file as received from the user. It is not modified after upload.
type UploadedFile struct {
	Name       string
	MediaType  string
	Data       []byte
	UploadedAt time.Time
}

// Size returns the payload length in bytes.
func (f UploadedFile) Size() int64 {
	return int64(len(f.Data))
}

// ExtractedDocument is the text pulled out of one UploadedFile.
// Segments is never empty for a successful extraction.
type ExtractedDocument struct {
	SourceName  string
	Format      Format
	Segments    []string
	ExtractedAt time.Time
	Duration    time.Duration
}

// CharCount returns the total number of characters across all segments.
func (d ExtractedDocument) CharCount() int {
	n := 0
	for _, s := range d.Segments {
		n += len([]rune(s))
	}
	return n
}

// FileStats are the per-file numbers shown by the stats command.
type FileStats struct {
	Name           string        `json:"name"`
	Format         string        `json:"format"`
	Size           int64         `json:"size"`
	Segments       int           `json:"segments"`
	Characters     int           `json:"characters"`
	ProcessingTime time.Duration `json:"processing_time"`
}
