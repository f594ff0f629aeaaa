package parser

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

// ExtractFunc turns raw file bytes into ordered text segments. name is only used
// by extractors that describe the file instead of reading it.
type ExtractFunc func(data []byte, name string) ([]string, error)

var extractors = map[models.Format]ExtractFunc{
	models.FormatPDF:  extractPDF,
	models.FormatDOCX: extractDOCX,
	models.FormatTXT:  extractText,
	models.FormatMD:   extractText,
	models.FormatCSV:  extractCSV,
	models.FormatJSON: extractJSON,
	models.FormatPPTX: extractPPTX,
	models.FormatXLSX: extractXLSX,
	models.FormatHTML: extractHTML,
	models.FormatEPUB: extractEPUB,
	models.FormatJPG:  extractImage,
	models.FormatPNG:  extractImage,
}

var mediaTypes = map[string]models.Format{
	"application/pdf": models.FormatPDF,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document":   models.FormatDOCX,
	"application/vnd.openxmlformats-officedocument.presentationml.presentation": models.FormatPPTX,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":         models.FormatXLSX,
	"text/plain":            models.FormatTXT,
	"text/csv":              models.FormatCSV,
	"application/csv":       models.FormatCSV,
	"application/json":      models.FormatJSON,
	"text/json":             models.FormatJSON,
	"text/markdown":         models.FormatMD,
	"text/x-markdown":       models.FormatMD,
	"text/html":             models.FormatHTML,
	"application/xhtml+xml": models.FormatHTML,
	"application/epub+zip":  models.FormatEPUB,
	"image/jpeg":            models.FormatJPG,
	"image/jpg":             models.FormatJPG,
	"image/pjpeg":           models.FormatJPG,
	"image/png":             models.FormatPNG,
}

// media types that say too little on their own; the extension decides
var ambiguousMediaTypes = map[string]bool{
	"application/octet-stream":     true,
	"binary/octet-stream":          true,
	"application/zip":              true,
	"application/x-zip-compressed": true,
	"text/plain":                   true,
}

// Resolve picks the format for a file. A declared media type wins unless it is
// missing, unknown or ambiguous, in which case the extension is used.
func Resolve(name, mediaType string) models.Format {
	mt := normalizeMediaType(mediaType)
	declared, known := mediaTypes[mt]
	if known && !ambiguousMediaTypes[mt] {
		return declared
	}
	if f := models.ParseFormat(filepath.Ext(name)); f != models.FormatUnknown {
		return f
	}
	if known {
		return declared
	}
	return models.FormatUnknown
}

func normalizeMediaType(mediaType string) string {
	mediaType = strings.TrimSpace(mediaType)
	if mediaType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt, _, _ = strings.Cut(mediaType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

// Dispatcher routes uploaded files to their extractor and turns every problem,
// panics included, into an *ExtractionFailure.
type Dispatcher struct {
	extractors map[models.Format]ExtractFunc
	maxBytes   int64
	now        func() time.Time
}

func NewDispatcher(maxBytes int64) *Dispatcher {
	return &Dispatcher{
		extractors: extractors,
		maxBytes:   maxBytes,
		now:        time.Now,
	}
}

func (d *Dispatcher) Dispatch(file models.UploadedFile) (doc models.ExtractedDocument, err error) {
	format := Resolve(file.Name, file.MediaType)
	fail := func(cause error) error {
		return &ExtractionFailure{Filename: file.Name, Format: format, Cause: cause}
	}

	extract, ok := d.extractors[format]
	if !ok {
		return doc, fail(fmt.Errorf("%w: %q (media type %q)", ErrUnsupportedFormat, filepath.Ext(file.Name), file.MediaType))
	}
	if d.maxBytes > 0 && file.Size() > d.maxBytes {
		return doc, fail(fmt.Errorf("%w: %d bytes (max %d)", ErrTooLarge, file.Size(), d.maxBytes))
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("file", file.Name).Interface("panic", r).Msg("Extractor panicked")
			doc = models.ExtractedDocument{}
			err = fail(fmt.Errorf("%w: %s: %v", ErrParse, format, r))
		}
	}()

	start := d.now()
	segments, err := extract(file.Data, file.Name)
	if err != nil {
		return doc, fail(err)
	}
	segments = cleanSegments(segments)
	if len(segments) == 0 {
		return doc, fail(ErrEmptyExtraction)
	}

	end := d.now()
	doc = models.ExtractedDocument{
		SourceName:  file.Name,
		Format:      format,
		Segments:    segments,
		ExtractedAt: end,
		Duration:    end.Sub(start),
	}
	log.Debug().Str("file", file.Name).Str("format", format.String()).Int("segments", len(segments)).Msg("Extracted document")
	return doc, nil
}

// DispatchAll extracts files one after another; a failing file never stops the rest.
func (d *Dispatcher) DispatchAll(files []models.UploadedFile) ([]models.ExtractedDocument, []error) {
	var docs []models.ExtractedDocument
	var errs []error
	for _, f := range files {
		doc, err := d.Dispatch(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		docs = append(docs, doc)
	}
	return docs, errs
}

// SupportedExtensions returns ".pdf", ".docx", ... sorted.
func SupportedExtensions() []string {
	var exts []string
	for f := range extractors {
		exts = append(exts, "."+f.String())
	}
	sort.Strings(exts)
	return exts
}

// LoadFile reads a local file into an UploadedFile. The media type is left empty
// so the extension decides the format.
func LoadFile(path string) (models.UploadedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.UploadedFile{}, err
	}
	return models.UploadedFile{
		Name:       filepath.Base(path),
		Data:       data,
		UploadedAt: time.Now(),
	}, nil
}

func cleanSegments(segments []string) []string {
	out := make([]string, 0, len(segments))
	for _, s := range segments {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
