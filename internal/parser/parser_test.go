package parser

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
)

func upload(name, mediaType string, data []byte) models.UploadedFile {
	return models.UploadedFile{Name: name, MediaType: mediaType, Data: data}
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name      string
		file      string
		mediaType string
		want      models.Format
	}{
		{name: "extension only", file: "report.PDF", want: models.FormatPDF},
		{name: "media type wins over extension", file: "notes.txt", mediaType: "text/markdown", want: models.FormatMD},
		{name: "media type parameters stripped", file: "page", mediaType: "text/html; charset=utf-8", want: models.FormatHTML},
		{name: "octet stream falls back to extension", file: "deck.pptx", mediaType: "application/octet-stream", want: models.FormatPPTX},
		{name: "zip falls back to extension", file: "book.epub", mediaType: "application/zip", want: models.FormatEPUB},
		{name: "text plain defers to csv extension", file: "data.csv", mediaType: "text/plain", want: models.FormatCSV},
		{name: "text plain without extension", file: "README", mediaType: "text/plain", want: models.FormatTXT},
		{name: "unknown media type falls back", file: "photo.jpeg", mediaType: "application/x-unknown", want: models.FormatJPG},
		{name: "markdown alias", file: "doc.markdown", want: models.FormatMD},
		{name: "unknown everything", file: "archive.tar.gz", mediaType: "application/gzip", want: models.FormatUnknown},
		{name: "no extension no media type", file: "Makefile", want: models.FormatUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.file, tt.mediaType))
		})
	}
}

func TestDispatch_EverySupportedFormat(t *testing.T) {
	files := []models.UploadedFile{
		upload("a.pdf", "", buildPDF(t, "Hello PDF")),
		upload("a.docx", "", buildDOCX(t, `<w:p><w:r><w:t>Hello DOCX</w:t></w:r></w:p>`)),
		upload("a.txt", "", []byte("Hello TXT")),
		upload("a.csv", "", []byte("name,age\nAlice,30\n")),
		upload("a.json", "", []byte(`{"hello":"json"}`)),
		upload("a.md", "", []byte("# Hello MD")),
		upload("a.pptx", "", buildZip(t, zipEntry{"ppt/slides/slide1.xml", slideXML("Hello PPTX")})),
		upload("a.xlsx", "", buildXLSX(t)),
		upload("a.html", "", []byte("<html><body><p>Hello HTML</p></body></html>")),
		upload("a.epub", "", buildEPUB(t, []string{"ch1"}, map[string]string{"ch1": "<p>Hello EPUB</p>"})),
		upload("a.jpg", "", []byte{0xFF, 0xD8, 0xFF}),
		upload("a.png", "", []byte{0x89, 'P', 'N', 'G'}),
	}
	require.Len(t, files, len(models.SupportedFormats()))

	d := NewDispatcher(0)
	for _, f := range files {
		t.Run(f.Name, func(t *testing.T) {
			doc, err := d.Dispatch(f)
			require.NoError(t, err)
			assert.Equal(t, f.Name, doc.SourceName)
			assert.NotEmpty(t, doc.Segments)
			assert.False(t, doc.ExtractedAt.IsZero())
		})
	}
}

func TestDispatch_UnsupportedFormat(t *testing.T) {
	d := NewDispatcher(0)
	for _, name := range []string{"archive.zip", "binary.exe", "noext", "sheet.ods"} {
		var doc models.ExtractedDocument
		var err error
		require.NotPanics(t, func() {
			doc, err = d.Dispatch(upload(name, "", []byte("whatever")))
		})
		require.ErrorIs(t, err, ErrUnsupportedFormat)
		assert.Empty(t, doc.Segments)

		var failure *ExtractionFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, name, failure.Filename)
	}
}

func TestDispatch_Failures(t *testing.T) {
	tests := []struct {
		name string
		file models.UploadedFile
		want error
	}{
		{name: "invalid utf8 text", file: upload("bad.txt", "", []byte{0xff, 0xfe, 0xfd}), want: ErrDecode},
		{name: "invalid json", file: upload("bad.json", "", []byte(`{"a":`)), want: ErrParse},
		{name: "ragged csv", file: upload("bad.csv", "", []byte("a,b\n1,2,3\n")), want: ErrParse},
		{name: "corrupt pdf", file: upload("bad.pdf", "", []byte("not a pdf at all")), want: ErrParse},
		{name: "corrupt docx", file: upload("bad.docx", "", []byte("not a zip")), want: ErrParse},
		{name: "corrupt pptx", file: upload("bad.pptx", "", []byte("not a zip")), want: ErrParse},
		{name: "corrupt xlsx", file: upload("bad.xlsx", "", []byte("not a zip")), want: ErrParse},
		{name: "epub without container", file: upload("bad.epub", "", buildZip(t, zipEntry{"mimetype", "application/epub+zip"})), want: ErrParse},
		{name: "blank text", file: upload("empty.txt", "", []byte("  \n\n \t\n")), want: ErrEmptyExtraction},
		{name: "header only csv", file: upload("header.csv", "", []byte("name,age\n")), want: ErrEmptyExtraction},
		{name: "pdf without text", file: upload("blank.pdf", "", buildPDF(t, "")), want: ErrEmptyExtraction},
		{name: "html without visible text", file: upload("blank.html", "", []byte("<script>var a = 1;</script>")), want: ErrEmptyExtraction},
	}

	d := NewDispatcher(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Dispatch(tt.file)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)

			var failure *ExtractionFailure
			require.ErrorAs(t, err, &failure)
			assert.Equal(t, tt.file.Name, failure.Filename)
		})
	}
}

func TestDispatch_TooLarge(t *testing.T) {
	d := NewDispatcher(4)
	_, err := d.Dispatch(upload("big.txt", "", []byte("hello world")))
	require.ErrorIs(t, err, ErrTooLarge)
}

func TestDispatch_RecoversFromExtractorPanic(t *testing.T) {
	d := NewDispatcher(0)
	d.extractors = map[models.Format]ExtractFunc{
		models.FormatTXT: func([]byte, string) ([]string, error) { panic("boom") },
	}

	var err error
	require.NotPanics(t, func() {
		_, err = d.Dispatch(upload("a.txt", "", []byte("x")))
	})
	require.ErrorIs(t, err, ErrParse)
	assert.Contains(t, err.Error(), "boom")
}

func TestDispatchAll_IsolatesFailures(t *testing.T) {
	d := NewDispatcher(0)
	docs, errs := d.DispatchAll([]models.UploadedFile{
		upload("one.txt", "", []byte("first")),
		upload("broken.json", "", []byte("{")),
		upload("mystery.xyz", "", []byte("???")),
		upload("two.md", "", []byte("second")),
	})

	require.Len(t, docs, 2)
	assert.Equal(t, "one.txt", docs[0].SourceName)
	assert.Equal(t, "two.md", docs[1].SourceName)
	require.Len(t, errs, 2)
	assert.True(t, errors.Is(errs[0], ErrParse))
	assert.True(t, errors.Is(errs[1], ErrUnsupportedFormat))
}

func TestSupportedExtensions(t *testing.T) {
	exts := SupportedExtensions()
	assert.Len(t, exts, 12)
	assert.Contains(t, exts, ".epub")
	assert.Contains(t, exts, ".png")
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	f, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "notes.md", f.Name)
	assert.Equal(t, int64(5), f.Size())
	assert.Empty(t, f.MediaType)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}
