package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
)

func TestExtractText_Paragraphs(t *testing.T) {
	d := NewDispatcher(0)
	doc, err := d.Dispatch(upload("notes.txt", "text/plain", []byte("Intro\n\nBody\n\nConclusion")))
	require.NoError(t, err)

	assert.Equal(t, models.FormatTXT, doc.Format)
	assert.Equal(t, []string{"Intro", "Body", "Conclusion"}, doc.Segments)
}

func TestExtractText_BOMAndLineEndings(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("first line\r\nstill first\r\n\r\n  second  \r\r\nthird")...)
	segments, err := extractText(data, "x.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"first line\nstill first", "second", "third"}, segments)
}

func TestExtractCSV_RowsWithoutHeader(t *testing.T) {
	d := NewDispatcher(0)
	doc, err := d.Dispatch(upload("people.csv", "", []byte("name,age\nAlice,30\nBob, 41\n")))
	require.NoError(t, err)

	require.Len(t, doc.Segments, 2)
	assert.Contains(t, doc.Segments[0], "Alice")
	assert.Contains(t, doc.Segments[0], "30")
	assert.Equal(t, "Bob 41", doc.Segments[1])
	for _, s := range doc.Segments {
		assert.NotContains(t, s, "name")
	}
}

func TestExtractJSON_PrettyPrintsInOrder(t *testing.T) {
	segments, err := extractJSON([]byte(`{"zeta":1,"alpha":[true,null]}`), "x.json")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "{\n  \"zeta\": 1,\n  \"alpha\": [\n    true,\n    null\n  ]\n}", segments[0])
}

func TestExtractImage_Placeholder(t *testing.T) {
	d := NewDispatcher(0)
	doc, err := d.Dispatch(upload("cat.png", "image/png", []byte{0x89}))
	require.NoError(t, err)
	assert.Equal(t, []string{"[Image file: cat.png]"}, doc.Segments)
}

func TestExtractPDF_PageLocators(t *testing.T) {
	segments, err := extractPDF(buildPDF(t, "First page", "", "Third page"), "x.pdf")
	require.NoError(t, err)
	require.Len(t, segments, 2)

	assert.Contains(t, segments[0], "Page 1")
	assert.Contains(t, segments[0], "First page")
	assert.Contains(t, segments[1], "Page 3")
	assert.Contains(t, segments[1], "Third page")
}

func TestExtractDOCX_Paragraphs(t *testing.T) {
	body := `<w:p><w:pPr><w:tabs><w:tab w:val="left" w:pos="720"/></w:tabs></w:pPr><w:r><w:t>Hello</w:t></w:r><w:r><w:tab/><w:t xml:space="preserve">world</w:t></w:r></w:p>` +
		`<w:p></w:p>` +
		`<w:p><w:r><w:t>Second</w:t><w:br/><w:t>line</w:t></w:r></w:p>`

	segments, err := extractDOCX(buildDOCX(t, body), "x.docx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hello\tworld", "Second\nline"}, segments)
}

func TestExtractPPTX_NumericSlideOrder(t *testing.T) {
	data := buildZip(t,
		zipEntry{"ppt/slides/slide10.xml", slideXML("Tenth")},
		zipEntry{"ppt/slides/slide2.xml", slideXML()},
		zipEntry{"ppt/slides/slide1.xml", slideXML("Title", "Subtitle")},
		zipEntry{"ppt/slides/_rels/slide1.xml.rels", "<Relationships/>"},
		zipEntry{"ppt/slideLayouts/slideLayout1.xml", slideXML("Layout text")},
	)

	segments, err := extractPPTX(data, "x.pptx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Slide 1\nTitle\nSubtitle", "Slide 10\nTenth"}, segments)
}

func TestExtractXLSX_AllSheets(t *testing.T) {
	segments, err := extractXLSX(buildXLSX(t), "x.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"Alice 30", "Bob 41", "Paris"}, segments)
}

func TestReadSheetsTealeg(t *testing.T) {
	sheets, err := readSheetsTealeg(buildXLSX(t))
	require.NoError(t, err)
	require.Len(t, sheets, 2)

	var lines []string
	for _, row := range sheets[0] {
		if line := joinCells(row); line != "" {
			lines = append(lines, line)
		}
	}
	assert.Equal(t, []string{"name age", "Alice 30", "Bob 41"}, lines)
}

func TestExtractHTML_VisibleTextOnly(t *testing.T) {
	page := `<!DOCTYPE html><html><head><title>Title</title><style>body{}</style><script>alert(1)</script></head>
<body><!-- hidden --><h1>Heading</h1><p>Some   spaced
text</p><noscript>enable js</noscript></body></html>`

	segments, err := extractHTML([]byte(page), "x.html")
	require.NoError(t, err)
	require.Len(t, segments, 1)
	assert.Equal(t, "Heading\nSome spaced text", segments[0])
}

func TestExtractHTML_DropsHeadMetadata(t *testing.T) {
	page := `<html><head><title>Secret Title</title><meta name="author" content="x"></head><body><p>Hi</p></body></html>`

	segments, err := extractHTML([]byte(page), "x.html")
	require.NoError(t, err)
	assert.Equal(t, []string{"Hi"}, segments)
}

func TestExtractEPUB_SpineOrder(t *testing.T) {
	data := buildEPUB(t, []string{"ch2", "ch1"}, map[string]string{
		"ch1": "<h1>One</h1><p>first chapter</p>",
		"ch2": "<h1>Two</h1><p>second chapter</p>",
	})

	segments, err := extractEPUB(data, "x.epub")
	require.NoError(t, err)
	assert.Equal(t, []string{"Two\nsecond chapter", "One\nfirst chapter"}, segments)
}

func TestResolveHref(t *testing.T) {
	assert.Equal(t, "OEBPS/text/ch%1.xhtml", resolveHref("OEBPS", "text/ch%251.xhtml"))
	assert.Equal(t, "OEBPS/ch1.xhtml", resolveHref("OEBPS", "ch1.xhtml#sec2"))
	assert.Equal(t, "images/a.xhtml", resolveHref("OEBPS", "../images/a.xhtml"))
	assert.Equal(t, "ch1.xhtml", resolveHref(".", "ch1.xhtml"))
}
