package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

var slideFileRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// extractDOCX returns one segment per non-blank paragraph of word/document.xml.
func extractDOCX(data []byte, _ string) ([]string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, parseError(models.FormatDOCX, err)
	}
	defer r.Close()

	paragraphs, err := ooxmlParagraphs(strings.NewReader(r.Editable().GetContent()))
	if err != nil {
		return nil, parseError(models.FormatDOCX, err)
	}
	return paragraphs, nil
}

type slideFile struct {
	number int
	file   *zip.File
}

// extractPPTX returns one "Slide N" segment per slide that carries text.
func extractPPTX(data []byte, _ string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, parseError(models.FormatPPTX, err)
	}

	var slides []slideFile
	for _, f := range zr.File {
		m := slideFileRe.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{number: n, file: f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].number < slides[j].number })

	var segments []string
	for _, s := range slides {
		paragraphs, err := readSlide(s.file)
		if err != nil {
			log.Warn().Err(err).Int("slide", s.number).Msg("Skipping unreadable slide")
			continue
		}
		if len(paragraphs) == 0 {
			continue
		}
		segments = append(segments, fmt.Sprintf(models.SlideLocatorFormat, s.number)+"\n"+strings.Join(paragraphs, "\n"))
	}
	return segments, nil
}

func readSlide(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return ooxmlParagraphs(rc)
}

// ooxmlParagraphs collects the text runs (w:t / a:t) of every paragraph (w:p / a:p).
// Both WordprocessingML and DrawingML use the local names p and t.
// Paragraphs nested in text boxes are folded into their outer paragraph.
func ooxmlParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paragraphs []string
		buf        strings.Builder
		depth      int
		runDepth   int
		inText     bool
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				if depth == 0 {
					buf.Reset()
				}
				depth++
			case "r":
				runDepth++
			case "t":
				inText = true
			case "tab":
				// tab stops in paragraph properties share the name
				if depth > 0 && runDepth > 0 {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if depth > 0 {
					buf.WriteByte('\n')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				if runDepth > 0 {
					runDepth--
				}
			case "t":
				inText = false
			case "p":
				if depth == 0 {
					continue
				}
				depth--
				if depth == 0 {
					if p := strings.TrimSpace(buf.String()); p != "" {
						paragraphs = append(paragraphs, p)
					}
					buf.Reset()
				}
			}
		case xml.CharData:
			if inText {
				buf.Write(t)
			}
		}
	}
	return paragraphs, nil
}
