package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"docchat/internal/models"
)

var hiddenElements = map[atom.Atom]bool{
	atom.Head:     true,
	atom.Script:   true,
	atom.Style:    true,
	atom.Noscript: true,
	atom.Template: true,
}

// extractHTML returns the visible text of the page as a single segment.
func extractHTML(data []byte, _ string) ([]string, error) {
	text, err := visibleText(bytes.NewReader(data))
	if err != nil {
		return nil, parseError(models.FormatHTML, err)
	}
	return []string{text}, nil
}

// visibleText drops tags and non-rendered elements and collapses whitespace,
// keeping one line per text node.
func visibleText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.ElementNode:
			if hiddenElements[n.DataAtom] {
				return
			}
		case html.CommentNode, html.DoctypeNode:
			return
		case html.TextNode:
			if line := strings.Join(strings.Fields(n.Data), " "); line != "" {
				lines = append(lines, line)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n"), nil
}

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubItem struct {
	ID        string `xml:"id,attr"`
	Href      string `xml:"href,attr"`
	MediaType string `xml:"media-type,attr"`
}

type epubPackage struct {
	Manifest []epubItem `xml:"manifest>item"`
	Spine    []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func (i epubItem) isDocument() bool {
	mt := strings.ToLower(i.MediaType)
	return mt == "application/xhtml+xml" || mt == "text/html"
}

// extractEPUB returns one segment per XHTML document of the book, in reading order.
func extractEPUB(data []byte, _ string) ([]string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, parseError(models.FormatEPUB, err)
	}
	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	var container epubContainer
	if err := decodeZipXML(files, "META-INF/container.xml", &container); err != nil {
		return nil, parseError(models.FormatEPUB, err)
	}
	if len(container.Rootfiles) == 0 || container.Rootfiles[0].FullPath == "" {
		return nil, parseError(models.FormatEPUB, errors.New("container.xml lists no rootfile"))
	}
	opfPath := container.Rootfiles[0].FullPath

	var pkg epubPackage
	if err := decodeZipXML(files, opfPath, &pkg); err != nil {
		return nil, parseError(models.FormatEPUB, err)
	}

	var segments []string
	for _, item := range readingOrder(pkg) {
		name := resolveHref(path.Dir(opfPath), item.Href)
		f, ok := files[name]
		if !ok {
			log.Warn().Str("item", name).Msg("EPUB manifest item missing from archive")
			continue
		}
		text, err := zipVisibleText(f)
		if err != nil {
			log.Warn().Err(err).Str("item", name).Msg("Skipping unreadable EPUB item")
			continue
		}
		if text != "" {
			segments = append(segments, text)
		}
	}
	return segments, nil
}

// readingOrder follows the spine; books without one fall back to manifest order.
func readingOrder(pkg epubPackage) []epubItem {
	byID := make(map[string]epubItem, len(pkg.Manifest))
	for _, item := range pkg.Manifest {
		byID[item.ID] = item
	}

	var items []epubItem
	for _, ref := range pkg.Spine {
		if item, ok := byID[ref.IDRef]; ok && item.isDocument() {
			items = append(items, item)
		}
	}
	if len(items) > 0 {
		return items
	}
	for _, item := range pkg.Manifest {
		if item.isDocument() {
			items = append(items, item)
		}
	}
	return items
}

func resolveHref(base, href string) string {
	if unescaped, err := url.PathUnescape(href); err == nil {
		href = unescaped
	}
	if i := strings.IndexByte(href, '#'); i >= 0 {
		href = href[:i]
	}
	return path.Clean(path.Join(base, href))
}

func decodeZipXML(files map[string]*zip.File, name string, v any) error {
	f, ok := files[name]
	if !ok {
		return fmt.Errorf("%s not found", name)
	}
	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func zipVisibleText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	return visibleText(rc)
}
