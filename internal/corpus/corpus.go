package corpus

import (
	"github.com/rs/zerolog/log"

	"docchat/internal/models"
)

// Segment is one entry of the prompt view, tagged with the document it came from.
type Segment struct {
	Source string
	Index  int
	Text   string
}

// Corpus keeps extracted documents keyed by source name in insertion order.
// The zero value is an empty corpus ready to use.
type Corpus struct {
	order []string
	docs  map[string]models.ExtractedDocument
}

func New() *Corpus {
	return &Corpus{docs: make(map[string]models.ExtractedDocument)}
}

// Add stores doc. A document with the same source name is replaced in place and
// keeps its original position.
func (c *Corpus) Add(doc models.ExtractedDocument) {
	if c.docs == nil {
		c.docs = make(map[string]models.ExtractedDocument)
	}
	if _, ok := c.docs[doc.SourceName]; ok {
		log.Debug().Str("file", doc.SourceName).Msg("Replacing document in corpus")
	} else {
		c.order = append(c.order, doc.SourceName)
	}
	c.docs[doc.SourceName] = doc
}

func (c *Corpus) Clear() {
	c.order = nil
	c.docs = make(map[string]models.ExtractedDocument)
}

func (c *Corpus) Remove(name string) bool {
	if _, ok := c.docs[name]; !ok {
		return false
	}
	delete(c.docs, name)
	for i, n := range c.order {
		if n == name {
			c.order = append(c.order[:i:i], c.order[i+1:]...)
			break
		}
	}
	return true
}

func (c *Corpus) Get(name string) (models.ExtractedDocument, bool) {
	doc, ok := c.docs[name]
	return doc, ok
}

func (c *Corpus) Len() int {
	return len(c.order)
}

// Names returns the source names in insertion order.
func (c *Corpus) Names() []string {
	return append([]string(nil), c.order...)
}

// Documents returns the stored documents in insertion order.
func (c *Corpus) Documents() []models.ExtractedDocument {
	docs := make([]models.ExtractedDocument, 0, len(c.order))
	for _, name := range c.order {
		docs = append(docs, c.docs[name])
	}
	return docs
}

// Clone returns a copy that shares no slices or maps with c.
func (c *Corpus) Clone() *Corpus {
	out := &Corpus{
		order: append([]string(nil), c.order...),
		docs:  make(map[string]models.ExtractedDocument, len(c.docs)),
	}
	for name, doc := range c.docs {
		doc.Segments = append([]string(nil), doc.Segments...)
		out.docs[name] = doc
	}
	return out
}

// Snapshot is a read-only copy of the corpus at this point in time.
func (c *Corpus) Snapshot() *Corpus {
	return c.Clone()
}

// View builds the prompt view. Each document contributes at most charCap runes:
// segments are taken in order and the one crossing the cap is cut. Then the first
// window segments across all documents are returned in insertion order.
// Non-positive limits disable the corresponding bound.
func (c *Corpus) View(charCap, window int) []Segment {
	var view []Segment
	for _, name := range c.order {
		budget := charCap
		for i, s := range c.docs[name].Segments {
			if window > 0 && len(view) == window {
				return view
			}
			if charCap > 0 {
				if budget <= 0 {
					break
				}
				runes := []rune(s)
				if len(runes) > budget {
					s = string(runes[:budget])
				}
				budget -= len([]rune(s))
			}
			view = append(view, Segment{Source: name, Index: i, Text: s})
		}
	}
	return view
}

// Sources returns the distinct source names of a view in order of appearance.
func Sources(view []Segment) []string {
	seen := make(map[string]bool)
	var names []string
	for _, s := range view {
		if !seen[s.Source] {
			seen[s.Source] = true
			names = append(names, s.Source)
		}
	}
	return names
}

// TotalChars sums the rune count of every stored segment.
func (c *Corpus) TotalChars() int {
	n := 0
	for _, doc := range c.docs {
		n += doc.CharCount()
	}
	return n
}
