package prompt

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"docchat/internal/corpus"
	"docchat/internal/models"
)

// Limits bounds the document view placed in a prompt.
type Limits struct {
	CharCap       int `validate:"gte=1"`
	ContextWindow int `validate:"gte=1,lte=100"`
	MaxTokens     int `validate:"gte=1"`
}

var validate = validator.New()

func (l Limits) Validate() error {
	if err := validate.Struct(l); err != nil {
		return fmt.Errorf("invalid prompt limits: %w", err)
	}
	return nil
}

// Viewer yields the document segments a prompt may include.
// *corpus.Corpus and session.State satisfy it.
type Viewer interface {
	View(charCap, window int) []corpus.Segment
}

// Builder assembles the single text payload sent to the model.
type Builder struct {
	limits Limits
}

func NewBuilder(limits Limits) (*Builder, error) {
	if err := limits.Validate(); err != nil {
		return nil, err
	}
	return &Builder{limits: limits}, nil
}

func (b *Builder) Limits() Limits {
	return b.limits
}

// Build returns the prompt and the source names that made it into the view.
// The layout is: header, one "- [source] text" entry per view segment, the mode
// instruction, then the response language directive.
func (b *Builder) Build(c Viewer, mode models.AnalysisMode, query, language string) (string, []string) {
	view := c.View(b.limits.CharCap, b.limits.ContextWindow)

	var sb strings.Builder
	fmt.Fprintf(&sb, models.PromptHeaderTemplate, language)
	for _, s := range view {
		fmt.Fprintf(&sb, "- [%s] %s\n\n", s.Source, s.Text)
	}
	sb.WriteString("\n\n")
	sb.WriteString(Instruction(mode, query))
	sb.WriteString("\n\n")
	fmt.Fprintf(&sb, models.LanguageDirectiveTemplate, language)

	return sb.String(), corpus.Sources(view)
}

// Instruction is the mode specific request; only Q&A embeds the user's query.
func Instruction(mode models.AnalysisMode, query string) string {
	tmpl, ok := models.ModeInstructions[mode]
	if !ok {
		tmpl = models.ModeInstructions[models.ModeQA]
	}
	if strings.Contains(tmpl, "%s") {
		return fmt.Sprintf(tmpl, query)
	}
	return tmpl
}
