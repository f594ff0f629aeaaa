package session

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"docchat/internal/config"
	"docchat/internal/corpus"
	"docchat/internal/models"
)

type Status int

const (
	Unprocessed Status = iota
	Processing
	Processed
	Failed
)

func (s Status) String() string {
	switch s {
	case Unprocessed:
		return "unprocessed"
	case Processing:
		return "processing"
	case Processed:
		return "processed"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Extractor turns one upload into a document. *parser.Dispatcher satisfies it.
type Extractor interface {
	Dispatch(file models.UploadedFile) (models.ExtractedDocument, error)
}

// Observer is told about every status change while files are processed.
type Observer func(name string, status Status)

// Settings are the generation and assembly selections of a session.
type Settings struct {
	Model         string
	Temperature   float64
	TopP          float64
	MaxTokens     int
	Language      string
	Mode          models.AnalysisMode
	CharCap       int
	ContextWindow int
	Method        string
}

func SettingsFromConfig(cfg *config.Config) Settings {
	mode, err := models.ParseAnalysisMode(cfg.Generation.Mode)
	if err != nil {
		mode = models.ModeQA
	}
	return Settings{
		Model:         cfg.LLM.Model,
		Temperature:   cfg.Generation.Temperature,
		TopP:          cfg.Generation.TopP,
		MaxTokens:     cfg.Generation.MaxTokens,
		Language:      cfg.Generation.Language,
		Mode:          mode,
		CharCap:       cfg.Limits.CharCap,
		ContextWindow: cfg.Limits.ContextWindow,
		Method:        cfg.Processing.Method,
	}
}

type FileEntry struct {
	File   models.UploadedFile
	Status Status
	Err    error
	Stats  models.FileStats
}

// State is everything one chat session owns. It is a value: every operation
// returns a new State and leaves the receiver untouched.
type State struct {
	ID       string
	Files    []FileEntry
	History  []models.ChatTurn
	Settings Settings

	corpus    *corpus.Corpus
	processed []string
}

func New(settings Settings) State {
	return State{
		ID:       uuid.NewString(),
		Settings: settings,
		corpus:   corpus.New(),
	}
}

// Report summarizes one processing run.
type Report struct {
	Processed []string
	Skipped   []string
	Unknown   []string
	Failures  []error
	Stats     []models.FileStats
}

func (s State) clone() State {
	out := s
	out.Files = slices.Clone(s.Files)
	out.History = slices.Clone(s.History)
	out.processed = slices.Clone(s.processed)
	if s.corpus != nil {
		out.corpus = s.corpus.Clone()
	} else {
		out.corpus = corpus.New()
	}
	return out
}

// Corpus returns a snapshot of the processed documents.
func (s State) Corpus() *corpus.Corpus {
	if s.corpus == nil {
		return corpus.New()
	}
	return s.corpus.Snapshot()
}

// DocumentCount is the number of documents in the corpus.
func (s State) DocumentCount() int {
	if s.corpus == nil {
		return 0
	}
	return s.corpus.Len()
}

// View reads the prompt view straight from the stored corpus without copying it.
func (s State) View(charCap, window int) []corpus.Segment {
	if s.corpus == nil {
		return nil
	}
	return s.corpus.View(charCap, window)
}

// Names returns the uploaded file names in upload order.
func (s State) Names() []string {
	names := make([]string, len(s.Files))
	for i, f := range s.Files {
		names[i] = f.File.Name
	}
	return names
}

func (s State) entry(name string) (int, bool) {
	for i, f := range s.Files {
		if f.File.Name == name {
			return i, true
		}
	}
	return -1, false
}

// UploadFiles adds files to the registry. A file with a name already present
// replaces the earlier bytes, goes back to Unprocessed and leaves the corpus.
func (s State) UploadFiles(files ...models.UploadedFile) State {
	out := s.clone()
	for _, f := range files {
		if f.UploadedAt.IsZero() {
			f.UploadedAt = time.Now()
		}
		if i, ok := out.entry(f.Name); ok {
			out.Files[i] = FileEntry{File: f}
			out.corpus.Remove(f.Name)
			continue
		}
		out.Files = append(out.Files, FileEntry{File: f})
	}
	return out
}

// ReplaceFiles swaps the whole registry and drops every processed document.
func (s State) ReplaceFiles(files ...models.UploadedFile) State {
	out := s.clone()
	out.Files = nil
	out.corpus.Clear()
	out.processed = nil
	return out.UploadFiles(files...)
}

func (s State) ProcessAll(x Extractor, observers ...Observer) (State, Report) {
	return s.process(s.Names(), nil, x, observers)
}

// ProcessSelected processes only the named files. Names not in the registry are
// reported as unknown.
func (s State) ProcessSelected(names []string, x Extractor, observers ...Observer) (State, Report) {
	var target, unknown []string
	for _, name := range names {
		if _, ok := s.entry(name); !ok {
			unknown = append(unknown, name)
			continue
		}
		if !slices.Contains(target, name) {
			target = append(target, name)
		}
	}
	return s.process(target, unknown, x, observers)
}

func (s State) process(target, unknown []string, x Extractor, observers []Observer) (State, Report) {
	out := s.clone()
	report := Report{Unknown: unknown}
	notify := func(name string, status Status) {
		for _, o := range observers {
			o(name, status)
		}
	}

	set := slices.Clone(target)
	slices.Sort(set)
	if !slices.Equal(set, out.processed) {
		if len(out.processed) > 0 || out.corpus.Len() > 0 {
			log.Info().Strs("previous", out.processed).Strs("current", set).Msg("File set changed, clearing corpus")
		}
		out.corpus.Clear()
		for i := range out.Files {
			out.Files[i].Status = Unprocessed
			out.Files[i].Err = nil
			out.Files[i].Stats = models.FileStats{}
		}
	}

	for _, name := range target {
		i, _ := out.entry(name)
		e := &out.Files[i]
		if e.Status != Unprocessed {
			report.Skipped = append(report.Skipped, name)
			continue
		}

		e.Status = Processing
		notify(name, Processing)

		doc, err := x.Dispatch(e.File)
		if err != nil {
			e.Status = Failed
			e.Err = err
			out.corpus.Remove(name)
			report.Failures = append(report.Failures, err)
			log.Error().Err(err).Str("file", name).Msg("Error processing file")
			notify(name, Failed)
			continue
		}

		out.corpus.Add(doc)
		e.Status = Processed
		e.Stats = models.FileStats{
			Name:           name,
			Format:         doc.Format.String(),
			Size:           e.File.Size(),
			Segments:       len(doc.Segments),
			Characters:     doc.CharCount(),
			ProcessingTime: doc.Duration,
		}
		report.Processed = append(report.Processed, name)
		report.Stats = append(report.Stats, e.Stats)
		notify(name, Processed)
	}

	out.processed = set
	return out, report
}

func (s State) AppendUserTurn(text string) State {
	return s.appendTurn(models.RoleUser, text)
}

func (s State) AppendAssistantTurn(text string) State {
	return s.appendTurn(models.RoleAssistant, text)
}

func (s State) appendTurn(role models.Role, text string) State {
	out := s
	out.History = append(slices.Clip(s.History), models.ChatTurn{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   text,
		Timestamp: time.Now(),
	})
	return out
}

// ResetAll drops files, documents and history. Settings survive under a new session ID.
func (s State) ResetAll() State {
	return New(s.Settings)
}

func (s State) WithSettings(settings Settings) State {
	out := s
	out.Settings = settings
	return out
}

// Stats lists the numbers of every processed file in upload order.
func (s State) Stats() []models.FileStats {
	var stats []models.FileStats
	for _, f := range s.Files {
		if f.Status == Processed {
			stats = append(stats, f.Stats)
		}
	}
	return stats
}

// LastAssistantTurn returns the most recent answer, if any.
func (s State) LastAssistantTurn() (models.ChatTurn, bool) {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Role == models.RoleAssistant {
			return s.History[i], true
		}
	}
	return models.ChatTurn{}, false
}

// Summary is a one-line description of the registry for status output.
func (s State) Summary() string {
	counts := make(map[Status]int)
	for _, f := range s.Files {
		counts[f.Status]++
	}
	var parts []string
	for _, st := range []Status{Processed, Failed, Unprocessed} {
		if counts[st] > 0 {
			parts = append(parts, fmt.Sprintf("%d %s", counts[st], st))
		}
	}
	if len(parts) == 0 {
		return "no files"
	}
	return strings.Join(parts, ", ")
}
