package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"

	"docchat/internal/config"
	"docchat/internal/export"
	"docchat/internal/helper"
	"docchat/internal/llmservice"
	"docchat/internal/models"
	"docchat/internal/parser"
	"docchat/internal/rag"
	"docchat/internal/session"
)

var (
	answerColor  = color.New(color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed)
	successColor = color.New(color.FgGreen)
	headerColor  = color.New(color.Bold)
)

type repl struct {
	cfg       *config.Config
	state     session.State
	extractor session.Extractor
	rag       *rag.RAG
	out       io.Writer
}

func newREPL(cfg *config.Config, state session.State, extractor session.Extractor, r *rag.RAG, out io.Writer) *repl {
	return &repl{cfg: cfg, state: state, extractor: extractor, rag: r, out: out}
}

func (r *repl) warn(format string, args ...any) {
	warnColor.Fprintf(r.out, format+"\n", args...)
}

func (r *repl) fail(format string, args ...any) {
	errorColor.Fprintf(r.out, format+"\n", args...)
}

func (r *repl) ok(format string, args ...any) {
	successColor.Fprintf(r.out, format+"\n", args...)
}

func (r *repl) run(ctx context.Context, in *bufio.Scanner) {
	headerColor.Fprintln(r.out, "docchat - chat with your documents. Type /help for commands.")
	for {
		fmt.Fprintf(r.out, "[%s | %s] > ", r.state.Settings.Mode, r.state.Settings.Language)
		if !in.Scan() {
			fmt.Fprintln(r.out)
			return
		}
		if quit := r.handle(ctx, in.Text()); quit {
			return
		}
	}
}

// handle executes one input line and reports whether the session should end.
func (r *repl) handle(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		return false
	}
	if !strings.HasPrefix(line, "/") {
		r.ask(ctx, line)
		return false
	}

	cmd, rest, _ := strings.Cut(line, " ")
	args := strings.Fields(rest)
	rest = strings.TrimSpace(rest)

	switch strings.ToLower(cmd) {
	case "/upload":
		if len(args) == 0 {
			r.warn("usage: /upload <path> [path...]")
			return false
		}
		r.upload(args)
	case "/files":
		r.listFiles()
	case "/process":
		r.process(nil)
	case "/select":
		if len(args) == 0 {
			r.warn("usage: /select <name> [name...]")
			return false
		}
		r.process(args)
	case "/mode":
		if rest == "" {
			r.ok("mode: %s (available: %s)", r.state.Settings.Mode, joinModes())
			return false
		}
		r.setMode(rest)
	case "/lang":
		if rest == "" {
			r.ok("language: %s (available: %s)", r.state.Settings.Language, strings.Join(models.Languages, ", "))
			return false
		}
		r.setLanguage(rest)
	case "/set":
		if len(args) != 2 {
			r.warn("usage: /set <temperature|top_p|max_tokens|window|char_cap|model> <value>")
			return false
		}
		r.set(args[0], args[1])
	case "/settings":
		helper.PrettyPrint(r.out, r.state.Settings)
	case "/stats":
		r.stats(rest == "json")
	case "/history":
		r.history()
	case "/prompt":
		r.dryRun(rest)
	case "/save":
		r.save()
	case "/reset":
		r.state = r.state.ResetAll()
		r.ok("Session cleared.")
	case "/help":
		r.help()
	case "/quit", "/exit":
		return true
	default:
		r.warn("unknown command %s, type /help", cmd)
	}
	return false
}

func (r *repl) upload(paths []string) {
	var files []models.UploadedFile
	for _, p := range paths {
		f, err := parser.LoadFile(p)
		if err != nil {
			r.fail("Cannot read %s: %v", p, err)
			continue
		}
		files = append(files, f)
		r.ok("Uploaded %s (%s)", f.Name, helper.HumanBytes(f.Size()))
	}
	if len(files) == 0 {
		return
	}
	r.state = r.state.UploadFiles(files...)
	if r.cfg.Processing.Method != config.MethodSelected {
		r.process(nil)
	}
}

// process runs extraction for all files, or only names when given.
func (r *repl) process(names []string) {
	if len(r.state.Files) == 0 {
		r.warn("Please upload at least one document.")
		return
	}
	observe := func(name string, st session.Status) {
		if st == session.Processing {
			fmt.Fprintf(r.out, "Processing %s...\n", name)
		}
	}

	var report session.Report
	if names == nil {
		r.state, report = r.state.ProcessAll(r.extractor, observe)
	} else {
		r.state, report = r.state.ProcessSelected(names, r.extractor, observe)
	}

	for _, name := range report.Unknown {
		r.warn("No uploaded file named %s", name)
	}
	for _, err := range report.Failures {
		r.fail("%v", err)
	}
	if len(report.Processed) > 0 {
		r.ok("Processed %d file(s): %s", len(report.Processed), strings.Join(report.Processed, ", "))
	}
	if len(report.Processed) == 0 && len(report.Failures) == 0 && len(report.Skipped) > 0 {
		r.ok("Already processed: %s", strings.Join(report.Skipped, ", "))
	}
}

func (r *repl) listFiles() {
	if len(r.state.Files) == 0 {
		r.warn("No files uploaded. Supported: %s", strings.Join(parser.SupportedExtensions(), " "))
		return
	}
	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tSTATUS\tDETAIL")
	for _, f := range r.state.Files {
		detail := ""
		if f.Err != nil {
			detail = f.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			f.File.Name, parser.Resolve(f.File.Name, f.File.MediaType), helper.HumanBytes(f.File.Size()), f.Status, detail)
	}
	tw.Flush()
	fmt.Fprintln(r.out, r.state.Summary())
}

// update applies change to a copy of the config and keeps it only if it validates.
func (r *repl) update(change func(c *config.Config)) bool {
	next := *r.cfg
	change(&next)
	if err := next.Validate(); err != nil {
		r.fail("%v", err)
		return false
	}
	*r.cfg = next
	r.state = r.state.WithSettings(session.SettingsFromConfig(&next))
	return true
}

func (r *repl) setMode(value string) {
	mode, err := models.ParseAnalysisMode(value)
	if err != nil {
		r.fail("%v (available: %s)", err, joinModes())
		return
	}
	if r.update(func(c *config.Config) { c.Generation.Mode = string(mode) }) {
		r.ok("mode: %s", mode)
	}
}

func (r *repl) setLanguage(value string) {
	for _, l := range models.Languages {
		if strings.EqualFold(l, value) {
			if r.update(func(c *config.Config) { c.Generation.Language = l }) {
				r.ok("language: %s", l)
			}
			return
		}
	}
	r.fail("unsupported language %q (available: %s)", value, strings.Join(models.Languages, ", "))
}

func (r *repl) set(key, value string) {
	var change func(c *config.Config)
	switch strings.ToLower(key) {
	case "temperature", "top_p":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			r.fail("%s must be a number: %v", key, err)
			return
		}
		if strings.EqualFold(key, "temperature") {
			change = func(c *config.Config) { c.Generation.Temperature = v }
		} else {
			change = func(c *config.Config) { c.Generation.TopP = v }
		}
	case "max_tokens", "window", "char_cap":
		v, err := strconv.Atoi(value)
		if err != nil {
			r.fail("%s must be an integer: %v", key, err)
			return
		}
		switch strings.ToLower(key) {
		case "max_tokens":
			change = func(c *config.Config) { c.Generation.MaxTokens = v }
		case "window":
			change = func(c *config.Config) { c.Limits.ContextWindow = v }
		default:
			change = func(c *config.Config) { c.Limits.CharCap = v }
		}
	case "model":
		change = func(c *config.Config) { c.LLM.Model = value }
	default:
		r.warn("unknown setting %s", key)
		return
	}
	if r.update(change) {
		r.ok("%s = %s", key, value)
	}
}

func (r *repl) stats(asJSON bool) {
	stats := r.state.Stats()
	if len(stats) == 0 {
		r.warn("No processed documents.")
		return
	}
	if asJSON {
		helper.PrettyPrint(r.out, stats)
		return
	}

	tw := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tFORMAT\tSIZE\tSEGMENTS\tCHARACTERS\tTIME")
	var segments, chars int
	var size int64
	for _, s := range stats {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			s.Name, s.Format, helper.HumanBytes(s.Size), s.Segments, s.Characters, s.ProcessingTime.Round(time.Millisecond))
		segments += s.Segments
		chars += s.Characters
		size += s.Size
	}
	fmt.Fprintf(tw, "TOTAL\t\t%s\t%d\t%d\t\n", helper.HumanBytes(size), segments, chars)
	tw.Flush()
}

func (r *repl) history() {
	if len(r.state.History) == 0 {
		r.warn("No conversation yet.")
		return
	}
	for _, turn := range r.state.History {
		stamp := turn.Timestamp.Format("15:04:05")
		if turn.Role == models.RoleAssistant {
			answerColor.Fprintf(r.out, "[%s] assistant: %s\n", stamp, turn.Content)
			continue
		}
		fmt.Fprintf(r.out, "[%s] you: %s\n", stamp, turn.Content)
	}
}

func (r *repl) save() {
	turn, ok := r.state.LastAssistantTurn()
	if !ok {
		r.warn("Nothing to save yet.")
		return
	}
	path, err := export.SaveResponse(r.cfg.Responses.Dir, turn.Content, r.cfg.Responses.Format, time.Now())
	if err != nil {
		r.fail("Could not save response: %v", err)
		return
	}
	r.ok("Saved %s", path)
}

func (r *repl) dryRun(query string) {
	text, resp, err := r.rag.DryRun(r.state, query)
	if err != nil {
		r.warn("%v", err)
		return
	}
	headerColor.Fprintf(r.out, "Prompt (sources: %s)\n", resp.Source)
	fmt.Fprintln(r.out, text)
}

// ask sends one question. Ctrl-C while waiting cancels the request only.
func (r *repl) ask(ctx context.Context, query string) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	state, resp, err := r.rag.Query(ctx, r.state, query)
	r.state = state
	switch {
	case err == nil:
	case errors.Is(err, rag.ErrNoDocuments), errors.Is(err, rag.ErrEmptyQuery):
		r.warn("%v.", capitalize(err.Error()))
		return
	case errors.Is(err, llmservice.ErrMissingCredential):
		r.fail("Error: %v. Please %s.", err, llmservice.Describe(err))
		return
	default:
		log.Debug().Err(err).Msg("Inference failed")
		r.fail("Error: %v", err)
		r.warn("(%s)", llmservice.Describe(err))
		return
	}

	answerColor.Fprintln(r.out, resp.Content)
	if resp.Source != "" {
		fmt.Fprintf(r.out, "Sources: %s\n", resp.Source)
	}
}

func (r *repl) help() {
	headerColor.Fprintln(r.out, "Commands")
	fmt.Fprint(r.out, `  /upload <paths...>   add documents (processed right away unless processing.method is "selected")
  /files               list uploaded files and their status
  /process             process every uploaded file
  /select <names...>   process only the named files
  /mode [mode]         show or set the analysis mode
  /lang [language]     show or set the response language
  /set <key> <value>   temperature, top_p, max_tokens, window, char_cap or model
  /settings            show the current settings
  /stats [json]        per-document statistics
  /history             show the conversation
  /prompt [question]   show the prompt that would be sent
  /save                save the last answer
  /reset               clear files, documents and history
  /quit                exit
Anything else is sent as a question.
`)
	fmt.Fprintf(r.out, "Supported files: %s\n", strings.Join(parser.SupportedExtensions(), " "))
}

func joinModes() string {
	var names []string
	for _, m := range models.AnalysisModes() {
		names = append(names, string(m))
	}
	return strings.Join(names, ", ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
