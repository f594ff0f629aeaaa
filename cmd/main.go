package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog/log"

	"docchat/internal/config"
	"docchat/internal/llmservice"
	"docchat/internal/logging"
	"docchat/internal/parser"
	"docchat/internal/rag"
	"docchat/internal/session"
)

const configFilePath = "./configs/config.yaml"

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var files fileList
	configPath := flag.String("config", configFilePath, "Path to the config file (.yaml or .toml)")
	flag.Var(&files, "file", "Document to upload (repeatable)")
	query := flag.String("query", "", "Question to ask, then exit")
	mode := flag.String("mode", "", "Analysis mode: Q&A, Summary, Key Points or Comparison")
	lang := flag.String("lang", "", "Response language")
	dryRun := flag.Bool("dry-run", false, "Extract documents and print the prompt without calling the LLM")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	closer := logging.Setup(cfg.Log, os.Stderr)
	defer closer.Close()

	log.Debug().Str("provider", cfg.LLM.Provider).Str("model", cfg.LLM.Model).Bool("has_key", cfg.LLM.APIKey != "").Msg("Loaded config")

	client := llmservice.NewClient(cfg.LLM)
	app := newREPL(cfg,
		session.New(session.SettingsFromConfig(cfg)),
		parser.NewDispatcher(cfg.Limits.MaxUploadBytes),
		rag.NewRAG(client, cfg.Responses),
		os.Stdout,
	)

	if *mode != "" {
		app.setMode(*mode)
	}
	if *lang != "" {
		app.setLanguage(*lang)
	}
	if len(files) > 0 {
		app.upload(files)
		if cfg.Processing.Method == config.MethodSelected {
			app.process(nil)
		}
	}

	ctx := context.Background()
	switch {
	case *dryRun:
		app.dryRun(*query)
	case *query != "" || (*mode != "" && !app.state.Settings.Mode.NeedsQuestion()):
		app.ask(ctx, *query)
	default:
		if !client.HasCredential() {
			app.warn("No API key configured; set GEMINI_API_KEY, OPENAI_API_KEY or DOCCHAT_API_KEY to ask questions.")
		}
		app.run(ctx, bufio.NewScanner(os.Stdin))
	}
}
