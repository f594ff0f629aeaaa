package rag

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"docchat/internal/config"
	"docchat/internal/export"
	"docchat/internal/llmservice"
	"docchat/internal/models"
	"docchat/internal/prompt"
	"docchat/internal/session"
)

var (
	ErrNoDocuments = errors.New("please upload a document")
	ErrEmptyQuery  = errors.New("please enter a question or select an analysis mode")
)

type RAG struct {
	llm       llmservice.Generator
	responses config.ResponsesConfig
	now       func() time.Time
}

func NewRAG(llm llmservice.Generator, responses config.ResponsesConfig) *RAG {
	return &RAG{llm: llm, responses: responses, now: time.Now}
}

// Query answers one question over the session's documents. The returned state
// carries the new turns; on an inference error it still carries the user turn.
func (r *RAG) Query(ctx context.Context, state session.State, query string) (session.State, models.PromptResponse, error) {
	if !r.llm.HasCredential() {
		return state, models.PromptResponse{}, llmservice.ErrMissingCredential
	}

	text, resp, err := r.prepare(state, query)
	if err != nil {
		return state, resp, err
	}

	state = state.AppendUserTurn(resp.Query)

	settings := state.Settings
	answer, err := r.llm.Generate(ctx, text, llmservice.Options{
		Model:       settings.Model,
		Temperature: settings.Temperature,
		TopP:        settings.TopP,
		MaxTokens:   settings.MaxTokens,
	})
	if err != nil {
		log.Error().Err(err).Str("mode", string(settings.Mode)).Msg("Error generating response")
		return state, resp, err
	}

	resp.Content = answer
	state = state.AppendAssistantTurn(answer)

	if r.responses.Save {
		if _, err := export.SaveResponse(r.responses.Dir, answer, r.responses.Format, r.now()); err != nil {
			log.Warn().Err(err).Msg("Could not save response")
		}
	}
	return state, resp, nil
}

// DryRun builds the prompt the next Query would send, without calling the model.
func (r *RAG) DryRun(state session.State, query string) (string, models.PromptResponse, error) {
	return r.prepare(state, query)
}

func (r *RAG) prepare(state session.State, query string) (string, models.PromptResponse, error) {
	if state.DocumentCount() == 0 {
		return "", models.PromptResponse{}, ErrNoDocuments
	}

	settings := state.Settings
	query = strings.TrimSpace(query)
	if !settings.Mode.NeedsQuestion() {
		query = settings.Mode.DefaultQuery()
	}
	if query == "" {
		return "", models.PromptResponse{}, ErrEmptyQuery
	}

	builder, err := prompt.NewBuilder(prompt.Limits{
		CharCap:       settings.CharCap,
		ContextWindow: settings.ContextWindow,
		MaxTokens:     settings.MaxTokens,
	})
	if err != nil {
		return "", models.PromptResponse{}, err
	}

	text, sources := builder.Build(state, settings.Mode, query, settings.Language)
	log.Debug().Strs("sources", sources).Int("prompt_chars", len(text)).Str("mode", string(settings.Mode)).Msg("Built prompt")

	return text, models.PromptResponse{
		Query:   query,
		Source:  strings.Join(sources, models.SourceSeparator),
		Sources: sources,
	}, nil
}
