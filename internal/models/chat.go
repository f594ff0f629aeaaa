package models

import (
	"fmt"
	"strings"
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ChatTurn is one entry of the session history.
type ChatTurn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// AnalysisMode selects the instruction sent along with the documents.
type AnalysisMode string

const (
	ModeQA         AnalysisMode = "Q&A"
	ModeSummary    AnalysisMode = "Summary"
	ModeKeyPoints  AnalysisMode = "Key Points"
	ModeComparison AnalysisMode = "Comparison"
)

// AnalysisModes in display order.
func AnalysisModes() []AnalysisMode {
	return []AnalysisMode{ModeQA, ModeSummary, ModeKeyPoints, ModeComparison}
}

// ParseAnalysisMode accepts display names and a few shorthand spellings.
func ParseAnalysisMode(s string) (AnalysisMode, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	switch key {
	case "q&a", "qa", "q a", "question", "questions":
		return ModeQA, nil
	case "summary", "summarize":
		return ModeSummary, nil
	case "key points", "keypoints", "points":
		return ModeKeyPoints, nil
	case "comparison", "compare":
		return ModeComparison, nil
	}
	return "", fmt.Errorf("unknown analysis mode %q", s)
}

// DefaultQuery is the fixed request used by modes that take no user question.
func (m AnalysisMode) DefaultQuery() string {
	switch m {
	case ModeSummary:
		return SummaryQuery
	case ModeKeyPoints:
		return KeyPointsQuery
	case ModeComparison:
		return ComparisonQuery
	}
	return ""
}

// NeedsQuestion reports whether the user has to type the query.
func (m AnalysisMode) NeedsQuestion() bool {
	return m == ModeQA
}

type PromptResponse struct {
	Query   string
	Source  string
	Sources []string
	Content string
}
