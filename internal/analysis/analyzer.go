package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gongintel/gongintel/internal/anthropic"
	"github.com/gongintel/gongintel/internal/apperr"
	"github.com/gongintel/gongintel/internal/retry"
	"github.com/gongintel/gongintel/internal/transcript"
)

const (
	analyzerService = "claude"

	// Per-call ceiling on a single Claude request, nested inside the
	// orchestrator's overall background deadline.
	analysisCallTimeout = 90 * time.Second

	analysisMaxTokens   = 8000
	analysisTemperature = 0.2
)

// Completer is the LLM surface the analyzer needs.
type Completer interface {
	Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int, temperature float64) (string, error)
	Model() string
}

// Analyzer turns a parsed transcript into a validated analysis result.
type Analyzer struct {
	llm         Completer
	policy      retry.Policy
	callTimeout time.Duration
	logger      *slog.Logger
}

func NewAnalyzer(llm Completer, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		llm:         llm,
		policy:      retry.Analyzer,
		callTimeout: analysisCallTimeout,
		logger:      logger,
	}
}

func (a *Analyzer) Model() string { return a.llm.Model() }

// Analyze formats the transcript into the coaching prompt, calls Claude under
// retry and per-call timeout, and validates the response against the result
// contract. Returns the parsed result and the cleaned JSON for persistence.
// Validation failures are fatal, never retried: malformed model output is not
// transient.
func (a *Analyzer) Analyze(ctx context.Context, parsed transcript.Parsed) (*Result, json.RawMessage, error) {
	prompt := fmt.Sprintf(analysisPrompt, transcript.FormatForAnalysis(parsed))
	messages := []anthropic.Message{{Role: "user", Content: prompt}}

	a.logger.Info("analyzing transcript",
		"call_id", parsed.Metadata.CallID,
		"turns", len(parsed.Turns),
		"prompt_len", len(prompt),
	)

	raw, err := retry.Do(ctx, a.logger, analyzerService, "analyzeTranscript", a.policy,
		func(ctx context.Context) (string, error) {
			return retry.WithTimeout(ctx, a.callTimeout, analyzerService, "Claude analysis",
				func(ctx context.Context) (string, error) {
					return a.llm.Complete(ctx, "", messages, analysisMaxTokens, analysisTemperature)
				})
		})
	if err != nil {
		return nil, nil, err
	}

	jsonText := stripFences(raw)

	var result Result
	if err := json.Unmarshal([]byte(jsonText), &result); err != nil {
		return nil, nil, apperr.Validation(fmt.Sprintf(
			"failed to parse analyzer response as JSON: %v. Raw (truncated): %s", err, truncate(jsonText, 500)))
	}

	if result.CallType == "" || result.DealStage == "" || result.Participants == nil || result.OverallSummary == "" {
		return nil, nil, apperr.Validation(
			"analyzer response missing required fields (call_type, deal_stage, participants, or overall_summary)")
	}

	a.logger.Info("transcript analysis completed",
		"call_id", parsed.Metadata.CallID,
		"call_type", result.CallType,
		"deal_stage", result.DealStage,
	)

	return &result, json.RawMessage(jsonText), nil
}

// stripFences removes a surrounding markdown code fence, which the model
// sometimes emits despite instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
