package analysis

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/gongintel/gongintel/internal/anthropic"
	"github.com/gongintel/gongintel/internal/apperr"
	"github.com/gongintel/gongintel/internal/transcript"
)

const validResultJSON = `{
	"call_id": "123",
	"date": "2025-01-02",
	"call_type": "Discovery",
	"deal_stage": "Early exploration",
	"participants": {"cast_ai": ["Jane"], "customer": ["Bob"]},
	"sentiment": {
		"customer": {"score": 4, "rationale": "engaged", "arc": "improving", "key_moments": [], "unresolved_concerns": []},
		"cast_ai_rep": {"score": 3, "rationale": "solid", "notes": []}
	},
	"scorecard": {"universal": [{"dimension": "Objection handling", "score": "N/A", "evidence": "", "what_worked": "", "what_didnt": ""}], "call_type_specific": []},
	"signal_flags": {},
	"what_went_well": [],
	"what_went_poorly": [],
	"recommendations": {"communication_and_technique": [], "product_knowledge_and_positioning": [], "process_and_follow_through": []},
	"overall_summary": "A promising first call."
}`

type fakeLLM struct {
	responses []string
	errs      []error
	calls     int
	delay     time.Duration
	prompts   []string
}

func (f *fakeLLM) Complete(ctx context.Context, system string, messages []anthropic.Message, maxTokens int, temperature float64) (string, error) {
	i := f.calls
	f.calls++
	if len(messages) > 0 {
		f.prompts = append(f.prompts, messages[0].Content)
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if i < len(f.responses) {
		return f.responses[i], nil
	}
	return f.responses[len(f.responses)-1], nil
}

func (f *fakeLLM) Model() string { return "claude-test-model" }

func fastAnalyzer(llm Completer) *Analyzer {
	a := NewAnalyzer(llm, slog.New(slog.NewTextHandler(io.Discard, nil)))
	a.policy.Initial = time.Millisecond
	a.policy.Cap = 2 * time.Millisecond
	return a
}

func sampleParsed() transcript.Parsed {
	return transcript.Parsed{
		Metadata: transcript.Metadata{CallID: "123", Date: "2025-01-02", Title: "Acme Sync"},
		Participants: []transcript.Participant{
			{Name: "Jane", Email: "jane@x.com"},
		},
		Turns: []transcript.SpeakerTurn{
			{SpeakerID: "9999999999", Timestamp: "00:00", Text: "Hello"},
		},
	}
}

func TestAnalyze_Success(t *testing.T) {
	llm := &fakeLLM{responses: []string{validResultJSON}}
	a := fastAnalyzer(llm)

	result, raw, err := a.Analyze(context.Background(), sampleParsed())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.CallType != "Discovery" || result.DealStage != "Early exploration" {
		t.Errorf("result = %+v", result)
	}
	if result.Sentiment.Customer.Score.Value != 4 {
		t.Errorf("customer score = %+v", result.Sentiment.Customer.Score)
	}
	if !result.Scorecard.Universal[0].Score.NA {
		t.Errorf("expected N/A score, got %+v", result.Scorecard.Universal[0].Score)
	}
	if len(raw) == 0 {
		t.Error("expected raw JSON for persistence")
	}

	// The prompt embeds the formatted transcript.
	if len(llm.prompts) != 1 || !strings.Contains(llm.prompts[0], "[Speaker 9999999999]") {
		t.Error("prompt should contain the formatted transcript")
	}
}

func TestAnalyze_StripsCodeFences(t *testing.T) {
	llm := &fakeLLM{responses: []string{"```json\n" + validResultJSON + "\n```"}}
	a := fastAnalyzer(llm)

	result, _, err := a.Analyze(context.Background(), sampleParsed())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OverallSummary != "A promising first call." {
		t.Errorf("summary = %q", result.OverallSummary)
	}
}

func TestAnalyze_RetriesOverloaded(t *testing.T) {
	llm := &fakeLLM{
		errs:      []error{&anthropic.APIError{Status: 503}, &anthropic.APIError{Status: 529}},
		responses: []string{"", "", validResultJSON},
	}
	a := fastAnalyzer(llm)

	result, _, err := a.Analyze(context.Background(), sampleParsed())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if llm.calls != 3 {
		t.Errorf("expected 3 calls, got %d", llm.calls)
	}
	if result.CallType != "Discovery" {
		t.Errorf("result = %+v", result)
	}
}

func TestAnalyze_FatalStatusNotRetried(t *testing.T) {
	llm := &fakeLLM{errs: []error{&anthropic.APIError{Status: 401, Message: "bad key"}}, responses: []string{""}}
	a := fastAnalyzer(llm)

	_, _, err := a.Analyze(context.Background(), sampleParsed())
	if err == nil {
		t.Fatal("expected error")
	}
	if llm.calls != 1 {
		t.Errorf("expected 1 call, got %d", llm.calls)
	}
	if apperr.KindOf(err) != apperr.KindExternal {
		t.Errorf("kind = %s", apperr.KindOf(err))
	}
}

func TestAnalyze_InvalidJSONIsValidationFailure(t *testing.T) {
	llm := &fakeLLM{responses: []string{"I'm sorry, I can't produce JSON today."}}
	a := fastAnalyzer(llm)

	_, _, err := a.Analyze(context.Background(), sampleParsed())
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation failure, got %v", err)
	}
}

func TestAnalyze_MissingRequiredFields(t *testing.T) {
	llm := &fakeLLM{responses: []string{`{"call_type": "Demo"}`}}
	a := fastAnalyzer(llm)

	_, _, err := a.Analyze(context.Background(), sampleParsed())
	if apperr.KindOf(err) != apperr.KindValidation {
		t.Errorf("expected validation failure, got %v", err)
	}
	if !strings.Contains(err.Error(), "required fields") {
		t.Errorf("message = %q", err.Error())
	}
}

func TestAnalyze_PerCallTimeout(t *testing.T) {
	llm := &fakeLLM{responses: []string{validResultJSON}, delay: 200 * time.Millisecond}
	a := fastAnalyzer(llm)
	a.callTimeout = 10 * time.Millisecond
	a.policy.MaxAttempts = 1

	_, _, err := a.Analyze(context.Background(), sampleParsed())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out after 10ms") {
		t.Errorf("message = %q", err.Error())
	}
	if apperr.KindOf(err) != apperr.KindExternal {
		t.Errorf("kind = %s", apperr.KindOf(err))
	}
}

func TestStripFences(t *testing.T) {
	cases := []struct{ in, want string }{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", `{"a":1}`},
		{"```\n{\"a\":1}\n```", `{"a":1}`},
		{"  {\"a\":1}  ", `{"a":1}`},
	}
	for _, c := range cases {
		if got := stripFences(c.in); got != c.want {
			t.Errorf("stripFences(%q) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestScoreRoundTrip(t *testing.T) {
	var s Score
	if err := s.UnmarshalJSON([]byte(`"N/A"`)); err != nil || !s.NA {
		t.Errorf("N/A unmarshal: %+v err=%v", s, err)
	}
	if err := s.UnmarshalJSON([]byte(`5`)); err != nil || s.Value != 5 || s.NA {
		t.Errorf("int unmarshal: %+v err=%v", s, err)
	}
	if err := s.UnmarshalJSON([]byte(`"five"`)); err == nil {
		t.Error("expected error for non-integer score")
	}
}
