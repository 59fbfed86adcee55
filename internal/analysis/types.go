package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Result is the analyzer's structured output. The service only enforces the
// small set of required top-level fields; the rest is business payload passed
// through to clients.
type Result struct {
	CallID          *string             `json:"call_id"`
	Date            *string             `json:"date"`
	CallType        string              `json:"call_type"`
	DealStage       string              `json:"deal_stage"`
	Participants    *ResultParticipants `json:"participants"`
	Sentiment       Sentiment           `json:"sentiment"`
	Scorecard       Scorecard           `json:"scorecard"`
	SignalFlags     json.RawMessage     `json:"signal_flags"`
	WhatWentWell    []Highlight         `json:"what_went_well"`
	WhatWentPoorly  []Lowlight          `json:"what_went_poorly"`
	Recommendations Recommendations     `json:"recommendations"`
	OverallSummary  string              `json:"overall_summary"`
}

type ResultParticipants struct {
	CastAI   []string `json:"cast_ai"`
	Customer []string `json:"customer"`
}

type Sentiment struct {
	Customer struct {
		Score              Score       `json:"score"`
		Rationale          string      `json:"rationale"`
		Arc                string      `json:"arc"` // improving | declining | flat
		KeyMoments         []KeyMoment `json:"key_moments"`
		UnresolvedConcerns []string    `json:"unresolved_concerns"`
	} `json:"customer"`
	CastAIRep struct {
		Score     Score    `json:"score"`
		Rationale string   `json:"rationale"`
		Notes     []string `json:"notes"`
	} `json:"cast_ai_rep"`
}

type KeyMoment struct {
	Timestamp string `json:"timestamp"`
	Quote     string `json:"quote"`
	Impact    string `json:"impact"`
}

type Scorecard struct {
	Universal        []ScorecardItem `json:"universal"`
	CallTypeSpecific []ScorecardItem `json:"call_type_specific"`
}

type ScorecardItem struct {
	Dimension string `json:"dimension"`
	Score     Score  `json:"score"`
	Evidence  string `json:"evidence"`
	WhatWorked string `json:"what_worked"`
	WhatDidnt  string `json:"what_didnt"`
}

type Highlight struct {
	Title               string `json:"title"`
	TranscriptReference string `json:"transcript_reference"`
	WhyEffective        string `json:"why_effective"`
}

type Lowlight struct {
	Title               string `json:"title"`
	TranscriptReference string `json:"transcript_reference"`
	DealImpact          string `json:"deal_impact"`
}

type Recommendations struct {
	CommunicationAndTechnique      []string `json:"communication_and_technique"`
	ProductKnowledgeAndPositioning []string `json:"product_knowledge_and_positioning"`
	ProcessAndFollowThrough        []string `json:"process_and_follow_through"`
}

// Score is a 1–5 integer or the literal string "N/A" for dimensions that do
// not apply to the call type.
type Score struct {
	Value int
	NA    bool
}

func (s *Score) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte(`"N/A"`)) || bytes.Equal(b, []byte("null")) {
		*s = Score{NA: true}
		return nil
	}
	var v int
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("score must be an integer or \"N/A\": %w", err)
	}
	*s = Score{Value: v}
	return nil
}

func (s Score) MarshalJSON() ([]byte, error) {
	if s.NA {
		return []byte(`"N/A"`), nil
	}
	return json.Marshal(s.Value)
}
