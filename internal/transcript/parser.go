// Package transcript parses Gong call-recording transcript files into
// structured data. Parsing is a pure syntactic pass: malformed input degrades
// to partial or empty output, it never fails, so third-party transcripts can
// never block ingestion.
package transcript

import (
	"regexp"
	"strings"
)

// Metadata holds header fields plus filename-derived fallbacks. Header fields
// are empty strings when absent; fallback fields are only set when the
// filename matches the expected pattern. Resolving header-vs-fallback is the
// caller's job, not the parser's.
type Metadata struct {
	CallID             string
	Date               string
	Title              string
	FilenameDate       string
	FilenameGongCallID string
}

type Participant struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SpeakerTurn is one timestamped utterance. SpeakerID and TopicTag are
// inherited from the most recent speaker-marker line.
type SpeakerTurn struct {
	SpeakerID string `json:"speaker_id"`
	Timestamp string `json:"timestamp"` // MM:SS
	Text      string `json:"text"`
	TopicTag  string `json:"topic_tag,omitempty"`
}

type Parsed struct {
	Metadata     Metadata
	Participants []Participant
	Turns        []SpeakerTurn
}

var (
	// "2025-01-02_Allen Digital - Onboarding Planning-14630489.txt"
	filenameRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(.+?)-(\d+)\.txt$`)

	callIDRe      = regexp.MustCompile(`^Call ID:\s*(.+)$`)
	dateRe        = regexp.MustCompile(`^Date:\s*(.+)$`)
	titleRe       = regexp.MustCompile(`^Title:\s*(.+)$`)
	participantRe = regexp.MustCompile(`^-\s+(.+?)\s*<([^>]+)>$`)

	// "[4999092314777842233]" optionally followed by "[Pricing]"
	speakerRe = regexp.MustCompile(`^\[(\d{10,})\](?:\s+\[([^\]]+)\])?$`)
	// "[00:03] Yeah, I'm good."
	contentRe = regexp.MustCompile(`^\[(\d{2}:\d{2})\]\s*(.*)$`)
)

// Parse turns a raw transcript and its filename into structured data.
//
// Expected format:
//
//	Call Transcript
//	============================================================
//	Call ID: 1463048971679673740
//	Date: 2025-01-02
//	Title: Allen Digital - Onboarding Planning
//
//	Participants:
//	  - Sarvesh Anand <sarvesh@cast.ai>
//	============================================================
//
//	[4999092314777842233]
//	[00:00] Hi, all.
//
//	[3851765349207337158] [Pricing]
//	[00:03] Yeah, I'm good.
func Parse(raw, filename string) Parsed {
	lines := strings.Split(raw, "\n")

	var meta Metadata
	if m := filenameRe.FindStringSubmatch(filename); m != nil {
		meta.FilenameDate = m[1]
		meta.FilenameGongCallID = m[3]
	}

	var participants []Participant

	// Header phase: the first line of repeated '=' opens the header, the
	// second closes it. If the header never closes, headerEnd stays past the
	// last line and the whole document is treated as header, yielding no turns.
	inHeader := false
	inParticipants := false
	headerEnd := len(lines)

	for i, rawLine := range lines {
		line := strings.TrimSpace(rawLine)

		if strings.HasPrefix(line, "====") {
			if inHeader {
				headerEnd = i + 1
				break
			}
			inHeader = true
			continue
		}

		if !inHeader {
			continue
		}

		if m := callIDRe.FindStringSubmatch(line); m != nil {
			if meta.CallID == "" {
				meta.CallID = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := dateRe.FindStringSubmatch(line); m != nil {
			if meta.Date == "" {
				meta.Date = strings.TrimSpace(m[1])
			}
			continue
		}
		if m := titleRe.FindStringSubmatch(line); m != nil {
			if meta.Title == "" {
				meta.Title = strings.TrimSpace(m[1])
			}
			continue
		}

		if line == "Participants:" {
			inParticipants = true
			continue
		}
		if inParticipants {
			if m := participantRe.FindStringSubmatch(line); m != nil {
				participants = append(participants, Participant{
					Name:  strings.TrimSpace(m[1]),
					Email: strings.TrimSpace(m[2]),
				})
			}
		}
	}

	// Body phase: a left-to-right fold over the remaining lines. The
	// accumulator is the current speaker/topic context set by marker lines;
	// content lines before any marker are discarded. Anything matching
	// neither pattern is skipped.
	currentSpeakerID := ""
	currentTopicTag := ""
	var turns []SpeakerTurn

	for i := headerEnd; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		if m := speakerRe.FindStringSubmatch(line); m != nil {
			currentSpeakerID = m[1]
			currentTopicTag = m[2] // empty when the marker carries no tag
			continue
		}

		if m := contentRe.FindStringSubmatch(line); m != nil && currentSpeakerID != "" {
			text := strings.TrimSpace(m[2])
			if text == "" {
				continue
			}
			turns = append(turns, SpeakerTurn{
				SpeakerID: currentSpeakerID,
				Timestamp: m[1],
				Text:      text,
				TopicTag:  currentTopicTag,
			})
		}
	}

	return Parsed{
		Metadata:     meta,
		Participants: participants,
		Turns:        turns,
	}
}
