package transcript

import (
	"fmt"
	"strings"
)

// FormatForAnalysis renders a parsed transcript back into the text layout the
// analyzer prompt expects: participant list, then speaker turns grouped under
// a "[Speaker <id>] [<topic>]" header whenever the speaker changes.
func FormatForAnalysis(p Parsed) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Call: %s\n", p.Metadata.Title)
	fmt.Fprintf(&b, "Date: %s\n", p.Metadata.Date)
	fmt.Fprintf(&b, "Call ID: %s\n", p.Metadata.CallID)
	b.WriteString("\nParticipants:\n")
	for _, part := range p.Participants {
		fmt.Fprintf(&b, "  - %s <%s>\n", part.Name, part.Email)
	}
	b.WriteString("\nTranscript:\n")

	lastSpeakerID := ""
	for _, turn := range p.Turns {
		if turn.SpeakerID != lastSpeakerID {
			b.WriteString("\n")
			if turn.TopicTag != "" {
				fmt.Fprintf(&b, "[Speaker %s] [%s]\n", turn.SpeakerID, turn.TopicTag)
			} else {
				fmt.Fprintf(&b, "[Speaker %s]\n", turn.SpeakerID)
			}
			lastSpeakerID = turn.SpeakerID
		}
		fmt.Fprintf(&b, "[%s] %s\n", turn.Timestamp, turn.Text)
	}

	return strings.TrimRight(b.String(), "\n")
}
