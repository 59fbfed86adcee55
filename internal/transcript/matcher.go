package transcript

import "strings"

// IsParticipant reports whether userEmail is among the participants.
// Email is the identity key everywhere in the system; matching is
// case-insensitive with surrounding whitespace ignored.
func IsParticipant(participants []Participant, userEmail string) bool {
	normalized := strings.ToLower(strings.TrimSpace(userEmail))
	for _, p := range participants {
		if strings.ToLower(strings.TrimSpace(p.Email)) == normalized {
			return true
		}
	}
	return false
}
