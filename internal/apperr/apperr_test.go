package apperr

import (
	"errors"
	"fmt"
	"testing"
)

func TestNotFound(t *testing.T) {
	err := NotFound("Call", "abc123")
	if err.Kind != KindNotFound {
		t.Errorf("kind = %s", err.Kind)
	}
	if err.Status != 404 {
		t.Errorf("status = %d", err.Status)
	}
	if err.Error() != "Call 'abc123' not found" {
		t.Errorf("message = %q", err.Error())
	}

	noID := NotFound("Analysis", "")
	if noID.Error() != "Analysis not found" {
		t.Errorf("message = %q", noID.Error())
	}
}

func TestExternal_WrapsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := External("claude", "analyzeTranscript", "analyzeTranscript failed after 3 attempts: connection refused", cause)

	if err.Error() != "[claude] analyzeTranscript failed after 3 attempts: connection refused" {
		t.Errorf("message = %q", err.Error())
	}
	if !errors.Is(err, cause) {
		t.Error("expected wrapped cause to be reachable via errors.Is")
	}
}

func TestKindOf(t *testing.T) {
	if k := KindOf(Validation("bad")); k != KindValidation {
		t.Errorf("kind = %s", k)
	}
	// wrapped once more
	wrapped := fmt.Errorf("outer: %w", Auth("denied", 403))
	if k := KindOf(wrapped); k != KindAuth {
		t.Errorf("kind through wrap = %s", k)
	}
	if k := KindOf(errors.New("plain")); k != "" {
		t.Errorf("kind of plain error = %s", k)
	}
}

func TestStatusOf(t *testing.T) {
	if s := StatusOf(Auth("denied", 403)); s != 403 {
		t.Errorf("status = %d", s)
	}
	if s := StatusOf(errors.New("plain")); s != 500 {
		t.Errorf("status of plain error = %d", s)
	}
}
