//go:build integration

package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/gongintel/gongintel/internal/transcript"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect: %v", err)
	}

	t.Cleanup(func() {
		s.Close()
	})
	return s
}

func seedCall(t *testing.T, s *Store) *Call {
	t.Helper()
	c := &Call{
		ID:          "itest-" + uuid.New().String()[:8],
		DriveFileID: "drive-" + uuid.New().String(),
		Filename:    "2025-01-02_Integration Test-12345678.txt",
		Title:       "Integration Test",
		CallDate:    "2025-01-02",
		GongCallID:  "12345678",
		Participants: []transcript.Participant{
			{Name: "Jane", Email: "jane@x.com"},
		},
		TranscriptHash: "deadbeef",
	}
	if err := s.UpsertCall(context.Background(), c); err != nil {
		t.Fatalf("UpsertCall failed: %v", err)
	}
	return c
}

func TestIntegration_CallRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := seedCall(t, s)

	got, err := s.GetCall(ctx, c.ID)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if got == nil || got.Title != "Integration Test" || len(got.Participants) != 1 {
		t.Errorf("call = %+v", got)
	}

	byFile, err := s.GetCallByDriveFileID(ctx, c.DriveFileID)
	if err != nil {
		t.Fatalf("GetCallByDriveFileID failed: %v", err)
	}
	if byFile == nil || byFile.ID != c.ID {
		t.Errorf("call by drive file = %+v", byFile)
	}
}

func TestIntegration_AnalysisLifecycle(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	c := seedCall(t, s)
	userID := "user-" + uuid.New().String()[:8]

	n, err := s.CountAnalyses(ctx, c.ID, userID)
	if err != nil || n != 0 {
		t.Fatalf("count = %d, err = %v", n, err)
	}

	a := &Analysis{
		ID:        c.ID + "_" + userID + "_v1",
		CallID:    c.ID,
		UserID:    userID,
		Version:   1,
		Status:    StatusPending,
		ModelUsed: "claude-sonnet-4-20250514",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.CreateAnalysis(ctx, a); err != nil {
		t.Fatalf("CreateAnalysis failed: %v", err)
	}

	if err := s.MarkAnalysisProcessing(ctx, a.ID); err != nil {
		t.Fatalf("MarkAnalysisProcessing failed: %v", err)
	}

	result := json.RawMessage(`{"call_type":"Discovery","overall_summary":"ok"}`)
	if err := s.FinishAnalysis(ctx, a.ID, StatusCompleted, result, ""); err != nil {
		t.Fatalf("FinishAnalysis failed: %v", err)
	}

	// A second terminal write must be rejected by the status guard.
	err = s.FinishAnalysis(ctx, a.ID, StatusFailed, nil, "late timeout")
	if !errors.Is(err, ErrNotProcessing) {
		t.Errorf("expected ErrNotProcessing, got %v", err)
	}

	latest, err := s.GetLatestAnalysis(ctx, c.ID, userID)
	if err != nil {
		t.Fatalf("GetLatestAnalysis failed: %v", err)
	}
	if latest == nil || latest.Status != StatusCompleted || latest.Version != 1 {
		t.Errorf("latest = %+v", latest)
	}

	status, errMsg, found, err := s.GetLatestAnalysisStatus(ctx, c.ID, userID)
	if err != nil || !found || status != StatusCompleted || errMsg != "" {
		t.Errorf("status = %q errMsg = %q found = %v err = %v", status, errMsg, found, err)
	}
}

func TestIntegration_MarkProcessingMissingRecord(t *testing.T) {
	s := setupTestStore(t)

	err := s.MarkAnalysisProcessing(context.Background(), "does-not-exist")
	if !errors.Is(err, ErrNotProcessing) {
		t.Errorf("expected ErrNotProcessing, got %v", err)
	}
}
