package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ErrNotProcessing is returned when a lifecycle write finds the job in an
// unexpected state: the record is missing, or another write already moved it
// to a terminal status.
var ErrNotProcessing = errors.New("analysis is not in the expected state")

// Analysis is one versioned job record: one request to analyze one call for
// one user. ModelUsed and CreatedAt are set at creation and never change.
type Analysis struct {
	ID        string          `json:"id"`
	CallID    string          `json:"callId"`
	UserID    string          `json:"userId"`
	Version   int             `json:"version"`
	Status    string          `json:"status"`
	ModelUsed string          `json:"modelUsed"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     string          `json:"error,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// CreateAnalysis inserts a new job record. The triggering caller creates it
// in pending before the background run starts.
func (s *Store) CreateAnalysis(ctx context.Context, a *Analysis) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO analyses (id, call_id, user_id, version, status, model_used, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, '', $7)`,
		a.ID, a.CallID, a.UserID, a.Version, a.Status, a.ModelUsed, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	return nil
}

// MarkAnalysisProcessing moves a pending job to processing.
func (s *Store) MarkAnalysisProcessing(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE analyses SET status = $1 WHERE id = $2 AND status = $3`,
		StatusProcessing, id, StatusPending,
	)
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotProcessing)
	}
	return nil
}

// FinishAnalysis performs the single terminal write. The status guard makes
// the transition forward-only: once a terminal status lands, a late write
// from an orphaned run is a no-op and reports ErrNotProcessing.
func (s *Store) FinishAnalysis(ctx context.Context, id, status string, result json.RawMessage, errMsg string) error {
	if status != StatusCompleted && status != StatusFailed {
		return fmt.Errorf("finish analysis: %q is not a terminal status", status)
	}

	tag, err := s.pool.Exec(ctx, `
		UPDATE analyses SET status = $1, result = $2, error = $3 WHERE id = $4 AND status = $5`,
		status, result, errMsg, id, StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("finish analysis: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("analysis %s: %w", id, ErrNotProcessing)
	}
	return nil
}

// GetAnalysis fetches a job by id, nil when absent.
func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	return scanAnalysis(s.pool.QueryRow(ctx, `
		SELECT id, call_id, user_id, version, status, model_used, result, error, created_at
		FROM analyses WHERE id = $1`, id))
}

// GetLatestAnalysis fetches the highest-version job for a call/user pair,
// nil when none exists.
func (s *Store) GetLatestAnalysis(ctx context.Context, callID, userID string) (*Analysis, error) {
	return scanAnalysis(s.pool.QueryRow(ctx, `
		SELECT id, call_id, user_id, version, status, model_used, result, error, created_at
		FROM analyses WHERE call_id = $1 AND user_id = $2
		ORDER BY version DESC LIMIT 1`, callID, userID))
}

// GetLatestAnalysisStatus reads only status and error for the latest job,
// cheap enough for a 2s polling cadence. found is false when no job exists.
func (s *Store) GetLatestAnalysisStatus(ctx context.Context, callID, userID string) (status, errMsg string, found bool, err error) {
	row := s.pool.QueryRow(ctx, `
		SELECT status, error FROM analyses
		WHERE call_id = $1 AND user_id = $2
		ORDER BY version DESC LIMIT 1`, callID, userID)

	scanErr := row.Scan(&status, &errMsg)
	if errors.Is(scanErr, pgx.ErrNoRows) {
		return "", "", false, nil
	}
	if scanErr != nil {
		return "", "", false, fmt.Errorf("scan analysis status: %w", scanErr)
	}
	return status, errMsg, true, nil
}

// CountAnalyses returns how many jobs exist for a call/user pair; the next
// version is count+1.
func (s *Store) CountAnalyses(ctx context.Context, callID, userID string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM analyses WHERE call_id = $1 AND user_id = $2`,
		callID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count analyses: %w", err)
	}
	return n, nil
}

func scanAnalysis(r row) (*Analysis, error) {
	var a Analysis
	err := r.Scan(&a.ID, &a.CallID, &a.UserID, &a.Version, &a.Status, &a.ModelUsed, &a.Result, &a.Error, &a.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan analysis: %w", err)
	}
	return &a, nil
}
