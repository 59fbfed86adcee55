package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/gongintel/gongintel/internal/transcript"
)

// Call is one synced transcript file.
type Call struct {
	ID             string
	DriveFileID    string
	Filename       string
	Title          string
	CallDate       string // YYYY-MM-DD
	GongCallID     string
	Participants   []transcript.Participant
	TranscriptHash string
	CreatedAt      time.Time
}

// UpsertCall inserts or refreshes a call row keyed by id.
func (s *Store) UpsertCall(ctx context.Context, c *Call) error {
	participants, err := json.Marshal(c.Participants)
	if err != nil {
		return fmt.Errorf("marshal participants: %w", err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO calls (id, drive_file_id, filename, title, call_date, gong_call_id, participants, transcript_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (id) DO UPDATE SET
			filename = EXCLUDED.filename,
			title = EXCLUDED.title,
			call_date = EXCLUDED.call_date,
			gong_call_id = EXCLUDED.gong_call_id,
			participants = EXCLUDED.participants,
			transcript_hash = EXCLUDED.transcript_hash`,
		c.ID, c.DriveFileID, c.Filename, c.Title, c.CallDate, c.GongCallID, participants, c.TranscriptHash,
	)
	if err != nil {
		return fmt.Errorf("upsert call: %w", err)
	}
	return nil
}

// GetCall fetches a call by id, returning nil when absent.
func (s *Store) GetCall(ctx context.Context, id string) (*Call, error) {
	return s.scanCall(s.pool.QueryRow(ctx, `
		SELECT id, drive_file_id, filename, title, call_date, gong_call_id, participants, transcript_hash, created_at
		FROM calls WHERE id = $1`, id))
}

// GetCallByDriveFileID fetches a call by its Drive file id, nil when absent.
func (s *Store) GetCallByDriveFileID(ctx context.Context, driveFileID string) (*Call, error) {
	return s.scanCall(s.pool.QueryRow(ctx, `
		SELECT id, drive_file_id, filename, title, call_date, gong_call_id, participants, transcript_hash, created_at
		FROM calls WHERE drive_file_id = $1`, driveFileID))
}

type row interface {
	Scan(dest ...any) error
}

func (s *Store) scanCall(r row) (*Call, error) {
	var c Call
	var participants []byte
	err := r.Scan(&c.ID, &c.DriveFileID, &c.Filename, &c.Title, &c.CallDate, &c.GongCallID, &participants, &c.TranscriptHash, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan call: %w", err)
	}
	if err := json.Unmarshal(participants, &c.Participants); err != nil {
		return nil, fmt.Errorf("unmarshal participants: %w", err)
	}
	return &c, nil
}
