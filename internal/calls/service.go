// Package calls syncs transcript files from Drive into the call store and
// answers participant-scoped call listings.
package calls

import (
	"context"
	"encoding/base64"
	"log/slog"
	"regexp"

	"github.com/gongintel/gongintel/internal/apperr"
	"github.com/gongintel/gongintel/internal/drive"
	"github.com/gongintel/gongintel/internal/store"
	"github.com/gongintel/gongintel/internal/transcript"
)

// FileStore is the Drive surface this service needs.
type FileStore interface {
	ListTranscriptFiles(ctx context.Context, userEmail string) ([]drive.File, error)
	ReadFileContent(ctx context.Context, fileID string) (string, error)
}

type CallStore interface {
	UpsertCall(ctx context.Context, c *store.Call) error
	GetCall(ctx context.Context, id string) (*store.Call, error)
	GetCallByDriveFileID(ctx context.Context, driveFileID string) (*store.Call, error)
}

// AnalysisStatusReader answers whether a user already has a completed
// analysis for a call, for the listing's hasAnalysis flag.
type AnalysisStatusReader interface {
	GetLatestAnalysisStatus(ctx context.Context, callID, userID string) (status, errMsg string, found bool, err error)
}

// Summary is one row of a call listing.
type Summary struct {
	ID           string                   `json:"id"`
	Title        string                   `json:"title"`
	CallDate     string                   `json:"callDate"`
	GongCallID   string                   `json:"gongCallId"`
	Participants []transcript.Participant `json:"participants"`
	HasAnalysis  bool                     `json:"hasAnalysis"`
}

type Service struct {
	files    FileStore
	calls    CallStore
	analyses AnalysisStatusReader
	logger   *slog.Logger
}

func NewService(files FileStore, calls CallStore, analyses AnalysisStatusReader, logger *slog.Logger) *Service {
	return &Service{files: files, calls: calls, analyses: analyses, logger: logger}
}

var filenameDateRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_`)

// ListForUser lists calls in [from, to] (inclusive, YYYY-MM-DD) where the
// user is a participant, syncing unseen Drive files into the store along the
// way. Dates must be validated by the caller.
func (s *Service) ListForUser(ctx context.Context, userID, userEmail, from, to string) ([]Summary, error) {
	files, err := s.files.ListTranscriptFiles(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	summaries := []Summary{}
	for _, file := range files {
		// Fast skip on the filename date before any content read.
		if m := filenameDateRe.FindStringSubmatch(file.Name); m != nil {
			if m[1] < from || m[1] > to {
				continue
			}
		}

		call, err := s.calls.GetCallByDriveFileID(ctx, file.ID)
		if err != nil {
			return nil, err
		}
		if call == nil {
			call, err = s.syncFile(ctx, file)
			if err != nil {
				// One unreadable file must not sink the whole listing.
				s.logger.Warn("failed to sync call from drive", "file_id", file.ID, "file_name", file.Name, "error", err)
				continue
			}
		}

		if !transcript.IsParticipant(call.Participants, userEmail) {
			continue
		}
		if call.CallDate < from || call.CallDate > to {
			continue
		}

		hasAnalysis := false
		if s.analyses != nil {
			status, _, found, serr := s.analyses.GetLatestAnalysisStatus(ctx, call.ID, userID)
			if serr == nil && found && status == store.StatusCompleted {
				hasAnalysis = true
			}
		}

		summaries = append(summaries, Summary{
			ID:           call.ID,
			Title:        call.Title,
			CallDate:     call.CallDate,
			GongCallID:   call.GongCallID,
			Participants: call.Participants,
			HasAnalysis:  hasAnalysis,
		})
	}

	return summaries, nil
}

// GetForUser fetches one call, enforcing participant access.
func (s *Service) GetForUser(ctx context.Context, callID, userEmail string) (*store.Call, error) {
	call, err := s.calls.GetCall(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call == nil {
		return nil, apperr.NotFound("Call", callID)
	}
	if !transcript.IsParticipant(call.Participants, userEmail) {
		return nil, apperr.Auth("Access denied", 403)
	}
	return call, nil
}

// syncFile reads, parses and persists a transcript seen for the first time.
// Header fields win; filename-derived values and Drive metadata fill gaps.
func (s *Service) syncFile(ctx context.Context, file drive.File) (*store.Call, error) {
	content, err := s.files.ReadFileContent(ctx, file.ID)
	if err != nil {
		return nil, err
	}

	parsed := transcript.Parse(content, file.Name)

	title := parsed.Metadata.Title
	if title == "" {
		title = file.Name
	}
	callDate := parsed.Metadata.Date
	if callDate == "" {
		callDate = parsed.Metadata.FilenameDate
	}
	if callDate == "" && len(file.ModifiedTime) >= 10 {
		callDate = file.ModifiedTime[:10]
	}
	gongCallID := parsed.Metadata.CallID
	if gongCallID == "" {
		gongCallID = parsed.Metadata.FilenameGongCallID
	}

	call := &store.Call{
		ID:             DeriveCallID(file.ID),
		DriveFileID:    file.ID,
		Filename:       file.Name,
		Title:          title,
		CallDate:       callDate,
		GongCallID:     gongCallID,
		Participants:   parsed.Participants,
		TranscriptHash: transcript.Hash(content),
	}
	if err := s.calls.UpsertCall(ctx, call); err != nil {
		return nil, err
	}

	s.logger.Debug("synced new call from drive", "call_id", call.ID, "file_name", file.Name)
	return call, nil
}

var nonAlnumRe = regexp.MustCompile(`[^a-zA-Z0-9]`)

// DeriveCallID builds a deterministic, URL-safe call id from a Drive file id.
func DeriveCallID(driveFileID string) string {
	enc := base64.RawURLEncoding.EncodeToString([]byte(driveFileID))
	enc = nonAlnumRe.ReplaceAllString(enc, "")
	if len(enc) > 20 {
		enc = enc[:20]
	}
	return enc
}
