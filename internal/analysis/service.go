// Package analysis owns the analysis job lifecycle: versioned job records,
// the detached background run that drives each job to a terminal status, and
// the polling contract clients use to observe it.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gongintel/gongintel/internal/apperr"
	"github.com/gongintel/gongintel/internal/events"
	"github.com/gongintel/gongintel/internal/retry"
	"github.com/gongintel/gongintel/internal/store"
	"github.com/gongintel/gongintel/internal/transcript"
)

// backgroundTimeout is the hard wall-clock ceiling on one background run,
// covering the Drive read, parsing, and the analyzer call with all its
// retries. Independent of and stricter than any per-call timeout inside.
const backgroundTimeout = 3 * time.Minute

// StatusNone is reported when no job exists yet for a call/user pair.
const StatusNone = "none"

// JobStore is the persistence surface the orchestrator needs. The service
// instance that creates a job is its sole writer for the job's lifetime.
type JobStore interface {
	CreateAnalysis(ctx context.Context, a *store.Analysis) error
	MarkAnalysisProcessing(ctx context.Context, id string) error
	FinishAnalysis(ctx context.Context, id, status string, result json.RawMessage, errMsg string) error
	GetLatestAnalysis(ctx context.Context, callID, userID string) (*store.Analysis, error)
	GetLatestAnalysisStatus(ctx context.Context, callID, userID string) (status, errMsg string, found bool, err error)
	CountAnalyses(ctx context.Context, callID, userID string) (int, error)
}

// ContentReader fetches raw transcript content by file reference.
type ContentReader interface {
	ReadFileContent(ctx context.Context, fileID string) (string, error)
}

// TranscriptAnalyzer runs the LLM analysis of a parsed transcript.
type TranscriptAnalyzer interface {
	Analyze(ctx context.Context, parsed transcript.Parsed) (*Result, json.RawMessage, error)
	Model() string
}

type Service struct {
	jobs     JobStore
	content  ContentReader
	analyzer TranscriptAnalyzer
	events   *events.Publisher // nil when NATS is not configured
	logger   *slog.Logger

	timeout time.Duration
}

func NewService(jobs JobStore, content ContentReader, analyzer TranscriptAnalyzer, ev *events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		jobs:     jobs,
		content:  content,
		analyzer: analyzer,
		events:   ev,
		logger:   logger,
		timeout:  backgroundTimeout,
	}
}

// Trigger creates the next-version job record in pending and spawns the
// background run. It returns the job id immediately; callers poll for the
// outcome. Nothing deduplicates concurrent triggers for the same call/user;
// each gets its own version and its own run.
func (s *Service) Trigger(ctx context.Context, call *store.Call, userID string) (string, error) {
	count, err := s.jobs.CountAnalyses(ctx, call.ID, userID)
	if err != nil {
		return "", fmt.Errorf("count analyses: %w", err)
	}
	version := count + 1
	analysisID := fmt.Sprintf("%s_%s_v%d", call.ID, userID, version)

	job := &store.Analysis{
		ID:        analysisID,
		CallID:    call.ID,
		UserID:    userID,
		Version:   version,
		Status:    store.StatusPending,
		ModelUsed: s.analyzer.Model(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.jobs.CreateAnalysis(ctx, job); err != nil {
		return "", fmt.Errorf("create analysis: %w", err)
	}

	s.logger.Info("analysis triggered",
		"analysis_id", analysisID,
		"call_id", call.ID,
		"user_id", userID,
		"version", version,
	)
	s.events.PublishAnalysis(events.SubjectAnalysisTriggered, events.AnalysisEvent{
		AnalysisID: analysisID,
		CallID:     call.ID,
		UserID:     userID,
		Version:    version,
		Status:     store.StatusPending,
	})

	// Detached from the triggering request: the HTTP handler returns while
	// this run continues on its own context.
	go s.runBackground(analysisID, call, userID, version)

	return analysisID, nil
}

func (s *Service) runBackground(analysisID string, call *store.Call, userID string, version int) {
	ctx := context.Background()

	_, err := retry.WithTimeout(ctx, s.timeout, "analysis", "background analysis",
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, s.run(ctx, analysisID, call)
		})
	if err == nil {
		s.events.PublishAnalysis(events.SubjectAnalysisCompleted, events.AnalysisEvent{
			AnalysisID: analysisID,
			CallID:     call.ID,
			UserID:     userID,
			Version:    version,
			Status:     store.StatusCompleted,
		})
		return
	}

	s.logger.Error("background analysis failed",
		"analysis_id", analysisID,
		"call_id", call.ID,
		"error", err,
	)

	// The terminal failed write. If this itself fails, log and stop; the
	// job stays unobservable-as-failed rather than crashing the process.
	if ferr := s.jobs.FinishAnalysis(ctx, analysisID, store.StatusFailed, nil, err.Error()); ferr != nil {
		s.logger.Error("failed to record analysis failure",
			"analysis_id", analysisID,
			"error", ferr,
		)
		return
	}
	s.events.PublishAnalysis(events.SubjectAnalysisFailed, events.AnalysisEvent{
		AnalysisID: analysisID,
		CallID:     call.ID,
		UserID:     userID,
		Version:    version,
		Status:     store.StatusFailed,
		Error:      err.Error(),
	})
}

// run is one background execution: processing write, content fetch, parse,
// analyze, terminal completed write. Any error is handled by runBackground.
func (s *Service) run(ctx context.Context, analysisID string, call *store.Call) error {
	if err := s.jobs.MarkAnalysisProcessing(ctx, analysisID); err != nil {
		return err
	}

	content, err := s.content.ReadFileContent(ctx, call.DriveFileID)
	if err != nil {
		return err
	}

	parsed := transcript.Parse(content, call.Filename)

	_, raw, err := s.analyzer.Analyze(ctx, parsed)
	if err != nil {
		return err
	}

	if err := s.jobs.FinishAnalysis(ctx, analysisID, store.StatusCompleted, raw, ""); err != nil {
		if errors.Is(err, store.ErrNotProcessing) {
			// The outer deadline already recorded a terminal status; this
			// run was orphaned and its result is discarded.
			s.logger.Warn("analysis finished after its terminal status was recorded", "analysis_id", analysisID)
			return nil
		}
		return err
	}

	s.logger.Info("analysis completed", "analysis_id", analysisID, "call_id", call.ID)
	return nil
}

// StatusResponse is the cheap polling payload: no result body.
type StatusResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Status reports the latest job's status for a call/user pair, or StatusNone
// when no job exists yet.
func (s *Service) Status(ctx context.Context, callID, userID string) (StatusResponse, error) {
	status, errMsg, found, err := s.jobs.GetLatestAnalysisStatus(ctx, callID, userID)
	if err != nil {
		return StatusResponse{}, err
	}
	if !found {
		return StatusResponse{Status: StatusNone}, nil
	}
	return StatusResponse{Status: status, Error: errMsg}, nil
}

// Latest returns the latest job record for a call/user pair once it has
// completed. Absent or non-terminal jobs report not-found / not-ready.
func (s *Service) Latest(ctx context.Context, callID, userID string) (*store.Analysis, error) {
	a, err := s.jobs.GetLatestAnalysis(ctx, callID, userID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apperr.NotFound("Analysis", "")
	}
	if a.Status != store.StatusCompleted {
		return nil, &apperr.Error{
			Kind:    apperr.KindNotFound,
			Status:  404,
			Code:    "NOT_READY",
			Message: fmt.Sprintf("analysis is %s, not completed", a.Status),
		}
	}
	return a, nil
}
