// Package workflow implements the document-verification state machine. The
// engine owns VerificationWorkflow records and moves them through the state
// enum; it never talks to the ledger itself. Anchoring results arrive through
// RecordAnchor, risk scores through CompleteAnalysis.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"docproof/internal/workflow/events"
	"docproof/internal/workflow/metrics"
	"docproof/internal/workflow/models"
	dErrors "docproof/pkg/domain-errors"
	"docproof/pkg/platform/sentinel"
	"docproof/pkg/requestcontext"
)

// Store is the persistence boundary for workflows. Update takes the version
// the caller read so concurrent writers are detected, not overwritten.
type Store interface {
	Insert(ctx context.Context, wf *models.VerificationWorkflow) error
	Get(ctx context.Context, id string) (*models.VerificationWorkflow, error)
	Update(ctx context.Context, wf *models.VerificationWorkflow, expectedVersion int64) error
	FindLatestByDocument(ctx context.Context, documentID string) (*models.VerificationWorkflow, error)
	List(ctx context.Context, state *models.State) ([]*models.VerificationWorkflow, error)
}

// Service is the workflow engine.
type Service struct {
	store         Store
	publisher     events.Publisher
	logger        *slog.Logger
	metrics       *metrics.Metrics
	riskThreshold float64

	// locks serializes transitions per workflow id within this process; the
	// store's version check covers writers in other processes.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher sets the state-change event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithMetrics sets the workflow metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithRiskRejectThreshold sets the score at or above which CompleteAnalysis
// rejects the document instead of sending it to anchoring.
func WithRiskRejectThreshold(threshold float64) Option {
	return func(s *Service) { s.riskThreshold = threshold }
}

// New constructs the workflow engine.
func New(store Store, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("workflow store is required")
	}
	svc := &Service{
		store:         store,
		logger:        slog.Default(),
		riskThreshold: 0.7,
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc, nil
}

// Initiate creates a workflow in SUBMITTED with a single history entry. It
// has no external side effects beyond the insert and the emitted event.
func (s *Service) Initiate(ctx context.Context, documentID string) (*models.VerificationWorkflow, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "documentId is required")
	}

	now := requestcontext.Now(ctx)
	wf := &models.VerificationWorkflow{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		CurrentState: models.StateSubmitted,
		SubmittedAt:  now,
		History: []models.HistoryEntry{
			{State: models.StateSubmitted, Timestamp: now, Note: "Workflow initiated"},
		},
	}
	if err := s.store.Insert(ctx, wf); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create workflow")
	}

	s.logger.InfoContext(ctx, "workflow initiated",
		"workflow_id", wf.ID,
		"document_id", documentID,
	)
	s.emit(ctx, wf, "", models.StateSubmitted, "Workflow initiated")
	return wf, nil
}

// Transition moves the workflow along one allowed edge. The full
// state+history update commits atomically or not at all.
func (s *Service) Transition(ctx context.Context, workflowID string, newState models.State, note string) (*models.VerificationWorkflow, error) {
	return s.transition(ctx, workflowID, newState, note, func(wf *models.VerificationWorkflow) {})
}

// RecordAnchor is the specialized AWAITING_BLOCKCHAIN -> ANCHORED transition
// that stores the ledger transaction reference.
func (s *Service) RecordAnchor(ctx context.Context, workflowID, transactionID string) (*models.VerificationWorkflow, error) {
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "stellarTransactionId is required")
	}
	note := fmt.Sprintf("Anchored in ledger transaction %s", transactionID)
	return s.transition(ctx, workflowID, models.StateAnchored, note, func(wf *models.VerificationWorkflow) {
		wf.StellarTransactionID = transactionID
	})
}

// CompleteAnalysis consumes the externally computed risk score and decides
// the ANALYZING outcome: below the threshold the document proceeds to
// anchoring, otherwise it is rejected.
func (s *Service) CompleteAnalysis(ctx context.Context, workflowID string, riskScore float64) (*models.VerificationWorkflow, error) {
	if riskScore < 0 || riskScore > 1 {
		return nil, dErrors.New(dErrors.CodeValidation, "riskScore must be between 0 and 1")
	}
	if riskScore >= s.riskThreshold {
		note := fmt.Sprintf("Risk score %.2f at or above threshold %.2f", riskScore, s.riskThreshold)
		return s.transition(ctx, workflowID, models.StateRejected, note, func(wf *models.VerificationWorkflow) {
			wf.ErrorMessage = note
		})
	}
	note := fmt.Sprintf("Risk score %.2f below threshold %.2f", riskScore, s.riskThreshold)
	return s.transition(ctx, workflowID, models.StateAwaitingBlockchain, note, func(wf *models.VerificationWorkflow) {})
}

// FindByDocument returns the most recently submitted workflow for the
// document, or CodeNotFound.
func (s *Service) FindByDocument(ctx context.Context, documentID string) (*models.VerificationWorkflow, error) {
	documentID = strings.TrimSpace(documentID)
	if documentID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "documentId is required")
	}
	wf, err := s.store.FindLatestByDocument(ctx, documentID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "no workflow for document")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load workflow")
	}
	return wf, nil
}

// List returns all workflows ordered by submission time descending,
// optionally filtered by state.
func (s *Service) List(ctx context.Context, state *models.State) ([]*models.VerificationWorkflow, error) {
	workflows, err := s.store.List(ctx, state)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list workflows")
	}
	return workflows, nil
}

// transition is the single write path for all state changes: load, check the
// edge, apply to a copy, commit with a version check.
func (s *Service) transition(ctx context.Context, workflowID string, newState models.State, note string, mutate func(*models.VerificationWorkflow)) (*models.VerificationWorkflow, error) {
	if _, err := models.ParseState(string(newState)); err != nil {
		return nil, err
	}
	workflowID = strings.TrimSpace(workflowID)
	if workflowID == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "workflow id is required")
	}

	lock := s.lockFor(workflowID)
	lock.Lock()
	defer lock.Unlock()

	start := time.Now()

	wf, err := s.store.Get(ctx, workflowID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load workflow")
	}

	from := wf.CurrentState
	if !from.CanTransitionTo(newState) {
		s.metrics.RecordInvalidTransition(string(newState))
		return nil, dErrors.New(dErrors.CodeInvalidTransition,
			fmt.Sprintf("cannot transition from %s to %s", from, newState))
	}

	expectedVersion := wf.Version
	mutate(wf)
	wf.Apply(newState, requestcontext.Now(ctx), note)

	if err := s.store.Update(ctx, wf, expectedVersion); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "workflow not found")
		case errors.Is(err, sentinel.ErrConflict):
			return nil, dErrors.New(dErrors.CodeConflict, "workflow was modified concurrently")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to update workflow")
		}
	}

	if newState.Terminal() {
		s.releaseLock(workflowID)
	}

	s.metrics.RecordTransition(string(from), string(newState), time.Since(start))
	s.logger.InfoContext(ctx, "workflow transitioned",
		"workflow_id", wf.ID,
		"document_id", wf.DocumentID,
		"from", from,
		"to", newState,
	)
	s.emit(ctx, wf, from, newState, note)
	return wf, nil
}

func (s *Service) emit(ctx context.Context, wf *models.VerificationWorkflow, from, to models.State, note string) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, events.StateChanged{
		WorkflowID:           wf.ID,
		DocumentID:           wf.DocumentID,
		From:                 from,
		To:                   to,
		Note:                 note,
		StellarTransactionID: wf.StellarTransactionID,
		OccurredAt:           requestcontext.Now(ctx),
	})
}

func (s *Service) lockFor(workflowID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[workflowID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[workflowID] = lock
	}
	return lock
}

// releaseLock drops a workflow's lock entry once it reaches a terminal state.
// Terminal states admit no further transitions, so a writer that raced onto a
// fresh mutex can at worst be rejected by the edge check.
func (s *Service) releaseLock(workflowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.locks, workflowID)
}
