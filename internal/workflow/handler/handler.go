package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docproof/internal/workflow/models"
	dErrors "docproof/pkg/domain-errors"
	"docproof/pkg/platform/httputil"
	"docproof/pkg/requestcontext"
)

// Service defines the interface for workflow operations.
type Service interface {
	Initiate(ctx context.Context, documentID string) (*models.VerificationWorkflow, error)
	Transition(ctx context.Context, workflowID string, newState models.State, note string) (*models.VerificationWorkflow, error)
	RecordAnchor(ctx context.Context, workflowID, transactionID string) (*models.VerificationWorkflow, error)
	CompleteAnalysis(ctx context.Context, workflowID string, riskScore float64) (*models.VerificationWorkflow, error)
	FindByDocument(ctx context.Context, documentID string) (*models.VerificationWorkflow, error)
	List(ctx context.Context, state *models.State) ([]*models.VerificationWorkflow, error)
}

// Handler wires the verification-workflow endpoints to the workflow engine.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a workflow handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts workflow endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/verification-workflows", func(r chi.Router) {
		r.Post("/", h.HandleInitiate)
		r.Get("/", h.HandleList)
		r.Get("/document/{documentID}", h.HandleFindByDocument)
		r.Patch("/{id}/transition", h.HandleTransition)
		r.Patch("/{id}/anchor", h.HandleAnchor)
		r.Post("/{id}/analysis", h.HandleAnalysis)
	})
}

// HandleInitiate handles POST /verification-workflows.
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitiateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wf, err := h.service.Initiate(ctx, req.DocumentID)
	if err != nil {
		h.logger.ErrorContext(ctx, "workflow initiation failed",
			"request_id", requestID,
			"document_id", req.DocumentID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, FromWorkflow(wf))
}

// HandleList handles GET /verification-workflows?state=.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var stateFilter *models.State
	if raw := r.URL.Query().Get("state"); raw != "" {
		state, err := models.ParseState(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		stateFilter = &state
	}

	workflows, err := h.service.List(ctx, stateFilter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflows(workflows))
}

// HandleFindByDocument handles GET /verification-workflows/document/{documentID}.
func (h *Handler) HandleFindByDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documentID := chi.URLParam(r, "documentID")
	wf, err := h.service.FindByDocument(ctx, documentID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(wf))
}

// HandleTransition handles PATCH /verification-workflows/{id}/transition.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID := chi.URLParam(r, "id")
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wf, err := h.service.Transition(ctx, workflowID, req.ParsedState(), req.Note)
	if err != nil {
		if !dErrors.Is(err, dErrors.CodeInvalidTransition) && !dErrors.Is(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "workflow transition failed",
				"request_id", requestID,
				"workflow_id", workflowID,
				"new_state", req.NewState,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(wf))
}

// HandleAnchor handles PATCH /verification-workflows/{id}/anchor.
func (h *Handler) HandleAnchor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID := chi.URLParam(r, "id")
	req, ok := httputil.DecodeAndPrepare[AnchorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wf, err := h.service.RecordAnchor(ctx, workflowID, req.StellarTransactionID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(wf))
}

// HandleAnalysis handles POST /verification-workflows/{id}/analysis.
func (h *Handler) HandleAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	workflowID := chi.URLParam(r, "id")
	req, ok := httputil.DecodeAndPrepare[AnalysisRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	wf, err := h.service.CompleteAnalysis(ctx, workflowID, *req.RiskScore)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromWorkflow(wf))
}
