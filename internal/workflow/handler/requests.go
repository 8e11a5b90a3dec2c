package handler

import (
	"strings"

	"docproof/internal/workflow/models"
	dErrors "docproof/pkg/domain-errors"
)

// InitiateRequest is the HTTP request body for POST /verification-workflows.
type InitiateRequest struct {
	DocumentID string `json:"documentId"`
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *InitiateRequest) Validate() error {
	r.DocumentID = strings.TrimSpace(r.DocumentID)
	if r.DocumentID == "" {
		return dErrors.New(dErrors.CodeValidation, "documentId is required")
	}
	if len(r.DocumentID) > 128 {
		return dErrors.New(dErrors.CodeValidation, "documentId must be at most 128 characters")
	}
	return nil
}

// TransitionRequest is the body for PATCH /verification-workflows/{id}/transition.
type TransitionRequest struct {
	NewState string `json:"newState"`
	Note     string `json:"note"`

	parsedState models.State
}

func (r *TransitionRequest) Validate() error {
	state, err := models.ParseState(strings.TrimSpace(r.NewState))
	if err != nil {
		return err
	}
	r.parsedState = state
	if len(r.Note) > 500 {
		return dErrors.New(dErrors.CodeValidation, "note must be at most 500 characters")
	}
	return nil
}

// ParsedState returns the validated target state.
func (r *TransitionRequest) ParsedState() models.State {
	return r.parsedState
}

// AnchorRequest is the body for PATCH /verification-workflows/{id}/anchor.
type AnchorRequest struct {
	StellarTransactionID string `json:"stellarTransactionId"`
}

func (r *AnchorRequest) Validate() error {
	r.StellarTransactionID = strings.TrimSpace(r.StellarTransactionID)
	if r.StellarTransactionID == "" {
		return dErrors.New(dErrors.CodeValidation, "stellarTransactionId is required")
	}
	return nil
}

// AnalysisRequest is the body for POST /verification-workflows/{id}/analysis.
type AnalysisRequest struct {
	RiskScore *float64 `json:"riskScore"`
}

func (r *AnalysisRequest) Validate() error {
	if r.RiskScore == nil {
		return dErrors.New(dErrors.CodeValidation, "riskScore is required")
	}
	if *r.RiskScore < 0 || *r.RiskScore > 1 {
		return dErrors.New(dErrors.CodeValidation, "riskScore must be between 0 and 1")
	}
	return nil
}
