package handler

import (
	"time"

	"docproof/internal/workflow/models"
)

// HistoryEntryResponse is one history step on the wire.
type HistoryEntryResponse struct {
	State     string    `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Note      string    `json:"note,omitempty"`
}

// WorkflowResponse is the wire shape of a verification workflow.
type WorkflowResponse struct {
	ID                   string                 `json:"id"`
	DocumentID           string                 `json:"documentId"`
	CurrentState         string                 `json:"currentState"`
	StellarTransactionID string                 `json:"stellarTransactionId,omitempty"`
	ErrorMessage         string                 `json:"errorMessage,omitempty"`
	SubmittedAt          time.Time              `json:"submittedAt"`
	CompletedAt          *time.Time             `json:"completedAt,omitempty"`
	History              []HistoryEntryResponse `json:"history"`
}

// FromWorkflow converts a domain workflow to its wire shape.
func FromWorkflow(wf *models.VerificationWorkflow) WorkflowResponse {
	history := make([]HistoryEntryResponse, len(wf.History))
	for i, entry := range wf.History {
		history[i] = HistoryEntryResponse{
			State:     string(entry.State),
			Timestamp: entry.Timestamp,
			Note:      entry.Note,
		}
	}
	return WorkflowResponse{
		ID:                   wf.ID,
		DocumentID:           wf.DocumentID,
		CurrentState:         string(wf.CurrentState),
		StellarTransactionID: wf.StellarTransactionID,
		ErrorMessage:         wf.ErrorMessage,
		SubmittedAt:          wf.SubmittedAt,
		CompletedAt:          wf.CompletedAt,
		History:              history,
	}
}

// FromWorkflows converts a list of workflows.
func FromWorkflows(workflows []*models.VerificationWorkflow) []WorkflowResponse {
	out := make([]WorkflowResponse, len(workflows))
	for i, wf := range workflows {
		out[i] = FromWorkflow(wf)
	}
	return out
}
