// Package events publishes workflow state-change events for the surrounding
// document-management modules to consume. The workflow engine never depends
// on those modules directly; it emits and they subscribe.
package events

import (
	"context"
	"time"

	"docproof/internal/workflow/models"
)

// StateChanged is emitted after every committed workflow transition.
type StateChanged struct {
	WorkflowID           string       `json:"workflow_id"`
	DocumentID           string       `json:"document_id"`
	From                 models.State `json:"from,omitempty"`
	To                   models.State `json:"to"`
	Note                 string       `json:"note,omitempty"`
	StellarTransactionID string       `json:"stellar_transaction_id,omitempty"`
	OccurredAt           time.Time    `json:"occurred_at"`
}

// Publisher delivers state-change events. Implementations must be safe for
// concurrent use. Publish is asynchronous: delivery failure is reported
// through logs and metrics, never back to the transition caller.
type Publisher interface {
	Publish(ctx context.Context, event StateChanged)
	Close()
}
