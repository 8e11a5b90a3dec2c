package stellar

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docproof/internal/stellar/horizon"
	"docproof/internal/stellar/metrics"
	"docproof/internal/stellar/models"
	dErrors "docproof/pkg/domain-errors"
	"docproof/pkg/platform/sentinel"
	"docproof/pkg/requestcontext"
)

// Poller drives a pending ledger transaction to one of its three terminal
// outcomes. Each call is strictly time-boxed: it polls at a fixed interval
// until the ledger reports success or failure, or the confirmation budget is
// exhausted, in which case the record is marked timed out. The wait loop
// suspends only itself; a lookup that does not find the transaction yet is
// "not yet", never an error.
type Poller struct {
	store    Store
	horizons map[models.Network]horizon.API
	interval time.Duration
	timeout  time.Duration
	metrics  *metrics.Metrics
	logger   *slog.Logger
}

// PollerOption configures the Poller.
type PollerOption func(*Poller)

// WithPollInterval sets the sleep between lookups.
func WithPollInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithConfirmationTimeout sets the total wall-clock polling budget.
func WithConfirmationTimeout(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithPollerLogger sets the structured logger.
func WithPollerLogger(logger *slog.Logger) PollerOption {
	return func(p *Poller) { p.logger = logger }
}

// WithPollerMetrics sets the anchoring metrics.
func WithPollerMetrics(m *metrics.Metrics) PollerOption {
	return func(p *Poller) { p.metrics = m }
}

// NewPoller constructs a confirmation poller.
func NewPoller(store Store, horizons map[models.Network]horizon.API, opts ...PollerOption) (*Poller, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if len(horizons) == 0 {
		return nil, fmt.Errorf("at least one horizon client is required")
	}
	p := &Poller{
		store:    store,
		horizons: horizons,
		interval: 2 * time.Second,
		timeout:  60 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PollTransactionStatus polls the ledger until the transaction resolves or
// the budget runs out, persisting the terminal status it reaches. At least
// one lookup is always made; transient lookup failures are swallowed and
// count against the time budget only. Cancelling the context aborts the loop
// without persisting a status.
func (p *Poller) PollTransactionStatus(ctx context.Context, transactionHash string, network models.Network) (models.TxStatus, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return "", err
	}
	hash, err := models.ParseTransactionHash(transactionHash)
	if err != nil {
		return "", err
	}
	h, ok := p.horizons[network]
	if !ok {
		return "", dErrors.New(dErrors.CodeInternal, "no ledger client for network")
	}

	deadline := time.Now().Add(p.timeout)
	for {
		detail, err := h.TransactionDetail(hash)
		switch {
		case err == nil && detail.Successful:
			confirmedAt := requestcontext.Now(ctx)
			payload, _ := json.Marshal(detail)
			p.persist(ctx, hash, network, models.TransactionUpdate{
				Status:          models.TxStatusSuccess,
				ConfirmedAt:     &confirmedAt,
				TransactionData: payload,
			})
			p.metrics.RecordPollOutcome("success")
			p.logger.InfoContext(ctx, "transaction confirmed",
				"transaction_hash", hash,
				"network", network,
			)
			return models.TxStatusSuccess, nil

		case err == nil && !detail.Successful:
			payload, _ := json.Marshal(detail)
			p.persist(ctx, hash, network, models.TransactionUpdate{
				Status:    models.TxStatusFailed,
				ErrorData: payload,
			})
			p.metrics.RecordPollOutcome("failed")
			p.logger.WarnContext(ctx, "transaction failed on ledger",
				"transaction_hash", hash,
				"network", network,
			)
			return models.TxStatusFailed, nil

		case err != nil && !horizon.IsNotFound(err):
			// Transient lookup failure; it only costs time budget.
			p.logger.DebugContext(ctx, "transaction lookup failed, retrying",
				"transaction_hash", hash,
				"error", err,
			)
		}

		if !time.Now().Before(deadline) {
			p.persist(ctx, hash, network, models.TransactionUpdate{
				Status:    models.TxStatusTimeout,
				ErrorData: json.RawMessage(`{"error":"confirmation timeout exceeded"}`),
			})
			p.metrics.RecordPollOutcome("timeout")
			p.logger.WarnContext(ctx, "transaction confirmation timed out",
				"transaction_hash", hash,
				"network", network,
			)
			return models.TxStatusTimeout, nil
		}

		select {
		case <-ctx.Done():
			return "", dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "confirmation polling cancelled")
		case <-time.After(p.interval):
		}
	}
}

// persist records the terminal status. A missing local record is logged, not
// fatal: the poll result still stands for the caller.
func (p *Poller) persist(ctx context.Context, hash string, network models.Network, update models.TransactionUpdate) {
	if err := p.store.UpdateTransactionByHash(ctx, hash, network, update); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			p.logger.WarnContext(ctx, "no local record for polled transaction",
				"transaction_hash", hash,
				"network", network,
			)
			return
		}
		p.logger.ErrorContext(ctx, "failed to persist poll outcome",
			"transaction_hash", hash,
			"error", err,
		)
	}
}
