package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"docproof/internal/stellar"
	"docproof/internal/stellar/models"
	"docproof/pkg/platform/httputil"
	"docproof/pkg/requestcontext"
)

// Gateway defines the anchoring operations the handler exposes.
type Gateway interface {
	CreateAccount(ctx context.Context, network models.Network) (*stellar.CreatedAccount, error)
	FundAccount(ctx context.Context, publicKey string, network models.Network) (*models.LedgerAccount, error)
	GetAccountBalance(ctx context.Context, publicKey string, network models.Network) (string, error)
	EstimateTransactionFee(ctx context.Context, sourcePublicKey, documentHash string, network models.Network) (stellar.FeeEstimate, error)
	AnchorDocumentHash(ctx context.Context, sourcePublicKey, sourceSecretKey, documentHash string, network models.Network) (*models.LedgerTransaction, error)
	BatchAnchorDocuments(ctx context.Context, sourcePublicKey, sourceSecretKey string, documentHashes []string, network models.Network) ([]*models.LedgerTransaction, error)
	VerifyDocumentOnStellar(ctx context.Context, documentHash string, network models.Network) (bool, error)
	GetTransaction(ctx context.Context, transactionHash string, network models.Network) (*models.LedgerTransaction, error)
	GetTransactionsByDocumentHash(ctx context.Context, documentHash string, network models.Network) ([]*models.LedgerTransaction, error)
}

// Poller drives a pending transaction to a terminal status.
type Poller interface {
	PollTransactionStatus(ctx context.Context, transactionHash string, network models.Network) (models.TxStatus, error)
}

// Handler wires the ledger anchoring endpoints to the gateway and poller.
type Handler struct {
	gateway Gateway
	poller  Poller
	logger  *slog.Logger
}

// New constructs a stellar handler with its dependencies.
func New(gateway Gateway, poller Poller, logger *slog.Logger) *Handler {
	return &Handler{gateway: gateway, poller: poller, logger: logger}
}

// Register mounts anchoring endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/stellar", func(r chi.Router) {
		r.Post("/accounts", h.HandleCreateAccount)
		r.Post("/accounts/fund", h.HandleFundAccount)
		r.Get("/accounts/{publicKey}/balance", h.HandleGetBalance)
		r.Post("/estimate-fee", h.HandleEstimateFee)
		r.Post("/anchor", h.HandleAnchor)
		r.Post("/anchor/batch", h.HandleBatchAnchor)
		r.Get("/transactions/{transactionHash}/status", h.HandlePollStatus)
		r.Get("/transactions/{transactionHash}", h.HandleGetTransaction)
		r.Get("/transactions/document/{documentHash}", h.HandleGetByDocument)
		r.Post("/verify", h.HandleVerify)
	})
}

// HandleCreateAccount handles POST /stellar/accounts.
func (h *Handler) HandleCreateAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CreateAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.gateway.CreateAccount(ctx, req.ParsedNetwork())
	if err != nil {
		h.logger.ErrorContext(ctx, "account creation failed",
			"request_id", requestID,
			"network", req.Network,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromCreatedAccount(account))
}

// HandleFundAccount handles POST /stellar/accounts/fund.
func (h *Handler) HandleFundAccount(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[FundAccountRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	account, err := h.gateway.FundAccount(ctx, req.PublicKey, req.ParsedNetwork())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAccount(account))
}

// HandleGetBalance handles GET /stellar/accounts/{publicKey}/balance?network=.
func (h *Handler) HandleGetBalance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	publicKey := chi.URLParam(r, "publicKey")
	network, err := models.ParseNetwork(r.URL.Query().Get("network"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	balance, err := h.gateway.GetAccountBalance(ctx, publicKey, network)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, BalanceResponse{
		PublicKey: publicKey,
		Network:   string(network),
		Balance:   balance,
	})
}

// HandleEstimateFee handles POST /stellar/estimate-fee.
func (h *Handler) HandleEstimateFee(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[EstimateFeeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	estimate, err := h.gateway.EstimateTransactionFee(ctx, req.SourcePublicKey, req.DocumentHash, req.ParsedNetwork())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromFeeEstimate(estimate))
}

// HandleAnchor handles POST /stellar/anchor.
func (h *Handler) HandleAnchor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AnchorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.gateway.AnchorDocumentHash(ctx, req.SourcePublicKey, req.SourceSecretKey, req.DocumentHash, req.ParsedNetwork())
	if err != nil {
		// The secret key must never reach the log.
		h.logger.ErrorContext(ctx, "anchoring failed",
			"request_id", requestID,
			"document_hash", req.DocumentHash,
			"network", req.Network,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTransaction(record))
}

// HandleBatchAnchor handles POST /stellar/anchor/batch.
func (h *Handler) HandleBatchAnchor(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[BatchAnchorRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	records, err := h.gateway.BatchAnchorDocuments(ctx, req.SourcePublicKey, req.SourceSecretKey, req.DocumentHashes, req.ParsedNetwork())
	if err != nil {
		h.logger.ErrorContext(ctx, "batch anchoring failed",
			"request_id", requestID,
			"hash_count", len(req.DocumentHashes),
			"network", req.Network,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromTransactions(records))
}

// HandlePollStatus handles GET /stellar/transactions/{transactionHash}/status?network=.
// It blocks until the transaction resolves or the confirmation budget runs
// out, so the response always carries a terminal status.
func (h *Handler) HandlePollStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	transactionHash := chi.URLParam(r, "transactionHash")
	network, err := models.ParseNetwork(r.URL.Query().Get("network"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	status, err := h.poller.PollTransactionStatus(ctx, transactionHash, network)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, StatusResponse{
		TransactionHash: models.NormalizeHash(transactionHash),
		Network:         string(network),
		Status:          string(status),
	})
}

// HandleGetTransaction handles GET /stellar/transactions/{transactionHash}.
func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	transactionHash := chi.URLParam(r, "transactionHash")
	network := models.NetworkTestnet
	if raw := r.URL.Query().Get("network"); raw != "" {
		parsed, err := models.ParseNetwork(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		network = parsed
	}

	record, err := h.gateway.GetTransaction(ctx, transactionHash, network)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransaction(record))
}

// HandleGetByDocument handles GET /stellar/transactions/document/{documentHash}.
func (h *Handler) HandleGetByDocument(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	documentHash := chi.URLParam(r, "documentHash")
	network := models.NetworkTestnet
	if raw := r.URL.Query().Get("network"); raw != "" {
		parsed, err := models.ParseNetwork(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		network = parsed
	}

	records, err := h.gateway.GetTransactionsByDocumentHash(ctx, documentHash, network)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromTransactions(records))
}

// HandleVerify handles POST /stellar/verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	verified, err := h.gateway.VerifyDocumentOnStellar(ctx, req.DocumentHash, req.ParsedNetwork())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{
		DocumentHash: req.DocumentHash,
		Network:      string(req.ParsedNetwork()),
		Verified:     verified,
	})
}
