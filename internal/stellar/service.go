// Package stellar implements the ledger anchoring subsystem: account
// lifecycle, fee estimation, single and batch hash anchoring, confirmation
// polling, and independent verification of local records against the public
// ledger. The gateway owns all Horizon traffic; the workflow engine never
// talks to the ledger directly.
package stellar

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/stellar/go/keypair"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"docproof/internal/stellar/cache"
	"docproof/internal/stellar/horizon"
	"docproof/internal/stellar/metrics"
	"docproof/internal/stellar/models"
	dErrors "docproof/pkg/domain-errors"
	"docproof/pkg/platform/circuit"
	"docproof/pkg/platform/sentinel"
	"docproof/pkg/requestcontext"
)

// anchorAmount is the minimal self-payment carrying a document hash; the
// payment itself is a vehicle, the memo is the payload.
const anchorAmount = "0.0000001"

// verifyConcurrency bounds parallel Horizon lookups during verification.
const verifyConcurrency = 4

// Store is the persistence boundary for ledger accounts and transactions.
type Store interface {
	InsertAccount(ctx context.Context, account *models.LedgerAccount) error
	GetAccount(ctx context.Context, publicKey string, network models.Network) (*models.LedgerAccount, error)
	MarkAccountFunded(ctx context.Context, publicKey string, network models.Network, balance string, fundedAt time.Time) error
	InsertTransaction(ctx context.Context, tx *models.LedgerTransaction) error
	UpdateTransactionByHash(ctx context.Context, transactionHash string, network models.Network, update models.TransactionUpdate) error
	GetTransaction(ctx context.Context, transactionHash string, network models.Network) (*models.LedgerTransaction, error)
	FindByDocumentHash(ctx context.Context, documentHash string, network models.Network) ([]*models.LedgerTransaction, error)
	FindByStatus(ctx context.Context, status models.TxStatus, network models.Network) ([]*models.LedgerTransaction, error)
}

// CreatedAccount is returned by CreateAccount. It is the only moment the
// secret seed leaves the gateway; afterwards only the sealed form exists.
type CreatedAccount struct {
	PublicKey string
	SecretKey string
	Network   models.Network
	CreatedAt time.Time
}

// FeeEstimate is the result of a fee estimation: Fee is the per-operation
// fee in stroops, Cost the total for the transaction.
type FeeEstimate struct {
	Fee            int64
	Cost           int64
	OperationCount int
}

// Gateway owns ledger accounts and anchoring transactions.
type Gateway struct {
	store       Store
	horizons    map[models.Network]horizon.API
	passphrases map[models.Network]string
	cache       cache.VerificationCache
	breaker     *circuit.Breaker
	metrics     *metrics.Metrics
	logger      *slog.Logger
	sealer      secretSealer

	baseFee       int64
	maxFee        int64
	txTimeout     time.Duration
	retryAttempts int
	retryDelay    time.Duration

	tracer trace.Tracer
}

// secretSealer is the narrow slice of the secrets package the gateway needs.
type secretSealer interface {
	Seal(plaintext string) (string, error)
	Open(sealed string) (string, error)
}

// Option configures the Gateway.
type Option func(*Gateway)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

// WithCache sets the verification cache.
func WithCache(c cache.VerificationCache) Option {
	return func(g *Gateway) { g.cache = c }
}

// WithMetrics sets the anchoring metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

// WithBreaker sets the circuit breaker guarding Horizon submissions.
func WithBreaker(b *circuit.Breaker) Option {
	return func(g *Gateway) { g.breaker = b }
}

// WithSealer sets the sealer protecting secret seeds at rest.
func WithSealer(s secretSealer) Option {
	return func(g *Gateway) { g.sealer = s }
}

// WithFees sets the per-operation base fee and the estimation cap, in stroops.
func WithFees(base, max int64) Option {
	return func(g *Gateway) {
		if base > 0 {
			g.baseFee = base
		}
		if max > 0 {
			g.maxFee = max
		}
	}
}

// WithTxTimeout bounds the validity window of submitted transactions.
func WithTxTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.txTimeout = d
		}
	}
}

// WithRetry bounds transient-failure retries on ledger reads.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(g *Gateway) {
		if attempts > 0 {
			g.retryAttempts = attempts
		}
		if delay > 0 {
			g.retryDelay = delay
		}
	}
}

// New constructs the anchoring gateway. horizons and passphrases must cover
// the same networks.
func New(store Store, horizons map[models.Network]horizon.API, passphrases map[models.Network]string, sealer secretSealer, opts ...Option) (*Gateway, error) {
	if store == nil {
		return nil, fmt.Errorf("ledger store is required")
	}
	if len(horizons) == 0 {
		return nil, fmt.Errorf("at least one horizon client is required")
	}
	for network := range horizons {
		if passphrases[network] == "" {
			return nil, fmt.Errorf("missing network passphrase for %s", network)
		}
	}
	if sealer == nil {
		return nil, fmt.Errorf("secret sealer is required")
	}
	g := &Gateway{
		store:         store,
		horizons:      horizons,
		passphrases:   passphrases,
		sealer:        sealer,
		logger:        slog.Default(),
		baseFee:       txnbuild.MinBaseFee,
		maxFee:        10_000,
		txTimeout:     30 * time.Second,
		retryAttempts: 1,
		retryDelay:    time.Second,
		tracer:        otel.Tracer("docproof/stellar"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CreateAccount generates a fresh key pair and persists an unfunded account
// with the seed sealed. The plaintext secret is returned exactly once; it is
// not retrievable again through this interface.
func (g *Gateway) CreateAccount(ctx context.Context, network models.Network) (*CreatedAccount, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return nil, err
	}
	kp, err := keypair.Random()
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate key pair")
	}
	sealed, err := g.sealer.Seal(kp.Seed())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to seal secret key")
	}

	now := requestcontext.Now(ctx)
	account := &models.LedgerAccount{
		PublicKey:          kp.Address(),
		EncryptedSecretKey: sealed,
		Network:            network,
		Balance:            "0",
		CreatedAt:          now,
	}
	if err := g.store.InsertAccount(ctx, account); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "account already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist account")
	}

	g.logger.InfoContext(ctx, "ledger account created",
		"public_key", kp.Address(),
		"network", network,
	)
	return &CreatedAccount{
		PublicKey: kp.Address(),
		SecretKey: kp.Seed(),
		Network:   network,
		CreatedAt: now,
	}, nil
}

// FundAccount credits a testnet account through the friendbot faucet and
// records the resulting balance. Funding never applies to mainnet, and a
// failed funding call leaves the account unfunded; no retry is attempted.
func (g *Gateway) FundAccount(ctx context.Context, publicKey string, network models.Network) (*models.LedgerAccount, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePublicKey(publicKey); err != nil {
		return nil, err
	}
	if network != models.NetworkTestnet {
		return nil, dErrors.New(dErrors.CodeValidation, "funding is only available on testnet")
	}
	if _, err := g.store.GetAccount(ctx, publicKey, network); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "account not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load account")
	}

	h, err := g.horizon(network)
	if err != nil {
		return nil, err
	}
	if _, err := h.Fund(publicKey); err != nil {
		g.logger.WarnContext(ctx, "account funding failed",
			"public_key", publicKey,
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeExternalLedger, "funding service failed")
	}

	balance := "0"
	if detail, err := h.AccountDetail(publicKey); err == nil {
		if native, err := detail.GetNativeBalance(); err == nil {
			balance = native
		}
	}
	now := requestcontext.Now(ctx)
	if err := g.store.MarkAccountFunded(ctx, publicKey, network, balance, now); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record funding")
	}

	g.logger.InfoContext(ctx, "ledger account funded",
		"public_key", publicKey,
		"balance", balance,
	)
	account, err := g.store.GetAccount(ctx, publicKey, network)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to reload account")
	}
	return account, nil
}

// GetAccountBalance reads the current native balance directly from the
// ledger, never the locally cached value.
func (g *Gateway) GetAccountBalance(ctx context.Context, publicKey string, network models.Network) (string, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return "", err
	}
	if err := models.ValidatePublicKey(publicKey); err != nil {
		return "", err
	}

	h, err := g.horizon(network)
	if err != nil {
		return "", err
	}
	detail, err := g.accountDetail(ctx, h, publicKey)
	if err != nil {
		if horizon.IsNotFound(err) {
			return "", dErrors.New(dErrors.CodeNotFound, "account not found on ledger")
		}
		return "", dErrors.Wrap(err, dErrors.CodeExternalLedger, "failed to query account")
	}
	balance, err := detail.GetNativeBalance()
	if err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeExternalLedger, "account has no native balance")
	}
	return balance, nil
}

// EstimateTransactionFee builds (but never submits) a minimal anchoring
// transaction and reports its fee: Fee per operation, Cost for the whole
// transaction. Read-only and side-effect-free.
func (g *Gateway) EstimateTransactionFee(ctx context.Context, sourcePublicKey, documentHash string, network models.Network) (FeeEstimate, error) {
	if _, err := models.ParseNetwork(string(network)); err != nil {
		return FeeEstimate{}, err
	}
	if err := models.ValidatePublicKey(sourcePublicKey); err != nil {
		return FeeEstimate{}, err
	}
	hash, err := models.ParseDocumentHash(documentHash)
	if err != nil {
		return FeeEstimate{}, err
	}

	// A zero-sequence stand-in account is enough to prove the transaction
	// builds; no ledger read is involved.
	source := txnbuild.NewSimpleAccount(sourcePublicKey, 0)
	tx, err := g.buildAnchorTx(&source, sourcePublicKey, []string{hash})
	if err != nil {
		return FeeEstimate{}, err
	}

	fee := g.baseFee
	if fee > g.maxFee {
		fee = g.maxFee
	}
	ops := len(tx.Operations())
	return FeeEstimate{
		Fee:            fee,
		Cost:           fee * int64(ops),
		OperationCount: ops,
	}, nil
}

// AnchorDocumentHash writes one document hash onto the ledger as the hash
// memo of a minimal self-payment. The pending record is persisted before
// submission so a crash mid-submit still leaves an auditable trace; exactly
// one record is created per call regardless of outcome.
func (g *Gateway) AnchorDocumentHash(ctx context.Context, sourcePublicKey, sourceSecretKey, documentHash string, network models.Network) (*models.LedgerTransaction, error) {
	hash, err := models.ParseDocumentHash(documentHash)
	if err != nil {
		return nil, err
	}
	records, err := g.anchor(ctx, sourcePublicKey, sourceSecretKey, []string{hash}, network)
	if err != nil {
		return nil, err
	}
	return records[0], nil
}

// BatchAnchorDocuments anchors several hashes in one transaction, one payment
// operation per hash. The ledger allows a single memo per transaction, so
// only the first hash is carried in the memo; every hash still gets its own
// local record sharing the transaction hash, status, and fee. Verification by
// memo therefore only works for the first hash of a batch.
func (g *Gateway) BatchAnchorDocuments(ctx context.Context, sourcePublicKey, sourceSecretKey string, documentHashes []string, network models.Network) ([]*models.LedgerTransaction, error) {
	if len(documentHashes) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "documentHashes must not be empty")
	}
	hashes := make([]string, 0, len(documentHashes))
	seen := make(map[string]struct{}, len(documentHashes))
	for _, raw := range documentHashes {
		hash, err := models.ParseDocumentHash(raw)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[hash]; dup {
			return nil, dErrors.New(dErrors.CodeValidation, "documentHashes must not contain duplicates")
		}
		seen[hash] = struct{}{}
		hashes = append(hashes, hash)
	}
	return g.anchor(ctx, sourcePublicKey, sourceSecretKey, hashes, network)
}

// anchor is the shared submission path for single and batch anchoring.
func (g *Gateway) anchor(ctx context.Context, sourcePublicKey, sourceSecretKey string, hashes []string, network models.Network) ([]*models.LedgerTransaction, error) {
	ctx, span := g.tracer.Start(ctx, "stellar.anchor")
	defer span.End()

	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return nil, err
	}
	if err := models.ValidatePublicKey(sourcePublicKey); err != nil {
		return nil, err
	}
	kp, err := keypair.ParseFull(sourceSecretKey)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeValidation, "secret key is not a valid ledger secret seed")
	}
	if kp.Address() != sourcePublicKey {
		return nil, dErrors.New(dErrors.CodeValidation, "secret key does not match source public key")
	}

	if g.breaker != nil && g.breaker.IsOpen() {
		return nil, dErrors.New(dErrors.CodeExternalLedger, "ledger temporarily unavailable")
	}

	h, err := g.horizon(network)
	if err != nil {
		return nil, err
	}
	sourceAccount, err := g.accountDetail(ctx, h, sourcePublicKey)
	if err != nil {
		if horizon.IsNotFound(err) {
			return nil, dErrors.New(dErrors.CodeExternalLedger, "source account does not exist on ledger")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeExternalLedger, "failed to load source account")
	}

	tx, err := g.buildAnchorTx(&sourceAccount, sourcePublicKey, hashes)
	if err != nil {
		return nil, err
	}
	tx, err = tx.Sign(g.passphrases[network], kp)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to sign transaction")
	}
	txHash, err := tx.HashHex(g.passphrases[network])
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash transaction")
	}

	now := requestcontext.Now(ctx)
	totalFee := g.baseFee * int64(len(hashes))
	records := make([]*models.LedgerTransaction, 0, len(hashes))
	for _, docHash := range hashes {
		record := &models.LedgerTransaction{
			TransactionHash:    txHash,
			DocumentHash:       docHash,
			Memo:               hashes[0],
			Status:             models.TxStatusPending,
			Network:            network,
			Fee:                totalFee,
			SourceAccount:      sourcePublicKey,
			DestinationAccount: sourcePublicKey,
			CreatedAt:          now,
		}
		if err := g.store.InsertTransaction(ctx, record); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				return nil, dErrors.New(dErrors.CodeConflict, "transaction already recorded for this document")
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to persist pending transaction")
		}
		records = append(records, record)
	}

	start := time.Now()
	resp, submitErr := h.SubmitTransaction(tx)
	elapsed := time.Since(start)

	if submitErr != nil {
		g.recordBreakerFailure(ctx)
		g.metrics.RecordAnchor("failed", string(network), elapsed)
		update := models.TransactionUpdate{
			Status:    models.TxStatusFailed,
			ErrorData: horizon.ErrorPayload(submitErr),
		}
		if err := g.store.UpdateTransactionByHash(ctx, txHash, network, update); err != nil {
			g.logger.ErrorContext(ctx, "failed to record submission failure",
				"transaction_hash", txHash,
				"error", err,
			)
		}
		g.logger.WarnContext(ctx, "anchor submission failed",
			"transaction_hash", txHash,
			"network", network,
			"error", submitErr,
		)
		return nil, dErrors.Wrap(submitErr, dErrors.CodeExternalLedger, "transaction submission failed")
	}

	g.recordBreakerSuccess(ctx)
	g.metrics.RecordAnchor("success", string(network), elapsed)

	confirmedAt := requestcontext.Now(ctx)
	payload, _ := json.Marshal(resp)
	update := models.TransactionUpdate{
		Status:          models.TxStatusSuccess,
		ConfirmedAt:     &confirmedAt,
		TransactionData: payload,
	}
	if err := g.store.UpdateTransactionByHash(ctx, txHash, network, update); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record submission result")
	}
	for _, record := range records {
		record.Status = models.TxStatusSuccess
		record.ConfirmedAt = &confirmedAt
		record.TransactionData = payload
	}

	g.logger.InfoContext(ctx, "document hashes anchored",
		"transaction_hash", txHash,
		"network", network,
		"hash_count", len(hashes),
	)
	return records, nil
}

// buildAnchorTx assembles the unsigned anchoring transaction: one minimal
// self-payment per hash, the first hash as the hash memo.
func (g *Gateway) buildAnchorTx(source txnbuild.Account, destination string, hashes []string) (*txnbuild.Transaction, error) {
	memoBytes, err := models.HashBytes(hashes[0])
	if err != nil {
		return nil, err
	}
	ops := make([]txnbuild.Operation, 0, len(hashes))
	for range hashes {
		ops = append(ops, &txnbuild.Payment{
			Destination: destination,
			Amount:      anchorAmount,
			Asset:       txnbuild.NativeAsset{},
		})
	}
	tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
		SourceAccount:        source,
		IncrementSequenceNum: true,
		Operations:           ops,
		BaseFee:              g.baseFee,
		Memo:                 txnbuild.MemoHash(memoBytes),
		Preconditions: txnbuild.Preconditions{
			TimeBounds: txnbuild.NewTimeout(int64(g.txTimeout.Seconds())),
		},
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to build transaction")
	}
	return tx, nil
}

// VerifyDocumentOnStellar cross-checks local records against the public
// ledger: true only when at least one record for the hash is independently
// confirmed successful with a matching memo. Local state alone is never
// sufficient proof. Positive results are cached.
func (g *Gateway) VerifyDocumentOnStellar(ctx context.Context, documentHash string, network models.Network) (bool, error) {
	ctx, span := g.tracer.Start(ctx, "stellar.verify")
	defer span.End()

	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return false, err
	}
	hash, err := models.ParseDocumentHash(documentHash)
	if err != nil {
		return false, err
	}

	if g.cache != nil {
		hit, err := g.cache.GetVerified(ctx, network, hash)
		if err != nil {
			g.logger.WarnContext(ctx, "verification cache read failed", "error", err)
		} else if hit {
			g.metrics.RecordVerification(true, true)
			return true, nil
		}
	}

	records, err := g.store.FindByDocumentHash(ctx, hash, network)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load local records")
	}
	if len(records) == 0 {
		g.metrics.RecordVerification(false, false)
		return false, nil
	}

	h, err := g.horizon(network)
	if err != nil {
		return false, err
	}
	var verified atomic.Bool
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(verifyConcurrency)
	for _, record := range records {
		txHash := record.TransactionHash
		group.Go(func() error {
			if verified.Load() || groupCtx.Err() != nil {
				return nil
			}
			detail, err := g.transactionDetail(groupCtx, h, txHash)
			if err != nil {
				// A record the ledger cannot confirm simply does not verify.
				return nil
			}
			if detail.Successful && memoMatchesHash(detail.MemoType, detail.Memo, hash) {
				verified.Store(true)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeExternalLedger, "verification aborted")
	}

	result := verified.Load()
	g.metrics.RecordVerification(result, false)
	if result && g.cache != nil {
		if err := g.cache.SetVerified(ctx, network, hash); err != nil {
			g.logger.WarnContext(ctx, "verification cache write failed", "error", err)
		}
	}
	return result, nil
}

// GetTransaction returns the locally persisted record for a transaction hash.
func (g *Gateway) GetTransaction(ctx context.Context, transactionHash string, network models.Network) (*models.LedgerTransaction, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseTransactionHash(transactionHash)
	if err != nil {
		return nil, err
	}
	record, err := g.store.GetTransaction(ctx, hash, network)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "transaction not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transaction")
	}
	return record, nil
}

// GetTransactionsByDocumentHash returns all local records for a document
// hash, newest first.
func (g *Gateway) GetTransactionsByDocumentHash(ctx context.Context, documentHash string, network models.Network) ([]*models.LedgerTransaction, error) {
	network, err := models.ParseNetwork(string(network))
	if err != nil {
		return nil, err
	}
	hash, err := models.ParseDocumentHash(documentHash)
	if err != nil {
		return nil, err
	}
	records, err := g.store.FindByDocumentHash(ctx, hash, network)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load transactions")
	}
	return records, nil
}

// horizon returns the ledger client for the network; operating on a network
// the process is not configured for is an internal error, not a ledger one.
func (g *Gateway) horizon(network models.Network) (horizon.API, error) {
	h, ok := g.horizons[network]
	if !ok {
		return nil, dErrors.New(dErrors.CodeInternal, "no ledger client for network")
	}
	return h, nil
}

// accountDetail reads an account with transient-failure retries. Not-found
// is definitive and returned immediately.
func (g *Gateway) accountDetail(ctx context.Context, h horizon.API, publicKey string) (account hProtocol.Account, err error) {
	err = g.withRetry(ctx, func() error {
		account, err = h.AccountDetail(publicKey)
		return err
	})
	return account, err
}

// transactionDetail reads a transaction with transient-failure retries.
func (g *Gateway) transactionDetail(ctx context.Context, h horizon.API, txHash string) (detail hProtocol.Transaction, err error) {
	err = g.withRetry(ctx, func() error {
		detail, err = h.TransactionDetail(txHash)
		return err
	})
	return detail, err
}

// withRetry runs op up to the configured attempt budget, sleeping between
// attempts. Horizon 404s are definitive and never retried.
func (g *Gateway) withRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt < g.retryAttempts; attempt++ {
		if err = op(); err == nil || horizon.IsNotFound(err) {
			return err
		}
		if attempt == g.retryAttempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.retryDelay):
		}
	}
	return err
}

func (g *Gateway) recordBreakerFailure(ctx context.Context) {
	if g.breaker == nil {
		return
	}
	if _, change := g.breaker.RecordFailure(); change.Opened {
		g.metrics.RecordBreakerTransition("opened")
		g.logger.WarnContext(ctx, "ledger circuit opened", "breaker", g.breaker.Name())
	}
}

func (g *Gateway) recordBreakerSuccess(ctx context.Context) {
	if g.breaker == nil {
		return
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.metrics.RecordBreakerTransition("closed")
		g.logger.InfoContext(ctx, "ledger circuit closed", "breaker", g.breaker.Name())
	}
}

// memoMatchesHash reports whether a Horizon-reported memo is the hash memo
// for the given 64-hex document hash. Horizon serves hash memos as base64.
func memoMatchesHash(memoType, memo, documentHash string) bool {
	if memoType != "hash" {
		return false
	}
	raw, err := base64.StdEncoding.DecodeString(memo)
	if err != nil {
		return false
	}
	return hex.EncodeToString(raw) == documentHash
}
