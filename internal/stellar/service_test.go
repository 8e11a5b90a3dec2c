package stellar

import (
	"context"
	"encoding/base64"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	stellarnet "github.com/stellar/go/network"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/protocols/horizon/base"
	"github.com/stellar/go/support/render/problem"
	"github.com/stellar/go/txnbuild"
	"github.com/stretchr/testify/suite"

	"docproof/internal/stellar/cache"
	"docproof/internal/stellar/horizon"
	"docproof/internal/stellar/models"
	"docproof/internal/stellar/secrets"
	"docproof/internal/stellar/store"
	dErrors "docproof/pkg/domain-errors"
	"docproof/pkg/platform/circuit"
)

const testDocHash = "a3f5c8e2b1d4f6a8c9e0b2d4f6a8c0e2b4d6f8a0c2e4b6d8f0a2c4e6b8d0f2a4"

// fakeHorizon is an in-memory stand-in for the public ledger.
type fakeHorizon struct {
	mu        sync.Mutex
	accounts  map[string]hProtocol.Account
	txs       map[string]hProtocol.Transaction
	submitErr error
	submitted []*txnbuild.Transaction
	fundErr   error

	// hideTxFor returns not-found for the first N transaction lookups.
	hideTxFor int
	lookups   int
}

func newFakeHorizon() *fakeHorizon {
	return &fakeHorizon{
		accounts: make(map[string]hProtocol.Account),
		txs:      make(map[string]hProtocol.Transaction),
	}
}

func notFoundError() error {
	return &horizonclient.Error{
		Problem: problem.P{Status: http.StatusNotFound, Title: "Resource Missing"},
	}
}

func (f *fakeHorizon) addAccount(publicKey, balance string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts[publicKey] = hProtocol.Account{
		AccountID: publicKey,
		Sequence:  100,
		Balances: []hProtocol.Balance{
			{Balance: balance, Asset: base.Asset{Type: "native"}},
		},
	}
}

func (f *fakeHorizon) addTransaction(tx hProtocol.Transaction) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.txs[tx.Hash] = tx
}

func (f *fakeHorizon) AccountDetail(accountID string) (hProtocol.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	account, ok := f.accounts[accountID]
	if !ok {
		return hProtocol.Account{}, notFoundError()
	}
	return account, nil
}

func (f *fakeHorizon) SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submitted = append(f.submitted, tx)
	if f.submitErr != nil {
		return hProtocol.Transaction{}, f.submitErr
	}
	// An accepted transaction consumes the source account's sequence number.
	source := tx.SourceAccount()
	if account, ok := f.accounts[source.AccountID]; ok {
		account.Sequence = tx.SequenceNumber()
		f.accounts[source.AccountID] = account
	}
	return hProtocol.Transaction{Successful: true}, nil
}

func (f *fakeHorizon) TransactionDetail(txHash string) (hProtocol.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	if f.lookups <= f.hideTxFor {
		return hProtocol.Transaction{}, notFoundError()
	}
	tx, ok := f.txs[txHash]
	if !ok {
		return hProtocol.Transaction{}, notFoundError()
	}
	return tx, nil
}

func (f *fakeHorizon) Fund(address string) (hProtocol.Transaction, error) {
	f.mu.Lock()
	if f.fundErr != nil {
		defer f.mu.Unlock()
		return hProtocol.Transaction{}, f.fundErr
	}
	f.mu.Unlock()
	f.addAccount(address, "10000.0000000")
	return hProtocol.Transaction{Successful: true}, nil
}

func (f *fakeHorizon) Root() (hProtocol.Root, error) {
	return hProtocol.Root{}, nil
}

func (f *fakeHorizon) submittedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.submitted)
}

type GatewaySuite struct {
	suite.Suite
	ctx     context.Context
	store   *store.MemoryStore
	horizon *fakeHorizon
	sealer  *secrets.Sealer
	gateway *Gateway
}

func (s *GatewaySuite) SetupTest() {
	s.ctx = context.Background()
	s.store = store.NewMemory()
	s.horizon = newFakeHorizon()
	sealer, err := secrets.New("")
	s.Require().NoError(err)
	s.sealer = sealer
	s.gateway = s.newGateway()
}

func (s *GatewaySuite) newGateway(opts ...Option) *Gateway {
	defaults := []Option{
		WithFees(100, 10_000),
		WithRetry(1, time.Millisecond),
	}
	gw, err := New(
		s.store,
		map[models.Network]horizon.API{models.NetworkTestnet: s.horizon},
		map[models.Network]string{models.NetworkTestnet: stellarnet.TestNetworkPassphrase},
		s.sealer,
		append(defaults, opts...)...,
	)
	s.Require().NoError(err)
	return gw
}

func TestGatewaySuite(t *testing.T) {
	suite.Run(t, new(GatewaySuite))
}

func (s *GatewaySuite) newFundedKeypair() *keypair.Full {
	kp, err := keypair.Random()
	s.Require().NoError(err)
	s.horizon.addAccount(kp.Address(), "10000.0000000")
	return kp
}

func (s *GatewaySuite) TestCreateAccount() {
	created, err := s.gateway.CreateAccount(s.ctx, models.NetworkTestnet)
	s.Require().NoError(err)
	s.NotEmpty(created.PublicKey)
	s.NotEmpty(created.SecretKey)
	s.NoError(models.ValidatePublicKey(created.PublicKey))
	s.NoError(models.ValidateSecretKey(created.SecretKey))

	stored, err := s.store.GetAccount(s.ctx, created.PublicKey, models.NetworkTestnet)
	s.Require().NoError(err)
	s.False(stored.IsFunded)
	s.NotEqual(created.SecretKey, stored.EncryptedSecretKey)

	// The seed is recoverable only through the sealer, never stored in clear.
	opened, err := s.sealer.Open(stored.EncryptedSecretKey)
	s.Require().NoError(err)
	s.Equal(created.SecretKey, opened)
}

func (s *GatewaySuite) TestCreateAccountRejectsUnknownNetwork() {
	_, err := s.gateway.CreateAccount(s.ctx, models.Network("livenet"))
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *GatewaySuite) TestFundAccount() {
	created, err := s.gateway.CreateAccount(s.ctx, models.NetworkTestnet)
	s.Require().NoError(err)

	account, err := s.gateway.FundAccount(s.ctx, created.PublicKey, models.NetworkTestnet)
	s.Require().NoError(err)
	s.True(account.IsFunded)
	s.Equal("10000.0000000", account.Balance)
	s.NotNil(account.LastFundedAt)
}

func (s *GatewaySuite) TestFundAccountIsTestnetOnly() {
	_, err := s.gateway.FundAccount(s.ctx, s.newFundedKeypair().Address(), models.NetworkMainnet)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *GatewaySuite) TestFundAccountUnknownAccount() {
	kp, err := keypair.Random()
	s.Require().NoError(err)
	_, err = s.gateway.FundAccount(s.ctx, kp.Address(), models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *GatewaySuite) TestFundAccountFaucetFailureLeavesUnfunded() {
	created, err := s.gateway.CreateAccount(s.ctx, models.NetworkTestnet)
	s.Require().NoError(err)
	s.horizon.fundErr = &horizonclient.Error{Problem: problem.P{Status: http.StatusServiceUnavailable}}

	_, err = s.gateway.FundAccount(s.ctx, created.PublicKey, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeExternalLedger))

	stored, err := s.store.GetAccount(s.ctx, created.PublicKey, models.NetworkTestnet)
	s.Require().NoError(err)
	s.False(stored.IsFunded)
}

func (s *GatewaySuite) TestGetAccountBalance() {
	kp := s.newFundedKeypair()

	balance, err := s.gateway.GetAccountBalance(s.ctx, kp.Address(), models.NetworkTestnet)
	s.Require().NoError(err)
	s.Equal("10000.0000000", balance)
}

func (s *GatewaySuite) TestGetAccountBalanceNotOnLedger() {
	kp, err := keypair.Random()
	s.Require().NoError(err)
	_, err = s.gateway.GetAccountBalance(s.ctx, kp.Address(), models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *GatewaySuite) TestEstimateTransactionFee() {
	kp, err := keypair.Random()
	s.Require().NoError(err)

	estimate, err := s.gateway.EstimateTransactionFee(s.ctx, kp.Address(), testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Equal(int64(100), estimate.Fee)
	s.Equal(int64(100), estimate.Cost)
	s.Equal(1, estimate.OperationCount)

	// Estimation is pure: no submission, no local record.
	s.Zero(s.horizon.submittedCount())
}

func (s *GatewaySuite) TestEstimateTransactionFeeRejectsBadHash() {
	kp, err := keypair.Random()
	s.Require().NoError(err)
	_, err = s.gateway.EstimateTransactionFee(s.ctx, kp.Address(), "not-a-hash", models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *GatewaySuite) TestAnchorDocumentHash() {
	kp := s.newFundedKeypair()

	record, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Equal(models.TxStatusSuccess, record.Status)
	s.Equal(testDocHash, record.DocumentHash)
	s.Equal(testDocHash, record.Memo)
	s.Equal(kp.Address(), record.SourceAccount)
	s.Equal(kp.Address(), record.DestinationAccount)
	s.NotNil(record.ConfirmedAt)
	s.NotEmpty(record.TransactionHash)
	s.Equal(1, s.horizon.submittedCount())

	stored, err := s.store.GetTransaction(s.ctx, record.TransactionHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Equal(models.TxStatusSuccess, stored.Status)
	s.NotNil(stored.TransactionData)
}

func (s *GatewaySuite) TestAnchorSameHashTwiceCreatesDistinctTransactions() {
	kp := s.newFundedKeypair()

	first, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	second, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)

	// Each anchoring is its own ledger transaction and its own record.
	s.NotEqual(first.TransactionHash, second.TransactionHash)
	s.Equal(2, s.horizon.submittedCount())

	records, err := s.store.FindByDocumentHash(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Len(records, 2)
}

func (s *GatewaySuite) TestAnchorPersistsPendingRecordBeforeSubmit() {
	kp := s.newFundedKeypair()
	s.horizon.submitErr = &horizonclient.Error{Problem: problem.P{Status: http.StatusBadRequest, Title: "Transaction Failed"}}

	_, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), testDocHash, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeExternalLedger))

	// The failed submission still left exactly one auditable record.
	records, err := s.store.FindByDocumentHash(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Require().Len(records, 1)
	s.Equal(models.TxStatusFailed, records[0].Status)
	s.NotNil(records[0].ErrorData)
}

func (s *GatewaySuite) TestAnchorRejectsMismatchedSecret() {
	kp := s.newFundedKeypair()
	other, err := keypair.Random()
	s.Require().NoError(err)

	_, err = s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), other.Seed(), testDocHash, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeValidation))

	records, err := s.store.FindByDocumentHash(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *GatewaySuite) TestAnchorRejectsAccountMissingOnLedger() {
	kp, err := keypair.Random()
	s.Require().NoError(err)
	_, err = s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), testDocHash, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeExternalLedger))
}

func (s *GatewaySuite) TestBatchAnchorDocuments() {
	kp := s.newFundedKeypair()
	hashes := []string{
		testDocHash,
		"b4a6c8e0d2f4a6b8c0d2e4f6a8b0c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6",
		"c5b7d9e1f3a5b7c9d1e3f5a7b9c1d3e5f7a9b1c3d5e7f9a1b3c5d7e9f1a3b5c7",
	}

	records, err := s.gateway.BatchAnchorDocuments(s.ctx, kp.Address(), kp.Seed(), hashes, models.NetworkTestnet)
	s.Require().NoError(err)
	s.Require().Len(records, 3)
	s.Equal(1, s.horizon.submittedCount())

	for i, record := range records {
		s.Equal(records[0].TransactionHash, record.TransactionHash)
		s.Equal(records[0].Fee, record.Fee)
		s.Equal(models.TxStatusSuccess, record.Status)
		s.Equal(hashes[i], record.DocumentHash)
		// Only the first hash fits in the single transaction memo.
		s.Equal(hashes[0], record.Memo)
	}
}

func (s *GatewaySuite) TestBatchAnchorRejectsDuplicates() {
	kp := s.newFundedKeypair()
	_, err := s.gateway.BatchAnchorDocuments(s.ctx, kp.Address(), kp.Seed(), []string{testDocHash, testDocHash}, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *GatewaySuite) TestBatchAnchorRejectsEmpty() {
	kp := s.newFundedKeypair()
	_, err := s.gateway.BatchAnchorDocuments(s.ctx, kp.Address(), kp.Seed(), nil, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *GatewaySuite) seedVerifiableRecord(docHash string, successful bool, memoHash string) string {
	kp := s.newFundedKeypair()
	record, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), docHash, models.NetworkTestnet)
	s.Require().NoError(err)

	memoBytes, err := models.HashBytes(memoHash)
	s.Require().NoError(err)
	s.horizon.addTransaction(hProtocol.Transaction{
		Hash:       record.TransactionHash,
		Successful: successful,
		MemoType:   "hash",
		Memo:       base64.StdEncoding.EncodeToString(memoBytes[:]),
	})
	return record.TransactionHash
}

func (s *GatewaySuite) TestVerifyDocumentOnStellar() {
	s.seedVerifiableRecord(testDocHash, true, testDocHash)

	verified, err := s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.True(verified)
}

func (s *GatewaySuite) TestVerifyDocumentUnknownHashIsFalse() {
	verified, err := s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.False(verified)
}

func (s *GatewaySuite) TestVerifyDocumentMemoMismatchIsFalse() {
	otherHash := "d6c8e0f2a4b6c8d0e2f4a6b8c0d2e4f6a8b0c2d4e6f8a0b2c4d6e8f0a2b4c6d8"
	s.seedVerifiableRecord(testDocHash, true, otherHash)

	verified, err := s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.False(verified)
}

func (s *GatewaySuite) TestVerifyDocumentFailedOnLedgerIsFalse() {
	s.seedVerifiableRecord(testDocHash, false, testDocHash)

	verified, err := s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.False(verified)
}

func (s *GatewaySuite) TestVerifyDocumentCachesPositiveResults() {
	s.gateway = s.newGateway(WithCache(cache.NewMemory(time.Minute)))
	txHash := s.seedVerifiableRecord(testDocHash, true, testDocHash)

	verified, err := s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.True(verified)

	// Remove the ledger record: the cached positive still answers.
	s.horizon.mu.Lock()
	delete(s.horizon.txs, txHash)
	s.horizon.mu.Unlock()

	verified, err = s.gateway.VerifyDocumentOnStellar(s.ctx, testDocHash, models.NetworkTestnet)
	s.Require().NoError(err)
	s.True(verified)
}

func (s *GatewaySuite) TestBreakerFastFailsWhileOpen() {
	s.gateway = s.newGateway(WithBreaker(circuit.New("horizon", circuit.WithFailureThreshold(2))))
	kp := s.newFundedKeypair()
	s.horizon.submitErr = &horizonclient.Error{Problem: problem.P{Status: http.StatusServiceUnavailable}}

	hashes := []string{
		testDocHash,
		"b4a6c8e0d2f4a6b8c0d2e4f6a8b0c2d4e6f8a0b2c4d6e8f0a2b4c6d8e0f2a4b6",
		"c5b7d9e1f3a5b7c9d1e3f5a7b9c1d3e5f7a9b1c3d5e7f9a1b3c5d7e9f1a3b5c7",
	}
	for _, hash := range hashes[:2] {
		_, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), hash, models.NetworkTestnet)
		s.True(dErrors.Is(err, dErrors.CodeExternalLedger))
	}
	s.Equal(2, s.horizon.submittedCount())

	// Third call fast-fails without touching the ledger.
	_, err := s.gateway.AnchorDocumentHash(s.ctx, kp.Address(), kp.Seed(), hashes[2], models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeExternalLedger))
	s.Equal(2, s.horizon.submittedCount())
}

func (s *GatewaySuite) TestGetTransactionNotFound() {
	_, err := s.gateway.GetTransaction(s.ctx, testDocHash, models.NetworkTestnet)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}
