package handler

import (
	"encoding/json"
	"time"

	"docproof/internal/stellar"
	"docproof/internal/stellar/models"
)

// CreatedAccountResponse carries the key pair back to the caller. This is
// the only place the secret key ever appears in a response.
type CreatedAccountResponse struct {
	PublicKey string    `json:"publicKey"`
	SecretKey string    `json:"secretKey"`
	Network   string    `json:"network"`
	CreatedAt time.Time `json:"createdAt"`
}

// FromCreatedAccount converts a freshly created account to its wire shape.
func FromCreatedAccount(a *stellar.CreatedAccount) CreatedAccountResponse {
	return CreatedAccountResponse{
		PublicKey: a.PublicKey,
		SecretKey: a.SecretKey,
		Network:   string(a.Network),
		CreatedAt: a.CreatedAt,
	}
}

// AccountResponse is the wire shape of a ledger account; the sealed secret
// never leaves the gateway.
type AccountResponse struct {
	PublicKey    string     `json:"publicKey"`
	Network      string     `json:"network"`
	Balance      string     `json:"balance"`
	IsFunded     bool       `json:"isFunded"`
	LastFundedAt *time.Time `json:"lastFundedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// FromAccount converts a domain account to its wire shape.
func FromAccount(a *models.LedgerAccount) AccountResponse {
	return AccountResponse{
		PublicKey:    a.PublicKey,
		Network:      string(a.Network),
		Balance:      a.Balance,
		IsFunded:     a.IsFunded,
		LastFundedAt: a.LastFundedAt,
		CreatedAt:    a.CreatedAt,
	}
}

// BalanceResponse is the wire shape of a live balance read.
type BalanceResponse struct {
	PublicKey string `json:"publicKey"`
	Network   string `json:"network"`
	Balance   string `json:"balance"`
}

// FeeEstimateResponse is the wire shape of a fee estimate, in stroops.
type FeeEstimateResponse struct {
	Fee            int64 `json:"fee"`
	Cost           int64 `json:"cost"`
	OperationCount int   `json:"operationCount"`
}

// FromFeeEstimate converts a fee estimate to its wire shape.
func FromFeeEstimate(e stellar.FeeEstimate) FeeEstimateResponse {
	return FeeEstimateResponse{
		Fee:            e.Fee,
		Cost:           e.Cost,
		OperationCount: e.OperationCount,
	}
}

// TransactionResponse is the wire shape of a ledger transaction record.
type TransactionResponse struct {
	TransactionHash    string          `json:"transactionHash"`
	DocumentHash       string          `json:"documentHash"`
	Memo               string          `json:"memo"`
	Status             string          `json:"status"`
	Network            string          `json:"network"`
	Fee                int64           `json:"fee"`
	SourceAccount      string          `json:"sourceAccount"`
	DestinationAccount string          `json:"destinationAccount"`
	ConfirmedAt        *time.Time      `json:"confirmedAt,omitempty"`
	TransactionData    json.RawMessage `json:"transactionData,omitempty"`
	ErrorData          json.RawMessage `json:"errorData,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
}

// FromTransaction converts a domain transaction to its wire shape.
func FromTransaction(tx *models.LedgerTransaction) TransactionResponse {
	return TransactionResponse{
		TransactionHash:    tx.TransactionHash,
		DocumentHash:       tx.DocumentHash,
		Memo:               tx.Memo,
		Status:             string(tx.Status),
		Network:            string(tx.Network),
		Fee:                tx.Fee,
		SourceAccount:      tx.SourceAccount,
		DestinationAccount: tx.DestinationAccount,
		ConfirmedAt:        tx.ConfirmedAt,
		TransactionData:    tx.TransactionData,
		ErrorData:          tx.ErrorData,
		CreatedAt:          tx.CreatedAt,
	}
}

// FromTransactions converts a list of transactions.
func FromTransactions(txs []*models.LedgerTransaction) []TransactionResponse {
	out := make([]TransactionResponse, len(txs))
	for i, tx := range txs {
		out[i] = FromTransaction(tx)
	}
	return out
}

// StatusResponse is the wire shape of a confirmation poll result.
type StatusResponse struct {
	TransactionHash string `json:"transactionHash"`
	Network         string `json:"network"`
	Status          string `json:"status"`
}

// VerifyResponse is the wire shape of an independent verification.
type VerifyResponse struct {
	DocumentHash string `json:"documentHash"`
	Network      string `json:"network"`
	Verified     bool   `json:"verified"`
}
