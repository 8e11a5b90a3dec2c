// Package models defines the ledger-anchoring domain types: accounts held by
// the gateway and the transactions that carry document hashes onto the
// public ledger. Validation is pure functions here; network I/O lives in the
// horizon package and persistence in the store package.
package models

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/stellar/go/strkey"

	dErrors "docproof/pkg/domain-errors"
)

// Network identifies which public ledger instance a record belongs to.
type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// ParseNetwork validates a raw network string.
func ParseNetwork(raw string) (Network, error) {
	switch Network(strings.TrimSpace(raw)) {
	case NetworkTestnet:
		return NetworkTestnet, nil
	case NetworkMainnet:
		return NetworkMainnet, nil
	default:
		return "", dErrors.New(dErrors.CodeValidation, "network must be testnet or mainnet")
	}
}

// TxStatus is the lifecycle status of a ledger transaction record. It only
// ever moves pending -> {success, failed, timeout}; stores enforce that
// terminal statuses never regress.
type TxStatus string

const (
	TxStatusPending TxStatus = "pending"
	TxStatusSuccess TxStatus = "success"
	TxStatusFailed  TxStatus = "failed"
	TxStatusTimeout TxStatus = "timeout"
)

// Terminal reports whether the status is final.
func (s TxStatus) Terminal() bool {
	return s == TxStatusSuccess || s == TxStatusFailed || s == TxStatusTimeout
}

// LedgerAccount is a gateway-owned ledger account. The secret seed is sealed
// at rest and never leaves the gateway after creation.
type LedgerAccount struct {
	PublicKey          string
	EncryptedSecretKey string
	Network            Network
	Balance            string
	IsFunded           bool
	LastFundedAt       *time.Time
	CreatedAt          time.Time
}

// LedgerTransaction is one locally persisted anchoring record. Batch anchors
// produce several records sharing a TransactionHash, one per document hash.
type LedgerTransaction struct {
	TransactionHash    string
	DocumentHash       string
	Memo               string
	Status             TxStatus
	Network            Network
	Fee                int64
	SourceAccount      string
	DestinationAccount string
	ConfirmedAt        *time.Time
	TransactionData    json.RawMessage
	ErrorData          json.RawMessage
	CreatedAt          time.Time
}

// TransactionUpdate carries the mutable fields of a pending transaction.
type TransactionUpdate struct {
	Status          TxStatus
	ConfirmedAt     *time.Time
	TransactionData json.RawMessage
	ErrorData       json.RawMessage
}

// NormalizeHash trims and lowercases a hash so lookups and comparisons are
// case-insensitive.
func NormalizeHash(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ParseDocumentHash validates a SHA-256 document hash (64 hex characters)
// and returns its normalized form.
func ParseDocumentHash(raw string) (string, error) {
	h := NormalizeHash(raw)
	if err := checkHex64(h, "document hash"); err != nil {
		return "", err
	}
	return h, nil
}

// ParseTransactionHash validates a ledger transaction hash (64 hex
// characters) and returns its normalized form.
func ParseTransactionHash(raw string) (string, error) {
	h := NormalizeHash(raw)
	if err := checkHex64(h, "transaction hash"); err != nil {
		return "", err
	}
	return h, nil
}

func checkHex64(h, what string) error {
	if h == "" {
		return dErrors.New(dErrors.CodeValidation, what+" is required")
	}
	if len(h) != 64 {
		return dErrors.New(dErrors.CodeValidation, what+" must be 64 hex characters")
	}
	if _, err := hex.DecodeString(h); err != nil {
		return dErrors.New(dErrors.CodeValidation, what+" must be hexadecimal")
	}
	return nil
}

// ValidatePublicKey checks the ledger's G-prefixed public key format.
func ValidatePublicKey(raw string) error {
	if !strkey.IsValidEd25519PublicKey(raw) {
		return dErrors.New(dErrors.CodeValidation, "public key is not a valid ledger account address")
	}
	return nil
}

// ValidateSecretKey checks the ledger's S-prefixed secret seed format.
func ValidateSecretKey(raw string) error {
	if !strkey.IsValidEd25519SecretSeed(raw) {
		return dErrors.New(dErrors.CodeValidation, "secret key is not a valid ledger secret seed")
	}
	return nil
}

// HashBytes decodes a validated 64-hex hash into its 32 raw bytes, suitable
// for a ledger hash memo.
func HashBytes(h string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(h)
	if err != nil || len(raw) != 32 {
		return out, dErrors.New(dErrors.CodeValidation, "hash must be 64 hex characters")
	}
	copy(out[:], raw)
	return out, nil
}
