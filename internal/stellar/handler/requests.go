package handler

import (
	"strings"

	"docproof/internal/stellar/models"
	dErrors "docproof/pkg/domain-errors"
)

// maxBatchSize bounds a single batch anchoring request; one payment
// operation per hash and the ledger caps operations per transaction.
const maxBatchSize = 100

// CreateAccountRequest is the body for POST /stellar/accounts.
type CreateAccountRequest struct {
	Network string `json:"network"`

	parsedNetwork models.Network
}

// Validate implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateAccountRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	return nil
}

// ParsedNetwork returns the validated network.
func (r *CreateAccountRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}

// FundAccountRequest is the body for POST /stellar/accounts/fund.
type FundAccountRequest struct {
	PublicKey string `json:"publicKey"`
	Network   string `json:"network"`

	parsedNetwork models.Network
}

func (r *FundAccountRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	r.PublicKey = strings.TrimSpace(r.PublicKey)
	return models.ValidatePublicKey(r.PublicKey)
}

func (r *FundAccountRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}

// EstimateFeeRequest is the body for POST /stellar/estimate-fee.
type EstimateFeeRequest struct {
	SourcePublicKey string `json:"sourcePublicKey"`
	DocumentHash    string `json:"documentHash"`
	Network         string `json:"network"`

	parsedNetwork models.Network
}

func (r *EstimateFeeRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	r.SourcePublicKey = strings.TrimSpace(r.SourcePublicKey)
	if err := models.ValidatePublicKey(r.SourcePublicKey); err != nil {
		return err
	}
	hash, err := models.ParseDocumentHash(r.DocumentHash)
	if err != nil {
		return err
	}
	r.DocumentHash = hash
	return nil
}

func (r *EstimateFeeRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}

// AnchorRequest is the body for POST /stellar/anchor. The secret key lives
// only for the duration of the call and is never logged.
type AnchorRequest struct {
	SourcePublicKey string `json:"sourcePublicKey"`
	SourceSecretKey string `json:"sourceSecretKey"`
	DocumentHash    string `json:"documentHash"`
	Network         string `json:"network"`

	parsedNetwork models.Network
}

func (r *AnchorRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	r.SourcePublicKey = strings.TrimSpace(r.SourcePublicKey)
	if err := models.ValidatePublicKey(r.SourcePublicKey); err != nil {
		return err
	}
	r.SourceSecretKey = strings.TrimSpace(r.SourceSecretKey)
	if err := models.ValidateSecretKey(r.SourceSecretKey); err != nil {
		return err
	}
	hash, err := models.ParseDocumentHash(r.DocumentHash)
	if err != nil {
		return err
	}
	r.DocumentHash = hash
	return nil
}

func (r *AnchorRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}

// BatchAnchorRequest is the body for POST /stellar/anchor/batch.
type BatchAnchorRequest struct {
	SourcePublicKey string   `json:"sourcePublicKey"`
	SourceSecretKey string   `json:"sourceSecretKey"`
	DocumentHashes  []string `json:"documentHashes"`
	Network         string   `json:"network"`

	parsedNetwork models.Network
}

func (r *BatchAnchorRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	r.SourcePublicKey = strings.TrimSpace(r.SourcePublicKey)
	if err := models.ValidatePublicKey(r.SourcePublicKey); err != nil {
		return err
	}
	r.SourceSecretKey = strings.TrimSpace(r.SourceSecretKey)
	if err := models.ValidateSecretKey(r.SourceSecretKey); err != nil {
		return err
	}
	if len(r.DocumentHashes) == 0 {
		return dErrors.New(dErrors.CodeValidation, "documentHashes must not be empty")
	}
	if len(r.DocumentHashes) > maxBatchSize {
		return dErrors.New(dErrors.CodeValidation, "documentHashes exceeds the batch limit")
	}
	return nil
}

func (r *BatchAnchorRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}

// VerifyRequest is the body for POST /stellar/verify.
type VerifyRequest struct {
	DocumentHash string `json:"documentHash"`
	Network      string `json:"network"`

	parsedNetwork models.Network
}

func (r *VerifyRequest) Validate() error {
	network, err := models.ParseNetwork(r.Network)
	if err != nil {
		return err
	}
	r.parsedNetwork = network
	hash, err := models.ParseDocumentHash(r.DocumentHash)
	if err != nil {
		return err
	}
	r.DocumentHash = hash
	return nil
}

func (r *VerifyRequest) ParsedNetwork() models.Network {
	return r.parsedNetwork
}
