// Package horizon wraps the Stellar Horizon client behind a narrow interface
// so the gateway and poller can be tested against a fake ledger.
package horizon

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/stellar/go/clients/horizonclient"
	hProtocol "github.com/stellar/go/protocols/horizon"
	"github.com/stellar/go/txnbuild"
)

// API is the slice of Horizon the anchoring subsystem needs: sequence/balance
// reads, submission, confirmation lookups, and testnet friendbot funding.
type API interface {
	AccountDetail(accountID string) (hProtocol.Account, error)
	SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error)
	TransactionDetail(txHash string) (hProtocol.Transaction, error)
	Fund(address string) (hProtocol.Transaction, error)
	Root() (hProtocol.Root, error)
}

type client struct {
	hc *horizonclient.Client
}

// NewClient builds an API for one Horizon instance.
func NewClient(horizonURL string) API {
	return &client{
		hc: &horizonclient.Client{
			HorizonURL: horizonURL,
			HTTP:       &http.Client{Timeout: 30 * time.Second},
		},
	}
}

func (c *client) AccountDetail(accountID string) (hProtocol.Account, error) {
	return c.hc.AccountDetail(horizonclient.AccountRequest{AccountID: accountID})
}

func (c *client) SubmitTransaction(tx *txnbuild.Transaction) (hProtocol.Transaction, error) {
	return c.hc.SubmitTransaction(tx)
}

func (c *client) TransactionDetail(txHash string) (hProtocol.Transaction, error) {
	return c.hc.TransactionDetail(txHash)
}

func (c *client) Fund(address string) (hProtocol.Transaction, error) {
	return c.hc.Fund(address)
}

func (c *client) Root() (hProtocol.Root, error) {
	return c.hc.Root()
}

// IsNotFound reports whether err is Horizon's 404 problem response, which
// during polling means "transaction not visible yet", not a failure.
func IsNotFound(err error) bool {
	var herr *horizonclient.Error
	if errors.As(err, &herr) {
		return herr.Problem.Status == http.StatusNotFound
	}
	return false
}

// ErrorPayload extracts a JSON audit payload from a Horizon error. For
// non-Horizon errors it falls back to a minimal JSON object so the stored
// error_data column is always valid JSON.
func ErrorPayload(err error) json.RawMessage {
	var herr *horizonclient.Error
	if errors.As(err, &herr) {
		if payload, marshalErr := json.Marshal(herr.Problem); marshalErr == nil {
			return payload
		}
	}
	payload, _ := json.Marshal(map[string]string{"error": err.Error()})
	return payload
}
