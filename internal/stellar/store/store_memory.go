package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"docproof/internal/stellar/models"
	"docproof/pkg/platform/sentinel"
)

type accountKey struct {
	publicKey string
	network   models.Network
}

type txKey struct {
	transactionHash string
	documentHash    string
	network         models.Network
}

// MemoryStore keeps ledger accounts and transactions in memory, mirroring
// the PostgreSQL store's uniqueness and status-regression rules.
type MemoryStore struct {
	mu           sync.RWMutex
	accounts     map[accountKey]*models.LedgerAccount
	transactions map[txKey]*models.LedgerTransaction
}

// NewMemory constructs an empty in-memory ledger store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		accounts:     make(map[accountKey]*models.LedgerAccount),
		transactions: make(map[txKey]*models.LedgerTransaction),
	}
}

func (s *MemoryStore) InsertAccount(_ context.Context, account *models.LedgerAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := accountKey{account.PublicKey, account.Network}
	if _, ok := s.accounts[key]; ok {
		return sentinel.ErrConflict
	}
	cp := *account
	s.accounts[key] = &cp
	return nil
}

func (s *MemoryStore) GetAccount(_ context.Context, publicKey string, network models.Network) (*models.LedgerAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[accountKey{publicKey, network}]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *account
	return &cp, nil
}

func (s *MemoryStore) MarkAccountFunded(_ context.Context, publicKey string, network models.Network, balance string, fundedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	account, ok := s.accounts[accountKey{publicKey, network}]
	if !ok {
		return sentinel.ErrNotFound
	}
	account.IsFunded = true
	account.Balance = balance
	t := fundedAt
	account.LastFundedAt = &t
	return nil
}

func (s *MemoryStore) InsertTransaction(_ context.Context, tx *models.LedgerTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := txKey{tx.TransactionHash, tx.DocumentHash, tx.Network}
	if _, ok := s.transactions[key]; ok {
		return sentinel.ErrConflict
	}
	cp := *tx
	s.transactions[key] = &cp
	return nil
}

// UpdateTransactionByHash applies the update to every pending record sharing
// the transaction hash. Records already in a terminal status are untouched,
// so a status can never regress.
func (s *MemoryStore) UpdateTransactionByHash(_ context.Context, transactionHash string, network models.Network, update models.TransactionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	var touched bool
	for key, tx := range s.transactions {
		if key.transactionHash != transactionHash || key.network != network {
			continue
		}
		touched = true
		if tx.Status.Terminal() {
			continue
		}
		tx.Status = update.Status
		if update.ConfirmedAt != nil {
			t := *update.ConfirmedAt
			tx.ConfirmedAt = &t
		}
		if update.TransactionData != nil {
			tx.TransactionData = update.TransactionData
		}
		if update.ErrorData != nil {
			tx.ErrorData = update.ErrorData
		}
	}
	if !touched {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *MemoryStore) GetTransaction(_ context.Context, transactionHash string, network models.Network) (*models.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	matches := s.collect(func(tx *models.LedgerTransaction) bool {
		return tx.TransactionHash == transactionHash && tx.Network == network
	})
	if len(matches) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return matches[0], nil
}

func (s *MemoryStore) FindByDocumentHash(_ context.Context, documentHash string, network models.Network) ([]*models.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(tx *models.LedgerTransaction) bool {
		return tx.DocumentHash == documentHash && tx.Network == network
	}), nil
}

func (s *MemoryStore) FindByStatus(_ context.Context, status models.TxStatus, network models.Network) ([]*models.LedgerTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.collect(func(tx *models.LedgerTransaction) bool {
		return tx.Status == status && tx.Network == network
	}), nil
}

// collect returns copies sorted newest first; callers must hold the lock.
func (s *MemoryStore) collect(match func(*models.LedgerTransaction) bool) []*models.LedgerTransaction {
	var out []*models.LedgerTransaction
	for _, tx := range s.transactions {
		if match(tx) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].DocumentHash < out[j].DocumentHash
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
