package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"docproof/internal/stellar/models"
	"docproof/pkg/platform/sentinel"
)

// PostgresStore persists ledger accounts and transactions in PostgreSQL.
// This store is pure I/O; fee arithmetic, memo rules, and status decisions
// belong to the gateway and the poller.
//
// Schema: see migrations/0001_init.sql (ledger_accounts, ledger_transactions).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed ledger store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) InsertAccount(ctx context.Context, account *models.LedgerAccount) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_accounts (public_key, encrypted_secret_key, network, balance, is_funded, last_funded_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		account.PublicKey,
		account.EncryptedSecretKey,
		string(account.Network),
		account.Balance,
		account.IsFunded,
		account.LastFundedAt,
		account.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ledger account: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetAccount(ctx context.Context, publicKey string, network models.Network) (*models.LedgerAccount, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT public_key, encrypted_secret_key, network, balance, is_funded, last_funded_at, created_at
		FROM ledger_accounts
		WHERE public_key = $1 AND network = $2
	`, publicKey, string(network))

	var (
		account  models.LedgerAccount
		network2 string
		funded   sql.NullTime
	)
	err := row.Scan(&account.PublicKey, &account.EncryptedSecretKey, &network2, &account.Balance, &account.IsFunded, &funded, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger account: %w", err)
	}
	account.Network = models.Network(network2)
	if funded.Valid {
		t := funded.Time
		account.LastFundedAt = &t
	}
	return &account, nil
}

func (s *PostgresStore) MarkAccountFunded(ctx context.Context, publicKey string, network models.Network, balance string, fundedAt time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_accounts
		SET is_funded = TRUE, balance = $1, last_funded_at = $2
		WHERE public_key = $3 AND network = $4
	`, balance, fundedAt, publicKey, string(network))
	if err != nil {
		return fmt.Errorf("mark account funded: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark account funded rows affected: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const txColumns = `transaction_hash, document_hash, memo, status, network, fee, source_account, destination_account, confirmed_at, transaction_data, error_data, created_at`

func (s *PostgresStore) InsertTransaction(ctx context.Context, tx *models.LedgerTransaction) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO ledger_transactions (`+txColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`,
		tx.TransactionHash,
		tx.DocumentHash,
		tx.Memo,
		string(tx.Status),
		string(tx.Network),
		tx.Fee,
		tx.SourceAccount,
		tx.DestinationAccount,
		tx.ConfirmedAt,
		nullableJSON(tx.TransactionData),
		nullableJSON(tx.ErrorData),
		tx.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert ledger transaction: %w", err)
	}
	return nil
}

// UpdateTransactionByHash applies the update to every still-pending record
// sharing the transaction hash. The status guard in the WHERE clause is what
// enforces "pending -> terminal, never back".
func (s *PostgresStore) UpdateTransactionByHash(ctx context.Context, transactionHash string, network models.Network, update models.TransactionUpdate) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE ledger_transactions
		SET status = $1,
		    confirmed_at = COALESCE($2, confirmed_at),
		    transaction_data = COALESCE($3, transaction_data),
		    error_data = COALESCE($4, error_data)
		WHERE transaction_hash = $5 AND network = $6 AND status = 'pending'
	`,
		string(update.Status),
		update.ConfirmedAt,
		nullableJSON(update.TransactionData),
		nullableJSON(update.ErrorData),
		transactionHash,
		string(network),
	)
	if err != nil {
		return fmt.Errorf("update ledger transaction: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update ledger transaction rows affected: %w", err)
	}
	if affected == 0 {
		// Distinguish unknown hash from already-terminal records.
		if _, getErr := s.GetTransaction(ctx, transactionHash, network); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
	}
	return nil
}

func (s *PostgresStore) GetTransaction(ctx context.Context, transactionHash string, network models.Network) (*models.LedgerTransaction, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+txColumns+`
		FROM ledger_transactions
		WHERE transaction_hash = $1 AND network = $2
		ORDER BY created_at ASC, document_hash ASC
		LIMIT 1
	`, transactionHash, string(network))
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get ledger transaction: %w", err)
	}
	return tx, nil
}

func (s *PostgresStore) FindByDocumentHash(ctx context.Context, documentHash string, network models.Network) ([]*models.LedgerTransaction, error) {
	return s.find(ctx, `
		SELECT `+txColumns+`
		FROM ledger_transactions
		WHERE document_hash = $1 AND network = $2
		ORDER BY created_at DESC
	`, documentHash, string(network))
}

func (s *PostgresStore) FindByStatus(ctx context.Context, status models.TxStatus, network models.Network) ([]*models.LedgerTransaction, error) {
	return s.find(ctx, `
		SELECT `+txColumns+`
		FROM ledger_transactions
		WHERE status = $1 AND network = $2
		ORDER BY created_at DESC
	`, string(status), string(network))
}

func (s *PostgresStore) find(ctx context.Context, query string, args ...any) ([]*models.LedgerTransaction, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ledger transactions: %w", err)
	}
	defer rows.Close()

	var out []*models.LedgerTransaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger transaction: %w", err)
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (*models.LedgerTransaction, error) {
	var (
		tx        models.LedgerTransaction
		status    string
		network   string
		confirmed sql.NullTime
		txData    []byte
		errData   []byte
	)
	err := row.Scan(&tx.TransactionHash, &tx.DocumentHash, &tx.Memo, &status, &network, &tx.Fee,
		&tx.SourceAccount, &tx.DestinationAccount, &confirmed, &txData, &errData, &tx.CreatedAt)
	if err != nil {
		return nil, err
	}
	tx.Status = models.TxStatus(status)
	tx.Network = models.Network(network)
	if confirmed.Valid {
		t := confirmed.Time
		tx.ConfirmedAt = &t
	}
	tx.TransactionData = txData
	tx.ErrorData = errData
	return &tx, nil
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

// isUniqueViolation matches PostgreSQL error code 23505 without binding the
// store to a specific driver error type.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
