package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docproof/internal/workflow/models"
	"docproof/pkg/platform/sentinel"
)

// PostgresStore persists workflows in PostgreSQL. History rides along as a
// JSONB column; it is append-only and always written together with the state
// columns so a row can never hold a state its history does not end in.
//
// Schema: see migrations/0001_init.sql (verification_workflows).
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed workflow store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const workflowColumns = `id, document_id, current_state, stellar_transaction_id, error_message, submitted_at, completed_at, history, version`

func (s *PostgresStore) Insert(ctx context.Context, wf *models.VerificationWorkflow) error {
	history, err := json.Marshal(wf.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_workflows (`+workflowColumns+`)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8, $9)
	`,
		wf.ID,
		wf.DocumentID,
		string(wf.CurrentState),
		wf.StellarTransactionID,
		wf.ErrorMessage,
		wf.SubmittedAt,
		wf.CompletedAt,
		history,
		wf.Version,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert workflow: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.VerificationWorkflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+workflowColumns+`
		FROM verification_workflows
		WHERE id = $1
	`, id)
	wf, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("get workflow: %w", err)
	}
	return wf, nil
}

// Update writes the full workflow state guarded by a version check. The
// UPDATE matches on (id, version); zero rows affected means either the
// workflow vanished or another writer bumped the version first.
func (s *PostgresStore) Update(ctx context.Context, wf *models.VerificationWorkflow, expectedVersion int64) error {
	history, err := json.Marshal(wf.History)
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE verification_workflows
		SET current_state = $1,
		    stellar_transaction_id = NULLIF($2, ''),
		    error_message = NULLIF($3, ''),
		    completed_at = $4,
		    history = $5,
		    version = version + 1
		WHERE id = $6 AND version = $7
	`,
		string(wf.CurrentState),
		wf.StellarTransactionID,
		wf.ErrorMessage,
		wf.CompletedAt,
		history,
		wf.ID,
		expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update workflow: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update workflow rows affected: %w", err)
	}
	if affected == 0 {
		if _, getErr := s.Get(ctx, wf.ID); errors.Is(getErr, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrConflict
	}
	wf.Version = expectedVersion + 1
	return nil
}

func (s *PostgresStore) FindLatestByDocument(ctx context.Context, documentID string) (*models.VerificationWorkflow, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+workflowColumns+`
		FROM verification_workflows
		WHERE document_id = $1
		ORDER BY submitted_at DESC
		LIMIT 1
	`, documentID)
	wf, err := scanWorkflow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find latest workflow: %w", err)
	}
	return wf, nil
}

func (s *PostgresStore) List(ctx context.Context, state *models.State) ([]*models.VerificationWorkflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM verification_workflows
		ORDER BY submitted_at DESC
	`
	args := []any{}
	if state != nil {
		query = `
			SELECT ` + workflowColumns + `
			FROM verification_workflows
			WHERE current_state = $1
			ORDER BY submitted_at DESC
		`
		args = append(args, string(*state))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list workflows: %w", err)
	}
	defer rows.Close()

	var out []*models.VerificationWorkflow
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		out = append(out, wf)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner) (*models.VerificationWorkflow, error) {
	var (
		wf      models.VerificationWorkflow
		state   string
		txID    sql.NullString
		errMsg  sql.NullString
		done    sql.NullTime
		history []byte
	)
	if err := row.Scan(&wf.ID, &wf.DocumentID, &state, &txID, &errMsg, &wf.SubmittedAt, &done, &history, &wf.Version); err != nil {
		return nil, err
	}
	wf.CurrentState = models.State(state)
	wf.StellarTransactionID = txID.String
	wf.ErrorMessage = errMsg.String
	if done.Valid {
		t := done.Time
		wf.CompletedAt = &t
	}
	if err := json.Unmarshal(history, &wf.History); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}
	return &wf, nil
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
