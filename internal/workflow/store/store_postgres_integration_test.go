//go:build integration

package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"docproof/internal/workflow/models"
	"docproof/internal/workflow/store"
	"docproof/pkg/platform/sentinel"
	"docproof/pkg/testutil/containers"
)

type PostgresWorkflowStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
}

func TestPostgresWorkflowStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresWorkflowStoreSuite))
}

func (s *PostgresWorkflowStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresWorkflowStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(), "verification_workflows")
	s.Require().NoError(err)
}

func (s *PostgresWorkflowStoreSuite) newWorkflow(documentID string) *models.VerificationWorkflow {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.VerificationWorkflow{
		ID:           uuid.NewString(),
		DocumentID:   documentID,
		CurrentState: models.StateSubmitted,
		SubmittedAt:  now,
		History: []models.HistoryEntry{
			{State: models.StateSubmitted, Timestamp: now, Note: "Workflow initiated"},
		},
	}
}

func (s *PostgresWorkflowStoreSuite) TestInsertAndGet() {
	ctx := context.Background()
	wf := s.newWorkflow("doc-1")
	s.Require().NoError(s.store.Insert(ctx, wf))

	got, err := s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)
	s.Equal(wf.DocumentID, got.DocumentID)
	s.Equal(models.StateSubmitted, got.CurrentState)
	s.Require().Len(got.History, 1)
	s.Equal("Workflow initiated", got.History[0].Note)
	s.Equal(int64(0), got.Version)
}

func (s *PostgresWorkflowStoreSuite) TestEmptyOptionalFieldsRoundTrip() {
	ctx := context.Background()
	wf := s.newWorkflow("doc-1")
	s.Require().NoError(s.store.Insert(ctx, wf))

	got, err := s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)
	s.Empty(got.StellarTransactionID)
	s.Empty(got.ErrorMessage)

	// A transition without a transaction id must also persist cleanly.
	got.Apply(models.StateHashing, time.Now().UTC(), "")
	s.Require().NoError(s.store.Update(ctx, got, 0))

	got, err = s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)
	s.Equal(models.StateHashing, got.CurrentState)
	s.Empty(got.StellarTransactionID)
	s.Empty(got.ErrorMessage)
}

func (s *PostgresWorkflowStoreSuite) TestUpdateEnforcesVersion() {
	ctx := context.Background()
	wf := s.newWorkflow("doc-1")
	s.Require().NoError(s.store.Insert(ctx, wf))

	loaded, err := s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)

	loaded.Apply(models.StateHashing, time.Now().UTC(), "")
	s.Require().NoError(s.store.Update(ctx, loaded, 0))

	// A writer still holding version 0 must be rejected.
	stale, err := s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)
	stale.Apply(models.StateAnalyzing, time.Now().UTC(), "")
	err = s.store.Update(ctx, stale, 0)
	s.ErrorIs(err, sentinel.ErrConflict)

	got, err := s.store.Get(ctx, wf.ID)
	s.Require().NoError(err)
	s.Equal(models.StateHashing, got.CurrentState)
	s.Equal(int64(1), got.Version)
}

func (s *PostgresWorkflowStoreSuite) TestUpdateUnknownWorkflow() {
	ctx := context.Background()
	wf := s.newWorkflow("doc-1")
	err := s.store.Update(ctx, wf, 0)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresWorkflowStoreSuite) TestFindLatestByDocument() {
	ctx := context.Background()
	older := s.newWorkflow("doc-1")
	older.SubmittedAt = older.SubmittedAt.Add(-time.Hour)
	s.Require().NoError(s.store.Insert(ctx, older))

	newer := s.newWorkflow("doc-1")
	s.Require().NoError(s.store.Insert(ctx, newer))

	got, err := s.store.FindLatestByDocument(ctx, "doc-1")
	s.Require().NoError(err)
	s.Equal(newer.ID, got.ID)

	_, err = s.store.FindLatestByDocument(ctx, "doc-unknown")
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresWorkflowStoreSuite) TestListFiltersByState() {
	ctx := context.Background()
	submitted := s.newWorkflow("doc-1")
	s.Require().NoError(s.store.Insert(ctx, submitted))

	hashing := s.newWorkflow("doc-2")
	s.Require().NoError(s.store.Insert(ctx, hashing))
	loaded, err := s.store.Get(ctx, hashing.ID)
	s.Require().NoError(err)
	loaded.Apply(models.StateHashing, time.Now().UTC(), "")
	s.Require().NoError(s.store.Update(ctx, loaded, 0))

	all, err := s.store.List(ctx, nil)
	s.Require().NoError(err)
	s.Len(all, 2)

	state := models.StateHashing
	filtered, err := s.store.List(ctx, &state)
	s.Require().NoError(err)
	s.Require().Len(filtered, 1)
	s.Equal(hashing.ID, filtered[0].ID)
}
