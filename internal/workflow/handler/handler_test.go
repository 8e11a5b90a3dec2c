package handler

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"docproof/internal/workflow"
	"docproof/internal/workflow/models"
	"docproof/internal/workflow/store"
)

type WorkflowHandlerSuite struct {
	suite.Suite
	router  chi.Router
	service *workflow.Service
}

func (s *WorkflowHandlerSuite) SetupTest() {
	svc, err := workflow.New(store.NewMemory(), workflow.WithLogger(slog.Default()))
	s.Require().NoError(err)
	s.service = svc

	s.router = chi.NewRouter()
	New(svc, slog.Default()).Register(s.router)
}

func TestWorkflowHandlerSuite(t *testing.T) {
	suite.Run(t, new(WorkflowHandlerSuite))
}

func (s *WorkflowHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *WorkflowHandlerSuite) decode(rec *httptest.ResponseRecorder, out any) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), out))
}

func (s *WorkflowHandlerSuite) initiate(documentID string) WorkflowResponse {
	rec := s.do(http.MethodPost, "/verification-workflows", map[string]string{"documentId": documentID})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var resp WorkflowResponse
	s.decode(rec, &resp)
	return resp
}

func (s *WorkflowHandlerSuite) TestInitiate() {
	resp := s.initiate("doc-1")
	s.NotEmpty(resp.ID)
	s.Equal("doc-1", resp.DocumentID)
	s.Equal("SUBMITTED", resp.CurrentState)
	s.Len(resp.History, 1)
	s.Equal("Workflow initiated", resp.History[0].Note)
}

func (s *WorkflowHandlerSuite) TestInitiateRejectsMissingDocument() {
	rec := s.do(http.MethodPost, "/verification-workflows", map[string]string{})
	s.Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("validation_error", body["error"])
}

func (s *WorkflowHandlerSuite) TestTransition() {
	wf := s.initiate("doc-1")

	rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/transition",
		map[string]string{"newState": "HASHING"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp WorkflowResponse
	s.decode(rec, &resp)
	s.Equal("HASHING", resp.CurrentState)
	s.Len(resp.History, 2)
}

func (s *WorkflowHandlerSuite) TestTransitionRejectsDisallowedEdge() {
	wf := s.initiate("doc-1")

	rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/transition",
		map[string]string{"newState": "ANCHORED"})
	s.Equal(http.StatusBadRequest, rec.Code)

	var body map[string]string
	s.decode(rec, &body)
	s.Equal("invalid_transition", body["error"])
}

func (s *WorkflowHandlerSuite) TestTransitionUnknownWorkflow() {
	rec := s.do(http.MethodPatch, "/verification-workflows/nope/transition",
		map[string]string{"newState": "HASHING"})
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *WorkflowHandlerSuite) TestAnchorFlow() {
	wf := s.initiate("doc-1")
	for _, state := range []string{"HASHING", "ANALYZING", "AWAITING_BLOCKCHAIN"} {
		rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/transition",
			map[string]string{"newState": state})
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/anchor",
		map[string]string{"stellarTransactionId": "tx-abc"})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp WorkflowResponse
	s.decode(rec, &resp)
	s.Equal("ANCHORED", resp.CurrentState)
	s.Equal("tx-abc", resp.StellarTransactionID)
	s.NotNil(resp.CompletedAt)
	s.Len(resp.History, 5)
}

func (s *WorkflowHandlerSuite) TestAnalysisRejectsHighRisk() {
	wf := s.initiate("doc-1")
	for _, state := range []string{"HASHING", "ANALYZING"} {
		rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/transition",
			map[string]string{"newState": state})
		s.Require().Equal(http.StatusOK, rec.Code)
	}

	rec := s.do(http.MethodPost, "/verification-workflows/"+wf.ID+"/analysis",
		map[string]float64{"riskScore": 0.95})
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp WorkflowResponse
	s.decode(rec, &resp)
	s.Equal("REJECTED", resp.CurrentState)
	s.NotEmpty(resp.ErrorMessage)
	s.NotNil(resp.CompletedAt)
}

func (s *WorkflowHandlerSuite) TestFindByDocument() {
	s.initiate("doc-1")

	rec := s.do(http.MethodGet, "/verification-workflows/document/doc-1", nil)
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/verification-workflows/document/doc-unknown", nil)
	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *WorkflowHandlerSuite) TestListFiltersByState() {
	s.initiate("doc-1")
	wf := s.initiate("doc-2")
	rec := s.do(http.MethodPatch, "/verification-workflows/"+wf.ID+"/transition",
		map[string]string{"newState": string(models.StateHashing)})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/verification-workflows?state=HASHING", nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list []WorkflowResponse
	s.decode(rec, &list)
	s.Require().Len(list, 1)
	s.Equal("doc-2", list[0].DocumentID)

	rec = s.do(http.MethodGet, "/verification-workflows?state=bogus", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
}
