package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eladlevy/leadgate/internal/entity"
	"github.com/eladlevy/leadgate/internal/usecase"
)

type stubLeadRepo struct {
	existing  []*entity.Lead
	created   []*entity.Lead
	createErr error
}

func (s *stubLeadRepo) Create(_ context.Context, lead *entity.Lead) error {
	if s.createErr != nil {
		return s.createErr
	}
	s.created = append(s.created, lead)
	return nil
}

func (s *stubLeadRepo) Delete(context.Context, string) error { return nil }

func (s *stubLeadRepo) FindDuplicateCandidates(context.Context, string, string, string, string) ([]*entity.Lead, error) {
	return s.existing, nil
}

func (s *stubLeadRepo) AttachNotes(context.Context, string, string) error { return nil }

func createRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/leads", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandleCreateReturns201(t *testing.T) {
	repo := &stubLeadRepo{}
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(repo))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, createRequest(`{"lead_name":"Dana Cohen","phone":"050-123-4567"}`))

	require.Equal(t, http.StatusCreated, rec.Code)

	var lead entity.Lead
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &lead))
	assert.NotEmpty(t, lead.ID)
	assert.Equal(t, "0501234567", lead.Phone)
	assert.Equal(t, "manual", lead.Source)
	assert.Len(t, repo.created, 1)
}

func TestHandleCreateInvalidJSON(t *testing.T) {
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(&stubLeadRepo{}))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, createRequest(`{not json`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleCreateValidationFailure(t *testing.T) {
	repo := &stubLeadRepo{}
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(repo))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, createRequest(`{"phone":"0501234567"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, repo.created)
}

func TestHandleCreateDuplicateReturns409(t *testing.T) {
	repo := &stubLeadRepo{existing: []*entity.Lead{{
		ID:        "lead-5",
		Name:      "דנה כהן",
		Phone:     "0501234567",
		CreatedAt: time.Now().Add(-48 * time.Hour),
	}}}
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(repo))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, createRequest(`{"lead_name":"someone else","phone":"0501234567"}`))

	require.Equal(t, http.StatusConflict, rec.Code)

	var resp duplicateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(usecase.ReasonExactPhone), resp.Reason)
	assert.Equal(t, "ליד כפול: מספר טלפון זהה כבר קיים במערכת", resp.Message)
	assert.Equal(t, "lead-5", resp.ExistingLead.ID)
	assert.Equal(t, "0501234567", resp.ExistingLead.Phone)
	assert.Empty(t, repo.created)
}

func TestHandleCreateRepositoryFailureReturns500(t *testing.T) {
	repo := &stubLeadRepo{createErr: assert.AnError}
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(repo))

	rec := httptest.NewRecorder()
	handler.HandleCreate(rec, createRequest(`{"lead_name":"Dana","phone":"0501234567"}`))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	// internals stay in the logs
	assert.Equal(t, "Failed to create lead", resp.Error)
}

func TestHandleCreateRateLimit(t *testing.T) {
	handler := NewLeadHandler(usecase.NewCreateLeadUseCase(&stubLeadRepo{}))

	var last int
	for i := 0; i < 31; i++ {
		rec := httptest.NewRecorder()
		req := createRequest(`{"lead_name":"Dana","phone":"0501234567"}`)
		req.Header.Set("X-Forwarded-For", "10.0.0.9")
		handler.HandleCreate(rec, req)
		last = rec.Code
	}

	assert.Equal(t, http.StatusTooManyRequests, last)
}
