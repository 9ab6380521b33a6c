package handler_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testtube/campus-ledger/internal/core/handler"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
	"github.com/testtube/campus-ledger/internal/core/repository"
	"github.com/testtube/campus-ledger/internal/core/usecase"
)

type stubPaymentUsecase struct {
	submitted *usecase.SubmitPaymentInput
	tx        *models.Transaction
	err       error
}

func (s *stubPaymentUsecase) SubmitPayment(_ context.Context, in usecase.SubmitPaymentInput) (*models.Transaction, error) {
	s.submitted = &in
	return s.tx, s.err
}

func (s *stubPaymentUsecase) GetTransaction(context.Context, uuid.UUID) (*models.Transaction, error) {
	return s.tx, s.err
}

func (s *stubPaymentUsecase) ListTransactions(context.Context, repository.Filter) ([]models.Transaction, error) {
	return nil, s.err
}

func (s *stubPaymentUsecase) Recategorize(context.Context, uuid.UUID, models.Category, string) (*models.Transaction, error) {
	return s.tx, s.err
}

func newRouter(stub *stubPaymentUsecase) *mux.Router {
	router := mux.NewRouter()
	handler.NewPaymentHandler(stub, logger.NewNop()).RegisterRoutes(router)
	return router
}

func TestSubmitPaymentParsesAmountToLamports(t *testing.T) {
	stub := &stubPaymentUsecase{tx: &models.Transaction{Status: models.StatusConfirmed}}
	router := newRouter(stub)

	body := `{"recipient":"So11111111111111111111111111111111111111112","amount":"0,5","purpose":"lunch"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, stub.submitted)
	assert.Equal(t, int64(500_000_000), stub.submitted.AmountLamports)
	assert.Nil(t, stub.submitted.Reference)
}

func TestSubmitPaymentRejectsMalformedAmount(t *testing.T) {
	stub := &stubPaymentUsecase{}
	router := newRouter(stub)

	for _, amount := range []string{"0", "-1", "abc", "1.2.3", ""} {
		body := `{"recipient":"r","amount":"` + amount + `","purpose":"p"}`
		req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code, "amount %q", amount)
		assert.Nil(t, stub.submitted, "amount %q must not reach the usecase", amount)
	}
}

func TestSubmitPaymentMapsDuplicateReference(t *testing.T) {
	stub := &stubPaymentUsecase{err: repository.ErrDuplicateReference}
	router := newRouter(stub)

	body := `{"recipient":"r","amount":"1","purpose":"p","reference":"r1"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestListTransactionsRejectsBadFilter(t *testing.T) {
	router := newRouter(&stubPaymentUsecase{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions?status=bogus", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
