package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"github.com/testtube/campus-ledger/internal/core/chain"
	"github.com/testtube/campus-ledger/internal/core/convert"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
	"github.com/testtube/campus-ledger/internal/core/repository"
	"github.com/testtube/campus-ledger/internal/core/usecase"
)

type PaymentHandler struct {
	usecase usecase.PaymentUsecase
	log     logger.Logger
}

type SubmitPaymentRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
	Purpose   string `json:"purpose"`
	Reference string `json:"reference,omitempty"`
}

// Amounts arrive as decimal SOL strings; up to nine fractional digits, one
// lamport resolution.
var amountRegexp = regexp.MustCompile(`^\s*\d{1,9}([.,]\d{1,9})?\s*$`)

func NewPaymentHandler(usecase usecase.PaymentUsecase, log logger.Logger) *PaymentHandler {
	return &PaymentHandler{usecase: usecase, log: log}
}

func (h *PaymentHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/v1/payments", h.SubmitPayment).Methods("POST")
	router.HandleFunc("/api/v1/transactions", h.ListTransactions).Methods("GET")
	router.HandleFunc("/api/v1/transactions/{id}", h.GetTransaction).Methods("GET")
	router.HandleFunc("/api/v1/transactions/{id}/category", h.Recategorize).Methods("PATCH")
}

func (h *PaymentHandler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Warn("Failed to decode payment request", logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	lamports, err := h.parseAmount(req.Amount)
	if err != nil {
		h.log.Warn("Invalid amount", logger.StringField("amount", req.Amount), logger.ErrorField("error", err))
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	in := usecase.SubmitPaymentInput{
		Recipient:      strings.TrimSpace(req.Recipient),
		AmountLamports: lamports,
		Purpose:        req.Purpose,
	}
	if req.Reference != "" {
		in.Reference = &req.Reference
	}

	tx, err := h.usecase.SubmitPayment(r.Context(), in)
	if err != nil {
		h.handlePaymentError(w, tx, err)
		return
	}

	respondWithJSON(w, http.StatusCreated, tx)
}

func (h *PaymentHandler) parseAmount(amountStr string) (int64, error) {
	cleaned := strings.ReplaceAll(strings.ReplaceAll(amountStr, " ", ""), ",", ".")

	if !amountRegexp.MatchString(cleaned) {
		return 0, fmt.Errorf("invalid amount format: %s", cleaned)
	}

	amount, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, fmt.Errorf("could not parse amount: %v", err)
	}

	if amount.LessThanOrEqual(decimal.Zero) {
		return 0, fmt.Errorf("amount must be positive")
	}

	return amount.Mul(decimal.NewFromInt(convert.LamportsPerSol)).IntPart(), nil
}

func (h *PaymentHandler) handlePaymentError(w http.ResponseWriter, tx *models.Transaction, err error) {
	switch {
	case errors.Is(err, usecase.ErrInvalidAmount), errors.Is(err, usecase.ErrInvalidAddress):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, repository.ErrDuplicateReference):
		respondWithError(w, http.StatusConflict, "reference already used")
	case errors.Is(err, chain.ErrUnavailable), errors.Is(err, usecase.ErrPaymentFailed):
		// The transaction exists in a terminal FAILED state; return it so the
		// caller can observe the outcome.
		h.log.Warn("Payment not completed", logger.ErrorField("error", err))
		respondWithJSONError(w, http.StatusBadGateway, "payment failed", tx)
	default:
		h.log.Error("Failed to process payment", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "failed to process payment")
	}
}

func (h *PaymentHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	txs, err := h.usecase.ListTransactions(r.Context(), filter)
	if err != nil {
		h.log.Error("Failed to list transactions", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "failed to list transactions")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]any{"transactions": txs})
}

func (h *PaymentHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	tx, err := h.usecase.GetTransaction(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			respondWithError(w, http.StatusNotFound, "transaction not found")
			return
		}
		h.log.Error("Failed to get transaction", logger.ErrorField("error", err))
		respondWithError(w, http.StatusInternalServerError, "failed to get transaction")
		return
	}

	respondWithJSON(w, http.StatusOK, tx)
}

type RecategorizeRequest struct {
	Category string `json:"category"`
	Note     string `json:"note,omitempty"`
}

func (h *PaymentHandler) Recategorize(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid transaction id")
		return
	}

	var req RecategorizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	defer r.Body.Close()

	tx, err := h.usecase.Recategorize(r.Context(), id, models.Category(req.Category), req.Note)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrInvalidCategory):
			respondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, repository.ErrTransactionNotFound):
			respondWithError(w, http.StatusNotFound, "transaction not found")
		case errors.Is(err, repository.ErrNotConfirmed):
			respondWithError(w, http.StatusConflict, "only confirmed transactions can be recategorized")
		default:
			h.log.Error("Failed to recategorize", logger.ErrorField("error", err))
			respondWithError(w, http.StatusInternalServerError, "failed to recategorize")
		}
		return
	}

	respondWithJSON(w, http.StatusOK, tx)
}

func parseFilter(r *http.Request) (repository.Filter, error) {
	var filter repository.Filter
	q := r.URL.Query()

	if v := q.Get("status"); v != "" {
		status := models.Status(strings.ToUpper(v))
		if !status.Valid() {
			return filter, fmt.Errorf("invalid status: %s", v)
		}
		filter.Status = &status
	}
	if v := q.Get("category"); v != "" {
		category := models.Category(v)
		if !category.Valid() {
			return filter, fmt.Errorf("invalid category: %s", v)
		}
		filter.Category = &category
	}
	filter.Merchant = q.Get("merchant")

	if v := q.Get("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid from timestamp: %s", v)
		}
		filter.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, fmt.Errorf("invalid to timestamp: %s", v)
		}
		filter.To = &t
	}

	return filter, nil
}
