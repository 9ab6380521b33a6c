package usecase_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testtube/campus-ledger/internal/core/chain"
	"github.com/testtube/campus-ledger/internal/core/classifier"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/merchant"
	"github.com/testtube/campus-ledger/internal/core/models"
	"github.com/testtube/campus-ledger/internal/core/repository"
	"github.com/testtube/campus-ledger/internal/core/usecase"
)

// Well-known valid base58 addresses.
const (
	recipientAddr = "So11111111111111111111111111111111111111112"
	payerAddr     = "11111111111111111111111111111111"
)

// fakeRepo mirrors the store contract in memory: atomic reference uniqueness
// over non-failed rows and forward-only transitions.
type fakeRepo struct {
	mu  sync.Mutex
	txs map[uuid.UUID]*models.Transaction
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{txs: map[uuid.UUID]*models.Transaction{}}
}

func (r *fakeRepo) Append(_ context.Context, draft models.TransactionDraft) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if draft.Reference != nil {
		for _, existing := range r.txs {
			if existing.Reference != nil && *existing.Reference == *draft.Reference && existing.Status != models.StatusFailed {
				return nil, repository.ErrDuplicateReference
			}
		}
	}

	tx := &models.Transaction{
		ID:             uuid.New(),
		Timestamp:      time.Now().UTC(),
		Sender:         draft.Sender,
		Recipient:      draft.Recipient,
		AmountLamports: draft.AmountLamports,
		Purpose:        draft.Purpose,
		Reference:      draft.Reference,
		Status:         models.StatusPending,
		Category:       models.CategoryUncategorized,
	}
	r.txs[tx.ID] = tx
	copied := *tx
	return &copied, nil
}

func (r *fakeRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.Status, confirm *repository.ConfirmOptions) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if !tx.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, tx.Status, status)
	}

	tx.Status = status
	if confirm != nil {
		tx.Category = confirm.Category
		tx.MerchantLabel = confirm.MerchantLabel
		tx.Signature = confirm.Signature
		if confirm.ConfirmedAmount != nil {
			tx.AmountLamports = *confirm.ConfirmedAmount
		}
	}
	tx.UpdatedAt = time.Now().UTC()
	copied := *tx
	return &copied, nil
}

func (r *fakeRepo) Get(_ context.Context, id uuid.UUID) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	copied := *tx
	return &copied, nil
}

func (r *fakeRepo) List(_ context.Context, filter repository.Filter) ([]models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Transaction
	for _, tx := range r.txs {
		if filter.Status != nil && tx.Status != *filter.Status {
			continue
		}
		out = append(out, *tx)
	}
	return out, nil
}

func (r *fakeRepo) ListConfirmed(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	status := models.StatusConfirmed
	return r.List(ctx, repository.Filter{Status: &status, From: &from, To: &to})
}

func (r *fakeRepo) Recategorize(_ context.Context, id uuid.UUID, category models.Category, _ string) (*models.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.txs[id]
	if !ok {
		return nil, repository.ErrTransactionNotFound
	}
	if tx.Status != models.StatusConfirmed {
		return nil, repository.ErrNotConfirmed
	}
	tx.Category = category
	copied := *tx
	return &copied, nil
}

func (r *fakeRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.txs)
}

// fakeChain replays scripted submit errors, then succeeds; polling replays
// scripted statuses, then repeats the last one.
type fakeChain struct {
	mu           sync.Mutex
	submitErrs   []error
	pollStatuses []chain.TxStatus
	airdrops     int
	submits      int
}

func (c *fakeChain) Submit(context.Context, chain.PaymentRequest) (solana.Signature, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.submits++
	if len(c.submitErrs) > 0 {
		err := c.submitErrs[0]
		c.submitErrs = c.submitErrs[1:]
		if err != nil {
			return solana.Signature{}, err
		}
	}
	return solana.Signature{}, nil
}

func (c *fakeChain) Balance(context.Context, solana.PublicKey) (uint64, error) {
	return 0, nil
}

func (c *fakeChain) RequestAirdrop(context.Context, solana.PublicKey, uint64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.airdrops++
	return nil
}

func (c *fakeChain) PollStatus(context.Context, solana.Signature) (chain.TxStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pollStatuses) == 0 {
		return chain.TxConfirmed, nil
	}
	status := c.pollStatuses[0]
	if len(c.pollStatuses) > 1 {
		c.pollStatuses = c.pollStatuses[1:]
	}
	return status, nil
}

func newPaymentUsecase(repo repository.TransactionRepository, network chain.Client) usecase.PaymentUsecase {
	payer := solana.MustPublicKeyFromBase58(payerAddr)
	directory := merchant.NewStaticDirectory(map[string]string{recipientAddr: "Campus Cafeteria"})
	cfg := usecase.PaymentConfig{SubmitAttempts: 3, PollAttempts: 3, RetryBase: time.Millisecond}
	return usecase.NewPaymentUsecase(repo, network, classifier.New(nil), directory, payer, cfg, logger.NewNop())
}

func TestSubmitPaymentRejectsZeroAmount(t *testing.T) {
	repo := newFakeRepo()
	uc := newPaymentUsecase(repo, &fakeChain{})

	_, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 0,
		Purpose:        "lunch",
	})

	assert.ErrorIs(t, err, usecase.ErrInvalidAmount)
	assert.Zero(t, repo.count(), "validation failures must not create store records")
}

func TestSubmitPaymentRejectsBadAddress(t *testing.T) {
	repo := newFakeRepo()
	uc := newPaymentUsecase(repo, &fakeChain{})

	_, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      "not-a-real-address",
		AmountLamports: 100,
		Purpose:        "lunch",
	})

	assert.ErrorIs(t, err, usecase.ErrInvalidAddress)
	assert.Zero(t, repo.count())
}

func TestSubmitPaymentConfirms(t *testing.T) {
	repo := newFakeRepo()
	uc := newPaymentUsecase(repo, &fakeChain{})

	tx, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 1_000_000,
		Purpose:        "lunch at the cafeteria",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, tx.Status)
	assert.Equal(t, models.CategoryFood, tx.Category)
	assert.Equal(t, "Campus Cafeteria", tx.MerchantLabel)
	assert.Equal(t, payerAddr, tx.Sender)
}

func TestSubmitPaymentDuplicateReference(t *testing.T) {
	repo := newFakeRepo()
	uc := newPaymentUsecase(repo, &fakeChain{})

	ref := "r1"
	first, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 10_000_000,
		Purpose:        "lunch",
		Reference:      &ref,
	})
	require.NoError(t, err)
	require.Equal(t, models.StatusConfirmed, first.Status)

	_, err = uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 10_000_000,
		Purpose:        "lunch",
		Reference:      &ref,
	})
	assert.ErrorIs(t, err, repository.ErrDuplicateReference)
	assert.Equal(t, 1, repo.count())
}

func TestSubmitPaymentChainUnreachableEndsFailed(t *testing.T) {
	repo := newFakeRepo()
	network := &fakeChain{submitErrs: []error{
		chain.ErrUnavailable,
		chain.ErrUnavailable,
		chain.ErrUnavailable,
	}}
	uc := newPaymentUsecase(repo, network)

	tx, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 100,
		Purpose:        "lunch",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrPaymentFailed)
	assert.Equal(t, 3, network.submits)

	// The terminal state is observable through the store.
	stored, getErr := uc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, stored.Status)
}

func TestSubmitPaymentTopsUpOnceOnShortfall(t *testing.T) {
	repo := newFakeRepo()
	network := &fakeChain{submitErrs: []error{chain.ErrInsufficientFunds}}
	uc := newPaymentUsecase(repo, network)

	tx, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 100,
		Purpose:        "lunch",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StatusConfirmed, tx.Status)
	assert.Equal(t, 1, network.airdrops)
	assert.Equal(t, 2, network.submits)
}

func TestSubmitPaymentSecondShortfallSurfaces(t *testing.T) {
	repo := newFakeRepo()
	network := &fakeChain{submitErrs: []error{
		chain.ErrInsufficientFunds,
		chain.ErrInsufficientFunds,
	}}
	uc := newPaymentUsecase(repo, network)

	tx, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 100,
		Purpose:        "lunch",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrPaymentFailed)
	assert.Equal(t, 1, network.airdrops, "top-up happens at most once")

	stored, getErr := uc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, stored.Status)
}

func TestSubmitPaymentPollingExhaustionEndsFailed(t *testing.T) {
	repo := newFakeRepo()
	network := &fakeChain{pollStatuses: []chain.TxStatus{chain.TxPending}}
	uc := newPaymentUsecase(repo, network)

	tx, err := uc.SubmitPayment(context.Background(), usecase.SubmitPaymentInput{
		Recipient:      recipientAddr,
		AmountLamports: 100,
		Purpose:        "lunch",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrPaymentFailed)

	stored, getErr := uc.GetTransaction(context.Background(), tx.ID)
	require.NoError(t, getErr)
	assert.Equal(t, models.StatusFailed, stored.Status)
}

func TestRecategorizeRejectsUnknownCategory(t *testing.T) {
	uc := newPaymentUsecase(newFakeRepo(), &fakeChain{})

	_, err := uc.Recategorize(context.Background(), uuid.New(), models.Category("Groceries"), "")
	assert.ErrorIs(t, err, usecase.ErrInvalidCategory)
}
