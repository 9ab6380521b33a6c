package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"github.com/testtube/campus-ledger/internal/core/chain"
	"github.com/testtube/campus-ledger/internal/core/classifier"
	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/merchant"
	"github.com/testtube/campus-ledger/internal/core/models"
	"github.com/testtube/campus-ledger/internal/core/repository"
)

type SubmitPaymentInput struct {
	Recipient      string
	AmountLamports int64
	Purpose        string
	Reference      *string
}

type PaymentConfig struct {
	// SubmitAttempts bounds retries of a transfer submission on transient
	// network failures.
	SubmitAttempts int
	// PollAttempts bounds confirmation polling before the transaction is
	// marked failed.
	PollAttempts int
	// RetryBase is the backoff unit; attempt n waits n^2 * RetryBase.
	RetryBase time.Duration
}

func DefaultPaymentConfig() PaymentConfig {
	return PaymentConfig{
		SubmitAttempts: 3,
		PollAttempts:   5,
		RetryBase:      500 * time.Millisecond,
	}
}

type PaymentUsecase interface {
	SubmitPayment(ctx context.Context, in SubmitPaymentInput) (*models.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error)
	ListTransactions(ctx context.Context, filter repository.Filter) ([]models.Transaction, error)
	Recategorize(ctx context.Context, id uuid.UUID, category models.Category, note string) (*models.Transaction, error)
}

type paymentUsecase struct {
	repo       repository.TransactionRepository
	network    chain.Client
	classifier *classifier.Classifier
	merchants  merchant.Resolver
	payer      solana.PublicKey
	cfg        PaymentConfig
	log        logger.Logger
}

func NewPaymentUsecase(
	repo repository.TransactionRepository,
	network chain.Client,
	cls *classifier.Classifier,
	merchants merchant.Resolver,
	payer solana.PublicKey,
	cfg PaymentConfig,
	log logger.Logger,
) PaymentUsecase {
	if cfg.SubmitAttempts <= 0 {
		cfg.SubmitAttempts = 3
	}
	if cfg.PollAttempts <= 0 {
		cfg.PollAttempts = 5
	}
	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 500 * time.Millisecond
	}
	return &paymentUsecase{
		repo:       repo,
		network:    network,
		classifier: cls,
		merchants:  merchants,
		payer:      payer,
		cfg:        cfg,
		log:        log,
	}
}

// SubmitPayment validates the request, records it as PENDING, submits the
// transfer and drives it to a terminal status. Validation failures never
// create a store record. No store lock is held while a network call is in
// flight; every wait is tied to the request context.
func (uc *paymentUsecase) SubmitPayment(ctx context.Context, in SubmitPaymentInput) (*models.Transaction, error) {
	recipient, err := uc.validate(in)
	if err != nil {
		return nil, err
	}

	ref := in.Reference
	if ref != nil && *ref == "" {
		ref = nil
	}

	tx, err := uc.repo.Append(ctx, models.TransactionDraft{
		Sender:         uc.payer.String(),
		Recipient:      in.Recipient,
		AmountLamports: in.AmountLamports,
		Purpose:        in.Purpose,
		Reference:      ref,
	})
	if err != nil {
		return nil, err
	}

	uc.log.Info("Payment recorded",
		logger.StringField("transaction_id", tx.ID.String()),
		logger.StringField("recipient", in.Recipient),
		logger.Int64Field("amount_lamports", in.AmountLamports),
	)

	sig, err := uc.submitWithRetry(ctx, chain.PaymentRequest{
		Recipient: recipient,
		Lamports:  uint64(in.AmountLamports),
		Reference: ref,
		Label:     in.Purpose,
	})
	if err != nil {
		return uc.fail(ctx, tx.ID, err)
	}

	status, err := uc.pollUntilTerminal(ctx, sig)
	if err != nil {
		return uc.fail(ctx, tx.ID, err)
	}
	if status != chain.TxConfirmed {
		return uc.fail(ctx, tx.ID, fmt.Errorf("%w: rejected by network", ErrPaymentFailed))
	}

	category := uc.classifier.Classify(in.Purpose, in.Recipient)
	label := merchant.LabelOrAddress(ctx, uc.merchants, in.Recipient)

	confirmed, err := uc.repo.UpdateStatus(ctx, tx.ID, models.StatusConfirmed, &repository.ConfirmOptions{
		Category:      category,
		MerchantLabel: label,
		Signature:     sig.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("confirm transaction %s: %w", tx.ID, err)
	}

	uc.log.Info("Payment confirmed",
		logger.StringField("transaction_id", confirmed.ID.String()),
		logger.StringField("signature", sig.String()),
		logger.StringField("category", string(category)),
	)

	return confirmed, nil
}

func (uc *paymentUsecase) validate(in SubmitPaymentInput) (solana.PublicKey, error) {
	if in.AmountLamports <= 0 {
		return solana.PublicKey{}, fmt.Errorf("%w: %d lamports", ErrInvalidAmount, in.AmountLamports)
	}
	recipient, err := solana.PublicKeyFromBase58(in.Recipient)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("%w: %q", ErrInvalidAddress, in.Recipient)
	}
	return recipient, nil
}

// submitWithRetry retries transient failures with bounded backoff. An
// insufficient-funds failure triggers a single test-funds top-up and one
// resubmission; a second shortfall is surfaced.
func (uc *paymentUsecase) submitWithRetry(ctx context.Context, req chain.PaymentRequest) (solana.Signature, error) {
	var (
		lastErr    error
		airdropped bool
	)

	for attempt := 1; attempt <= uc.cfg.SubmitAttempts; attempt++ {
		sig, err := uc.network.Submit(ctx, req)
		if err == nil {
			return sig, nil
		}
		lastErr = err

		switch {
		case errors.Is(err, chain.ErrInsufficientFunds):
			if airdropped {
				return solana.Signature{}, err
			}
			airdropped = true
			if adErr := uc.network.RequestAirdrop(ctx, uc.payer, req.Lamports); adErr != nil {
				return solana.Signature{}, fmt.Errorf("top-up after shortfall: %w", adErr)
			}
			uc.log.Info("Requested test funds after shortfall",
				logger.StringField("payer", uc.payer.String()))
		case errors.Is(err, chain.ErrUnavailable):
			uc.log.Warn("Submission failed, retrying",
				logger.IntField("attempt", attempt),
				logger.ErrorField("error", err))
		default:
			return solana.Signature{}, err
		}

		if attempt < uc.cfg.SubmitAttempts {
			if err := sleepBackoff(ctx, attempt, uc.cfg.RetryBase); err != nil {
				return solana.Signature{}, err
			}
		}
	}

	return solana.Signature{}, fmt.Errorf("submission exhausted %d attempts: %w", uc.cfg.SubmitAttempts, lastErr)
}

func (uc *paymentUsecase) pollUntilTerminal(ctx context.Context, sig solana.Signature) (chain.TxStatus, error) {
	var lastErr error

	for attempt := 1; attempt <= uc.cfg.PollAttempts; attempt++ {
		status, err := uc.network.PollStatus(ctx, sig)
		if err != nil {
			lastErr = err
			uc.log.Warn("Status poll failed",
				logger.IntField("attempt", attempt),
				logger.ErrorField("error", err))
		} else if status != chain.TxPending {
			return status, nil
		}

		if attempt < uc.cfg.PollAttempts {
			if err := sleepBackoff(ctx, attempt, uc.cfg.RetryBase); err != nil {
				return chain.TxPending, err
			}
		}
	}

	if lastErr != nil {
		return chain.TxPending, fmt.Errorf("confirmation polling exhausted: %w", lastErr)
	}
	return chain.TxPending, fmt.Errorf("%w: confirmation polling exhausted %d attempts", ErrPaymentFailed, uc.cfg.PollAttempts)
}

// fail drives the transaction to FAILED and returns the latest row alongside
// the original error so callers can observe the terminal state.
func (uc *paymentUsecase) fail(ctx context.Context, id uuid.UUID, cause error) (*models.Transaction, error) {
	failed, updErr := uc.repo.UpdateStatus(ctx, id, models.StatusFailed, nil)
	if updErr != nil {
		uc.log.Error("Failed to mark transaction failed",
			logger.StringField("transaction_id", id.String()),
			logger.ErrorField("error", updErr))
		return nil, fmt.Errorf("%w (and marking failed: %v)", cause, updErr)
	}

	uc.log.Warn("Payment failed",
		logger.StringField("transaction_id", id.String()),
		logger.ErrorField("error", cause))

	return failed, fmt.Errorf("%w: %v", ErrPaymentFailed, cause)
}

func (uc *paymentUsecase) GetTransaction(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	return uc.repo.Get(ctx, id)
}

func (uc *paymentUsecase) ListTransactions(ctx context.Context, filter repository.Filter) ([]models.Transaction, error) {
	return uc.repo.List(ctx, filter)
}

func (uc *paymentUsecase) Recategorize(ctx context.Context, id uuid.UUID, category models.Category, note string) (*models.Transaction, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidCategory, category)
	}
	return uc.repo.Recategorize(ctx, id, category, note)
}
