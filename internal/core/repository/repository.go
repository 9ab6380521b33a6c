package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/testtube/campus-ledger/internal/core/models"
)

var (
	ErrDuplicateReference  = errors.New("reference already used by a non-failed transaction")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrNotConfirmed        = errors.New("transaction is not confirmed")
)

// Filter predicates are conjunctive; nil fields are not applied.
type Filter struct {
	Status   *models.Status
	Category *models.Category
	Merchant string
	From     *time.Time
	To       *time.Time
}

// ConfirmOptions carries the confirmation-time enrichment: the category from
// the classifier, the resolved merchant label and the chain signature.
type ConfirmOptions struct {
	Category      models.Category
	MerchantLabel string
	Signature     string
	// ConfirmedAmount overrides the draft amount with the network-settled
	// one when they differ; nil keeps the recorded amount.
	ConfirmedAmount *int64
}

type TransactionRepository interface {
	// Append assigns an id, sets status PENDING and persists durably before
	// returning. Reference uniqueness is enforced atomically by the store.
	Append(ctx context.Context, draft models.TransactionDraft) (*models.Transaction, error)

	// UpdateStatus enforces the forward-only state machine. confirm may be
	// nil for FAILED transitions.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, confirm *ConfirmOptions) (*models.Transaction, error)

	Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error)

	// List returns transactions ordered by timestamp ascending.
	List(ctx context.Context, filter Filter) ([]models.Transaction, error)

	// ListConfirmed is the aggregator's read path: CONFIRMED rows in
	// [from, to), timestamp ascending.
	ListConfirmed(ctx context.Context, from, to time.Time) ([]models.Transaction, error)

	// Recategorize changes a confirmed transaction's category and records
	// the change as an audit event, never a silent overwrite.
	Recategorize(ctx context.Context, id uuid.UUID, category models.Category, note string) (*models.Transaction, error)
}
