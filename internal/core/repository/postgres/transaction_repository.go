package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/testtube/campus-ledger/internal/core/logger"
	"github.com/testtube/campus-ledger/internal/core/models"
	"github.com/testtube/campus-ledger/internal/core/repository"
)

const txColumns = `id, created_at, updated_at, sender, recipient, amount_lamports, purpose, reference, status, category, merchant_label, signature`

const pqUniqueViolation = "23505"

type postgresTransactionRepo struct {
	db  *sqlx.DB
	log logger.Logger
}

func NewTransactionRepo(db *sqlx.DB, log logger.Logger) repository.TransactionRepository {
	return &postgresTransactionRepo{
		db:  db,
		log: log,
	}
}

func (r *postgresTransactionRepo) Append(ctx context.Context, draft models.TransactionDraft) (*models.Transaction, error) {
	query := `
		INSERT INTO transactions (id, sender, recipient, amount_lamports, purpose, reference, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + txColumns

	var tx models.Transaction
	err := r.db.GetContext(ctx, &tx, query,
		uuid.New(),
		draft.Sender,
		draft.Recipient,
		draft.AmountLamports,
		draft.Purpose,
		draft.Reference,
		models.StatusPending,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation && pqErr.Constraint == "transactions_reference_live" {
			r.log.Warn("Duplicate reference rejected",
				logger.StringField("reference", derefRef(draft.Reference)))
			return nil, repository.ErrDuplicateReference
		}
		return nil, fmt.Errorf("append transaction: %w", err)
	}

	return &tx, nil
}

func (r *postgresTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, confirm *repository.ConfirmOptions) (*models.Transaction, error) {
	if !models.StatusPending.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: cannot assign %s", repository.ErrInvalidTransition, status)
	}

	// The status predicate makes the transition atomic: a terminal row never
	// matches, so two racing updates cannot both flip the same transaction.
	var (
		tx  models.Transaction
		err error
	)
	if confirm != nil {
		query := `
			UPDATE transactions
			SET status = $2, category = $3, merchant_label = $4, signature = $5,
				amount_lamports = COALESCE($6, amount_lamports), updated_at = now()
			WHERE id = $1 AND status = 'PENDING'
			RETURNING ` + txColumns
		err = r.db.GetContext(ctx, &tx, query, id, status, confirm.Category, confirm.MerchantLabel, confirm.Signature, confirm.ConfirmedAmount)
	} else {
		query := `
			UPDATE transactions
			SET status = $2, updated_at = now()
			WHERE id = $1 AND status = 'PENDING'
			RETURNING ` + txColumns
		err = r.db.GetContext(ctx, &tx, query, id, status)
	}

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, r.explainMissedTransition(ctx, id, status)
		}
		return nil, fmt.Errorf("update status: %w", err)
	}

	return &tx, nil
}

// explainMissedTransition distinguishes an absent row from a terminal one.
func (r *postgresTransactionRepo) explainMissedTransition(ctx context.Context, id uuid.UUID, wanted models.Status) error {
	var current models.Status
	err := r.db.GetContext(ctx, &current, `SELECT status FROM transactions WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", repository.ErrTransactionNotFound, id)
		}
		return fmt.Errorf("inspect transaction %s: %w", id, err)
	}
	return fmt.Errorf("%w: %s -> %s", repository.ErrInvalidTransition, current, wanted)
}

func (r *postgresTransactionRepo) Get(ctx context.Context, id uuid.UUID) (*models.Transaction, error) {
	var tx models.Transaction
	query := `SELECT ` + txColumns + ` FROM transactions WHERE id = $1`
	if err := r.db.GetContext(ctx, &tx, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", repository.ErrTransactionNotFound, id)
		}
		return nil, fmt.Errorf("get transaction: %w", err)
	}
	return &tx, nil
}

func (r *postgresTransactionRepo) List(ctx context.Context, filter repository.Filter) ([]models.Transaction, error) {
	var (
		clauses []string
		args    []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Status != nil {
		clauses = append(clauses, "status = "+arg(*filter.Status))
	}
	if filter.Category != nil {
		clauses = append(clauses, "category = "+arg(*filter.Category))
	}
	if filter.Merchant != "" {
		clauses = append(clauses, "(merchant_label = "+arg(filter.Merchant)+" OR recipient = "+arg(filter.Merchant)+")")
	}
	if filter.From != nil {
		clauses = append(clauses, "created_at >= "+arg(*filter.From))
	}
	if filter.To != nil {
		clauses = append(clauses, "created_at < "+arg(*filter.To))
	}

	query := `SELECT ` + txColumns + ` FROM transactions`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC"

	txs := []models.Transaction{}
	if err := r.db.SelectContext(ctx, &txs, query, args...); err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return txs, nil
}

func (r *postgresTransactionRepo) ListConfirmed(ctx context.Context, from, to time.Time) ([]models.Transaction, error) {
	status := models.StatusConfirmed
	return r.List(ctx, repository.Filter{Status: &status, From: &from, To: &to})
}

func (r *postgresTransactionRepo) Recategorize(ctx context.Context, id uuid.UUID, category models.Category, note string) (*models.Transaction, error) {
	var isCommitted bool
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin recategorize: %w", err)
	}

	defer func() {
		if err != nil && !isCommitted {
			if rbErr := tx.Rollback(); rbErr != nil {
				r.log.Error("Recategorize rollback failed",
					logger.ErrorField("error", rbErr))
				err = fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
			}
		}
	}()

	var current models.Transaction
	err = tx.GetContext(ctx, &current, `SELECT `+txColumns+` FROM transactions WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = fmt.Errorf("%w: %s", repository.ErrTransactionNotFound, id)
		}
		return nil, err
	}

	if current.Status != models.StatusConfirmed {
		err = fmt.Errorf("%w: %s", repository.ErrNotConfirmed, id)
		return nil, err
	}

	var updated models.Transaction
	err = tx.GetContext(ctx, &updated, `
		UPDATE transactions SET category = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+txColumns, id, category)
	if err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO category_audit (transaction_id, old_category, new_category, note)
		VALUES ($1, $2, $3, $4)`,
		id, current.Category, category, note)
	if err != nil {
		return nil, fmt.Errorf("record category audit: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit recategorize: %w", err)
	}
	isCommitted = true

	r.log.Info("Transaction recategorized",
		logger.StringField("transaction_id", id.String()),
		logger.StringField("old_category", string(current.Category)),
		logger.StringField("new_category", string(category)),
	)

	return &updated, nil
}

func derefRef(ref *string) string {
	if ref == nil {
		return ""
	}
	return *ref
}
