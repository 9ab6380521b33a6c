package models

import (
	"time"

	"github.com/google/uuid"
)

// Status is the transaction lifecycle state. Transitions only move forward:
// PENDING may become CONFIRMED or FAILED, both of which are terminal.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusFailed    Status = "FAILED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusFailed:
		return true
	}
	return false
}

func (s Status) Terminal() bool {
	return s == StatusConfirmed || s == StatusFailed
}

func (s Status) CanTransitionTo(next Status) bool {
	return s == StatusPending && next.Terminal()
}

type Transaction struct {
	ID             uuid.UUID `json:"id" db:"id"`
	Timestamp      time.Time `json:"timestamp" db:"created_at"`
	Sender         string    `json:"sender" db:"sender"`
	Recipient      string    `json:"recipient" db:"recipient"`
	AmountLamports int64     `json:"amount_lamports" db:"amount_lamports"`
	Purpose        string    `json:"purpose" db:"purpose"`
	Reference      *string   `json:"reference,omitempty" db:"reference"`
	Status         Status    `json:"status" db:"status"`
	Category       Category  `json:"category" db:"category"`
	MerchantLabel  string    `json:"merchant_label" db:"merchant_label"`
	Signature      string    `json:"signature,omitempty" db:"signature"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TransactionDraft is what callers hand to the store. The store assigns the
// id and the PENDING status.
type TransactionDraft struct {
	Sender         string
	Recipient      string
	AmountLamports int64
	Purpose        string
	Reference      *string
}
