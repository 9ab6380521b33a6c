package chain

import (
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrUnavailable marks transport-level failures talking to the network.
	// Submission and polling retry these with bounded backoff; read paths
	// surface them immediately.
	ErrUnavailable = errors.New("payment network unavailable")

	// ErrInsufficientFunds means the payer cannot cover the transfer; the
	// caller may request test funds once and retry.
	ErrInsufficientFunds = errors.New("insufficient funds for transfer")
)

// TxStatus is the network-side view of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxConfirmed TxStatus = "CONFIRMED"
	TxFailed    TxStatus = "FAILED"
)

// PaymentRequest is what the ledger hands to the network: a transfer from the
// configured payer to the recipient, with the optional caller reference kept
// for correlation.
type PaymentRequest struct {
	Recipient solana.PublicKey
	Lamports  uint64
	Reference *string
	Label     string
}

// Client is the blockchain capability boundary. The ledger core only ever
// talks to this interface; tests use scripted implementations.
type Client interface {
	Submit(ctx context.Context, req PaymentRequest) (solana.Signature, error)
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
	RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) error
	PollStatus(ctx context.Context, sig solana.Signature) (TxStatus, error)
}
