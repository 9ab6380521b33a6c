package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/testtube/campus-ledger/internal/core/logger"
)

// SolanaClient talks to a Solana RPC node (devnet in the campus deployment)
// and signs transfers with the configured payer key.
type SolanaClient struct {
	rpc   *rpc.Client
	payer solana.PrivateKey
	log   logger.Logger
}

func NewSolanaClient(endpoint string, payer solana.PrivateKey, log logger.Logger) *SolanaClient {
	return &SolanaClient{
		rpc:   rpc.New(endpoint),
		payer: payer,
		log:   log,
	}
}

func (c *SolanaClient) Submit(ctx context.Context, req PaymentRequest) (solana.Signature, error) {
	recent, err := c.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("%w: get blockhash: %v", ErrUnavailable, err)
	}

	ix := system.NewTransferInstruction(
		req.Lamports,
		c.payer.PublicKey(),
		req.Recipient,
	).Build()

	tx, err := solana.NewTransaction(
		[]solana.Instruction{ix},
		recent.Value.Blockhash,
		solana.TransactionPayer(c.payer.PublicKey()),
	)
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transfer: %w", err)
	}

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(c.payer.PublicKey()) {
			return &c.payer
		}
		return nil
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sign transfer: %w", err)
	}

	sig, err := c.rpc.SendTransaction(ctx, tx)
	if err != nil {
		if isInsufficientFunds(err) {
			return solana.Signature{}, fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
		}
		return solana.Signature{}, fmt.Errorf("%w: send: %v", ErrUnavailable, err)
	}

	c.log.Info("Transfer submitted",
		logger.StringField("signature", sig.String()),
		logger.StringField("recipient", req.Recipient.String()),
		logger.Int64Field("lamports", int64(req.Lamports)),
	)

	return sig, nil
}

func (c *SolanaClient) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	out, err := c.rpc.GetBalance(ctx, addr, rpc.CommitmentFinalized)
	if err != nil {
		return 0, fmt.Errorf("%w: get balance: %v", ErrUnavailable, err)
	}
	return out.Value, nil
}

func (c *SolanaClient) RequestAirdrop(ctx context.Context, addr solana.PublicKey, lamports uint64) error {
	sig, err := c.rpc.RequestAirdrop(ctx, addr, lamports, rpc.CommitmentFinalized)
	if err != nil {
		return fmt.Errorf("%w: request airdrop: %v", ErrUnavailable, err)
	}
	c.log.Info("Airdrop requested",
		logger.StringField("address", addr.String()),
		logger.StringField("signature", sig.String()),
	)
	return nil
}

func (c *SolanaClient) PollStatus(ctx context.Context, sig solana.Signature) (TxStatus, error) {
	out, err := c.rpc.GetSignatureStatuses(ctx, true, sig)
	if err != nil {
		return TxPending, fmt.Errorf("%w: signature status: %v", ErrUnavailable, err)
	}
	if len(out.Value) == 0 || out.Value[0] == nil {
		return TxPending, nil
	}

	st := out.Value[0]
	if st.Err != nil {
		return TxFailed, nil
	}
	switch st.ConfirmationStatus {
	case rpc.ConfirmationStatusConfirmed, rpc.ConfirmationStatusFinalized:
		return TxConfirmed, nil
	default:
		return TxPending, nil
	}
}

// The RPC surface reports lamport shortfalls as plain error strings, so this
// is a string match by necessity.
func isInsufficientFunds(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "insufficient lamports") || strings.Contains(msg, "insufficient funds")
}
