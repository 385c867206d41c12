package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strings"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/brojonat/soltransfer/service/metrics"
)

// DerivedAccount is the result of resolving an associated token account.
// It is computed fresh on every call; nothing is cached across calls.
type DerivedAccount struct {
	Address    solana.PublicKey
	Exists     bool
	RawBalance *big.Int // minor units
}

// Provisioner resolves associated token accounts, creating them on the
// ledger when they do not exist yet.
type Provisioner struct {
	rpc       RPCClient
	submitter *Submitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

// NewProvisioner creates a Provisioner. The submitter is used for the
// creation write; give it a tighter retry budget than transfer submission
// if creation latency matters.
func NewProvisioner(rpcClient RPCClient, submitter *Submitter, m *metrics.Metrics, logger *slog.Logger) *Provisioner {
	return &Provisioner{
		rpc:       rpcClient,
		submitter: submitter,
		logger:    logger,
		metrics:   m,
	}
}

// GetOrCreate derives owner's associated account for mint under the
// profile's token program and returns its current balance if it exists.
//
// If the account is absent, an idempotent creation paid for by payer is
// submitted. Losing a creation race to a concurrent caller is fine: the
// ledger reports the address as already in use and that outcome is
// success, not error. Confirmation of the creation is best-effort: a
// confirmation timeout is logged and the derived address is returned
// anyway, since the next balance-affecting operation re-resolves
// existence. Freshly created accounts start at zero, so no balance
// re-query is performed after creation.
func (p *Provisioner) GetOrCreate(
	ctx context.Context,
	mint, owner solana.PublicKey,
	profile Profile,
	payer *Signer,
) (*DerivedAccount, error) {
	addr, err := AssociatedTokenAddress(owner, profile.TokenProgramID, mint)
	if err != nil {
		return nil, err
	}

	info, err := p.rpc.GetAccountInfo(ctx, addr)
	if err != nil && !errors.Is(err, rpc.ErrNotFound) {
		return nil, &NetworkError{Op: "getAccountInfo", Err: err}
	}

	if err == nil && info != nil && info.Value != nil {
		bal, err := p.rpc.GetTokenAccountBalance(ctx, addr, rpc.CommitmentConfirmed)
		if err != nil {
			return nil, &NetworkError{Op: "getTokenAccountBalance", Err: err}
		}
		raw, ok := new(big.Int).SetString(bal.Value.Amount, 10)
		if !ok {
			return nil, fmt.Errorf("malformed token balance %q for account %s", bal.Value.Amount, addr)
		}
		p.metrics.RecordProvisioning("existing")
		return &DerivedAccount{Address: addr, Exists: true, RawBalance: raw}, nil
	}

	p.logger.InfoContext(ctx, "associated token account missing, creating",
		"address", addr.String(),
		"owner", owner.String(),
		"mint", mint.String(),
	)

	bh, err := p.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, &NetworkError{Op: "getLatestBlockhash", Err: err}
	}

	tx, err := BuildCreateAssociatedAccount(payer, owner, mint, profile, bh.Value.Blockhash)
	if err != nil {
		return nil, err
	}

	if _, err := p.submitter.SendAndConfirm(ctx, tx); err != nil {
		switch {
		case isAlreadyInUse(err):
			// Another caller created the account between our lookup and the
			// send. The account exists, which is all we wanted.
			p.logger.DebugContext(ctx, "associated token account already created by another caller",
				"address", addr.String(),
			)
			p.metrics.RecordProvisioning("already_existed")
		case isConfirmationFailure(err):
			p.logger.WarnContext(ctx, "account creation sent but not confirmed, continuing",
				"address", addr.String(),
				"error", err,
			)
			p.metrics.RecordProvisioning("created")
		default:
			p.metrics.RecordProvisioning("error")
			return nil, &NetworkError{Op: "createAssociatedTokenAccount", Err: err}
		}
	} else {
		p.metrics.RecordProvisioning("created")
	}

	return &DerivedAccount{Address: addr, Exists: false, RawBalance: big.NewInt(0)}, nil
}

// isAlreadyInUse reports whether a creation failure means the account was
// already created. The RPC surfaces this as a program error string, so
// string matching is the only classification available.
func isAlreadyInUse(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already in use") || strings.Contains(msg, "already exists")
}

// isConfirmationFailure reports whether the creation was sent but never
// observed as finalized. The instruction is idempotent, so giving up on
// the confirmation is safe.
func isConfirmationFailure(err error) bool {
	var timeout *ConfirmationTimeoutError
	return errors.As(err, &timeout)
}
