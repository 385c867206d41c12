package transfer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/shopspring/decimal"

	"github.com/brojonat/soltransfer/service/db"
	"github.com/brojonat/soltransfer/service/metrics"
	"github.com/brojonat/soltransfer/service/nats"
	"github.com/brojonat/soltransfer/service/solana"
)

// SecretStore supplies the service wallet's secret key material.
// Implementations decide where the material lives (environment, vault);
// this service only ever sees the base58-encoded bytes, decodes them into
// a Signer for the duration of one operation, and discards them.
type SecretStore interface {
	PrivateKeyMaterial(ctx context.Context, keyName string) (string, error)
}

// HistoryStore records finalized transfers for audit. The db package's
// Store satisfies it; recording is best-effort and a nil store disables
// it.
type HistoryStore interface {
	RecordTransfer(ctx context.Context, params db.RecordTransferParams) (*db.Transfer, error)
}

// TransferResult is returned once a transfer has been observed at
// finalized commitment.
type TransferResult struct {
	Signature string `json:"tx"`
}

// Params collects the dependencies of a Service.
type Params struct {
	RPC         solana.RPCClient
	Submitter   *solana.Submitter
	Provisioner *solana.Provisioner
	Secrets     SecretStore

	// WalletKeyName is the SecretStore key for the service wallet.
	WalletKeyName string

	// Mint is the SPL token this service moves.
	Mint solanago.PublicKey

	// Profile binds the token program ID and decimals for the active
	// network; selected once at wiring time.
	Profile solana.Profile

	Network solana.Network

	// Optional: transfer history and settled-transfer events.
	Store     HistoryStore
	Publisher nats.Publisher

	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

// Service moves SOL and SPL token balances out of the service wallet.
// It holds no mutable state between calls; concurrent calls are safe and
// coordinate only through the ledger's own idempotency guarantees.
type Service struct {
	rpc           solana.RPCClient
	submitter     *solana.Submitter
	provisioner   *solana.Provisioner
	secrets       SecretStore
	walletKeyName string
	mint          solanago.PublicKey
	profile       solana.Profile
	network       solana.Network
	store         HistoryStore
	publisher     nats.Publisher
	metrics       *metrics.Metrics
	logger        *slog.Logger
}

// NewService creates a Service from its dependencies.
func NewService(p Params) *Service {
	return &Service{
		rpc:           p.RPC,
		submitter:     p.Submitter,
		provisioner:   p.Provisioner,
		secrets:       p.Secrets,
		walletKeyName: p.WalletKeyName,
		mint:          p.Mint,
		profile:       p.Profile,
		network:       p.Network,
		store:         p.Store,
		publisher:     p.Publisher,
		metrics:       p.Metrics,
		logger:        p.Logger,
	}
}

// GetSolanaBalance returns the SOL balance of address in human units.
func (s *Service) GetSolanaBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	pk, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, &solana.ValidationError{Reason: fmt.Sprintf("invalid address %q: %v", address, err)}
	}

	out, err := s.rpc.GetBalance(ctx, pk, rpc.CommitmentFinalized)
	if err != nil {
		return decimal.Zero, &solana.NetworkError{Op: "getBalance", Err: err}
	}

	return solana.LamportsToHuman(out.Value, solana.NativeDecimals), nil
}

// GetSplBalance returns the SPL token balance of address in human units.
// The owner's associated token account is provisioned if it does not
// exist yet, paid for by the service wallet; a freshly provisioned
// account reports zero.
func (s *Service) GetSplBalance(ctx context.Context, address string) (decimal.Decimal, error) {
	owner, err := solanago.PublicKeyFromBase58(address)
	if err != nil {
		return decimal.Zero, &solana.ValidationError{Reason: fmt.Sprintf("invalid address %q: %v", address, err)}
	}

	payer, err := s.loadSigner(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	account, err := s.provisioner.GetOrCreate(ctx, s.mint, owner, s.profile, payer)
	if err != nil {
		return decimal.Zero, err
	}

	return solana.ToHumanUnits(account.RawBalance, s.profile.Decimals), nil
}

// TransferSolana sends amount SOL from the service wallet to recipient
// and blocks until the transaction is finalized.
func (s *Service) TransferSolana(ctx context.Context, recipient string, amount decimal.Decimal) (*TransferResult, error) {
	if amount.IsNegative() {
		return nil, &solana.ValidationError{Reason: "amount must not be negative"}
	}
	recipientPK, err := solanago.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, &solana.ValidationError{Reason: fmt.Sprintf("invalid recipient %q: %v", recipient, err)}
	}

	sender, err := s.loadSigner(ctx)
	if err != nil {
		return nil, err
	}

	balance, err := s.GetSolanaBalance(ctx, sender.PublicKey().String())
	if err != nil {
		return nil, err
	}
	if balance.LessThan(amount) {
		s.metrics.RecordTransfer("native", "insufficient_balance")
		return nil, &solana.InsufficientBalanceError{Balance: balance, Requested: amount}
	}

	s.logger.InfoContext(ctx, "transferring SOL",
		"recipient", recipient,
		"amount", amount.String(),
		"balance", balance.String(),
	)

	bh, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, &solana.NetworkError{Op: "getLatestBlockhash", Err: err}
	}

	tx, err := solana.BuildNativeTransfer(sender, recipientPK, amount, bh.Value.Blockhash)
	if err != nil {
		return nil, err
	}

	sig, err := s.submitter.SendAndConfirm(ctx, tx)
	if err != nil {
		s.metrics.RecordTransfer("native", "failed")
		return nil, err
	}

	rawAmount, err := solana.ToMinorUnits(amount, solana.NativeDecimals)
	if err != nil {
		return nil, err
	}
	s.recordOutcome(ctx, sig.String(), "native", recipient, nil, rawAmount, amount)
	s.metrics.RecordTransfer("native", "finalized")

	return &TransferResult{Signature: sig.String()}, nil
}

// TransferSpl sends amount of the configured SPL token from the service
// wallet to recipient and blocks until the transaction is finalized. Both
// the sender's and the recipient's associated token accounts are
// provisioned on demand.
func (s *Service) TransferSpl(ctx context.Context, recipient string, amount decimal.Decimal) (*TransferResult, error) {
	if amount.IsNegative() {
		return nil, &solana.ValidationError{Reason: "amount must not be negative"}
	}
	recipientPK, err := solanago.PublicKeyFromBase58(recipient)
	if err != nil {
		return nil, &solana.ValidationError{Reason: fmt.Sprintf("invalid recipient %q: %v", recipient, err)}
	}

	sender, err := s.loadSigner(ctx)
	if err != nil {
		return nil, err
	}

	senderAccount, err := s.provisioner.GetOrCreate(ctx, s.mint, sender.PublicKey(), s.profile, sender)
	if err != nil {
		return nil, err
	}

	balance := solana.ToHumanUnits(senderAccount.RawBalance, s.profile.Decimals)
	if balance.LessThan(amount) {
		s.metrics.RecordTransfer("token", "insufficient_balance")
		return nil, &solana.InsufficientBalanceError{Balance: balance, Requested: amount}
	}

	recipientAccount, err := s.provisioner.GetOrCreate(ctx, s.mint, recipientPK, s.profile, sender)
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "transferring SPL token",
		"recipient", recipient,
		"amount", amount.String(),
		"balance", balance.String(),
		"source", senderAccount.Address.String(),
		"destination", recipientAccount.Address.String(),
	)

	bh, err := s.rpc.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return nil, &solana.NetworkError{Op: "getLatestBlockhash", Err: err}
	}

	tx, err := solana.BuildTokenTransfer(
		sender,
		senderAccount.Address,
		recipientAccount.Address,
		s.mint,
		amount,
		s.profile,
		bh.Value.Blockhash,
	)
	if err != nil {
		return nil, err
	}

	sig, err := s.submitter.SendAndConfirm(ctx, tx)
	if err != nil {
		s.metrics.RecordTransfer("token", "failed")
		return nil, err
	}

	rawAmount, err := solana.ToMinorUnits(amount, s.profile.Decimals)
	if err != nil {
		return nil, err
	}
	mint := s.mint.String()
	s.recordOutcome(ctx, sig.String(), "token", recipient, &mint, rawAmount, amount)
	s.metrics.RecordTransfer("token", "finalized")

	return &TransferResult{Signature: sig.String()}, nil
}

// loadSigner resolves the service wallet keypair for one operation.
func (s *Service) loadSigner(ctx context.Context) (*solana.Signer, error) {
	material, err := s.secrets.PrivateKeyMaterial(ctx, s.walletKeyName)
	if err != nil {
		return nil, fmt.Errorf("failed to load wallet key: %w", err)
	}
	return solana.NewSigner(material)
}

// recordOutcome persists and publishes a finalized transfer. Both sinks
// are optional and best-effort: a history or event failure never fails a
// transfer that already settled on chain.
func (s *Service) recordOutcome(
	ctx context.Context,
	signature, kind, recipient string,
	mint *string,
	rawAmount uint64,
	amount decimal.Decimal,
) {
	if s.store != nil {
		_, err := s.store.RecordTransfer(ctx, db.RecordTransferParams{
			Signature: signature,
			Network:   string(s.network),
			Kind:      kind,
			Recipient: recipient,
			Mint:      mint,
			RawAmount: rawAmount,
			Status:    "finalized",
		})
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to record transfer history",
				"signature", signature,
				"error", err,
			)
			s.metrics.RecordDBOperation("record_transfer", "error")
		} else {
			s.metrics.RecordDBOperation("record_transfer", "success")
		}
	}

	if s.publisher != nil {
		event := &nats.TransferEvent{
			Signature:   signature,
			Network:     string(s.network),
			Kind:        kind,
			Recipient:   recipient,
			Mint:        mint,
			RawAmount:   rawAmount,
			Amount:      amount.String(),
			SettledAt:   time.Now().UTC(),
			PublishedAt: time.Now().UTC(),
		}
		if err := s.publisher.PublishTransfer(ctx, event); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish transfer event",
				"signature", signature,
				"error", err,
			)
			s.metrics.RecordNATSPublish("transfers."+string(s.network), "error")
		} else {
			s.metrics.RecordNATSPublish("transfers."+string(s.network), "success")
		}
	}
}
