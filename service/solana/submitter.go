package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/brojonat/soltransfer/service/metrics"
)

// Clock abstracts time for the submit/confirm loop so tests can drive it
// without wall-clock delays.
type Clock interface {
	Now() time.Time
	Sleep(d time.Duration)
}

type realClock struct{}

func (realClock) Now() time.Time        { return time.Now() }
func (realClock) Sleep(d time.Duration) { time.Sleep(d) }

// SubmitConfig bounds one submit/confirm cycle.
type SubmitConfig struct {
	MaxRetries     int           // total attempts before giving up
	RetryBackoff   time.Duration // pause between failed attempts
	PollInterval   time.Duration // signature status poll cadence
	ConfirmTimeout time.Duration // per-attempt confirmation window
}

// DefaultSubmitConfig returns the production defaults: 10 attempts, 1s
// between attempts, 500ms status polls inside an 8s confirmation window.
func DefaultSubmitConfig() SubmitConfig {
	return SubmitConfig{
		MaxRetries:     10,
		RetryBackoff:   time.Second,
		PollInterval:   500 * time.Millisecond,
		ConfirmTimeout: 8 * time.Second,
	}
}

// Submitter sends a built transaction and drives it to finality.
//
// Each attempt walks send -> await finality. A failed attempt (send error
// or the confirmation window elapsing) backs off and resubmits until
// MaxRetries attempts have been spent. An attempt that times out may still
// finalize later on chain; that race is accepted, and resubmitting the
// same signed transaction is a no-op on the ledger once it has landed.
// The terminal error carries only the last attempt's failure.
type Submitter struct {
	rpc      RPCClient
	cfg      SubmitConfig
	clock    Clock
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string
}

// NewSubmitter creates a Submitter. The endpoint parameter is used for
// metrics labeling (e.g. "mainnet", "devnet", or the RPC hostname).
// If m is nil, no metrics will be recorded.
func NewSubmitter(rpcClient RPCClient, cfg SubmitConfig, endpoint string, m *metrics.Metrics, logger *slog.Logger) *Submitter {
	return &Submitter{
		rpc:      rpcClient,
		cfg:      cfg,
		clock:    realClock{},
		logger:   logger,
		metrics:  m,
		endpoint: endpoint,
	}
}

// WithClock replaces the wall clock. Tests use this to simulate time.
func (s *Submitter) WithClock(c Clock) *Submitter {
	s.clock = c
	return s
}

// SendAndConfirm submits tx and blocks until it is observed at finalized
// commitment, or until every attempt has failed.
func (s *Submitter) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	start := s.clock.Now()
	var lastErr error

	for attempt := 1; attempt <= s.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return solana.Signature{}, err
		}

		sendStart := s.clock.Now()
		sig, err := s.rpc.SendTransaction(ctx, tx)
		s.metrics.RecordRPCCall("SendTransaction", rpcStatus(err), s.endpoint, s.clock.Now().Sub(sendStart).Seconds())

		if err != nil {
			lastErr = &NetworkError{Op: "sendTransaction", Err: err}
			s.logger.WarnContext(ctx, "transaction send failed",
				"attempt", attempt,
				"error", err,
			)
			s.metrics.RecordSubmitAttempt("send_error")
		} else {
			s.logger.DebugContext(ctx, "transaction sent",
				"attempt", attempt,
				"signature", sig.String(),
			)
			err = s.awaitFinalized(ctx, sig)
			if err == nil {
				s.metrics.RecordSubmitAttempt("finalized")
				s.metrics.RecordConfirmation("finalized", s.clock.Now().Sub(start).Seconds())
				s.logger.InfoContext(ctx, "transaction finalized",
					"attempt", attempt,
					"signature", sig.String(),
				)
				return sig, nil
			}
			lastErr = err
			var rejected *TransactionRejectedError
			if errors.As(err, &rejected) {
				s.logger.WarnContext(ctx, "transaction rejected by ledger",
					"attempt", attempt,
					"signature", sig.String(),
					"cause", fmt.Sprintf("%v", rejected.Cause),
				)
				s.metrics.RecordSubmitAttempt("rejected")
			} else {
				s.logger.WarnContext(ctx, "transaction not finalized within window",
					"attempt", attempt,
					"signature", sig.String(),
					"error", err,
				)
				s.metrics.RecordSubmitAttempt("confirm_timeout")
			}
		}

		if attempt < s.cfg.MaxRetries {
			s.clock.Sleep(s.cfg.RetryBackoff)
		}
	}

	s.metrics.RecordConfirmation("exhausted", s.clock.Now().Sub(start).Seconds())
	return solana.Signature{}, &RetryExhaustedError{Attempts: s.cfg.MaxRetries, LastErr: lastErr}
}

// awaitFinalized polls signature status at the configured cadence until
// finality is reported or the confirmation window closes. A reported
// execution error fails the attempt immediately. A failed status query is
// not fatal to the attempt; polling continues until the window closes.
func (s *Submitter) awaitFinalized(ctx context.Context, sig solana.Signature) error {
	deadline := s.clock.Now().Add(s.cfg.ConfirmTimeout)

	for s.clock.Now().Before(deadline) {
		if err := ctx.Err(); err != nil {
			return err
		}

		out, err := s.rpc.GetSignatureStatuses(ctx, false, sig)
		if err != nil {
			s.logger.DebugContext(ctx, "signature status query failed",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(out.Value) > 0 && out.Value[0] != nil {
			status := out.Value[0]
			if status.Err != nil {
				return &TransactionRejectedError{Signature: sig, Cause: status.Err}
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return nil
			}
		}

		s.clock.Sleep(s.cfg.PollInterval)
	}

	return &ConfirmationTimeoutError{Signature: sig, Window: s.cfg.ConfirmTimeout}
}

func rpcStatus(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
