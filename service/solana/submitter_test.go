package solana

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock advances only when the code under test sleeps, so retry and
// confirmation windows elapse without wall-clock delay.
type fakeClock struct {
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Sleep(d time.Duration) {
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) sleepsOf(d time.Duration) int {
	n := 0
	for _, s := range c.sleeps {
		if s == d {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSubmitter(mock *mockRPCClient, cfg SubmitConfig, clock Clock) *Submitter {
	return NewSubmitter(mock, cfg, "testnet", nil, testLogger()).WithClock(clock)
}

func testTransaction(t *testing.T) *solana.Transaction {
	t.Helper()
	sender := newTestSigner(t)
	tx, err := BuildNativeTransfer(sender, solana.NewWallet().PublicKey(), decimalFromString(t, "0.1"), solana.Hash{})
	require.NoError(t, err)
	return tx
}

func TestSendAndConfirm_FinalizedFirstAttempt(t *testing.T) {
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{sendSig: sig, statusFinalized: true}
	clock := newFakeClock()
	sub := newTestSubmitter(mock, DefaultSubmitConfig(), clock)

	got, err := sub.SendAndConfirm(context.Background(), testTransaction(t))

	require.NoError(t, err)
	assert.Equal(t, sig, got)
	assert.Equal(t, 1, mock.sendCalls)
}

// A send function that always fails makes exactly MaxRetries attempts,
// backs off between them, and terminates with RetryExhaustedError.
func TestSendAndConfirm_SendAlwaysFails(t *testing.T) {
	mock := &mockRPCClient{sendErr: errors.New("connection refused")}
	clock := newFakeClock()
	cfg := DefaultSubmitConfig()
	cfg.MaxRetries = 3
	sub := newTestSubmitter(mock, cfg, clock)

	_, err := sub.SendAndConfirm(context.Background(), testTransaction(t))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, exhausted.Attempts)
	assert.Equal(t, 3, mock.sendCalls)

	var netErr *NetworkError
	assert.ErrorAs(t, err, &netErr)

	// One backoff between each pair of attempts, none after the last.
	assert.Equal(t, 2, clock.sleepsOf(cfg.RetryBackoff))
}

// Confirmation never reaching finality exhausts every attempt's window
// and ends in RetryExhaustedError wrapping the timeout.
func TestSendAndConfirm_NeverFinalized(t *testing.T) {
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{sendSig: sig, statusFinalized: false}
	clock := newFakeClock()
	cfg := DefaultSubmitConfig()
	sub := newTestSubmitter(mock, cfg, clock)

	start := clock.Now()
	_, err := sub.SendAndConfirm(context.Background(), testTransaction(t))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, cfg.MaxRetries, mock.sendCalls)

	var timeout *ConfirmationTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, sig, timeout.Signature)

	// Every attempt burned its full confirmation window, plus a backoff
	// between attempts.
	wantElapsed := time.Duration(cfg.MaxRetries)*cfg.ConfirmTimeout +
		time.Duration(cfg.MaxRetries-1)*cfg.RetryBackoff
	assert.Equal(t, wantElapsed, clock.Now().Sub(start))
}

// A transaction the ledger executed and rejected fails each attempt as
// soon as the status reports the execution error, without polling out
// the confirmation window.
func TestSendAndConfirm_RejectedFailsAttemptFast(t *testing.T) {
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{
		sendSig:       sig,
		statusExecErr: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}},
	}
	clock := newFakeClock()
	cfg := DefaultSubmitConfig()
	cfg.MaxRetries = 3
	sub := newTestSubmitter(mock, cfg, clock)

	start := clock.Now()
	_, err := sub.SendAndConfirm(context.Background(), testTransaction(t))

	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 3, mock.sendCalls)

	var rejected *TransactionRejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, sig, rejected.Signature)
	assert.NotNil(t, rejected.Cause)

	// One status poll per attempt, and no confirmation window burned:
	// the only elapsed time is the backoff between attempts.
	assert.Equal(t, 3, mock.statusCalls)
	assert.Equal(t, 0, clock.sleepsOf(cfg.PollInterval))
	wantElapsed := time.Duration(cfg.MaxRetries-1) * cfg.RetryBackoff
	assert.Equal(t, wantElapsed, clock.Now().Sub(start))
}

func TestSendAndConfirm_RecoversOnRetry(t *testing.T) {
	sig := solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")
	mock := &mockRPCClient{sendSig: sig, statusErr: errors.New("node unavailable")}
	clock := newFakeClock()
	cfg := DefaultSubmitConfig()
	cfg.MaxRetries = 2
	sub := newTestSubmitter(mock, cfg, clock)

	// Status queries fail for the whole cycle: every window closes and the
	// cycle exhausts.
	_, err := sub.SendAndConfirm(context.Background(), testTransaction(t))
	var exhausted *RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)

	// Fresh cycle where the node has recovered.
	mock.statusErr = nil
	mock.statusFinalized = true
	got, err := sub.SendAndConfirm(context.Background(), testTransaction(t))
	require.NoError(t, err)
	assert.Equal(t, sig, got)
}

func TestSendAndConfirm_ContextCancelled(t *testing.T) {
	mock := &mockRPCClient{sendErr: errors.New("connection refused")}
	clock := newFakeClock()
	sub := newTestSubmitter(mock, DefaultSubmitConfig(), clock)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sub.SendAndConfirm(ctx, testTransaction(t))
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, mock.sendCalls)
}
