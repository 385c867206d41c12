package transfer

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/mr-tron/base58"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brojonat/soltransfer/service/db"
	"github.com/brojonat/soltransfer/service/nats"
	"github.com/brojonat/soltransfer/service/solana"
)

// mockRPCClient implements solana.RPCClient for testing. Behavior-focused:
// we set what it should return and count the calls that matter.
type mockRPCClient struct {
	balance      uint64
	balanceCalls int

	accountInfo    *rpc.GetAccountInfoResult
	accountInfoErr error

	tokenBalance string

	sendSig   solanago.Signature
	sendErr   error
	sendCalls int

	totalCalls int
}

func (m *mockRPCClient) GetBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetBalanceResult, error) {
	m.totalCalls++
	m.balanceCalls++
	return &rpc.GetBalanceResult{Value: m.balance}, nil
}

func (m *mockRPCClient) GetAccountInfo(
	ctx context.Context,
	account solanago.PublicKey,
) (*rpc.GetAccountInfoResult, error) {
	m.totalCalls++
	if m.accountInfoErr != nil {
		return nil, m.accountInfoErr
	}
	return m.accountInfo, nil
}

func (m *mockRPCClient) GetTokenAccountBalance(
	ctx context.Context,
	account solanago.PublicKey,
	commitment rpc.CommitmentType,
) (*rpc.GetTokenAccountBalanceResult, error) {
	m.totalCalls++
	return &rpc.GetTokenAccountBalanceResult{
		Value: &rpc.UiTokenAmount{Amount: m.tokenBalance},
	}, nil
}

func (m *mockRPCClient) GetLatestBlockhash(
	ctx context.Context,
	commitment rpc.CommitmentType,
) (*rpc.GetLatestBlockhashResult, error) {
	m.totalCalls++
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{Blockhash: solanago.Hash{}},
	}, nil
}

func (m *mockRPCClient) SendTransaction(
	ctx context.Context,
	tx *solanago.Transaction,
) (solanago.Signature, error) {
	m.totalCalls++
	m.sendCalls++
	if m.sendErr != nil {
		return solanago.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(
	ctx context.Context,
	searchTransactionHistory bool,
	signatures ...solanago.Signature,
) (*rpc.GetSignatureStatusesResult, error) {
	m.totalCalls++
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{
			{ConfirmationStatus: rpc.ConfirmationStatusFinalized},
		},
	}, nil
}

// fakeSecrets returns fixed key material for any key name.
type fakeSecrets struct {
	material string
}

func (f fakeSecrets) PrivateKeyMaterial(ctx context.Context, keyName string) (string, error) {
	return f.material, nil
}

// fakeHistory captures recorded transfers in memory.
type fakeHistory struct {
	recorded []db.RecordTransferParams
}

func (f *fakeHistory) RecordTransfer(ctx context.Context, params db.RecordTransferParams) (*db.Transfer, error) {
	f.recorded = append(f.recorded, params)
	return &db.Transfer{}, nil
}

var testSig = solanago.SignatureFromBytes(bytes.Repeat([]byte{7}, 64))

type testFixture struct {
	svc       *Service
	mock      *mockRPCClient
	wallet    *solanago.Wallet
	publisher *nats.MockPublisher
	history   *fakeHistory
}

func newTestService(t *testing.T, mock *mockRPCClient) *testFixture {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	wallet := solanago.NewWallet()

	cfg := solana.DefaultSubmitConfig()
	cfg.MaxRetries = 1
	submitter := solana.NewSubmitter(mock, cfg, "testnet", nil, logger)
	provisioner := solana.NewProvisioner(mock, submitter, nil, logger)

	publisher := nats.NewMockPublisher()
	history := &fakeHistory{}

	svc := NewService(Params{
		RPC:           mock,
		Submitter:     submitter,
		Provisioner:   provisioner,
		Secrets:       fakeSecrets{material: base58.Encode(wallet.PrivateKey)},
		WalletKeyName: "WALLET_SECRET_KEY",
		Mint:          solanago.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"),
		Profile:       solana.Profile{TokenProgramID: solanago.Token2022ProgramID, Decimals: 9},
		Network:       solana.NetworkDevnet,
		Store:         history,
		Publisher:     publisher,
		Logger:        logger,
	})

	return &testFixture{svc: svc, mock: mock, wallet: wallet, publisher: publisher, history: history}
}

func TestGetSolanaBalance(t *testing.T) {
	f := newTestService(t, &mockRPCClient{balance: 1_500_000_000})

	got, err := f.svc.GetSolanaBalance(context.Background(), f.wallet.PublicKey().String())
	require.NoError(t, err)

	want, _ := decimal.NewFromString("1.5")
	assert.True(t, got.Equal(want), "got %s", got)
}

func TestGetSolanaBalance_InvalidAddress(t *testing.T) {
	f := newTestService(t, &mockRPCClient{})

	_, err := f.svc.GetSolanaBalance(context.Background(), "not-an-address")

	var verr *solana.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, f.mock.totalCalls)
}

func TestGetSplBalance(t *testing.T) {
	f := newTestService(t, &mockRPCClient{
		accountInfo:  &rpc.GetAccountInfoResult{Value: &rpc.Account{}},
		tokenBalance: "2500000000",
	})

	got, err := f.svc.GetSplBalance(context.Background(), f.wallet.PublicKey().String())
	require.NoError(t, err)

	want, _ := decimal.NewFromString("2.5")
	assert.True(t, got.Equal(want), "got %s", got)
}

func TestTransferSolana_NegativeAmount(t *testing.T) {
	f := newTestService(t, &mockRPCClient{})

	_, err := f.svc.TransferSolana(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(-1))

	var verr *solana.ValidationError
	require.ErrorAs(t, err, &verr)
	// Validation failures never touch the network.
	assert.Equal(t, 0, f.mock.totalCalls)
}

func TestTransferSolana_InsufficientBalance(t *testing.T) {
	f := newTestService(t, &mockRPCClient{balance: 1_000_000_000})

	_, err := f.svc.TransferSolana(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(2))

	var balErr *solana.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.True(t, balErr.Balance.Equal(decimal.NewFromInt(1)))
	assert.True(t, balErr.Requested.Equal(decimal.NewFromInt(2)))
	// The failure happens before any transaction is built or sent.
	assert.Equal(t, 0, f.mock.sendCalls)
}

// A zero-value transfer with a zero balance is allowed: 0 passes the
// non-negativity check and 0 >= 0 passes the balance check.
func TestTransferSolana_ZeroAmountZeroBalance(t *testing.T) {
	f := newTestService(t, &mockRPCClient{balance: 0, sendSig: testSig})

	result, err := f.svc.TransferSolana(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.Zero)
	require.NoError(t, err)

	assert.Equal(t, testSig.String(), result.Signature)
	assert.Equal(t, 1, f.mock.sendCalls)
}

func TestTransferSolana_PublishesSettledEvent(t *testing.T) {
	f := newTestService(t, &mockRPCClient{balance: 5_000_000_000, sendSig: testSig})
	recipient := solanago.NewWallet().PublicKey().String()

	result, err := f.svc.TransferSolana(context.Background(), recipient, decimal.NewFromInt(2))
	require.NoError(t, err)

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, result.Signature, events[0].Signature)
	assert.Equal(t, "native", events[0].Kind)
	assert.Equal(t, recipient, events[0].Recipient)
	assert.Equal(t, uint64(2_000_000_000), events[0].RawAmount)
	assert.Nil(t, events[0].Mint)
	assert.Equal(t, "devnet", events[0].Network)
}

// Raw amounts above the int64 range survive the history recording
// unchanged; a 10-billion-SOL transfer is 1e19 lamports, past 2^63-1 but
// within uint64.
func TestTransferSolana_RecordsRawAmountAboveInt64Range(t *testing.T) {
	f := newTestService(t, &mockRPCClient{balance: 15_000_000_000_000_000_000, sendSig: testSig})

	_, err := f.svc.TransferSolana(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(10_000_000_000))
	require.NoError(t, err)

	require.Len(t, f.history.recorded, 1)
	assert.Equal(t, uint64(10_000_000_000_000_000_000), f.history.recorded[0].RawAmount)

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, uint64(10_000_000_000_000_000_000), events[0].RawAmount)
}

func TestTransferSpl_NegativeAmount(t *testing.T) {
	f := newTestService(t, &mockRPCClient{})

	_, err := f.svc.TransferSpl(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(-1))

	var verr *solana.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, 0, f.mock.totalCalls)
}

func TestTransferSpl_InsufficientBalance(t *testing.T) {
	f := newTestService(t, &mockRPCClient{
		accountInfo:  &rpc.GetAccountInfoResult{Value: &rpc.Account{}},
		tokenBalance: "1000000000", // 1 token at 9 decimals
	})

	_, err := f.svc.TransferSpl(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(3))

	var balErr *solana.InsufficientBalanceError
	require.ErrorAs(t, err, &balErr)
	assert.Equal(t, 0, f.mock.sendCalls)
}

func TestTransferSpl_Finalized(t *testing.T) {
	f := newTestService(t, &mockRPCClient{
		accountInfo:  &rpc.GetAccountInfoResult{Value: &rpc.Account{}},
		tokenBalance: "5000000000",
		sendSig:      testSig,
	})
	recipient := solanago.NewWallet().PublicKey().String()

	result, err := f.svc.TransferSpl(context.Background(), recipient, decimal.NewFromInt(2))
	require.NoError(t, err)

	assert.Equal(t, testSig.String(), result.Signature)
	assert.Equal(t, 1, f.mock.sendCalls)

	events := f.publisher.GetPublishedEvents()
	require.Len(t, events, 1)
	assert.Equal(t, "token", events[0].Kind)
	require.NotNil(t, events[0].Mint)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", *events[0].Mint)
}

func TestTransferSolana_SubmitFailureSurfacesRetryExhausted(t *testing.T) {
	mock := &mockRPCClient{
		balance: 5_000_000_000,
		sendErr: assert.AnError,
	}
	f := newTestService(t, mock)

	_, err := f.svc.TransferSolana(context.Background(), solanago.NewWallet().PublicKey().String(), decimal.NewFromInt(1))

	var exhausted *solana.RetryExhaustedError
	require.ErrorAs(t, err, &exhausted)
	assert.Empty(t, f.publisher.GetPublishedEvents())
}
