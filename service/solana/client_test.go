package solana

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockRPCClient implements RPCClient for testing.
// It's behavior-focused: we set what it should return, not verify call
// sequences.
type mockRPCClient struct {
	slot            uint64
	blockhash       solana.Hash
	lastValidHeight uint64
	blockHeight     uint64

	sendSig   solana.Signature
	sendErr   error
	sendCount int

	// statusQueue holds one entry per GetSignatureStatuses call; the last
	// entry repeats once the queue drains. A nil entry means "unknown yet".
	statusQueue []*rpc.SignatureStatusesResult

	account *rpc.Account
	// account becomes visible only after this many GetAccountInfo calls
	accountVisibleAfter int
	accountCalls        int
}

func (m *mockRPCClient) GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return m.slot, nil
}

func (m *mockRPCClient) GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error) {
	return &rpc.GetLatestBlockhashResult{
		Value: &rpc.LatestBlockhashResult{
			Blockhash:            m.blockhash,
			LastValidBlockHeight: m.lastValidHeight,
		},
	}, nil
}

func (m *mockRPCClient) GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error) {
	return m.blockHeight, nil
}

func (m *mockRPCClient) SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error) {
	m.sendCount++
	if m.sendErr != nil {
		return solana.Signature{}, m.sendErr
	}
	return m.sendSig, nil
}

func (m *mockRPCClient) GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error) {
	var status *rpc.SignatureStatusesResult
	if len(m.statusQueue) > 0 {
		status = m.statusQueue[0]
		if len(m.statusQueue) > 1 {
			m.statusQueue = m.statusQueue[1:]
		}
	}
	return &rpc.GetSignatureStatusesResult{
		Value: []*rpc.SignatureStatusesResult{status},
	}, nil
}

func (m *mockRPCClient) GetAccountInfo(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error) {
	m.accountCalls++
	if m.account == nil || m.accountCalls <= m.accountVisibleAfter {
		return nil, rpc.ErrNotFound
	}
	return &rpc.GetAccountInfoResult{Value: m.account}, nil
}

func newTestClient(mock *mockRPCClient) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(mock, "test", nil, logger,
		WithConfirmInterval(5*time.Millisecond),
		WithTablePollInterval(5*time.Millisecond),
	)
}

// tableAccountData builds raw account bytes in the on-chain lookup table
// layout: a 56-byte header followed by 32-byte addresses.
func tableAccountData(authority solana.PublicKey, lastExtendedSlot uint64, addrs []solana.PublicKey) []byte {
	buf := make([]byte, 0, 56+32*len(addrs))
	b4 := make([]byte, 4)
	binary.LittleEndian.PutUint32(b4, 1) // initialized table discriminator
	buf = append(buf, b4...)
	b8 := make([]byte, 8)
	binary.LittleEndian.PutUint64(b8, math.MaxUint64) // not deactivated
	buf = append(buf, b8...)
	binary.LittleEndian.PutUint64(b8, lastExtendedSlot)
	buf = append(buf, b8...)
	buf = append(buf, 0) // last extended slot start index
	buf = append(buf, 1) // authority present
	buf = append(buf, authority.Bytes()...)
	buf = append(buf, 0, 0) // padding
	for _, a := range addrs {
		buf = append(buf, a.Bytes()...)
	}
	return buf
}

// accountData wraps raw bytes the way the RPC layer delivers them.
func accountData(t *testing.T, raw []byte) *rpc.DataBytesOrJSON {
	t.Helper()
	enc := base64.StdEncoding.EncodeToString(raw)
	var d rpc.DataBytesOrJSON
	require.NoError(t, json.Unmarshal([]byte(fmt.Sprintf(`[%q,"base64"]`, enc)), &d))
	return &d
}

func tableAccount(t *testing.T, authority solana.PublicKey, lastExtendedSlot uint64, addrs []solana.PublicKey) *rpc.Account {
	t.Helper()
	return &rpc.Account{
		Owner: LookupTableProgramID,
		Data:  accountData(t, tableAccountData(authority, lastExtendedSlot, addrs)),
	}
}

func confirmedStatus(slot uint64) *rpc.SignatureStatusesResult {
	return &rpc.SignatureStatusesResult{
		Slot:               slot,
		ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
	}
}

var testSig = solana.MustSignatureFromBase58("5j7s6NiJS3JAkvgkoc18WVAsiSaci2pxB2A6ueCJP4tprA2TFg9wSyTLeYouxPBJEMzJinENTkpA52YStRW5Dia7")

func TestSubmitTransaction_Confirmed(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		blockHeight:     900,
		sendSig:         testSig,
		statusQueue: []*rpc.SignatureStatusesResult{
			nil, // first poll: not visible yet
			confirmedStatus(123),
		},
	}

	client := newTestClient(mock)
	ix := system.NewTransferInstruction(1, signer.PublicKey(), solana.NewWallet().PublicKey()).Build()

	res, err := client.SubmitTransaction(ctx, signer, []solana.Instruction{ix})

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, testSig, res.Signature)
	assert.Equal(t, uint64(123), res.Slot)
	assert.Equal(t, mock.blockhash, res.Blockhash)
	assert.Equal(t, uint64(1000), res.LastValidBlockHeight)
	assert.Equal(t, 1, mock.sendCount)
}

func TestSubmitTransaction_BlockhashExpired(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		blockHeight:     1001, // chain already past the validity window
		sendSig:         testSig,
	}

	client := newTestClient(mock)
	ix := system.NewTransferInstruction(1, signer.PublicKey(), solana.NewWallet().PublicKey()).Build()

	res, err := client.SubmitTransaction(ctx, signer, []solana.Instruction{ix})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBlockhashExpired)
	assert.Nil(t, res)
}

func TestSubmitTransaction_FailedOnChain(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		blockHeight:     900,
		sendSig:         testSig,
		statusQueue: []*rpc.SignatureStatusesResult{
			{
				Slot:               123,
				Err:                map[string]interface{}{"InstructionError": []interface{}{0, "Custom error"}},
				ConfirmationStatus: rpc.ConfirmationStatusConfirmed,
			},
		},
	}

	client := newTestClient(mock)
	ix := system.NewTransferInstruction(1, signer.PublicKey(), solana.NewWallet().PublicKey()).Build()

	_, err := client.SubmitTransaction(ctx, signer, []solana.Instruction{ix})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransactionFailed)
}

func TestSubmitTransaction_SendRejected(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		sendErr:         assert.AnError,
	}

	client := newTestClient(mock)
	ix := system.NewTransferInstruction(1, signer.PublicKey(), solana.NewWallet().PublicKey()).Build()

	_, err := client.SubmitTransaction(ctx, signer, []solana.Instruction{ix})

	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, mock.sendCount)
}

func TestFetchLookupTable_Absent(t *testing.T) {
	ctx := context.Background()

	client := newTestClient(&mockRPCClient{})
	state, err := client.FetchLookupTable(ctx, solana.NewWallet().PublicKey())

	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestFetchLookupTable_DecodesState(t *testing.T) {
	ctx := context.Background()

	authority := solana.NewWallet().PublicKey()
	addrs := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}
	mock := &mockRPCClient{
		account: tableAccount(t, authority, 42, addrs),
	}

	client := newTestClient(mock)
	table := solana.NewWallet().PublicKey()
	state, err := client.FetchLookupTable(ctx, table)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, table, state.Address)
	require.NotNil(t, state.Authority)
	assert.Equal(t, authority, *state.Authority)
	assert.Equal(t, uint64(42), state.LastExtendedSlot)
	assert.False(t, state.Deactivated)
	require.Len(t, state.Addresses, 3)
	assert.Equal(t, addrs, state.Addresses)
}

func TestFetchLookupTable_WrongOwner(t *testing.T) {
	ctx := context.Background()

	mock := &mockRPCClient{
		account: &rpc.Account{
			Owner: solana.SystemProgramID,
			Data:  accountData(t, []byte{1, 2, 3}),
		},
	}

	client := newTestClient(mock)
	state, err := client.FetchLookupTable(ctx, solana.NewWallet().PublicKey())

	require.Error(t, err)
	assert.Nil(t, state)
}

func TestFetchLookupTable_GarbageData(t *testing.T) {
	ctx := context.Background()

	mock := &mockRPCClient{
		account: &rpc.Account{
			Owner: LookupTableProgramID,
			Data:  accountData(t, []byte{0xde, 0xad, 0xbe, 0xef}),
		},
	}

	client := newTestClient(mock)
	state, err := client.FetchLookupTable(ctx, solana.NewWallet().PublicKey())

	require.Error(t, err)
	assert.Nil(t, state)
}

func TestExtendLookupTable_RejectsOverflow(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	existing := make([]solana.PublicKey, 255)
	for i := range existing {
		existing[i] = solana.NewWallet().PublicKey()
	}
	mock := &mockRPCClient{
		account: tableAccount(t, signer.PublicKey(), 42, existing),
	}

	client := newTestClient(mock)
	extra := []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	}

	_, err := client.ExtendLookupTable(ctx, signer, solana.NewWallet().PublicKey(), extra)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableFull)
	// The overflow must be caught before anything hits the network.
	assert.Equal(t, 0, mock.sendCount)
}

func TestExtendLookupTable_TableNotVisible(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{}
	client := newTestClient(mock)

	_, err := client.ExtendLookupTable(ctx, signer, solana.NewWallet().PublicKey(), []solana.PublicKey{
		solana.NewWallet().PublicKey(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "not visible")
	assert.Equal(t, 0, mock.sendCount)
}

func TestExtendLookupTable_Submits(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		blockHeight:     900,
		sendSig:         testSig,
		account: tableAccount(t, signer.PublicKey(), 42, []solana.PublicKey{
			solana.NewWallet().PublicKey(),
		}),
		statusQueue: []*rpc.SignatureStatusesResult{confirmedStatus(50)},
	}

	client := newTestClient(mock)
	res, err := client.ExtendLookupTable(ctx, signer, solana.NewWallet().PublicKey(), []solana.PublicKey{
		solana.NewWallet().PublicKey(),
		solana.NewWallet().PublicKey(),
	})

	require.NoError(t, err)
	assert.Equal(t, testSig, res.Signature)
	assert.Equal(t, 1, mock.sendCount)
}

func TestCreateLookupTable(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	mock := &mockRPCClient{
		slot:            777,
		blockhash:       solana.Hash(solana.NewWallet().PublicKey()),
		lastValidHeight: 1000,
		blockHeight:     900,
		sendSig:         testSig,
		statusQueue:     []*rpc.SignatureStatusesResult{confirmedStatus(778)},
	}

	client := newTestClient(mock)
	table, res, err := client.CreateLookupTable(ctx, signer)

	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, 1, mock.sendCount)

	// The table address is a pure function of (authority, slot).
	expected, _ := DeriveLookupTableAddress(signer.PublicKey(), 777)
	assert.Equal(t, expected, table)
}

func TestAwaitLookupTable_BecomesVisible(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	signer := solana.NewWallet().PrivateKey
	addrs := []solana.PublicKey{solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey()}
	mock := &mockRPCClient{
		account:             tableAccount(t, signer.PublicKey(), 42, addrs),
		accountVisibleAfter: 2,
	}

	client := newTestClient(mock)
	state, err := client.AwaitLookupTable(ctx, solana.NewWallet().PublicKey(), 2)

	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Len(t, state.Addresses, 2)
	assert.GreaterOrEqual(t, mock.accountCalls, 3)
}

func TestAwaitLookupTable_Timeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	client := newTestClient(&mockRPCClient{})
	state, err := client.AwaitLookupTable(ctx, solana.NewWallet().PublicKey(), 1)

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Nil(t, state)
}

func TestCompareTransactionSizes(t *testing.T) {
	ctx := context.Background()
	signer := solana.NewWallet().PrivateKey

	addrs := make([]solana.PublicKey, 4)
	for i := range addrs {
		addrs[i] = solana.NewWallet().PublicKey()
	}
	mock := &mockRPCClient{
		blockhash: solana.Hash(solana.NewWallet().PublicKey()),
		account:   tableAccount(t, signer.PublicKey(), 42, addrs),
	}

	client := newTestClient(mock)
	cmp, err := client.CompareTransactionSizes(ctx, signer, solana.NewWallet().PublicKey())

	require.NoError(t, err)
	require.NotNil(t, cmp)
	assert.Equal(t, 4, cmp.AddressCount)
	assert.Less(t, cmp.BytesWith, cmp.BytesWithout)
}
