package solana

import (
	"fmt"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// v0 transactions carry fixed metadata a legacy transaction doesn't:
// 1 version byte, 1 byte for the lookups array length, and per table
// 32 bytes of table address plus 2 bytes of index-array lengths.
const tableOverhead = 1 + 1 + 32 + 1 + 1

func buildComparison(t *testing.T, n int) *SizeComparison {
	t.Helper()

	payer := solana.NewWallet().PrivateKey
	blockhash := solana.Hash(solana.NewWallet().PublicKey())
	table := solana.NewWallet().PublicKey()

	addrs := make([]solana.PublicKey, n)
	for i := range addrs {
		addrs[i] = solana.NewWallet().PublicKey()
	}

	cmp, err := BuildSizeComparison(payer, blockhash, table, addrs)
	require.NoError(t, err)
	require.NotNil(t, cmp)
	return cmp
}

func TestBuildSizeComparison_ExactSavings(t *testing.T) {
	// Each address moved into the table drops its 32-byte key from the
	// static account list and costs a 1-byte index instead: 31 bytes net,
	// minus the fixed v0 metadata overhead.
	for _, n := range []int{1, 2, 4, 16, 100} {
		t.Run(fmt.Sprintf("addresses=%d", n), func(t *testing.T) {
			cmp := buildComparison(t, n)

			assert.Equal(t, n, cmp.AddressCount)
			assert.Equal(t, 31*n-tableOverhead, cmp.SavedBytes)
			assert.Equal(t, cmp.BytesWithout-cmp.BytesWith, cmp.SavedBytes)
		})
	}
}

func TestBuildSizeComparison_TableWins(t *testing.T) {
	// From two referenced addresses on, the 31-byte-per-address saving
	// beats the fixed v0 overhead.
	for _, n := range []int{2, 4, 64, 256} {
		t.Run(fmt.Sprintf("addresses=%d", n), func(t *testing.T) {
			cmp := buildComparison(t, n)

			assert.Less(t, cmp.BytesWith, cmp.BytesWithout)
			assert.Positive(t, cmp.SavedBytes)
		})
	}
}

func TestBuildSizeComparison_FourAddressesBound(t *testing.T) {
	// The demo scenario: four addresses must save at least 4*31 bytes
	// modulo the fixed per-transaction overhead.
	cmp := buildComparison(t, 4)
	assert.GreaterOrEqual(t, cmp.SavedBytes, 4*31-tableOverhead)
}

func TestBuildSizeComparison_EmptyAddresses(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	_, err := BuildSizeComparison(payer, blockhash, solana.NewWallet().PublicKey(), nil)
	require.Error(t, err)
}

func TestBuildSizeComparison_TooManyAddresses(t *testing.T) {
	payer := solana.NewWallet().PrivateKey
	blockhash := solana.Hash(solana.NewWallet().PublicKey())

	addrs := make([]solana.PublicKey, MaxTableAddresses+1)
	for i := range addrs {
		addrs[i] = solana.NewWallet().PublicKey()
	}

	_, err := BuildSizeComparison(payer, blockhash, solana.NewWallet().PublicKey(), addrs)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTableFull)
}
