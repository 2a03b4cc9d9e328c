package solana

import (
	"errors"

	"github.com/gagliardetto/solana-go"
)

// MaxTableAddresses is the capacity of a lookup table: transactions
// reference table entries by a single-byte index, so a table can never
// hold more than 256 addresses.
const MaxTableAddresses = 256

var (
	// ErrTableFull is returned when an extension would push a lookup table
	// past its 256-address index space.
	ErrTableFull = errors.New("lookup table address limit exceeded")

	// ErrBlockhashExpired is returned when a submitted transaction's
	// blockhash validity window lapses before the cluster confirms it.
	ErrBlockhashExpired = errors.New("blockhash expired before confirmation")

	// ErrTransactionFailed is returned when the cluster confirms a
	// transaction with an execution error.
	ErrTransactionFailed = errors.New("transaction failed on chain")
)

// LookupTable is the decoded on-chain state of an address lookup table.
// This is our domain model, independent of the account wire format.
type LookupTable struct {
	Address          solana.PublicKey
	Authority        *solana.PublicKey // nil once the table is frozen
	Addresses        []solana.PublicKey
	LastExtendedSlot uint64
	Deactivated      bool
}

// SubmitResult describes a transaction that was submitted and confirmed.
type SubmitResult struct {
	Signature            solana.Signature
	Slot                 uint64
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// SizeComparison reports the serialized lengths of two otherwise-identical
// transactions, one compiled against a lookup table and one without.
type SizeComparison struct {
	Table           solana.PublicKey `json:"table"`
	AddressCount    int              `json:"address_count"`
	BytesWithout    int              `json:"bytes_without_table"`
	BytesWith       int              `json:"bytes_with_table"`
	SavedBytes      int              `json:"saved_bytes"`
	SavedPerAddress float64          `json:"saved_per_address"`
	SavedPercent    float64          `json:"saved_percent"`
}
