package solana

import (
	"github.com/blocto/solana-go-sdk/common"
	lookup "github.com/blocto/solana-go-sdk/program/address_lookup_table"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/gagliardetto/solana-go"
)

// LookupTableProgramID is the well-known address of the on-chain address
// lookup table program.
var LookupTableProgramID = solana.MustPublicKeyFromBase58("AddressLookupTab1e1111111111111111111111111")

// DeriveLookupTableAddress returns the deterministic address a lookup table
// created by the given authority at the given slot will occupy, along with
// the PDA bump seed.
func DeriveLookupTableAddress(authority solana.PublicKey, recentSlot uint64) (solana.PublicKey, uint8) {
	addr, bump := lookup.DeriveLookupTableAddress(toBlocto(authority), recentSlot)
	return fromBlocto(addr), bump
}

// BuildCreateLookupTable constructs the instruction that creates a lookup
// table for authority, paid for by payer, and returns it together with the
// address the table will occupy. Nothing happens on chain until the
// instruction is submitted.
func BuildCreateLookupTable(authority, payer solana.PublicKey, recentSlot uint64) (solana.Instruction, solana.PublicKey) {
	tableAddr, bump := lookup.DeriveLookupTableAddress(toBlocto(authority), recentSlot)
	ix := lookup.CreateLookupTable(lookup.CreateLookupTableParams{
		LookupTable: tableAddr,
		Authority:   toBlocto(authority),
		Payer:       toBlocto(payer),
		RecentSlot:  recentSlot,
		BumpSeed:    bump,
	})
	return bridgedInstruction{ix}, fromBlocto(tableAddr)
}

// BuildExtendLookupTable constructs the instruction that appends addresses
// to an existing lookup table. Must be submitted to take effect.
func BuildExtendLookupTable(table, authority, payer solana.PublicKey, addresses []solana.PublicKey) solana.Instruction {
	bloctoPayer := toBlocto(payer)
	bloctoAddrs := make([]common.PublicKey, len(addresses))
	for i, a := range addresses {
		bloctoAddrs[i] = toBlocto(a)
	}
	ix := lookup.ExtendLookupTable(lookup.ExtendLookupTableParams{
		LookupTable: toBlocto(table),
		Authority:   toBlocto(authority),
		Payer:       &bloctoPayer,
		Addresses:   bloctoAddrs,
	})
	return bridgedInstruction{ix}
}

// bridgedInstruction adapts a blocto SDK instruction to the solana-go
// Instruction interface so it can be compiled into a solana-go transaction.
type bridgedInstruction struct {
	inner types.Instruction
}

func (b bridgedInstruction) ProgramID() solana.PublicKey {
	return fromBlocto(b.inner.ProgramID)
}

func (b bridgedInstruction) Accounts() []*solana.AccountMeta {
	metas := make([]*solana.AccountMeta, len(b.inner.Accounts))
	for i, acc := range b.inner.Accounts {
		metas[i] = &solana.AccountMeta{
			PublicKey:  fromBlocto(acc.PubKey),
			IsSigner:   acc.IsSigner,
			IsWritable: acc.IsWritable,
		}
	}
	return metas
}

func (b bridgedInstruction) Data() ([]byte, error) {
	return b.inner.Data, nil
}

func toBlocto(pk solana.PublicKey) common.PublicKey {
	return common.PublicKeyFromBytes(pk.Bytes())
}

func fromBlocto(pk common.PublicKey) solana.PublicKey {
	return solana.PublicKeyFromBytes(pk.Bytes())
}
