package solana

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
)

// BuildSizeComparison builds two equivalent transactions, one transfer per
// table address, and reports their serialized byte lengths. The first is a
// legacy transaction embedding every 32-byte address; the second compiles
// against the lookup table so each address costs a 1-byte index instead.
// Both are signed by payer so the lengths match what would go on the wire.
//
// No network access happens here; callers supply the blockhash and the
// table's address list.
func BuildSizeComparison(payer solana.PrivateKey, blockhash solana.Hash, table solana.PublicKey, addresses []solana.PublicKey) (*SizeComparison, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no addresses to reference")
	}
	if len(addresses) > MaxTableAddresses {
		return nil, fmt.Errorf("%d addresses: %w", len(addresses), ErrTableFull)
	}

	instructions := make([]solana.Instruction, len(addresses))
	for i, addr := range addresses {
		instructions[i] = system.NewTransferInstruction(1, payer.PublicKey(), addr).Build()
	}

	without, err := serializedSize(payer, instructions, blockhash)
	if err != nil {
		return nil, fmt.Errorf("failed to build legacy transaction: %w", err)
	}

	with, err := serializedSize(payer, instructions, blockhash,
		solana.TransactionAddressTables(map[solana.PublicKey]solana.PublicKeySlice{
			table: addresses,
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build versioned transaction: %w", err)
	}

	saved := without - with
	return &SizeComparison{
		Table:           table,
		AddressCount:    len(addresses),
		BytesWithout:    without,
		BytesWith:       with,
		SavedBytes:      saved,
		SavedPerAddress: float64(saved) / float64(len(addresses)),
		SavedPercent:    100 * float64(saved) / float64(without),
	}, nil
}

func serializedSize(payer solana.PrivateKey, instructions []solana.Instruction, blockhash solana.Hash, opts ...solana.TransactionOption) (int, error) {
	txOpts := append([]solana.TransactionOption{solana.TransactionPayer(payer.PublicKey())}, opts...)
	tx, err := solana.NewTransaction(instructions, blockhash, txOpts...)
	if err != nil {
		return 0, err
	}
	if _, err := tx.Sign(signerGetter(payer)); err != nil {
		return 0, err
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return 0, err
	}
	return len(raw), nil
}
