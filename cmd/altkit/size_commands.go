package main

import (
	"context"
	"fmt"
	"time"

	solanasvc "github.com/brojonat/altkit/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func sizeCommands() *cli.Command {
	return &cli.Command{
		Name:  "size",
		Usage: "Transaction size comparison commands",
		Subcommands: []*cli.Command{
			sizeCompareCommand(),
		},
	}
}

func sizeCompareCommand() *cli.Command {
	return &cli.Command{
		Name:      "compare",
		Usage:     "Compare serialized transaction sizes with and without a lookup table",
		ArgsUsage: "TABLE_ADDRESS",
		Flags: append([]cli.Flag{
			rpcURLFlag(),
			logLevelFlag(),
			&cli.StringFlag{
				Name:    "jq",
				Usage:   "jq filter applied to the JSON output",
				Aliases: []string{"q"},
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		}, signerFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("a table address is required")
			}

			table, err := solana.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid table address %q: %w", c.Args().Get(0), err)
			}

			signer, err := resolveSigner(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client := newLookupClient(c)
			cmp, err := client.CompareTransactionSizes(ctx, signer, table)
			if err != nil {
				return fmt.Errorf("failed to compare transaction sizes: %w", err)
			}

			if c.Bool("json") || c.String("jq") != "" {
				return printJSON(cmp, c.String("jq"))
			}

			printSizeComparison(cmp)
			return nil
		},
	}
}

func printSizeComparison(cmp *solanasvc.SizeComparison) {
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Println("Transaction Size Comparison")
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	fmt.Printf("Table:              %s\n", cmp.Table)
	fmt.Printf("Referenced:         %d address(es)\n", cmp.AddressCount)
	fmt.Printf("Without table:      %d bytes\n", cmp.BytesWithout)
	fmt.Printf("With table:         %d bytes\n", cmp.BytesWith)
	fmt.Printf("Saved:              %d bytes (%.1f%%)\n", cmp.SavedBytes, cmp.SavedPercent)
	fmt.Printf("Saved per address:  %.1f bytes\n", cmp.SavedPerAddress)
	fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
}
