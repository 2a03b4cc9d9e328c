package main

import (
	"context"
	"fmt"
	"time"

	solanasvc "github.com/brojonat/altkit/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/urfave/cli/v2"
)

func tableCommands() *cli.Command {
	return &cli.Command{
		Name:  "table",
		Usage: "Lookup table operations",
		Subcommands: []*cli.Command{
			tableCreateCommand(),
			tableExtendCommand(),
			tableGetCommand(),
			tableDeriveCommand(),
		},
	}
}

func rpcURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "rpc-url",
		Aliases: []string{"u"},
		Usage:   "Cluster RPC endpoint",
		EnvVars: []string{"SOLANA_RPC_URL"},
		Value:   "https://api.devnet.solana.com",
	}
}

func signerFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "private-key",
			Usage:   "Base58-encoded secret key of the payer/authority",
			EnvVars: []string{"SOLANA_PRIVATE_KEY"},
		},
		&cli.StringFlag{
			Name:    "keypair",
			Aliases: []string{"k"},
			Usage:   "Path to a solana-keygen JSON keypair file",
			EnvVars: []string{"SOLANA_KEYPAIR_FILE"},
		},
	}
}

func timeoutFlag() cli.Flag {
	return &cli.DurationFlag{
		Name:    "timeout",
		Aliases: []string{"t"},
		Value:   90 * time.Second,
		Usage:   "Overall deadline for the operation, confirmation included",
	}
}

func logLevelFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "log-level",
		Usage:   "Log level (debug, info, warn, error)",
		EnvVars: []string{"LOG_LEVEL"},
		Value:   "error",
	}
}

// newLookupClient builds a client from command flags.
func newLookupClient(c *cli.Context) *solanasvc.Client {
	rpcURL := c.String("rpc-url")
	logger := newCLILogger(parseLogLevel(c.String("log-level")))
	return solanasvc.NewClient(
		solanasvc.NewRPCClient(rpcURL),
		endpointLabel(rpcURL),
		nil, // metrics are for long-running processes, not one-shot commands
		logger,
	)
}

func resolveSigner(c *cli.Context) (solana.PrivateKey, error) {
	return solanasvc.LoadSigner(c.String("private-key"), c.String("keypair"))
}

func tableCreateCommand() *cli.Command {
	return &cli.Command{
		Name:  "create",
		Usage: "Create a new lookup table owned by the signer",
		Flags: append([]cli.Flag{
			rpcURLFlag(),
			timeoutFlag(),
			logLevelFlag(),
			databaseURLFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		}, signerFlags()...),
		Action: func(c *cli.Context) error {
			signer, err := resolveSigner(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			client := newLookupClient(c)
			table, res, err := client.CreateLookupTable(ctx, signer)
			if err != nil {
				return fmt.Errorf("failed to create lookup table: %w", err)
			}

			recordCreatedTable(ctx, c, table, signer.PublicKey(), res)

			if c.Bool("json") {
				return printJSON(map[string]interface{}{
					"table":     table.String(),
					"authority": signer.PublicKey().String(),
					"signature": res.Signature.String(),
					"slot":      res.Slot,
				}, "")
			}
			fmt.Printf("✓ Lookup table created\n")
			fmt.Printf("  Table:     %s\n", table)
			fmt.Printf("  Authority: %s\n", signer.PublicKey())
			fmt.Printf("  Signature: %s\n", res.Signature)
			return nil
		},
	}
}

func tableExtendCommand() *cli.Command {
	return &cli.Command{
		Name:      "extend",
		Usage:     "Append addresses to an existing lookup table",
		ArgsUsage: "TABLE_ADDRESS ADDRESS [ADDRESS...]",
		Flags: append([]cli.Flag{
			rpcURLFlag(),
			timeoutFlag(),
			logLevelFlag(),
			databaseURLFlag(),
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		}, signerFlags()...),
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("a table address and at least one address to append are required")
			}

			table, err := solana.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid table address %q: %w", c.Args().Get(0), err)
			}

			addresses := make([]solana.PublicKey, 0, c.NArg()-1)
			for _, raw := range c.Args().Slice()[1:] {
				addr, err := solana.PublicKeyFromBase58(raw)
				if err != nil {
					return fmt.Errorf("invalid address %q: %w", raw, err)
				}
				addresses = append(addresses, addr)
			}

			signer, err := resolveSigner(c)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), c.Duration("timeout"))
			defer cancel()

			client := newLookupClient(c)

			// Snapshot the table before extending so the registry records
			// the right starting position.
			before, err := client.FetchLookupTable(ctx, table)
			if err != nil {
				return fmt.Errorf("failed to read table: %w", err)
			}
			startPosition := 0
			if before != nil {
				startPosition = len(before.Addresses)
			}

			res, err := client.ExtendLookupTable(ctx, signer, table, addresses)
			if err != nil {
				return fmt.Errorf("failed to extend lookup table: %w", err)
			}

			recordExtendedTable(ctx, c, table, startPosition, addresses, res)

			if c.Bool("json") {
				appended := make([]string, len(addresses))
				for i, a := range addresses {
					appended[i] = a.String()
				}
				return printJSON(map[string]interface{}{
					"table":     table.String(),
					"appended":  appended,
					"signature": res.Signature.String(),
					"slot":      res.Slot,
				}, "")
			}
			fmt.Printf("✓ Lookup table extended\n")
			fmt.Printf("  Table:     %s\n", table)
			fmt.Printf("  Appended:  %d address(es)\n", len(addresses))
			fmt.Printf("  Signature: %s\n", res.Signature)
			return nil
		},
	}
}

func tableGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"show"},
		Usage:     "Fetch the on-chain contents of a lookup table",
		ArgsUsage: "TABLE_ADDRESS",
		Flags: []cli.Flag{
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
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("a table address is required")
			}

			table, err := solana.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid table address %q: %w", c.Args().Get(0), err)
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			client := newLookupClient(c)
			state, err := client.FetchLookupTable(ctx, table)
			if err != nil {
				return fmt.Errorf("failed to fetch lookup table: %w", err)
			}
			if state == nil {
				return fmt.Errorf("lookup table %s not found (it may not be confirmed yet)", table)
			}

			if c.Bool("json") || c.String("jq") != "" {
				addresses := make([]string, len(state.Addresses))
				for i, a := range state.Addresses {
					addresses[i] = a.String()
				}
				out := map[string]interface{}{
					"table":              state.Address.String(),
					"addresses":          addresses,
					"last_extended_slot": state.LastExtendedSlot,
					"deactivated":        state.Deactivated,
				}
				if state.Authority != nil {
					out["authority"] = state.Authority.String()
				}
				return printJSON(out, c.String("jq"))
			}

			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Println("Lookup Table")
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Printf("Table:              %s\n", state.Address)
			if state.Authority != nil {
				fmt.Printf("Authority:          %s\n", state.Authority)
			} else {
				fmt.Printf("Authority:          (frozen)\n")
			}
			fmt.Printf("Last Extended Slot: %d\n", state.LastExtendedSlot)
			fmt.Printf("Deactivated:        %v\n", state.Deactivated)
			fmt.Printf("Addresses:          %d\n", len(state.Addresses))
			for i, a := range state.Addresses {
				fmt.Printf("  [%3d] %s\n", i, a)
			}
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			return nil
		},
	}
}

func tableDeriveCommand() *cli.Command {
	return &cli.Command{
		Name:      "derive",
		Usage:     "Print the deterministic table address for an authority and slot (offline)",
		ArgsUsage: "AUTHORITY SLOT",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 2 {
				return fmt.Errorf("an authority address and a slot are required")
			}

			authority, err := solana.PublicKeyFromBase58(c.Args().Get(0))
			if err != nil {
				return fmt.Errorf("invalid authority %q: %w", c.Args().Get(0), err)
			}

			var slot uint64
			if _, err := fmt.Sscanf(c.Args().Get(1), "%d", &slot); err != nil {
				return fmt.Errorf("invalid slot %q: %w", c.Args().Get(1), err)
			}

			table, bump := solanasvc.DeriveLookupTableAddress(authority, slot)

			if c.Bool("json") {
				return printJSON(map[string]interface{}{
					"authority": authority.String(),
					"slot":      slot,
					"table":     table.String(),
					"bump":      bump,
				}, "")
			}
			fmt.Printf("Table: %s (bump %d)\n", table, bump)
			return nil
		},
	}
}
