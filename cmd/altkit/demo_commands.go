package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/altkit/service/config"
	"github.com/brojonat/altkit/service/demo"
	"github.com/brojonat/altkit/service/registry"
	solanasvc "github.com/brojonat/altkit/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

// demoCommand runs the full walkthrough: create a lookup table, wait for
// it to become visible, extend it with a handful of addresses, wait for
// the extension, then compare serialized transaction sizes with and
// without the table. Configuration comes from the environment (see
// service/config); the command itself only controls which addresses go
// into the table.
func demoCommand() *cli.Command {
	return &cli.Command{
		Name:  "demo",
		Usage: "Run the create -> extend -> compare walkthrough",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:    "address",
				Aliases: []string{"a"},
				Usage:   "Address to put in the table (repeatable; default: 4 generated addresses)",
			},
			&cli.IntFlag{
				Name:  "count",
				Value: 4,
				Usage: "Number of addresses to generate when none are given",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output the final comparison as JSON",
			},
		},
		Action: runDemo,
	}
}

func runDemo(c *cli.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	signer, err := solanasvc.LoadSigner(cfg.SolanaPrivateKey, cfg.SolanaKeypairFile)
	if err != nil {
		return err
	}

	addresses, err := demoAddresses(c)
	if err != nil {
		return err
	}

	logger := newCLILogger(parseLogLevel(cfg.LogLevel))
	client := solanasvc.NewClient(
		solanasvc.NewRPCClient(cfg.SolanaRPCURL),
		endpointLabel(cfg.SolanaRPCURL),
		nil,
		logger,
		solanasvc.WithConfirmInterval(cfg.ConfirmPollInterval),
		solanasvc.WithTablePollInterval(cfg.TablePollInterval),
	)

	var store *registry.Store
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(c.Context, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("failed to connect to registry database: %w", err)
		}
		defer pool.Close()
		store = registry.NewStore(pool)
		if err := store.EnsureSchema(c.Context); err != nil {
			return err
		}
	}

	var (
		table      solana.PublicKey
		created    *solanasvc.SubmitResult
		extended   *solanasvc.SubmitResult
		comparison *solanasvc.SizeComparison
	)

	seq := demo.NewSequence(logger,
		demo.Step{
			Name: "create lookup table",
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.ConfirmTimeout)
				defer cancel()
				var err error
				table, created, err = client.CreateLookupTable(ctx, signer)
				if err != nil {
					return err
				}
				fmt.Printf("Created lookup table %s (signature %s)\n", table, created.Signature)
				if store != nil {
					if _, err := store.RecordTable(ctx, table.String(), signer.PublicKey().String(), int64(created.Slot), created.Signature.String()); err != nil {
						logger.WarnContext(ctx, "failed to record table in registry", "error", err)
					}
				}
				return nil
			},
		},
		demo.Step{
			Name: "wait for table visibility",
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.TableVisibleTimeout)
				defer cancel()
				_, err := client.AwaitLookupTable(ctx, table, 0)
				return err
			},
		},
		demo.Step{
			Name: "extend lookup table",
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.ConfirmTimeout)
				defer cancel()
				var err error
				extended, err = client.ExtendLookupTable(ctx, signer, table, addresses)
				if err != nil {
					return err
				}
				fmt.Printf("Extended table with %d address(es) (signature %s)\n", len(addresses), extended.Signature)
				if store != nil {
					raw := make([]string, len(addresses))
					for i, a := range addresses {
						raw[i] = a.String()
					}
					if err := store.RecordEntries(ctx, table.String(), 0, raw, extended.Signature.String()); err != nil {
						logger.WarnContext(ctx, "failed to record entries in registry", "error", err)
					}
				}
				return nil
			},
		},
		demo.Step{
			Name: "wait for extension visibility",
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, cfg.TableVisibleTimeout)
				defer cancel()
				_, err := client.AwaitLookupTable(ctx, table, len(addresses))
				return err
			},
		},
		demo.Step{
			Name: "compare transaction sizes",
			Run: func(ctx context.Context) error {
				ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
				defer cancel()
				var err error
				comparison, err = client.CompareTransactionSizes(ctx, signer, table)
				return err
			},
		},
	)

	results, err := seq.Run(c.Context)
	printDemoResults(results)
	if err != nil {
		return err
	}

	if c.Bool("json") {
		return printJSON(comparison, "")
	}
	printSizeComparison(comparison)
	return nil
}

// demoAddresses resolves the addresses to place in the table. With no
// --address flags it generates fresh ones; the demo only needs addresses
// that exist as keys, not funded accounts.
func demoAddresses(c *cli.Context) ([]solana.PublicKey, error) {
	raw := c.StringSlice("address")
	if len(raw) > 0 {
		addresses := make([]solana.PublicKey, 0, len(raw))
		for _, r := range raw {
			addr, err := solana.PublicKeyFromBase58(r)
			if err != nil {
				return nil, fmt.Errorf("invalid address %q: %w", r, err)
			}
			addresses = append(addresses, addr)
		}
		return addresses, nil
	}

	count := c.Int("count")
	if count < 1 || count > solanasvc.MaxTableAddresses {
		return nil, fmt.Errorf("count must be between 1 and %d", solanasvc.MaxTableAddresses)
	}
	addresses := make([]solana.PublicKey, count)
	for i := range addresses {
		addresses[i] = solana.NewWallet().PublicKey()
	}
	return addresses, nil
}

func printDemoResults(results []demo.Result) {
	fmt.Println()
	for _, r := range results {
		status := "✓"
		if r.Err != nil {
			status = "✗"
		}
		fmt.Printf("%s %-32s %s\n", status, r.Name, r.Duration.Round(time.Millisecond))
	}
	fmt.Println()
}
