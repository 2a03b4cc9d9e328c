package main

import (
	"context"
	"fmt"
	"time"

	"github.com/brojonat/altkit/service/registry"
	solanasvc "github.com/brojonat/altkit/service/solana"
	"github.com/gagliardetto/solana-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
)

func databaseURLFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "database-url",
		Usage:   "Postgres URL for the lookup table registry (optional)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func dbCommands() *cli.Command {
	return &cli.Command{
		Name:  "db",
		Usage: "Registry inspection commands",
		Subcommands: []*cli.Command{
			dbListTablesCommand(),
			dbGetTableCommand(),
		},
	}
}

// openRegistry connects to the registry database named by the command's
// --database-url flag. Returns (nil, nil) when no URL is configured.
func openRegistry(ctx context.Context, c *cli.Context) (*registry.Store, *pgxpool.Pool, error) {
	dbURL := c.String("database-url")
	if dbURL == "" {
		return nil, nil, nil
	}

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to registry database: %w", err)
	}

	store := registry.NewStore(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// recordCreatedTable writes a created table to the registry when one is
// configured. Registry failures are reported but never fail the on-chain
// operation that already succeeded.
func recordCreatedTable(ctx context.Context, c *cli.Context, table solana.PublicKey, authority solana.PublicKey, res *solanasvc.SubmitResult) {
	store, pool, err := openRegistry(ctx, c)
	if err != nil {
		fmt.Printf("warning: %v\n", err)
		return
	}
	if store == nil {
		return
	}
	defer pool.Close()

	if _, err := store.RecordTable(ctx, table.String(), authority.String(), int64(res.Slot), res.Signature.String()); err != nil {
		fmt.Printf("warning: failed to record table in registry: %v\n", err)
	}
}

// recordExtendedTable writes appended addresses to the registry when one is
// configured.
func recordExtendedTable(ctx context.Context, c *cli.Context, table solana.PublicKey, startPosition int, addresses []solana.PublicKey, res *solanasvc.SubmitResult) {
	store, pool, err := openRegistry(ctx, c)
	if err != nil {
		fmt.Printf("warning: %v\n", err)
		return
	}
	if store == nil {
		return
	}
	defer pool.Close()

	raw := make([]string, len(addresses))
	for i, a := range addresses {
		raw[i] = a.String()
	}
	if err := store.RecordEntries(ctx, table.String(), startPosition, raw, res.Signature.String()); err != nil {
		fmt.Printf("warning: failed to record entries in registry: %v\n", err)
	}
}

func dbListTablesCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List recorded lookup tables (outputs JSON by default)",
		Flags: []cli.Flag{
			databaseURLFlag(),
			&cli.BoolFlag{
				Name:    "table",
				Aliases: []string{"t"},
				Usage:   "Output as human-readable table instead of JSON",
			},
		},
		Action: func(c *cli.Context) error {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, pool, err := openRegistry(ctx, c)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("--database-url (or DATABASE_URL) is required")
			}
			defer pool.Close()

			tables, err := store.ListTables(ctx)
			if err != nil {
				return fmt.Errorf("failed to list tables: %w", err)
			}

			if !c.Bool("table") {
				out := make([]map[string]interface{}, len(tables))
				for i, t := range tables {
					out[i] = map[string]interface{}{
						"address":          t.Address,
						"authority":        t.Authority,
						"recent_slot":      t.RecentSlot,
						"create_signature": t.CreateSignature,
						"created_at":       t.CreatedAt,
					}
				}
				return printJSON(out, "")
			}

			if len(tables) == 0 {
				fmt.Println("No lookup tables recorded")
				return nil
			}
			fmt.Printf("Found %d table(s):\n\n", len(tables))
			for _, t := range tables {
				fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
				fmt.Printf("Table:       %s\n", t.Address)
				fmt.Printf("Authority:   %s\n", t.Authority)
				fmt.Printf("Recent Slot: %d\n", t.RecentSlot)
				fmt.Printf("Created At:  %s\n", t.CreatedAt.Format(time.RFC3339))
				fmt.Println()
			}
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			return nil
		},
	}
}

func dbGetTableCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"show"},
		Usage:     "Show a recorded lookup table and its entries",
		ArgsUsage: "TABLE_ADDRESS",
		Flags: []cli.Flag{
			databaseURLFlag(),
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
			address := c.Args().Get(0)

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			store, pool, err := openRegistry(ctx, c)
			if err != nil {
				return err
			}
			if store == nil {
				return fmt.Errorf("--database-url (or DATABASE_URL) is required")
			}
			defer pool.Close()

			table, err := store.GetTable(ctx, address)
			if err != nil {
				return fmt.Errorf("failed to get table: %w", err)
			}
			if table == nil {
				return fmt.Errorf("table %s is not in the registry", address)
			}

			entries, err := store.ListEntries(ctx, address)
			if err != nil {
				return fmt.Errorf("failed to list entries: %w", err)
			}

			if c.Bool("json") {
				entryOut := make([]map[string]interface{}, len(entries))
				for i, e := range entries {
					entryOut[i] = map[string]interface{}{
						"position":         e.Position,
						"address":          e.Address,
						"extend_signature": e.ExtendSignature,
					}
				}
				return printJSON(map[string]interface{}{
					"address":          table.Address,
					"authority":        table.Authority,
					"recent_slot":      table.RecentSlot,
					"create_signature": table.CreateSignature,
					"created_at":       table.CreatedAt,
					"entries":          entryOut,
				}, "")
			}

			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Println("Recorded Lookup Table")
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			fmt.Printf("Table:       %s\n", table.Address)
			fmt.Printf("Authority:   %s\n", table.Authority)
			fmt.Printf("Recent Slot: %d\n", table.RecentSlot)
			fmt.Printf("Created At:  %s\n", table.CreatedAt.Format(time.RFC3339))
			fmt.Printf("Entries:     %d\n", len(entries))
			for _, e := range entries {
				fmt.Printf("  [%3d] %s\n", e.Position, e.Address)
			}
			fmt.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			return nil
		},
	}
}
