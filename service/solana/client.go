package solana

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/brojonat/altkit/service/metrics"
	"github.com/gagliardetto/solana-go"
	lookupstate "github.com/gagliardetto/solana-go/programs/address-lookup-table"
	"github.com/gagliardetto/solana-go/rpc"
)

// RPCClient is an interface for the Solana RPC operations we need.
// This allows us to mock the RPC layer in tests without hitting real
// Solana nodes.
type RPCClient interface {
	GetSlot(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)

	GetLatestBlockhash(ctx context.Context, commitment rpc.CommitmentType) (*rpc.GetLatestBlockhashResult, error)

	GetBlockHeight(ctx context.Context, commitment rpc.CommitmentType) (uint64, error)

	SendTransaction(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)

	GetSignatureStatuses(ctx context.Context, searchHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)

	GetAccountInfo(ctx context.Context, account solana.PublicKey, opts *rpc.GetAccountInfoOpts) (*rpc.GetAccountInfoResult, error)
}

// Client orchestrates lookup table operations against the cluster RPC.
// Every remote operation is terminal on failure; there is no retry policy
// here, callers decide whether to restart a step.
type Client struct {
	rpc      RPCClient
	logger   *slog.Logger
	metrics  *metrics.Metrics
	endpoint string // RPC endpoint identifier for metrics (e.g., "mainnet", "devnet", rpc host)

	commitment        rpc.CommitmentType
	confirmInterval   time.Duration
	tablePollInterval time.Duration
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithCommitment sets the commitment level used for blockhash fetches,
// preflight checks, and account reads.
func WithCommitment(commitment rpc.CommitmentType) ClientOption {
	return func(c *Client) { c.commitment = commitment }
}

// WithConfirmInterval sets how often signature status is polled while
// waiting for confirmation.
func WithConfirmInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.confirmInterval = d }
}

// WithTablePollInterval sets how often the table account is re-read while
// waiting for it to become visible.
func WithTablePollInterval(d time.Duration) ClientOption {
	return func(c *Client) { c.tablePollInterval = d }
}

// NewClient creates a new lookup table client.
// The endpoint parameter is used for metrics labeling (e.g., "mainnet",
// "devnet", or RPC hostname). If m is nil, no metrics will be recorded.
func NewClient(rpcClient RPCClient, endpoint string, m *metrics.Metrics, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		rpc:               rpcClient,
		logger:            logger,
		metrics:           m,
		endpoint:          endpoint,
		commitment:        rpc.CommitmentConfirmed,
		confirmInterval:   2 * time.Second,
		tablePollInterval: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// observeRPC records timing metrics for a single RPC call.
func (c *Client) observeRPC(method string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordRPCCall(method, status, c.endpoint, time.Since(start).Seconds())
}

// CreateLookupTable creates a new lookup table whose authority and payer is
// the signer. It derives the table address from the current slot, submits
// the creation transaction, and waits for confirmation.
func (c *Client) CreateLookupTable(ctx context.Context, signer solana.PrivateKey) (solana.PublicKey, *SubmitResult, error) {
	start := time.Now()
	slot, err := c.rpc.GetSlot(ctx, c.commitment)
	c.observeRPC("GetSlot", start, err)
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to get current slot: %w", err)
	}

	ix, tableAddr := BuildCreateLookupTable(signer.PublicKey(), signer.PublicKey(), slot)

	c.logger.InfoContext(ctx, "creating lookup table",
		"table", tableAddr.String(),
		"authority", signer.PublicKey().String(),
		"recent_slot", slot,
	)

	res, err := c.SubmitTransaction(ctx, signer, []solana.Instruction{ix})
	if err != nil {
		return solana.PublicKey{}, nil, fmt.Errorf("failed to submit create transaction: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordTableCreated(c.endpoint)
	}

	return tableAddr, res, nil
}

// ExtendLookupTable appends addresses to an existing table. The table must
// already be visible on chain; extensions that would exceed the 256-address
// index space are rejected before anything is sent.
func (c *Client) ExtendLookupTable(ctx context.Context, signer solana.PrivateKey, table solana.PublicKey, addresses []solana.PublicKey) (*SubmitResult, error) {
	if len(addresses) == 0 {
		return nil, fmt.Errorf("no addresses to append")
	}

	state, err := c.FetchLookupTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read table before extending: %w", err)
	}
	if state == nil {
		return nil, fmt.Errorf("lookup table %s is not visible on chain yet", table)
	}
	if len(state.Addresses)+len(addresses) > MaxTableAddresses {
		return nil, fmt.Errorf("table holds %d addresses, cannot append %d more: %w",
			len(state.Addresses), len(addresses), ErrTableFull)
	}

	ix := BuildExtendLookupTable(table, signer.PublicKey(), signer.PublicKey(), addresses)

	c.logger.InfoContext(ctx, "extending lookup table",
		"table", table.String(),
		"existing", len(state.Addresses),
		"appending", len(addresses),
	)

	res, err := c.SubmitTransaction(ctx, signer, []solana.Instruction{ix})
	if err != nil {
		return nil, fmt.Errorf("failed to submit extend transaction: %w", err)
	}

	if c.metrics != nil {
		c.metrics.RecordTableExtended(c.endpoint, len(addresses))
	}

	return res, nil
}

// FetchLookupTable reads the current on-chain contents of a lookup table.
// A table that does not exist (yet) yields (nil, nil) rather than an error;
// callers should treat that as "try again later".
func (c *Client) FetchLookupTable(ctx context.Context, table solana.PublicKey) (*LookupTable, error) {
	start := time.Now()
	res, err := c.rpc.GetAccountInfo(ctx, table, &rpc.GetAccountInfoOpts{
		Commitment: c.commitment,
		Encoding:   solana.EncodingBase64,
	})
	c.observeRPC("GetAccountInfo", start, err)
	if errors.Is(err, rpc.ErrNotFound) {
		c.logger.DebugContext(ctx, "lookup table not visible yet", "table", table.String())
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get table account: %w", err)
	}
	if res == nil || res.Value == nil {
		return nil, nil
	}
	if !res.Value.Owner.Equals(LookupTableProgramID) {
		return nil, fmt.Errorf("account %s is owned by %s, not the lookup table program",
			table, res.Value.Owner)
	}

	state, err := lookupstate.DecodeAddressLookupTableState(res.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("failed to decode table state: %w", err)
	}

	return &LookupTable{
		Address:          table,
		Authority:        state.Authority,
		Addresses:        state.Addresses,
		LastExtendedSlot: state.LastExtendedSlot,
		Deactivated:      state.DeactivationSlot != math.MaxUint64,
	}, nil
}

// AwaitLookupTable polls until the table is visible on chain with at least
// minAddresses entries. This replaces a fixed post-creation sleep: newly
// created accounts take a beat to become readable at confirmed commitment.
// The wait is bounded by ctx.
func (c *Client) AwaitLookupTable(ctx context.Context, table solana.PublicKey, minAddresses int) (*LookupTable, error) {
	ticker := time.NewTicker(c.tablePollInterval)
	defer ticker.Stop()

	for {
		state, err := c.FetchLookupTable(ctx, table)
		if err != nil {
			return nil, err
		}
		if state != nil && len(state.Addresses) >= minAddresses {
			c.logger.InfoContext(ctx, "lookup table visible",
				"table", table.String(),
				"addresses", len(state.Addresses),
			)
			return state, nil
		}

		c.logger.DebugContext(ctx, "waiting for lookup table",
			"table", table.String(),
			"want_addresses", minAddresses,
		)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lookup table %s not visible with %d addresses: %w",
				table, minAddresses, ctx.Err())
		case <-ticker.C:
		}
	}
}

// SubmitTransaction fetches a fresh blockhash, builds a transaction from
// the given instructions paid and signed by signer, sends it, and waits for
// confirmation. The blockhash is fetched immediately before signing because
// its validity window is short and enforced by the cluster.
func (c *Client) SubmitTransaction(ctx context.Context, signer solana.PrivateKey, instructions []solana.Instruction) (*SubmitResult, error) {
	start := time.Now()
	blockhash, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.observeRPC("GetLatestBlockhash", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	tx, err := solana.NewTransaction(
		instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(signer.PublicKey()),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build transaction: %w", err)
	}

	if _, err := tx.Sign(signerGetter(signer)); err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	sendStart := time.Now()
	sig, err := c.rpc.SendTransaction(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: c.commitment,
	})
	c.observeRPC("SendTransaction", sendStart, err)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordSubmission(c.endpoint, "rejected")
		}
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	c.logger.DebugContext(ctx, "transaction sent, awaiting confirmation",
		"signature", sig.String(),
		"last_valid_block_height", blockhash.Value.LastValidBlockHeight,
	)

	slot, err := c.awaitConfirmation(ctx, sig, blockhash.Value.LastValidBlockHeight)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordSubmission(c.endpoint, "unconfirmed")
		}
		return nil, err
	}

	if c.metrics != nil {
		c.metrics.RecordSubmission(c.endpoint, "confirmed")
		c.metrics.RecordConfirmLatency(c.endpoint, time.Since(sendStart).Seconds())
	}

	c.logger.InfoContext(ctx, "transaction confirmed",
		"signature", sig.String(),
		"slot", slot,
	)

	return &SubmitResult{
		Signature:            sig,
		Slot:                 slot,
		Blockhash:            blockhash.Value.Blockhash,
		LastValidBlockHeight: blockhash.Value.LastValidBlockHeight,
	}, nil
}

// awaitConfirmation polls signature status until the transaction is
// confirmed, its blockhash expires, or ctx is done.
func (c *Client) awaitConfirmation(ctx context.Context, sig solana.Signature, lastValidBlockHeight uint64) (uint64, error) {
	ticker := time.NewTicker(c.confirmInterval)
	defer ticker.Stop()

	for {
		start := time.Now()
		statuses, err := c.rpc.GetSignatureStatuses(ctx, false, sig)
		c.observeRPC("GetSignatureStatuses", start, err)
		if err != nil {
			c.logger.WarnContext(ctx, "failed to get signature status",
				"signature", sig.String(),
				"error", err,
			)
		} else if len(statuses.Value) > 0 && statuses.Value[0] != nil {
			status := statuses.Value[0]
			if status.Err != nil {
				return 0, fmt.Errorf("%w: %v", ErrTransactionFailed, status.Err)
			}
			if status.ConfirmationStatus == rpc.ConfirmationStatusConfirmed ||
				status.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return status.Slot, nil
			}
		}

		// The blockhash validity window is measured in block height, not
		// slots. Once the chain passes it, the transaction can never land.
		heightStart := time.Now()
		height, heightErr := c.rpc.GetBlockHeight(ctx, c.commitment)
		c.observeRPC("GetBlockHeight", heightStart, heightErr)
		if heightErr == nil && height > lastValidBlockHeight {
			return 0, fmt.Errorf("signature %s: %w", sig, ErrBlockhashExpired)
		}

		select {
		case <-ctx.Done():
			return 0, fmt.Errorf("confirmation wait aborted for %s: %w", sig, ctx.Err())
		case <-ticker.C:
		}
	}
}

// CompareTransactionSizes fetches the table's current contents and a fresh
// blockhash, then builds two equivalent transfer transactions (one per table
// address) and reports their serialized sizes with and without the table.
func (c *Client) CompareTransactionSizes(ctx context.Context, payer solana.PrivateKey, table solana.PublicKey) (*SizeComparison, error) {
	state, err := c.FetchLookupTable(ctx, table)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, fmt.Errorf("lookup table %s not found", table)
	}
	if len(state.Addresses) == 0 {
		return nil, fmt.Errorf("lookup table %s holds no addresses", table)
	}

	start := time.Now()
	blockhash, err := c.rpc.GetLatestBlockhash(ctx, c.commitment)
	c.observeRPC("GetLatestBlockhash", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest blockhash: %w", err)
	}

	return BuildSizeComparison(payer, blockhash.Value.Blockhash, table, state.Addresses)
}

// signerGetter returns the private key for the signer's own public key and
// nil for everything else.
func signerGetter(signer solana.PrivateKey) func(solana.PublicKey) *solana.PrivateKey {
	return func(key solana.PublicKey) *solana.PrivateKey {
		if signer.PublicKey().Equals(key) {
			return &signer
		}
		return nil
	}
}
