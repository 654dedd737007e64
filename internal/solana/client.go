// internal/solana/client.go
package solana

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

const (
	healthCheckInterval = 30 * time.Second
	reconnectDelay      = 5 * time.Second
	maxNodeRetries      = 3
	requestTimeout      = 10 * time.Second
)

// node wraps one RPC endpoint with liveness and latency tracking.
type node struct {
	client *solanarpc.Client
	url    string
	active atomic.Bool

	mu             sync.Mutex
	successCount   uint64
	errorCount     uint64
	averageLatency time.Duration
}

func (n *node) recordResult(success bool, latency time.Duration) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if success {
		n.successCount++
	} else {
		n.errorCount++
	}
	n.averageLatency = (n.averageLatency + latency) / 2
}

// Client is a multi-endpoint Solana RPC client with health-checked
// round-robin failover, used for every chain read/write the engine issues:
// account lookups, blockhash/slot reads, simulation and submission.
type Client struct {
	nodes  []*node
	logger *zap.Logger

	mu      sync.Mutex
	current int

	ctx    context.Context
	cancel context.CancelFunc
}

// NewClient dials every RPC URL and starts a background health-check loop
// that demotes and later reinstates unreachable nodes.
func NewClient(rpcURLs []string, logger *zap.Logger) (*Client, error) {
	if len(rpcURLs) == 0 {
		return nil, fmt.Errorf("no RPC URLs provided")
	}

	ctx, cancel := context.WithCancel(context.Background())
	c := &Client{
		nodes:  make([]*node, 0, len(rpcURLs)),
		logger: logger.Named("solana-client"),
		ctx:    ctx,
		cancel: cancel,
	}

	for _, u := range rpcURLs {
		n := &node{client: solanarpc.New(u), url: u}
		n.active.Store(true)
		c.nodes = append(c.nodes, n)
	}

	if err := c.validateConnections(ctx); err != nil {
		cancel()
		return nil, err
	}

	go c.healthCheckLoop()
	return c, nil
}

func (c *Client) validateConnections(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var wg sync.WaitGroup
	for _, n := range c.nodes {
		wg.Add(1)
		go func(n *node) {
			defer wg.Done()
			if !c.checkNodeHealth(ctx, n) {
				n.active.Store(false)
				c.logger.Warn("RPC node failed initial health check", zap.String("url", n.url))
			}
		}(n)
	}
	wg.Wait()

	if !c.hasActiveNode() {
		return fmt.Errorf("no active RPC connections available")
	}
	return nil
}

func (c *Client) checkNodeHealth(ctx context.Context, n *node) bool {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	_, err := n.client.GetVersion(ctx)
	n.recordResult(err == nil, time.Since(start))
	return err == nil
}

func (c *Client) healthCheckLoop() {
	ticker := time.NewTicker(healthCheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			for _, n := range c.nodes {
				healthy := c.checkNodeHealth(c.ctx, n)
				wasActive := n.active.Load()
				n.active.Store(healthy)
				if wasActive && !healthy {
					c.logger.Warn("RPC node marked inactive", zap.String("url", n.url))
				} else if !wasActive && healthy {
					c.logger.Info("RPC node recovered", zap.String("url", n.url))
				}
			}
		}
	}
}

func (c *Client) hasActiveNode() bool {
	for _, n := range c.nodes {
		if n.active.Load() {
			return true
		}
	}
	return false
}

func (c *Client) nextNode() *node {
	c.mu.Lock()
	defer c.mu.Unlock()

	start := c.current
	for i := 0; i < len(c.nodes); i++ {
		idx := (start + i) % len(c.nodes)
		if c.nodes[idx].active.Load() {
			c.current = (idx + 1) % len(c.nodes)
			return c.nodes[idx]
		}
	}
	return nil
}

// execute runs op against a healthy node, retrying on other nodes for
// retryable failures and demoting nodes that fail critically.
func (c *Client) execute(ctx context.Context, method string, op func(*solanarpc.Client) error) error {
	var lastErr error
	for attempt := 0; attempt < maxNodeRetries; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		n := c.nextNode()
		if n == nil {
			return ErrNoActiveNodes
		}

		start := time.Now()
		err := op(n.client)
		n.recordResult(err == nil, time.Since(start))

		if err == nil {
			return nil
		}
		wrapped := newRPCError(err, n.url, method)
		lastErr = wrapped

		if isCriticalError(wrapped) {
			n.active.Store(false)
			c.logger.Warn("RPC node demoted after critical error", zap.String("url", n.url), zap.Error(err))
			continue
		}
		if isRetryableError(wrapped) {
			time.Sleep(reconnectDelay / time.Duration(maxNodeRetries))
			continue
		}
		return wrapped
	}
	return fmt.Errorf("all retry attempts failed: %w", lastErr)
}

// GetAccountInfo fetches base64-encoded account data at confirmed commitment.
func (c *Client) GetAccountInfo(ctx context.Context, pubkey solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	var result *solanarpc.GetAccountInfoResult
	err := c.execute(ctx, "getAccountInfo", func(cl *solanarpc.Client) error {
		var err error
		result, err = cl.GetAccountInfoWithOpts(ctx, pubkey, &solanarpc.GetAccountInfoOpts{
			Encoding:   solana.EncodingBase64,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		return err
	})
	return result, err
}

// GetLatestBlockhash returns the finalized blockhash used to build a
// transaction's message.
func (c *Client) GetLatestBlockhash(ctx context.Context) (*solanarpc.GetLatestBlockhashResult, error) {
	var result *solanarpc.GetLatestBlockhashResult
	err := c.execute(ctx, "getLatestBlockhash", func(cl *solanarpc.Client) error {
		var err error
		result, err = cl.GetLatestBlockhash(ctx, solanarpc.CommitmentFinalized)
		return err
	})
	return result, err
}

// GetSlot returns the current confirmed slot, used to derive a recent-slot
// seed for address lookup table creation.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := c.execute(ctx, "getSlot", func(cl *solanarpc.Client) error {
		var err error
		slot, err = cl.GetSlot(ctx, solanarpc.CommitmentConfirmed)
		return err
	})
	return slot, err
}

// GetAddressLookupTable fetches an on-chain address lookup table's raw
// account; decoding it is left to the caller.
func (c *Client) GetAddressLookupTable(ctx context.Context, tableAddr solana.PublicKey) (*solanarpc.GetAccountInfoResult, error) {
	return c.GetAccountInfo(ctx, tableAddr)
}

// GetParsedTransaction fetches a confirmed transaction, base64-encoded,
// together with its status metadata (fee, pre/post token balances), which
// is what the discovery and backrun listeners and gas accounting read.
func (c *Client) GetParsedTransaction(ctx context.Context, sig solana.Signature) (*solanarpc.GetTransactionResult, error) {
	var result *solanarpc.GetTransactionResult
	maxVersion := uint64(0)
	err := c.execute(ctx, "getTransaction", func(cl *solanarpc.Client) error {
		var err error
		result, err = cl.GetTransaction(ctx, sig, &solanarpc.GetTransactionOpts{
			Encoding:                       solana.EncodingBase64,
			Commitment:                     solanarpc.CommitmentConfirmed,
			MaxSupportedTransactionVersion: &maxVersion,
		})
		return err
	})
	return result, err
}

// SimulateTransaction dry-runs a signed transaction to validate it before
// submission, per the preflight step of the orchestrator's main loop.
func (c *Client) SimulateTransaction(ctx context.Context, tx *solana.Transaction) (*solanarpc.SimulateTransactionResult, error) {
	var result *solanarpc.SimulateTransactionResult
	err := c.execute(ctx, "simulateTransaction", func(cl *solanarpc.Client) error {
		res, err := cl.SimulateTransactionWithOpts(ctx, tx, &solanarpc.SimulateTransactionOpts{
			SigVerify:  true,
			Commitment: solanarpc.CommitmentConfirmed,
		})
		if err != nil {
			return err
		}
		result = res.Value
		return nil
	})
	return result, err
}

// SendTransaction submits a signed transaction, skipping the node's own
// preflight since the caller already simulated it.
func (c *Client) SendTransaction(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	var sig solana.Signature
	err := c.execute(ctx, "sendTransaction", func(cl *solanarpc.Client) error {
		var err error
		sig, err = cl.SendTransactionWithOpts(ctx, tx, solanarpc.TransactionOpts{
			SkipPreflight:       true,
			PreflightCommitment: solanarpc.CommitmentConfirmed,
		})
		return err
	})
	return sig, err
}

// GetBalance returns pubkey's lamport balance, used by the orchestrator's
// preflight gas-floor check.
func (c *Client) GetBalance(ctx context.Context, pubkey solana.PublicKey) (uint64, error) {
	var lamports uint64
	err := c.execute(ctx, "getBalance", func(cl *solanarpc.Client) error {
		res, err := cl.GetBalance(ctx, pubkey, solanarpc.CommitmentConfirmed)
		if err != nil {
			return err
		}
		lamports = res.Value
		return nil
	})
	return lamports, err
}

// GetSignatureStatuses polls the confirmation status of a batch of
// signatures, used to confirm a submitted arbitrage transaction against
// the blockhash it was compiled with.
func (c *Client) GetSignatureStatuses(ctx context.Context, sigs []solana.Signature) ([]*solanarpc.SignatureStatusesResult, error) {
	var result *solanarpc.GetSignatureStatusesResult
	err := c.execute(ctx, "getSignatureStatuses", func(cl *solanarpc.Client) error {
		var err error
		result, err = cl.GetSignatureStatuses(ctx, true, sigs...)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result.Value, nil
}

// GetBlockHeight returns the current confirmed block height, used to
// detect a submitted transaction's expiry once its last-valid-block-height
// has been passed.
func (c *Client) GetBlockHeight(ctx context.Context) (uint64, error) {
	var height uint64
	err := c.execute(ctx, "getBlockHeight", func(cl *solanarpc.Client) error {
		var err error
		height, err = cl.GetBlockHeight(ctx, solanarpc.CommitmentConfirmed)
		return err
	})
	return height, err
}

// Close stops the background health-check loop.
func (c *Client) Close() {
	c.cancel()
}
