// Package backrun watches the same venue program logs the discovery
// listener does, but for large swaps rather than new pools: a qualifying
// swap emits a BackrunSignal that the orchestrator probes at two sizes
// and executes if profitable.
package backrun

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	solanarpc "github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"github.com/solarb/flashbot/internal/discovery"
	"github.com/solarb/flashbot/internal/gateway"
	solclient "github.com/solarb/flashbot/internal/solana"
)

const (
	subscriptionStagger = 500 * time.Millisecond

	// rateLimitCapacity/rateLimitWindow bound expensive parsed-transaction
	// fetches to 3 per 10s, independent of how many swap-shaped log lines
	// arrive in that window.
	rateLimitCapacity = 3
	rateLimitWindow   = 10 * time.Second

	largeUSDCThreshold   = 1_000 * 1_000_000  // 1,000 USDC at 6 decimals
	largeNativeThreshold = 5 * 1_000_000_000  // 5 SOL at 9 decimals

	probeSmall = 50 * 1_000_000  // 50 USDC
	probeLarge = 500 * 1_000_000 // 500 USDC
)

var swapLogPatterns = []string{
	"Instruction: Swap",
	"Instruction: SwapV2",
	"Instruction: ExactIn",
	"Instruction: ExactOut",
	"ray_log",
}

// BackrunSignal is emitted when a parsed transaction's token-balance
// deltas describe a large swap worth probing for a backrun opportunity.
type BackrunSignal struct {
	Signature string
	Program   solana.PublicKey
	TokenIn   solana.PublicKey
	TokenOut  solana.PublicKey
	AmountIn  int64
	AmountOut int64
	Probes    [2]uint64
}

// Listener watches venue program logs for large swaps.
type Listener struct {
	client     *solclient.Client
	wsURL      string
	programs   []solana.PublicKey
	usdcMint   solana.PublicKey
	nativeMint solana.PublicKey
	logger     *zap.Logger

	sigs   *discovery.SignatureSet
	bucket *gateway.Bucket
}

// NewListener builds a backrun listener over the given venue programs.
func NewListener(client *solclient.Client, wsURL string, programs []solana.PublicKey, usdcMint, nativeMint solana.PublicKey, logger *zap.Logger) *Listener {
	return &Listener{
		client:     client,
		wsURL:      wsURL,
		programs:   programs,
		usdcMint:   usdcMint,
		nativeMint: nativeMint,
		logger:     logger.Named("backrun"),
		sigs:       discovery.NewSignatureSet(),
		bucket:     gateway.NewBucket(rateLimitCapacity, rateLimitCapacity/rateLimitWindow.Seconds()),
	}
}

// Run subscribes to every configured program, staggered, and invokes
// onSignal for each accepted large swap. It blocks until ctx is canceled.
func (l *Listener) Run(ctx context.Context, onSignal func(BackrunSignal)) error {
	subs := make([]*solclient.LogSubscriber, 0, len(l.programs))
	for i, program := range l.programs {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(subscriptionStagger):
			}
		}
		sub, err := solclient.SubscribeLogs(ctx, l.wsURL, program, "confirmed", l.logger)
		if err != nil {
			l.logger.Warn("failed to subscribe to program logs", zap.String("program", program.String()), zap.Error(err))
			continue
		}
		subs = append(subs, sub)
		go l.watch(ctx, sub, program, onSignal)
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (l *Listener) watch(ctx context.Context, sub *solclient.LogSubscriber, program solana.PublicKey, onSignal func(BackrunSignal)) {
	for {
		notif, ok, err := sub.Next(ctx)
		if err != nil {
			if ctx.Err() == nil {
				l.logger.Warn("log subscription read failed", zap.String("program", program.String()), zap.Error(err))
			}
			return
		}
		if !ok {
			continue
		}
		l.handleNotification(ctx, program, notif, onSignal)
	}
}

func (l *Listener) handleNotification(ctx context.Context, program solana.PublicKey, notif solclient.LogsNotification, onSignal func(BackrunSignal)) {
	if len(notif.Err) > 0 && string(notif.Err) != "null" {
		return
	}
	if !matchesSwap(notif.Logs) {
		return
	}
	if l.sigs.SeenBefore(notif.Signature) {
		return
	}
	if !l.bucket.TryAcquire() {
		l.logger.Debug("dropping swap candidate, parse rate limit exhausted", zap.String("signature", notif.Signature))
		return
	}

	signal, ok, err := l.parseSignal(ctx, program, notif.Signature)
	if err != nil {
		l.logger.Debug("failed to parse candidate swap tx", zap.String("signature", notif.Signature), zap.Error(err))
		return
	}
	if !ok {
		return
	}
	onSignal(signal)
}

func matchesSwap(logs []string) bool {
	for _, line := range logs {
		for _, pattern := range swapLogPatterns {
			if strings.Contains(line, pattern) {
				return true
			}
		}
	}
	return false
}

// parseSignal fetches the parsed transaction, sums token-balance deltas
// per mint, and picks the largest-magnitude outflow/inflow pair. ok is
// false when no qualifying (in, out) pair with a USDC- or native-sized
// leg is found.
func (l *Listener) parseSignal(ctx context.Context, program solana.PublicKey, signature string) (BackrunSignal, bool, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return BackrunSignal{}, false, err
	}
	tx, err := l.client.GetParsedTransaction(ctx, sig)
	if err != nil {
		return BackrunSignal{}, false, err
	}
	if tx == nil || tx.Meta == nil {
		return BackrunSignal{}, false, nil
	}

	deltas := tokenDeltas(tx.Meta.PreTokenBalances, tx.Meta.PostTokenBalances)
	if native := nativeDelta(tx.Meta.PreBalances, tx.Meta.PostBalances, tx.Meta.Fee); native != 0 {
		deltas[l.nativeMint] += native
	}

	var inMint, outMint solana.PublicKey
	var inAmount, outAmount int64
	for mint, delta := range deltas {
		if delta < inAmount {
			inAmount = delta
			inMint = mint
		}
		if delta > outAmount {
			outAmount = delta
			outMint = mint
		}
	}
	if inMint.IsZero() || outMint.IsZero() || inAmount == 0 || outAmount == 0 {
		return BackrunSignal{}, false, nil
	}

	if !isLarge(inMint, inAmount, l.usdcMint, l.nativeMint) && !isLarge(outMint, outAmount, l.usdcMint, l.nativeMint) {
		return BackrunSignal{}, false, nil
	}

	return BackrunSignal{
		Signature: signature,
		Program:   program,
		TokenIn:   inMint,
		TokenOut:  outMint,
		AmountIn:  -inAmount,
		AmountOut: outAmount,
		Probes:    [2]uint64{probeSmall, probeLarge},
	}, true, nil
}

func isLarge(mint solana.PublicKey, amount int64, usdcMint, nativeMint solana.PublicKey) bool {
	abs := amount
	if abs < 0 {
		abs = -abs
	}
	switch {
	case mint.Equals(usdcMint):
		return abs > largeUSDCThreshold
	case mint.Equals(nativeMint):
		return abs > largeNativeThreshold
	default:
		return false
	}
}

// tokenDeltas sums post-pre token amounts per mint across every account
// touched by the transaction, matched by account index.
func tokenDeltas(pre, post []solanarpc.TokenBalance) map[solana.PublicKey]int64 {
	preByIndex := make(map[uint16]solanarpc.TokenBalance, len(pre))
	for _, b := range pre {
		preByIndex[uint16(b.AccountIndex)] = b
	}

	deltas := make(map[solana.PublicKey]int64)
	for _, p := range post {
		prevAmount := int64(0)
		if prev, ok := preByIndex[uint16(p.AccountIndex)]; ok {
			prevAmount = parseAmount(prev.UiTokenAmount)
		}
		delta := parseAmount(p.UiTokenAmount) - prevAmount
		if delta != 0 {
			deltas[p.Mint] += delta
		}
	}
	return deltas
}

func parseAmount(amt *solanarpc.UiTokenAmount) int64 {
	if amt == nil {
		return 0
	}
	v, err := strconv.ParseInt(amt.Amount, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

func nativeDelta(pre, post []uint64, fee uint64) int64 {
	if len(pre) == 0 || len(post) == 0 {
		return 0
	}
	// index 0 is conventionally the fee payer; its own balance drop
	// includes the fee, which isn't part of the swap, so add it back.
	return int64(post[0]) - int64(pre[0]) + int64(fee)
}
