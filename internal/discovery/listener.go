// Package discovery finds new candidate pairs two ways: a websocket log
// subscription that watches venue programs for pool-initialization
// transactions, and an HTTP poller that checks a pair-listing endpoint.
// Both funnel into the same NewPoolEvent callback.
package discovery

import (
	"context"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"

	solclient "github.com/solarb/flashbot/internal/solana"
)

// subscriptionStagger is the delay between registering successive program
// log subscriptions, to avoid a burst rate-limit rejection.
const subscriptionStagger = 500 * time.Millisecond

// poolInitPatterns are log-line substrings that indicate a pool was just
// created; venue programs vary in their exact instruction names.
var poolInitPatterns = []string{
	"initialize2",
	"create_pool",
	"InitializeLbPair",
	"CreatePool",
	"initialize_pool",
}

// NewPoolEvent is emitted when a log-subscription or HTTP-poll strategy
// finds a transaction that plausibly created a new pool.
type NewPoolEvent struct {
	Signature string
	Program   solana.PublicKey
	Mints     []solana.PublicKey
	Source    string // "log_subscription" or "http_poll"
}

// LogListener watches a set of venue programs' log streams for
// pool-initialization transactions.
type LogListener struct {
	client   *solclient.Client
	wsURL    string
	programs []solana.PublicKey
	logger   *zap.Logger

	sigs *SignatureSet
}

// NewLogListener builds a listener for the given venue programs.
func NewLogListener(client *solclient.Client, wsURL string, programs []solana.PublicKey, logger *zap.Logger) *LogListener {
	return &LogListener{
		client:   client,
		wsURL:    wsURL,
		programs: programs,
		logger:   logger.Named("discovery.log"),
		sigs:     NewSignatureSet(),
	}
}

// Run subscribes to every configured program, staggered, and invokes
// onEvent for each transaction that yields at least two distinct mints.
// It blocks until ctx is canceled; a subscription whose connection fails
// stops delivering events but does not end Run.
func (l *LogListener) Run(ctx context.Context, onEvent func(NewPoolEvent)) error {
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
		go l.watch(ctx, sub, program, onEvent)
	}
	defer func() {
		for _, sub := range subs {
			sub.Close()
		}
	}()

	<-ctx.Done()
	return ctx.Err()
}

func (l *LogListener) watch(ctx context.Context, sub *solclient.LogSubscriber, program solana.PublicKey, onEvent func(NewPoolEvent)) {
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
		l.handleNotification(ctx, program, notif, onEvent)
	}
}

func (l *LogListener) handleNotification(ctx context.Context, program solana.PublicKey, notif solclient.LogsNotification, onEvent func(NewPoolEvent)) {
	if len(notif.Err) > 0 && string(notif.Err) != "null" {
		return
	}
	if !matchesPoolInit(notif.Logs) {
		return
	}
	if l.sigs.SeenBefore(notif.Signature) {
		return
	}

	mints, err := l.extractMints(ctx, notif.Signature)
	if err != nil {
		l.logger.Debug("failed to extract mints from candidate pool tx", zap.String("signature", notif.Signature), zap.Error(err))
		return
	}
	if len(mints) < 2 {
		return
	}

	onEvent(NewPoolEvent{Signature: notif.Signature, Program: program, Mints: mints, Source: "log_subscription"})
}

func matchesPoolInit(logs []string) bool {
	for _, line := range logs {
		for _, pattern := range poolInitPatterns {
			if strings.Contains(line, pattern) {
				return true
			}
		}
	}
	return false
}

// extractMints fetches the parsed transaction and collects every distinct
// mint referenced by its pre/post token-balance records.
func (l *LogListener) extractMints(ctx context.Context, signature string) ([]solana.PublicKey, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, err
	}
	tx, err := l.client.GetParsedTransaction(ctx, sig)
	if err != nil {
		return nil, err
	}
	if tx == nil || tx.Meta == nil {
		return nil, nil
	}

	seen := make(map[solana.PublicKey]struct{})
	var mints []solana.PublicKey
	collect := func(mint solana.PublicKey) {
		if mint.IsZero() {
			return
		}
		if _, ok := seen[mint]; ok {
			return
		}
		seen[mint] = struct{}{}
		mints = append(mints, mint)
	}
	for _, bal := range tx.Meta.PreTokenBalances {
		collect(bal.Mint)
	}
	for _, bal := range tx.Meta.PostTokenBalances {
		collect(bal.Mint)
	}
	return mints, nil
}
