package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"go.uber.org/zap"
)

// LogsNotification is one decoded logsNotification value from the chain's
// push interface.
type LogsNotification struct {
	Slot      uint64
	Signature string
	Err       json.RawMessage // null when the transaction succeeded
	Logs      []string
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int64         `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type logsNotificationEnvelope struct {
	Method string `json:"method"`
	Params struct {
		Result struct {
			Context struct {
				Slot uint64 `json:"slot"`
			} `json:"context"`
			Value struct {
				Signature string          `json:"signature"`
				Err       json.RawMessage `json:"err"`
				Logs      []string        `json:"logs"`
			} `json:"value"`
		} `json:"result"`
		Subscription int64 `json:"subscription"`
	} `json:"params"`
}

// LogSubscriber is one logsSubscribe websocket connection, filtered to a
// single program via the "mentions" filter.
type LogSubscriber struct {
	conn      net.Conn
	logger    *zap.Logger
	programID solana.PublicKey
	nextID    atomic.Int64
}

// SubscribeLogs dials wsURL and issues a logsSubscribe request mentioning
// programID at the given commitment. Callers should stagger subscriptions
// (500ms apart is the documented figure) to avoid a burst rate-limit
// rejection when watching several programs.
func SubscribeLogs(ctx context.Context, wsURL string, programID solana.PublicKey, commitment string, logger *zap.Logger) (*LogSubscriber, error) {
	conn, _, _, err := ws.Dial(ctx, wsURL)
	if err != nil {
		return nil, fmt.Errorf("dialing log subscription websocket: %w", err)
	}

	s := &LogSubscriber{conn: conn, logger: logger.Named("logsub"), programID: programID}

	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      s.nextID.Add(1),
		Method:  "logsSubscribe",
		Params: []interface{}{
			map[string]interface{}{"mentions": []string{programID.String()}},
			map[string]interface{}{"commitment": commitment},
		},
	}
	payload, err := json.Marshal(req)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("encoding logsSubscribe request: %w", err)
	}
	if err := wsutil.WriteClientText(conn, payload); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sending logsSubscribe request: %w", err)
	}

	// Drain the subscription-confirmation reply (an integer subscription
	// id, not a notification) before the caller starts calling Next.
	if _, err := s.readFrame(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("reading logsSubscribe confirmation: %w", err)
	}

	return s, nil
}

// Next blocks for the next log notification. It returns (zero, false, nil)
// for frames that are not logsNotification (e.g. keepalives), so callers
// should call it in a loop.
func (s *LogSubscriber) Next(ctx context.Context) (LogsNotification, bool, error) {
	type result struct {
		notif LogsNotification
		ok    bool
		err   error
	}
	done := make(chan result, 1)
	go func() {
		data, err := s.readFrame()
		if err != nil {
			done <- result{err: err}
			return
		}
		var env logsNotificationEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			done <- result{err: fmt.Errorf("decoding logs notification: %w", err)}
			return
		}
		if env.Method != "logsNotification" {
			done <- result{}
			return
		}
		done <- result{ok: true, notif: LogsNotification{
			Slot:      env.Params.Result.Context.Slot,
			Signature: env.Params.Result.Value.Signature,
			Err:       env.Params.Result.Value.Err,
			Logs:      env.Params.Result.Value.Logs,
		}}
	}()

	select {
	case <-ctx.Done():
		return LogsNotification{}, false, ctx.Err()
	case r := <-done:
		return r.notif, r.ok, r.err
	}
}

func (s *LogSubscriber) readFrame() ([]byte, error) {
	s.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	data, _, err := wsutil.ReadServerData(s.conn)
	return data, err
}

// Close terminates the underlying websocket connection.
func (s *LogSubscriber) Close() error {
	return s.conn.Close()
}
