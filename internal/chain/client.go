// YouTube-Synch - mirrors YouTube channels onto the Joystream network
// Copyright 2026 Joystream contributors
// SPDX-License-Identifier: GPL-3.0-or-later
// https://github.com/WRadoslaw/youtube-synch

package chain

import (
	"context"
	"encoding/hex"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/WRadoslaw/youtube-synch/internal/logging"
	"github.com/WRadoslaw/youtube-synch/internal/metrics"
	"github.com/WRadoslaw/youtube-synch/internal/model"
)

// Runtime creates on-chain video records. The sync pipeline consumes this
// interface; tests substitute a fake.
type Runtime interface {
	CreateVideo(ctx context.Context, p CreateVideoParams) (TxOutcome, error)
}

// SignedExtrinsic is a ready-to-submit transaction produced by the builder.
type SignedExtrinsic struct {
	Data []byte
	Hash string
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Client is the WebSocket JSON-RPC session against the Joystream node.
// Submissions from the same collaborator account are serialized; the write
// side of the socket is serialized independently.
type Client struct {
	url     string
	account string
	builder ExtrinsicBuilder
	decoder EventDecoder
	signers *signerLocks

	connMu  sync.Mutex
	conn    *websocket.Conn
	writeMu sync.Mutex

	nextID    atomic.Uint64
	pendingMu sync.Mutex
	pending   map[uint64]chan *rpcResponse
	subsMu    sync.Mutex
	subs      map[string]chan json.RawMessage
}

// NewClient builds a runtime client for one collaborator account.
func NewClient(url, account string, builder ExtrinsicBuilder, decoder EventDecoder) *Client {
	return &Client{
		url:     url,
		account: account,
		builder: builder,
		decoder: decoder,
		signers: newSignerLocks(),
		pending: make(map[uint64]chan *rpcResponse),
		subs:    make(map[string]chan json.RawMessage),
	}
}

// Close tears down the socket; in-flight calls fail with ApiNotConnected.
func (c *Client) Close() error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// CreateVideo submits the createVideo extrinsic and waits for finalization.
// State interpretation:
//
//	Finalized          - block landed; caller inspects events
//	Failed             - ExtrinsicFailed dispatched by the runtime
//	Rejected           - node refused the submission (retryable)
//	error SignCancelled - the builder refused to sign (retryable)
//	error ApiNotConnected - transport lost (retryable)
func (c *Client) CreateVideo(ctx context.Context, p CreateVideoParams) (TxOutcome, error) {
	lock := c.signers.forAccount(c.account)
	lock.Lock()
	defer lock.Unlock()

	if err := c.ensureConnected(ctx); err != nil {
		return nil, err
	}

	nonce, err := c.accountNonce(ctx)
	if err != nil {
		return nil, err
	}

	ext, err := c.builder.BuildCreateVideo(c.account, nonce, p)
	if err != nil {
		return nil, model.WrapError(model.ErrSignCancelled, "build createVideo extrinsic", err)
	}

	subID, sub, err := c.submitAndWatch(ctx, ext)
	if err != nil {
		return nil, err
	}
	if subID == "" {
		// JSON-RPC error on submission: the pool refused the extrinsic.
		return Rejected{Reason: "submission refused"}, nil
	}
	defer c.dropSubscription(subID)

	for {
		select {
		case <-ctx.Done():
			return nil, model.WrapError(model.ErrApiNotConnected, "finalization wait", ctx.Err())
		case raw, ok := <-sub:
			if !ok {
				return nil, model.NewError(model.ErrApiNotConnected, "subscription closed before finalization")
			}
			outcome, done, err := c.handleStatus(raw, ext)
			if err != nil {
				return nil, err
			}
			if done {
				return outcome, nil
			}
		}
	}
}

// handleStatus interprets one author_extrinsicUpdate payload.
func (c *Client) handleStatus(raw json.RawMessage, ext *SignedExtrinsic) (TxOutcome, bool, error) {
	var status map[string]json.RawMessage
	if err := json.Unmarshal(raw, &status); err != nil {
		// "ready" and "broadcast" arrive as bare strings; ignore them.
		return nil, false, nil
	}
	if _, dropped := status["dropped"]; dropped {
		return Rejected{Reason: "dropped from transaction pool"}, true, nil
	}
	if _, invalid := status["invalid"]; invalid {
		return Rejected{Reason: "marked invalid by the pool"}, true, nil
	}
	if _, usurped := status["usurped"]; usurped {
		return Rejected{Reason: "usurped by a competing extrinsic"}, true, nil
	}
	blockRaw, finalized := status["finalized"]
	if !finalized {
		return nil, false, nil
	}

	var blockHash string
	if err := json.Unmarshal(blockRaw, &blockHash); err != nil {
		return nil, false, err
	}
	events, err := c.decoder.DecodeEvents(blockHash, ext.Hash)
	if err != nil {
		return nil, false, model.WrapError(model.ErrUnknown, "decode events", err)
	}
	fin := Finalized{BlockHash: blockHash, Events: events}
	if failedEv, ok := fin.FindEvent("system", "ExtrinsicFailed"); ok {
		msg := ""
		if len(failedEv.Values) > 0 {
			msg = failedEv.Values[0]
		}
		return Failed{Kind: classifyDispatchError(msg), Msg: msg}, true, nil
	}
	return fin, true, nil
}

func (c *Client) submitAndWatch(ctx context.Context, ext *SignedExtrinsic) (string, chan json.RawMessage, error) {
	resp, err := c.call(ctx, "author_submitAndWatchExtrinsic", "0x"+hex.EncodeToString(ext.Data))
	if err != nil {
		return "", nil, err
	}
	if resp.Error != nil {
		logging.Warn().Int("code", resp.Error.Code).Str("msg", resp.Error.Message).Msg("extrinsic submission refused")
		return "", nil, nil
	}
	var subID string
	if err := json.Unmarshal(resp.Result, &subID); err != nil {
		return "", nil, model.WrapError(model.ErrUnknown, "parse subscription id", err)
	}

	sub := make(chan json.RawMessage, 16)
	c.subsMu.Lock()
	c.subs[subID] = sub
	c.subsMu.Unlock()
	return subID, sub, nil
}

func (c *Client) dropSubscription(subID string) {
	c.subsMu.Lock()
	delete(c.subs, subID)
	c.subsMu.Unlock()
	_, _ = c.callNoWait("author_unwatchExtrinsic", subID)
}

func (c *Client) accountNonce(ctx context.Context) (uint64, error) {
	resp, err := c.call(ctx, "system_accountNextIndex", c.account)
	if err != nil {
		return 0, err
	}
	if resp.Error != nil {
		return 0, model.NewError(model.ErrUnknown, resp.Error.Message)
	}
	var nonce uint64
	if err := json.Unmarshal(resp.Result, &nonce); err != nil {
		return 0, model.WrapError(model.ErrUnknown, "parse nonce", err)
	}
	return nonce, nil
}

// call performs one request/response round trip.
func (c *Client) call(ctx context.Context, method string, params ...any) (*rpcResponse, error) {
	id, ch, err := c.send(method, params)
	if err != nil {
		return nil, err
	}
	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
	}()

	select {
	case <-ctx.Done():
		return nil, model.WrapError(model.ErrApiNotConnected, method, ctx.Err())
	case resp, ok := <-ch:
		if !ok {
			return nil, model.NewError(model.ErrApiNotConnected, method)
		}
		return resp, nil
	}
}

// callNoWait fires a request without waiting for the response (unwatch).
func (c *Client) callNoWait(method string, params ...any) (uint64, error) {
	id, _, err := c.send(method, params)
	return id, err
}

func (c *Client) send(method string, params []any) (uint64, chan *rpcResponse, error) {
	c.connMu.Lock()
	conn := c.conn
	c.connMu.Unlock()
	if conn == nil {
		return 0, nil, model.NewError(model.ErrApiNotConnected, "not connected")
	}

	id := c.nextID.Add(1)
	ch := make(chan *rpcResponse, 1)
	c.pendingMu.Lock()
	c.pending[id] = ch
	c.pendingMu.Unlock()

	req := rpcRequest{JSONRPC: "2.0", ID: id, Method: method, Params: params}
	c.writeMu.Lock()
	err := conn.WriteJSON(req)
	c.writeMu.Unlock()
	if err != nil {
		c.pendingMu.Lock()
		delete(c.pending, id)
		c.pendingMu.Unlock()
		c.disconnect()
		return 0, nil, model.WrapError(model.ErrApiNotConnected, method, err)
	}
	return id, ch, nil
}

func (c *Client) ensureConnected(ctx context.Context) error {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return model.WrapError(model.ErrApiNotConnected, fmt.Sprintf("dial %s", c.url), err)
	}
	c.conn = conn
	go c.readLoop(conn)
	logging.Info().Str("url", c.url).Msg("connected to joystream node")
	return nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		var resp rpcResponse
		if err := conn.ReadJSON(&resp); err != nil {
			logging.Warn().Err(err).Msg("node websocket read failed")
			c.disconnect()
			return
		}
		switch {
		case resp.Method == "author_extrinsicUpdate":
			c.subsMu.Lock()
			sub, ok := c.subs[resp.Params.Subscription]
			c.subsMu.Unlock()
			if ok {
				select {
				case sub <- resp.Params.Result:
				default:
					// A stalled watcher must not block the read loop.
				}
			}
		case resp.ID != 0:
			c.pendingMu.Lock()
			ch, ok := c.pending[resp.ID]
			c.pendingMu.Unlock()
			if ok {
				r := resp
				ch <- &r
			}
		}
	}
}

// disconnect drops the socket and fails every pending call and subscription
// so waiters observe ApiNotConnected instead of hanging.
func (c *Client) disconnect() {
	c.connMu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.connMu.Unlock()

	c.pendingMu.Lock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.pendingMu.Unlock()

	c.subsMu.Lock()
	for id, sub := range c.subs {
		close(sub)
		delete(c.subs, id)
	}
	c.subsMu.Unlock()

	metrics.ExtrinsicOutcomes.WithLabelValues("disconnected").Inc()
}
