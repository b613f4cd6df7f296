// Package terminal implements the client side of the trading-terminal
// bridge: a WebSocket connection carrying JSON request/response frames for
// session auth, historical quote retrieval, and symbol listing.
package terminal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pquerna/otp/totp"

	"ichimoku-apiv1/internal/model"
)

// ErrNotConnected is returned by requests while no authenticated bridge
// session exists.
var ErrNotConnected = errors.New("terminal: bridge not connected")

// Config holds connection and session settings for the bridge client.
type Config struct {
	// URL of the bridge WebSocket, e.g. "ws://localhost:8765/ws".
	URL string

	// Terminal account credentials.
	Login    string
	Password string
	Server   string

	// TOTPSecret, when set, adds a fresh TOTP code to the auth frame.
	TOTPSecret string

	// RequestTimeout bounds a single request/response exchange. Defaults to 10s.
	RequestTimeout time.Duration

	// ReconnectDelay is the initial delay before reconnection attempts.
	// Defaults to 2 seconds; backoff doubles up to MaxReconnectDelay (30s).
	ReconnectDelay    time.Duration
	MaxReconnectDelay time.Duration
}

func (c *Config) defaults() {
	if c.RequestTimeout == 0 {
		c.RequestTimeout = 10 * time.Second
	}
	if c.ReconnectDelay == 0 {
		c.ReconnectDelay = 2 * time.Second
	}
	if c.MaxReconnectDelay == 0 {
		c.MaxReconnectDelay = 30 * time.Second
	}
}

// request is a single JSON frame sent to the bridge.
type request struct {
	Action string `json:"action"`
	ID     int64  `json:"id"`

	// auth
	Login    string `json:"login,omitempty"`
	Password string `json:"password,omitempty"`
	Server   string `json:"server,omitempty"`
	TOTP     string `json:"totp,omitempty"`

	// rates: which dates are set selects the bridge-side fetch shape
	// (range / from-start / latest-by-position).
	Symbol    string `json:"symbol,omitempty"`
	Timeframe int    `json:"timeframe,omitempty"`
	Count     int    `json:"count,omitempty"`
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

// response is a single JSON frame received from the bridge.
type response struct {
	ID      int64       `json:"id"`
	Status  string      `json:"status"`
	Error   string      `json:"error,omitempty"`
	Rates   []model.Bar `json:"rates,omitempty"`
	Symbols []string    `json:"symbols,omitempty"`
}

// Client is a reconnecting bridge client. Requests are correlated to
// responses by frame id, so independent HTTP handlers may call it
// concurrently.
type Client struct {
	cfg Config

	nextID atomic.Int64

	mu        sync.Mutex // guards conn, connected, pending
	conn      *websocket.Conn
	connected bool
	pending   map[int64]chan response

	wmu sync.Mutex // serializes frame writes

	// Optional hook — called each time a reconnection happens.
	OnReconnect func()
}

// New creates a Client. Returns an error if the URL is unparseable.
func New(cfg Config) (*Client, error) {
	cfg.defaults()
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("terminal: parse url: %w", err)
	}
	return &Client{
		cfg:     cfg,
		pending: make(map[int64]chan response),
	}, nil
}

// IsConnected reports whether an authenticated session is up.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Run maintains the bridge session: dial, authenticate, serve requests,
// reconnect with exponential backoff on disconnect. Blocks until ctx is
// cancelled.
func (c *Client) Run(ctx context.Context) error {
	delay := c.cfg.ReconnectDelay

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		err := c.runOnce(ctx)
		if err == nil {
			return nil // ctx cancelled cleanly
		}

		log.Printf("[terminal] session ended (%v), reconnecting in %s...", err, delay)
		if c.OnReconnect != nil {
			c.OnReconnect()
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		delay *= 2
		if delay > c.cfg.MaxReconnectDelay {
			delay = c.cfg.MaxReconnectDelay
		}
	}
}

// runOnce makes a single connection attempt: dial, auth, then read frames
// until disconnect or ctx cancel.
func (c *Client) runOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	// Close the connection when ctx is cancelled so the read loop unblocks.
	go func() {
		<-ctx.Done()
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "shutdown"))
		conn.Close()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- c.readLoop(conn) }()

	if err := c.authenticate(ctx); err != nil {
		conn.Close()
		<-errCh
		c.teardown()
		return fmt.Errorf("auth: %w", err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	log.Printf("[terminal] session established with %s (server=%s)", c.cfg.URL, c.cfg.Server)

	err = c.readLoopResult(ctx, errCh)
	c.teardown()
	return err
}

func (c *Client) readLoopResult(ctx context.Context, errCh <-chan error) error {
	err := <-errCh
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// teardown drops the session and fails all in-flight requests.
func (c *Client) teardown() {
	c.mu.Lock()
	c.connected = false
	c.conn = nil
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
	c.mu.Unlock()
}

// readLoop dispatches response frames to their pending request channels.
func (c *Client) readLoop(conn *websocket.Conn) error {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var resp response
		if err := json.Unmarshal(raw, &resp); err != nil {
			log.Printf("[terminal] parse error: %v (raw: %s)", err, raw)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[resp.ID]
		if ok {
			delete(c.pending, resp.ID)
		}
		c.mu.Unlock()

		if !ok {
			log.Printf("[terminal] dropping frame with unknown id %d", resp.ID)
			continue
		}
		ch <- resp
	}
}

// authenticate sends the auth frame, attaching a fresh TOTP code when a
// secret is configured (terminals behind a shared-secret bridge).
func (c *Client) authenticate(ctx context.Context) error {
	req := request{
		Action:   "auth",
		Login:    c.cfg.Login,
		Password: c.cfg.Password,
		Server:   c.cfg.Server,
	}
	if c.cfg.TOTPSecret != "" {
		code, err := totp.GenerateCode(c.cfg.TOTPSecret, time.Now())
		if err != nil {
			return fmt.Errorf("generate totp: %w", err)
		}
		req.TOTP = code
	}

	resp, err := c.do(ctx, req)
	if err != nil {
		return err
	}
	if resp.Status != "ok" {
		return fmt.Errorf("bridge rejected session: %s", resp.Error)
	}
	return nil
}

// do sends one frame and waits for its correlated response.
func (c *Client) do(ctx context.Context, req request) (response, error) {
	req.ID = c.nextID.Add(1)
	ch := make(chan response, 1)

	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return response{}, ErrNotConnected
	}
	c.pending[req.ID] = ch
	c.mu.Unlock()

	c.wmu.Lock()
	err := conn.WriteJSON(req)
	c.wmu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, req.ID)
		c.mu.Unlock()
		return response{}, fmt.Errorf("write %s: %w", req.Action, err)
	}

	timeout := time.NewTimer(c.cfg.RequestTimeout)
	defer timeout.Stop()

	select {
	case <-ctx.Done():
		c.abandon(req.ID)
		return response{}, ctx.Err()
	case <-timeout.C:
		c.abandon(req.ID)
		return response{}, fmt.Errorf("%s: request timed out", req.Action)
	case resp, ok := <-ch:
		if !ok {
			return response{}, ErrNotConnected
		}
		return resp, nil
	}
}

func (c *Client) abandon(id int64) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

// Rates fetches OHLC bars for a symbol. The date arguments select the fetch
// shape on the bridge side: both set → range; start only → from that date;
// neither → the latest count bars. Bars come back ordered oldest first.
func (c *Client) Rates(ctx context.Context, symbol, timeframe string, count int, startDate, endDate string) ([]model.Bar, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	resp, err := c.do(ctx, request{
		Action:    "rates",
		Symbol:    symbol,
		Timeframe: TimeframeCode(timeframe),
		Count:     count,
		StartDate: startDate,
		EndDate:   endDate,
	})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("rates %s: %s", symbol, resp.Error)
	}
	return resp.Rates, nil
}

// Symbols fetches the list of symbols available on the terminal.
func (c *Client) Symbols(ctx context.Context) ([]string, error) {
	if !c.IsConnected() {
		return nil, ErrNotConnected
	}

	resp, err := c.do(ctx, request{Action: "symbols"})
	if err != nil {
		return nil, err
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("symbols: %s", resp.Error)
	}
	return resp.Symbols, nil
}
