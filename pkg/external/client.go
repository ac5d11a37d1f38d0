package external

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Handler answers one frame with a command. An empty command sends nothing.
type Handler func(ctx context.Context, f *Frame) (string, error)

// ClientOptions configures the game server connection.
type ClientOptions struct {
	URL   string // Websocket endpoint without query
	User  string
	Token string
	Game  string // Defaults to "tetris"

	Delay    time.Duration // First reconnect delay (default 500ms)
	MaxDelay time.Duration // Reconnect backoff cap (default 30s)
	Dialer   *websocket.Dialer
}

// Client keeps a websocket session with the game server alive and feeds
// every frame to a handler.
type Client struct {
	opts     ClientOptions
	handler  Handler
	endpoint string
}

// EndpointURL adds the credentials to the server endpoint.
func EndpointURL(base, user, token, game string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("invalid server url scheme %q", u.Scheme)
	}
	q := u.Query()
	q.Set("user", user)
	q.Set("code", token)
	q.Set("gameName", game)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// NewClient validates the options and creates a client.
func NewClient(opts ClientOptions, h Handler) (*Client, error) {
	if opts.Game == "" {
		opts.Game = "tetris"
	}
	if opts.Delay <= 0 {
		opts.Delay = 500 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	endpoint, err := EndpointURL(opts.URL, opts.User, opts.Token, opts.Game)
	if err != nil {
		return nil, err
	}
	return &Client{opts: opts, handler: h, endpoint: endpoint}, nil
}

// Run connects and reconnects with exponential backoff until ctx is done.
func (c *Client) Run(ctx context.Context) error {
	err := retry.Do(
		func() error { return c.session(ctx) },
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(c.opts.Delay),
		retry.MaxDelay(c.opts.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.Err(err).Uint("attempt", n).Msg("api-reconnecting")
		}),
	)
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// errSessionClosed ends a session without a transport error so Run still
// reconnects.
var errSessionClosed = errors.New("external: session closed")

// session runs one connection until it drops.
func (c *Client) session(ctx context.Context) error {
	conn, _, err := c.opts.Dialer.DialContext(ctx, c.endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to dial game server: %w", err)
	}
	log.Info().Msg("api-connected")

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()
	defer conn.Close()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Info().Msg("api-disconnected")
				return errSessionClosed
			}
			return fmt.Errorf("read failed: %w", err)
		}

		frame, err := ParseFrame(data)
		if err != nil {
			log.Err(err).Msg("bad-frame")
			continue
		}
		cmd, err := c.handler(ctx, frame)
		if err != nil {
			log.Err(err).Msg("handler-failed")
			continue
		}
		if cmd == "" {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, []byte(cmd)); err != nil {
			return fmt.Errorf("write failed: %w", err)
		}
	}
}
