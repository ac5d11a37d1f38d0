package natsbot

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Client sends placement requests to a Bot.
type Client struct {
	nc      *nats.Conn
	subject string
}

// NewClient creates a client publishing on subject.
func NewClient(nc *nats.Conn, subject string) *Client {
	return &Client{nc: nc, subject: subject}
}

// MakeRequest encodes a request.
func MakeRequest(board [][]int, piece string) ([]byte, error) {
	return json.Marshal(Request{Board: board, Piece: piece})
}

// RequestMove asks the bot where to place piece on board.
func (c *Client) RequestMove(ctx context.Context, board [][]int, piece string) (*Response, error) {
	data, err := MakeRequest(board, piece)
	if err != nil {
		return nil, err
	}
	msg, err := c.nc.RequestWithContext(ctx, c.subject, data)
	if err != nil {
		if c.nc.LastError() != nil {
			log.Error().Err(c.nc.LastError()).Msg("request-failed")
		}
		return nil, err
	}
	log.Debug().Str("res", string(msg.Data)).Msg("reply")
	return DecodeResponse(msg.Data)
}

// DecodeResponse parses a reply, turning an error reply into an error.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, errors.New("bot returned: " + resp.Error)
	}
	return &resp, nil
}
