// Package natsbot answers placement requests over NATS request/reply.
package natsbot

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

// Request asks for the placement of one piece on a board.
type Request struct {
	Board [][]int `json:"board"` // Dump, top row first
	Piece string  `json:"piece"`
}

// Response is the decision, or Error when the request could not be served.
type Response struct {
	Orientation int     `json:"orientation"`
	Column      int     `json:"column"`
	Score       float64 `json:"score"`
	GameOver    bool    `json:"game_over"`
	Error       string  `json:"error,omitempty"`
}

// Bot serves decisions from a shared engine. Decisions are stateless, so
// concurrent requests never touch the engine's own board.
type Bot struct {
	engine *engine.Engine
}

// NewBot creates a bot around an engine.
func NewBot(e *engine.Engine) *Bot {
	return &Bot{engine: e}
}

func errorResponse(message string, err error) Response {
	return Response{Error: fmt.Sprintf("%s: %v", message, err)}
}

func (bot *Bot) decide(data []byte) Response {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return errorResponse("could not parse request", err)
	}
	b, err := bitboard.New(bot.engine.Rows(), bot.engine.Columns())
	if err != nil {
		return errorResponse("could not create board", err)
	}
	if err := b.Load(req.Board); err != nil {
		return errorResponse("invalid board", err)
	}
	d, err := bot.engine.DecideNamed(b, req.Piece)
	if err != nil {
		return errorResponse("could not decide", err)
	}
	log.Debug().Str("piece", req.Piece).Int("orientation", d.Move.Orientation).
		Int("column", d.Move.Column).Bool("found", d.Found).Msg("decided")
	return Response{
		Orientation: d.Move.Orientation,
		Column:      d.Move.Column,
		Score:       d.Score,
		GameOver:    !d.Found,
	}
}

// handle answers one encoded request with an encoded response.
func (bot *Bot) handle(data []byte) []byte {
	resp := bot.decide(data)
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(errorResponse("could not encode response", err))
	}
	return out
}

// Serve subscribes to subject on the NATS server at url and answers
// requests until ctx is done.
func (bot *Bot) Serve(ctx context.Context, url, subject string) error {
	nc, err := nats.Connect(url, nats.Name("tetris-engine"))
	if err != nil {
		return fmt.Errorf("failed to connect to nats: %w", err)
	}
	defer nc.Close()

	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		log.Debug().Int("bytes", len(m.Data)).Msg("recv")
		if err := m.Respond(bot.handle(m.Data)); err != nil {
			log.Err(err).Msg("respond-failed")
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	if err := nc.Flush(); err != nil {
		return err
	}
	if err := nc.LastError(); err != nil {
		return err
	}
	log.Info().Str("subject", subject).Msg("listening")

	<-ctx.Done()
	if err := sub.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		return err
	}
	return nil
}
