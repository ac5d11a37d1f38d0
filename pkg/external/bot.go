package external

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

// Publisher receives the board after every handled frame.
type Publisher interface {
	Publish(dump [][]int)
}

// BotOptions configures a Bot. Both fields are optional.
type BotOptions struct {
	Relay   Publisher
	History *engine.HistoryStore
}

// Bot answers server frames with commands, playing each figure on its
// engine.
type Bot struct {
	engine  *engine.Engine
	relay   Publisher
	history *engine.HistoryStore

	mu     sync.Mutex
	frames int
}

// NewBot creates a bot around an engine.
func NewBot(e *engine.Engine, opts BotOptions) *Bot {
	return &Bot{
		engine:  e,
		relay:   opts.Relay,
		history: opts.History,
	}
}

// Engine returns the bot's engine.
func (b *Bot) Engine() *engine.Engine { return b.engine }

// Frames returns the number of frames handled.
func (b *Bot) Frames() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frames
}

// HandleFrame returns the command answering f. Frames are handled one at a
// time.
func (b *Bot) HandleFrame(ctx context.Context, f *Frame) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.frames++

	t, err := Translate(f, b.engine.Catalog(), b.engine.Rows(), b.engine.Columns())
	if err != nil {
		return "", err
	}

	cmd := CmdSkip
	if t.Visible {
		if err := b.engine.SetBoard(t.Board); err != nil {
			return "", err
		}
		res, err := b.engine.Play(t.Kind)
		if err != nil {
			return "", err
		}
		if res.GameOver {
			log.Warn().Str("piece", t.Piece).Msg("no-surviving-placement")
		}
		total := len(b.engine.Catalog().Kind(t.Kind).Orientations)
		cmd, err = Command(t, res.Move, total)
		if err != nil {
			return "", err
		}
		b.record(ctx, res)
	}

	if b.relay != nil {
		b.relay.Publish(b.engine.Dump())
	}
	log.Info().Str("piece", t.Piece).Str("command", cmd).Int("rows", b.engine.RowsCompleted()).Msg("sending-command")
	return cmd, nil
}

func (b *Bot) record(ctx context.Context, res engine.PlayResult) {
	if b.history == nil {
		return
	}
	if _, err := b.history.Record(ctx, engine.NewHistoryEntry(res, b.engine.Board().String())); err != nil {
		log.Err(err).Msg("history-record-failed")
	}
}
