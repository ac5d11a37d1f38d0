// Command tetrisbot plays on the game server and relays every board to the
// debug clients.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Zekfad/epam-tetris-solver/internal/config"
	"github.com/Zekfad/epam-tetris-solver/pkg/api"
	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
	"github.com/Zekfad/epam-tetris-solver/pkg/external"
)

const version = "0.1.0"

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		log.Fatal().Err(err).Msg("tetrisbot failed")
	}
}

func run(args []string) error {
	var cfg config.Config
	if err := cfg.Load(args); err != nil {
		return err
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())

	cat, err := cfg.Catalog()
	if err != nil {
		return err
	}
	eng, err := engine.NewEngine(engine.EngineOptions{
		Rows:      cfg.Rows,
		Columns:   cfg.Columns,
		Catalog:   cat,
		CacheSize: cfg.CacheSize,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := external.BotOptions{}
	if cfg.HistoryDB != "" {
		history, err := engine.OpenHistory(ctx, cfg.HistoryDB)
		if err != nil {
			return err
		}
		defer history.Close()
		opts.History = history
	}

	g, ctx := errgroup.WithContext(ctx)

	if cfg.RelayPort > 0 {
		serverConfig := api.DefaultConfig()
		serverConfig.Host = cfg.RelayHost
		serverConfig.Port = cfg.RelayPort
		server := api.NewServer(eng, nil, serverConfig, version)
		opts.Relay = server.Relay()
		g.Go(func() error { return server.ListenAndServe(ctx) })
	}

	bot := external.NewBot(eng, opts)
	client, err := external.NewClient(external.ClientOptions{
		URL:      cfg.ServerURL,
		User:     cfg.User,
		Token:    cfg.Token,
		Game:     cfg.Game,
		MaxDelay: cfg.ReconnectMaxDelay,
	}, bot.HandleFrame)
	if err != nil {
		return fmt.Errorf("invalid game server settings: %w", err)
	}

	log.Info().Str("version", version).Int("rows", cfg.Rows).Int("columns", cfg.Columns).
		Str("user", cfg.User).Msg("tetrisbot-started")
	g.Go(func() error { return client.Run(ctx) })

	err = g.Wait()
	log.Info().Int("frames", bot.Frames()).Int("pieces", eng.Pieces()).
		Int("rows", eng.RowsCompleted()).Msg("tetrisbot-stopped")
	return err
}
