// tetrisengine - offline tools around the move-selection engine
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aybabtme/uniplot/histogram"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/config"
	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
	"github.com/Zekfad/epam-tetris-solver/pkg/external"
	"github.com/Zekfad/epam-tetris-solver/pkg/natsbot"
	"github.com/Zekfad/epam-tetris-solver/pkg/shell"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "move":
		cmdMove(args)
	case "simulate":
		cmdSimulate(args)
	case "catalog":
		cmdCatalog(args)
	case "shell":
		cmdShell(args)
	case "serve-nats":
		cmdServeNats(args)
	case "replay":
		cmdReplay(args)
	case "history":
		cmdHistory(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tetrisengine - Tetris move-selection engine

Usage: tetrisengine <command> [options]

Commands:
  move        Pick the placement of a piece on a board
  simulate    Self-play games with random pieces
  catalog     Print the piece catalog as YAML
  shell       Interactive console
  serve-nats  Answer placement requests over NATS
  replay      Answer recorded game frames over TCP
  history     Show moves recorded by tetrisbot

Use "tetrisengine <command> -h" for command-specific help.
Every command accepts the shared settings (--rows, --columns, --config, ...)
and the matching TETRIS_* environment variables.

Board Format:
  A board is a JSON array of rows, top row first, each cell 0 or 1.`)
}

// newFlagSet returns a flag set carrying the shared settings.
func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ExitOnError)
	config.Flags(fs)
	return fs
}

// setup loads the settings, configures logging and creates the engine.
func setup(fs *pflag.FlagSet) (*config.Config, *engine.Engine) {
	var cfg config.Config
	if err := cfg.LoadFlags(fs); err != nil {
		fatal(err)
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(cfg.Level())

	cat, err := cfg.Catalog()
	if err != nil {
		fatal(err)
	}
	e, err := engine.NewEngine(engine.EngineOptions{
		Rows:      cfg.Rows,
		Columns:   cfg.Columns,
		Catalog:   cat,
		CacheSize: cfg.CacheSize,
	})
	if err != nil {
		fatal(fmt.Errorf("failed to create engine: %w", err))
	}
	return &cfg, e
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func readDump(path string) ([][]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var dump [][]int
	if err := json.Unmarshal(data, &dump); err != nil {
		return nil, fmt.Errorf("invalid board file %s: %w", path, err)
	}
	return dump, nil
}

func cmdMove(args []string) {
	fs := newFlagSet("move")
	boardFile := fs.StringP("board", "b", "", "JSON board file (empty board when omitted)")
	piece := fs.StringP("piece", "p", "", "Piece letter")
	top := fs.IntP("top", "n", 5, "Ranked placements to show")
	remote := fs.Bool("remote", false, "Ask the NATS decision service instead of deciding locally")
	fs.Parse(args)

	cfg, e := setup(fs)
	if *piece == "" {
		fmt.Fprintln(os.Stderr, "Error: piece required")
		fmt.Fprintln(os.Stderr, "Usage: tetrisengine move -p <piece> [-b board.json]")
		os.Exit(1)
	}

	b := bitboard.MustNew(e.Rows(), e.Columns())
	if *boardFile != "" {
		dump, err := readDump(*boardFile)
		if err != nil {
			fatal(err)
		}
		if err := b.Load(dump); err != nil {
			fatal(err)
		}
	}

	if *remote {
		moveRemote(cfg, b, *piece)
		return
	}

	start := time.Now()
	d, err := e.DecideNamed(b, *piece)
	if err != nil {
		fatal(err)
	}
	elapsed := time.Since(start)

	fmt.Print(b.String())
	fmt.Println()
	if !d.Found {
		fmt.Printf("No surviving placement for %s (%d candidates)\n", *piece, d.Candidates)
		return
	}
	fmt.Printf("Best: orientation %d column %d score %.6f (%d candidates, %v)\n",
		d.Move.Orientation, d.Move.Column, d.Score, d.Candidates, elapsed)

	kind, _ := e.Catalog().ByName(*piece)
	ranked := engine.GenerateMoves(b, kind).Top(*top)
	fmt.Printf("\n%3s %11s %6s %12s %7s %7s\n", "#", "orientation", "column", "score", "landing", "cleared")
	for i, m := range ranked {
		fmt.Printf("%3d %11d %6d %12.6f %7d %7d\n", i+1, m.Move.Orientation, m.Move.Column,
			m.Score, m.Outcome.LandingRow, m.Outcome.RowsCleared)
	}
}

func moveRemote(cfg *config.Config, b *bitboard.Board, piece string) {
	nc, err := nats.Connect(cfg.NatsURL)
	if err != nil {
		fatal(fmt.Errorf("failed to connect to nats: %w", err))
	}
	defer nc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	resp, err := natsbot.NewClient(nc, cfg.NatsSubject).RequestMove(ctx, b.Dump(), piece)
	if err != nil {
		fatal(err)
	}
	if resp.GameOver {
		fmt.Printf("No surviving placement for %s\n", piece)
		return
	}
	fmt.Printf("Best: orientation %d column %d score %.6f\n", resp.Orientation, resp.Column, resp.Score)
}

func cmdSimulate(args []string) {
	fs := newFlagSet("simulate")
	def := engine.DefaultSimulationOptions()
	games := fs.IntP("games", "g", def.Games, "Number of games")
	pieces := fs.Int("pieces", def.MaxPieces, "Pieces per game before it is stopped")
	seed := fs.Uint64("seed", 0, "Random seed (0 = random)")
	workers := fs.IntP("workers", "w", 0, "Parallel games (0 = all CPUs)")
	bins := fs.Int("bins", 10, "Histogram bins")
	report := fs.StringP("report", "o", "", "Write the full result as YAML to this file")
	fs.Parse(args)

	_, e := setup(fs)
	ctx, stop := signalContext()
	defer stop()

	fmt.Printf("Simulating %d games of up to %d pieces on %dx%d...\n", *games, *pieces, e.Rows(), e.Columns())
	result, err := e.Simulate(ctx, engine.SimulationOptions{
		Games:     *games,
		MaxPieces: *pieces,
		Seed:      *seed,
		Workers:   *workers,
	})
	if err != nil {
		fatal(err)
	}

	fmt.Printf("\nSimulation Results (%v):\n", result.Elapsed.Round(time.Millisecond))
	fmt.Printf("  Rows:      %.1f ± %.1f (max %.0f)\n", result.MeanRows, result.StdDevRows, result.MaxRows)
	fmt.Printf("  Pieces:    %.1f ± %.1f\n", result.MeanPieces, result.StdDevPieces)
	fmt.Printf("  Game over: %d of %d\n", result.GameOvers, len(result.Games))

	if len(result.Games) > 1 && *bins > 0 {
		fmt.Println("\nRows cleared per game:")
		hist := histogram.Hist(*bins, result.RowsPerGame())
		if err := histogram.Fprint(os.Stdout, hist, histogram.Linear(40)); err != nil {
			fatal(err)
		}
	}

	if *report != "" {
		data, err := yaml.Marshal(result)
		if err != nil {
			fatal(err)
		}
		if err := os.WriteFile(*report, data, 0o644); err != nil {
			fatal(err)
		}
		fmt.Printf("\nReport written to %s\n", *report)
	}
}

func cmdCatalog(args []string) {
	fs := newFlagSet("catalog")
	fs.Parse(args)

	_, e := setup(fs)
	data, err := yaml.Marshal(e.Catalog())
	if err != nil {
		fatal(err)
	}
	os.Stdout.Write(data)
}

func cmdShell(args []string) {
	fs := newFlagSet("shell")
	historyFile := fs.String("history-file", "", "Readline history file")
	fs.Parse(args)

	_, e := setup(fs)
	sc := shell.NewShellController(e)
	if err := sc.Attach(*historyFile); err != nil {
		fatal(err)
	}
	sc.Loop()
}

func cmdServeNats(args []string) {
	fs := newFlagSet("serve-nats")
	fs.Parse(args)

	cfg, e := setup(fs)
	ctx, stop := signalContext()
	defer stop()

	if err := natsbot.NewBot(e).Serve(ctx, cfg.NatsURL, cfg.NatsSubject); err != nil {
		fatal(err)
	}
}

func cmdReplay(args []string) {
	fs := newFlagSet("replay")
	def := external.DefaultServerOptions()
	host := fs.String("host", def.Host, "Host to bind to")
	port := fs.Int("port", def.Port, "TCP port to listen on")
	prompt := fs.Bool("prompt", false, "Send a prompt after every response")
	fs.Parse(args)

	cfg, e := setup(fs)
	ctx, stop := signalContext()
	defer stop()

	opts := external.BotOptions{}
	if cfg.HistoryDB != "" {
		history, err := engine.OpenHistory(ctx, cfg.HistoryDB)
		if err != nil {
			fatal(err)
		}
		defer history.Close()
		opts.History = history
	}

	server := external.NewServer(external.NewBot(e, opts), external.ServerOptions{
		Host:          *host,
		Port:          *port,
		PromptEnabled: *prompt,
	})
	if err := server.Start(); err != nil {
		fatal(err)
	}
	log.Info().Str("addr", server.Addr().String()).Msg("replay-listening")

	<-ctx.Done()
	if err := server.Stop(); err != nil {
		fatal(err)
	}
}

func cmdHistory(args []string) {
	fs := newFlagSet("history")
	limit := fs.IntP("limit", "n", 20, "Moves to show, newest first")
	fs.Parse(args)

	cfg, _ := setup(fs)
	if cfg.HistoryDB == "" {
		fatal(fmt.Errorf("--history-db is required"))
	}

	ctx := context.Background()
	history, err := engine.OpenHistory(ctx, cfg.HistoryDB)
	if err != nil {
		fatal(err)
	}
	defer history.Close()

	totals, err := history.Totals(ctx)
	if err != nil {
		fatal(err)
	}
	entries, err := history.Recent(ctx, *limit)
	if err != nil {
		fatal(err)
	}

	fmt.Printf("%d moves, %d rows cleared, %d game overs\n\n", totals.Moves, totals.RowsCleared, totals.GameOvers)
	for _, h := range entries {
		status := ""
		if h.GameOver {
			status = " game over"
		}
		fmt.Printf("%s %s orientation %d column %d score %.4f cleared %d%s\n",
			h.Time.Format(time.DateTime), h.Piece, h.Orientation, h.Column, h.Score, h.RowsCleared, status)
	}
}
