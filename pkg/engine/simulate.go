package engine

import (
	"context"
	"encoding/binary"
	"runtime"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"lukechampine.com/frand"
)

// SimulationOptions controls self-play
type SimulationOptions struct {
	Games     int    // Number of games (default 16)
	MaxPieces int    // Pieces per game before it is stopped (default 2000)
	Seed      uint64 // RNG seed (0 = random)
	Workers   int    // Parallel games (0 = GOMAXPROCS)
}

// DefaultSimulationOptions returns sensible defaults
func DefaultSimulationOptions() SimulationOptions {
	return SimulationOptions{
		Games:     16,
		MaxPieces: 2000,
	}
}

// GameRecord is the result of one simulated game.
type GameRecord struct {
	Seed     uint64 `json:"seed" yaml:"seed"`
	Pieces   int    `json:"pieces" yaml:"pieces"`
	Rows     int    `json:"rows" yaml:"rows"`
	GameOver bool   `json:"game_over" yaml:"game_over"`
}

// SimulationResult summarizes a batch of self-play games.
type SimulationResult struct {
	Games        []GameRecord  `json:"games" yaml:"games"`
	MeanRows     float64       `json:"mean_rows" yaml:"mean_rows"`
	StdDevRows   float64       `json:"stddev_rows" yaml:"stddev_rows"`
	MaxRows      float64       `json:"max_rows" yaml:"max_rows"`
	MeanPieces   float64       `json:"mean_pieces" yaml:"mean_pieces"`
	StdDevPieces float64       `json:"stddev_pieces" yaml:"stddev_pieces"`
	GameOvers    int           `json:"game_overs" yaml:"game_overs"`
	Elapsed      time.Duration `json:"elapsed" yaml:"elapsed"`
}

// RowsPerGame returns the rows cleared in every game.
func (r *SimulationResult) RowsPerGame() []float64 {
	return lo.Map(r.Games, func(g GameRecord, _ int) float64 { return float64(g.Rows) })
}

// Simulate plays independent games with uniformly random pieces, using the
// engine's board size and catalog. Every game gets its own engine, so the
// receiver's board is untouched. Games are reproducible from the seed.
func (e *Engine) Simulate(ctx context.Context, opts SimulationOptions) (*SimulationResult, error) {
	def := DefaultSimulationOptions()
	if opts.Games <= 0 {
		opts.Games = def.Games
	}
	if opts.MaxPieces <= 0 {
		opts.MaxPieces = def.MaxPieces
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Seed == 0 {
		opts.Seed = frand.Uint64n(1<<63) + 1
	}

	start := time.Now()
	records := make([]GameRecord, opts.Games)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range records {
		seed := opts.Seed + uint64(i)
		g.Go(func() error {
			rec, err := e.simulateGame(ctx, seed, opts.MaxPieces)
			if err != nil {
				return err
			}
			records[i] = rec
			log.Debug().Int("game", i).Int("pieces", rec.Pieces).Int("rows", rec.Rows).Msg("simulated-game")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	res := &SimulationResult{
		Games:     records,
		GameOvers: lo.CountBy(records, func(r GameRecord) bool { return r.GameOver }),
		Elapsed:   time.Since(start),
	}
	rows := res.RowsPerGame()
	pieces := lo.Map(records, func(r GameRecord, _ int) float64 { return float64(r.Pieces) })
	res.MeanRows, res.StdDevRows = stat.MeanStdDev(rows, nil)
	res.MaxRows = floats.Max(rows)
	res.MeanPieces, res.StdDevPieces = stat.MeanStdDev(pieces, nil)
	if len(records) < 2 {
		// Sample deviation of a single game is NaN, which JSON cannot carry.
		res.StdDevRows, res.StdDevPieces = 0, 0
	}

	log.Info().
		Int("games", opts.Games).
		Float64("mean-rows", res.MeanRows).
		Int("game-overs", res.GameOvers).
		Dur("elapsed", res.Elapsed).
		Msg("simulation-done")
	return res, nil
}

// simulateGame plays one game until it is lost or maxPieces are placed.
func (e *Engine) simulateGame(ctx context.Context, seed uint64, maxPieces int) (GameRecord, error) {
	game, err := NewEngine(EngineOptions{Rows: e.rows, Columns: e.columns, Catalog: e.catalog})
	if err != nil {
		return GameRecord{}, err
	}
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	rng := frand.NewCustom(key[:], 256, 12)

	rec := GameRecord{Seed: seed}
	for rec.Pieces < maxPieces {
		if rec.Pieces%64 == 0 {
			if err := ctx.Err(); err != nil {
				return GameRecord{}, err
			}
		}
		res, err := game.Play(rng.Intn(e.catalog.Len()))
		if err != nil {
			return GameRecord{}, err
		}
		if res.GameOver {
			rec.GameOver = true
			break
		}
		rec.Pieces++
	}
	rec.Rows = game.RowsCompleted()
	return rec, nil
}
