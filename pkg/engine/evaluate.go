package engine

import (
	"fmt"

	"github.com/Zekfad/epam-tetris-solver/internal/bitboard"
	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
	"github.com/Zekfad/epam-tetris-solver/internal/features"
)

// Evaluator weights (El-Tetris). Positive weights reward a feature.
const (
	WeightLandingHeight     = -4.500158825082766
	WeightRowsCleared       = 3.4181268101392694
	WeightRowTransitions    = -3.2178882868487753
	WeightColumnTransitions = -9.348695305445199
	WeightHoles             = -7.899265427351652
	WeightWellSums          = -3.3855972247263626
)

// Evaluate returns the linear score of a feature vector. Higher is better.
func Evaluate(v features.Vector) float64 {
	// The conversions round every product, which rules out fused
	// multiply-add and keeps scores identical on every GOARCH.
	return float64(v.LandingHeight*WeightLandingHeight) +
		float64(v.RowsCleared*WeightRowsCleared) +
		float64(v.RowTransitions*WeightRowTransitions) +
		float64(v.ColumnTransitions*WeightColumnTransitions) +
		float64(v.Holes*WeightHoles) +
		float64(v.WellSums*WeightWellSums)
}

// EvaluateBoard scores a board that has just received a placement.
func EvaluateBoard(b *bitboard.Board, out bitboard.Outcome) float64 {
	return Evaluate(features.Extract(b, out))
}

// Engine owns the live board of one game.
type Engine struct {
	catalog *catalog.Catalog
	rows    int
	columns int

	board         *bitboard.Board
	rowsCompleted int
	pieces        int

	// Decision cache, nil when disabled
	cache *DecisionCache
}

// EngineOptions configures the engine
type EngineOptions struct {
	Rows      int              // Board height (0 = DefaultRows)
	Columns   int              // Board width (0 = DefaultColumns)
	Catalog   *catalog.Catalog // Piece kinds (nil = catalog.Default())
	CacheSize int              // Decision cache entries (0 = disabled)
}

// NewEngine creates an engine with an empty board.
func NewEngine(opts EngineOptions) (*Engine, error) {
	if opts.Rows == 0 {
		opts.Rows = DefaultRows
	}
	if opts.Columns == 0 {
		opts.Columns = DefaultColumns
	}
	if opts.Catalog == nil {
		opts.Catalog = catalog.Default()
	}

	board, err := bitboard.New(opts.Rows, opts.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	if err := opts.Catalog.Validate(opts.Rows, opts.Columns); err != nil {
		return nil, fmt.Errorf("failed to validate catalog: %w", err)
	}

	e := &Engine{
		catalog: opts.Catalog,
		rows:    opts.Rows,
		columns: opts.Columns,
		board:   board,
	}
	if opts.CacheSize > 0 {
		e.cache = NewDecisionCache(uint32(opts.CacheSize))
	}
	return e, nil
}

// Catalog returns the piece kinds the engine plays.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Rows returns the board height.
func (e *Engine) Rows() int { return e.rows }

// Columns returns the board width.
func (e *Engine) Columns() int { return e.columns }

// Cache returns the decision cache (may be nil if disabled). Each engine
// owns its cache; it is fixed at NewEngine.
func (e *Engine) Cache() *DecisionCache {
	return e.cache
}
