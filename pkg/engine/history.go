package engine

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS moves (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	played_at    INTEGER NOT NULL,
	piece        TEXT    NOT NULL,
	orientation  INTEGER NOT NULL,
	col          INTEGER NOT NULL,
	score        REAL    NOT NULL,
	rows_cleared INTEGER NOT NULL,
	game_over    INTEGER NOT NULL,
	board        TEXT    NOT NULL
)`

// HistoryEntry is one recorded decision.
type HistoryEntry struct {
	ID          int64     `json:"id"`
	Time        time.Time `json:"time"`
	Piece       string    `json:"piece"`
	Orientation int       `json:"orientation"`
	Column      int       `json:"column"`
	Score       float64   `json:"score"`
	RowsCleared int       `json:"rows_cleared"`
	GameOver    bool      `json:"game_over"`
	// Board is the board after the move, rendered top row first.
	Board string `json:"board"`
}

// HistoryTotals aggregates the whole history.
type HistoryTotals struct {
	Moves       int `json:"moves"`
	RowsCleared int `json:"rows_cleared"`
	GameOvers   int `json:"game_overs"`
}

// HistoryStore records decisions in a sqlite database.
type HistoryStore struct {
	db *sql.DB
}

// NewHistoryEntry builds an entry from a play result and the board after it.
func NewHistoryEntry(res PlayResult, board string) HistoryEntry {
	return HistoryEntry{
		Time:        time.Now(),
		Piece:       res.Piece,
		Orientation: res.Move.Orientation,
		Column:      res.Move.Column,
		Score:       res.Score,
		RowsCleared: res.Outcome.RowsCleared,
		GameOver:    res.GameOver,
		Board:       board,
	}
}

// OpenHistory opens (creating if needed) a history database file.
func OpenHistory(ctx context.Context, path string) (*HistoryStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}
	// sqlite serializes writers; one connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	if _, err := db.ExecContext(ctx, historySchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history schema: %w", err)
	}
	return &HistoryStore{db: db}, nil
}

// Close closes the database.
func (h *HistoryStore) Close() error { return h.db.Close() }

// Record appends an entry and returns its id.
func (h *HistoryStore) Record(ctx context.Context, e HistoryEntry) (int64, error) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	r, err := h.db.ExecContext(ctx,
		`INSERT INTO moves (played_at, piece, orientation, col, score, rows_cleared, game_over, board)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.Time.UnixNano(), e.Piece, e.Orientation, e.Column, e.Score, e.RowsCleared, e.GameOver, e.Board)
	if err != nil {
		return 0, fmt.Errorf("failed to record move: %w", err)
	}
	return r.LastInsertId()
}

// Recent returns up to n entries, newest first.
func (h *HistoryStore) Recent(ctx context.Context, n int) ([]HistoryEntry, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, played_at, piece, orientation, col, score, rows_cleared, game_over, board
		 FROM moves ORDER BY id DESC LIMIT ?`, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		var nanos int64
		if err := rows.Scan(&e.ID, &nanos, &e.Piece, &e.Orientation, &e.Column,
			&e.Score, &e.RowsCleared, &e.GameOver, &e.Board); err != nil {
			return nil, err
		}
		e.Time = time.Unix(0, nanos)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Totals sums the whole history.
func (h *HistoryStore) Totals(ctx context.Context) (HistoryTotals, error) {
	var t HistoryTotals
	err := h.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(rows_cleared), 0), COALESCE(SUM(game_over), 0) FROM moves`).
		Scan(&t.Moves, &t.RowsCleared, &t.GameOvers)
	if err != nil {
		return HistoryTotals{}, fmt.Errorf("failed to sum history: %w", err)
	}
	return t, nil
}
