// Package shell is an interactive console around an engine.
package shell

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/kballard/go-shellquote"
	"github.com/rs/zerolog/log"

	"github.com/Zekfad/epam-tetris-solver/pkg/engine"
)

// ErrExit is returned by Execute for the exit command.
var ErrExit = errors.New("shell: exit")

const helpText = `Commands:
  play <piece>...    place pieces on the board, in order
  moves <piece> [n]  rank the n best placements without playing (default 5)
  show               print the board
  load <file>        load a JSON dump (top row first)
  save <file>        write the board as a JSON dump
  reset              empty the board
  stats              pieces played and rows cleared
  catalog            list the piece kinds
  help               show this help
  exit               leave the shell`

// ShellController runs commands against one engine.
type ShellController struct {
	l      *readline.Instance
	engine *engine.Engine
}

func filterInput(r rune) (rune, bool) {
	switch r {
	// block CtrlZ feature
	case readline.CharCtrlZ:
		return r, false
	}
	return r, true
}

// NewShellController creates a controller without a terminal. Use Loop
// after Attach for interactive use, or Execute directly.
func NewShellController(e *engine.Engine) *ShellController {
	return &ShellController{engine: e}
}

// Attach opens the readline terminal. historyFile may be empty.
func (sc *ShellController) Attach(historyFile string) error {
	pieces := make([]readline.PrefixCompleterInterface, 0, sc.engine.Catalog().Len())
	for _, name := range sc.engine.Catalog().Names() {
		pieces = append(pieces, readline.PcItem(name))
	}
	completer := readline.NewPrefixCompleter(
		readline.PcItem("play", pieces...),
		readline.PcItem("moves", pieces...),
		readline.PcItem("show"),
		readline.PcItem("load"),
		readline.PcItem("save"),
		readline.PcItem("reset"),
		readline.PcItem("stats"),
		readline.PcItem("catalog"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)

	l, err := readline.NewEx(&readline.Config{
		Prompt:          "\033[36mtetris>\033[0m ",
		HistoryFile:     historyFile,
		AutoComplete:    completer,
		EOFPrompt:       "exit",
		InterruptPrompt: "^C",

		HistorySearchFold:   true,
		FuncFilterInputRune: filterInput,
	})
	if err != nil {
		return fmt.Errorf("failed to open terminal: %w", err)
	}
	sc.l = l
	return nil
}

// Loop reads commands until exit, EOF or an interrupt on an empty line.
func (sc *ShellController) Loop() {
	defer sc.l.Close()

	for {
		line, err := sc.l.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			if len(line) == 0 {
				break
			}
			continue
		} else if errors.Is(err, io.EOF) {
			break
		}

		out, err := sc.Execute(line)
		if out != "" {
			showMessage(out, sc.l.Stdout())
		}
		if errors.Is(err, ErrExit) {
			break
		}
		if err != nil {
			showMessage("Error: "+err.Error(), sc.l.Stderr())
		}
	}
	log.Debug().Msg("exiting readline loop")
}

func showMessage(msg string, w io.Writer) {
	io.WriteString(w, msg)
	io.WriteString(w, "\n")
}

// Execute runs one command line and returns its output.
func (sc *ShellController) Execute(line string) (string, error) {
	fields, err := shellquote.Split(strings.TrimSpace(line))
	if err != nil {
		return "", fmt.Errorf("cannot parse line: %w", err)
	}
	if len(fields) == 0 {
		return "", nil
	}
	cmd, args := strings.ToLower(fields[0]), fields[1:]

	switch cmd {
	case "play":
		return sc.play(args)
	case "moves":
		return sc.moves(args)
	case "show":
		return strings.TrimRight(sc.engine.Board().String(), "\n"), nil
	case "load":
		return sc.load(args)
	case "save":
		return sc.save(args)
	case "reset":
		sc.engine.Reset()
		return "board cleared", nil
	case "stats":
		return fmt.Sprintf("pieces %d rows %d", sc.engine.Pieces(), sc.engine.RowsCompleted()), nil
	case "catalog":
		return sc.catalog(), nil
	case "help":
		return helpText, nil
	case "exit", "quit":
		return "", ErrExit
	default:
		return "", fmt.Errorf("unknown command %q, try help", cmd)
	}
}

func (sc *ShellController) play(args []string) (string, error) {
	if len(args) == 0 {
		return "", errors.New("usage: play <piece>...")
	}
	var sb strings.Builder
	for _, name := range args {
		res, err := sc.engine.PlayNamed(name)
		if err != nil {
			return sb.String(), err
		}
		if res.GameOver {
			fmt.Fprintf(&sb, "%s: game over\n", res.Piece)
			break
		}
		fmt.Fprintf(&sb, "%s: orientation %d column %d score %.4f cleared %d\n",
			res.Piece, res.Move.Orientation, res.Move.Column, res.Score, res.Outcome.RowsCleared)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (sc *ShellController) moves(args []string) (string, error) {
	if len(args) == 0 || len(args) > 2 {
		return "", errors.New("usage: moves <piece> [n]")
	}
	n := 5
	if len(args) == 2 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v <= 0 {
			return "", fmt.Errorf("invalid count %q", args[1])
		}
		n = v
	}
	kind, err := sc.engine.Catalog().ByName(args[0])
	if err != nil {
		return "", err
	}
	ranked := engine.GenerateMoves(sc.engine.Board(), kind).Top(n)
	if len(ranked) == 0 {
		return "no placement survives", nil
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "%3s %11s %6s %10s %7s\n", "#", "orientation", "column", "score", "cleared")
	for i, m := range ranked {
		fmt.Fprintf(&sb, "%3d %11d %6d %10.4f %7d\n", i+1, m.Move.Orientation, m.Move.Column, m.Score, m.Outcome.RowsCleared)
	}
	return strings.TrimRight(sb.String(), "\n"), nil
}

func (sc *ShellController) load(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: load <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", err
	}
	var dump [][]int
	if err := json.Unmarshal(data, &dump); err != nil {
		return "", fmt.Errorf("invalid dump: %w", err)
	}
	if err := sc.engine.Load(dump); err != nil {
		return "", err
	}
	return fmt.Sprintf("loaded %s", args[0]), nil
}

func (sc *ShellController) save(args []string) (string, error) {
	if len(args) != 1 {
		return "", errors.New("usage: save <file>")
	}
	data, err := json.Marshal(sc.engine.Dump())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(args[0], data, 0o644); err != nil {
		return "", err
	}
	return fmt.Sprintf("saved %s", args[0]), nil
}

func (sc *ShellController) catalog() string {
	var sb strings.Builder
	for _, k := range sc.engine.Catalog().Kinds() {
		fmt.Fprintf(&sb, "%s (%d orientations)\n", k.Name, len(k.Orientations))
		for i, o := range k.Orientations {
			fmt.Fprintf(&sb, "  %d:\n", i)
			for _, row := range strings.Split(strings.TrimRight(o.String(), "\n"), "\n") {
				sb.WriteString("    " + strings.NewReplacer("0", ".", "1", "#").Replace(row) + "\n")
			}
		}
	}
	return strings.TrimRight(sb.String(), "\n")
}
