// Package external connects the engine to the game server.
//
// The server pushes one frame per tick over a websocket: the piece type,
// its anchor point and the field as a string of cells. The bot translates
// the frame into a board and a piece, plays it on the engine and answers
// with a command such as "act(2),LEFT,LEFT,DOWN".
//
// Server also exposes the same frame handling over a plain TCP line
// protocol, which lets recorded frames be replayed without the game server:
// - Each line is a command or a raw frame ("board={...}")
// - A frame is answered with the command the bot would send
// - Commands: version, help, board, stats, reset, exit
package external

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"
)

// Server implements the frame replay protocol server.
type Server struct {
	bot      *Bot
	listener net.Listener
	mu       sync.Mutex
	running  bool
	options  ServerOptions
}

// ServerOptions configures the replay server.
type ServerOptions struct {
	Host          string // Bind host
	Port          int    // TCP port to listen on
	PromptEnabled bool   // Send prompts after responses
}

// DefaultServerOptions returns sensible defaults.
func DefaultServerOptions() ServerOptions {
	return ServerOptions{
		Host:          "localhost",
		Port:          1234,
		PromptEnabled: false,
	}
}

// NewServer creates a new replay server.
func NewServer(bot *Bot, opts ServerOptions) *Server {
	return &Server{
		bot:     bot,
		options: opts,
	}
}

// Start begins listening for connections.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("server already running")
	}

	addr := net.JoinHostPort(s.options.Host, fmt.Sprint(s.options.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	s.listener = listener
	s.running = true

	go s.acceptLoop()

	return nil
}

// Addr returns the listening address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop stops the server.
func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

// acceptLoop accepts incoming connections.
func (s *Server) acceptLoop() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if !running {
				return // Server stopped
			}
			continue
		}

		go s.handleConnection(conn)
	}
}

// handleConnection handles a single client connection.
func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	// Frames carry the whole field on one line.
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	if s.options.PromptEnabled {
		conn.Write([]byte("> "))
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		response := s.processCommand(line)
		conn.Write([]byte(response))

		if s.options.PromptEnabled {
			conn.Write([]byte("> "))
		}

		if cmd := strings.ToLower(line); cmd == "exit" || cmd == "quit" {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Err(err).Msg("replay-connection-error")
	}
}

// processCommand processes a single line and returns the response.
func (s *Server) processCommand(line string) string {
	if strings.HasPrefix(line, framePrefix) || strings.HasPrefix(line, "{") {
		return s.handleFrame(line)
	}

	switch strings.ToLower(strings.Fields(line)[0]) {
	case "version":
		return "tetris frame replay protocol 1.0\n"

	case "help":
		return s.helpResponse()

	case "exit", "quit":
		return "Goodbye\n"

	case "board":
		return s.bot.Engine().Board().String()

	case "stats":
		e := s.bot.Engine()
		return fmt.Sprintf("frames %d pieces %d rows %d\n", s.bot.Frames(), e.Pieces(), e.RowsCompleted())

	case "reset":
		s.bot.mu.Lock()
		s.bot.engine.Reset()
		s.bot.mu.Unlock()
		return "ok\n"

	default:
		return fmt.Sprintf("Error: unknown command '%s'\n", line)
	}
}

// handleFrame answers a raw frame with the bot's command.
func (s *Server) handleFrame(line string) string {
	f, err := ParseFrame([]byte(line))
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	cmd, err := s.bot.HandleFrame(context.Background(), f)
	if err != nil {
		return fmt.Sprintf("Error: %v\n", err)
	}
	return cmd + "\n"
}

// helpResponse returns help text.
func (s *Server) helpResponse() string {
	return `Available commands:
  board={...} - Answer a game frame with a command
  version     - Show version information
  help        - Show this help
  board       - Show the engine board
  stats       - Show frame, piece and row counters
  reset       - Empty the board
  exit        - Close connection
`
}
