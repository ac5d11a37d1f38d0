// Package config loads runtime settings from flags, TETRIS_* environment
// variables and an optional YAML file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Zekfad/epam-tetris-solver/internal/catalog"
)

const envPrefix = "TETRIS"

// Board size limits accepted from configuration.
const (
	MinBoardSize = 4
	MaxBoardSize = 32
)

var ErrInvalid = errors.New("config: invalid value")

type Config struct {
	Rows        int
	Columns     int
	CatalogPath string

	ServerURL string
	User      string
	Token     string
	Game      string

	ReconnectMaxDelay time.Duration

	RelayHost string
	RelayPort int

	NatsURL     string
	NatsSubject string

	HistoryDB string
	CacheSize int
	LogLevel  string
}

// Flags registers every setting on fs.
func Flags(fs *pflag.FlagSet) {
	fs.String("config", "", "optional YAML config file")
	fs.Int("rows", 18, "board height")
	fs.Int("columns", 18, "board width")
	fs.String("catalog-path", "", "YAML piece catalog (built-in catalog when empty)")
	fs.String("server-url", "ws://codebattle2020.westeurope.cloudapp.azure.com/codenjoy-contest/ws", "game server websocket endpoint")
	fs.String("user", "", "game server user id")
	fs.String("token", "", "game server access code")
	fs.String("game", "tetris", "game name sent to the server")
	fs.Duration("reconnect-max-delay", 30*time.Second, "upper bound of the reconnect backoff")
	fs.String("relay-host", "localhost", "debug relay bind host")
	fs.Int("relay-port", 801, "debug relay port (0 disables the relay)")
	fs.String("nats-url", "nats://127.0.0.1:4222", "NATS server for the decision service")
	fs.String("nats-subject", "tetris.move", "subject the decision service answers on")
	fs.String("history-db", "", "sqlite file recording decisions (disabled when empty)")
	fs.Int("cache-size", 4096, "decision cache entries (0 disables)")
	fs.String("log-level", "info", "zerolog level")
}

// Load parses args and merges environment and file settings.
func (c *Config) Load(args []string) error {
	fs := pflag.NewFlagSet("tetris", pflag.ContinueOnError)
	Flags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	return c.LoadFlags(fs)
}

// LoadFlags fills c from an already parsed flag set.
func (c *Config) LoadFlags(fs *pflag.FlagSet) error {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(fs); err != nil {
		return err
	}
	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("reading config file: %w", err)
		}
	}

	c.Rows = v.GetInt("rows")
	c.Columns = v.GetInt("columns")
	c.CatalogPath = v.GetString("catalog-path")
	c.ServerURL = v.GetString("server-url")
	c.User = v.GetString("user")
	c.Token = v.GetString("token")
	c.Game = v.GetString("game")
	c.ReconnectMaxDelay = v.GetDuration("reconnect-max-delay")
	c.RelayHost = v.GetString("relay-host")
	c.RelayPort = v.GetInt("relay-port")
	c.NatsURL = v.GetString("nats-url")
	c.NatsSubject = v.GetString("nats-subject")
	c.HistoryDB = v.GetString("history-db")
	c.CacheSize = v.GetInt("cache-size")
	c.LogLevel = v.GetString("log-level")
	return c.Validate()
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Rows < MinBoardSize || c.Rows > MaxBoardSize {
		return fmt.Errorf("%w: rows %d not in [%d, %d]", ErrInvalid, c.Rows, MinBoardSize, MaxBoardSize)
	}
	if c.Columns < MinBoardSize || c.Columns > MaxBoardSize {
		return fmt.Errorf("%w: columns %d not in [%d, %d]", ErrInvalid, c.Columns, MinBoardSize, MaxBoardSize)
	}
	if c.CacheSize < 0 {
		return fmt.Errorf("%w: cache-size %d", ErrInvalid, c.CacheSize)
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("%w: log-level %q", ErrInvalid, c.LogLevel)
	}
	return nil
}

// Level returns the configured zerolog level.
func (c *Config) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	var c Config
	if err := c.Load(nil); err != nil {
		panic(err)
	}
	return c
}

// Catalog loads the piece catalog from CatalogPath, or returns the
// standard tetromino set when no path is set.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	if c.CatalogPath == "" {
		return catalog.Default(), nil
	}
	cat, err := catalog.LoadYAML(c.CatalogPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return cat, nil
}
