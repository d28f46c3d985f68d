// Package config loads process settings from defaults, a .env file and the
// environment, in increasing priority. Values are read once at startup and
// never change afterwards.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/plus3/bigspace/space"
)

var (
	ErrInvalidTickRate = errors.New("config: tick rate must be > 0")
	ErrInvalidLogLevel = errors.New("config: unknown log level")
)

// Environment variable names.
const (
	EnvCellEdge     = "BIGSPACE_CELL_EDGE"
	EnvTickRate     = "BIGSPACE_TICK_RATE"
	EnvStrict       = "BIGSPACE_STRICT"
	EnvLogLevel     = "BIGSPACE_LOG_LEVEL"
	EnvMetricsAddr  = "BIGSPACE_METRICS_ADDR"
	EnvSnapshotPath = "BIGSPACE_SNAPSHOT_PATH"
	EnvBodies       = "BIGSPACE_BODIES"
	EnvWorldExtent  = "BIGSPACE_WORLD_EXTENT"
	EnvSeed         = "BIGSPACE_SEED"
)

type Config struct {
	CellEdgeLength float64 // Grid cell edge in world units
	TickRate       int     // Frames per second
	Strict         bool    // Panic on precondition violations
	LogLevel       string  // debug, info, warn or error
	MetricsAddr    string  // HTTP listen address, empty disables the server
	SnapshotPath   string  // Written on shutdown and read on startup when set

	// Demo scene.
	Bodies      int
	WorldExtent float64
	Seed        uint64
}

func Default() Config {
	return Config{
		CellEdgeLength: 2000,
		TickRate:       60,
		LogLevel:       "info",
		MetricsAddr:    ":9464",
		Bodies:         500,
		WorldExtent:    1e8,
		Seed:           1,
	}
}

// FromEnv returns Default overridden by the given .env files (".env" when
// none are named; missing files are skipped) and then by the process
// environment. The result is validated.
func FromEnv(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, file := range files {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	cfg := Default()
	var errs []error
	cfg.CellEdgeLength = envFloat(EnvCellEdge, cfg.CellEdgeLength, &errs)
	cfg.TickRate = envInt(EnvTickRate, cfg.TickRate, &errs)
	cfg.Strict = envBool(EnvStrict, cfg.Strict, &errs)
	cfg.LogLevel = envString(EnvLogLevel, cfg.LogLevel)
	cfg.MetricsAddr = envString(EnvMetricsAddr, cfg.MetricsAddr)
	cfg.SnapshotPath = envString(EnvSnapshotPath, cfg.SnapshotPath)
	cfg.Bodies = envInt(EnvBodies, cfg.Bodies, &errs)
	cfg.WorldExtent = envFloat(EnvWorldExtent, cfg.WorldExtent, &errs)
	cfg.Seed = uint64(envInt(EnvSeed, int(cfg.Seed), &errs))
	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return cfg, cfg.Validate()
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := space.NewSettings(c.CellEdgeLength); err != nil {
		errs = append(errs, err)
	}
	if c.TickRate <= 0 {
		errs = append(errs, fmt.Errorf("%w: got %d", ErrInvalidTickRate, c.TickRate))
	}
	if _, err := c.Level(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Grid returns the grid settings for the configured cell edge.
func (c Config) Grid() (*space.Settings, error) {
	return space.NewSettings(c.CellEdgeLength)
}

// TickInterval is the time between frames.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(max(c.TickRate, 1))
}

func (c Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidLogLevel, c.LogLevel)
	}
	return level, nil
}

// Logger builds a text logger writing to w at the configured level.
func (c Config) Logger(w io.Writer) *slog.Logger {
	level, err := c.Level()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func envString(key, defaultVal string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultVal
	}
	return i
}

func envFloat(key string, defaultVal float64, errs *[]error) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultVal
	}
	return f
}

func envBool(key string, defaultVal bool, errs *[]error) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("config: %s: %w", key, err))
		return defaultVal
	}
	return b
}
