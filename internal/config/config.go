// Package config loads runtime settings from a .env file and the environment.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// RandomMap is the map name that selects the noise generator.
const RandomMap = "random"

// Config holds game configuration options.
type Config struct {
	// Map is the embedded map id to play, or RandomMap.
	Map string
	// MapsFile optionally points at a maps.json to search before the embedded maps.
	MapsFile string
	// Seed for the random map generator. 0 means a time based seed.
	Seed   int64
	Width  int
	Height int

	// DBPath is the sqlite file for snapshots. Empty disables persistence.
	DBPath string
	// SpectateAddr is the listen address for the spectator feed. Empty disables it.
	SpectateAddr string

	LogLevel       slog.Level
	StrictMovement bool
	TurnTimeout    time.Duration
	Telemetry      bool

	// Resources is every player's starting stockpile.
	Resources map[string]int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Map:         "small_duel",
		Width:       10,
		Height:      10,
		DBPath:      "skirmish.db",
		LogLevel:    slog.LevelInfo,
		TurnTimeout: 30 * time.Second,
		Resources:   map[string]int{"gold": 1000, "wood": 500, "iron": 300, "food": 800},
	}
}

// StartingResources returns a fresh copy of the starting stockpile.
func (c Config) StartingResources() map[string]int {
	return maps.Clone(c.Resources)
}

// Load reads .env (a missing file is fine) and then the environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv(os.LookupEnv)
}

// LookupFunc reports the value of an environment variable and whether it is
// set, like os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv builds a Config from env. Unset or blank variables keep their
// defaults, except SKIRMISH_DB where an empty value disables persistence.
// Malformed values are errors.
func FromEnv(env LookupFunc) (Config, error) {
	cfg := Default()
	var errs []error

	str := func(key string, dst *string) {
		if v, ok := lookup(env, key); ok {
			*dst = v
		}
	}
	str("SKIRMISH_MAP", &cfg.Map)
	str("SKIRMISH_MAPS_FILE", &cfg.MapsFile)
	str("SKIRMISH_SPECTATE_ADDR", &cfg.SpectateAddr)
	if v, set := env("SKIRMISH_DB"); set {
		cfg.DBPath = strings.TrimSpace(v)
	}

	if v, ok := lookup(env, "SKIRMISH_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKIRMISH_SEED: %w", err))
		}
		cfg.Seed = seed
	}
	for key, dst := range map[string]*int{"SKIRMISH_WIDTH": &cfg.Width, "SKIRMISH_HEIGHT": &cfg.Height} {
		v, ok := lookup(env, key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: %q is not a positive integer", key, v))
			continue
		}
		*dst = n
	}
	if v, ok := lookup(env, "SKIRMISH_LOG_LEVEL"); ok {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("SKIRMISH_LOG_LEVEL: %w", err))
		}
	}
	for key, dst := range map[string]*bool{"SKIRMISH_STRICT_MOVEMENT": &cfg.StrictMovement, "SKIRMISH_TELEMETRY": &cfg.Telemetry} {
		v, ok := lookup(env, key)
		if !ok {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
			continue
		}
		*dst = b
	}
	if v, ok := lookup(env, "SKIRMISH_TURN_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("SKIRMISH_TURN_TIMEOUT: %q is not a positive duration", v))
		} else {
			cfg.TurnTimeout = d
		}
	}
	if v, ok := lookup(env, "SKIRMISH_RESOURCES"); ok {
		res, err := ParseResources(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("SKIRMISH_RESOURCES: %w", err))
		} else {
			cfg.Resources = res
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ParseResources parses "gold=1000,wood=500" into a stockpile.
func ParseResources(s string) (map[string]int, error) {
	out := make(map[string]int)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, qty, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("%q is not name=amount", part)
		}
		n, err := strconv.Atoi(strings.TrimSpace(qty))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%q is not a non-negative amount", qty)
		}
		out[strings.TrimSpace(name)] = n
	}
	return out, nil
}

// SetupOTelEnv points the OTLP exporter at Honeycomb when HONEYCOMB_API_KEY
// is set. The exporter itself only reads the OTEL_EXPORTER_OTLP_* variables.
func SetupOTelEnv(getenv func(string) string, setenv func(string, string) error) error {
	apiKey := getenv("HONEYCOMB_API_KEY")
	if apiKey == "" {
		return nil
	}
	dataset := getenv("HONEYCOMB_DATASET")
	if dataset == "" {
		dataset = "skirmish"
	}
	if err := setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "https://api.honeycomb.io"); err != nil {
		return err
	}
	return setenv("OTEL_EXPORTER_OTLP_HEADERS",
		fmt.Sprintf("x-honeycomb-team=%s,x-honeycomb-dataset=%s", apiKey, dataset))
}

// lookup returns a trimmed value and whether it is non-empty.
func lookup(env LookupFunc, key string) (string, bool) {
	v, _ := env(key)
	v = strings.TrimSpace(v)
	return v, v != ""
}
