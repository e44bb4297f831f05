package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/ossrs/go-oryx-lib/errors"
)

// env reads typed variables and remembers the ones set to something it
// cannot parse.
type env struct {
	malformed []string
}

func (e *env) bad(key, v string) {
	e.malformed = append(e.malformed, fmt.Sprintf("%v=%q", key, v))
}

func (e *env) float(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.bad(key, v)
		return fallback
	}
	return f
}

// Config holds all runtime configuration, loaded from environment variables.
type Config struct {
	// Engine
	HitsPerMinute   float64
	Seed            int64  // negative picks a seed from the clock
	Weights         string // name=weight,... overrides
	CrossfadeFrames int    // per window edge, 0 disables
	WindowMin       float64
	WindowMax       float64
	Jitter          bool

	// Input and output
	Stereoify bool // duplicate mono input instead of rejecting it
	Output    string
	FFmpeg    string

	// Audition server, empty disables
	Listen string

	Verbose bool
}

// Load reads configuration from environment variables with sane defaults.
// A variable that is set but does not parse is an error naming it; the
// returned Config holds the default in its place.
func Load() (Config, error) {
	var e env
	cfg := Config{
		HitsPerMinute:   e.float("CUTUP_HPM", 180),
		Seed:            e.int64("CUTUP_SEED", -1),
		Weights:         e.str("CUTUP_WEIGHTS", ""),
		CrossfadeFrames: e.int("CUTUP_CROSSFADE", 256),
		WindowMin:       e.float("CUTUP_WINDOW_MIN", 0.25),
		WindowMax:       e.float("CUTUP_WINDOW_MAX", 1.0),
		Jitter:          e.bool("CUTUP_JITTER", true),

		Stereoify: e.bool("CUTUP_STEREOIFY", false),
		Output:    e.str("CUTUP_OUTPUT", "output.wav"),
		FFmpeg:    e.str("CUTUP_FFMPEG", "ffmpeg"),

		Listen: e.str("CUTUP_LISTEN", ""),

		Verbose: e.bool("CUTUP_VERBOSE", false),
	}
	if len(e.malformed) > 0 {
		return cfg, errors.Errorf("malformed environment %v", strings.Join(e.malformed, ", "))
	}
	return cfg, nil
}

// LoadEnvFile loads KEY=VALUE pairs from a .env file into the environment.
// Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return errors.Wrapf(err, "load %v", path)
	}
	return nil
}

func (e *env) str(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.bad(key, v)
		return fallback
	}
	return n
}

func (e *env) int64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		e.bad(key, v)
		return fallback
	}
	return n
}

func (e *env) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	switch strings.ToLower(v) {
	case "":
		return fallback
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	e.bad(key, v)
	return fallback
}
