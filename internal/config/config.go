package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// maxOffsetMinutes bounds TZ_OFFSET_MINUTES to real-world UTC offsets.
const maxOffsetMinutes = 14 * 60

type Config struct {
	HTTPAddr string     `env:"HTTP_ADDR" envDefault:":8080"`
	DBPath   string     `env:"DB_PATH" envDefault:"data/cluegame.db"`
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"INFO"`

	// Optional backends. Empty disables them.
	RedisURL    string `env:"REDIS_URL"`
	NATSURL     string `env:"NATS_URL"`
	NATSSubject string `env:"NATS_SUBJECT" envDefault:"cluegame.attempts"`

	MatchThreshold        float64       `env:"MATCH_THRESHOLD" envDefault:"0.5"`
	TZOffsetMinutes       int           `env:"TZ_OFFSET_MINUTES" envDefault:"0"`
	BoundaryCheckInterval time.Duration `env:"BOUNDARY_CHECK_INTERVAL" envDefault:"1m"`
	ClueCacheTTL          time.Duration `env:"CLUE_CACHE_TTL" envDefault:"10m"`
	SessionTTL            time.Duration `env:"SESSION_TTL" envDefault:"48h"`
	SessionIdleTimeout    time.Duration `env:"SESSION_IDLE_TIMEOUT" envDefault:"2h"`

	// SeedFile, when set, is loaded at startup. See server.SeedFile.
	SeedFile string `env:"SEED_FILE"`

	AdminEmail    string `env:"ADMIN_EMAIL"`
	AdminPassword string `env:"ADMIN_PASSWORD"`

	// APIBaseURL is where cmd/play finds the collaborator service.
	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.MatchThreshold <= 0 || c.MatchThreshold > 1 {
		errs = append(errs, fmt.Errorf("MATCH_THRESHOLD must be in (0, 1], got %v", c.MatchThreshold))
	}
	if c.TZOffsetMinutes < -maxOffsetMinutes || c.TZOffsetMinutes > maxOffsetMinutes {
		errs = append(errs, fmt.Errorf("TZ_OFFSET_MINUTES must be within ±%d, got %d", maxOffsetMinutes, c.TZOffsetMinutes))
	}
	if c.BoundaryCheckInterval <= 0 {
		errs = append(errs, fmt.Errorf("BOUNDARY_CHECK_INTERVAL must be positive, got %s", c.BoundaryCheckInterval))
	}
	if (c.AdminEmail == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}
	return errors.Join(errs...)
}
