package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Configuration holds the static settings needed to run the service.
type Configuration struct {
	Port string `env:"PORT" envDefault:"3000"`

	// Database
	DBDriver    string `env:"DB_DRIVER" envDefault:"sqlite"` // postgres | mysql | sqlite
	DatabaseURL string `env:"DATABASE_URL"`
	DBHost      string `env:"DB_HOST" envDefault:"localhost"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	DBName      string `env:"DB_NAME"`
	DBPort      string `env:"DB_PORT" envDefault:"5432"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"pos.db"`

	JWTSecret string `env:"JWT_SECRET"`
	Timezone  string `env:"TIMEZONE" envDefault:"Asia/Bangkok"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"` // empty = stdout only
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"50"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`

	LoginRateLimit int    `env:"LOGIN_RATE_LIMIT" envDefault:"20"` // per minute, 0 disables
	CORSOrigins    string `env:"CORS_ORIGINS" envDefault:"*"`
}

// fallbackZone is used when the tz database has no entry for Timezone.
var fallbackZone = time.FixedZone("UTC+7", 7*60*60)

// Load reads .env files (if any) and then the process environment. The
// returned bool reports whether a .env file was found.
func Load(files ...string) (*Configuration, bool, error) {
	dotenv := godotenv.Load(files...) == nil

	cfg := Configuration{}
	if err := env.Parse(&cfg); err != nil {
		return nil, dotenv, fmt.Errorf("parse config: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	return &cfg, dotenv, nil
}

// Location resolves Timezone.
func (c *Configuration) Location() *time.Location {
	if c.Timezone == "" {
		return fallbackZone
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return fallbackZone
	}
	return loc
}

// Origins returns the CORS allow-list in the comma form fiber expects.
func (c *Configuration) Origins() string {
	parts := strings.Split(c.CORSOrigins, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "*"
	}
	return strings.Join(out, ",")
}
