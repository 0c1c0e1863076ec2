package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads environment variables from a .env file if present.
// Existing environment variables are not overwritten.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}

type Config struct {
	Backend                  string
	QuestionCount            int
	RoundDurationMs          int
	TickMs                   int
	TeamCount                int
	MaxPlayersPerTeam        int
	QuoteAPIURL              string
	QuoteManagedAPIURL       string
	QuoteAPIKey              string
	DBMaxOpenConns           int
	DBMaxIdleConns           int
	DBConnMaxLifetimeSeconds int
	DBConnMaxIdleTimeSeconds int
}

func Default() Config {
	return Config{
		Backend:                  "langflow",
		QuestionCount:            10,
		RoundDurationMs:          60000,
		TickMs:                   1000,
		TeamCount:                4,
		MaxPlayersPerTeam:        4,
		DBMaxOpenConns:           10,
		DBMaxIdleConns:           10,
		DBConnMaxLifetimeSeconds: 300,
		DBConnMaxIdleTimeSeconds: 60,
	}
}

func Load() Config {
	cfg := Default()
	if raw := os.Getenv("QUOTE_BACKEND"); raw != "" {
		cfg.Backend = raw
	}
	if raw := os.Getenv("QUESTION_COUNT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.QuestionCount = value
		}
	}
	if raw := os.Getenv("ROUND_DURATION_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.RoundDurationMs = value
		}
	}
	if raw := os.Getenv("TICK_MS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TickMs = value
		}
	}
	if raw := os.Getenv("TEAM_COUNT"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.TeamCount = value
		}
	}
	if raw := os.Getenv("MAX_PLAYERS_PER_TEAM"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.MaxPlayersPerTeam = value
		}
	}
	if raw := os.Getenv("QUOTE_API_URL"); raw != "" {
		cfg.QuoteAPIURL = raw
	}
	if raw := os.Getenv("QUOTE_MANAGED_API_URL"); raw != "" {
		cfg.QuoteManagedAPIURL = raw
	}
	if raw := os.Getenv("QUOTE_API_KEY"); raw != "" {
		cfg.QuoteAPIKey = raw
	}
	if raw := os.Getenv("DB_MAX_OPEN_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxOpenConns = value
		}
	}
	if raw := os.Getenv("DB_MAX_IDLE_CONNS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBMaxIdleConns = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_LIFETIME_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxLifetimeSeconds = value
		}
	}
	if raw := os.Getenv("DB_CONN_MAX_IDLE_SECONDS"); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil && value > 0 {
			cfg.DBConnMaxIdleTimeSeconds = value
		}
	}
	return cfg
}
