package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"ladder-engine/internal/constants"
	"ladder-engine/internal/domain"
)

type Config struct {
	DBPath           string
	ServerPort       string
	LogLevel         string
	LadderConfigPath string
	StoreBaseURL     string
	StoreAPIKey      string
	StoreRateLimit   float64
	Ladders          map[string]domain.LadderConfig
}

func Load(logger zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logger.Debug().Msg(".env file not found, using environment variables or defaults")
	}

	cfg := &Config{
		DBPath:           getEnv("DB_PATH", "ladder.db"),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LadderConfigPath: getEnv("LADDER_CONFIG", ""),
		StoreBaseURL:     getEnv("STORE_BASE_URL", ""),
		StoreAPIKey:      getEnv("STORE_API_KEY", ""),
	}

	limit, err := strconv.ParseFloat(getEnv("STORE_RATE_LIMIT", strconv.Itoa(constants.DefaultStoreRateMax)), 64)
	if err != nil || limit <= 0 {
		return nil, fmt.Errorf("STORE_RATE_LIMIT must be a positive number")
	}
	cfg.StoreRateLimit = limit

	ladders, err := LoadLadders(cfg.LadderConfigPath)
	if err != nil {
		return nil, err
	}
	cfg.Ladders = ladders

	logger.Info().
		Str("db_path", cfg.DBPath).
		Str("server_port", cfg.ServerPort).
		Str("log_level", cfg.LogLevel).
		Bool("store_import", cfg.StoreBaseURL != "").
		Strs("ladders", cfg.LadderNames()).
		Msg("configuration loaded")

	return cfg, nil
}

// LadderNames returns the configured ladders in a stable order.
func (c *Config) LadderNames() []string {
	names := make([]string, 0, len(c.Ladders))
	for name := range c.Ladders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

var Module = fx.Provide(Load)
