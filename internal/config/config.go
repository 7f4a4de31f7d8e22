package config

import (
	"github.com/spf13/viper"
)

// Config holds all runtime configuration, loaded from an optional .env
// file and STUDYPIPE_-prefixed environment variables.
type Config struct {
	Addr string `mapstructure:"ADDR"`

	// Storage: "sqlite" or "memory".
	DBDriver      string `mapstructure:"DB_DRIVER"`
	SQLitePath    string `mapstructure:"SQLITE_PATH"`
	MigrationsDir string `mapstructure:"MIGRATIONS_DIR"`

	StaticDir string `mapstructure:"STATIC_DIR"`

	CORSOrigins []string `mapstructure:"CORS_ORIGINS"`

	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`
	RateLimitBurst     int `mapstructure:"RATE_LIMIT_BURST"`

	MaxBodyBytes int64 `mapstructure:"MAX_BODY_BYTES"`

	LogLevel string `mapstructure:"LOG_LEVEL"`
}

// Load reads configuration from path/.env if present, then overlays
// environment variables. Missing files are fine; env-only deployments
// are the common case.
func Load(path string) (Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName(".env")
	v.SetConfigType("env")

	v.SetEnvPrefix("STUDYPIPE")
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "sqlite")
	v.SetDefault("SQLITE_PATH", "studypipe.db")
	v.SetDefault("MIGRATIONS_DIR", "")
	v.SetDefault("STATIC_DIR", "")
	v.SetDefault("CORS_ORIGINS", []string{"*"})
	v.SetDefault("RATE_LIMIT_PER_MINUTE", 120)
	v.SetDefault("RATE_LIMIT_BURST", 20)
	v.SetDefault("MAX_BODY_BYTES", 10*1024)
	v.SetDefault("LOG_LEVEL", "info")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
