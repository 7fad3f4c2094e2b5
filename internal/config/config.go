package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the process configuration, read from AUTHCORE_* environment
// variables with sane defaults for local development.
type Config struct {
	Addr      string
	PGDSN     string
	RedisAddr string

	TokenKey      string
	TokenIssuer   string
	TokenAudience string
	TokenTTL      time.Duration

	LockoutMaxAttempts int
	LockoutBlock       time.Duration

	// Roles that may only be exercised by verified accounts.
	VerifiedRoles []string
}

// Load reads configuration from the environment. It validates shape only;
// key-length validation belongs to the token codec so misconfiguration fails
// in one place.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("AUTHCORE")
	v.AutomaticEnv()

	v.SetDefault("ADDR", ":8080")
	v.SetDefault("TOKEN_ISSUER", "waisgo-auth")
	v.SetDefault("TOKEN_AUDIENCE", "waisgo-app")
	v.SetDefault("TOKEN_TTL_SECONDS", 28800)
	v.SetDefault("LOCKOUT_MAX_ATTEMPTS", 5)
	v.SetDefault("LOCKOUT_BLOCK_MINUTES", 15)
	v.SetDefault("VERIFIED_ROLES", []string{"driver", "admin"})

	cfg := &Config{
		Addr:               v.GetString("ADDR"),
		PGDSN:              v.GetString("PG_DSN"),
		RedisAddr:          v.GetString("REDIS_ADDR"),
		TokenKey:           v.GetString("TOKEN_KEY"),
		TokenIssuer:        v.GetString("TOKEN_ISSUER"),
		TokenAudience:      v.GetString("TOKEN_AUDIENCE"),
		TokenTTL:           time.Duration(v.GetInt64("TOKEN_TTL_SECONDS")) * time.Second,
		LockoutMaxAttempts: v.GetInt("LOCKOUT_MAX_ATTEMPTS"),
		LockoutBlock:       time.Duration(v.GetInt64("LOCKOUT_BLOCK_MINUTES")) * time.Minute,
		VerifiedRoles:      v.GetStringSlice("VERIFIED_ROLES"),
	}
	if cfg.TokenKey == "" {
		return nil, fmt.Errorf("AUTHCORE_TOKEN_KEY is required")
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 8 * time.Hour
	}
	return cfg, nil
}
