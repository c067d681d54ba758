package auth

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	SessionSecret string        `mapstructure:"SessionSecret"`
	CookieName    string        `mapstructure:"CookieName"`
	SessionTTL    time.Duration `mapstructure:"SessionTTL"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.BindEnv("SessionSecret", "SESSION_SECRET")
	v.BindEnv("CookieName", "SESSION_COOKIE")
	v.BindEnv("SessionTTL", "SESSION_TTL")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("cannot read config from %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("cannot unmarshal config: %w", err)
	}

	if cfg.SessionSecret == "" {
		return nil, fmt.Errorf("SessionSecret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = "session"
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 7 * 24 * time.Hour
	}

	return &cfg, nil
}
