package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"Server"`
	Database DatabaseConfig `mapstructure:"Database"`
	Redis    RedisConfig    `mapstructure:"Redis"`
	Log      LogConfig      `mapstructure:"Log"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"Port"`
	GRPCPort       string   `mapstructure:"GRPCPort"`
	StreamDir      string   `mapstructure:"StreamDir"`
	AllowedOrigins []string `mapstructure:"AllowedOrigins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"Host"`
	Port     string `mapstructure:"Port"`
	User     string `mapstructure:"User"`
	Password string `mapstructure:"Password"`
	Name     string `mapstructure:"Name"`
	SSLMode  string `mapstructure:"SSLMode"`
}

type RedisConfig struct {
	Addr    string `mapstructure:"Addr"`
	Channel string `mapstructure:"Channel"`
}

type LogConfig struct {
	Mode string `mapstructure:"Mode"`
}

func NewConfig(path string) (*Config, error) {
	v := viper.New()

	v.SetConfigFile(path)
	v.AutomaticEnv()

	// Переменные окружения имеют приоритет над файлом
	v.BindEnv("Database.Host", "DATABASE_HOST")
	v.BindEnv("Database.Port", "DATABASE_PORT")
	v.BindEnv("Database.User", "DATABASE_USER")
	v.BindEnv("Database.Password", "DATABASE_PASSWORD")
	v.BindEnv("Database.Name", "DATABASE_NAME")
	v.BindEnv("Database.SSLMode", "DATABASE_SSLMODE")
	v.BindEnv("Server.Port", "HTTP_PORT")
	v.BindEnv("Server.GRPCPort", "GRPC_PORT")
	v.BindEnv("Server.StreamDir", "STREAM_DIR")
	v.BindEnv("Redis.Addr", "REDIS_ADDR")
	v.BindEnv("Redis.Channel", "REDIS_CHANNEL")
	v.BindEnv("Log.Mode", "LOG_MODE")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Warning: using only environment variables: %v\n", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// В .env файле ключи плоские, добираем их напрямую
	fillString(v, &cfg.Database.Host, "DATABASE_HOST")
	fillString(v, &cfg.Database.Port, "DATABASE_PORT")
	fillString(v, &cfg.Database.User, "DATABASE_USER")
	fillString(v, &cfg.Database.Password, "DATABASE_PASSWORD")
	fillString(v, &cfg.Database.Name, "DATABASE_NAME")
	fillString(v, &cfg.Database.SSLMode, "DATABASE_SSLMODE")
	fillString(v, &cfg.Server.Port, "HTTP_PORT")
	fillString(v, &cfg.Server.GRPCPort, "GRPC_PORT")
	fillString(v, &cfg.Server.StreamDir, "STREAM_DIR")
	fillString(v, &cfg.Redis.Addr, "REDIS_ADDR")
	fillString(v, &cfg.Redis.Channel, "REDIS_CHANNEL")
	fillString(v, &cfg.Log.Mode, "LOG_MODE")

	if len(cfg.Server.AllowedOrigins) == 0 {
		if raw := v.GetString("ALLOWED_ORIGINS"); raw != "" {
			cfg.Server.AllowedOrigins = splitList(raw)
		}
	}

	if cfg.Database.Host == "" ||
		cfg.Database.Port == "" ||
		cfg.Database.User == "" ||
		cfg.Database.Password == "" ||
		cfg.Database.Name == "" {
		return nil, fmt.Errorf("database configuration is incomplete: host=%s, port=%s, user=%s, name=%s",
			cfg.Database.Host, cfg.Database.Port, cfg.Database.User, cfg.Database.Name)
	}

	// Значения по умолчанию
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = "2525"
	}
	if cfg.Server.GRPCPort == "" {
		cfg.Server.GRPCPort = "50051"
	}
	if cfg.Server.StreamDir == "" {
		cfg.Server.StreamDir = "/tmp/streams"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Redis.Channel == "" {
		cfg.Redis.Channel = "review-events"
	}
	if cfg.Log.Mode == "" {
		cfg.Log.Mode = "dev"
	}

	return &cfg, nil
}

func fillString(v *viper.Viper, dst *string, key string) {
	if *dst == "" {
		*dst = v.GetString(key)
	}
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GetDSN строка подключения для lib/pq, значения в кавычках
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		quoteDSN(c.Host),
		quoteDSN(c.Port),
		quoteDSN(c.User),
		quoteDSN(c.Password),
		quoteDSN(c.Name),
		quoteDSN(c.SSLMode),
	)
}

var dsnEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func quoteDSN(v string) string {
	return "'" + dsnEscaper.Replace(v) + "'"
}

// GetURL адрес базы в формате, который понимает golang-migrate
func (c *DatabaseConfig) GetURL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     net.JoinHostPort(c.Host, c.Port),
		Path:     "/" + c.Name,
		RawQuery: url.Values{"sslmode": []string{c.SSLMode}}.Encode(),
	}
	return u.String()
}
