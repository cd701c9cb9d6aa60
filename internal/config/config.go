package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type DBConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	TimeZone        string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifeTime int // minutes
}

type Config struct {
	HTTPAddr  string
	JWTSecret string
	TokenTTL  time.Duration
	DB        DBConfig
}

func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:  getEnv("HTTP_ADDR", ":8080"),
		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		DB: DBConfig{
			Host:            getEnv("DB_HOST", "postgres"),
			User:            getEnv("DB_USER", "staypay"),
			Password:        getEnv("DB_PASSWORD", "staypay"),
			Name:            getEnv("DB_NAME", "staypay_db"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			TimeZone:        getEnv("DB_TIMEZONE", "Asia/Tokyo"),
			Port:            getEnvInt("DB_PORT", 5432),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifeTime: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 30),
		},
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("invalid config: JWT_SECRET must not be empty")
	}
	if cfg.DB.Host == "" || cfg.DB.User == "" || cfg.DB.Name == "" {
		return nil, fmt.Errorf("invalid DB config: host/user/name must not be empty")
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		i, err := strconv.Atoi(v)
		if err == nil {
			return i
		}
	}
	return def
}
