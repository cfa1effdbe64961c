package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Receipt  ReceiptConfig
	Log      LogConfig
}

type ServerConfig struct {
	Port int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type AuthConfig struct {
	JWTSecret        string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
}

type ReceiptConfig struct {
	StoreName    string
	AddressLine1 string
	AddressLine2 string
}

type LogConfig struct {
	Level string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", 3306)
	viper.SetDefault("DB_USER", "pos")
	viper.SetDefault("DB_PASSWORD", "secret")
	viper.SetDefault("DB_NAME", "pos")
	viper.SetDefault("DB_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DB_MAX_IDLE_CONNS", 5)
	viper.SetDefault("DB_CONN_MAX_LIFETIME", "5m")
	viper.SetDefault("JWT_SECRET", "")
	viper.SetDefault("JWT_REFRESH_SECRET", "")
	viper.SetDefault("ACCESS_TOKEN_TTL", "8h")
	viper.SetDefault("REFRESH_TOKEN_TTL", "168h")
	viper.SetDefault("RECEIPT_STORE_NAME", "SOTO IBUK SENOPATI")
	viper.SetDefault("RECEIPT_ADDRESS_LINE1", "Jl. Tulodong Atas 1 No 3A")
	viper.SetDefault("RECEIPT_ADDRESS_LINE2", "Kebayoran Baru Jakarta")
	viper.SetDefault("LOG_LEVEL", "info")

	connMaxLifetime, err := time.ParseDuration(viper.GetString("DB_CONN_MAX_LIFETIME"))
	if err != nil {
		return nil, err
	}

	accessTTL, err := time.ParseDuration(viper.GetString("ACCESS_TOKEN_TTL"))
	if err != nil {
		return nil, err
	}

	refreshTTL, err := time.ParseDuration(viper.GetString("REFRESH_TOKEN_TTL"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetInt("SERVER_PORT"),
		},
		Database: DatabaseConfig{
			Host:            viper.GetString("DB_HOST"),
			Port:            viper.GetInt("DB_PORT"),
			User:            viper.GetString("DB_USER"),
			Password:        viper.GetString("DB_PASSWORD"),
			Name:            viper.GetString("DB_NAME"),
			MaxOpenConns:    viper.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    viper.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: connMaxLifetime,
		},
		Auth: AuthConfig{
			JWTSecret:        viper.GetString("JWT_SECRET"),
			JWTRefreshSecret: viper.GetString("JWT_REFRESH_SECRET"),
			AccessTokenTTL:   accessTTL,
			RefreshTokenTTL:  refreshTTL,
		},
		Receipt: ReceiptConfig{
			StoreName:    viper.GetString("RECEIPT_STORE_NAME"),
			AddressLine1: viper.GetString("RECEIPT_ADDRESS_LINE1"),
			AddressLine2: viper.GetString("RECEIPT_ADDRESS_LINE2"),
		},
		Log: LogConfig{
			Level: viper.GetString("LOG_LEVEL"),
		},
	}

	return cfg, nil
}
