package config

import (
	"log"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Auth     AuthConfig
	Catalog  CatalogConfig
	Uploads  UploadsConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret verifies the bearer tokens the service accepts on
	// mutating routes.
	JWTSecret string
	// BearerToken is the credential the client core attaches to its own
	// mutating requests. Obtaining and refreshing it is session
	// management's job, not the catalog's.
	BearerToken string
}

type CatalogConfig struct {
	// BaseURL is where the remote catalog service lives.
	BaseURL string
	// RatePerMinute caps mutating requests per client; 0 disables the
	// limiter.
	RatePerMinute int
}

type UploadsConfig struct {
	Dir string
}

func Load() *Config {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CATALOG_BASE_URL", "http://localhost:8080")
	viper.SetDefault("CATALOG_RATE_PER_MINUTE", 0)
	viper.SetDefault("UPLOADS_DIR", "./uploads")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Auth: AuthConfig{
			JWTSecret:   viper.GetString("JWT_SECRET"),
			BearerToken: viper.GetString("CATALOG_TOKEN"),
		},
		Catalog: CatalogConfig{
			BaseURL:       viper.GetString("CATALOG_BASE_URL"),
			RatePerMinute: viper.GetInt("CATALOG_RATE_PER_MINUTE"),
		},
		Uploads: UploadsConfig{
			Dir: viper.GetString("UPLOADS_DIR"),
		},
	}
}
