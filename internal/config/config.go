// Package config loads environment-backed settings shared by the
// phrasesynth commands.
package config

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrDatabaseEnv indicates that required Postgres variables are unset.
	ErrDatabaseEnv = errors.New("PG_DB / PG_USER / PG_PASSWORD must be set in the environment or .env")
	// ErrAzureEnv indicates that required Azure Speech variables are unset.
	ErrAzureEnv = errors.New("AZURE_TTS_KEY / AZURE_TTS_REGION must be set in the environment or .env")
)

// Database holds Postgres connection settings.
type Database struct {
	Name     string `env:"PG_DB"`
	User     string `env:"PG_USER"`
	Password string `env:"PG_PASSWORD"`
	Host     string `env:"PG_HOST" envDefault:"localhost"`
	Port     string `env:"PG_PORT" envDefault:"5432"`
}

// Azure holds Azure Speech credentials.
type Azure struct {
	Key    string `env:"AZURE_TTS_KEY"`
	Region string `env:"AZURE_TTS_REGION"`
}

// Config is the full environment configuration. Credentials are read once
// here and passed down explicitly; nothing below the commands touches the
// environment.
type Config struct {
	Database Database
	Azure    Azure
}

// Load reads a .env file when one is present, then parses the process
// environment. A missing .env is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("unable to parse environment: %w", err)
	}
	return cfg, nil
}

// Validate checks that the required Postgres variables are present.
func (d Database) Validate() error {
	if d.Name == "" || d.User == "" || d.Password == "" {
		return ErrDatabaseEnv
	}
	return nil
}

// DSN assembles a postgres:// connection URL for the pgx driver.
func (d Database) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   d.Host + ":" + d.Port,
		Path:   "/" + d.Name,
	}
	return u.String()
}

// Validate checks that the required Azure Speech variables are present.
func (a Azure) Validate() error {
	if a.Key == "" || a.Region == "" {
		return ErrAzureEnv
	}
	return nil
}
