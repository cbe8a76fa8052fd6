package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// DefaultEnvFile is read before the process environment when present.
const DefaultEnvFile = ".env"

// ErrConfiguration is the kind of every error returned by Validate.
var ErrConfiguration = errors.New("configuration error")

// ConfigurationError lists the required settings that are missing or malformed.
type ConfigurationError struct {
	Missing []string
	Invalid []string
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, "invalid values for: "+strings.Join(e.Invalid, ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

type (
	Config struct {
		Database
		HTTP
		Log
		Barcode
		Auth
	}

	Database struct {
		User            string
		Password        string
		Host            string
		Port            string
		Name            string
		SSLMode         string
		MaxOpenConns    int
		MaxIdleConns    int
		ConnMaxLifetime time.Duration
		LogSQL          bool
	}
	HTTP struct {
		Addr            string
		ShutdownTimeout time.Duration
	}
	Log struct {
		File         string
		Level        string // file handler
		ConsoleLevel string
	}
	Barcode struct {
		Dir string // parent of patron_barcodes/ and copy_barcodes/
	}
	Auth struct {
		BcryptCost int
	}
)

// requiredKeys must be set; DB_HOST falls back to localhost.
var requiredKeys = []string{"DB_USER", "DB_PASSWORD", "DB_PORT", "DB_NAME"}

// NewConfig reads settings from envFile (if it exists) and the process environment.
// Environment variables take precedence over the file.
func NewConfig(envFile string) *Config {
	v := viper.New()
	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			v.SetConfigFile(envFile)
			v.SetConfigType("env")
			// An unreadable .env is treated like an absent one; Validate reports what is missing.
			_ = v.ReadInConfig()
		}
	}
	v.AutomaticEnv()

	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("db_max_open_conns", 20)
	v.SetDefault("db_max_idle_conns", 10)
	v.SetDefault("db_conn_max_lifetime", "1h")
	v.SetDefault("db_log_sql", false)
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("shutdown_timeout", "5s")
	v.SetDefault("log_file", "app.log")
	v.SetDefault("log_level", "debug")
	v.SetDefault("log_console_level", "info")
	v.SetDefault("barcode_dir", ".")
	v.SetDefault("bcrypt_cost", 12)

	return &Config{
		Database: Database{
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			Name:            v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			LogSQL:          v.GetBool("DB_LOG_SQL"),
		},
		HTTP: HTTP{
			Addr:            v.GetString("SERVER_ADDR"),
			ShutdownTimeout: v.GetDuration("SHUTDOWN_TIMEOUT"),
		},
		Log: Log{
			File:         v.GetString("LOG_FILE"),
			Level:        v.GetString("LOG_LEVEL"),
			ConsoleLevel: v.GetString("LOG_CONSOLE_LEVEL"),
		},
		Barcode: Barcode{
			Dir: v.GetString("BARCODE_DIR"),
		},
		Auth: Auth{
			BcryptCost: v.GetInt("BCRYPT_COST"),
		},
	}
}

// Validate reports every missing required database setting at once.
func (c *Config) Validate() error {
	values := map[string]string{
		"DB_USER":     c.Database.User,
		"DB_PASSWORD": c.Database.Password,
		"DB_PORT":     c.Database.Port,
		"DB_NAME":     c.Database.Name,
	}

	cerr := &ConfigurationError{}
	for _, key := range requiredKeys {
		if strings.TrimSpace(values[key]) == "" {
			cerr.Missing = append(cerr.Missing, key)
		}
	}
	if c.Database.Port != "" {
		if p, err := strconv.Atoi(c.Database.Port); err != nil || p <= 0 || p > 65535 {
			cerr.Invalid = append(cerr.Invalid, "DB_PORT")
		}
	}

	if len(cerr.Missing) > 0 || len(cerr.Invalid) > 0 {
		return cerr
	}
	return nil
}

// DSN returns the PostgreSQL connection string for the configured database.
func (d Database) DSN() string {
	return d.dsnFor(d.Name)
}

// MaintenanceDSN targets the server's default "postgres" database, used to create Name.
func (d Database) MaintenanceDSN() string {
	return d.dsnFor("postgres")
}

func (d Database) dsnFor(dbname string) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, dbname, d.SSLMode,
	)
}
