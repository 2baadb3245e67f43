package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	Env string `validate:"required,oneof=dev prod"`

	HTTP struct {
		Addr string `validate:"required"`
	}

	DB struct {
		Host     string `validate:"required"`
		Port     int    `validate:"required,min=1,max=65535"`
		User     string `validate:"required"`
		Password string
		Name     string `validate:"required"`
		SSLMode  string `validate:"required,oneof=disable allow prefer require verify-ca verify-full"`

		MigrationsGlobal string `validate:"required"`
		MigrationsTenant string `validate:"required"`
		WaitTimeout      int    `validate:"min=1"` // seconds
	}

	Log struct {
		ConsoleLevel string `validate:"required,oneof=debug info warn error"`
		FileLevel    string `validate:"required,oneof=debug info warn error"`
		File         string
	}

	// Tenant controls the wall-clock frame maintenance windows are judged in.
	Tenant struct {
		UTCOffsetHours int `validate:"min=-12,max=14"`
	}

	// Sweeps are 5-field cron specs (or @-descriptors) for the periodic
	// maintenance passes.
	Sweeps struct {
		Start    string `validate:"required"`
		Complete string `validate:"required"`
		Reminder string `validate:"required"`
	}
}

var validate = validator.New()

// Load reads configuration from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	var c Config
	c.Env = getenv("ENV", "prod")
	c.HTTP.Addr = getenv("HTTP_ADDR", ":8080")

	c.DB.Host = getenv("DB_HOST", "localhost")
	c.DB.Port = getenvInt("DB_PORT", 5432)
	c.DB.User = os.Getenv("DB_USER")
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = os.Getenv("DB_NAME")
	c.DB.SSLMode = getenv("DB_SSLMODE", "disable")
	c.DB.MigrationsGlobal = getenv("DB_MIGRATIONS_GLOBAL", "migrations/global")
	c.DB.MigrationsTenant = getenv("DB_MIGRATIONS_TENANT", "migrations/tenant")
	c.DB.WaitTimeout = getenvInt("DB_WAIT_TIMEOUT", 60)

	c.Log.ConsoleLevel = strings.ToLower(getenv("LOG_CONSOLE_LEVEL", "info"))
	c.Log.FileLevel = strings.ToLower(getenv("LOG_FILE_LEVEL", "debug"))
	c.Log.File = getenv("LOG_FILE", "data/logs/buildingops.log")

	c.Tenant.UTCOffsetHours = getenvInt("TENANT_UTC_OFFSET_HOURS", 7)

	c.Sweeps.Start = getenv("SWEEP_START_CRON", "@every 5m")
	c.Sweeps.Complete = getenv("SWEEP_COMPLETE_CRON", "@every 5m")
	c.Sweeps.Reminder = getenv("SWEEP_REMINDER_CRON", "0 8 * * *")

	if err := validate.Struct(c); err != nil {
		return Config{}, err
	}
	return c, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
