package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config carries the engine's runtime settings, loaded from the
// environment with a .env fallback.
type Config struct {
	DatabaseURL string
	SQLitePath  string

	RedisAddr string

	KafkaBrokers string
	KafkaTopic   string

	AutoSaveKeep      int
	AutoSaveRetention time.Duration
	SweepSchedule     string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debugf("no .env file found: %v", err)
	}

	return &Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		SQLitePath:        getEnv("SQLITE_PATH", ".db/revision.db"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:        getEnv("KAFKA_TOPIC", "revision.lifecycle"),
		AutoSaveKeep:      getEnvInt("AUTOSAVE_KEEP", 5),
		AutoSaveRetention: getEnvDuration("AUTOSAVE_RETENTION", 30*24*time.Hour),
		SweepSchedule:     getEnv("SWEEP_SCHEDULE", "@hourly"),
	}
}

// GetDb opens the configured database, postgres when DATABASE_URL is
// set, a local sqlite file otherwise.
func GetDb(cfg *Config) *gorm.DB {
	var db *gorm.DB
	var err error

	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	} else {
		if mkErr := os.MkdirAll(".db", os.ModePerm); mkErr != nil {
			logrus.Fatalf("failed to create db directory: %v", mkErr)
		}
		db, err = gorm.Open(sqlite.Open(cfg.SQLitePath), &gorm.Config{})
	}
	if err != nil {
		logrus.Fatalf("failed to open database: %v", err)
	}

	return db
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		logrus.Warnf("invalid %s value %q, using %d: %v", key, value, fallback, err)
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		logrus.Warnf("invalid %s value %q, using %s: %v", key, value, fallback, err)
		return fallback
	}
	return parsed
}
