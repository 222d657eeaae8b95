package helper

import (
	"database/sql"
	"fmt"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// DatabaseConfiguration holds the connection settings of the project data store.
type DatabaseConfiguration struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
	SSLMode  string
}

// NewDatabaseConfiguration reads the connection settings from the environment.
// A .env file in the working directory is loaded first if present.
func NewDatabaseConfiguration() (*DatabaseConfiguration, error) {
	_ = godotenv.Load()

	config := &DatabaseConfiguration{
		Host:     os.Getenv("DB_HOST"),
		Port:     os.Getenv("DB_PORT"),
		Database: os.Getenv("DB_DATABASE"),
		Username: os.Getenv("DB_USERNAME"),
		Password: os.Getenv("DB_PASSWORD"),
		Schema:   envOrDefault("DB_SCHEMA", "public"),
		SSLMode:  envOrDefault("DB_SSLMODE", "disable"),
	}

	if config.Host == "" || config.Port == "" || config.Database == "" || config.Username == "" {
		return nil, NewError("database configuration", fmt.Errorf("%w: DB_HOST, DB_PORT, DB_DATABASE and DB_USERNAME are required", ErrConfiguration))
	}

	return config, nil
}

// ConnectionString returns the lib/pq connection string.
func (c *DatabaseConfiguration) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s search_path=%s",
		c.Host, c.Port, c.Username, c.Password, c.Database, c.SSLMode, c.Schema,
	)
}

// Database bundles the connection pool with the logger handlers write to.
type Database struct {
	Name     string
	Instance *sql.DB
	Logger   *slog.Logger
}

// NewDatabase opens and pings the database, retrying while it starts up.
func NewDatabase(name string, config *DatabaseConfiguration, logger *slog.Logger) (*Database, error) {
	if config == nil {
		return nil, NewError("database configuration", fmt.Errorf("%w: configuration is nil", ErrConfiguration))
	}

	instance, err := sql.Open("postgres", config.ConnectionString())
	if err != nil {
		return nil, NewError("open database", err)
	}

	instance.SetMaxOpenConns(25)
	instance.SetMaxIdleConns(5)
	instance.SetConnMaxLifetime(5 * time.Minute)

	for attempt := 1; ; attempt++ {
		err = instance.Ping()
		if err == nil {
			break
		}
		if attempt == 10 {
			_ = instance.Close()
			return nil, NewError("ping database", err)
		}
		time.Sleep(500 * time.Millisecond)
	}

	logger.Info("Connected to database", slog.String("name", name), slog.String("host", config.Host))

	return &Database{
		Name:     name,
		Instance: instance,
		Logger:   logger,
	}, nil
}

// NewTestDatabase connects with a debug logger and panics on failure.
func NewTestDatabase(config *DatabaseConfiguration) *Database {
	db, err := NewDatabase("test", config, NewLogger(os.Stdout, slog.LevelDebug))
	if err != nil {
		log.Panicf("error connecting to test database: %v", err)
	}
	return db
}

// Close closes the connection pool.
func (d *Database) Close() error {
	return d.Instance.Close()
}
