package db

import (
	"database/sql"
	"fmt"
	"log"

	"stream-verification/internal/config"

	_ "github.com/lib/pq"
)

func ConnectPostgres(cfg *config.Config) (*sql.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.PostgresHost,
		cfg.PostgresPort,
		cfg.PostgresUser,
		cfg.PostgresPassword,
		cfg.PostgresDB,
		cfg.PostgresSSLMode,
	)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Create schema if it doesn't exist
	createSchemaSQL := fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", cfg.PostgresSchema)
	if _, err := db.Exec(createSchemaSQL); err != nil {
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	// Set search_path to use the schema
	setSearchPathSQL := fmt.Sprintf("SET search_path TO %s, public", cfg.PostgresSchema)
	if _, err := db.Exec(setSearchPathSQL); err != nil {
		return nil, fmt.Errorf("failed to set search_path: %w", err)
	}

	// Run migrations
	if err := runMigrations(db, cfg.PostgresSchema); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	log.Printf("PostgreSQL connection established (database: %s, schema: %s)", cfg.PostgresDB, cfg.PostgresSchema)
	return db, nil
}

func runMigrations(db *sql.DB, schema string) error {
	log.Println("Running migrations...")

	migrations := []string{
		// Create stream sessions table
		`CREATE TABLE IF NOT EXISTS stream_sessions (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			status TEXT NOT NULL,
			total_units BIGINT NOT NULL DEFAULT 0,
			total_analyses INTEGER NOT NULL DEFAULT 0,
			suspicious_count INTEGER NOT NULL DEFAULT 0,
			started_at TIMESTAMP WITH TIME ZONE NOT NULL,
			finished_at TIMESTAMP WITH TIME ZONE
		)`,

		// Create indexes for stream sessions
		`CREATE INDEX IF NOT EXISTS idx_stream_sessions_kind ON stream_sessions(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_stream_sessions_started_at ON stream_sessions(started_at DESC)`,

		// Create alerts table
		`CREATE TABLE IF NOT EXISTS alerts (
			id TEXT PRIMARY KEY,
			session_id TEXT NOT NULL REFERENCES stream_sessions(id) ON DELETE CASCADE,
			kind TEXT NOT NULL,
			unit_number BIGINT NOT NULL,
			alert_type TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			findings TEXT[],
			anomaly_types TEXT[],
			raised_at TIMESTAMP WITH TIME ZONE NOT NULL
		)`,

		// Create index for alerts
		`CREATE INDEX IF NOT EXISTS idx_alerts_session_id ON alerts(session_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Printf("Migrations completed successfully in schema: %s", schema)
	return nil
}
