package postgres

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

func New() (*sqlx.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		os.Getenv("DB_HOST"),
		os.Getenv("DB_PORT"),
		os.Getenv("DB_USER"),
		os.Getenv("DB_PASSWORD"),
		os.Getenv("DB_NAME"),
		sslMode(),
	)

	logrus.Info(fmt.Sprintf("Connecting to Postgres at %s:%s...", os.Getenv("DB_HOST"), os.Getenv("DB_PORT")))

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	logrus.Info("Successfully connected to Postgres")

	return db, nil
}

func sslMode() string {
	mode := os.Getenv("DB_SSLMODE")
	if mode == "" {
		return "disable"
	}
	return mode
}

// Migrate applies the schema. Every statement is idempotent so it runs on
// each boot. The UNIQUE constraint on alerts.detection_id is load-bearing:
// it is what makes alert creation a per-detection once-only operation.
func Migrate(db *sqlx.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS detections (
			id             TEXT PRIMARY KEY,
			session_id     TEXT NOT NULL,
			location       TEXT NOT NULL DEFAULT '',
			has_helmet     BOOLEAN NOT NULL,
			confidence     DOUBLE PRECISION NOT NULL,
			bounding_boxes JSONB NOT NULL DEFAULT '[]',
			snapshot_url   TEXT NOT NULL DEFAULT '',
			captured_at    TIMESTAMPTZ NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE INDEX IF NOT EXISTS detections_session_id_idx ON detections (session_id)`,
		`CREATE INDEX IF NOT EXISTS detections_captured_at_idx ON detections (captured_at DESC)`,
		`CREATE TABLE IF NOT EXISTS alerts (
			id           TEXT PRIMARY KEY,
			detection_id TEXT NOT NULL,
			alert_type   TEXT NOT NULL,
			message      TEXT NOT NULL,
			severity     TEXT NOT NULL,
			location     TEXT NOT NULL DEFAULT '',
			email_sent   BOOLEAN NOT NULL DEFAULT FALSE,
			acknowledged BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
			CONSTRAINT alerts_detection_id_key UNIQUE (detection_id)
		)`,
		`CREATE INDEX IF NOT EXISTS alerts_created_at_idx ON alerts (created_at DESC)`,
		`CREATE INDEX IF NOT EXISTS alerts_acknowledged_idx ON alerts (acknowledged)`,
	}

	for _, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	logrus.Info("Database schema up to date")

	return nil
}
