// Package test holds integration tests that run the services against real
// Postgres and Kafka containers.
package test

import (
	"context"
	"database/sql"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/joao-fontenele/orderflow-checkout/internal/telemetry"
)

// SetupPostgres starts a migrated and seeded Postgres and returns an open pool
// on it. The container and the pool are released when the test ends.
func SetupPostgres(ctx context.Context, t *testing.T) *sql.DB {
	t.Helper()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("checkout"),
		postgres.WithUsername("checkout"),
		postgres.WithPassword("checkout"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	})

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	if err := migrateUp(connStr); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	db, err := telemetry.OpenDB(connStr)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func migrateUp(connStr string) error {
	m, err := migrate.New(migrationsURL(), connStr)
	if err != nil {
		return errors.Wrap(err, "create migrate instance")
	}
	defer func() { _, _ = m.Close() }()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "up")
	}
	return nil
}

// migrationsURL points at the repository migrations regardless of the
// directory the tests run from.
func migrationsURL() string {
	_, filename, _, _ := runtime.Caller(0)
	root := filepath.Dir(filepath.Dir(filename))
	return "file://" + filepath.Join(root, "migrations")
}

// SetupKafka starts a single broker, creates topics on it and returns its
// addresses.
func SetupKafka(ctx context.Context, t *testing.T, topics ...string) []string {
	t.Helper()

	container, err := kafka.Run(ctx,
		"confluentinc/confluent-local:7.8.0",
		kafka.WithClusterID("checkout-test"),
	)
	if err != nil {
		t.Fatalf("failed to start kafka container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	if err != nil {
		t.Fatalf("failed to get kafka brokers: %v", err)
	}

	if len(topics) > 0 {
		if err := createTopics(ctx, brokers[0], topics); err != nil {
			t.Fatalf("failed to create topics: %v", err)
		}
	}

	return brokers
}

// createTopics creates single partition topics up front so the first write
// does not race automatic topic creation.
func createTopics(ctx context.Context, broker string, topics []string) error {
	conn, err := kafkago.DialContext(ctx, "tcp", broker)
	if err != nil {
		return errors.Wrap(err, "dial")
	}
	defer func() { _ = conn.Close() }()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		})
	}
	return conn.CreateTopics(configs...)
}
