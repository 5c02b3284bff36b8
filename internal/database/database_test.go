package database

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/papertalks/bibliometrics-service/internal/config"
)

// mockDBTX is a mock implementation of DBTX for interface verification.
type mockDBTX struct{}

func (m *mockDBTX) Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (m *mockDBTX) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (m *mockDBTX) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	return nil
}

func (m *mockDBTX) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return nil
}

func TestDBTX_Interface(t *testing.T) {
	var _ DBTX = (*mockDBTX)(nil)
}

func TestHealthCheckTimeout(t *testing.T) {
	assert.Equal(t, 5*time.Second, HealthCheckTimeout)
}

func TestHealthStatus_JSON(t *testing.T) {
	t.Run("error field included when populated", func(t *testing.T) {
		hs := HealthStatus{
			Status:        "unhealthy",
			Error:         "connection refused",
			TotalConns:    10,
			AcquiredConns: 3,
			IdleConns:     7,
			MaxConns:      50,
		}

		data, err := json.Marshal(hs)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"error":"connection refused"`)
		assert.Contains(t, string(data), `"status":"unhealthy"`)
	})

	t.Run("empty error field is omitted", func(t *testing.T) {
		hs := HealthStatus{
			Status:   "healthy",
			MaxConns: 25,
		}

		data, err := json.Marshal(hs)
		require.NoError(t, err)
		assert.NotContains(t, string(data), `"error"`)
		assert.Contains(t, string(data), `"status":"healthy"`)
	})
}

func TestDatabaseConfig_DSN_SpecialCharacters(t *testing.T) {
	cfg := &config.DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user@domain",
		Password: "pass/word",
		Name:     "bibliometrics",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()

	assert.Contains(t, dsn, "user%40domain")
	assert.Contains(t, dsn, "pass%2Fword")
	assert.Contains(t, dsn, "postgres://")
}
