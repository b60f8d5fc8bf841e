//go:build integration

// Run with:
//
//	go test -v -tags=integration ./internal/source/...
package source

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/linkrank-search/pkg/postgres"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := postgres.New(ctx, testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "linkrank_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "linkrank"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    5,
		MaxIdleConns:    2,
		ConnMaxLifetime: 5 * time.Minute,
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func TestPostgresRoundTripAgainstDatabase(t *testing.T) {
	ctx := context.Background()
	client := skipIfNoPostgres(t)
	p := NewPostgres(client)
	require.NoError(t, p.Migrate(ctx))

	id := "it-" + strconv.FormatInt(time.Now().UnixNano(), 36)
	t.Cleanup(func() {
		_, _ = client.DB.ExecContext(context.Background(), `DELETE FROM documents WHERE id = $1`, id)
	})

	links := []string{"z.example", "a.example", "m.example"}
	require.NoError(t, p.Put(ctx, Document{ID: id, Links: links, Content: "Cats; sat!"}))

	got, err := p.Links(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, links, got)

	content, err := p.Content(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"cats", "sat"}, content)

	content, err = p.Content(ctx, id+"-missing")
	require.NoError(t, err)
	assert.Empty(t, content)
}
