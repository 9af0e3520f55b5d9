package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_InvalidURL(t *testing.T) {
	_, err := NewPool(context.Background(), Config{URL: "postgres://%zz"})
	assert.Error(t, err)
}

func TestNewPool_Live(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := NewPool(context.Background(), Config{URL: url, MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	defer pool.Close()

	assert.Equal(t, int32(4), pool.Config().MaxConns)
}
