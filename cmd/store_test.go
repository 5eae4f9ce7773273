package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acolyte-hq/pipeline-cli/internal/config"
	"github.com/acolyte-hq/pipeline-cli/internal/store"
)

func TestOpenStoreMemory(t *testing.T) {
	s, err := openStore(context.Background(), config.StoreConfig{Driver: "memory"})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &store.MemoryStore{}, s)
}

func TestOpenStoreSQLiteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.db")
	s, err := openStore(context.Background(), config.StoreConfig{Path: path})
	require.NoError(t, err)
	defer s.Close()

	assert.IsType(t, &store.SQLiteStore{}, s)
}

func TestOpenStorePostgresRequiresURL(t *testing.T) {
	_, err := openStore(context.Background(), config.StoreConfig{Driver: "postgres"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database_url")
}

func TestOpenStoreUnknownDriver(t *testing.T) {
	_, err := openStore(context.Background(), config.StoreConfig{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
