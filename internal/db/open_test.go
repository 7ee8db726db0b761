package db

import (
	"context"
	"testing"

	"NovaRamp/internal/config"
	"NovaRamp/internal/logging"
	"NovaRamp/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenRepositoryMemory(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverMemory

	repo, closeFn, err := OpenRepository(context.Background(), cfg, logging.Discard())
	require.NoError(t, err)
	defer closeFn()
	assert.IsType(t, &memstore.Store{}, repo)
}

func TestOpenRepositoryBadDSN(t *testing.T) {
	cfg := &config.Config{}
	cfg.DB.Driver = config.DriverPostgres
	cfg.DB.DSN = "://not a dsn"

	_, _, err := OpenRepository(context.Background(), cfg, logging.Discard())
	assert.Error(t, err)
}
