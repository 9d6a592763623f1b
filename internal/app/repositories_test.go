package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/storefront-backend/internal/config"
)

func TestOpen_Memory(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: config.DriverMemory}}
	repos, ping, closeDB, err := Open(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer closeDB()

	assert.Nil(t, ping)
	assert.NotNil(t, repos.Categories)
	assert.NotNil(t, repos.Users)
	assert.NotNil(t, repos.Orders)
}

func TestOpen_UnknownDriver(t *testing.T) {
	cfg := &config.Config{Database: config.DatabaseConfig{Driver: "sqlite"}}
	_, _, _, err := Open(context.Background(), cfg, zap.NewNop())
	assert.EqualError(t, err, "unknown database driver sqlite")
}
