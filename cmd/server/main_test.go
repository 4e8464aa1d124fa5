package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/farmchain/internal/config"
)

func TestRootCommand_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["serve"])
	assert.True(t, names["migrate"])
	assert.True(t, names["export"])
	assert.NotNil(t, exportCmd.Flags().Lookup("folder"))
}

func TestSetupLogging(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)
	defer logrus.SetFormatter(&logrus.TextFormatter{})

	setupLogging(&config.Config{Environment: "production", Log: config.LogConfig{Level: "debug"}})
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, logrus.StandardLogger().Formatter)

	setupLogging(&config.Config{Environment: "development", Log: config.LogConfig{Level: "nonsense"}})
	assert.Equal(t, logrus.InfoLevel, logrus.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logrus.StandardLogger().Formatter)
}

func TestNewApp_MemoryDriver(t *testing.T) {
	cfg := &config.Config{
		Database: config.DatabaseConfig{Driver: "memory"},
		Storage:  config.StorageConfig{LocalPath: t.TempDir()},
	}

	a, err := newApp(context.Background(), cfg)
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.db)
	assert.Equal(t, 0, a.registry.Len())
	assert.NotNil(t, a.users)
}

func TestMigrate_RequiresDatabase(t *testing.T) {
	t.Setenv("PERSISTENCE_DRIVER", "memory")

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"migrate"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, errNeedsDatabase)
}
