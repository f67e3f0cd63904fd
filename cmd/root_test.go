package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hdb-resale/resale-cli/internal/config"
)

func TestRootCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	expected := []string{"geocode", "geocode-amenities", "nearest", "predict", "serve", "runs"}
	for _, name := range expected {
		assert.True(t, names[name], "expected subcommand %q not found", name)
	}
}

func TestRootCommand_Metadata(t *testing.T) {
	assert.Equal(t, "resale-cli", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestNearestCommand_Flags(t *testing.T) {
	for _, name := range []string{"houses", "amenities", "out", "geojson", "concurrency", "checkpoint-every", "skip-invalid", "name-field"} {
		require.NotNil(t, nearestCmd.Flags().Lookup(name), "nearest should have --%s", name)
	}
	assert.Equal(t, "nearest_amenity.csv", nearestCmd.Flags().Lookup("out").DefValue)
}

func TestGeocodeAmenitiesCommand_Flags(t *testing.T) {
	flag := geocodeAmenitiesCmd.Flags().Lookup("column")
	require.NotNil(t, flag)
	assert.Equal(t, "address", flag.DefValue)
}

func TestServeCommand_Flags(t *testing.T) {
	flag := serveCmd.Flags().Lookup("port")
	require.NotNil(t, flag, "serve command should have --port flag")
	assert.Equal(t, "0", flag.DefValue)
}

func TestRunsCommand_HasSubcommands(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range runsCmd.Commands() {
		names[c.Name()] = true
	}
	for _, name := range []string{"list", "show", "export"} {
		assert.True(t, names[name], "expected runs subcommand %q", name)
	}
}

func TestApplyGlobalFlags(t *testing.T) {
	c := &config.Config{
		Store: config.StoreConfig{Path: "resale.db"},
		Log:   config.LogConfig{Level: "info"},
	}

	applyGlobalFlags(nearestCmd, c)
	assert.Equal(t, "resale.db", c.Store.Path, "unset flags leave config alone")

	require.NoError(t, rootCmd.PersistentFlags().Set("db", "/tmp/other.db"))
	t.Cleanup(func() {
		f := rootCmd.PersistentFlags().Lookup("db")
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	})

	applyGlobalFlags(nearestCmd, c)
	assert.Equal(t, "/tmp/other.db", c.Store.Path)
	assert.Equal(t, "info", c.Log.Level)
}
