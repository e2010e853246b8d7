package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:3333", cfg.Catalog.BaseURL)
	assert.Equal(t, "granted", cfg.Location.Permission)
	assert.Equal(t, 0.014, cfg.Map.Delta)
	assert.Equal(t, SourceDataset, cfg.Points.Source)
	assert.Equal(t, 3333, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ecoleta.yaml")
	content := `
catalog:
  base_url: http://catalog.internal:3333
location:
  permission: denied
  latitude: -22.9
  longitude: -43.2
map:
  delta: 0.02
points:
  source: none
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	t.Setenv("ECOLETA_LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://catalog.internal:3333", cfg.Catalog.BaseURL)
	assert.Equal(t, "denied", cfg.Location.Permission)
	assert.Equal(t, -22.9, cfg.Location.Latitude)
	assert.Equal(t, 0.02, cfg.Map.Delta)
	assert.Equal(t, SourceNone, cfg.Points.Source)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Catalog:  CatalogConfig{BaseURL: "http://localhost:3333", Timeout: 10},
			Location: LocationConfig{Permission: "granted"},
			Map:      MapConfig{Delta: 0.014},
			Points:   PointsConfig{Source: SourceNone},
			Server:   ServerConfig{Port: 3333},
		}
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())

	testCases := []struct {
		name    string
		mutate  func(c *Config)
		message string
	}{
		{"permission", func(c *Config) { c.Location.Permission = "maybe" }, "location.permission"},
		{"delta", func(c *Config) { c.Map.Delta = 0 }, "map.delta"},
		{"source", func(c *Config) { c.Points.Source = "s3" }, "points.source"},
		{"index file", func(c *Config) { c.Points.Source = SourceIndex }, "points.index_file"},
		{"postgis port", func(c *Config) { c.Points.Source = SourcePostGIS; c.PostGIS.Host = "db" }, "postgis.port"},
		{"catalog", func(c *Config) { c.Catalog.BaseURL = "" }, "catalog.base_url"},
		{"latitude", func(c *Config) { c.Location.Latitude = 91 }, "location.latitude"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}
