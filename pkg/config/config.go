package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Point sources for the map markers
const (
	SourceNone    = "none"
	SourceDataset = "dataset"
	SourceIndex   = "index"
	SourcePostGIS = "postgis"
)

// Config holds all application configuration.
type Config struct {
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Location LocationConfig `mapstructure:"location"`
	Map      MapConfig      `mapstructure:"map"`
	Points   PointsConfig   `mapstructure:"points"`
	PostGIS  PostGISConfig  `mapstructure:"postgis"`
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
}

type CatalogConfig struct {
	BaseURL string `mapstructure:"base_url"`
	Timeout int    `mapstructure:"timeout"` // seconds
}

// LocationConfig drives the static device location provider. A terminal has
// no GPS, so the position and the permission answer come from here.
type LocationConfig struct {
	Permission  string  `mapstructure:"permission"` // granted | denied
	Latitude    float64 `mapstructure:"latitude"`
	Longitude   float64 `mapstructure:"longitude"`
	Unavailable bool    `mapstructure:"unavailable"`
	Delay       int     `mapstructure:"delay"` // milliseconds
}

type MapConfig struct {
	Delta float64 `mapstructure:"delta"`
}

type PointsConfig struct {
	Source    string `mapstructure:"source"`
	Dataset   string `mapstructure:"dataset"`
	IndexFile string `mapstructure:"index_file"`
}

type PostGISConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	Database       string `mapstructure:"database"`
	SSLMode        string `mapstructure:"sslmode"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type ServerConfig struct {
	Port    int    `mapstructure:"port"`
	Dataset string `mapstructure:"dataset"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// Load reads configuration from defaults, an optional YAML file and
// ECOLETA_* environment variables. An explicit path must exist; without one
// config.yaml is looked up in . and ./configs and may be missing.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	// ECOLETA_LOCATION_PERMISSION → location.permission
	v.SetEnvPrefix("ECOLETA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("catalog.base_url", "http://localhost:3333")
	v.SetDefault("catalog.timeout", 10)
	v.SetDefault("location.permission", "granted")
	v.SetDefault("location.latitude", -23.5505)
	v.SetDefault("location.longitude", -46.6333)
	v.SetDefault("location.unavailable", false)
	v.SetDefault("location.delay", 300)
	v.SetDefault("map.delta", 0.014)
	v.SetDefault("points.source", SourceDataset)
	v.SetDefault("points.dataset", "data/dataset.yaml")
	v.SetDefault("points.index_file", "data/points.gob")
	v.SetDefault("postgis.host", "localhost")
	v.SetDefault("postgis.port", 5432)
	v.SetDefault("postgis.user", "postgres")
	v.SetDefault("postgis.password", "postgres")
	v.SetDefault("postgis.database", "ecoleta")
	v.SetDefault("postgis.sslmode", "disable")
	v.SetDefault("postgis.max_connections", 10)
	v.SetDefault("server.port", 3333)
	v.SetDefault("server.dataset", "data/dataset.yaml")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "ecoleta.log")
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Catalog.BaseURL == "" {
		errs = append(errs, "catalog.base_url is required")
	}
	if c.Catalog.Timeout <= 0 {
		errs = append(errs, "catalog.timeout must be positive")
	}
	switch c.Location.Permission {
	case "granted", "denied":
	default:
		errs = append(errs, fmt.Sprintf("location.permission must be granted or denied, got %q", c.Location.Permission))
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		errs = append(errs, "location.latitude must be within [-90, 90]")
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		errs = append(errs, "location.longitude must be within [-180, 180]")
	}
	if c.Location.Delay < 0 {
		errs = append(errs, "location.delay must not be negative")
	}
	if c.Map.Delta <= 0 || c.Map.Delta > 180 {
		errs = append(errs, fmt.Sprintf("map.delta must be within (0, 180], got %v", c.Map.Delta))
	}
	switch c.Points.Source {
	case SourceNone:
	case SourceDataset:
		if c.Points.Dataset == "" {
			errs = append(errs, "points.dataset is required for the dataset source")
		}
	case SourceIndex:
		if c.Points.IndexFile == "" {
			errs = append(errs, "points.index_file is required for the index source")
		}
	case SourcePostGIS:
		if c.PostGIS.Host == "" {
			errs = append(errs, "postgis.host is required for the postgis source")
		}
		if c.PostGIS.Port <= 0 || c.PostGIS.Port > 65535 {
			errs = append(errs, fmt.Sprintf("postgis.port must be 1-65535, got %d", c.PostGIS.Port))
		}
	default:
		errs = append(errs, fmt.Sprintf("points.source must be one of none, dataset, index, postgis, got %q", c.Points.Source))
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
