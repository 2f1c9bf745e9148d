// Package config loads the YAML configuration file describing which tags
// to extract, where the cache lives, and how the HTTP server binds.
package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Filters configures which records the preprocessor keeps and what it
// keeps about them.
type Filters struct {
	PrimaryKeys   []string `yaml:"primary_keys"`
	AttributeKeys []string `yaml:"attribute_keys"`
}

// Storage configures the on-disk cache.
type Storage struct {
	CacheDir         string `yaml:"cache_dir"`
	CompressionLevel int    `yaml:"compression_level"`
}

// Server configures the HTTP bind address.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Runtime configures post-load memory tradeoffs.
type Runtime struct {
	DropInternerMap bool `yaml:"drop_interner_map"`
}

// Profiling configures the optional CPU-sampling profiler hook. Neither
// field is consulted by this core; they are carried through so a
// deployment's profiling collaborator can read them.
type Profiling struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

// Config is the root configuration document.
type Config struct {
	Filters   Filters   `yaml:"filters"`
	Storage   Storage   `yaml:"storage"`
	Server    Server    `yaml:"server"`
	Runtime   Runtime   `yaml:"runtime"`
	Profiling Profiling `yaml:"profiling"`
}

// defaults returns the values applied for fields a config file omits.
func defaults() Config {
	return Config{
		Storage: Storage{CompressionLevel: 3},
		Runtime: Runtime{DropInternerMap: true},
	}
}

// Load reads and parses the YAML configuration at path. Missing required
// fields (an empty primary key list, an empty cache directory, or a port
// of 0) are reported as errors: the caller should treat any error here as
// fatal at startup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse yaml")
	}

	if err := cfg.validate(); err != nil {
		return nil, errors.Wrap(err, "config: invalid")
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Filters.PrimaryKeys) == 0 {
		return errors.New("filters.primary_keys must not be empty")
	}
	if c.Storage.CacheDir == "" {
		return errors.New("storage.cache_dir must not be empty")
	}
	if c.Server.Port == 0 {
		return errors.New("server.port must be set")
	}
	return nil
}
