// Package config loads engine and service settings from a YAML file with
// environment-variable and flag overrides layered on top, the way
// cmd/api/main.go layers flags over getEnv defaults, generalized to a file
// source since a deployable engine has more knobs than fit comfortably on
// a flag line. Loaded by cmd/imageproc (worker pool size, tiling cutoffs)
// and cmd/api (server host/port/auth mode) as the base layer beneath
// explicit flags.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable actually read by a command's startup path.
type Config struct {
	Worker struct {
		PoolSize int `yaml:"pool_size"`
	} `yaml:"worker"`

	Tiling struct {
		CutoffX int `yaml:"cutoff_x"`
		CutoffY int `yaml:"cutoff_y"`
	} `yaml:"tiling"`

	Server struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		AuthMode string `yaml:"auth_mode"`
	} `yaml:"server"`
}

// Default returns the baseline configuration matching spec.md's CLI defaults
// (cutoffs 512, threads 0 meaning hardware concurrency).
func Default() *Config {
	c := &Config{}
	c.Worker.PoolSize = 0
	c.Tiling.CutoffX = 512
	c.Tiling.CutoffY = 512
	c.Server.Host = "0.0.0.0"
	c.Server.Port = 8080
	c.Server.AuthMode = "optional"
	return c
}

// Load reads a YAML config file and overlays it onto the defaults. A
// missing file is not an error: it simply leaves the defaults in place, the
// same tolerance cmd/api/main.go shows towards an unset JWT_SECRET.
func Load(path string) (*Config, error) {
	c := Default()

	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return c, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return c, nil
}

// GetEnv mirrors cmd/api/main.go's getEnv helper.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
