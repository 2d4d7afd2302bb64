// Package config handles YAML configuration loading, environment variable
// expansion, and structural validation for taskflow.
package config

import (
	"slices"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure.
type Config struct {
	// Version is the config format version. Currently only "1" is supported.
	Version string `yaml:"version"`

	// Modules maps module IDs to their raw YAML configuration.
	// Keys must match registered module IDs (e.g. "store.sqlite").
	Modules map[string]yaml.Node `yaml:"modules"`
}

// Resolve returns the configured module IDs sorted lexically, which is
// the load order. Sorting keeps startup deterministic; actual wiring
// order does not matter because services are registered at Provision
// and only looked up at Start.
func Resolve(cfg *Config) []string {
	ids := make([]string, 0, len(cfg.Modules))
	for id := range cfg.Modules {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
