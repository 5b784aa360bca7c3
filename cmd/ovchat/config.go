package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the ovchat configuration file (~/.config/ovchat/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Device       string `yaml:"device"`
	MaxNewTokens *int64 `yaml:"max_new_tokens"`
	Backend      string `yaml:"backend"`

	TPSScope  string `yaml:"tps_scope"`
	KeepGoing *bool  `yaml:"keep_going"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	ServerAddress string `yaml:"server_address"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "ovchat", "config.yaml")
}

// loadConfig reads path, or the default location when path is empty. A
// missing default file yields a zero Config; a missing explicit file is an
// error.
func loadConfig(path string) (Config, error) {
	explicit := path != ""
	if !explicit {
		path = configPath()
		if path == "" {
			return Config{}, nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// applyConfig copies config file values into o for every flag the user did
// not set explicitly.
func applyConfig(c *cli.Command, cfg Config, o *options) {
	if cfg.Device != "" && !c.IsSet("device") {
		o.device = cfg.Device
	}
	if cfg.MaxNewTokens != nil && !c.IsSet("max-new-tokens") {
		o.maxNewTokens = *cfg.MaxNewTokens
	}
	if cfg.Backend != "" && !c.IsSet("backend") {
		o.backend = cfg.Backend
	}
	if cfg.TPSScope != "" && !c.IsSet("tps-scope") {
		o.tpsScope = cfg.TPSScope
	}
	if cfg.KeepGoing != nil && !c.IsSet("keep-going") {
		o.keepGoing = *cfg.KeepGoing
	}
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		o.logLevel = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		o.logFormat = cfg.LogFormat
	}
}

func applyServeConfig(c *cli.Command, cfg Config, addr *string) {
	if cfg.ServerAddress != "" && !c.IsSet("addr") {
		*addr = cfg.ServerAddress
	}
}
