package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// fileConfig is the layout of the --config file. Every field defaults the
// global flag of the same name.
type fileConfig struct {
	Network    string `yaml:"network"`
	Timeout    string `yaml:"timeout"`
	TorSocks   string `yaml:"torsocks"`
	DebugLevel string `yaml:"debuglevel"`
	Format     string `yaml:"format"`

	Lnd struct {
		Host        string `yaml:"host"`
		MacaroonDir string `yaml:"macaroondir"`
		TLSPath     string `yaml:"tlspath"`
	} `yaml:"lnd"`
}

func loadConfigFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read config file: %w", err)
	}

	var cfg fileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("could not parse config file %s: %w",
			path, err)
	}

	return &cfg, nil
}

// applyConfigFile copies the values of the config file onto the global flags
// that were not set on the command line.
func applyConfigFile(ctx *cli.Context) error {
	path := ctx.String("config")
	if path == "" {
		return nil
	}

	cfg, err := loadConfigFile(path)
	if err != nil {
		return err
	}

	defaults := map[string]string{
		"network":         cfg.Network,
		"timeout":         cfg.Timeout,
		"torsocks":        cfg.TorSocks,
		"debuglevel":      cfg.DebugLevel,
		"format":          cfg.Format,
		"lnd.host":        cfg.Lnd.Host,
		"lnd.macaroondir": cfg.Lnd.MacaroonDir,
		"lnd.tlspath":     cfg.Lnd.TLSPath,
	}
	for name, value := range defaults {
		if value == "" || ctx.IsSet(name) {
			continue
		}

		if err := ctx.Set(name, value); err != nil {
			return fmt.Errorf("invalid %s in config file: %w", name,
				err)
		}
	}

	return nil
}
