// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	flagName       = "srvname"
	flagRoot       = "mntpt"
	flagContinuous = "continuous"
	flagBus        = "bus"
	flagAddr       = "addr"
	flagListen     = "listen"
	flagConfig     = "config"
	flagDebug      = "debug"
)

// config is the merged result of the YAML file and the command line. The
// file uses the flag names as keys.
type config struct {
	Name       string `yaml:"srvname"`
	Root       string `yaml:"mntpt"`
	Continuous bool   `yaml:"continuous"`
	Bus        string `yaml:"bus"`
	Addr       uint16 `yaml:"addr"`
	Listen     string `yaml:"listen"`
	Debug      bool   `yaml:"debug"`
}

var defaultConfig = config{
	Name:   "sgp30",
	Root:   "/mnt",
	Addr:   0x58,
	Listen: "localhost:5640",
}

func flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    flagName,
			Aliases: []string{"s"},
			Value:   defaultConfig.Name,
			Usage:   "publish the files in directory `NAME`",
		},
		&cli.StringFlag{
			Name:    flagRoot,
			Aliases: []string{"m"},
			Value:   defaultConfig.Root,
			Usage:   "publish the directory under `PATH`",
		},
		&cli.BoolFlag{
			Name:    flagContinuous,
			Aliases: []string{"d"},
			Usage:   "measure once per second in the background",
		},
		&cli.StringFlag{
			Name:    flagBus,
			Aliases: []string{"b"},
			Usage:   "I²C bus `NAME`, the first bus when empty",
		},
		&cli.UintFlag{
			Name:  flagAddr,
			Value: uint(defaultConfig.Addr),
			Usage: "device address",
		},
		&cli.StringFlag{
			Name:    flagListen,
			Aliases: []string{"l"},
			Value:   defaultConfig.Listen,
			Usage:   "serve HTTP on `ADDR`",
		},
		&cli.StringFlag{
			Name:    flagConfig,
			Aliases: []string{"c"},
			Usage:   "load configuration from `FILE`",
		},
		&cli.BoolFlag{
			Name:  flagDebug,
			Usage: "enable debug logging",
		},
	}
}

// loadConfig reads the configuration file, if any, and applies the flags
// that were set explicitly on top of it.
func loadConfig(c *cli.Context) (config, error) {
	cfg := defaultConfig
	if path := c.String(flagConfig); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config{}, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return config{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	if c.IsSet(flagName) {
		cfg.Name = c.String(flagName)
	}
	if c.IsSet(flagRoot) {
		cfg.Root = c.String(flagRoot)
	}
	if c.IsSet(flagContinuous) {
		cfg.Continuous = c.Bool(flagContinuous)
	}
	if c.IsSet(flagBus) {
		cfg.Bus = c.String(flagBus)
	}
	if c.IsSet(flagAddr) {
		addr := c.Uint(flagAddr)
		if addr > 0x7f {
			return config{}, fmt.Errorf("address 0x%x out of range", addr)
		}
		cfg.Addr = uint16(addr)
	}
	if c.IsSet(flagListen) {
		cfg.Listen = c.String(flagListen)
	}
	if c.IsSet(flagDebug) {
		cfg.Debug = c.Bool(flagDebug)
	}
	return cfg, cfg.validate()
}

func (cfg *config) validate() error {
	if cfg.Name == "" || strings.Contains(cfg.Name, "/") {
		return fmt.Errorf("invalid service name %q", cfg.Name)
	}
	if !strings.HasPrefix(cfg.Root, "/") {
		return fmt.Errorf("mount point %q is not absolute", cfg.Root)
	}
	if cfg.Addr == 0 || cfg.Addr > 0x7f {
		return fmt.Errorf("address 0x%x out of range", cfg.Addr)
	}
	if cfg.Listen == "" {
		return errors.New("no listen address")
	}
	return nil
}
