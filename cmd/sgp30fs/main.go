// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// sgp30fs publishes an SGP30 air quality sensor as a tree of text files
// served over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/GermanBionicSystems/sgp30fs/sgp30"
	"github.com/GermanBionicSystems/sgp30fs/sgp30/sgp30fs"
)

const shutdownTimeout = 5 * time.Second

func newApp(run func(cfg config) error) *cli.App {
	return &cli.App{
		Name:  "sgp30fs",
		Usage: "publish an SGP30 air quality sensor as text files over HTTP",
		Flags: flags(),
		Action: func(c *cli.Context) error {
			if c.NArg() != 0 {
				return fmt.Errorf("unexpected arguments %q", c.Args().Slice())
			}
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return run(cfg)
		},
	}
}

func main() {
	if err := newApp(serve).Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "sgp30fs: %s.\n", err)
		os.Exit(1)
	}
}

func serve(cfg config) (err error) {
	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	if _, err := host.Init(); err != nil {
		return err
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, bus.Close()) }()

	mode := sgp30.OnDemand
	if cfg.Continuous {
		mode = sgp30.Continuous
	}
	dev, err := sgp30.NewI2C(bus, &sgp30.Opts{Addr: cfg.Addr, Mode: mode})
	if err != nil {
		var initErr *sgp30.InitError
		if errors.As(err, &initErr) {
			_ = bus.Close()
			logger.Fatal(initErr.Error(), zap.Stringer("step", initErr.Step), zap.Stringer("bus", bus))
		}
		return err
	}
	defer func() { err = multierr.Append(err, dev.Halt()) }()
	logger.Info("sgp30 ready", zap.Stringer("dev", dev), zap.String("serial", fmt.Sprintf("0x%x", dev.Serial())), zap.Stringer("mode", mode))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	if cfg.Continuous {
		// Background sampling gets a bus handle of its own.
		var sbus i2c.BusCloser
		if sbus, err = i2creg.Open(cfg.Bus); err != nil {
			return err
		}
		defer func() { err = multierr.Append(err, sbus.Close()) }()
		wg.Add(1)
		go func() {
			defer wg.Done()
			sample(ctx, dev, sbus, cfg.Addr, logger.Named("sampler"))
		}()
	}
	defer wg.Wait()

	fs := sgp30fs.New(dev, &sgp30fs.Opts{Name: cfg.Name, Root: cfg.Root, Logger: logger.Named("fs")})
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           fs.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	logger.Info("serving", zap.String("listen", cfg.Listen), zap.String("dir", fs.Dir()))

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errc:
		stop()
		return err
	}
	stop()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func sample(ctx context.Context, dev *sgp30.Dev, b i2c.Bus, addr uint16, logger *zap.Logger) {
	s := sgp30.NewSampler(dev, sgp30.NewTransport(b, addr), &sgp30.SamplerOpts{Logger: logger})
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("sampler stopped", zap.Error(err))
	}
	logger.Debug("sampler stopped", zap.Uint64("samples", s.Samples()))
}
