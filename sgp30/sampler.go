// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// SampleInterval is the measurement period the on-chip baseline compensation
// is designed for.
const SampleInterval = time.Second

// SamplerOpts holds the configuration for a Sampler.
type SamplerOpts struct {
	// Interval between measurements. Defaults to SampleInterval.
	Interval time.Duration
	// Clock drives the interval. Defaults to the wall clock.
	Clock clock.Clock
	// Logger receives failed measurements. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Sampler measures a device at a fixed interval and publishes the readings
// into the device, where Dev.AirQuality and Dev.RawSignals pick them up.
type Sampler struct {
	d        *Dev
	t        Transport
	interval time.Duration
	clk      clock.Clock
	logger   *zap.Logger
	samples  atomic.Uint64
}

// NewSampler returns a Sampler measuring d through t.
//
// t should be a handle of its own, separate from the one d was created with,
// so background sampling does not share the handle used to serve requests.
func NewSampler(d *Dev, t Transport, opts *SamplerOpts) *Sampler {
	s := &Sampler{d: d, t: t, interval: SampleInterval, clk: clock.New(), logger: zap.NewNop()}
	if opts != nil {
		if opts.Interval > 0 {
			s.interval = opts.Interval
		}
		if opts.Clock != nil {
			s.clk = opts.Clock
		}
		if opts.Logger != nil {
			s.logger = opts.Logger
		}
	}
	return s
}

// Run samples until ctx is done and returns ctx.Err().
//
// A timer goroutine only produces ticks; every bus transaction happens on
// the calling goroutine, one at a time. A tick that arrives while a
// measurement is still running waits for it to finish.
func (s *Sampler) Run(ctx context.Context) error {
	ticks := make(chan struct{})
	go s.timer(ctx, ticks)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticks:
			if err := s.d.MeasureAll(s.t); err != nil {
				s.logger.Warn("sgp30 measurement failed", zap.Error(err))
			} else {
				env, raw := s.d.AirQuality(), s.d.RawSignals()
				s.logger.Debug("sgp30 measurement",
					zap.Uint16("co2e", uint16(env.CO2)),
					zap.Uint16("tvoc", uint16(env.TVOC)),
					zap.Uint16("raw_h2", uint16(raw.H2)),
					zap.Uint16("raw_ethanol", uint16(raw.Ethanol)))
			}
			s.samples.Add(1)
		}
	}
}

// Samples returns the number of measurement cycles completed, successful or
// not.
func (s *Sampler) Samples() uint64 {
	return s.samples.Load()
}

func (s *Sampler) timer(ctx context.Context, ticks chan<- struct{}) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.clk.After(s.interval):
		}
		select {
		case <-ctx.Done():
			return
		case ticks <- struct{}{}:
		}
	}
}
