// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30fs

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"
	"unicode"

	"github.com/GermanBionicSystems/sgp30fs/sgp30"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"goji.io"
	"goji.io/pat"
)

// Sensor is the part of *sgp30.Dev the file tree uses.
type Sensor interface {
	Mode() sgp30.Mode
	Serial() uint64
	AirQuality() sgp30.Env
	RawSignals() sgp30.RawEnv
	MeasureAirQuality() error
	MeasureRawSignals() error
	Reset() error
	Baseline() (sgp30.Baseline, error)
	SetBaseline(b sgp30.Baseline) error
	Humidity() float64
	SetHumidity(gramsPerCubicMetre float64) error
}

// Opts holds the configuration of the tree.
type Opts struct {
	// Name is the directory holding the files.
	Name string
	// Root is the path Name is published under.
	Root string
	// Logger receives the device failures hidden from clients. Defaults to a
	// no-op logger.
	Logger *zap.Logger
}

// DefaultOpts publishes the files under /mnt/sgp30.
var DefaultOpts = Opts{
	Name: "sgp30",
	Root: "/mnt",
}

// FS is the file tree of one sensor.
type FS struct {
	dev    Sensor
	dir    string
	logger *zap.Logger
}

// New returns the file tree of dev.
func New(dev Sensor, opts *Opts) *FS {
	if opts == nil {
		opts = &DefaultOpts
	}
	fs := &FS{dev: dev, dir: path.Join("/", opts.Root, opts.Name), logger: opts.Logger}
	if fs.logger == nil {
		fs.logger = zap.NewNop()
	}
	return fs
}

// Dir returns the path of the directory holding the files.
func (fs *FS) Dir() string {
	return fs.dir
}

// Read returns the content of the file e.
//
// In on-demand mode the matching measurement runs first. A failed
// measurement is logged and the previous values are returned.
func (fs *FS) Read(e Endpoint) string {
	switch e {
	case Control:
		return fmt.Sprintf("serial(hex): 0x%x\n", fs.dev.Serial())
	case CO2e:
		env := fs.airQuality(e)
		return fmt.Sprintf("%d ppm\n", env.CO2)
	case TVOC:
		env := fs.airQuality(e)
		return fmt.Sprintf("%d ppm\n", env.TVOC)
	case AirQuality:
		env := fs.airQuality(e)
		return fmt.Sprintf("co2e(ppm):\t%d\ttvoc(ppm):\t%d\n", env.CO2, env.TVOC)
	case RawH2:
		raw := fs.rawSignals(e)
		return fmt.Sprintf("%d units\n", raw.H2)
	case RawEthanol:
		raw := fs.rawSignals(e)
		return fmt.Sprintf("%d units\n", raw.Ethanol)
	case RawSignals:
		raw := fs.rawSignals(e)
		return fmt.Sprintf("raw_h2(units):\t%d\traw_ethanol(units):\t%d\n", raw.H2, raw.Ethanol)
	case All:
		if fs.onDemand() {
			fs.logFailure(e, multierr.Combine(fs.dev.MeasureAirQuality(), fs.dev.MeasureRawSignals()))
		}
		env, raw := fs.dev.AirQuality(), fs.dev.RawSignals()
		return fmt.Sprintf("co2e(ppm):\t%d\ttvoc(ppm):\t%d\traw_h2(units):\t%d\traw_ethanol(units):\t%d\n",
			env.CO2, env.TVOC, raw.H2, raw.Ethanol)
	case Baseline:
		b, err := fs.dev.Baseline()
		fs.logFailure(e, err)
		return fmt.Sprintf("co2e_baseline:\t%d\ttvoc_baseline:\t%d\n", b.CO2, b.TVOC)
	case Humidity:
		return fmt.Sprintf("%.2f g/m3\n", fs.dev.Humidity())
	default:
		return ""
	}
}

// Write applies data to the file e. Unknown commands and writes to read-only
// files are ignored.
func (fs *FS) Write(e Endpoint, data string) {
	switch e {
	case Control:
		if strings.HasPrefix(strings.TrimLeftFunc(data, unicode.IsSpace), "reset") {
			fs.logFailure(e, fs.dev.Reset())
		}
	case Baseline:
		b, ok := parseBaseline(data)
		if !ok {
			fs.logger.Debug("ignoring malformed baseline", zap.String("data", data))
			return
		}
		fs.logFailure(e, fs.dev.SetBaseline(b))
	case Humidity:
		g, ok := parseHumidity(data)
		if !ok {
			fs.logger.Debug("ignoring malformed humidity", zap.String("data", data))
			return
		}
		fs.logFailure(e, fs.dev.SetHumidity(g))
	}
}

// Handler returns the HTTP rendition of the tree.
//
// GET on the directory lists the files, one per line. GET on a file returns
// its content; PUT and POST write the request body to it and always answer
// 204. Bodies longer than a command are dropped. Unknown files are 404.
func (fs *FS) Handler() http.Handler {
	mux := goji.NewMux()
	mux.HandleFunc(pat.Get(fs.dir+"/"), fs.serveList)
	mux.HandleFunc(pat.Get(fs.dir+"/:file"), fs.serveRead)
	mux.HandleFunc(pat.Put(fs.dir+"/:file"), fs.serveWrite)
	mux.HandleFunc(pat.Post(fs.dir+"/:file"), fs.serveWrite)
	return mux
}

func (fs *FS) serveList(w http.ResponseWriter, r *http.Request) {
	var b strings.Builder
	for _, e := range Endpoints() {
		b.WriteString(e.String())
		b.WriteByte('\n')
	}
	writeText(w, b.String())
}

func (fs *FS) serveRead(w http.ResponseWriter, r *http.Request) {
	e, ok := Lookup(pat.Param(r, "file"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	writeText(w, fs.Read(e))
}

func (fs *FS) serveWrite(w http.ResponseWriter, r *http.Request) {
	e, ok := Lookup(pat.Param(r, "file"))
	if !ok {
		http.NotFound(w, r)
		return
	}
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWrite))
	if err != nil {
		fs.logger.Debug("ignoring write", zap.Stringer("file", e), zap.Error(err))
		w.WriteHeader(http.StatusNoContent)
		return
	}
	fs.Write(e, string(data))
	w.WriteHeader(http.StatusNoContent)
}

// maxWrite bounds the body of a write; every command fits in a few bytes.
const maxWrite = 128

func (fs *FS) onDemand() bool {
	return fs.dev.Mode() == sgp30.OnDemand
}

func (fs *FS) airQuality(e Endpoint) sgp30.Env {
	if fs.onDemand() {
		fs.logFailure(e, fs.dev.MeasureAirQuality())
	}
	return fs.dev.AirQuality()
}

func (fs *FS) rawSignals(e Endpoint) sgp30.RawEnv {
	if fs.onDemand() {
		fs.logFailure(e, fs.dev.MeasureRawSignals())
	}
	return fs.dev.RawSignals()
}

func (fs *FS) logFailure(e Endpoint, err error) {
	if err != nil {
		fs.logger.Warn("sgp30 request failed", zap.Stringer("file", e), zap.Error(err))
	}
}

// parseBaseline accepts the co2e and tvoc baselines as two integers.
func parseBaseline(data string) (sgp30.Baseline, bool) {
	f := strings.Fields(data)
	if len(f) != 2 {
		return sgp30.Baseline{}, false
	}
	co2, err := strconv.ParseUint(f[0], 0, 16)
	if err != nil {
		return sgp30.Baseline{}, false
	}
	tvoc, err := strconv.ParseUint(f[1], 0, 16)
	if err != nil {
		return sgp30.Baseline{}, false
	}
	return sgp30.Baseline{CO2: uint16(co2), TVOC: uint16(tvoc)}, true
}

// parseHumidity accepts an absolute humidity in g/m³. 0 restores the chip
// default.
func parseHumidity(data string) (float64, bool) {
	f := strings.Fields(data)
	if len(f) != 1 {
		return 0, false
	}
	g, err := strconv.ParseFloat(f[0], 64)
	if err != nil || !(g >= 0 && g < 256) {
		return 0, false
	}
	return g, true
}

func writeText(w http.ResponseWriter, s string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(s))
}
