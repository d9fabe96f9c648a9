// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"errors"
	"fmt"
	"strconv"
	"sync"

	"go.uber.org/multierr"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/i2c"
)

// I2CAddress is the only address the SGP30 answers on.
const I2CAddress uint16 = 0x58

// CO2 represents the CO2 equivalent value in ppm.
type CO2 uint16

func (c CO2) String() string {
	return strconv.Itoa(int(c)) + "ppm"
}

// TVOC represents the total volatile organic compounds value in ppb.
type TVOC uint16

func (t TVOC) String() string {
	return strconv.Itoa(int(t)) + "ppb"
}

// Signal is a raw sensor signal. It has no physical unit.
type Signal uint16

func (s Signal) String() string {
	return strconv.Itoa(int(s)) + " units"
}

// Env is the compensated air quality reading.
type Env struct {
	CO2  CO2
	TVOC TVOC
}

// RawEnv is the raw signal reading the air quality values are computed from.
type RawEnv struct {
	H2      Signal
	Ethanol Signal
}

// Baseline is the state of the on-chip compensation algorithm. It can be
// saved with Dev.Baseline and restored with Dev.SetBaseline after a power
// cycle.
type Baseline struct {
	CO2  uint16
	TVOC uint16
}

// Mode selects how measurements are triggered.
type Mode int

const (
	// OnDemand measures when a reading is requested.
	OnDemand Mode = iota
	// Continuous measures once per second from a Sampler, as required by the
	// dynamic baseline compensation.
	Continuous
)

func (m Mode) String() string {
	switch m {
	case OnDemand:
		return "on-demand"
	case Continuous:
		return "continuous"
	default:
		return "Mode(" + strconv.Itoa(int(m)) + ")"
	}
}

// State is the position of the device in its bring-up sequence.
type State int

const (
	Uninitialized State = iota
	SerialRead
	FeatureChecked
	Reset
	SelfTested
	AlgoInitialized
	Ready
)

var stateNames = [...]string{
	Uninitialized:   "uninitialized",
	SerialRead:      "serial read",
	FeatureChecked:  "feature set checked",
	Reset:           "reset",
	SelfTested:      "self tested",
	AlgoInitialized: "algorithm initialized",
	Ready:           "ready",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "State(" + strconv.Itoa(int(s)) + ")"
	}
	return stateNames[s]
}

// initFailure is the diagnostic for a failed transition into each state.
var initFailure = map[State]string{
	SerialRead:      "could not communicate with sgp30 device",
	FeatureChecked:  "could not validate sgp30 device feature set",
	Reset:           "could not reset sgp30 device",
	SelfTested:      "sgp30 device failed self test",
	AlgoInitialized: "could not init sgp30 device",
}

// InitError is returned by Init when a bring-up step fails. Step is the
// state the device failed to reach.
type InitError struct {
	Step State
	Err  error
}

func (e *InitError) Error() string {
	return initFailure[e.Step] + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Opts holds the configuration for the device.
type Opts struct {
	// Addr is the device address. Only I2CAddress is valid for real parts.
	Addr uint16
	// Mode is fixed for the lifetime of the device.
	Mode Mode
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	Addr: I2CAddress,
	Mode: OnDemand,
}

// NewI2C returns an object that communicates over I²C to SGP30 environmental
// sensor. The device is brought up before returning.
func NewI2C(b i2c.Bus, opts *Opts) (*Dev, error) {
	if opts == nil {
		opts = &DefaultOpts
	}
	d := New(NewTransport(b, opts.Addr), NewGeneralCall(b), opts)
	if err := d.Init(); err != nil {
		return nil, err
	}
	return d, nil
}

// New returns a handle to an SGP30 reachable through t. gc is used for the
// soft reset only and may be shared by other devices on the same bus.
//
// No bus I/O happens until Init is called.
func New(t, gc Transport, opts *Opts) *Dev {
	if opts == nil {
		opts = &DefaultOpts
	}
	return &Dev{t: t, gc: gc, mode: opts.Mode}
}

// Dev is a handle to an SGP30 device.
//
// It owns the last known readings. A failed measurement keeps the previous
// values; only a soft reset clears them.
type Dev struct {
	t    Transport
	gc   Transport
	mode Mode

	// txMu serializes bus transactions across transports.
	txMu sync.Mutex

	mu       sync.Mutex
	state    State
	serial   uint64
	env      Env
	raw      RawEnv
	humidity float64
}

// Init runs the bring-up sequence: read the serial number, check the
// feature set, soft reset, self test and start the air quality algorithm.
//
// The sequence stops at the first failure and returns an *InitError. It is
// not retried.
func (d *Dev) Init() error {
	d.setState(Uninitialized)
	steps := []struct {
		next State
		run  func() error
	}{
		{SerialRead, d.getSerial},
		{FeatureChecked, d.checkFeatureSet},
		{Reset, d.softReset},
		{SelfTested, d.selfTest},
		{AlgoInitialized, d.initAirQuality},
	}
	for _, s := range steps {
		if err := s.run(); err != nil {
			return &InitError{Step: s.next, Err: err}
		}
		d.setState(s.next)
	}
	d.setState(Ready)
	return nil
}

// State returns the bring-up state of the device.
func (d *Dev) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Mode returns the sampling mode the device was created with.
func (d *Dev) Mode() Mode {
	return d.mode
}

// Serial returns the 48 bit serial number, or 0 before it was read.
func (d *Dev) Serial() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.serial
}

// AirQuality returns the last compensated reading.
func (d *Dev) AirQuality() Env {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.env
}

// RawSignals returns the last raw reading.
func (d *Dev) RawSignals() RawEnv {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.raw
}

// MeasureAirQuality reads the CO2 equivalent and TVOC values.
//
// After Init, this must be called every second for the dynamic baseline
// compensation to work as documented; use a Sampler for that.
func (d *Dev) MeasureAirQuality() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.measureAirQuality(d.t)
}

// MeasureRawSignals reads the raw H2 and ethanol signals.
func (d *Dev) MeasureRawSignals() error {
	if err := d.ready(); err != nil {
		return err
	}
	return d.measureRawSignals(d.t)
}

// MeasureAll reads both the air quality and the raw signals through t, as two
// separate transactions. A measurement that succeeds is kept even if the
// other one fails.
func (d *Dev) MeasureAll(t Transport) error {
	if err := d.ready(); err != nil {
		return err
	}
	return multierr.Combine(d.measureAirQuality(t), d.measureRawSignals(t))
}

// Reset soft resets the device and restarts the air quality algorithm.
//
// The reset is a general call so other devices on the bus may reset as well.
// Its own outcome is ignored; only a failure to restart the algorithm is
// returned. Both readings are zero afterwards.
func (d *Dev) Reset() error {
	if err := d.ready(); err != nil {
		return err
	}
	// Both steps run under one lock so no measurement reaches the chip
	// between the reset and the restart of the algorithm.
	d.txMu.Lock()
	defer d.txMu.Unlock()
	d.clearReadings()
	_, _ = d.send(d.gc, cmdSoftReset)
	_, err := d.send(d.t, cmdInitAirQuality)
	return err
}

// Baseline returns the current baseline of the compensation algorithm.
func (d *Dev) Baseline() (Baseline, error) {
	if err := d.ready(); err != nil {
		return Baseline{}, err
	}
	words, err := d.tx(d.t, cmdGetIAQBaseline)
	if err != nil {
		return Baseline{}, err
	}
	return Baseline{CO2: words[0], TVOC: words[1]}, nil
}

// SetBaseline restores a baseline previously returned by Baseline.
func (d *Dev) SetBaseline(b Baseline) error {
	if err := d.ready(); err != nil {
		return err
	}
	// The device expects the values in the reverse order of Baseline().
	_, err := d.tx(d.t, cmdSetIAQBaseline, b.TVOC, b.CO2)
	return err
}

// SetHumidity sets the absolute humidity in g/m³ used to compensate the
// readings. 0 disables the compensation.
func (d *Dev) SetHumidity(gramsPerCubicMetre float64) error {
	if err := d.ready(); err != nil {
		return err
	}
	if gramsPerCubicMetre < 0 || gramsPerCubicMetre >= 256 {
		return fmt.Errorf("sgp30: absolute humidity %g g/m³ out of range", gramsPerCubicMetre)
	}
	// 8.8 fixed point.
	if _, err := d.tx(d.t, cmdSetHumidity, uint16(gramsPerCubicMetre*256)); err != nil {
		return err
	}
	d.mu.Lock()
	d.humidity = gramsPerCubicMetre
	d.mu.Unlock()
	return nil
}

// Humidity returns the absolute humidity last set with SetHumidity. 0 means
// the chip uses its default compensation, which is also the case after a
// reset.
func (d *Dev) Humidity() float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.humidity
}

// Halt implements conn.Resource. The device has no sensing loop of its own;
// a Sampler is stopped by cancelling its context.
func (d *Dev) Halt() error {
	return nil
}

func (d *Dev) String() string {
	if s, ok := d.t.(fmt.Stringer); ok {
		return "sgp30: " + s.String()
	}
	return "sgp30"
}

func (d *Dev) getSerial() error {
	d.mu.Lock()
	d.serial = 0
	d.mu.Unlock()

	words, err := d.tx(d.t, cmdGetSerialID)
	if err != nil {
		return err
	}
	var serial uint64
	for _, w := range words {
		serial = serial<<16 | uint64(w)
	}
	d.mu.Lock()
	d.serial = serial
	d.mu.Unlock()
	return nil
}

func (d *Dev) checkFeatureSet() error {
	words, err := d.tx(d.t, cmdGetFeatureSet)
	if err != nil {
		return err
	}
	// The low bits hold the product version; only the type bit is checked.
	if words[0]&featureSetSGP30 == 0 {
		return fmt.Errorf("%w: 0x%04x", ErrFeatureMismatch, words[0])
	}
	return nil
}

// softReset clears both readings, whether or not the reset reaches the
// device.
func (d *Dev) softReset() error {
	d.clearReadings()
	_, err := d.tx(d.gc, cmdSoftReset)
	return err
}

func (d *Dev) clearReadings() {
	d.mu.Lock()
	d.env = Env{}
	d.raw = RawEnv{}
	d.humidity = 0
	d.mu.Unlock()
}

func (d *Dev) selfTest() error {
	words, err := d.tx(d.t, cmdMeasureTest)
	if err != nil {
		return err
	}
	if words[0] != selfTestPassed {
		return fmt.Errorf("%w: 0x%04x", ErrSelfTestMismatch, words[0])
	}
	return nil
}

func (d *Dev) initAirQuality() error {
	_, err := d.tx(d.t, cmdInitAirQuality)
	return err
}

func (d *Dev) measureAirQuality(t Transport) error {
	words, err := d.tx(t, cmdMeasureAirQuality)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.env = Env{CO2: CO2(words[0]), TVOC: TVOC(words[1])}
	d.mu.Unlock()
	return nil
}

func (d *Dev) measureRawSignals(t Transport) error {
	words, err := d.tx(t, cmdMeasureRawSignals)
	if err != nil {
		return err
	}
	d.mu.Lock()
	d.raw = RawEnv{H2: Signal(words[0]), Ethanol: Signal(words[1])}
	d.mu.Unlock()
	return nil
}

func (d *Dev) tx(t Transport, cmd command, data ...uint16) ([]uint16, error) {
	d.txMu.Lock()
	defer d.txMu.Unlock()
	return d.send(t, cmd, data...)
}

// send is tx for callers already holding txMu.
func (d *Dev) send(t Transport, cmd command, data ...uint16) ([]uint16, error) {
	if t == nil {
		return nil, errors.New("sgp30: no transport")
	}
	return sendCommand(t, cmd, data...)
}

func (d *Dev) ready() error {
	if s := d.State(); s != Ready {
		return fmt.Errorf("%w: %s", ErrNotReady, s)
	}
	return nil
}

func (d *Dev) setState(s State) {
	d.mu.Lock()
	d.state = s
	d.mu.Unlock()
}

var _ conn.Resource = &Dev{}
