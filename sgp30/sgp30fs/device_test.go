// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30fs

import (
	"testing"

	"github.com/GermanBionicSystems/sgp30fs/sgp30"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"periph.io/x/conn/v3/i2c/i2ctest"
)

var bringUp = []i2ctest.IO{
	{Addr: sgp30.I2CAddress, W: []uint8{0x36, 0x82}},
	{Addr: sgp30.I2CAddress, R: []uint8{0x01, 0x02, 0x17, 0x03, 0x04, 0x68, 0x05, 0x06, 0x50}},
	{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x2f}},
	{Addr: sgp30.I2CAddress, R: []uint8{0x00, 0x22, 0x65}},
	{Addr: 0x00, W: []uint8{0x06}},
	{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x32}},
	{Addr: sgp30.I2CAddress, R: []uint8{0xd4, 0x00, 0xc6}},
	{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x03}}}

// co2e=400 tvoc=0
var measureAirQuality = []i2ctest.IO{
	{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x08}},
	{Addr: sgp30.I2CAddress, R: []uint8{0x01, 0x90, 0x4c, 0x00, 0x00, 0x81}}}

// h2=13000 ethanol=17500
var measureRawSignals = []i2ctest.IO{
	{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x50}},
	{Addr: sgp30.I2CAddress, R: []uint8{0x32, 0xc8, 0x14, 0x44, 0x5c, 0x88}}}

func newDevice(t *testing.T, mode sgp30.Mode, extra ...i2ctest.IO) (*sgp30.Dev, *i2ctest.Playback) {
	ops := append(append([]i2ctest.IO{}, bringUp...), extra...)
	bus := &i2ctest.Playback{Ops: ops, DontPanic: true}
	dev, err := sgp30.NewI2C(bus, &sgp30.Opts{Addr: sgp30.I2CAddress, Mode: mode})
	require.NoError(t, err)
	return dev, bus
}

func TestDeviceOnDemand(t *testing.T) {
	dev, bus := newDevice(t, sgp30.OnDemand, measureAirQuality...)
	fs := New(dev, &Opts{Name: "sgp30", Root: "/mnt", Logger: zaptest.NewLogger(t)})
	assert.Equal(t, "400 ppm\n", fs.Read(CO2e))
	assert.Equal(t, "serial(hex): 0x10203040506\n", fs.Read(Control))
	assert.NoError(t, bus.Close())
}

func TestDeviceContinuous(t *testing.T) {
	dev, bus := newDevice(t, sgp30.Continuous)
	sampling := &i2ctest.Playback{Ops: append(append([]i2ctest.IO{}, measureAirQuality...), measureRawSignals...), DontPanic: true}
	require.NoError(t, dev.MeasureAll(sgp30.NewTransport(sampling, sgp30.I2CAddress)))

	fs := New(dev, &Opts{Name: "sgp30", Root: "/mnt", Logger: zaptest.NewLogger(t)})
	count := bus.Count
	assert.Equal(t, "co2e(ppm):\t400\ttvoc(ppm):\t0\traw_h2(units):\t13000\traw_ethanol(units):\t17500\n", fs.Read(All))
	assert.Equal(t, "13000 units\n", fs.Read(RawH2))
	assert.Equal(t, count, bus.Count, "reads in continuous mode went to the bus")
	assert.NoError(t, sampling.Close())
}

func TestDeviceReset(t *testing.T) {
	dev, bus := newDevice(t, sgp30.OnDemand, append(append([]i2ctest.IO{}, measureAirQuality...),
		i2ctest.IO{Addr: 0x00, W: []uint8{0x06}},
		i2ctest.IO{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x03}})...)
	fs := New(dev, &Opts{Name: "sgp30", Root: "/mnt", Logger: zaptest.NewLogger(t)})
	assert.Equal(t, "400 ppm\n", fs.Read(CO2e))
	fs.Write(Control, "reset\n")
	assert.Equal(t, sgp30.Env{}, dev.AirQuality())
	assert.NoError(t, bus.Close())
}

func TestDeviceHumidity(t *testing.T) {
	dev, bus := newDevice(t, sgp30.OnDemand,
		i2ctest.IO{Addr: sgp30.I2CAddress, W: []uint8{0x20, 0x61, 0x0b, 0x80, 0xe1}})
	fs := New(dev, &Opts{Name: "sgp30", Root: "/mnt", Logger: zaptest.NewLogger(t)})
	fs.Write(Humidity, "11.5")
	assert.Equal(t, "11.50 g/m3\n", fs.Read(Humidity))
	assert.NoError(t, bus.Close())
}
