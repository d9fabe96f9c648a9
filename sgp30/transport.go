// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
)

// Transport is a byte oriented handle to a device on the bus.
//
// Write and Read return the number of bytes transferred. Neither may block
// beyond the transfer of the requested bytes; a stuck bus must be reported as
// a short count instead.
type Transport interface {
	Write(b []byte) (int, error)
	Read(b []byte) (int, error)
}

// NewTransport returns a Transport for the device at addr on b.
//
// Every Transport created by NewTransport on its own bus handle is
// independent from the others; the bus handle stays owned by the caller.
func NewTransport(b i2c.Bus, addr uint16) Transport {
	return &devTransport{d: &i2c.Dev{Bus: b, Addr: addr}}
}

// NewGeneralCall returns a write-only Transport for the I²C general call.
//
// The first byte of each write selects the general call address (0x00) and
// the remainder is sent as payload, so a 2 byte command such as 0x0006 (soft
// reset) goes out as a general call carrying 0x06. Every device on the bus
// that listens to the general call acts on it.
func NewGeneralCall(b i2c.Bus) Transport {
	return &generalCall{b: b}
}

type devTransport struct {
	d *i2c.Dev
}

func (t *devTransport) Write(b []byte) (int, error) {
	if err := t.d.Tx(b, nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (t *devTransport) Read(b []byte) (int, error) {
	if err := t.d.Tx(nil, b); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (t *devTransport) String() string {
	return t.d.String()
}

type generalCall struct {
	b i2c.Bus
}

func (g *generalCall) Write(b []byte) (int, error) {
	if len(b) < 2 {
		return 0, errors.New("sgp30: general call needs an address and a payload")
	}
	if err := g.b.Tx(uint16(b[0]), b[1:], nil); err != nil {
		return 0, err
	}
	return len(b), nil
}

func (g *generalCall) Read(b []byte) (int, error) {
	return 0, errors.New("sgp30: general call is write only")
}

func (g *generalCall) String() string {
	return g.b.String() + "(general call)"
}
