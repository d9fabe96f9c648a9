// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30

import (
	"errors"
	"fmt"
	"time"

	"github.com/GermanBionicSystems/sgp30fs/common"
)

var (
	// ErrWriteIncomplete is returned when the bus did not accept the whole
	// command.
	ErrWriteIncomplete = errors.New("sgp30: incomplete write")
	// ErrReadIncomplete is returned when the device answered with fewer bytes
	// than the command defines.
	ErrReadIncomplete = errors.New("sgp30: incomplete read")
	// ErrChecksumMismatch is returned when a response word fails its CRC.
	ErrChecksumMismatch = errors.New("sgp30: checksum mismatch")
	// ErrFeatureMismatch is returned when the feature set does not identify
	// an SGP30.
	ErrFeatureMismatch = errors.New("sgp30: feature set mismatch")
	// ErrSelfTestMismatch is returned when the on-chip self test does not
	// report success.
	ErrSelfTestMismatch = errors.New("sgp30: self test mismatch")
	// ErrNotReady is returned by runtime operations before Init completed.
	ErrNotReady = errors.New("sgp30: device not initialized")
)

// wordSize is the size of a response word on the wire: 2 data bytes and a
// CRC.
const wordSize = 3

// command is one entry of the fixed opcode catalog.
type command struct {
	// The 16-bit command word.
	op uint16
	// Number of response words, 0 for write-only commands.
	words int
	// Maximum execution time from the datasheet. The response is not valid
	// before it elapsed.
	delay time.Duration
}

var cmdGetSerialID = command{op: 0x3682, words: 3, delay: 10 * time.Millisecond}
var cmdGetFeatureSet = command{op: 0x202f, words: 1, delay: 10 * time.Millisecond}

// cmdSoftReset is sent with the I²C general call; the high byte is the
// general call address.
var cmdSoftReset = command{op: 0x0006, delay: 100 * time.Millisecond}
var cmdMeasureTest = command{op: 0x2032, words: 1, delay: 220 * time.Millisecond}
var cmdInitAirQuality = command{op: 0x2003, delay: 10 * time.Millisecond}
var cmdMeasureAirQuality = command{op: 0x2008, words: 2, delay: 12 * time.Millisecond}
var cmdMeasureRawSignals = command{op: 0x2050, words: 2, delay: 25 * time.Millisecond}
var cmdGetIAQBaseline = command{op: 0x2015, words: 2, delay: 10 * time.Millisecond}
var cmdSetIAQBaseline = command{op: 0x201e, delay: 10 * time.Millisecond}
var cmdSetHumidity = command{op: 0x2061, delay: 10 * time.Millisecond}

const (
	// Bit set in the feature set word of every SGP30. The remaining bits
	// carry the product version.
	featureSetSGP30 uint16 = 0x0020
	// Word returned by a passing on-chip self test.
	selfTestPassed uint16 = 0xd400
)

// encode returns the bytes written for the command: the big-endian opcode
// followed by each data word and its CRC.
func (c command) encode(data []uint16) []byte {
	w := make([]byte, 2, 2+len(data)*wordSize)
	w[0] = byte(c.op >> 8)
	w[1] = byte(c.op)
	for _, val := range data {
		w = common.AppendWord(w, val)
	}
	return w
}

// decodeWords validates and converts a raw response. It is all or nothing:
// the first CRC failure discards every word, including the valid ones
// before it.
func decodeWords(r []byte) ([]uint16, error) {
	result := make([]uint16, len(r)/wordSize)
	for ix := range len(result) {
		b := r[ix*wordSize : ix*wordSize+wordSize]
		if common.CRC8(b[:2]) != b[2] {
			return nil, fmt.Errorf("word %d: %w", ix, ErrChecksumMismatch)
		}
		result[ix] = uint16(b[0])<<8 | uint16(b[1])
	}
	return result, nil
}

// sendCommand performs one complete transaction: write, settle, read and
// validate.
//
// A short write taints the result but the settle delay and the read still
// happen so the device is drained before the next command.
func sendCommand(t Transport, cmd command, data ...uint16) ([]uint16, error) {
	w := cmd.encode(data)
	var txErr error
	if n, err := t.Write(w); n != len(w) {
		txErr = wrapBusError(ErrWriteIncomplete, err)
	}

	time.Sleep(cmd.delay)

	if cmd.words == 0 {
		if txErr != nil {
			return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", cmd.op, txErr)
		}
		return nil, nil
	}

	r := make([]byte, cmd.words*wordSize)
	if n, err := t.Read(r); n != len(r) && txErr == nil {
		txErr = wrapBusError(ErrReadIncomplete, err)
	}
	if txErr != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", cmd.op, txErr)
	}

	words, err := decodeWords(r)
	if err != nil {
		return nil, fmt.Errorf("sgp30 cmd 0x%04x: %w", cmd.op, err)
	}
	return words, nil
}

func wrapBusError(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}
