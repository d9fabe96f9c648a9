// Copyright 2025 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package common holds the checksum shared by the Sensirion word protocol
// packages.
package common

import "github.com/sigurn/crc8"

// sensirion is the CRC-8 variant used by Sensirion gas and humidity sensors:
// polynomial 0x31, initial value 0xff, no reflection and no final xor.
var sensirion = crc8.MakeTable(crc8.Params{
	Poly:   0x31,
	Init:   0xff,
	RefIn:  false,
	RefOut: false,
	XorOut: 0x00,
	Check:  0xf7,
	Name:   "CRC-8/NRSC-5",
})

// CRC8 calculates the 8-bit CRC of the byte slice parameter and returns the
// calculated value. CRC bytes are used in sensors from TI and Sensirion.
func CRC8(bytes []byte) byte {
	return crc8.Checksum(bytes, sensirion)
}

// AppendWord appends the big-endian encoding of w followed by its CRC to b.
// Sensirion devices expect every 16-bit data word written to them in this
// form.
func AppendWord(b []byte, w uint16) []byte {
	word := []byte{byte(w >> 8), byte(w)}
	return append(b, word[0], word[1], CRC8(word))
}
