// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sgp30 provides a driver for the Sensirion SGP30 gas sensor.
//
// The SGP30 reports a CO2 equivalent and a total VOC value computed by an
// on-chip algorithm, and the raw H2 and ethanol signals it is based on. The
// algorithm compensates its baseline dynamically and expects one air quality
// measurement per second; a Sampler provides that cadence. Without a Sampler
// every reading is a single on-demand measurement.
//
// Every response word carries a CRC; a response with any invalid word is
// rejected as a whole.
//
// # Datasheet
//
// https://sensirion.com/media/documents/984E0DD5/61644B8B/Sensirion_Gas_Sensors_Datasheet_SGP30.pdf
package sgp30
