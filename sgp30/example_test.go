//go:build examples
// +build examples

// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30_test

import (
	"fmt"
	"log"

	"github.com/GermanBionicSystems/sgp30fs/sgp30"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"
)

// basic example program for the sgp30 sensor using this library.
//
// A freshly initialized sensor reports 400ppm and 0ppb for the first 15
// seconds.
func Example() {
	if _, err := host.Init(); err != nil {
		log.Fatal(err)
	}
	bus, err := i2creg.Open("")
	if err != nil {
		log.Fatal(err)
	}
	defer bus.Close()

	dev, err := sgp30.NewI2C(bus, &sgp30.DefaultOpts)
	if err != nil {
		log.Fatal(err)
	}
	if err := dev.MeasureAirQuality(); err != nil {
		log.Fatal(err)
	}
	env := dev.AirQuality()
	fmt.Println(env.CO2, env.TVOC)
	// Output: 400ppm 0ppb
}
