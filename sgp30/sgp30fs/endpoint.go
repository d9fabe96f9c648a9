// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package sgp30fs

import "strconv"

// Endpoint is a file of the tree.
type Endpoint int

const (
	Control Endpoint = iota
	CO2e
	TVOC
	AirQuality
	RawH2
	RawEthanol
	RawSignals
	All
	Baseline
	Humidity
	numEndpoints
)

var endpointNames = [...]string{
	Control:    "ctl",
	CO2e:       "co2e",
	TVOC:       "tvoc",
	AirQuality: "iaq",
	RawH2:      "raw_h2",
	RawEthanol: "raw_ethanol",
	RawSignals: "raw",
	All:        "all",
	Baseline:   "baseline",
	Humidity:   "humidity",
}

func (e Endpoint) String() string {
	if e < 0 || e >= numEndpoints {
		return "Endpoint(" + strconv.Itoa(int(e)) + ")"
	}
	return endpointNames[e]
}

// Endpoints returns every endpoint in listing order.
func Endpoints() []Endpoint {
	all := make([]Endpoint, numEndpoints)
	for i := range all {
		all[i] = Endpoint(i)
	}
	return all
}

// Lookup returns the endpoint for a file name.
func Lookup(name string) (Endpoint, bool) {
	for i, n := range endpointNames {
		if n == name {
			return Endpoint(i), true
		}
	}
	return 0, false
}
