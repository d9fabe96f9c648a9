// Copyright 2021 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package sgp30fs publishes an SGP30 as a small tree of text files.
//
// Every file maps to one reading or control operation of the sensor. The
// tree is served over HTTP: a GET returns the file content, a PUT or POST
// writes to it. Device failures never turn into request failures; readers
// get the last known values instead.
package sgp30fs
