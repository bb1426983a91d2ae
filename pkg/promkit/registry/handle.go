// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package registry owns the metric families and time series behind
// promkit's opaque handles. A handle packs a generation counter together
// with an arena index: (generation << 32) | (index + 1). The lifecycle
// passes a new generation to New every time Init builds a registry, so a
// handle minted before a Shutdown can never resolve to a series created
// after the next Init — it is silently treated as invalid instead of
// aliasing into a reused arena slot.
package registry

// Id is the common representation behind CounterId, GaugeId and
// HistogramId. 0 is always the reserved invalid value.
type Id uint64

const invalidId Id = 0

func packId(generation uint32, index int) Id {
	return Id(uint64(generation)<<32 | uint64(index+1))
}

func unpackId(id Id) (generation uint32, index int, ok bool) {
	if id == invalidId {
		return 0, 0, false
	}
	generation = uint32(uint64(id) >> 32)
	index = int(uint64(id)&0xffffffff) - 1
	return generation, index, true
}
