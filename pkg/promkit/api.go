// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promkit

import (
	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/promkit/pkg/promkit/registry"
)

// CounterId, GaugeId and HistogramId are opaque handles returned by the
// Create* functions. The zero value is always invalid: every Add/Set/
// Observe call on it is a guaranteed no-op, so a host that forgets to
// check a Create* return value fails safe instead of panicking.
type (
	CounterId   = registry.Id
	GaugeId     = registry.Id
	HistogramId = registry.Id
)

// recoverToFalse swallows any panic raised inside a public entry point
// (Init, InitFromToml, Create*, the update calls) and reports it through
// cclog instead of crashing the host process; the entry point then
// returns its zero value. promkit's contract is that it never takes its
// embedder down; the code below it is not expected to panic, but the
// boundary guards against it anyway.
func recoverToFalse(where string) {
	if r := recover(); r != nil {
		cclog.Errorf("[PROMKIT]> recovered panic in %s: %v", where, r)
	}
}

// CreateCounter resolves or creates a counter series named name (after
// the configured prefix), returning 0 when promkit is disabled/not
// running or the series is rejected by a pre-registered spec.
func CreateCounter(name, help string, constLabels map[string]string) (id CounterId) {
	reg, release, ok := registryForCall()
	if !ok {
		return 0
	}
	defer release()
	defer recoverToFalse("CreateCounter")
	return reg.CreateCounter(name, help, constLabels)
}

// CounterAdd adds v (v <= 0 is dropped) to the counter behind id.
func CounterAdd(id CounterId, v float64) {
	if id == 0 {
		return
	}
	reg, release, ok := registryForCall()
	if !ok {
		return
	}
	defer release()
	defer recoverToFalse("CounterAdd")
	reg.CounterAdd(id, v)
}

// CreateGauge resolves or creates a gauge series.
func CreateGauge(name, help string, constLabels map[string]string) (id GaugeId) {
	reg, release, ok := registryForCall()
	if !ok {
		return 0
	}
	defer release()
	defer recoverToFalse("CreateGauge")
	return reg.CreateGauge(name, help, constLabels)
}

// GaugeSet sets the gauge behind id to v.
func GaugeSet(id GaugeId, v float64) {
	if id == 0 {
		return
	}
	reg, release, ok := registryForCall()
	if !ok {
		return
	}
	defer release()
	defer recoverToFalse("GaugeSet")
	reg.GaugeSet(id, v)
}

// GaugeAdd adds delta to the gauge behind id; a negative delta subtracts.
func GaugeAdd(id GaugeId, delta float64) {
	if id == 0 {
		return
	}
	reg, release, ok := registryForCall()
	if !ok {
		return
	}
	defer release()
	defer recoverToFalse("GaugeAdd")
	reg.GaugeAdd(id, delta)
}

// CreateHistogram resolves or creates a histogram series. An empty
// buckets slice falls back to registry.DefaultLatencyBuckets for ad-hoc
// metrics.
func CreateHistogram(name, help string, buckets []float64, constLabels map[string]string) (id HistogramId) {
	reg, release, ok := registryForCall()
	if !ok {
		return 0
	}
	defer release()
	defer recoverToFalse("CreateHistogram")
	return reg.CreateHistogram(name, help, buckets, constLabels)
}

// HistogramObserve records v into the histogram behind id.
func HistogramObserve(id HistogramId, v float64) {
	if id == 0 {
		return
	}
	reg, release, ok := registryForCall()
	if !ok {
		return
	}
	defer release()
	defer recoverToFalse("HistogramObserve")
	reg.HistogramObserve(id, v)
}
