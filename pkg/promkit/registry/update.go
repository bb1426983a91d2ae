// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

// CounterAdd adds v to the counter behind id. Negative values are
// silently dropped (counters never decrease); id 0 or a handle from a
// stale generation is a silent no-op.
func (r *Registry) CounterAdd(id Id, v float64) {
	if v <= 0 {
		return
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	generation, idx, ok := unpackId(id)
	if !ok || generation != r.generation || idx < 0 || idx >= len(r.counters) {
		return
	}
	r.counters[idx].counter.Add(v)
}

// GaugeSet replaces the gauge's value.
func (r *Registry) GaugeSet(id Id, v float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	generation, idx, ok := unpackId(id)
	if !ok || generation != r.generation || idx < 0 || idx >= len(r.gauges) {
		return
	}
	r.gauges[idx].gauge.Set(v)
}

// GaugeAdd increments the gauge by delta when delta >= 0, or decrements it
// by |delta| otherwise.
func (r *Registry) GaugeAdd(id Id, delta float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	generation, idx, ok := unpackId(id)
	if !ok || generation != r.generation || idx < 0 || idx >= len(r.gauges) {
		return
	}
	if delta >= 0 {
		r.gauges[idx].gauge.Add(delta)
	} else {
		r.gauges[idx].gauge.Sub(-delta)
	}
}

// HistogramObserve records one observation into the series' pre-configured
// bucket layout.
func (r *Registry) HistogramObserve(id Id, v float64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	generation, idx, ok := unpackId(id)
	if !ok || generation != r.generation || idx < 0 || idx >= len(r.histograms) {
		return
	}
	r.histograms[idx].observer.Observe(v)
}
