// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import "github.com/prometheus/client_golang/prometheus"

// resolveLabels applies the documented merge precedence for ad-hoc metrics:
// global labels are authoritative over caller-provided labels of the same
// key. For spec-bound metrics, the spec's own const_labels are layered on
// top of this afterward and take priority over both (see the per-Create*
// spec branch below), matching the "metric-level wins" rule in §3.
func (r *Registry) resolveLabels(provided map[string]string) map[string]string {
	return mergeLabels(r.globalLabels, provided)
}

// CreateCounter resolves or creates a counter series. It returns the
// invalid id (0) on any spec violation or lifecycle race; see Spec.allowed
// for the label rules a spec-bound call must satisfy.
func (r *Registry) CreateCounter(name, help string, constLabels map[string]string) Id {
	fullname := r.FullName(name)
	final := r.resolveLabels(constLabels)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped.Load() {
		return invalidId
	}

	if spec, ok := r.specs[fullname]; ok {
		if spec.Kind != KindCounter {
			return invalidId
		}
		for k, v := range spec.ConstLabels {
			final[k] = v
		}
		if !spec.allowed(constLabels) {
			return invalidId
		}
		if id, ok := r.counterSeries[seriesKey(fullname, final)]; ok {
			return id
		}
		return invalidId
	}

	fam, err := r.getOrMakeCounterFamily(fullname, help, labelNames(final))
	if err != nil {
		return invalidId
	}
	c, err := fam.vec.GetMetricWith(prometheus.Labels(final))
	if err != nil {
		return invalidId
	}
	id := r.storeCounter(c)
	r.counterSeries[seriesKey(fullname, final)] = id
	return id
}

// CreateGauge mirrors CreateCounter for gauge series.
func (r *Registry) CreateGauge(name, help string, constLabels map[string]string) Id {
	fullname := r.FullName(name)
	final := r.resolveLabels(constLabels)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped.Load() {
		return invalidId
	}

	if spec, ok := r.specs[fullname]; ok {
		if spec.Kind != KindGauge {
			return invalidId
		}
		for k, v := range spec.ConstLabels {
			final[k] = v
		}
		if !spec.allowed(constLabels) {
			return invalidId
		}
		if id, ok := r.gaugeSeries[seriesKey(fullname, final)]; ok {
			return id
		}
		return invalidId
	}

	fam, err := r.getOrMakeGaugeFamily(fullname, help, labelNames(final))
	if err != nil {
		return invalidId
	}
	g, err := fam.vec.GetMetricWith(prometheus.Labels(final))
	if err != nil {
		return invalidId
	}
	id := r.storeGauge(g)
	r.gaugeSeries[seriesKey(fullname, final)] = id
	return id
}

// CreateHistogram mirrors CreateCounter for histogram series. An empty
// buckets slice falls back to DefaultLatencyBuckets for ad-hoc metrics; for
// spec-bound metrics the spec's own bucket profile (or the default) is
// always used, the buckets argument here is ignored in that case since the
// layout was already fixed at pre-registration time.
func (r *Registry) CreateHistogram(name, help string, buckets []float64, constLabels map[string]string) Id {
	fullname := r.FullName(name)
	final := r.resolveLabels(constLabels)

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped.Load() {
		return invalidId
	}

	if spec, ok := r.specs[fullname]; ok {
		if spec.Kind != KindHistogram {
			return invalidId
		}
		for k, v := range spec.ConstLabels {
			final[k] = v
		}
		if !spec.allowed(constLabels) {
			return invalidId
		}
		if id, ok := r.histogramSeries[seriesKey(fullname, final)]; ok {
			return id
		}
		return invalidId
	}

	used := buckets
	if len(used) == 0 {
		used = DefaultLatencyBuckets()
	}
	fam, err := r.getOrMakeHistogramFamily(fullname, help, labelNames(final), used)
	if err != nil {
		return invalidId
	}
	h, err := fam.vec.GetMetricWith(prometheus.Labels(final))
	if err != nil {
		return invalidId
	}
	id := r.storeHistogram(h)
	r.histogramSeries[seriesKey(fullname, final)] = id
	return id
}

func (r *Registry) storeCounter(c prometheus.Counter) Id {
	idx := len(r.counters)
	r.counters = append(r.counters, counterSlot{counter: c, generation: r.generation})
	return packId(r.generation, idx)
}

func (r *Registry) storeGauge(g prometheus.Gauge) Id {
	idx := len(r.gauges)
	r.gauges = append(r.gauges, gaugeSlot{gauge: g, generation: r.generation})
	return packId(r.generation, idx)
}

func (r *Registry) storeHistogram(h prometheus.Observer) Id {
	idx := len(r.histograms)
	r.histograms = append(r.histograms, histogramSlot{observer: h, generation: r.generation})
	return packId(r.generation, idx)
}
