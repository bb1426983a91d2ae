// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import "github.com/prometheus/client_golang/prometheus"

// MetricDeclaration is the registry-facing view of one declared metric,
// already resolved from config (see pkg/promkit/config for the TOML shape
// this is built from).
type MetricDeclaration struct {
	Name        string
	Kind        MetricKind
	Help        string
	ConstLabels map[string]string
	DynLabels   map[string][]string
	Buckets     []float64 // histogram only
	HasBuckets  bool
}

// PreRegister declares fam as a spec-bound metric and eagerly creates one
// series for every combination in the Cartesian product of its dynamic
// label value lists, merged with global labels and the metric's own const
// labels. It is the Go analog of PreRegisterFromFileConfig in
// promkit-cpp's PromBackend.cpp, run once while InitFromToml still holds
// the Running state.
func (r *Registry) PreRegister(fam MetricDeclaration) error {
	fullname := r.FullName(fam.Name)

	spec := &Spec{
		Kind:        fam.Kind,
		Help:        fam.Help,
		ConstLabels: fam.ConstLabels,
		DynLabels:   fam.DynLabels,
		Buckets:     fam.Buckets,
		HasBuckets:  fam.HasBuckets,
	}

	// fam.ConstLabels wins over r.globalLabels on key collisions: a
	// declared metric's own const labels take priority over global labels
	// of the same key (the "metric-level wins" rule in §3), which must
	// match the override CreateCounter/CreateGauge/CreateHistogram apply
	// when resolving a spec-bound lookup key.
	base := mergeLabels(fam.ConstLabels, r.globalLabels)
	combos := dynCombos(fam.DynLabels)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.specs[fullname] = spec

	switch fam.Kind {
	case KindCounter:
		names := labelNames(mergeLabels(base, combos[0]))
		counterFam, err := r.getOrMakeCounterFamily(fullname, fam.Help, names)
		if err != nil {
			return err
		}
		for _, combo := range combos {
			labels := mergeLabels(base, combo)
			c, err := counterFam.vec.GetMetricWith(prometheus.Labels(labels))
			if err != nil {
				return err
			}
			r.counterSeries[seriesKey(fullname, labels)] = r.storeCounter(c)
		}
	case KindGauge:
		names := labelNames(mergeLabels(base, combos[0]))
		gaugeFam, err := r.getOrMakeGaugeFamily(fullname, fam.Help, names)
		if err != nil {
			return err
		}
		for _, combo := range combos {
			labels := mergeLabels(base, combo)
			g, err := gaugeFam.vec.GetMetricWith(prometheus.Labels(labels))
			if err != nil {
				return err
			}
			r.gaugeSeries[seriesKey(fullname, labels)] = r.storeGauge(g)
		}
	case KindHistogram:
		buckets := fam.Buckets
		if !fam.HasBuckets || len(buckets) == 0 {
			buckets = DefaultLatencyBuckets()
		}
		names := labelNames(mergeLabels(base, combos[0]))
		histFam, err := r.getOrMakeHistogramFamily(fullname, fam.Help, names, buckets)
		if err != nil {
			return err
		}
		for _, combo := range combos {
			labels := mergeLabels(base, combo)
			h, err := histFam.vec.GetMetricWith(prometheus.Labels(labels))
			if err != nil {
				return err
			}
			r.histogramSeries[seriesKey(fullname, labels)] = r.storeHistogram(h)
		}
	}
	return nil
}
