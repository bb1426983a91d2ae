// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

type counterFamily struct {
	vec        *prometheus.CounterVec
	labelNames []string
}

type gaugeFamily struct {
	vec        *prometheus.GaugeVec
	labelNames []string
}

type histogramFamily struct {
	vec        *prometheus.HistogramVec
	labelNames []string
	buckets    []float64
}

type counterSlot struct {
	counter    prometheus.Counter
	generation uint32
}

type gaugeSlot struct {
	gauge      prometheus.Gauge
	generation uint32
}

type histogramSlot struct {
	observer   prometheus.Observer
	generation uint32
}

// Registry owns every Family and Series for one Running session. It wraps
// a *prometheus.Registry the way promkit-cpp's Backend wraps a
// prometheus::Registry: families are prometheus.*Vec instances keyed by
// full metric name, and resolved series sit behind generation-tagged arena
// slots so handles from a previous session fail closed instead of
// dereferencing a reused slot.
type Registry struct {
	mu sync.RWMutex

	// stopped mirrors the backend lifecycle's ShuttingDown/Stopped states.
	// Create* re-checks it under r.mu (see create.go) so a Create* call
	// that read Running before Shutdown flips the package-level state
	// still fails closed once it actually reaches the registry's own
	// lock, instead of racing Shutdown to mint a series in a torn-down
	// generation.
	stopped atomic.Bool

	Prom         *prometheus.Registry
	generation   uint32
	prefix       string
	globalLabels map[string]string

	counterFamilies   map[string]*counterFamily
	gaugeFamilies     map[string]*gaugeFamily
	histogramFamilies map[string]*histogramFamily

	counterSeries   map[string]Id
	gaugeSeries     map[string]Id
	histogramSeries map[string]Id

	specs map[string]*Spec

	counters   []counterSlot
	gauges     []gaugeSlot
	histograms []histogramSlot
}

// New builds an empty registry for the given generation. generation should
// be the lifecycle's current generation counter so handles minted here
// carry it and become inert once the lifecycle moves to the next one.
func New(prefix string, globalLabels map[string]string, generation uint32) *Registry {
	return &Registry{
		Prom:              prometheus.NewRegistry(),
		generation:        generation,
		prefix:            prefix,
		globalLabels:      globalLabels,
		counterFamilies:   map[string]*counterFamily{},
		gaugeFamilies:     map[string]*gaugeFamily{},
		histogramFamilies: map[string]*histogramFamily{},
		counterSeries:     map[string]Id{},
		gaugeSeries:       map[string]Id{},
		histogramSeries:   map[string]Id{},
		specs:             map[string]*Spec{},
	}
}

// Generation reports the generation this registry's handles were minted
// under.
func (r *Registry) Generation() uint32 {
	return r.generation
}

// Stop marks the registry as no longer accepting new series. The backend
// calls this while Shutdown still holds its own lock, so Create* calls
// already in flight observe it as soon as they acquire r.mu.
func (r *Registry) Stop() {
	r.stopped.Store(true)
}

// FullName applies the configured metric-name prefix, as
// "<prefix>_<name>" or just "<name>" when no prefix is set.
func (r *Registry) FullName(name string) string {
	return fullName(r.prefix, name)
}

func (r *Registry) getOrMakeCounterFamily(fullname, help string, labelNames []string) (*counterFamily, error) {
	if fam, ok := r.counterFamilies[fullname]; ok {
		if !sameLabelNames(fam.labelNames, labelNames) {
			return nil, fmt.Errorf("registry: counter %q already registered with a different label set", fullname)
		}
		return fam, nil
	}
	vec := prometheus.NewCounterVec(prometheus.CounterOpts{Name: fullname, Help: help}, labelNames)
	if err := r.Prom.Register(vec); err != nil {
		return nil, err
	}
	fam := &counterFamily{vec: vec, labelNames: labelNames}
	r.counterFamilies[fullname] = fam
	return fam, nil
}

func (r *Registry) getOrMakeGaugeFamily(fullname, help string, labelNames []string) (*gaugeFamily, error) {
	if fam, ok := r.gaugeFamilies[fullname]; ok {
		if !sameLabelNames(fam.labelNames, labelNames) {
			return nil, fmt.Errorf("registry: gauge %q already registered with a different label set", fullname)
		}
		return fam, nil
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: fullname, Help: help}, labelNames)
	if err := r.Prom.Register(vec); err != nil {
		return nil, err
	}
	fam := &gaugeFamily{vec: vec, labelNames: labelNames}
	r.gaugeFamilies[fullname] = fam
	return fam, nil
}

func (r *Registry) getOrMakeHistogramFamily(fullname, help string, labelNames []string, buckets []float64) (*histogramFamily, error) {
	if fam, ok := r.histogramFamilies[fullname]; ok {
		if !sameLabelNames(fam.labelNames, labelNames) {
			return nil, fmt.Errorf("registry: histogram %q already registered with a different label set", fullname)
		}
		return fam, nil
	}
	vec := prometheus.NewHistogramVec(prometheus.HistogramOpts{Name: fullname, Help: help, Buckets: buckets}, labelNames)
	if err := r.Prom.Register(vec); err != nil {
		return nil, err
	}
	fam := &histogramFamily{vec: vec, labelNames: labelNames, buckets: buckets}
	r.histogramFamilies[fullname] = fam
	return fam, nil
}
