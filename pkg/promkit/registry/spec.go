// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package registry

// MetricKind identifies which Prometheus metric type a Spec or ad-hoc
// family was declared as.
type MetricKind int

const (
	KindCounter MetricKind = iota
	KindGauge
	KindHistogram
)

// DefaultLatencyBuckets is used for any histogram that does not name an
// explicit bucket profile, matching promkit-cpp's DefaultLatencyBuckets().
func DefaultLatencyBuckets() []float64 {
	return []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2}
}

// Spec describes a metric declared up front in the exporter config. Once
// pre-registered, its series set is fixed for the lifetime of the Running
// session: Create* calls against a spec-bound metric only ever resolve an
// existing series or reject, they never mint new ones.
type Spec struct {
	Kind        MetricKind
	Help        string
	ConstLabels map[string]string
	DynLabels   map[string][]string // label key -> allowed values
	Buckets     []float64           // histogram only; empty means DefaultLatencyBuckets
	HasBuckets  bool
}

// allowed reports whether provided const-label overrides are consistent
// with the spec: every key must either name one of the spec's own const
// labels with a matching value, or a declared dynamic label whose value is
// in the enumerated list.
func (s *Spec) allowed(provided map[string]string) bool {
	for k, v := range provided {
		if cv, ok := s.ConstLabels[k]; ok {
			if cv != v {
				return false
			}
			continue
		}
		values, ok := s.DynLabels[k]
		if !ok {
			return false
		}
		found := false
		for _, allowed := range values {
			if allowed == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// dynCombos returns the Cartesian product of the spec's dynamic label
// value lists. An empty dyn-label set yields exactly one empty combination,
// matching BuildDynCombos in promkit-cpp's PromBackend.cpp.
func dynCombos(dyn map[string][]string) []map[string]string {
	keys := make([]string, 0, len(dyn))
	for k := range dyn {
		keys = append(keys, k)
	}

	combos := []map[string]string{{}}
	for _, k := range keys {
		values := dyn[k]
		if len(values) == 0 {
			continue
		}
		next := make([]map[string]string, 0, len(combos)*len(values))
		for _, c := range combos {
			for _, v := range values {
				c2 := make(map[string]string, len(c)+1)
				for kk, vv := range c {
					c2[kk] = vv
				}
				c2[k] = v
				next = append(next, c2)
			}
		}
		combos = next
	}
	return combos
}
