// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mux

import (
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

// famKey identifies a metric family by name and type; two families with
// the same name but different types (which should not happen in practice,
// but the original guards for it) are kept distinct.
type famKey struct {
	name string
	typ  dto.MetricType
}

// mergeFamilies appends every metric in each of srcs into a single set of
// families keyed by (name, type), preserving per-component detail. It is
// the direct counterpart of MuxCollector::Collect's first pass (the
// findFam/insert loop over self_fams and each worker's fams). Untyped
// families, which is how textfmt returns every non-histogram worker
// sample, are merged as counters.
func mergeFamilies(srcs ...[]*dto.MetricFamily) []*dto.MetricFamily {
	order := []famKey{}
	byKey := map[famKey]*dto.MetricFamily{}

	for _, fams := range srcs {
		for _, f := range fams {
			typ := f.GetType()
			if typ == dto.MetricType_UNTYPED {
				typ = dto.MetricType_COUNTER
			}
			key := famKey{name: f.GetName(), typ: typ}
			dst, ok := byKey[key]
			if !ok {
				dst = &dto.MetricFamily{
					Name: proto.String(f.GetName()),
					Type: typ.Enum(),
					Help: proto.String(f.GetHelp()),
				}
				byKey[key] = dst
				order = append(order, key)
			}
			if dst.GetHelp() == "" && f.GetHelp() != "" {
				dst.Help = proto.String(f.GetHelp())
			}
			for _, m := range f.Metric {
				if m.Counter == nil && m.Untyped != nil {
					m = &dto.Metric{Label: m.Label, Counter: &dto.Counter{Value: m.Untyped.Value}, TimestampMs: m.TimestampMs}
				}
				dst.Metric = append(dst.Metric, m)
			}
		}
	}

	out := make([]*dto.MetricFamily, 0, len(order))
	for _, key := range order {
		out = append(out, byKey[key])
	}
	return out
}

// labelKeyWithoutComponent builds the group-by key used for the summed
// aggregate view: every label except "component", sorted by name.
func labelKeyWithoutComponent(labels []*dto.LabelPair) (key string, rest []*dto.LabelPair) {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		if l.GetName() == "component" {
			continue
		}
		rest = append(rest, l)
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, "|"), rest
}

// appendSummedViews adds one additional series per distinct
// (labels-minus-component) group for every counter and histogram family
// in fams, summing across components. Per-component detail series are
// left untouched; gauge families are excluded (see the note on Collector
// in collector.go). Because mergeFamilies turns untyped worker samples
// into counters, only gauges from the aggregator's own registry reach
// this function as gauges.
func appendSummedViews(fams []*dto.MetricFamily) []*dto.MetricFamily {
	for _, f := range fams {
		switch f.GetType() {
		case dto.MetricType_HISTOGRAM:
			appendSummedHistogram(f)
		case dto.MetricType_COUNTER:
			appendSummedCounter(f)
		}
	}
	return fams
}

func appendSummedHistogram(f *dto.MetricFamily) {
	type agg struct {
		labels  []*dto.LabelPair
		sum     float64
		count   uint64
		buckets map[float64]uint64
	}
	order := []string{}
	byKey := map[string]*agg{}

	for _, m := range f.Metric {
		key, rest := labelKeyWithoutComponent(m.Label)
		a, ok := byKey[key]
		if !ok {
			a = &agg{labels: rest, buckets: map[float64]uint64{}}
			byKey[key] = a
			order = append(order, key)
		}
		h := m.GetHistogram()
		a.sum += h.GetSampleSum()
		a.count += h.GetSampleCount()
		for _, b := range h.GetBucket() {
			a.buckets[b.GetUpperBound()] += b.GetCumulativeCount()
		}
	}

	for _, key := range order {
		a := byKey[key]
		bounds := make([]float64, 0, len(a.buckets))
		for bound := range a.buckets {
			bounds = append(bounds, bound)
		}
		sort.Float64s(bounds)
		buckets := make([]*dto.Bucket, 0, len(bounds))
		for _, bound := range bounds {
			buckets = append(buckets, &dto.Bucket{
				UpperBound:      proto.Float64(bound),
				CumulativeCount: proto.Uint64(a.buckets[bound]),
			})
		}
		f.Metric = append(f.Metric, &dto.Metric{
			Label: a.labels,
			Histogram: &dto.Histogram{
				SampleSum:   proto.Float64(a.sum),
				SampleCount: proto.Uint64(a.count),
				Bucket:      buckets,
			},
		})
	}
}

func appendSummedCounter(f *dto.MetricFamily) {
	type agg struct {
		labels []*dto.LabelPair
		value  float64
	}
	order := []string{}
	byKey := map[string]*agg{}

	for _, m := range f.Metric {
		key, rest := labelKeyWithoutComponent(m.Label)
		a, ok := byKey[key]
		if !ok {
			a = &agg{labels: rest}
			byKey[key] = a
			order = append(order, key)
		}
		a.value += m.GetCounter().GetValue()
	}

	for _, key := range order {
		a := byKey[key]
		f.Metric = append(f.Metric, &dto.Metric{
			Label:   a.labels,
			Counter: &dto.Counter{Value: proto.Float64(a.value)},
		})
	}
}
