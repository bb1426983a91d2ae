// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mux

import (
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
)

func counterFam(name string, values map[string]float64, component string) *dto.MetricFamily {
	f := &dto.MetricFamily{Name: proto.String(name), Type: dto.MetricType_COUNTER.Enum()}
	for route, v := range values {
		f.Metric = append(f.Metric, &dto.Metric{
			Label: []*dto.LabelPair{
				{Name: proto.String("component"), Value: proto.String(component)},
				{Name: proto.String("route"), Value: proto.String(route)},
			},
			Counter: &dto.Counter{Value: proto.Float64(v)},
		})
	}
	return f
}

func TestMergeFamiliesKeepsPerComponentDetail(t *testing.T) {
	a := []*dto.MetricFamily{counterFam("requests_total", map[string]float64{"/x": 3}, "worker-1")}
	b := []*dto.MetricFamily{counterFam("requests_total", map[string]float64{"/x": 5}, "worker-2")}

	merged := mergeFamilies(a, b)
	require.Len(t, merged, 1)
	assert.Len(t, merged[0].Metric, 2)
}

func TestAppendSummedViewsSumsAcrossComponentsForCounters(t *testing.T) {
	fams := []*dto.MetricFamily{
		counterFam("requests_total", map[string]float64{"/x": 3}, "worker-1"),
	}
	fams[0].Metric = append(fams[0].Metric, counterFam("requests_total", map[string]float64{"/x": 5}, "worker-2").Metric...)

	out := appendSummedViews(fams)
	require.Len(t, out, 1)
	// 2 per-component detail series + 1 summed series without "component"
	require.Len(t, out[0].Metric, 3)

	var summed *dto.Metric
	for _, m := range out[0].Metric {
		hasComponent := false
		for _, l := range m.GetLabel() {
			if l.GetName() == "component" {
				hasComponent = true
			}
		}
		if !hasComponent {
			summed = m
		}
	}
	require.NotNil(t, summed)
	assert.Equal(t, 8.0, summed.GetCounter().GetValue())
}

func TestAppendSummedViewsExcludesGauges(t *testing.T) {
	f := &dto.MetricFamily{
		Name: proto.String("inflight"),
		Type: dto.MetricType_GAUGE.Enum(),
		Metric: []*dto.Metric{
			{
				Label:  []*dto.LabelPair{{Name: proto.String("component"), Value: proto.String("worker-1")}},
				Gauge:  &dto.Gauge{Value: proto.Float64(2)},
			},
		},
	}
	out := appendSummedViews([]*dto.MetricFamily{f})
	require.Len(t, out[0].Metric, 1) // no summed series appended for gauges
}

func TestAppendSummedViewsHistogramSumsBucketsByBound(t *testing.T) {
	mk := func(component string, count uint64, sum float64, buckets map[float64]uint64) *dto.Metric {
		var bs []*dto.Bucket
		for bound, c := range buckets {
			bs = append(bs, &dto.Bucket{UpperBound: proto.Float64(bound), CumulativeCount: proto.Uint64(c)})
		}
		return &dto.Metric{
			Label: []*dto.LabelPair{{Name: proto.String("component"), Value: proto.String(component)}},
			Histogram: &dto.Histogram{
				SampleCount: proto.Uint64(count),
				SampleSum:   proto.Float64(sum),
				Bucket:      bs,
			},
		}
	}
	f := &dto.MetricFamily{
		Name: proto.String("latency"),
		Type: dto.MetricType_HISTOGRAM.Enum(),
		Metric: []*dto.Metric{
			mk("worker-1", 5, 1.0, map[float64]uint64{0.1: 2, 0.5: 5}),
			mk("worker-2", 3, 0.5, map[float64]uint64{0.1: 1, 0.5: 3}),
		},
	}

	out := appendSummedViews([]*dto.MetricFamily{f})
	require.Len(t, out[0].Metric, 3)

	var summed *dto.Metric
	for _, m := range out[0].Metric {
		if len(m.GetLabel()) == 0 {
			summed = m
		}
	}
	require.NotNil(t, summed)
	assert.Equal(t, uint64(8), summed.GetHistogram().GetSampleCount())
	assert.InDelta(t, 1.5, summed.GetHistogram().GetSampleSum(), 0.0001)
	for _, b := range summed.GetHistogram().GetBucket() {
		if b.GetUpperBound() == 0.1 {
			assert.Equal(t, uint64(3), b.GetCumulativeCount())
		}
		if b.GetUpperBound() == 0.5 {
			assert.Equal(t, uint64(8), b.GetCumulativeCount())
		}
	}
}
