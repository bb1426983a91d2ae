// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package textfmt

import (
	"strings"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func famByName(fams []*dto.MetricFamily, name string) *dto.MetricFamily {
	for _, f := range fams {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestParseSkipsCommentsAndBlankLines(t *testing.T) {
	text := `
# HELP requests_total total requests
# TYPE requests_total counter

requests_total{route="/a"} 3
`
	fams, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, fams, 1)
	assert.Equal(t, dto.MetricType_UNTYPED, fams[0].GetType())
	assert.Equal(t, "", fams[0].GetHelp())
}

func TestParseUntypedSample(t *testing.T) {
	fams, err := Parse(strings.NewReader(`cpu_seconds{host="a",cpu="0"} 1.5`))
	require.NoError(t, err)
	require.Len(t, fams, 1)
	f := fams[0]
	assert.Equal(t, "cpu_seconds", f.GetName())
	require.Len(t, f.Metric, 1)
	assert.Equal(t, 1.5, f.Metric[0].GetUntyped().GetValue())
	require.Len(t, f.Metric[0].GetLabel(), 2)
}

func TestParseMalformedLineIsSkipped(t *testing.T) {
	text := "good_metric 1\nnot a number here\nanother_good 2\n"
	fams, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	assert.NotNil(t, famByName(fams, "good_metric"))
	assert.NotNil(t, famByName(fams, "another_good"))
}

func TestParseHistogramReconstruction(t *testing.T) {
	text := `
latency_bucket{le="0.1"} 5
latency_bucket{le="0.5"} 9
latency_bucket{le="+Inf"} 10
latency_sum 3.2
latency_count 10
`
	fams, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	f := famByName(fams, "latency")
	require.NotNil(t, f)
	assert.Equal(t, dto.MetricType_HISTOGRAM, f.GetType())
	require.Len(t, f.Metric, 1)
	h := f.Metric[0].GetHistogram()
	assert.Equal(t, 3.2, h.GetSampleSum())
	assert.Equal(t, uint64(10), h.GetSampleCount())
	require.Len(t, h.GetBucket(), 3)
	assert.Equal(t, 0.1, h.GetBucket()[0].GetUpperBound())
	assert.Equal(t, 0.5, h.GetBucket()[1].GetUpperBound())
}

func TestParseHistogramBucketsSortedRegardlessOfInputOrder(t *testing.T) {
	text := `
h_bucket{le="1"} 1
h_bucket{le="0.1"} 1
h_bucket{le="0.5"} 1
`
	fams, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	f := famByName(fams, "h")
	require.NotNil(t, f)
	bounds := f.Metric[0].GetHistogram().GetBucket()
	require.Len(t, bounds, 3)
	assert.Less(t, bounds[0].GetUpperBound(), bounds[1].GetUpperBound())
	assert.Less(t, bounds[1].GetUpperBound(), bounds[2].GetUpperBound())
}

func TestParseHistogramPerLabelSetIsDistinct(t *testing.T) {
	text := `
h_bucket{route="/a",le="1"} 2
h_bucket{route="/b",le="1"} 7
h_sum{route="/a"} 1
h_sum{route="/b"} 4
h_count{route="/a"} 2
h_count{route="/b"} 7
`
	fams, err := Parse(strings.NewReader(text))
	require.NoError(t, err)
	f := famByName(fams, "h")
	require.NotNil(t, f)
	require.Len(t, f.Metric, 2)
}
