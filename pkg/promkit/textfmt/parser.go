// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package textfmt re-parses the Prometheus text exposition format back
// into dto.MetricFamily values. It exists because a mux aggregator fetches
// already-serialized text from its workers and has to reconstruct
// structured families (in particular histograms, whose buckets/sum/count
// arrive as three separate sample lines) before it can merge and
// re-encode them. Mirrors the original C++ implementation's mux/TextParser.cpp.
package textfmt

import (
	"bufio"
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"google.golang.org/protobuf/proto"
)

// Parse reads r as Prometheus text exposition format and reconstructs the
// metric families it describes. It deliberately does not consult "# HELP"
// or "# TYPE" comment lines — like the C++ original it skips every line
// starting with '#' outright, so every reconstructed series other than
// the _bucket/_sum/_count histogram trio comes back as dto.MetricType_UNTYPED.
// Malformed lines are skipped individually; nothing is partially committed.
func Parse(r io.Reader) ([]*dto.MetricFamily, error) {
	order := []string{}
	byName := map[string]*dto.MetricFamily{}
	histMetrics := map[string]map[string]*dto.Metric{} // base name -> label key -> metric

	getFam := func(name string, typ dto.MetricType) *dto.MetricFamily {
		if f, ok := byName[name]; ok {
			return f
		}
		f := &dto.MetricFamily{
			Name: proto.String(name),
			Type: typ.Enum(),
		}
		byName[name] = f
		order = append(order, name)
		return f
	}

	getHistMetric := func(base string, labels []*dto.LabelPair) *dto.Metric {
		key := labelsKey(labels)
		bucket, ok := histMetrics[base]
		if !ok {
			bucket = map[string]*dto.Metric{}
			histMetrics[base] = bucket
		}
		m, ok := bucket[key]
		if !ok {
			m = &dto.Metric{Label: labels, Histogram: &dto.Histogram{}}
			bucket[key] = m
			f := getFam(base, dto.MetricType_HISTOGRAM)
			f.Metric = append(f.Metric, m)
		}
		return m
	}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		name, labels, rest, ok := splitNameAndLabels(line)
		if !ok {
			continue
		}
		rest = strings.TrimLeft(rest, " \t")
		valStr, _, _ := strings.Cut(rest, " ")
		valStr = strings.TrimRight(valStr, "\t")
		value, err := strconv.ParseFloat(valStr, 64)
		if err != nil {
			continue
		}

		switch {
		case strings.HasSuffix(name, "_bucket") && len(name) > len("_bucket"):
			base := name[:len(name)-len("_bucket")]
			le, withoutLe := extractLabel(labels, "le")
			bound := math.Inf(1)
			if le != "" {
				if parsed, err := strconv.ParseFloat(le, 64); err == nil {
					bound = parsed
				}
			}
			m := getHistMetric(base, withoutLe)
			m.Histogram.Bucket = append(m.Histogram.Bucket, &dto.Bucket{
				UpperBound:      proto.Float64(bound),
				CumulativeCount: proto.Uint64(uint64(value)),
			})
		case strings.HasSuffix(name, "_sum") && len(name) > len("_sum"):
			base := name[:len(name)-len("_sum")]
			m := getHistMetric(base, labels)
			m.Histogram.SampleSum = proto.Float64(value)
		case strings.HasSuffix(name, "_count") && len(name) > len("_count"):
			base := name[:len(name)-len("_count")]
			m := getHistMetric(base, labels)
			m.Histogram.SampleCount = proto.Uint64(uint64(value))
		default:
			f := getFam(name, dto.MetricType_UNTYPED)
			f.Metric = append(f.Metric, &dto.Metric{
				Label:   labels,
				Untyped: &dto.Untyped{Value: proto.Float64(value)},
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	result := make([]*dto.MetricFamily, 0, len(order))
	for _, name := range order {
		f := byName[name]
		if f.GetType() == dto.MetricType_HISTOGRAM {
			for _, m := range f.Metric {
				sort.Slice(m.Histogram.Bucket, func(i, j int) bool {
					return m.Histogram.Bucket[i].GetUpperBound() < m.Histogram.Bucket[j].GetUpperBound()
				})
			}
		}
		result = append(result, f)
	}
	return result, nil
}

// splitNameAndLabels tokenizes a sample line's "name{labels}" prefix, the
// same character-class scan promkit-cpp's ParseTextExposition performs.
func splitNameAndLabels(line string) (name string, labels []*dto.LabelPair, rest string, ok bool) {
	i := 0
	for i < len(line) && isNameChar(line[i]) {
		i++
	}
	if i == 0 {
		return "", nil, "", false
	}
	name = line[:i]
	remainder := line[i:]

	if strings.HasPrefix(remainder, "{") {
		end := strings.IndexByte(remainder, '}')
		if end < 0 {
			return "", nil, "", false
		}
		labelSpan := remainder[1:end]
		parsed, ok2 := parseLabels(labelSpan)
		if !ok2 {
			return "", nil, "", false
		}
		labels = parsed
		remainder = remainder[end+1:]
	}
	return name, labels, remainder, true
}

func isNameChar(c byte) bool {
	return c == '_' || c == ':' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func parseLabels(span string) ([]*dto.LabelPair, bool) {
	var out []*dto.LabelPair
	for span != "" {
		var token string
		if idx := strings.IndexByte(span, ','); idx >= 0 {
			token = span[:idx]
			span = span[idx+1:]
		} else {
			token = span
			span = ""
		}
		eq := strings.IndexByte(token, '=')
		if eq < 0 {
			return nil, false
		}
		k := strings.TrimSpace(token[:eq])
		v := token[eq+1:]
		v = strings.Trim(v, `"`)
		out = append(out, &dto.LabelPair{Name: proto.String(k), Value: proto.String(v)})
	}
	return out, true
}

func extractLabel(labels []*dto.LabelPair, name string) (value string, rest []*dto.LabelPair) {
	for _, l := range labels {
		if l.GetName() == name {
			value = l.GetValue()
			continue
		}
		rest = append(rest, l)
	}
	return value, rest
}

func labelsKey(labels []*dto.LabelPair) string {
	parts := make([]string, 0, len(labels))
	for _, l := range labels {
		parts = append(parts, l.GetName()+"="+l.GetValue())
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}
