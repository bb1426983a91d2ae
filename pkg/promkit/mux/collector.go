// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mux

import (
	"net/http"
	"strings"

	dto "github.com/prometheus/client_model/go"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/promkit/pkg/promkit/textfmt"
)

// Collector is an http.Handler that, on every request, rescans a worker
// descriptor directory, scrapes each live worker, merges the results with
// the aggregator's own in-process registry, and serves the combined view
// plus a per-family summed aggregate (see appendSummedViews). It is the
// Go counterpart of promkit-cpp's MuxCollector, re-imagined as a handler
// instead of a prometheus::Collectable because client_golang's Registry
// has no hook for a third-party Collect-time fan-out merge — the merged
// text has to be hand-assembled and written directly to the response.
//
// Only counter and histogram families get a summed series; gauge families
// do not. Worker scrapes lose their TYPE lines in textfmt.Parse, so every
// non-histogram worker sample is merged and summed as a counter; only the
// aggregator's own gauges stay unsummed gauge series.
type Collector struct {
	Dir  string
	Self *prometheus.Registry
}

// NewCollector builds a Collector that scans dir for worker descriptors
// and additionally folds in self's own families under no extra label
// injection — the aggregator is expected to already carry its own
// "component" label via global labels.
func NewCollector(dir string, self *prometheus.Registry) *Collector {
	return &Collector{Dir: dir, Self: self}
}

func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	fams, err := c.collect()
	if err != nil {
		cclog.Errorf("[PROMKIT]> mux collect: %s", err.Error())
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", string(expfmt.FmtText))
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, f := range fams {
		if err := enc.Encode(f); err != nil {
			cclog.Errorf("[PROMKIT]> mux encode: %s", err.Error())
			return
		}
	}
}

func (c *Collector) collect() ([]*dto.MetricFamily, error) {
	var sources [][]*dto.MetricFamily

	if c.Self != nil {
		selfFams, err := c.Self.Gather()
		if err != nil {
			return nil, err
		}
		sources = append(sources, selfFams)
	}

	for _, we := range ScanDir(c.Dir) {
		text := fetchText(we)
		if text == "" {
			continue
		}
		fams, err := textfmt.Parse(strings.NewReader(text))
		if err != nil {
			cclog.ComponentDebug("PROMKIT", "discarding unparseable scrape from", we.Component, err.Error())
			continue
		}
		sources = append(sources, fams)
	}

	merged := mergeFamilies(sources...)
	return appendSummedViews(merged), nil
}
