// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package config holds promkit's two configuration shapes: Config, the
// small struct every public Init call takes, and FileConfig, the TOML
// document InitFromToml decodes and validates before reducing it down to
// a Config plus a list of declared metrics.
package config

// Config is the programmatic configuration accepted by promkit.Init. Its
// zero value has Enabled == false, so a forgotten Init call in a host
// stays behaviorally inert rather than silently binding a default port.
type Config struct {
	Enabled bool
	Mode    string // "single" | "mux"
	Host    string
	Port    int
	Path    string // metrics path, defaults to "/metrics"
	Prefix  string // metric-name prefix
	Labels  map[string]string
}

// ModeSingle and ModeMux are the two recognized exporter.mode values.
const (
	ModeSingle = "single"
	ModeMux    = "mux"
)

// DefaultPath is used whenever a config omits exporter.path.
const DefaultPath = "/metrics"

// FileConfig is the root of a promkit TOML document.
type FileConfig struct {
	Exporter ExporterConfig       `toml:"exporter" json:"exporter"`
	Labels   map[string]string    `toml:"labels" json:"labels,omitempty"`
	Buckets  map[string][]float64 `toml:"buckets" json:"buckets,omitempty"`
	Metrics  []MetricDef          `toml:"metrics" json:"metrics,omitempty"`
}

// ExporterConfig is the [exporter] table.
type ExporterConfig struct {
	Enabled   bool   `toml:"enabled" json:"enabled"`
	Mode      string `toml:"mode" json:"mode"`
	Host      string `toml:"host" json:"host"`
	Port      int    `toml:"port" json:"port"`
	Path      string `toml:"path" json:"path"`
	Namespace string `toml:"namespace" json:"namespace,omitempty"`
}

// MetricDef is one [[metrics]] table entry.
type MetricDef struct {
	Name           string              `toml:"name" json:"name"`
	Type           string              `toml:"type" json:"type"` // counter|gauge|histogram
	Help           string              `toml:"help" json:"help,omitempty"`
	Unit           string              `toml:"unit" json:"unit,omitempty"` // annotation only
	ConstLabels    map[string]string   `toml:"const_labels" json:"const_labels,omitempty"`
	DynamicLabels  map[string][]string `toml:"dynamic_labels" json:"dynamic_labels,omitempty"`
	BucketsProfile string              `toml:"buckets_profile" json:"buckets_profile,omitempty"`
	// Publish and GaugeAgg are reserved: promkit-cpp declared but never
	// wired a sum_only/per_proc taxonomy or a gauge aggregation strategy
	// beyond "both, no gauge aggregation". See DESIGN.md Open Question 1.
	Publish  string `toml:"publish" json:"publish,omitempty"`
	GaugeAgg string `toml:"gauge_agg" json:"gauge_agg,omitempty"`
}

// DefaultFileConfig returns the defaults promkit-cpp's FileConfig struct
// initializes inline (enabled=true, mode=single, host=0.0.0.0, port=9464,
// path=/metrics). Decoding a TOML document into this value, rather than a
// zero FileConfig, lets an absent key fall back to the same default the
// C++ original's as_*_or() helpers apply — BurntSushi/toml only overwrites
// fields actually present in the document.
func DefaultFileConfig() FileConfig {
	return FileConfig{
		Exporter: ExporterConfig{
			Enabled: true,
			Mode:    ModeSingle,
			Host:    "0.0.0.0",
			Port:    9464,
			Path:    DefaultPath,
		},
	}
}

// ToConfig reduces a FileConfig's [exporter]/[labels] tables to a Config,
// the same projection InitFromToml performs in promkit-cpp before calling
// Init.
func (fc *FileConfig) ToConfig() Config {
	return Config{
		Enabled: fc.Exporter.Enabled,
		Mode:    fc.Exporter.Mode,
		Host:    fc.Exporter.Host,
		Port:    fc.Exporter.Port,
		Path:    fc.Exporter.Path,
		Prefix:  fc.Exporter.Namespace,
		Labels:  fc.Labels,
	}
}
