// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ParseFile parses path as promkit TOML configuration and validates the
// result against schema (see schema.go). A [[metrics]] entry missing its
// name or type is dropped silently rather than failing the whole parse.
func ParseFile(path string) (*FileConfig, error) {
	fc := DefaultFileConfig()
	if _, err := toml.DecodeFile(path, &fc); err != nil {
		return nil, fmt.Errorf("promkit: parsing config %q: %w", path, err)
	}

	filtered := fc.Metrics[:0]
	for _, m := range fc.Metrics {
		if m.Name == "" || m.Type == "" {
			continue
		}
		filtered = append(filtered, m)
	}
	fc.Metrics = filtered

	if err := Validate(&fc); err != nil {
		return nil, err
	}
	return &fc, nil
}
