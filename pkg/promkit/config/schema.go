// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// fileConfigSchema mirrors internal/config's embedded-schema-string pattern:
// the decoded struct is round-tripped through JSON and checked against this
// document before promkit trusts it enough to open a listener.
const fileConfigSchema = `
{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "title": "promkit file configuration",
  "type": "object",
  "properties": {
    "exporter": {
      "type": "object",
      "properties": {
        "enabled": { "type": "boolean" },
        "mode": { "type": "string", "enum": ["single", "mux"] },
        "host": { "type": "string" },
        "port": { "type": "integer", "minimum": 0, "maximum": 65535 },
        "path": { "type": "string" },
        "namespace": { "type": "string" }
      },
      "required": ["mode", "host", "port", "path"]
    },
    "labels": {
      "type": "object",
      "additionalProperties": { "type": "string" }
    },
    "buckets": {
      "type": "object",
      "additionalProperties": {
        "type": "array",
        "items": { "type": "number" }
      }
    },
    "metrics": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": { "type": "string", "minLength": 1 },
          "type": { "type": "string", "enum": ["counter", "gauge", "histogram"] },
          "help": { "type": "string" },
          "unit": { "type": "string" },
          "const_labels": {
            "type": "object",
            "additionalProperties": { "type": "string" }
          },
          "dynamic_labels": {
            "type": "object",
            "additionalProperties": {
              "type": "array",
              "items": { "type": "string" }
            }
          },
          "buckets_profile": { "type": "string" },
          "publish": { "type": "string" },
          "gauge_agg": { "type": "string" }
        },
        "required": ["name", "type"]
      }
    }
  },
  "required": ["exporter"]
}
`

var compiledSchema *jsonschema.Schema

func compileSchema() (*jsonschema.Schema, error) {
	if compiledSchema != nil {
		return compiledSchema, nil
	}
	sch, err := jsonschema.CompileString("promkit-config.schema.json", fileConfigSchema)
	if err != nil {
		return nil, fmt.Errorf("promkit: compiling config schema: %w", err)
	}
	compiledSchema = sch
	return compiledSchema, nil
}

// Validate checks fc against the embedded JSON schema. It follows
// internal/config.Validate's marshal-then-validate shape, but returns an
// error instead of calling cclog.Fatal: promkit is a library embedded in a
// host process and must never terminate it on a bad config file.
func Validate(fc *FileConfig) error {
	sch, err := compileSchema()
	if err != nil {
		return err
	}

	buf, err := json.Marshal(fc)
	if err != nil {
		return fmt.Errorf("promkit: marshaling config for validation: %w", err)
	}

	var instance interface{}
	if err := json.NewDecoder(bytes.NewReader(buf)).Decode(&instance); err != nil {
		return fmt.Errorf("promkit: decoding config for validation: %w", err)
	}

	if err := sch.Validate(instance); err != nil {
		return fmt.Errorf("promkit: config failed validation: %w", err)
	}
	return nil
}
