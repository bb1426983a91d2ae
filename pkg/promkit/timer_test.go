// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promkit

import (
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/promkit/pkg/promkit/config"
)

func TestScopeTimerObservesOnStop(t *testing.T) {
	port := freePort(t)
	require.True(t, Init(config.Config{Enabled: true, Mode: config.ModeSingle, Host: "127.0.0.1", Port: port, Path: "/metrics"}))
	defer Shutdown()

	id := CreateHistogram("op_seconds", "", nil, nil)
	require.NotEqual(t, HistogramId(0), id)

	timer := NewScopeTimer(id)
	time.Sleep(5 * time.Millisecond)
	timer.Stop()
	timer.Stop() // idempotent: second Stop must not record again

	body := scrape(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "/metrics")
	assert.Contains(t, body, "op_seconds_count 1")
}

func TestScopeTimerFromInvalidHandleNeverRecords(t *testing.T) {
	timer := NewScopeTimer(0)
	timer.Stop() // must not panic or touch any registry
}
