// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promkit

import (
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ClusterCockpit/promkit/pkg/promkit/config"
)

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port
}

func scrape(t *testing.T, addr, path string) string {
	t.Helper()
	var body []byte
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + path)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		body, err = io.ReadAll(resp.Body)
		return err == nil && resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)
	return string(body)
}

func TestDisabledConfigIsInertButInitSucceeds(t *testing.T) {
	ok := Init(config.Config{Enabled: false})
	require.True(t, ok)
	defer Shutdown()

	assert.False(t, IsRunning())
	assert.Equal(t, CounterId(0), CreateCounter("x", "", nil))
}

func TestSingleModeEndToEnd(t *testing.T) {
	port := freePort(t)
	ok := Init(config.Config{
		Enabled: true,
		Mode:    config.ModeSingle,
		Host:    "127.0.0.1",
		Port:    port,
		Path:    "/metrics",
		Prefix:  "t",
		Labels:  map[string]string{"component": "test"},
	})
	require.True(t, ok)
	defer Shutdown()

	require.True(t, IsRunning())

	id := CreateCounter("requests_total", "help", nil)
	require.NotEqual(t, CounterId(0), id)
	CounterAdd(id, 3)

	body := scrape(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "/metrics")
	assert.Contains(t, body, "t_requests_total")
}

func TestReinitBumpsGenerationAndInvalidatesOldHandles(t *testing.T) {
	port1 := freePort(t)
	require.True(t, Init(config.Config{Enabled: true, Mode: config.ModeSingle, Host: "127.0.0.1", Port: port1, Path: "/metrics"}))
	oldId := CreateCounter("x", "", nil)
	require.NotEqual(t, CounterId(0), oldId)

	port2 := freePort(t)
	require.True(t, Init(config.Config{Enabled: true, Mode: config.ModeSingle, Host: "127.0.0.1", Port: port2, Path: "/metrics"}))
	defer Shutdown()

	// oldId was minted under the previous generation; using it now must be
	// a silent no-op rather than touching the new registry's slot 0.
	CounterAdd(oldId, 100)

	newId := CreateCounter("x", "", nil)
	require.NotEqual(t, CounterId(0), newId)
	CounterAdd(newId, 1)

	body := scrape(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port2)), "/metrics")
	assert.Contains(t, body, "x 1")
}

func TestShutdownStopsScraping(t *testing.T) {
	port := freePort(t)
	require.True(t, Init(config.Config{Enabled: true, Mode: config.ModeSingle, Host: "127.0.0.1", Port: port, Path: "/metrics"}))
	addr := net.JoinHostPort("127.0.0.1", strconv.Itoa(port))
	scrape(t, addr, "/metrics")

	Shutdown()
	assert.False(t, IsRunning())

	_, err := http.Get("http://" + addr + "/metrics")
	assert.Error(t, err)
}

func TestMuxFallsBackToWorkerWhenPublicPortTaken(t *testing.T) {
	blocker, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer blocker.Close()
	port := blocker.Addr().(*net.TCPAddr).Port

	ns := "muxtest-" + strconv.Itoa(port)
	ok := Init(config.Config{
		Enabled: true,
		Mode:    config.ModeMux,
		Host:    "127.0.0.1",
		Port:    port,
		Path:    "/metrics",
		Prefix:  ns,
		Labels:  map[string]string{"component": "worker-under-test"},
	})
	require.True(t, ok)
	defer Shutdown()

	require.True(t, IsRunning())
	assert.False(t, global.muxAggregator)
	require.NotEmpty(t, global.muxWorkerFile)
	assert.FileExists(t, global.muxWorkerFile)

	data, err := os.ReadFile(global.muxWorkerFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "component worker-under-test")
}

func TestMuxBecomesAggregatorWhenPortFree(t *testing.T) {
	port := freePort(t)
	ns := "muxtest-agg-" + strconv.Itoa(port)
	ok := Init(config.Config{
		Enabled: true,
		Mode:    config.ModeMux,
		Host:    "127.0.0.1",
		Port:    port,
		Path:    "/metrics",
		Prefix:  ns,
		Labels:  map[string]string{"component": "aggregator-under-test"},
	})
	require.True(t, ok)
	defer Shutdown()

	assert.True(t, global.muxAggregator)
	assert.DirExists(t, filepath.Join(muxRoot, ns))

	id := CreateGauge("self_value", "", nil)
	require.NotEqual(t, GaugeId(0), id)
	GaugeSet(id, 7)

	body := scrape(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "/metrics")
	assert.Contains(t, strings.TrimSpace(body), "self_value")
}

func TestInitFromTomlPreRegistersMetrics(t *testing.T) {
	port := freePort(t)
	dir := t.TempDir()
	tomlPath := filepath.Join(dir, "promkit.toml")
	body := "" +
		"[exporter]\n" +
		"host = \"127.0.0.1\"\n" +
		"port = " + strconv.Itoa(port) + "\n" +
		"path = \"/metrics\"\n" +
		"\n" +
		"[labels]\n" +
		"component = \"svc-a\"\n" +
		"\n" +
		"[[metrics]]\n" +
		"name = \"handled_total\"\n" +
		"type = \"counter\"\n" +
		"help = \"handled requests\"\n" +
		"\n" +
		"[metrics.dynamic_labels]\n" +
		"route = [\"/a\", \"/b\"]\n"
	require.NoError(t, os.WriteFile(tomlPath, []byte(body), 0o644))

	require.True(t, InitFromToml(tomlPath))
	defer Shutdown()

	scraped := scrape(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), "/metrics")
	assert.Contains(t, scraped, "handled_total")
	assert.Contains(t, scraped, `route="/a"`)
	assert.Contains(t, scraped, `route="/b"`)
}
