// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command promkit-demo exercises both promkit configuration paths — a
// programmatic Config and a TOML file via InitFromToml — and, with
// -simulate, drives a small synthetic workload through the handle-based
// API so a scrape of the resulting /metrics endpoint has something to
// show. Grounded on cmd/cc-backend/main.go's flag/gops/dotenv/signal
// shape, trimmed to what a metrics-only process needs.
package main

import (
	"flag"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/gops/agent"
	"github.com/joho/godotenv"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/promkit/pkg/promkit"
	"github.com/ClusterCockpit/promkit/pkg/promkit/config"
)

func main() {
	var flagGops bool
	var flagConfigFile string
	var flagSimulate bool
	var flagHost string
	var flagPort int

	flag.BoolVar(&flagGops, "gops", false, "Listen via github.com/google/gops/agent (for debugging)")
	flag.StringVar(&flagConfigFile, "config", "", "Path to a promkit TOML config; if empty, a minimal programmatic Config is used instead")
	flag.BoolVar(&flagSimulate, "simulate", false, "Drive a synthetic counter/gauge/histogram workload once the exporter is up")
	flag.StringVar(&flagHost, "host", "0.0.0.0", "Exporter bind host, used when -config is not given")
	flag.IntVar(&flagPort, "port", 9464, "Exporter bind port, used when -config is not given")
	flag.Parse()

	if flagGops {
		if err := agent.Listen(agent.Options{}); err != nil {
			cclog.Fatalf("gops/agent.Listen failed: %s", err.Error())
		}
	}

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		cclog.Errorf("[PROMKIT]> loading .env: %s", err.Error())
	}

	var ok bool
	if flagConfigFile != "" {
		ok = promkit.InitFromToml(flagConfigFile)
	} else {
		ok = promkit.Init(config.Config{
			Enabled: true,
			Mode:    config.ModeSingle,
			Host:    flagHost,
			Port:    flagPort,
			Path:    config.DefaultPath,
			Prefix:  "promkit_demo",
			Labels:  map[string]string{"component": "promkit-demo"},
		})
	}
	if !ok {
		cclog.Fatal("[PROMKIT]> initialization failed")
	}
	defer promkit.Shutdown()

	cclog.Infof("[PROMKIT]> running")

	if flagSimulate {
		go simulate()
		go selfCheck()
	}

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	cclog.Infof("[PROMKIT]> shutting down")
}

// simulate drives a small, never-ending workload through the handle-based
// API so a scrape has non-trivial data: a request counter, an in-flight
// gauge, and a latency histogram timed with ScopeTimer.
func simulate() {
	requests := promkit.CreateCounter("demo_requests_total", "Total simulated requests.", nil)
	inFlight := promkit.CreateGauge("demo_requests_in_flight", "Simulated requests currently being handled.", nil)
	latency := promkit.CreateHistogram("demo_request_duration_seconds", "Simulated request latency.", nil, nil)

	for {
		promkit.CounterAdd(requests, 1)
		promkit.GaugeAdd(inFlight, 1)

		timer := promkit.NewScopeTimer(latency)
		time.Sleep(time.Duration(10+rand.Intn(90)) * time.Millisecond)
		timer.Stop()

		promkit.GaugeAdd(inFlight, -1)
		time.Sleep(time.Duration(50+rand.Intn(200)) * time.Millisecond)
	}
}

// selfCheck periodically gathers the live registry directly through
// promkit.PrometheusRegistry, confirming the simulated workload is
// actually landing series on the exposed endpoint rather than silently
// sitting on inert handles.
func selfCheck() {
	for {
		time.Sleep(5 * time.Second)
		reg := promkit.PrometheusRegistry()
		if reg == nil {
			continue
		}
		families, err := reg.Gather()
		if err != nil {
			cclog.Errorf("[PROMKIT]> self-check gather: %s", err.Error())
			continue
		}
		cclog.Infof("[PROMKIT]> self-check: %d metric families live", len(families))
	}
}
