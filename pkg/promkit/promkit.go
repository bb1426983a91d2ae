// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package promkit is a drop-in metrics facade for host processes that
// want Prometheus exposition without wiring client_golang registries and
// handlers themselves. A single package-level instance is initialized
// with Init or InitFromToml, used through the handle-based Create*/Add/
// Set/Observe calls in api.go, and torn down with Shutdown.
//
// This is a port of the project's original C++ backend: the unexported
// global below mirrors that implementation's Backend singleton field for
// field — an atomic lifecycle state, a registry, families, series caches
// and specs behind a mutex, and the same single/mux mode split.
package promkit

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"

	"github.com/ClusterCockpit/promkit/pkg/promkit/config"
	"github.com/ClusterCockpit/promkit/pkg/promkit/exposer"
	"github.com/ClusterCockpit/promkit/pkg/promkit/mux"
	"github.com/ClusterCockpit/promkit/pkg/promkit/registry"
)

type lifecycleState int32

const (
	stateUninitialized lifecycleState = iota
	stateRunning
	stateShuttingDown
	stateStopped
)

// muxRoot is the default descriptor-directory root, matching
// promkit-cpp's hardcoded "/tmp/promkit-mux/" prefix.
const muxRoot = "/tmp/promkit-mux"

// shutdownTimeout bounds how long Shutdown waits for the exposer's HTTP
// server to drain in-flight scrapes before returning.
const shutdownTimeout = 5 * time.Second

type backend struct {
	mu sync.RWMutex

	state      atomic.Int32
	generation atomic.Uint32

	cfg      config.Config
	registry *registry.Registry
	exposer  *exposer.Exposer

	muxMode       bool
	muxAggregator bool
	muxDir        string
	muxWorkerFile string
}

var global = &backend{}

func (b *backend) stateLoad() lifecycleState  { return lifecycleState(b.state.Load()) }
func (b *backend) stateStore(s lifecycleState) { b.state.Store(int32(s)) }

// buildMuxDir mirrors BuildMuxDir: a stable per-namespace directory so
// unrelated promkit deployments on the same host don't collide.
func buildMuxDir(cfg config.Config) string {
	ns := cfg.Prefix
	if ns == "" {
		ns = "default"
	}
	return filepath.Join(muxRoot, ns)
}

// muxComponentName mirrors MuxComponentName: prefer an explicit
// labels["component"], else fall back to a pid-derived name so multiple
// workers on one host never collide.
func muxComponentName(cfg config.Config) string {
	if name, ok := cfg.Labels["component"]; ok && name != "" {
		return name
	}
	return fmt.Sprintf("component-%d", os.Getpid())
}

// Init (re)initializes promkit from a programmatic Config. Calling it
// while already Running performs a best-effort Shutdown first, so a host
// can safely re-Init with different settings. Returns false only when
// cfg.Enabled is true and promkit could not stand up its exposition
// listener or, as a mux worker, write its descriptor; a disabled config
// always returns true.
func Init(cfg config.Config) bool {
	defer recoverToFalse("Init")
	if global.stateLoad() == stateRunning {
		Shutdown()
	}

	global.mu.Lock()
	defer global.mu.Unlock()

	global.cfg = cfg
	global.muxMode = cfg.Mode == config.ModeMux

	if !cfg.Enabled {
		global.stateStore(stateStopped)
		return true
	}

	path := cfg.Path
	if path == "" {
		path = config.DefaultPath
	}

	gen := global.generation.Add(1)
	reg := registry.New(cfg.Prefix, cfg.Labels, gen)
	global.registry = reg

	if global.muxMode {
		if ok := tryBindAggregator(cfg, reg, path); ok {
			global.stateStore(stateRunning)
			return true
		}
		if ok := bindWorker(cfg, reg, path); ok {
			global.stateStore(stateRunning)
			return true
		}
		global.stateStore(stateStopped)
		return false
	}

	exp := exposer.New()
	exp.Handle(path, promhttp.HandlerFor(reg.Prom, promhttp.HandlerOpts{}))
	if err := exp.Bind(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))); err != nil {
		cclog.Errorf("[PROMKIT]> bind %s:%d: %s", cfg.Host, cfg.Port, err.Error())
		global.stateStore(stateStopped)
		return false
	}
	global.exposer = exp
	global.stateStore(stateRunning)
	return true
}

// tryBindAggregator attempts to bind the public host:port. On success this
// process becomes the mux aggregator: it serves its own registry merged
// with every live worker descriptor found under the mux directory.
func tryBindAggregator(cfg config.Config, reg *registry.Registry, path string) bool {
	exp := exposer.New()
	collector := mux.NewCollector(buildMuxDir(cfg), reg.Prom)
	exp.Handle(path, collector)

	if err := exp.Bind(net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port))); err != nil {
		return false
	}

	if err := os.MkdirAll(buildMuxDir(cfg), 0o755); err != nil {
		cclog.Errorf("[PROMKIT]> creating mux directory: %s", err.Error())
	}

	global.exposer = exp
	global.muxDir = buildMuxDir(cfg)
	global.muxAggregator = true
	return true
}

// bindWorker binds an ephemeral loopback listener and advertises it via a
// descriptor file for the aggregator to discover.
func bindWorker(cfg config.Config, reg *registry.Registry, path string) bool {
	exp := exposer.New()
	exp.Handle(path, promhttp.HandlerFor(reg.Prom, promhttp.HandlerOpts{}))

	if err := exp.Bind("127.0.0.1:0"); err != nil {
		cclog.Errorf("[PROMKIT]> bind ephemeral worker port: %s", err.Error())
		return false
	}

	port := exp.Port()
	if port <= 0 {
		return false
	}

	dir := buildMuxDir(cfg)
	descPath, err := mux.WriteDescriptor(muxRoot, filepath.Base(dir), mux.WorkerEndpoint{
		Host:      "127.0.0.1",
		Port:      port,
		Path:      path,
		Component: muxComponentName(cfg),
		Pid:       os.Getpid(),
	})
	if err != nil {
		cclog.Errorf("[PROMKIT]> writing worker descriptor: %s", err.Error())
		return false
	}

	global.exposer = exp
	global.muxDir = dir
	global.muxAggregator = false
	global.muxWorkerFile = descPath
	return true
}

// InitFromToml parses path as a promkit TOML document, calls Init with the
// [exporter]/[labels] projection, and — if still Running afterward —
// pre-registers every [[metrics]] declaration via registry.PreRegister.
func InitFromToml(path string) bool {
	defer recoverToFalse("InitFromToml")
	fc, err := config.ParseFile(path)
	if err != nil {
		cclog.Errorf("[PROMKIT]> %s", err.Error())
		return false
	}

	if !Init(fc.ToConfig()) {
		return false
	}

	if global.stateLoad() != stateRunning {
		return true
	}

	for _, def := range fc.Metrics {
		decl, err := declarationFromMetricDef(def, fc)
		if err != nil {
			cclog.Errorf("[PROMKIT]> skipping metric %q: %s", def.Name, err.Error())
			continue
		}
		if err := global.registry.PreRegister(decl); err != nil {
			cclog.Errorf("[PROMKIT]> pre-registering %q: %s", def.Name, err.Error())
		}
	}
	return true
}

func declarationFromMetricDef(def config.MetricDef, fc *config.FileConfig) (registry.MetricDeclaration, error) {
	var kind registry.MetricKind
	switch def.Type {
	case "counter":
		kind = registry.KindCounter
	case "gauge":
		kind = registry.KindGauge
	case "histogram":
		kind = registry.KindHistogram
	default:
		return registry.MetricDeclaration{}, fmt.Errorf("unknown metric type %q", def.Type)
	}

	decl := registry.MetricDeclaration{
		Name:        def.Name,
		Kind:        kind,
		Help:        def.Help,
		ConstLabels: def.ConstLabels,
		DynLabels:   def.DynamicLabels,
	}
	if def.Type == "histogram" {
		if buckets, ok := fc.Buckets[def.BucketsProfile]; ok {
			decl.Buckets = buckets
			decl.HasBuckets = true
		}
	}
	return decl, nil
}

// Shutdown tears promkit down: the lifecycle state flips to ShuttingDown
// first so in-flight API calls observe it and become no-ops, then the
// worker descriptor, the exposer and the registry are released, in that
// order.
func Shutdown() {
	global.stateStore(stateShuttingDown)

	global.mu.Lock()
	defer global.mu.Unlock()

	global.cfg.Enabled = false

	if global.muxWorkerFile != "" {
		mux.RemoveDescriptor(muxRoot, filepath.Base(global.muxDir), os.Getpid())
		global.muxWorkerFile = ""
	}

	if global.exposer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := global.exposer.Shutdown(ctx); err != nil {
			cclog.Errorf("[PROMKIT]> exposer shutdown: %s", err.Error())
		}
		global.exposer = nil
	}
	if global.registry != nil {
		// Stop before nilling: a Create* call that read Running and is
		// already past IsRunning() but hasn't yet reached registryForCall's
		// RLock, or has the RLock and is blocked entering r.mu, must still
		// observe the registry as closed once it gets there.
		global.registry.Stop()
		global.registry = nil
	}

	global.stateStore(stateStopped)
}

// IsRunning reports whether promkit is enabled and in the Running state.
// It takes the same RLock registryForCall does, so it observes cfg/state
// consistently with a concurrent Init/Shutdown rather than racing their
// writes under global.mu.
func IsRunning() bool {
	global.mu.RLock()
	defer global.mu.RUnlock()
	return global.cfg.Enabled && global.stateLoad() == stateRunning
}

// registryForCall returns the live registry for an API call, synchronized
// with Init/Shutdown's writes to global.registry under global.mu. The
// caller must invoke the returned release func when done with reg, holding
// it across the registry call so a concurrent Shutdown can't free the
// registry out from under an in-flight Create*/Update (spec.md's
// "acquire lock, re-check Running" step, applied at the backend layer;
// Registry.stopped closes the remaining window inside the registry's own
// lock, see registry/create.go).
func registryForCall() (reg *registry.Registry, release func(), ok bool) {
	global.mu.RLock()
	if !global.cfg.Enabled || global.stateLoad() != stateRunning || global.registry == nil {
		global.mu.RUnlock()
		return nil, nil, false
	}
	return global.registry, global.mu.RUnlock, true
}

// PrometheusRegistry exposes the live *prometheus.Registry for callers
// that want to gather it directly, such as the demo binary's -simulate
// self-check; it returns nil when promkit isn't Running.
func PrometheusRegistry() *prometheus.Registry {
	reg, release, ok := registryForCall()
	if !ok {
		return nil
	}
	defer release()
	return reg.Prom
}
