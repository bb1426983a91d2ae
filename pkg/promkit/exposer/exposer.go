// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package exposer owns the HTTP side of promkit: binding the scrape
// listener, mounting the metrics handler on a gorilla/mux router with the
// same recovery/compression middleware stack cmd/cc-backend builds, and
// shutting the listener back down on Shutdown.
package exposer

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	cclog "github.com/ClusterCockpit/cc-lib/v2/ccLogger"
)

// Exposer binds a single TCP listener and serves one handler on it. Both
// the single-mode in-process exporter and a mux worker's loopback-only
// listener are instances of this same type; they differ only in the
// address they bind and in which handler gets mounted.
type Exposer struct {
	router   *mux.Router
	server   *http.Server
	listener net.Listener
}

// New builds an Exposer with an empty router. Callers mount handlers with
// Handle before calling Bind.
func New() *Exposer {
	r := mux.NewRouter()
	return &Exposer{router: r}
}

// Handle mounts handler at path on the exposer's router.
func (e *Exposer) Handle(path string, handler http.Handler) {
	e.router.Handle(path, handler)
}

// Bind listens on addr and starts serving in a background goroutine. It
// returns the error from net.Listen so callers (promkit's mux election in
// particular) can distinguish "address in use" from other failures without
// parsing error strings.
func (e *Exposer) Bind(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	e.router.Use(handlers.CompressHandler)
	e.router.Use(handlers.RecoveryHandler(handlers.PrintRecoveryStack(false)))
	handler := handlers.CustomLoggingHandler(io.Discard, e.router, func(_ io.Writer, params handlers.LogFormatterParams) {
		cclog.ComponentDebug("PROMKIT", params.Request.Method, params.URL.RequestURI(),
			params.StatusCode, time.Since(params.TimeStamp).Milliseconds())
	})

	e.listener = listener
	e.server = &http.Server{
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		Handler:      handler,
	}

	go func() {
		if err := e.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			cclog.Errorf("[PROMKIT]> exposer serve on %s: %s", addr, err.Error())
		}
	}()
	return nil
}

// Addr returns the bound listener's address, or "" if Bind was never
// called or already shut down.
func (e *Exposer) Addr() string {
	if e.listener == nil {
		return ""
	}
	return e.listener.Addr().String()
}

// Port returns the bound listener's TCP port, or 0 if unbound.
func (e *Exposer) Port() int {
	if e.listener == nil {
		return 0
	}
	if tcpAddr, ok := e.listener.Addr().(*net.TCPAddr); ok {
		return tcpAddr.Port
	}
	return 0
}

// Shutdown gracefully stops the server, honoring ctx's deadline.
func (e *Exposer) Shutdown(ctx context.Context) error {
	if e.server == nil {
		return nil
	}
	err := e.server.Shutdown(ctx)
	e.listener = nil
	if err != nil {
		return fmt.Errorf("promkit: exposer shutdown: %w", err)
	}
	return nil
}
