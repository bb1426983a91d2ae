// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package mux implements the multi-process aggregation mode: a worker
// process writes a small descriptor file advertising its loopback
// endpoint, and the elected aggregator scans that directory, scrapes each
// live worker, and re-serves a merged view.
package mux

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// WorkerEndpoint is one scrapeable worker, either read back from a
// descriptor file or constructed directly in tests.
type WorkerEndpoint struct {
	Host      string
	Port      int
	Path      string
	Component string
	Pid       int
}

// Dir returns the descriptor directory for a given mux root and
// namespace: <root>/<namespace>/.
func Dir(root, namespace string) string {
	return filepath.Join(root, namespace)
}

// DescriptorPath returns the path a worker with the given pid writes its
// descriptor to: <root>/<namespace>/port.<pid>.
func DescriptorPath(root, namespace string, pid int) string {
	return filepath.Join(Dir(root, namespace), fmt.Sprintf("port.%d", pid))
}

// WriteDescriptor writes we's descriptor file, creating the namespace
// directory if needed. The line-oriented format matches promkit-cpp's
// WriteWorkerDescriptor: "endpoint host:port", "component name",
// "pid N", "path /metrics".
func WriteDescriptor(root, namespace string, we WorkerEndpoint) (string, error) {
	dir := Dir(root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("promkit: creating mux directory %q: %w", dir, err)
	}
	path := DescriptorPath(root, namespace, we.Pid)
	var b strings.Builder
	fmt.Fprintf(&b, "endpoint %s:%d\n", we.Host, we.Port)
	fmt.Fprintf(&b, "component %s\n", we.Component)
	fmt.Fprintf(&b, "pid %d\n", we.Pid)
	fmt.Fprintf(&b, "path %s\n", we.Path)
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return "", fmt.Errorf("promkit: writing mux descriptor %q: %w", path, err)
	}
	return path, nil
}

// RemoveDescriptor best-effort deletes a worker's descriptor file, used on
// clean Shutdown so a live-but-shutting-down worker doesn't linger in the
// directory until its pid actually exits.
func RemoveDescriptor(root, namespace string, pid int) {
	_ = os.Remove(DescriptorPath(root, namespace, pid))
}

// parseDescriptor decodes one descriptor file's contents. Unknown line
// prefixes are ignored, matching the original's line-oriented parser.
func parseDescriptor(data []byte) WorkerEndpoint {
	we := WorkerEndpoint{Host: "127.0.0.1", Path: "/metrics"}
	scanner := bufio.NewScanner(strings.NewReader(string(data)))
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "endpoint "):
			endpoint := strings.TrimPrefix(line, "endpoint ")
			if host, portStr, ok := strings.Cut(endpoint, ":"); ok {
				we.Host = host
				if port, err := strconv.Atoi(portStr); err == nil {
					we.Port = port
				}
			}
		case strings.HasPrefix(line, "component "):
			we.Component = strings.TrimPrefix(line, "component ")
		case strings.HasPrefix(line, "pid "):
			if pid, err := strconv.Atoi(strings.TrimPrefix(line, "pid ")); err == nil {
				we.Pid = pid
			}
		case strings.HasPrefix(line, "path "):
			we.Path = strings.TrimPrefix(line, "path ")
		}
	}
	return we
}

// ScanDir lists every worker descriptor under dir, pruning stale entries
// whose pid is no longer alive (see IsAlive) and dropping anything that
// never resolved to a usable port+component pair.
func ScanDir(dir string) []WorkerEndpoint {
	var out []WorkerEndpoint
	entries, err := os.ReadDir(dir)
	if err != nil {
		return out
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		we := parseDescriptor(data)
		if we.Pid > 0 && !IsAlive(we.Pid) {
			_ = os.Remove(path)
			continue
		}
		if we.Port > 0 && we.Component != "" {
			out = append(out, we)
		}
	}
	return out
}
