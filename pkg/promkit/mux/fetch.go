// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mux

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"time"
)

// dialTimeout bounds both the connect and the read side of a worker fetch.
// promkit-cpp's HttpGetLocal never set one (loopback is assumed reliable);
// a stuck worker in Go would otherwise wedge the aggregator's scrape
// indefinitely, so this was recorded as a deliberate Open Question
// decision rather than left implicit.
const dialTimeout = 1 * time.Second

// fetchText performs a minimal, loopback-only HTTP/1.0 GET against we,
// mirroring HttpGetLocal's raw-socket approach rather than reaching for
// net/http: promkit-cpp never speaks chunked encoding or keep-alive here,
// and neither does this. Any failure returns "" exactly like the
// original's empty-string-on-error contract, so one unreachable worker
// never fails the whole scrape.
func fetchText(we WorkerEndpoint) string {
	addr := net.JoinHostPort(we.Host, fmt.Sprintf("%d", we.Port))
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return ""
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(dialTimeout))

	req := fmt.Sprintf("GET %s HTTP/1.0\r\nHost: %s\r\nConnection: close\r\n\r\n", we.Path, we.Host)
	if _, err := io.WriteString(conn, req); err != nil {
		return ""
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, conn); err != nil && buf.Len() == 0 {
		return ""
	}

	resp := buf.Bytes()
	if idx := bytes.Index(resp, []byte("\r\n\r\n")); idx >= 0 {
		resp = resp[idx+4:]
	}
	return string(resp)
}
