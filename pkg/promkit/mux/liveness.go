// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package mux

import "syscall"

// IsAlive reports whether pid names a running process, using the same
// POSIX signal-0 probe as promkit-cpp's ScanDir (::kill(pid, 0)). Plain
// os.FindProcess cannot answer this on POSIX: it always succeeds and
// returns a Process handle regardless of whether the pid is live.
func IsAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, syscall.Signal(0)) == nil
}
