// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of promkit.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package promkit

import "time"

// ScopeTimer observes elapsed wall-clock time into a histogram when
// stopped. Go has no destructors, so unlike promkit-cpp's RAII ScopeTimer
// this does not fire implicitly on scope exit — callers must defer Stop
// themselves:
//
//	t := promkit.NewScopeTimer(requestLatency)
//	defer t.Stop()
//
// Stop is idempotent: calling it twice only records once, and a timer
// built from the invalid handle (0) never records.
type ScopeTimer struct {
	hid   HistogramId
	start time.Time
}

// NewScopeTimer starts a timer for histogram hid.
func NewScopeTimer(hid HistogramId) ScopeTimer {
	return ScopeTimer{hid: hid, start: time.Now()}
}

// Stop observes the elapsed time since NewScopeTimer and marks the timer
// inert.
func (t *ScopeTimer) Stop() {
	if t.hid == 0 {
		return
	}
	HistogramObserve(t.hid, time.Since(t.start).Seconds())
	t.hid = 0
}
