package app

import (
	"sync/atomic"
	"time"
)

// Metrics counts format requests and times formatter runs.
type Metrics struct {
	requests  atomic.Uint64
	noMatch   atomic.Uint64
	disabled  atomic.Uint64
	failures  atomic.Uint64
	timeouts  atomic.Uint64
	unchanged atomic.Uint64

	processes atomic.Uint64
	killed    atomic.Uint64

	runCount   atomic.Uint64
	runTotalNs atomic.Int64
	runMinNs   atomic.Int64
	runMaxNs   atomic.Int64

	startTime time.Time
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{
		startTime: time.Now(),
	}
	// Initialize min to max int64 so the first run will be smaller
	m.runMinNs.Store(1<<63 - 1)
	return m
}

// RecordRequest records an incoming format request.
func (m *Metrics) RecordRequest() {
	m.requests.Add(1)
}

// RecordNoMatch records a request no formatter matched.
func (m *Metrics) RecordNoMatch() {
	m.noMatch.Add(1)
}

// RecordDisabled records a request whose formatter is disabled.
func (m *Metrics) RecordDisabled() {
	m.disabled.Add(1)
}

// RecordProcessExit records a formatter process leaving the supervisor.
func (m *Metrics) RecordProcessExit(killed bool) {
	m.processes.Add(1)
	if killed {
		m.killed.Add(1)
	}
}

// RecordRun records a finished formatter run.
func (m *Metrics) RecordRun(duration time.Duration, failed, timedOut, changed bool) {
	ns := duration.Nanoseconds()

	m.runCount.Add(1)
	m.runTotalNs.Add(ns)
	if failed {
		m.failures.Add(1)
	}
	if timedOut {
		m.timeouts.Add(1)
	}
	if !failed && !changed {
		m.unchanged.Add(1)
	}

	for {
		old := m.runMinNs.Load()
		if ns >= old {
			break
		}
		if m.runMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.runMaxNs.Load()
		if ns <= old {
			break
		}
		if m.runMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	runs := m.runCount.Load()
	total := m.runTotalNs.Load()

	var avg time.Duration
	if runs > 0 {
		avg = time.Duration(total / int64(runs))
	}
	minNs := m.runMinNs.Load()
	if runs == 0 {
		minNs = 0
	}

	return MetricsSnapshot{
		Uptime:    time.Since(m.startTime),
		Requests:  m.requests.Load(),
		NoMatch:   m.noMatch.Load(),
		Disabled:  m.disabled.Load(),
		Runs:      runs,
		Failures:  m.failures.Load(),
		Timeouts:  m.timeouts.Load(),
		Unchanged: m.unchanged.Load(),
		Processes: m.processes.Load(),
		Killed:    m.killed.Load(),
		RunAvg:    avg,
		RunMin:    time.Duration(minNs),
		RunMax:    time.Duration(m.runMaxNs.Load()),
	}
}

// MetricsSnapshot is a point-in-time copy of Metrics.
type MetricsSnapshot struct {
	Uptime time.Duration

	Requests uint64
	NoMatch  uint64
	Disabled uint64

	Runs      uint64
	Failures  uint64
	Timeouts  uint64
	Unchanged uint64

	// Processes counts exited formatter processes; Killed those ended
	// by a signal.
	Processes uint64
	Killed    uint64

	RunAvg time.Duration
	RunMin time.Duration
	RunMax time.Duration
}
