// Package metrics keeps in-memory runtime statistics for the recording
// pipeline: run outcomes, per-stage latency and provider token usage.
// Everything resets when the process restarts.
package metrics

import (
	"sync"
	"time"
)

// Stage and call names.
const (
	OpNormalize   = "normalize"
	OpTranscribe  = "transcribe"
	OpLLMGenerate = "llm_generate"
	OpDBQuery     = "db_query"
)

// Run outcomes for RecordRunEnd.
const (
	OutcomeDone    = "done"
	OutcomeFailed  = "failed"
	OutcomeAborted = "aborted"
)

// OperationSnapshot is the reported view of one operation.
// Token fields are nil for operations that do not call a provider.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	Failures    int64   `json:"failures"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`

	TotalInputTokens  *int64   `json:"total_input_tokens,omitempty"`
	TotalOutputTokens *int64   `json:"total_output_tokens,omitempty"`
	AvgInputTokens    *float64 `json:"avg_input_tokens,omitempty"`
	AvgOutputTokens   *float64 `json:"avg_output_tokens,omitempty"`
}

// RunCounts tallies pipeline runs by outcome.
type RunCounts struct {
	Started  int64 `json:"started"`
	Done     int64 `json:"done"`
	Failed   int64 `json:"failed"`
	Aborted  int64 `json:"aborted"`
	InFlight int64 `json:"in_flight"`
}

// Snapshot is the full statistics payload served at /api/stats.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Runs          RunCounts          `json:"runs"`
	Normalize     *OperationSnapshot `json:"normalize,omitempty"`
	Transcribe    *OperationSnapshot `json:"transcribe,omitempty"`
	LLMGenerate   *OperationSnapshot `json:"llm_generate,omitempty"`
	DBQuery       *OperationSnapshot `json:"db_query,omitempty"`
}

type opStats struct {
	count    int64
	failures int64
	total    time.Duration
	min      time.Duration
	max      time.Duration

	usageCalls int64
	inTokens   int64
	outTokens  int64
}

func (s *opStats) observe(d time.Duration) {
	if s.count == 0 || d < s.min {
		s.min = d
	}
	s.max = max(s.max, d)
	s.count++
	s.total += d
}

func (s *opStats) snapshot() *OperationSnapshot {
	if s == nil || s.count == 0 {
		return nil
	}
	snap := &OperationSnapshot{
		Count:       s.count,
		Failures:    s.failures,
		TotalTimeMs: s.total.Milliseconds(),
		AvgTimeMs:   float64(s.total.Milliseconds()) / float64(s.count),
		MinTimeMs:   s.min.Milliseconds(),
		MaxTimeMs:   s.max.Milliseconds(),
	}
	if s.usageCalls > 0 {
		in, out := s.inTokens, s.outTokens
		avgIn := float64(in) / float64(s.usageCalls)
		avgOut := float64(out) / float64(s.usageCalls)
		snap.TotalInputTokens, snap.TotalOutputTokens = &in, &out
		snap.AvgInputTokens, snap.AvgOutputTokens = &avgIn, &avgOut
	}
	return snap
}

// Collector aggregates statistics. Safe for concurrent use; a nil
// *Collector is not.
type Collector struct {
	mu      sync.Mutex
	started time.Time
	ops     map[string]*opStats
	runs    RunCounts
}

// NewCollector creates an empty collector.
func NewCollector() *Collector {
	return &Collector{started: time.Now(), ops: make(map[string]*opStats)}
}

// op returns the stats for name. Caller holds mu.
func (c *Collector) op(name string) *opStats {
	s, ok := c.ops[name]
	if !ok {
		s = &opStats{}
		c.ops[name] = s
	}
	return s
}

// RecordTiming records a successful operation.
func (c *Collector) RecordTiming(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.op(op).observe(d)
}

// RecordFailure records an operation that returned an error.
func (c *Collector) RecordFailure(op string, d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.op(op)
	s.observe(d)
	s.failures++
}

// RecordLLMUsage records a successful provider call with its token usage.
func (c *Collector) RecordLLMUsage(op string, d time.Duration, inputTokens, outputTokens int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.op(op)
	s.observe(d)
	s.usageCalls++
	s.inTokens += inputTokens
	s.outTokens += outputTokens
}

// RecordRunStart counts a pipeline run as started and in flight.
func (c *Collector) RecordRunStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs.Started++
	c.runs.InFlight++
}

// RecordRunEnd counts a finished run by outcome.
func (c *Collector) RecordRunEnd(outcome string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.runs.InFlight--
	switch outcome {
	case OutcomeDone:
		c.runs.Done++
	case OutcomeFailed:
		c.runs.Failed++
	case OutcomeAborted:
		c.runs.Aborted++
	}
}

// Snapshot returns a point-in-time copy of all statistics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		UptimeSeconds: time.Since(c.started).Seconds(),
		Runs:          c.runs,
		Normalize:     c.ops[OpNormalize].snapshot(),
		Transcribe:    c.ops[OpTranscribe].snapshot(),
		LLMGenerate:   c.ops[OpLLMGenerate].snapshot(),
		DBQuery:       c.ops[OpDBQuery].snapshot(),
	}
}
