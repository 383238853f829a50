// Package metrics provides in-memory runtime statistics collection.
package metrics

import (
	"math"
	"sync"
	"time"
)

// OperationMetrics holds aggregated metrics for a single pipeline stage.
type OperationMetrics struct {
	Count     int64
	TotalTime time.Duration
	MinTime   time.Duration
	MaxTime   time.Duration
}

// OperationSnapshot provides computed stats from raw metrics.
type OperationSnapshot struct {
	Count       int64   `json:"count"`
	TotalTimeMs int64   `json:"total_time_ms"`
	AvgTimeMs   float64 `json:"avg_time_ms"`
	MinTimeMs   int64   `json:"min_time_ms"`
	MaxTimeMs   int64   `json:"max_time_ms"`
}

// Snapshot represents the full runtime statistics at a point in time.
type Snapshot struct {
	UptimeSeconds float64            `json:"uptime_seconds"`
	Scan          *OperationSnapshot `json:"scan,omitempty"`
	Extract       *OperationSnapshot `json:"extract,omitempty"`
	OCR           *OperationSnapshot `json:"ocr,omitempty"`
	Classify      *OperationSnapshot `json:"classify,omitempty"`
	Embed         *OperationSnapshot `json:"embed,omitempty"`
	StoreWrite    *OperationSnapshot `json:"store_write,omitempty"`
	Search        *OperationSnapshot `json:"search,omitempty"`
}

// Operation names for the collector.
const (
	OpScan       = "scan"
	OpExtract    = "extract"
	OpOCR        = "ocr"
	OpClassify   = "classify"
	OpEmbed      = "embed"
	OpStoreWrite = "store_write"
	OpSearch     = "search"
)

// Collector aggregates in-memory runtime statistics.
// All methods are thread-safe.
type Collector struct {
	mu        sync.RWMutex
	startTime time.Time
	ops       map[string]*OperationMetrics
}

// NewCollector creates a new metrics collector.
func NewCollector() *Collector {
	return &Collector{
		startTime: time.Now(),
		ops:       make(map[string]*OperationMetrics),
	}
}

// getOrCreate returns existing metrics or creates new ones for an operation.
// Caller must hold write lock.
func (c *Collector) getOrCreate(op string) *OperationMetrics {
	m, ok := c.ops[op]
	if !ok {
		m = &OperationMetrics{MinTime: time.Duration(math.MaxInt64)}
		c.ops[op] = m
	}
	return m
}

// RecordTiming records timing for an operation.
func (c *Collector) RecordTiming(op string, duration time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m := c.getOrCreate(op)
	m.Count++
	m.TotalTime += duration

	if duration < m.MinTime {
		m.MinTime = duration
	}
	if duration > m.MaxTime {
		m.MaxTime = duration
	}
}

// Track runs fn and records its duration under op.
func (c *Collector) Track(op string, fn func()) {
	start := time.Now()
	fn()
	c.RecordTiming(op, time.Since(start))
}

// snapshotOp creates a snapshot for an operation, returning nil if no data.
func snapshotOp(m *OperationMetrics) *OperationSnapshot {
	if m == nil || m.Count == 0 {
		return nil
	}

	return &OperationSnapshot{
		Count:       m.Count,
		TotalTimeMs: m.TotalTime.Milliseconds(),
		AvgTimeMs:   float64(m.TotalTime.Milliseconds()) / float64(m.Count),
		MinTimeMs:   m.MinTime.Milliseconds(),
		MaxTimeMs:   m.MaxTime.Milliseconds(),
	}
}

// Snapshot returns a point-in-time snapshot of all metrics.
func (c *Collector) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Snapshot{
		UptimeSeconds: time.Since(c.startTime).Seconds(),
		Scan:          snapshotOp(c.ops[OpScan]),
		Extract:       snapshotOp(c.ops[OpExtract]),
		OCR:           snapshotOp(c.ops[OpOCR]),
		Classify:      snapshotOp(c.ops[OpClassify]),
		Embed:         snapshotOp(c.ops[OpEmbed]),
		StoreWrite:    snapshotOp(c.ops[OpStoreWrite]),
		Search:        snapshotOp(c.ops[OpSearch]),
	}
}
