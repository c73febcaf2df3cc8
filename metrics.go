package graphgrove

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordInsert is called after each Insert.
	RecordInsert(duration time.Duration, err error)

	// RecordQuery is called after each query (Nearest/KNN/KNNBeam/Range/Furthest)
	// and after each CalcMaxDist sweep. op names the operation ("nearest",
	// "knn", "knn_beam", "range", "furthest", "calc_maxdist").
	RecordQuery(op string, duration time.Duration, resultCount int, err error)

	// RecordSerialize is called after Serialize or Deserialize.
	RecordSerialize(op string, duration time.Duration, bytes int, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordInsert(time.Duration, error)                 {}
func (NoopMetricsCollector) RecordQuery(string, time.Duration, int, error)     {}
func (NoopMetricsCollector) RecordSerialize(string, time.Duration, int, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	InsertCount      atomic.Int64
	InsertErrors     atomic.Int64
	InsertTotalNanos atomic.Int64
	QueryCount       atomic.Int64
	QueryErrors      atomic.Int64
	QueryTotalNanos  atomic.Int64
	SerializeCount   atomic.Int64
	SerializeErrors  atomic.Int64
	SerializeBytes   atomic.Int64
}

// RecordInsert implements MetricsCollector.
func (b *BasicMetricsCollector) RecordInsert(duration time.Duration, err error) {
	b.InsertCount.Add(1)
	b.InsertTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.InsertErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(_ string, duration time.Duration, _ int, err error) {
	b.QueryCount.Add(1)
	b.QueryTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordSerialize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSerialize(_ string, _ time.Duration, bytes int, err error) {
	b.SerializeCount.Add(1)
	b.SerializeBytes.Add(int64(bytes))
	if err != nil {
		b.SerializeErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		InsertCount:     b.InsertCount.Load(),
		InsertErrors:    b.InsertErrors.Load(),
		InsertAvgNanos:  b.avg(b.InsertTotalNanos.Load(), b.InsertCount.Load()),
		QueryCount:      b.QueryCount.Load(),
		QueryErrors:     b.QueryErrors.Load(),
		QueryAvgNanos:   b.avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		SerializeCount:  b.SerializeCount.Load(),
		SerializeErrors: b.SerializeErrors.Load(),
		SerializeBytes:  b.SerializeBytes.Load(),
	}
}

func (b *BasicMetricsCollector) avg(totalNanos, count int64) int64 {
	if count == 0 {
		return 0
	}
	return totalNanos / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	InsertCount     int64
	InsertErrors    int64
	InsertAvgNanos  int64
	QueryCount      int64
	QueryErrors     int64
	QueryAvgNanos   int64
	SerializeCount  int64
	SerializeErrors int64
	SerializeBytes  int64
}
