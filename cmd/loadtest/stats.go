package main

import (
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	cacheHits     atomic.Int64

	mu          sync.Mutex
	latencies   []time.Duration
	statusCodes map[int]int64
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]int64),
	}
}

// RecordRequest notes one request. A transport error has status 0 and no
// latency sample.
func (s *Stats) RecordRequest(duration time.Duration, statusCode int, cacheHit bool, err error) {
	s.totalRequests.Add(1)
	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}
	if cacheHit {
		s.cacheHits.Add(1)
	}

	s.mu.Lock()
	s.latencies = append(s.latencies, duration)
	s.statusCodes[statusCode]++
	s.mu.Unlock()
}

type LatencySummary struct {
	Min, Avg, P50, P90, P95, P99, Max, StdDev time.Duration
}

// Latency summarises the recorded samples. ok is false when none exist.
func (s *Stats) Latency() (summary LatencySummary, ok bool) {
	s.mu.Lock()
	sorted := slices.Clone(s.latencies)
	s.mu.Unlock()
	if len(sorted) == 0 {
		return LatencySummary{}, false
	}
	slices.Sort(sorted)

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	avg := sum / time.Duration(len(sorted))

	var sumSquared float64
	for _, l := range sorted {
		diff := float64(l - avg)
		sumSquared += diff * diff
	}
	return LatencySummary{
		Min:    sorted[0],
		Avg:    avg,
		P50:    percentile(sorted, 50),
		P90:    percentile(sorted, 90),
		P95:    percentile(sorted, 95),
		P99:    percentile(sorted, 99),
		Max:    sorted[len(sorted)-1],
		StdDev: time.Duration(math.Sqrt(sumSquared / float64(len(sorted)))),
	}, true
}

// StatusCodes returns the per-status counts in ascending status order.
func (s *Stats) StatusCodes() (codes []int, counts []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for code := range s.statusCodes {
		codes = append(codes, code)
	}
	slices.Sort(codes)
	for _, code := range codes {
		counts = append(counts, s.statusCodes[code])
	}
	return codes, counts
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	idx = max(0, min(idx, len(sorted)-1))
	return sorted[idx]
}
