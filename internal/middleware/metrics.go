package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics stores process-wide counters
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	PhasesOK           uint64
	PhasesFailed       uint64
	PhasesSkipped      uint64
	StartTime          time.Time

	mu       sync.Mutex
	perPhase map[string]map[string]uint64
}

var globalMetrics = newMetrics()

func newMetrics() *Metrics {
	return &Metrics{StartTime: time.Now(), perPhase: map[string]map[string]uint64{}}
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// PhaseRecorder feeds sync phase outcomes into the global counters
type PhaseRecorder struct{}

// ObservePhase counts one finished phase by name and status
func (PhaseRecorder) ObservePhase(phase, status string) {
	switch status {
	case "ok":
		atomic.AddUint64(&globalMetrics.PhasesOK, 1)
	case "failed":
		atomic.AddUint64(&globalMetrics.PhasesFailed, 1)
	case "skipped":
		atomic.AddUint64(&globalMetrics.PhasesSkipped, 1)
	}
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	byStatus, ok := globalMetrics.perPhase[phase]
	if !ok {
		byStatus = map[string]uint64{}
		globalMetrics.perPhase[phase] = byStatus
	}
	byStatus[status]++
}

func phaseSnapshot() map[string]map[string]uint64 {
	globalMetrics.mu.Lock()
	defer globalMetrics.mu.Unlock()
	out := make(map[string]map[string]uint64, len(globalMetrics.perPhase))
	for phase, byStatus := range globalMetrics.perPhase {
		cp := make(map[string]uint64, len(byStatus))
		for k, v := range byStatus {
			cp[k] = v
		}
		out[phase] = cp
	}
	return out
}

// GetMetrics returns current metrics
func GetMetrics() map[string]any {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]any{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"phases_ok":            atomic.LoadUint64(&globalMetrics.PhasesOK),
		"phases_failed":        atomic.LoadUint64(&globalMetrics.PhasesFailed),
		"phases_skipped":       atomic.LoadUint64(&globalMetrics.PhasesSkipped),
		"phases":               phaseSnapshot(),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]any{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(GetMetrics())
}
