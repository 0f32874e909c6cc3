package runner

import (
	"encoding/json"
	"os"
	"strings"
	"sync"
	"time"
)

type timingEvent struct {
	Phase      string  `json:"phase"`
	Kind       string  `json:"kind"`
	File       string  `json:"file,omitempty"`
	Status     string  `json:"status,omitempty"`
	Regions    int     `json:"regions,omitempty"`
	StartMS    float64 `json:"start_ms"`
	DurationMS float64 `json:"duration_ms"`
	EndMS      float64 `json:"end_ms"`
}

type timingRecorder struct {
	enabled bool
	start   time.Time
	mu      sync.Mutex
	events  []timingEvent
	file    *os.File
	enc     *json.Encoder
	err     error
}

func newTimingRecorder(start time.Time, path string) *timingRecorder {
	tr := &timingRecorder{start: start}
	if path == "" {
		return tr
	}
	f, err := os.Create(path)
	if err != nil {
		tr.err = err
		return tr
	}
	tr.enabled = true
	tr.file = f
	tr.enc = json.NewEncoder(f)
	return tr
}

func (tr *timingRecorder) Enabled() bool {
	return tr != nil && tr.enabled
}

func (tr *timingRecorder) Err() error {
	if tr == nil {
		return nil
	}
	return tr.err
}

func (tr *timingRecorder) Close() {
	if tr == nil || tr.file == nil {
		return
	}
	_ = tr.file.Close()
}

func (tr *timingRecorder) record(event timingEvent, start time.Time, duration time.Duration) {
	if tr == nil || !tr.enabled {
		return
	}
	event.StartMS = durationToMS(start.Sub(tr.start))
	event.DurationMS = durationToMS(duration)
	event.EndMS = event.StartMS + event.DurationMS
	tr.mu.Lock()
	tr.events = append(tr.events, event)
	if tr.enc != nil {
		_ = tr.enc.Encode(event)
	}
	tr.mu.Unlock()
}

func (tr *timingRecorder) RecordStage(phase string, start time.Time, duration time.Duration, status string) {
	tr.record(timingEvent{Phase: phase, Kind: "stage", Status: status}, start, duration)
}

func (tr *timingRecorder) RecordFile(phase, file, status string, regions int, start time.Time, duration time.Duration) {
	tr.record(timingEvent{Phase: phase, Kind: "file", File: file, Status: status, Regions: regions}, start, duration)
}

func durationToMS(d time.Duration) float64 {
	return float64(d.Nanoseconds()) / 1_000_000.0
}

func (r *Runner) resolveTimingPath() string {
	if r == nil {
		return ""
	}
	if envPath := os.Getenv("DBGCOV_TIMING_JSONL"); envPath != "" {
		return envPath
	}
	if r.Timing || envBool("DBGCOV_TIMING") {
		if r.TimingPath != "" {
			return r.TimingPath
		}
		return "timing.jsonl"
	}
	return ""
}

func envBool(key string) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	return val == "1" || val == "true" || val == "yes" || val == "on"
}
