package models

import "time"

// CpuModeUsage is the Linux /proc/stat per-mode breakdown. Fields sum to
// approximately 100.
type CpuModeUsage struct {
	User      float64 `json:"user"`
	Nice      float64 `json:"nice"`
	System    float64 `json:"system"`
	Idle      float64 `json:"idle"`
	Iowait    float64 `json:"iowait"`
	Irq       float64 `json:"irq"`
	Softirq   float64 `json:"softirq"`
	Steal     float64 `json:"steal"`
	Guest     float64 `json:"guest"`
	GuestNice float64 `json:"guest_nice"`
}

// CpuUsage is a system-wide CPU usage reading. ModeUsage is nil for
// families that do not report a mode breakdown (QNX).
type CpuUsage struct {
	Load      float64            `json:"load"`
	Cores     map[string]float64 `json:"cores"`
	ModeUsage *CpuModeUsage      `json:"mode_usage,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// CpuSample is a single process-wise CPU load reading.
type CpuSample struct {
	CpuLoad   float64   `json:"cpu_load"`
	Timestamp time.Time `json:"timestamp"`
}

// Add implements element-wise addition, excluding the timestamp.
func (s CpuSample) Add(o CpuSample) CpuSample {
	return CpuSample{CpuLoad: s.CpuLoad + o.CpuLoad, Timestamp: s.Timestamp}
}

// DivScalar divides CpuLoad by n.
func (s CpuSample) DivScalar(n int64) CpuSample {
	if n == 0 {
		return CpuSample{}
	}
	return CpuSample{CpuLoad: s.CpuLoad / float64(n), Timestamp: s.Timestamp}
}

// ResourceSample is the Linux-only joint CPU+memory reading taken in a
// single round trip.
type ResourceSample struct {
	CpuLoad   float64   `json:"cpu_load"`
	MemUsage  float64   `json:"mem_usage"`
	Timestamp time.Time `json:"timestamp"`
}

// Add implements element-wise addition, excluding the timestamp.
func (s ResourceSample) Add(o ResourceSample) ResourceSample {
	return ResourceSample{CpuLoad: s.CpuLoad + o.CpuLoad, MemUsage: s.MemUsage + o.MemUsage, Timestamp: s.Timestamp}
}

// DivScalar divides both fields by n.
func (s ResourceSample) DivScalar(n int64) ResourceSample {
	if n == 0 {
		return ResourceSample{}
	}
	return ResourceSample{CpuLoad: s.CpuLoad / float64(n), MemUsage: s.MemUsage / float64(n), Timestamp: s.Timestamp}
}
