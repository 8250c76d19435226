package models

import "time"

// Memory is a basic total/used/free triple in kibibytes.
type Memory struct {
	Total int64 `json:"total"`
	Used  int64 `json:"used"`
	Free  int64 `json:"free"`
}

// Add implements element-wise addition.
func (m Memory) Add(o Memory) Memory {
	return Memory{Total: m.Total + o.Total, Used: m.Used + o.Used, Free: m.Free + o.Free}
}

// DivScalar implements integer-truncating division by a scalar.
func (m Memory) DivScalar(n int64) Memory {
	if n == 0 {
		return Memory{}
	}
	return Memory{Total: m.Total / n, Used: m.Used / n, Free: m.Free / n}
}

// ExtendedFields carries the additional kibibyte counters Linux reports
// beyond the basic total/used/free triple.
type ExtendedFields struct {
	Shared    int64 `json:"shared"`
	BuffCache int64 `json:"buff_cache"`
	Available int64 `json:"available"`
}

// SystemMemory is the system-wide memory snapshot. Extended is nil for
// targets that only report the basic triple (e.g. QNX).
type SystemMemory struct {
	Mem       Memory          `json:"mem"`
	Extended  *ExtendedFields `json:"extended,omitempty"`
	Swap      *Memory         `json:"swap,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// MemorySample is a single process-wise memory usage reading.
type MemorySample struct {
	MemUsage  float64   `json:"mem_usage"`
	Timestamp time.Time `json:"timestamp"`
}

// Add implements element-wise addition, excluding the timestamp.
func (s MemorySample) Add(o MemorySample) MemorySample {
	return MemorySample{MemUsage: s.MemUsage + o.MemUsage, Timestamp: s.Timestamp}
}

// DivScalar divides MemUsage by n; memory usage is tracked as a float so
// no truncation applies here (truncation only applies to integer fields,
// e.g. Memory above).
func (s MemorySample) DivScalar(n int64) MemorySample {
	if n == 0 {
		return MemorySample{}
	}
	return MemorySample{MemUsage: s.MemUsage / float64(n), Timestamp: s.Timestamp}
}
