package models

import "time"

// PressureValue is one avg10/avg60/avg300/total line of a
// /proc/pressure/{cpu,io,memory} file.
type PressureValue struct {
	Avg10  float64 `json:"avg10"`
	Avg60  float64 `json:"avg60"`
	Avg300 float64 `json:"avg300"`
	Total  int64   `json:"total"`
}

// PressureSomeFull pairs the "some" and "full" lines of a pressure file.
// CPU pressure files carry no "full" line; Full is the zero value there.
type PressureSomeFull struct {
	Some PressureValue `json:"some"`
	Full PressureValue `json:"full"`
}

// PressureInfo is the combined CPU/IO/memory pressure-stall-information
// reading (Linux only).
type PressureInfo struct {
	Cpu       PressureSomeFull `json:"cpu"`
	Io        PressureSomeFull `json:"io"`
	Memory    PressureSomeFull `json:"memory"`
	Timestamp time.Time        `json:"timestamp"`
}
