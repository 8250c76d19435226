package models

import "time"

// DiskInfo is a filesystem capacity reading, as reported by df.
type DiskInfo struct {
	Filesystem string    `json:"filesystem"`
	MountPoint string    `json:"mount_point"`
	Total      int64     `json:"total"`
	Used       int64     `json:"used"`
	Free       int64     `json:"free"`
	Timestamp  time.Time `json:"timestamp"`
}

// DiskIOInfo is a block-device counters reading, as reported by
// /proc/diskstats.
type DiskIOInfo struct {
	Device         string    `json:"device"`
	ReadsCompleted int64     `json:"reads_completed"`
	SectorsRead    int64     `json:"sectors_read"`
	WritesCompleted int64    `json:"writes_completed"`
	SectorsWritten int64     `json:"sectors_written"`
	TimeIOMs       int64     `json:"time_io_ms"`
	Timestamp      time.Time `json:"timestamp"`
}

// Add implements element-wise addition, excluding the timestamp and
// device name.
func (d DiskIOInfo) Add(o DiskIOInfo) DiskIOInfo {
	return DiskIOInfo{
		Device:          d.Device,
		ReadsCompleted:  d.ReadsCompleted + o.ReadsCompleted,
		SectorsRead:     d.SectorsRead + o.SectorsRead,
		WritesCompleted: d.WritesCompleted + o.WritesCompleted,
		SectorsWritten:  d.SectorsWritten + o.SectorsWritten,
		TimeIOMs:        d.TimeIOMs + o.TimeIOMs,
		Timestamp:       d.Timestamp,
	}
}

// DivScalar integer-truncates every counter field by n.
func (d DiskIOInfo) DivScalar(n int64) DiskIOInfo {
	if n == 0 {
		return DiskIOInfo{Device: d.Device}
	}
	return DiskIOInfo{
		Device:          d.Device,
		ReadsCompleted:  d.ReadsCompleted / n,
		SectorsRead:     d.SectorsRead / n,
		WritesCompleted: d.WritesCompleted / n,
		SectorsWritten:  d.SectorsWritten / n,
		TimeIOMs:        d.TimeIOMs / n,
		Timestamp:       d.Timestamp,
	}
}

// DiskIOProcessSample is a per-process disk I/O counters reading
// (Linux only).
type DiskIOProcessSample struct {
	ReadBytes  int64     `json:"read_bytes"`
	WriteBytes int64     `json:"write_bytes"`
	Timestamp  time.Time `json:"timestamp"`
}

// Add implements element-wise addition, excluding the timestamp.
func (s DiskIOProcessSample) Add(o DiskIOProcessSample) DiskIOProcessSample {
	return DiskIOProcessSample{ReadBytes: s.ReadBytes + o.ReadBytes, WriteBytes: s.WriteBytes + o.WriteBytes, Timestamp: s.Timestamp}
}

// DivScalar integer-truncates both byte counters by n.
func (s DiskIOProcessSample) DivScalar(n int64) DiskIOProcessSample {
	if n == 0 {
		return DiskIOProcessSample{}
	}
	return DiskIOProcessSample{ReadBytes: s.ReadBytes / n, WriteBytes: s.WriteBytes / n, Timestamp: s.Timestamp}
}
