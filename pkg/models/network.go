package models

import "time"

// NetworkInterfaceSample is a single cumulative-counter reading of one
// network interface, as reported by /proc/net/dev.
type NetworkInterfaceSample struct {
	Name       string    `json:"name"`
	RxBytes    int64     `json:"rx_bytes"`
	RxPackets  int64     `json:"rx_packets"`
	RxErrors   int64     `json:"rx_errors"`
	RxDropped  int64     `json:"rx_dropped"`
	TxBytes    int64     `json:"tx_bytes"`
	TxPackets  int64     `json:"tx_packets"`
	TxErrors   int64     `json:"tx_errors"`
	TxDropped  int64     `json:"tx_dropped"`
	Timestamp  time.Time `json:"timestamp"`
}

// IsActive reports whether the interface observed any traffic at all.
func (n NetworkInterfaceSample) IsActive() bool {
	return n.RxBytes > 0 || n.TxBytes > 0 || n.RxPackets > 0 || n.TxPackets > 0
}

// NetworkInterfaceDeltaSample is the per-interval rate derived by
// dividing two successive NetworkInterfaceSample readings' field deltas
// by the elapsed seconds between them.
type NetworkInterfaceDeltaSample struct {
	Name          string    `json:"name"`
	RxBytesRate   float64   `json:"rx_bytes_rate"`
	RxPacketsRate float64   `json:"rx_packets_rate"`
	TxBytesRate   float64   `json:"tx_bytes_rate"`
	TxPacketsRate float64   `json:"tx_packets_rate"`
	Timestamp     time.Time `json:"timestamp"`
}

// Rate returns the combined rx+tx byte rate, the headline "rate"
// property of a delta sample.
func (d NetworkInterfaceDeltaSample) Rate() float64 {
	return d.RxBytesRate + d.TxBytesRate
}

// NewNetworkInterfaceDeltaSample computes the field-wise rate between
// two cumulative samples of the same interface over elapsedSeconds. If
// elapsedSeconds is zero or negative, all rates are zero rather than
// dividing (mirrors the CPU-differencing "report zero instead of
// dividing" rule for a degenerate interval).
func NewNetworkInterfaceDeltaSample(prev, cur NetworkInterfaceSample, elapsedSeconds float64) NetworkInterfaceDeltaSample {
	if elapsedSeconds <= 0 {
		return NetworkInterfaceDeltaSample{Name: cur.Name, Timestamp: cur.Timestamp}
	}
	return NetworkInterfaceDeltaSample{
		Name:          cur.Name,
		RxBytesRate:   float64(cur.RxBytes-prev.RxBytes) / elapsedSeconds,
		RxPacketsRate: float64(cur.RxPackets-prev.RxPackets) / elapsedSeconds,
		TxBytesRate:   float64(cur.TxBytes-prev.TxBytes) / elapsedSeconds,
		TxPacketsRate: float64(cur.TxPackets-prev.TxPackets) / elapsedSeconds,
		Timestamp:     cur.Timestamp,
	}
}
