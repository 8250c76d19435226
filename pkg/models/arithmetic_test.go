package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryArithmetic(t *testing.T) {
	a := Memory{Total: 100, Used: 40, Free: 60}
	b := Memory{Total: 200, Used: 80, Free: 120}

	sum := a.Add(b)
	assert.Equal(t, Memory{Total: 300, Used: 120, Free: 180}, sum)

	avg := sum.DivScalar(2)
	assert.Equal(t, Memory{Total: 150, Used: 60, Free: 90}, avg)
}

func TestMemoryDivScalarTruncates(t *testing.T) {
	m := Memory{Total: 7, Used: 7, Free: 7}
	assert.Equal(t, Memory{Total: 3, Used: 3, Free: 3}, m.DivScalar(2))
}

func TestCpuSampleAddExcludesTimestamp(t *testing.T) {
	t1 := time.Now()
	t2 := t1.Add(time.Second)

	a := CpuSample{CpuLoad: 10, Timestamp: t1}
	b := CpuSample{CpuLoad: 20, Timestamp: t2}

	sum := a.Add(b)
	assert.Equal(t, 30.0, sum.CpuLoad)
	assert.Equal(t, t1, sum.Timestamp, "Add keeps the receiver's timestamp rather than combining them")
}

func TestProcessInfoAvg(t *testing.T) {
	info := ProcessInfo[CpuSample]{
		Process: Process{PID: 1, Name: "init"},
		Samples: []CpuSample{{CpuLoad: 10}, {CpuLoad: 20}, {CpuLoad: 30}},
	}
	assert.Equal(t, 20.0, info.Avg().CpuLoad)
}

func TestProcessInfoAvgEmpty(t *testing.T) {
	info := ProcessInfo[CpuSample]{Process: Process{PID: 1}}
	assert.Equal(t, CpuSample{}, info.Avg())
}

func TestCpuSampleProcessInfoMaxCpuLoad(t *testing.T) {
	info := CpuSampleProcessInfo{ProcessInfo[CpuSample]{
		Process: Process{PID: 2},
		Samples: []CpuSample{{CpuLoad: 5}, {CpuLoad: 40}, {CpuLoad: 12}},
	}}
	assert.Equal(t, 40.0, info.MaxCpuLoad())
}

func TestDiskIOProcessSampleAvg(t *testing.T) {
	info := DiskIOSampleProcessInfo{ProcessInfo[DiskIOProcessSample]{
		Process: Process{PID: 3},
		Samples: []DiskIOProcessSample{{ReadBytes: 100, WriteBytes: 50}, {ReadBytes: 300, WriteBytes: 150}},
	}}
	assert.Equal(t, int64(200), info.AvgReadBytes())
	assert.Equal(t, int64(100), info.AvgWriteBytes())
}
