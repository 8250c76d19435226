package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelListFilter(t *testing.T) {
	l := ModelList[int]{1, 2, 3, 4, 5}
	evens := l.Filter(func(v int) bool { return v%2 == 0 })
	assert.Equal(t, ModelList[int]{2, 4}, evens)
}

func TestModelListFilterIdempotentForTotalPredicate(t *testing.T) {
	l := ModelList[int]{1, 2, 3}
	pred := func(v int) bool { return v > 1 }
	once := l.Filter(pred)
	twice := once.Filter(pred)
	assert.Equal(t, once, twice)
}

func TestModelListSlicePreservesType(t *testing.T) {
	l := ModelList[int]{1, 2, 3, 4}
	sliced := l[1:3]
	assert.IsType(t, ModelList[int]{}, sliced)
	assert.Equal(t, ModelList[int]{2, 3}, sliced)
}

func TestModelListSortByPath(t *testing.T) {
	l := ModelList[Process]{
		{PID: 3, Name: "c"},
		{PID: 1, Name: "a"},
		{PID: 2, Name: "b"},
	}
	sorted, err := l.SortByPath("pid", false)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, []int{sorted[0].PID, sorted[1].PID, sorted[2].PID})

	rev, err := l.SortByPath("pid", true)
	require.NoError(t, err)
	assert.Equal(t, []int{3, 2, 1}, []int{rev[0].PID, rev[1].PID, rev[2].PID})
}

func TestModelListSortByPathNested(t *testing.T) {
	l := ModelList[CpuSampleProcessInfo]{
		{ProcessInfo[CpuSample]{Process: Process{PID: 1}, Samples: []CpuSample{{CpuLoad: 9}}}},
		{ProcessInfo[CpuSample]{Process: Process{PID: 2}, Samples: []CpuSample{{CpuLoad: 3}}}},
	}
	sorted, err := l.SortByPath("samples[0].cpu_load", false)
	require.NoError(t, err)
	assert.Equal(t, 2, sorted[0].Process.PID)
}

func TestHighestAvgCpuLoad(t *testing.T) {
	l := ModelList[CpuSampleProcessInfo]{
		{ProcessInfo[CpuSample]{Process: Process{PID: 1}, Samples: []CpuSample{{CpuLoad: 5}}}},
		{ProcessInfo[CpuSample]{Process: Process{PID: 2}, Samples: []CpuSample{{CpuLoad: 50}}}},
		{ProcessInfo[CpuSample]{Process: Process{PID: 3}, Samples: []CpuSample{{CpuLoad: 25}}}},
	}
	top2 := HighestAvgCpuLoad(l, 2)
	require.Len(t, top2, 2)
	assert.Equal(t, 2, top2[0].Process.PID)
	assert.Equal(t, 3, top2[1].Process.PID)
}

func TestFilterActiveInterfaces(t *testing.T) {
	l := ModelList[NetworkInterfaceSample]{
		{Name: "lo", RxBytes: 0, TxBytes: 0},
		{Name: "eth0", RxBytes: 100, TxBytes: 50},
	}
	active := FilterActiveInterfaces(l)
	require.Len(t, active, 1)
	assert.Equal(t, "eth0", active[0].Name)
}
