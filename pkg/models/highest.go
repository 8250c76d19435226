package models

import "sort"

// highest.go implements the "thin, view-only" highest_* query helpers:
// spec.md 1 calls these out-of-scope as a subsystem, but 4.5 names
// their exact signatures, so they are built here as free functions over
// ModelList[T] rather than methods, kept deliberately small.

func clampN[T any](l ModelList[T], n int) ModelList[T] {
	if n <= 0 || n > len(l) {
		n = len(l)
	}
	return l[:n]
}

// HighestLoadSingleCore returns the n CpuUsage entries with the highest
// single-core load, descending.
func HighestLoadSingleCore(l ModelList[CpuUsage], n int) ModelList[CpuUsage] {
	out := make(ModelList[CpuUsage], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool {
		return maxCore(out[i]) > maxCore(out[j])
	})
	return clampN(out, n)
}

func maxCore(c CpuUsage) float64 {
	var max float64
	first := true
	for _, v := range c.Cores {
		if first || v > max {
			max = v
			first = false
		}
	}
	return max
}

// HighestMemoryUsed returns the n SystemMemory entries with the highest
// used memory, descending.
func HighestMemoryUsed(l ModelList[SystemMemory], n int) ModelList[SystemMemory] {
	out := make(ModelList[SystemMemory], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Mem.Used > out[j].Mem.Used })
	return clampN(out, n)
}

// HighestAvgCpuLoad returns the n CpuSampleProcessInfo entries with the
// highest average CPU load, descending.
func HighestAvgCpuLoad(l ModelList[CpuSampleProcessInfo], n int) ModelList[CpuSampleProcessInfo] {
	out := make(ModelList[CpuSampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Avg().CpuLoad > out[j].Avg().CpuLoad })
	return clampN(out, n)
}

// HighestPeakCpuLoad returns the n CpuSampleProcessInfo entries with the
// highest peak CPU load, descending.
func HighestPeakCpuLoad(l ModelList[CpuSampleProcessInfo], n int) ModelList[CpuSampleProcessInfo] {
	out := make(ModelList[CpuSampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaxCpuLoad() > out[j].MaxCpuLoad() })
	return clampN(out, n)
}

// HighestAvgMemUsage returns the n MemorySampleProcessInfo entries with
// the highest average memory usage, descending.
func HighestAvgMemUsage(l ModelList[MemorySampleProcessInfo], n int) ModelList[MemorySampleProcessInfo] {
	out := make(ModelList[MemorySampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Avg().MemUsage > out[j].Avg().MemUsage })
	return clampN(out, n)
}

// HighestPeakMemUsage returns the n MemorySampleProcessInfo entries with
// the highest peak memory usage, descending.
func HighestPeakMemUsage(l ModelList[MemorySampleProcessInfo], n int) ModelList[MemorySampleProcessInfo] {
	out := make(ModelList[MemorySampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].MaxMemUsage() > out[j].MaxMemUsage() })
	return clampN(out, n)
}

// HighestAvgReadBytes returns the n DiskIOSampleProcessInfo entries with
// the highest average read bytes, descending.
func HighestAvgReadBytes(l ModelList[DiskIOSampleProcessInfo], n int) ModelList[DiskIOSampleProcessInfo] {
	out := make(ModelList[DiskIOSampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgReadBytes() > out[j].AvgReadBytes() })
	return clampN(out, n)
}

// HighestAvgWriteBytes returns the n DiskIOSampleProcessInfo entries
// with the highest average write bytes, descending.
func HighestAvgWriteBytes(l ModelList[DiskIOSampleProcessInfo], n int) ModelList[DiskIOSampleProcessInfo] {
	out := make(ModelList[DiskIOSampleProcessInfo], len(l))
	copy(out, l)
	sort.SliceStable(out, func(i, j int) bool { return out[i].AvgWriteBytes() > out[j].AvgWriteBytes() })
	return clampN(out, n)
}

// FilterActiveInterfaces returns only the interfaces that have observed
// any traffic.
func FilterActiveInterfaces(l ModelList[NetworkInterfaceSample]) ModelList[NetworkInterfaceSample] {
	return l.Filter(func(n NetworkInterfaceSample) bool { return n.IsActive() })
}
