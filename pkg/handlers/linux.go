package handlers

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/models"
	"github.com/jihwankim/remoteperf/pkg/parsers"
	"github.com/jihwankim/remoteperf/pkg/sampler"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// Linux queries and samples diagnostics on a Linux device by reading
// /proc directly, the way every Linux distribution's coreutils always
// can regardless of what else is installed.
type Linux struct {
	Base
}

// NewLinux builds a Linux handler around an already-open transport.
func NewLinux(t transport.Transport, log *logging.Logger) *Linux {
	return &Linux{Base: NewBase(t, log, "linux")}
}

func (h *Linux) statSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "cat /proc/stat | grep cpu")
}

func (h *Linux) memSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "cat /proc/meminfo")
}

func (h *Linux) dfSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "df")
}

func (h *Linux) diskstatsSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "cat /proc/diskstats")
}

func (h *Linux) netSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "cat /proc/net/dev && date --iso-8601=ns")
}

func (h *Linux) procResourceSnapshot(ctx context.Context) (string, error) {
	cmd := `getconf PAGESIZE && /bin/cat $(ls /proc | grep "[0-9]" | ` +
		`sed "s:\([0-9]*\):` + nonexistentSeparator + ` /proc/\1/stat /proc/\1/cmdline:") ` +
		nonexistentSeparator + ` /proc/stat 2>&1`
	return h.run(ctx, cmd)
}

func (h *Linux) procIOSnapshot(ctx context.Context) (string, error) {
	cmd := `/bin/cat $(ls /proc | grep "[0-9]" | ` +
		`sed "s:\([0-9]*\):` + nonexistentSeparator + ` /proc/\1/stat /proc/\1/io /proc/\1/cmdline:") ` +
		nonexistentSeparator + ` 2>&1`
	return h.run(ctx, cmd)
}

// GetCPUUsage takes two /proc/stat snapshots interval apart and returns
// the aggregate and per-core CPU load over that window.
func (h *Linux) GetCPUUsage(ctx context.Context, interval time.Duration) (models.CpuUsage, error) {
	start := time.Now()
	s1, err := h.statSnapshot(ctx)
	if err != nil {
		return models.CpuUsage{}, err
	}
	sleepRemaining(start, interval)
	s2, err := h.statSnapshot(ctx)
	if err != nil {
		return models.CpuUsage{}, err
	}
	usage, err := parsers.ParseProcStat(s1, s2, time.Now())
	if err != nil {
		return models.CpuUsage{}, &ParseError{Operation: "GetCPUUsage", Err: err}
	}
	return usage, nil
}

// GetMemUsage returns a point-in-time /proc/meminfo reading.
func (h *Linux) GetMemUsage(ctx context.Context) (models.SystemMemory, error) {
	out, err := h.memSnapshot(ctx)
	if err != nil {
		return models.SystemMemory{}, err
	}
	mem, err := parsers.ParseProcMeminfo(out, time.Now())
	if err != nil {
		return models.SystemMemory{}, &ParseError{Operation: "GetMemUsage", Err: err}
	}
	return mem, nil
}

// GetSystemUptime reads /proc/uptime directly.
func (h *Linux) GetSystemUptime(ctx context.Context) (time.Duration, error) {
	out, err := h.run(ctx, "cat /proc/uptime | cut -d ' ' -f 1")
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(strings.TrimSpace(out), 64)
	if err != nil {
		return 0, &ParseError{Operation: "GetSystemUptime", Err: err}
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// GetDiskInfo returns filesystem capacity for every mounted filesystem.
func (h *Linux) GetDiskInfo(ctx context.Context) ([]models.DiskInfo, error) {
	out, err := h.dfSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return parsers.ParseDF(out, time.Now())
}

// GetDiskIO returns cumulative block-device I/O counters.
func (h *Linux) GetDiskIO(ctx context.Context) ([]models.DiskIOInfo, error) {
	out, err := h.diskstatsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return parsers.ParseProcDiskio(out, time.Now())
}

// GetNetworkUsageTotal returns cumulative counters for every network
// interface since boot.
func (h *Linux) GetNetworkUsageTotal(ctx context.Context) (map[string]models.NetworkInterfaceSample, error) {
	raw, err := h.netSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	samples, _, err := parsers.ParseProcNetDev(raw)
	if err != nil {
		return nil, &ParseError{Operation: "GetNetworkUsageTotal", Err: err}
	}
	return samples, nil
}

// GetNetworkUsage returns the per-interface rate of traffic over
// interval.
func (h *Linux) GetNetworkUsage(ctx context.Context, interval time.Duration) (map[string]models.NetworkInterfaceDeltaSample, error) {
	start := time.Now()
	raw1, err := h.netSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s1, ts1, err := parsers.ParseProcNetDev(raw1)
	if err != nil {
		return nil, &ParseError{Operation: "GetNetworkUsage", Err: err}
	}
	sleepRemaining(start, interval)
	raw2, err := h.netSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	s2, ts2, err := parsers.ParseProcNetDev(raw2)
	if err != nil {
		return nil, &ParseError{Operation: "GetNetworkUsage", Err: err}
	}
	elapsed := ts2.Sub(ts1).Seconds()

	out := make(map[string]models.NetworkInterfaceDeltaSample, len(s2))
	for name, cur := range s2 {
		prev, ok := s1[name]
		if !ok {
			continue
		}
		out[name] = models.NewNetworkInterfaceDeltaSample(prev, cur, elapsed)
	}
	return out, nil
}

// GetCPUUsageProcWise returns per-process CPU load over interval.
func (h *Linux) GetCPUUsageProcWise(ctx context.Context, interval time.Duration) (map[models.Process]models.CpuSample, error) {
	start := time.Now()
	s1, err := h.procResourceSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	sleepRemaining(start, interval)
	s2, err := h.procResourceSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := parsers.ParseCPUUsageFromProcFiles(s1, s2, nonexistentSeparator, time.Now())
	if err != nil {
		return nil, &ParseError{Operation: "GetCPUUsageProcWise", Err: err}
	}
	return samples, nil
}

// GetMemUsageProcWise returns the current resident memory usage for
// every process.
func (h *Linux) GetMemUsageProcWise(ctx context.Context) (map[models.Process]models.MemorySample, error) {
	out, err := h.procResourceSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := parsers.ParseMemUsageFromProcFiles(out, nonexistentSeparator, time.Now())
	if err != nil {
		return nil, &ParseError{Operation: "GetMemUsageProcWise", Err: err}
	}
	return samples, nil
}

// GetDiskIOProcWise returns cumulative per-process block I/O counters.
func (h *Linux) GetDiskIOProcWise(ctx context.Context) (map[models.Process]models.DiskIOProcessSample, error) {
	out, err := h.procIOSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return parsers.ParseDiskUsageFromProcFiles(out, nonexistentSeparator, time.Now())
}

func sleepRemaining(start time.Time, interval time.Duration) {
	remaining := interval - time.Since(start)
	if remaining > 0 {
		time.Sleep(remaining)
	}
}

// StartCPUMeasurement begins sampling aggregate CPU load every
// interval, folding each consecutive pair of /proc/stat snapshots into
// one CpuUsage record.
func (h *Linux) StartCPUMeasurement(ctx context.Context, interval time.Duration) error {
	fold := func(raw []string) ([]models.CpuUsage, []string) {
		if len(raw) < 2 {
			return nil, raw
		}
		usage, err := parsers.ParseProcStat(raw[len(raw)-2], raw[len(raw)-1], time.Now())
		if err != nil {
			h.Log.Warn("failed to fold cpu sample", "error", err)
			return nil, raw[len(raw)-1:]
		}
		return []models.CpuUsage{usage}, raw[len(raw)-1:]
	}
	engine := sampler.New(interval, h.statSnapshot, fold, h.Log)
	if err := h.startSampler("cpu", interval, engineHandle[string, models.CpuUsage]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopCPUMeasurement stops the running CPU sampler and returns every
// windowed CpuUsage record it produced.
func (h *Linux) StopCPUMeasurement() ([]models.CpuUsage, error) {
	return stopTyped[models.CpuUsage](&h.Base, "cpu")
}

// StartMemMeasurement begins sampling /proc/meminfo every interval.
func (h *Linux) StartMemMeasurement(ctx context.Context, interval time.Duration) error {
	sample := func(ctx context.Context) (models.SystemMemory, error) {
		out, err := h.memSnapshot(ctx)
		if err != nil {
			return models.SystemMemory{}, err
		}
		return parsers.ParseProcMeminfo(out, time.Now())
	}
	engine := sampler.NewDirect(interval, sample, h.Log)
	if err := h.startSampler("mem", interval, engineHandle[models.SystemMemory, models.SystemMemory]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopMemMeasurement stops the running memory sampler.
func (h *Linux) StopMemMeasurement() ([]models.SystemMemory, error) {
	return stopTyped[models.SystemMemory](&h.Base, "mem")
}

// StartDiskInfoMeasurement begins sampling filesystem capacity every
// interval.
func (h *Linux) StartDiskInfoMeasurement(ctx context.Context, interval time.Duration) error {
	fold := func(raw []string) ([]models.DiskInfo, []string) {
		if len(raw) == 0 {
			return nil, raw
		}
		infos, err := parsers.ParseDF(raw[len(raw)-1], time.Now())
		if err != nil {
			h.Log.Warn("failed to fold diskinfo sample", "error", err)
			return nil, nil
		}
		return infos, nil
	}
	engine := sampler.New(interval, h.dfSnapshot, fold, h.Log)
	if err := h.startSampler("diskinfo", interval, engineHandle[string, models.DiskInfo]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopDiskInfoMeasurement stops the running disk-info sampler.
func (h *Linux) StopDiskInfoMeasurement() ([]models.DiskInfo, error) {
	return stopTyped[models.DiskInfo](&h.Base, "diskinfo")
}

// StartCPUMeasurementProcWise begins sampling per-process CPU load
// every interval.
func (h *Linux) StartCPUMeasurementProcWise(ctx context.Context, interval time.Duration) error {
	fold := func(raw []string) ([]map[models.Process]models.CpuSample, []string) {
		if len(raw) < 2 {
			return nil, raw
		}
		samples, err := parsers.ParseCPUUsageFromProcFiles(raw[len(raw)-2], raw[len(raw)-1], nonexistentSeparator, time.Now())
		if err != nil {
			h.Log.Warn("failed to fold proc-wise cpu sample", "error", err)
			return nil, raw[len(raw)-1:]
		}
		return []map[models.Process]models.CpuSample{samples}, raw[len(raw)-1:]
	}
	engine := sampler.New(interval, h.procResourceSnapshot, fold, h.Log)
	if err := h.startSampler("cpu_proc", interval, engineHandle[string, map[models.Process]models.CpuSample]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopCPUMeasurementProcWise stops the per-process CPU sampler and
// merges every window's per-process samples into one ProcessInfo list.
func (h *Linux) StopCPUMeasurementProcWise() (models.ModelList[models.CpuSampleProcessInfo], error) {
	windows, err := stopTyped[map[models.Process]models.CpuSample](&h.Base, "cpu_proc")
	if err != nil {
		return nil, err
	}
	merged := mergeProcessWindows[models.CpuSample](windows)
	out := make(models.ModelList[models.CpuSampleProcessInfo], 0, len(merged))
	for _, info := range merged {
		out = append(out, models.CpuSampleProcessInfo{ProcessInfo: info})
	}
	return out, nil
}

// StartMemMeasurementProcWise begins sampling per-process memory usage
// every interval.
func (h *Linux) StartMemMeasurementProcWise(ctx context.Context, interval time.Duration) error {
	sample := func(ctx context.Context) (map[models.Process]models.MemorySample, error) {
		out, err := h.procResourceSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		return parsers.ParseMemUsageFromProcFiles(out, nonexistentSeparator, time.Now())
	}
	engine := sampler.NewDirect(interval, sample, h.Log)
	if err := h.startSampler("mem_proc", interval, engineHandle[map[models.Process]models.MemorySample, map[models.Process]models.MemorySample]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopMemMeasurementProcWise stops the per-process memory sampler.
func (h *Linux) StopMemMeasurementProcWise() (models.ModelList[models.MemorySampleProcessInfo], error) {
	windows, err := stopTyped[map[models.Process]models.MemorySample](&h.Base, "mem_proc")
	if err != nil {
		return nil, err
	}
	merged := mergeProcessWindows[models.MemorySample](windows)
	out := make(models.ModelList[models.MemorySampleProcessInfo], 0, len(merged))
	for _, info := range merged {
		out = append(out, models.MemorySampleProcessInfo{ProcessInfo: info})
	}
	return out, nil
}

// StartDiskIOMeasurement begins sampling /proc/diskstats every
// interval.
func (h *Linux) StartDiskIOMeasurement(ctx context.Context, interval time.Duration) error {
	fold := func(raw []string) ([][]models.DiskIOInfo, []string) {
		if len(raw) == 0 {
			return nil, raw
		}
		infos, err := parsers.ParseProcDiskio(raw[len(raw)-1], time.Now())
		if err != nil {
			h.Log.Warn("failed to fold diskio sample", "error", err)
			return nil, nil
		}
		return [][]models.DiskIOInfo{infos}, nil
	}
	engine := sampler.New(interval, h.diskstatsSnapshot, fold, h.Log)
	if err := h.startSampler("diskio", interval, engineHandle[string, []models.DiskIOInfo]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopDiskIOMeasurement stops the running diskio sampler.
func (h *Linux) StopDiskIOMeasurement() ([][]models.DiskIOInfo, error) {
	return stopTyped[[]models.DiskIOInfo](&h.Base, "diskio")
}

// StartNetInterfaceMeasurement begins sampling per-interface traffic
// rates every interval, folding each consecutive pair of /proc/net/dev
// snapshots into one set of interface delta samples.
func (h *Linux) StartNetInterfaceMeasurement(ctx context.Context, interval time.Duration) error {
	type netSnap struct {
		samples map[string]models.NetworkInterfaceSample
		at      time.Time
	}
	sampleFn := func(ctx context.Context) (netSnap, error) {
		raw, err := h.netSnapshot(ctx)
		if err != nil {
			return netSnap{}, err
		}
		samples, ts, err := parsers.ParseProcNetDev(raw)
		if err != nil {
			return netSnap{}, err
		}
		return netSnap{samples: samples, at: ts}, nil
	}
	fold := func(raw []netSnap) ([]map[string]models.NetworkInterfaceDeltaSample, []netSnap) {
		if len(raw) < 2 {
			return nil, raw
		}
		prev, cur := raw[len(raw)-2], raw[len(raw)-1]
		elapsed := cur.at.Sub(prev.at).Seconds()
		out := make(map[string]models.NetworkInterfaceDeltaSample, len(cur.samples))
		for name, c := range cur.samples {
			p, ok := prev.samples[name]
			if !ok {
				continue
			}
			out[name] = models.NewNetworkInterfaceDeltaSample(p, c, elapsed)
		}
		return []map[string]models.NetworkInterfaceDeltaSample{out}, raw[len(raw)-1:]
	}
	engine := sampler.New(interval, sampleFn, fold, h.Log)
	if err := h.startSampler("net", interval, engineHandle[netSnap, map[string]models.NetworkInterfaceDeltaSample]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopNetInterfaceMeasurement stops the running network-interface
// sampler.
func (h *Linux) StopNetInterfaceMeasurement() ([]map[string]models.NetworkInterfaceDeltaSample, error) {
	return stopTyped[map[string]models.NetworkInterfaceDeltaSample](&h.Base, "net")
}

// StartDiskIOMeasurementProcWise begins sampling per-process block I/O
// counters every interval.
func (h *Linux) StartDiskIOMeasurementProcWise(ctx context.Context, interval time.Duration) error {
	sample := func(ctx context.Context) (map[models.Process]models.DiskIOProcessSample, error) {
		out, err := h.procIOSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		return parsers.ParseDiskUsageFromProcFiles(out, nonexistentSeparator, time.Now())
	}
	engine := sampler.NewDirect(interval, sample, h.Log)
	kind := "diskio_proc"
	handle := engineHandle[map[models.Process]models.DiskIOProcessSample, map[models.Process]models.DiskIOProcessSample]{engine: engine}
	if err := h.startSampler(kind, interval, handle); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopDiskIOMeasurementProcWise stops the per-process disk I/O sampler
// and merges every window's per-process samples into one ProcessInfo
// list.
func (h *Linux) StopDiskIOMeasurementProcWise() (models.ModelList[models.DiskIOSampleProcessInfo], error) {
	windows, err := stopTyped[map[models.Process]models.DiskIOProcessSample](&h.Base, "diskio_proc")
	if err != nil {
		return nil, err
	}
	merged := mergeProcessWindows[models.DiskIOProcessSample](windows)
	out := make(models.ModelList[models.DiskIOSampleProcessInfo], 0, len(merged))
	for _, info := range merged {
		out = append(out, models.DiskIOSampleProcessInfo{ProcessInfo: info})
	}
	return out, nil
}

// mergeProcessWindows flattens a sequence of per-window
// process->sample maps into one ProcessInfo slice, one entry per
// process, carrying every sample observed for it in window order.
func mergeProcessWindows[S models.Arithmetic[S]](windows []map[models.Process]S) []models.ProcessInfo[S] {
	order := make([]models.Process, 0)
	byProcess := make(map[models.Process][]S)
	for _, window := range windows {
		for p, s := range window {
			if _, ok := byProcess[p]; !ok {
				order = append(order, p)
			}
			byProcess[p] = append(byProcess[p], s)
		}
	}
	out := make([]models.ProcessInfo[S], 0, len(order))
	for _, p := range order {
		out = append(out, models.ProcessInfo[S]{Process: p, Samples: byProcess[p]})
	}
	return out
}
