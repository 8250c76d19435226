package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/models"
	"github.com/jihwankim/remoteperf/pkg/parsers"
	"github.com/jihwankim/remoteperf/pkg/remotefs"
	"github.com/jihwankim/remoteperf/pkg/sampler"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// QNX queries and samples diagnostics on a QNX Neutrino target using
// hogs, pidin, and the /proc/vm and /proc/<pid> pseudo-filesystems —
// the tools QNX ships instead of Linux's /proc/stat family.
type QNX struct {
	Base
	fs *remotefs.RemoteFs
}

// NewQNX builds a QNX handler around an already-open transport.
func NewQNX(t transport.Transport, log *logging.Logger) *QNX {
	return &QNX{Base: NewBase(t, log, "qnx"), fs: remotefs.New(t, "/tmp")}
}

func (h *QNX) hasCapability(ctx context.Context, command string) bool {
	out, err := h.run(ctx, "command -v "+command)
	return err == nil && strings.TrimSpace(out) != ""
}

// hogsDelegated builds the Delegated executor hogs-style sampling needs:
// hogs blocks for its own sampling window, well past any single-command
// timeout, so it must run detached and be read back later.
func (h *QNX) hogsDelegated(uid string, interval int) *sampler.Delegated {
	return sampler.NewDelegated(h.Transport, uid, time.Duration(interval)*time.Second, 3, h.Log)
}

// qnxCPUInterval enforces the 1 second hogs sampling floor: below it is
// rejected unless force is set, in which case the raw interval is
// allowed through untouched to the caller's record but the actual hogs
// invocation still runs at a minimum of 1 second, since hogs itself
// cannot sample any faster.
func qnxCPUInterval(interval int, force bool) (commandInterval int, err error) {
	if interval < 1 && !force {
		return 0, &QNXIntervalTooShortError{Interval: time.Duration(interval) * time.Second}
	}
	if interval < 1 {
		return 1, nil
	}
	return interval, nil
}

// GetCPUUsage runs `hogs` for interval seconds and returns aggregate
// and per-core CPU load. interval below 1 second is rejected unless
// force is set.
func (h *QNX) GetCPUUsage(ctx context.Context, interval int, force bool) (models.CpuUsage, error) {
	commandInterval, err := qnxCPUInterval(interval, force)
	if err != nil {
		return models.CpuUsage{}, err
	}
	command := fmt.Sprintf("hogs -i 1 -s %d -%% 1000", commandInterval)
	out, err := h.hogsDelegated("hogs", commandInterval).Run(ctx, command)
	if err != nil {
		return models.CpuUsage{}, err
	}
	usage, err := parsers.ParseHogsCPUUsage(out, time.Now())
	if err != nil {
		return models.CpuUsage{}, &ParseError{Operation: "GetCPUUsage", Err: err}
	}
	return usage, nil
}

// GetCPUUsageProcWise runs `hogs` alongside `pidin` for interval
// seconds and cross-correlates them into per-process CPU load.
// interval below 1 second is rejected unless force is set.
//
// Requires hogs: returns UnsupportedCapabilityError if it is missing.
func (h *QNX) GetCPUUsageProcWise(ctx context.Context, interval int, force bool) (map[models.Process]models.CpuSample, error) {
	if !h.hasCapability(ctx, "hogs") {
		return nil, &UnsupportedCapabilityError{Capability: "hogs"}
	}
	commandInterval, err := qnxCPUInterval(interval, force)
	if err != nil {
		return nil, err
	}
	command := fmt.Sprintf(`hogs -i 1 -s %d && pidin -F "%%a %%t %%n %%A"`, commandInterval)
	out, err := h.hogsDelegated("hogs_pidin", commandInterval).Run(ctx, command)
	if err != nil {
		return nil, err
	}
	samples, err := parsers.ParseHogsPidinProcWise(out, time.Now())
	if err != nil {
		return nil, &ParseError{Operation: "GetCPUUsageProcWise", Err: err}
	}
	return samples, nil
}

func (h *QNX) memSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, `cat /proc/vm/stats | grep -E "(page_count|pages_free)"`)
}

// GetMemUsage returns a point-in-time /proc/vm/stats reading.
func (h *QNX) GetMemUsage(ctx context.Context) (models.SystemMemory, error) {
	out, err := h.memSnapshot(ctx)
	if err != nil {
		return models.SystemMemory{}, err
	}
	mem, err := parsers.ParseProcVMStat(out, time.Now())
	if err != nil {
		return models.SystemMemory{}, &ParseError{Operation: "GetMemUsage", Err: err}
	}
	return mem, nil
}

func (h *QNX) memProcWiseSnapshot(ctx context.Context) (string, error) {
	command := `(cat $(ls /proc | grep '[0-9]' | ` +
		`sed 's:\([0-9]*\):rss_pid=\1 /proc/\1/vmstat:'))2>&1 ` +
		`| grep rss && echo PIDIN_SEPARATOR && pidin -f atnA`
	return h.run(ctx, command)
}

// GetMemUsageProcWise returns the current resident memory usage for
// every process, cross-correlated against `pidin -f atnA` identity.
func (h *QNX) GetMemUsageProcWise(ctx context.Context) (map[models.Process]models.MemorySample, error) {
	out, err := h.memProcWiseSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	samples, err := parsers.ParseQnxMemUsageFromProcFiles(out, time.Now())
	if err != nil {
		return nil, &ParseError{Operation: "GetMemUsageProcWise", Err: err}
	}
	return samples, nil
}

// GetSystemUptime derives uptime from `pidin info`'s BootTime line and
// the device's current time via `date`.
func (h *QNX) GetSystemUptime(ctx context.Context) (time.Duration, error) {
	pidin, err := h.run(ctx, "pidin info")
	if err != nil {
		return 0, err
	}
	dateOut, err := h.run(ctx, "date")
	if err != nil {
		return 0, err
	}
	up, err := parsers.ParseUptime(pidin, dateOut)
	if err != nil {
		return 0, &ParseError{Operation: "GetSystemUptime", Err: err}
	}
	return up, nil
}

// GetBootTime returns the time it took the system to boot, read from
// /dev/bmetrics. Returns UnsupportedCapabilityError if that device node
// does not exist.
func (h *QNX) GetBootTime(ctx context.Context) (time.Duration, error) {
	exists, err := h.fs.Exists(ctx, "/dev/bmetrics")
	if err != nil {
		return 0, err
	}
	if !exists {
		return 0, &UnsupportedCapabilityError{Capability: "/dev/bmetrics"}
	}
	out, err := h.run(ctx, "cat /dev/bmetrics | grep SYS_BOOT_LOADER_END")
	if err != nil {
		return 0, err
	}
	boot, err := parsers.ParseBmetricsBootTime(out)
	if err != nil {
		return 0, &ParseError{Operation: "GetBootTime", Err: err}
	}
	return boot, nil
}

func (h *QNX) dfSnapshot(ctx context.Context) (string, error) {
	return h.run(ctx, "df")
}

// GetDiskInfo returns filesystem capacity for every mounted filesystem.
func (h *QNX) GetDiskInfo(ctx context.Context) ([]models.DiskInfo, error) {
	out, err := h.dfSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return parsers.ParseDFQnx(out, time.Now())
}

// StartCPUMeasurement begins sampling aggregate CPU load. interval must
// be at least one second unless force is set; hogs cannot sample any
// faster regardless.
func (h *QNX) StartCPUMeasurement(ctx context.Context, interval int, force bool) error {
	commandInterval, err := qnxCPUInterval(interval, force)
	if err != nil {
		return err
	}
	sample := func(ctx context.Context) (models.CpuUsage, error) {
		return h.GetCPUUsage(ctx, interval, force)
	}
	samplerInterval := time.Duration(commandInterval) * time.Second
	engine := sampler.NewDirect(samplerInterval, sample, h.Log)
	if err := h.startSampler("cpu", samplerInterval, engineHandle[models.CpuUsage, models.CpuUsage]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopCPUMeasurement stops the running CPU sampler.
func (h *QNX) StopCPUMeasurement() ([]models.CpuUsage, error) {
	return stopTyped[models.CpuUsage](&h.Base, "cpu")
}

// StartMemMeasurement begins sampling /proc/vm/stats every interval.
func (h *QNX) StartMemMeasurement(ctx context.Context, interval time.Duration) error {
	sample := func(ctx context.Context) (models.SystemMemory, error) {
		return h.GetMemUsage(ctx)
	}
	engine := sampler.NewDirect(interval, sample, h.Log)
	if err := h.startSampler("mem", interval, engineHandle[models.SystemMemory, models.SystemMemory]{engine: engine}); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopMemMeasurement stops the running memory sampler.
func (h *QNX) StopMemMeasurement() ([]models.SystemMemory, error) {
	return stopTyped[models.SystemMemory](&h.Base, "mem")
}

// StartDiskInfoMeasurement begins sampling filesystem capacity every
// interval.
func (h *QNX) StartDiskInfoMeasurement(ctx context.Context, interval time.Duration) error {
	fold := func(raw []string) ([]models.DiskInfo, []string) {
		if len(raw) == 0 {
			return nil, raw
		}
		infos, err := parsers.ParseDFQnx(raw[len(raw)-1], time.Now())
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
func (h *QNX) StopDiskInfoMeasurement() ([]models.DiskInfo, error) {
	return stopTyped[models.DiskInfo](&h.Base, "diskinfo")
}

// StartCPUMeasurementProcWise begins sampling per-process CPU load
// every interval. interval below 1 second is rejected unless force is
// set.
//
// Requires hogs: returns UnsupportedCapabilityError if it is missing.
func (h *QNX) StartCPUMeasurementProcWise(ctx context.Context, interval int, force bool) error {
	if !h.hasCapability(ctx, "hogs") {
		return &UnsupportedCapabilityError{Capability: "hogs"}
	}
	commandInterval, err := qnxCPUInterval(interval, force)
	if err != nil {
		return err
	}
	sample := func(ctx context.Context) (map[models.Process]models.CpuSample, error) {
		return h.GetCPUUsageProcWise(ctx, interval, force)
	}
	samplerInterval := time.Duration(commandInterval) * time.Second
	engine := sampler.NewDirect(samplerInterval, sample, h.Log)
	handle := engineHandle[map[models.Process]models.CpuSample, map[models.Process]models.CpuSample]{engine: engine}
	if err := h.startSampler("cpu_proc", samplerInterval, handle); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopCPUMeasurementProcWise stops the per-process CPU sampler and
// merges every window's per-process samples into one ProcessInfo list.
func (h *QNX) StopCPUMeasurementProcWise() (models.ModelList[models.CpuSampleProcessInfo], error) {
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
func (h *QNX) StartMemMeasurementProcWise(ctx context.Context, interval time.Duration) error {
	sample := func(ctx context.Context) (map[models.Process]models.MemorySample, error) {
		return h.GetMemUsageProcWise(ctx)
	}
	engine := sampler.NewDirect(interval, sample, h.Log)
	handle := engineHandle[map[models.Process]models.MemorySample, map[models.Process]models.MemorySample]{engine: engine}
	if err := h.startSampler("mem_proc", interval, handle); err != nil {
		return err
	}
	engine.Start(ctx)
	return nil
}

// StopMemMeasurementProcWise stops the per-process memory sampler.
func (h *QNX) StopMemMeasurementProcWise() (models.ModelList[models.MemorySampleProcessInfo], error) {
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
