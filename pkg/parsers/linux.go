package parsers

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/models"
)

// modeLabels mirrors /proc/stat's column order: user, nice, system,
// idle, iowait, irq, softirq, steal, guest, guest_nice.
var modeLabels = []string{"user", "nice", "system", "idle", "iowait", "irq", "softirq", "steal", "guest", "guest_nice"}

var procStatLineRe = regexp.MustCompile(`(cpu\d*)` + strings.Repeat(`\s+(\d+)`, 10))

func scanCPULines(raw string) (map[string][10]uint64, error) {
	out := make(map[string][10]uint64)
	for _, line := range strings.Split(raw, "\n") {
		m := procStatLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		var vals [10]uint64
		for i := 0; i < 10; i++ {
			v, err := strconv.ParseUint(m[i+2], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("malformed /proc/stat tick value %q: %w", m[i+2], err)
			}
			vals[i] = v
		}
		out[m[1]] = vals
	}
	return out, nil
}

// ParseProcStat differences two /proc/stat snapshots into a system-wide
// CpuUsage reading: per-mode percentages for the aggregate "cpu" line
// and a load-only figure (100-idle) per individual core.
func ParseProcStat(raw1, raw2 string, timestamp time.Time) (models.CpuUsage, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	first, err := scanCPULines(raw1)
	if err != nil {
		return models.CpuUsage{}, err
	}
	second, err := scanCPULines(raw2)
	if err != nil {
		return models.CpuUsage{}, err
	}
	if len(first) != len(second) {
		return models.CpuUsage{}, newParsingError(raw1+"\n"+raw2, "got incompatible cpu data between snapshots")
	}

	modeUsages := make(map[string]models.CpuModeUsage)
	for cpu, before := range first {
		after, ok := second[cpu]
		if !ok {
			return models.CpuUsage{}, newParsingError(raw1+"\n"+raw2, "cpu line %q missing from second snapshot", cpu)
		}
		var deltas [10]float64
		var sum float64
		for i := 0; i < 10; i++ {
			deltas[i] = float64(after[i] - before[i])
			sum += deltas[i]
		}
		usage := models.CpuModeUsage{}
		if sum > 0 {
			for i, label := range modeLabels {
				setModeField(&usage, label, deltas[i]/sum*100)
			}
		}
		modeUsages[cpu] = usage
	}

	total, ok := modeUsages["cpu"]
	if !ok {
		return models.CpuUsage{}, newParsingError(raw1, "raw data incomplete, missing 'cpu' line")
	}
	delete(modeUsages, "cpu")

	cores := make(map[string]float64, len(modeUsages))
	for cpu, usage := range modeUsages {
		cores[strings.TrimPrefix(cpu, "cpu")] = 100 - usage.Idle
	}

	return models.CpuUsage{
		Load:      100 - total.Idle,
		ModeUsage: &total,
		Cores:     cores,
		Timestamp: timestamp,
	}, nil
}

func setModeField(u *models.CpuModeUsage, label string, value float64) {
	switch label {
	case "user":
		u.User = value
	case "nice":
		u.Nice = value
	case "system":
		u.System = value
	case "idle":
		u.Idle = value
	case "iowait":
		u.Iowait = value
	case "irq":
		u.Irq = value
	case "softirq":
		u.Softirq = value
	case "steal":
		u.Steal = value
	case "guest":
		u.Guest = value
	case "guest_nice":
		u.GuestNice = value
	}
}

// ParseProcMeminfo parses the output of /proc/meminfo.
func ParseProcMeminfo(raw string, timestamp time.Time) (models.SystemMemory, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	fields := make(map[string]int64)
	for _, line := range strings.Split(strings.TrimSpace(raw), "\n") {
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		key := strings.TrimSuffix(parts[0], ":")
		v, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			continue
		}
		fields[key] = v
	}

	required := []string{"MemTotal", "MemFree", "Cached", "SReclaimable", "Buffers", "Shmem", "MemAvailable", "SwapTotal", "SwapFree"}
	for _, r := range required {
		if _, ok := fields[r]; !ok {
			return models.SystemMemory{}, newParsingError(raw, "missing expected /proc/meminfo field %q", r)
		}
	}

	buffCache := fields["Cached"] + fields["SReclaimable"] + fields["Buffers"]
	mem := models.Memory{
		Total: fields["MemTotal"],
		Used:  fields["MemTotal"] - fields["MemFree"] - buffCache,
		Free:  fields["MemFree"],
	}
	swap := models.Memory{
		Total: fields["SwapTotal"],
		Free:  fields["SwapFree"],
		Used:  fields["SwapTotal"] - fields["SwapFree"],
	}

	return models.SystemMemory{
		Mem: mem,
		Extended: &models.ExtendedFields{
			Shared:    fields["Shmem"],
			BuffCache: buffCache,
			Available: fields["MemAvailable"],
		},
		Swap:      &swap,
		Timestamp: timestamp,
	}, nil
}

// splitDelimited splits raw on delimiter, discarding the preamble before
// the first occurrence (the reserved-token error message that opens the
// combined per-process command output — see nonexistentSeparator in
// package handlers for why this token is safe to use as a separator).
func splitDelimited(raw, delimiter string) []string {
	parts := strings.Split(raw, delimiter)
	if len(parts) <= 1 {
		return nil
	}
	return parts[1:]
}

var procStatFieldsRe = regexp.MustCompile(`(?s)(\d+)\s+\(([^)]+)\)\s+\S` + strings.Repeat(`\s+(-?\d+)`, 49) + `\n(.*)`)

// parseProcTimes extracts (utime+stime, rss-pages) per process from a
// block of concatenated /proc/<pid>/stat + /cmdline text, one block per
// process as produced by splitDelimited.
func parseProcTimes(blocks []string, pageSize int64) map[models.Process][2]int64 {
	out := make(map[models.Process][2]int64)
	for _, block := range blocks {
		m := procStatFieldsRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		pid, _ := strconv.Atoi(m[1])
		name := m[2]
		// m[3..51] are /proc/pid/stat fields 4..52 (1-based, as in proc(5)),
		// so field n is m[n-1]: utime (14) and stime (15) are m[3+10] and
		// m[3+11], starttime (22) is m[3+18], rss (24) is m[3+20].
		utime, _ := strconv.ParseInt(m[3+10], 10, 64)
		stime, _ := strconv.ParseInt(m[3+11], 10, 64)
		startTime := m[3+18]
		rss, _ := strconv.ParseInt(m[3+20], 10, 64)
		cmdline := strings.TrimSpace(m[len(m)-1])
		if cmdline == "" {
			cmdline = name
		}
		proc := models.Process{PID: pid, Name: name, StartTime: startTime, Command: cmdline}
		out[proc] = [2]int64{utime + stime, rss * pageSize}
	}
	return out
}

// pageSizeAndDelimiter reads the first handful of lines of the combined
// command output: `getconf PAGESIZE` is prepended to the recipe so the
// page size travels in the same round trip, and the reserved delimiter
// token's consistent shell error is used to find where process data
// starts.
func pageSizeAndDelimiter(raw, delimiter string) (int64, error) {
	lines := strings.SplitN(raw, "\n", 10)
	var pageSize int64 = -1
	found := false
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
			pageSize = n
			found = true
			break
		}
	}
	if !found || !strings.Contains(raw, delimiter) {
		return 0, newParsingError(raw, "could not parse page size or delimiter from header")
	}
	return pageSize, nil
}

// ParseCPUUsageFromProcFiles differences two snapshots of concatenated
// /proc/<pid>/stat+/cmdline blocks (separated by delimiter) against the
// trailing system /proc/stat line present in each snapshot, yielding a
// per-process CPU percentage.
func ParseCPUUsageFromProcFiles(raw1, raw2, delimiter string, timestamp time.Time) (map[models.Process]models.CpuSample, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	pageSize, err := pageSizeAndDelimiter(raw1, delimiter)
	if err != nil {
		return nil, err
	}
	blocks1 := splitDelimited(raw1, delimiter)
	blocks2 := splitDelimited(raw2, delimiter)
	if len(blocks1) == 0 || len(blocks2) == 0 {
		return nil, newParsingError(raw1, "no process data after delimiter %q", delimiter)
	}

	times1 := parseProcTimes(blocks1, pageSize)
	times2 := parseProcTimes(blocks2, pageSize)

	ticks1, err := trailingSystemTicks(blocks1[len(blocks1)-1])
	if err != nil {
		return nil, err
	}
	ticks2, err := trailingSystemTicks(blocks2[len(blocks2)-1])
	if err != nil {
		return nil, err
	}
	tickDelta := float64(ticks2 - ticks1)

	result := make(map[models.Process]models.CpuSample)
	for proc, t2 := range times2 {
		t1, ok := times1[proc]
		if !ok || tickDelta == 0 {
			continue
		}
		cpuLoad := float64(t2[0]-t1[0]) / tickDelta * 100
		result[proc] = models.CpuSample{CpuLoad: cpuLoad, Timestamp: timestamp}
	}
	return result, nil
}

var systemCPUTicksRe = regexp.MustCompile(`cpu` + strings.Repeat(`\s+(\d+)`, 10))

func trailingSystemTicks(block string) (uint64, error) {
	m := systemCPUTicksRe.FindStringSubmatch(block)
	if m == nil {
		return 0, newParsingError(block, "could not find system cpu line in trailing /proc/stat block")
	}
	var total uint64
	for _, g := range m[1:] {
		v, err := strconv.ParseUint(g, 10, 64)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

// ParseMemUsageFromProcFiles extracts RSS, in KiB, per process from one
// snapshot of concatenated /proc/<pid>/stat+/cmdline blocks.
func ParseMemUsageFromProcFiles(raw, delimiter string, timestamp time.Time) (map[models.Process]models.MemorySample, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	pageSize, err := pageSizeAndDelimiter(raw, delimiter)
	if err != nil {
		return nil, err
	}
	blocks := splitDelimited(raw, delimiter)
	if len(blocks) == 0 {
		return nil, newParsingError(raw, "could not separate processes (delimiter %q)", delimiter)
	}
	times := parseProcTimes(blocks, pageSize)
	result := make(map[models.Process]models.MemorySample, len(times))
	for proc, t := range times {
		result[proc] = models.MemorySample{MemUsage: float64(t[1] / 1024), Timestamp: timestamp}
	}
	return result, nil
}

var procIOBlockRe = regexp.MustCompile(`(?s)(\d+)\s+\(([^)]+)\)\s+\S` + strings.Repeat(`\s+(-?\d+)`, 49) +
	`\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(\w+:\s+\d+)\n(.*)`)

// ParseIOFromProcFiles extracts the seven-line /proc/<pid>/io block per
// process from concatenated stat+io+cmdline blocks.
func ParseIOFromProcFiles(blocks []string) map[models.Process]models.DiskIOProcessSample {
	out := make(map[models.Process]models.DiskIOProcessSample)
	for _, block := range blocks {
		m := procIOBlockRe.FindStringSubmatch(block)
		if m == nil {
			continue
		}
		pid, _ := strconv.Atoi(m[1])
		name := m[2]
		startTime := m[3+18]
		cmdline := strings.TrimSpace(m[len(m)-1])
		if cmdline == "" {
			cmdline = name
		}
		proc := models.Process{PID: pid, Name: name, StartTime: startTime, Command: cmdline}
		io := map[string]int64{}
		for _, line := range m[len(m)-8 : len(m)-1] {
			kv := strings.SplitN(line, ":", 2)
			if len(kv) != 2 {
				continue
			}
			v, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 64)
			if err != nil {
				continue
			}
			io[strings.TrimSpace(kv[0])] = v
		}
		out[proc] = models.DiskIOProcessSample{ReadBytes: io["read_bytes"], WriteBytes: io["write_bytes"]}
	}
	return out
}

// ParseDiskUsageFromProcFiles separates the per-process io-block output
// on the reserved delimiter's "/bin/cat: <token>" shell error and
// delegates to ParseIOFromProcFiles.
func ParseDiskUsageFromProcFiles(raw, delimiter string, timestamp time.Time) (map[models.Process]models.DiskIOProcessSample, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	parts := strings.Split(raw, "/bin/cat: "+delimiter)
	if len(parts) <= 1 {
		return nil, newParsingError(raw, "could not separate processes (delimiter %q)", delimiter)
	}
	result := ParseIOFromProcFiles(parts[1:])
	for proc, sample := range result {
		sample.Timestamp = timestamp
		result[proc] = sample
	}
	return result, nil
}

// diskioCategories describes the first 13 whitespace-separated fields of
// a /proc/diskstats line; any later fields on the line are ignored (no
// header row is printed by the device).
func diskioCategories() []Category {
	return []Category{
		{Name: "device_major_number", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "device_minor_number", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "device_name", Regex: `(\w+)`, Parse: ParseString, Key: true},
		{Name: "reads_completed", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "reads_merged", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "sectors_read", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "time_spent_reading", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "writes_completed", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "writes_merged", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "sectors_written", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "time_spent_writing", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "ios_in_progress", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "time_spent_io", Regex: `(\d+)`, Parse: ParseInt},
	}
}

// ParseProcDiskio parses /proc/diskstats into one DiskIOInfo per device.
func ParseProcDiskio(raw string, timestamp time.Time) ([]models.DiskIOInfo, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	rows, err := ParseTable(raw, diskioCategories(), nil, false)
	if err != nil {
		return nil, err
	}
	out := make([]models.DiskIOInfo, 0, len(rows))
	for name, row := range rows {
		out = append(out, models.DiskIOInfo{
			Device:          name,
			ReadsCompleted:  row["reads_completed"].(int64),
			SectorsRead:     row["sectors_read"].(int64),
			WritesCompleted: row["writes_completed"].(int64),
			SectorsWritten:  row["sectors_written"].(int64),
			TimeIOMs:        row["time_spent_io"].(int64),
			Timestamp:       timestamp,
		})
	}
	return out, nil
}

func dfCategories() []Category {
	return []Category{
		{Name: "Filesystem", Rename: "filesystem", Regex: `(\S+)`, Parse: ParseString, Key: true},
		{Name: "1K-blocks", Rename: "size", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Used", Rename: "used", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Available", Rename: "available", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Use%", Rename: "used_percent", Regex: `(\d+)%`, Parse: ParseInt},
		{Name: "Mounted", Rename: "mounted_on", Regex: `(\S+)`, Parse: ParseString},
	}
}

// ParseDF parses `df`'s default-format output into one DiskInfo per
// filesystem.
func ParseDF(raw string, timestamp time.Time) ([]models.DiskInfo, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	required := []string{"filesystem", "size", "used", "available", "used_percent", "mounted_on"}
	// df prints its last column header as two words ("Mounted on");
	// fold it to the single header token dfCategories knows.
	rows, err := ParseTable(strings.Replace(raw, "Mounted on", "Mounted", 1), dfCategories(), required, true)
	if err != nil {
		return nil, err
	}
	out := make([]models.DiskInfo, 0, len(rows))
	for _, row := range rows {
		out = append(out, models.DiskInfo{
			Filesystem: row["filesystem"].(string),
			MountPoint: row["mounted_on"].(string),
			Total:      row["size"].(int64),
			Used:       row["used"].(int64),
			Free:       row["available"].(int64),
			Timestamp:  timestamp,
		})
	}
	return out, nil
}

var (
	netDevLineRe  = regexp.MustCompile(`(\S+):` + strings.Repeat(`\s+(\d+)`, 16))
	netDevTimeRe  = regexp.MustCompile(`(\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}),(\d{6})\d*(\+\d{2}:\d{2})`)
)

// ParseProcNetDev parses `/proc/net/dev` output preceded by an ISO-8601
// timestamp line (emitted by the same command round-trip to avoid clock
// skew between the read and the parse).
func ParseProcNetDev(raw string) (map[string]models.NetworkInterfaceSample, time.Time, error) {
	timeMatch := netDevTimeRe.FindStringSubmatch(raw)
	if timeMatch == nil {
		return nil, time.Time{}, newParsingError(raw, "could not find sample timestamp")
	}
	sampleTime, err := time.Parse(time.RFC3339Nano, timeMatch[1]+"."+timeMatch[2]+timeMatch[3])
	if err != nil {
		return nil, time.Time{}, newParsingError(raw, "could not parse sample timestamp: %v", err)
	}

	out := make(map[string]models.NetworkInterfaceSample)
	for _, m := range netDevLineRe.FindAllStringSubmatch(raw, -1) {
		iface := strings.TrimSpace(m[1])
		nums := make([]int64, 16)
		for i := 0; i < 16; i++ {
			v, err := strconv.ParseInt(m[i+2], 10, 64)
			if err != nil {
				return nil, time.Time{}, err
			}
			nums[i] = v
		}
		out[iface] = models.NetworkInterfaceSample{
			Name:      iface,
			RxBytes:   nums[0],
			RxPackets: nums[1],
			RxErrors:  nums[2],
			RxDropped: nums[3],
			TxBytes:   nums[8],
			TxPackets: nums[9],
			TxErrors:  nums[10],
			TxDropped: nums[11],
			Timestamp: sampleTime,
		}
	}
	if len(out) == 0 {
		return nil, time.Time{}, newParsingError(raw, "no interfaces found in /proc/net/dev output")
	}
	return out, sampleTime, nil
}

var pressureLineRe = regexp.MustCompile(`(\w+)\s+avg10=(\d+\.\d+)\s+avg60=(\d+\.\d+)\s+avg300=(\d+\.\d+)\s+total=(\d+)`)

func parsePressureBlock(raw string) (models.PressureSomeFull, error) {
	matches := pressureLineRe.FindAllStringSubmatch(raw, -1)
	out := models.PressureSomeFull{}
	found := 0
	for _, m := range matches {
		v := models.PressureValue{}
		fmt.Sscanf(m[2], "%f", &v.Avg10)
		fmt.Sscanf(m[3], "%f", &v.Avg60)
		fmt.Sscanf(m[4], "%f", &v.Avg300)
		total, _ := strconv.ParseInt(m[5], 10, 64)
		v.Total = total
		switch m[1] {
		case "some":
			out.Some = v
			found++
		case "full":
			out.Full = v
			found++
		}
	}
	if found == 0 {
		return out, newParsingError(raw, "could not parse pressure data")
	}
	return out, nil
}

// ParsePressure parses the concatenated output of /proc/pressure/cpu,
// /proc/pressure/io, and /proc/pressure/memory (in that order, joined
// by separator in the combined command).
func ParsePressure(raw, separator string, timestamp time.Time) (models.PressureInfo, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	parts := strings.Split(raw, separator)
	if len(parts) < 3 {
		return models.PressureInfo{}, newParsingError(raw, "expected cpu/io/memory pressure sections")
	}
	cpu, err := parsePressureBlock(parts[0])
	if err != nil {
		return models.PressureInfo{}, err
	}
	ioP, err := parsePressureBlock(parts[1])
	if err != nil {
		return models.PressureInfo{}, err
	}
	mem, err := parsePressureBlock(parts[2])
	if err != nil {
		return models.PressureInfo{}, err
	}
	return models.PressureInfo{Cpu: cpu, Io: ioP, Memory: mem, Timestamp: timestamp}, nil
}

var (
	systemdPhaseRe = regexp.MustCompile(`(\d+min)?\s?(\d+\.\d+)s\s\((.*?)\)`)
	systemdTotalRe = regexp.MustCompile(`=\s(\d+min)?\s?(\d+\.\d+)s`)
)

func compactToSeconds(mins, secs string) float64 {
	total, _ := strconv.ParseFloat(secs, 64)
	if mins != "" {
		m, _ := strconv.ParseFloat(strings.TrimSuffix(mins, "min"), 64)
		total += m * 60
	}
	return total
}

// ParseSystemdAnalyze parses `systemd-analyze` output into a total boot
// duration.
func ParseSystemdAnalyze(raw string) (time.Duration, error) {
	m := systemdTotalRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, newParsingError(raw, "unable to parse total time from systemd-analyze")
	}
	seconds := compactToSeconds(m[1], m[2])
	return time.Duration(seconds * float64(time.Second)), nil
}

var procUptimeRe = regexp.MustCompile(`(\d+\.\d+)`)

// ParseProcUptime parses `/proc/uptime`'s first field into a duration.
func ParseProcUptime(raw string) (time.Duration, error) {
	m := procUptimeRe.FindString(raw)
	if m == "" {
		return 0, newParsingError(raw, "could not parse /proc/uptime")
	}
	seconds, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, newParsingError(raw, "could not parse /proc/uptime value: %v", err)
	}
	return time.Duration(seconds * float64(time.Second)), nil
}
