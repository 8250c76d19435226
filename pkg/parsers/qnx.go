package parsers

import (
	"path"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/models"
)

var hogsCoreLineRe = regexp.MustCompile(`(\d+)\s+\[idle\]\s+\d+\s+\d+%\s+(\d+)%`)

// ParseHogsCPUUsage parses one run of `hogs -i 1 -s <n> -% 1000`, whose
// "[idle]" rows give the per-core idle percentage directly.
func ParseHogsCPUUsage(raw string, timestamp time.Time) (models.CpuUsage, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	matches := hogsCoreLineRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return models.CpuUsage{}, newParsingError(raw, "could not extract any cpu data")
	}
	cores := make(map[string]float64, len(matches))
	var idleSum float64
	for _, m := range matches {
		idle, _ := strconv.ParseFloat(m[2], 64)
		cores[m[1]] = 100 - idle
		idleSum += idle
	}
	load := 100 - idleSum/float64(len(matches))
	return models.CpuUsage{Load: roundTo(load, 2), Cores: cores, Timestamp: timestamp}, nil
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+0.5)) / mult
}

func hogsCategories() []Category {
	return []Category{
		{Name: "PID", Rename: "pid", Regex: `(\d+)`, Parse: ParseInt, Key: true},
		{Name: "NAME", Rename: "name", Regex: `([\w/.-]+)`, Parse: baseName},
		{Name: "MSEC", Rename: "msec", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "PIDS", Rename: "pids", Regex: `(\d*\.?\d+)%`, Parse: parseFloat},
		{Name: "SYS", Rename: "sys", Regex: `(\d*\.?\d+)%`, Parse: parseFloat},
		{Name: "MEMORY", Rename: "memory", Regex: `(\d+k|N/A)[^%]\s+`, Parse: parseQnxMemoryToken},
	}
}

func baseName(s string) (any, error) { return path.Base(s), nil }

func parseFloat(s string) (any, error) {
	v, err := strconv.ParseFloat(s, 64)
	return v, err
}

func parseQnxMemoryToken(s string) (any, error) { return ConvertToInt(s), nil }

// ParseHogs parses the `hogs -i 1 -s <n>` table into a map keyed by pid.
func ParseHogs(raw string, required []string) (map[string]map[string]any, error) {
	return ParseTable(raw, hogsCategories(), required, true)
}

func pidinCategories() []Category {
	return []Category{
		{Name: "pid", Regex: `(\d+)`, Parse: ParseInt, Key: true},
		{Name: "name", Regex: `([\w/.-]+)`, Parse: baseName},
		{Name: "sid", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "start_time", Regex: `([a-zA-Z]{3}\s+\d+\s+\d{2}:\d{2})`, Parse: ParseString},
		{Name: "utime", Regex: `([\d.smhd]+)`, Parse: compactSeconds},
		{Name: "stime", Regex: `([\d.smhd]+)`, Parse: compactSeconds},
		{Name: "cutime", Regex: `([\d.smhd]+)`, Parse: compactSeconds},
		{Name: "cstime", Regex: `([\d.smhd]+)`, Parse: compactSeconds},
		{Name: "Arguments", Rename: "arguments", Regex: `(.*)`, Parse: ParseString},
	}
}

func compactSeconds(s string) (any, error) { return ConvertCompactFormatToSeconds(s), nil }

// ParsePidin parses `pidin -F "%a %t %n %A"`-style output into a map
// keyed by pid.
func ParsePidin(raw string, required []string) (map[string]map[string]any, error) {
	return ParseTable(raw, pidinCategories(), required, true)
}

// ParseHogsPidinProcWise cross-correlates a `hogs` table with a `pidin`
// table by pid, fuzzy-matching the hogs process name against the
// pidin name/arguments (edit distance <= 1) since the two tools
// truncate/format names differently.
func ParseHogsPidinProcWise(raw string, timestamp time.Time) (map[models.Process]models.CpuSample, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	hogsRows, err := ParseHogs(raw, []string{"sys", "pid", "name"})
	if err != nil {
		return nil, err
	}
	pidinRows, err := ParsePidin(raw, []string{"pid", "name", "arguments", "start_time"})
	if err != nil {
		return nil, err
	}

	nCPUs := countIdleCores(raw)
	if nCPUs == 0 {
		nCPUs = 1
	}

	result := make(map[models.Process]models.CpuSample)
	for pid, proc := range pidinRows {
		hogsProc, ok := hogsRows[pid]
		if !ok {
			continue
		}
		name, _ := hogsProc["name"].(string)
		procName, _ := proc["name"].(string)
		args, _ := proc["arguments"].(string)
		if !fuzzyContains(procName, name) && !fuzzyContains(args, name) {
			continue
		}
		p := models.Process{
			PID:       int(proc["pid"].(int64)),
			Name:      procName,
			Command:   args,
			StartTime: proc["start_time"].(string),
		}
		sys := hogsProc["sys"].(float64)
		result[p] = models.CpuSample{CpuLoad: sys / float64(nCPUs), Timestamp: timestamp}
	}
	return result, nil
}

var idleCoreRe = regexp.MustCompile(`\s\[idle\]\s`)

func countIdleCores(raw string) int {
	return len(idleCoreRe.FindAllString(raw, -1))
}

// fuzzyContains reports whether needle appears in haystack allowing for
// an edit distance of at most 1 against any equal-length window, a
// loose re-expression of the original's regex `{e<=1}` fuzzy match.
func fuzzyContains(haystack, needle string) bool {
	if needle == "" {
		return false
	}
	if strings.Contains(haystack, needle) {
		return true
	}
	n := len(needle)
	for i := 0; i+n <= len(haystack)+1 && i+n-1 <= len(haystack); i++ {
		end := i + n
		if end > len(haystack) {
			end = len(haystack)
		}
		if editDistanceAtMost1(haystack[i:end], needle) {
			return true
		}
	}
	return false
}

func editDistanceAtMost1(a, b string) bool {
	if a == b {
		return true
	}
	la, lb := len(a), len(b)
	if abs(la-lb) > 1 {
		return false
	}
	// single edit: substitution, insertion, or deletion
	if la == lb {
		diff := 0
		for i := 0; i < la; i++ {
			if a[i] != b[i] {
				diff++
				if diff > 1 {
					return false
				}
			}
		}
		return true
	}
	longer, shorter := a, b
	if lb > la {
		longer, shorter = b, a
	}
	for i := 0; i <= len(shorter); i++ {
		if longer[:i]+longer[i+1:] == shorter {
			return true
		}
	}
	return false
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var memoryPerPidRe = regexp.MustCompile(`(?i)pid=(\d+):.*?\n.*?as_stats\.rss=0x[0-9a-f]+.*?\(([\d.]+)(GB|MB|kB|B|b)?\)`)

// ParseMemoryPerPid parses the rss_pid=<pid> ... as_stats.rss=... blocks
// QNX's /proc/<pid>/vmstat files produce, converting every unit to KiB.
func ParseMemoryPerPid(raw string) (map[int]int64, error) {
	out := make(map[int]int64)
	for _, m := range memoryPerPidRe.FindAllStringSubmatch(raw, -1) {
		pid, _ := strconv.Atoi(m[1])
		value, _ := strconv.ParseFloat(m[2], 64)
		unit := strings.ToLower(m[3])
		var kb float64
		switch unit {
		case "mb":
			kb = value * 1024
		case "gb":
			kb = value * 1024 * 1024
		case "kb":
			kb = value
		default:
			kb = value / 1024
		}
		out[pid] = int64(kb + 0.5)
	}
	if len(out) == 0 {
		return nil, newParsingError(raw, "no process memory matches found")
	}
	return out, nil
}

// ParseQnxMemUsageFromProcFiles cross-correlates per-pid RSS readings
// with `pidin -f atnA` process identity.
func ParseQnxMemUsageFromProcFiles(raw string, timestamp time.Time) (map[models.Process]models.MemorySample, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	pidinRows, err := ParsePidin(raw, []string{"pid", "name", "arguments", "start_time"})
	if err != nil {
		return nil, err
	}
	perPid, err := ParseMemoryPerPid(raw)
	if err != nil {
		return nil, err
	}
	result := make(map[models.Process]models.MemorySample)
	for pid, proc := range pidinRows {
		kb, ok := perPid[int(proc["pid"].(int64))]
		if !ok {
			continue
		}
		p := models.Process{
			PID:       int(proc["pid"].(int64)),
			Name:      proc["name"].(string),
			Command:   proc["arguments"].(string),
			StartTime: proc["start_time"].(string),
		}
		_ = pid
		result[p] = models.MemorySample{MemUsage: float64(kb), Timestamp: timestamp}
	}
	return result, nil
}

var qnxVMStatRe = regexp.MustCompile(`page_count=\S+\s+\(([0-9.]+)([GMKk]B)\).*\n.*pages_free=\S+\s+\(([0-9.]+)([GMKk]B)\)`)

// ParseProcVMStat parses QNX's `/proc/vm/stats` page_count/pages_free
// lines into a SystemMemory reading.
func ParseProcVMStat(raw string, timestamp time.Time) (models.SystemMemory, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	m := qnxVMStatRe.FindStringSubmatch(raw)
	if m == nil {
		return models.SystemMemory{}, newParsingError(raw, "unable to parse memory, no page_count/pages_free match")
	}
	conv := map[string]float64{"GB": 1024 * 1024, "MB": 1024, "KB": 1, "kB": 1}
	totalVal, _ := strconv.ParseFloat(m[1], 64)
	freeVal, _ := strconv.ParseFloat(m[3], 64)
	totalKB := totalVal * conv[m[2]]
	freeKB := freeVal * conv[m[4]]
	usedKB := totalKB - freeKB
	return models.SystemMemory{
		Mem:       models.Memory{Total: int64(totalKB), Used: int64(usedKB), Free: int64(freeKB)},
		Timestamp: timestamp,
	}, nil
}

var bmetricsRe = regexp.MustCompile(`(\b\d+s)?(\d+ns\b)`)

// ParseBmetricsBootTime parses `/dev/bmetrics`'s SYS_BOOT_LOADER_END
// line, formatted "XsYns" or "Yns".
func ParseBmetricsBootTime(raw string) (time.Duration, error) {
	m := bmetricsRe.FindStringSubmatch(raw)
	if m == nil {
		return 0, newParsingError(raw, "unable to extract boot time")
	}
	var seconds int64
	if m[1] != "" {
		seconds, _ = strconv.ParseInt(strings.TrimSuffix(m[1], "s"), 10, 64)
	}
	ns, _ := strconv.ParseInt(strings.TrimSuffix(m[2], "ns"), 10, 64)
	return time.Duration(seconds)*time.Second + time.Duration(ns), nil
}

var (
	qnxBootTimeRe = regexp.MustCompile(`BootTime:(.*?) GMT (\d{4})`)
)

// ParseUptime computes uptime as the difference between `date`'s
// current time and `pidin info`'s BootTime line.
func ParseUptime(pidinInfo, dateOutput string) (time.Duration, error) {
	m := qnxBootTimeRe.FindStringSubmatch(pidinInfo)
	if m == nil {
		return 0, newParsingError(pidinInfo, "error during extracting boot time")
	}
	bootStr := strings.TrimSpace(m[1]) + " " + m[2]
	bootTime, err := time.Parse("Jan 2 15:04:05 2006", bootStr)
	if err != nil {
		return 0, newParsingError(pidinInfo, "failed to parse boot time: %v", err)
	}
	current, err := time.Parse("Mon Jan 2 15:04:05 MST 2006", strings.TrimSpace(dateOutput))
	if err != nil {
		return 0, newParsingError(dateOutput, "failed to parse current time: %v", err)
	}
	return current.Sub(bootTime), nil
}

func dfQnxCategories() []Category {
	return []Category{
		{Name: "Filesystem", Rename: "filesystem", Regex: `(\S+)`, Parse: ParseString, Key: true},
		{Name: "1K-blocks", Rename: "size", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Used", Rename: "used", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Available", Rename: "available", Regex: `(\d+)`, Parse: ParseInt},
		{Name: "Capacity", Rename: "used_percent", Regex: `(\d+)%`, Parse: ParseInt},
		{Name: "Mounted", Rename: "mounted_on", Regex: `(\S+)`, Parse: ParseString},
	}
}

// ParseDFQnx parses the QNX dialect of `df` output into one DiskInfo
// per filesystem.
func ParseDFQnx(raw string, timestamp time.Time) ([]models.DiskInfo, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	required := []string{"filesystem", "size", "used", "available", "mounted_on"}
	rows, err := ParseTable(raw, dfQnxCategories(), required, true)
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
