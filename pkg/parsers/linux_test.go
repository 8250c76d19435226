package parsers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jihwankim/remoteperf/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProcStat(t *testing.T) {
	raw1 := "cpu  100 0 100 800 0 0 0 0 0 0\ncpu0 50 0 50 400 0 0 0 0 0 0\n"
	raw2 := "cpu  200 0 200 1600 0 0 0 0 0 0\ncpu0 100 0 100 800 0 0 0 0 0 0\n"
	usage, err := ParseProcStat(raw1, raw2, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 20, usage.Load, 0.01)
	assert.InDelta(t, 20, usage.Cores["0"], 0.01)
}

func TestParseProcMeminfo(t *testing.T) {
	raw := "MemTotal:   1000 kB\nMemFree:    400 kB\nCached:     100 kB\n" +
		"SReclaimable: 10 kB\nBuffers:    5 kB\nShmem:      1 kB\n" +
		"MemAvailable: 500 kB\nSwapTotal:  200 kB\nSwapFree:   200 kB\n"
	mem, err := ParseProcMeminfo(raw, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1000), mem.Mem.Total)
	assert.Equal(t, int64(485), mem.Mem.Used)
}

// procStatFixtureBlock builds a single /proc/<pid>/stat + /cmdline block
// matching procStatFieldsRe: pid, (comm), state, 49 numeric fields,
// newline, cmdline. fields is keyed by 1-based /proc/pid/stat field
// number (4..52); unset fields default to 0.
func procStatFixtureBlock(pid int, comm string, fields map[int]int64, cmdline string) string {
	vals := make([]string, 49)
	for i := range vals {
		fieldNum := i + 4
		vals[i] = fmt.Sprintf("%d", fields[fieldNum])
	}
	return fmt.Sprintf("%d (%s) S %s\n%s\n", pid, comm, strings.Join(vals, " "), cmdline)
}

// scenario-2 fixture from the testable-properties scenario list: a
// single process block whose starttime (field 22) is 30 and whose rss
// (field 24, in pages) yields a 6700.0 KiB mem_usage at a 4096-byte
// page size.
func scenario2Fixture() (raw, delimiter string) {
	delimiter = "e39f7761903b"
	block := procStatFixtureBlock(1, "init", map[int]int64{
		22: 30,
		24: 1675,
	}, "/system/bin/initsecond_stage")
	raw = "4096\n" + delimiter + "\n" + block + delimiter + "\ncpu  100 0 100 800 0 0 0 0 0 0\n"
	return raw, delimiter
}

func TestParseMemUsageFromProcFilesScenario2(t *testing.T) {
	raw, delimiter := scenario2Fixture()
	samples, err := ParseMemUsageFromProcFiles(raw, delimiter, time.Now())
	require.NoError(t, err)

	proc := models.Process{PID: 1, Name: "init", Command: "/system/bin/initsecond_stage", StartTime: "30"}
	sample, ok := samples[proc]
	require.True(t, ok, "expected a sample keyed on %+v, got %+v", proc, samples)
	assert.Equal(t, 6700.0, sample.MemUsage)
}

func TestParseMemUsageFromProcFilesStartTimeIsStartTimeNotItrealvalue(t *testing.T) {
	// itrealvalue (field 21) is always 0 on modern kernels; starttime
	// (field 22) is what must end up as Process.StartTime. A block with
	// a nonzero, distinct value in each field catches a regression that
	// reads the wrong group.
	delimiter := "e39f7761903b"
	block := procStatFixtureBlock(7, "worker", map[int]int64{
		21: 999,
		22: 12345,
		24: 10,
	}, "/usr/bin/worker")
	raw := "4096\n" + delimiter + "\n" + block + delimiter + "\n"

	samples, err := ParseMemUsageFromProcFiles(raw, delimiter, time.Now())
	require.NoError(t, err)

	var found *models.Process
	for proc := range samples {
		p := proc
		found = &p
	}
	require.NotNil(t, found)
	assert.Equal(t, "12345", found.StartTime)
	assert.NotEqual(t, "999", found.StartTime)
}

func TestParseCPUUsageFromProcFiles(t *testing.T) {
	delimiter := "e39f7761903b"
	block1 := procStatFixtureBlock(1, "init", map[int]int64{14: 100, 15: 0, 22: 30}, "/system/bin/initsecond_stage")
	block2 := procStatFixtureBlock(1, "init", map[int]int64{14: 150, 15: 0, 22: 30}, "/system/bin/initsecond_stage")
	raw1 := "4096\n" + delimiter + "\n" + block1 + delimiter + "\ncpu  1000 0 0 0 0 0 0 0 0 0\n"
	raw2 := "4096\n" + delimiter + "\n" + block2 + delimiter + "\ncpu  1100 0 0 0 0 0 0 0 0 0\n"

	samples, err := ParseCPUUsageFromProcFiles(raw1, raw2, delimiter, time.Now())
	require.NoError(t, err)

	proc := models.Process{PID: 1, Name: "init", Command: "/system/bin/initsecond_stage", StartTime: "30"}
	sample, ok := samples[proc]
	require.True(t, ok)
	assert.InDelta(t, 50, sample.CpuLoad, 0.01)
}

func TestParseIOFromProcFiles(t *testing.T) {
	fields := make([]string, 49)
	for i := range fields {
		fields[i] = "0"
	}
	fields[18] = "22" // field 22: starttime

	block := "1 (init) S " + strings.Join(fields, " ") + "\n" +
		"rchar: 100\nwchar: 200\nsyscr: 1\nsyscw: 1\n" +
		"read_bytes: 4096\nwrite_bytes: 8192\ncancelled_write_bytes: 0\n" +
		"/system/bin/initsecond_stage"

	out := ParseIOFromProcFiles([]string{block})
	proc := models.Process{PID: 1, Name: "init", Command: "/system/bin/initsecond_stage", StartTime: "22"}
	sample, ok := out[proc]
	require.True(t, ok, "expected a sample keyed on %+v, got %+v", proc, out)
	assert.Equal(t, int64(4096), sample.ReadBytes)
	assert.Equal(t, int64(8192), sample.WriteBytes)
}

func TestParseProcDiskio(t *testing.T) {
	raw := "   8       0 sda 100 0 2000 50 200 0 4000 100 0 150\n"
	infos, err := ParseProcDiskio(raw, time.Now())
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "sda", infos[0].Device)
	assert.Equal(t, int64(100), infos[0].ReadsCompleted)
}
