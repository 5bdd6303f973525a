package report

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

var testSchedule = domain.Schedule{
	{Activity: "A", Room: "R2", TimeSlot: "10 AM", Facilitator: "Glen"},
	{Activity: "B", Room: "R1", TimeSlot: "10 AM", Facilitator: "Lock"},
	{Activity: "C", Room: "R2", TimeSlot: "11 AM", Facilitator: "Glen"},
}

var testResult = domain.FitnessResult{
	Fitness:              3.25,
	RoomConflicts:        0,
	FacilitatorConflicts: 2,
	RoomSizeViolations:   25,
	SpecialViolations:    1,
}

func TestCounts(t *testing.T) {
	assert.Equal(t, []Count{{Name: "R1", Count: 1}, {Name: "R2", Count: 2}}, RoomUtilization(testSchedule))
	assert.Equal(t, []Count{{Name: "Glen", Count: 2}, {Name: "Lock", Count: 1}}, FacilitatorLoad(testSchedule))
	assert.Empty(t, RoomUtilization(nil))
}

func TestFacilitatorAgenda(t *testing.T) {
	agenda := FacilitatorAgenda(testSchedule, "Glen")
	assert.Equal(t, "Glen", agenda.Facilitator)
	require.Len(t, agenda.Assignments, 2)
	assert.Equal(t, "A", agenda.Assignments[0].Activity)
	assert.Equal(t, "C", agenda.Assignments[1].Activity)
	assert.Empty(t, agenda.DoubleBooked)

	doubled := append(testSchedule.Clone(), domain.Assignment{Activity: "D", Room: "R1", TimeSlot: "11 AM", Facilitator: "Glen"})
	doubled = append(doubled, domain.Assignment{Activity: "E", Room: "R3", TimeSlot: "11 AM", Facilitator: "Glen"})
	agenda = FacilitatorAgenda(doubled, "Glen")
	assert.Len(t, agenda.Assignments, 4)
	assert.Equal(t, []domain.TimeSlot{"11 AM"}, agenda.DoubleBooked)

	agenda = FacilitatorAgenda(testSchedule, "Nobody")
	assert.Empty(t, agenda.Assignments)
	assert.NotNil(t, agenda.Assignments)
}

func TestBar(t *testing.T) {
	assert.Equal(t, "", Bar(0))
	assert.Equal(t, "###", Bar(3))
	assert.Equal(t, strings.Repeat("#", 20), Bar(25))
	assert.Equal(t, "", Bar(-1))
}

func TestViolationChart(t *testing.T) {
	lines := strings.Split(strings.TrimSpace(ViolationChart(testResult)), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "Room Conflicts"))
	assert.Contains(t, lines[1], "## (2)")
	assert.Contains(t, lines[2], strings.Repeat("#", 20)+" (25)")
}

func TestWriteBestSchedule(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteBestSchedule(&buf, testSchedule, testResult))

	out := buf.String()
	assert.Contains(t, out, "Best Fitness = 3.2500")
	assert.Contains(t, out, "Facilitator Conflicts: 2")
	assert.Contains(t, out, "Activity,Room,Time,Facilitator\nA,R2,10 AM,Glen\n")
}

func TestWriteFitnessHistory(t *testing.T) {
	history := []domain.GenerationStats{
		{Generation: 0, Best: 1, Average: 0.5, Worst: -1, MutationRate: 0.01},
		{Generation: 1, Best: 2, Average: 1.25, Worst: 0, MutationRate: 0.0099},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteFitnessHistory(&buf, history))
	assert.Equal(t, "Generation,Best,Average,Worst\n0,1.0000,0.5000,-1.0000\n1,2.0000,1.2500,0.0000\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteMutationHistory(&buf, history))
	assert.Equal(t, "Generation,MutationRate\n0,0.01\n1,0.0099\n", buf.String())
}

func TestWriteAll(t *testing.T) {
	dir := OutputDir(t.TempDir(), "SLA 示例目录")
	assert.Equal(t, "sla-shi-li-mu-lu", filepath.Base(dir))

	files, err := WriteAll(dir, &Summary{
		Schedule: testSchedule,
		Result:   testResult,
		History:  []domain.GenerationStats{{Generation: 0, Best: 1}},
	})
	require.NoError(t, err)
	require.Len(t, files, 6)

	for _, f := range files {
		info, err := os.Stat(f)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}

	data, err := os.ReadFile(filepath.Join(dir, "facilitator_load.csv"))
	require.NoError(t, err)
	assert.Equal(t, "Facilitator,Count\nGlen,2\nLock,1\n", string(data))
}
