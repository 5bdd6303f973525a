package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
)

func TestSample(t *testing.T) {
	c := Sample()

	assert.Len(t, c.Activities, 11)
	assert.Len(t, c.Rooms, 9)
	assert.Len(t, c.TimeSlots, 6)
	assert.Len(t, c.Facilitators, 10)
	assert.Equal(t, "SLA101A", c.Activities[0].Name)
	assert.True(t, c.Activities[2].NeedsLab)
	require.NoError(t, utils.ValidateCatalog(c))

	// 每次返回新的副本
	c.Activities[0].Name = "changed"
	assert.Equal(t, "SLA101A", Sample().Activities[0].Name)
}

func TestParseRejectsInvalidCatalog(t *testing.T) {
	_, err := Parse([]byte("name: [broken"))
	assert.Error(t, err)

	_, err = Parse([]byte(`
name: unknown facilitator
activities:
  - name: A
    expectedEnrollment: 10
    preferred: [Nobody]
rooms:
  - { name: R1, capacity: 10 }
timeSlots: [S1]
facilitators:
  - { name: F1 }
`))
	assert.ErrorContains(t, err, "Nobody")

	_, err = Parse([]byte("name: empty\n"))
	assert.Error(t, err)
}

func TestMarshalAndLoadFile(t *testing.T) {
	data, err := Marshal(Sample())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "sample.yaml")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	c, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, Sample(), c)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
