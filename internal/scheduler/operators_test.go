package scheduler

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

func newTestRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func catalogValues(c *domain.Catalog) (map[string]bool, map[domain.TimeSlot]bool, map[string]bool) {
	rooms := make(map[string]bool)
	for _, r := range c.Rooms {
		rooms[r.Name] = true
	}
	slots := make(map[domain.TimeSlot]bool)
	for _, s := range c.TimeSlots {
		slots[s] = true
	}
	facilitators := make(map[string]bool)
	for _, f := range c.Facilitators {
		facilitators[f.Name] = true
	}
	return rooms, slots, facilitators
}

func TestRandomScheduleCardinality(t *testing.T) {
	c := catalog.Sample()
	rooms, slots, facilitators := catalogValues(c)
	rng := newTestRand(7)

	for i := 0; i < 20; i++ {
		s := RandomSchedule(rng, c)
		require.Len(t, s, len(c.Activities))

		seen := make(map[string]bool)
		for j, a := range s {
			assert.Equal(t, c.Activities[j].Name, a.Activity)
			assert.False(t, seen[a.Activity], "duplicate activity %s", a.Activity)
			seen[a.Activity] = true

			assert.True(t, rooms[a.Room])
			assert.True(t, slots[a.TimeSlot])
			assert.True(t, facilitators[a.Facilitator])
		}
	}
}

func TestCrossoverWithItself(t *testing.T) {
	c := catalog.Sample()
	rng := newTestRand(3)
	p := RandomSchedule(rng, c)

	for cut := 0; cut < len(p); cut++ {
		assert.Equal(t, p, crossoverAt(p, p, cut))
	}
	for i := 0; i < 20; i++ {
		assert.Equal(t, p, Crossover(rng, p, p))
	}
}

func TestCrossoverCutPoint(t *testing.T) {
	c := catalog.Sample()
	rng := newTestRand(5)
	p1 := RandomSchedule(rng, c)
	p2 := RandomSchedule(rng, c)

	for cut := 0; cut < len(p1); cut++ {
		child := crossoverAt(p1, p2, cut)
		require.Len(t, child, len(p1))
		assert.Equal(t, p1[:cut], child[:cut])
		assert.Equal(t, p2[cut:], child[cut:])
	}

	// 子代不与父本共享底层数组
	child := Crossover(rng, p1, p2)
	before := p1.Clone()
	for i := range child {
		child[i].Room = "changed"
	}
	assert.Equal(t, before, p1)
}

func TestCrossoverEdgeCases(t *testing.T) {
	rng := newTestRand(1)

	assert.Empty(t, Crossover(rng, domain.Schedule{}, domain.Schedule{}))
	assert.Panics(t, func() {
		Crossover(rng, make(domain.Schedule, 2), make(domain.Schedule, 3))
	})
}

func TestMutateRateZero(t *testing.T) {
	c := catalog.Sample()
	rng := newTestRand(11)
	s := RandomSchedule(rng, c)

	assert.Equal(t, s, Mutate(rng, s, c, 0))
}

func TestMutateRateOne(t *testing.T) {
	c := catalog.Sample()
	rooms, slots, facilitators := catalogValues(c)

	// 占位值都不在目录中，只有被重新抽取过才会变成目录中的值
	s := make(domain.Schedule, len(c.Activities))
	for i, act := range c.Activities {
		s[i] = domain.Assignment{Activity: act.Name, Room: "?", TimeSlot: "?", Facilitator: "?"}
	}
	before := s.Clone()

	out := Mutate(newTestRand(13), s, c, 1)
	require.Len(t, out, len(s))
	for i, a := range out {
		assert.Equal(t, s[i].Activity, a.Activity)
		assert.True(t, rooms[a.Room])
		assert.True(t, slots[a.TimeSlot])
		assert.True(t, facilitators[a.Facilitator])
	}
	assert.Equal(t, before, s, "mutate must return a new schedule")
}

func TestSoftmax(t *testing.T) {
	tests := []struct {
		name    string
		fitness []float64
	}{
		{"single", []float64{-3.2}},
		{"all equal", []float64{1.5, 1.5, 1.5, 1.5}},
		{"repeated max", []float64{2, 0.5, 2, -1}},
		{"negative", []float64{-10, -20, -30}},
		{"large", []float64{1000, 999, -1000}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			probs := Softmax(tt.fitness)
			require.Len(t, probs, len(tt.fitness))

			sum := 0.0
			for _, p := range probs {
				assert.False(t, math.IsNaN(p))
				assert.GreaterOrEqual(t, p, 0.0)
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-9)
		})
	}

	assert.Equal(t, []float64{1}, Softmax([]float64{42}))

	equal := Softmax([]float64{3, 3, 3, 3})
	for _, p := range equal {
		assert.InDelta(t, 0.25, p, 1e-12)
	}

	repeated := Softmax([]float64{2, 0.5, 2, -1})
	assert.InDelta(t, repeated[0], repeated[2], 1e-12)
	assert.Greater(t, repeated[0], repeated[1])
}

func TestSelectParentFavorsFitter(t *testing.T) {
	rng := newTestRand(17)
	probs := Softmax([]float64{2, 1})

	const trials = 20000
	counts := make([]int, 2)
	for i := 0; i < trials; i++ {
		counts[SelectParent(rng, probs)]++
	}

	assert.Greater(t, counts[0], counts[1])
	// e / (1 + e) ≈ 0.731
	assert.InDelta(t, probs[0], float64(counts[0])/trials, 0.02)
}

func TestSelectParentDegenerate(t *testing.T) {
	rng := newTestRand(19)

	for i := 0; i < 100; i++ {
		assert.Equal(t, 0, SelectParent(rng, []float64{1, 0, 0}))
		assert.Equal(t, 0, SelectParent(rng, []float64{1}))
	}
}
