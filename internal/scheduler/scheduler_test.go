package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func capParameters(seed int64, generations int) Parameters {
	p := DefaultParameters()
	p.PopulationSize = 30
	p.StopPolicy = StopPolicyCap
	p.MaxGenerations = generations
	p.Seed = seed
	return p
}

func runScheduler(t *testing.T, p Parameters, c *domain.Catalog) *Result {
	t.Helper()

	s, err := New(&p, c, discardLogger())
	require.NoError(t, err)

	res, err := s.Schedule(context.Background())
	require.NoError(t, err)
	return res
}

func TestNewRejectsEmptyCatalog(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *domain.Catalog)
		want   error
	}{
		{"no activities", func(c *domain.Catalog) { c.Activities = nil }, ErrEmptyActivities},
		{"no rooms", func(c *domain.Catalog) { c.Rooms = nil }, ErrEmptyRooms},
		{"no time slots", func(c *domain.Catalog) { c.TimeSlots = nil }, ErrEmptyTimeSlots},
		{"no facilitators", func(c *domain.Catalog) { c.Facilitators = nil }, ErrEmptyFacilitators},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := catalog.Sample()
			tt.modify(c)

			p := DefaultParameters()
			_, err := New(&p, c, discardLogger())
			assert.ErrorIs(t, err, tt.want)
		})
	}

	p := DefaultParameters()
	_, err := New(&p, nil, discardLogger())
	assert.ErrorIs(t, err, ErrEmptyActivities)
}

func TestNewRejectsInvalidParameters(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Parameters)
	}{
		{"population too small", func(p *Parameters) { p.PopulationSize = 1 }},
		{"mutation rate above one", func(p *Parameters) { p.MutationRate = 1.5 }},
		{"zero decay", func(p *Parameters) { p.MutationDecay = 0 }},
		{"too many elites", func(p *Parameters) { p.EliteCount = p.PopulationSize }},
		{"cap without limit", func(p *Parameters) { p.StopPolicy = StopPolicyCap; p.MaxGenerations = 0 }},
		{"unknown policy", func(p *Parameters) { p.StopPolicy = "forever" }},
		{"no workers", func(p *Parameters) { p.Workers = 0 }},
		{"population too large", func(p *Parameters) { p.PopulationSize = 1 << 40 }},
		{"too many generations", func(p *Parameters) { p.MinGenerations = 1 << 40 }},
		{"generation cap too large", func(p *Parameters) { p.StopPolicy = StopPolicyCap; p.MaxGenerations = GenerationLimit + 1 }},
		{"too many workers", func(p *Parameters) { p.Workers = 1 << 30 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.modify(&p)

			_, err := New(&p, catalog.Sample(), discardLogger())
			assert.ErrorIs(t, err, ErrInvalidParameters)
		})
	}
}

func TestScheduleIsReproducible(t *testing.T) {
	c := catalog.Sample()

	first := runScheduler(t, capParameters(42, 25), c)
	second := runScheduler(t, capParameters(42, 25), c)

	// 出错时 cmp.Diff 能指出具体是哪一代或哪个活动不同
	if diff := cmp.Diff(first.History, second.History); diff != "" {
		t.Errorf("history mismatch (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(first.Best, second.Best); diff != "" {
		t.Errorf("best schedule mismatch (-first +second):\n%s", diff)
	}
	assert.Equal(t, first.BestResult, second.BestResult)
	assert.Equal(t, 25, first.Generations)
	assert.Equal(t, domain.StopReasonExhausted, first.StopReason)
	assert.Equal(t, int64(42), first.Seed)
}

func TestScheduleParallelEvaluationMatchesSequential(t *testing.T) {
	c := catalog.Sample()

	sequential := runScheduler(t, capParameters(7, 15), c)

	p := capParameters(7, 15)
	p.Workers = 4
	parallel := runScheduler(t, p, c)

	if diff := cmp.Diff(sequential.History, parallel.History); diff != "" {
		t.Errorf("history mismatch (-sequential +parallel):\n%s", diff)
	}
	assert.Equal(t, sequential.BestResult, parallel.BestResult)
}

func TestScheduleKeepsBestAcrossGenerations(t *testing.T) {
	c := catalog.Sample()
	res := runScheduler(t, capParameters(99, 30), c)

	maxBest := math.Inf(-1)
	for _, stats := range res.History {
		maxBest = math.Max(maxBest, stats.Best)
		assert.LessOrEqual(t, stats.Worst, stats.Average+1e-9)
		assert.LessOrEqual(t, stats.Average, stats.Best+1e-9)
	}

	assert.Equal(t, maxBest, res.BestFitness())
	require.Len(t, res.Best, len(c.Activities))
	assert.Equal(t, res.BestResult, Evaluate(res.Best, c))
}

func TestScheduleRelativePolicyStopsAfterMinGenerations(t *testing.T) {
	p := DefaultParameters()
	p.PopulationSize = 20
	p.MinGenerations = 5
	p.ConvergenceThreshold = math.MaxFloat64
	p.Seed = 1

	res := runScheduler(t, p, catalog.Sample())

	assert.Equal(t, domain.StopReasonConverged, res.StopReason)
	assert.Equal(t, 6, res.Generations)
	assert.Len(t, res.History, 6)
}

func TestScheduleRelativePolicyWithCeiling(t *testing.T) {
	p := DefaultParameters()
	p.PopulationSize = 20
	p.MinGenerations = 100
	p.MaxGenerations = 10
	p.Seed = 1

	res := runScheduler(t, p, catalog.Sample())

	assert.Equal(t, domain.StopReasonExhausted, res.StopReason)
	assert.Equal(t, 10, res.Generations)
}

func TestScheduleElitismNeverLosesBest(t *testing.T) {
	p := capParameters(5, 20)
	p.EliteCount = 2
	p.MutationRate = 0.5

	res := runScheduler(t, p, catalog.Sample())

	for i := 1; i < len(res.History); i++ {
		assert.GreaterOrEqual(t, res.History[i].Best, res.History[i-1].Best)
	}
}

func TestScheduleMutationDecay(t *testing.T) {
	p := capParameters(3, 5)
	p.MutationRate = 0.8
	p.MutationDecay = 0.5

	res := runScheduler(t, p, catalog.Sample())

	rate := 0.8
	for _, stats := range res.History {
		assert.InDelta(t, rate, stats.MutationRate, 1e-12)
		rate *= 0.5
	}
}

func TestScheduleObserver(t *testing.T) {
	p := capParameters(8, 12)
	s, err := New(&p, catalog.Sample(), discardLogger())
	require.NoError(t, err)

	var seen []int
	s.OnGeneration(func(stats domain.GenerationStats) {
		seen = append(seen, stats.Generation)
	})

	res, err := s.Schedule(context.Background())
	require.NoError(t, err)

	require.Len(t, seen, res.Generations)
	for i, gen := range seen {
		assert.Equal(t, i, gen)
	}
}

func TestScheduleCancel(t *testing.T) {
	p := capParameters(8, 1000)
	s, err := New(&p, catalog.Sample(), discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.OnGeneration(func(stats domain.GenerationStats) {
		if stats.Generation == 2 {
			cancel()
		}
	})

	res, err := s.Schedule(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.StopReasonCanceled, res.StopReason)
	assert.Equal(t, 3, res.Generations)
	assert.NotEmpty(t, res.Best)
}

func TestScheduleCanceledBeforeStart(t *testing.T) {
	p := capParameters(8, 10)
	s, err := New(&p, catalog.Sample(), discardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = s.Schedule(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSelectParentsAreDistinct(t *testing.T) {
	p := DefaultParameters()
	p.Seed = 4
	s, err := New(&p, catalog.Sample(), discardLogger())
	require.NoError(t, err)

	// 所有概率都集中在第一个个体上
	probs := []float64{1, 0, 0}
	for i := 0; i < 20; i++ {
		p1, p2 := s.selectParents(probs)
		assert.Equal(t, 0, p1)
		assert.NotEqual(t, p1, p2)
		assert.Less(t, p2, len(probs))
	}
}

func TestRelativeChange(t *testing.T) {
	assert.InDelta(t, 0.1, relativeChange(10, 11), 1e-12)
	assert.InDelta(t, 0.1, relativeChange(-10, -11), 1e-12)
	assert.InDelta(t, 0.1, relativeChange(-10, -9), 1e-12)
	assert.Equal(t, 0.0, relativeChange(0, 0))
	assert.True(t, math.IsInf(relativeChange(0, 1), 1))
}

func TestParametersRoundTripThroughDomain(t *testing.T) {
	p := DefaultParameters()
	p.Seed = 123
	p.EliteCount = 3

	assert.Equal(t, p, ParametersFromDomain(p.ToDomain()))
}
