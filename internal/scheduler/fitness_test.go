package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

const delta = 1e-9

// 两个活动、两间教室、五个时间段、两位负责人，所有活动都不需要设备
func smallCatalog() *domain.Catalog {
	return &domain.Catalog{
		Name: "small",
		Activities: []domain.Activity{
			{Name: "A", ExpectedEnrollment: 10, Preferred: []string{"F1"}},
			{Name: "B", ExpectedEnrollment: 10, Preferred: []string{"F2"}},
		},
		Rooms: []domain.Room{
			{Name: "R1", Capacity: 10},
			{Name: "R2", Capacity: 10},
		},
		TimeSlots: []domain.TimeSlot{"S1", "S2", "S3", "S4", "S5"},
		Facilitators: []domain.Facilitator{
			{Name: "F1"},
			{Name: "F2"},
		},
	}
}

// sampleSchedule 是示例目录上的一份排班，separated 为 false 时 SLA101A 和 SLA101B 在同一教室同一时间段
func sampleSchedule(separated bool) domain.Schedule {
	s := domain.Schedule{
		{Activity: "SLA101A", Room: "Roman 201", TimeSlot: "10 AM", Facilitator: "Glen"},
		{Activity: "SLA101B", Room: "Roman 201", TimeSlot: "10 AM", Facilitator: "Lock"},
		{Activity: "SLA191A", Room: "Slater 003", TimeSlot: "12 PM", Facilitator: "Banks"},
		{Activity: "SLA191B", Room: "Frank 119", TimeSlot: "12 PM", Facilitator: "Numen"},
		{Activity: "SLA201", Room: "Loft 206", TimeSlot: "11 AM", Facilitator: "Zeldin"},
		{Activity: "SLA291", Room: "Roman 216", TimeSlot: "1 PM", Facilitator: "Singer"},
		{Activity: "SLA303", Room: "Beach 301", TimeSlot: "3 PM", Facilitator: "Glen"},
		{Activity: "SLA304", Room: "Beach 301", TimeSlot: "11 AM", Facilitator: "Uther"},
		{Activity: "SLA394", Room: "Beach 201", TimeSlot: "1 PM", Facilitator: "Tyler"},
		{Activity: "SLA449", Room: "Slater 003", TimeSlot: "2 PM", Facilitator: "Tyler"},
		{Activity: "SLA451", Room: "James 325", TimeSlot: "3 PM", Facilitator: "Banks"},
	}
	if separated {
		s[1].Room = "Loft 310"
		s[1].TimeSlot = "2 PM"
	}
	return s
}

func TestEvaluateIsPure(t *testing.T) {
	c := catalog.Sample()
	e := NewEvaluator(c)
	rng := newTestRand(1)

	for i := 0; i < 50; i++ {
		s := RandomSchedule(rng, c)
		before := s.Clone()

		first := e.Evaluate(s)
		second := e.Evaluate(s)
		third := Evaluate(s, c)

		assert.Equal(t, first, second)
		assert.Equal(t, first, third)
		assert.Equal(t, before, s, "evaluate must not modify the schedule")
	}
}

func TestEvaluateRoomConflict(t *testing.T) {
	c := smallCatalog()

	shared := domain.Schedule{
		{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: "F1"},
		{Activity: "B", Room: "R1", TimeSlot: "S1", Facilitator: "F2"},
	}
	apart := domain.Schedule{
		{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: "F1"},
		{Activity: "B", Room: "R2", TimeSlot: "S1", Facilitator: "F2"},
	}

	sharedRes := Evaluate(shared, c)
	apartRes := Evaluate(apart, c)

	assert.Equal(t, 1, sharedRes.RoomConflicts)
	assert.Equal(t, 0, apartRes.RoomConflicts)
	// 每个安排 0.3 + 0.5 + 0.2，两位负责人负载过低各 -0.4，教室冲突 -0.5 * 2
	assert.InDelta(t, 0.2, sharedRes.Fitness, delta)
	assert.InDelta(t, 1.2, apartRes.Fitness, delta)
	assert.Equal(t, 2, sharedRes.FacilitatorConflicts)
}

func TestEvaluateRoomConflictScalesWithOccupancy(t *testing.T) {
	c := smallCatalog()
	c.Activities = append(c.Activities, domain.Activity{Name: "C", ExpectedEnrollment: 10, Preferred: []string{"F1"}})

	s := domain.Schedule{
		{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: "F1"},
		{Activity: "B", Room: "R1", TimeSlot: "S1", Facilitator: "F2"},
		{Activity: "C", Room: "R1", TimeSlot: "S1", Facilitator: "F1"},
	}

	res := Evaluate(s, c)
	assert.Equal(t, 2, res.RoomConflicts)
	// A 和 C 的负责人在同一时间段重复：0.3 + 0.5 - 0.2 各两次，B 为 0.3 + 0.5 + 0.2
	// 教室冲突 -1.5，F1 负载 2 -0.8，F2 负载 1 -0.4
	assert.InDelta(t, 1.2+1.0-1.5-0.8-0.4, res.Fitness, delta)
}

func TestEvaluateFacilitatorOverload(t *testing.T) {
	c := smallCatalog()
	c.Activities = nil
	s := domain.Schedule{}
	for i, slot := range c.TimeSlots {
		name := string(rune('A' + i))
		c.Activities = append(c.Activities, domain.Activity{Name: name, ExpectedEnrollment: 10, Preferred: []string{"F1"}})
		s = append(s, domain.Assignment{Activity: name, Room: "R1", TimeSlot: slot, Facilitator: "F1"})
	}
	require.Len(t, s, 5)

	res := Evaluate(s, c)
	assert.Equal(t, 1, res.FacilitatorConflicts)
	assert.Equal(t, 0, res.RoomConflicts)
	// 5 * (0.3 + 0.5 + 0.2) - 0.5 * 5
	assert.InDelta(t, 5.0-2.5, res.Fitness, delta)
}

func TestEvaluateLowLoadExemption(t *testing.T) {
	c := &domain.Catalog{
		Activities:   []domain.Activity{{Name: "A", ExpectedEnrollment: 10, Preferred: []string{lowLoadExemptFacilitator, "Other"}}},
		Rooms:        []domain.Room{{Name: "R1", Capacity: 10}},
		TimeSlots:    []domain.TimeSlot{"S1"},
		Facilitators: []domain.Facilitator{{Name: lowLoadExemptFacilitator}, {Name: "Other"}},
	}

	exempt := Evaluate(domain.Schedule{{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: lowLoadExemptFacilitator}}, c)
	assert.Equal(t, 0, exempt.FacilitatorConflicts)
	assert.InDelta(t, 1.0, exempt.Fitness, delta)

	other := Evaluate(domain.Schedule{{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: "Other"}}, c)
	assert.Equal(t, 1, other.FacilitatorConflicts)
	assert.InDelta(t, 0.6, other.Fitness, delta)
}

func TestScoreRoomSize(t *testing.T) {
	tests := []struct {
		name       string
		capacity   int
		enrollment int
		want       float64
		violation  bool
	}{
		{"too small", 9, 10, -0.5, true},
		{"more than three times", 31, 10, -0.4, true},
		{"exactly three times", 30, 10, -0.2, true},
		{"more than one and a half times", 16, 10, -0.2, true},
		{"exactly one and a half times", 15, 10, 0.3, false},
		{"exact fit", 10, 10, 0.3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res domain.FitnessResult
			got := scoreRoomSize(&domain.Room{Capacity: tt.capacity}, &domain.Activity{ExpectedEnrollment: tt.enrollment}, &res)
			assert.InDelta(t, tt.want, got, delta)
			if tt.violation {
				assert.Equal(t, 1, res.RoomSizeViolations)
			} else {
				assert.Equal(t, 0, res.RoomSizeViolations)
			}
		})
	}
}

func TestScorePreference(t *testing.T) {
	act := &domain.Activity{Preferred: []string{"P"}, Others: []string{"O"}}

	var res domain.FitnessResult
	assert.InDelta(t, 0.5, scorePreference("P", act, &res), delta)
	assert.InDelta(t, 0.2, scorePreference("O", act, &res), delta)
	assert.Equal(t, 0, res.SpecialViolations)

	assert.InDelta(t, -0.1, scorePreference("X", act, &res), delta)
	assert.Equal(t, 1, res.SpecialViolations)
}

func TestScoreEquipment(t *testing.T) {
	tests := []struct {
		name      string
		act       domain.Activity
		room      domain.Room
		want      float64
		violation bool
	}{
		{"nothing needed", domain.Activity{}, domain.Room{}, 0, false},
		{"lab met", domain.Activity{NeedsLab: true}, domain.Room{HasLab: true}, 0.2, false},
		{"lab missing", domain.Activity{NeedsLab: true}, domain.Room{HasProjector: true}, -0.3, true},
		{"both met", domain.Activity{NeedsLab: true, NeedsProjector: true}, domain.Room{HasLab: true, HasProjector: true}, 0.2, false},
		{"one of two met", domain.Activity{NeedsLab: true, NeedsProjector: true}, domain.Room{HasProjector: true}, -0.1, true},
		{"none of two met", domain.Activity{NeedsLab: true, NeedsProjector: true}, domain.Room{}, -0.3, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res domain.FitnessResult
			got := scoreEquipment(&tt.room, &tt.act, &res)
			assert.InDelta(t, tt.want, got, delta)
			assert.Equal(t, tt.violation, res.SpecialViolations == 1)
		})
	}
}

func TestScoreSections(t *testing.T) {
	tests := []struct {
		name       string
		slotOf     map[string]int
		want       float64
		violations int
	}{
		{"same slot", map[string]int{"SLA101A": 2, "SLA101B": 2}, -0.5, 1},
		{"four apart", map[string]int{"SLA101A": 0, "SLA101B": 4}, 0.5, 0},
		{"two apart", map[string]int{"SLA101A": 1, "SLA101B": 3}, 0, 0},
		{"both pairs", map[string]int{"SLA101A": 0, "SLA101B": 5, "SLA191A": 3, "SLA191B": 3}, 0, 1},
		{"sibling missing", map[string]int{"SLA101A": 0}, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var res domain.FitnessResult
			assert.InDelta(t, tt.want, scoreSections(tt.slotOf, &res), delta)
			assert.Equal(t, tt.violations, res.SpecialViolations)
		})
	}
}

func TestScoreCrossSections(t *testing.T) {
	slotOf := map[string]int{"SLA191A": 1, "SLA101A": 0, "SLA101B": 3}
	roomOf := map[string]string{"SLA191A": "Roman 201", "SLA101A": "Frank 119", "SLA101B": "Loft 206"}

	var res domain.FitnessResult
	// 与 SLA101A 相邻但跨楼 +0.5 -0.4，与 SLA101B 隔一个时间段 +0.25
	assert.InDelta(t, 0.35, scoreCrossSections(slotOf, roomOf, &res), delta)
	assert.Equal(t, 1, res.SpecialViolations)

	// 相邻且同在 Roman/Beach 楼群时没有额外惩罚
	roomOf["SLA101A"] = "Beach 201"
	res = domain.FitnessResult{}
	assert.InDelta(t, 0.75, scoreCrossSections(slotOf, roomOf, &res), delta)
	assert.Equal(t, 0, res.SpecialViolations)

	// 同一时间段
	slotOf["SLA101B"] = 1
	res = domain.FitnessResult{}
	assert.InDelta(t, 0.25, scoreCrossSections(slotOf, roomOf, &res), delta)
	assert.Equal(t, 1, res.SpecialViolations)
}

func TestEvaluateSiblingSectionsSharingRoomAndSlot(t *testing.T) {
	c := catalog.Sample()

	together := Evaluate(sampleSchedule(false), c)
	separated := Evaluate(sampleSchedule(true), c)

	assert.GreaterOrEqual(t, together.RoomConflicts, 1)
	assert.GreaterOrEqual(t, together.SpecialViolations, 1)
	assert.Equal(t, 0, separated.RoomConflicts)
	assert.Less(t, together.Fitness, separated.Fitness)
	// 教室冲突 -1.0，同一时间段 -0.5 对比相隔四个时间段 +0.5
	assert.InDelta(t, 2.0, separated.Fitness-together.Fitness, delta)
}

func TestEvaluatePanicsOnUnknownReference(t *testing.T) {
	c := smallCatalog()

	assert.Panics(t, func() {
		Evaluate(domain.Schedule{{Activity: "Z", Room: "R1", TimeSlot: "S1", Facilitator: "F1"}}, c)
	})
	assert.Panics(t, func() {
		Evaluate(domain.Schedule{{Activity: "A", Room: "R9", TimeSlot: "S1", Facilitator: "F1"}}, c)
	})
	assert.Panics(t, func() {
		Evaluate(domain.Schedule{{Activity: "A", Room: "R1", TimeSlot: "S9", Facilitator: "F1"}}, c)
	})
	assert.Panics(t, func() {
		Evaluate(domain.Schedule{{Activity: "A", Room: "R1", TimeSlot: "S1", Facilitator: "F9"}}, c)
	})
}
