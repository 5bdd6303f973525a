package scheduler

import (
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// 负载过低惩罚的特例：该负责人只带一两门课也不扣分
const lowLoadExemptFacilitator = "Tyler"

// 同一门课的两个班
var (
	introSections = [2]string{"SLA101A", "SLA101B"}
	labSections   = [2]string{"SLA191A", "SLA191B"}
)

// Evaluator 计算排班的适应度，对同一个目录可以重复使用，并发调用也是安全的
type Evaluator struct {
	index *catalogIndex
}

func NewEvaluator(catalog *domain.Catalog) *Evaluator {
	return &Evaluator{index: newCatalogIndex(catalog)}
}

// Evaluate 是 NewEvaluator(catalog).Evaluate(schedule) 的简写
func Evaluate(schedule domain.Schedule, catalog *domain.Catalog) domain.FitnessResult {
	return NewEvaluator(catalog).Evaluate(schedule)
}

type roomSlot struct {
	room string
	slot int
}

type facilitatorSlot struct {
	facilitator string
	slot        int
}

type resolvedAssignment struct {
	activity    *domain.Activity
	room        *domain.Room
	slot        int
	facilitator string
}

/**
 * 计算排班的适应度
 * 第一遍统计 (教室, 时间段) 与 (负责人, 时间段) 的占用情况以及每个负责人的总负载，
 * 第二遍对每个安排逐项打分，最后加上整张排班表层面的惩罚与奖励
 * 所有 map 的遍历都按首次出现的顺序进行，保证浮点数累加顺序固定
 */
func (e *Evaluator) Evaluate(schedule domain.Schedule) domain.FitnessResult {
	var res domain.FitnessResult

	resolved := make([]resolvedAssignment, len(schedule))
	roomOccupancy := make(map[roomSlot]int)
	roomOrder := make([]roomSlot, 0, len(schedule))
	facilitatorOccupancy := make(map[facilitatorSlot]int)
	facilitatorLoad := make(map[string]int)
	facilitatorOrder := make([]string, 0)
	slotOf := make(map[string]int, len(schedule))
	roomOf := make(map[string]string, len(schedule))

	for i, a := range schedule {
		r := resolvedAssignment{
			activity:    e.index.activity(a.Activity),
			room:        e.index.room(a.Room),
			slot:        e.index.slot(a.TimeSlot),
			facilitator: e.index.facilitator(a.Facilitator),
		}
		resolved[i] = r

		rs := roomSlot{room: a.Room, slot: r.slot}
		if roomOccupancy[rs] == 0 {
			roomOrder = append(roomOrder, rs)
		}
		roomOccupancy[rs]++

		facilitatorOccupancy[facilitatorSlot{facilitator: a.Facilitator, slot: r.slot}]++
		if facilitatorLoad[a.Facilitator] == 0 {
			facilitatorOrder = append(facilitatorOrder, a.Facilitator)
		}
		facilitatorLoad[a.Facilitator]++

		slotOf[a.Activity] = r.slot
		roomOf[a.Activity] = a.Room
	}

	for _, r := range resolved {
		res.Fitness += scoreRoomSize(r.room, r.activity, &res)
		res.Fitness += scorePreference(r.facilitator, r.activity, &res)
		res.Fitness += scoreEquipment(r.room, r.activity, &res)

		// 同一时间段内负责人是否被重复安排
		if facilitatorOccupancy[facilitatorSlot{facilitator: r.facilitator, slot: r.slot}] == 1 {
			res.Fitness += 0.2
		} else {
			res.Fitness -= 0.2
		}
	}

	// 教室冲突
	for _, rs := range roomOrder {
		if n := roomOccupancy[rs]; n > 1 {
			res.RoomConflicts += n - 1
			res.Fitness -= 0.5 * float64(n)
		}
	}

	// 负责人总负载
	for _, name := range facilitatorOrder {
		n := facilitatorLoad[name]
		switch {
		case n > 4:
			res.Fitness -= 0.5 * float64(n)
			res.FacilitatorConflicts += n - 4
		case n < 3 && name != lowLoadExemptFacilitator:
			res.Fitness -= 0.4 * float64(n)
			res.FacilitatorConflicts++
		}
	}

	res.Fitness += scoreSections(slotOf, &res)
	res.Fitness += scoreCrossSections(slotOf, roomOf, &res)

	return res
}

func scoreRoomSize(room *domain.Room, act *domain.Activity, res *domain.FitnessResult) float64 {
	capacity := float64(room.Capacity)
	enrollment := float64(act.ExpectedEnrollment)

	switch {
	case capacity < enrollment:
		res.RoomSizeViolations++
		return -0.5
	case capacity > 3*enrollment:
		res.RoomSizeViolations++
		return -0.4
	case capacity > 1.5*enrollment:
		res.RoomSizeViolations++
		return -0.2
	default:
		return 0.3
	}
}

func scorePreference(facilitator string, act *domain.Activity, res *domain.FitnessResult) float64 {
	for _, name := range act.Preferred {
		if name == facilitator {
			return 0.5
		}
	}
	for _, name := range act.Others {
		if name == facilitator {
			return 0.2
		}
	}
	res.SpecialViolations++
	return -0.1
}

func scoreEquipment(room *domain.Room, act *domain.Activity, res *domain.FitnessResult) float64 {
	needed, met := 0, 0
	if act.NeedsLab {
		needed++
		if room.HasLab {
			met++
		}
	}
	if act.NeedsProjector {
		needed++
		if room.HasProjector {
			met++
		}
	}

	switch {
	case needed == 0:
		return 0
	case met == needed:
		return 0.2
	case met == 0:
		res.SpecialViolations++
		return -0.3
	default:
		res.SpecialViolations++
		return -0.1
	}
}

// 同一门课的两个班不能在同一时间段，相隔越远越好
func scoreSections(slotOf map[string]int, res *domain.FitnessResult) float64 {
	score := 0.0
	for _, pair := range [][2]string{introSections, labSections} {
		a, okA := slotOf[pair[0]]
		b, okB := slotOf[pair[1]]
		if !okA || !okB {
			continue
		}

		switch d := abs(a - b); {
		case d == 0:
			score -= 0.5
			res.SpecialViolations++
		case d >= 4:
			score += 0.5
		}
	}
	return score
}

// SLA191 与 SLA101 的各个班之间最好相邻或隔一个时间段
func scoreCrossSections(slotOf map[string]int, roomOf map[string]string, res *domain.FitnessResult) float64 {
	score := 0.0
	for _, lab := range labSections {
		labSlot, ok := slotOf[lab]
		if !ok {
			continue
		}

		for _, intro := range introSections {
			introSlot, ok := slotOf[intro]
			if !ok {
				continue
			}

			switch abs(labSlot - introSlot) {
			case 0:
				score -= 0.25
				res.SpecialViolations++
			case 1:
				score += 0.5
				// 相邻时间段内不应在两组楼之间来回跑
				if inRomanOrBeach(roomOf[lab]) != inRomanOrBeach(roomOf[intro]) {
					score -= 0.4
					res.SpecialViolations++
				}
			case 2:
				score += 0.25
			}
		}
	}
	return score
}
