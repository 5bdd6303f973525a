package scheduler

import (
	"fmt"
	"math"
	"math/rand"
	"slices"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// RandomSchedule 按目录中活动的顺序，为每个活动独立地随机选择教室、时间段和负责人
func RandomSchedule(rng *rand.Rand, catalog *domain.Catalog) domain.Schedule {
	s := make(domain.Schedule, len(catalog.Activities))
	for i, act := range catalog.Activities {
		s[i] = domain.Assignment{
			Activity:    act.Name,
			Room:        randomRoom(rng, catalog),
			TimeSlot:    randomTimeSlot(rng, catalog),
			Facilitator: randomFacilitator(rng, catalog),
		}
	}
	return s
}

func randomRoom(rng *rand.Rand, catalog *domain.Catalog) string {
	return catalog.Rooms[rng.Intn(len(catalog.Rooms))].Name
}

func randomTimeSlot(rng *rand.Rand, catalog *domain.Catalog) domain.TimeSlot {
	return catalog.TimeSlots[rng.Intn(len(catalog.TimeSlots))]
}

func randomFacilitator(rng *rand.Rand, catalog *domain.Catalog) string {
	return catalog.Facilitators[rng.Intn(len(catalog.Facilitators))].Name
}

// 变异
// 每个安排的教室、时间段、负责人分别以 rate 的概率重新随机选择，返回新的排班
func Mutate(rng *rand.Rand, s domain.Schedule, catalog *domain.Catalog, rate float64) domain.Schedule {
	out := s.Clone()
	for i := range out {
		if rng.Float64() < rate {
			out[i].Room = randomRoom(rng, catalog)
		}
		if rng.Float64() < rate {
			out[i].TimeSlot = randomTimeSlot(rng, catalog)
		}
		if rng.Float64() < rate {
			out[i].Facilitator = randomFacilitator(rng, catalog)
		}
	}
	return out
}

// 单点交叉
// 切点之前的基因来自 p1，切点及之后的基因来自 p2
func Crossover(rng *rand.Rand, p1, p2 domain.Schedule) domain.Schedule {
	if len(p1) != len(p2) {
		// 两个父本都按目录顺序排列活动，长度不同说明排班已经损坏
		panic(fmt.Sprintf("scheduler: 父本长度不一致 (%d != %d)", len(p1), len(p2)))
	}
	if len(p1) == 0 {
		return domain.Schedule{}
	}
	return crossoverAt(p1, p2, rng.Intn(len(p1)))
}

func crossoverAt(p1, p2 domain.Schedule, cut int) domain.Schedule {
	child := make(domain.Schedule, len(p1))
	copy(child[:cut], p1[:cut])
	copy(child[cut:], p2[cut:])
	return child
}

// Softmax 把适应度转换为概率分布，先减去最大值避免溢出
func Softmax(fitness []float64) []float64 {
	out := make([]float64, len(fitness))
	if len(fitness) == 0 {
		return out
	}

	maxF := slices.Max(fitness)
	sum := 0.0
	for i, f := range fitness {
		out[i] = math.Exp(f - maxF)
		sum += out[i]
	}
	// 最大值对应的项为 1，所以 sum >= 1
	for i := range out {
		out[i] /= sum
	}
	return out
}

// 使用轮盘赌来进行选择
func SelectParent(rng *rand.Rand, probs []float64) int {
	pick := rng.Float64()
	partial := 0.0

	for i, p := range probs {
		partial += p
		if partial >= pick {
			return i
		}
	}

	// 浮点误差导致累计概率略小于 1 时才会运行到这里
	return len(probs) - 1
}
