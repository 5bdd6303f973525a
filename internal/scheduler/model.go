package scheduler

import (
	"errors"
	"fmt"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

type StopPolicy string

const (
	// StopPolicyRelative 在平均适应度的相对变化足够小时停止
	StopPolicyRelative StopPolicy = "relative"
	// StopPolicyCap 在达到最大迭代次数时停止
	StopPolicyCap StopPolicy = "cap"
)

// 遗传算法参数
type Parameters struct {
	PopulationSize       int        // 种群大小
	MinGenerations       int        // relative 策略下最少迭代次数
	MaxGenerations       int        // 最大迭代次数，relative 策略下为 0 表示不设上限
	StopPolicy           StopPolicy // 停止策略
	ConvergenceThreshold float64    // 平均适应度相对变化小于该值时视为收敛
	MutationRate         float64    // 初始变异概率
	MutationDecay        float64    // 每一代结束后变异概率乘以该系数，1 表示不衰减
	EliteCount           int        // 精英数量
	Workers              int        // 并行计算适应度的 goroutine 数量
	Seed                 int64      // 随机数种子，0 表示使用当前时间
}

func DefaultParameters() Parameters {
	return Parameters{
		PopulationSize:       250,
		MinGenerations:       100,
		MaxGenerations:       0,
		StopPolicy:           StopPolicyRelative,
		ConvergenceThreshold: 0.01,
		MutationRate:         0.01,
		MutationDecay:        1.0,
		EliteCount:           0,
		Workers:              1,
	}
}

func ParametersFromDomain(p domain.SchedulingParameters) Parameters {
	return Parameters{
		PopulationSize:       p.PopulationSize,
		MinGenerations:       p.MinGenerations,
		MaxGenerations:       p.MaxGenerations,
		StopPolicy:           StopPolicy(p.StopPolicy),
		ConvergenceThreshold: p.ConvergenceThreshold,
		MutationRate:         p.MutationRate,
		MutationDecay:        p.MutationDecay,
		EliteCount:           p.EliteCount,
		Workers:              p.Workers,
		Seed:                 p.Seed,
	}
}

func (p Parameters) ToDomain() domain.SchedulingParameters {
	return domain.SchedulingParameters{
		PopulationSize:       p.PopulationSize,
		MinGenerations:       p.MinGenerations,
		MaxGenerations:       p.MaxGenerations,
		StopPolicy:           string(p.StopPolicy),
		ConvergenceThreshold: p.ConvergenceThreshold,
		MutationRate:         p.MutationRate,
		MutationDecay:        p.MutationDecay,
		EliteCount:           p.EliteCount,
		Workers:              p.Workers,
		Seed:                 p.Seed,
	}
}

var (
	ErrEmptyActivities   = errors.New("活动列表为空")
	ErrEmptyRooms        = errors.New("教室列表为空")
	ErrEmptyTimeSlots    = errors.New("时间段列表为空")
	ErrEmptyFacilitators = errors.New("负责人列表为空")
	ErrInvalidParameters = errors.New("遗传算法参数不合法")
)

// 单次运行的上限，和 domain.SchedulingParameters 的 validate tag 保持一致
const (
	MaxPopulationSize = 10000
	GenerationLimit   = 100000
	MaxWorkers        = 64
)

// Validate 检查参数之间的约束，struct tag 无法表达的规则也在这里
func (p Parameters) Validate() error {
	switch {
	case p.PopulationSize < 2:
		return fmt.Errorf("%w: 种群大小至少为 2", ErrInvalidParameters)
	case p.PopulationSize > MaxPopulationSize:
		return fmt.Errorf("%w: 种群大小不能超过 %d", ErrInvalidParameters, MaxPopulationSize)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return fmt.Errorf("%w: 变异概率必须在 [0, 1] 之间", ErrInvalidParameters)
	case p.MutationDecay <= 0 || p.MutationDecay > 1:
		return fmt.Errorf("%w: 变异概率衰减系数必须在 (0, 1] 之间", ErrInvalidParameters)
	case p.EliteCount < 0 || p.EliteCount >= p.PopulationSize:
		return fmt.Errorf("%w: 精英数量必须小于种群大小", ErrInvalidParameters)
	case p.MinGenerations < 0 || p.MaxGenerations < 0:
		return fmt.Errorf("%w: 迭代次数不能为负数", ErrInvalidParameters)
	case p.MinGenerations > GenerationLimit || p.MaxGenerations > GenerationLimit:
		return fmt.Errorf("%w: 迭代次数不能超过 %d", ErrInvalidParameters, GenerationLimit)
	case p.ConvergenceThreshold < 0:
		return fmt.Errorf("%w: 收敛阈值不能为负数", ErrInvalidParameters)
	case p.Workers < 1 || p.Workers > MaxWorkers:
		return fmt.Errorf("%w: workers 必须在 [1, %d] 之间", ErrInvalidParameters, MaxWorkers)
	}

	switch p.StopPolicy {
	case StopPolicyRelative:
	case StopPolicyCap:
		if p.MaxGenerations < 1 {
			return fmt.Errorf("%w: cap 策略需要指定最大迭代次数", ErrInvalidParameters)
		}
	default:
		return fmt.Errorf("%w: 未知的停止策略 %q", ErrInvalidParameters, p.StopPolicy)
	}

	return nil
}

func validateCatalog(c *domain.Catalog) error {
	switch {
	case c == nil || len(c.Activities) == 0:
		return ErrEmptyActivities
	case len(c.Rooms) == 0:
		return ErrEmptyRooms
	case len(c.TimeSlots) == 0:
		return ErrEmptyTimeSlots
	case len(c.Facilitators) == 0:
		return ErrEmptyFacilitators
	}
	return nil
}

// Result 是一次完整运行的结果，Best 为所有代中出现过的最优排班
type Result struct {
	Best        domain.Schedule
	BestResult  domain.FitnessResult
	Generations int
	History     []domain.GenerationStats
	StopReason  domain.StopReason
	Seed        int64
}

func (r *Result) BestFitness() float64 {
	return r.BestResult.Fitness
}
