package scheduler

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/sourcegraph/conc/pool"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// 父本重复时最多重新抽取的次数，超过后从其余个体中均匀选择第二个父本
const maxParentRetries = 100

type Scheduler struct {
	parameters *Parameters
	catalog    *domain.Catalog
	evaluator  *Evaluator
	rng        *rand.Rand
	seed       int64
	logger     *slog.Logger
	observer   func(stats domain.GenerationStats)
}

// candidate 把排班和它的适应度绑定在一起，二者总是一起更新
type candidate struct {
	schedule domain.Schedule
	result   domain.FitnessResult
}

func New(parameters *Parameters, catalog *domain.Catalog, logger *slog.Logger) (*Scheduler, error) {
	if err := validateCatalog(catalog); err != nil {
		return nil, err
	}
	if err := parameters.Validate(); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = slog.Default()
	}

	seed := parameters.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Scheduler{
		parameters: parameters,
		catalog:    catalog,
		evaluator:  NewEvaluator(catalog),
		rng:        rand.New(rand.NewSource(seed)),
		seed:       seed,
		logger:     logger,
	}, nil
}

// OnGeneration 注册一个回调，每一代评估完成后调用
func (s *Scheduler) OnGeneration(fn func(stats domain.GenerationStats)) {
	s.observer = fn
}

func (s *Scheduler) Evaluator() *Evaluator {
	return s.evaluator
}

/**
 * 运行遗传算法
 * 每一代：评估整个种群 -> 更新历史最优 -> 判断是否停止 -> 选择、交叉、变异生成下一代
 * ctx 被取消后不再开始新的一代，返回目前为止的最优结果
 */
func (s *Scheduler) Schedule(ctx context.Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p := s.parameters

	// 生成初始种群
	pop := make([]domain.Schedule, p.PopulationSize)
	for i := range pop {
		pop[i] = RandomSchedule(s.rng, s.catalog)
	}

	best := candidate{result: domain.FitnessResult{Fitness: -math.MaxFloat64}}
	history := make([]domain.GenerationStats, 0)
	mutationRate := p.MutationRate
	prevAvg := 0.0
	var stopReason domain.StopReason

	for gen := 0; ; gen++ {
		if gen > 0 && ctx.Err() != nil {
			stopReason = domain.StopReasonCanceled
			break
		}

		results := s.evaluatePopulation(pop)
		fitness := make([]float64, len(results))
		for i, r := range results {
			fitness[i] = r.Fitness
		}

		stats, genBestIndex := generationStats(gen, fitness, mutationRate)
		history = append(history, stats)

		// 只有严格更优时才替换，保留最早找到的最优解
		if fitness[genBestIndex] > best.result.Fitness {
			best = candidate{
				schedule: pop[genBestIndex].Clone(),
				result:   results[genBestIndex],
			}
		}

		if s.observer != nil {
			s.observer(stats)
		}
		s.logger.Debug("完成一代", "generation", gen, "best", stats.Best, "average", stats.Average, "worst", stats.Worst, "mutationRate", mutationRate)

		if reason, ok := s.shouldStop(gen, prevAvg, stats.Average); ok {
			stopReason = reason
			break
		}
		prevAvg = stats.Average

		pop = s.breed(pop, fitness, mutationRate)
		mutationRate *= p.MutationDecay
	}

	s.logger.Info("遗传算法运行结束",
		slog.Int("generations", len(history)),
		slog.Float64("bestFitness", best.result.Fitness),
		slog.String("stopReason", string(stopReason)),
		slog.Int64("seed", s.seed),
	)

	return &Result{
		Best:        best.schedule,
		BestResult:  best.result,
		Generations: len(history),
		History:     history,
		StopReason:  stopReason,
		Seed:        s.seed,
	}, nil
}

// 适应度的计算互不依赖，workers > 1 时并行计算，Wait 返回后才会统计
func (s *Scheduler) evaluatePopulation(pop []domain.Schedule) []domain.FitnessResult {
	results := make([]domain.FitnessResult, len(pop))

	if s.parameters.Workers <= 1 {
		for i := range pop {
			results[i] = s.evaluator.Evaluate(pop[i])
		}
		return results
	}

	p := pool.New().WithMaxGoroutines(s.parameters.Workers)
	for i := range pop {
		p.Go(func() {
			results[i] = s.evaluator.Evaluate(pop[i])
		})
	}
	p.Wait()

	return results
}

func generationStats(gen int, fitness []float64, mutationRate float64) (domain.GenerationStats, int) {
	bestIndex := 0
	sum := 0.0
	worst := fitness[0]

	for i, f := range fitness {
		sum += f
		if f > fitness[bestIndex] {
			bestIndex = i
		}
		if f < worst {
			worst = f
		}
	}

	return domain.GenerationStats{
		Generation:   gen,
		Best:         fitness[bestIndex],
		Average:      sum / float64(len(fitness)),
		Worst:        worst,
		MutationRate: mutationRate,
	}, bestIndex
}

func (s *Scheduler) shouldStop(gen int, prevAvg, avg float64) (domain.StopReason, bool) {
	p := s.parameters

	if p.StopPolicy == StopPolicyRelative && gen > 0 && gen >= p.MinGenerations &&
		relativeChange(prevAvg, avg) < p.ConvergenceThreshold {
		return domain.StopReasonConverged, true
	}

	// cap 策略下 MaxGenerations 一定大于 0，relative 策略下作为兜底上限
	if p.MaxGenerations > 0 && gen+1 >= p.MaxGenerations {
		return domain.StopReasonExhausted, true
	}

	return "", false
}

// 平均适应度可能为负数或 0，因此用绝对值作为分母
func relativeChange(prev, cur float64) float64 {
	if prev == 0 {
		if cur == 0 {
			return 0
		}
		return math.Inf(1)
	}
	return math.Abs(cur-prev) / math.Abs(prev)
}

// 繁殖
func (s *Scheduler) breed(pop []domain.Schedule, fitness []float64, mutationRate float64) []domain.Schedule {
	size := len(pop)
	next := make([]domain.Schedule, 0, size)

	// 保留精英
	if s.parameters.EliteCount > 0 {
		order := make([]int, size)
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(i, j int) bool {
			return fitness[order[i]] > fitness[order[j]]
		})
		for _, i := range order[:s.parameters.EliteCount] {
			next = append(next, pop[i].Clone())
		}
	}

	probs := Softmax(fitness)

	for len(next) < size {
		p1, p2 := s.selectParents(probs)

		c1 := Crossover(s.rng, pop[p1], pop[p2])
		c2 := Crossover(s.rng, pop[p2], pop[p1])

		c1 = Mutate(s.rng, c1, s.catalog, mutationRate)
		c2 = Mutate(s.rng, c2, s.catalog, mutationRate)

		next = append(next, c1)
		if len(next) < size {
			next = append(next, c2)
		}
	}

	return next
}

// 选出两个不同的父本
func (s *Scheduler) selectParents(probs []float64) (int, int) {
	for i := 0; i < maxParentRetries; i++ {
		p1 := SelectParent(s.rng, probs)
		p2 := SelectParent(s.rng, probs)
		if p1 != p2 {
			return p1, p2
		}
	}

	// 概率几乎全部集中在一个个体上
	p1 := SelectParent(s.rng, probs)
	p2 := s.rng.Intn(len(probs) - 1)
	if p2 >= p1 {
		p2++
	}
	return p1, p2
}
