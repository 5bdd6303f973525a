package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

const namespace = "course_scheduler"

// Metrics 持有 api 和 worker 暴露的全部指标，每个进程使用自己的 registry
type Metrics struct {
	registry *prometheus.Registry

	httpRequests  *prometheus.CounterVec
	runsFinished  *prometheus.CounterVec
	runDuration   prometheus.Histogram
	runGeneration prometheus.Histogram
	bestFitness   prometheus.Histogram
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "已处理的 HTTP 请求数",
		}, []string{"method", "status"}),
		runsFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scheduling_runs_finished_total",
			Help:      "已结束的排课运行数",
		}, []string{"status", "stop_reason"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduling_run_duration_seconds",
			Help:      "排课运行耗时",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12),
		}),
		runGeneration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduling_run_generations",
			Help:      "排课运行结束时的代数",
			Buckets:   prometheus.ExponentialBuckets(25, 2, 8),
		}),
		bestFitness: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "scheduling_run_best_fitness",
			Help:      "成功运行的最优适应度",
			Buckets:   prometheus.LinearBuckets(-10, 2.5, 12),
		}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.runsFinished,
		m.runDuration,
		m.runGeneration,
		m.bestFitness,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveRequest 在 m 为 nil 时什么也不做，测试中可以不创建指标
func (m *Metrics) ObserveRequest(method string, status int) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
}

// ObserveRun 记录一次结束的运行，失败的运行没有停止原因
func (m *Metrics) ObserveRun(run *domain.SchedulingRun, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.runsFinished.WithLabelValues(string(run.Status), string(run.StopReason)).Inc()
	m.runDuration.Observe(elapsed.Seconds())
	if run.Status == domain.RunStatusSucceeded {
		m.runGeneration.Observe(float64(run.Generations))
		if run.Result != nil {
			m.bestFitness.Observe(run.Result.Fitness)
		}
	}
}
