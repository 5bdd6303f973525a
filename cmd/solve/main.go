package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/scheduler"
)

type options struct {
	file        string
	out         string
	seed        int64
	generations int
	workers     int
	verbose     bool
}

// solve 在本地离线运行一次遗传算法并输出报告，不依赖数据库、redis 和 RabbitMQ
func main() {
	var opts options

	pflag.StringVarP(&opts.file, "file", "f", "", "目录 YAML 文件，为空时使用内置示例目录")
	pflag.StringVarP(&opts.out, "out", "o", "output", "报告输出的根目录")
	pflag.Int64VarP(&opts.seed, "seed", "s", 0, "随机数种子，0 表示使用 GA_SEED 或者当前时间")
	pflag.IntVarP(&opts.generations, "generations", "g", 0, "固定迭代代数，大于 0 时使用 cap 停止策略")
	pflag.IntVarP(&opts.workers, "workers", "w", 0, "并行计算适应度的 goroutine 数量，0 表示使用 GA_WORKERS")
	pflag.BoolVarP(&opts.verbose, "verbose", "v", false, "输出每一代的统计信息")
	pflag.Parse()

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(opts, logger); err != nil {
		logger.Error("运行失败", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(opts options, logger *slog.Logger) error {
	gaCfg, err := config.LoadGAConfig()
	if err != nil {
		return fmt.Errorf("无法读取配置: %w", err)
	}

	var c *domain.Catalog
	if opts.file == "" {
		c = catalog.Sample()
	} else {
		c, err = catalog.LoadFile(opts.file)
		if err != nil {
			return fmt.Errorf("无法加载目录: %w", err)
		}
	}

	params := scheduler.ParametersFromDomain(gaCfg.SchedulingParameters())
	if opts.seed != 0 {
		params.Seed = opts.seed
	}
	if opts.workers > 0 {
		params.Workers = opts.workers
	}
	if opts.generations > 0 {
		params.StopPolicy = scheduler.StopPolicyCap
		params.MaxGenerations = opts.generations
	}

	s, err := scheduler.New(&params, c, logger)
	if err != nil {
		return fmt.Errorf("无法创建调度器: %w", err)
	}

	// CTRL+C 时在当前这一代结束后停止，仍然输出目前的最优结果
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(gaCfg.RunTimeout)*time.Second)
	defer cancel()

	res, err := s.Schedule(ctx)
	if err != nil {
		return err
	}

	files, err := report.WriteAll(report.OutputDir(opts.out, c.Name), &report.Summary{
		Schedule: res.Best,
		Result:   res.BestResult,
		History:  res.History,
	})
	if err != nil {
		return fmt.Errorf("无法写入报告: %w", err)
	}

	fmt.Printf("Best fitness: %.4f (generations: %d, stop: %s, seed: %d)\n",
		res.BestFitness(), res.Generations, res.StopReason, res.Seed)
	fmt.Print(report.ViolationChart(res.BestResult))
	for _, f := range files {
		logger.Info("已写入报告", slog.String("path", f))
	}
	return nil
}
