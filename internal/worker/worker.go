package worker

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/queue"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/scheduler"
)

// Repository 是 worker 用到的持久化操作，由 *repository.Repository 实现
type Repository interface {
	MarkSchedulingRunRunning(id int64) error
	GetSchedulingRun(id int64) (*domain.SchedulingRun, error)
	GetCatalog(id int64) (*domain.Catalog, error)
	CompleteSchedulingRun(run *domain.SchedulingRun) error
	FailSchedulingRun(id int64, reason string) error
	GetUserByID(id int64) (*domain.User, error)
}

// ProgressStore 由 *progress.Store 实现
type ProgressStore interface {
	SetProgress(ctx context.Context, runID int64, stats domain.GenerationStats) error
	CancelRequested(ctx context.Context, runID int64) (bool, error)
	Clear(ctx context.Context, runID int64) error
}

// PublishFunc 把 v 投递到名为 name 的队列
type PublishFunc func(ctx context.Context, name string, v any) error

type Options struct {
	RunTimeout       time.Duration
	OperationTimeout time.Duration
	Metrics          *metrics.Metrics // 可以为 nil
}

type Worker struct {
	repo     Repository
	progress ProgressStore
	publish  PublishFunc
	opts     Options
	logger   *slog.Logger
}

func New(repo Repository, store ProgressStore, publish PublishFunc, opts Options, logger *slog.Logger) *Worker {
	return &Worker{
		repo:     repo,
		progress: store,
		publish:  publish,
		opts:     opts,
		logger:   logger,
	}
}

// Process 执行一个排课任务
// 返回 nil 表示消息可以确认，包括运行失败的情况（失败原因已经写入数据库）
func (w *Worker) Process(ctx context.Context, job domain.SchedulingJob) error {
	logger := w.logger.With("run_id", job.RunID)

	if err := w.repo.MarkSchedulingRunRunning(job.RunID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// 运行不存在或者已经被处理过，消息是重复投递的
			logger.Warn("运行不处于等待状态，跳过")
			return nil
		}
		return err
	}

	start := time.Now()
	run, err := w.repo.GetSchedulingRun(job.RunID)
	if err != nil {
		return err
	}
	defer func() {
		if run.Status == domain.RunStatusSucceeded || run.Status == domain.RunStatusFailed {
			w.opts.Metrics.ObserveRun(run, time.Since(start))
		}
	}()

	c, err := w.repo.GetCatalog(run.CatalogID)
	if err != nil {
		return w.fail(ctx, run, "", fmt.Errorf("无法读取目录: %w", err))
	}

	if err := w.run(ctx, run, c, logger); err != nil {
		return w.fail(ctx, run, c.Name, err)
	}

	logger.Info("排课运行完成", "fitness", run.Result.Fitness, "generations", run.Generations, "stop_reason", run.StopReason)
	w.notify(ctx, run, c.Name)
	w.clearProgress(ctx, run.ID)
	return nil
}

func (w *Worker) run(ctx context.Context, run *domain.SchedulingRun, c *domain.Catalog, logger *slog.Logger) error {
	params := scheduler.ParametersFromDomain(run.Parameters)
	s, err := scheduler.New(&params, c, logger)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithTimeout(ctx, w.opts.RunTimeout)
	defer cancel()

	s.OnGeneration(func(stats domain.GenerationStats) {
		opCtx, opCancel := context.WithTimeout(ctx, w.opts.OperationTimeout)
		defer opCancel()

		if err := w.progress.SetProgress(opCtx, run.ID, stats); err != nil {
			logger.Warn("无法写入进度", "error", err)
		}

		requested, err := w.progress.CancelRequested(opCtx, run.ID)
		if err != nil {
			logger.Warn("无法读取取消标记", "error", err)
			return
		}
		if requested {
			logger.Info("收到取消请求", "generation", stats.Generation)
			cancel()
		}
	})

	res, err := s.Schedule(runCtx)
	if err != nil {
		return err
	}

	run.Result = &res.BestResult
	run.Schedule = res.Best
	run.Generations = res.Generations
	run.StopReason = res.StopReason
	run.History = res.History

	return w.repo.CompleteSchedulingRun(run)
}

func (w *Worker) fail(ctx context.Context, run *domain.SchedulingRun, catalogName string, cause error) error {
	w.logger.Error("排课运行失败", "run_id", run.ID, "error", cause)

	if err := w.repo.FailSchedulingRun(run.ID, cause.Error()); err != nil {
		return errors.Join(cause, err)
	}

	run.Status = domain.RunStatusFailed
	run.Error = cause.Error()
	w.notify(ctx, run, catalogName)
	w.clearProgress(ctx, run.ID)
	return nil
}

// notify 给运行的创建者发送邮件，失败只记录日志
// 进程退出时 ctx 已经被取消，通知和清理仍然要完成
func (w *Worker) notify(ctx context.Context, run *domain.SchedulingRun, catalogName string) {
	user, err := w.repo.GetUserByID(run.CreatedBy)
	if err != nil {
		w.logger.Warn("无法获取运行创建者", "run_id", run.ID, "error", err)
		return
	}

	data := domain.RunFinishedMailData{
		FullName:    user.FullName,
		RunID:       run.ID,
		CatalogName: catalogName,
		Status:      run.Status,
		StopReason:  run.StopReason,
		Generations: run.Generations,
		Error:       run.Error,
	}
	if run.Result != nil {
		data.BestFitness = run.Result.Fitness
		data.RoomConflicts = run.Result.RoomConflicts
		data.FacilitatorConflicts = run.Result.FacilitatorConflicts
		data.RoomSizeViolations = run.Result.RoomSizeViolations
		data.SpecialViolations = run.Result.SpecialViolations
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailTypeRunFinished,
		To:   user.Email,
		Data: data,
	}

	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.OperationTimeout)
	defer cancel()

	if err := w.publish(opCtx, queue.EmailQueue, mailMessage); err != nil {
		w.logger.Warn("无法投递通知邮件", "run_id", run.ID, "error", err)
	}
}

func (w *Worker) clearProgress(ctx context.Context, runID int64) {
	opCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.opts.OperationTimeout)
	defer cancel()

	if err := w.progress.Clear(opCtx, runID); err != nil {
		w.logger.Warn("无法清除进度", "run_id", runID, "error", err)
	}
}
