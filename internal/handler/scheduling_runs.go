package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/progress"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/queue"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/scheduler"
)

// CreateSchedulingRun 创建一次排课运行并投递到 scheduling_queue，由 worker 异步执行
// 请求体中没有给出的参数使用 GA_ 配置中的默认值
func (h *Handler) CreateSchedulingRun(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(CatalogCtx).(*domain.Catalog)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	params := h.config.GA.SchedulingParameters()
	if r.ContentLength != 0 {
		if err := h.readJSON(w, r, &params); err != nil {
			h.badRequest(w, r, err)
			return
		}
	}
	if err := h.validate.Struct(params); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := scheduler.ParametersFromDomain(params).Validate(); err != nil {
		h.badRequest(w, r, err)
		return
	}

	run := &domain.SchedulingRun{
		CatalogID:  c.ID,
		CreatedBy:  myInfo.ID,
		Parameters: params,
	}

	if err := h.repository.CreateSchedulingRun(run); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	messageID, err := queue.PublishJSON(ctx, h.channel, queue.SchedulingQueue, domain.SchedulingJob{RunID: run.ID})
	if err != nil {
		// 投递失败的运行不会被 worker 处理，直接标记为失败
		if failErr := h.repository.FailSchedulingRun(run.ID, "投递任务失败"); failErr != nil {
			err = errors.Join(err, failErr)
		}
		h.internalServerError(w, r, err)
		return
	}
	slog.Debug("已投递排课任务", "run_id", run.ID, "message_id", messageID)

	h.successResponse(w, r, "排课任务已提交", run)
}

func (h *Handler) GetSchedulingRunsByCatalog(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(CatalogCtx).(*domain.Catalog)

	runs, err := h.repository.GetSchedulingRunsByCatalogID(c.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取排课运行列表成功", runs)
}

func (h *Handler) GetSchedulingRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(SchedulingRunCtx).(*domain.SchedulingRun)
	h.successResponse(w, r, "获取排课运行成功", run)
}

func (h *Handler) GetSchedulingRunProgress(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(SchedulingRunCtx).(*domain.SchedulingRun)

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	stats, err := h.progress.GetProgress(ctx, run.ID)
	if err != nil {
		switch {
		case errors.Is(err, progress.ErrNoProgress):
			h.errorResponse(w, r, "暂无进度信息")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "获取进度成功", stats)
}

func (h *Handler) CancelSchedulingRun(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(SchedulingRunCtx).(*domain.SchedulingRun)

	if run.Status != domain.RunStatusPending && run.Status != domain.RunStatusRunning {
		h.errorResponse(w, r, "运行已结束")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), time.Duration(h.config.Redis.OperationExpiration)*time.Second)
	defer cancel()

	if err := h.progress.RequestCancel(ctx, run.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "已请求取消", nil)
}

type runReport struct {
	Result          *domain.FitnessResult    `json:"result"`
	RoomUtilization []report.Count           `json:"roomUtilization"`
	FacilitatorLoad []report.Count           `json:"facilitatorLoad"`
	Violations      string                   `json:"violations"`
	History         []domain.GenerationStats `json:"history"`
}

func (h *Handler) GetSchedulingRunReport(w http.ResponseWriter, r *http.Request) {
	run := r.Context().Value(SchedulingRunCtx).(*domain.SchedulingRun)

	if run.Status != domain.RunStatusSucceeded || run.Result == nil {
		h.errorResponse(w, r, "运行尚未成功完成")
		return
	}

	h.successResponse(w, r, "获取报告成功", runReport{
		Result:          run.Result,
		RoomUtilization: report.RoomUtilization(run.Schedule),
		FacilitatorLoad: report.FacilitatorLoad(run.Schedule),
		Violations:      report.ViolationChart(*run.Result),
		History:         run.History,
	})
}
