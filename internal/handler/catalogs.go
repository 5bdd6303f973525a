package handler

import (
	"errors"
	"net/http"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/report"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/scheduler"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
)

func (h *Handler) CreateCatalog(w http.ResponseWriter, r *http.Request) {
	var req domain.Catalog

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateCatalog(&req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	if err := h.repository.CreateCatalog(&req); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "catalogs_name_key":
				h.errorResponse(w, r, "目录名称已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "创建目录成功", &req)
}

func (h *Handler) GetAllCatalogs(w http.ResponseWriter, r *http.Request) {
	catalogs, err := h.repository.GetAllCatalogs()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取目录列表成功", catalogs)
}

// GetSampleCatalog 返回内置的示例目录，前端可以直接把它提交到 POST /catalogs
func (h *Handler) GetSampleCatalog(w http.ResponseWriter, r *http.Request) {
	h.successResponse(w, r, "获取示例目录成功", catalog.Sample())
}

func (h *Handler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(CatalogCtx).(*domain.Catalog)
	h.successResponse(w, r, "获取目录成功", c)
}

func (h *Handler) DeleteCatalog(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(CatalogCtx).(*domain.Catalog)

	if err := h.repository.DeleteCatalog(c.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除目录成功", nil)
}

type evaluationResponse struct {
	Result          domain.FitnessResult `json:"result"`
	RoomUtilization []report.Count       `json:"roomUtilization"`
	FacilitatorLoad []report.Count       `json:"facilitatorLoad"`
}

// EvaluateSchedule 同步计算一份手工排班的适应度
func (h *Handler) EvaluateSchedule(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(CatalogCtx).(*domain.Catalog)

	var req struct {
		Schedule domain.Schedule `json:"schedule" validate:"required,dive"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := utils.ValidateSchedule(req.Schedule, c); err != nil {
		h.badRequest(w, r, err)
		return
	}

	h.successResponse(w, r, "计算适应度成功", evaluationResponse{
		Result:          scheduler.Evaluate(req.Schedule, c),
		RoomUtilization: report.RoomUtilization(req.Schedule),
		FacilitatorLoad: report.FacilitatorLoad(req.Schedule),
	})
}
