package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/metrics"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/progress"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
)

type Handler struct {
	validate   *validator.Validate
	config     *config.Config
	repository *repository.Repository
	translator ut.Translator
	channel    *amqp.Channel
	progress   *progress.Store
	metrics    *metrics.Metrics

	Mux *chi.Mux
}

func NewHandler(cfg *config.Config, repo *repository.Repository, ch *amqp.Channel, store *progress.Store, m *metrics.Metrics) (*Handler, error) {
	// 与目录校验共用同一个 validator，这样目录校验的错误也能翻译成中文
	validate := utils.Validator()
	zh := zh.New()
	uni := ut.New(zh, zh)
	trans, _ := uni.GetTranslator("zh")
	if err := zh_translations.RegisterDefaultTranslations(validate, trans); err != nil {
		return nil, err
	}

	return &Handler{
		validate:   validate,
		config:     cfg,
		repository: repo,
		translator: trans,
		channel:    ch,
		progress:   store,
		metrics:    m,

		Mux: chi.NewRouter(),
	}, nil
}

func (h *Handler) RegisterRoutes() {
	h.Mux.Use(h.logger)
	h.Mux.Use(h.recoverer)
	// 登录态保存在 cookie 中，所以必须允许携带凭证
	h.Mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.config.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
	}))

	if h.metrics != nil {
		h.Mux.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	}

	// 认证相关
	h.Mux.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
	})

	// 以下 API 必须要在登录后才允许调用
	h.Mux.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Route("/my-info", func(r chi.Router) {
			r.Use(h.myInfo)
			r.Get("/", h.GetMyInfo)
			r.Patch("/password", h.UpdateMyPassword)
		})

		r.Route("/users", func(r chi.Router) {
			r.Use(h.RequiredRole([]domain.Role{domain.RoleAdmin}))
			r.Post("/", h.CreateUser)
			r.Get("/", h.GetAllUserInfo)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.user)
				r.Get("/", h.GetUser)
				r.With(h.myInfo).Patch("/", h.UpdateUser)
			})
		})

		r.Route("/catalogs", func(r chi.Router) {
			r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Post("/", h.CreateCatalog)
			r.Get("/", h.GetAllCatalogs)
			r.Get("/sample", h.GetSampleCatalog)
			r.Route("/{id}", func(r chi.Router) {
				r.Use(h.catalog)
				r.Get("/", h.GetCatalog)
				r.With(h.RequiredRole([]domain.Role{domain.RoleAdmin})).Delete("/", h.DeleteCatalog)
				r.Post("/evaluate", h.EvaluateSchedule)
				r.Route("/scheduling-runs", func(r chi.Router) {
					r.With(h.myInfo).Post("/", h.CreateSchedulingRun)
					r.Get("/", h.GetSchedulingRunsByCatalog)
				})
			})
		})

		r.Route("/scheduling-runs/{id}", func(r chi.Router) {
			r.Use(h.schedulingRun)
			r.Get("/", h.GetSchedulingRun)
			r.Get("/progress", h.GetSchedulingRunProgress)
			r.With(h.myInfo).With(h.preventCancelOthersRun).Post("/cancel", h.CancelSchedulingRun)
			r.Get("/report", h.GetSchedulingRunReport)
			r.With(h.myInfo).Get("/my-assignments", h.GetMyAssignments)
		})
	})
}
