package handler

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/queue"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

func (h *Handler) GetAllUserInfo(w http.ResponseWriter, r *http.Request) {
	users, err := h.repository.GetAllUsers()
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取用户列表成功", users)
}

func (h *Handler) GetUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserCtx).(*domain.User)
	h.successResponse(w, r, "获取用户信息成功", user)
}

// CreateUser 创建账号并通过邮件发送随机生成的初始密码
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username        string `json:"username" validate:"required,max=32"`
		FullName        string `json:"fullName" validate:"required,max=32"`
		Email           string `json:"email" validate:"required,email"`
		Role            string `json:"role" validate:"required,oneof=查看者 管理员"`
		FacilitatorName string `json:"facilitatorName" validate:"max=64"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	password := utils.GenerateRandomPassword(h.config.NewUser.PasswordLength)
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	user := &domain.User{
		Username:        req.Username,
		PasswordHash:    string(hashedPassword),
		FullName:        req.FullName,
		Email:           req.Email,
		Role:            domain.Role(req.Role),
		FacilitatorName: req.FacilitatorName,
	}

	if err := h.repository.CreateUser(user); err != nil {
		var pgErr *pgconn.PgError
		switch {
		case errors.As(err, &pgErr):
			switch pgErr.ConstraintName {
			case "users_username_key":
				h.errorResponse(w, r, "用户名已存在")
			case "users_email_key":
				h.errorResponse(w, r, "邮箱已存在")
			default:
				h.internalServerError(w, r, err)
			}
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	mailMessage := domain.MailMessage{
		Type: domain.MailTypeCreateUser,
		To:   user.Email,
		Data: domain.CreateUserMailData{
			FullName:        user.FullName,
			Username:        user.Username,
			Password:        password,
			FacilitatorName: user.FacilitatorName,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
	defer cancel()

	if _, err := queue.PublishJSON(ctx, h.channel, queue.EmailQueue, mailMessage); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "用户创建成功", user)
}

// UpdateUser 修改账号的姓名、角色、对应负责人以及启用状态，请求中没有出现的字段保持不变
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	user := r.Context().Value(UserCtx).(*domain.User)
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	var req struct {
		FullName        *string `json:"fullName" validate:"omitempty,min=1,max=32"`
		Role            *string `json:"role" validate:"omitempty,oneof=查看者 管理员"`
		FacilitatorName *string `json:"facilitatorName" validate:"omitempty,max=64"`
		IsActive        *bool   `json:"isActive"`
	}

	if err := h.readJSON(w, r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	// 管理员不能停用自己，也不能取消自己的管理员身份
	if user.ID == myInfo.ID {
		if (req.IsActive != nil && !*req.IsActive) || (req.Role != nil && domain.Role(*req.Role) != domain.RoleAdmin) {
			h.errorResponse(w, r, "不能停用自己或修改自己的角色")
			return
		}
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Role != nil {
		user.Role = domain.Role(*req.Role)
	}
	if req.FacilitatorName != nil {
		user.FacilitatorName = *req.FacilitatorName
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := h.repository.UpdateUser(user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "用户信息已被修改，请刷新后重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新用户信息成功", user)
}
