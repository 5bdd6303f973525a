package domain

import (
	"time"
)

type Role string

const (
	RoleViewer Role = "查看者"
	RoleAdmin  Role = "管理员"
)

// User 是系统账号，FacilitatorName 不为空时表示该账号对应目录中的一位负责人
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	PasswordHash    string    `json:"-"`
	FullName        string    `json:"fullName"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	FacilitatorName string    `json:"facilitatorName"`
	IsActive        bool      `json:"isActive"`
	CreatedAt       time.Time `json:"createdAt"`
	Version         int32     `json:"-"`
}
