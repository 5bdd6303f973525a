package seed

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/catalog"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/utils"
	"golang.org/x/crypto/bcrypt"
)

// CatalogSize 描述随机目录的规模
type CatalogSize struct {
	Activities   int
	Rooms        int
	TimeSlots    int
	Facilitators int
}

// insertCatalog 插入一个目录，同名目录已存在时跳过并返回 false
func insertCatalog(r *repository.Repository, c *domain.Catalog) (bool, error) {
	if err := r.CreateCatalog(c); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "catalogs_name_key" {
			slog.Warn("目录已存在，跳过", "name", c.Name)
			return false, nil
		}
		return false, err
	}

	slog.Info("插入目录成功", "id", c.ID, "name", c.Name, "activities", len(c.Activities))
	return true, nil
}

// SeedSample 插入内置的示例目录
func SeedSample(r *repository.Repository) error {
	_, err := insertCatalog(r, catalog.Sample())
	return err
}

// SeedFromFile 从 YAML 文件中读取目录并插入
func SeedFromFile(r *repository.Repository, path string) error {
	c, err := catalog.LoadFile(path)
	if err != nil {
		return err
	}

	_, err = insertCatalog(r, c)
	return err
}

// SeedRandomCatalogs 生成 n 个随机目录并插入，返回成功插入的数量
// outDir 不为空时同时把每个目录以 YAML 格式写到该目录下，方便之后用 solve 离线运行
func SeedRandomCatalogs(r *repository.Repository, n int, size CatalogSize, outDir string) (int, error) {
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return 0, err
		}
	}

	cnt := 0
	for i := 0; i < n; i++ {
		c := utils.GenerateRandomCatalog(size.Activities, size.Rooms, size.TimeSlots, size.Facilitators)
		if err := utils.ValidateCatalog(c); err != nil {
			slog.Error("生成的随机目录不合法", "error", err)
			continue
		}

		if outDir != "" {
			data, err := catalog.Marshal(c)
			if err != nil {
				return cnt, err
			}
			path := filepath.Join(outDir, fmt.Sprintf("%s.yaml", utils.Slugify(c.Name)))
			if err := os.WriteFile(path, data, 0o644); err != nil {
				return cnt, err
			}
		}

		ok, err := insertCatalog(r, c)
		if err != nil {
			slog.Error("无法插入目录", "error", err)
			continue
		}
		if ok {
			cnt++
		}
	}

	return cnt, nil
}

// SeedRandomUsers 生成 n 个随机的查看者账户，返回成功插入的数量
func SeedRandomUsers(r *repository.Repository, n int, password, emailDomain string) int {
	cnt := 0
	for i := 0; i < n; i++ {
		user, err := utils.GenerateRandomUser(password, emailDomain)
		if err != nil {
			slog.Error("无法生成随机用户", slog.String("error", err.Error()))
			continue
		}

		if err := r.CreateUser(user); err != nil {
			slog.Error("无法插入用户", slog.String("error", err.Error()))
			continue
		}

		cnt++
	}

	return cnt
}

// SeedFacilitatorUsers 为示例目录中的每位负责人创建一个关联的查看者账户，用户名为负责人名字的小写
func SeedFacilitatorUsers(r *repository.Repository, password, emailDomain string) (int, error) {
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	cnt := 0
	for _, f := range catalog.Sample().Facilitators {
		username := strings.ToLower(f.Name)
		created, err := r.EnsureUser(&domain.User{
			Username:        username,
			PasswordHash:    string(passwordHash),
			FullName:        f.Name,
			Email:           username + "@" + emailDomain,
			Role:            domain.RoleViewer,
			FacilitatorName: f.Name,
		})
		if err != nil {
			slog.Error("无法插入负责人账户", "facilitator", f.Name, "error", err)
			continue
		}
		if created {
			cnt++
		}
	}

	return cnt, nil
}
