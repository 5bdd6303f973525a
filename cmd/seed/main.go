package main

import (
	"flag"
	"log/slog"
	"os"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/repository"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/seed"
)

func main() {
	var op int
	var n int
	var file string
	var out string
	var size seed.CatalogSize

	flag.IntVar(&op, "op", 0, "要执行的操作 (1: 插入示例目录, 2: 从 YAML 文件插入目录, 3: 插入随机目录, 4: 插入随机用户, 5: 为示例目录的负责人创建账户)")
	flag.IntVar(&n, "n", 5, "要插入的记录数量")
	flag.StringVar(&file, "file", "", "op 为 2 时读取的 YAML 文件")
	flag.StringVar(&out, "out", "", "op 为 3 时把随机目录写成 YAML 的目录，为空则不写")
	flag.IntVar(&size.Activities, "activities", 11, "随机目录的活动数量")
	flag.IntVar(&size.Rooms, "rooms", 9, "随机目录的教室数量")
	flag.IntVar(&size.TimeSlots, "slots", 6, "随机目录的时间段数量")
	flag.IntVar(&size.Facilitators, "facilitators", 10, "随机目录的负责人数量")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 读取配置文件
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("无法读取配置文件", slog.String("error", err.Error()))
		os.Exit(1)
	}

	dbpool, err := repository.OpenDB(cfg)
	if err != nil {
		logger.Error("无法连接到数据库", "error", err)
		return
	}
	defer dbpool.Close()

	// 创建 repository
	repo := repository.NewRepository(cfg, dbpool)

	// 执行操作
	switch op {
	case 0:
		slog.Error("未指定操作")
	case 1:
		if err := seed.SeedSample(repo); err != nil {
			slog.Error("无法插入示例目录", slog.String("error", err.Error()))
		}
	case 2:
		if file == "" {
			slog.Error("请通过 -file 指定 YAML 文件")
			return
		}
		if err := seed.SeedFromFile(repo, file); err != nil {
			slog.Error("无法从文件插入目录", slog.String("file", file), slog.String("error", err.Error()))
		}
	case 3:
		if n <= 0 {
			slog.Error("请输入合法的目录数量")
			return
		}
		cnt, err := seed.SeedRandomCatalogs(repo, n, size, out)
		if err != nil {
			slog.Error("插入随机目录失败", slog.String("error", err.Error()))
		}
		slog.Info("插入随机目录成功", slog.Int("count", cnt))
	case 4:
		if n <= 0 {
			slog.Error("请输入合法的用户数量")
			return
		}
		cnt := seed.SeedRandomUsers(repo, n, cfg.Seed.User.Password, cfg.Email.UserDomain)
		slog.Info("插入用户成功", slog.Int("count", cnt))
	case 5:
		cnt, err := seed.SeedFacilitatorUsers(repo, cfg.Seed.User.Password, cfg.Email.UserDomain)
		if err != nil {
			slog.Error("无法创建负责人账户", slog.String("error", err.Error()))
			return
		}
		slog.Info("创建负责人账户成功", slog.Int("count", cnt))
	default:
		slog.Error("指定的操作非法")
	}
}
