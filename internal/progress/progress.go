package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/config"
	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

// ErrNoProgress 表示该运行还没有任何进度（尚未开始或者进度已过期）
var ErrNoProgress = errors.New("没有进度信息")

// Store 把每次运行的最新一代统计信息以及取消标记保存在 redis 中
type Store struct {
	rdb        *redis.Client
	expiration time.Duration
}

func NewStore(rdb *redis.Client, expiration time.Duration) *Store {
	return &Store{
		rdb:        rdb,
		expiration: expiration,
	}
}

// Connect 创建 redis 客户端并确认可以连通
func Connect(cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Redis.ConnectTimeout)*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}

func progressKey(runID int64) string {
	return fmt.Sprintf("scheduling_run_%d_progress", runID)
}

func cancelKey(runID int64) string {
	return fmt.Sprintf("scheduling_run_%d_cancel", runID)
}

func (s *Store) SetProgress(ctx context.Context, runID int64, stats domain.GenerationStats) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, progressKey(runID), data, s.expiration).Err()
}

func (s *Store) GetProgress(ctx context.Context, runID int64) (*domain.GenerationStats, error) {
	data, err := s.rdb.Get(ctx, progressKey(runID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoProgress
		}
		return nil, err
	}

	stats := &domain.GenerationStats{}
	if err := json.Unmarshal(data, stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (s *Store) RequestCancel(ctx context.Context, runID int64) error {
	return s.rdb.Set(ctx, cancelKey(runID), "1", s.expiration).Err()
}

func (s *Store) CancelRequested(ctx context.Context, runID int64) (bool, error) {
	n, err := s.rdb.Exists(ctx, cancelKey(runID)).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Clear 在运行结束后删除取消标记，进度保留到过期为止
func (s *Store) Clear(ctx context.Context, runID int64) error {
	return s.rdb.Del(ctx, cancelKey(runID)).Err()
}
