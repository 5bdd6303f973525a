package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

const schedulingRunColumns = `
	id,
	catalog_id,
	created_by,
	status,
	parameters,
	best_fitness,
	room_conflicts,
	facilitator_conflicts,
	room_size_violations,
	special_violations,
	generations,
	stop_reason,
	error,
	created_at,
	finished_at,
	version
`

func (r *Repository) CreateSchedulingRun(run *domain.SchedulingRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	parameters, err := json.Marshal(run.Parameters)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO scheduling_runs (catalog_id, created_by, status, parameters)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, version
	`

	run.Status = domain.RunStatusPending
	args := []any{run.CatalogID, run.CreatedBy, run.Status, parameters}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&run.ID, &run.CreatedAt, &run.Version); err != nil {
		return err
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSchedulingRun(row rowScanner) (*domain.SchedulingRun, error) {
	run := &domain.SchedulingRun{}

	var (
		parameters           []byte
		bestFitness          sql.NullFloat64
		roomConflicts        sql.NullInt32
		facilitatorConflicts sql.NullInt32
		roomSizeViolations   sql.NullInt32
		specialViolations    sql.NullInt32
		finishedAt           sql.NullTime
	)

	dst := []any{
		&run.ID,
		&run.CatalogID,
		&run.CreatedBy,
		&run.Status,
		&parameters,
		&bestFitness,
		&roomConflicts,
		&facilitatorConflicts,
		&roomSizeViolations,
		&specialViolations,
		&run.Generations,
		&run.StopReason,
		&run.Error,
		&run.CreatedAt,
		&finishedAt,
		&run.Version,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(parameters, &run.Parameters); err != nil {
		return nil, err
	}

	// 运行还没有结束时结果为空
	if bestFitness.Valid {
		run.Result = &domain.FitnessResult{
			Fitness:              bestFitness.Float64,
			RoomConflicts:        int(roomConflicts.Int32),
			FacilitatorConflicts: int(facilitatorConflicts.Int32),
			RoomSizeViolations:   int(roomSizeViolations.Int32),
			SpecialViolations:    int(specialViolations.Int32),
		}
	}
	if finishedAt.Valid {
		run.FinishedAt = &finishedAt.Time
	}

	return run, nil
}

// GetSchedulingRun 获取运行记录以及最优排班和每一代的统计
func (r *Repository) GetSchedulingRun(id int64) (*domain.SchedulingRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + schedulingRunColumns + ` FROM scheduling_runs WHERE id = $1`

	run, err := scanSchedulingRun(r.dbpool.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	if run.Schedule, err = r.getSchedulingRunAssignments(ctx, id); err != nil {
		return nil, err
	}
	if run.History, err = r.getSchedulingRunGenerations(ctx, id); err != nil {
		return nil, err
	}

	return run, nil
}

func (r *Repository) getSchedulingRunAssignments(ctx context.Context, runID int64) (domain.Schedule, error) {
	query := `
		SELECT activity, room, time_slot, facilitator
		FROM scheduling_run_assignments
		WHERE run_id = $1
		ORDER BY position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedule := make(domain.Schedule, 0)
	for rows.Next() {
		var a domain.Assignment
		if err := rows.Scan(&a.Activity, &a.Room, &a.TimeSlot, &a.Facilitator); err != nil {
			return nil, err
		}
		schedule = append(schedule, a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *Repository) getSchedulingRunGenerations(ctx context.Context, runID int64) ([]domain.GenerationStats, error) {
	query := `
		SELECT generation, best, average, worst, mutation_rate
		FROM scheduling_run_generations
		WHERE run_id = $1
		ORDER BY generation
	`

	rows, err := r.dbpool.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	history := make([]domain.GenerationStats, 0)
	for rows.Next() {
		var s domain.GenerationStats
		if err := rows.Scan(&s.Generation, &s.Best, &s.Average, &s.Worst, &s.MutationRate); err != nil {
			return nil, err
		}
		history = append(history, s)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return history, nil
}

// GetSchedulingRunsByCatalogID 只返回运行记录本身，不包含排班和统计
func (r *Repository) GetSchedulingRunsByCatalogID(catalogID int64) ([]*domain.SchedulingRun, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `SELECT ` + schedulingRunColumns + ` FROM scheduling_runs WHERE catalog_id = $1 ORDER BY id DESC`

	rows, err := r.dbpool.QueryContext(ctx, query, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := []*domain.SchedulingRun{}
	for rows.Next() {
		run, err := scanSchedulingRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// MarkSchedulingRunRunning 只有处于 pending 状态的运行才能开始，否则返回 sql.ErrNoRows
// 消息被重复投递时 worker 依靠这一点避免重复运行
func (r *Repository) MarkSchedulingRunRunning(id int64) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE scheduling_runs
		SET status = $1, version = version + 1
		WHERE id = $2 AND status = $3
	`

	res, err := r.dbpool.ExecContext(ctx, query, domain.RunStatusRunning, id, domain.RunStatusPending)
	if err != nil {
		return err
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// CompleteSchedulingRun 在一个事务中保存运行结果、最优排班和每一代的统计
func (r *Repository) CompleteSchedulingRun(run *domain.SchedulingRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		UPDATE scheduling_runs
		SET
			status = $1,
			best_fitness = $2,
			room_conflicts = $3,
			facilitator_conflicts = $4,
			room_size_violations = $5,
			special_violations = $6,
			generations = $7,
			stop_reason = $8,
			finished_at = NOW(),
			version = version + 1
		WHERE id = $9
		RETURNING finished_at, version
	`

	run.Status = domain.RunStatusSucceeded
	args := []any{
		run.Status,
		run.Result.Fitness,
		run.Result.RoomConflicts,
		run.Result.FacilitatorConflicts,
		run.Result.RoomSizeViolations,
		run.Result.SpecialViolations,
		run.Generations,
		run.StopReason,
		run.ID,
	}

	var finishedAt time.Time
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&finishedAt, &run.Version); err != nil {
		return err
	}
	run.FinishedAt = &finishedAt

	for i, a := range run.Schedule {
		query := `
			INSERT INTO scheduling_run_assignments (run_id, position, activity, room, time_slot, facilitator)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, run.ID, i, a.Activity, a.Room, string(a.TimeSlot), a.Facilitator); err != nil {
			return err
		}
	}

	for _, s := range run.History {
		query := `
			INSERT INTO scheduling_run_generations (run_id, generation, best, average, worst, mutation_rate)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, run.ID, s.Generation, s.Best, s.Average, s.Worst, s.MutationRate); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) FailSchedulingRun(id int64, reason string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		UPDATE scheduling_runs
		SET status = $1, error = $2, finished_at = NOW(), version = version + 1
		WHERE id = $3
	`

	if _, err := r.dbpool.ExecContext(ctx, query, domain.RunStatusFailed, reason, id); err != nil {
		return err
	}

	return nil
}
