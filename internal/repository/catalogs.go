package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/sysu-ecnc-dev/course-scheduler/backend/internal/domain"
)

const (
	facilitatorKindPreferred = "preferred"
	facilitatorKindOther     = "other"
)

// CreateCatalog 在一个事务中插入目录及其全部数据，各部分的顺序通过 position 保存
func (r *Repository) CreateCatalog(c *domain.Catalog) error {
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
		INSERT INTO catalogs (name, description)
		VALUES ($1, $2)
		RETURNING id, created_at, version
	`
	if err := tx.QueryRowContext(ctx, query, c.Name, c.Description).Scan(&c.ID, &c.CreatedAt, &c.Version); err != nil {
		return err
	}

	for i, act := range c.Activities {
		query := `
			INSERT INTO catalog_activities (catalog_id, position, name, expected_enrollment, needs_lab, needs_projector)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING id
		`

		var activityID int64
		params := []any{c.ID, i, act.Name, act.ExpectedEnrollment, act.NeedsLab, act.NeedsProjector}
		if err := tx.QueryRowContext(ctx, query, params...).Scan(&activityID); err != nil {
			return err
		}

		query = `
			INSERT INTO catalog_activity_facilitators (activity_id, facilitator, kind, position)
			VALUES ($1, $2, $3, $4)
		`
		for j, name := range act.Preferred {
			if _, err := tx.ExecContext(ctx, query, activityID, name, facilitatorKindPreferred, j); err != nil {
				return err
			}
		}
		for j, name := range act.Others {
			if _, err := tx.ExecContext(ctx, query, activityID, name, facilitatorKindOther, j); err != nil {
				return err
			}
		}
	}

	for i, room := range c.Rooms {
		query := `
			INSERT INTO catalog_rooms (catalog_id, position, name, capacity, has_lab, has_projector)
			VALUES ($1, $2, $3, $4, $5, $6)
		`
		if _, err := tx.ExecContext(ctx, query, c.ID, i, room.Name, room.Capacity, room.HasLab, room.HasProjector); err != nil {
			return err
		}
	}

	for i, slot := range c.TimeSlots {
		query := `
			INSERT INTO catalog_time_slots (catalog_id, position, label)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, c.ID, i, string(slot)); err != nil {
			return err
		}
	}

	for i, f := range c.Facilitators {
		query := `
			INSERT INTO catalog_facilitators (catalog_id, position, name)
			VALUES ($1, $2, $3)
		`
		if _, err := tx.ExecContext(ctx, query, c.ID, i, f.Name); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetCatalog(id int64) (*domain.Catalog, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	c := &domain.Catalog{ID: id}

	query := `
		SELECT name, description, created_at, version
		FROM catalogs WHERE id = $1
	`
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&c.Name, &c.Description, &c.CreatedAt, &c.Version); err != nil {
		return nil, err
	}

	activities, err := r.getCatalogActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Activities = activities

	if c.Rooms, err = r.getCatalogRooms(ctx, id); err != nil {
		return nil, err
	}
	if c.TimeSlots, err = r.getCatalogTimeSlots(ctx, id); err != nil {
		return nil, err
	}
	if c.Facilitators, err = r.getCatalogFacilitators(ctx, id); err != nil {
		return nil, err
	}

	return c, nil
}

func (r *Repository) getCatalogActivities(ctx context.Context, catalogID int64) ([]domain.Activity, error) {
	query := `
		SELECT
			ca.id,
			ca.name,
			ca.expected_enrollment,
			ca.needs_lab,
			ca.needs_projector,
			caf.facilitator,
			caf.kind
		FROM catalog_activities ca
		LEFT JOIN catalog_activity_facilitators caf ON ca.id = caf.activity_id
		WHERE ca.catalog_id = $1
		ORDER BY ca.position, caf.position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := make([]domain.Activity, 0)
	indexOf := make(map[int64]int) // activityID -> index in activities

	for rows.Next() {
		var row struct {
			activityID         int64
			name               string
			expectedEnrollment int
			needsLab           bool
			needsProjector     bool
			facilitator        sql.NullString
			kind               sql.NullString
		}

		dst := []any{
			&row.activityID,
			&row.name,
			&row.expectedEnrollment,
			&row.needsLab,
			&row.needsProjector,
			&row.facilitator,
			&row.kind,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}

		i, exists := indexOf[row.activityID]
		if !exists {
			activities = append(activities, domain.Activity{
				Name:               row.name,
				ExpectedEnrollment: row.expectedEnrollment,
				Preferred:          make([]string, 0),
				Others:             make([]string, 0),
				NeedsLab:           row.needsLab,
				NeedsProjector:     row.needsProjector,
			})
			i = len(activities) - 1
			indexOf[row.activityID] = i
		}

		if !row.facilitator.Valid {
			// 这个活动没有任何候选负责人
			continue
		}

		switch row.kind.String {
		case facilitatorKindPreferred:
			activities[i].Preferred = append(activities[i].Preferred, row.facilitator.String)
		case facilitatorKindOther:
			activities[i].Others = append(activities[i].Others, row.facilitator.String)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

func (r *Repository) getCatalogRooms(ctx context.Context, catalogID int64) ([]domain.Room, error) {
	query := `
		SELECT name, capacity, has_lab, has_projector
		FROM catalog_rooms WHERE catalog_id = $1
		ORDER BY position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rooms := make([]domain.Room, 0)
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.Name, &room.Capacity, &room.HasLab, &room.HasProjector); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rooms, nil
}

func (r *Repository) getCatalogTimeSlots(ctx context.Context, catalogID int64) ([]domain.TimeSlot, error) {
	query := `
		SELECT label FROM catalog_time_slots
		WHERE catalog_id = $1
		ORDER BY position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]domain.TimeSlot, 0)
	for rows.Next() {
		var label string
		if err := rows.Scan(&label); err != nil {
			return nil, err
		}
		slots = append(slots, domain.TimeSlot(label))
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return slots, nil
}

func (r *Repository) getCatalogFacilitators(ctx context.Context, catalogID int64) ([]domain.Facilitator, error) {
	query := `
		SELECT name FROM catalog_facilitators
		WHERE catalog_id = $1
		ORDER BY position
	`

	rows, err := r.dbpool.QueryContext(ctx, query, catalogID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	facilitators := make([]domain.Facilitator, 0)
	for rows.Next() {
		var f domain.Facilitator
		if err := rows.Scan(&f.Name); err != nil {
			return nil, err
		}
		facilitators = append(facilitators, f)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return facilitators, nil
}

func (r *Repository) GetAllCatalogs() ([]*domain.CatalogMeta, error) {
	query := `
		SELECT id, name, description, created_at
		FROM catalogs
		ORDER BY id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	catalogs := []*domain.CatalogMeta{}
	for rows.Next() {
		var meta domain.CatalogMeta
		if err := rows.Scan(&meta.ID, &meta.Name, &meta.Description, &meta.CreatedAt); err != nil {
			return nil, err
		}
		catalogs = append(catalogs, &meta)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return catalogs, nil
}

// DeleteCatalog 删除目录，相关的活动、教室以及排班运行记录通过外键级联删除
func (r *Repository) DeleteCatalog(id int64) error {
	query := `
		DELETE FROM catalogs WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}
