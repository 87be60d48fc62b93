package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

var appointmentColumns = []string{
	"id",
	"member_id",
	"kind",
	"start_at",
	"duration_minutes",
	"conductor",
	"state",
	"created_at",
	"updated_at",
	"completed_at",
}

type AppointmentRepository struct {
	db sqlx.ExtContext
}

func NewAppointmentRepository(db sqlx.ExtContext) *AppointmentRepository {
	return &AppointmentRepository{db: db}
}

func (r *AppointmentRepository) WithTx(tx *sqlx.Tx) *AppointmentRepository {
	return &AppointmentRepository{db: tx}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *entity.Appointment) (int, error) {
	query, args, err := sq.
		Insert("appointments").
		Columns(
			"member_id",
			"kind",
			"start_at",
			"duration_minutes",
			"conductor",
			"state",
			"created_at",
			"updated_at",
		).
		Values(
			a.MemberID,
			a.Kind,
			a.StartAt.UTC(),
			a.DurationMinutes,
			a.Conductor,
			a.State,
			a.CreatedAt,
			a.UpdatedAt,
		).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("to sql: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	return int(id), nil
}

func (r *AppointmentRepository) Update(ctx context.Context, a *entity.Appointment) error {
	query, args, err := sq.
		Update("appointments").
		Set("kind", a.Kind).
		Set("start_at", a.StartAt.UTC()).
		Set("duration_minutes", a.DurationMinutes).
		Set("conductor", a.Conductor).
		Set("state", a.State).
		Set("updated_at", a.UpdatedAt).
		Set("completed_at", a.CompletedAt).
		Where(sq.Eq{"id": a.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("to sql: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	return nil
}

// Delete removes the row. It reports whether a row existed.
func (r *AppointmentRepository) Delete(ctx context.Context, id int) (bool, error) {
	query, args, err := sq.
		Delete("appointments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("to sql: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("exec: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	return n > 0, nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id int) (*entity.Appointment, error) {
	query, args, err := sq.
		Select(appointmentColumns...).
		From("appointments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var a entity.Appointment
	if err := sqlx.GetContext(ctx, r.db, &a, query, args...); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &a, nil
}

// ListBetween returns appointments starting in [from, to). conductor may be
// empty for all conductors. With forUpdate the rows are locked until the
// surrounding transaction ends.
func (r *AppointmentRepository) ListBetween(ctx context.Context, from, to time.Time, conductor string, forUpdate bool) ([]*entity.Appointment, error) {
	cond := sq.And{
		sq.GtOrEq{"start_at": from.UTC()},
		sq.Lt{"start_at": to.UTC()},
	}
	if conductor != "" {
		cond = append(cond, sq.Eq{"conductor": conductor})
	}

	b := sq.
		Select(appointmentColumns...).
		From("appointments").
		Where(cond).
		OrderBy("start_at", "id")
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var as []*entity.Appointment
	if err := sqlx.SelectContext(ctx, r.db, &as, query, args...); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return as, nil
}

type AppointmentTypeRepository struct {
	db sqlx.ExtContext
}

func NewAppointmentTypeRepository(db sqlx.ExtContext) *AppointmentTypeRepository {
	return &AppointmentTypeRepository{db: db}
}

func (r *AppointmentTypeRepository) List(ctx context.Context) ([]*entity.AppointmentType, error) {
	query, args, err := sq.
		Select(
			"name",
			"default_duration",
			"default_conductor",
		).
		From("appointment_types").
		OrderBy("name").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var ts []*entity.AppointmentType
	if err := sqlx.SelectContext(ctx, r.db, &ts, query, args...); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return ts, nil
}

func (r *AppointmentTypeRepository) Get(ctx context.Context, name string) (*entity.AppointmentType, error) {
	query, args, err := sq.
		Select(
			"name",
			"default_duration",
			"default_conductor",
		).
		From("appointment_types").
		Where(sq.Eq{"name": name}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var t entity.AppointmentType
	if err := sqlx.GetContext(ctx, r.db, &t, query, args...); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &t, nil
}
