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

var dutyAssignmentColumns = []string{
	"id",
	"member_id",
	"date",
	"slot_type",
	"state",
	"created_at",
	"updated_at",
	"completed_at",
}

type DutyAssignmentRepository struct {
	db sqlx.ExtContext
}

func NewDutyAssignmentRepository(db sqlx.ExtContext) *DutyAssignmentRepository {
	return &DutyAssignmentRepository{db: db}
}

func (r *DutyAssignmentRepository) WithTx(tx *sqlx.Tx) *DutyAssignmentRepository {
	return &DutyAssignmentRepository{db: tx}
}

func (r *DutyAssignmentRepository) Create(ctx context.Context, a *entity.DutyAssignment) (int, error) {
	query, args, err := sq.
		Insert("duty_assignments").
		Columns(
			"member_id",
			"date",
			"slot_type",
			"state",
			"created_at",
			"updated_at",
		).
		Values(
			a.MemberID,
			a.Date.Format(entity.DateLayout),
			a.SlotType,
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

func (r *DutyAssignmentRepository) Update(ctx context.Context, a *entity.DutyAssignment) error {
	query, args, err := sq.
		Update("duty_assignments").
		Set("member_id", a.MemberID).
		Set("date", a.Date.Format(entity.DateLayout)).
		Set("slot_type", a.SlotType).
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
func (r *DutyAssignmentRepository) Delete(ctx context.Context, id int) (bool, error) {
	query, args, err := sq.
		Delete("duty_assignments").
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

func (r *DutyAssignmentRepository) Get(ctx context.Context, id int) (*entity.DutyAssignment, error) {
	query, args, err := sq.
		Select(dutyAssignmentColumns...).
		From("duty_assignments").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var a entity.DutyAssignment
	if err := sqlx.GetContext(ctx, r.db, &a, query, args...); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &a, nil
}

// ListForDate returns every assignment on date. With forUpdate the rows are
// locked until the surrounding transaction ends.
func (r *DutyAssignmentRepository) ListForDate(ctx context.Context, date time.Time, forUpdate bool) ([]*entity.DutyAssignment, error) {
	b := sq.
		Select(dutyAssignmentColumns...).
		From("duty_assignments").
		Where(sq.Eq{"date": date.Format(entity.DateLayout)}).
		OrderBy("id")
	if forUpdate {
		b = b.Suffix("FOR UPDATE")
	}

	return r.selectAll(ctx, b)
}

// ListActive returns assignments that are not completed.
func (r *DutyAssignmentRepository) ListActive(ctx context.Context) ([]*entity.DutyAssignment, error) {
	b := sq.
		Select(dutyAssignmentColumns...).
		From("duty_assignments").
		Where(sq.NotEq{"state": entity.StateCompleted}).
		OrderBy("date", "id")

	return r.selectAll(ctx, b)
}

// ListBetween returns assignments with from <= date < to.
func (r *DutyAssignmentRepository) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.DutyAssignment, error) {
	b := sq.
		Select(dutyAssignmentColumns...).
		From("duty_assignments").
		Where(sq.And{
			sq.GtOrEq{"date": from.Format(entity.DateLayout)},
			sq.Lt{"date": to.Format(entity.DateLayout)},
		}).
		OrderBy("date", "id")

	return r.selectAll(ctx, b)
}

func (r *DutyAssignmentRepository) selectAll(ctx context.Context, b sq.SelectBuilder) ([]*entity.DutyAssignment, error) {
	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var as []*entity.DutyAssignment
	if err := sqlx.SelectContext(ctx, r.db, &as, query, args...); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return as, nil
}
