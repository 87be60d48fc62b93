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

var memberColumns = []string{
	"id",
	"first_name",
	"last_name",
	"aka",
	"gender",
	"slack_id",
	"active",
	"never_ask",
	"skip_until",
	"last_service_date",
}

type MemberRepository struct {
	db sqlx.ExtContext
}

func NewMemberRepository(db sqlx.ExtContext) *MemberRepository {
	return &MemberRepository{db: db}
}

// WithTx returns a repository that runs on tx.
func (r *MemberRepository) WithTx(tx *sqlx.Tx) *MemberRepository {
	return &MemberRepository{db: tx}
}

func (r *MemberRepository) Get(ctx context.Context, id int) (*entity.Member, error) {
	b := sq.
		Select(memberColumns...).
		From("members").
		Where(sq.And{
			sq.Eq{"id": id},
			sq.Eq{"deleted_at": nil},
		})

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var m entity.Member
	if err := sqlx.GetContext(ctx, r.db, &m, query, args...); errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("get: %w", err)
	}

	return &m, nil
}

// List returns every member in id order. gender may be empty for all.
func (r *MemberRepository) List(ctx context.Context, gender entity.Gender) ([]*entity.Member, error) {
	return r.list(ctx, false, gender)
}

// ListActive returns active members in id order. gender may be empty for all.
func (r *MemberRepository) ListActive(ctx context.Context, gender entity.Gender) ([]*entity.Member, error) {
	return r.list(ctx, true, gender)
}

func (r *MemberRepository) list(ctx context.Context, activeOnly bool, gender entity.Gender) ([]*entity.Member, error) {
	cond := sq.And{sq.Eq{"deleted_at": nil}}
	if activeOnly {
		cond = append(cond, sq.Eq{"active": true})
	}
	if gender != "" {
		cond = append(cond, sq.Eq{"gender": gender})
	}

	query, args, err := sq.
		Select(memberColumns...).
		From("members").
		Where(cond).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("to sql: %w", err)
	}

	var members []*entity.Member
	if err := sqlx.SelectContext(ctx, r.db, &members, query, args...); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}

	return members, nil
}

// Update writes the fields the scheduler and the roster admin may change.
func (r *MemberRepository) Update(ctx context.Context, m *entity.Member) error {
	query, args, err := sq.
		Update("members").
		Set("aka", m.Aka).
		Set("active", m.Active).
		Set("never_ask", m.NeverAsk).
		Set("skip_until", dateArg(m.SkipUntil)).
		Set("last_service_date", dateArg(m.LastServiceDate)).
		Where(sq.And{
			sq.Eq{"id": m.ID},
			sq.Eq{"deleted_at": nil},
		}).
		ToSql()
	if err != nil {
		return fmt.Errorf("to sql: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("exec: %w", err)
	}

	return nil
}

// dateArg binds a DATE column as its calendar day in t's own location. A
// time.Time would be shifted to the connection zone first.
func dateArg(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.Format(entity.DateLayout)
}
