package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var assignmentRowColumns = []string{"id", "member_id", "date", "slot_type", "state", "created_at", "updated_at", "completed_at"}

func TestDutyAssignmentRepository_Create(t *testing.T) {
	db, mock := newMock(t)
	r := NewDutyAssignmentRepository(db)
	now := time.Date(2026, time.October, 19, 10, 30, 0, 0, time.UTC)
	a := &entity.DutyAssignment{
		MemberID:  2,
		Date:      time.Date(2026, time.October, 25, 0, 0, 0, 0, time.UTC),
		SlotType:  entity.SlotUndecided,
		State:     entity.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO duty_assignments")).
		WithArgs(2, "2026-10-25", "Undecided", "Draft", now, now).
		WillReturnResult(sqlmock.NewResult(7, 1))

	id, err := r.Create(context.Background(), a)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := id, 7; got != want {
		t.Fatalf("ID is %d, but want %d.", got, want)
	}
}

func TestDutyAssignmentRepository_ListForDate(t *testing.T) {
	date := time.Date(2026, time.October, 25, 0, 0, 0, 0, time.UTC)
	created := time.Date(2026, time.October, 19, 10, 30, 0, 0, time.UTC)

	for _, forUpdate := range []bool{false, true} {
		db, mock := newMock(t)
		r := NewDutyAssignmentRepository(db)

		query := "FROM duty_assignments WHERE date = ? ORDER BY id"
		if forUpdate {
			query += " FOR UPDATE"
		}
		mock.ExpectQuery(regexp.QuoteMeta(query)).
			WithArgs("2026-10-25").
			WillReturnRows(sqlmock.NewRows(assignmentRowColumns).
				AddRow(1, 2, date, "Opening", "Invited", created, created, nil).
				AddRow(2, 0, date, "Closing", "Draft", created, created, nil))

		as, err := r.ListForDate(context.Background(), date, forUpdate)
		if err != nil {
			t.Fatalf("Should not be fail: %v.", err)
		}
		if got, want := len(as), 2; got != want {
			t.Fatalf("Length is %d, but want %d.", got, want)
		}
		if got, want := as[0].SlotType, entity.SlotOpening; got != want {
			t.Fatalf("SlotType is %q, but want %q.", got, want)
		}
		if as[1].HasMember() {
			t.Fatalf("HasMember is true, but want false.")
		}
	}
}

func TestDutyAssignmentRepository_Delete(t *testing.T) {
	db, mock := newMock(t)
	r := NewDutyAssignmentRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM duty_assignments WHERE id = ?")).
		WithArgs(5).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := r.Delete(context.Background(), 5)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if ok {
		t.Fatalf("Delete reported an existing row.")
	}
}

func TestTransaction(t *testing.T) {
	db, mock := newMock(t)
	errBoom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE duty_assignments")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectRollback()

	err := Transaction(context.Background(), db, func(tx *sqlx.Tx) error {
		r := NewDutyAssignmentRepository(db).WithTx(tx)
		if err := r.Update(context.Background(), &entity.DutyAssignment{ID: 1}); err != nil {
			return err
		}
		return errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Error is %v, but want %v.", err, errBoom)
	}

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := Transaction(context.Background(), db, func(tx *sqlx.Tx) error { return nil }); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
}
