package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/DATA-DOG/go-sqlmock"
)

var memberRowColumns = []string{"id", "first_name", "last_name", "aka", "gender", "slack_id", "active", "never_ask", "skip_until", "last_service_date"}

func TestMemberRepository_Get(t *testing.T) {
	db, mock := newMock(t)
	r := NewMemberRepository(db)
	served := time.Date(2026, time.October, 11, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM members WHERE (id = ? AND deleted_at IS NULL)")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow(2, "Jonathan", "Adams", "Jon", "M", "U02", true, false, nil, served))

	m, err := r.Get(context.Background(), 2)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := m.DisplayName(), "Jon"; got != want {
		t.Fatalf("DisplayName is %q, but want %q.", got, want)
	}
	if got, want := m.Gender, entity.GenderMale; got != want {
		t.Fatalf("Gender is %q, but want %q.", got, want)
	}
	if m.SkipUntil != nil {
		t.Fatalf("SkipUntil is %v, but want nil.", m.SkipUntil)
	}
	if m.LastServiceDate == nil || !m.LastServiceDate.Equal(served) {
		t.Fatalf("LastServiceDate is %v, but want %v.", m.LastServiceDate, served)
	}
}

func TestMemberRepository_GetNotFound(t *testing.T) {
	db, mock := newMock(t)
	r := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM members")).
		WithArgs(9).
		WillReturnRows(sqlmock.NewRows(memberRowColumns))

	m, err := r.Get(context.Background(), 9)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if m != nil {
		t.Fatalf("Member is %v, but want nil.", m)
	}
}

func TestMemberRepository_ListActive(t *testing.T) {
	db, mock := newMock(t)
	r := NewMemberRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE (deleted_at IS NULL AND active = ? AND gender = ?) ORDER BY id")).
		WithArgs(true, "F").
		WillReturnRows(sqlmock.NewRows(memberRowColumns).
			AddRow(3, "Mary", "Johnson", "", "F", "", true, false, nil, nil).
			AddRow(6, "Ann", "Baker", "", "F", "", true, true, nil, nil))

	members, err := r.ListActive(context.Background(), entity.GenderFemale)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := len(members), 2; got != want {
		t.Fatalf("Length is %d, but want %d.", got, want)
	}
	if !members[1].NeverAsk {
		t.Fatalf("NeverAsk is false, but want true.")
	}
}

func TestMemberRepository_Update(t *testing.T) {
	db, mock := newMock(t)
	r := NewMemberRepository(db)
	skip := time.Date(2026, time.November, 2, 0, 0, 0, 0, time.UTC)
	m := &entity.Member{ID: 4, Aka: "Pete", Active: true, SkipUntil: &skip}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET aka = ?, active = ?, never_ask = ?, skip_until = ?, last_service_date = ?")).
		WithArgs("Pete", true, false, "2026-11-02", nil, 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Update(context.Background(), m); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
}

func TestMemberRepository_UpdateKeepsLocalDate(t *testing.T) {
	db, mock := newMock(t)
	r := NewMemberRepository(db)
	jst := time.FixedZone("JST", 9*60*60)
	// Midnight in Tokyo is still the previous day in UTC.
	skip := time.Date(2026, time.November, 2, 0, 0, 0, 0, jst)
	served := time.Date(2026, time.October, 25, 0, 0, 0, 0, jst)
	m := &entity.Member{ID: 4, Active: true, SkipUntil: &skip, LastServiceDate: &served}

	mock.ExpectExec(regexp.QuoteMeta("UPDATE members SET")).
		WithArgs("", true, false, "2026-11-02", "2026-10-25", 4).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := r.Update(context.Background(), m); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
}
