package rotation

import (
	"testing"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
)

var today = time.Date(2026, time.October, 19, 9, 0, 0, 0, time.UTC)

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ids(ms []*entity.Member) []int {
	res := make([]int, len(ms))
	for i, m := range ms {
		res[i] = m.ID
	}
	return res
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestSelector_Select_NeverServedFirst(t *testing.T) {
	roster := []*entity.Member{
		{ID: 1, Gender: entity.GenderMale, Active: true, LastServiceDate: date(2026, time.March, 1)},
		{ID: 2, Gender: entity.GenderMale, Active: true},
		{ID: 3, Gender: entity.GenderMale, Active: true, LastServiceDate: date(2025, time.December, 7)},
		{ID: 4, Gender: entity.GenderMale, Active: true},
		{ID: 5, Gender: entity.GenderMale, Active: true, LastServiceDate: date(2026, time.January, 4)},
	}
	s := NewSelector(clock.NewFixed(today))

	got := ids(s.Select(roster, nil, entity.GenderMale, 10))
	if want := []int{2, 4, 3, 5, 1}; !equalInts(got, want) {
		t.Fatalf("Selected is %v, but want %v.", got, want)
	}
}

func TestSelector_Select_Exclusions(t *testing.T) {
	roster := []*entity.Member{
		{ID: 1, Gender: entity.GenderFemale, Active: false},
		{ID: 2, Gender: entity.GenderFemale, Active: true, NeverAsk: true},
		{ID: 3, Gender: entity.GenderFemale, Active: true, SkipUntil: date(2026, time.October, 20)},
		{ID: 4, Gender: entity.GenderFemale, Active: true},
		{ID: 5, Gender: entity.GenderMale, Active: true},
		{ID: 6, Gender: entity.GenderFemale, Active: true, SkipUntil: date(2026, time.October, 19)},
		{ID: 7, Gender: entity.GenderFemale, Active: true, SkipUntil: date(2026, time.October, 1)},
		{ID: 8, Gender: entity.GenderFemale, Active: true},
		{ID: 9, Gender: entity.GenderFemale, Active: true},
	}
	history := []*entity.DutyAssignment{
		{ID: 1, MemberID: 8, State: entity.StateInvited},
		{ID: 2, MemberID: 9, State: entity.StateCompleted},
		{ID: 3, MemberID: 0, State: entity.StateDraft},
	}
	s := NewSelector(clock.NewFixed(today))

	got := ids(s.Select(roster, history, entity.GenderFemale, 10))
	if want := []int{4, 6, 7, 9}; !equalInts(got, want) {
		t.Fatalf("Selected is %v, but want %v.", got, want)
	}
}

func TestSelector_Select_Count(t *testing.T) {
	roster := []*entity.Member{
		{ID: 1, Gender: entity.GenderMale, Active: true},
		{ID: 2, Gender: entity.GenderMale, Active: true},
		{ID: 3, Gender: entity.GenderMale, Active: true},
		{ID: 4, Gender: entity.GenderMale, Active: true},
	}
	s := NewSelector(clock.NewFixed(today))

	if got, want := len(s.Select(roster, nil, entity.GenderMale, DefaultCount)), 3; got != want {
		t.Fatalf("Length is %d, but want %d.", got, want)
	}
	if got, want := len(s.Select(roster, nil, entity.GenderMale, 0)), 0; got != want {
		t.Fatalf("Length is %d, but want %d.", got, want)
	}
	if got := s.Select(nil, nil, entity.GenderMale, 3); len(got) != 0 {
		t.Fatalf("Selected is %v, but want empty.", ids(got))
	}
}

func TestSelector_SelectWithContext(t *testing.T) {
	roster := []*entity.Member{
		{ID: 1, Gender: entity.GenderMale, Active: true, LastServiceDate: date(2026, time.May, 3)},
		{ID: 2, Gender: entity.GenderMale, Active: true},
	}
	s := NewSelector(clock.NewFixed(today))

	cs := s.SelectWithContext(roster, nil, entity.GenderMale, 3)
	if got, want := len(cs), 2; got != want {
		t.Fatalf("Length is %d, but want %d.", got, want)
	}
	if got, want := cs[0].Priority, 1; got != want {
		t.Fatalf("Priority is %d, but want %d.", got, want)
	}
	if got, want := cs[0].LastServiceDisplay(), "Never"; got != want {
		t.Fatalf("Display is %q, but want %q.", got, want)
	}
	if got, want := cs[1].LastServiceDisplay(), "2026-05-03"; got != want {
		t.Fatalf("Display is %q, but want %q.", got, want)
	}
}
