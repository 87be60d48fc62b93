package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/lock"
	"github.com/178inaba/duty-scheduler/memstore"
	"github.com/178inaba/duty-scheduler/service"
)

func TestDutyService_AssignMember(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 1, time.Time{})
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if !res.Created {
		t.Fatalf("Created is false, but want true.")
	}
	if got, want := res.Assignment.Date.Format(entity.DateLayout), "2026-10-25"; got != want {
		t.Fatalf("Date is %q, but want %q.", got, want)
	}
	if got, want := res.Assignment.SlotType, entity.SlotUndecided; got != want {
		t.Fatalf("SlotType is %q, but want %q.", got, want)
	}

	again, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if !again.AlreadyAssigned || again.Assignment.ID != res.Assignment.ID {
		t.Fatalf("Result is %+v, but want the existing assignment %d.", again, res.Assignment.ID)
	}

	if _, err := f.duty.AssignMember(ctx, 2, date(time.October, 25)); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if _, err := f.duty.AssignMember(ctx, 3, date(time.October, 25)); !errors.Is(err, entity.ErrSlotsFull) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrSlotsFull)
	}

	day, err := f.duty.Between(ctx, date(time.October, 25), date(time.October, 26))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := len(day), 2; got != want {
		t.Fatalf("Length is %d, but want %d.", got, want)
	}
}

func TestDutyService_AssignMember_Invalid(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.duty.AssignMember(ctx, 1, date(time.October, 18)); !errors.Is(err, entity.ErrPastDate) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrPastDate)
	}
	if _, err := f.duty.AssignMember(ctx, 99, date(time.October, 25)); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrNotFound)
	}
}

func TestDutyService_AssignMember_Concurrent(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	for id := 10; id < 20; id++ {
		f.store.AddMember(entity.Member{ID: id, FirstName: fmt.Sprintf("Member %d", id), Gender: entity.GenderMale, Active: true})
	}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		ok   int
		full int
	)
	for id := 10; id < 20; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			_, err := f.duty.AssignMember(ctx, id, date(time.October, 25))
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, entity.ErrSlotsFull):
				full++
			default:
				t.Errorf("Unexpected error: %v.", err)
			}
		}(id)
	}
	wg.Wait()

	if got, want := ok, 2; got != want {
		t.Fatalf("Assigned is %d, but want %d.", got, want)
	}
	if got, want := full, 8; got != want {
		t.Fatalf("Full is %d, but want %d.", got, want)
	}
}

func TestDutyService_SetSlotType(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	first, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	second, err := f.duty.AssignMember(ctx, 2, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	changed, err := f.duty.SetSlotType(ctx, first.Assignment.ID, entity.SlotOpening)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := len(changed), 2; got != want {
		t.Fatalf("Changed is %d, but want %d.", got, want)
	}

	other, err := f.duty.Get(ctx, second.Assignment.ID)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := other.SlotType, entity.SlotClosing; got != want {
		t.Fatalf("SlotType is %q, but want %q.", got, want)
	}
}

func TestDutyService_SetStateCompleted(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if _, err := f.duty.AssignMember(ctx, 2, date(time.October, 25)); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	candidates, err := f.duty.Candidates(ctx, entity.GenderMale, 3)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := len(candidates), 0; got != want {
		t.Fatalf("Candidates is %d, but want %d.", got, want)
	}

	if _, err := f.duty.SetState(ctx, res.Assignment.ID, entity.StateCompleted); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	m, err := f.members.Get(ctx, 1)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if m.LastServiceDate == nil || entity.CompareDate(*m.LastServiceDate, date(time.October, 25)) != 0 {
		t.Fatalf("LastServiceDate is %v, but want 2026-10-25.", m.LastServiceDate)
	}

	candidates, err = f.duty.Candidates(ctx, entity.GenderMale, 3)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := len(candidates), 1; got != want {
		t.Fatalf("Candidates is %d, but want %d.", got, want)
	}
	if got, want := candidates[0].Member.ID, 1; got != want {
		t.Fatalf("Candidate is %d, but want %d.", got, want)
	}

	if _, err := f.duty.SetState(ctx, res.Assignment.ID, entity.State("Bogus")); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrInvalidInput)
	}
}

func TestDutyService_Decline(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 2, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	change, err := f.duty.Decline(ctx, res.Assignment.ID)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if change.Assignment.HasMember() {
		t.Fatalf("Assignment still has member %d.", change.Assignment.MemberID)
	}

	m, err := f.members.Get(ctx, 2)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if m.SkipUntil == nil || entity.CompareDate(*m.SkipUntil, date(time.November, 2)) != 0 {
		t.Fatalf("SkipUntil is %v, but want 2026-11-02.", m.SkipUntil)
	}

	// The emptied slot is reused by the next assignment.
	next, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if next.Created || next.Assignment.ID != res.Assignment.ID {
		t.Fatalf("Result is %+v, but want slot %d filled.", next, res.Assignment.ID)
	}
}

func TestDutyService_SetDate(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	if _, err := f.duty.AssignMember(ctx, 1, date(time.November, 1)); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if _, err := f.duty.AssignMember(ctx, 2, date(time.November, 1)); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	res, err := f.duty.AssignMember(ctx, 3, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	if _, err := f.duty.SetDate(ctx, res.Assignment.ID, date(time.November, 1)); !errors.Is(err, entity.ErrSlotsFull) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrSlotsFull)
	}

	a, err := f.duty.SetDate(ctx, res.Assignment.ID, date(time.November, 8))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := a.Date.Format(entity.DateLayout), "2026-11-08"; got != want {
		t.Fatalf("Date is %q, but want %q.", got, want)
	}
}

func TestDutyService_Notify(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	text, err := f.duty.Notify(ctx, res.Assignment.ID, service.NotifyInvite)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := text, "invite John"; got != want {
		t.Fatalf("Text is %q, but want %q.", got, want)
	}
	a, err := f.duty.Get(ctx, res.Assignment.ID)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := a.State, entity.StateInvited; got != want {
		t.Fatalf("State is %q, but want %q.", got, want)
	}

	empty, err := f.duty.Create(ctx, 0, date(time.October, 25), entity.SlotClosing)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if _, err := f.duty.Notify(ctx, empty.ID, service.NotifyInvite); !errors.Is(err, entity.ErrInvalidInput) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrInvalidInput)
	}
	if got, want := len(f.notifier.sent), 1; got != want {
		t.Fatalf("Sent is %d, but want %d.", got, want)
	}
}

func TestDutyService_Delete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	a, err := f.duty.Create(ctx, 0, date(time.October, 25), entity.SlotOpening)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if err := f.duty.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if err := f.duty.Delete(ctx, a.ID); !errors.Is(err, entity.ErrNotFound) {
		t.Fatalf("Error is %v, but want %v.", err, entity.ErrNotFound)
	}
}

func TestDutyService_NotifySendFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	errSend := errors.New("member has no slack id")
	f.notifier.err = errSend
	if _, err := f.duty.Notify(ctx, res.Assignment.ID, service.NotifyInvite); !errors.Is(err, errSend) {
		t.Fatalf("Error is %v, but want %v.", err, errSend)
	}

	a, err := f.duty.Get(ctx, res.Assignment.ID)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := a.State, entity.StateDraft; got != want {
		t.Fatalf("State is %q, but want %q.", got, want)
	}

	f.notifier.err = nil
	if _, err := f.duty.Notify(ctx, res.Assignment.ID, service.NotifyInvite); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if a, err = f.duty.Get(ctx, res.Assignment.ID); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := a.State, entity.StateInvited; got != want {
		t.Fatalf("State is %q, but want %q.", got, want)
	}
}

// movingStore runs before ahead of the next transaction, once.
type movingStore struct {
	*memstore.Store
	before func()
}

func (s *movingStore) Transaction(ctx context.Context, fn func(service.Repos) error) error {
	if s.before != nil {
		before := s.before
		s.before = nil
		before()
	}
	return s.Store.Transaction(ctx, fn)
}

func TestDutyService_StateFollowsMovedAssignment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	res, err := f.duty.AssignMember(ctx, 1, date(time.October, 25))
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	id := res.Assignment.ID

	store := &movingStore{Store: f.store}
	duty := service.NewDutyService(store, clock.NewFixed(now), f.notifier, &lock.KeyedMutex{})

	// Another request moves the row after the date was read but before the lock.
	store.before = func() {
		repos := f.store.Repos()
		a, err := repos.Assignments.Get(ctx, id)
		if err != nil {
			t.Fatalf("Should not be fail: %v.", err)
		}
		a.Date = date(time.November, 1)
		if err := repos.Assignments.Update(ctx, a); err != nil {
			t.Fatalf("Should not be fail: %v.", err)
		}
	}

	if _, err := duty.SetState(ctx, id, entity.StateAccepted); err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}

	a, err := duty.Get(ctx, id)
	if err != nil {
		t.Fatalf("Should not be fail: %v.", err)
	}
	if got, want := a.State, entity.StateAccepted; got != want {
		t.Fatalf("State is %q, but want %q.", got, want)
	}
	if entity.CompareDate(a.Date, date(time.November, 1)) != 0 {
		t.Fatalf("Date is %v, but want 2026-11-01.", a.Date)
	}
}
