package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/lock"
	"github.com/178inaba/duty-scheduler/rotation"
	"github.com/178inaba/duty-scheduler/slot"
)

type DutyService struct {
	store    Store
	selector *rotation.Selector
	manager  *slot.Manager
	notifier Notifier
	clock    clock.Clock
	locks    *lock.KeyedMutex
}

func NewDutyService(store Store, c clock.Clock, notifier Notifier, locks *lock.KeyedMutex) *DutyService {
	return &DutyService{
		store:    store,
		selector: rotation.NewSelector(c),
		manager:  slot.NewManager(c),
		notifier: notifier,
		clock:    c,
		locks:    locks,
	}
}

func dateKey(date time.Time) string {
	return "duty:" + date.Format(entity.DateLayout)
}

// Candidates returns who should be asked next.
func (s *DutyService) Candidates(ctx context.Context, gender entity.Gender, count int) ([]rotation.Candidate, error) {
	repos := s.store.Repos()
	roster, err := repos.Members.ListActive(ctx, gender)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}
	active, err := repos.Assignments.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list active assignments: %w", err)
	}

	return s.selector.SelectWithContext(roster, active, gender, count), nil
}

// Search finds active members by name. gender may be empty.
func (s *DutyService) Search(ctx context.Context, query string, gender entity.Gender, limit int) ([]*entity.Member, error) {
	roster, err := s.store.Repos().Members.ListActive(ctx, gender)
	if err != nil {
		return nil, fmt.Errorf("list active members: %w", err)
	}

	return rotation.Search(roster, query, gender, limit), nil
}

// NextSunday is the default date for a new assignment.
func (s *DutyService) NextSunday() time.Time {
	return slot.NextSunday(clock.Today(s.clock))
}

// Create adds a Draft slot. memberID may be 0.
func (s *DutyService) Create(ctx context.Context, memberID int, date time.Time, slotType entity.SlotType) (*entity.DutyAssignment, error) {
	a, err := s.manager.NewDraft(memberID, date, slotType)
	if err != nil {
		return nil, err
	}

	unlock, err := lockAll(ctx, s.locks, dateKey(a.Date))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.store.Transaction(ctx, func(r Repos) error {
		day, err := r.Assignments.ListForDate(ctx, a.Date, true)
		if err != nil {
			return fmt.Errorf("list for date: %w", err)
		}
		if countActive(day) >= slot.MaxSlots {
			return entity.ErrSlotsFull
		}
		id, err := r.Assignments.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("create assignment: %w", err)
		}
		a.ID = id
		return nil
	}); err != nil {
		return nil, err
	}

	return a, nil
}

// AssignMember fills a slot on date with the member. A zero date means next
// Sunday.
func (s *DutyService) AssignMember(ctx context.Context, memberID int, date time.Time) (*slot.AssignResult, error) {
	if date.IsZero() {
		date = s.NextSunday()
	}
	if err := slot.CheckBookable(date, clock.Today(s.clock)); err != nil {
		return nil, err
	}
	if _, err := getMember(ctx, s.store.Repos().Members, memberID); err != nil {
		return nil, err
	}

	unlock, err := lockAll(ctx, s.locks, dateKey(date))
	if err != nil {
		return nil, err
	}
	defer unlock()

	var res *slot.AssignResult
	if err := s.store.Transaction(ctx, func(r Repos) error {
		day, err := r.Assignments.ListForDate(ctx, date, true)
		if err != nil {
			return fmt.Errorf("list for date: %w", err)
		}
		res, err = s.manager.Assign(day, memberID, date)
		if err != nil {
			return err
		}

		switch {
		case res.AlreadyAssigned:
		case res.Created:
			id, err := r.Assignments.Create(ctx, res.Assignment)
			if err != nil {
				return fmt.Errorf("create assignment: %w", err)
			}
			res.Assignment.ID = id
		default:
			if err := r.Assignments.Update(ctx, res.Assignment); err != nil {
				return fmt.Errorf("update assignment: %w", err)
			}
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return res, nil
}

// SetSlotType changes a slot's type and pairs the other slot of the date.
func (s *DutyService) SetSlotType(ctx context.Context, id int, slotType entity.SlotType) ([]*entity.DutyAssignment, error) {
	var changed []*entity.DutyAssignment
	err := s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		var err error
		changed, err = s.manager.SetSlotType(day, id, slotType)
		if err != nil {
			return err
		}
		for _, a := range changed {
			if err := r.Assignments.Update(ctx, a); err != nil {
				return fmt.Errorf("update assignment: %w", err)
			}
		}
		return nil
	})
	return changed, err
}

// SetMember puts memberID (0 to clear) on the slot, keeping its type.
func (s *DutyService) SetMember(ctx context.Context, id, memberID int) (*entity.DutyAssignment, error) {
	var target *entity.DutyAssignment
	err := s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		target = findAssignment(day, id)
		if memberID > 0 {
			if _, err := getMember(ctx, r.Members, memberID); err != nil {
				return err
			}
		}
		if err := s.manager.SetMember(target, memberID); err != nil {
			return err
		}
		if err := r.Assignments.Update(ctx, target); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		return nil
	})
	return target, err
}

// SetDate moves a slot to date when that date still has room.
func (s *DutyService) SetDate(ctx context.Context, id int, date time.Time) (*entity.DutyAssignment, error) {
	a, err := s.get(ctx, s.store.Repos(), id)
	if err != nil {
		return nil, err
	}

	unlock, err := lockAll(ctx, s.locks, dateKey(a.Date), dateKey(date))
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := s.store.Transaction(ctx, func(r Repos) error {
		a, err = s.get(ctx, r, id)
		if err != nil {
			return err
		}
		if entity.CompareDate(a.Date, date) == 0 {
			return nil
		}
		if a.IsActive() {
			day, err := r.Assignments.ListForDate(ctx, date, true)
			if err != nil {
				return fmt.Errorf("list for date: %w", err)
			}
			if countActive(day) >= slot.MaxSlots {
				return entity.ErrSlotsFull
			}
		}
		if err := s.manager.SetDate(a, date); err != nil {
			return err
		}
		if err := r.Assignments.Update(ctx, a); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}

	return a, nil
}

// SetState stores state. Completion records the member's last service date.
func (s *DutyService) SetState(ctx context.Context, id int, state entity.State) (*slot.StateChange, error) {
	var change *slot.StateChange
	err := s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		var err error
		change, err = s.setState(ctx, r, findAssignment(day, id), state)
		return err
	})
	return change, err
}

func (s *DutyService) setState(ctx context.Context, r Repos, a *entity.DutyAssignment, state entity.State) (*slot.StateChange, error) {
	var member *entity.Member
	if a != nil && a.HasMember() && state == entity.StateCompleted {
		m, err := r.Members.Get(ctx, a.MemberID)
		if err != nil {
			return nil, fmt.Errorf("get member: %w", err)
		}
		member = m
	}

	change, err := s.manager.SetState(a, state, member)
	if err != nil {
		return nil, err
	}
	if err := r.Assignments.Update(ctx, change.Assignment); err != nil {
		return nil, fmt.Errorf("update assignment: %w", err)
	}
	if change.Member != nil {
		if err := r.Members.Update(ctx, change.Member); err != nil {
			return nil, fmt.Errorf("update member: %w", err)
		}
	}
	return change, nil
}

// Decline empties the slot and puts its member on cooldown.
func (s *DutyService) Decline(ctx context.Context, id int) (*slot.StateChange, error) {
	var change *slot.StateChange
	err := s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		a := findAssignment(day, id)
		var member *entity.Member
		if a != nil && a.HasMember() {
			m, err := r.Members.Get(ctx, a.MemberID)
			if err != nil {
				return fmt.Errorf("get member: %w", err)
			}
			member = m
		}

		var err error
		change, err = s.manager.Decline(a, member)
		if err != nil {
			return err
		}
		if err := r.Assignments.Update(ctx, change.Assignment); err != nil {
			return fmt.Errorf("update assignment: %w", err)
		}
		if change.Member != nil {
			if err := r.Members.Update(ctx, change.Member); err != nil {
				return fmt.Errorf("update member: %w", err)
			}
		}
		return nil
	})
	return change, err
}

func (s *DutyService) Delete(ctx context.Context, id int) error {
	return s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		if _, err := s.manager.Delete(day, id); err != nil {
			return err
		}
		ok, err := r.Assignments.Delete(ctx, id)
		if err != nil {
			return fmt.Errorf("delete assignment: %w", err)
		}
		if !ok {
			return fmt.Errorf("assignment %d: %w", id, entity.ErrNotFound)
		}
		return nil
	})
}

// Notify sends the message and then moves the slot to Invited (or
// Reminded). A failed send leaves the state alone. A slot that is already
// Reminded stays as is so reminders can repeat.
func (s *DutyService) Notify(ctx context.Context, id int, name string) (string, error) {
	state := entity.StateInvited
	if name == NotifyReminder {
		state = entity.StateReminded
	}

	var text string
	if err := s.withDate(ctx, id, func(r Repos, day []*entity.DutyAssignment) error {
		a := findAssignment(day, id)
		if !a.HasMember() {
			return fmt.Errorf("assignment %d has no member: %w", id, entity.ErrInvalidInput)
		}
		member, err := getMember(ctx, r.Members, a.MemberID)
		if err != nil {
			return err
		}
		if text, err = s.notifier.Duty(ctx, name, member, a); err != nil {
			return fmt.Errorf("notify: %w", err)
		}
		if a.State == state {
			return nil
		}
		_, err = s.setState(ctx, r, a, state)
		return err
	}); err != nil {
		return "", err
	}

	return text, nil
}

// Between lists assignments with from <= date < to.
func (s *DutyService) Between(ctx context.Context, from, to time.Time) ([]*entity.DutyAssignment, error) {
	as, err := s.store.Repos().Assignments.ListBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list between: %w", err)
	}
	return as, nil
}

func (s *DutyService) Get(ctx context.Context, id int) (*entity.DutyAssignment, error) {
	return s.get(ctx, s.store.Repos(), id)
}

func (s *DutyService) get(ctx context.Context, r Repos, id int) (*entity.DutyAssignment, error) {
	a, err := r.Assignments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get assignment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("assignment %d: %w", id, entity.ErrNotFound)
	}
	return a, nil
}

// errMoved means the assignment left the locked date before the lock was held.
var errMoved = errors.New("assignment moved to another date")

// withDate locks the date of assignment id and runs fn in a transaction with
// that date's rows. When the assignment moved before the lock was taken it
// retries once on the new date.
func (s *DutyService) withDate(ctx context.Context, id int, fn func(r Repos, day []*entity.DutyAssignment) error) error {
	for attempt := 0; ; attempt++ {
		a, err := s.Get(ctx, id)
		if err != nil {
			return err
		}

		err = s.onDate(ctx, id, a.Date, fn)
		if !errors.Is(err, errMoved) {
			return err
		}
		if attempt > 0 {
			return fmt.Errorf("assignment %d: %v: %w", id, err, entity.ErrConflict)
		}
	}
}

func (s *DutyService) onDate(ctx context.Context, id int, date time.Time, fn func(r Repos, day []*entity.DutyAssignment) error) error {
	unlock, err := lockAll(ctx, s.locks, dateKey(date))
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.Transaction(ctx, func(r Repos) error {
		cur, err := s.get(ctx, r, id)
		if err != nil {
			return err
		}
		if entity.CompareDate(cur.Date, date) != 0 {
			return errMoved
		}
		day, err := r.Assignments.ListForDate(ctx, date, true)
		if err != nil {
			return fmt.Errorf("list for date: %w", err)
		}
		if findAssignment(day, id) == nil {
			return errMoved
		}
		return fn(r, day)
	})
}

func findAssignment(day []*entity.DutyAssignment, id int) *entity.DutyAssignment {
	for _, a := range day {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func countActive(day []*entity.DutyAssignment) int {
	n := 0
	for _, a := range day {
		if a.IsActive() {
			n++
		}
	}
	return n
}
