// Package slot manages the two duty slots that exist per calendar date.
//
// The Manager works on a snapshot of the assignments of one date. It mutates
// the entities it is handed and reports what changed; persisting the change
// is the caller's job.
package slot

import (
	"fmt"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
)

const (
	MaxSlots = 2
	// CooldownDays is how long a member who declined is skipped.
	CooldownDays = 14
)

type Manager struct {
	clock clock.Clock
}

func NewManager(c clock.Clock) *Manager {
	return &Manager{clock: c}
}

type AssignResult struct {
	Assignment *entity.DutyAssignment
	// Created is true when Assignment is new and has no ID yet.
	Created bool
	// AlreadyAssigned is true when the member already held a slot on the date
	// and nothing was changed.
	AlreadyAssigned bool
}

// Assign puts memberID into a slot on date. day holds every assignment known
// for that date; completed ones are ignored.
func (m *Manager) Assign(day []*entity.DutyAssignment, memberID int, date time.Time) (*AssignResult, error) {
	if memberID <= 0 {
		return nil, fmt.Errorf("member id is required: %w", entity.ErrInvalidInput)
	}
	if date.IsZero() {
		return nil, fmt.Errorf("date is required: %w", entity.ErrInvalidInput)
	}

	active := activeOn(day, date)
	for _, a := range active {
		if a.MemberID == memberID {
			return &AssignResult{Assignment: a, AlreadyAssigned: true}, nil
		}
	}

	var empty *entity.DutyAssignment
	filled := 0
	for _, a := range active {
		if a.HasMember() {
			filled++
		} else if empty == nil {
			empty = a
		}
	}
	if filled >= MaxSlots {
		return nil, entity.ErrSlotsFull
	}

	now := m.clock.Now()
	switch {
	case empty != nil:
		empty.MemberID = memberID
		empty.UpdatedAt = now
		return &AssignResult{Assignment: empty}, nil
	case len(active) == 0:
		return &AssignResult{Assignment: m.newAssignment(memberID, date, entity.SlotUndecided), Created: true}, nil
	case len(active) == 1:
		return &AssignResult{Assignment: m.newAssignment(memberID, date, active[0].SlotType.Opposite()), Created: true}, nil
	}
	return nil, entity.ErrSlotsFull
}

// NewDraft builds an assignment in Draft. memberID may be 0 for an open slot.
func (m *Manager) NewDraft(memberID int, date time.Time, slotType entity.SlotType) (*entity.DutyAssignment, error) {
	if date.IsZero() {
		return nil, fmt.Errorf("date is required: %w", entity.ErrInvalidInput)
	}
	if _, err := entity.ParseSlotType(string(slotType)); err != nil {
		return nil, err
	}
	return m.newAssignment(memberID, date, slotType), nil
}

func (m *Manager) newAssignment(memberID int, date time.Time, slotType entity.SlotType) *entity.DutyAssignment {
	now := m.clock.Now()
	return &entity.DutyAssignment{
		MemberID:  memberID,
		Date:      entity.Date(date),
		SlotType:  slotType,
		State:     entity.StateDraft,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetSlotType sets the type of assignment id. Opening and Closing force the
// other active slot of the same date to the opposite type; Undecided does not
// cascade. It returns every assignment it changed.
func (m *Manager) SetSlotType(day []*entity.DutyAssignment, id int, slotType entity.SlotType) ([]*entity.DutyAssignment, error) {
	if _, err := entity.ParseSlotType(string(slotType)); err != nil {
		return nil, err
	}
	target, err := find(day, id)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	target.SlotType = slotType
	target.UpdatedAt = now
	changed := []*entity.DutyAssignment{target}
	if slotType == entity.SlotUndecided {
		return changed, nil
	}

	for _, other := range activeOn(day, target.Date) {
		if other.ID == target.ID {
			continue
		}
		other.SlotType = slotType.Opposite()
		other.UpdatedAt = now
		changed = append(changed, other)
		break
	}
	return changed, nil
}

// StateChange is what SetState touched. Member is nil unless its last
// service date moved.
type StateChange struct {
	Assignment *entity.DutyAssignment
	Member     *entity.Member
}

// SetState stores any allowed state verbatim. Completing an assignment stamps
// completedAt and records the date as the member's last service.
func (m *Manager) SetState(a *entity.DutyAssignment, state entity.State, member *entity.Member) (*StateChange, error) {
	if a == nil {
		return nil, entity.ErrNotFound
	}
	if _, err := entity.ParseDutyState(string(state)); err != nil {
		return nil, err
	}

	now := m.clock.Now()
	a.State = state
	a.UpdatedAt = now

	change := &StateChange{Assignment: a}
	if state != entity.StateCompleted {
		return change, nil
	}
	a.CompletedAt = &now
	if a.HasMember() && member != nil && member.ID == a.MemberID {
		d := entity.Date(a.Date)
		member.LastServiceDate = &d
		change.Member = member
	}
	return change, nil
}

// SetMember swaps the member on a slot without touching its type.
func (m *Manager) SetMember(a *entity.DutyAssignment, memberID int) error {
	if a == nil {
		return entity.ErrNotFound
	}
	if memberID < 0 {
		return fmt.Errorf("member id %d: %w", memberID, entity.ErrInvalidInput)
	}
	a.MemberID = memberID
	a.UpdatedAt = m.clock.Now()
	return nil
}

// SetDate moves a slot to another date.
func (m *Manager) SetDate(a *entity.DutyAssignment, date time.Time) error {
	if a == nil {
		return entity.ErrNotFound
	}
	if date.IsZero() {
		return fmt.Errorf("date is required: %w", entity.ErrInvalidInput)
	}
	a.Date = entity.Date(date)
	a.UpdatedAt = m.clock.Now()
	return nil
}

// Decline empties the slot, puts it back to Draft and keeps the member out of
// rotation for two weeks. member may be nil when the slot was already empty.
func (m *Manager) Decline(a *entity.DutyAssignment, member *entity.Member) (*StateChange, error) {
	if a == nil {
		return nil, entity.ErrNotFound
	}

	change := &StateChange{Assignment: a}
	if a.HasMember() && member != nil && member.ID == a.MemberID {
		until := clock.Today(m.clock).AddDate(0, 0, CooldownDays)
		member.SkipUntil = &until
		change.Member = member
	}

	a.MemberID = 0
	a.State = entity.StateDraft
	a.UpdatedAt = m.clock.Now()
	return change, nil
}

// Delete removes assignment id from day.
func (m *Manager) Delete(day []*entity.DutyAssignment, id int) ([]*entity.DutyAssignment, error) {
	for i, a := range day {
		if a.ID == id {
			rest := make([]*entity.DutyAssignment, 0, len(day)-1)
			rest = append(rest, day[:i]...)
			return append(rest, day[i+1:]...), nil
		}
	}
	return nil, entity.ErrNotFound
}

// NextSunday returns the first Sunday strictly after today.
func NextSunday(today time.Time) time.Time {
	days := int(time.Sunday - today.Weekday())
	if days <= 0 {
		days += 7
	}
	return entity.Date(today).AddDate(0, 0, days)
}

// CheckBookable rejects dates before the upcoming Sunday.
func CheckBookable(date, today time.Time) error {
	if entity.CompareDate(date, NextSunday(today)) < 0 {
		return entity.ErrPastDate
	}
	return nil
}

func activeOn(day []*entity.DutyAssignment, date time.Time) []*entity.DutyAssignment {
	var active []*entity.DutyAssignment
	for _, a := range day {
		if a.IsActive() && entity.CompareDate(a.Date, date) == 0 {
			active = append(active, a)
		}
	}
	return active
}

func find(day []*entity.DutyAssignment, id int) (*entity.DutyAssignment, error) {
	for _, a := range day {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, entity.ErrNotFound
}
