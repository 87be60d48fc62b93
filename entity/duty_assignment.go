package entity

import (
	"fmt"
	"time"
)

type SlotType string

const (
	SlotOpening   SlotType = "Opening"
	SlotClosing   SlotType = "Closing"
	SlotUndecided SlotType = "Undecided"
)

// Opposite returns the paired type. Undecided pairs with Undecided.
func (t SlotType) Opposite() SlotType {
	switch t {
	case SlotOpening:
		return SlotClosing
	case SlotClosing:
		return SlotOpening
	}
	return SlotUndecided
}

func ParseSlotType(s string) (SlotType, error) {
	switch t := SlotType(s); t {
	case SlotOpening, SlotClosing, SlotUndecided:
		return t, nil
	}
	return "", fmt.Errorf("slot type %q: %w", s, ErrInvalidInput)
}

type State string

const (
	StateDraft     State = "Draft"
	StateInvited   State = "Invited"
	StateAccepted  State = "Accepted"
	StateReminded  State = "Reminded"
	StateCompleted State = "Completed"
	StateCancelled State = "Cancelled"
)

var dutyStates = []State{StateDraft, StateInvited, StateAccepted, StateReminded, StateCompleted}

func ParseDutyState(s string) (State, error) {
	for _, st := range dutyStates {
		if State(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("duty state %q: %w", s, ErrInvalidInput)
}

type DutyAssignment struct {
	ID          int        `db:"id"`
	MemberID    int        `db:"member_id"`
	Date        time.Time  `db:"date"`
	SlotType    SlotType   `db:"slot_type"`
	State       State      `db:"state"`
	CreatedAt   time.Time  `db:"created_at"`
	UpdatedAt   time.Time  `db:"updated_at"`
	CompletedAt *time.Time `db:"completed_at"`
}

// HasMember reports whether the slot is filled.
func (a *DutyAssignment) HasMember() bool {
	return a.MemberID > 0
}

func (a *DutyAssignment) IsActive() bool {
	return a.State != StateCompleted
}
