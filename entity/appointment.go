package entity

import (
	"fmt"
	"time"
)

var appointmentStates = []State{StateDraft, StateInvited, StateAccepted, StateReminded, StateCompleted, StateCancelled}

func ParseAppointmentState(s string) (State, error) {
	for _, st := range appointmentStates {
		if State(s) == st {
			return st, nil
		}
	}
	return "", fmt.Errorf("appointment state %q: %w", s, ErrInvalidInput)
}

type Appointment struct {
	ID              int        `db:"id"`
	MemberID        int        `db:"member_id"`
	Kind            string     `db:"kind"`
	StartAt         time.Time  `db:"start_at"`
	DurationMinutes int        `db:"duration_minutes"`
	Conductor       string     `db:"conductor"`
	State           State      `db:"state"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
	CompletedAt     *time.Time `db:"completed_at"`
}

func (a *Appointment) EndAt() time.Time {
	return a.StartAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// Blocking reports whether the appointment still occupies its conductor's time.
func (a *Appointment) Blocking() bool {
	return a.State != StateCompleted && a.State != StateCancelled
}

type AppointmentType struct {
	Name             string `db:"name"`
	DefaultDuration  int    `db:"default_duration"`
	DefaultConductor string `db:"default_conductor"`
}

// Terminal reports whether the appointment is completed or cancelled.
func (a *Appointment) Terminal() bool {
	return a.State == StateCompleted || a.State == StateCancelled
}

// SetState stores any allowed state verbatim and stamps completion.
func (a *Appointment) SetState(state State, now time.Time) error {
	if _, err := ParseAppointmentState(string(state)); err != nil {
		return err
	}
	a.State = state
	a.UpdatedAt = now
	if state == StateCompleted {
		a.CompletedAt = &now
	}
	return nil
}

// Cancel moves a non-terminal appointment to Cancelled.
func (a *Appointment) Cancel(now time.Time) error {
	if a.Terminal() {
		return fmt.Errorf("appointment %d is already %s: %w", a.ID, a.State, ErrInvalidInput)
	}
	a.State = StateCancelled
	a.UpdatedAt = now
	return nil
}
