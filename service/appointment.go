package service

import (
	"context"
	"fmt"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/interval"
	"github.com/178inaba/duty-scheduler/lock"
)

type AppointmentService struct {
	store     Store
	scheduler *interval.Scheduler
	notifier  Notifier
	clock     clock.Clock
	locks     *lock.KeyedMutex
}

func NewAppointmentService(store Store, scheduler *interval.Scheduler, c clock.Clock, notifier Notifier, locks *lock.KeyedMutex) *AppointmentService {
	return &AppointmentService{
		store:     store,
		scheduler: scheduler,
		notifier:  notifier,
		clock:     c,
		locks:     locks,
	}
}

func (s *AppointmentService) Types(ctx context.Context) ([]*entity.AppointmentType, error) {
	ts, err := s.store.Repos().AppointmentTypes.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list appointment types: %w", err)
	}
	return ts, nil
}

// dayBounds returns local midnight of date and of the next day.
func (s *AppointmentService) dayBounds(date time.Time) (time.Time, time.Time) {
	y, m, d := date.Date()
	from := time.Date(y, m, d, 0, 0, 0, 0, s.scheduler.Location())
	return from, from.AddDate(0, 0, 1)
}

func conductorKey(conductor string, day time.Time) string {
	return "conductor:" + conductor + ":" + day.Format(entity.DateLayout)
}

// Suggest returns the earliest free start for conductor on date. ok is false
// when the window is full. durationMinutes 0 means the default of 15.
func (s *AppointmentService) Suggest(ctx context.Context, date time.Time, conductor string, durationMinutes int) (time.Time, bool, error) {
	if durationMinutes == 0 {
		durationMinutes = interval.DefaultDurationMinutes
	}
	if date.IsZero() || conductor == "" {
		return time.Time{}, false, fmt.Errorf("date and conductor are required: %w", entity.ErrInvalidInput)
	}

	from, to := s.dayBounds(date)
	existing, err := s.store.Repos().Appointments.ListBetween(ctx, from, to, conductor, false)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("list appointments: %w", err)
	}

	return s.scheduler.SuggestTime(from, conductor, durationMinutes, existing)
}

// Day lists the blocking appointments on date across conductors.
func (s *AppointmentService) Day(ctx context.Context, date time.Time) ([]*entity.Appointment, error) {
	from, to := s.dayBounds(date)
	as, err := s.store.Repos().Appointments.ListBetween(ctx, from, to, "", false)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}

	blocking := as[:0]
	for _, a := range as {
		if a.Blocking() {
			blocking = append(blocking, a)
		}
	}
	return blocking, nil
}

func (s *AppointmentService) Get(ctx context.Context, id int) (*entity.Appointment, error) {
	return s.get(ctx, s.store.Repos(), id)
}

func (s *AppointmentService) get(ctx context.Context, r Repos, id int) (*entity.Appointment, error) {
	a, err := r.Appointments.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get appointment: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("appointment %d: %w", id, entity.ErrNotFound)
	}
	return a, nil
}

type NewAppointment struct {
	MemberID int
	Kind     string
	StartAt  time.Time
	// DurationMinutes and Conductor fall back to the kind's defaults.
	DurationMinutes int
	Conductor       string
}

// Create books an appointment in Draft. It fails with ErrConflict when the
// conductor is already busy at that time.
func (s *AppointmentService) Create(ctx context.Context, in NewAppointment) (*entity.Appointment, error) {
	if in.MemberID <= 0 || in.Kind == "" || in.StartAt.IsZero() {
		return nil, fmt.Errorf("member, kind and start are required: %w", entity.ErrInvalidInput)
	}

	repos := s.store.Repos()
	if _, err := getMember(ctx, repos.Members, in.MemberID); err != nil {
		return nil, err
	}
	if in.DurationMinutes == 0 || in.Conductor == "" {
		t, err := repos.AppointmentTypes.Get(ctx, in.Kind)
		if err != nil {
			return nil, fmt.Errorf("get appointment type: %w", err)
		}
		if t != nil {
			if in.DurationMinutes == 0 {
				in.DurationMinutes = t.DefaultDuration
			}
			if in.Conductor == "" {
				in.Conductor = t.DefaultConductor
			}
		}
	}
	if in.DurationMinutes <= 0 || in.Conductor == "" {
		return nil, fmt.Errorf("duration and conductor are required: %w", entity.ErrInvalidInput)
	}

	now := s.clock.Now()
	a := &entity.Appointment{
		MemberID:        in.MemberID,
		Kind:            in.Kind,
		StartAt:         in.StartAt,
		DurationMinutes: in.DurationMinutes,
		Conductor:       in.Conductor,
		State:           entity.StateDraft,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err := s.withConductor(ctx, a, 0, func(r Repos) error {
		id, err := r.Appointments.Create(ctx, a)
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}
		a.ID = id
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AppointmentUpdate holds the fields to change; nil leaves a field alone.
type AppointmentUpdate struct {
	Kind            *string
	StartAt         *time.Time
	DurationMinutes *int
	Conductor       *string
}

func (s *AppointmentService) Update(ctx context.Context, id int, u AppointmentUpdate) (*entity.Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *a

	if u.Kind != nil {
		a.Kind = *u.Kind
	}
	if u.StartAt != nil {
		a.StartAt = *u.StartAt
	}
	if u.DurationMinutes != nil {
		if *u.DurationMinutes <= 0 {
			return nil, fmt.Errorf("duration %d: %w", *u.DurationMinutes, entity.ErrInvalidInput)
		}
		a.DurationMinutes = *u.DurationMinutes
	}
	if u.Conductor != nil {
		if *u.Conductor == "" {
			return nil, fmt.Errorf("conductor is required: %w", entity.ErrInvalidInput)
		}
		a.Conductor = *u.Conductor
	}
	a.UpdatedAt = s.clock.Now()

	write := func(r Repos) error {
		if err := r.Appointments.Update(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return nil
	}

	moved := !a.StartAt.Equal(old.StartAt) || a.DurationMinutes != old.DurationMinutes || a.Conductor != old.Conductor
	if moved && a.Blocking() {
		err = s.withConductor(ctx, a, a.ID, write)
	} else {
		err = s.store.Transaction(ctx, write)
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// withConductor holds the conductor's day, checks a against the booked
// appointments except excludeID and then runs fn.
func (s *AppointmentService) withConductor(ctx context.Context, a *entity.Appointment, excludeID int, fn func(Repos) error) error {
	from, to := s.dayBounds(a.StartAt.In(s.scheduler.Location()))

	unlock, err := lockAll(ctx, s.locks, conductorKey(a.Conductor, from))
	if err != nil {
		return err
	}
	defer unlock()

	return s.store.Transaction(ctx, func(r Repos) error {
		// Include the previous day so a late appointment running past
		// midnight is still seen.
		existing, err := r.Appointments.ListBetween(ctx, from.AddDate(0, 0, -1), to, a.Conductor, true)
		if err != nil {
			return fmt.Errorf("list appointments: %w", err)
		}
		if c := interval.FindConflict(existing, a.Conductor, a.StartAt, a.DurationMinutes, excludeID); c != nil {
			return fmt.Errorf("appointment %d at %s: %w", c.ID, c.StartAt.In(s.scheduler.Location()).Format("15:04"), entity.ErrConflict)
		}
		return fn(r)
	})
}

func (s *AppointmentService) SetState(ctx context.Context, id int, state entity.State) (*entity.Appointment, error) {
	return s.mutate(ctx, id, func(a *entity.Appointment) error {
		return a.SetState(state, s.clock.Now())
	})
}

func (s *AppointmentService) Cancel(ctx context.Context, id int) (*entity.Appointment, error) {
	return s.mutate(ctx, id, func(a *entity.Appointment) error {
		return a.Cancel(s.clock.Now())
	})
}

func (s *AppointmentService) mutate(ctx context.Context, id int, fn func(a *entity.Appointment) error) (*entity.Appointment, error) {
	var a *entity.Appointment
	if err := s.store.Transaction(ctx, func(r Repos) error {
		var err error
		if a, err = s.get(ctx, r, id); err != nil {
			return err
		}
		if err := fn(a); err != nil {
			return err
		}
		if err := r.Appointments.Update(ctx, a); err != nil {
			return fmt.Errorf("update appointment: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AppointmentService) Delete(ctx context.Context, id int) error {
	ok, err := s.store.Repos().Appointments.Delete(ctx, id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if !ok {
		return fmt.Errorf("appointment %d: %w", id, entity.ErrNotFound)
	}
	return nil
}

// Notify sends the message and then moves the appointment to Invited (or
// Reminded). A failed send leaves the state alone. Reminding twice keeps the
// Reminded state.
func (s *AppointmentService) Notify(ctx context.Context, id int, name string) (string, error) {
	state := entity.StateInvited
	if name == NotifyReminder {
		state = entity.StateReminded
	}

	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	member, err := getMember(ctx, s.store.Repos().Members, a.MemberID)
	if err != nil {
		return "", err
	}
	text, err := s.notifier.Appointment(ctx, name, member, a)
	if err != nil {
		return "", fmt.Errorf("notify: %w", err)
	}
	if a.State != state {
		if _, err := s.SetState(ctx, id, state); err != nil {
			return "", err
		}
	}

	return text, nil
}
