// Package memstore keeps the roster, assignments and appointments in memory.
// It backs local runs without MySQL and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/service"
)

type data struct {
	members      map[int]entity.Member
	assignments  map[int]entity.DutyAssignment
	appointments map[int]entity.Appointment
	types        map[string]entity.AppointmentType
	nextID       int
}

func (d *data) clone() *data {
	c := &data{
		members:      make(map[int]entity.Member, len(d.members)),
		assignments:  make(map[int]entity.DutyAssignment, len(d.assignments)),
		appointments: make(map[int]entity.Appointment, len(d.appointments)),
		types:        make(map[string]entity.AppointmentType, len(d.types)),
		nextID:       d.nextID,
	}
	for k, v := range d.members {
		c.members[k] = v
	}
	for k, v := range d.assignments {
		c.assignments[k] = v
	}
	for k, v := range d.appointments {
		c.appointments[k] = v
	}
	for k, v := range d.types {
		c.types[k] = v
	}
	return c
}

// Store is safe for concurrent use. Transactions are serialized and rolled
// back when fn fails.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	d    *data
}

func New() *Store {
	return &Store{d: &data{
		members:      make(map[int]entity.Member),
		assignments:  make(map[int]entity.DutyAssignment),
		appointments: make(map[int]entity.Appointment),
		types:        make(map[string]entity.AppointmentType),
	}}
}

// AddMember stores m as is, keeping its ID.
func (s *Store) AddMember(m entity.Member) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.members[m.ID] = m
}

func (s *Store) AddAppointmentType(t entity.AppointmentType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.types[t.Name] = t
}

func (s *Store) Repos() service.Repos {
	r := &repos{s: s}
	return service.Repos{
		Members:          (*members)(r),
		Assignments:      (*assignments)(r),
		Appointments:     (*appointments)(r),
		AppointmentTypes: (*appointmentTypes)(r),
	}
}

func (s *Store) Transaction(ctx context.Context, fn func(service.Repos) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	backup := s.d.clone()
	s.mu.RUnlock()

	if err := fn(s.Repos()); err != nil {
		s.mu.Lock()
		s.d = backup
		s.mu.Unlock()
		return err
	}
	return nil
}

type repos struct {
	s *Store
}

type members repos

func (r *members) Get(ctx context.Context, id int) (*entity.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.d.members[id]
	if !ok {
		return nil, nil
	}
	return &m, nil
}

func (r *members) List(ctx context.Context, gender entity.Gender) ([]*entity.Member, error) {
	return r.list(false, gender), nil
}

func (r *members) ListActive(ctx context.Context, gender entity.Gender) ([]*entity.Member, error) {
	return r.list(true, gender), nil
}

func (r *members) list(activeOnly bool, gender entity.Gender) []*entity.Member {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ms []*entity.Member
	for _, m := range r.s.d.members {
		if activeOnly && !m.Active {
			continue
		}
		if gender != "" && m.Gender != gender {
			continue
		}
		m := m
		ms = append(ms, &m)
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].ID < ms[j].ID })
	return ms
}

func (r *members) Update(ctx context.Context, m *entity.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.members[m.ID]; ok {
		r.s.d.members[m.ID] = *m
	}
	return nil
}

type assignments repos

func (r *assignments) Get(ctx context.Context, id int) (*entity.DutyAssignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.d.assignments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *assignments) ListForDate(ctx context.Context, date time.Time, forUpdate bool) ([]*entity.DutyAssignment, error) {
	return r.filter(func(a *entity.DutyAssignment) bool {
		return entity.CompareDate(a.Date, date) == 0
	}), nil
}

func (r *assignments) ListActive(ctx context.Context) ([]*entity.DutyAssignment, error) {
	return r.filter((*entity.DutyAssignment).IsActive), nil
}

func (r *assignments) ListBetween(ctx context.Context, from, to time.Time) ([]*entity.DutyAssignment, error) {
	return r.filter(func(a *entity.DutyAssignment) bool {
		return entity.CompareDate(a.Date, from) >= 0 && entity.CompareDate(a.Date, to) < 0
	}), nil
}

func (r *assignments) filter(keep func(*entity.DutyAssignment) bool) []*entity.DutyAssignment {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var as []*entity.DutyAssignment
	for _, a := range r.s.d.assignments {
		a := a
		if keep(&a) {
			as = append(as, &a)
		}
	}
	sort.Slice(as, func(i, j int) bool {
		if c := entity.CompareDate(as[i].Date, as[j].Date); c != 0 {
			return c < 0
		}
		return as[i].ID < as[j].ID
	})
	return as
}

func (r *assignments) Create(ctx context.Context, a *entity.DutyAssignment) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.nextID++
	c := *a
	c.ID = r.s.d.nextID
	r.s.d.assignments[c.ID] = c
	return c.ID, nil
}

func (r *assignments) Update(ctx context.Context, a *entity.DutyAssignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.assignments[a.ID]; ok {
		r.s.d.assignments[a.ID] = *a
	}
	return nil
}

func (r *assignments) Delete(ctx context.Context, id int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.d.assignments[id]
	delete(r.s.d.assignments, id)
	return ok, nil
}

type appointments repos

func (r *appointments) Get(ctx context.Context, id int) (*entity.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	a, ok := r.s.d.appointments[id]
	if !ok {
		return nil, nil
	}
	return &a, nil
}

func (r *appointments) ListBetween(ctx context.Context, from, to time.Time, conductor string, forUpdate bool) ([]*entity.Appointment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var as []*entity.Appointment
	for _, a := range r.s.d.appointments {
		if a.StartAt.Before(from) || !a.StartAt.Before(to) {
			continue
		}
		if conductor != "" && a.Conductor != conductor {
			continue
		}
		a := a
		as = append(as, &a)
	}
	sort.Slice(as, func(i, j int) bool {
		if !as[i].StartAt.Equal(as[j].StartAt) {
			return as[i].StartAt.Before(as[j].StartAt)
		}
		return as[i].ID < as[j].ID
	})
	return as, nil
}

func (r *appointments) Create(ctx context.Context, a *entity.Appointment) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.d.nextID++
	c := *a
	c.ID = r.s.d.nextID
	r.s.d.appointments[c.ID] = c
	return c.ID, nil
}

func (r *appointments) Update(ctx context.Context, a *entity.Appointment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.d.appointments[a.ID]; ok {
		r.s.d.appointments[a.ID] = *a
	}
	return nil
}

func (r *appointments) Delete(ctx context.Context, id int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	_, ok := r.s.d.appointments[id]
	delete(r.s.d.appointments, id)
	return ok, nil
}

type appointmentTypes repos

func (r *appointmentTypes) List(ctx context.Context) ([]*entity.AppointmentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var ts []*entity.AppointmentType
	for _, t := range r.s.d.types {
		t := t
		ts = append(ts, &t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name < ts[j].Name })
	return ts, nil
}

func (r *appointmentTypes) Get(ctx context.Context, name string) (*entity.AppointmentType, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.d.types[name]
	if !ok {
		return nil, nil
	}
	return &t, nil
}
