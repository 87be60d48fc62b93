package service

import (
	"context"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
)

// Get methods return nil, nil when the row does not exist.

type MemberStore interface {
	Get(ctx context.Context, id int) (*entity.Member, error)
	List(ctx context.Context, gender entity.Gender) ([]*entity.Member, error)
	ListActive(ctx context.Context, gender entity.Gender) ([]*entity.Member, error)
	Update(ctx context.Context, m *entity.Member) error
}

type AssignmentStore interface {
	Get(ctx context.Context, id int) (*entity.DutyAssignment, error)
	ListForDate(ctx context.Context, date time.Time, forUpdate bool) ([]*entity.DutyAssignment, error)
	ListActive(ctx context.Context) ([]*entity.DutyAssignment, error)
	ListBetween(ctx context.Context, from, to time.Time) ([]*entity.DutyAssignment, error)
	Create(ctx context.Context, a *entity.DutyAssignment) (int, error)
	Update(ctx context.Context, a *entity.DutyAssignment) error
	Delete(ctx context.Context, id int) (bool, error)
}

type AppointmentStore interface {
	Get(ctx context.Context, id int) (*entity.Appointment, error)
	ListBetween(ctx context.Context, from, to time.Time, conductor string, forUpdate bool) ([]*entity.Appointment, error)
	Create(ctx context.Context, a *entity.Appointment) (int, error)
	Update(ctx context.Context, a *entity.Appointment) error
	Delete(ctx context.Context, id int) (bool, error)
}

type AppointmentTypeStore interface {
	List(ctx context.Context) ([]*entity.AppointmentType, error)
	Get(ctx context.Context, name string) (*entity.AppointmentType, error)
}

type Repos struct {
	Members          MemberStore
	Assignments      AssignmentStore
	Appointments     AppointmentStore
	AppointmentTypes AppointmentTypeStore
}

type Store interface {
	Repos() Repos
	// Transaction runs fn with repositories bound to one transaction.
	Transaction(ctx context.Context, fn func(Repos) error) error
}
