package service

import (
	"context"

	"github.com/178inaba/duty-scheduler/repository"
	"github.com/jmoiron/sqlx"
)

type SQLStore struct {
	db               *sqlx.DB
	members          *repository.MemberRepository
	assignments      *repository.DutyAssignmentRepository
	appointments     *repository.AppointmentRepository
	appointmentTypes *repository.AppointmentTypeRepository
}

func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{
		db:               db,
		members:          repository.NewMemberRepository(db),
		assignments:      repository.NewDutyAssignmentRepository(db),
		appointments:     repository.NewAppointmentRepository(db),
		appointmentTypes: repository.NewAppointmentTypeRepository(db),
	}
}

func (s *SQLStore) Repos() Repos {
	return Repos{
		Members:          s.members,
		Assignments:      s.assignments,
		Appointments:     s.appointments,
		AppointmentTypes: s.appointmentTypes,
	}
}

func (s *SQLStore) Transaction(ctx context.Context, fn func(Repos) error) error {
	return repository.Transaction(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(Repos{
			Members:          s.members.WithTx(tx),
			Assignments:      s.assignments.WithTx(tx),
			Appointments:     s.appointments.WithTx(tx),
			AppointmentTypes: repository.NewAppointmentTypeRepository(tx),
		})
	})
}
