package service_test

import (
	"context"
	"sync"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/interval"
	"github.com/178inaba/duty-scheduler/lock"
	"github.com/178inaba/duty-scheduler/memstore"
	"github.com/178inaba/duty-scheduler/service"
)

// Monday; next Sunday is 2026-10-25.
var now = time.Date(2026, time.October, 19, 10, 30, 0, 0, time.UTC)

func date(m time.Month, d int) time.Time {
	return time.Date(2026, m, d, 0, 0, 0, 0, time.UTC)
}

type sent struct {
	name     string
	memberID int
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sent
	// err fails every send when set.
	err error
}

func (n *fakeNotifier) Duty(ctx context.Context, name string, m *entity.Member, a *entity.DutyAssignment) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, sent{name: name, memberID: m.ID})
	return name + " " + m.FirstName, nil
}

func (n *fakeNotifier) Appointment(ctx context.Context, name string, m *entity.Member, a *entity.Appointment) (string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return "", n.err
	}
	n.sent = append(n.sent, sent{name: name, memberID: m.ID})
	return name + " " + a.Kind, nil
}

type fixture struct {
	store        *memstore.Store
	notifier     *fakeNotifier
	duty         *service.DutyService
	appointments *service.AppointmentService
	members      *service.MemberService
}

func newFixture() *fixture {
	store := memstore.New()
	store.AddMember(entity.Member{ID: 1, FirstName: "John", LastName: "Smith", Gender: entity.GenderMale, Active: true})
	store.AddMember(entity.Member{ID: 2, FirstName: "Peter", LastName: "Jones", Gender: entity.GenderMale, Active: true})
	store.AddMember(entity.Member{ID: 3, FirstName: "Mary", LastName: "Johnson", Gender: entity.GenderFemale, Active: true})
	store.AddAppointmentType(entity.AppointmentType{Name: "Interview", DefaultDuration: 15, DefaultConductor: "Bishop"})

	c := clock.NewFixed(now)
	n := &fakeNotifier{}
	locks := &lock.KeyedMutex{}
	return &fixture{
		store:        store,
		notifier:     n,
		duty:         service.NewDutyService(store, c, n, locks),
		appointments: service.NewAppointmentService(store, interval.NewScheduler(time.UTC), c, n, locks),
		members:      service.NewMemberService(store),
	}
}
