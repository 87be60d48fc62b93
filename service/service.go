// Package service loads snapshots from the store, applies the scheduling
// rules and writes the result back, one date or conductor at a time.
package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/lock"
)

const (
	NotifyInvite   = "invite"
	NotifyReminder = "reminder"
)

type Notifier interface {
	Duty(ctx context.Context, name string, m *entity.Member, a *entity.DutyAssignment) (string, error)
	Appointment(ctx context.Context, name string, m *entity.Member, a *entity.Appointment) (string, error)
}

// lockAll takes every key in sorted order so two callers never deadlock.
func lockAll(ctx context.Context, locks *lock.KeyedMutex, keys ...string) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	var unlocks []func()
	unlockAll := func() {
		for i := len(unlocks) - 1; i >= 0; i-- {
			unlocks[i]()
		}
	}

	prev := ""
	for i, k := range sorted {
		if i > 0 && k == prev {
			continue
		}
		prev = k
		unlock, err := locks.Lock(ctx, k)
		if err != nil {
			unlockAll()
			return nil, fmt.Errorf("lock %s: %w", k, err)
		}
		unlocks = append(unlocks, unlock)
	}
	return unlockAll, nil
}

func getMember(ctx context.Context, members MemberStore, id int) (*entity.Member, error) {
	m, err := members.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	if m == nil {
		return nil, fmt.Errorf("member %d: %w", id, entity.ErrNotFound)
	}
	return m, nil
}
