// Package rotation picks who is asked next for a duty.
package rotation

import (
	"sort"
	"time"

	"github.com/178inaba/duty-scheduler/clock"
	"github.com/178inaba/duty-scheduler/entity"
)

const DefaultCount = 3

type Selector struct {
	clock clock.Clock
}

func NewSelector(c clock.Clock) *Selector {
	return &Selector{clock: c}
}

// Select returns up to count eligible members of the given gender, those who
// served longest ago first and those who never served before anyone else.
// history is any set of assignments; only non-completed ones exclude a member.
func (s *Selector) Select(roster []*entity.Member, history []*entity.DutyAssignment, gender entity.Gender, count int) []*entity.Member {
	today := clock.Today(s.clock)

	queued := make(map[int]struct{})
	for _, a := range history {
		if a.IsActive() && a.HasMember() {
			queued[a.MemberID] = struct{}{}
		}
	}

	var eligible []*entity.Member
	for _, m := range roster {
		if !eligibleOn(m, gender, today) {
			continue
		}
		if _, ok := queued[m.ID]; ok {
			continue
		}
		eligible = append(eligible, m)
	}

	// Ties keep roster order.
	sort.SliceStable(eligible, func(i, j int) bool {
		return servedBefore(eligible[i].LastServiceDate, eligible[j].LastServiceDate)
	})

	if count < 0 {
		count = 0
	}
	if len(eligible) > count {
		eligible = eligible[:count]
	}
	return eligible
}

type Candidate struct {
	Member   *entity.Member
	Priority int
}

// LastServiceDisplay renders the last service date, or "Never".
func (c Candidate) LastServiceDisplay() string {
	if c.Member.LastServiceDate == nil {
		return "Never"
	}
	return c.Member.LastServiceDate.Format(entity.DateLayout)
}

// SelectWithContext is Select with a 1-based priority attached to each member.
func (s *Selector) SelectWithContext(roster []*entity.Member, history []*entity.DutyAssignment, gender entity.Gender, count int) []Candidate {
	members := s.Select(roster, history, gender, count)
	candidates := make([]Candidate, len(members))
	for i, m := range members {
		candidates[i] = Candidate{Member: m, Priority: i + 1}
	}
	return candidates
}

func eligibleOn(m *entity.Member, gender entity.Gender, today time.Time) bool {
	if !m.Active || m.Gender != gender || m.NeverAsk {
		return false
	}
	return m.SkipUntil == nil || entity.CompareDate(*m.SkipUntil, today) <= 0
}

func servedBefore(a, b *time.Time) bool {
	switch {
	case a == nil:
		return b != nil
	case b == nil:
		return false
	}
	return entity.CompareDate(*a, *b) < 0
}
