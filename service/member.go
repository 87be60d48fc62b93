package service

import (
	"context"
	"fmt"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
)

// MemberService edits the roster fields that drive rotation.
type MemberService struct {
	store Store
}

func NewMemberService(store Store) *MemberService {
	return &MemberService{store: store}
}

func (s *MemberService) Get(ctx context.Context, id int) (*entity.Member, error) {
	return getMember(ctx, s.store.Repos().Members, id)
}

func (s *MemberService) List(ctx context.Context, gender entity.Gender) ([]*entity.Member, error) {
	ms, err := s.store.Repos().Members.List(ctx, gender)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return ms, nil
}

func (s *MemberService) ToggleActive(ctx context.Context, id int) (*entity.Member, error) {
	return s.update(ctx, id, func(m *entity.Member) { m.Active = !m.Active })
}

func (s *MemberService) ToggleNeverAsk(ctx context.Context, id int) (*entity.Member, error) {
	return s.update(ctx, id, func(m *entity.Member) { m.NeverAsk = !m.NeverAsk })
}

// SetSkipUntil sets the cooldown date; nil clears it.
func (s *MemberService) SetSkipUntil(ctx context.Context, id int, until *time.Time) (*entity.Member, error) {
	return s.update(ctx, id, func(m *entity.Member) {
		if until == nil {
			m.SkipUntil = nil
			return
		}
		d := entity.Date(*until)
		m.SkipUntil = &d
	})
}

func (s *MemberService) SetAka(ctx context.Context, id int, aka string) (*entity.Member, error) {
	return s.update(ctx, id, func(m *entity.Member) { m.Aka = aka })
}

func (s *MemberService) update(ctx context.Context, id int, fn func(m *entity.Member)) (*entity.Member, error) {
	var m *entity.Member
	if err := s.store.Transaction(ctx, func(r Repos) error {
		var err error
		if m, err = getMember(ctx, r.Members, id); err != nil {
			return err
		}
		fn(m)
		if err := r.Members.Update(ctx, m); err != nil {
			return fmt.Errorf("update member: %w", err)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	return m, nil
}
