package entity

import (
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToUpper(strings.TrimSpace(s))); g {
	case GenderMale, GenderFemale:
		return g, nil
	}
	return "", fmt.Errorf("gender %q: %w", s, ErrInvalidInput)
}

type Member struct {
	ID              int        `db:"id"`
	FirstName       string     `db:"first_name"`
	LastName        string     `db:"last_name"`
	Aka             string     `db:"aka"`
	Gender          Gender     `db:"gender"`
	SlackID         string     `db:"slack_id"`
	Active          bool       `db:"active"`
	NeverAsk        bool       `db:"never_ask"`
	SkipUntil       *time.Time `db:"skip_until"`
	LastServiceDate *time.Time `db:"last_service_date"`
}

func (m *Member) FullName() string {
	return m.FirstName + " " + m.LastName
}

// DisplayName is the name used when addressing the member in messages.
func (m *Member) DisplayName() string {
	if m.Aka != "" {
		return m.Aka
	}
	return m.FirstName
}
