package notify

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/slack-go/slack"
)

const displayDateLayout = "January 2, 2006"

type Sender interface {
	Send(ctx context.Context, m *entity.Member, text string) error
}

// SlackSender posts a direct message to the member's Slack user.
type SlackSender struct {
	client *slack.Client
}

func NewSlackSender(client *slack.Client) *SlackSender {
	return &SlackSender{client: client}
}

func (s *SlackSender) Send(ctx context.Context, m *entity.Member, text string) error {
	if m.SlackID == "" {
		return fmt.Errorf("member %d has no slack id", m.ID)
	}
	if _, _, err := s.client.PostMessageContext(ctx, m.SlackID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("post message: %w", err)
	}
	return nil
}

// LogSender only logs the message.
type LogSender struct{}

func (LogSender) Send(ctx context.Context, m *entity.Member, text string) error {
	log.Printf("Message to %s: %s.", m.FullName(), text)
	return nil
}

type Dispatcher struct {
	templates Templates
	sender    Sender
	location  *time.Location
}

func NewDispatcher(templates Templates, sender Sender, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.Local
	}
	return &Dispatcher{templates: templates, sender: sender, location: loc}
}

type dutyData struct {
	FirstName string
	LastName  string
	Date      string
	SlotType  string
	DayOfWeek string
}

// Duty renders the duty template name ("invite", "reminder") and sends it.
func (d *Dispatcher) Duty(ctx context.Context, name string, m *entity.Member, a *entity.DutyAssignment) (string, error) {
	text, err := d.templates.Render(ActivityDuty, dutyData{
		FirstName: m.DisplayName(),
		LastName:  m.LastName,
		Date:      a.Date.Format(displayDateLayout),
		SlotType:  strings.ToLower(string(a.SlotType)),
		DayOfWeek: a.Date.Weekday().String(),
	}, name)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	if err := d.sender.Send(ctx, m, text); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}

	return text, nil
}

type appointmentData struct {
	MemberName string
	Kind       string
	Date       string
	Time       string
	Conductor  string
}

// Appointment renders "<kind>_<name>", falling back to "default_<name>", and
// sends it.
func (d *Dispatcher) Appointment(ctx context.Context, name string, m *entity.Member, a *entity.Appointment) (string, error) {
	start := a.StartAt.In(d.location)
	text, err := d.templates.Render(ActivityAppointments, appointmentData{
		MemberName: m.DisplayName(),
		Kind:       a.Kind,
		Date:       start.Format(displayDateLayout),
		Time:       start.Format("3:04 PM"),
		Conductor:  ConductorForMessage(a.Conductor),
	}, a.Kind+"_"+name, "default_"+name)
	if err != nil {
		return "", fmt.Errorf("render: %w", err)
	}

	if err := d.sender.Send(ctx, m, text); err != nil {
		return "", fmt.Errorf("send: %w", err)
	}

	return text, nil
}

// ConductorForMessage phrases a conductor for a sentence.
func ConductorForMessage(conductor string) string {
	if conductor == "Counselor" {
		return "a counselor"
	}
	return conductor
}
