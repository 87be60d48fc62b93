// Package interval suggests appointment times that do not collide with a
// conductor's existing appointments.
package interval

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
)

const (
	DefaultDurationMinutes = 15
)

// DefaultWindow is 11:00-12:00.
var DefaultWindow = Window{Start: 11 * time.Hour, End: 12 * time.Hour}

// Window is a daily booking window as offsets from local midnight.
type Window struct {
	Start time.Duration
	End   time.Duration
}

// ParseWindow parses "HH:MM-HH:MM".
func ParseWindow(s string) (Window, error) {
	from, to, ok := strings.Cut(s, "-")
	if !ok {
		return Window{}, fmt.Errorf("window %q: %w", s, entity.ErrInvalidInput)
	}
	start, err := ParseClock(from)
	if err != nil {
		return Window{}, err
	}
	end, err := ParseClock(to)
	if err != nil {
		return Window{}, err
	}
	if end <= start {
		return Window{}, fmt.Errorf("window %q ends before it starts: %w", s, entity.ErrInvalidInput)
	}
	return Window{Start: start, End: end}, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, fmt.Errorf("time %q: %w", s, entity.ErrInvalidInput)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 24 {
		return 0, fmt.Errorf("time %q: %w", s, entity.ErrInvalidInput)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 || (h == 24 && m != 0) {
		return 0, fmt.Errorf("time %q: %w", s, entity.ErrInvalidInput)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, nil
}

func (w Window) String() string {
	return formatClock(w.Start) + "-" + formatClock(w.End)
}

func formatClock(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d", int(d/time.Hour), int(d%time.Hour/time.Minute))
}

type Scheduler struct {
	location *time.Location
	window   Window
	windows  map[string]Window
}

type Option func(*Scheduler)

func WithWindow(w Window) Option {
	return func(s *Scheduler) { s.window = w }
}

func WithConductorWindow(conductor string, w Window) Option {
	return func(s *Scheduler) { s.windows[conductor] = w }
}

func NewScheduler(loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	s := &Scheduler{
		location: loc,
		window:   DefaultWindow,
		windows:  make(map[string]Window),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Scheduler) Location() *time.Location {
	return s.location
}

func (s *Scheduler) WindowFor(conductor string) Window {
	if w, ok := s.windows[conductor]; ok {
		return w
	}
	return s.window
}

type span struct {
	start, end time.Duration
}

// SuggestTime returns the earliest start on date inside the conductor's window
// where durationMinutes fits without overlapping a blocking appointment of that
// conductor. ok is false when nothing fits. existing may hold appointments of
// other days and conductors; they are ignored.
func (s *Scheduler) SuggestTime(date time.Time, conductor string, durationMinutes int, existing []*entity.Appointment) (time.Time, bool, error) {
	if date.IsZero() || conductor == "" {
		return time.Time{}, false, fmt.Errorf("date and conductor are required: %w", entity.ErrInvalidInput)
	}
	if durationMinutes <= 0 {
		return time.Time{}, false, fmt.Errorf("duration %d: %w", durationMinutes, entity.ErrInvalidInput)
	}

	y, m, d := date.Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.location)
	w := s.WindowFor(conductor)
	dur := time.Duration(durationMinutes) * time.Minute

	var busy []span
	for _, a := range existing {
		if a.Conductor != conductor || !a.Blocking() || !entity.SameDate(a.StartAt, midnight) {
			continue
		}
		start := clockOf(a.StartAt.In(s.location))
		busy = append(busy, span{start: start, end: start + time.Duration(a.DurationMinutes)*time.Minute})
	}
	sort.Slice(busy, func(i, j int) bool { return busy[i].start < busy[j].start })

	cursor := w.Start
	for cursor+dur <= w.End {
		blocked := false
		for _, b := range busy {
			if Overlaps(cursor, cursor+dur, b.start, b.end) {
				cursor = b.end
				blocked = true
				break
			}
		}
		if !blocked {
			return At(midnight, cursor), true, nil
		}
	}
	return time.Time{}, false, nil
}

// At returns the wall-clock time offset after midnight on date's day, in
// date's location. Unlike Add it is not skewed on daylight saving days.
func At(date time.Time, offset time.Duration) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, int(offset/time.Minute), 0, 0, date.Location())
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
}

// Overlaps reports whether [a,b) and [c,d) intersect.
func Overlaps(a, b, c, d time.Duration) bool {
	return !(b <= c || a >= d)
}

// FindConflict returns the first blocking appointment of conductor that
// overlaps [start, start+durationMinutes), skipping excludeID.
func FindConflict(existing []*entity.Appointment, conductor string, start time.Time, durationMinutes, excludeID int) *entity.Appointment {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	for _, a := range existing {
		if a.ID == excludeID && excludeID != 0 {
			continue
		}
		if a.Conductor != conductor || !a.Blocking() {
			continue
		}
		if a.StartAt.Before(end) && start.Before(a.EndAt()) {
			return a
		}
	}
	return nil
}
