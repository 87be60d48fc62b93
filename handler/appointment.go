package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/interval"
	"github.com/178inaba/duty-scheduler/service"
)

const clockLayout = "15:04"

type appointmentResponse struct {
	ID              int    `json:"id"`
	MemberID        int    `json:"member_id"`
	Kind            string `json:"kind"`
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
	Conductor       string `json:"conductor"`
	State           string `json:"state"`
}

func (h *Handler) toAppointmentResponse(a *entity.Appointment) appointmentResponse {
	start := a.StartAt.In(h.location)
	return appointmentResponse{
		ID:              a.ID,
		MemberID:        a.MemberID,
		Kind:            a.Kind,
		Date:            start.Format(entity.DateLayout),
		Time:            start.Format(clockLayout),
		DurationMinutes: a.DurationMinutes,
		Conductor:       a.Conductor,
		State:           string(a.State),
	}
}

// startAt combines a local date and "HH:MM".
func (h *Handler) startAt(date, clock string) (time.Time, error) {
	d, err := entity.ParseDate(date, h.location)
	if err != nil {
		return time.Time{}, err
	}
	offset, err := interval.ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return interval.At(d, offset), nil
}

type appointmentTypeResponse struct {
	Name             string `json:"name"`
	DefaultDuration  int    `json:"default_duration"`
	DefaultConductor string `json:"default_conductor"`
}

func (h *Handler) ListAppointmentTypes(w http.ResponseWriter, r *http.Request) {
	ts, err := h.appointmentService.Types(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	res := make([]appointmentTypeResponse, len(ts))
	for i, t := range ts {
		res[i] = appointmentTypeResponse{
			Name:             t.Name,
			DefaultDuration:  t.DefaultDuration,
			DefaultConductor: t.DefaultConductor,
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListAppointments(w http.ResponseWriter, r *http.Request) {
	date, err := entity.ParseDate(r.URL.Query().Get("date"), h.location)
	if err != nil {
		writeError(w, err)
		return
	}

	as, err := h.appointmentService.Day(r.Context(), date)
	if err != nil {
		writeError(w, err)
		return
	}

	res := make([]appointmentResponse, len(as))
	for i, a := range as {
		res[i] = h.toAppointmentResponse(a)
	}
	writeJSON(w, http.StatusOK, res)
}

type suggestTimeResponse struct {
	SuggestedTime *string `json:"suggested_time"`
	Available     bool    `json:"available"`
	Message       string  `json:"message,omitempty"`
}

func (h *Handler) SuggestTime(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	date, err := entity.ParseDate(q.Get("date"), h.location)
	if err != nil {
		writeError(w, err)
		return
	}
	duration := 0
	if s := q.Get("duration"); s != "" {
		if duration, err = strconv.Atoi(s); err != nil || duration <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid duration"})
			return
		}
	}

	t, ok, err := h.appointmentService.Suggest(r.Context(), date, q.Get("conductor"), duration)
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, suggestTimeResponse{
			Message: "No available time in the appointment window. Please choose a different day.",
		})
		return
	}

	s := t.In(h.location).Format(clockLayout)
	writeJSON(w, http.StatusOK, suggestTimeResponse{SuggestedTime: &s, Available: true})
}

type appointmentRequest struct {
	MemberID        int     `json:"member_id"`
	Kind            *string `json:"kind"`
	Date            string  `json:"date"`
	Time            string  `json:"time"`
	DurationMinutes *int    `json:"duration_minutes"`
	Conductor       *string `json:"conductor"`
}

func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	start, err := h.startAt(req.Date, req.Time)
	if err != nil {
		writeError(w, err)
		return
	}

	in := service.NewAppointment{MemberID: req.MemberID, StartAt: start}
	if req.Kind != nil {
		in.Kind = *req.Kind
	}
	if req.DurationMinutes != nil {
		in.DurationMinutes = *req.DurationMinutes
	}
	if req.Conductor != nil {
		in.Conductor = *req.Conductor
	}

	a, err := h.appointmentService.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, h.toAppointmentResponse(a))
}

func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	h.appointmentAction(w, r, func(id int) (*entity.Appointment, error) {
		return h.appointmentService.Get(r.Context(), id)
	})
}

func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	var req appointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.appointmentAction(w, r, func(id int) (*entity.Appointment, error) {
		u := service.AppointmentUpdate{
			Kind:            req.Kind,
			DurationMinutes: req.DurationMinutes,
			Conductor:       req.Conductor,
		}
		if req.Date != "" || req.Time != "" {
			date, clock := req.Date, req.Time
			if date == "" || clock == "" {
				cur, err := h.appointmentService.Get(r.Context(), id)
				if err != nil {
					return nil, err
				}
				start := cur.StartAt.In(h.location)
				if date == "" {
					date = start.Format(entity.DateLayout)
				}
				if clock == "" {
					clock = start.Format(clockLayout)
				}
			}
			start, err := h.startAt(date, clock)
			if err != nil {
				return nil, err
			}
			u.StartAt = &start
		}
		return h.appointmentService.Update(r.Context(), id, u)
	})
}

func (h *Handler) SetAppointmentState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.appointmentAction(w, r, func(id int) (*entity.Appointment, error) {
		state, err := entity.ParseAppointmentState(req.State)
		if err != nil {
			return nil, err
		}
		return h.appointmentService.SetState(r.Context(), id, state)
	})
}

func (h *Handler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.appointmentAction(w, r, func(id int) (*entity.Appointment, error) {
		return h.appointmentService.Cancel(r.Context(), id)
	})
}

func (h *Handler) DeleteAppointment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "appointmentID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.appointmentService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) notifyAppointment(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "appointmentID")
		if err != nil {
			writeError(w, err)
			return
		}

		msg, err := h.appointmentService.Notify(r.Context(), id, name)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}

func (h *Handler) appointmentAction(w http.ResponseWriter, r *http.Request, fn func(id int) (*entity.Appointment, error)) {
	id, err := idParam(r, "appointmentID")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := fn(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, h.toAppointmentResponse(a))
}
