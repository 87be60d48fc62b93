package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/slack-go/slack"
)

type Handler struct {
	dutyService        *service.DutyService
	appointmentService *service.AppointmentService
	memberService      *service.MemberService
	slackClient        *slack.Client
	slackSigningSecret string
	location           *time.Location
	candidateCount     int
}

func NewHandler(
	dutyService *service.DutyService,
	appointmentService *service.AppointmentService,
	memberService *service.MemberService,
	slackClient *slack.Client,
	slackSigningSecret string,
	location *time.Location,
	candidateCount int,
) *Handler {
	return &Handler{
		dutyService:        dutyService,
		appointmentService: appointmentService,
		memberService:      memberService,
		slackClient:        slackClient,
		slackSigningSecret: slackSigningSecret,
		location:           location,
		candidateCount:     candidateCount,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Post("/events", h.ReceiveEvent)

	r.Route("/api", func(r chi.Router) {
		r.Get("/candidates/{gender}", h.ListCandidates)

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Get("/search", h.SearchMembers)
			r.Route("/{memberID}", func(r chi.Router) {
				r.Get("/", h.GetMember)
				r.Post("/toggle-active", h.ToggleActive)
				r.Post("/toggle-never-ask", h.ToggleNeverAsk)
				r.Post("/skip-until", h.SetSkipUntil)
				r.Post("/aka", h.SetAka)
				r.Post("/assignments", h.AssignMember)
			})
		})

		r.Route("/assignments", func(r chi.Router) {
			r.Get("/", h.ListAssignments)
			r.Post("/", h.CreateAssignment)
			r.Route("/{assignmentID}", func(r chi.Router) {
				r.Get("/", h.GetAssignment)
				r.Post("/", h.UpdateAssignment)
				r.Delete("/", h.DeleteAssignment)
				r.Post("/state", h.SetAssignmentState)
				r.Post("/decline", h.DeclineAssignment)
				r.Post("/invite", h.notifyAssignment(service.NotifyInvite))
				r.Post("/remind", h.notifyAssignment(service.NotifyReminder))
			})
		})

		r.Get("/appointment-types", h.ListAppointmentTypes)

		r.Route("/appointments", func(r chi.Router) {
			r.Get("/", h.ListAppointments)
			r.Post("/", h.CreateAppointment)
			r.Get("/suggest-time", h.SuggestTime)
			r.Route("/{appointmentID}", func(r chi.Router) {
				r.Get("/", h.GetAppointment)
				r.Post("/", h.UpdateAppointment)
				r.Delete("/", h.DeleteAppointment)
				r.Post("/state", h.SetAppointmentState)
				r.Post("/cancel", h.CancelAppointment)
				r.Post("/invite", h.notifyAppointment(service.NotifyInvite))
				r.Post("/remind", h.notifyAppointment(service.NotifyReminder))
			})
		})
	})

	return r
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Encode response: %v.", err)
	}
}

// writeError maps business errors to status codes and actionable text.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, entity.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrSlotsFull):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "All slots are full for this date. Please choose a different week or clear an existing slot."})
	case errors.Is(err, entity.ErrConflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case errors.Is(err, entity.ErrPastDate):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Cannot create assignments for past weeks. Please use current or future dates."})
	case errors.Is(err, entity.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	default:
		log.Printf("Internal error: %v.", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); errors.Is(err, io.EOF) {
		return nil
	} else if err != nil {
		return errors.Join(entity.ErrInvalidInput, err)
	}
	return nil
}

func idParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, errors.Join(entity.ErrInvalidInput, errors.New("invalid "+name))
	}
	return id, nil
}

func formatDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(entity.DateLayout)
	return &s
}
