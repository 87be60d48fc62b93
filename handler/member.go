package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/178inaba/duty-scheduler/rotation"
	"github.com/go-chi/chi/v5"
)

type memberResponse struct {
	ID              int     `json:"id"`
	Name            string  `json:"name"`
	DisplayName     string  `json:"display_name"`
	Aka             string  `json:"aka"`
	Gender          string  `json:"gender"`
	Active          bool    `json:"active"`
	NeverAsk        bool    `json:"never_ask"`
	SkipUntil       *string `json:"skip_until"`
	LastServiceDate *string `json:"last_service_date"`
}

func toMemberResponse(m *entity.Member) memberResponse {
	return memberResponse{
		ID:              m.ID,
		Name:            m.FullName(),
		DisplayName:     m.DisplayName(),
		Aka:             m.Aka,
		Gender:          string(m.Gender),
		Active:          m.Active,
		NeverAsk:        m.NeverAsk,
		SkipUntil:       formatDate(m.SkipUntil),
		LastServiceDate: formatDate(m.LastServiceDate),
	}
}

func toMemberResponses(ms []*entity.Member) []memberResponse {
	res := make([]memberResponse, len(ms))
	for i, m := range ms {
		res[i] = toMemberResponse(m)
	}
	return res
}

// optionalGender parses the gender query parameter, empty meaning any.
func optionalGender(r *http.Request) (entity.Gender, error) {
	g := r.URL.Query().Get("gender")
	if g == "" {
		return "", nil
	}
	return entity.ParseGender(g)
}

func (h *Handler) ListMembers(w http.ResponseWriter, r *http.Request) {
	gender, err := optionalGender(r)
	if err != nil {
		writeError(w, err)
		return
	}

	ms, err := h.memberService.List(r.Context(), gender)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponses(ms))
}

func (h *Handler) SearchMembers(w http.ResponseWriter, r *http.Request) {
	gender, err := optionalGender(r)
	if err != nil {
		writeError(w, err)
		return
	}
	limit := rotation.DefaultSearchLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		if limit, err = strconv.Atoi(s); err != nil || limit <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit"})
			return
		}
	}

	ms, err := h.dutyService.Search(r.Context(), r.URL.Query().Get("q"), gender, limit)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponses(ms))
}

type candidateResponse struct {
	ID              int    `json:"id"`
	Name            string `json:"name"`
	LastServiceDate string `json:"last_service_date"`
	Priority        int    `json:"priority"`
}

func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	gender, err := entity.ParseGender(chi.URLParam(r, "gender"))
	if err != nil {
		writeError(w, err)
		return
	}
	count := h.candidateCount
	if s := r.URL.Query().Get("count"); s != "" {
		if count, err = strconv.Atoi(s); err != nil || count <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid count"})
			return
		}
	}

	cs, err := h.dutyService.Candidates(r.Context(), gender, count)
	if err != nil {
		writeError(w, err)
		return
	}

	res := make([]candidateResponse, len(cs))
	for i, c := range cs {
		res[i] = candidateResponse{
			ID:              c.Member.ID,
			Name:            c.Member.FullName(),
			LastServiceDate: c.LastServiceDisplay(),
			Priority:        c.Priority,
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) GetMember(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, func(id int) (*entity.Member, error) {
		return h.memberService.Get(r.Context(), id)
	})
}

func (h *Handler) ToggleActive(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, func(id int) (*entity.Member, error) {
		return h.memberService.ToggleActive(r.Context(), id)
	})
}

func (h *Handler) ToggleNeverAsk(w http.ResponseWriter, r *http.Request) {
	h.memberAction(w, r, func(id int) (*entity.Member, error) {
		return h.memberService.ToggleNeverAsk(r.Context(), id)
	})
}

func (h *Handler) SetSkipUntil(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SkipUntil *string `json:"skip_until"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.memberAction(w, r, func(id int) (*entity.Member, error) {
		var until *time.Time
		if req.SkipUntil != nil && *req.SkipUntil != "" {
			t, err := entity.ParseDate(*req.SkipUntil, h.location)
			if err != nil {
				return nil, err
			}
			until = &t
		}
		return h.memberService.SetSkipUntil(r.Context(), id, until)
	})
}

func (h *Handler) SetAka(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Aka string `json:"aka"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	h.memberAction(w, r, func(id int) (*entity.Member, error) {
		return h.memberService.SetAka(r.Context(), id, req.Aka)
	})
}

func (h *Handler) memberAction(w http.ResponseWriter, r *http.Request, fn func(id int) (*entity.Member, error)) {
	id, err := idParam(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}

	m, err := fn(id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toMemberResponse(m))
}
