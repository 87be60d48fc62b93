package handler

import (
	"net/http"
	"time"

	"github.com/178inaba/duty-scheduler/entity"
)

type assignmentResponse struct {
	ID          int     `json:"id"`
	MemberID    int     `json:"member_id"`
	Date        string  `json:"date"`
	SlotType    string  `json:"slot_type"`
	State       string  `json:"state"`
	CompletedAt *string `json:"completed_at"`
}

func toAssignmentResponse(a *entity.DutyAssignment) assignmentResponse {
	return assignmentResponse{
		ID:          a.ID,
		MemberID:    a.MemberID,
		Date:        a.Date.Format(entity.DateLayout),
		SlotType:    string(a.SlotType),
		State:       string(a.State),
		CompletedAt: formatDate(a.CompletedAt),
	}
}

func toAssignmentResponses(as []*entity.DutyAssignment) []assignmentResponse {
	res := make([]assignmentResponse, len(as))
	for i, a := range as {
		res[i] = toAssignmentResponse(a)
	}
	return res
}

func (h *Handler) ListAssignments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from := h.dutyService.NextSunday()
	if s := q.Get("from"); s != "" {
		t, err := entity.ParseDate(s, h.location)
		if err != nil {
			writeError(w, err)
			return
		}
		from = t
	}
	to := from.AddDate(0, 0, 7)
	if s := q.Get("to"); s != "" {
		t, err := entity.ParseDate(s, h.location)
		if err != nil {
			writeError(w, err)
			return
		}
		to = t
	}

	as, err := h.dutyService.Between(r.Context(), from, to)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignmentResponses(as))
}

func (h *Handler) GetAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}

	a, err := h.dutyService.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignmentResponse(a))
}

func (h *Handler) CreateAssignment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID int    `json:"member_id"`
		Date     string `json:"date"`
		SlotType string `json:"slot_type"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	date, err := entity.ParseDate(req.Date, h.location)
	if err != nil {
		writeError(w, err)
		return
	}
	slotType := entity.SlotUndecided
	if req.SlotType != "" {
		if slotType, err = entity.ParseSlotType(req.SlotType); err != nil {
			writeError(w, err)
			return
		}
	}

	a, err := h.dutyService.Create(r.Context(), req.MemberID, date, slotType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toAssignmentResponse(a))
}

type assignMemberResponse struct {
	Assignment      assignmentResponse `json:"assignment"`
	Created         bool               `json:"created"`
	AlreadyAssigned bool               `json:"already_assigned"`
}

func (h *Handler) AssignMember(w http.ResponseWriter, r *http.Request) {
	memberID, err := idParam(r, "memberID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Date string `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var date time.Time
	if req.Date != "" {
		if date, err = entity.ParseDate(req.Date, h.location); err != nil {
			writeError(w, err)
			return
		}
	}

	res, err := h.dutyService.AssignMember(r.Context(), memberID, date)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, assignMemberResponse{
		Assignment:      toAssignmentResponse(res.Assignment),
		Created:         res.Created,
		AlreadyAssigned: res.AlreadyAssigned,
	})
}

// UpdateAssignment applies one of slot_type, member_id or date, in that
// order of precedence.
func (h *Handler) UpdateAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		MemberID *int   `json:"member_id"`
		SlotType string `json:"slot_type"`
		Date     string `json:"date"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	ctx := r.Context()
	switch {
	case req.SlotType != "":
		slotType, err := entity.ParseSlotType(req.SlotType)
		if err != nil {
			writeError(w, err)
			return
		}
		changed, err := h.dutyService.SetSlotType(ctx, id, slotType)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, toAssignmentResponses(changed))
	case req.MemberID != nil:
		a, err := h.dutyService.SetMember(ctx, id, *req.MemberID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []assignmentResponse{toAssignmentResponse(a)})
	case req.Date != "":
		date, err := entity.ParseDate(req.Date, h.location)
		if err != nil {
			writeError(w, err)
			return
		}
		a, err := h.dutyService.SetDate(ctx, id, date)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, []assignmentResponse{toAssignmentResponse(a)})
	default:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "one of slot_type, member_id or date is required"})
	}
}

func (h *Handler) SetAssignmentState(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		State string `json:"state"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	state, err := entity.ParseDutyState(req.State)
	if err != nil {
		writeError(w, err)
		return
	}

	change, err := h.dutyService.SetState(r.Context(), id, state)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toAssignmentResponse(change.Assignment))
}

type declineResponse struct {
	Assignment assignmentResponse `json:"assignment"`
	SkipUntil  *string            `json:"skip_until"`
}

func (h *Handler) DeclineAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}

	change, err := h.dutyService.Decline(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	res := declineResponse{Assignment: toAssignmentResponse(change.Assignment)}
	if change.Member != nil {
		res.SkipUntil = formatDate(change.Member.SkipUntil)
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) DeleteAssignment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "assignmentID")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.dutyService.Delete(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) notifyAssignment(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := idParam(r, "assignmentID")
		if err != nil {
			writeError(w, err)
			return
		}

		msg, err := h.dutyService.Notify(r.Context(), id, name)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, messageResponse{Message: msg})
	}
}
