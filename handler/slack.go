package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/178inaba/duty-scheduler/entity"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
)

func (h *Handler) ReceiveEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	// Read body.
	bodyBytes, err := io.ReadAll(r.Body)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		log.Printf("Read body: %v.", err)
		return
	}

	// Validating a request.
	if err := validateRequest(h.slackSigningSecret, r.Header, bodyBytes); err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		log.Printf("Validate request: %v.", err)
		return
	}

	eventsAPIEvent, err := slackevents.ParseEvent(bodyBytes, slackevents.OptionNoVerifyToken())
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Printf("Parse event: %v.", err)
		return
	}

	switch eventsAPIEvent.Type {
	case slackevents.URLVerification:
		var r slackevents.ChallengeResponse
		if err := json.Unmarshal(bodyBytes, &r); err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			log.Printf("Unmarshal challenge response: %v.", err)
			return
		}

		w.Header().Set("Content-type", "text/plain")
		w.Write([]byte(r.Challenge))
	case slackevents.CallbackEvent:
		switch e := eventsAPIEvent.InnerEvent.Data.(type) {
		case *slackevents.AppMentionEvent:
			var text string
			if strings.Contains(e.Text, "candidates") {
				text, err = h.candidatesText(ctx)
			} else {
				text, err = h.weekText(ctx)
			}
			if err != nil {
				w.WriteHeader(http.StatusInternalServerError)
				log.Printf("Build reply: %v.", err)
				return
			}

			if _, _, err := h.slackClient.PostMessageContext(ctx, e.Channel, slack.MsgOptionText(text, false)); err != nil {
				log.Printf("Post message: %v.", err)
			}
		}
	}
}

// weekText describes next Sunday's duty slots.
func (h *Handler) weekText(ctx context.Context) (string, error) {
	sunday := h.dutyService.NextSunday()
	as, err := h.dutyService.Between(ctx, sunday, sunday.AddDate(0, 0, 1))
	if err != nil {
		return "", fmt.Errorf("list assignments: %w", err)
	}

	var lines []string
	for _, a := range as {
		if !a.IsActive() {
			continue
		}
		who := "(open)"
		if a.HasMember() {
			m, err := h.memberService.Get(ctx, a.MemberID)
			if err != nil {
				return "", fmt.Errorf("get member: %w", err)
			}
			who = m.FullName()
			if m.SlackID != "" {
				who = fmt.Sprintf("<@%s>", m.SlackID)
			}
		}
		lines = append(lines, fmt.Sprintf("%s: %s (%s)", a.SlotType, who, a.State))
	}

	date := sunday.Format(entity.DateLayout)
	if len(lines) == 0 {
		return fmt.Sprintf("No one is assigned for %s yet.", date), nil
	}
	return fmt.Sprintf("Duty for %s:\n%s", date, strings.Join(lines, "\n")), nil
}

func (h *Handler) candidatesText(ctx context.Context) (string, error) {
	var lines []string
	for _, g := range []entity.Gender{entity.GenderMale, entity.GenderFemale} {
		cs, err := h.dutyService.Candidates(ctx, g, h.candidateCount)
		if err != nil {
			return "", fmt.Errorf("candidates: %w", err)
		}
		names := make([]string, len(cs))
		for i, c := range cs {
			names[i] = fmt.Sprintf("%s (%s)", c.Member.FullName(), c.LastServiceDisplay())
		}
		lines = append(lines, fmt.Sprintf("%s: %s", g, strings.Join(names, ", ")))
	}
	return "Next up:\n" + strings.Join(lines, "\n"), nil
}

func validateRequest(signingSecret string, header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, signingSecret)
	if err != nil {
		return fmt.Errorf("new secret verifier: %w", err)
	}
	if _, err := sv.Write(body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	if err := sv.Ensure(); err != nil {
		return fmt.Errorf("ensure secret: %w", err)
	}

	return nil
}
