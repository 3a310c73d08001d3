package rest

import (
	"net/http"

	"collections-ledger/internal/domain"
	"collections-ledger/internal/service"
	"collections-ledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

// actorFrom resolves the acting agent: an explicit body field wins, then the
// authenticated agent; a blank actor is filled in as System by the services.
func actorFrom(r *http.Request, bodyActor string) string {
	if bodyActor != "" {
		return bodyActor
	}
	if agentID, err := auth.GetAgentID(r.Context()); err == nil {
		return agentID
	}
	return ""
}

func (h *Handler) getTimeline(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")
	if accountID == "" {
		ErrorBadRequest(w, "account_id is required")
		return
	}

	events, err := h.timeline.GetTimeline(r.Context(), accountID)
	if err != nil {
		writeDomainError(w, err, "failed to read timeline")
		return
	}

	Success(w, "", toEventViews(events))
}

func (h *Handler) appendEvent(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	req, err := ValidateAppendEventRequest(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	ev, err := req.ToEvent(accountID)
	if err != nil {
		writeDomainError(w, err, "invalid event")
		return
	}
	ev.Actor = actorFrom(r, req.Actor)

	id, err := h.ledger.Append(r.Context(), ev)
	if err != nil {
		writeDomainError(w, err, "failed to append event")
		return
	}

	Success(w, "Event recorded", map[string]interface{}{
		"event_id": id,
	})
}

func (h *Handler) getThread(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "correlation_key")
	if key == "" {
		ErrorBadRequest(w, "correlation_key is required")
		return
	}

	ev, err := h.timeline.GetThread(r.Context(), key)
	if err != nil {
		writeDomainError(w, err, "failed to read thread")
		return
	}

	Success(w, "", toEventView(*ev))
}

func (h *Handler) postReply(w http.ResponseWriter, r *http.Request) {
	req, err := ValidatePostReplyBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	in := service.InboundReply{
		AccountID:      req.AccountID,
		CorrelationKey: req.CorrelationKey,
		Channel:        domain.Channel(req.Channel),
		Sender:         req.Sender,
		Content:        req.Content,
		Status:         req.Status,
	}
	if req.ReceivedAt != nil {
		in.ReceivedAt = *req.ReceivedAt
	}

	attached, err := h.ledger.AttachReply(r.Context(), in)
	if err != nil {
		writeDomainError(w, err, "failed to process reply")
		return
	}

	Success(w, "Reply processed", map[string]interface{}{
		"attached": attached,
	})
}
