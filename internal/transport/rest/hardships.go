package rest

import (
	"net/http"

	"collections-ledger/internal/domain"
	"collections-ledger/internal/service"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createHardship(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	var body CreateHardshipBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	req, err := h.hardships.Create(r.Context(), service.CreateHardshipRequest{
		AccountID:           accountID,
		Reason:              domain.HardshipReason(body.Reason),
		MonthlyIncome:       body.MonthlyIncome,
		MonthlyExpenses:     body.MonthlyExpenses,
		SupportingDocuments: body.SupportingDocuments,
		Actor:               actorFrom(r, body.Actor),
	})
	if err != nil {
		writeDomainError(w, err, "failed to create hardship request")
		return
	}

	Success(w, "Hardship request submitted", toHardshipView(req))
}

func (h *Handler) decideHardship(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	body, err := ValidateDecideHardshipBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	req, err := h.hardships.Decide(r.Context(), requestID, service.HardshipDecision{
		Approved:    *body.Approved,
		Notes:       body.Notes,
		PaymentPlan: body.PaymentPlan,
		Actor:       actorFrom(r, body.Actor),
	})
	if err != nil {
		writeDomainError(w, err, "failed to decide hardship request")
		return
	}

	Success(w, "Hardship request decided", toHardshipView(req))
}

func (h *Handler) getHardship(w http.ResponseWriter, r *http.Request) {
	req, err := h.hardships.Get(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		writeDomainError(w, err, "failed to read hardship request")
		return
	}
	Success(w, "", toHardshipView(req))
}

func (h *Handler) listHardships(w http.ResponseWriter, r *http.Request) {
	requests, err := h.hardships.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeDomainError(w, err, "failed to list hardship requests")
		return
	}

	views := make([]hardshipView, 0, len(requests))
	for i := range requests {
		views = append(views, toHardshipView(&requests[i]))
	}
	Success(w, "", views)
}
