package rest

import (
	"net/http"

	"collections-ledger/internal/service"
	"collections-ledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) submitReconciliation(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	body, paymentDate, err := ValidateSubmitReconciliationBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	requestedBy := body.RequestedBy
	if requestedBy == "" {
		if agentID, aerr := auth.GetAgentID(r.Context()); aerr == nil {
			requestedBy = agentID
		}
	}

	req, err := h.reconciliations.Submit(r.Context(), service.SubmitReconciliationRequest{
		AccountID:      accountID,
		Amount:         body.Amount,
		PaymentDate:    paymentDate,
		PaymentMethod:  body.PaymentMethod,
		TransactionRef: body.TransactionRef,
		ProofAttached:  body.ProofAttached,
		RequestedBy:    requestedBy,
	})
	if err != nil {
		writeDomainError(w, err, "failed to submit reconciliation request")
		return
	}

	Success(w, "Reconciliation request submitted", toReconciliationView(req))
}

func (h *Handler) approveReconciliation(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	var body DecideReconciliationBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	req, err := h.reconciliations.Approve(r.Context(), requestID, actorFrom(r, body.ApproverID))
	if err != nil {
		writeDomainError(w, err, "failed to approve reconciliation request")
		return
	}

	Success(w, "Reconciliation request approved", toReconciliationView(req))
}

func (h *Handler) rejectReconciliation(w http.ResponseWriter, r *http.Request) {
	requestID := chi.URLParam(r, "request_id")

	var body DecideReconciliationBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	req, err := h.reconciliations.Reject(r.Context(), requestID, actorFrom(r, body.ApproverID), body.Reason)
	if err != nil {
		writeDomainError(w, err, "failed to reject reconciliation request")
		return
	}

	Success(w, "Reconciliation request rejected", toReconciliationView(req))
}

func (h *Handler) getReconciliation(w http.ResponseWriter, r *http.Request) {
	req, err := h.reconciliations.Get(r.Context(), chi.URLParam(r, "request_id"))
	if err != nil {
		writeDomainError(w, err, "failed to read reconciliation request")
		return
	}
	Success(w, "", toReconciliationView(req))
}

func (h *Handler) listReconciliations(w http.ResponseWriter, r *http.Request) {
	requests, err := h.reconciliations.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeDomainError(w, err, "failed to list reconciliation requests")
		return
	}

	views := make([]reconciliationView, 0, len(requests))
	for i := range requests {
		views = append(views, toReconciliationView(&requests[i]))
	}
	Success(w, "", views)
}
