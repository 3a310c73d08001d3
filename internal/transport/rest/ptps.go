package rest

import (
	"net/http"

	"collections-ledger/internal/service"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) createPTP(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "account_id")

	body, promiseDate, err := ValidateCreatePTPBody(r)
	if err != nil {
		writeDomainError(w, err, "invalid JSON")
		return
	}

	ptp, err := h.ptps.Create(r.Context(), service.CreatePTPRequest{
		AccountID:   accountID,
		Amount:      body.Amount,
		PromiseDate: promiseDate,
		Notes:       body.Notes,
		Actor:       actorFrom(r, body.Actor),
	})
	if err != nil {
		writeDomainError(w, err, "failed to create promise to pay")
		return
	}

	Success(w, "Promise to pay created", toPTPView(ptp))
}

func (h *Handler) honorPTP(w http.ResponseWriter, r *http.Request) {
	ptpID := chi.URLParam(r, "ptp_id")

	var body HonorPTPBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	ptp, err := h.ptps.MarkHonored(r.Context(), ptpID, body.PaymentEventRef, actorFrom(r, body.Actor))
	if err != nil {
		writeDomainError(w, err, "failed to mark promise honored")
		return
	}

	Success(w, "Promise marked honored", toPTPView(ptp))
}

func (h *Handler) breakPTP(w http.ResponseWriter, r *http.Request) {
	ptpID := chi.URLParam(r, "ptp_id")

	var body BreakPTPBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	ptp, err := h.ptps.MarkBroken(r.Context(), ptpID, actorFrom(r, body.Actor))
	if err != nil {
		writeDomainError(w, err, "failed to mark promise broken")
		return
	}

	Success(w, "Promise marked broken", toPTPView(ptp))
}

func (h *Handler) getPTP(w http.ResponseWriter, r *http.Request) {
	ptp, err := h.ptps.Get(r.Context(), chi.URLParam(r, "ptp_id"))
	if err != nil {
		writeDomainError(w, err, "failed to read promise to pay")
		return
	}
	Success(w, "", toPTPView(ptp))
}

func (h *Handler) listPTPs(w http.ResponseWriter, r *http.Request) {
	promises, err := h.ptps.List(r.Context(), chi.URLParam(r, "account_id"))
	if err != nil {
		writeDomainError(w, err, "failed to list promises to pay")
		return
	}

	views := make([]ptpView, 0, len(promises))
	for i := range promises {
		views = append(views, toPTPView(&promises[i]))
	}
	Success(w, "", views)
}
