package rest

import (
	"log"
	"net/http"

	"collections-ledger/internal/transport/auth"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) exportTimeline(w http.ResponseWriter, r *http.Request) {
	if h.exports == nil {
		ErrorInternal(w, "timeline export not configured")
		return
	}

	accountID := chi.URLParam(r, "account_id")

	var body TimelineExportBody
	if err := decodeBody(r, &body); err != nil {
		ErrorBadRequest(w, "invalid JSON")
		return
	}

	agentID, err := auth.GetAgentID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportID, err := h.exports.StartTimelineExport(r.Context(), accountID, body.Fields, agentID)
	if err != nil {
		writeDomainError(w, err, "failed to start timeline export")
		return
	}

	SuccessAccepted(w, "Timeline export queued", map[string]interface{}{
		"export_id": exportID,
	})
}

func (h *Handler) listExports(w http.ResponseWriter, r *http.Request) {
	agentID, err := auth.GetAgentID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exports, err := h.exports.GetExports(r.Context(), agentID)
	if err != nil {
		log.Printf("[HTTP] listExports error: %v", err)
		ErrorInternal(w, "failed to get exports")
		return
	}

	Success(w, "", exports)
}

func (h *Handler) getExport(w http.ResponseWriter, r *http.Request) {
	agentID, err := auth.GetAgentID(r.Context())
	if err != nil {
		ErrorUnauthorized(w, "Unauthorized")
		return
	}

	exportIDParam := chi.URLParam(r, "export_id")
	if exportIDParam == "" {
		ErrorBadRequest(w, "export_id is required")
		return
	}
	exportID := "exports:" + exportIDParam

	export, err := h.exports.GetExport(r.Context(), exportID, agentID)
	if err != nil {
		log.Printf("[HTTP] getExport error: %v", err)
		ErrorNotFound(w, "export not found")
		return
	}

	Success(w, "", export)
}
