package rest

import (
	"errors"
	"log"
	"net/http"

	"collections-ledger/internal/domain"
)

// writeDomainError maps the service error taxonomy onto HTTP: invalid input
// is 400, illegal state machine transitions are 409, missing entities 404.
func writeDomainError(w http.ResponseWriter, err error, fallback string) {
	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		ErrorBadRequest(w, verr.Error())
		return
	}

	var terr *domain.InvalidStateTransitionError
	if errors.As(err, &terr) {
		ErrorConflict(w, terr.Error())
		return
	}

	if errors.Is(err, domain.ErrNotFound) {
		ErrorNotFound(w, "not found")
		return
	}

	log.Printf("[HTTP] %s: %v", fallback, err)
	ErrorInternal(w, fallback)
}
