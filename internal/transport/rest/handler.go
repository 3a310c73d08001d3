package rest

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"collections-ledger/internal/domain"
	"collections-ledger/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type LedgerWriter interface {
	Append(ctx context.Context, ev *domain.ActivityEvent) (string, error)
	AttachReply(ctx context.Context, in service.InboundReply) (bool, error)
}

type TimelineReader interface {
	GetTimeline(ctx context.Context, accountID string) ([]domain.ActivityEvent, error)
	GetThread(ctx context.Context, correlationKey string) (*domain.ActivityEvent, error)
}

type SettlementWorkflow interface {
	Create(ctx context.Context, req service.CreateSettlementRequest) (*domain.SettlementOffer, error)
	Respond(ctx context.Context, offerID string, accepted bool, actor string) (*domain.SettlementOffer, error)
	Get(ctx context.Context, offerID string) (*domain.SettlementOffer, error)
	List(ctx context.Context, accountID string) ([]domain.SettlementOffer, error)
}

type PTPWorkflow interface {
	Create(ctx context.Context, req service.CreatePTPRequest) (*domain.PromiseToPay, error)
	MarkHonored(ctx context.Context, ptpID, paymentEventRef, actor string) (*domain.PromiseToPay, error)
	MarkBroken(ctx context.Context, ptpID, actor string) (*domain.PromiseToPay, error)
	Get(ctx context.Context, ptpID string) (*domain.PromiseToPay, error)
	List(ctx context.Context, accountID string) ([]domain.PromiseToPay, error)
}

type HardshipWorkflow interface {
	Create(ctx context.Context, req service.CreateHardshipRequest) (*domain.HardshipRequest, error)
	Decide(ctx context.Context, requestID string, decision service.HardshipDecision) (*domain.HardshipRequest, error)
	Get(ctx context.Context, requestID string) (*domain.HardshipRequest, error)
	List(ctx context.Context, accountID string) ([]domain.HardshipRequest, error)
}

type ReconciliationWorkflow interface {
	Submit(ctx context.Context, req service.SubmitReconciliationRequest) (*domain.ReconciliationRequest, error)
	Approve(ctx context.Context, requestID, approverID string) (*domain.ReconciliationRequest, error)
	Reject(ctx context.Context, requestID, approverID, reason string) (*domain.ReconciliationRequest, error)
	Get(ctx context.Context, requestID string) (*domain.ReconciliationRequest, error)
	List(ctx context.Context, accountID string) ([]domain.ReconciliationRequest, error)
}

type TimelineExporter interface {
	StartTimelineExport(ctx context.Context, accountID string, selected []string, agentID string) (string, error)
	GetExports(ctx context.Context, agentID string) ([]interface{}, error)
	GetExport(ctx context.Context, exportID string, agentID string) (interface{}, error)
}

type Handler struct {
	ledger          LedgerWriter
	timeline        TimelineReader
	settlements     SettlementWorkflow
	ptps            PTPWorkflow
	hardships       HardshipWorkflow
	reconciliations ReconciliationWorkflow
	exports         TimelineExporter
}

func NewHandler(
	ledger LedgerWriter,
	timeline TimelineReader,
	settlements SettlementWorkflow,
	ptps PTPWorkflow,
	hardships HardshipWorkflow,
	reconciliations ReconciliationWorkflow,
	exports TimelineExporter,
) *Handler {
	return &Handler{
		ledger:          ledger,
		timeline:        timeline,
		settlements:     settlements,
		ptps:            ptps,
		hardships:       hardships,
		reconciliations: reconciliations,
		exports:         exports,
	}
}

func (h *Handler) InitRouter() *chi.Mux {
	return h.InitRouterWithAuth(nil)
}

func (h *Handler) InitRouterWithAuth(authMiddleware func(http.Handler) http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "collections ledger")
	})

	r.Route("/accounts/{account_id}", func(r chi.Router) {
		r.Get("/timeline", h.getTimeline)
		r.Post("/timeline/export", h.exportTimeline)
		r.Post("/events", h.appendEvent)

		r.Get("/settlements", h.listSettlements)
		r.Post("/settlements", h.createSettlement)

		r.Get("/ptps", h.listPTPs)
		r.Post("/ptps", h.createPTP)

		r.Get("/hardships", h.listHardships)
		r.Post("/hardships", h.createHardship)

		r.Get("/reconciliations", h.listReconciliations)
		r.Post("/reconciliations", h.submitReconciliation)
	})

	r.Route("/settlements/{offer_id}", func(r chi.Router) {
		r.Get("/", h.getSettlement)
		r.Post("/response", h.respondSettlement)
	})

	r.Route("/ptps/{ptp_id}", func(r chi.Router) {
		r.Get("/", h.getPTP)
		r.Post("/honored", h.honorPTP)
		r.Post("/broken", h.breakPTP)
	})

	r.Route("/hardships/{request_id}", func(r chi.Router) {
		r.Get("/", h.getHardship)
		r.Post("/decision", h.decideHardship)
	})

	r.Route("/reconciliations/{request_id}", func(r chi.Router) {
		r.Get("/", h.getReconciliation)
		r.Post("/approve", h.approveReconciliation)
		r.Post("/reject", h.rejectReconciliation)
	})

	r.Get("/threads/{correlation_key}", h.getThread)
	r.Post("/replies", h.postReply)

	r.Route("/export", func(r chi.Router) {
		r.Get("/", h.listExports)
		r.Get("/{export_id}", h.getExport)
	})

	return r
}
