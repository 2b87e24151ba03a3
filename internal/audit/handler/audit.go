package handler

import (
	"net/http"

	"labbook/internal/audit/service"
	httputil "labbook/pkg/http"
	"labbook/pkg/logger"

	"github.com/julienschmidt/httprouter"
)

type AuditHandler struct {
	service service.AuditService
	log     *logger.Logger
}

func NewAuditHandler(service service.AuditService, log *logger.Logger) *AuditHandler {
	return &AuditHandler{
		service: service,
		log:     log,
	}
}

func (h *AuditHandler) GetRecent(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetRecent", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetRecent", err)
		return
	}

	events, total, err := h.service.GetRecent(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "GetRecent", err)
		return
	}

	if err := httputil.WritePaginated(w, events, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetRecent", "operation", "WritePaginated", "error", err)
	}
}

func (h *AuditHandler) GetByBooking(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	events, err := h.service.GetByBooking(r.Context(), ps.ByName("id"), actor)
	if err != nil {
		h.writeError(w, "GetByBooking", err)
		return
	}

	if err := httputil.WriteSuccess(w, events); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByBooking", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuditHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *AuditHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/audit", h.GetRecent)
	router.GET("/api/v1/audit/booking/:id", h.GetByBooking)
}
