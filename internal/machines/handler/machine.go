package handler

import (
	"encoding/json"
	"net/http"

	"labbook/internal/machines/service"
	httputil "labbook/pkg/http"
	"labbook/pkg/logger"
	"labbook/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type MachineHandler struct {
	service service.MachineService
	log     *logger.Logger
}

func NewMachineHandler(service service.MachineService, log *logger.Logger) *MachineHandler {
	return &MachineHandler{
		service: service,
		log:     log,
	}
}

func (h *MachineHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Create", err)
		return
	}

	var machine model.Machine
	if err := json.NewDecoder(r.Body).Decode(&machine); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &machine, actor); err != nil {
		h.writeError(w, "Create", err)
		return
	}

	if err := httputil.WriteCreated(w, machine); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *MachineHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	if _, err := httputil.ExtractActor(r); err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	machine, err := h.service.GetByID(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, machine); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MachineHandler) GetAll(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	machines, total, err := h.service.GetAll(r.Context(), actor, limit, offset)
	if err != nil {
		h.writeError(w, "GetAll", err)
		return
	}

	if err := httputil.WritePaginated(w, machines, total, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "GetAll", "operation", "WritePaginated", "error", err)
	}
}

func (h *MachineHandler) Search(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	query := r.URL.Query()
	machines, err := h.service.Search(r.Context(), query.Get("department"), query.Get("location"), actor)
	if err != nil {
		h.writeError(w, "Search", err)
		return
	}

	if err := httputil.WriteSuccess(w, machines); err != nil {
		h.log.Error("failed to write success response", "handler", "Search", "operation", "WriteSuccess", "error", err)
	}
}

func (h *MachineHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Update", err)
		return
	}

	var updates model.MachineUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Update(r.Context(), ps.ByName("id"), &updates, actor); err != nil {
		h.writeError(w, "Update", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MachineHandler) Deactivate(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	actor, err := httputil.ExtractActor(r)
	if err != nil {
		h.writeError(w, "Deactivate", err)
		return
	}

	if err := h.service.Deactivate(r.Context(), ps.ByName("id"), actor); err != nil {
		h.writeError(w, "Deactivate", err)
		return
	}

	httputil.WriteNoContent(w)
}

func (h *MachineHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func (h *MachineHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/machines", h.Create)
	router.GET("/api/v1/machines", h.GetAll)
	router.GET("/api/v1/machines/search", h.Search)
	router.GET("/api/v1/machines/id/:id", h.GetByID)
	router.PATCH("/api/v1/machines/id/:id", h.Update)
	router.POST("/api/v1/machines/id/:id/deactivate", h.Deactivate)
}
