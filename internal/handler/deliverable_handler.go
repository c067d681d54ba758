package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
)

type DeliverableService interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Deliverable, error)
}

type DeliverableHandler struct {
	deliverables DeliverableService
	log          *logger.Logger
}

func NewDeliverableHandler(deliverables DeliverableService, log *logger.Logger) *DeliverableHandler {
	return &DeliverableHandler{deliverables: deliverables, log: log}
}

func (h *DeliverableHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	d, err := h.deliverables.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
