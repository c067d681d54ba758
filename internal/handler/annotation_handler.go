package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/service"
)

type AnnotationService interface {
	Create(ctx context.Context, in service.CreateAnnotationInput, actor domain.Actor) (*domain.Annotation, error)
	List(ctx context.Context, deliverableID uuid.UUID) ([]domain.Annotation, error)
	Delete(ctx context.Context, deliverableID, annotationID uuid.UUID, actor domain.Actor) error
}

type AnnotationHandler struct {
	annotations AnnotationService
	log         *logger.Logger
}

// Timestamp указатель: 0 допустим, отсутствие поля нет
type createAnnotationRequest struct {
	Type        string             `json:"type" validate:"required,max=32"`
	Color       *string            `json:"color" validate:"omitempty,hexcolor"`
	Coordinates domain.Coordinates `json:"coordinates"`
	Timestamp   *float64           `json:"timestamp"`
	Comment     *string            `json:"comment" validate:"omitempty,max=5000"`
}

func NewAnnotationHandler(annotations AnnotationService, log *logger.Logger) *AnnotationHandler {
	return &AnnotationHandler{annotations: annotations, log: log}
}

func (h *AnnotationHandler) List(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	annotations, err := h.annotations.List(r.Context(), deliverableID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, annotations)
}

func (h *AnnotationHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var req createAnnotationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	annotation, err := h.annotations.Create(r.Context(), service.CreateAnnotationInput{
		DeliverableID: deliverableID,
		Type:          req.Type,
		Coordinates:   req.Coordinates,
		Timestamp:     req.Timestamp,
		Color:         req.Color,
		Comment:       req.Comment,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, annotation)
}

func (h *AnnotationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	annotationID, err := uuidParam(r, "annotationId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.annotations.Delete(r.Context(), deliverableID, annotationID, actor); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
