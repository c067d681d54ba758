package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/service"
)

type ApprovalService interface {
	Approve(ctx context.Context, in service.DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error)
	RequestChanges(ctx context.Context, in service.DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error)
	History(ctx context.Context, deliverableID uuid.UUID) ([]domain.Approval, error)
}

type ApprovalHandler struct {
	approvals ApprovalService
	log       *logger.Logger
}

// Тело необязательно
type decisionRequest struct {
	Notes     string     `json:"notes" validate:"max=5000"`
	VersionID *uuid.UUID `json:"versionId"`
}

type decideFunc func(ctx context.Context, in service.DecisionInput, actor domain.Actor) (*domain.ApprovalResult, error)

func NewApprovalHandler(approvals ApprovalService, log *logger.Logger) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, log: log}
}

func (h *ApprovalHandler) Approve(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.Approve)
}

func (h *ApprovalHandler) RequestChanges(w http.ResponseWriter, r *http.Request) {
	h.decide(w, r, h.approvals.RequestChanges)
}

func (h *ApprovalHandler) decide(w http.ResponseWriter, r *http.Request, decide decideFunc) {
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

	var req decisionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	result, err := decide(r.Context(), service.DecisionInput{
		DeliverableID: deliverableID,
		Notes:         req.Notes,
		VersionID:     req.VersionID,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *ApprovalHandler) History(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	approvals, err := h.approvals.History(r.Context(), deliverableID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, approvals)
}
