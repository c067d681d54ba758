package handler

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/service"
)

type CommentService interface {
	Create(ctx context.Context, in service.CreateCommentInput, actor domain.Actor) (*domain.TimelineComment, error)
	List(ctx context.Context, deliverableID uuid.UUID) ([]domain.TimelineComment, error)
	Update(ctx context.Context, in service.UpdateCommentInput, actor domain.Actor) (*domain.TimelineComment, error)
	Delete(ctx context.Context, deliverableID, commentID uuid.UUID, actor domain.Actor) error
}

type CommentHandler struct {
	comments CommentService
	log      *logger.Logger
}

type createCommentRequest struct {
	Content   string     `json:"content" validate:"required,max=10000"`
	Timestamp *float64   `json:"timestamp"`
	ParentID  *uuid.UUID `json:"parentId"`
}

type updateCommentRequest struct {
	Resolved *bool   `json:"resolved"`
	Content  *string `json:"content" validate:"omitempty,max=10000"`
}

func NewCommentHandler(comments CommentService, log *logger.Logger) *CommentHandler {
	return &CommentHandler{comments: comments, log: log}
}

func (h *CommentHandler) List(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	comments, err := h.comments.List(r.Context(), deliverableID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, comments)
}

func (h *CommentHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	comment, err := h.comments.Create(r.Context(), service.CreateCommentInput{
		DeliverableID: deliverableID,
		Content:       req.Content,
		Timestamp:     req.Timestamp,
		ParentID:      req.ParentID,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, comment)
}

func (h *CommentHandler) Update(w http.ResponseWriter, r *http.Request) {
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
	commentID, err := uuidParam(r, "commentId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var req updateCommentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	comment, err := h.comments.Update(r.Context(), service.UpdateCommentInput{
		DeliverableID: deliverableID,
		CommentID:     commentID,
		Resolved:      req.Resolved,
		Content:       req.Content,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, comment)
}

func (h *CommentHandler) Delete(w http.ResponseWriter, r *http.Request) {
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
	commentID, err := uuidParam(r, "commentId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if err := h.comments.Delete(r.Context(), deliverableID, commentID, actor); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, successResponse{Success: true})
}
