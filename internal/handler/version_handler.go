package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/service"
)

const multipartMemory = 32 << 20

type VersionService interface {
	CreateVersion(ctx context.Context, in service.CreateVersionInput, actor domain.Actor) (*domain.DeliverableVersion, error)
	ListVersions(ctx context.Context, deliverableID uuid.UUID) ([]domain.DeliverableVersion, error)
}

type DeliveryService interface {
	UploadVersion(ctx context.Context, in service.UploadVersionInput, actor domain.Actor) (*domain.DeliverableVersion, error)
	DownloadLink(ctx context.Context, deliverableID, versionID uuid.UUID) (*domain.DownloadLink, error)
}

type StreamService interface {
	FilePath(ctx context.Context, deliverableID, versionID uuid.UUID, name string) (string, error)
}

type VersionHandler struct {
	versions VersionService
	delivery DeliveryService
	streams  StreamService
	log      *logger.Logger
}

type createVersionRequest struct {
	FileURL      string  `json:"fileUrl" validate:"required,max=2048"`
	ThumbnailURL *string `json:"thumbnailUrl" validate:"omitempty,max=2048"`
	Notes        *string `json:"notes" validate:"omitempty,max=5000"`
}

func NewVersionHandler(versions VersionService, delivery DeliveryService, streams StreamService, log *logger.Logger) *VersionHandler {
	return &VersionHandler{
		versions: versions,
		delivery: delivery,
		streams:  streams,
		log:      log,
	}
}

func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	versions, err := h.versions.ListVersions(r.Context(), deliverableID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, versions)
}

func (h *VersionHandler) Create(w http.ResponseWriter, r *http.Request) {
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

	var req createVersionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}

	version, err := h.versions.CreateVersion(r.Context(), service.CreateVersionInput{
		DeliverableID: deliverableID,
		FileURL:       req.FileURL,
		ThumbnailURL:  req.ThumbnailURL,
		Notes:         req.Notes,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, version)
}

// Upload принимает multipart с полем file и необязательным notes
func (h *VersionHandler) Upload(w http.ResponseWriter, r *http.Request) {
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

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxUploadSize+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResponse{Error: "file is too large"})
			return
		}
		writeError(w, r, h.log, domain.ValidationError("invalid multipart form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, h.log, domain.ValidationError("file is required"))
		return
	}
	defer file.Close()

	contentType, err := detectContentType(file, header.Header.Get("Content-Type"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	var notes *string
	if v := r.FormValue("notes"); v != "" {
		notes = &v
	}

	version, err := h.delivery.UploadVersion(r.Context(), service.UploadVersionInput{
		DeliverableID: deliverableID,
		FileName:      header.Filename,
		ContentType:   contentType,
		Size:          header.Size,
		Body:          file,
		Notes:         notes,
	}, actor)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	h.log.Info("version uploaded",
		"deliverable", deliverableID,
		"version", version.VersionNumber,
		"size", header.Size,
	)
	writeJSON(w, http.StatusCreated, version)
}

func (h *VersionHandler) Download(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	versionID, err := uuidParam(r, "versionId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	link, err := h.delivery.DownloadLink(r.Context(), deliverableID, versionID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

func (h *VersionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if _, err := actorFrom(r); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	deliverableID, err := uuidParam(r, "id")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	versionID, err := uuidParam(r, "versionId")
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	filePath, err := h.streams.FilePath(r.Context(), deliverableID, versionID, chi.URLParam(r, "file"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}

	if path.Ext(filePath) == ".m3u8" {
		w.Header().Set("Content-Type", "application/vnd.apple.mpegurl")
		w.Header().Set("Cache-Control", "no-cache")
	} else {
		w.Header().Set("Content-Type", "video/mp2t")
		w.Header().Set("Cache-Control", "public, max-age=86400")
	}
	http.ServeFile(w, r, filePath)
}

// detectContentType доверяет заголовку части, иначе смотрит первые байты
func detectContentType(file io.ReadSeeker, declared string) (string, error) {
	if declared != "" && declared != "application/octet-stream" {
		return declared, nil
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(file, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", domain.ValidationError("cannot read uploaded file")
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}
	return http.DetectContentType(head[:n]), nil
}
