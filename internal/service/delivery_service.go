package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/thumbnail"
)

const (
	MaxUploadSize  = 2 << 30 // 2 GiB
	downloadURLTTL = 15 * time.Minute
	cleanupTimeout = 30 * time.Second

	imageThumbnailTimeout = 30 * time.Second
	videoThumbnailTimeout = 2 * time.Minute
)

// ObjectStorage часть s3.Storage, нужная доставке файлов
type ObjectStorage interface {
	Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error)
	PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error)
	DeleteObject(ctx context.Context, key string) error
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
	KeyFromURL(rawURL string) (string, bool)
}

type Thumbnailer interface {
	Generate(ctx context.Context, contentType string, src io.Reader) ([]byte, error)
}

type UploadVersionInput struct {
	DeliverableID uuid.UUID
	FileName      string
	ContentType   string
	Size          int64
	Body          io.ReadSeeker
	Notes         *string
}

type DeliveryService struct {
	deliverables DeliverableStore
	versions     *VersionService
	storage      ObjectStorage
	thumbs       Thumbnailer
	log          *logger.Logger
	now          func() time.Time
}

func NewDeliveryService(deliverables DeliverableStore, versions *VersionService, storage ObjectStorage, thumbs Thumbnailer, log *logger.Logger) *DeliveryService {
	return &DeliveryService{
		deliverables: deliverables,
		versions:     versions,
		storage:      storage,
		thumbs:       thumbs,
		log:          log.With("component", "delivery"),
		now:          time.Now,
	}
}

// UploadVersion кладет файл в бакет и создает из него версию.
// Если версия не создалась, загруженные объекты удаляются.
func (s *DeliveryService) UploadVersion(ctx context.Context, in UploadVersionInput, actor domain.Actor) (*domain.DeliverableVersion, error) {
	if in.Body == nil || in.Size <= 0 {
		return nil, domain.ValidationError("file is required")
	}
	if in.Size > MaxUploadSize {
		return nil, domain.ValidationError("file exceeds maximum size of %d bytes", MaxUploadSize)
	}

	if _, err := s.deliverables.GetByID(ctx, nil, in.DeliverableID); err != nil {
		return nil, err
	}

	prefix := fmt.Sprintf("deliverables/%s/%s", in.DeliverableID, uuid.New())
	fileKey := prefix + "/" + cleanFileName(in.FileName)

	fileURL, err := s.storage.Upload(ctx, fileKey, in.Body, in.Size, in.ContentType)
	if err != nil {
		return nil, fmt.Errorf("failed to upload version file: %w", err)
	}
	uploaded := []string{fileKey}

	var thumbnailURL *string
	if thumbKey, u := s.uploadThumbnail(ctx, prefix, in); u != "" {
		uploaded = append(uploaded, thumbKey)
		thumbnailURL = &u
	}

	version, err := s.versions.CreateVersion(ctx, CreateVersionInput{
		DeliverableID: in.DeliverableID,
		FileURL:       fileURL,
		ThumbnailURL:  thumbnailURL,
		Notes:         in.Notes,
	}, actor)
	if err != nil {
		s.cleanup(ctx, uploaded)
		return nil, err
	}
	return version, nil
}

// uploadThumbnail превью необязательно, ошибки только логируются
func (s *DeliveryService) uploadThumbnail(ctx context.Context, prefix string, in UploadVersionInput) (string, string) {
	if s.thumbs == nil {
		return "", ""
	}
	if !thumbnail.Supports(in.ContentType) {
		s.log.Debug("no thumbnail for content type", "contentType", in.ContentType)
		return "", ""
	}
	timeout := imageThumbnailTimeout
	if thumbnail.IsVideo(in.ContentType) {
		timeout = videoThumbnailTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if _, err := in.Body.Seek(0, io.SeekStart); err != nil {
		s.log.Warn("cannot rewind upload for thumbnail", "error", err)
		return "", ""
	}

	data, err := s.thumbs.Generate(ctx, in.ContentType, in.Body)
	if err != nil {
		if errors.Is(err, thumbnail.ErrUnsupported) {
			s.log.Debug("no thumbnail for content type", "contentType", in.ContentType)
		} else {
			s.log.Warn("thumbnail generation failed", "deliverable", in.DeliverableID, "error", err)
		}
		return "", ""
	}

	key := prefix + "/thumb.jpg"
	u, err := s.storage.PutBytes(ctx, key, data, "image/jpeg")
	if err != nil {
		s.log.Warn("thumbnail upload failed", "key", key, "error", err)
		return "", ""
	}
	return key, u
}

func (s *DeliveryService) cleanup(ctx context.Context, keys []string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()
	for _, key := range keys {
		if err := s.storage.DeleteObject(ctx, key); err != nil {
			s.log.Error("failed to remove orphaned upload", "key", key, "error", err)
		}
	}
}

// DownloadLink для файлов нашего бакета подписанная ссылка, внешние ссылки как есть
func (s *DeliveryService) DownloadLink(ctx context.Context, deliverableID, versionID uuid.UUID) (*domain.DownloadLink, error) {
	v, err := s.versions.GetVersion(ctx, deliverableID, versionID)
	if err != nil {
		return nil, err
	}

	key, ok := s.storage.KeyFromURL(v.FileURL)
	if !ok {
		return &domain.DownloadLink{URL: v.FileURL}, nil
	}

	signed, err := s.storage.PresignGet(ctx, key, downloadURLTTL)
	if err != nil {
		return nil, err
	}
	expiresAt := s.now().Add(downloadURLTTL).UTC()
	return &domain.DownloadLink{URL: signed, ExpiresAt: &expiresAt}, nil
}

func cleanFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimSpace(path.Base(name))
	if name == "" || name == "." || name == "/" || name == ".." {
		return "file"
	}
	return name
}
