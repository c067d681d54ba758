package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"golang.org/x/sync/errgroup"

	"motionportal/internal/logger"
)

const (
	defaultTimeout = 30 * time.Second
	// Файлы больше порога грузятся по частям
	multipartThreshold = 16 * 1024 * 1024
	partSize           = 8 * 1024 * 1024
	maxParallelParts   = 4
)

var ErrObjectNotFound = errors.New("object not found")

var _ Storage = (*Client)(nil)

// Client предоставляет методы для работы с S3-совместимым хранилищем
type Client struct {
	client        *s3.Client
	presign       *s3.PresignClient
	bucket        string
	publicBaseURL string
	log           *logger.Logger
}

// NewClient создает клиента и проверяет доступ к бакету
func NewClient(ctx context.Context, conf *Config, log *logger.Logger) (*Client, error) {
	if conf == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	if conf.AccessKeyID == "" || conf.SecretAccessKey == "" || conf.Bucket == "" {
		return nil, fmt.Errorf("missing required configuration: accessKeyID, secretAccessKey, and bucket are required")
	}

	creds := aws.NewCredentialsCache(credentials.NewStaticCredentialsProvider(
		conf.AccessKeyID,
		conf.SecretAccessKey,
		"",
	))

	client := s3.New(s3.Options{
		BaseEndpoint:     aws.String(conf.Endpoint),
		Region:           conf.Region,
		Credentials:      creds,
		RetryMode:        aws.RetryModeAdaptive,
		RetryMaxAttempts: 3,
	})

	s3Client := &Client{
		client:        client,
		presign:       s3.NewPresignClient(client),
		bucket:        conf.Bucket,
		publicBaseURL: strings.TrimRight(conf.PublicBaseURL, "/"),
		log:           log.With("component", "s3"),
	}

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := s3Client.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(conf.Bucket),
	})
	if err != nil {
		return nil, fmt.Errorf("unable to access bucket %s: %w", conf.Bucket, err)
	}

	return s3Client, nil
}

// Upload загружает поток и возвращает публичную ссылку на объект
func (h *Client) Upload(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	if key == "" || body == nil {
		return "", fmt.Errorf("key and body are required")
	}

	if size > multipartThreshold {
		if err := h.UploadLarge(ctx, key, body, contentType); err != nil {
			return "", err
		}
		return h.ObjectURL(key), nil
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return h.PutBytes(ctx, key, data, contentType)
}

func (h *Client) PutBytes(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("key is required")
	}

	input := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	if _, err := h.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("failed to upload data to S3: %w", err)
	}
	return h.ObjectURL(key), nil
}

// UploadLarge грузит поток частями, не больше maxParallelParts одновременно
func (h *Client) UploadLarge(ctx context.Context, key string, body io.Reader, contentType string) error {
	input := &s3.CreateMultipartUploadInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		input.ContentType = aws.String(contentType)
	}

	created, err := h.client.CreateMultipartUpload(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to create multipart upload: %w", err)
	}
	uploadID := aws.ToString(created.UploadId)

	var (
		mu    sync.Mutex
		parts []CompletedPart
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelParts)

	partNumber := 0
	for {
		buf := make([]byte, partSize)
		n, readErr := io.ReadFull(body, buf)
		if n > 0 {
			partNumber++
			number, chunk := partNumber, buf[:n]
			g.Go(func() error {
				etag, err := h.uploadPart(gctx, uploadID, key, number, chunk)
				if err != nil {
					return err
				}
				mu.Lock()
				parts = append(parts, CompletedPart{PartNumber: number, ETag: etag})
				mu.Unlock()
				return nil
			})
		}
		if readErr == io.EOF || readErr == io.ErrUnexpectedEOF {
			break
		}
		if readErr != nil {
			g.Wait()
			h.abortMultipartUpload(key, uploadID)
			return fmt.Errorf("failed to read file: %w", readErr)
		}
		if gctx.Err() != nil {
			break
		}
	}

	if err := g.Wait(); err != nil {
		h.abortMultipartUpload(key, uploadID)
		return err
	}

	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	if err := h.completeMultipartUpload(ctx, uploadID, key, parts); err != nil {
		h.abortMultipartUpload(key, uploadID)
		return err
	}

	h.log.Debug("multipart upload completed", "key", key, "parts", len(parts))
	return nil
}

func (h *Client) uploadPart(ctx context.Context, uploadID, key string, partNumber int, data []byte) (string, error) {
	result, err := h.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:     aws.String(h.bucket),
		Key:        aws.String(key),
		PartNumber: aws.Int32(int32(partNumber)),
		UploadId:   aws.String(uploadID),
		Body:       bytes.NewReader(data),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload part %d: %w", partNumber, err)
	}
	return aws.ToString(result.ETag), nil
}

func (h *Client) completeMultipartUpload(ctx context.Context, uploadID, key string, parts []CompletedPart) error {
	completedParts := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completedParts = append(completedParts, types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(int32(part.PartNumber)),
		})
	}

	_, err := h.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:   aws.String(h.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{
			Parts: completedParts,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to complete multipart upload: %w", err)
	}
	return nil
}

// abortMultipartUpload выполняется даже если контекст запроса уже отменен
func (h *Client) abortMultipartUpload(key, uploadID string) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	_, err := h.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(h.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		h.log.Warn("failed to abort multipart upload", "key", key, "error", err)
	}
}

// GetObject получает объект из S3
func (h *Client) GetObject(ctx context.Context, key string) (S3Object, error) {
	result, err := h.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("failed to get object from S3: %w", err)
	}

	return &s3Object{
		ReadCloser:    result.Body,
		contentLength: aws.ToInt64(result.ContentLength),
		contentType:   aws.ToString(result.ContentType),
	}, nil
}

// DownloadToFile сохраняет объект на диск для транскодирования
func (h *Client) DownloadToFile(ctx context.Context, key, path string) error {
	obj, err := h.GetObject(ctx, key)
	if err != nil {
		return err
	}
	defer obj.Close()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	if _, err := io.Copy(f, obj); err != nil {
		f.Close()
		return fmt.Errorf("failed to download object %s: %w", key, err)
	}
	return f.Close()
}

// DeleteObject удаляет объект, отсутствие объекта ошибкой не считается
func (h *Client) DeleteObject(ctx context.Context, key string) error {
	if key == "" {
		return fmt.Errorf("key is required")
	}

	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return nil
		}
		return fmt.Errorf("failed to delete object from S3: %w", err)
	}
	return nil
}

// PresignGet временная ссылка на скачивание
func (h *Client) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := h.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %w", key, err)
	}
	return req.URL, nil
}

func (h *Client) ObjectURL(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return h.publicBaseURL + "/" + strings.Join(segments, "/")
}

// KeyFromURL возвращает ключ, если ссылка указывает на наш бакет
func (h *Client) KeyFromURL(rawURL string) (string, bool) {
	prefix := h.publicBaseURL + "/"
	if h.publicBaseURL == "" || !strings.HasPrefix(rawURL, prefix) {
		return "", false
	}
	rest := strings.TrimPrefix(rawURL, prefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	key, err := url.PathUnescape(rest)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}
