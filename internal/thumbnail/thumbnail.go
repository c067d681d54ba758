package thumbnail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/h2non/bimg"

	"motionportal/internal/logger"
)

const (
	maxImageSize  = 1024 // максимальный размер превью в пикселях
	jpegQuality   = 85
	ffmpegTimeout = 30 * time.Second
)

var ErrUnsupported = errors.New("unsupported content type for thumbnail")

var imageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
}

var videoTypes = map[string]bool{
	"video/mp4":        true,
	"video/quicktime":  true,
	"video/webm":       true,
	"video/x-matroska": true,
}

// Generator делает JPEG превью для изображений и видео
type Generator struct {
	tmpDir string
	log    *logger.Logger
}

func NewGenerator(tmpDir string, log *logger.Logger) (*Generator, error) {
	if tmpDir == "" {
		tmpDir = filepath.Join(os.TempDir(), "thumbnails")
	}
	if err := os.MkdirAll(tmpDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail dir %s: %w", tmpDir, err)
	}
	return &Generator{tmpDir: tmpDir, log: log.With("component", "thumbnail")}, nil
}

func Supports(contentType string) bool {
	ct := normalize(contentType)
	return imageTypes[ct] || videoTypes[ct]
}

func IsVideo(contentType string) bool {
	return videoTypes[normalize(contentType)]
}

func normalize(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = strings.TrimSpace(ct[:i])
	}
	return ct
}

// Generate читает исходник целиком, для видео сначала вынимает кадр через ffmpeg
func (g *Generator) Generate(ctx context.Context, contentType string, src io.Reader) ([]byte, error) {
	ct := normalize(contentType)
	switch {
	case imageTypes[ct]:
		data, err := io.ReadAll(src)
		if err != nil {
			return nil, fmt.Errorf("failed to read image: %w", err)
		}
		return optimizeImage(data)
	case videoTypes[ct]:
		return g.videoFrame(ctx, src)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, contentType)
	}
}

func (g *Generator) videoFrame(ctx context.Context, src io.Reader) ([]byte, error) {
	tmpPath, err := os.MkdirTemp(g.tmpDir, "frame_")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpPath)

	videoPath := filepath.Join(tmpPath, "input")
	videoFile, err := os.Create(videoPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(videoFile, src); err != nil {
		videoFile.Close()
		return nil, fmt.Errorf("failed to save video data: %w", err)
	}
	videoFile.Close()

	ctx, cancel := context.WithTimeout(ctx, ffmpegTimeout)
	defer cancel()

	duration, err := videoDuration(ctx, videoPath)
	if err != nil {
		return nil, err
	}

	previewTime := calculatePreviewTime(duration)
	outputPath := filepath.Join(tmpPath, "frame.jpg")

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", previewTime,
		"-i", videoPath,
		"-vf", fmt.Sprintf("scale=%d:-1:force_original_aspect_ratio=decrease", maxImageSize),
		"-frames:v", "1",
		"-q:v", "2",
		"-f", "image2",
		"-y",
		outputPath,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("failed to extract frame: %w (stderr: %s)", err, stderr.String())
	}

	imgData, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read frame image: %w", err)
	}

	g.log.Debug("video frame extracted", "at", previewTime, "bytes", len(imgData))
	return optimizeImage(imgData)
}

func videoDuration(ctx context.Context, videoPath string) (string, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath)

	output, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("failed to get video duration: %w", err)
	}
	return strings.TrimSpace(string(output)), nil
}

func optimizeImage(data []byte) ([]byte, error) {
	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}

	width, height := calculateNewDimensions(size.Width, size.Height, maxImageSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}
	return processed, nil
}

// calculateNewDimensions вписывает картинку в квадрат maxSize, не увеличивая маленькие
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width <= 0 || height <= 0 {
		return maxSize, maxSize
	}
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		newWidth = maxSize
		newHeight = (height * maxSize) / width
	} else {
		newHeight = maxSize
		newWidth = (width * maxSize) / height
	}
	return
}

// calculatePreviewTime кадр на 10% длительности, для коротких роликов первая секунда
func calculatePreviewTime(duration string) string {
	durationFloat, err := strconv.ParseFloat(duration, 64)
	if err != nil || durationFloat <= 10 {
		return "00:00:01"
	}

	previewSeconds := int(durationFloat * 0.1)
	hours := previewSeconds / 3600
	minutes := (previewSeconds % 3600) / 60
	seconds := previewSeconds % 60

	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
