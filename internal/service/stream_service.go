package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/xfrr/goffmpeg/transcoder"
	"golang.org/x/sync/singleflight"

	"motionportal/internal/domain"
	"motionportal/internal/logger"
	"motionportal/internal/service/s3"
)

const (
	playlistName     = "playlist.m3u8"
	transcodeTimeout = 30 * time.Minute
	// Сколько ждать выхода ffmpeg после команды q, потом kill
	transcodeStopGrace = 5 * time.Second
)

var streamFileName = regexp.MustCompile(`^(playlist\.m3u8|segment_[0-9]+\.ts)$`)

// SourceFetcher скачивает исходник версии из бакета
type SourceFetcher interface {
	DownloadToFile(ctx context.Context, key, path string) error
	KeyFromURL(rawURL string) (string, bool)
}

// TranscodeFunc превращает input в HLS: playlist и сегменты по шаблону
type TranscodeFunc func(ctx context.Context, input, playlistPath, segmentPattern string) error

type StreamService struct {
	versions  *VersionService
	source    SourceFetcher
	dir       string
	transcode TranscodeFunc
	timeout   time.Duration
	group     singleflight.Group
	log       *logger.Logger
}

func NewStreamService(versions *VersionService, source SourceFetcher, dir string, transcode TranscodeFunc, log *logger.Logger) (*StreamService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create stream directory: %w", err)
	}
	if transcode == nil {
		transcode = TranscodeHLS
	}
	return &StreamService{
		versions:  versions,
		source:    source,
		dir:       dir,
		transcode: transcode,
		timeout:   transcodeTimeout,
		log:       log.With("component", "stream"),
	}, nil
}

// FilePath возвращает путь к файлу HLS версии, при первом запросе транскодирует.
// Одновременные первые запросы одной версии транскодируют один раз.
func (s *StreamService) FilePath(ctx context.Context, deliverableID, versionID uuid.UUID, name string) (string, error) {
	if !streamFileName.MatchString(name) {
		return "", domain.NotFoundError("stream file")
	}

	v, err := s.versions.GetVersion(ctx, deliverableID, versionID)
	if err != nil {
		return "", err
	}

	outputDir := filepath.Join(s.dir, v.ID.String())
	if !fileExists(filepath.Join(outputDir, playlistName)) {
		_, err, shared := s.group.Do(v.ID.String(), func() (interface{}, error) {
			return nil, s.prepare(ctx, v, outputDir)
		})
		if err != nil {
			return "", err
		}
		if shared {
			s.log.Debug("joined in-flight transcode", "version", v.ID)
		}
	}

	target := filepath.Join(outputDir, name)
	if !fileExists(target) {
		return "", domain.NotFoundError("stream file")
	}
	return target, nil
}

func (s *StreamService) prepare(ctx context.Context, v *domain.DeliverableVersion, outputDir string) error {
	if fileExists(filepath.Join(outputDir, playlistName)) {
		return nil
	}

	key, ok := s.source.KeyFromURL(v.FileURL)
	if !ok {
		return domain.ValidationError("version file is not stored in the review bucket")
	}

	// Транскодирование общее для всех ожидающих, отмена одного клиента его не прерывает
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	partial := outputDir + ".partial"
	if err := os.RemoveAll(partial); err != nil {
		return fmt.Errorf("failed to clean partial stream dir: %w", err)
	}
	if err := os.MkdirAll(partial, 0o755); err != nil {
		return fmt.Errorf("failed to create stream dir: %w", err)
	}

	started := time.Now()
	source := filepath.Join(partial, "source")
	if err := s.source.DownloadToFile(ctx, key, source); err != nil {
		os.RemoveAll(partial)
		if errors.Is(err, s3.ErrObjectNotFound) {
			return domain.NotFoundError("version file")
		}
		return fmt.Errorf("failed to fetch version source: %w", err)
	}

	err := s.transcode(ctx, source, filepath.Join(partial, playlistName), filepath.Join(partial, "segment_%d.ts"))
	os.Remove(source)
	if err != nil {
		os.RemoveAll(partial)
		return fmt.Errorf("transcoding failed: %w", err)
	}

	// Остатки прошлой неудачной попытки без playlist
	os.RemoveAll(outputDir)
	if err := os.Rename(partial, outputDir); err != nil {
		os.RemoveAll(partial)
		return fmt.Errorf("failed to publish stream dir: %w", err)
	}

	s.log.Info("version prepared for streaming", "version", v.ID, "took", time.Since(started))
	return nil
}

// TranscodeHLS кодирует в H.264/AAC, сегменты по 4 секунды
func TranscodeHLS(ctx context.Context, input, playlistPath, segmentPattern string) error {
	trans := new(transcoder.Transcoder)
	if err := trans.Initialize(input, playlistPath); err != nil {
		return fmt.Errorf("failed to initialize transcoder: %w", err)
	}

	trans.MediaFile().SetVideoCodec("libx264")
	trans.MediaFile().SetAudioCodec("aac")
	trans.MediaFile().SetHlsSegmentDuration(4)
	trans.MediaFile().SetHlsPlaylistType("vod")
	trans.MediaFile().SetHlsSegmentFilename(segmentPattern)

	kill := func() {
		if cmd := trans.Process(); cmd != nil && cmd.Process != nil {
			cmd.Process.Kill()
		}
	}
	return awaitTranscode(ctx, trans.Run(false), func() { trans.Stop() }, kill, transcodeStopGrace)
}

// awaitTranscode при отмене останавливает ffmpeg и дожидается его выхода:
// goroutine goffmpeg пишет в небуферизованный done и иначе повиснет
func awaitTranscode(ctx context.Context, done <-chan error, stop, kill func(), grace time.Duration) error {
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
	}

	stop()
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		kill()
		<-done
	}
	return ctx.Err()
}

func fileExists(p string) bool {
	info, err := os.Stat(p)
	return err == nil && !info.IsDir()
}
