package modelsync

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cavaliergopher/grab/v3"
	"go.uber.org/zap"
)

// Syncer keeps a local copy of a remote model file up to date.
type Syncer struct {
	store      ObjectStore
	state      *StateStore
	grabClient *grab.Client
	dest       string
	logger     *zap.Logger
}

func NewSyncer(store ObjectStore, state *StateStore, dest string,
	logger *zap.Logger, httpClient *http.Client) (*Syncer, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	grabClient := grab.NewClient()
	if httpClient != nil {
		grabClient.HTTPClient = httpClient
	}
	grabClient.UserAgent = "docvalidator-modelsync/1.0"

	return &Syncer{
		store:      store,
		state:      state,
		grabClient: grabClient,
		dest:       dest,
		logger:     logger,
	}, nil
}

// Sync downloads the remote object when its ETag differs from the one last
// recorded or the local file is missing. It reports whether the local file
// was replaced.
func (s *Syncer) Sync(ctx context.Context) (bool, error) {
	info, err := s.store.Stat(ctx)
	if err != nil {
		return false, err
	}

	last, err := s.state.ETag(s.store.Key())
	if err != nil {
		return false, fmt.Errorf("failed to read sync state: %w", err)
	}
	if _, statErr := os.Stat(s.dest); statErr == nil && last != "" && last == info.ETag {
		s.logger.Info("model is up to date",
			zap.String("object", s.store.Key()),
			zap.String("etag", info.ETag))
		return false, nil
	}

	url, err := s.store.PresignGet(ctx)
	if err != nil {
		return false, err
	}

	tmp := s.dest + ".download"
	_ = os.Remove(tmp)
	if err := s.download(ctx, url, tmp, info.Size); err != nil {
		_ = os.Remove(tmp)
		return false, err
	}
	if err := os.Rename(tmp, s.dest); err != nil {
		_ = os.Remove(tmp)
		return false, fmt.Errorf("failed to replace model file: %w", err)
	}
	if err := s.state.SetETag(s.store.Key(), info.ETag); err != nil {
		return true, fmt.Errorf("failed to record sync state: %w", err)
	}

	s.logger.Info("model updated",
		zap.String("object", s.store.Key()),
		zap.String("etag", info.ETag),
		zap.String("path", s.dest))
	return true, nil
}

func (s *Syncer) download(ctx context.Context, url, dst string, expectedSize int64) error {
	s.logger.Info("starting model download", zap.String("object", s.store.Key()))

	req, err := grab.NewRequest(dst, url)
	if err != nil {
		return fmt.Errorf("failed to create grab request: %w", err)
	}
	req = req.WithContext(ctx)
	req.NoResume = true
	req.NoCreateDirectories = true

	resp := s.grabClient.Do(req)

	t := time.NewTicker(500 * time.Millisecond)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			s.logger.Debug("download progress",
				zap.Float64("progress", resp.Progress()*100),
				zap.Int64("bytes_complete", resp.BytesComplete()),
				zap.Int64("bytes_total", resp.Size()),
				zap.Float64("speed_bps", resp.BytesPerSecond()))

		case <-resp.Done:
			if err := resp.Err(); err != nil {
				return fmt.Errorf("download failed: %w", err)
			}
			if expectedSize > 0 && resp.BytesComplete() != expectedSize {
				return fmt.Errorf("download size mismatch: got %d bytes, want %d",
					resp.BytesComplete(), expectedSize)
			}

			s.logger.Info("file downloaded",
				zap.String("path", resp.Filename),
				zap.Int64("size", resp.BytesComplete()),
				zap.Duration("duration", resp.Duration()))
			return nil
		}
	}
}
