package mining

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// MediaSink stores a locally produced artifact at the destination under
// name. commit is invoked once the artifact is durably in place; the caller
// uses it to write the reference into the card record. Store may complete
// asynchronously; Flush blocks until every store has finished.
//
// The strategy is chosen once per run: direct filesystem writes when the
// backend's media directory is reachable locally, queued uploads otherwise.
type MediaSink interface {
	Store(name, localPath string, commit func()) error
	Flush()
}

// DirectSink moves artifacts straight into the media directory.
type DirectSink struct {
	Dir string
}

func (s *DirectSink) Store(name, localPath string, commit func()) error {
	dest := filepath.Join(s.Dir, name)
	if err := os.Rename(localPath, dest); err != nil {
		// Rename fails across filesystems; fall back to copy.
		if err := copyFile(localPath, dest); err != nil {
			return err
		}
		os.Remove(localPath)
	}
	commit()
	return nil
}

func (s *DirectSink) Flush() {}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// MediaUploader is the backend upload operation the UploadSink consumes.
type MediaUploader interface {
	StoreMediaFile(ctx context.Context, name string, data []byte) (string, error)
}

// UploadSink ships artifacts to the backend over RPC on its own bounded
// worker pool, deleting the local copy after a successful upload.
type UploadSink struct {
	client MediaUploader
	pool   *WorkerPool
	log    *slog.Logger
}

// NewUploadSink starts the upload pool immediately.
func NewUploadSink(ctx context.Context, client MediaUploader, workers int, log *slog.Logger) *UploadSink {
	if log == nil {
		log = slog.Default()
	}
	if workers <= 0 {
		workers = 8
	}
	pool := NewWorkerPool(workers, workers*4)
	pool.Start(ctx)
	return &UploadSink{client: client, pool: pool, log: log}
}

func (s *UploadSink) Store(name, localPath string, commit func()) error {
	return s.pool.Submit(func(ctx context.Context) error {
		defer os.Remove(localPath)
		data, err := os.ReadFile(localPath)
		if err != nil {
			s.log.Warn("media upload read failed", "name", name, "err", err)
			return err
		}
		if _, err := s.client.StoreMediaFile(ctx, name, data); err != nil {
			s.log.Warn("media upload failed", "name", name, "err", err)
			return err
		}
		commit()
		return nil
	})
}

// Flush drains the upload pool. The sink cannot be reused afterwards.
func (s *UploadSink) Flush() { s.pool.Close() }
