package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aulahub/console/pkg/metrics"
	"github.com/aulahub/console/storage"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// UploadFile is one file selected for a module attachment batch.
type UploadFile struct {
	Name string
	Size int64
	Data io.Reader
}

// UploadFailure reports a single file the batch had to skip.
type UploadFailure struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// Uploader pushes attachment batches into blob storage through a bounded
// worker. Concurrency 1 keeps uploads strictly sequential, so resulting URL
// order equals selection order by construction; higher values still preserve
// order because results are collected by index.
type Uploader struct {
	blobs       storage.BlobStore
	logger      *logrus.Logger
	concurrency int64
}

func NewUploader(blobs storage.BlobStore, concurrency int, logger *logrus.Logger) *Uploader {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Uploader{blobs: blobs, logger: logger, concurrency: int64(concurrency)}
}

// UploadBatch uploads files in selection order and returns the download URLs
// of the files that made it, in that same order. A per-file failure is
// reported and the batch continues; an authorization or bucket-configuration
// failure aborts the remaining files and surfaces ErrUploadAborted. Files
// already uploaded are never rolled back.
func (u *Uploader) UploadBatch(ctx context.Context, subjectID string, files []UploadFile) ([]string, []UploadFailure, error) {
	if len(files) == 0 {
		return nil, nil, nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		url  string
		err  error
		done bool
	}
	results := make([]result, len(files))

	var (
		wg       sync.WaitGroup
		fatalMu  sync.Mutex
		fatalErr error
	)
	sem := semaphore.NewWeighted(u.concurrency)
	batch := time.Now().Unix()

	for i := range files {
		if err := sem.Acquire(ctx, 1); err != nil {
			// batch was aborted, remaining files stay skipped
			break
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer sem.Release(1)

			if ctx.Err() != nil {
				// aborted while waiting on the semaphore
				return
			}
			f := files[i]
			key := objectName(subjectID, batch, i, f.Name)
			if err := u.blobs.Upload(ctx, key, contentTypeFor(f.Name), f.Data, f.Size); err != nil {
				u.logger.WithError(err).WithField("file", f.Name).Error("attachment upload failed")
				metrics.RecordUpload("failed")
				results[i] = result{err: err, done: true}
				if storage.IsFatalUploadErr(err) {
					fatalMu.Lock()
					if fatalErr == nil {
						fatalErr = err
					}
					fatalMu.Unlock()
					cancel()
				}
				return
			}
			url, err := u.blobs.DownloadURL(ctx, key)
			if err != nil {
				u.logger.WithError(err).WithField("file", f.Name).Error("attachment URL resolution failed")
				metrics.RecordUpload("failed")
				results[i] = result{err: err, done: true}
				// the blob is unreachable without a URL, clean it up
				if rmErr := u.blobs.Remove(ctx, key); rmErr != nil {
					u.logger.WithError(rmErr).WithField("file", f.Name).Warn("orphaned attachment cleanup failed")
				}
				return
			}
			metrics.RecordUpload("ok")
			results[i] = result{url: url, done: true}
		}(i)
	}
	wg.Wait()

	var urls []string
	var failures []UploadFailure
	for i, r := range results {
		switch {
		case !r.done:
			// skipped after abort
		case r.err != nil:
			failures = append(failures, UploadFailure{Name: files[i].Name, Err: r.err.Error()})
		default:
			urls = append(urls, r.url)
		}
	}

	if fatalErr != nil {
		return urls, failures, fmt.Errorf("%w: %v", ErrUploadAborted, fatalErr)
	}
	return urls, failures, nil
}

// objectName builds the storage key: subjects/<id>/modules/<token>-<name>,
// where the token mixes the batch timestamp, the file's index and a random
// suffix so same-named files in one batch never collide.
func objectName(subjectID string, batch int64, index int, filename string) string {
	if subjectID == "" {
		subjectID = "unknown"
	}
	token := fmt.Sprintf("%d-%d-%s", batch, index, uuid.New().String()[:8])
	return fmt.Sprintf("subjects/%s/modules/%s-%s", subjectID, token, sanitizeFilename(filename))
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == string(filepath.Separator) {
		return "archivo"
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "archivo"
	}
	return b.String()
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
