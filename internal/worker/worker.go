// Package worker implements the unbundler batch loop: it receives S3
// notifications from a queue, converts each referenced document, and uploads
// the resulting table.
package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/bjaus/flatjson"
	"github.com/bjaus/flatjson/internal/job"
	"github.com/bjaus/flatjson/internal/metrics"
	"github.com/bjaus/flatjson/internal/queue"
	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// Queue is the message source.
type Queue interface {
	Receive(ctx context.Context) ([]queue.Message, error)
	Delete(ctx context.Context, m queue.Message) error
	Release(ctx context.Context, m queue.Message) error
}

// ObjectStore moves documents and tables.
type ObjectStore interface {
	Download(ctx context.Context, bucket, key string, w io.Writer) (int64, error)
	Upload(ctx context.Context, bucket, key string, r io.ReadSeeker, contentType string) error
}

// Converter turns a document file into a table file.
type Converter interface {
	ConvertFile(in, out string) (job.Result, error)
	Format() flatjson.Format
}

// Options configures a [Worker].
type Options struct {
	InputBucket  string
	OutputBucket string
	OutputPrefix string
	WorkDir      string
	// RetryDelay is the initial backoff after a failed receive. Default 1s.
	RetryDelay time.Duration
	// MaxRetryDelay caps the backoff. Default 1m.
	MaxRetryDelay time.Duration
}

// Worker processes queue messages until its context is cancelled.
type Worker struct {
	queue   Queue
	store   ObjectStore
	conv    Converter
	fs      afero.Afero
	opts    Options
	metrics *metrics.Metrics
	log     *slog.Logger
	newID   func() string
}

// New returns a Worker. Work directories are created on fs.
func New(q Queue, store ObjectStore, conv Converter, fs afero.Fs, opts Options, m *metrics.Metrics, log *slog.Logger) *Worker {
	if opts.RetryDelay <= 0 {
		opts.RetryDelay = time.Second
	}
	if opts.MaxRetryDelay <= 0 {
		opts.MaxRetryDelay = time.Minute
	}
	return &Worker{
		queue:   q,
		store:   store,
		conv:    conv,
		fs:      afero.Afero{Fs: fs},
		opts:    opts,
		metrics: m,
		log:     log,
		newID:   uuid.NewString,
	}
}

// Run polls the queue until ctx is cancelled. Receive failures are retried
// with exponential backoff. A message being processed when ctx is cancelled
// is finished; messages received but not yet started are released.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info("Starting worker", "input", w.opts.InputBucket, "output", w.opts.OutputBucket, "format", w.conv.Format())
	for {
		msgs, err := w.receive(ctx)
		if ctx.Err() != nil {
			w.release(msgs)
			w.log.Info("Stopping worker")
			return nil
		}
		if err != nil {
			return err
		}
		for i, m := range msgs {
			if ctx.Err() != nil {
				w.release(msgs[i:])
				break
			}
			if err := w.Handle(context.WithoutCancel(ctx), m); err != nil {
				w.log.Error("Handling message", "messageID", m.ID, "error", err)
			}
		}
	}
}

func (w *Worker) receive(ctx context.Context) ([]queue.Message, error) {
	var msgs []queue.Message
	err := retry.Do(
		func() error {
			var err error
			msgs, err = w.queue.Receive(ctx)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(0),
		retry.Delay(w.opts.RetryDelay),
		retry.MaxDelay(w.opts.MaxRetryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			w.log.Warn("Receiving messages", "attempt", n+1, "error", err)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("receiving messages: %w", err)
	}
	return msgs, nil
}

func (w *Worker) release(msgs []queue.Message) {
	for _, m := range msgs {
		if err := w.queue.Release(context.Background(), m); err != nil {
			w.log.Warn("Releasing message", "messageID", m.ID, "error", err)
		}
	}
}

// Handle processes one message. On success, or when the message references
// no objects, the message is deleted. On failure it is released for
// redelivery and the processing error is returned.
func (w *Worker) Handle(ctx context.Context, m queue.Message) error {
	log := w.log.With("messageID", m.ID)

	refs, err := queue.ParseS3Event(m.Body)
	if errors.Is(err, queue.ErrNoRecords) {
		log.Info("Deleting message without records")
		w.metrics.Message(metrics.ResultSkipped)
		return w.queue.Delete(ctx, m)
	}
	if err == nil {
		for _, ref := range refs {
			if err = w.process(ctx, ref, log); err != nil {
				break
			}
		}
	}
	if err != nil {
		log.Error("Processing message", "error", err)
		w.metrics.Message(metrics.ResultFailure)
		if rerr := w.queue.Release(ctx, m); rerr != nil {
			log.Error("Releasing message", "error", rerr)
		}
		return err
	}

	w.metrics.Message(metrics.ResultSuccess)
	return w.queue.Delete(ctx, m)
}

// process downloads, converts, and uploads one object inside its own work
// directory, which is removed afterwards.
func (w *Worker) process(ctx context.Context, ref queue.ObjectRef, log *slog.Logger) (err error) {
	start := time.Now()
	var res job.Result
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultFailure
		}
		w.metrics.Document(result, res.Rows, time.Since(start))
	}()

	dir := filepath.Join(w.opts.WorkDir, w.newID())
	if err := w.fs.MkdirAll(dir, 0o755); err != nil {
		return &flatjson.IOError{Op: "mkdir", Path: dir, Err: err}
	}
	defer func() {
		if err := w.fs.RemoveAll(dir); err != nil {
			log.Warn("Removing work directory", "path", dir, "error", err)
		}
	}()

	format := w.conv.Format()
	key := w.opts.OutputPrefix + job.OutputName(ref.Key, format)
	in := filepath.Join(dir, "document.json")
	out := filepath.Join(dir, path.Base(key))

	log.Info("Downloading document", "bucket", w.opts.InputBucket, "key", ref.Key)
	if err := w.download(ctx, ref.Key, in); err != nil {
		return err
	}

	res, err = w.conv.ConvertFile(in, out)
	if err != nil {
		return fmt.Errorf("converting %s: %w", ref.Key, err)
	}

	if err := w.upload(ctx, out, key, job.ContentType(format)); err != nil {
		return err
	}
	log.Info("Uploaded table", "key", ref.Key, "output", key, "rows", res.Rows, "columns", res.Columns)
	return nil
}

func (w *Worker) download(ctx context.Context, key, dst string) error {
	f, err := w.fs.Create(dst)
	if err != nil {
		return &flatjson.IOError{Op: "create", Path: dst, Err: err}
	}
	if _, err := w.store.Download(ctx, w.opts.InputBucket, key, f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return &flatjson.IOError{Op: "write", Path: dst, Err: err}
	}
	return nil
}

func (w *Worker) upload(ctx context.Context, src, key, contentType string) error {
	f, err := w.fs.Open(src)
	if err != nil {
		return &flatjson.IOError{Op: "open", Path: src, Err: err}
	}
	defer f.Close()
	return w.store.Upload(ctx, w.opts.OutputBucket, key, f, contentType)
}
