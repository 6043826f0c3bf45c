package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Closer flushes and stops a handler that buffers records.
type Closer interface {
	Close()
}

type nopCloser struct{}

func (nopCloser) Close() {}

const (
	defaultQueueSize = 4096
	defaultWorkers   = 2
)

// AsyncHandler decouples pipeline request handling from log I/O: Handle
// enqueues a cloned record and returns, a drain pool writes to the inner
// handler. When the queue is full the record is dropped and counted rather
// than blocking a request.
type AsyncHandler struct {
	inner   slog.Handler
	queue   chan slog.Record
	drained *sync.WaitGroup
	dropped *atomic.Int64
}

// NewAsyncHandler wraps inner with a record queue of the given size drained
// by the given number of workers. Non-positive sizes fall back to defaults.
func NewAsyncHandler(inner slog.Handler, queueSize, workers int) *AsyncHandler {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if workers <= 0 {
		workers = defaultWorkers
	}
	h := &AsyncHandler{
		inner:   inner,
		queue:   make(chan slog.Record, queueSize),
		drained: &sync.WaitGroup{},
		dropped: &atomic.Int64{},
	}
	for range workers {
		h.drained.Add(1)
		go h.drain()
	}
	return h
}

func (h *AsyncHandler) drain() {
	defer h.drained.Done()
	for rec := range h.queue {
		_ = h.inner.Handle(context.Background(), rec)
	}
}

// Enabled delegates to the inner handler.
func (h *AsyncHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

// Handle enqueues a clone of the record. The clone is required because the
// record outlives this call once it crosses the queue.
func (h *AsyncHandler) Handle(_ context.Context, rec slog.Record) error { //nolint:gocritic // slog.Handler interface requires value receiver
	select {
	case h.queue <- rec.Clone():
	default:
		h.dropped.Add(1)
	}
	return nil
}

// WithAttrs returns a handler sharing the queue but wrapping a new inner handler.
func (h *AsyncHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &AsyncHandler{
		inner:   h.inner.WithAttrs(attrs),
		queue:   h.queue,
		drained: h.drained,
		dropped: h.dropped,
	}
}

// WithGroup returns a handler sharing the queue but wrapping a new inner handler.
func (h *AsyncHandler) WithGroup(name string) slog.Handler {
	return &AsyncHandler{
		inner:   h.inner.WithGroup(name),
		queue:   h.queue,
		drained: h.drained,
		dropped: h.dropped,
	}
}

// DroppedCount returns the number of records dropped on a full queue.
func (h *AsyncHandler) DroppedCount() int64 {
	return h.dropped.Load()
}

// Close drains the queue, stops the workers, and reports drops through the
// inner handler so lost volume is visible in the output stream.
func (h *AsyncHandler) Close() {
	close(h.queue)
	h.drained.Wait()
	if n := h.dropped.Load(); n > 0 {
		slog.New(h.inner).Warn("log records dropped on full queue", "count", n)
	}
}
