package execlog

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Config controls buffering and batching for the Log.
type Config struct {
	BufferSize   int
	MaxBatch     int
	MaxBatchWait time.Duration
	SinkTimeout  time.Duration
	Logger       *zap.Logger
}

const (
	defaultBufferSize   = 1024
	defaultMaxBatch     = 64
	defaultMaxBatchWait = 500 * time.Millisecond
	defaultSinkTimeout  = 10 * time.Second
)

// Log fans entries out to registered sinks from a background goroutine.
// Append never blocks the pipeline; a full buffer drops the entry with a
// warning, since the execution log is an observability surface, not a
// correctness dependency.
type Log struct {
	cfg    Config
	sinks  []Sink
	events chan Entry
	doneCh chan struct{}
	logger *zap.Logger

	closeOnce sync.Once
}

// New starts a Log writing to the given sinks. Passing no sinks yields a
// functioning no-op log.
func New(cfg Config, sinks ...Sink) *Log {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.MaxBatchWait <= 0 {
		cfg.MaxBatchWait = defaultMaxBatchWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	l := &Log{
		cfg:    cfg,
		sinks:  append([]Sink(nil), sinks...),
		events: make(chan Entry, cfg.BufferSize),
		doneCh: make(chan struct{}),
		logger: cfg.Logger,
	}
	go l.run()
	return l
}

// NewNop returns a Log with no sinks, for tests.
func NewNop() *Log {
	return New(Config{})
}

// Append enqueues one entry, stamping the time if unset.
func (l *Log) Append(level Level, action, message string) {
	if l == nil {
		return
	}
	entry := Entry{TS: time.Now().UTC(), Level: level, Action: action, Message: message}
	if err := entry.Validate(); err != nil {
		l.logger.Debug("discarding invalid execlog entry", zap.Error(err))
		return
	}
	select {
	case l.events <- entry:
	default:
		l.logger.Warn("execlog entry dropped due to backpressure",
			zap.String("action", action))
	}
}

// Info appends an INFO entry.
func (l *Log) Info(action, message string) { l.Append(LevelInfo, action, message) }

// Warn appends a WARN entry.
func (l *Log) Warn(action, message string) { l.Append(LevelWarn, action, message) }

// Error appends an ERROR entry.
func (l *Log) Error(action, message string) { l.Append(LevelError, action, message) }

// Close drains buffered entries, flushes the sinks, and closes them.
func (l *Log) Close(ctx context.Context) {
	l.closeOnce.Do(func() {
		close(l.events)
		select {
		case <-l.doneCh:
		case <-ctx.Done():
		}
		for _, sink := range l.sinks {
			sinkCtx, cancel := context.WithTimeout(context.Background(), l.cfg.SinkTimeout)
			if err := sink.Close(sinkCtx); err != nil {
				l.logger.Warn("execlog sink close failed", zap.Error(err))
			}
			cancel()
		}
	})
}

func (l *Log) run() {
	defer close(l.doneCh)
	ticker := time.NewTicker(l.cfg.MaxBatchWait)
	defer ticker.Stop()

	batch := make([]Entry, 0, l.cfg.MaxBatch)
	for {
		select {
		case entry, ok := <-l.events:
			if !ok {
				l.flush(batch)
				return
			}
			batch = append(batch, entry)
			if len(batch) >= l.cfg.MaxBatch {
				l.flush(batch)
				batch = batch[:0]
			}
		case <-ticker.C:
			if len(batch) > 0 {
				l.flush(batch)
				batch = batch[:0]
			}
		}
	}
}

func (l *Log) flush(batch []Entry) {
	if len(batch) == 0 {
		return
	}
	for _, sink := range l.sinks {
		ctx, cancel := context.WithTimeout(context.Background(), l.cfg.SinkTimeout)
		if err := sink.Append(ctx, batch); err != nil {
			l.logger.Warn("execlog sink append failed", zap.Error(err))
		}
		cancel()
	}
}
