package source

import (
	"context"
	"time"
)

// Credentials is the decrypted, short-lived form a source connector
// receives to authenticate against the third-party API.
type Credentials struct {
	AuthMethod string
	Fields     map[string]string
}

// Batch is one page yielded by a Stream: a set of entities (which may
// interleave DeletionEntity markers) and the cursor value to commit once
// the batch has been fully applied.
type Batch struct {
	Entities []Entity
	Cursor   string
}

// Stream is the lazy, finite, non-restartable sequence of entities a
// source connector exposes. The runtime drives it with NextBatch until
// done is true; the returned cursor is opaque and committed by the
// orchestrator only after the batch has been successfully dispatched.
//
// Expressed as a cursor-style stream rather than a push-based iterator:
// the runtime, not the source, decides concurrency and inactivity
// timeouts.
type Stream interface {
	// NextBatch blocks until a batch is ready, the inactivity timeout
	// elapses, or the source is exhausted. done=true means this was the
	// final batch (which may be empty).
	NextBatch(ctx context.Context) (batch Batch, done bool, err error)
	// Close releases any resources held by the stream (HTTP connections,
	// file handles).
	Close() error
}

// Factory constructs a Stream for one sync job, given resolved
// credentials and the cursor position to resume from.
type Factory func(ctx context.Context, creds Credentials, startCursor string) (Stream, error)

// BatchOptions bounds how long the runtime accumulates entities into one
// batch before dispatching it.
type BatchOptions struct {
	MaxSize           int
	InactivityTimeout time.Duration
}

// DefaultBatchOptions matches the orchestrator's default pipelining
// window.
var DefaultBatchOptions = BatchOptions{
	MaxSize:           256,
	InactivityTimeout: 5 * time.Second,
}
