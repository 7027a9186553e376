package destination

import (
	"context"
	"fmt"

	"github.com/airweave-ai/ingestion-core/internal/source"
)

// ArfReader iterates archival replay storage for one sync, in
// fingerprint order, without contacting the original third-party source.
type ArfReader interface {
	// Page returns up to limit entities starting after afterFingerprint
	// ("" for the first page), and whether more remain.
	Page(ctx context.Context, syncID string, afterFingerprint string, limit int) (entities []source.Entity, lastFingerprint string, more bool, err error)
}

// ReplayStream is the pseudo-source from §4.8: it yields the original
// entities recorded in ARF for a given sync_id, with skip_hash_comparison
// semantics driving the resolver since content is authoritative.
type ReplayStream struct {
	reader  ArfReader
	syncID  string
	cursor  string
	options source.BatchOptions
}

// NewReplayStream returns a Stream reading ARF for syncID, resuming
// after the fingerprint encoded in startCursor (empty for a full
// replay).
func NewReplayStream(reader ArfReader, syncID, startCursor string) *ReplayStream {
	return &ReplayStream{
		reader:  reader,
		syncID:  syncID,
		cursor:  startCursor,
		options: source.DefaultBatchOptions,
	}
}

func (s *ReplayStream) NextBatch(ctx context.Context) (source.Batch, bool, error) {
	entities, last, more, err := s.reader.Page(ctx, s.syncID, s.cursor, s.options.MaxSize)
	if err != nil {
		return source.Batch{}, false, fmt.Errorf("destination: replay page: %w", err)
	}

	s.cursor = last

	encoded, err := source.EncodeCursor(replayCursor{AfterFingerprint: last})
	if err != nil {
		return source.Batch{}, false, fmt.Errorf("destination: encode replay cursor: %w", err)
	}

	return source.Batch{Entities: entities, Cursor: encoded}, !more, nil
}

func (s *ReplayStream) Close() error { return nil }

type replayCursor struct {
	AfterFingerprint string `json:"after_fingerprint"`
}

// ReplayFactory adapts NewReplayStream to the source.Factory shape,
// ignoring credentials (replay never contacts the original source).
func ReplayFactory(reader ArfReader, syncID string) source.Factory {
	return func(_ context.Context, _ source.Credentials, startCursor string) (source.Stream, error) {
		var cur replayCursor
		if startCursor != "" {
			if err := source.DecodeCursor(startCursor, &cur); err != nil {
				return nil, fmt.Errorf("destination: decode replay cursor: %w", err)
			}
		}
		return NewReplayStream(reader, syncID, cur.AfterFingerprint), nil
	}
}
