package tsdriver

import (
	"context"
	"io"
)

// Source is the pull-iterator interface spec.md §6 names: the pipeline
// reads (and may copy) each timeslice so the source can release its
// memory before downstream work completes. Next returns io.EOF once
// exhausted, matching the Replayer.ReadFrame convention in
// legacy/internal/lidar/visualiser/replay.go's FrameReader.
type Source interface {
	// Next blocks until the next timeslice is available, ctx is
	// cancelled, or the source is exhausted (io.EOF).
	Next(ctx context.Context) (Timeslice, error)
	Close() error
}

// ErrSourceClosed is returned by a Source whose Close has already been
// called.
var ErrSourceClosed = io.ErrClosedPipe
