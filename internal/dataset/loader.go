package dataset

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/garyellow/program-lookup/internal/config"
	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"golang.org/x/sync/singleflight"
)

const loadKey = "dataset"

// Loader reads the dataset on first use and caches it for the life of the
// process. There is no invalidation; a restart is the only refresh.
//
// A failed read is never cached, so the next Load call retries it.
// Concurrent cold calls share a single read through singleflight.
type Loader struct {
	source  Source
	logger  *logger.Logger
	metrics *metrics.Metrics
	timeout time.Duration

	group  singleflight.Group
	cached atomic.Pointer[Dataset]
}

// NewLoader creates a Loader for source. metrics may be nil.
func NewLoader(source Source, log *logger.Logger, m *metrics.Metrics) *Loader {
	return &Loader{
		source:  source,
		logger:  log.WithModule("dataset"),
		metrics: m,
		timeout: config.DatasetLoad,
	}
}

// Source returns the configured dataset source.
func (l *Loader) Source() Source {
	return l.source
}

// Cached returns the dataset if it has been loaded, without triggering a read.
func (l *Loader) Cached() (*Dataset, bool) {
	ds := l.cached.Load()
	return ds, ds != nil
}

// Load returns the cached dataset, reading it from the source on first use.
// Read or decode failures are returned as *errors.LoadError.
//
// The read itself runs detached from ctx so that one caller giving up does
// not fail it for the others; ctx only bounds how long this caller waits.
func (l *Loader) Load(ctx context.Context) (*Dataset, error) {
	if ds := l.cached.Load(); ds != nil {
		return ds, nil
	}

	ch := l.group.DoChan(loadKey, func() (any, error) {
		if ds := l.cached.Load(); ds != nil {
			return ds, nil
		}
		readCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), l.timeout)
		defer cancel()

		ds, err := l.read(readCtx)
		if err != nil {
			return nil, err
		}
		l.cached.Store(ds)
		return ds, nil
	})

	select {
	case res := <-ch:
		if res.Shared && l.metrics != nil {
			l.metrics.RecordSingleflightDedup(loadKey)
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Dataset), nil
	case <-ctx.Done():
		return nil, domerrors.NewLoadError(l.source.Location(), ctx.Err())
	}
}

func (l *Loader) read(ctx context.Context) (*Dataset, error) {
	start := time.Now()
	location := l.source.Location()

	ds, err := l.readOnce(ctx, location)
	duration := time.Since(start)

	if err != nil {
		l.logger.WithError(err).
			WithField("source", location).
			WithField("duration_ms", duration.Milliseconds()).
			ErrorContext(ctx, "Failed to load dataset")
		if l.metrics != nil {
			l.metrics.RecordDatasetLoad(l.source.Kind(), "error", duration.Seconds())
		}
		return nil, domerrors.NewLoadError(location, err)
	}

	l.logger.WithFields(map[string]any{
		"source":      location,
		"records":     ds.Len(),
		"columns":     len(ds.headers),
		"duration_ms": duration.Milliseconds(),
	}).InfoContext(ctx, "Dataset loaded and cached")
	if l.metrics != nil {
		l.metrics.RecordDatasetLoad(l.source.Kind(), "success", duration.Seconds())
		l.metrics.SetDatasetRecords(ds.Len())
	}
	return ds, nil
}

func (l *Loader) readOnce(ctx context.Context, location string) (*Dataset, error) {
	format, err := FormatFromName(location)
	if err != nil {
		return nil, err
	}

	raw, err := l.source.Open(ctx)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(location, raw)
	if err != nil {
		_ = raw.Close()
		return nil, fmt.Errorf("decompress dataset: %w", err)
	}
	defer func() { _ = rc.Close() }()

	records, headers, err := Decode(rc, format)
	if err != nil {
		return nil, err
	}
	return New(records, headers, location, time.Now()), nil
}
