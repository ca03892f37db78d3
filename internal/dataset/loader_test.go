package dataset

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	domerrors "github.com/garyellow/program-lookup/internal/errors"
	"github.com/garyellow/program-lookup/internal/logger"
	"github.com/garyellow/program-lookup/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = "course code,full course name\nCS101,Computer Science\nEE200,Electrical Engineering\n"

// countingSource serves fixed bytes and counts Open calls. When gate is
// non-nil, Open blocks until it is closed.
type countingSource struct {
	data  []byte
	err   error
	gate  chan struct{}
	opens atomic.Int32
}

func (s *countingSource) Kind() string     { return "file" }
func (s *countingSource) Location() string { return "memory/programs.csv" }

func (s *countingSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.opens.Add(1)
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(bytes.NewReader(s.data)), nil
}

func newTestLoader(src Source) (*Loader, *metrics.Metrics) {
	m := metrics.New(prometheus.NewRegistry())
	return NewLoader(src, logger.NewWithWriter("error", io.Discard), m), m
}

func TestLoader_LoadCSVFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "programs.csv")
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))

	loader, m := newTestLoader(NewFileSource(path))

	_, ok := loader.Cached()
	assert.False(t, ok)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, path, ds.Source())
	assert.False(t, ds.LoadedAt().IsZero())
	assert.Equal(t, "EE200", ds.At(1).Value("course code"))

	cached, ok := loader.Cached()
	require.True(t, ok)
	assert.Same(t, ds, cached)

	assert.InDelta(t, 1, testutil.ToFloat64(m.DatasetLoadsTotal.WithLabelValues("file", "success")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.DatasetRecords), 0)
}

func TestLoader_LoadXLSXFile(t *testing.T) {
	t.Parallel()

	path := writeXLSX(t, "programs.xlsx", [][]any{
		{"course code", "full course name", "degree Name"},
		{"CS101", "Computer Science", "BSc"},
	})

	loader, _ := newTestLoader(NewFileSource(path))
	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, ds.Len())
	assert.Equal(t, "BSc", ds.At(0).Value("degree Name"))
	assert.Equal(t, []string{"course code", "full course name", "degree Name"}, ds.Headers())
}

func TestLoader_CachesAfterFirstRead(t *testing.T) {
	t.Parallel()

	src := &countingSource{data: []byte(sampleCSV)}
	loader, _ := newTestLoader(src)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	for range 5 {
		ds, err := loader.Load(context.Background())
		require.NoError(t, err)
		assert.Same(t, first, ds)
	}
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestLoader_MissingFileIsNotCached(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "programs.csv")
	loader, m := newTestLoader(NewFileSource(path))

	_, err := loader.Load(context.Background())
	require.Error(t, err)

	var loadErr *domerrors.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, path, loadErr.Source)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.ErrorIs(t, err, domerrors.ErrDatasetUnavailable)

	_, ok := loader.Cached()
	assert.False(t, ok, "failed load must not populate the cache")
	assert.InDelta(t, 1, testutil.ToFloat64(m.DatasetLoadsTotal.WithLabelValues("file", "error")), 0)

	// Next call retries and succeeds once the file exists.
	require.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0o600))
	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
}

func TestLoader_UnsupportedExtension(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "programs.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o600))

	loader, _ := newTestLoader(NewFileSource(path))
	_, err := loader.Load(context.Background())
	assert.True(t, domerrors.IsLoadError(err))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestLoader_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	loader, _ := newTestLoader(&countingSource{err: boom})

	_, err := loader.Load(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, domerrors.IsLoadError(err))
}

func TestLoader_ConcurrentFirstLoadReadsOnce(t *testing.T) {
	t.Parallel()

	src := &countingSource{data: []byte(sampleCSV), gate: make(chan struct{})}
	loader, _ := newTestLoader(src)

	const callers = 16
	var (
		wg      sync.WaitGroup
		started sync.WaitGroup
	)
	results := make([]*Dataset, callers)
	errs := make([]error, callers)

	started.Add(callers)
	for i := range callers {
		wg.Go(func() {
			started.Done()
			results[i], errs[i] = loader.Load(context.Background())
		})
	}
	started.Wait()
	// Give the goroutines time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(src.gate)
	wg.Wait()

	for i := range callers {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), src.opens.Load())
}

func TestLoader_CallerCancellationDoesNotAbortSharedRead(t *testing.T) {
	t.Parallel()

	src := &countingSource{data: []byte(sampleCSV), gate: make(chan struct{})}
	loader, _ := newTestLoader(src)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := loader.Load(ctx)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, domerrors.IsLoadError(err))

	close(src.gate)
	assert.Eventually(t, func() bool {
		_, ok := loader.Cached()
		return ok
	}, time.Second, 10*time.Millisecond)

	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, int32(1), src.opens.Load())
}
