package dataset

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDownloader struct {
	bucket  string
	objects map[string]string
	lastKey string
}

func (f *fakeDownloader) Bucket() string { return f.bucket }

func (f *fakeDownloader) Download(_ context.Context, key string) (io.ReadCloser, string, error) {
	f.lastKey = key
	body, ok := f.objects[key]
	if !ok {
		return nil, "", errors.New("object not found")
	}
	return io.NopCloser(strings.NewReader(body)), `"etag"`, nil
}

func TestR2Source(t *testing.T) {
	t.Parallel()

	dl := &fakeDownloader{
		bucket:  "datasets",
		objects: map[string]string{"programs.csv": sampleCSV},
	}
	src := NewR2Source(dl, "programs.csv")

	assert.Equal(t, "r2", src.Kind())
	assert.Equal(t, "r2://datasets/programs.csv", src.Location())

	loader, _ := newTestLoader(src)
	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.Equal(t, "programs.csv", dl.lastKey)
}

func TestR2Source_MissingObject(t *testing.T) {
	t.Parallel()

	src := NewR2Source(&fakeDownloader{bucket: "datasets"}, "missing.xlsx")
	_, err := src.Open(context.Background())
	assert.Error(t, err)
}

func TestFileSource_CanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewFileSource("programs.xlsx").Open(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "file", NewFileSource("x").Kind())
}

type fakeFetcher struct {
	files map[string][]byte
}

func (f *fakeFetcher) Addr() string { return "files.example.com:22" }

func (f *fakeFetcher) Fetch(_ context.Context, path string) ([]byte, error) {
	data, ok := f.files[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return data, nil
}

func TestSFTPSource(t *testing.T) {
	t.Parallel()

	src := NewSFTPSource(&fakeFetcher{files: map[string][]byte{
		"/exports/programs.csv": []byte(sampleCSV),
	}}, "/exports/programs.csv")

	assert.Equal(t, "sftp", src.Kind())
	assert.Equal(t, "sftp://files.example.com:22/exports/programs.csv", src.Location())

	loader, m := newTestLoader(src)
	ds, err := loader.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, ds.Len())
	assert.InDelta(t, 1, testutil.ToFloat64(m.DatasetLoadsTotal.WithLabelValues("sftp", "success")), 0)
}
