package dataset

import (
	"io"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/zstd"
)

// Compression suffixes recognized on dataset names.
const (
	suffixZstd   = ".zst"
	suffixBrotli = ".br"
)

// trimCompression strips a known compression suffix from name.
func trimCompression(name string) string {
	lower := strings.ToLower(name)
	for _, suffix := range []string{suffixZstd, suffixBrotli} {
		if strings.HasSuffix(lower, suffix) {
			return name[:len(name)-len(suffix)]
		}
	}
	return name
}

// decompress wraps rc in a decoder chosen by the suffix of name.
// Uncompressed names return rc unchanged. Closing the result closes rc.
func decompress(name string, rc io.ReadCloser) (io.ReadCloser, error) {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, suffixZstd):
		decoder, err := zstd.NewReader(rc)
		if err != nil {
			return nil, err
		}
		return &decodingReader{Reader: decoder, release: decoder.Close, src: rc}, nil
	case strings.HasSuffix(lower, suffixBrotli):
		return &decodingReader{Reader: brotli.NewReader(rc), src: rc}, nil
	}
	return rc, nil
}

// decodingReader releases the decoder and the underlying stream together.
type decodingReader struct {
	io.Reader
	release func()
	src     io.Closer
}

func (d *decodingReader) Close() error {
	if d.release != nil {
		d.release()
	}
	return d.src.Close()
}
