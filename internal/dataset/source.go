package dataset

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source opens the raw dataset bytes.
type Source interface {
	// Kind is a short label for metrics ("file", "r2", "sftp").
	Kind() string
	// Location identifies the dataset for logs and errors. Its extension
	// determines the decode format.
	Location() string
	// Open returns the dataset contents. Caller must close the reader.
	Open(ctx context.Context) (io.ReadCloser, error)
}

// FileSource reads the dataset from a local path.
type FileSource struct {
	Path string
}

// NewFileSource creates a FileSource for path.
func NewFileSource(path string) *FileSource {
	return &FileSource{Path: path}
}

// Kind implements Source.
func (s *FileSource) Kind() string { return "file" }

// Location implements Source.
func (s *FileSource) Location() string { return s.Path }

// Open implements Source.
func (s *FileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	return f, nil
}

// Downloader fetches objects from a bucket. Implemented by *r2client.Client.
type Downloader interface {
	Bucket() string
	Download(ctx context.Context, key string) (io.ReadCloser, string, error)
}

// R2Source reads the dataset from an object in an R2 bucket.
type R2Source struct {
	client Downloader
	key    string
}

// NewR2Source creates an R2Source for key.
func NewR2Source(client Downloader, key string) *R2Source {
	return &R2Source{client: client, key: key}
}

// Kind implements Source.
func (s *R2Source) Kind() string { return "r2" }

// Location implements Source.
func (s *R2Source) Location() string {
	return "r2://" + s.client.Bucket() + "/" + s.key
}

// Open implements Source.
func (s *R2Source) Open(ctx context.Context) (io.ReadCloser, error) {
	body, _, err := s.client.Download(ctx, s.key)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Fetcher reads whole files from a remote host. Implemented by *sftpclient.Client.
type Fetcher interface {
	Addr() string
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// SFTPSource reads the dataset from a file on an SFTP server.
type SFTPSource struct {
	client Fetcher
	path   string
}

// NewSFTPSource creates an SFTPSource for path.
func NewSFTPSource(client Fetcher, path string) *SFTPSource {
	return &SFTPSource{client: client, path: path}
}

// Kind implements Source.
func (s *SFTPSource) Kind() string { return "sftp" }

// Location implements Source.
func (s *SFTPSource) Location() string {
	return "sftp://" + s.client.Addr() + "/" + strings.TrimPrefix(s.path, "/")
}

// Open implements Source.
func (s *SFTPSource) Open(ctx context.Context) (io.ReadCloser, error) {
	data, err := s.client.Fetch(ctx, s.path)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
