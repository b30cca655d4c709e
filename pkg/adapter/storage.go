package adapter

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"

	"cloud.google.com/go/storage"
	"github.com/m-mizutani/goerr/v2"
)

// ErrObjectNotFound is returned by Storage.Get when the key does not exist.
var ErrObjectNotFound = goerr.New("object not found")

// Storage is the interface for keyed document storage. Writes become
// visible only when the writer is closed successfully.
type Storage interface {
	// Put returns a writer to save a document to storage
	Put(ctx context.Context, key string) (io.WriteCloser, error)
	// Get loads a document from storage
	Get(ctx context.Context, key string) (io.ReadCloser, error)
}

// storageClient implements Storage interface using Cloud Storage
type storageClient struct {
	bucketName string
	client     *storage.Client
}

// NewCloudStorage creates a new Cloud Storage client
func NewCloudStorage(ctx context.Context, bucketName string) (Storage, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create storage client")
	}

	return &storageClient{
		bucketName: bucketName,
		client:     client,
	}, nil
}

func (s *storageClient) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	writer := obj.NewWriter(ctx)
	writer.ContentType = "application/json"
	return writer, nil
}

func (s *storageClient) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	bucket := s.client.Bucket(s.bucketName)
	obj := bucket.Object(key)
	reader, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, goerr.Wrap(ErrObjectNotFound, "object does not exist in bucket",
				goerr.V("bucket", s.bucketName), goerr.V("key", key))
		}
		return nil, goerr.Wrap(err, "failed to read from storage", goerr.V("key", key))
	}

	return reader, nil
}

// fileStorage implements Storage on the local filesystem. Keys are paths
// relative to baseDir, or absolute paths.
type fileStorage struct {
	baseDir string
}

// NewFileStorage creates a Storage rooted at baseDir.
func NewFileStorage(baseDir string) Storage {
	return &fileStorage{baseDir: baseDir}
}

func (s *fileStorage) path(key string) string {
	if filepath.IsAbs(key) {
		return key
	}
	return filepath.Join(s.baseDir, key)
}

func (s *fileStorage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	path := s.path(key)
	f, err := os.Open(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		if os.IsNotExist(err) {
			return nil, goerr.Wrap(ErrObjectNotFound, "file does not exist", goerr.V("path", path))
		}
		return nil, goerr.Wrap(err, "failed to open file", goerr.V("path", path))
	}
	return f, nil
}

func (s *fileStorage) Put(ctx context.Context, key string) (io.WriteCloser, error) {
	path := s.path(key)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, goerr.Wrap(err, "failed to create directory", goerr.V("dir", dir))
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create temp file", goerr.V("path", path))
	}

	return &atomicFile{file: tmp, path: path}, nil
}

// atomicFile writes into a temp file and renames it over path on Close.
// After any failed Write, Close discards the temp file and keeps path intact.
type atomicFile struct {
	file   *os.File
	path   string
	err    error
	closed bool
}

func (f *atomicFile) Write(p []byte) (int, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, err := f.file.Write(p)
	if err != nil {
		f.err = goerr.Wrap(err, "failed to write temp file", goerr.V("path", f.path))
	}
	return n, f.err
}

func (f *atomicFile) Close() error {
	if f.closed {
		return f.err
	}
	f.closed = true
	tmpPath := f.file.Name()

	if f.err != nil {
		_ = f.file.Close()
		_ = os.Remove(tmpPath)
		return f.err
	}

	if err := f.file.Sync(); err != nil {
		_ = f.file.Close()
		_ = os.Remove(tmpPath)
		f.err = goerr.Wrap(err, "failed to sync temp file", goerr.V("path", f.path))
		return f.err
	}
	if err := f.file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		f.err = goerr.Wrap(err, "failed to close temp file", goerr.V("path", f.path))
		return f.err
	}
	if err := os.Rename(tmpPath, f.path); err != nil {
		_ = os.Remove(tmpPath)
		f.err = goerr.Wrap(err, "failed to rename temp file", goerr.V("path", f.path))
		return f.err
	}
	return nil
}

// ReadAll reads the whole document stored at key.
func ReadAll(ctx context.Context, s Storage, key string) ([]byte, error) {
	reader, err := s.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read document", goerr.V("key", key))
	}
	return data, nil
}

// WriteAll replaces the document stored at key with data.
func WriteAll(ctx context.Context, s Storage, key string, data []byte) error {
	writer, err := s.Put(ctx, key)
	if err != nil {
		return goerr.Wrap(err, "failed to create storage writer", goerr.V("key", key))
	}
	defer writer.Close()

	if _, err := writer.Write(data); err != nil {
		return goerr.Wrap(err, "failed to write document", goerr.V("key", key))
	}

	if err := writer.Close(); err != nil {
		return goerr.Wrap(err, "failed to close storage writer", goerr.V("key", key))
	}
	return nil
}
