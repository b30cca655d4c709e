package adapter_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/m-mizutani/gt"
	"github.com/m-mizutani/orgintel/pkg/adapter"
)

func TestFileStorageRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := adapter.NewFileStorage(dir)

	gt.NoError(t, adapter.WriteAll(ctx, s, "nested/doc.json", []byte(`{"a":1}`)))

	data, err := adapter.ReadAll(ctx, s, "nested/doc.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), `{"a":1}`)

	// overwrite replaces the whole document
	gt.NoError(t, adapter.WriteAll(ctx, s, "nested/doc.json", []byte(`{"b":2}`)))
	data, err = adapter.ReadAll(ctx, s, "nested/doc.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), `{"b":2}`)

	// no temp files are left behind
	entries, err := os.ReadDir(filepath.Join(dir, "nested"))
	gt.NoError(t, err)
	gt.A(t, entries).Length(1)
}

func TestFileStorageNotFound(t *testing.T) {
	ctx := context.Background()
	s := adapter.NewFileStorage(t.TempDir())

	_, err := s.Get(ctx, "missing.json")
	gt.Error(t, err)
	gt.True(t, errors.Is(err, adapter.ErrObjectNotFound))
}

func TestFileStorageAbsoluteKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "abs.json")
	s := adapter.NewFileStorage("/nonexistent-base")

	gt.NoError(t, adapter.WriteAll(ctx, s, path, []byte("[]")))
	data, err := os.ReadFile(path)
	gt.NoError(t, err)
	gt.Equal(t, string(data), "[]")
}

func TestFileStorageUnclosedWriteIsInvisible(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := adapter.NewFileStorage(dir)
	gt.NoError(t, adapter.WriteAll(ctx, s, "doc.json", []byte("original")))

	w, err := s.Put(ctx, "doc.json")
	gt.NoError(t, err)
	_, err = w.Write([]byte("partial"))
	gt.NoError(t, err)

	// before Close the original content is still in place
	data, err := adapter.ReadAll(ctx, s, "doc.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), "original")

	gt.NoError(t, w.Close())
	data, err = adapter.ReadAll(ctx, s, "doc.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), "partial")
}

func TestCloudStorage(t *testing.T) {
	bucket := os.Getenv("TEST_STORAGE_BUCKET")
	if bucket == "" {
		t.Skip("TEST_STORAGE_BUCKET is not set")
	}

	ctx := context.Background()
	s, err := adapter.NewCloudStorage(ctx, bucket)
	gt.NoError(t, err)

	gt.NoError(t, adapter.WriteAll(ctx, s, "orgintel-test/doc.json", []byte(`{"ok":true}`)))
	data, err := adapter.ReadAll(ctx, s, "orgintel-test/doc.json")
	gt.NoError(t, err)
	gt.Equal(t, string(data), `{"ok":true}`)

	_, err = s.Get(ctx, "orgintel-test/missing.json")
	gt.True(t, errors.Is(err, adapter.ErrObjectNotFound))
}
