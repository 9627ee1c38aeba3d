package kvstore

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T, kvs KeyValueStore) {
	t.Helper()

	if _, err := kvs.Get("akey"); !errors.Is(err, ErrNoSuchKey) {
		t.Fatalf("expected ErrNoSuchKey, got %v", err)
	}

	value := []byte("some value")
	if err := kvs.Set("akey", value); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := kvs.Get("akey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(got, value) {
		t.Fatalf("expected %q, got %q", value, got)
	}

	if err := kvs.Delete("akey"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := kvs.Get("akey"); !errors.Is(err, ErrNoSuchKey) {
		t.Fatalf("expected ErrNoSuchKey after delete, got %v", err)
	}

	if err := kvs.Delete("akey"); err != nil {
		t.Fatalf("deleting a missing key must not fail: %v", err)
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()
	testStore(t, &Memory{})
}

func TestFS(t *testing.T) {
	t.Parallel()

	kvs, err := NewFS(filepath.Join(t.TempDir(), "kvstore"))
	if err != nil {
		t.Fatal(err)
	}
	testStore(t, kvs)
}

func TestFS_ValuesSurviveReopen(t *testing.T) {
	t.Parallel()

	basedir := filepath.Join(t.TempDir(), "kvstore")

	first, err := NewFS(basedir)
	if err != nil {
		t.Fatal(err)
	}
	if err := first.Set("akey", []byte("persisted")); err != nil {
		t.Fatal(err)
	}

	second, err := NewFS(basedir)
	if err != nil {
		t.Fatal(err)
	}
	value, err := second.Get("akey")
	if err != nil {
		t.Fatal(err)
	}
	if string(value) != "persisted" {
		t.Fatalf("expected persisted, got %q", value)
	}
}

func TestNewFS_MkdirError(t *testing.T) {
	t.Parallel()

	expected := errors.New("mocked error")
	kvs, err := newFS("testdata", func(path string, perm os.FileMode) error {
		return expected
	})
	if !errors.Is(err, expected) {
		t.Fatalf("expected mocked error, got %v", err)
	}
	if kvs != nil {
		t.Fatal("expected nil store")
	}
}
