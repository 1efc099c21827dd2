package s3

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bookwise/bookwise/internal/storage"
)

type fakeClient struct {
	objects      map[string][]byte
	bucketExists bool
	bucketErr    error
	created      []string
}

func newFakeClient() *fakeClient {
	return &fakeClient{objects: map[string][]byte{}, bucketExists: true}
}

func (f *fakeClient) Put(_ context.Context, _, key string, reader io.Reader, _ int64, _ string) (storage.ObjectInfo, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	f.objects[key] = data
	return storage.ObjectInfo{Key: key, Size: int64(len(data))}, nil
}

func (f *fakeClient) BucketExists(context.Context, string) (bool, error) {
	return f.bucketExists, f.bucketErr
}

func (f *fakeClient) CreateBucket(_ context.Context, bucket, _ string) error {
	f.created = append(f.created, bucket)
	f.bucketExists = true
	return nil
}

func TestStorePrefixesKeys(t *testing.T) {
	fc := newFakeClient()
	store, err := NewWithClient("audit", "bookwise", fc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	body := []byte(`[{"instruction":"list books"}]`)
	info, err := store.Put(context.Background(), "chat-audit/mode=mixed/date=2025-03-07/batch-1.json",
		bytes.NewReader(body), int64(len(body)), storage.PutOptions{ContentType: "application/json"})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	want := "bookwise/chat-audit/mode=mixed/date=2025-03-07/batch-1.json"
	if info.Key != want {
		t.Fatalf("got key %q, want %q", info.Key, want)
	}
	if !bytes.Equal(fc.objects[want], body) {
		t.Fatalf("stored body mismatch: %q", fc.objects[want])
	}
}

func TestStoreRejectsTraversalKeys(t *testing.T) {
	store, err := NewWithClient("audit", "", newFakeClient())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"../escape.json", "..", "", "  "} {
		if _, err := store.Put(context.Background(), key, bytes.NewReader(nil), 0, storage.PutOptions{}); err == nil {
			t.Fatalf("expected error for key %q", key)
		}
	}
}

func TestStorePing(t *testing.T) {
	fc := newFakeClient()
	store, err := NewWithClient("audit", "", fc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := store.Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	fc.bucketExists = false
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected error for missing bucket")
	}

	fc.bucketErr = errors.New("connection refused")
	if err := store.Ping(context.Background()); err == nil {
		t.Fatal("expected error when bucket check fails")
	}
}
