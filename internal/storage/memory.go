package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"photoportal/internal/sentinel"
)

// InMemory is an ObjectStore backed by a map, for tests and the demo
// environment. Presigned URLs are synthetic; SeedObject stands in for the
// client's PUT against a real provider.
type InMemory struct {
	mu      sync.RWMutex
	bucket  string
	objects map[string]ObjectInfo
}

// NewInMemory creates an in-memory object store.
func NewInMemory(bucket string) *InMemory {
	if bucket == "" {
		bucket = "demo"
	}
	return &InMemory{bucket: bucket, objects: make(map[string]ObjectInfo)}
}

// SeedObject records an object as if a client had completed its presigned
// upload.
func (s *InMemory) SeedObject(key string, sizeBytes int64, contentType string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = ObjectInfo{
		Key:          key,
		SizeBytes:    sizeBytes,
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
	}
}

// PresignUpload returns a synthetic PUT URL.
func (s *InMemory) PresignUpload(_ context.Context, key, contentType string) (string, error) {
	return fmt.Sprintf("memory://%s/%s?op=put&content-type=%s", s.bucket, key, contentType), nil
}

// PresignDownload returns a synthetic GET URL for an existing object.
func (s *InMemory) PresignDownload(_ context.Context, key string) (string, error) {
	return fmt.Sprintf("memory://%s/%s?op=get", s.bucket, key), nil
}

// Head returns the object's metadata.
func (s *InMemory) Head(_ context.Context, key string) (*ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if info, ok := s.objects[key]; ok {
		cp := info
		return &cp, nil
	}
	return nil, fmt.Errorf("object %s: %w", key, sentinel.ErrNotFound)
}

// Delete removes the object. Deleting an absent object is success.
func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// ListPrefix returns objects under the prefix, ordered by key.
func (s *InMemory) ListPrefix(_ context.Context, prefix string) ([]ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []ObjectInfo
	for key, info := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// AggregateSize sums object sizes under the prefix.
func (s *InMemory) AggregateSize(ctx context.Context, prefix string) (int64, int, error) {
	objects, err := s.ListPrefix(ctx, prefix)
	if err != nil {
		return 0, 0, err
	}
	var total int64
	for _, obj := range objects {
		total += obj.SizeBytes
	}
	return total, len(objects), nil
}

// TestConnection always succeeds for the in-memory store.
func (s *InMemory) TestConnection(context.Context) error { return nil }

var _ ObjectStore = (*InMemory)(nil)
