// Package storage holds uploaded user files such as avatars.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
)

const (
	// MaxAvatarSize is the maximum allowed avatar upload (2MB).
	MaxAvatarSize = 2 * 1024 * 1024
	// BucketAvatars is the bucket profile pictures are uploaded to.
	BucketAvatars = "avatars"
)

// ErrObjectNotFound is returned by Get for a missing object.
var ErrObjectNotFound = errors.New("object not found")

// AllowedAvatarTypes maps accepted avatar MIME types to their extension.
var AllowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// ObjectStore is a bucket/key file store with public URLs.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader) (string, error)
	Get(ctx context.Context, bucket, key string) (body io.ReadCloser, contentType string, err error)
	PublicURL(bucket, key string) string
}

// ValidateAvatarType reports whether contentType is an accepted image type.
func ValidateAvatarType(contentType string) bool {
	_, ok := AllowedAvatarTypes[strings.ToLower(contentType)]
	return ok
}

// AvatarKey returns the object key for a user's avatar: {user_id}/avatar{ext}.
func AvatarKey(userID, contentType string) string {
	return path.Join(path.Base(userID), "avatar"+AllowedAvatarTypes[strings.ToLower(contentType)])
}

type memoryObject struct {
	contentType string
	data        []byte
}

// MemoryObjectStore keeps objects in process memory. Its public URLs point at
// baseURL, which is expected to serve them back through Get.
type MemoryObjectStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

// NewMemoryObjectStore creates an empty store.
func NewMemoryObjectStore(baseURL string) *MemoryObjectStore {
	return &MemoryObjectStore{objects: make(map[string]memoryObject), baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MemoryObjectStore) Upload(_ context.Context, bucket, key, contentType string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	m.mu.Lock()
	m.objects[bucket+"/"+key] = memoryObject{contentType: contentType, data: data}
	m.mu.Unlock()
	return m.PublicURL(bucket, key), nil
}

func (m *MemoryObjectStore) Get(_ context.Context, bucket, key string) (io.ReadCloser, string, error) {
	m.mu.RLock()
	obj, ok := m.objects[bucket+"/"+key]
	m.mu.RUnlock()
	if !ok {
		return nil, "", ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.contentType, nil
}

func (m *MemoryObjectStore) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", m.baseURL, bucket, key)
}
