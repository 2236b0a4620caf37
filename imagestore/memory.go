package imagestore

import (
	"context"
	"sync"
)

type memoryImage struct {
	mime string
	data []byte
}

// MemoryStore keeps images in process memory.
type MemoryStore struct {
	mu     sync.RWMutex
	images map[string]memoryImage
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{images: map[string]memoryImage{}}
}

func (s *MemoryStore) Store(_ context.Context, data []byte, mime string) (string, error) {
	mime, err := prepare(data, mime)
	if err != nil {
		return "", err
	}
	handle := newHandle(mime)
	s.mu.Lock()
	s.images[handle] = memoryImage{mime: mime, data: append([]byte(nil), data...)}
	s.mu.Unlock()
	return handle, nil
}

func (s *MemoryStore) Fetch(_ context.Context, handle string) ([]byte, string, error) {
	if err := checkHandle(handle); err != nil {
		return nil, "", err
	}
	s.mu.RLock()
	img, ok := s.images[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, "", notFound(handle)
	}
	return img.data, img.mime, nil
}

// Len reports the number of stored images.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.images)
}

func (s *MemoryStore) Close() error { return nil }
