package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	_ Store  = (*Memory)(nil)
	_ Lister = (*Memory)(nil)
)

// Memory keeps objects in a map keyed by "bucket/key"
type Memory struct {
	mu      sync.Mutex
	objects map[string][]byte
	types   map[string]string
}

func NewMemory() *Memory {
	return &Memory{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
	}
}

func (m *Memory) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", bucket, key, ErrNotFound)
	}

	return append([]byte(nil), data...), nil
}

func (m *Memory) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.objects[bucket+"/"+key] = append([]byte(nil), data...)
	m.types[bucket+"/"+key] = contentType

	return nil
}

func (m *Memory) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var keys []string
	for name := range m.objects {
		key, ok := strings.CutPrefix(name, bucket+"/")
		if ok && strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	sort.Strings(keys)
	return keys, nil
}

// ContentType returns the content type an object was stored with
func (m *Memory) ContentType(bucket, key string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.types[bucket+"/"+key]
}
