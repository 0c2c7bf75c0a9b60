package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
)

var _ inventory.BlobStore = (*Memory)(nil)

type memObject struct {
	info inventory.BlobInfo
	data []byte
}

// Memory almacenamiento en memoria del proceso (tests y STORAGE_DRIVER=memory).
type Memory struct {
	mu   sync.RWMutex
	objs map[string]memObject
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{objs: make(map[string]memObject), now: time.Now}
}

func (m *Memory) Put(_ context.Context, key string, r io.Reader, contentType string) (inventory.BlobInfo, error) {
	key, err := cleanKey(key)
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objs[key]; ok {
		return inventory.BlobInfo{}, errExists(key)
	}
	info := inventory.BlobInfo{Key: key, Size: int64(len(data)), ContentType: contentType, LastModified: m.now().UTC()}
	m.objs[key] = memObject{info: info, data: data}
	return info, nil
}

func (m *Memory) Get(_ context.Context, key string) (inventory.BlobInfo, io.ReadCloser, error) {
	m.mu.RLock()
	obj, ok := m.objs[key]
	m.mu.RUnlock()
	if !ok {
		return inventory.BlobInfo{}, nil, errMissing(key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return obj.info, io.NopCloser(bytes.NewReader(data)), nil
}

func (m *Memory) List(_ context.Context, prefix string) ([]inventory.BlobInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []inventory.BlobInfo
	for k, obj := range m.objs {
		if strings.HasPrefix(k, prefix) {
			out = append(out, obj.info)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
