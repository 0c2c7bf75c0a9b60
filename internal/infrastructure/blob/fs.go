package blob

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
)

var _ inventory.BlobStore = (*FS)(nil)

const metaSuffix = ".meta"

// FS guarda cada objeto como archivo bajo root, con un sidecar .meta (content type y fecha).
type FS struct {
	root string
}

type fsMeta struct {
	ContentType string    `json:"content_type,omitempty"`
	Size        int64     `json:"size"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewFS crea root si no existe.
func NewFS(root string) (*FS, error) {
	if root == "" {
		root = "data/exports"
	}
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("blob fs: crear %s: %w", root, err)
	}
	return &FS{root: root}, nil
}

func (s *FS) Put(_ context.Context, key string, r io.Reader, contentType string) (inventory.BlobInfo, error) {
	key, err := cleanKey(key)
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	dataPath := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o750); err != nil {
		return inventory.BlobInfo{}, err
	}
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()
	size, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	// Link falla si el destino existe: create-only sin carrera entre Stat y Rename.
	if err := os.Link(tmp.Name(), dataPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return inventory.BlobInfo{}, errExists(key)
		}
		return inventory.BlobInfo{}, err
	}
	meta := fsMeta{ContentType: contentType, Size: size, CreatedAt: time.Now().UTC()}
	raw, err := json.Marshal(meta)
	if err != nil {
		return inventory.BlobInfo{}, err
	}
	if err := os.WriteFile(dataPath+metaSuffix, raw, 0o640); err != nil {
		return inventory.BlobInfo{}, err
	}
	return inventory.BlobInfo{Key: key, Size: size, ContentType: contentType, LastModified: meta.CreatedAt}, nil
}

func (s *FS) Get(_ context.Context, key string) (inventory.BlobInfo, io.ReadCloser, error) {
	key, err := cleanKey(key)
	if err != nil {
		return inventory.BlobInfo{}, nil, err
	}
	dataPath := filepath.Join(s.root, filepath.FromSlash(key))
	f, err := os.Open(dataPath)
	if errors.Is(err, fs.ErrNotExist) {
		return inventory.BlobInfo{}, nil, errMissing(key)
	}
	if err != nil {
		return inventory.BlobInfo{}, nil, err
	}
	info, err := s.info(key, dataPath)
	if err != nil {
		_ = f.Close()
		return inventory.BlobInfo{}, nil, err
	}
	return info, f, nil
}

func (s *FS) List(_ context.Context, prefix string) ([]inventory.BlobInfo, error) {
	var out []inventory.BlobInfo
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() || strings.HasSuffix(name, metaSuffix) || strings.HasPrefix(name, ".tmp-") {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := s.info(key, p)
		if err != nil {
			return err
		}
		out = append(out, info)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("blob fs: listar %s: %w", prefix, err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *FS) info(key, dataPath string) (inventory.BlobInfo, error) {
	info := inventory.BlobInfo{Key: key}
	raw, err := os.ReadFile(dataPath + metaSuffix)
	if err == nil {
		var meta fsMeta
		if err := json.Unmarshal(raw, &meta); err != nil {
			return info, fmt.Errorf("blob fs: metadatos de %s: %w", key, err)
		}
		info.Size, info.ContentType, info.LastModified = meta.Size, meta.ContentType, meta.CreatedAt
		return info, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return info, err
	}
	st, err := os.Stat(dataPath)
	if err != nil {
		return info, err
	}
	info.Size, info.LastModified = st.Size(), st.ModTime().UTC()
	return info, nil
}
