package blob_test

import (
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/infrastructure/blob"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/pkg/config"
)

// exerciseStore contrato común de los almacenamientos.
func exerciseStore(t *testing.T, store inventory.BlobStore) {
	t.Helper()
	ctx := context.Background()

	info, err := store.Put(ctx, "traceability/lot-L1/a.json", strings.NewReader(`{"lot_id":"L1"}`), "application/json")
	require.NoError(t, err)
	assert.Equal(t, "traceability/lot-L1/a.json", info.Key)
	assert.Equal(t, int64(15), info.Size)
	assert.Equal(t, "application/json", info.ContentType)
	assert.False(t, info.LastModified.IsZero())

	_, err = store.Put(ctx, "traceability/lot-L1/a.json", strings.NewReader("otro"), "text/plain")
	require.Error(t, err, "Put no sobrescribe")
	assert.Equal(t, "DUPLICATE", domain.Code(err))

	_, err = store.Put(ctx, "traceability/lot-L1/b.json", strings.NewReader("{}"), "application/json")
	require.NoError(t, err)
	_, err = store.Put(ctx, "traceability/lot-L2/a.json", strings.NewReader("{}"), "application/json")
	require.NoError(t, err)

	got, rc, err := store.Get(ctx, "traceability/lot-L1/a.json")
	require.NoError(t, err)
	raw, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, `{"lot_id":"L1"}`, string(raw))
	assert.Equal(t, "application/json", got.ContentType)

	_, _, err = store.Get(ctx, "traceability/lot-L1/zzz.json")
	assert.Equal(t, "NOT_FOUND", domain.Code(err))

	list, err := store.List(ctx, "traceability/lot-L1/")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "traceability/lot-L1/a.json", list[0].Key)
	assert.Equal(t, "traceability/lot-L1/b.json", list[1].Key)

	for _, bad := range []string{"", "/abs.json", "../fuera.json", `a\b.json`} {
		_, err := store.Put(ctx, bad, strings.NewReader("x"), "")
		assert.Equal(t, "INVALID_REQUEST", domain.Code(err), "clave %q", bad)
	}
}

func TestMemory_Contrato(t *testing.T) {
	exerciseStore(t, blob.NewMemory())
}

func TestFS_Contrato(t *testing.T) {
	store, err := blob.NewFS(filepath.Join(t.TempDir(), "exports"))
	require.NoError(t, err)
	exerciseStore(t, store)
}

func TestFS_ListIgnoraMetadatos(t *testing.T) {
	ctx := context.Background()
	store, err := blob.NewFS(t.TempDir())
	require.NoError(t, err)
	_, err = store.Put(ctx, "x/uno.json", strings.NewReader("1"), "application/json")
	require.NoError(t, err)

	list, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, list, 1, "el sidecar .meta no es un objeto")
	assert.Equal(t, "x/uno.json", list[0].Key)
}

func TestOpen_SeleccionaDriver(t *testing.T) {
	ctx := context.Background()

	mem, err := blob.Open(ctx, config.BlobConfig{Driver: config.BlobMemory})
	require.NoError(t, err)
	assert.IsType(t, &blob.Memory{}, mem)

	fsStore, err := blob.Open(ctx, config.BlobConfig{Driver: config.BlobFS, FSRoot: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &blob.FS{}, fsStore)

	_, err = blob.Open(ctx, config.BlobConfig{Driver: config.BlobS3})
	assert.Error(t, err, "s3 sin bucket")

	_, err = blob.Open(ctx, config.BlobConfig{Driver: "ftp"})
	assert.Error(t, err)
}
