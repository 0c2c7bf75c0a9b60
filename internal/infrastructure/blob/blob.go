// Package blob guarda las exportaciones de trazabilidad en disco, S3 o memoria.
package blob

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/application/inventory"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/internal/domain"
	"github.com/moisesmurillosanmarino/App-SanMarino-sub002/pkg/config"
)

// Open construye el almacenamiento según BLOB_DRIVER.
func Open(ctx context.Context, cfg config.BlobConfig) (inventory.BlobStore, error) {
	switch cfg.Driver {
	case config.BlobFS, "":
		return NewFS(cfg.FSRoot)
	case config.BlobS3:
		return NewS3(ctx, S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3Endpoint,
			PathStyle:       cfg.S3PathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretKey,
			SessionToken:    cfg.S3SessionToken,
		})
	case config.BlobMemory:
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("blob: driver desconocido %q", cfg.Driver)
}

// cleanKey rechaza claves vacías, absolutas o con "..".
func cleanKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", domain.NewRuleError(domain.ErrInvalidInput, "clave vacía")
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "..") || strings.Contains(key, `\`) {
		return "", domain.NewRuleError(domain.ErrInvalidInput, "clave inválida: "+key)
	}
	return path.Clean(key), nil
}

func errExists(key string) error {
	return fmt.Errorf("blob %s ya existe: %w", key, domain.ErrDuplicate)
}

func errMissing(key string) error {
	return fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
}
