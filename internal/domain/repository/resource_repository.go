package repository

import (
	"context"

	"github.com/opendgw/odg/internal/domain/models"
)

// ResourceRepository is the backing resource store. The filesystem
// implementation lives in internal/infrastructure/storage/fs.
type ResourceRepository interface {
	// FindByPath resolves metadata for a validated path. Returns a
	// RESOURCE_NOT_FOUND gateway error when the resource is absent.
	FindByPath(ctx context.Context, path models.DataPath) (models.ResourceMetadata, error)

	// GetContent fetches the resource body.
	GetContent(ctx context.Context, resource *models.OpenDataResource) ([]byte, error)
}
