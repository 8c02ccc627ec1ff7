package services

import (
	"context"

	"folio/internal/models"
)

// RepositorySource lists the repositories of an account. On failure it returns
// an empty list together with an error wrapping models.ErrSourceUnavailable;
// callers degrade instead of aborting.
type RepositorySource interface {
	FetchRepositories(ctx context.Context, account string) ([]models.Repository, error)
}

// CollectionCache persists the merged collection. Load returns nil when no
// valid record exists; Save is best-effort and never fails the caller.
type CollectionCache interface {
	Load(ctx context.Context) *models.CachedCollection
	Save(ctx context.Context, entries []models.CatalogEntry)
}

// ProjectDeps wires a ProjectService.
type ProjectDeps struct {
	Source     RepositorySource
	Account    string
	Cache      CollectionCache
	Classifier *ClassificationService
	Manual     []models.CatalogEntry

	// MaxConcurrentClassifications bounds in-flight model calls; 0 means no bound.
	MaxConcurrentClassifications int
}
