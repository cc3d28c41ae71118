package tasks

import (
	"context"
	"log/slog"

	"github.com/lysyi3m/eyes-on-docs/app/feed"
)

type ReloadCatalogTask struct {
	Task
	catalog *feed.Catalog
}

func NewReloadCatalogTask(catalog *feed.Catalog) *ReloadCatalogTask {
	return &ReloadCatalogTask{
		Task:    NewTask(TaskTypeReloadCatalog, "products"),
		catalog: catalog,
	}
}

// Execute never fails: a broken target config leaves the fallback list in
// place, so retrying would not help.
func (t *ReloadCatalogTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	if err := t.catalog.Run(); err != nil {
		slog.Warn("Product catalog unavailable, using fallback list", "error", err)
		return nil
	}

	slog.Info("Task completed",
		"type", "ReloadCatalog",
		"products", t.catalog.GetProductCount(),
		"duration", t.GetDuration())

	return nil
}
