package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eshaffer321/churchbooks-backend/internal/application/reconcile"
	"github.com/eshaffer321/churchbooks-backend/internal/domain/matcher"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/config"
	"github.com/eshaffer321/churchbooks-backend/internal/infrastructure/docstore"
)

// OpenStore opens the document store selected by cfg.
func OpenStore(ctx context.Context, cfg config.StorageConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverSQLite, "":
		store, err := docstore.NewSQLiteStore(cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverFirestore:
		store, err := docstore.NewFirestoreStore(ctx, docstore.FirestoreConfig{
			ProjectID:       cfg.FirestoreProjectID,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
}

// CoordinatorConfig maps file settings onto the coordinator.
func CoordinatorConfig(cfg config.ReconcileConfig) reconcile.Config {
	return reconcile.Config{
		Matcher: matcher.Config{
			AmountTolerance: cfg.Tolerance(),
			FuzzyWindowDays: cfg.WindowDays(),
		},
		AtomicWrites:    cfg.UseAtomicWrites(),
		CascadeOnDelete: cfg.CascadeDeletes(),
	}
}

// openCoordinator opens the store and builds a coordinator over it. The
// caller closes the returned store.
func openCoordinator(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*reconcile.Coordinator, docstore.Store, error) {
	store, err := OpenStore(ctx, cfg.Storage)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open %s store: %w", cfg.Storage.Driver, err)
	}
	return reconcile.NewCoordinator(store, CoordinatorConfig(cfg.Reconcile), logger), store, nil
}
