package app

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/at-ishikawa/lexipack/internal/config"
	"github.com/at-ishikawa/lexipack/internal/database"
	"github.com/at-ishikawa/lexipack/internal/datasync"
	"github.com/at-ishikawa/lexipack/internal/languagepack"
	"github.com/at-ishikawa/lexipack/internal/profile"
)

// StateStores are the YAML files and the database tables that can hold the
// installed pack records and the profile.
type StateStores struct {
	YAML     datasync.State
	Database datasync.State
	Close    func() error
}

// OpenStateStores opens both state stores regardless of the configured
// storage.state_store and profile.store, migrating the database first.
func OpenStateStores(ctx context.Context, cfg *config.Config) (*StateStores, error) {
	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("database.Open > %w", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database.Migrate > %w", err)
	}

	return &StateStores{
		YAML: datasync.State{
			Packs:   languagepack.NewYAMLRepository(filepath.Join(cfg.Storage.StateDirectory, installedPacksFile)),
			Profile: profile.NewYAMLRepository(filepath.Join(cfg.Storage.StateDirectory, profileFile)),
		},
		Database: datasync.State{
			Packs:   languagepack.NewDBRepository(db),
			Profile: profile.NewDBRepository(db, cfg.Profile.UserID),
		},
		Close: db.Close,
	}, nil
}
