package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/storage"
)

func asUserError(err error, target **common.UserError) bool {
	return errors.As(err, target)
}

func asConfigNotFound(err error, target *viper.ConfigFileNotFoundError) bool {
	return errors.As(err, target)
}

// dbPath resolves the learning store location from config with a sensible
// default under the user's data directory.
func dbPath() (string, error) {
	if p := viper.GetString("storage.path"); p != "" {
		return p, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".local", "share", "finente", "finente.db"), nil
}

// openStore opens and migrates the learning store.
func openStore() (*storage.SQLiteStore, error) {
	path, err := dbPath()
	if err != nil {
		return nil, err
	}

	store, err := storage.NewSQLiteStore(path)
	if err != nil {
		return nil, common.NewUserError("Failed to open the learning store", err)
	}
	return store, nil
}
