package store

import (
	"fmt"
	"os"
	"path/filepath"
)

// DBPath returns the bbolt file location under datadir:
//
//	datadir/db/cells.db
func DBPath(datadir string) string {
	return filepath.Join(datadir, "db", "cells.db")
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", path, err)
	}
	return nil
}
