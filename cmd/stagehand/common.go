package main

import (
	"database/sql"
	"os"
	"path/filepath"

	"github.com/metalagman/stagehand/internal/db"
)

func openDB() (*sql.DB, string, func(), error) {
	repoRoot, err := os.Getwd()
	if err != nil {
		return nil, "", func() {}, err
	}
	dataDir := filepath.Join(repoRoot, ".stagehand")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, "", func() {}, err
	}
	dbPath := filepath.Join(dataDir, "stagehand.db")
	storeDB, err := db.Open(dbPath)
	if err != nil {
		return nil, "", func() {}, err
	}
	return storeDB, repoRoot, func() { _ = storeDB.Close() }, nil
}
