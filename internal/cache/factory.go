package cache

import (
	"log/slog"
	"os"
)

// MakeCache picks a backend from the environment: Azure Blob when storage
// account credentials are present, a local directory otherwise.
func MakeCache() (ListCache, error) {
	if _, ok := os.LookupEnv("AZURE_STORAGE_ACCOUNT_NAME"); ok {
		slog.Info("using Azure Blob Storage for the entity store")
		container := os.Getenv("SHELFSYNC_CONTAINER")
		if container == "" {
			container = "catalog"
		}
		return NewBlobCache(container)
	}

	dir := os.Getenv("SHELFSYNC_DATA_DIR")
	if dir == "" {
		dir = "data"
	}
	return NewFileCache(dir), nil
}
