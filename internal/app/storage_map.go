package app

import (
	"fmt"
	"strings"
	"time"

	"systemdstat/internal/storage"
)

const defaultBusyTimeout = 1 * time.Second

func mapStorageConfig(o Options) (storage.Config, bool, error) {
	driver := strings.ToLower(strings.TrimSpace(o.StoreDriver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := strings.TrimSpace(o.StorePath)

	switch driver {
	case "file":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("--store-path is required when --store-driver=file")
		}
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, false, fmt.Errorf("--store-path is required when --store-driver=sqlite")
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: defaultBusyTimeout}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown --store-driver: %s", o.StoreDriver)
	}
}
