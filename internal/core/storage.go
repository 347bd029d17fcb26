package core

import (
	"context"
	"fmt"
	"os"

	"mentormatch/internal/blob"
	blobfs "mentormatch/internal/infra/blob/fs"
	blobmem "mentormatch/internal/infra/blob/memory"
	blobs3 "mentormatch/internal/infra/blob/s3"
	"mentormatch/internal/infra/persistence/memory"
	"mentormatch/internal/infra/persistence/postgres"
	"mentormatch/internal/infra/persistence/sqlite"
	"mentormatch/pkg/domain"
)

// StorageDriver identifies a concrete run-store implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// OpenResultStore selects a run-store backend using environment variables.
// Defaults to sqlite when unset.
//
//	MENTORMATCH_STORAGE_DRIVER: memory|sqlite|postgres (default sqlite)
//	MENTORMATCH_SQLITE_PATH: path to sqlite file (default ./mentormatch.db)
//	MENTORMATCH_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenResultStore(ctx context.Context) (domain.ResultStore, error) {
	driver := os.Getenv("MENTORMATCH_STORAGE_DRIVER")
	if driver == "" {
		driver = string(StorageSQLite)
	}
	switch StorageDriver(driver) {
	case StorageMemory:
		return memory.NewStore(), nil
	case StorageSQLite:
		return sqlite.NewStore(os.Getenv("MENTORMATCH_SQLITE_PATH"))
	case StoragePostgres:
		return postgres.NewStore(ctx, os.Getenv("MENTORMATCH_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown storage driver %s", driver)
	}
}

// OpenArtifactStore selects a blob backend using environment variables.
// Defaults to the filesystem store when unset.
//
//	MENTORMATCH_BLOB_DRIVER: fs|memory|s3 (default fs)
//	MENTORMATCH_BLOB_FS_ROOT: root directory for the fs driver
//	MENTORMATCH_BLOB_S3_*: s3 driver settings, see the s3 package
func OpenArtifactStore(ctx context.Context) (blob.Store, error) {
	driver := os.Getenv("MENTORMATCH_BLOB_DRIVER")
	if driver == "" {
		driver = string(blob.DriverFilesystem)
	}
	switch blob.Driver(driver) {
	case blob.DriverFilesystem:
		return blobfs.New(os.Getenv("MENTORMATCH_BLOB_FS_ROOT"))
	case blob.DriverMemory:
		return blobmem.New(), nil
	case blob.DriverS3:
		return blobs3.OpenFromEnv(ctx)
	default:
		return nil, fmt.Errorf("unknown blob driver %s", driver)
	}
}
