// storage/storage.go
package storage

import "github.com/winddown-app/winddown"

// Compile-time interface checks.
var (
	_ winddown.Storage = (*SQLiteStore)(nil)
	_ winddown.Storage = (*PostgresStore)(nil)
	_ winddown.Storage = (*MemoryStore)(nil)
)
