package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/JonMunkholm/flighthours/internal/config"
	"github.com/JonMunkholm/flighthours/internal/storage/memory"
	"github.com/JonMunkholm/flighthours/internal/storage/sqlite"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		b, err := Open(ctx, config.StorageConfig{Driver: config.DriverMemory})
		if err != nil {
			t.Fatal(err)
		}
		defer b.Close()
		if _, ok := b.Store.(*memory.Store); !ok {
			t.Errorf("Store = %T, want *memory.Store", b.Store)
		}
		if b.Ping != nil {
			t.Error("memory backend should have no ping")
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "hours.db")
		b, err := Open(ctx, config.StorageConfig{Driver: config.DriverSQLite, SQLitePath: path})
		if err != nil {
			t.Fatal(err)
		}
		defer b.Close()
		if _, ok := b.Store.(*sqlite.Store); !ok {
			t.Errorf("Store = %T, want *sqlite.Store", b.Store)
		}
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping: %v", err)
		}
	})

	t.Run("bad postgres url", func(t *testing.T) {
		if _, err := Open(ctx, config.StorageConfig{Driver: config.DriverPostgres, DatabaseURL: "postgres://pilot@localhost:notaport/hours"}); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		if _, err := Open(ctx, config.StorageConfig{Driver: "mongo"}); err == nil {
			t.Error("expected error")
		}
	})
}
