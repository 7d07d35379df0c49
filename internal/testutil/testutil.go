// Package testutil provides shared test helpers for setting up stores and services.
package testutil

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/itsbohara/anchor/internal/refservice"
	"github.com/itsbohara/anchor/internal/storage"
)

// TestStore creates a JSON store backed by a file in a temporary directory.
func TestStore(t *testing.T) *storage.JSON {
	t.Helper()
	store, err := storage.NewJSON(filepath.Join(t.TempDir(), "data.json"))
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestService creates a reference service over a fresh TestStore.
func TestService(t *testing.T) (*refservice.Service, *storage.JSON) {
	t.Helper()
	store := TestStore(t)
	return refservice.NewService(store), store
}

// Logger returns a logger that discards everything below error.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

// Eventually polls fn every tick until it returns true or timeout elapses.
func Eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}
