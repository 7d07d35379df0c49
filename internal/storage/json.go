package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/itsbohara/anchor/internal/models"
)

// document is the on-disk shape: a single top-level "references" key.
type document struct {
	References []models.Reference `json:"references"`
}

// JSON implements Provider backed by a single JSON document.
type JSON struct {
	path string // absolute path to the data file

	mu       sync.Mutex
	checksum string // digest of the last content written by Save
}

// NewJSON creates a provider for the data file at path. The file and its
// directory are created lazily on the first Save.
func NewJSON(path string) (*JSON, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: data file path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve path: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return nil, fmt.Errorf("storage: data path is a directory: %s", abs)
	}
	return &JSON{path: abs}, nil
}

// Path returns the absolute path of the data file.
func (j *JSON) Path() string { return j.path }

// Checksum returns the SHA-256 of the content last written by j.
func (j *JSON) Checksum() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.checksum
}

// Load reads the document. A missing or blank file is an empty set.
func (j *JSON) Load() ([]models.Reference, error) {
	data, err := os.ReadFile(j.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []models.Reference{}, nil
		}
		return nil, fmt.Errorf("storage: read %s: %w", j.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []models.Reference{}, nil
	}
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", j.path, err)
	}
	if doc.References == nil {
		doc.References = []models.Reference{}
	}
	for i := range doc.References {
		if doc.References[i].Tags == nil {
			doc.References[i].Tags = []string{}
		}
	}
	return doc.References, nil
}

// Save atomically writes the document: tmp file → fsync → rename.
func (j *JSON) Save(refs []models.Reference) error {
	if refs == nil {
		refs = []models.Reference{}
	}
	content, err := json.MarshalIndent(document{References: refs}, "", "  ")
	if err != nil {
		return fmt.Errorf("storage: encode: %w", err)
	}
	content = append(content, '\n')

	dir := filepath.Dir(j.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".anchor-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("storage: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("storage: close temp: %w", err)
	}
	// Record the digest before the rename so a watcher never sees our own
	// write as foreign.
	j.setChecksum(content)
	if err := os.Rename(tmpName, j.path); err != nil {
		return fmt.Errorf("storage: rename: %w", err)
	}
	success = true
	return nil
}

// Close is a no-op for the JSON provider.
func (j *JSON) Close() error { return nil }

func (j *JSON) setChecksum(data []byte) {
	sum := Checksum(data)
	j.mu.Lock()
	j.checksum = sum
	j.mu.Unlock()
}

// Checksum returns the hex-encoded SHA-256 digest of data.
func Checksum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
