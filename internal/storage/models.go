// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package storage persists trained models and feature transforms.
//
// Artifacts are gob-encoded, gzip-compressed and framed with metadata that
// carries a SHA-256 checksum of the uncompressed payload. The same framing
// is used for files on disk and for the bytes uploaded to object storage,
// so an artifact downloaded from a run decodes exactly like a local one.
//
// # Storage Format
//
// Versioned models live in one directory as {name}_v{version}.gob.gz.
// Version 0 passed to Load means the latest version on disk.
//
// # Thread Safety
//
// Store methods are safe for concurrent use.
package storage

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

// Extension is the file suffix of every stored artifact.
const Extension = ".gob.gz"

// ArtifactMetadata describes a stored artifact.
type ArtifactMetadata struct {
	// Name is the artifact family, e.g. "gbm_md6_eta0_3".
	Name string `json:"name"`

	// Kind is "model" or "transform".
	Kind string `json:"kind"`

	// Version is 0 for unversioned artifacts.
	Version int `json:"version"`

	// RunID links the artifact to its tracking run.
	RunID string `json:"run_id,omitempty"`

	// CreatedAt is when the artifact was fitted.
	CreatedAt time.Time `json:"created_at"`

	// SavedAt is set on encode.
	SavedAt time.Time `json:"saved_at"`

	// Rows is the number of training rows.
	Rows int `json:"rows"`

	// Features is the number of input columns.
	Features int `json:"features"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	// TrainingDurationMS is how long the fit took.
	TrainingDurationMS int64 `json:"training_duration_ms"`
}

// storedFile is the on-disk and on-wire framing.
type storedFile struct {
	Metadata       ArtifactMetadata
	CompressedData []byte
}

// Encode serializes v and frames it with meta. The returned metadata has
// the checksum, size and save time filled in.
//
//nolint:gocritic // meta passed by value so callers keep their copy
func Encode(v any, meta ArtifactMetadata) ([]byte, ArtifactMetadata, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, meta, fmt.Errorf("encode artifact: %w", err)
	}
	rawData := buf.Bytes()

	hash := sha256.Sum256(rawData)
	meta.Checksum = hex.EncodeToString(hash[:])

	var compressed bytes.Buffer
	gzw := gzip.NewWriter(&compressed)
	if _, err := gzw.Write(rawData); err != nil {
		return nil, meta, fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, meta, fmt.Errorf("finalize compression: %w", err)
	}

	meta.SizeBytes = int64(compressed.Len())
	meta.SavedAt = time.Now().UTC()

	var out bytes.Buffer
	sf := storedFile{Metadata: meta, CompressedData: compressed.Bytes()}
	if err := gob.NewEncoder(&out).Encode(sf); err != nil {
		return nil, meta, fmt.Errorf("write artifact frame: %w", err)
	}
	return out.Bytes(), meta, nil
}

// Decode verifies and deserializes an artifact produced by Encode into
// target, which must be a pointer.
func Decode(r io.Reader, target any) (*ArtifactMetadata, error) {
	var sf storedFile
	if err := gob.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read artifact frame: %w", err)
	}

	gzr, err := gzip.NewReader(bytes.NewReader(sf.CompressedData))
	if err != nil {
		return nil, fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // error on gzip close after read is not actionable

	rawData, err := io.ReadAll(gzr)
	if err != nil {
		return nil, fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(rawData)
	checksum := hex.EncodeToString(hash[:])
	if checksum != sf.Metadata.Checksum {
		return nil, fmt.Errorf("checksum mismatch: expected %s, got %s", sf.Metadata.Checksum, checksum)
	}

	if err := gob.NewDecoder(bytes.NewReader(rawData)).Decode(target); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &sf.Metadata, nil
}

// WriteFile encodes v to path, replacing any existing file atomically.
//
//nolint:gocritic // meta passed by value so callers keep their copy
func WriteFile(path string, v any, meta ArtifactMetadata) (ArtifactMetadata, error) {
	data, meta, err := Encode(v, meta)
	if err != nil {
		return meta, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil { //nolint:gosec // 0750 is acceptable for artifacts
		return meta, fmt.Errorf("create artifact directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return meta, fmt.Errorf("write artifact: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp) //nolint:errcheck // best-effort cleanup
		return meta, fmt.Errorf("rename artifact: %w", err)
	}
	return meta, nil
}

// ReadFile decodes the artifact at path. A missing file is a NotFoundError.
func ReadFile(path string, target any) (*ArtifactMetadata, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from configuration
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.NotFound("artifact", path, err)
		}
		return nil, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }() //nolint:errcheck // error on close after read is not actionable

	meta, err := Decode(f, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// Store manages versioned model files in one directory.
type Store struct {
	baseDir string
	mu      sync.RWMutex

	// Keep track of latest version per model name
	versions map[string]int
}

// NewStore creates a model store at the given directory.
func NewStore(baseDir string) (*Store, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil { //nolint:gosec // 0750 is acceptable for model storage
		return nil, fmt.Errorf("create storage directory: %w", err)
	}

	s := &Store{
		baseDir:  baseDir,
		versions: make(map[string]int),
	}

	if err := s.scanModels(); err != nil {
		return nil, fmt.Errorf("scan existing models: %w", err)
	}
	return s, nil
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.baseDir }

// scanModels records the highest version found for each name.
func (s *Store) scanModels() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, version := ParseFilename(entry.Name())
		if name == "" {
			continue
		}
		if current, ok := s.versions[name]; !ok || version > current {
			s.versions[name] = version
		}
	}
	return nil
}

// ParseFilename splits "gbm_md6_eta0_3_v2.gob.gz" into ("gbm_md6_eta0_3", 2).
// It returns an empty name for anything else.
func ParseFilename(filename string) (name string, version int) {
	base, ok := strings.CutSuffix(filename, Extension)
	if !ok {
		return "", 0
	}
	idx := strings.LastIndex(base, "_v")
	if idx < 1 {
		return "", 0
	}
	if _, err := fmt.Sscanf(base[idx+2:], "%d", &version); err != nil || version < 1 {
		return "", 0
	}
	return base[:idx], version
}

// Filename returns the file name for a model version.
func Filename(name string, version int) string {
	return fmt.Sprintf("%s_v%d%s", name, version, Extension)
}

// Save stores a model under the next version of name and returns that
// version and the file path.
//
//nolint:gocritic // meta passed by value is acceptable for this write operation
func (s *Store) Save(ctx context.Context, name string, data any, meta ArtifactMetadata) (int, string, error) {
	if err := ctx.Err(); err != nil {
		return 0, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	version := s.versions[name] + 1
	meta.Name = name
	meta.Version = version
	if meta.Kind == "" {
		meta.Kind = "model"
	}

	path := filepath.Join(s.baseDir, Filename(name, version))
	if _, err := WriteFile(path, data, meta); err != nil {
		return 0, "", err
	}
	s.versions[name] = version
	return version, path, nil
}

// Load loads a model by name and version. Version 0 loads the latest.
func (s *Store) Load(ctx context.Context, name string, version int, target any) (*ArtifactMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if version == 0 {
		var ok bool
		version, ok = s.versions[name]
		if !ok {
			return nil, apperrors.NotFound("model", name, nil)
		}
	}
	return ReadFile(filepath.Join(s.baseDir, Filename(name, version)), target)
}

// LoadFile loads a model by its file name inside the store directory.
func (s *Store) LoadFile(ctx context.Context, filename string, target any) (*ArtifactMetadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if filename != filepath.Base(filename) {
		return nil, fmt.Errorf("model file name %q must not contain a path", filename)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return ReadFile(filepath.Join(s.baseDir, filename), target)
}

// GetLatestVersion returns the latest version number for a model.
func (s *Store) GetLatestVersion(name string) (int, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	return version, ok
}

// ListModels returns metadata for the latest version of every model,
// sorted by name.
func (s *Store) ListModels(ctx context.Context) ([]ArtifactMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.versions))
	for name := range s.versions {
		names = append(names, name)
	}
	sort.Strings(names)

	models := make([]ArtifactMetadata, 0, len(names))
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		f, err := os.Open(filepath.Join(s.baseDir, Filename(name, s.versions[name]))) //nolint:gosec // trusted name
		if err != nil {
			continue
		}
		var sf storedFile
		err = gob.NewDecoder(f).Decode(&sf)
		_ = f.Close() //nolint:errcheck // error on close after read is not actionable
		if err != nil {
			continue
		}
		models = append(models, sf.Metadata)
	}
	return models, nil
}

// Prune removes old versions of name, keeping the latest keep versions.
func (s *Store) Prune(ctx context.Context, name string, keep int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if keep < 1 {
		keep = 1
	}
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}

	var versions []int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		n, v := ParseFilename(entry.Name())
		if n == name {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for i := keep; i < len(versions); i++ {
		_ = os.Remove(filepath.Join(s.baseDir, Filename(name, versions[i]))) //nolint:errcheck // best-effort cleanup
	}
	return nil
}

//nolint:gochecknoinits // gob.Register must be called in init for type registration
func init() {
	gob.Register(ArtifactMetadata{})
	gob.Register(storedFile{})
}
