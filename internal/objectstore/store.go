// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

// Package objectstore keeps model artifacts in a bucket-style key space
// backed by BadgerDB.
//
// Objects are addressed by bucket and key ("runs/<run_id>/model.gob.gz",
// "models/gbm_md6_eta0_3_v1.gob.gz"). Each object has a metadata record
// holding its size, SHA-256 and upload time.
package objectstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/goccy/go-json"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/logging"
)

// Store is the capability the training and serving code depends on.
type Store interface {
	Upload(ctx context.Context, key string, data []byte) error
	Download(ctx context.Context, key string) ([]byte, error)
}

// Key prefixes for BadgerDB storage
const (
	objectKeyPrefix = "obj:"
	metaKeyPrefix   = "meta:"
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Bucket     string    `json:"bucket"`
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	SHA256     string    `json:"sha256"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// URI returns the object's address as bucket-style URI.
func (o ObjectInfo) URI() string {
	return "badger://" + o.Bucket + "/" + o.Key
}

// Options configures Open.
type Options struct {
	// Path is the BadgerDB directory. Ignored when InMemory is set.
	Path string
	// Bucket namespaces every key.
	Bucket string
	// ReadOnly opens an existing store without taking the write lock.
	ReadOnly bool
	// InMemory keeps everything in memory; used by tests.
	InMemory bool
}

// BadgerStore implements Store on BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	bucket string
}

var _ Store = (*BadgerStore)(nil)

// Open opens (or creates) the store.
func Open(opts Options) (*BadgerStore, error) {
	if opts.Bucket == "" {
		return nil, errors.New("objectstore: bucket is required")
	}

	bopts := badger.DefaultOptions(opts.Path)
	if opts.InMemory {
		bopts = badger.DefaultOptions("").WithInMemory(true)
	}
	bopts.ReadOnly = opts.ReadOnly
	bopts.Compression = options.Snappy
	bopts.SyncWrites = true

	// Reduce logging verbosity
	bopts.Logger = nil

	db, err := badger.Open(bopts)
	if err != nil {
		return nil, apperrors.Upstream("object storage", 0, fmt.Errorf("open BadgerDB at %s: %w", opts.Path, err))
	}

	logging.Debug().
		Str("path", opts.Path).
		Str("bucket", opts.Bucket).
		Bool("read_only", opts.ReadOnly).
		Msg("Object store opened")
	return &BadgerStore{db: db, bucket: opts.Bucket}, nil
}

// Close releases the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

// Bucket returns the configured bucket.
func (s *BadgerStore) Bucket() string { return s.bucket }

func (s *BadgerStore) objectKey(key string) []byte {
	return []byte(objectKeyPrefix + s.bucket + "/" + key)
}

func (s *BadgerStore) metaKey(key string) []byte {
	return []byte(metaKeyPrefix + s.bucket + "/" + key)
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "..") {
		return fmt.Errorf("objectstore: invalid key %q", key)
	}
	return nil
}

// Upload stores data under key, replacing any previous object.
func (s *BadgerStore) Upload(ctx context.Context, key string, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	sum := sha256.Sum256(data)
	info := ObjectInfo{
		Bucket:     s.bucket,
		Key:        key,
		Size:       int64(len(data)),
		SHA256:     hex.EncodeToString(sum[:]),
		UploadedAt: time.Now().UTC(),
	}
	meta, err := json.Marshal(info)
	if err != nil {
		return fmt.Errorf("marshal object info: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(s.objectKey(key), data); err != nil {
			return fmt.Errorf("set object: %w", err)
		}
		if err := txn.Set(s.metaKey(key), meta); err != nil {
			return fmt.Errorf("set object info: %w", err)
		}
		return nil
	})
	if err != nil {
		return apperrors.Upstream("object storage", 0, err)
	}

	logging.Ctx(ctx).Info().
		Str("uri", info.URI()).
		Int64("size", info.Size).
		Msg("Object uploaded")
	return nil
}

// Download returns the object stored under key.
func (s *BadgerStore) Download(ctx context.Context, key string) ([]byte, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var data []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.objectKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFound("object", s.bucket+"/"+key, nil)
		}
		if err != nil {
			return fmt.Errorf("get object: %w", err)
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, err
		}
		return nil, apperrors.Upstream("object storage", 0, err)
	}
	return data, nil
}

// Stat returns the metadata of key.
func (s *BadgerStore) Stat(ctx context.Context, key string) (*ObjectInfo, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}
	var info ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.metaKey(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.NotFound("object", s.bucket+"/"+key, nil)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &info)
		})
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// List returns the metadata of every object whose key starts with prefix,
// in key order.
func (s *BadgerStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = s.metaKey(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var info ObjectInfo
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &info)
			}); err != nil {
				return fmt.Errorf("decode object info: %w", err)
			}
			out = append(out, info)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (s *BadgerStore) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(s.objectKey(key)); err != nil {
			return err
		}
		return txn.Delete(s.metaKey(key))
	})
}
