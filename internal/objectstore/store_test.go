// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package objectstore

import (
	"bytes"
	"context"
	"testing"

	"github.com/tomtom215/cinescore/internal/apperrors"
)

func openMemory(t *testing.T) *BadgerStore {
	t.Helper()
	s, err := Open(Options{Bucket: "cinescore", InMemory: true})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestUploadDownload(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	payload := []byte("model bytes")

	if err := s.Upload(ctx, "runs/abc/model.gob.gz", payload); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	got, err := s.Download(ctx, "runs/abc/model.gob.gz")
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("Download() = %q, want %q", got, payload)
	}

	info, err := s.Stat(ctx, "runs/abc/model.gob.gz")
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Size != int64(len(payload)) || info.SHA256 == "" {
		t.Errorf("info = %+v", info)
	}
	if info.URI() != "badger://cinescore/runs/abc/model.gob.gz" {
		t.Errorf("URI() = %s", info.URI())
	}
}

func TestDownloadMissing(t *testing.T) {
	s := openMemory(t)
	if _, err := s.Download(context.Background(), "runs/none/model.gob.gz"); !apperrors.IsNotFound(err) {
		t.Errorf("Download() error = %v, want NotFoundError", err)
	}
}

func TestInvalidKeys(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	for _, key := range []string{"", "/abs", "runs/../etc"} {
		if err := s.Upload(ctx, key, []byte("x")); err == nil {
			t.Errorf("Upload(%q) should fail", key)
		}
	}
}

func TestListAndDelete(t *testing.T) {
	s := openMemory(t)
	ctx := context.Background()
	for _, key := range []string{"models/b.gob.gz", "models/a.gob.gz", "runs/1/model.gob.gz"} {
		if err := s.Upload(ctx, key, []byte(key)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := s.List(ctx, "models/")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 2 || list[0].Key != "models/a.gob.gz" {
		t.Errorf("List() = %+v", list)
	}

	if err := s.Delete(ctx, "models/a.gob.gz"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := s.Download(ctx, "models/a.gob.gz"); !apperrors.IsNotFound(err) {
		t.Errorf("deleted object still present: %v", err)
	}
}

func TestBucketsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	a, err := Open(Options{Path: dir, Bucket: "a"})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	ctx := context.Background()
	if err := a.Upload(ctx, "k", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := a.Close(); err != nil {
		t.Fatal(err)
	}

	b, err := Open(Options{Path: dir, Bucket: "b", ReadOnly: true})
	if err != nil {
		t.Fatalf("Open(read-only) error = %v", err)
	}
	defer b.Close()
	if _, err := b.Download(ctx, "k"); !apperrors.IsNotFound(err) {
		t.Errorf("bucket b should not see bucket a objects: %v", err)
	}

	if _, err := Open(Options{Path: dir}); err == nil {
		t.Error("Open without bucket should fail")
	}
}
