// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/tomtom215/cinescore/internal/apperrors"
	"github.com/tomtom215/cinescore/internal/gbm"
	"github.com/tomtom215/cinescore/internal/objectstore"
	"github.com/tomtom215/cinescore/internal/storage"
	"github.com/tomtom215/cinescore/internal/tracking"
)

// ModelArtifactName is the object name of a run's model.
const ModelArtifactName = "model.gob.gz"

// RunArtifactKey returns the object store key of a run's model.
func RunArtifactKey(runID string) string {
	return "runs/" + runID + "/" + ModelArtifactName
}

// ModelLoader resolves a model URI to a fitted model.
type ModelLoader interface {
	Load(ctx context.Context, uri string) (*gbm.Model, error)
}

// ArtifactLoader loads models from the object store, the local model store
// or the registry. Accepted URIs:
//
//	badger://<bucket>/<key>    object in the configured bucket
//	runs:/<run_id>/model       the run's model artifact
//	models:/<name>/<stage>     latest version of name in stage (needs Registry)
//	file://<path>              local model file
type ArtifactLoader struct {
	Objects  objectstore.Store
	Bucket   string
	Registry tracking.Registry
}

var _ ModelLoader = (*ArtifactLoader)(nil)

// Load implements ModelLoader.
func (l *ArtifactLoader) Load(ctx context.Context, uri string) (*gbm.Model, error) {
	scheme, rest, ok := strings.Cut(uri, ":/")
	if !ok {
		return nil, apperrors.Validation("model_uri", fmt.Sprintf("unsupported model uri %q", uri))
	}

	switch scheme {
	case "file":
		var m gbm.Model
		if _, err := storage.ReadFile(strings.TrimPrefix(rest, "/"), &m); err != nil {
			return nil, err
		}
		return &m, nil

	case "runs":
		runID, _, _ := strings.Cut(rest, "/")
		return l.download(ctx, RunArtifactKey(runID))

	case "badger":
		bucket, key, found := strings.Cut(strings.TrimPrefix(rest, "/"), "/")
		if !found || key == "" {
			return nil, apperrors.Validation("model_uri", fmt.Sprintf("object uri %q has no key", uri))
		}
		if l.Bucket != "" && bucket != l.Bucket {
			return nil, apperrors.Validation("model_uri", fmt.Sprintf("bucket %q is not the configured bucket %q", bucket, l.Bucket))
		}
		return l.download(ctx, key)

	case "models":
		if l.Registry == nil {
			return nil, apperrors.Validation("model_uri", "registry uris need a registry")
		}
		name, stage, _ := strings.Cut(rest, "/")
		mv, err := l.Registry.GetLatest(ctx, name, stage)
		if err != nil {
			return nil, err
		}
		if strings.HasPrefix(mv.Source, "models:") {
			return nil, apperrors.Validation("model_uri", "registry source points back at the registry")
		}
		return l.Load(ctx, mv.Source)
	}
	return nil, apperrors.Validation("model_uri", fmt.Sprintf("unsupported scheme %q", scheme))
}

func (l *ArtifactLoader) download(ctx context.Context, key string) (*gbm.Model, error) {
	if l.Objects == nil {
		return nil, apperrors.Validation("model_uri", "object store is not configured")
	}
	data, err := l.Objects.Download(ctx, key)
	if err != nil {
		return nil, err
	}
	m, _, err := DecodeModel(data)
	return m, err
}

// DecodeModel decodes a model artifact produced by storage.Encode.
func DecodeModel(data []byte) (*gbm.Model, *storage.ArtifactMetadata, error) {
	var m gbm.Model
	meta, err := storage.Decode(bytes.NewReader(data), &m)
	if err != nil {
		return nil, nil, fmt.Errorf("decode model: %w", err)
	}
	if len(m.Trees) == 0 {
		return nil, nil, apperrors.DataFormat("model", fmt.Errorf("model has no trees"))
	}
	return &m, meta, nil
}
