// Cinescore - Movie Rating Prediction Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cinescore

package middleware

import (
	"compress/gzip"
	"io"
	"net/http"
	"strings"
	"sync"
)

// MinCompressSize is the body size below which responses are sent as is.
// /stats and /top-movies stay under it; /predictions does not.
const MinCompressSize = 1024

var gzipWriterPool = sync.Pool{
	New: func() any {
		return gzip.NewWriter(io.Discard)
	},
}

// gzipResponseWriter buffers the body until it reaches MinCompressSize and
// only then commits to gzip. The status code is held back until that
// decision is made.
type gzipResponseWriter struct {
	http.ResponseWriter
	gz     *gzip.Writer
	buf    []byte
	status int
	zipped bool
}

func (w *gzipResponseWriter) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
}

func (w *gzipResponseWriter) Write(b []byte) (int, error) {
	if w.zipped {
		return w.gz.Write(b)
	}
	w.buf = append(w.buf, b...)
	if len(w.buf) < MinCompressSize {
		return len(b), nil
	}

	h := w.Header()
	h.Set("Content-Encoding", "gzip")
	h.Add("Vary", "Accept-Encoding")
	h.Del("Content-Length")
	w.ResponseWriter.WriteHeader(w.statusOrOK())

	w.gz = gzipWriterPool.Get().(*gzip.Writer) //nolint:forcetypeassert // pool only holds gzip writers
	w.gz.Reset(w.ResponseWriter)
	w.zipped = true
	if _, err := w.gz.Write(w.buf); err != nil {
		return 0, err
	}
	w.buf = nil
	return len(b), nil
}

func (w *gzipResponseWriter) statusOrOK() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// finish flushes whatever Write did not: the gzip trailer, or the small
// uncompressed body.
func (w *gzipResponseWriter) finish() {
	if w.zipped {
		_ = w.gz.Close() //nolint:errcheck // client went away
		gzipWriterPool.Put(w.gz)
		return
	}
	w.ResponseWriter.WriteHeader(w.statusOrOK())
	if len(w.buf) > 0 {
		_, _ = w.ResponseWriter.Write(w.buf) //nolint:errcheck // client went away
	}
}

// Compression gzips responses of at least MinCompressSize bytes for clients
// that advertise gzip support. HEAD requests pass through.
func Compression(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead || !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			next(w, r)
			return
		}

		gw := &gzipResponseWriter{ResponseWriter: w}
		defer gw.finish()
		next(gw, r)
	}
}
