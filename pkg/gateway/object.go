// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3types"
	"github.com/phumiphatauk/tinystore/pkg/storage"
)

func (s *Server) handlePutObject(d *data.Data, w http.ResponseWriter) {
	if d.Req.ContentLength > s3consts.MaxObjectSize {
		writeXMLErrorResponse(w, d, s3err.ErrEntityTooLarge)
		return
	}

	opts := storage.PutOptions{
		ContentType: d.Req.Header.Get("Content-Type"),
		Metadata:    extractUserMetadata(d.Req.Header),
	}
	info, err := s.backend.PutObject(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, d.Req.Body, opts)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	w.Header().Set("ETag", info.ETag)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetObject(d *data.Data, w http.ResponseWriter) {
	var rng *storage.Range
	if hdr := d.Req.Header.Get("Range"); hdr != "" {
		// Malformed range headers are ignored and the full object served.
		if parsed, ok := storage.ParseRange(hdr); ok {
			rng = parsed
		}
	}

	res, err := s.backend.GetObject(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, rng)
	if err != nil {
		s.handleError(w, d, err)
		return
	}
	defer res.Body.Close()

	setObjectHeaders(w, res.Info)
	if res.Range != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", res.Range.Start, res.Range.End, res.Range.Total))
		w.Header().Set("Content-Length", strconv.FormatInt(res.Range.End-res.Range.Start+1, 10))
		w.WriteHeader(http.StatusPartialContent)
	} else {
		w.Header().Set("Content-Length", strconv.FormatInt(res.Info.Size, 10))
		w.WriteHeader(http.StatusOK)
	}

	io.Copy(w, res.Body)
}

func (s *Server) handleHeadObject(d *data.Data, w http.ResponseWriter) {
	info, err := s.backend.HeadObject(d.Ctx, d.S3Info.Bucket, d.S3Info.Key)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	setObjectHeaders(w, info)
	w.Header().Set("Content-Length", strconv.FormatInt(info.Size, 10))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteObject(d *data.Data, w http.ResponseWriter) {
	// Deleting an absent key succeeds; only a missing bucket errors.
	if err := s.backend.DeleteObject(d.Ctx, d.S3Info.Bucket, d.S3Info.Key); err != nil {
		s.handleError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCopyObject(d *data.Data, w http.ResponseWriter) {
	srcBucket, srcKey, ok := parseCopySource(d.Req.Header.Get(s3consts.XAmzCopySource))
	if !ok {
		writeXMLErrorResponse(w, d, s3err.ErrInvalidArgument)
		return
	}

	info, err := s.backend.CopyObject(d.Ctx, srcBucket, srcKey, d.S3Info.Bucket, d.S3Info.Key)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	writeXMLResponse(w, d, s3types.CopyObjectResult{
		ETag:         info.ETag,
		LastModified: info.LastModified.UTC(),
	})
}

// parseCopySource splits an x-amz-copy-source header value into bucket
// and key. The value may be URL-encoded and may carry a leading slash.
func parseCopySource(src string) (bucket, key string, ok bool) {
	if src == "" {
		return "", "", false
	}
	if unescaped, err := url.PathUnescape(src); err == nil {
		src = unescaped
	}
	src = strings.TrimPrefix(src, "/")
	bucket, key, found := strings.Cut(src, "/")
	if !found || bucket == "" || key == "" {
		return "", "", false
	}
	return bucket, key, true
}

func setObjectHeaders(w http.ResponseWriter, info storage.ObjectInfo) {
	contentType := info.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("ETag", info.ETag)
	w.Header().Set("Last-Modified", info.LastModified.UTC().Format(http.TimeFormat))
	w.Header().Set("Accept-Ranges", "bytes")
	for k, v := range info.Metadata {
		w.Header().Set(s3consts.XAmzMetaPrefix+k, v)
	}
}

// extractUserMetadata collects x-amz-meta-* headers, keyed without the
// prefix and lowercased.
func extractUserMetadata(h http.Header) map[string]string {
	var meta map[string]string
	for name, values := range h {
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, s3consts.XAmzMetaPrefix) || len(values) == 0 {
			continue
		}
		if meta == nil {
			meta = make(map[string]string)
		}
		meta[strings.TrimPrefix(lower, s3consts.XAmzMetaPrefix)] = values[0]
	}
	return meta
}
