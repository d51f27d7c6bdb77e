// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3types"
	"github.com/phumiphatauk/tinystore/pkg/storage"
)

// maxDeleteBodySize caps the DeleteObjects request body. 1000 keys of
// up to 1 KiB each fit comfortably.
const maxDeleteBodySize = 2 << 20

func (s *Server) handleListBuckets(d *data.Data, w http.ResponseWriter) {
	buckets, err := s.backend.ListBuckets(d.Ctx)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	owner := "tinystore"
	if d.Identity != nil && d.Identity.Name != "" {
		owner = d.Identity.Name
	}

	result := s3types.ListAllMyBucketsResult{
		Owner: s3types.BucketOwner{ID: owner, DisplayName: owner},
	}
	for _, b := range buckets {
		result.Buckets.Buckets = append(result.Buckets.Buckets, s3types.BucketInfo{
			Name:         b.Name,
			CreationDate: b.CreatedAt.UTC(),
		})
	}
	writeXMLResponse(w, d, result)
}

func (s *Server) handleCreateBucket(d *data.Data, w http.ResponseWriter) {
	if err := s.backend.CreateBucket(d.Ctx, d.S3Info.Bucket); err != nil {
		s.handleError(w, d, err)
		return
	}
	w.Header().Set("Location", "/"+d.S3Info.Bucket)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleDeleteBucket(d *data.Data, w http.ResponseWriter) {
	if err := s.backend.DeleteBucket(d.Ctx, d.S3Info.Bucket); err != nil {
		s.handleError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHeadBucket(d *data.Data, w http.ResponseWriter) {
	if _, err := s.backend.GetBucketInfo(d.Ctx, d.S3Info.Bucket); err != nil {
		s.handleError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleGetBucketLocation(d *data.Data, w http.ResponseWriter) {
	if _, err := s.backend.GetBucketInfo(d.Ctx, d.S3Info.Bucket); err != nil {
		s.handleError(w, d, err)
		return
	}

	// us-east-1 is reported as the empty constraint, matching AWS.
	location := s.region
	if location == "us-east-1" {
		location = ""
	}
	writeXMLResponse(w, d, s3types.LocationConstraint{Location: location})
}

// parseListQuery pulls the listing parameters shared by both listing
// versions out of the query string.
func parseListQuery(d *data.Data) (storage.ListOptions, s3err.ErrorCode) {
	q := d.Req.URL.Query()

	maxKeys := s3consts.MaxListKeys
	if raw := q.Get("max-keys"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return storage.ListOptions{}, s3err.ErrInvalidMaxKeys
		}
		if n < maxKeys {
			maxKeys = n
		}
	}

	return storage.ListOptions{
		Prefix:    q.Get("prefix"),
		Delimiter: q.Get("delimiter"),
		MaxKeys:   maxKeys,
	}, s3err.ErrNone
}

func (s *Server) handleListObjectsV2(d *data.Data, w http.ResponseWriter) {
	opts, errCode := parseListQuery(d)
	if errCode != s3err.ErrNone {
		writeXMLErrorResponse(w, d, errCode)
		return
	}

	q := d.Req.URL.Query()
	token := q.Get("continuation-token")
	startAfter, err := storage.DecodeContinuationToken(token)
	if err != nil {
		s.handleError(w, d, err)
		return
	}
	if startAfter == "" {
		startAfter = q.Get("start-after")
	}
	opts.StartAfter = startAfter

	res, err := s.backend.ListObjects(d.Ctx, d.S3Info.Bucket, opts)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	result := s3types.ListObjectsV2Result{
		Name:              d.S3Info.Bucket,
		Prefix:            opts.Prefix,
		Delimiter:         opts.Delimiter,
		MaxKeys:           opts.MaxKeys,
		KeyCount:          len(res.Objects) + len(res.CommonPrefixes),
		IsTruncated:       res.IsTruncated,
		ContinuationToken: token,
	}
	if res.IsTruncated {
		result.NextContinuationToken = storage.EncodeContinuationToken(res.NextStartAfter)
	}
	for _, obj := range res.Objects {
		result.Contents = append(result.Contents, listEntry(obj))
	}
	for _, p := range res.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, s3types.CommonPrefix{Prefix: p})
	}
	writeXMLResponse(w, d, result)
}

func (s *Server) handleListObjects(d *data.Data, w http.ResponseWriter) {
	opts, errCode := parseListQuery(d)
	if errCode != s3err.ErrNone {
		writeXMLErrorResponse(w, d, errCode)
		return
	}

	marker := d.Req.URL.Query().Get("marker")
	opts.StartAfter = marker

	res, err := s.backend.ListObjects(d.Ctx, d.S3Info.Bucket, opts)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	result := s3types.ListObjectsResult{
		Name:        d.S3Info.Bucket,
		Prefix:      opts.Prefix,
		Marker:      marker,
		Delimiter:   opts.Delimiter,
		MaxKeys:     opts.MaxKeys,
		IsTruncated: res.IsTruncated,
	}
	if res.IsTruncated {
		result.NextMarker = res.NextStartAfter
	}
	for _, obj := range res.Objects {
		result.Contents = append(result.Contents, listEntry(obj))
	}
	for _, p := range res.CommonPrefixes {
		result.CommonPrefixes = append(result.CommonPrefixes, s3types.CommonPrefix{Prefix: p})
	}
	writeXMLResponse(w, d, result)
}

func listEntry(obj storage.ObjectInfo) s3types.ListObjectEntry {
	return s3types.ListObjectEntry{
		Key:          obj.Key,
		LastModified: obj.LastModified.UTC(),
		ETag:         obj.ETag,
		Size:         obj.Size,
		StorageClass: "STANDARD",
	}
}

func (s *Server) handleDeleteObjects(d *data.Data, w http.ResponseWriter) {
	body, err := io.ReadAll(io.LimitReader(d.Req.Body, maxDeleteBodySize))
	if err != nil {
		writeXMLErrorResponse(w, d, s3err.ErrInternalError)
		return
	}

	var req s3types.DeleteObjectsRequest
	if err := xml.Unmarshal(body, &req); err != nil || len(req.Objects) == 0 {
		writeXMLErrorResponse(w, d, s3err.ErrMalformedXML)
		return
	}
	if len(req.Objects) > s3consts.MaxDeleteObjects {
		writeXMLErrorResponse(w, d, s3err.ErrInvalidRequest)
		return
	}

	result := s3types.DeleteObjectsResult{}
	for _, obj := range req.Objects {
		if err := s.backend.DeleteObject(d.Ctx, d.S3Info.Bucket, obj.Key); err != nil {
			code := toS3Code(err)
			result.Errors = append(result.Errors, s3types.DeleteError{
				Key:     obj.Key,
				Code:    code.Code(),
				Message: code.Description(),
			})
			continue
		}
		if !req.Quiet {
			result.Deleted = append(result.Deleted, s3types.DeletedObject{Key: obj.Key})
		}
	}
	writeXMLResponse(w, d, result)
}
