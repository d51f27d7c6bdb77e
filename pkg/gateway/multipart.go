// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"encoding/xml"
	"io"
	"net/http"
	"strconv"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3types"
	"github.com/phumiphatauk/tinystore/pkg/storage"
)

const maxCompleteBodySize = 4 << 20

func (s *Server) handleCreateMultipartUpload(d *data.Data, w http.ResponseWriter) {
	opts := storage.PutOptions{
		ContentType: d.Req.Header.Get("Content-Type"),
		Metadata:    extractUserMetadata(d.Req.Header),
	}
	uploadID, err := s.backend.CreateMultipartUpload(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, opts)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	writeXMLResponse(w, d, s3types.InitiateMultipartUploadResult{
		Bucket:   d.S3Info.Bucket,
		Key:      d.S3Info.Key,
		UploadID: uploadID,
	})
}

func (s *Server) handleUploadPart(d *data.Data, w http.ResponseWriter) {
	q := d.Req.URL.Query()
	partNumber, err := strconv.Atoi(q.Get("partNumber"))
	if err != nil {
		writeXMLErrorResponse(w, d, s3err.ErrInvalidArgument)
		return
	}

	part, err := s.backend.UploadPart(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, q.Get("uploadId"), partNumber, d.Req.Body)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	w.Header().Set("ETag", part.ETag)
	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleListParts(d *data.Data, w http.ResponseWriter) {
	uploadID := d.Req.URL.Query().Get("uploadId")
	parts, err := s.backend.ListParts(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, uploadID)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	result := s3types.ListPartsResult{
		Bucket:   d.S3Info.Bucket,
		Key:      d.S3Info.Key,
		UploadID: uploadID,
	}
	for _, p := range parts {
		result.Parts = append(result.Parts, s3types.PartInfo{
			PartNumber:   p.PartNumber,
			LastModified: p.LastModified.UTC(),
			ETag:         p.ETag,
			Size:         p.Size,
		})
	}
	writeXMLResponse(w, d, result)
}

func (s *Server) handleListMultipartUploads(d *data.Data, w http.ResponseWriter) {
	uploads, err := s.backend.ListMultipartUploads(d.Ctx, d.S3Info.Bucket)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	result := s3types.ListMultipartUploadsResult{Bucket: d.S3Info.Bucket}
	for _, u := range uploads {
		result.Uploads = append(result.Uploads, s3types.MultipartUpload{
			Key:       u.Key,
			UploadID:  u.UploadID,
			Initiated: u.Initiated.UTC(),
		})
	}
	writeXMLResponse(w, d, result)
}

func (s *Server) handleCompleteMultipartUpload(d *data.Data, w http.ResponseWriter) {
	body, err := io.ReadAll(io.LimitReader(d.Req.Body, maxCompleteBodySize))
	if err != nil {
		writeXMLErrorResponse(w, d, s3err.ErrInternalError)
		return
	}

	var req s3types.CompleteMultipartUploadRequest
	if err := xml.Unmarshal(body, &req); err != nil || len(req.Parts) == 0 {
		writeXMLErrorResponse(w, d, s3err.ErrMalformedXML)
		return
	}

	manifest := make([]storage.CompletedPart, 0, len(req.Parts))
	for _, p := range req.Parts {
		manifest = append(manifest, storage.CompletedPart{
			PartNumber: p.PartNumber,
			ETag:       p.ETag,
		})
	}

	uploadID := d.Req.URL.Query().Get("uploadId")
	info, err := s.backend.CompleteMultipartUpload(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, uploadID, manifest)
	if err != nil {
		s.handleError(w, d, err)
		return
	}

	scheme := "http"
	if d.Req.TLS != nil {
		scheme = "https"
	}
	writeXMLResponse(w, d, s3types.CompleteMultipartUploadResult{
		Location: scheme + "://" + d.Req.Host + "/" + d.S3Info.Bucket + "/" + d.S3Info.Key,
		Bucket:   d.S3Info.Bucket,
		Key:      d.S3Info.Key,
		ETag:     info.ETag,
	})
}

func (s *Server) handleAbortMultipartUpload(d *data.Data, w http.ResponseWriter) {
	uploadID := d.Req.URL.Query().Get("uploadId")
	if err := s.backend.AbortMultipartUpload(d.Ctx, d.S3Info.Bucket, d.S3Info.Key, uploadID); err != nil {
		s.handleError(w, d, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
