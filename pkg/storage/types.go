// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"context"
	"io"
	"time"
)

// StorageType identifies a backend implementation.
type StorageType string

const (
	TypeFilesystem StorageType = "filesystem"
	TypeMemory     StorageType = "memory"
)

// BucketInfo describes one bucket.
type BucketInfo struct {
	Name      string
	CreatedAt time.Time
}

// ObjectInfo describes one stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
	Metadata     map[string]string
}

// PutOptions carries optional attributes for object writes.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// ResolvedRange is the byte window actually served for a ranged read.
// End is inclusive.
type ResolvedRange struct {
	Start int64
	End   int64
	Total int64
}

// GetResult is the outcome of a read. Range is nil for full reads.
type GetResult struct {
	Body  io.ReadCloser
	Info  ObjectInfo
	Range *ResolvedRange
}

// ListOptions selects a page of a bucket listing. StartAfter is the
// last item emitted on the previous page (a key or a common prefix).
type ListOptions struct {
	Prefix     string
	Delimiter  string
	MaxKeys    int
	StartAfter string
}

// ListResult is one page of a bucket listing.
type ListResult struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	IsTruncated    bool
	// NextStartAfter is the resume point when IsTruncated is set.
	NextStartAfter string
}

// Part describes one uploaded multipart part.
type Part struct {
	PartNumber   int
	Size         int64
	ETag         string
	LastModified time.Time
}

// CompletedPart is one entry of a completion manifest.
type CompletedPart struct {
	PartNumber int
	ETag       string
}

// MultipartUploadInfo describes one in-progress multipart upload.
type MultipartUploadInfo struct {
	Key       string
	UploadID  string
	Initiated time.Time
}

// Stats summarizes backend contents.
type Stats struct {
	Buckets int64
	Objects int64
	Bytes   int64
}

// Backend is the storage capability surface the gateway runs against.
// Implementations must provide per-object atomicity: concurrent writes
// to the same key leave one complete object, and readers never observe
// partial writes.
type Backend interface {
	CreateBucket(ctx context.Context, bucket string) error
	DeleteBucket(ctx context.Context, bucket string) error
	ListBuckets(ctx context.Context) ([]BucketInfo, error)
	GetBucketInfo(ctx context.Context, bucket string) (BucketInfo, error)

	PutObject(ctx context.Context, bucket, key string, body io.Reader, opts PutOptions) (ObjectInfo, error)
	GetObject(ctx context.Context, bucket, key string, rng *Range) (*GetResult, error)
	HeadObject(ctx context.Context, bucket, key string) (ObjectInfo, error)
	// DeleteObject is idempotent: deleting a missing key succeeds.
	DeleteObject(ctx context.Context, bucket, key string) error
	CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (ObjectInfo, error)
	ListObjects(ctx context.Context, bucket string, opts ListOptions) (ListResult, error)

	CreateMultipartUpload(ctx context.Context, bucket, key string, opts PutOptions) (string, error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader) (Part, error)
	ListParts(ctx context.Context, bucket, key, uploadID string) ([]Part, error)
	ListMultipartUploads(ctx context.Context, bucket string) ([]MultipartUploadInfo, error)
	CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) (ObjectInfo, error)
	AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error

	Stats(ctx context.Context) (Stats, error)
	Type() StorageType
	Close() error
}
