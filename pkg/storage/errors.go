// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import "github.com/phumiphatauk/tinystore/pkg/s3api/s3err"

// Error is a storage-level failure that maps to an S3 error code.
type Error struct {
	msg    string
	s3code s3err.ErrorCode
}

func (e *Error) Error() string {
	return e.msg
}

// ToS3Error returns the S3 error code this failure maps to.
func (e *Error) ToS3Error() s3err.ErrorCode {
	return e.s3code
}

var (
	ErrBucketNotFound    = &Error{"bucket not found", s3err.ErrNoSuchBucket}
	ErrBucketExists      = &Error{"bucket already exists", s3err.ErrBucketAlreadyExists}
	ErrBucketNotEmpty    = &Error{"bucket not empty", s3err.ErrBucketNotEmpty}
	ErrTooManyBuckets    = &Error{"bucket limit reached", s3err.ErrTooManyBuckets}
	ErrObjectNotFound    = &Error{"object not found", s3err.ErrNoSuchKey}
	ErrEntityTooLarge    = &Error{"object exceeds maximum size", s3err.ErrEntityTooLarge}
	ErrInvalidRange      = &Error{"range not satisfiable", s3err.ErrInvalidRange}
	ErrUploadNotFound    = &Error{"multipart upload not found", s3err.ErrNoSuchUpload}
	ErrInvalidPart       = &Error{"part missing or etag mismatch", s3err.ErrInvalidPart}
	ErrInvalidPartOrder  = &Error{"parts not in ascending order", s3err.ErrInvalidPartOrder}
	ErrInvalidPartNumber = &Error{"part number out of range", s3err.ErrInvalidArgument}
	ErrInvalidToken      = &Error{"malformed continuation token", s3err.ErrInvalidArgument}
)
