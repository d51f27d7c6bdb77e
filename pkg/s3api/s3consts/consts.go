// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package s3consts

// Hard protocol limits.
const (
	// MaxObjectSize is the largest object a single PUT will accept (5 GiB).
	MaxObjectSize = 5 * 1024 * 1024 * 1024

	// MaxPartNumber is the highest valid multipart part number.
	MaxPartNumber = 10000

	// MaxListKeys caps max-keys on object listings.
	MaxListKeys = 1000

	// MaxBuckets caps the number of buckets a deployment will hold.
	MaxBuckets = 100

	// MaxDeleteObjects caps the number of keys in one bulk delete request.
	MaxDeleteObjects = 1000

	// MaxObjectKeyLength is the longest accepted object key in bytes.
	MaxObjectKeyLength = 1024
)

// Common headers, lowercase per canonical form.
const (
	XAmzDate          = "x-amz-date"
	XAmzContentSHA256 = "x-amz-content-sha256"
	XAmzRequestID     = "x-amz-request-id"
	XAmzCopySource    = "x-amz-copy-source"
	XAmzMetaPrefix    = "x-amz-meta-"

	// Presigned query parameters.
	XAmzAlgorithm     = "X-Amz-Algorithm"
	XAmzCredential    = "X-Amz-Credential"
	XAmzDateQuery     = "X-Amz-Date"
	XAmzExpires       = "X-Amz-Expires"
	XAmzSignedHeaders = "X-Amz-SignedHeaders"
	XAmzSignature     = "X-Amz-Signature"
)

// S3 XML namespace.
const S3XMLNamespace = "http://s3.amazonaws.com/doc/2006-03-01/"
