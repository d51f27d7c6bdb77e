// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package s3action

// Action identifies one S3 API operation after routing.
type Action int

const (
	Unknown Action = iota
	AbortMultipartUpload
	CompleteMultipartUpload
	CopyObject
	CreateBucket
	CreateMultipartUpload
	DeleteBucket
	DeleteObject
	DeleteObjects
	GetBucketLocation
	GetObject
	HeadBucket
	HeadObject
	ListBuckets
	ListMultipartUploads
	ListObjects
	ListObjectsV2
	ListParts
	PutObject
	UploadPart
)

var actionNames = map[Action]string{
	Unknown:                 "s3:Unknown",
	AbortMultipartUpload:    "s3:AbortMultipartUpload",
	CompleteMultipartUpload: "s3:CompleteMultipartUpload",
	CopyObject:              "s3:CopyObject",
	CreateBucket:            "s3:CreateBucket",
	CreateMultipartUpload:   "s3:CreateMultipartUpload",
	DeleteBucket:            "s3:DeleteBucket",
	DeleteObject:            "s3:DeleteObject",
	DeleteObjects:           "s3:DeleteObjects",
	GetBucketLocation:       "s3:GetBucketLocation",
	GetObject:               "s3:GetObject",
	HeadBucket:              "s3:HeadBucket",
	HeadObject:              "s3:HeadObject",
	ListBuckets:             "s3:ListBuckets",
	ListMultipartUploads:    "s3:ListMultipartUploads",
	ListObjects:             "s3:ListObjects",
	ListObjectsV2:           "s3:ListObjectsV2",
	ListParts:               "s3:ListParts",
	PutObject:               "s3:PutObject",
	UploadPart:              "s3:UploadPart",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "s3:Unknown"
}

// OperationType classifies an action by the kind of access it needs.
type OperationType int

const (
	OpRead OperationType = iota
	OpWrite
	OpList
)

func (o OperationType) String() string {
	switch o {
	case OpRead:
		return "read"
	case OpList:
		return "list"
	default:
		return "write"
	}
}

// Operation returns the access class of the action.
func (a Action) Operation() OperationType {
	switch a {
	case GetObject, HeadObject, HeadBucket, GetBucketLocation:
		return OpRead
	case ListBuckets, ListMultipartUploads, ListObjects, ListObjectsV2, ListParts:
		return OpList
	default:
		return OpWrite
	}
}

// ResourceType classifies what an action targets.
type ResourceType int

const (
	ResourceService ResourceType = iota
	ResourceBucket
	ResourceObject
)

// Resource returns the target class of the action.
func (a Action) Resource() ResourceType {
	switch a {
	case ListBuckets:
		return ResourceService
	case CreateBucket, DeleteBucket, HeadBucket, GetBucketLocation,
		ListMultipartUploads, ListObjects, ListObjectsV2, DeleteObjects:
		return ResourceBucket
	default:
		return ResourceObject
	}
}

// IsObjectAction reports whether the action targets a single object key.
func (a Action) IsObjectAction() bool {
	return a.Resource() == ResourceObject
}

// IsBucketAction reports whether the action targets a bucket.
func (a Action) IsBucketAction() bool {
	return a.Resource() == ResourceBucket
}
