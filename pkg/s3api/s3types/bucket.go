// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package s3types

import (
	"encoding/xml"
	"time"
)

// BucketOwner identifies the owner in listings.
type BucketOwner struct {
	ID          string `xml:"ID"`
	DisplayName string `xml:"DisplayName"`
}

// BucketInfo is a single bucket entry in ListBuckets.
type BucketInfo struct {
	Name         string    `xml:"Name"`
	CreationDate time.Time `xml:"CreationDate"`
}

// BucketList wraps the bucket entries.
type BucketList struct {
	Buckets []BucketInfo `xml:"Bucket"`
}

// ListAllMyBucketsResult is the ListBuckets response body.
type ListAllMyBucketsResult struct {
	XMLName xml.Name    `xml:"http://s3.amazonaws.com/doc/2006-03-01/ ListAllMyBucketsResult"`
	Owner   BucketOwner `xml:"Owner"`
	Buckets BucketList  `xml:"Buckets"`
}

// LocationConstraint is the GetBucketLocation response body.
// An empty value means the default region (us-east-1).
type LocationConstraint struct {
	XMLName  xml.Name `xml:"http://s3.amazonaws.com/doc/2006-03-01/ LocationConstraint"`
	Location string   `xml:",chardata"`
}

// CreateBucketConfiguration is the optional CreateBucket request body.
type CreateBucketConfiguration struct {
	XMLName            xml.Name `xml:"CreateBucketConfiguration"`
	LocationConstraint string   `xml:"LocationConstraint"`
}
