// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package s3types

import "encoding/xml"

// DeleteObjectEntry is one key in a bulk delete request.
type DeleteObjectEntry struct {
	Key string `xml:"Key"`
}

// DeleteObjectsRequest is the DeleteObjects (POST ?delete) request body.
type DeleteObjectsRequest struct {
	XMLName xml.Name            `xml:"Delete"`
	Quiet   bool                `xml:"Quiet"`
	Objects []DeleteObjectEntry `xml:"Object"`
}

// DeletedObject is one successfully deleted key in the response.
type DeletedObject struct {
	Key string `xml:"Key"`
}

// DeleteError is one per-key failure in the response.
type DeleteError struct {
	Key     string `xml:"Key"`
	Code    string `xml:"Code"`
	Message string `xml:"Message"`
}

// DeleteObjectsResult is the DeleteObjects response body.
type DeleteObjectsResult struct {
	XMLName xml.Name        `xml:"http://s3.amazonaws.com/doc/2006-03-01/ DeleteResult"`
	Deleted []DeletedObject `xml:"Deleted"`
	Errors  []DeleteError   `xml:"Error"`
}
