// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package data

import (
	"context"
	"net/http"

	"github.com/phumiphatauk/tinystore/pkg/iam"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3action"
)

// Data carries one request through the filter chain to its handler.
type Data struct {
	Ctx      context.Context
	Req      *http.Request
	S3Info   *S3Info
	Identity *iam.Identity // Authenticated identity (nil until the auth filter runs)

	// ResponseWriter allows filters to write HTTP responses directly.
	// Set by the server before invoking the filter chain.
	ResponseWriter http.ResponseWriter
}

func NewData(ctx context.Context, req *http.Request) *Data {
	return &Data{
		Ctx:    ctx,
		Req:    req,
		S3Info: &S3Info{},
	}
}

type S3Info struct {
	Bucket    string
	Key       string
	Action    s3action.Action
	RequestID string
	AccessKey string
}

// Resource renders the request target for error envelopes.
func (s *S3Info) Resource() string {
	if s.Bucket == "" {
		return "/"
	}
	if s.Key == "" {
		return "/" + s.Bucket
	}
	return "/" + s.Bucket + "/" + s.Key
}
