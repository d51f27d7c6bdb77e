// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
)

type ParserFilter struct {
	router *Router
}

func NewParserFilter() *ParserFilter {
	return &ParserFilter{
		router: NewRouter(),
	}
}

func (f *ParserFilter) Type() string {
	return "parser"
}

func (f *ParserFilter) Run(d *data.Data) (Response, error) {
	if d.Ctx.Err() != nil {
		return nil, d.Ctx.Err()
	}

	match, ok := f.router.MatchRequest(d.Req)
	if !ok {
		return End{}, s3err.ErrNotImplemented
	}
	d.S3Info.Action = match.Action
	d.S3Info.Bucket = match.Bucket
	d.S3Info.Key = match.Key

	return Next{}, nil
}
