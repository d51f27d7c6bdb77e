// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package filter

import (
	"strconv"
	"sync/atomic"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"

	"github.com/google/uuid"
)

const (
	FilterTypeRequestID = "RequestIDFilter"
)

type RequestIDFilter struct {
	counter atomic.Uint64
	prefix  string
}

func NewRequestIDFilter() *RequestIDFilter {
	return &RequestIDFilter{
		prefix: uuid.New().String()[0:8],
	}
}

func (f *RequestIDFilter) Run(d *data.Data) (Response, error) {
	if d.Ctx.Err() != nil {
		return nil, d.Ctx.Err()
	}

	d.S3Info.RequestID = f.generateRequestID()

	return Next{}, nil
}

func (f *RequestIDFilter) generateRequestID() string {
	return f.prefix + strconv.FormatUint(f.counter.Add(1), 10)
}

func (f *RequestIDFilter) Type() string {
	return FilterTypeRequestID
}
