// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"strconv"
	"strings"
)

// Range is a client-requested byte range. End is inclusive; -1 means
// to the end of the object. When Suffix is set, Start holds the suffix
// length (last N bytes).
type Range struct {
	Start  int64
	End    int64
	Suffix bool
}

// ParseRange parses a single-range "bytes=..." header value. A
// malformed or multi-range header returns ok=false and the request is
// served in full, per RFC 9110.
func ParseRange(header string) (*Range, bool) {
	spec, found := strings.CutPrefix(header, "bytes=")
	if !found || strings.Contains(spec, ",") {
		return nil, false
	}

	first, last, found := strings.Cut(spec, "-")
	if !found {
		return nil, false
	}

	if first == "" {
		// Suffix range: bytes=-N
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n < 0 {
			return nil, false
		}
		return &Range{Start: n, End: -1, Suffix: true}, true
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return nil, false
	}

	end := int64(-1)
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return nil, false
		}
	}

	return &Range{Start: start, End: end}, true
}

// Resolve maps the range onto an object of the given size, returning
// the read offset and length. Unsatisfiable ranges return ErrInvalidRange.
func (r *Range) Resolve(size int64) (int64, int64, error) {
	if r.Suffix {
		if r.Start <= 0 {
			return 0, 0, ErrInvalidRange
		}
		length := r.Start
		if length > size {
			length = size
		}
		return size - length, length, nil
	}

	if r.Start >= size {
		return 0, 0, ErrInvalidRange
	}

	end := r.End
	if end < 0 || end >= size {
		end = size - 1
	}
	return r.Start, end - r.Start + 1, nil
}
