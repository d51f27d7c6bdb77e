// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import "encoding/base64"

// Continuation tokens are opaque to clients. The encoding is the
// URL-safe base64 of the last item emitted on the previous page.

// EncodeContinuationToken wraps a resume point as an opaque token.
func EncodeContinuationToken(startAfter string) string {
	if startAfter == "" {
		return ""
	}
	return base64.URLEncoding.EncodeToString([]byte(startAfter))
}

// DecodeContinuationToken unwraps a client-supplied token.
func DecodeContinuationToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(raw), nil
}
