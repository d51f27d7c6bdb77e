// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package storage

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/phumiphatauk/tinystore/pkg/utils"
)

// FormatETag renders a raw MD5 digest as a quoted S3 ETag.
func FormatETag(sum []byte) string {
	return `"` + hex.EncodeToString(sum) + `"`
}

// TrimETag strips surrounding quotes so client-supplied ETags compare
// equal to stored ones.
func TrimETag(etag string) string {
	return strings.Trim(etag, `"`)
}

// ComposeMultipartETag builds the S3 composite ETag for an assembled
// multipart object: the MD5 of the concatenated raw part digests,
// suffixed with the part count.
func ComposeMultipartETag(partSums [][]byte) string {
	h := utils.Md5PoolGetHasher()
	defer utils.Md5PoolPutHasher(h)
	for _, sum := range partSums {
		h.Write(sum)
	}
	return fmt.Sprintf(`"%s-%d"`, hex.EncodeToString(h.Sum(nil)), len(partSums))
}

// DecodeETag converts a stored ETag back to its raw digest bytes.
func DecodeETag(etag string) ([]byte, error) {
	return hex.DecodeString(TrimETag(etag))
}
