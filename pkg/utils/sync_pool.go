// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"crypto/md5"
	"hash"
	"sync"

	"github.com/minio/sha256-simd"
)

var (
	sha256Pool = sync.Pool{
		New: func() any {
			return sha256.New()
		},
	}
	md5Pool = sync.Pool{
		New: func() any {
			return md5.New()
		},
	}
)

func Sha256PoolGetHasher() hash.Hash {
	return sha256Pool.Get().(hash.Hash)
}

func Sha256PoolPutHasher(h hash.Hash) {
	h.Reset()
	sha256Pool.Put(h)
}

func Md5PoolGetHasher() hash.Hash {
	return md5Pool.Get().(hash.Hash)
}

func Md5PoolPutHasher(h hash.Hash) {
	h.Reset()
	md5Pool.Put(h)
}
