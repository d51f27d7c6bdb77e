// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/phumiphatauk/tinystore/pkg/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMaxBuckets    = 5
	testMaxObjectSize = 1 << 20
)

// forEachBackend runs the same conformance subtest against every
// backend implementation.
func forEachBackend(t *testing.T, fn func(t *testing.T, be storage.Backend)) {
	t.Helper()

	backends := map[string]func(t *testing.T) storage.Backend{
		"filesystem": func(t *testing.T) storage.Backend {
			be, err := NewFilesystem(Config{
				Type:          storage.TypeFilesystem,
				DataDir:       t.TempDir(),
				MaxBuckets:    testMaxBuckets,
				MaxObjectSize: testMaxObjectSize,
			})
			require.NoError(t, err)
			return be
		},
		"memory": func(t *testing.T) storage.Backend {
			return NewMemory(Config{
				Type:          storage.TypeMemory,
				MaxBuckets:    testMaxBuckets,
				MaxObjectSize: testMaxObjectSize,
			})
		},
	}

	for name, newBackend := range backends {
		newBackend := newBackend
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			be := newBackend(t)
			defer be.Close()
			fn(t, be)
		})
	}
}

func putString(t *testing.T, be storage.Backend, bucket, key, body string) storage.ObjectInfo {
	t.Helper()
	info, err := be.PutObject(context.Background(), bucket, key, strings.NewReader(body), storage.PutOptions{})
	require.NoError(t, err)
	return info
}

func readBody(t *testing.T, res *storage.GetResult) string {
	t.Helper()
	defer res.Body.Close()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func TestBucketLifecycle(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()

		require.NoError(t, be.CreateBucket(ctx, "first"))
		require.NoError(t, be.CreateBucket(ctx, "second"))

		err := be.CreateBucket(ctx, "first")
		assert.ErrorIs(t, err, storage.ErrBucketExists)

		info, err := be.GetBucketInfo(ctx, "first")
		require.NoError(t, err)
		assert.Equal(t, "first", info.Name)
		assert.False(t, info.CreatedAt.IsZero())

		_, err = be.GetBucketInfo(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)

		buckets, err := be.ListBuckets(ctx)
		require.NoError(t, err)
		names := make([]string, len(buckets))
		for i, b := range buckets {
			names[i] = b.Name
		}
		assert.ElementsMatch(t, []string{"first", "second"}, names)

		require.NoError(t, be.DeleteBucket(ctx, "second"))
		err = be.DeleteBucket(ctx, "second")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestBucketLimit(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		for i := 0; i < testMaxBuckets; i++ {
			require.NoError(t, be.CreateBucket(ctx, fmt.Sprintf("bucket-%d", i)))
		}
		err := be.CreateBucket(ctx, "one-too-many")
		assert.ErrorIs(t, err, storage.ErrTooManyBuckets)
	})
}

func TestDeleteNonEmptyBucket(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "full"))
		putString(t, be, "full", "keep.txt", "data")

		err := be.DeleteBucket(ctx, "full")
		assert.ErrorIs(t, err, storage.ErrBucketNotEmpty)

		require.NoError(t, be.DeleteObject(ctx, "full", "keep.txt"))
		require.NoError(t, be.DeleteBucket(ctx, "full"))
	})
}

func TestDeleteBucketWithActiveUpload(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "uploads"))

		uploadID, err := be.CreateMultipartUpload(ctx, "uploads", "big.bin", storage.PutOptions{})
		require.NoError(t, err)

		err = be.DeleteBucket(ctx, "uploads")
		assert.ErrorIs(t, err, storage.ErrBucketNotEmpty)

		require.NoError(t, be.AbortMultipartUpload(ctx, "uploads", "big.bin", uploadID))
		require.NoError(t, be.DeleteBucket(ctx, "uploads"))
	})
}

func TestPutGetRoundtrip(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))

		body := "the quick brown fox"
		sum := md5.Sum([]byte(body))
		info, err := be.PutObject(ctx, "docs", "fox.txt", strings.NewReader(body), storage.PutOptions{
			ContentType: "text/plain",
			Metadata:    map[string]string{"owner": "alice"},
		})
		require.NoError(t, err)
		assert.Equal(t, storage.FormatETag(sum[:]), info.ETag)
		assert.Equal(t, int64(len(body)), info.Size)

		res, err := be.GetObject(ctx, "docs", "fox.txt", nil)
		require.NoError(t, err)
		assert.Equal(t, body, readBody(t, res))
		assert.Equal(t, "text/plain", res.Info.ContentType)
		assert.Equal(t, "alice", res.Info.Metadata["owner"])
		assert.Nil(t, res.Range)

		head, err := be.HeadObject(ctx, "docs", "fox.txt")
		require.NoError(t, err)
		assert.Equal(t, info.ETag, head.ETag)
		assert.Equal(t, info.Size, head.Size)

		_, err = be.GetObject(ctx, "docs", "missing.txt", nil)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
		_, err = be.GetObject(ctx, "nosuchbucket", "fox.txt", nil)
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestOverwriteLastWins(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))

		putString(t, be, "docs", "note.txt", "version one")
		second := putString(t, be, "docs", "note.txt", "version two")

		res, err := be.GetObject(ctx, "docs", "note.txt", nil)
		require.NoError(t, err)
		assert.Equal(t, "version two", readBody(t, res))
		assert.Equal(t, second.ETag, res.Info.ETag)
	})
}

func TestPutObjectTooLarge(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))

		oversized := bytes.Repeat([]byte("x"), testMaxObjectSize+1)
		_, err := be.PutObject(ctx, "docs", "big.bin", bytes.NewReader(oversized), storage.PutOptions{})
		assert.ErrorIs(t, err, storage.ErrEntityTooLarge)

		// The failed write must not leave a visible object.
		_, err = be.GetObject(ctx, "docs", "big.bin", nil)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
}

func TestRangedReads(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))
		putString(t, be, "docs", "alpha.txt", "abcdefghij")

		res, err := be.GetObject(ctx, "docs", "alpha.txt", &storage.Range{Start: 2, End: 5})
		require.NoError(t, err)
		assert.Equal(t, "cdef", readBody(t, res))
		require.NotNil(t, res.Range)
		assert.Equal(t, int64(2), res.Range.Start)
		assert.Equal(t, int64(5), res.Range.End)
		assert.Equal(t, int64(10), res.Range.Total)

		res, err = be.GetObject(ctx, "docs", "alpha.txt", &storage.Range{Start: 3, End: -1, Suffix: true})
		require.NoError(t, err)
		assert.Equal(t, "hij", readBody(t, res))

		res, err = be.GetObject(ctx, "docs", "alpha.txt", &storage.Range{Start: 4, End: 100})
		require.NoError(t, err)
		assert.Equal(t, "efghij", readBody(t, res))

		_, err = be.GetObject(ctx, "docs", "alpha.txt", &storage.Range{Start: 10, End: -1})
		assert.ErrorIs(t, err, storage.ErrInvalidRange)
	})
}

func TestDeleteObjectIdempotent(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))
		putString(t, be, "docs", "gone.txt", "bye")

		require.NoError(t, be.DeleteObject(ctx, "docs", "gone.txt"))
		require.NoError(t, be.DeleteObject(ctx, "docs", "gone.txt"))
		require.NoError(t, be.DeleteObject(ctx, "docs", "never-existed.txt"))

		err := be.DeleteObject(ctx, "nosuchbucket", "gone.txt")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestCopyObject(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "src"))
		require.NoError(t, be.CreateBucket(ctx, "dst"))

		orig, err := be.PutObject(ctx, "src", "a.txt", strings.NewReader("copy me"), storage.PutOptions{
			ContentType: "text/plain",
			Metadata:    map[string]string{"origin": "src"},
		})
		require.NoError(t, err)

		copied, err := be.CopyObject(ctx, "src", "a.txt", "dst", "b.txt")
		require.NoError(t, err)
		assert.Equal(t, orig.ETag, copied.ETag)

		res, err := be.GetObject(ctx, "dst", "b.txt", nil)
		require.NoError(t, err)
		assert.Equal(t, "copy me", readBody(t, res))
		assert.Equal(t, "text/plain", res.Info.ContentType)
		assert.Equal(t, "src", res.Info.Metadata["origin"])

		_, err = be.CopyObject(ctx, "src", "missing.txt", "dst", "c.txt")
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
}

func TestListObjectsPagination(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "docs"))

		keys := []string{
			"a.txt",
			"photos/2023/feb.jpg",
			"photos/2023/jan.jpg",
			"photos/index.txt",
			"zebra.txt",
		}
		for _, k := range keys {
			putString(t, be, "docs", k, "content of "+k)
		}

		// Full listing comes back sorted.
		res, err := be.ListObjects(ctx, "docs", storage.ListOptions{MaxKeys: 1000})
		require.NoError(t, err)
		require.Len(t, res.Objects, len(keys))
		for i, k := range keys {
			assert.Equal(t, k, res.Objects[i].Key)
			assert.NotEmpty(t, res.Objects[i].ETag)
		}
		assert.False(t, res.IsTruncated)

		// Delimited listing rolls up the photos/ subtree.
		res, err = be.ListObjects(ctx, "docs", storage.ListOptions{Delimiter: "/", MaxKeys: 1000})
		require.NoError(t, err)
		assert.Len(t, res.Objects, 2)
		assert.Equal(t, []string{"photos/"}, res.CommonPrefixes)

		// Page through two at a time, collecting everything exactly once.
		var collected []string
		startAfter := ""
		for {
			page, err := be.ListObjects(ctx, "docs", storage.ListOptions{MaxKeys: 2, StartAfter: startAfter})
			require.NoError(t, err)
			for _, obj := range page.Objects {
				collected = append(collected, obj.Key)
			}
			if !page.IsTruncated {
				break
			}
			startAfter = page.NextStartAfter
		}
		assert.Equal(t, keys, collected)

		_, err = be.ListObjects(ctx, "nosuchbucket", storage.ListOptions{MaxKeys: 10})
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestMultipartUpload(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "media"))

		uploadID, err := be.CreateMultipartUpload(ctx, "media", "movie.bin", storage.PutOptions{
			ContentType: "application/octet-stream",
		})
		require.NoError(t, err)
		require.NotEmpty(t, uploadID)

		partOne := strings.Repeat("a", 1024)
		partTwo := strings.Repeat("b", 512)

		p1, err := be.UploadPart(ctx, "media", "movie.bin", uploadID, 1, strings.NewReader(partOne))
		require.NoError(t, err)
		p2, err := be.UploadPart(ctx, "media", "movie.bin", uploadID, 2, strings.NewReader(partTwo))
		require.NoError(t, err)

		parts, err := be.ListParts(ctx, "media", "movie.bin", uploadID)
		require.NoError(t, err)
		require.Len(t, parts, 2)
		assert.Equal(t, 1, parts[0].PartNumber)
		assert.Equal(t, 2, parts[1].PartNumber)

		info, err := be.CompleteMultipartUpload(ctx, "media", "movie.bin", uploadID, []storage.CompletedPart{
			{PartNumber: 1, ETag: p1.ETag},
			{PartNumber: 2, ETag: p2.ETag},
		})
		require.NoError(t, err)

		// Composite ETag: md5 of the concatenated part digests, -2 suffix.
		s1 := md5.Sum([]byte(partOne))
		s2 := md5.Sum([]byte(partTwo))
		assert.Equal(t, storage.ComposeMultipartETag([][]byte{s1[:], s2[:]}), info.ETag)
		assert.Equal(t, int64(len(partOne)+len(partTwo)), info.Size)

		res, err := be.GetObject(ctx, "media", "movie.bin", nil)
		require.NoError(t, err)
		assert.Equal(t, partOne+partTwo, readBody(t, res))
		assert.Equal(t, "application/octet-stream", res.Info.ContentType)

		// The upload is terminal: every further operation sees no upload.
		_, err = be.ListParts(ctx, "media", "movie.bin", uploadID)
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)
		_, err = be.UploadPart(ctx, "media", "movie.bin", uploadID, 3, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)
		err = be.AbortMultipartUpload(ctx, "media", "movie.bin", uploadID)
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)
	})
}

func TestMultipartManifestValidation(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "media"))

		uploadID, err := be.CreateMultipartUpload(ctx, "media", "clip.bin", storage.PutOptions{})
		require.NoError(t, err)

		p1, err := be.UploadPart(ctx, "media", "clip.bin", uploadID, 1, strings.NewReader("one"))
		require.NoError(t, err)
		p2, err := be.UploadPart(ctx, "media", "clip.bin", uploadID, 2, strings.NewReader("two"))
		require.NoError(t, err)

		// Parts out of ascending order.
		_, err = be.CompleteMultipartUpload(ctx, "media", "clip.bin", uploadID, []storage.CompletedPart{
			{PartNumber: 2, ETag: p2.ETag},
			{PartNumber: 1, ETag: p1.ETag},
		})
		assert.ErrorIs(t, err, storage.ErrInvalidPartOrder)

		// Mismatched ETag.
		_, err = be.CompleteMultipartUpload(ctx, "media", "clip.bin", uploadID, []storage.CompletedPart{
			{PartNumber: 1, ETag: `"00000000000000000000000000000000"`},
			{PartNumber: 2, ETag: p2.ETag},
		})
		assert.ErrorIs(t, err, storage.ErrInvalidPart)

		// Never-uploaded part number.
		_, err = be.CompleteMultipartUpload(ctx, "media", "clip.bin", uploadID, []storage.CompletedPart{
			{PartNumber: 1, ETag: p1.ETag},
			{PartNumber: 7, ETag: p2.ETag},
		})
		assert.ErrorIs(t, err, storage.ErrInvalidPart)

		// Failed completions are not terminal; a valid manifest still works.
		_, err = be.CompleteMultipartUpload(ctx, "media", "clip.bin", uploadID, []storage.CompletedPart{
			{PartNumber: 1, ETag: p1.ETag},
			{PartNumber: 2, ETag: p2.ETag},
		})
		require.NoError(t, err)
	})
}

func TestListMultipartUploads(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "media"))
		require.NoError(t, be.CreateBucket(ctx, "other"))

		uploads, err := be.ListMultipartUploads(ctx, "media")
		require.NoError(t, err)
		assert.Empty(t, uploads)

		idB, err := be.CreateMultipartUpload(ctx, "media", "b.bin", storage.PutOptions{})
		require.NoError(t, err)
		idA, err := be.CreateMultipartUpload(ctx, "media", "a.bin", storage.PutOptions{})
		require.NoError(t, err)
		_, err = be.CreateMultipartUpload(ctx, "other", "elsewhere.bin", storage.PutOptions{})
		require.NoError(t, err)

		// Only this bucket's uploads, ordered by key.
		uploads, err = be.ListMultipartUploads(ctx, "media")
		require.NoError(t, err)
		require.Len(t, uploads, 2)
		assert.Equal(t, "a.bin", uploads[0].Key)
		assert.Equal(t, idA, uploads[0].UploadID)
		assert.Equal(t, "b.bin", uploads[1].Key)
		assert.Equal(t, idB, uploads[1].UploadID)
		assert.False(t, uploads[0].Initiated.IsZero())

		// Terminal uploads drop out of the listing.
		require.NoError(t, be.AbortMultipartUpload(ctx, "media", "a.bin", idA))
		p, err := be.UploadPart(ctx, "media", "b.bin", idB, 1, strings.NewReader("done"))
		require.NoError(t, err)
		_, err = be.CompleteMultipartUpload(ctx, "media", "b.bin", idB, []storage.CompletedPart{
			{PartNumber: 1, ETag: p.ETag},
		})
		require.NoError(t, err)

		uploads, err = be.ListMultipartUploads(ctx, "media")
		require.NoError(t, err)
		assert.Empty(t, uploads)

		_, err = be.ListMultipartUploads(ctx, "nosuchbucket")
		assert.ErrorIs(t, err, storage.ErrBucketNotFound)
	})
}

func TestMultipartAbort(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "media"))

		uploadID, err := be.CreateMultipartUpload(ctx, "media", "tmp.bin", storage.PutOptions{})
		require.NoError(t, err)
		_, err = be.UploadPart(ctx, "media", "tmp.bin", uploadID, 1, strings.NewReader("data"))
		require.NoError(t, err)

		require.NoError(t, be.AbortMultipartUpload(ctx, "media", "tmp.bin", uploadID))

		_, err = be.UploadPart(ctx, "media", "tmp.bin", uploadID, 2, strings.NewReader("more"))
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)
		_, err = be.CompleteMultipartUpload(ctx, "media", "tmp.bin", uploadID, nil)
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)

		// The aborted upload never published an object.
		_, err = be.GetObject(ctx, "media", "tmp.bin", nil)
		assert.ErrorIs(t, err, storage.ErrObjectNotFound)
	})
}

func TestUploadPartInvalidNumber(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "media"))

		uploadID, err := be.CreateMultipartUpload(ctx, "media", "x.bin", storage.PutOptions{})
		require.NoError(t, err)

		_, err = be.UploadPart(ctx, "media", "x.bin", uploadID, 0, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidPartNumber)
		_, err = be.UploadPart(ctx, "media", "x.bin", uploadID, 10001, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrInvalidPartNumber)

		// Wrong bucket or key never matches the upload.
		_, err = be.UploadPart(ctx, "media", "other.bin", uploadID, 1, strings.NewReader("x"))
		assert.ErrorIs(t, err, storage.ErrUploadNotFound)
	})
}

func TestConcurrentPutsSameKey(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "race"))

		bodies := make([]string, 8)
		for i := range bodies {
			bodies[i] = strings.Repeat(fmt.Sprintf("%d", i), 4096)
		}

		var wg sync.WaitGroup
		for _, body := range bodies {
			wg.Add(1)
			go func(body string) {
				defer wg.Done()
				_, err := be.PutObject(ctx, "race", "contested.txt", strings.NewReader(body), storage.PutOptions{})
				assert.NoError(t, err)
			}(body)
		}
		wg.Wait()

		// One complete write wins; readers never see a torn object.
		res, err := be.GetObject(ctx, "race", "contested.txt", nil)
		require.NoError(t, err)
		got := readBody(t, res)
		assert.Contains(t, bodies, got)
	})
}

func TestStats(t *testing.T) {
	t.Parallel()
	forEachBackend(t, func(t *testing.T, be storage.Backend) {
		ctx := context.Background()
		require.NoError(t, be.CreateBucket(ctx, "a"))
		require.NoError(t, be.CreateBucket(ctx, "b"))
		putString(t, be, "a", "one.txt", "11111")
		putString(t, be, "b", "two.txt", "222")

		stats, err := be.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.Buckets)
		assert.Equal(t, int64(2), stats.Objects)
		assert.Equal(t, int64(8), stats.Bytes)
	})
}

func TestBackendRegistry(t *testing.T) {
	t.Parallel()

	be, err := New(Config{Type: storage.TypeMemory, MaxBuckets: 1, MaxObjectSize: 1024})
	require.NoError(t, err)
	assert.Equal(t, storage.TypeMemory, be.Type())

	_, err = New(Config{Type: "tape"})
	assert.Error(t, err)
}
