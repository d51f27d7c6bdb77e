// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/storage"
	"github.com/phumiphatauk/tinystore/pkg/utils"
)

// uploadSession is the in-memory state of one multipart upload. The
// per-session mutex serializes part writes, completion and abort, so
// independent uploads never contend with each other.
type uploadSession struct {
	mu sync.Mutex

	bucket      string
	key         string
	contentType string
	metadata    map[string]string
	initiated   time.Time

	parts    map[int]storage.Part
	terminal bool
}

// uploadTable tracks live multipart sessions keyed by upload ID.
// Sessions are process-local and do not survive a restart.
type uploadTable struct {
	sessions *utils.ShardedMap[*uploadSession]
}

func newUploadTable() *uploadTable {
	return &uploadTable{sessions: utils.NewShardedMap[*uploadSession]()}
}

func (t *uploadTable) create(bucket, key string, opts storage.PutOptions) string {
	id := uuid.NewString()
	t.sessions.Store(id, &uploadSession{
		bucket:      bucket,
		key:         key,
		contentType: opts.ContentType,
		metadata:    opts.Metadata,
		initiated:   time.Now().UTC(),
		parts:       make(map[int]storage.Part),
	})
	return id
}

// acquire returns the session locked, or ErrUploadNotFound when the ID
// is unknown, targets a different bucket/key, or has already reached a
// terminal state. The caller must unlock the session.
func (t *uploadTable) acquire(bucket, key, uploadID string) (*uploadSession, error) {
	s, ok := t.sessions.Load(uploadID)
	if !ok {
		return nil, storage.ErrUploadNotFound
	}
	s.mu.Lock()
	if s.terminal || s.bucket != bucket || s.key != key {
		s.mu.Unlock()
		return nil, storage.ErrUploadNotFound
	}
	return s, nil
}

// finish marks the locked session terminal and drops it from the table.
func (t *uploadTable) finish(uploadID string, s *uploadSession) {
	s.terminal = true
	t.sessions.Delete(uploadID)
}

// list returns the live sessions targeting the bucket, ordered by key
// then upload ID.
func (t *uploadTable) list(bucket string) []storage.MultipartUploadInfo {
	var uploads []storage.MultipartUploadInfo
	t.sessions.Range(func(id string, s *uploadSession) bool {
		s.mu.Lock()
		if !s.terminal && s.bucket == bucket {
			uploads = append(uploads, storage.MultipartUploadInfo{
				Key:       s.key,
				UploadID:  id,
				Initiated: s.initiated,
			})
		}
		s.mu.Unlock()
		return true
	})
	sort.Slice(uploads, func(i, j int) bool {
		if uploads[i].Key != uploads[j].Key {
			return uploads[i].Key < uploads[j].Key
		}
		return uploads[i].UploadID < uploads[j].UploadID
	})
	return uploads
}

// hasUploads reports whether any live session targets the bucket.
func (t *uploadTable) hasUploads(bucket string) bool {
	found := false
	t.sessions.Range(func(_ string, s *uploadSession) bool {
		if s.bucket == bucket {
			found = true
			return false
		}
		return true
	})
	return found
}

func validPartNumber(n int) bool {
	return n >= 1 && n <= s3consts.MaxPartNumber
}

// validateManifest checks a completion manifest against the locked
// session: at least one part, strictly ascending part numbers, and
// every referenced part present with a matching ETag. Returns the raw
// MD5 digests in manifest order and the total object size.
func validateManifest(s *uploadSession, manifest []storage.CompletedPart) ([][]byte, int64, error) {
	if len(manifest) == 0 {
		return nil, 0, storage.ErrInvalidPart
	}

	sums := make([][]byte, 0, len(manifest))
	var total int64
	prev := 0
	for _, ref := range manifest {
		if ref.PartNumber <= prev {
			return nil, 0, storage.ErrInvalidPartOrder
		}
		prev = ref.PartNumber

		part, ok := s.parts[ref.PartNumber]
		if !ok || storage.TrimETag(part.ETag) != storage.TrimETag(ref.ETag) {
			return nil, 0, storage.ErrInvalidPart
		}

		sum, err := storage.DecodeETag(part.ETag)
		if err != nil {
			return nil, 0, storage.ErrInvalidPart
		}
		sums = append(sums, sum)
		total += part.Size
	}
	return sums, total, nil
}
