// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/storage"
	"github.com/phumiphatauk/tinystore/pkg/utils"
)

func init() {
	Register(storage.TypeMemory, func(cfg Config) (storage.Backend, error) {
		return NewMemory(cfg), nil
	})
}

// Memory keeps everything in process memory. Intended for tests and
// ephemeral deployments.
type Memory struct {
	mu      sync.RWMutex
	buckets map[string]*memBucket

	maxBuckets    int
	maxObjectSize int64

	uploads *uploadTable
	// Part payloads keyed by "<uploadId>/<partNumber>".
	partData *utils.ShardedMap[[]byte]
}

type memBucket struct {
	created time.Time

	mu      sync.RWMutex
	objects map[string]*memObject
}

type memObject struct {
	data []byte
	info storage.ObjectInfo
}

// NewMemory creates an empty in-memory backend.
func NewMemory(cfg Config) *Memory {
	return &Memory{
		buckets:       make(map[string]*memBucket),
		maxBuckets:    cfg.MaxBuckets,
		maxObjectSize: cfg.MaxObjectSize,
		uploads:       newUploadTable(),
		partData:      utils.NewShardedMap[[]byte](),
	}
}

func (m *Memory) Type() storage.StorageType { return storage.TypeMemory }

func (m *Memory) Close() error { return nil }

func (m *Memory) bucket(name string) (*memBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.buckets[name]
	if !ok {
		return nil, storage.ErrBucketNotFound
	}
	return b, nil
}

// ===== Buckets =====

func (m *Memory) CreateBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.buckets[bucket]; exists {
		return storage.ErrBucketExists
	}
	if m.maxBuckets > 0 && len(m.buckets) >= m.maxBuckets {
		return storage.ErrTooManyBuckets
	}

	m.buckets[bucket] = &memBucket{
		created: time.Now().UTC(),
		objects: make(map[string]*memObject),
	}
	return nil
}

func (m *Memory) DeleteBucket(ctx context.Context, bucket string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, exists := m.buckets[bucket]
	if !exists {
		return storage.ErrBucketNotFound
	}

	b.mu.RLock()
	empty := len(b.objects) == 0
	b.mu.RUnlock()
	if !empty || m.uploads.hasUploads(bucket) {
		return storage.ErrBucketNotEmpty
	}

	delete(m.buckets, bucket)
	return nil
}

func (m *Memory) ListBuckets(ctx context.Context) ([]storage.BucketInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	buckets := make([]storage.BucketInfo, 0, len(m.buckets))
	for name, b := range m.buckets {
		buckets = append(buckets, storage.BucketInfo{Name: name, CreatedAt: b.created})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (m *Memory) GetBucketInfo(ctx context.Context, bucket string) (storage.BucketInfo, error) {
	b, err := m.bucket(bucket)
	if err != nil {
		return storage.BucketInfo{}, err
	}
	return storage.BucketInfo{Name: bucket, CreatedAt: b.created}, nil
}

// ===== Objects =====

func (m *Memory) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	b, err := m.bucket(bucket)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	data, etag, err := m.readAll(body)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	info := storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         etag,
		ContentType:  opts.ContentType,
		LastModified: time.Now().UTC(),
		Metadata:     opts.Metadata,
	}

	b.mu.Lock()
	b.objects[key] = &memObject{data: data, info: info}
	b.mu.Unlock()
	return info, nil
}

// readAll buffers the body, enforcing the size limit and computing the
// MD5 ETag in one pass.
func (m *Memory) readAll(body io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(body, m.maxObjectSize+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > m.maxObjectSize {
		return nil, "", storage.ErrEntityTooLarge
	}

	h := utils.Md5PoolGetHasher()
	defer utils.Md5PoolPutHasher(h)
	h.Write(data)
	return data, storage.FormatETag(h.Sum(nil)), nil
}

func (m *Memory) object(bucket, key string) (*memObject, error) {
	b, err := m.bucket(bucket)
	if err != nil {
		return nil, err
	}

	b.mu.RLock()
	obj, ok := b.objects[key]
	b.mu.RUnlock()
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return obj, nil
}

func (m *Memory) GetObject(ctx context.Context, bucket, key string, rng *storage.Range) (*storage.GetResult, error) {
	obj, err := m.object(bucket, key)
	if err != nil {
		return nil, err
	}

	result := &storage.GetResult{Info: obj.info}
	data := obj.data
	if rng != nil {
		offset, length, err := rng.Resolve(obj.info.Size)
		if err != nil {
			return nil, err
		}
		data = data[offset : offset+length]
		result.Range = &storage.ResolvedRange{Start: offset, End: offset + length - 1, Total: obj.info.Size}
	}
	result.Body = io.NopCloser(bytes.NewReader(data))
	return result, nil
}

func (m *Memory) HeadObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	obj, err := m.object(bucket, key)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	return obj.info, nil
}

func (m *Memory) DeleteObject(ctx context.Context, bucket, key string) error {
	b, err := m.bucket(bucket)
	if err != nil {
		return err
	}

	b.mu.Lock()
	delete(b.objects, key)
	b.mu.Unlock()
	return nil
}

func (m *Memory) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (storage.ObjectInfo, error) {
	obj, err := m.object(srcBucket, srcKey)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	dst, err := m.bucket(dstBucket)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	data := make([]byte, len(obj.data))
	copy(data, obj.data)

	info := obj.info
	info.Key = dstKey
	info.LastModified = time.Now().UTC()

	dst.mu.Lock()
	dst.objects[dstKey] = &memObject{data: data, info: info}
	dst.mu.Unlock()
	return info, nil
}

func (m *Memory) ListObjects(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	b, err := m.bucket(bucket)
	if err != nil {
		return storage.ListResult{}, err
	}

	// Snapshot the key set so pagination sees a consistent view.
	b.mu.RLock()
	keys := make([]string, 0, len(b.objects))
	for key := range b.objects {
		keys = append(keys, key)
	}
	b.mu.RUnlock()
	sort.Strings(keys)

	pageKeys, prefixes, truncated, next := storage.ListPage(keys, opts)

	result := storage.ListResult{
		CommonPrefixes: prefixes,
		IsTruncated:    truncated,
		NextStartAfter: next,
	}
	b.mu.RLock()
	for _, key := range pageKeys {
		if obj, ok := b.objects[key]; ok {
			result.Objects = append(result.Objects, obj.info)
		}
	}
	b.mu.RUnlock()
	return result, nil
}

// ===== Multipart =====

func (m *Memory) CreateMultipartUpload(ctx context.Context, bucket, key string, opts storage.PutOptions) (string, error) {
	if _, err := m.bucket(bucket); err != nil {
		return "", err
	}
	return m.uploads.create(bucket, key, opts), nil
}

func (m *Memory) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader) (storage.Part, error) {
	if !validPartNumber(partNumber) {
		return storage.Part{}, storage.ErrInvalidPartNumber
	}

	s, err := m.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return storage.Part{}, err
	}
	defer s.mu.Unlock()

	data, etag, err := m.readAll(body)
	if err != nil {
		return storage.Part{}, err
	}

	part := storage.Part{
		PartNumber:   partNumber,
		Size:         int64(len(data)),
		ETag:         etag,
		LastModified: time.Now().UTC(),
	}
	m.partData.Store(partKey(uploadID, partNumber), data)
	s.parts[partNumber] = part
	return part, nil
}

func (m *Memory) ListParts(ctx context.Context, bucket, key, uploadID string) ([]storage.Part, error) {
	s, err := m.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return nil, err
	}
	defer s.mu.Unlock()

	parts := make([]storage.Part, 0, len(s.parts))
	for _, part := range s.parts {
		parts = append(parts, part)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })
	return parts, nil
}

func (m *Memory) ListMultipartUploads(ctx context.Context, bucket string) ([]storage.MultipartUploadInfo, error) {
	if _, err := m.bucket(bucket); err != nil {
		return nil, err
	}
	return m.uploads.list(bucket), nil
}

func (m *Memory) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, manifest []storage.CompletedPart) (storage.ObjectInfo, error) {
	b, err := m.bucket(bucket)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	s, err := m.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer s.mu.Unlock()

	sums, total, err := validateManifest(s, manifest)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	data := make([]byte, 0, total)
	for _, ref := range manifest {
		payload, ok := m.partData.Load(partKey(uploadID, ref.PartNumber))
		if !ok {
			return storage.ObjectInfo{}, storage.ErrInvalidPart
		}
		data = append(data, payload...)
	}

	info := storage.ObjectInfo{
		Key:          key,
		Size:         int64(len(data)),
		ETag:         storage.ComposeMultipartETag(sums),
		ContentType:  s.contentType,
		LastModified: time.Now().UTC(),
		Metadata:     s.metadata,
	}

	b.mu.Lock()
	b.objects[key] = &memObject{data: data, info: info}
	b.mu.Unlock()

	m.dropParts(uploadID, s)
	m.uploads.finish(uploadID, s)
	return info, nil
}

func (m *Memory) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	s, err := m.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	m.dropParts(uploadID, s)
	m.uploads.finish(uploadID, s)
	return nil
}

func (m *Memory) dropParts(uploadID string, s *uploadSession) {
	for partNumber := range s.parts {
		m.partData.Delete(partKey(uploadID, partNumber))
	}
}

func partKey(uploadID string, partNumber int) string {
	return uploadID + "/" + strconv.Itoa(partNumber)
}

// ===== Stats =====

func (m *Memory) Stats(ctx context.Context) (storage.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats storage.Stats
	for _, b := range m.buckets {
		stats.Buckets++
		b.mu.RLock()
		for _, obj := range b.objects {
			stats.Objects++
			stats.Bytes += obj.info.Size
		}
		b.mu.RUnlock()
	}
	return stats, nil
}
