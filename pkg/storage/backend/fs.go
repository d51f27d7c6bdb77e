// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/storage"
	"github.com/phumiphatauk/tinystore/pkg/utils"
)

func init() {
	Register(storage.TypeFilesystem, func(cfg Config) (storage.Backend, error) {
		return NewFilesystem(cfg)
	})
}

// Filesystem stores objects as plain files.
//
// Layout under the data directory:
//
//	buckets/
//	  <bucket>/
//	    .bucket.json          # creation metadata
//	    objects/<key>         # object bytes, keys map to nested dirs
//	    metadata/<key>.json   # per-object metadata sidecar
//	    multipart/<uploadId>/part-<n>
//
// Writes stage into a temp file in the destination directory and
// publish with an atomic rename, so readers never observe a partial
// object and the last completed write wins.
type Filesystem struct {
	dataDir       string
	maxBuckets    int
	maxObjectSize int64

	// Serializes bucket create/delete against each other.
	bucketMu sync.Mutex

	uploads *uploadTable
}

type bucketMeta struct {
	CreatedAt time.Time `json:"created_at"`
}

type objectMeta struct {
	ETag         string            `json:"etag"`
	Size         int64             `json:"size"`
	ContentType  string            `json:"content_type,omitempty"`
	LastModified time.Time         `json:"last_modified"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// NewFilesystem creates a filesystem backend rooted at cfg.DataDir.
func NewFilesystem(cfg Config) (*Filesystem, error) {
	f := &Filesystem{
		dataDir:       cfg.DataDir,
		maxBuckets:    cfg.MaxBuckets,
		maxObjectSize: cfg.MaxObjectSize,
		uploads:       newUploadTable(),
	}
	if err := os.MkdirAll(f.bucketsRoot(), 0755); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Filesystem) Type() storage.StorageType { return storage.TypeFilesystem }

func (f *Filesystem) Close() error { return nil }

func (f *Filesystem) bucketsRoot() string {
	return filepath.Join(f.dataDir, "buckets")
}

func (f *Filesystem) bucketDir(bucket string) string {
	return filepath.Join(f.bucketsRoot(), bucket)
}

func (f *Filesystem) objectPath(bucket, key string) string {
	return filepath.Join(f.bucketDir(bucket), "objects", filepath.FromSlash(key))
}

func (f *Filesystem) metaPath(bucket, key string) string {
	return filepath.Join(f.bucketDir(bucket), "metadata", filepath.FromSlash(key)+".json")
}

func (f *Filesystem) uploadDir(bucket, uploadID string) string {
	return filepath.Join(f.bucketDir(bucket), "multipart", uploadID)
}

func (f *Filesystem) partPath(bucket, uploadID string, partNumber int) string {
	return filepath.Join(f.uploadDir(bucket, uploadID), "part-"+strconv.Itoa(partNumber))
}

func (f *Filesystem) bucketExists(bucket string) bool {
	info, err := os.Stat(f.bucketDir(bucket))
	return err == nil && info.IsDir()
}

// ===== Buckets =====

func (f *Filesystem) CreateBucket(ctx context.Context, bucket string) error {
	f.bucketMu.Lock()
	defer f.bucketMu.Unlock()

	entries, err := os.ReadDir(f.bucketsRoot())
	if err != nil {
		return err
	}
	if f.maxBuckets > 0 && len(entries) >= f.maxBuckets {
		return storage.ErrTooManyBuckets
	}

	dir := f.bucketDir(bucket)
	if err := os.Mkdir(dir, 0755); err != nil {
		if os.IsExist(err) {
			return storage.ErrBucketExists
		}
		return err
	}

	for _, sub := range []string{"objects", "metadata", "multipart"} {
		if err := os.Mkdir(filepath.Join(dir, sub), 0755); err != nil {
			return err
		}
	}

	return writeJSONFile(filepath.Join(dir, ".bucket.json"), bucketMeta{CreatedAt: time.Now().UTC()})
}

func (f *Filesystem) DeleteBucket(ctx context.Context, bucket string) error {
	f.bucketMu.Lock()
	defer f.bucketMu.Unlock()

	if !f.bucketExists(bucket) {
		return storage.ErrBucketNotFound
	}

	empty, err := dirHasNoFiles(filepath.Join(f.bucketDir(bucket), "objects"))
	if err != nil {
		return err
	}
	if !empty || f.uploads.hasUploads(bucket) {
		return storage.ErrBucketNotEmpty
	}

	return os.RemoveAll(f.bucketDir(bucket))
}

func (f *Filesystem) ListBuckets(ctx context.Context) ([]storage.BucketInfo, error) {
	entries, err := os.ReadDir(f.bucketsRoot())
	if err != nil {
		return nil, err
	}

	buckets := make([]storage.BucketInfo, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		info, err := f.GetBucketInfo(ctx, entry.Name())
		if err != nil {
			continue
		}
		buckets = append(buckets, info)
	}

	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Name < buckets[j].Name })
	return buckets, nil
}

func (f *Filesystem) GetBucketInfo(ctx context.Context, bucket string) (storage.BucketInfo, error) {
	if !f.bucketExists(bucket) {
		return storage.BucketInfo{}, storage.ErrBucketNotFound
	}

	info := storage.BucketInfo{Name: bucket}
	var meta bucketMeta
	if err := readJSONFile(filepath.Join(f.bucketDir(bucket), ".bucket.json"), &meta); err == nil {
		info.CreatedAt = meta.CreatedAt
	} else if st, err := os.Stat(f.bucketDir(bucket)); err == nil {
		info.CreatedAt = st.ModTime().UTC()
	}
	return info, nil
}

// ===== Objects =====

func (f *Filesystem) PutObject(ctx context.Context, bucket, key string, body io.Reader, opts storage.PutOptions) (storage.ObjectInfo, error) {
	if !f.bucketExists(bucket) {
		return storage.ObjectInfo{}, storage.ErrBucketNotFound
	}
	return f.putStream(bucket, key, body, opts.ContentType, opts.Metadata, "")
}

// putStream stages the body into a temp file, then publishes metadata
// and data via rename. When etagOverride is set (multipart assembly)
// it is stored instead of the streamed MD5.
func (f *Filesystem) putStream(bucket, key string, body io.Reader, contentType string, metadata map[string]string, etagOverride string) (storage.ObjectInfo, error) {
	objPath := f.objectPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(objPath), 0755); err != nil {
		return storage.ObjectInfo{}, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(objPath), ".upload-*")
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	h := utils.Md5PoolGetHasher()
	defer utils.Md5PoolPutHasher(h)

	limit := f.maxObjectSize
	written, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(body, limit+1))
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	if written > limit {
		return storage.ObjectInfo{}, storage.ErrEntityTooLarge
	}
	if err := tmp.Sync(); err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := tmp.Close(); err != nil {
		return storage.ObjectInfo{}, err
	}

	etag := storage.FormatETag(h.Sum(nil))
	if etagOverride != "" {
		etag = etagOverride
	}

	info := storage.ObjectInfo{
		Key:          key,
		Size:         written,
		ETag:         etag,
		ContentType:  contentType,
		LastModified: time.Now().UTC(),
		Metadata:     metadata,
	}

	metaPath := f.metaPath(bucket, key)
	if err := os.MkdirAll(filepath.Dir(metaPath), 0755); err != nil {
		return storage.ObjectInfo{}, err
	}
	if err := writeJSONFile(metaPath, objectMeta{
		ETag:         info.ETag,
		Size:         info.Size,
		ContentType:  info.ContentType,
		LastModified: info.LastModified,
		Metadata:     info.Metadata,
	}); err != nil {
		return storage.ObjectInfo{}, err
	}

	// Publish point: the object becomes visible here.
	if err := os.Rename(tmp.Name(), objPath); err != nil {
		return storage.ObjectInfo{}, err
	}
	return info, nil
}

func (f *Filesystem) readObjectInfo(bucket, key string) (storage.ObjectInfo, error) {
	st, err := os.Stat(f.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			if !f.bucketExists(bucket) {
				return storage.ObjectInfo{}, storage.ErrBucketNotFound
			}
			return storage.ObjectInfo{}, storage.ErrObjectNotFound
		}
		return storage.ObjectInfo{}, err
	}
	if st.IsDir() {
		return storage.ObjectInfo{}, storage.ErrObjectNotFound
	}

	info := storage.ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		LastModified: st.ModTime().UTC(),
	}

	var meta objectMeta
	if err := readJSONFile(f.metaPath(bucket, key), &meta); err == nil {
		info.ETag = meta.ETag
		info.ContentType = meta.ContentType
		info.Metadata = meta.Metadata
		if !meta.LastModified.IsZero() {
			info.LastModified = meta.LastModified
		}
	}
	return info, nil
}

func (f *Filesystem) GetObject(ctx context.Context, bucket, key string, rng *storage.Range) (*storage.GetResult, error) {
	info, err := f.readObjectInfo(bucket, key)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(f.objectPath(bucket, key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrObjectNotFound
		}
		return nil, err
	}

	result := &storage.GetResult{Info: info, Body: file}
	if rng != nil {
		offset, length, err := rng.Resolve(info.Size)
		if err != nil {
			file.Close()
			return nil, err
		}
		if _, err := file.Seek(offset, io.SeekStart); err != nil {
			file.Close()
			return nil, err
		}
		result.Body = &limitedReadCloser{Reader: io.LimitReader(file, length), closer: file}
		result.Range = &storage.ResolvedRange{Start: offset, End: offset + length - 1, Total: info.Size}
	}
	return result, nil
}

func (f *Filesystem) HeadObject(ctx context.Context, bucket, key string) (storage.ObjectInfo, error) {
	return f.readObjectInfo(bucket, key)
}

func (f *Filesystem) DeleteObject(ctx context.Context, bucket, key string) error {
	if !f.bucketExists(bucket) {
		return storage.ErrBucketNotFound
	}

	objPath := f.objectPath(bucket, key)
	if err := os.Remove(objPath); err != nil && !os.IsNotExist(err) {
		return err
	}
	if err := os.Remove(f.metaPath(bucket, key)); err != nil && !os.IsNotExist(err) {
		return err
	}

	f.pruneEmptyDirs(filepath.Dir(objPath), filepath.Join(f.bucketDir(bucket), "objects"))
	f.pruneEmptyDirs(filepath.Dir(f.metaPath(bucket, key)), filepath.Join(f.bucketDir(bucket), "metadata"))
	return nil
}

// pruneEmptyDirs removes empty directories left behind by nested keys,
// walking up to (but not including) stop.
func (f *Filesystem) pruneEmptyDirs(dir, stop string) {
	for dir != stop && strings.HasPrefix(dir, stop) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (f *Filesystem) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (storage.ObjectInfo, error) {
	if !f.bucketExists(dstBucket) {
		return storage.ObjectInfo{}, storage.ErrBucketNotFound
	}

	src, err := f.GetObject(ctx, srcBucket, srcKey, nil)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer src.Body.Close()

	return f.putStream(dstBucket, dstKey, src.Body, src.Info.ContentType, src.Info.Metadata, src.Info.ETag)
}

func (f *Filesystem) ListObjects(ctx context.Context, bucket string, opts storage.ListOptions) (storage.ListResult, error) {
	if !f.bucketExists(bucket) {
		return storage.ListResult{}, storage.ErrBucketNotFound
	}

	root := filepath.Join(f.bucketDir(bucket), "objects")
	var keys []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		// Skip in-flight staging files.
		if strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return storage.ListResult{}, err
	}
	sort.Strings(keys)

	pageKeys, prefixes, truncated, next := storage.ListPage(keys, opts)

	result := storage.ListResult{
		CommonPrefixes: prefixes,
		IsTruncated:    truncated,
		NextStartAfter: next,
	}
	for _, key := range pageKeys {
		info, err := f.readObjectInfo(bucket, key)
		if err != nil {
			// Deleted between walk and stat.
			continue
		}
		result.Objects = append(result.Objects, info)
	}
	return result, nil
}

// ===== Multipart =====

func (f *Filesystem) CreateMultipartUpload(ctx context.Context, bucket, key string, opts storage.PutOptions) (string, error) {
	if !f.bucketExists(bucket) {
		return "", storage.ErrBucketNotFound
	}

	uploadID := f.uploads.create(bucket, key, opts)
	if err := os.MkdirAll(f.uploadDir(bucket, uploadID), 0755); err != nil {
		return "", err
	}
	return uploadID, nil
}

func (f *Filesystem) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int, body io.Reader) (storage.Part, error) {
	if !validPartNumber(partNumber) {
		return storage.Part{}, storage.ErrInvalidPartNumber
	}

	s, err := f.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return storage.Part{}, err
	}
	defer s.mu.Unlock()

	partPath := f.partPath(bucket, uploadID, partNumber)
	tmp, err := os.CreateTemp(filepath.Dir(partPath), ".part-*")
	if err != nil {
		return storage.Part{}, err
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	h := utils.Md5PoolGetHasher()
	defer utils.Md5PoolPutHasher(h)

	written, err := io.Copy(io.MultiWriter(tmp, h), io.LimitReader(body, f.maxObjectSize+1))
	if err != nil {
		return storage.Part{}, err
	}
	if written > f.maxObjectSize {
		return storage.Part{}, storage.ErrEntityTooLarge
	}
	if err := tmp.Close(); err != nil {
		return storage.Part{}, err
	}
	if err := os.Rename(tmp.Name(), partPath); err != nil {
		return storage.Part{}, err
	}

	part := storage.Part{
		PartNumber:   partNumber,
		Size:         written,
		ETag:         storage.FormatETag(h.Sum(nil)),
		LastModified: time.Now().UTC(),
	}
	s.parts[partNumber] = part
	return part, nil
}

func (f *Filesystem) ListParts(ctx context.Context, bucket, key, uploadID string) ([]storage.Part, error) {
	s, err := f.uploads.acquire(bucket, key, uploadID)
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

func (f *Filesystem) ListMultipartUploads(ctx context.Context, bucket string) ([]storage.MultipartUploadInfo, error) {
	if !f.bucketExists(bucket) {
		return nil, storage.ErrBucketNotFound
	}
	return f.uploads.list(bucket), nil
}

func (f *Filesystem) CompleteMultipartUpload(ctx context.Context, bucket, key, uploadID string, manifest []storage.CompletedPart) (storage.ObjectInfo, error) {
	s, err := f.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return storage.ObjectInfo{}, err
	}
	defer s.mu.Unlock()

	sums, _, err := validateManifest(s, manifest)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	readers := make([]io.Reader, 0, len(manifest))
	files := make([]*os.File, 0, len(manifest))
	defer func() {
		for _, file := range files {
			file.Close()
		}
	}()
	for _, ref := range manifest {
		file, err := os.Open(f.partPath(bucket, uploadID, ref.PartNumber))
		if err != nil {
			return storage.ObjectInfo{}, storage.ErrInvalidPart
		}
		files = append(files, file)
		readers = append(readers, file)
	}

	etag := storage.ComposeMultipartETag(sums)
	info, err := f.putStream(bucket, key, io.MultiReader(readers...), s.contentType, s.metadata, etag)
	if err != nil {
		return storage.ObjectInfo{}, err
	}

	f.uploads.finish(uploadID, s)
	os.RemoveAll(f.uploadDir(bucket, uploadID))
	return info, nil
}

func (f *Filesystem) AbortMultipartUpload(ctx context.Context, bucket, key, uploadID string) error {
	s, err := f.uploads.acquire(bucket, key, uploadID)
	if err != nil {
		return err
	}
	defer s.mu.Unlock()

	f.uploads.finish(uploadID, s)
	return os.RemoveAll(f.uploadDir(bucket, uploadID))
}

// ===== Stats =====

func (f *Filesystem) Stats(ctx context.Context) (storage.Stats, error) {
	var stats storage.Stats

	entries, err := os.ReadDir(f.bucketsRoot())
	if err != nil {
		return stats, err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		stats.Buckets++
		root := filepath.Join(f.bucketDir(entry.Name()), "objects")
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				if os.IsNotExist(err) {
					return nil
				}
				return err
			}
			if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
				return nil
			}
			st, err := d.Info()
			if err != nil {
				return nil
			}
			stats.Objects++
			stats.Bytes += st.Size()
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// ===== Helpers =====

type limitedReadCloser struct {
	io.Reader
	closer io.Closer
}

func (l *limitedReadCloser) Close() error {
	return l.closer.Close()
}

func dirHasNoFiles(root string) (bool, error) {
	empty := true
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() && !strings.HasPrefix(d.Name(), ".upload-") {
			empty = false
			return filepath.SkipAll
		}
		return nil
	})
	return empty, err
}

func writeJSONFile(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".meta-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}
