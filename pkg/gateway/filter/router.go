package filter

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/phumiphatauk/tinystore/pkg/s3api/s3action"

	"golang.org/x/text/encoding/charmap"
)

// Match represents a successful S3 operation match.
type Match struct {
	Action s3action.Action
	Bucket string
	Key    string
}

// Router parses an S3 request into the matching operation, bucket, and
// key. Requests are path-style: /{bucket} and /{bucket}/{key...}, with
// the service operations at the root path.
type Router struct {
	service rootPathRouter
	paths   pathRouter
}

// NewRouter returns a router covering the supported operation set.
func NewRouter() *Router {
	return &Router{
		service: newServiceRouter(),
		paths:   newPathRouter(),
	}
}

// MatchRequest returns the Match information and true if a request can
// be successfully parsed. Otherwise, it returns an empty Match and false.
func (r *Router) MatchRequest(req *http.Request) (Match, bool) {
	v := req.URL.Query()

	if match, ok := r.service.match(req, v); ok {
		return match, true
	}

	path := strings.TrimPrefix(req.URL.Path, "/")
	bucket, key, _ := strings.Cut(path, "/")
	if bucket == "" {
		return Match{}, false
	}

	match := Match{Bucket: bucket, Key: key}
	var ok bool
	match.Action, ok = r.paths.match(req, v, key)
	if !ok {
		return Match{}, false
	}
	if err := normalizeUTF8(&match); err != nil {
		return match, false
	}
	return match, true
}

func normalizeUTF8(m *Match) error {
	var err error
	if m.Bucket, err = getUTF8String(m.Bucket); err != nil {
		return err
	}
	m.Key, err = getUTF8String(m.Key)
	return err
}

func getUTF8String(s string) (string, error) {
	if utf8.ValidString(s) {
		return s, nil
	}
	return charmap.ISO8859_1.NewDecoder().String(s)
}

type routes []route

type route struct {
	action s3action.Action
	conds  []condition
}

func (r route) matches(req *http.Request, v url.Values) bool {
	for _, cond := range r.conds {
		if !cond(req, v) {
			return false
		}
	}
	return true
}

type condition func(*http.Request, url.Values) bool

func queryExists(key string) condition {
	return func(r *http.Request, v url.Values) bool { return v.Has(key) }
}

func queryEquals(key, value string) condition {
	return func(r *http.Request, v url.Values) bool { return v.Get(key) == value }
}

func headerExists(key string) condition {
	key = http.CanonicalHeaderKey(key)
	return func(r *http.Request, v url.Values) bool {
		_, ok := r.Header[key]
		return ok
	}
}

type pathType uint8

const (
	bucketPath pathType = 0
	keyPath    pathType = 1
)

type pathRouter struct {
	bucketPath methodRouter
	keyPath    methodRouter
}

func (rc *pathRouter) add(method string, path pathType, action s3action.Action, conds ...condition) {
	if path == bucketPath {
		rc.bucketPath.add(method, action, conds...)
	} else {
		rc.keyPath.add(method, action, conds...)
	}
}

func (rc pathRouter) match(req *http.Request, v url.Values, key string) (s3action.Action, bool) {
	if key != "" {
		return rc.keyPath.match(req, v)
	}
	return rc.bucketPath.match(req, v)
}

type rootPathRouter struct {
	mr methodRouter
}

func (r rootPathRouter) match(req *http.Request, v url.Values) (Match, bool) {
	if req.URL.Path != "/" {
		return Match{}, false
	}
	action, ok := r.mr.match(req, v)
	if !ok {
		return Match{}, false
	}
	return Match{Action: action}, true
}

type methodRouter struct {
	get    routes
	head   routes
	put    routes
	post   routes
	delete routes
}

func (r *methodRouter) add(method string, action s3action.Action, conds ...condition) {
	rte := route{action: action, conds: conds}
	switch method {
	case http.MethodGet:
		r.get = append(r.get, rte)
	case http.MethodHead:
		r.head = append(r.head, rte)
	case http.MethodPut:
		r.put = append(r.put, rte)
	case http.MethodPost:
		r.post = append(r.post, rte)
	case http.MethodDelete:
		r.delete = append(r.delete, rte)
	default:
		panic(fmt.Sprintf("adding unexpected method: %s", method))
	}
}

func (r methodRouter) match(req *http.Request, v url.Values) (s3action.Action, bool) {
	var rts routes
	switch req.Method {
	case http.MethodGet:
		rts = r.get
	case http.MethodHead:
		rts = r.head
	case http.MethodPut:
		rts = r.put
	case http.MethodPost:
		rts = r.post
	case http.MethodDelete:
		rts = r.delete
	}

	for _, rt := range rts {
		if rt.matches(req, v) {
			return rt.action, true
		}
	}
	return s3action.Unknown, false
}

// routeDef defines a single route with its conditions
type routeDef struct {
	method string
	path   pathType
	action s3action.Action
	conds  []condition
}

func newPathRouter() pathRouter {
	var pr pathRouter

	routes := []routeDef{
		// Bucket operations - conditional routes first, bare routes last
		{http.MethodGet, bucketPath, s3action.GetBucketLocation, []condition{queryExists("location")}},
		{http.MethodGet, bucketPath, s3action.ListMultipartUploads, []condition{queryExists("uploads")}},
		{http.MethodGet, bucketPath, s3action.ListObjectsV2, []condition{queryEquals("list-type", "2")}},
		{http.MethodGet, bucketPath, s3action.ListObjects, nil},
		{http.MethodPost, bucketPath, s3action.DeleteObjects, []condition{queryExists("delete")}},
		{http.MethodPut, bucketPath, s3action.CreateBucket, nil},
		{http.MethodDelete, bucketPath, s3action.DeleteBucket, nil},
		{http.MethodHead, bucketPath, s3action.HeadBucket, nil},

		// Object operations
		{http.MethodGet, keyPath, s3action.ListParts, []condition{queryExists("uploadId")}},
		{http.MethodGet, keyPath, s3action.GetObject, nil},
		{http.MethodHead, keyPath, s3action.HeadObject, nil},
		{http.MethodPut, keyPath, s3action.UploadPart, []condition{queryExists("partNumber"), queryExists("uploadId")}},
		{http.MethodPut, keyPath, s3action.CopyObject, []condition{headerExists("x-amz-copy-source")}},
		{http.MethodPut, keyPath, s3action.PutObject, nil},
		{http.MethodPost, keyPath, s3action.CreateMultipartUpload, []condition{queryExists("uploads")}},
		{http.MethodPost, keyPath, s3action.CompleteMultipartUpload, []condition{queryExists("uploadId")}},
		{http.MethodDelete, keyPath, s3action.AbortMultipartUpload, []condition{queryExists("uploadId")}},
		{http.MethodDelete, keyPath, s3action.DeleteObject, nil},
	}

	for _, rt := range routes {
		pr.add(rt.method, rt.path, rt.action, rt.conds...)
	}
	return pr
}

func newServiceRouter() rootPathRouter {
	var sr rootPathRouter
	sr.mr.add(http.MethodGet, s3action.ListBuckets)
	sr.mr.add(http.MethodHead, s3action.ListBuckets)
	return sr
}
