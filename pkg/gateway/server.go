// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/gateway/filter"
	"github.com/phumiphatauk/tinystore/pkg/iam"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3action"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/storage"
)

// Handler serves one matched S3 operation.
type Handler func(*data.Data, http.ResponseWriter)

// Server is the S3 HTTP front end: a filter chain (request id, routing,
// validation, authentication) followed by per-action handlers over a
// storage backend.
type Server struct {
	backend  storage.Backend
	chain    *filter.Chain
	handlers map[s3action.Action]Handler
	auth     *filter.AuthenticationFilter

	region string

	metricsRequest         *prometheus.CounterVec
	metricsRequestDuration *prometheus.HistogramVec
}

// Option configures a Server.
type Option func(*Server)

// WithRegion sets the region reported by GetBucketLocation and used in
// credential scopes.
func WithRegion(region string) Option {
	return func(s *Server) {
		s.region = region
	}
}

// WithAuthDisabled turns off signature verification; every request
// runs as the built-in admin identity.
func WithAuthDisabled() Option {
	return func(s *Server) {
		s.auth = filter.NewAuthenticationFilter(nil, filter.WithAuthDisabled())
	}
}

// NewServer builds a gateway over the given backend and IAM manager.
func NewServer(backend storage.Backend, iamManager *iam.Manager, opts ...Option) *Server {
	s := &Server{
		backend: backend,
		region:  "us-east-1",
		auth:    filter.NewAuthenticationFilter(iamManager),
		metricsRequest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "s3_request_total",
			Help: "Total S3 requests by action, access class and status",
		}, []string{"action", "op", "status"}),
		metricsRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "s3_request_duration_seconds",
			Help:    "S3 request duration by action, access class and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"action", "op", "status"}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.chain = filter.NewChain()
	s.chain.AddFilter(filter.NewRequestIDFilter())
	s.chain.AddFilter(filter.NewParserFilter())
	s.chain.AddFilter(filter.NewValidationFilter())
	s.chain.AddFilter(s.auth)

	s.handlers = map[s3action.Action]Handler{
		s3action.ListBuckets:             s.handleListBuckets,
		s3action.CreateBucket:            s.handleCreateBucket,
		s3action.DeleteBucket:            s.handleDeleteBucket,
		s3action.HeadBucket:              s.handleHeadBucket,
		s3action.GetBucketLocation:       s.handleGetBucketLocation,
		s3action.ListObjects:             s.handleListObjects,
		s3action.ListObjectsV2:           s.handleListObjectsV2,
		s3action.PutObject:               s.handlePutObject,
		s3action.CopyObject:              s.handleCopyObject,
		s3action.GetObject:               s.handleGetObject,
		s3action.HeadObject:              s.handleHeadObject,
		s3action.DeleteObject:            s.handleDeleteObject,
		s3action.DeleteObjects:           s.handleDeleteObjects,
		s3action.CreateMultipartUpload:   s.handleCreateMultipartUpload,
		s3action.UploadPart:              s.handleUploadPart,
		s3action.ListParts:               s.handleListParts,
		s3action.ListMultipartUploads:    s.handleListMultipartUploads,
		s3action.CompleteMultipartUpload: s.handleCompleteMultipartUpload,
		s3action.AbortMultipartUpload:    s.handleAbortMultipartUpload,
	}

	return s
}

// Register exposes the server and filter metrics on the registerer.
func (s *Server) Register(reg prometheus.Registerer) {
	reg.MustRegister(s.metricsRequest, s.metricsRequestDuration)
	reg.MustRegister(s.auth.Metrics()...)
	s.chain.Register(reg)
}

// Backend returns the storage backend the server runs against.
func (s *Server) Backend() storage.Backend {
	return s.backend
}

// AuthStats returns the running totals of authentication attempts and
// failures.
func (s *Server) AuthStats() (attempts, errors uint64) {
	return s.auth.Stats()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Liveness endpoint, served outside the S3 surface. A bucket named
	// "health" is shadowed here, matching the original deployment shape.
	if r.URL.Path == "/health" && (r.Method == http.MethodGet || r.Method == http.MethodHead) {
		s.handleHealth(w, r)
		return
	}

	start := time.Now()
	wrappedWriter := &wrappedResponseRecorder{
		ResponseWriter: w,
		statusCode:     0,
	}

	d := data.NewData(r.Context(), r)
	d.ResponseWriter = wrappedWriter

	_, err := s.chain.Run(d)
	if d.S3Info.RequestID != "" {
		wrappedWriter.Header().Set(s3consts.XAmzRequestID, d.S3Info.RequestID)
	}
	if err != nil {
		var httpErr s3err.ErrorCode
		if errors.As(err, &httpErr) {
			writeXMLErrorResponse(wrappedWriter, d, httpErr)
		} else {
			writeXMLErrorResponse(wrappedWriter, d, s3err.ErrInternalError)
		}
		return
	}

	defer func() {
		// A client cancel is not a server error.
		if wrappedWriter.statusCode == http.StatusInternalServerError && errors.Is(r.Context().Err(), context.Canceled) {
			wrappedWriter.statusCode = 0
		}
		op := d.S3Info.Action.Operation().String()
		status := strconv.Itoa(wrappedWriter.statusCode)
		s.metricsRequest.WithLabelValues(d.S3Info.Action.String(), op, status).Inc()
		s.metricsRequestDuration.WithLabelValues(d.S3Info.Action.String(), op, status).Observe(time.Since(start).Seconds())
	}()

	handler, exists := s.handlers[d.S3Info.Action]
	if !exists {
		writeXMLErrorResponse(wrappedWriter, d, s3err.ErrNotImplemented)
		return
	}

	handler(d, wrappedWriter)
}
