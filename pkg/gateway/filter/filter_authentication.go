package filter

import (
	"sync/atomic"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/iam"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/s3api/signature"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	FilterTypeAuthentication = "AuthenticationFilter"

	// Metric label values for auth results
	authResultSuccess           = "success"
	authResultAccessDenied      = "access_denied"
	authResultInvalidAccessKey  = "invalid_access_key"
	authResultSignatureMismatch = "signature_mismatch"
	authResultUnsupportedAuth   = "unsupported_auth"
	authResultAnonymousDenied   = "anonymous_denied"
	authResultTimeSkewed        = "time_skewed"
)

type AuthenticationFilter struct {
	v4Verifier *signature.V4Verifier
	enabled    bool

	authAttempts atomic.Uint64
	authErrors   atomic.Uint64

	metricAuthTotal   *prometheus.CounterVec
	metricAuthLatency prometheus.Histogram
}

type AuthFilterOption func(*AuthenticationFilter)

// WithAuthDisabled turns signature verification off. Every request then
// runs as the built-in admin identity.
func WithAuthDisabled() AuthFilterOption {
	return func(f *AuthenticationFilter) {
		f.enabled = false
	}
}

func NewAuthenticationFilter(iamManager *iam.Manager, opts ...AuthFilterOption) *AuthenticationFilter {
	f := &AuthenticationFilter{
		v4Verifier: signature.NewV4Verifier(iamManager),
		enabled:    true,
		metricAuthTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_filter_total",
			Help: "Total authentication attempts by result",
		}, []string{"result", "auth_type"}),
		metricAuthLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "auth_filter_latency_seconds",
			Help:    "Authentication verification latency in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Metrics returns the Prometheus collectors for registration
func (f *AuthenticationFilter) Metrics() []prometheus.Collector {
	return []prometheus.Collector{f.metricAuthTotal, f.metricAuthLatency}
}

// Stats returns current auth statistics
func (f *AuthenticationFilter) Stats() (attempts, errors uint64) {
	return f.authAttempts.Load(), f.authErrors.Load()
}

func (f *AuthenticationFilter) recordResult(result, authType string) {
	f.authAttempts.Add(1)
	if result != authResultSuccess {
		f.authErrors.Add(1)
	}
	f.metricAuthTotal.WithLabelValues(result, authType).Inc()
}

func (f *AuthenticationFilter) errorToResult(errCode s3err.ErrorCode) string {
	switch errCode {
	case s3err.ErrAccessDenied, s3err.ErrExpiredPresignedRequest:
		return authResultAccessDenied
	case s3err.ErrInvalidAccessKeyID:
		return authResultInvalidAccessKey
	case s3err.ErrSignatureDoesNotMatch:
		return authResultSignatureMismatch
	case s3err.ErrRequestTimeTooSkewed:
		return authResultTimeSkewed
	case s3err.ErrSignatureVersionNotSupported:
		return authResultUnsupportedAuth
	default:
		return authResultAccessDenied
	}
}

func (f *AuthenticationFilter) Type() string {
	return FilterTypeAuthentication
}

func (f *AuthenticationFilter) Run(d *data.Data) (Response, error) {
	if d.Ctx.Err() != nil {
		return nil, d.Ctx.Err()
	}

	// Auth disabled: every request is the admin.
	if !f.enabled {
		d.Identity = iam.AdminIdentity()
		return Next{}, nil
	}

	authType := signature.GetAuthType(d.Req)
	authTypeStr := authType.String()

	switch authType {
	case signature.AuthTypeV4, signature.AuthTypePresignedV4:
		identity, errCode := f.v4Verifier.VerifyRequest(d.Req)
		if errCode != s3err.ErrNone {
			f.recordResult(f.errorToResult(errCode), authTypeStr)
			return nil, errCode
		}
		d.Identity = identity
		f.recordResult(authResultSuccess, authTypeStr)

	case signature.AuthTypeAnonymous:
		f.recordResult(authResultAnonymousDenied, authTypeStr)
		return nil, s3err.ErrAccessDenied

	case signature.AuthTypeStreaming:
		// aws-chunked bodies carry per-chunk signatures we do not verify.
		f.recordResult(authResultUnsupportedAuth, authTypeStr)
		return nil, s3err.ErrNotImplemented

	case signature.AuthTypeV2, signature.AuthTypePresignedV2, signature.AuthTypePostPolicy:
		f.recordResult(authResultUnsupportedAuth, authTypeStr)
		return nil, s3err.ErrSignatureVersionNotSupported

	default:
		f.recordResult(authResultAccessDenied, authTypeStr)
		return nil, s3err.ErrAccessDenied
	}

	if d.Identity != nil && len(d.Identity.Credentials) > 0 {
		d.S3Info.AccessKey = d.Identity.Credentials[0].AccessKey
	}

	return Next{}, nil
}
