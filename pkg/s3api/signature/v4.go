// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/phumiphatauk/tinystore/pkg/iam"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/utils"
)

// AWS Signature Version 4 implementation following:
// https://docs.aws.amazon.com/general/latest/gr/signature-version-4.html

// V4Verifier verifies AWS Signature Version 4 authentication
type V4Verifier struct {
	iamManager *iam.Manager
}

// NewV4Verifier creates a new signature v4 verifier
func NewV4Verifier(iamManager *iam.Manager) *V4Verifier {
	return &V4Verifier{
		iamManager: iamManager,
	}
}

// authInfo contains parsed authentication information from request
type authInfo struct {
	accessKey       string
	date            string // YYYYMMDD format from credential scope
	timestamp       string // Full ISO8601 timestamp (YYYYMMDDTHHMMSSZ)
	region          string
	service         string
	signedHeaders   []string
	signature       string
	credentialScope string
	presigned       bool
}

// VerifyRequest verifies AWS Signature V4 for a request.
// Returns the authenticated identity or an error code.
func (v *V4Verifier) VerifyRequest(r *http.Request) (*iam.Identity, s3err.ErrorCode) {
	auth, errCode := v.extractAuthInfo(r)
	if errCode != s3err.ErrNone {
		return nil, errCode
	}

	// Presigned URLs carry their own lifetime (X-Amz-Expires, enforced
	// during extraction) and stay valid past the header skew window.
	if !auth.presigned {
		if errCode := checkClockSkew(auth.timestamp); errCode != s3err.ErrNone {
			return nil, errCode
		}
	}

	identity, credential, found := v.iamManager.LookupByAccessKey(r.Context(), auth.accessKey)
	if !found {
		return nil, s3err.ErrInvalidAccessKeyID
	}

	canonicalReq := v.buildCanonicalRequest(r, auth)
	stringToSign := v.buildStringToSign(auth, canonicalReq)

	signingKey := v.deriveSigningKey(credential.SecretKey, auth.date, auth.region, auth.service)
	expectedSig := v.calculateSignature(signingKey, stringToSign)

	// Constant time to prevent timing attacks.
	if !constantTimeCompare(auth.signature, expectedSig) {
		return nil, s3err.ErrSignatureDoesNotMatch
	}

	return identity, s3err.ErrNone
}

// checkClockSkew rejects requests whose signed timestamp drifts more
// than 15 minutes from server time in either direction.
func checkClockSkew(timestamp string) s3err.ErrorCode {
	t, err := time.Parse(Iso8601BasicFormat, timestamp)
	if err != nil {
		return s3err.ErrAuthorizationHeaderMalformed
	}

	drift := time.Since(t)
	if drift < 0 {
		drift = -drift
	}
	if drift > MaxClockSkew*time.Second {
		return s3err.ErrRequestTimeTooSkewed
	}
	return s3err.ErrNone
}

// extractAuthInfo parses authentication info from the Authorization
// header or, for presigned URLs, from query parameters.
func (v *V4Verifier) extractAuthInfo(r *http.Request) (*authInfo, s3err.ErrorCode) {
	if r.URL.Query().Get("X-Amz-Credential") != "" {
		return v.extractPresignedAuthInfo(r)
	}

	// Parse Authorization header: "AWS4-HMAC-SHA256 Credential=..., SignedHeaders=..., Signature=..."
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, AuthHeaderV4) {
		return nil, s3err.ErrAccessDenied
	}

	parts := strings.Split(strings.TrimPrefix(authHeader, AuthHeaderV4+" "), ", ")
	auth := &authInfo{}

	for _, part := range parts {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			continue
		}

		switch kv[0] {
		case "Credential":
			// Format: accessKey/date/region/service/aws4_request
			credParts := strings.Split(kv[1], "/")
			if len(credParts) != 5 {
				return nil, s3err.ErrAuthorizationHeaderMalformed
			}
			auth.accessKey = credParts[0]
			auth.date = credParts[1]
			auth.region = credParts[2]
			auth.service = credParts[3]
			auth.credentialScope = strings.Join(credParts[1:], "/")

		case "SignedHeaders":
			auth.signedHeaders = strings.Split(kv[1], ";")

		case "Signature":
			auth.signature = kv[1]
		}
	}

	if auth.accessKey == "" || auth.signature == "" {
		return nil, s3err.ErrMissingFields
	}

	// Timestamp comes from X-Amz-Date, falling back to the Date header.
	auth.timestamp = r.Header.Get("X-Amz-Date")
	if auth.timestamp == "" {
		if dateHeader := r.Header.Get("Date"); dateHeader != "" {
			if t, err := time.Parse(time.RFC1123, dateHeader); err == nil {
				auth.timestamp = t.UTC().Format(Iso8601BasicFormat)
			}
		}
	}
	if auth.timestamp == "" {
		return nil, s3err.ErrMissingFields
	}

	return auth, s3err.ErrNone
}

// extractPresignedAuthInfo parses presigned URL query parameters
func (v *V4Verifier) extractPresignedAuthInfo(r *http.Request) (*authInfo, s3err.ErrorCode) {
	q := r.URL.Query()

	// Parse credential: accessKey/date/region/service/aws4_request
	credParts := strings.Split(q.Get("X-Amz-Credential"), "/")
	if len(credParts) != 5 {
		return nil, s3err.ErrAuthorizationHeaderMalformed
	}

	timestamp := q.Get("X-Amz-Date")
	if timestamp == "" {
		return nil, s3err.ErrMissingFields
	}

	auth := &authInfo{
		accessKey:       credParts[0],
		date:            credParts[1],
		timestamp:       timestamp,
		region:          credParts[2],
		service:         credParts[3],
		credentialScope: strings.Join(credParts[1:], "/"),
		signedHeaders:   strings.Split(q.Get("X-Amz-SignedHeaders"), ";"),
		signature:       q.Get("X-Amz-Signature"),
		presigned:       true,
	}

	if auth.signature == "" {
		return nil, s3err.ErrMissingFields
	}

	// Enforce expiration (X-Amz-Expires is in seconds).
	if expiresStr := q.Get("X-Amz-Expires"); expiresStr != "" {
		signTime, err := time.Parse(Iso8601BasicFormat, timestamp)
		if err != nil {
			return nil, s3err.ErrAuthorizationHeaderMalformed
		}
		expires, err := strconv.ParseInt(expiresStr, 10, 64)
		if err != nil || expires < 0 {
			return nil, s3err.ErrAuthorizationHeaderMalformed
		}
		if time.Since(signTime) > time.Duration(expires)*time.Second {
			return nil, s3err.ErrExpiredPresignedRequest
		}
	}

	return auth, s3err.ErrNone
}

// buildCanonicalRequest creates the canonical request string per AWS spec
func (v *V4Verifier) buildCanonicalRequest(r *http.Request, auth *authInfo) string {
	// Canonical URI must be URL-encoded. Go's HTTP server decodes
	// req.URL.Path, so prefer req.URL.RawPath (the original encoded
	// path) and re-encode per segment otherwise.
	canonicalURI := r.URL.RawPath
	if canonicalURI == "" {
		path := r.URL.Path
		if path == "" {
			path = "/"
		}
		canonicalURI = encodeCanonicalURI(path)
	}

	canonicalQuery := v.buildCanonicalQueryString(r.URL.Query())
	canonicalHeaders, sortedSignedHeaders := v.buildCanonicalHeaders(r, auth.signedHeaders)
	signedHeadersStr := strings.Join(sortedSignedHeaders, ";")

	// Presigned URLs cannot hash the payload ahead of time; SDKs sign
	// them with the UNSIGNED-PAYLOAD sentinel instead.
	hashedPayload := r.Header.Get("X-Amz-Content-Sha256")
	if hashedPayload == "" {
		if auth.presigned {
			hashedPayload = UnsignedPayload
		} else {
			hashedPayload = HashedEmptyPayload
		}
	}

	// HTTPMethod + "\n" + CanonicalURI + "\n" + CanonicalQueryString +
	// "\n" + CanonicalHeaders + "\n" + SignedHeaders + "\n" + HashedPayload
	return strings.Join([]string{
		r.Method,
		canonicalURI,
		canonicalQuery,
		canonicalHeaders,
		signedHeadersStr,
		hashedPayload,
	}, "\n")
}

// buildCanonicalQueryString creates sorted canonical query string
func (v *V4Verifier) buildCanonicalQueryString(query url.Values) string {
	// For presigned URLs, exclude the signature itself.
	filtered := url.Values{}
	for k, vals := range query {
		if k == "X-Amz-Signature" {
			continue
		}
		filtered[k] = vals
	}

	keys := make([]string, 0, len(filtered))
	for k := range filtered {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var parts []string
	for _, k := range keys {
		vals := filtered[k]
		sort.Strings(vals)
		for _, v := range vals {
			parts = append(parts, fmt.Sprintf("%s=%s", url.QueryEscape(k), url.QueryEscape(v)))
		}
	}

	return strings.Join(parts, "&")
}

// buildCanonicalHeaders creates the sorted canonical headers string and
// returns the sorted header names for the signed headers list.
func (v *V4Verifier) buildCanonicalHeaders(r *http.Request, signedHeaders []string) (string, []string) {
	headers := make(map[string][]string)

	for _, h := range signedHeaders {
		h = strings.ToLower(strings.TrimSpace(h))

		// Host lives in r.Host, not r.Header.
		if h == "host" {
			if r.Host != "" {
				headers[h] = []string{r.Host}
			}
			continue
		}

		// Content-Length is promoted to r.ContentLength by Go's HTTP
		// server and may be absent from r.Header.
		if h == "content-length" {
			if vals := r.Header.Values(h); len(vals) > 0 {
				headers[h] = vals
			} else if r.ContentLength >= 0 {
				headers[h] = []string{strconv.FormatInt(r.ContentLength, 10)}
			}
			continue
		}

		if vals := r.Header.Values(h); len(vals) > 0 {
			headers[h] = vals
		}
	}

	names := make([]string, 0, len(headers))
	for name := range headers {
		names = append(names, name)
	}
	sort.Strings(names)

	var parts []string
	for _, name := range names {
		vals := headers[name]
		trimmed := make([]string, len(vals))
		for i, v := range vals {
			trimmed[i] = strings.TrimSpace(v)
		}
		parts = append(parts, fmt.Sprintf("%s:%s", name, strings.Join(trimmed, ",")))
	}

	return strings.Join(parts, "\n") + "\n", names
}

// buildStringToSign creates the string to sign per AWS spec
func (v *V4Verifier) buildStringToSign(auth *authInfo, canonicalRequest string) string {
	h := utils.Sha256PoolGetHasher()
	h.Write([]byte(canonicalRequest))
	hashedRequest := hex.EncodeToString(h.Sum(nil))
	utils.Sha256PoolPutHasher(h)

	// Algorithm + "\n" + RequestDateTime + "\n" + CredentialScope +
	// "\n" + HashedCanonicalRequest
	return strings.Join([]string{
		AuthHeaderV4,
		auth.timestamp,
		auth.credentialScope,
		hashedRequest,
	}, "\n")
}

// deriveSigningKey derives the signing key using the HMAC-SHA256 chain:
// kDate = HMAC("AWS4"+secret, date), kRegion = HMAC(kDate, region),
// kService = HMAC(kRegion, service), kSigning = HMAC(kService, "aws4_request").
func (v *V4Verifier) deriveSigningKey(secretKey, date, region, service string) []byte {
	kDate := hmacSHA256([]byte("AWS4"+secretKey), []byte(date))
	kRegion := hmacSHA256(kDate, []byte(region))
	kService := hmacSHA256(kRegion, []byte(service))
	return hmacSHA256(kService, []byte("aws4_request"))
}

// calculateSignature computes the final signature
func (v *V4Verifier) calculateSignature(signingKey []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(signingKey, []byte(stringToSign)))
}

func hmacSHA256(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func constantTimeCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
