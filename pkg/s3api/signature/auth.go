package signature

import (
	"mime"
	"net/http"
	"strings"

	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
)

const (
	AuthHeaderV4 = "AWS4-HMAC-SHA256"
	AuthHeaderV2 = "AWS"

	Iso8601BasicFormat = "20060102T150405Z"
	Iso8601DateFormat  = "20060102"

	UnsignedPayload = "UNSIGNED-PAYLOAD"

	// Precomputed SHA256 hash of an empty payload
	HashedEmptyPayload = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
)

// MaxClockSkew is the accepted drift between the signed timestamp and
// server time.
const MaxClockSkew = 15 * 60 // seconds

type AuthType int

const (
	AuthTypeNone AuthType = iota
	AuthTypeAnonymous
	AuthTypeV2
	AuthTypeV4
	AuthTypePresignedV2
	AuthTypePresignedV4
	AuthTypePostPolicy
	AuthTypeStreaming
)

func (a AuthType) String() string {
	switch a {
	case AuthTypeNone:
		return "none"
	case AuthTypeAnonymous:
		return "anonymous"
	case AuthTypeV2:
		return "v2"
	case AuthTypeV4:
		return "v4"
	case AuthTypePresignedV2:
		return "presigned_v2"
	case AuthTypePresignedV4:
		return "presigned_v4"
	case AuthTypePostPolicy:
		return "post_policy"
	case AuthTypeStreaming:
		return "streaming"
	default:
		return "unknown"
	}
}

func isRequestStreaming(r *http.Request) bool {
	sha := r.Header.Get(s3consts.XAmzContentSHA256)
	return strings.HasPrefix(sha, "STREAMING-") && r.Method == http.MethodPut
}

func isRequestAnonymous(r *http.Request) bool {
	return r.Header.Get("Authorization") == ""
}

func isRequestSignatureV4(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), AuthHeaderV4+" ")
}

func isRequestSignatureV2(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Authorization"), AuthHeaderV2+" ")
}

func isRequestPresignedV4(r *http.Request) bool {
	query := r.URL.Query()
	_, hasAlgorithm := query[s3consts.XAmzAlgorithm]
	_, hasCredential := query[s3consts.XAmzCredential]
	_, hasSignature := query[s3consts.XAmzSignature]
	return hasAlgorithm && hasCredential && hasSignature
}

func isRequestPresignedV2(r *http.Request) bool {
	query := r.URL.Query()
	_, hasAccessKeyID := query["AWSAccessKeyId"]
	_, hasSignature := query["Signature"]
	return hasAccessKeyID && hasSignature
}

func isRequestPostPolicy(r *http.Request) bool {
	if r.Method != http.MethodPost {
		return false
	}

	contentType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}

	return contentType == "multipart/form-data"
}

// GetAuthType classifies how the request is authenticated.
func GetAuthType(r *http.Request) AuthType {
	switch {
	case isRequestStreaming(r):
		return AuthTypeStreaming
	case isRequestSignatureV4(r):
		return AuthTypeV4
	case isRequestSignatureV2(r):
		return AuthTypeV2
	case isRequestPresignedV4(r):
		return AuthTypePresignedV4
	case isRequestPresignedV2(r):
		return AuthTypePresignedV2
	case isRequestPostPolicy(r):
		return AuthTypePostPolicy
	case isRequestAnonymous(r):
		return AuthTypeAnonymous
	}
	return AuthTypeNone
}
