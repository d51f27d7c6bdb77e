package signature

import (
	"net/url"
	"strings"
)

// encodeCanonicalURI encodes a path for the AWS signature canonical URI.
// Each path segment is URL-encoded separately, preserving slashes as
// path separators. This matches how AWS SDKs encode paths for signature
// calculation.
func encodeCanonicalURI(path string) string {
	if path == "" || path == "/" {
		return "/"
	}

	path = strings.TrimPrefix(path, "/")

	segments := strings.Split(path, "/")
	encoded := make([]string, len(segments))
	for i, segment := range segments {
		encoded[i] = url.PathEscape(segment)
	}

	return "/" + strings.Join(encoded, "/")
}
