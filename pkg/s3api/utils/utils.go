package utils

import (
	"errors"
	"net"
	"strings"

	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
)

// ValidateBucketName enforces the S3 bucket naming rules.
func ValidateBucketName(bucketName string) error {
	if strings.TrimSpace(bucketName) == "" {
		return errors.New("bucket name cannot be empty")
	}
	if len(bucketName) < 3 || len(bucketName) > 63 {
		return errors.New("bucket name length must be between 3 and 63 characters")
	}
	if net.ParseIP(bucketName) != nil {
		return errors.New("bucket name cannot be formatted as an IP address")
	}
	if strings.Contains(bucketName, "..") {
		return errors.New("bucket name contains invalid characters")
	}
	if bucketName[0] == '.' || bucketName[len(bucketName)-1] == '.' {
		return errors.New("bucket name cannot start or end with a period")
	}
	if bucketName[0] == '-' || bucketName[len(bucketName)-1] == '-' {
		return errors.New("bucket name cannot start or end with a hyphen")
	}
	if strings.HasPrefix(bucketName, "xn--") {
		return errors.New("bucket name cannot start with 'xn--'")
	}
	if strings.HasSuffix(bucketName, "-s3alias") {
		return errors.New("bucket name cannot end with '-s3alias'")
	}
	if strings.HasPrefix(bucketName, "sthree-") {
		return errors.New("bucket name cannot start with 'sthree-'")
	}
	for _, char := range bucketName {
		if (char >= 'a' && char <= 'z') || (char >= '0' && char <= '9') || char == '-' || char == '.' {
			continue
		}
		return errors.New("bucket name contains invalid characters")
	}
	return nil
}

// ValidateObjectKey enforces object key rules: non-empty, at most 1024
// bytes, and no path traversal segments.
func ValidateObjectKey(key string) error {
	if key == "" {
		return errors.New("object key cannot be empty")
	}
	if len(key) > s3consts.MaxObjectKeyLength {
		return errors.New("object key exceeds maximum length")
	}
	if strings.HasPrefix(key, "/") {
		return errors.New("object key cannot start with a slash")
	}
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return errors.New("object key cannot contain path traversal segments")
		}
	}
	return nil
}
