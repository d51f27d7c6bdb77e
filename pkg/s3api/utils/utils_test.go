package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateBucketName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		bucket string
		valid  bool
	}{
		{"simple", "photos", true},
		{"with hyphens", "my-photos-2024", true},
		{"with dots", "backup.daily", true},
		{"digits only", "12345", true},
		{"minimum length", "abc", true},
		{"maximum length", strings.Repeat("a", 63), true},
		{"empty", "", false},
		{"too short", "ab", false},
		{"too long", strings.Repeat("a", 64), false},
		{"uppercase", "Photos", false},
		{"underscore", "my_photos", false},
		{"ip address", "192.168.1.1", false},
		{"consecutive dots", "a..b", false},
		{"leading dot", ".photos", false},
		{"trailing dot", "photos.", false},
		{"leading hyphen", "-photos", false},
		{"trailing hyphen", "photos-", false},
		{"xn prefix", "xn--photos", false},
		{"s3alias suffix", "photos-s3alias", false},
		{"sthree prefix", "sthree-photos", false},
		{"space", "my photos", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateBucketName(tt.bucket)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{"simple", "file.txt", true},
		{"nested", "photos/2024/march/pic.jpg", true},
		{"unicode", "фото/весна.jpg", true},
		{"dots in name", "archive.tar.gz", true},
		{"single dot segment", "a/./b", true},
		{"maximum length", strings.Repeat("k", 1024), true},
		{"empty", "", false},
		{"too long", strings.Repeat("k", 1025), false},
		{"leading slash", "/file.txt", false},
		{"traversal", "a/../b", false},
		{"bare traversal", "..", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := ValidateObjectKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
