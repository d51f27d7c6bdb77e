package filter

import (
	"strings"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3action"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
	"github.com/phumiphatauk/tinystore/pkg/s3api/utils"
)

type ValidationFilter struct{}

func NewValidationFilter() *ValidationFilter {
	return &ValidationFilter{}
}

func (f *ValidationFilter) Type() string {
	return "validation"
}

func (f *ValidationFilter) Run(d *data.Data) (Response, error) {
	if d.Ctx.Err() != nil {
		return nil, d.Ctx.Err()
	}

	if d.S3Info.Action.Resource() == s3action.ResourceService {
		return Next{}, nil
	}

	if utils.ValidateBucketName(d.S3Info.Bucket) != nil {
		return End{}, s3err.ErrInvalidBucketName
	}

	// The parsed path must agree with what the matched action targets.
	// Unmatched requests pass through and fail at handler dispatch.
	if d.S3Info.Action != s3action.Unknown {
		if d.S3Info.Action.IsObjectAction() && d.S3Info.Key == "" {
			return End{}, s3err.ErrInvalidArgument
		}
		if d.S3Info.Action.IsBucketAction() && d.S3Info.Key != "" {
			return End{}, s3err.ErrInvalidArgument
		}
	}

	if d.S3Info.Key != "" {
		if len(d.S3Info.Key) > s3consts.MaxObjectKeyLength {
			return End{}, s3err.ErrKeyTooLong
		}
		if strings.HasPrefix(d.S3Info.Key, "/") || hasTraversal(d.S3Info.Key) {
			return End{}, s3err.ErrInvalidArgument
		}
	}

	return Next{}, nil
}

func hasTraversal(key string) bool {
	for _, segment := range strings.Split(key, "/") {
		if segment == ".." {
			return true
		}
	}
	return false
}
