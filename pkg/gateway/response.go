// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package gateway

import (
	"bytes"
	"encoding/xml"
	"errors"
	"net/http"

	"github.com/phumiphatauk/tinystore/pkg/gateway/data"
	"github.com/phumiphatauk/tinystore/pkg/logger"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3consts"
	"github.com/phumiphatauk/tinystore/pkg/s3api/s3err"
)

type wrappedResponseRecorder struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int64
	wroteHeader  bool
}

func (w *wrappedResponseRecorder) WriteHeader(code int) {
	if !w.wroteHeader {
		w.statusCode = code
		w.wroteHeader = true
		w.ResponseWriter.WriteHeader(code)
	}
}

func (w *wrappedResponseRecorder) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytesWritten += int64(n)
	return n, err
}

// writeXMLResponse writes a 200 XML response body.
func writeXMLResponse(w http.ResponseWriter, d *data.Data, v any) {
	w.Header().Set("Content-Type", "application/xml")
	w.Header().Set(s3consts.XAmzRequestID, d.S3Info.RequestID)
	w.WriteHeader(http.StatusOK)
	xml.NewEncoder(w).Encode(v)
}

func writeXMLErrorResponse(w http.ResponseWriter, d *data.Data, s3code s3err.ErrorCode) {
	w.Header().Set("Content-Type", "application/xml")
	var bytesBuffer bytes.Buffer
	e := xml.NewEncoder(&bytesBuffer)

	s3error := s3code.ToErrorResponse(d.S3Info.Resource())
	if d.S3Info.RequestID != "" {
		s3error.RequestID = d.S3Info.RequestID
	} else {
		s3error.RequestID = "NotAvailable"
	}

	e.Encode(s3error)

	w.WriteHeader(s3error.HTTPCode)
	if len(bytesBuffer.Bytes()) > 0 {
		w.Write(bytesBuffer.Bytes())
	}
}

// toS3Code maps a storage or chain error to its S3 error code.
func toS3Code(err error) s3err.ErrorCode {
	type objectError interface {
		ToS3Error() s3err.ErrorCode
	}

	var objErr objectError
	if errors.As(err, &objErr) {
		return objErr.ToS3Error()
	}

	var s3code s3err.ErrorCode
	if errors.As(err, &s3code) {
		return s3code
	}
	return s3err.ErrInternalError
}

// handleError converts storage layer errors to HTTP responses. HEAD
// requests get a bare status, everything else the XML envelope.
func (s *Server) handleError(w http.ResponseWriter, d *data.Data, err error) {
	if err == nil {
		return
	}

	errCode := toS3Code(err)
	if errCode == s3err.ErrInternalError {
		logger.Ctx(d.Ctx).Error().Err(err).Str("action", d.S3Info.Action.String()).Msg("storage layer error")
	}

	if d.Req.Method == http.MethodHead {
		w.WriteHeader(errCode.HTTPStatusCode())
		return
	}
	writeXMLErrorResponse(w, d, errCode)
}
