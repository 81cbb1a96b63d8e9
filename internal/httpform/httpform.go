// Package httpform normalizes SEP request bodies. It negotiates the three
// supported content types (urlencoded, multipart/form-data, JSON) into a
// uniform parameter map, and owns the multipart grammar used for KYC file
// uploads.
package httpform

import (
	"bytes"
	"io"
)

// UploadStatus records whether an uploaded file survived the per-request
// resource caps.
type UploadStatus string

const (
	UploadOK UploadStatus = "ok"
	// UploadTooLarge marks a file whose content exceeded the size cap. The
	// entry is kept so the integration can report the failure per field, but
	// its content is dropped.
	UploadTooLarge    UploadStatus = "too_large"
	UploadWriteFailed UploadStatus = "write_failed"
)

// UploadedFile describes one file extracted from a multipart body. It is
// created during parsing, handed to the customer integration, and discarded
// with the request.
type UploadedFile struct {
	// FieldName is the dot-joined decoded field path, e.g. "photo_id_front".
	FieldName   string
	Filename    string
	ContentType string
	// Size is the size of the submitted content, even when the content itself
	// was dropped for exceeding the cap.
	Size    int64
	Status  UploadStatus
	Content []byte
}

// Reader exposes the buffered content as a stream for integrations that
// consume io.Reader.
func (f *UploadedFile) Reader() io.Reader {
	return bytes.NewReader(f.Content)
}

// Limits bounds per-request memory use during multipart parsing.
type Limits struct {
	MaxFileSize  int64
	MaxFileCount int
}

// DefaultLimits returns the protocol defaults: 2 MiB per file, 6 files.
func DefaultLimits() Limits {
	return Limits{MaxFileSize: 2 << 20, MaxFileCount: 6}
}

// MultipartResult holds the outcome of parsing a multipart/form-data body:
// plain fields and uploaded files, both keyed by decoded field name.
type MultipartResult struct {
	BodyParams map[string]string
	Files      map[string]*UploadedFile
}

// Params exposes the multipart body fields in the generic parameter map
// shape shared with the other content types.
func (m *MultipartResult) Params() PlainParams {
	params := make(PlainParams, len(m.BodyParams))
	for key, value := range m.BodyParams {
		params[key] = value
	}
	return params
}

// ParsedBody is the sum of the two body normalization outcomes. Callers
// switch on the concrete type.
type ParsedBody interface {
	isParsedBody()
}

// PlainParams is a flat parameter map produced from urlencoded or JSON
// bodies.
type PlainParams map[string]any

func (PlainParams) isParsedBody()      {}
func (*MultipartResult) isParsedBody() {}
