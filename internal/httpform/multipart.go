package httpform

import (
	"strings"

	"anchorgate/pkg/seperror"
)

// knownUploadFields lists the SEP-9 binary field names. A part with one of
// these names is promoted to a file upload when its content sniffs as an
// image, even without a filename attribute.
var knownUploadFields = map[string]bool{
	"photo_id_front":              true,
	"photo_id_back":               true,
	"notary_approval_of_photo_id": true,
	"photo_proof_residence":       true,
	"proof_of_income":             true,
	"proof_of_liveness":           true,
	"photo_incorporation_doc":     true,
	"photo_proof_address":         true,
}

// partHeader is one parsed MIME part header: the bare value plus its
// semicolon-separated attributes, all names lower-cased.
type partHeader struct {
	Value string
	Attrs map[string]string
}

// ParseMultipart parses a raw multipart/form-data body into fields and
// uploaded files. The grammar is parsed by hand: the stdlib multipart reader
// rejects several malformed-but-recoverable bodies that SEP clients send in
// the wild, and the per-part file policy below does not fit its API.
func ParseMultipart(boundary string, body []byte, limits Limits) (*MultipartResult, error) {
	if len(body) == 0 {
		return nil, seperror.InvalidRequestData("empty request body")
	}
	if boundary == "" {
		return nil, seperror.InvalidRequestData("missing multipart boundary")
	}

	segments := strings.Split(string(body), "--"+boundary)
	if len(segments) < 2 {
		return nil, seperror.InvalidRequestData("request body contains no multipart parts")
	}

	result := &MultipartResult{
		BodyParams: make(map[string]string),
		Files:      make(map[string]*UploadedFile),
	}

	sawPart := false
	// segments[0] is the preamble before the first boundary; skip it.
	for _, segment := range segments[1:] {
		if strings.HasPrefix(segment, "--") {
			// Closing boundary marker; everything after it is epilogue.
			break
		}
		segment = trimLeadingNewline(segment)
		if strings.TrimSpace(segment) == "" {
			continue
		}
		sawPart = true

		headerBlock, value := splitPart(segment)
		headers := parsePartHeaders(headerBlock)

		disposition, ok := headers["content-disposition"]
		if !ok {
			continue
		}
		name := disposition.Attrs["name"]
		if name == "" {
			// Parts we cannot address by name are skipped, not an error.
			continue
		}

		path := decodeFieldPath(name)
		content := []byte(value)
		sniffedExt, sniffed := sniffImage(content)

		filename := disposition.Attrs["filename"]
		isFile := filename != ""
		if !isFile && pathAllowsUpload(path) && sniffed {
			// Unlabeled upload on a known binary field: synthesize the file
			// identity from the field name and the sniffed image type.
			isFile = true
			filename = name + "." + sniffedExt
		}

		if !isFile {
			trimmed := strings.TrimSpace(value)
			// The reference behavior stores the value under every decoded
			// path segment, not only the full path. Kept for wire
			// compatibility with existing clients.
			for _, segmentName := range path {
				result.BodyParams[segmentName] = trimmed
			}
			continue
		}

		if len(result.Files) >= limits.MaxFileCount {
			// Files beyond the cap are dropped silently.
			continue
		}

		mediaType := "application/octet-stream"
		if ct, ok := headers["content-type"]; ok && ct.Value != "" {
			mediaType = ct.Value
		} else if sniffed {
			mediaType = "image/" + sniffedExt
		}

		file := &UploadedFile{
			FieldName:   strings.Join(path, "."),
			Filename:    filename,
			ContentType: mediaType,
			Size:        int64(len(content)),
			Status:      UploadOK,
			Content:     content,
		}
		if limits.MaxFileSize > 0 && file.Size > limits.MaxFileSize {
			file.Status = UploadTooLarge
			file.Content = nil
		}
		result.Files[file.FieldName] = file
	}

	if !sawPart {
		return nil, seperror.InvalidRequestData("request body contains no multipart parts")
	}
	return result, nil
}

func trimLeadingNewline(s string) string {
	s = strings.TrimPrefix(s, "\r\n")
	return strings.TrimPrefix(s, "\n")
}

// splitPart separates a part into its header block and value at the first
// blank line. A part without a blank line has no value.
func splitPart(part string) (headers, value string) {
	if idx := strings.Index(part, "\r\n\r\n"); idx >= 0 {
		headers, value = part[:idx], part[idx+4:]
	} else if idx := strings.Index(part, "\n\n"); idx >= 0 {
		headers, value = part[:idx], part[idx+2:]
	} else {
		return part, ""
	}
	value = strings.TrimSuffix(value, "\n")
	value = strings.TrimSuffix(value, "\r")
	return headers, value
}

// parsePartHeaders parses "Name: value[; attr=val]*" lines. Header and
// attribute names are lower-cased; attribute values lose surrounding quotes.
func parsePartHeaders(block string) map[string]partHeader {
	headers := make(map[string]partHeader)
	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, rest, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		header := partHeader{Attrs: make(map[string]string)}
		pieces := strings.Split(rest, ";")
		header.Value = strings.TrimSpace(pieces[0])
		for _, piece := range pieces[1:] {
			attrName, attrValue, ok := strings.Cut(piece, "=")
			if !ok {
				continue
			}
			attrValue = strings.TrimSpace(attrValue)
			attrValue = strings.Trim(attrValue, `"`)
			header.Attrs[strings.ToLower(strings.TrimSpace(attrName))] = attrValue
		}
		headers[strings.ToLower(strings.TrimSpace(name))] = header
	}
	return headers
}

// decodeFieldPath splits the bracket-array field naming convention into path
// segments: "field[sub][sub2]" becomes ["field", "sub", "sub2"]. A name
// without brackets is a single segment.
func decodeFieldPath(name string) []string {
	root, rest, ok := strings.Cut(name, "[")
	if !ok {
		return []string{name}
	}
	path := []string{root}
	for _, segment := range strings.Split(rest, "[") {
		segment = strings.TrimSuffix(strings.TrimSpace(segment), "]")
		if segment != "" {
			path = append(path, segment)
		}
	}
	return path
}

// pathAllowsUpload reports whether any decoded segment names a known SEP-9
// binary field. Dotted names such as "organization.photo_proof_address" match
// on their final component.
func pathAllowsUpload(path []string) bool {
	for _, segment := range path {
		if idx := strings.LastIndex(segment, "."); idx >= 0 {
			segment = segment[idx+1:]
		}
		if knownUploadFields[segment] {
			return true
		}
	}
	return false
}
