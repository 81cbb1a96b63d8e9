package httpform

import (
	"bytes"
	"encoding/json"
	"mime"
	"net/url"
	"strconv"
	"strings"

	"anchorgate/pkg/seperror"
)

// ParseBody inspects the Content-Type header and normalizes the raw body
// into a ParsedBody. Supported types are urlencoded, multipart/form-data,
// and JSON; anything else is rejected with InvalidRequestData.
func ParseBody(contentType string, body []byte, limits Limits) (ParsedBody, error) {
	// An empty body is an empty parameter map no matter what the header says.
	if len(bytes.TrimSpace(body)) == 0 {
		return PlainParams{}, nil
	}

	mediaType := contentType
	var typeParams map[string]string
	if contentType != "" {
		if mt, params, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
			typeParams = params
		}
	}

	switch {
	case mediaType == "application/x-www-form-urlencoded":
		values, err := url.ParseQuery(string(body))
		if err != nil {
			return nil, seperror.InvalidRequestData("could not parse urlencoded body: %v", err)
		}
		params := make(PlainParams, len(values))
		for key, vals := range values {
			if len(vals) > 0 {
				params[key] = vals[0]
			}
		}
		return params, nil

	case strings.HasPrefix(mediaType, "multipart/form-data"):
		result, err := ParseMultipart(typeParams["boundary"], body, limits)
		if err != nil {
			return nil, seperror.InvalidRequestData("Could not parse multipart/form-data : %v", err)
		}
		return result, nil

	case mediaType == "application/json":
		return parseJSONBody(body)

	default:
		return nil, seperror.InvalidRequestData("Invalid request type %s", contentType)
	}
}

// parseJSONBody keeps the reference policy: unparseable JSON and a JSON null
// both normalize to an empty map, while a valid scalar top-level value is
// rejected. Arrays are keyed by element index.
func parseJSONBody(body []byte) (ParsedBody, error) {
	var parsed any
	if err := json.Unmarshal(body, &parsed); err != nil {
		return PlainParams{}, nil
	}
	switch value := parsed.(type) {
	case nil:
		return PlainParams{}, nil
	case map[string]any:
		return PlainParams(value), nil
	case []any:
		params := make(PlainParams, len(value))
		for i, item := range value {
			params[strconv.Itoa(i)] = item
		}
		return params, nil
	default:
		return nil, seperror.InvalidRequestData("Invalid json request data")
	}
}
