// Package models defines the typed SEP-12 request and response shapes and
// the field validation that turns normalized parameter maps into them.
package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/asaskevich/govalidator"

	"anchorgate/internal/httpform"
	"anchorgate/internal/sep10"
	"anchorgate/pkg/seperror"
)

// reservedKeys are the top-level SEP-12 parameters. Everything else on a PUT
// is a SEP-9 KYC field.
var reservedKeys = map[string]bool{
	"id":        true,
	"account":   true,
	"memo":      true,
	"memo_type": true,
	"type":      true,
}

// GetCustomerRequest is a validated GET /customer request.
type GetCustomerRequest struct {
	ID      string
	Account string
	Memo    *int64
	Type    string
	Lang    string
}

// PutCustomerRequest is a validated PUT /customer request. KYCFields holds
// every non-reserved parameter; Files holds the parsed multipart uploads.
type PutCustomerRequest struct {
	ID        string
	Account   string
	Memo      *int64
	Type      string
	KYCFields map[string]any
	Files     map[string]*httpform.UploadedFile
}

// PutCustomerCallbackRequest is a validated PUT /customer/callback request.
// An empty URL clears the callback.
type PutCustomerCallbackRequest struct {
	ID      string
	Account string
	Memo    *int64
	URL     string
}

// PutCustomerVerificationRequest is a validated PUT /customer/verification
// request. Identity comes from the token, never from the body.
type PutCustomerVerificationRequest struct {
	ID     string
	Fields map[string]string
}

// NewGetCustomerRequest validates the base fields plus lang and applies
// token account defaulting.
func NewGetCustomerRequest(params map[string]any, token *sep10.Token) (*GetCustomerRequest, error) {
	base, err := extractBase(params)
	if err != nil {
		return nil, err
	}
	lang, err := stringParam(params, "lang")
	if err != nil {
		return nil, err
	}
	account, err := resolveAccount(base.account, token)
	if err != nil {
		return nil, err
	}
	return &GetCustomerRequest{
		ID:      base.id,
		Account: account,
		Memo:    base.memo,
		Type:    base.typ,
		Lang:    lang,
	}, nil
}

// NewPutCustomerRequest validates the base fields, applies account
// defaulting, and packs every non-reserved parameter into KYCFields.
func NewPutCustomerRequest(params map[string]any, files map[string]*httpform.UploadedFile, token *sep10.Token) (*PutCustomerRequest, error) {
	base, err := extractBase(params)
	if err != nil {
		return nil, err
	}
	account, err := resolveAccount(base.account, token)
	if err != nil {
		return nil, err
	}

	kycFields := make(map[string]any)
	for key, value := range params {
		if !reservedKeys[key] {
			kycFields[key] = value
		}
	}

	return &PutCustomerRequest{
		ID:        base.id,
		Account:   account,
		Memo:      base.memo,
		Type:      base.typ,
		KYCFields: kycFields,
		Files:     files,
	}, nil
}

// NewPutCustomerCallbackRequest validates the base fields plus the callback
// url, which must be a well-formed absolute URL when present.
func NewPutCustomerCallbackRequest(params map[string]any, token *sep10.Token) (*PutCustomerCallbackRequest, error) {
	base, err := extractBase(params)
	if err != nil {
		return nil, err
	}
	account, err := resolveAccount(base.account, token)
	if err != nil {
		return nil, err
	}
	callbackURL, err := stringParam(params, "url")
	if err != nil {
		return nil, err
	}
	if callbackURL != "" && !govalidator.IsRequestURL(callbackURL) {
		return nil, seperror.InvalidSepRequest("invalid_url", "invalid url", callbackURL)
	}
	return &PutCustomerCallbackRequest{
		ID:      base.id,
		Account: account,
		Memo:    base.memo,
		URL:     callbackURL,
	}, nil
}

// NewPutCustomerVerificationRequest requires id and accepts only keys ending
// in "_verification" with string values.
func NewPutCustomerVerificationRequest(params map[string]any) (*PutCustomerVerificationRequest, error) {
	id, err := stringParam(params, "id")
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, seperror.InvalidSepRequest("missing_id", "missing id")
	}

	fields := make(map[string]string)
	for key, value := range params {
		if key == "id" {
			continue
		}
		text, ok := value.(string)
		if !strings.HasSuffix(key, "_verification") || !ok {
			return nil, seperror.InvalidSepRequest("invalid_verification_field",
				fmt.Sprintf("%s is not a valid verification field", key), key)
		}
		fields[key] = text
	}

	return &PutCustomerVerificationRequest{ID: id, Fields: fields}, nil
}

type baseFields struct {
	id      string
	account string
	memo    *int64
	typ     string
}

// extractBase type-checks the shared top-level fields.
func extractBase(params map[string]any) (baseFields, error) {
	var base baseFields
	var err error

	if base.id, err = stringParam(params, "id"); err != nil {
		return base, err
	}
	if base.account, err = stringParam(params, "account"); err != nil {
		return base, err
	}
	if base.typ, err = stringParam(params, "type"); err != nil {
		return base, err
	}
	if err = checkMemoType(params); err != nil {
		return base, err
	}
	if base.memo, err = memoParam(params); err != nil {
		return base, err
	}
	return base, nil
}

// resolveAccount defaults a missing account to the token's muxed account id,
// then its plain account id.
func resolveAccount(account string, token *sep10.Token) (string, error) {
	if account != "" {
		return account, nil
	}
	if token != nil {
		if token.MuxedAccountID != "" {
			return token.MuxedAccountID, nil
		}
		if token.AccountID != "" {
			return token.AccountID, nil
		}
	}
	return "", seperror.InvalidSepRequest("invalid_jwt", "invalid jwt token")
}

func stringParam(params map[string]any, key string) (string, error) {
	value, ok := params[key]
	if !ok || value == nil {
		return "", nil
	}
	text, ok := value.(string)
	if !ok {
		return "", seperror.InvalidSepRequest("invalid_field",
			fmt.Sprintf("%s must be a string", key), key)
	}
	return text, nil
}

// checkMemoType accepts only the literal "id"; text and hash memos are not
// supported by this service.
func checkMemoType(params map[string]any) error {
	value, ok := params["memo_type"]
	if !ok || value == nil {
		return nil
	}
	if text, ok := value.(string); ok && text == "id" {
		return nil
	}
	return seperror.InvalidSepRequest("invalid_memo_type",
		fmt.Sprintf("memo type %q is not supported", value), value)
}

// memoParam parses the memo as a base-10 integer from any of the shapes the
// negotiator produces (string, JSON number).
func memoParam(params map[string]any) (*int64, error) {
	raw, ok := params["memo"]
	if !ok || raw == nil {
		return nil, nil
	}

	invalid := seperror.InvalidSepRequest("invalid_memo", "memo must be a whole number", raw)
	switch value := raw.(type) {
	case string:
		memo, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return nil, invalid
		}
		return &memo, nil
	case float64:
		if value != math.Trunc(value) {
			return nil, invalid
		}
		memo := int64(value)
		return &memo, nil
	case int:
		memo := int64(value)
		return &memo, nil
	case int64:
		return &value, nil
	default:
		return nil, invalid
	}
}
