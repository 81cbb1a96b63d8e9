package models

// CustomerStatus is the SEP-12 customer lifecycle status.
type CustomerStatus string

const (
	StatusNeedsInfo  CustomerStatus = "NEEDS_INFO"
	StatusAccepted   CustomerStatus = "ACCEPTED"
	StatusProcessing CustomerStatus = "PROCESSING"
	StatusRejected   CustomerStatus = "REJECTED"
)

// FieldStatus describes the verification state of a provided field.
type FieldStatus string

const (
	FieldStatusAccepted           FieldStatus = "ACCEPTED"
	FieldStatusProcessing         FieldStatus = "PROCESSING"
	FieldStatusRejected           FieldStatus = "REJECTED"
	FieldStatusVerificationNeeded FieldStatus = "VERIFICATION_REQUIRED"
)

// Field describes a SEP-9 field the anchor still needs. Absent optional
// attributes are omitted from the JSON payload.
type Field struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Choices     []string `json:"choices,omitempty"`
	Optional    bool     `json:"optional,omitempty"`
}

// ProvidedField describes a SEP-9 field the customer already submitted.
type ProvidedField struct {
	Type        string      `json:"type"`
	Description string      `json:"description,omitempty"`
	Status      FieldStatus `json:"status,omitempty"`
	Error       string      `json:"error,omitempty"`
}

// GetCustomerResponse is the GET /customer payload.
type GetCustomerResponse struct {
	ID             string                   `json:"id,omitempty"`
	Status         CustomerStatus           `json:"status"`
	Message        string                   `json:"message,omitempty"`
	Fields         map[string]Field         `json:"fields,omitempty"`
	ProvidedFields map[string]ProvidedField `json:"provided_fields,omitempty"`
}

// PutCustomerResponse is the PUT /customer payload.
type PutCustomerResponse struct {
	ID string `json:"id"`
}
