package sep12

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"anchorgate/internal/httpform"
	"anchorgate/internal/sep12/models"
	"anchorgate/pkg/seperror"
)

// requiredFields are the SEP-9 fields the reference integration demands
// before accepting an individual customer.
var requiredFields = map[string]models.Field{
	"first_name":    {Type: "string", Description: "Legal first name of the customer"},
	"last_name":     {Type: "string", Description: "Legal last name of the customer"},
	"email_address": {Type: "string", Description: "Email address of the customer"},
}

// LocalIntegration is the store-backed reference Integration. It implements
// a minimal but complete KYC flow so the server runs stand-alone; hosting
// anchors swap it out for their own backend.
type LocalIntegration struct {
	store CustomerStore
}

// NewLocalIntegration builds the reference integration on top of a store.
func NewLocalIntegration(store CustomerStore) *LocalIntegration {
	return &LocalIntegration{store: store}
}

// GetCustomer returns the customer's current status. An unknown (account,
// memo, type) triple is not an error: the response lists the fields the
// anchor needs to onboard the customer.
func (i *LocalIntegration) GetCustomer(ctx context.Context, req *models.GetCustomerRequest) (*models.GetCustomerResponse, error) {
	customer, err := i.resolveOwned(ctx, req.ID, req.Account, req.Memo, req.Type)
	if err != nil {
		return nil, err
	}
	if customer == nil {
		return &models.GetCustomerResponse{
			Status: models.StatusNeedsInfo,
			Fields: missingFields(nil),
		}, nil
	}
	return customerResponse(customer), nil
}

// PutCustomer creates or updates the addressed customer with the submitted
// KYC fields and uploads.
func (i *LocalIntegration) PutCustomer(ctx context.Context, req *models.PutCustomerRequest) (*models.PutCustomerResponse, error) {
	customer, err := i.resolveOwned(ctx, req.ID, req.Account, req.Memo, req.Type)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if customer == nil {
		customer = &Customer{
			ID:        uuid.NewString(),
			Account:   req.Account,
			Memo:      req.Memo,
			Type:      req.Type,
			Fields:    make(map[string]string),
			CreatedAt: now,
		}
	}
	if customer.Fields == nil {
		customer.Fields = make(map[string]string)
	}

	for key, value := range req.KYCFields {
		customer.Fields[key] = fmt.Sprint(value)
	}
	for _, file := range req.Files {
		if file.Status != httpform.UploadOK {
			continue
		}
		customer.Fields[file.FieldName] = file.Filename
	}

	customer.Status = models.StatusNeedsInfo
	if len(missingFields(customer)) == 0 {
		customer.Status = models.StatusAccepted
	}
	customer.UpdatedAt = now

	if err := i.store.Upsert(ctx, customer); err != nil {
		return nil, seperror.Internal(err)
	}
	return &models.PutCustomerResponse{ID: customer.ID}, nil
}

// PutVerification confirms previously submitted fields. The reference
// implementation accepts any code and marks the customer accepted.
func (i *LocalIntegration) PutVerification(ctx context.Context, req *models.PutCustomerVerificationRequest) (*models.GetCustomerResponse, error) {
	customer, err := i.store.Get(ctx, req.ID)
	if err != nil {
		return nil, seperror.Internal(err)
	}
	if customer == nil {
		return nil, seperror.CustomerNotFound(req.ID)
	}
	if customer.Fields == nil {
		customer.Fields = make(map[string]string)
	}
	for key, code := range req.Fields {
		customer.Fields[key] = code
	}
	customer.Status = models.StatusAccepted
	customer.UpdatedAt = time.Now().UTC()

	if err := i.store.Upsert(ctx, customer); err != nil {
		return nil, seperror.Internal(err)
	}
	return customerResponse(customer), nil
}

// PutCallback registers (or clears) the status callback URL for the
// addressed customer, creating a pending record when none exists yet.
func (i *LocalIntegration) PutCallback(ctx context.Context, req *models.PutCustomerCallbackRequest) error {
	customer, err := i.resolveOwned(ctx, req.ID, req.Account, req.Memo, "")
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if customer == nil {
		customer = &Customer{
			ID:        uuid.NewString(),
			Account:   req.Account,
			Memo:      req.Memo,
			Status:    models.StatusNeedsInfo,
			Fields:    make(map[string]string),
			CreatedAt: now,
		}
	}
	customer.CallbackURL = req.URL
	customer.UpdatedAt = now

	if err := i.store.Upsert(ctx, customer); err != nil {
		return seperror.Internal(err)
	}
	return nil
}

// CustomerID resolves the id owned by (account, memo).
func (i *LocalIntegration) CustomerID(ctx context.Context, account string, memo *int64) (string, error) {
	customer, err := i.store.FindByAccount(ctx, account, memo)
	if err != nil {
		return "", seperror.Internal(err)
	}
	if customer == nil {
		return "", nil
	}
	return customer.ID, nil
}

// DeleteCustomer removes a customer record by id.
func (i *LocalIntegration) DeleteCustomer(ctx context.Context, id string) error {
	if err := i.store.Delete(ctx, id); err != nil {
		return seperror.Internal(err)
	}
	return nil
}

// resolveOwned loads the addressed customer. An explicit id must exist and
// must belong to (account, memo); without an id the (account, memo, type)
// triple may match nothing, which returns (nil, nil).
func (i *LocalIntegration) resolveOwned(ctx context.Context, id, account string, memo *int64, customerType string) (*Customer, error) {
	if id != "" {
		customer, err := i.store.Get(ctx, id)
		if err != nil {
			return nil, seperror.Internal(err)
		}
		if customer == nil {
			return nil, seperror.CustomerNotFound(id)
		}
		if customer.Account != account || !MemoEqual(customer.Memo, memo) {
			// Foreign ids look identical to missing ones.
			return nil, seperror.CustomerNotFound(id)
		}
		return customer, nil
	}
	customer, err := i.store.Lookup(ctx, account, memo, customerType)
	if err != nil {
		return nil, seperror.Internal(err)
	}
	return customer, nil
}

func customerResponse(customer *Customer) *models.GetCustomerResponse {
	fieldStatus := models.FieldStatusProcessing
	if customer.Status == models.StatusAccepted {
		fieldStatus = models.FieldStatusAccepted
	}

	provided := make(map[string]models.ProvidedField, len(customer.Fields))
	for key := range customer.Fields {
		provided[key] = models.ProvidedField{Type: "string", Status: fieldStatus}
	}

	resp := &models.GetCustomerResponse{
		ID:     customer.ID,
		Status: customer.Status,
	}
	if len(provided) > 0 {
		resp.ProvidedFields = provided
	}
	if missing := missingFields(customer); len(missing) > 0 && customer.Status == models.StatusNeedsInfo {
		resp.Fields = missing
	}
	return resp
}

func missingFields(customer *Customer) map[string]models.Field {
	missing := make(map[string]models.Field, len(requiredFields))
	for name, field := range requiredFields {
		if customer == nil || customer.Fields[name] == "" {
			missing[name] = field
		}
	}
	return missing
}
