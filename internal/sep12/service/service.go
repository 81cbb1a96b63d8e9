// Package service runs the SEP-12 request pipeline: normalized parameters
// are validated into typed requests, the caller's identity is reconciled
// against the token, and the result is dispatched to the integration.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"anchorgate/internal/events"
	"anchorgate/internal/httpform"
	"anchorgate/internal/sep10"
	"anchorgate/internal/sep12"
	"anchorgate/internal/sep12/metrics"
	"anchorgate/internal/sep12/models"
	"anchorgate/internal/stellar"
	"anchorgate/pkg/seperror"
)

// Service wires validation, authorization, and the integration together.
// Event publish failures are logged and swallowed: the customer operation
// already succeeded.
type Service struct {
	integration sep12.Integration
	publisher   events.Publisher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	tracer      trace.Tracer
}

// New builds a Service. metrics may be nil.
func New(integration sep12.Integration, publisher events.Publisher, logger *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		integration: integration,
		publisher:   publisher,
		logger:      logger,
		metrics:     m,
		tracer:      otel.Tracer("anchorgate/sep12"),
	}
}

// GetCustomer returns the status of the customer the token owns.
func (s *Service) GetCustomer(ctx context.Context, token *sep10.Token, params httpform.PlainParams) (resp *models.GetCustomerResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "sep12.GetCustomer")
	defer span.End()
	defer s.observe("get_customer", time.Now(), &err)

	req, err := models.NewGetCustomerRequest(params, token)
	if err != nil {
		return nil, err
	}
	req.Memo, err = authorize(token, req.Account, req.Memo)
	if err != nil {
		s.recordAuthFailure(span, err)
		return nil, err
	}
	return s.integration.GetCustomer(ctx, req)
}

// PutCustomer creates or updates the customer with the submitted KYC fields
// and uploads.
func (s *Service) PutCustomer(ctx context.Context, token *sep10.Token, params httpform.PlainParams, files map[string]*httpform.UploadedFile) (resp *models.PutCustomerResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "sep12.PutCustomer")
	defer span.End()
	defer s.observe("put_customer", time.Now(), &err)

	req, err := models.NewPutCustomerRequest(params, files, token)
	if err != nil {
		return nil, err
	}
	req.Memo, err = authorize(token, req.Account, req.Memo)
	if err != nil {
		s.recordAuthFailure(span, err)
		return nil, err
	}

	for _, file := range files {
		s.metrics.ObserveUpload(string(file.Status), file.Size)
	}

	resp, err = s.integration.PutCustomer(ctx, req)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeCustomerUpdated,
		CustomerID: resp.ID,
		Account:    req.Account,
		Memo:       req.Memo,
		OccurredAt: time.Now().UTC(),
	})
	return resp, nil
}

// PutVerification confirms previously submitted fields with the codes the
// customer received out of band. Identity comes from the token alone.
func (s *Service) PutVerification(ctx context.Context, token *sep10.Token, params httpform.PlainParams) (resp *models.GetCustomerResponse, err error) {
	ctx, span := s.tracer.Start(ctx, "sep12.PutVerification")
	defer span.End()
	defer s.observe("put_verification", time.Now(), &err)

	if token == nil {
		return nil, seperror.NotAuthorized("missing authentication token")
	}
	req, err := models.NewPutCustomerVerificationRequest(params)
	if err != nil {
		return nil, err
	}

	resp, err = s.integration.PutVerification(ctx, req)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeCustomerVerified,
		CustomerID: resp.ID,
		Account:    token.AccountID,
		OccurredAt: time.Now().UTC(),
	})
	return resp, nil
}

// PutCallback registers or clears the customer's status callback URL.
func (s *Service) PutCallback(ctx context.Context, token *sep10.Token, params httpform.PlainParams) (err error) {
	ctx, span := s.tracer.Start(ctx, "sep12.PutCallback")
	defer span.End()
	defer s.observe("put_callback", time.Now(), &err)

	req, err := models.NewPutCustomerCallbackRequest(params, token)
	if err != nil {
		return err
	}
	req.Memo, err = authorize(token, req.Account, req.Memo)
	if err != nil {
		s.recordAuthFailure(span, err)
		return err
	}

	if err := s.integration.PutCallback(ctx, req); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeCallbackChanged,
		Account:    req.Account,
		Memo:       req.Memo,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

// DeleteCustomer removes the customer addressed by the path account. The
// account must be a well-formed Stellar address owned by the token.
func (s *Service) DeleteCustomer(ctx context.Context, token *sep10.Token, account string) (err error) {
	ctx, span := s.tracer.Start(ctx, "sep12.DeleteCustomer")
	defer span.End()
	defer s.observe("delete_customer", time.Now(), &err)

	if !stellar.IsValidAccountID(account) && !stellar.IsMuxed(account) {
		return seperror.InvalidSepRequest("invalid_account", "invalid account", account)
	}
	memo, err := authorize(token, account, nil)
	if err != nil {
		s.recordAuthFailure(span, err)
		return err
	}

	id, err := s.integration.CustomerID(ctx, account, memo)
	if err != nil {
		return err
	}
	if id == "" {
		return seperror.CustomerNotFound(account)
	}
	if err := s.integration.DeleteCustomer(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, events.Event{
		Type:       events.TypeCustomerDeleted,
		CustomerID: id,
		Account:    account,
		Memo:       memo,
		OccurredAt: time.Now().UTC(),
	})
	return nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish customer event",
			"type", event.Type, "error", err)
	}
}

func (s *Service) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveRequest(operation, outcome(*err), start)
}

func (s *Service) recordAuthFailure(span trace.Span, err error) {
	span.RecordError(err)
	s.metrics.ObserveAuthFailure()
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	if sepErr, ok := seperror.As(err); ok {
		return string(sepErr.Code)
	}
	return "error"
}
