// Package handler exposes the SEP-12 customer endpoints over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"anchorgate/internal/httpform"
	"anchorgate/internal/sep10"
	"anchorgate/internal/sep12/models"
	"anchorgate/pkg/seperror"
)

// Service defines the customer operations the handler dispatches to.
type Service interface {
	GetCustomer(ctx context.Context, token *sep10.Token, params httpform.PlainParams) (*models.GetCustomerResponse, error)
	PutCustomer(ctx context.Context, token *sep10.Token, params httpform.PlainParams, files map[string]*httpform.UploadedFile) (*models.PutCustomerResponse, error)
	PutVerification(ctx context.Context, token *sep10.Token, params httpform.PlainParams) (*models.GetCustomerResponse, error)
	PutCallback(ctx context.Context, token *sep10.Token, params httpform.PlainParams) error
	DeleteCustomer(ctx context.Context, token *sep10.Token, account string) error
}

// Handler serves the SEP-12 customer endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
	limits  httpform.Limits
}

// New creates a customer Handler.
func New(service Service, logger *slog.Logger, limits httpform.Limits) *Handler {
	return &Handler{service: service, logger: logger, limits: limits}
}

// Register mounts the customer routes. Callers wrap the router with the
// SEP-10 auth middleware; every route here expects a token in context.
// writeMiddlewares wrap only the PUT routes, which carry request bodies and
// are the ones worth throttling.
func (h *Handler) Register(r chi.Router, writeMiddlewares ...func(http.Handler) http.Handler) {
	r.Get("/customer", h.handleGetCustomer)
	r.Delete("/customer/{account}", h.handleDeleteCustomer)
	r.Group(func(pr chi.Router) {
		pr.Use(writeMiddlewares...)
		pr.Put("/customer", h.handlePutCustomer)
		pr.Put("/customer/verification", h.handlePutVerification)
		pr.Put("/customer/callback", h.handlePutCallback)
	})
}

func (h *Handler) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sep10.TokenFromContext(ctx)

	params := make(httpform.PlainParams)
	for key, values := range r.URL.Query() {
		if len(values) > 0 {
			params[key] = values[0]
		}
	}

	resp, err := h.service.GetCustomer(ctx, token, params)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) handlePutCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sep10.TokenFromContext(ctx)

	params, files, err := h.parseBody(r)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}

	resp, err := h.service.PutCustomer(ctx, token, params, files)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) handlePutVerification(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sep10.TokenFromContext(ctx)

	params, _, err := h.parseBody(r)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}

	resp, err := h.service.PutVerification(ctx, token, params)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}
	h.writeJSON(ctx, w, http.StatusOK, resp)
}

func (h *Handler) handlePutCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sep10.TokenFromContext(ctx)

	params, _, err := h.parseBody(r)
	if err != nil {
		h.writeError(ctx, w, r, err)
		return
	}

	if err := h.service.PutCallback(ctx, token, params); err != nil {
		h.writeError(ctx, w, r, err)
		return
	}
	// SEP-12 callback success is 200 with an empty body.
	w.WriteHeader(http.StatusOK)
}

func (h *Handler) handleDeleteCustomer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	token := sep10.TokenFromContext(ctx)
	account := chi.URLParam(r, "account")

	if err := h.service.DeleteCustomer(ctx, token, account); err != nil {
		h.writeError(ctx, w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// parseBody normalizes the request body into a parameter map and, for
// multipart bodies, the uploaded files.
func (h *Handler) parseBody(r *http.Request) (httpform.PlainParams, map[string]*httpform.UploadedFile, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, nil, seperror.InvalidRequestData("could not read request body")
	}

	parsed, err := httpform.ParseBody(r.Header.Get("Content-Type"), body, h.limits)
	if err != nil {
		return nil, nil, err
	}

	switch result := parsed.(type) {
	case httpform.PlainParams:
		return result, nil, nil
	case *httpform.MultipartResult:
		return result.Params(), result.Files, nil
	default:
		return nil, nil, seperror.Internal(fmt.Errorf("unhandled parsed body type %T", parsed))
	}
}

func (h *Handler) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error) {
	sepErr, ok := seperror.As(err)
	if !ok || sepErr.Code == seperror.CodeInternal {
		h.logger.ErrorContext(ctx, "customer operation failed",
			"request_id", middleware.GetReqID(ctx),
			"path", r.URL.Path,
			"error", err,
		)
	} else {
		h.logger.WarnContext(ctx, "customer request rejected",
			"request_id", middleware.GetReqID(ctx),
			"path", r.URL.Path,
			"code", sepErr.Code,
			"error", err,
		)
	}
	seperror.WriteError(w, err)
}
