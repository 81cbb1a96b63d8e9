package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorgate/internal/events"
	"anchorgate/internal/httpform"
	"anchorgate/internal/ratelimit"
	"anchorgate/internal/sep10"
	"anchorgate/internal/sep12"
	"anchorgate/internal/sep12/handler"
	"anchorgate/internal/sep12/service"
	"anchorgate/internal/sep12/store/memory"
	"anchorgate/internal/stellar"
)

func newTestRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		sep12.NewLocalIntegration(memory.New()),
		events.NewMemoryPublisher(),
		logger,
		nil,
	)
	h := handler.New(svc, logger, httpform.DefaultLimits())

	router := chi.NewRouter()
	h.Register(router)
	return router
}

func testAccount(t *testing.T, seed byte) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed
	}
	account, err := stellar.EncodeAccountID(key)
	require.NoError(t, err)
	return account
}

func doRequest(router *chi.Mux, token *sep10.Token, method, target, contentType string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != nil {
		req = req.WithContext(sep10.WithToken(req.Context(), token))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	return payload
}

func TestGetCustomer(t *testing.T) {
	router := newTestRouter(t)
	token := &sep10.Token{AccountID: "GABC"}

	t.Run("unknown customer needs info", func(t *testing.T) {
		rec := doRequest(router, token, http.MethodGet, "/customer", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		payload := decodeBody(t, rec)
		assert.Equal(t, "NEEDS_INFO", payload["status"])
		fields, ok := payload["fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, fields, "first_name")
	})

	t.Run("foreign account is unauthorized", func(t *testing.T) {
		rec := doRequest(router, token, http.MethodGet, "/customer?account=GOTHER", "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Contains(t, decodeBody(t, rec), "error")
	})

	t.Run("bad memo type is rejected", func(t *testing.T) {
		rec := doRequest(router, token, http.MethodGet, "/customer?memo_type=text&memo=1", "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPutCustomer(t *testing.T) {
	token := &sep10.Token{AccountID: "GABC"}

	t.Run("urlencoded body", func(t *testing.T) {
		router := newTestRouter(t)
		form := url.Values{"first_name": {"John"}, "last_name": {"Doe"}}

		rec := doRequest(router, token, http.MethodPut, "/customer",
			"application/x-www-form-urlencoded", []byte(form.Encode()))
		require.Equal(t, http.StatusOK, rec.Code)

		payload := decodeBody(t, rec)
		id, ok := payload["id"].(string)
		require.True(t, ok)
		require.NotEmpty(t, id)

		rec = doRequest(router, token, http.MethodGet, "/customer?id="+id, "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		provided, ok := decodeBody(t, rec)["provided_fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, provided, "first_name")
	})

	t.Run("json body", func(t *testing.T) {
		router := newTestRouter(t)
		body := []byte(`{"first_name": "John", "email_address": "john@example.com"}`)

		rec := doRequest(router, token, http.MethodPut, "/customer", "application/json", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, decodeBody(t, rec)["id"])
	})

	t.Run("multipart body with upload", func(t *testing.T) {
		router := newTestRouter(t)

		var buf bytes.Buffer
		writer := multipart.NewWriter(&buf)
		require.NoError(t, writer.WriteField("first_name", "John"))
		part, err := writer.CreateFormFile("photo_id_front", "front.png")
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
		require.NoError(t, writer.Close())

		rec := doRequest(router, token, http.MethodPut, "/customer",
			writer.FormDataContentType(), buf.Bytes())
		require.Equal(t, http.StatusOK, rec.Code)

		id, ok := decodeBody(t, rec)["id"].(string)
		require.True(t, ok)

		rec = doRequest(router, token, http.MethodGet, "/customer?id="+id, "", nil)
		provided, ok := decodeBody(t, rec)["provided_fields"].(map[string]any)
		require.True(t, ok)
		assert.Contains(t, provided, "photo_id_front")
	})

	t.Run("unsupported content type", func(t *testing.T) {
		router := newTestRouter(t)
		rec := doRequest(router, token, http.MethodPut, "/customer", "text/plain", []byte("hi"))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("mismatched memo is unauthorized", func(t *testing.T) {
		router := newTestRouter(t)
		memoed := &sep10.Token{AccountID: "GABC", AccountMemo: "42"}
		body := []byte(`{"memo": "7", "memo_type": "id"}`)

		rec := doRequest(router, memoed, http.MethodPut, "/customer", "application/json", body)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestPutVerification(t *testing.T) {
	router := newTestRouter(t)
	token := &sep10.Token{AccountID: "GABC"}

	t.Run("missing id is rejected", func(t *testing.T) {
		body := []byte(`{"mobile_number_verification": "2735021"}`)
		rec := doRequest(router, token, http.MethodPut, "/customer/verification", "application/json", body)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		body := []byte(`{"id": "missing", "mobile_number_verification": "2735021"}`)
		rec := doRequest(router, token, http.MethodPut, "/customer/verification", "application/json", body)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("verifies an existing customer", func(t *testing.T) {
		rec := doRequest(router, token, http.MethodPut, "/customer",
			"application/json", []byte(`{"first_name": "John"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		id := decodeBody(t, rec)["id"].(string)

		body := []byte(`{"id": "` + id + `", "mobile_number_verification": "2735021"}`)
		rec = doRequest(router, token, http.MethodPut, "/customer/verification", "application/json", body)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "ACCEPTED", decodeBody(t, rec)["status"])
	})
}

func TestPutCallback(t *testing.T) {
	router := newTestRouter(t)
	token := &sep10.Token{AccountID: "GABC"}

	t.Run("registers a callback with an empty 200", func(t *testing.T) {
		form := url.Values{"url": {"https://client.example.com/cb"}}
		rec := doRequest(router, token, http.MethodPut, "/customer/callback",
			"application/x-www-form-urlencoded", []byte(form.Encode()))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.Bytes())
	})

	t.Run("malformed url is rejected", func(t *testing.T) {
		form := url.Values{"url": {"not a url"}}
		rec := doRequest(router, token, http.MethodPut, "/customer/callback",
			"application/x-www-form-urlencoded", []byte(form.Encode()))
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWriteMiddlewaresCoverOnlyPuts(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := service.New(
		sep12.NewLocalIntegration(memory.New()),
		events.NewMemoryPublisher(),
		logger,
		nil,
	)
	h := handler.New(svc, logger, httpform.DefaultLimits())

	router := chi.NewRouter()
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)
	h.Register(router, ratelimit.Middleware(limiter, logger))

	token := &sep10.Token{AccountID: "GABC"}

	rec := doRequest(router, token, http.MethodPut, "/customer",
		"application/json", []byte(`{"first_name": "John"}`))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, token, http.MethodPut, "/customer",
		"application/json", []byte(`{"last_name": "Doe"}`))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	// Reads stay open while the account is over its write budget.
	for i := 0; i < 3; i++ {
		rec = doRequest(router, token, http.MethodGet, "/customer", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestDeleteCustomer(t *testing.T) {
	account := testAccount(t, 1)
	token := &sep10.Token{AccountID: account}

	t.Run("deletes an owned customer", func(t *testing.T) {
		router := newTestRouter(t)

		rec := doRequest(router, token, http.MethodPut, "/customer",
			"application/json", []byte(`{"first_name": "John"}`))
		require.Equal(t, http.StatusOK, rec.Code)

		rec = doRequest(router, token, http.MethodDelete, "/customer/"+account, "", nil)
		require.Equal(t, http.StatusNoContent, rec.Code)

		rec = doRequest(router, token, http.MethodDelete, "/customer/"+account, "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed account is rejected", func(t *testing.T) {
		router := newTestRouter(t)
		rec := doRequest(router, token, http.MethodDelete, "/customer/"+strings.Repeat("G", 56), "", nil)
		require.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("foreign account is unauthorized", func(t *testing.T) {
		router := newTestRouter(t)
		other := testAccount(t, 2)
		rec := doRequest(router, token, http.MethodDelete, "/customer/"+other, "", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
