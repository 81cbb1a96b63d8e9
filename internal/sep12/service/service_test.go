package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorgate/internal/events"
	"anchorgate/internal/httpform"
	"anchorgate/internal/sep10"
	"anchorgate/internal/sep12/models"
	"anchorgate/internal/stellar"
	"anchorgate/pkg/seperror"
)

// fakeIntegration records the requests the service dispatches.
type fakeIntegration struct {
	gotGet          *models.GetCustomerRequest
	gotPut          *models.PutCustomerRequest
	gotVerification *models.PutCustomerVerificationRequest
	gotCallback     *models.PutCustomerCallbackRequest
	gotDeleteID     string

	customerID string
	err        error
}

func (f *fakeIntegration) GetCustomer(_ context.Context, req *models.GetCustomerRequest) (*models.GetCustomerResponse, error) {
	f.gotGet = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.GetCustomerResponse{ID: "c1", Status: models.StatusNeedsInfo}, nil
}

func (f *fakeIntegration) PutCustomer(_ context.Context, req *models.PutCustomerRequest) (*models.PutCustomerResponse, error) {
	f.gotPut = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.PutCustomerResponse{ID: "c1"}, nil
}

func (f *fakeIntegration) PutVerification(_ context.Context, req *models.PutCustomerVerificationRequest) (*models.GetCustomerResponse, error) {
	f.gotVerification = req
	if f.err != nil {
		return nil, f.err
	}
	return &models.GetCustomerResponse{ID: req.ID, Status: models.StatusAccepted}, nil
}

func (f *fakeIntegration) PutCallback(_ context.Context, req *models.PutCustomerCallbackRequest) error {
	f.gotCallback = req
	return f.err
}

func (f *fakeIntegration) CustomerID(context.Context, string, *int64) (string, error) {
	return f.customerID, f.err
}

func (f *fakeIntegration) DeleteCustomer(_ context.Context, id string) error {
	f.gotDeleteID = id
	return f.err
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

func testMuxedAccount(t *testing.T, seed byte, id uint64) string {
	t.Helper()
	key := make([]byte, 32)
	for i := range key {
		key[i] = seed
	}
	muxed, err := stellar.EncodeMuxed(key, id)
	require.NoError(t, err)
	return muxed
}

func newTestService(integration *fakeIntegration) (*Service, *events.MemoryPublisher) {
	publisher := events.NewMemoryPublisher()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(integration, publisher, logger, nil), publisher
}

func TestGetCustomer(t *testing.T) {
	t.Run("forwards token memo, not the claimed one", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)
		token := &sep10.Token{AccountID: "GABC", AccountMemo: "42"}

		resp, err := svc.GetCustomer(context.Background(), token,
			httpform.PlainParams{"memo": "42"})
		require.NoError(t, err)
		assert.Equal(t, "c1", resp.ID)

		require.NotNil(t, integration.gotGet)
		assert.Equal(t, "GABC", integration.gotGet.Account)
		require.NotNil(t, integration.gotGet.Memo)
		assert.Equal(t, int64(42), *integration.gotGet.Memo)
	})

	t.Run("claimed memo never reaches the integration on memoless token", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)

		_, err := svc.GetCustomer(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{"memo": "7"})
		require.NoError(t, err)
		assert.Nil(t, integration.gotGet.Memo)
	})

	t.Run("foreign account is unauthorized", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)

		_, err := svc.GetCustomer(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{"account": "GOTHER"})
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeNotAuthorized, sepErr.Code)
		assert.Nil(t, integration.gotGet)
	})

	t.Run("validation error stops before dispatch", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)

		_, err := svc.GetCustomer(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{"memo_type": "text"})
		require.Error(t, err)
		assert.Nil(t, integration.gotGet)
	})
}

func TestPutCustomer(t *testing.T) {
	t.Run("dispatches and publishes an event", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, publisher := newTestService(integration)
		token := &sep10.Token{AccountID: "GABC"}

		resp, err := svc.PutCustomer(context.Background(), token,
			httpform.PlainParams{"first_name": "John"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "c1", resp.ID)

		require.NotNil(t, integration.gotPut)
		assert.Equal(t, "John", integration.gotPut.KYCFields["first_name"])

		published := publisher.Events()
		require.Len(t, published, 1)
		assert.Equal(t, events.TypeCustomerUpdated, published[0].Type)
		assert.Equal(t, "c1", published[0].CustomerID)
	})

	t.Run("no event on integration failure", func(t *testing.T) {
		integration := &fakeIntegration{err: errors.New("backend down")}
		svc, publisher := newTestService(integration)

		_, err := svc.PutCustomer(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{}, nil)
		require.Error(t, err)
		assert.Empty(t, publisher.Events())
	})

	t.Run("muxed token memo is forwarded", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)
		muxedID := uint64(42)
		token := &sep10.Token{AccountID: "GABC", MuxedAccountID: "MABC", MuxedID: &muxedID}

		_, err := svc.PutCustomer(context.Background(), token, httpform.PlainParams{}, nil)
		require.NoError(t, err)

		require.NotNil(t, integration.gotPut.Memo)
		assert.Equal(t, int64(42), *integration.gotPut.Memo)
		assert.Equal(t, "MABC", integration.gotPut.Account)
	})
}

func TestPutVerification(t *testing.T) {
	t.Run("dispatches and publishes", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, publisher := newTestService(integration)

		resp, err := svc.PutVerification(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{"id": "c1", "mobile_number_verification": "2735021"})
		require.NoError(t, err)
		assert.Equal(t, "c1", resp.ID)
		assert.Equal(t, "2735021", integration.gotVerification.Fields["mobile_number_verification"])

		published := publisher.Events()
		require.Len(t, published, 1)
		assert.Equal(t, events.TypeCustomerVerified, published[0].Type)
	})

	t.Run("missing id is rejected before dispatch", func(t *testing.T) {
		integration := &fakeIntegration{}
		svc, _ := newTestService(integration)

		_, err := svc.PutVerification(context.Background(), &sep10.Token{AccountID: "GABC"},
			httpform.PlainParams{"mobile_number_verification": "2735021"})
		require.Error(t, err)
		assert.Nil(t, integration.gotVerification)
	})
}

func TestPutCallback(t *testing.T) {
	integration := &fakeIntegration{}
	svc, publisher := newTestService(integration)

	err := svc.PutCallback(context.Background(), &sep10.Token{AccountID: "GABC"},
		httpform.PlainParams{"url": "https://client.example.com/callback"})
	require.NoError(t, err)

	require.NotNil(t, integration.gotCallback)
	assert.Equal(t, "https://client.example.com/callback", integration.gotCallback.URL)

	published := publisher.Events()
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeCallbackChanged, published[0].Type)
}

func TestDeleteCustomer(t *testing.T) {
	t.Run("deletes the resolved customer", func(t *testing.T) {
		account := testAccount(t, 1)
		integration := &fakeIntegration{customerID: "c1"}
		svc, publisher := newTestService(integration)

		err := svc.DeleteCustomer(context.Background(), &sep10.Token{AccountID: account}, account)
		require.NoError(t, err)
		assert.Equal(t, "c1", integration.gotDeleteID)

		published := publisher.Events()
		require.Len(t, published, 1)
		assert.Equal(t, events.TypeCustomerDeleted, published[0].Type)
	})

	t.Run("malformed path account is an invalid request", func(t *testing.T) {
		svc, _ := newTestService(&fakeIntegration{})

		err := svc.DeleteCustomer(context.Background(), &sep10.Token{AccountID: "GABC"}, "not-an-account")
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeInvalidSepRequest, sepErr.Code)
	})

	t.Run("foreign account is unauthorized", func(t *testing.T) {
		mine := testAccount(t, 1)
		theirs := testAccount(t, 2)
		integration := &fakeIntegration{customerID: "c1"}
		svc, _ := newTestService(integration)

		err := svc.DeleteCustomer(context.Background(), &sep10.Token{AccountID: mine}, theirs)
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeNotAuthorized, sepErr.Code)
		assert.Empty(t, integration.gotDeleteID)
	})

	t.Run("unknown customer is not found", func(t *testing.T) {
		account := testAccount(t, 1)
		svc, _ := newTestService(&fakeIntegration{customerID: ""})

		err := svc.DeleteCustomer(context.Background(), &sep10.Token{AccountID: account}, account)
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeCustomerNotFound, sepErr.Code)
	})

	t.Run("muxed path account resolves by muxed id", func(t *testing.T) {
		muxed := testMuxedAccount(t, 1, 42)
		muxedID := uint64(42)
		account := testAccount(t, 1)
		integration := &fakeIntegration{customerID: "c1"}
		svc, _ := newTestService(integration)

		token := &sep10.Token{AccountID: account, MuxedAccountID: muxed, MuxedID: &muxedID}
		err := svc.DeleteCustomer(context.Background(), token, muxed)
		require.NoError(t, err)
		assert.Equal(t, "c1", integration.gotDeleteID)
	})
}
