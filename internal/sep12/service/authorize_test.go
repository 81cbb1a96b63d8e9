package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"anchorgate/internal/sep10"
	"anchorgate/pkg/seperror"
)

func memoPtr(v int64) *int64 { return &v }

func TestAuthorize(t *testing.T) {
	muxedID := uint64(42)

	t.Run("bare token with no claims succeeds", func(t *testing.T) {
		memo, err := authorize(&sep10.Token{AccountID: "GABC"}, "", nil)
		require.NoError(t, err)
		assert.Nil(t, memo)
	})

	t.Run("account matching token account succeeds", func(t *testing.T) {
		memo, err := authorize(&sep10.Token{AccountID: "GABC"}, "GABC", nil)
		require.NoError(t, err)
		assert.Nil(t, memo)
	})

	t.Run("account matching muxed account succeeds", func(t *testing.T) {
		token := &sep10.Token{AccountID: "GABC", MuxedAccountID: "MABC", MuxedID: &muxedID}
		memo, err := authorize(token, "MABC", nil)
		require.NoError(t, err)
		require.NotNil(t, memo)
		assert.Equal(t, int64(42), *memo)
	})

	t.Run("foreign account is rejected", func(t *testing.T) {
		_, err := authorize(&sep10.Token{AccountID: "GABC", MuxedAccountID: "MABC"}, "GOTHER", nil)
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeNotAuthorized, sepErr.Code)
	})

	t.Run("memo matching muxed id succeeds", func(t *testing.T) {
		token := &sep10.Token{AccountID: "GABC", MuxedAccountID: "MABC", MuxedID: &muxedID}
		memo, err := authorize(token, "MABC", memoPtr(42))
		require.NoError(t, err)
		require.NotNil(t, memo)
		assert.Equal(t, int64(42), *memo)
	})

	t.Run("memo differing from muxed id is rejected", func(t *testing.T) {
		token := &sep10.Token{AccountID: "GABC", MuxedAccountID: "MABC", MuxedID: &muxedID}
		_, err := authorize(token, "MABC", memoPtr(7))
		require.Error(t, err)
		sepErr, ok := seperror.As(err)
		require.True(t, ok)
		assert.Equal(t, seperror.CodeNotAuthorized, sepErr.Code)
	})

	t.Run("memo differing from account memo is rejected", func(t *testing.T) {
		token := &sep10.Token{AccountID: "GABC", AccountMemo: "9"}
		_, err := authorize(token, "GABC", memoPtr(7))
		require.Error(t, err)
	})

	t.Run("memoless token accepts any claimed memo", func(t *testing.T) {
		memo, err := authorize(&sep10.Token{AccountID: "GABC"}, "GABC", memoPtr(7))
		require.NoError(t, err)
		// Claimed memos are cross-checked only; nothing is forwarded.
		assert.Nil(t, memo)
	})

	t.Run("muxed id wins over account memo", func(t *testing.T) {
		token := &sep10.Token{
			AccountID:      "GABC",
			MuxedAccountID: "MABC",
			MuxedID:        &muxedID,
			AccountMemo:    "9",
		}
		memo, err := authorize(token, "GABC", nil)
		require.NoError(t, err)
		require.NotNil(t, memo)
		assert.Equal(t, int64(42), *memo)
	})

	t.Run("malformed token memo errors", func(t *testing.T) {
		_, err := authorize(&sep10.Token{AccountID: "GABC", AccountMemo: "abc"}, "GABC", nil)
		require.Error(t, err)
	})

	t.Run("nil token is rejected", func(t *testing.T) {
		_, err := authorize(nil, "GABC", nil)
		require.Error(t, err)
	})
}
