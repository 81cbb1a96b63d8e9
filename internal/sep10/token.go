// Package sep10 consumes SEP-10 web-auth tokens. Token issuance happens
// elsewhere; this package verifies the signed JWT, extracts the caller's
// Stellar identity from its subject, and exposes it to the request pipeline.
package sep10

import (
	"strconv"
	"strings"

	"anchorgate/internal/stellar"
	"anchorgate/pkg/seperror"
)

// Token is the authenticated identity carried by a verified SEP-10 JWT.
// At most one of the muxed identity (MuxedAccountID + MuxedID) or AccountMemo
// disambiguates a sub-account; muxed identity takes precedence when both are
// present.
type Token struct {
	// AccountID is the plain G... account, also for muxed subjects.
	AccountID string
	// MuxedAccountID is the M... address when the subject was muxed.
	MuxedAccountID string
	// MuxedID is the 64-bit sub-account id encoded in a muxed subject.
	MuxedID *uint64
	// AccountMemo is the decimal memo attached at authentication time for
	// shared-account subjects of the form "G...:memo".
	AccountMemo string
	// HomeDomain and ClientDomain mirror the corresponding JWT claims.
	HomeDomain   string
	ClientDomain string
}

// Memo converts the token's account memo to its integer form. A token
// without a memo yields nil.
func (t *Token) Memo() (*int64, error) {
	if t.AccountMemo == "" {
		return nil, nil
	}
	memo, err := strconv.ParseInt(t.AccountMemo, 10, 64)
	if err != nil {
		return nil, seperror.InvalidSepRequest("invalid_token_memo",
			"invalid jwt token memo", t.AccountMemo)
	}
	return &memo, nil
}

// EffectiveMemo resolves the sub-identity the token authenticates: the muxed
// id when the subject was a muxed account, otherwise the integer account
// memo. Nil means the token authenticates the bare account.
func (t *Token) EffectiveMemo() (*int64, error) {
	if t.MuxedAccountID != "" && t.MuxedID != nil {
		memo := int64(*t.MuxedID)
		return &memo, nil
	}
	return t.Memo()
}

// tokenFromSubject parses the SEP-10 subject claim: "G...", "G...:memo", or
// a muxed "M..." address.
func tokenFromSubject(sub string) (*Token, error) {
	if strings.HasPrefix(sub, "M") {
		account, muxedID, err := stellar.DecodeMuxed(sub)
		if err != nil {
			return nil, seperror.NotAuthorized("invalid token subject")
		}
		return &Token{
			AccountID:      account,
			MuxedAccountID: sub,
			MuxedID:        &muxedID,
		}, nil
	}

	account, memo, _ := strings.Cut(sub, ":")
	if _, err := stellar.DecodeAccountID(account); err != nil {
		return nil, seperror.NotAuthorized("invalid token subject")
	}
	return &Token{AccountID: account, AccountMemo: memo}, nil
}
