package service

import (
	"fmt"

	"anchorgate/internal/sep10"
	"anchorgate/pkg/seperror"
)

// authorize reconciles the addressed (account, memo) identity against the
// authenticated token and returns the memo to forward to the integration.
//
// The claimed account must be the token's plain or muxed account. The
// token's effective memo (muxed id first, account memo second) then
// disambiguates sub-accounts: a token without one authenticates the bare
// account and accepts any claimed memo, a token with one rejects a claimed
// memo that differs. The returned memo is always the token's own; claimed
// values are cross-checked, never acted upon.
func authorize(token *sep10.Token, account string, memo *int64) (*int64, error) {
	if token == nil {
		return nil, seperror.NotAuthorized("missing authentication token")
	}
	if account != "" && account != token.AccountID && account != token.MuxedAccountID {
		return nil, seperror.NotAuthorized(
			fmt.Sprintf("not authorized to manage account %s", account))
	}

	tokenMemo, err := token.EffectiveMemo()
	if err != nil {
		return nil, err
	}
	if tokenMemo == nil {
		return nil, nil
	}
	if memo != nil && *memo != *tokenMemo {
		return nil, seperror.NotAuthorized("not authorized to manage the requested memo")
	}
	return tokenMemo, nil
}
