package testutil

import (
	"net/http"

	id "bonds/pkg/domain"
	"bonds/pkg/requestcontext"
)

// WithAccountID marks the request as authenticated by accountID, the way the
// auth middleware would.
func WithAccountID(req *http.Request, accountID id.AccountID) *http.Request {
	return req.WithContext(requestcontext.WithAccountID(req.Context(), accountID))
}
