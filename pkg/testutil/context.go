package testutil

import (
	"net/http"

	id "estekhdam/pkg/domain"
	"estekhdam/pkg/requestcontext"
)

// WithPrincipal simulates what the session middleware does for an
// authenticated request.
func WithPrincipal(req *http.Request, userID id.UserID, role id.Role) *http.Request {
	ctx := requestcontext.WithPrincipal(req.Context(), userID, role)
	return req.WithContext(ctx)
}

// AsRecruiter authenticates req as recruiter 1.
func AsRecruiter(req *http.Request) *http.Request {
	return WithPrincipal(req, id.UserID(1), id.RoleRecruiter)
}
