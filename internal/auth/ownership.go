package auth

import "github.com/shelfmark/shelfmark/internal/apperr"

// Decision is the outcome of an ownership check.
type Decision int

const (
	// Denied means the caller may not mutate the resource.
	Denied Decision = iota
	// Allowed means the caller owns the resource.
	Allowed
)

func (d Decision) String() string {
	if d == Allowed {
		return "allowed"
	}
	return "denied"
}

// AuthorizeMutation decides whether callerID may modify or delete a resource
// owned by ownerID. Only the owner is allowed; an empty id on either side is
// always denied.
func AuthorizeMutation(ownerID, callerID string) Decision {
	if ownerID == "" || callerID == "" {
		return Denied
	}
	if ownerID != callerID {
		return Denied
	}
	return Allowed
}

// RequireOwner returns an authorization error unless callerID owns the resource.
func RequireOwner(ownerID, callerID string) error {
	if AuthorizeMutation(ownerID, callerID) == Allowed {
		return nil
	}
	return apperr.Authorization("NOT_OWNER", "Unauthorized")
}
