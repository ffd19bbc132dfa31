package service

import (
	"church-payments/internal/core/ports"
)

// OwnerOrAdminAuthorizer implements ports.Authorizer: a caller may act on a
// resource when they own it or hold the admin role.
type OwnerOrAdminAuthorizer struct{}

// NewAuthorizer creates the standard ownership authorizer.
func NewAuthorizer() *OwnerOrAdminAuthorizer {
	return &OwnerOrAdminAuthorizer{}
}

// CanAccess reports whether the claims grant access to a resource owned by
// ownerID.
func (a *OwnerOrAdminAuthorizer) CanAccess(claims *ports.TokenClaims, ownerID string) bool {
	if claims == nil {
		return false
	}
	if claims.IsAdmin() {
		return true
	}
	return claims.UserID != "" && claims.UserID == ownerID
}
