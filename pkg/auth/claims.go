package auth

import (
	"github.com/golang-jwt/jwt/v5"
)

const (
	// RoleCustomer is the default role for storefront shoppers.
	RoleCustomer = "customer"
	// RoleStaff unlocks the admin surface.
	RoleStaff = "staff"
)

// AccessTokenClaims represents the typed JWT issued by the identity provider.
// Subject carries the external user id; customers are materialized locally on
// first sight.
type AccessTokenClaims struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}
