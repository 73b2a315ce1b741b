package jwttoken

import (
	authmw "recordshare/pkg/platform/middleware/auth"
)

func ToMiddlewareClaims(claims *Claims) *authmw.Claims {
	return &authmw.Claims{
		Address: claims.Address,
		JTI:     claims.ID,
	}
}

// VerifyToken satisfies authmw.TokenVerifier.
func (s *JWTService) VerifyToken(tokenString string) (*authmw.Claims, error) {
	claims, err := s.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}
	return ToMiddlewareClaims(claims), nil
}
