package client

import (
	"talkio/internal/domain"
	talkio_errors "talkio/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

type accessClaims struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	jwt.RegisteredClaims
}

// identityFromToken decodes the local identity from the access token's
// claims. The signature is the server's business; the client only needs
// the payload, so the token is parsed without verification.
func identityFromToken(token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, talkio_errors.ErrNoIdentity
	}
	var claims accessClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return domain.User{}, err
	}
	if claims.UserID == "" {
		claims.UserID = claims.Subject
	}
	if claims.UserID == "" {
		return domain.User{}, talkio_errors.ErrNoIdentity
	}
	return domain.User{
		ID:     claims.UserID,
		Name:   claims.Name,
		Avatar: claims.Avatar,
	}, nil
}
