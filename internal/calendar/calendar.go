// Package calendar turns card deadlines into an iCalendar feed reachable
// through a signed capability token. The token is deliberately long-lived:
// calendar apps poll the URL for years. Access dies with the membership,
// because the feed handler re-checks it on every fetch.
package calendar

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way a feed token can be bad.
var ErrInvalidToken = errors.New("invalid calendar token")

// FeedClaims binds a feed token to one board and one member.
type FeedClaims struct {
	BoardUID string `json:"boardUid"`
	Email    string `json:"email"`
	jwt.RegisteredClaims
}

type Signer struct {
	secret []byte
	parser *jwt.Parser
}

func NewSigner(secret []byte) *Signer {
	return &Signer{
		secret: secret,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
	}
}

// Mint issues the capability token for one member's view of one board. The
// same inputs always produce an equivalent token, so re-minting does not
// break feeds already subscribed.
func (s *Signer) Mint(boardUID, email string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, FeedClaims{
		BoardUID: boardUID,
		Email:    email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: email,
		},
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign calendar token: %w", err)
	}
	return signed, nil
}

func (s *Signer) Parse(token string) (FeedClaims, error) {
	claims := FeedClaims{}
	parsed, err := s.parser.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return FeedClaims{}, ErrInvalidToken
	}
	if claims.BoardUID == "" || claims.Email == "" {
		return FeedClaims{}, ErrInvalidToken
	}
	return claims, nil
}
