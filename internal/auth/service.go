package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = 24 * time.Hour

type Service struct {
	secret []byte
	now    func() time.Time
}

type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

func NewService(secret string) *Service {
	return &Service{
		secret: []byte(secret),
		now:    time.Now,
	}
}

// IssueToken signs an access token for the account.
func (s *Service) IssueToken(accountID string) (string, error) {
	now := s.now()
	claims := Claims{
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken returns the account id carried by a valid token.
func (s *Service) ValidateToken(token string) (string, error) {
	claims, err := parseClaims(token, s.secret)
	if err != nil {
		return "", err
	}
	return claims.AccountID, nil
}

func parseClaims(token string, secret []byte) (*Claims, error) {
	parsed, err := parseClaimsFn(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AccountID == "" {
		return nil, errors.New("token invalid")
	}
	return claims, nil
}

var parseClaimsFn = jwt.ParseWithClaims
