package jwt

import (
	"errors"
	"fmt"
	"time"

	"accounts/internal/domain/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenMalformed = errors.New("token malformed")
)

// Issuer creates and verifies the access/refresh token pair. The two token
// kinds are signed with independent secrets and carry independent lifetimes,
// so a leaked access token never opens the refresh path.
type Issuer struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewIssuer(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *Issuer {
	return &Issuer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
	}
}

// AccessToken creates a short-lived token carrying the account identity.
func (i *Issuer) AccessToken(account *models.Account) (string, error) {
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"uid":      account.ID,
			"username": account.Username,
			"email":    account.Email,
			"iat":      time.Now().Unix(),
			"exp":      time.Now().Add(i.accessTTL).Unix(),
			"jti":      uuid.NewString(),
		})
	return token.SignedString(i.accessSecret)
}

// RefreshToken creates a longer-lived token carrying only the account id.
// The jti claim makes every issued token distinct even within one clock tick,
// which the rotate-on-use comparison relies on.
func (i *Issuer) RefreshToken(accountID string) (string, error) {
	token := jwt.NewWithClaims(
		jwt.SigningMethodHS256,
		jwt.MapClaims{
			"uid": accountID,
			"iat": time.Now().Unix(),
			"exp": time.Now().Add(i.refreshTTL).Unix(),
			"jti": uuid.NewString(),
		})
	return token.SignedString(i.refreshSecret)
}

// Pair issues both tokens for the same account.
func (i *Issuer) Pair(account *models.Account) (*models.TokenPair, error) {
	access, err := i.AccessToken(account)
	if err != nil {
		return nil, fmt.Errorf("access token: %w", err)
	}
	refresh, err := i.RefreshToken(account.ID)
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	return &models.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// VerifyRefreshToken checks the signature and expiry of a refresh token and
// returns the account id it was issued for. Expired and malformed tokens fail
// with distinct errors so callers can report the reason.
func (i *Issuer) VerifyRefreshToken(tokenString string) (string, error) {
	return verify(tokenString, i.refreshSecret)
}

// VerifyAccessToken checks an access token and returns the account id.
func (i *Issuer) VerifyAccessToken(tokenString string) (string, error) {
	return verify(tokenString, i.accessSecret)
}

func verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", ErrTokenExpired
		}
		return "", ErrTokenMalformed
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrTokenMalformed
	}

	uid, ok := claims["uid"].(string)
	if !ok || uid == "" {
		return "", ErrTokenMalformed
	}

	return uid, nil
}
