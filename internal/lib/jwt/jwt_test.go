package jwt_test

import (
	"testing"
	"time"

	"accounts/internal/domain/models"
	"accounts/internal/lib/jwt"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	accessSecret  = "access-secret"
	refreshSecret = "refresh-secret"
)

func testAccount() *models.Account {
	return &models.Account{
		ID:       "64f1c0ffee0000000000beef",
		Username: gofakeit.Username(),
		Email:    gofakeit.Email(),
	}
}

func TestPair_DecodesToSameAccount(t *testing.T) {
	issuer := jwt.NewIssuer(accessSecret, refreshSecret, time.Minute, time.Hour)
	account := testAccount()

	pair, err := issuer.Pair(account)
	require.NoError(t, err)
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AccessToken, pair.RefreshToken)

	accessID, err := issuer.VerifyAccessToken(pair.AccessToken)
	require.NoError(t, err)
	refreshID, err := issuer.VerifyRefreshToken(pair.RefreshToken)
	require.NoError(t, err)

	assert.Equal(t, account.ID, accessID)
	assert.Equal(t, account.ID, refreshID)
}

func TestPair_TokensAreDistinctPerIssue(t *testing.T) {
	issuer := jwt.NewIssuer(accessSecret, refreshSecret, time.Minute, time.Hour)
	account := testAccount()

	first, err := issuer.Pair(account)
	require.NoError(t, err)
	second, err := issuer.Pair(account)
	require.NoError(t, err)

	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
}

func TestVerifyRefreshToken_SecretsAreIndependent(t *testing.T) {
	issuer := jwt.NewIssuer(accessSecret, refreshSecret, time.Minute, time.Hour)
	account := testAccount()

	// An access token must never pass refresh verification.
	accessToken, err := issuer.AccessToken(account)
	require.NoError(t, err)

	_, err = issuer.VerifyRefreshToken(accessToken)
	require.ErrorIs(t, err, jwt.ErrTokenMalformed)
}

func TestVerifyRefreshToken_FailCases(t *testing.T) {
	issuer := jwt.NewIssuer(accessSecret, refreshSecret, time.Minute, time.Hour)
	other := jwt.NewIssuer(accessSecret, "another-refresh-secret", time.Minute, time.Hour)

	foreign, err := other.RefreshToken("64f1c0ffee0000000000beef")
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage input", token: "not-a-token"},
		{name: "empty input", token: ""},
		{name: "signed with a different secret", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.VerifyRefreshToken(tt.token)
			require.ErrorIs(t, err, jwt.ErrTokenMalformed)
		})
	}
}

func TestVerifyRefreshToken_Expired(t *testing.T) {
	issuer := jwt.NewIssuer(accessSecret, refreshSecret, time.Minute, -time.Minute)

	token, err := issuer.RefreshToken("64f1c0ffee0000000000beef")
	require.NoError(t, err)

	_, err = issuer.VerifyRefreshToken(token)
	require.ErrorIs(t, err, jwt.ErrTokenExpired)
}
