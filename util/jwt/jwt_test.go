package jwt

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIssueAndParseAuth(t *testing.T) {
	token, err := Issue("secret", 42, "librarian", 1)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ParseAuth("Bearer "+token, "secret")
	require.NoError(t, err)
	require.Equal(t, float64(42), claims["sub"])
	require.Equal(t, "librarian", claims["role"])
}

func TestParseAuthRejectsWrongSecret(t *testing.T) {
	token, err := Issue("secret", 42, "member", 1)
	require.NoError(t, err)

	_, err = ParseAuth("Bearer "+token, "other")
	require.Error(t, err)
}

func TestParseAuthRejectsMissingBearer(t *testing.T) {
	_, err := ParseAuth("", "secret")
	require.Error(t, err)

	_, err = ParseAuth("Token abc", "secret")
	require.Error(t, err)
}
