package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tento/internal/common"
)

func TestService_DisabledAdmitsEveryone(t *testing.T) {
	service := NewService(&common.AuthConfig{Enabled: false}, common.GetLogger())

	assert.False(t, service.Enabled())
	assert.NoError(t, service.Authorize(""))
	assert.NoError(t, service.Authorize("anything"))
}

func TestService_EnabledValidatesTokens(t *testing.T) {
	service := NewService(&common.AuthConfig{
		Enabled: true,
		Tokens:  []string{"alpha-token", "beta-token"},
	}, common.GetLogger())

	assert.True(t, service.Enabled())
	assert.NoError(t, service.Authorize("alpha-token"))
	assert.NoError(t, service.Authorize("beta-token"))

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"wrong", "gamma-token"},
		{"prefix", "alpha"},
		{"suffix_padded", "alpha-token "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := service.Authorize(tt.token)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnauthorized)
		})
	}
}

func TestService_EnabledWithoutTokensRejectsAll(t *testing.T) {
	service := NewService(&common.AuthConfig{Enabled: true}, common.GetLogger())
	assert.ErrorIs(t, service.Authorize("any"), ErrUnauthorized)
}
