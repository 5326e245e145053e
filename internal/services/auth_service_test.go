package services

import (
	"testing"

	"amoura-chat/config"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiryMin: 5})
	userID := uuid.New()

	token, err := svc.IssueAccessToken(userID)
	require.NoError(t, err)

	claims, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
}

func TestParseAccessTokenRejectsWrongKey(t *testing.T) {
	issuer := NewAuthService(&config.Config{JWTSecret: "key-one", JWTExpiryMin: 5})
	verifier := NewAuthService(&config.Config{JWTSecret: "key-two", JWTExpiryMin: 5})

	token, err := issuer.IssueAccessToken(uuid.New())
	require.NoError(t, err)

	_, err = verifier.ParseAccessToken(token)
	assert.Error(t, err)
}

func TestParseAccessTokenRejectsGarbage(t *testing.T) {
	svc := NewAuthService(&config.Config{JWTSecret: "secret", JWTExpiryMin: 5})
	_, err := svc.ParseAccessToken("not-a-token")
	assert.Error(t, err)
}

func TestListTemplatesByCategory(t *testing.T) {
	all := ListTemplates("")
	require.NotEmpty(t, all)

	icebreakers := ListTemplates("icebreaker")
	require.NotEmpty(t, icebreakers)
	for _, tmpl := range icebreakers {
		assert.Equal(t, "icebreaker", tmpl.Category)
	}

	assert.Empty(t, ListTemplates("no-such-category"))

	tmpl, ok := TemplateByID("question-1")
	require.True(t, ok)
	assert.Equal(t, "question", tmpl.Category)
}
