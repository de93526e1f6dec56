package vivialconnect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/s0up4200/vivialconnect/requestor"
)

func TestUserCredentials(t *testing.T) {
	c, s := newTestClient(t)
	ctx := t.Context()

	u, err := c.Users.Create(ctx, map[string]any{
		"username":   "ops",
		"email":      "ops@example.com",
		"first_name": "Pat",
		"last_name":  "Ops",
	})
	require.NoError(t, err)
	assert.Equal(t, "Pat Ops", u.FullName())
	assert.Equal(t, "ops@example.com", u.Email())

	cred, err := c.Users.CreateCredential(ctx, u, "ci")
	require.NoError(t, err)
	assert.False(t, cred.IsNew())
	assert.NotEmpty(t, cred.APIKey())
	assert.Equal(t, u.ID(), cred.UserID())

	last, _ := s.LastRequest()
	assert.JSONEq(t, `{"user":{"credential":{"name":"ci"}}}`, string(last.Body))

	creds, err := c.Users.Credentials(ctx, u)
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "ci", creds[0].Name())

	n, err := c.Users.CountCredentials(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	cred.Set("name", "deploy")
	require.NoError(t, c.Users.SaveCredential(ctx, cred))

	got, err := c.Users.Credential(ctx, u, cred.ID())
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "deploy", got.Name())
	assert.Equal(t, cred.APIKey(), got.APIKey())

	require.NoError(t, c.Users.DestroyCredential(ctx, got))
	creds, err = c.Users.Credentials(ctx, u)
	require.NoError(t, err)
	assert.Empty(t, creds)

	_, err = c.Users.Credential(ctx, u, cred.ID())
	assert.ErrorIs(t, err, requestor.ErrResourceNotFound)
}

func TestUserCredentialsRequireSavedUser(t *testing.T) {
	c, s := newTestClient(t)
	u := c.Users.New(map[string]any{"username": "nobody"})

	_, err := c.Users.Credentials(t.Context(), u)
	assert.ErrorIs(t, err, requestor.ErrResource)

	_, err = c.Users.CreateCredential(t.Context(), u, "x")
	assert.ErrorIs(t, err, requestor.ErrResource)

	err = c.Users.DestroyCredential(t.Context(), newCredential(nil, map[string]any{"name": "orphan"}))
	assert.ErrorIs(t, err, requestor.ErrResource)
	assert.Empty(t, s.Requests())
}

func TestUserFullName(t *testing.T) {
	c, _ := newTestClient(t)
	tests := []struct {
		first, last, want string
	}{
		{"Pat", "Ops", "Pat Ops"},
		{"Pat", "", "Pat"},
		{"", "Ops", "Ops"},
		{"", "", ""},
	}
	for _, tt := range tests {
		u := c.Users.New(map[string]any{"first_name": tt.first, "last_name": tt.last})
		assert.Equal(t, tt.want, u.FullName())
	}
}
