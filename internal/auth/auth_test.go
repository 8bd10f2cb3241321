package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/bookcat/internal/testutil"
)

func TestRequire(t *testing.T) {
	mod := Actor{ID: "mod", Permissions: []string{PermModeratePost}}
	user := Actor{ID: "reader"}

	assert.NoError(t, Require(PermissionSet{}, mod, PermModeratePost))

	err := Require(PermissionSet{}, user, PermModeratePost)
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Contains(t, err.Error(), "reader")

	assert.ErrorIs(t, Require(nil, mod, PermModeratePost), ErrPermissionDenied)
}

func TestTokenRoundTrip(t *testing.T) {
	v, err := NewTokenVerifier("s3cret", "bookcat")
	require.NoError(t, err)

	token, err := v.Issue(Actor{ID: "mod", Permissions: []string{PermModeratePost}}, time.Hour)
	require.NoError(t, err)

	actor, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "mod", actor.ID)
	assert.True(t, PermissionSet{}.HasPerm(actor, PermModeratePost))
}

func TestTokenRejected(t *testing.T) {
	v, err := NewTokenVerifier("s3cret", "bookcat")
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		other, err := NewTokenVerifier("other", "bookcat")
		require.NoError(t, err)
		token, err := other.Issue(Actor{ID: "mod"}, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other, err := NewTokenVerifier("s3cret", "elsewhere")
		require.NoError(t, err)
		token, err := other.Issue(Actor{ID: "mod"}, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("expired", func(t *testing.T) {
		past, err := NewTokenVerifier("s3cret", "bookcat")
		require.NoError(t, err)
		clock := testutil.NewClock(time.Now())
		past.now = clock.Now
		token, err := past.Issue(Actor{ID: "mod"}, time.Hour)
		require.NoError(t, err)
		_, err = past.Verify(token)
		require.NoError(t, err)

		clock.Advance(2 * time.Hour)
		_, err = past.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("no subject", func(t *testing.T) {
		token, err := v.Issue(Actor{}, time.Hour)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	_, err = NewTokenVerifier("", "")
	assert.Error(t, err)
}
