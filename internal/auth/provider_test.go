package auth

import (
	"testing"

	"github.com/sanamente/catalogd/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestPasswordPolicy(t *testing.T) {
	valid := []string{"Abc123", "Sanamente1", "xY9zzz"}
	for _, p := range valid {
		assert.True(t, passwordValid(p), p)
	}
	invalid := []string{"", "Ab1", "abc123", "ABC123", "Abcdef", "123456"}
	for _, p := range invalid {
		assert.False(t, passwordValid(p), p)
	}
}

func TestValidateProfile(t *testing.T) {
	p := &JWTProvider{}

	assert.NoError(t, p.ValidateProfile(ProfileUpdate{DisplayName: "María José Ñandú"}))
	assert.NoError(t, p.ValidateProfile(ProfileUpdate{AvatarURL: "https://example.com/a.png"}))
	assert.NoError(t, p.ValidateProfile(ProfileUpdate{
		NewPassword: "Abc123", ConfirmPassword: "Abc123",
	}))

	cases := map[string]ProfileUpdate{
		"empty save":        {},
		"digits in name":    {DisplayName: "Op3rador"},
		"weak password":     {NewPassword: "abc", ConfirmPassword: "abc"},
		"password mismatch": {NewPassword: "Abc123", ConfirmPassword: "Abc124"},
	}
	for name, update := range cases {
		assert.ErrorIs(t, p.ValidateProfile(update), domain.ErrValidationFailed, name)
	}
}

func TestSessionSubscriptionLatestWins(t *testing.T) {
	sub := newSessionSubscription(nil)

	sub.deliver(&Session{Email: "stale@sanamente.local"})
	sub.deliver(&Session{Email: "fresh@sanamente.local"})

	sess := <-sub.C
	assert.Equal(t, "fresh@sanamente.local", sess.Email)
	select {
	case <-sub.C:
		t.Fatal("stale session should have been dropped")
	default:
	}
}
