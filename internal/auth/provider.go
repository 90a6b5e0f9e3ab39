// Package auth owns the session-presence side of the system: the external
// provider contract, a JWT-backed implementation, and the gate that reduces
// session changes to a binary authenticated signal for the navigation root.
package auth

import (
	"context"
	"sync"
	"time"
)

// Session is the authenticated identity. The catalog core only consumes
// presence (session vs. no session); the identity fields exist for
// presentation attribution such as display name and avatar.
type Session struct {
	UserID      int64     `json:"user_id,string"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url"`
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ProfileUpdate carries a profile save. Empty fields are left unchanged;
// a non-empty NewPassword must match ConfirmPassword.
type ProfileUpdate struct {
	DisplayName     string `json:"display_name"`
	AvatarURL       string `json:"avatar_url"`
	NewPassword     string `json:"new_password"`
	ConfirmPassword string `json:"confirm_password"`
}

// Provider is the authentication session collaborator. It owns the one
// piece of genuinely shared state in the system; everything downstream
// treats it as read-only.
type Provider interface {
	// Current returns the active session, or nil when signed out.
	Current() *Session

	// Subscribe opens a stream of session changes. nil means signed out.
	// Callers must Close the subscription on teardown.
	Subscribe() *SessionSubscription

	SignIn(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password, displayName string) (*Session, error)
	SignOut()
	UpdateProfile(ctx context.Context, update ProfileUpdate) error
}

// SessionSubscription is one open session change-stream. Delivery is
// latest-wins; only the most recent session state matters.
type SessionSubscription struct {
	C <-chan *Session

	ch      chan *Session
	done    chan struct{}
	once    sync.Once
	onClose func(*SessionSubscription)
}

func newSessionSubscription(onClose func(*SessionSubscription)) *SessionSubscription {
	ch := make(chan *Session, 1)
	return &SessionSubscription{
		C:       ch,
		ch:      ch,
		done:    make(chan struct{}),
		onClose: onClose,
	}
}

// Close detaches the subscription from the provider.
func (s *SessionSubscription) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.onClose != nil {
			s.onClose(s)
		}
	})
}

// Done reports subscription teardown, either by Close or by provider
// shutdown mid-stream.
func (s *SessionSubscription) Done() <-chan struct{} {
	return s.done
}

func (s *SessionSubscription) deliver(sess *Session) {
	select {
	case <-s.done:
		return
	default:
	}
	for {
		select {
		case s.ch <- sess:
			return
		case <-s.done:
			return
		default:
			select {
			case <-s.ch:
			default:
			}
		}
	}
}
