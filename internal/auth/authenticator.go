package auth

import (
	"context"
	"errors"

	"github.com/okian/mmo/pkg/logger"
	"github.com/okian/mmo/pkg/metrics"
)

// Authenticator ties the verifier, limiter and session store together for
// the HTTP layer.
type Authenticator struct {
	verifier *Verifier
	limiter  *Limiter
	sessions *SessionStore
	log      logger.Logger
}

// NewAuthenticator wires the three parts. A nil logger means no logging.
func NewAuthenticator(v *Verifier, l *Limiter, s *SessionStore, log logger.Logger) *Authenticator {
	if log == nil {
		log = logger.Nop()
	}
	return &Authenticator{verifier: v, limiter: l, sessions: s, log: log}
}

// Login checks credentials and opens a session.
func (a *Authenticator) Login(ctx context.Context, username, password string) (Session, error) {
	if err := a.limiter.Allow(username); err != nil {
		metrics.RecordLoginAttempt("rate_limited")
		a.log.Warn(ctx, "login throttled", logger.String("user", username))
		return Session{}, err
	}
	if err := a.verifier.Verify(username, password); err != nil {
		metrics.RecordLoginAttempt("rejected")
		a.log.Info(ctx, "login rejected", logger.String("user", username))
		return Session{}, err
	}
	sess, err := a.sessions.Create(username)
	if err != nil {
		metrics.RecordLoginAttempt("error")
		a.log.Error(ctx, "session create failed", logger.String("user", username), logger.Error(err))
		return Session{}, err
	}
	metrics.RecordLoginAttempt("accepted")
	a.log.Info(ctx, "login accepted", logger.String("user", username))
	return sess, nil
}

// Authenticate resolves a session token.
func (a *Authenticator) Authenticate(token string) (Session, error) {
	return a.sessions.Lookup(token)
}

// Logout revokes token.
func (a *Authenticator) Logout(ctx context.Context, token string) {
	if sess, err := a.sessions.Lookup(token); err == nil {
		a.log.Info(ctx, "logout", logger.String("user", sess.User))
	}
	a.sessions.Revoke(token)
}

// IsAuthError reports whether err should be answered with 401.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) || errors.Is(err, ErrNoSession)
}
