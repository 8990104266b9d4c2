package auth

import (
	"strings"

	log "github.com/sirupsen/logrus"
)

// Authenticator resolves a bearer token to an Identity. OIDC tokens are
// tried first; session tokens signed with the shared secret are the fallback.
type Authenticator struct {
	verifier TokenVerifier
	secret   string
	logger   *log.Entry
}

// NewAuthenticator accepts a nil verifier or an empty secret, but not both
// if any request is expected to pass.
func NewAuthenticator(verifier TokenVerifier, secret string) *Authenticator {
	return &Authenticator{
		verifier: verifier,
		secret:   secret,
		logger:   log.WithField("component", "Authenticator"),
	}
}

func (a *Authenticator) Configured() bool {
	return a.verifier != nil || a.secret != ""
}

// Mode names the active verification chain for the health endpoint
func (a *Authenticator) Mode() string {
	switch {
	case a.verifier != nil && a.secret != "":
		return "oidc+session"
	case a.verifier != nil:
		return "oidc"
	case a.secret != "":
		return "session"
	}
	return "none"
}

// Authenticate validates the value of an Authorization header
func (a *Authenticator) Authenticate(header string) (*Identity, error) {
	token, ok := BearerToken(header)
	if !ok {
		return nil, ErrMissingToken
	}
	if !a.Configured() {
		return nil, ErrNotConfigured
	}

	if a.verifier != nil {
		id, err := a.verifier.Verify(token)
		if err == nil {
			return id, nil
		}
		if a.secret == "" {
			a.logger.WithError(err).Debug("oidc token rejected")
			return nil, ErrInvalidToken
		}
	}

	return ParseSessionToken(token, a.secret)
}

// BearerToken extracts the token from "Bearer <token>"
func BearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
